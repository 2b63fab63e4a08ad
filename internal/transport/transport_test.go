package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func testOptions() Options {
	return Options{VerifyTLS: true, Logger: zerolog.Nop()}
}

func TestDoCustomVerb(t *testing.T) {
	var gotMethod, gotBody, gotDepth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotDepth = r.Header.Get("Depth")
		w.Header().Set("ETag", `"v1"`)
		w.WriteHeader(http.StatusMultiStatus)
		io.WriteString(w, "reply")
	}))
	defer srv.Close()

	resp, terr := Do(context.Background(), testOptions(), Request{
		Method: "REPORT",
		URL:    srv.URL + "/cal/",
		Header: map[string]string{"Depth": "1"},
		Body:   "<query/>",
	})
	if terr != nil {
		t.Fatalf("Do: %v", terr)
	}
	if gotMethod != "REPORT" || gotBody != "<query/>" || gotDepth != "1" {
		t.Errorf("request seen as %s %q depth=%q", gotMethod, gotBody, gotDepth)
	}
	if resp.StatusCode != 207 || resp.Body != "reply" {
		t.Errorf("resp = %d %q", resp.StatusCode, resp.Body)
	}
	if !strings.Contains(resp.RawHeader, `Etag: "v1"`) && !strings.Contains(resp.RawHeader, `ETag: "v1"`) {
		t.Errorf("raw header block missing the etag:\n%s", resp.RawHeader)
	}
}

// Redirects preserve the verb and the body; net/http alone would downgrade
// a 302'd REPORT to GET.
func TestDoRedirectPreservesMethod(t *testing.T) {
	var landedMethod, landedBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/old/":
			w.Header().Set("Location", "/new/")
			w.WriteHeader(http.StatusFound)
		case "/new/":
			landedMethod = r.Method
			body, _ := io.ReadAll(r.Body)
			landedBody = string(body)
			w.WriteHeader(http.StatusMultiStatus)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	resp, terr := Do(context.Background(), testOptions(), Request{
		Method: "REPORT",
		URL:    srv.URL + "/old/",
		Body:   "<query/>",
	})
	if terr != nil {
		t.Fatalf("Do: %v", terr)
	}
	if resp.StatusCode != 207 {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if landedMethod != "REPORT" || landedBody != "<query/>" {
		t.Errorf("redirect landed as %s %q", landedMethod, landedBody)
	}
}

func TestDoSendsUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	if _, terr := Do(context.Background(), testOptions(), Request{Method: "OPTIONS", URL: srv.URL}); terr != nil {
		t.Fatalf("Do: %v", terr)
	}
	if ua != UserAgent {
		t.Errorf("User-Agent = %q", ua)
	}
}

func TestHeaderValue(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\n" +
		"DAV: 1, 2\r\n" +
		"Dav: calendar-access\r\n" +
		"Allow: OPTIONS, GET\r\n" +
		"Content-Length: 0\r\n"

	if got := HeaderValue(raw, "dav"); got != "1, 2, calendar-access" {
		t.Errorf("DAV = %q", got)
	}
	if got := HeaderValue(raw, "Allow"); got != "OPTIONS, GET" {
		t.Errorf("Allow = %q", got)
	}
	if got := HeaderValue(raw, "ETag"); got != "" {
		t.Errorf("absent header = %q", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"dns", &net.DNSError{Err: "no such host", Name: "nowhere.invalid"}, -3},
		{"dns inside op", &net.OpError{Op: "dial", Err: &net.DNSError{Err: "no such host"}}, -3},
		{"tls verify", &tls.CertificateVerificationError{Err: errors.New("bad cert")}, -2},
		{"unknown authority", x509.UnknownAuthorityError{}, -2},
		{"dial refused", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, -4},
		{"read reset", &net.OpError{Op: "read", Err: errors.New("reset")}, -1},
		{"plain", errors.New("boom"), -1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := classify(tc.err); got.Code != tc.want {
				t.Errorf("classify(%v) = %d, want %d", tc.err, got.Code, tc.want)
			}
		})
	}
}

// A connection to a closed port classifies as a connect failure.
func TestClassifyLiveConnectFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	_, terr := Do(context.Background(), testOptions(), Request{Method: "OPTIONS", URL: "http://" + addr + "/"})
	if terr == nil {
		t.Fatal("Do succeeded against a closed port")
	}
	if terr.Code != -4 {
		t.Errorf("code = %d, want -4", terr.Code)
	}
}
