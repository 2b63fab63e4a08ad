package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPickDigestChallenge(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{
			name:   "digest only",
			values: []string{`Digest realm="cal", nonce="abc"`},
			want:   `Digest realm="cal", nonce="abc"`,
		},
		{
			name:   "digest preferred over basic",
			values: []string{`Basic realm="cal"`, `Digest realm="cal", nonce="abc"`},
			want:   `Digest realm="cal", nonce="abc"`,
		},
		{
			name:   "joined in one value",
			values: []string{`Basic realm="cal", Digest realm="cal", nonce="abc"`},
			want:   `Digest realm="cal", nonce="abc"`,
		},
		{
			name:   "basic only",
			values: []string{`Basic realm="cal"`},
			want:   "",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := pickDigestChallenge(tc.values); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseDigestParams(t *testing.T) {
	params := parseDigestParams(`Digest realm="cal dav", nonce="abc==", qop="auth,auth-int", algorithm=MD5, opaque="xyz"`)
	want := map[string]string{
		"realm": "cal dav", "nonce": "abc==", "qop": "auth,auth-int",
		"algorithm": "MD5", "opaque": "xyz",
	}
	for k, v := range want {
		if params[k] != v {
			t.Errorf("params[%q] = %q, want %q", k, params[k], v)
		}
	}
}

func TestAnswerDigestLegacy(t *testing.T) {
	// RFC 2069 form (no qop): response = md5(ha1:nonce:ha2).
	auth, err := answerDigest(`Digest realm="cal", nonce="abc"`, "frodo", "secret", "PUT", "/cal/x.ics")
	if err != nil {
		t.Fatalf("answerDigest: %v", err)
	}
	ha1 := md5hex("frodo:cal:secret")
	ha2 := md5hex("PUT:/cal/x.ics")
	wantResp := md5hex(ha1 + ":abc:" + ha2)
	if !strings.Contains(auth, `response="`+wantResp+`"`) {
		t.Errorf("auth = %q, want response %s", auth, wantResp)
	}
	if strings.Contains(auth, "qop=") {
		t.Errorf("legacy digest must not carry qop: %q", auth)
	}
}

func TestAnswerDigestRejectsUnknownAlgorithm(t *testing.T) {
	if _, err := answerDigest(`Digest realm="cal", nonce="abc", algorithm=SHA-256`, "u", "p", "GET", "/"); err == nil {
		t.Error("accepted an unimplemented algorithm")
	}
	if _, err := answerDigest(`Digest realm="cal"`, "u", "p", "GET", "/"); err == nil {
		t.Error("accepted a challenge without a nonce")
	}
}

// End to end: a server that rejects Basic and validates the Digest response.
func TestDoNegotiatesDigest(t *testing.T) {
	const (
		user  = "frodo"
		pass  = "secret"
		realm = "caldav"
		nonce = "deadbeef"
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Digest ") {
			w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Digest realm=%q, nonce=%q, qop="auth"`, realm, nonce))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		params := parseDigestParams(auth)
		ha1 := md5hex(user + ":" + realm + ":" + pass)
		ha2 := md5hex(r.Method + ":" + params["uri"])
		want := md5hex(ha1 + ":" + nonce + ":" + params["nc"] + ":" + params["cnonce"] + ":auth:" + ha2)
		if params["response"] != want {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	opts := testOptions()
	opts.Username = user
	opts.Password = pass
	resp, terr := Do(context.Background(), opts, Request{Method: "PROPFIND", URL: srv.URL + "/cal/"})
	if terr != nil {
		t.Fatalf("Do: %v", terr)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, digest negotiation failed", resp.StatusCode)
	}
}
