// Package transport shapes a single HTTP exchange for the CalDAV engine:
// arbitrary WebDAV verbs, request headers and body, Basic/Digest
// authentication, TLS policy, manual redirect handling that preserves the
// verb, and capture of the response headers both structured and as a raw
// text block.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const UserAgent = "caldav-client/1.0"

const maxRedirects = 10

// Options carries the per-call connection policy. The zero value is not
// useful; callers populate it from their runtime options.
type Options struct {
	Username   string
	Password   string
	VerifyTLS  bool
	CustomCA   string // path to a PEM bundle appended to the system roots
	Debug      bool
	TraceASCII bool
	Logger     zerolog.Logger
}

type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   string
}

type Response struct {
	StatusCode int
	Header     http.Header
	RawHeader  string // status line plus headers, one per line
	Body       string
}

// Err is a transport-level failure. Code follows the engine's convention:
// -2 TLS, -3 DNS, -4 connect, -1 anything else.
type Err struct {
	Code int
	Msg  string
}

func (e *Err) Error() string { return e.Msg }

// Do performs one logical exchange, following redirects itself so that
// WebDAV verbs and their bodies survive 301/302/303 the way they must
// (net/http would downgrade them to GET).
func Do(ctx context.Context, opts Options, req Request) (*Response, *Err) {
	client, err := newClient(opts)
	if err != nil {
		return nil, &Err{Code: -1, Msg: err.Error()}
	}

	target := req.URL
	auth := "" // Authorization value once negotiated
	if opts.Username != "" {
		auth = basicAuth(opts.Username, opts.Password)
	}

	for redirects := 0; ; redirects++ {
		hreq, err := http.NewRequestWithContext(ctx, req.Method, target, strings.NewReader(req.Body))
		if err != nil {
			return nil, &Err{Code: -1, Msg: err.Error()}
		}
		hreq.Header.Set("User-Agent", UserAgent)
		for k, v := range req.Header {
			hreq.Header.Set(k, v)
		}
		if auth != "" {
			hreq.Header.Set("Authorization", auth)
		}
		if opts.Debug {
			opts.Logger.Debug().Str("method", req.Method).Str("url", target).Msg("caldav request")
			if opts.TraceASCII && req.Body != "" {
				opts.Logger.Debug().Msg(req.Body)
			}
		}

		hresp, err := client.Do(hreq)
		if err != nil {
			return nil, classify(err)
		}
		body, err := io.ReadAll(hresp.Body)
		hresp.Body.Close()
		if err != nil {
			return nil, classify(err)
		}

		// Digest upgrade: the server refused our Basic credentials but
		// advertises a challenge we can answer. Strongest advertised scheme
		// wins.
		if hresp.StatusCode == http.StatusUnauthorized && opts.Username != "" && !strings.HasPrefix(auth, "Digest ") {
			if challenge := pickDigestChallenge(hresp.Header.Values("Www-Authenticate")); challenge != "" {
				d, err := answerDigest(challenge, opts.Username, opts.Password, req.Method, hreq.URL.RequestURI())
				if err == nil {
					auth = d
					continue
				}
			}
		}

		if isRedirect(hresp.StatusCode) {
			loc := hresp.Header.Get("Location")
			if loc == "" || redirects >= maxRedirects {
				return wrap(hresp, body, opts), nil
			}
			next, err := hreq.URL.Parse(loc)
			if err != nil {
				return nil, &Err{Code: -1, Msg: err.Error()}
			}
			target = next.String()
			continue
		}

		resp := wrap(hresp, body, opts)
		return resp, nil
	}
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func wrap(hresp *http.Response, body []byte, opts Options) *Response {
	resp := &Response{
		StatusCode: hresp.StatusCode,
		Header:     hresp.Header,
		RawHeader:  rawHeaderBlock(hresp),
		Body:       string(body),
	}
	if opts.Debug {
		opts.Logger.Debug().Int("status", resp.StatusCode).Msg("caldav response")
		opts.Logger.Debug().Msg(resp.RawHeader)
		if opts.TraceASCII && resp.Body != "" {
			opts.Logger.Debug().Msg(resp.Body)
		}
	}
	return resp
}

func newClient(opts Options) (*http.Client, error) {
	tlsConf := &tls.Config{}
	if !opts.VerifyTLS {
		tlsConf.InsecureSkipVerify = true
	}
	if opts.CustomCA != "" {
		pem, err := os.ReadFile(opts.CustomCA)
		if err != nil {
			return nil, err
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		pool.AppendCertsFromPEM(pem)
		tlsConf.RootCAs = pool
	}
	return &http.Client{
		Transport: &http.Transport{TLSClientConfig: tlsConf, Proxy: http.ProxyFromEnvironment},
		// Redirects are handled in Do so the verb and body survive.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, nil
}

// rawHeaderBlock rebuilds the header text the way a header callback would
// have captured it: status line first, then one "Name: value" line per
// header value, CRLF separated.
func rawHeaderBlock(resp *http.Response) string {
	var b strings.Builder
	b.WriteString(resp.Proto + " " + resp.Status + "\r\n")
	for name, values := range resp.Header {
		for _, v := range values {
			b.WriteString(name + ": " + v + "\r\n")
		}
	}
	return b.String()
}

// HeaderValue finds a header in a raw header block by case-insensitive name.
// Values repeated across several lines are joined with ", "; both DAV and
// Allow arrive split on some servers.
func HeaderValue(raw, name string) string {
	var found []string
	for _, line := range strings.FieldsFunc(raw, func(r rune) bool { return r == '\r' || r == '\n' }) {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(k), name) {
			found = append(found, strings.TrimSpace(v))
		}
	}
	return strings.Join(found, ", ")
}

// classify maps a transport failure onto the engine's error codes: TLS -2,
// DNS -3, connect -4, everything else -1.
func classify(err error) *Err {
	msg := err.Error()

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Err{Code: -3, Msg: msg}
	}

	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var invalidCert x509.CertificateInvalidError
	var recordErr tls.RecordHeaderError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) ||
		errors.As(err, &hostErr) || errors.As(err, &invalidCert) ||
		errors.As(err, &recordErr) {
		return &Err{Code: -2, Msg: msg}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return &Err{Code: -4, Msg: msg}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &Err{Code: -4, Msg: msg}
	}

	return &Err{Code: -1, Msg: msg}
}
