// Package caldav is a client for CalDAV (RFC 4791) collections over HTTP and
// HTTPS. It speaks the CalDAV subset of WebDAV verbs, parses multistatus
// replies leniently, and guards writes with LOCK/UNLOCK and ETag
// preconditions so concurrent editors cannot silently overwrite each other.
//
// A Client is safe for concurrent use; every call builds its own working
// state and transport and blocks only on the HTTP exchanges.
package caldav

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/caldav-client/internal/transport"
)

// Options is the option bag threaded into every call. It is read by the
// library and never mutated.
type Options struct {
	// VerifyTLS enables certificate and hostname verification. Disabling it
	// turns both off.
	VerifyTLS bool
	// CustomCA is the path to an extra PEM root bundle.
	CustomCA string
	// Debug routes request/response traces to the logger.
	Debug bool
	// TraceASCII includes bodies in the debug trace.
	TraceASCII bool
	// UseLocking guards mutations with LOCK/UNLOCK when the server
	// advertises them.
	UseLocking bool
	// Logger receives the debug trace. The zero value discards it.
	Logger zerolog.Logger
}

// DefaultOptions matches the library's historical defaults: verified TLS,
// locking on, quiet.
func DefaultOptions() Options {
	return Options{VerifyTLS: true, UseLocking: true, Logger: zerolog.Nop()}
}

// Client executes CalDAV operations. The zero value is not useful; construct
// with New.
type Client struct {
	opts Options
}

func New(opts Options) *Client {
	return &Client{opts: opts}
}

// Probe reports whether the URL names a CalDAV-enabled collection: an
// OPTIONS request whose DAV header advertises calendar-access. A reachable
// server that is not CalDAV yields false together with the describing error.
func (c *Client) Probe(ctx context.Context, rawURL string) (bool, error) {
	s, cerr := parseSettings(rawURL)
	if cerr != nil {
		return false, cerr
	}
	if cerr := c.probe(ctx, s); cerr != nil {
		return false, cerr
	}
	return true, nil
}

// ServerOptions returns the HTTP methods the collection advertises in its
// Allow header, trimmed.
func (c *Client) ServerOptions(ctx context.Context, rawURL string) ([]string, error) {
	s, cerr := parseSettings(rawURL)
	if cerr != nil {
		return nil, cerr
	}
	if cerr := c.probe(ctx, s); cerr != nil {
		return nil, cerr
	}
	return s.allow, nil
}

// transportOptions shapes the per-call connection policy from the client
// options plus the credentials the URL carried.
func (c *Client) transportOptions(s *settings) transport.Options {
	return transport.Options{
		Username:   s.username,
		Password:   s.password,
		VerifyTLS:  c.opts.VerifyTLS,
		CustomCA:   c.opts.CustomCA,
		Debug:      c.opts.Debug,
		TraceASCII: c.opts.TraceASCII,
		Logger:     c.opts.Logger,
	}
}

// do performs one exchange and converts transport failures into the
// engine's error record.
func (c *Client) do(ctx context.Context, s *settings, req transport.Request) (*transport.Response, *Error) {
	resp, terr := transport.Do(ctx, c.transportOptions(s), req)
	if terr != nil {
		return nil, &Error{Code: terr.Code, Text: terr.Msg}
	}
	return resp, nil
}

// xmlHeaders is the header hygiene shared by every XML-bodied request.
func xmlHeaders(depth string) map[string]string {
	h := map[string]string{
		"Content-Type": `application/xml; charset=utf-8`,
	}
	if depth != "" {
		h["Depth"] = depth
	}
	return h
}

func xmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
