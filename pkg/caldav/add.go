package caldav

import (
	"context"
	"strings"

	"github.com/sonroyaalmerol/caldav-client/internal/davxml"
	"github.com/sonroyaalmerol/caldav-client/internal/transport"
	"github.com/sonroyaalmerol/caldav-client/pkg/icalutil"
)

// Add stores a new calendar object in the collection. The resource name is
// derived from the payload, a UID is synthesized when the event has none,
// and If-None-Match: * guards against overwriting a resource that already
// sits at the generated name. The returned ObjectID carries the identity
// the server assigned: the ETag header when it sent one, otherwise the
// Location header with the validator resolved by a follow-up report.
func (c *Client) Add(ctx context.Context, payload, rawURL string) (Status, *ObjectID, error) {
	s, cerr := parseSettings(rawURL)
	if cerr != nil {
		return StatusOf(cerr), nil, cerr
	}
	s.payload = payload
	if cerr := c.probe(ctx, s); cerr != nil {
		return StatusOf(cerr), nil, cerr
	}

	base := s.rebuildURL("")
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	url := base + "libcaldav-" + icalutil.ObjectSlug(payload) + ".ics"
	s.payload = icalutil.EnsureUID(s.payload)

	resp, cerr := c.do(ctx, s, transport.Request{
		Method: "PUT",
		URL:    url,
		Header: map[string]string{
			"Content-Type":  "text/calendar; charset=utf-8",
			"If-None-Match": "*",
		},
		Body: s.payload,
	})
	if cerr != nil {
		return StatusOf(cerr), nil, cerr
	}
	if !putOK(resp.StatusCode) {
		cerr = &Error{Code: resp.StatusCode, Text: resp.Body}
		return StatusOf(cerr), nil, cerr
	}

	id := c.identityFromResponse(ctx, s, resp, url)
	return OK, id, nil
}

func putOK(code int) bool {
	return code == 200 || code == 201 || code == 204
}

// identityFromResponse records the server-assigned identity after a
// successful PUT, preferring the ETag header over Location. A Location-only
// identity gets its validator filled in best-effort so a later modify can
// send If-Match.
func (c *Client) identityFromResponse(ctx context.Context, s *settings, resp *transport.Response, url string) *ObjectID {
	if etag := transport.HeaderValue(resp.RawHeader, "ETag"); etag != "" {
		return NewETagID(url, davxml.SanitizeETag(etag))
	}
	if location := transport.HeaderValue(resp.RawHeader, "Location"); location != "" {
		id := NewLocationID(location, "")
		c.fetchETagByLocation(ctx, s, id)
		return id
	}
	// No identity headers at all; the URL is still known, the validator
	// isn't.
	return NewETagID(url, "")
}
