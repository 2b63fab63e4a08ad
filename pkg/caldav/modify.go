package caldav

import (
	"context"
	"strings"

	"github.com/sonroyaalmerol/caldav-client/internal/davxml"
	"github.com/sonroyaalmerol/caldav-client/internal/transport"
)

// Modify overwrites an existing calendar object. With an ObjectID the write
// is conditional on the identity the caller holds; with a nil id the object
// is looked up by the payload's UID first. The UID path is lossy — it
// resolves and writes without the caller ever holding the validator, so two
// such editors can race — which is why callers are expected to thread the
// returned ObjectID through their edit cycles instead.
func (c *Client) Modify(ctx context.Context, id *ObjectID, payload, rawURL string) (Status, *ObjectID, error) {
	s, cerr := parseSettings(rawURL)
	if cerr != nil {
		return StatusOf(cerr), id, cerr
	}
	s.payload = payload
	if cerr := c.probe(ctx, s); cerr != nil {
		return StatusOf(cerr), id, cerr
	}

	url, etag, cerr := c.writeTarget(ctx, s, id, "1")
	if cerr != nil {
		return StatusOf(cerr), id, cerr
	}

	lock, cerr := c.acquireLock(ctx, s, url)
	if cerr != nil {
		return StatusOf(cerr), id, cerr
	}
	defer c.releaseLock(ctx, s, lock)

	headers := map[string]string{
		"Content-Type": "text/calendar; charset=utf-8",
		"If-Match":     ifMatch(etag),
	}
	if lock.held {
		headers["If"] = lock.ifHeader()
	}
	resp, cerr := c.do(ctx, s, transport.Request{
		Method: "PUT",
		URL:    url,
		Header: headers,
		Body:   s.payload,
	})
	if cerr != nil {
		return StatusOf(cerr), id, cerr
	}
	if !putOK(resp.StatusCode) {
		cerr = &Error{Code: resp.StatusCode, Text: resp.Body}
		return StatusOf(cerr), id, cerr
	}

	newID := c.identityFromResponse(ctx, s, resp, url)
	return OK, newID, nil
}

// ifMatch renders the precondition: the stored validator, always quoted, or
// the blind-overwrite form when the caller holds none.
func ifMatch(etag string) string {
	if etag == "" {
		return `"*"`
	}
	return davxml.QuoteETag(etag)
}

// writeTarget turns the caller's identity — or, lacking one, the payload's
// UID — into the absolute URL and validator the mutation runs against.
func (c *Client) writeTarget(ctx context.Context, s *settings, id *ObjectID, depth string) (string, string, *Error) {
	if id == nil {
		return c.resolveIdentity(ctx, s, depth)
	}
	switch id.Kind {
	case LocationKind:
		loc := id.Location
		if !strings.Contains(loc, "://") {
			loc = s.rebuildURL(s.host() + loc)
		}
		return loc, id.ETag, nil
	default:
		return id.URI, id.ETag, nil
	}
}
