package caldav

import (
	"context"

	"github.com/sonroyaalmerol/caldav-client/internal/transport"
)

// Delete removes a calendar object, with the same identity resolution and
// lock discipline as Modify: an ObjectID targets the exact version the
// caller holds, a nil id resolves the payload's UID first (the lossy legacy
// path). The delete-precheck lookup runs at Depth infinity, which is what
// the surveyed servers interoperate with.
func (c *Client) Delete(ctx context.Context, id *ObjectID, payload, rawURL string) (Status, error) {
	s, cerr := parseSettings(rawURL)
	if cerr != nil {
		return StatusOf(cerr), cerr
	}
	s.payload = payload
	if cerr := c.probe(ctx, s); cerr != nil {
		return StatusOf(cerr), cerr
	}

	url, etag, cerr := c.writeTarget(ctx, s, id, "infinity")
	if cerr != nil {
		return StatusOf(cerr), cerr
	}

	lock, cerr := c.acquireLock(ctx, s, url)
	if cerr != nil {
		return StatusOf(cerr), cerr
	}
	defer c.releaseLock(ctx, s, lock)

	headers := map[string]string{
		"If-Match": ifMatch(etag),
	}
	if lock.held {
		headers["If"] = lock.ifHeader()
	}
	resp, cerr := c.do(ctx, s, transport.Request{
		Method: "DELETE",
		URL:    url,
		Header: headers,
	})
	if cerr != nil {
		return StatusOf(cerr), cerr
	}
	if !deleteOK(resp.StatusCode) {
		cerr = &Error{Code: resp.StatusCode, Text: resp.Body}
		return StatusOf(cerr), cerr
	}
	return OK, nil
}

func deleteOK(code int) bool {
	return code == 204
}
