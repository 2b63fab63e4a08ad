package caldav

import (
	"context"
	"strings"

	"github.com/sonroyaalmerol/caldav-client/internal/transport"
)

// probe is the capability check every public call starts with: OPTIONS
// against the collection, success iff the DAV header carries the
// calendar-access token. On success the Allow header is cached on the
// settings for the lock manager.
func (c *Client) probe(ctx context.Context, s *settings) *Error {
	resp, cerr := c.do(ctx, s, transport.Request{
		Method: "OPTIONS",
		URL:    s.rebuildURL(""),
	})
	if cerr != nil {
		return cerr
	}

	dav := strings.ToLower(transport.HeaderValue(resp.RawHeader, "DAV"))
	if !strings.Contains(dav, "calendar-access") {
		if resp.StatusCode == 200 {
			return &Error{Code: -1, Text: "URL is not a CalDAV resource"}
		}
		return &Error{Code: -resp.StatusCode, Text: resp.RawHeader}
	}

	s.allow = s.allow[:0]
	for _, m := range strings.Split(transport.HeaderValue(resp.RawHeader, "Allow"), ",") {
		if m = strings.TrimSpace(m); m != "" {
			s.allow = append(s.allow, m)
		}
	}
	return nil
}
