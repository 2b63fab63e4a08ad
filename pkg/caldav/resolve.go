package caldav

import (
	"context"

	"github.com/sonroyaalmerol/caldav-client/internal/davxml"
	"github.com/sonroyaalmerol/caldav-client/internal/transport"
	"github.com/sonroyaalmerol/caldav-client/pkg/icalutil"
)

// The calendar-query that looks an object up by UID. The text-match value is
// spliced in at run time.
const (
	resolveHead = `<?xml version="1.0" encoding="utf-8" ?>` +
		`<C:calendar-query xmlns:D="DAV:"` +
		`                  xmlns:C="urn:ietf:params:xml:ns:caldav">` +
		`  <D:prop>` +
		`    <D:getetag/>` +
		`    <C:calendar-data/>` +
		`  </D:prop>` +
		`  <C:filter>` +
		`    <C:comp-filter name="VCALENDAR">` +
		`      <C:comp-filter name="VEVENT">` +
		`        <C:prop-filter name="UID">`

	resolveTail = `</C:prop-filter>` +
		`      </C:comp-filter>` +
		`    </C:comp-filter>` +
		`  </C:filter>` +
		`</C:calendar-query>`
)

// resolveIdentity finds the one resource whose UID matches the payload's and
// returns its absolute URL and unquoted ETag. The lookup fails fast without
// a UID, and refuses to pick among multiple matches — a caller holding no
// ObjectID for an ambiguous UID has no safe write to make.
func (c *Client) resolveIdentity(ctx context.Context, s *settings, depth string) (uri, etag string, rerr *Error) {
	uid := icalutil.UID(s.payload)
	if uid == "" {
		return "", "", &Error{Code: 1, Text: "Error: Missing required UID for object"}
	}

	body := resolveHead +
		"\r\n<C:text-match collation=\"i;ascii-casemap\">" + xmlEscape(uid) + "</C:text-match>\r\n" +
		resolveTail

	resp, cerr := c.do(ctx, s, transport.Request{
		Method: "REPORT",
		URL:    s.rebuildURL(""),
		Header: xmlHeaders(depth),
		Body:   body,
	})
	if cerr != nil {
		return "", "", cerr
	}
	if resp.StatusCode != 207 {
		return "", "", &Error{Code: resp.StatusCode, Text: resp.Body}
	}

	pairs := davxml.ResponseList(resp.Body)
	switch {
	case len(pairs) == 0:
		return "", "", &Error{Code: 207, Text: "No object found"}
	case len(pairs) > 1:
		return "", "", &Error{Code: -1, Text: "Multiple objects found"}
	}

	// Hrefs come back relative to the server root; compose with the
	// collection's host.
	return s.rebuildURL(s.host() + pairs[0].Href), pairs[0].ETag, nil
}
