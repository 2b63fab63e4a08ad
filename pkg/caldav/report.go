package caldav

import (
	"context"
	"strings"
	"time"

	"github.com/sonroyaalmerol/caldav-client/internal/davxml"
	"github.com/sonroyaalmerol/caldav-client/internal/transport"
	"github.com/sonroyaalmerol/caldav-client/pkg/icalutil"
)

const getallQuery = `<?xml version="1.0" encoding="utf-8" ?>` +
	`<C:calendar-query xmlns:D="DAV:"` +
	`                 xmlns:C="urn:ietf:params:xml:ns:caldav">` +
	` <D:prop>` +
	`   <D:getetag/>` +
	`   <C:calendar-data/>` +
	` </D:prop>` +
	` <C:filter>` +
	`   <C:comp-filter name="VCALENDAR">` +
	`     <C:comp-filter name="VEVENT"/>` +
	`   </C:comp-filter>` +
	` </C:filter>` +
	`</C:calendar-query>` + "\r\n"

const (
	rangeHead = `<?xml version="1.0" encoding="utf-8" ?>` +
		`<C:calendar-query xmlns:D="DAV:"` +
		`                 xmlns:C="urn:ietf:params:xml:ns:caldav">` +
		` <D:prop>` +
		`   <D:getetag/>` +
		`   <C:calendar-data/>` +
		` </D:prop>` +
		` <C:filter>` +
		`   <C:comp-filter name="VCALENDAR">` +
		`     <C:comp-filter name="VEVENT">`

	rangeFoot = `     </C:comp-filter>` +
		`   </C:comp-filter>` +
		` </C:filter>` +
		`</C:calendar-query>` + "\r\n"
)

func rangeQuery(start, end time.Time) string {
	return rangeHead +
		"\r\n<C:time-range start=\"" + icalutil.DateTime(start) + "\"\r\n end=\"" + icalutil.DateTime(end) + "\"/>\r\n" +
		rangeFoot
}

// GetRange fetches every event overlapping the [start, end] window and
// returns them re-wrapped in a single VCALENDAR. An empty window result is
// the empty string, not an error.
func (c *Client) GetRange(ctx context.Context, start, end time.Time, rawURL string) (string, error) {
	s, cerr := parseSettings(rawURL)
	if cerr != nil {
		return "", cerr
	}
	if cerr := c.probe(ctx, s); cerr != nil {
		return "", cerr
	}
	text, cerr := c.reportEvents(ctx, s, rangeQuery(start, end))
	if cerr != nil {
		return "", cerr
	}
	return text, nil
}

// GetAll fetches every event in the collection.
func (c *Client) GetAll(ctx context.Context, rawURL string) (string, error) {
	s, cerr := parseSettings(rawURL)
	if cerr != nil {
		return "", cerr
	}
	if cerr := c.probe(ctx, s); cerr != nil {
		return "", cerr
	}
	text, cerr := c.reportEvents(ctx, s, getallQuery)
	if cerr != nil {
		return "", cerr
	}
	return text, nil
}

func (c *Client) reportEvents(ctx context.Context, s *settings, body string) (string, *Error) {
	resp, cerr := c.do(ctx, s, transport.Request{
		Method: "REPORT",
		URL:    s.rebuildURL(""),
		Header: xmlHeaders("1"),
		Body:   body,
	})
	if cerr != nil {
		return "", cerr
	}
	if resp.StatusCode != 207 {
		return "", &Error{Code: resp.StatusCode, Text: resp.RawHeader}
	}
	return davxml.ExtractCalendarData(resp.Body, "VEVENT"), nil
}

// fetchETagByLocation resolves the validator for an identity the server only
// named through a Location header: a time-range REPORT over the event's own
// DTSTART/DTEND window, matched back against the location by href suffix.
// Best-effort — failure leaves the ETag empty and never fails the write that
// produced the identity.
func (c *Client) fetchETagByLocation(ctx context.Context, s *settings, id *ObjectID) {
	start, end, ok := icalutil.EventWindow(s.payload)
	if !ok {
		return
	}
	resp, cerr := c.do(ctx, s, transport.Request{
		Method: "REPORT",
		URL:    s.rebuildURL(""),
		Header: xmlHeaders("1"),
		Body:   rangeQuery(start, end),
	})
	if cerr != nil || resp.StatusCode != 207 {
		return
	}
	for _, pair := range davxml.ResponseList(resp.Body) {
		if pair.Href != "" && strings.HasSuffix(id.Location, pair.Href) {
			id.ETag = pair.ETag
			return
		}
	}
}
