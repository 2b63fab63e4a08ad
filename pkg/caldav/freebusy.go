package caldav

import (
	"context"
	"strings"
	"time"

	"github.com/sonroyaalmerol/caldav-client/internal/davxml"
	"github.com/sonroyaalmerol/caldav-client/internal/transport"
	"github.com/sonroyaalmerol/caldav-client/pkg/icalutil"
)

const (
	freebusyHead = `<?xml version="1.0" encoding="utf-8" ?>` +
		`<C:free-busy-query xmlns:D="DAV:"` +
		`                 xmlns:C="urn:ietf:params:xml:ns:caldav">`

	freebusyFoot = `</C:free-busy-query>` + "\r\n"
)

// FreeBusy runs a free-busy-query over the window and returns the VFREEBUSY
// data as a VCALENDAR. Servers that answer a REPORT with a plain 200 and raw
// iCalendar instead of a 207 multistatus exist; their reply is accepted
// verbatim.
func (c *Client) FreeBusy(ctx context.Context, start, end time.Time, rawURL string) (string, error) {
	s, cerr := parseSettings(rawURL)
	if cerr != nil {
		return "", cerr
	}
	if cerr := c.probe(ctx, s); cerr != nil {
		return "", cerr
	}

	body := freebusyHead +
		"\r\n<C:time-range start=\"" + icalutil.DateTime(start) + "\"\r\n end=\"" + icalutil.DateTime(end) + "\"/>\r\n" +
		freebusyFoot

	resp, cerr := c.do(ctx, s, transport.Request{
		Method: "REPORT",
		URL:    s.rebuildURL(""),
		Header: xmlHeaders("1"),
		Body:   body,
	})
	if cerr != nil {
		return "", cerr
	}
	switch {
	case resp.StatusCode == 207:
		return davxml.ExtractCalendarData(resp.Body, "VFREEBUSY"), nil
	case resp.StatusCode == 200 &&
		strings.HasPrefix(strings.ToUpper(resp.Body), "BEGIN:VCALENDAR"):
		return resp.Body, nil
	}
	cerr = &Error{Code: resp.StatusCode, Text: resp.RawHeader}
	return "", cerr
}
