package caldav

import (
	"context"

	"github.com/sonroyaalmerol/caldav-client/internal/davxml"
	"github.com/sonroyaalmerol/caldav-client/internal/transport"
)

const displaynameQuery = `<?xml version="1.0" encoding="utf-8" ?>` +
	`<D:propfind xmlns:D="DAV:"` +
	`                 xmlns:C="urn:ietf:params:xml:ns:caldav">` +
	`  <D:prop>` +
	`    <D:displayname/>` +
	`  </D:prop>` +
	`</D:propfind>` + "\r\n"

// DisplayName fetches the collection's stored display name, or "" when the
// server keeps none.
func (c *Client) DisplayName(ctx context.Context, rawURL string) (string, error) {
	s, cerr := parseSettings(rawURL)
	if cerr != nil {
		return "", cerr
	}
	if cerr := c.probe(ctx, s); cerr != nil {
		return "", cerr
	}

	resp, cerr := c.do(ctx, s, transport.Request{
		Method: "PROPFIND",
		URL:    s.rebuildURL(""),
		Header: xmlHeaders("0"),
		Body:   displaynameQuery,
	})
	if cerr != nil {
		return "", cerr
	}
	if resp.StatusCode != 207 {
		cerr = &Error{Code: resp.StatusCode, Text: resp.RawHeader}
		return "", cerr
	}

	name, _ := davxml.Tag(resp.Body, davxml.NSDAV, "displayname")
	return name, nil
}
