package caldav

import (
	"context"
	"strconv"
	"strings"

	"github.com/sonroyaalmerol/caldav-client/internal/transport"
)

// lockBody is the fixed RFC 4918 lock request: exclusive write.
const lockBody = `<?xml version="1.0" encoding="utf-8" ?>` +
	`<D:lockinfo xmlns:D="DAV:">` +
	`  <D:lockscope><D:exclusive/></D:lockscope>` +
	`  <D:locktype><D:write/></D:locktype>` +
	`</D:lockinfo>`

// lockState tracks one acquired lock so release happens exactly once on
// every exit path.
type lockState struct {
	held     bool
	token    string
	uri      string
	released bool
}

// acquireLock takes an exclusive write lock on the resource when the caller
// wants locking and the server advertises it. Outcomes follow the fallback
// policy: no LOCK in Allow or UseLocking off skips locking entirely; 501
// proceeds unlocked; 423 aborts the operation as locked; any other failure
// aborts as a conflict.
func (c *Client) acquireLock(ctx context.Context, s *settings, uri string) (*lockState, *Error) {
	st := &lockState{uri: uri}
	if !c.opts.UseLocking || !s.allowsMethod("LOCK") {
		return st, nil
	}

	headers := xmlHeaders("")
	headers["Timeout"] = "Second-300"
	resp, cerr := c.do(ctx, s, transport.Request{
		Method: "LOCK",
		URL:    uri,
		Header: headers,
		Body:   lockBody,
	})
	if cerr != nil {
		return st, cerr
	}

	switch resp.StatusCode {
	case 200:
		token := transport.HeaderValue(resp.RawHeader, "Lock-Token")
		token = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(token), "<"), ">")
		if token == "" {
			return st, &Error{Code: resp.StatusCode, Text: "lock reply without Lock-Token"}
		}
		st.held = true
		st.token = token
		return st, nil
	case 501:
		// Locking not implemented; carry on without it.
		return st, nil
	case 423:
		return st, &Error{Code: resp.StatusCode, Text: resp.Body}
	default:
		// Any other lock failure aborts the operation as a conflict, whatever
		// status the server chose for it.
		text := resp.Body
		if text == "" {
			text = "lock request failed with status " + strconv.Itoa(resp.StatusCode)
		}
		return st, &Error{Code: 409, Text: text}
	}
}

// ifHeader renders the lock assertion for the mutating request.
func (st *lockState) ifHeader() string {
	return "(<" + st.token + ">)"
}

// releaseLock is best-effort: the business outcome never depends on it, but
// failures are worth a debug line. It is a no-op when no lock was acquired
// and never fires twice.
func (c *Client) releaseLock(ctx context.Context, s *settings, st *lockState) {
	if !st.held || st.released {
		return
	}
	st.released = true
	resp, cerr := c.do(ctx, s, transport.Request{
		Method: "UNLOCK",
		URL:    st.uri,
		Header: map[string]string{"Lock-Token": "<" + st.token + ">"},
	})
	if !c.opts.Debug {
		return
	}
	if cerr != nil {
		c.opts.Logger.Debug().Str("uri", st.uri).Str("err", cerr.Text).Msg("unlock failed")
		return
	}
	if resp.StatusCode != 204 {
		c.opts.Logger.Debug().Str("uri", st.uri).Int("status", resp.StatusCode).Msg("unlock refused")
	}
}
