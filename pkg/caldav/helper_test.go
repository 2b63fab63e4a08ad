package caldav

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const (
	defaultAllow = "OPTIONS, GET, PUT, DELETE, REPORT, PROPFIND, LOCK, UNLOCK"
	noLockAllow  = "OPTIONS, GET, PUT, DELETE, REPORT, PROPFIND"
)

// newStub starts a CalDAV stub that answers the capability probe itself and
// hands every other request to the given handler. Returns the server and the
// collection URL.
func newStub(t *testing.T, allow string, handler http.HandlerFunc) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "OPTIONS" {
			w.Header().Set("DAV", "1, 2, calendar-access, access-control")
			w.Header().Set("Allow", allow)
			w.WriteHeader(http.StatusOK)
			return
		}
		if handler == nil {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, srv.URL + "/cal/"
}

func newTestClient() *Client {
	return New(DefaultOptions())
}

func multistatus(entries ...string) string {
	return `<?xml version="1.0" encoding="utf-8"?>` +
		`<D:multistatus xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">` +
		strings.Join(entries, "") +
		`</D:multistatus>`
}

func responseEntry(href, etag, calendarData string) string {
	entry := `<D:response><D:href>` + href + `</D:href><D:propstat><D:status>HTTP/1.1 200 OK</D:status><D:prop>` +
		`<D:getetag>"` + etag + `"</D:getetag>`
	if calendarData != "" {
		entry += `<C:calendar-data>` + calendarData + `</C:calendar-data>`
	}
	return entry + `</D:prop></D:propstat></D:response>`
}

func eventPayload(uid string) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"PRODID:-//Test//Test//EN",
		"VERSION:2.0",
		"BEGIN:VEVENT",
		"DTSTART:20100712T151500Z",
		"DTEND:20100712T162500Z",
		"DTSTAMP:20100712T120000Z",
	}
	if uid != "" {
		lines = append(lines, "UID:"+uid)
	}
	lines = append(lines,
		"SUMMARY:Frodo's birthday party",
		"END:VEVENT",
		"END:VCALENDAR",
	)
	return strings.Join(lines, "\r\n") + "\r\n"
}

func asError(t *testing.T, err error) *Error {
	t.Helper()
	cerr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	return cerr
}
