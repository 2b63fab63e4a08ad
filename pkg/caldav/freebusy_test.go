package caldav

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

const testVFreeBusy = "BEGIN:VFREEBUSY\r\n" +
	"DTSTART:20100712T000000Z\r\n" +
	"DTEND:20100713T000000Z\r\n" +
	"FREEBUSY;FBTYPE=BUSY:20100712T151500Z/20100712T162500Z\r\n" +
	"END:VFREEBUSY\r\n"

func TestFreeBusyMultistatus(t *testing.T) {
	var reportBody string
	_, url := newStub(t, defaultAllow, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reportBody = string(body)
		w.WriteHeader(http.StatusMultiStatus)
		io.WriteString(w, multistatus(
			responseEntry("/cal/", "fb", "BEGIN:VCALENDAR\r\n"+testVFreeBusy+"END:VCALENDAR"),
		))
	})

	start := time.Date(2010, 7, 12, 0, 0, 0, 0, time.UTC)
	end := time.Date(2010, 7, 13, 0, 0, 0, 0, time.UTC)
	text, err := newTestClient().FreeBusy(context.Background(), start, end, url)
	if err != nil {
		t.Fatalf("FreeBusy: %v", err)
	}
	if !strings.Contains(reportBody, "free-busy-query") {
		t.Errorf("query body:\n%s", reportBody)
	}
	if !strings.Contains(text, "BEGIN:VFREEBUSY") || !strings.Contains(text, "FBTYPE=BUSY") {
		t.Errorf("freebusy lost:\n%s", text)
	}
	if !strings.HasPrefix(text, "BEGIN:VCALENDAR") {
		t.Errorf("not wrapped:\n%s", text)
	}
}

// Some servers answer the REPORT with 200 and a raw calendar; accept it
// verbatim.
func TestFreeBusyRaw200(t *testing.T) {
	raw := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\n" + testVFreeBusy + "END:VCALENDAR\r\n"
	_, url := newStub(t, defaultAllow, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, raw)
	})

	text, err := newTestClient().FreeBusy(context.Background(),
		time.Now(), time.Now().Add(time.Hour), url)
	if err != nil {
		t.Fatalf("FreeBusy: %v", err)
	}
	if text != raw {
		t.Errorf("raw reply altered:\n%s", text)
	}
}

// A 200 that is not a calendar stays an error.
func TestFreeBusy200NotCalendar(t *testing.T) {
	_, url := newStub(t, defaultAllow, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "<html>nope</html>")
	})

	_, err := newTestClient().FreeBusy(context.Background(),
		time.Now(), time.Now().Add(time.Hour), url)
	if cerr := asError(t, err); cerr.Code != 200 {
		t.Errorf("code = %d, want 200", cerr.Code)
	}
}
