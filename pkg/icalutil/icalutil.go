// Package icalutil provides the few iCalendar manipulations the CalDAV
// engine needs: UID discovery and synthesis, the object slug, UTC date-time
// rendering, and DTSTART/DTEND extraction. Payloads are parsed with go-ical
// when they parse and scanned line-wise when they don't — calendar data seen
// in the wild does not always decode.
package icalutil

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

const dateTimeUTC = "20060102T150405Z"

// DateTime renders a time in the UTC form CalDAV wants on the wire.
func DateTime(t time.Time) string {
	return t.UTC().Format(dateTimeUTC)
}

// ObjectSlug derives the random-looking resource name segment for a new
// object: the MD5 hex digest of the payload.
func ObjectSlug(payload string) string {
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// UID returns the payload's UID property value, or "" when absent.
func UID(payload string) string {
	if cal, err := decode(payload); err == nil {
		if uid := componentUID(cal.Component); uid != "" {
			return uid
		}
		return ""
	}
	return ElementValue(payload, "UID")
}

func componentUID(comp *ical.Component) string {
	if prop := comp.Props.Get(ical.PropUID); prop != nil && prop.Value != "" {
		return prop.Value
	}
	for _, child := range comp.Children {
		if uid := componentUID(child); uid != "" {
			return uid
		}
	}
	return ""
}

// EnsureUID returns the payload with a UID present, synthesizing
// UID:libcaldav-<md5>@tempuri.org before END:VEVENT when the event has none.
// Payloads that already carry a UID come back trimmed but otherwise
// untouched.
func EnsureUID(payload string) string {
	out := strings.TrimRight(payload, " \t\r\n")
	if UID(payload) != "" {
		return out
	}
	pos := strings.Index(out, "END:VEVENT")
	if pos < 0 {
		return out
	}
	uid := "UID:libcaldav-" + ObjectSlug(payload) + "@tempuri.org"
	head := strings.TrimRight(out[:pos], " \t\r\n")
	return head + "\r\n" + uid + "\r\n" + out[pos:]
}

// EventWindow extracts the DTSTART/DTEND pair of the payload's first event.
// Used to scope the ETag lookup after an add that only returned a Location.
func EventWindow(payload string) (start, end time.Time, ok bool) {
	if cal, err := decode(payload); err == nil {
		for _, child := range cal.Children {
			if child.Name != ical.CompEvent {
				continue
			}
			s, serr := propTime(child, ical.PropDateTimeStart)
			e, eerr := propTime(child, ical.PropDateTimeEnd)
			if serr == nil && eerr == nil {
				return s, e, true
			}
			break
		}
	}
	s, serr := parseDateTime(ElementValue(payload, "DTSTART"))
	e, eerr := parseDateTime(ElementValue(payload, "DTEND"))
	if serr != nil || eerr != nil {
		return time.Time{}, time.Time{}, false
	}
	return s, e, true
}

func propTime(comp *ical.Component, name string) (time.Time, error) {
	prop := comp.Props.Get(name)
	if prop == nil {
		return time.Time{}, errMissing
	}
	return prop.DateTime(time.UTC)
}

var errMissing = errors.New("missing property")

// ElementValue scans for a content line of the given property name and
// returns its value, tolerating parameters after the name. Empty string when
// the property does not occur.
func ElementValue(payload, name string) string {
	upper := strings.ToUpper(name)
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimRight(line, "\r")
		lu := strings.ToUpper(line)
		if !strings.HasPrefix(lu, upper) {
			continue
		}
		rest := line[len(upper):]
		if rest == "" {
			continue
		}
		if rest[0] == ';' {
			if i := strings.IndexByte(rest, ':'); i >= 0 {
				return strings.TrimSpace(rest[i+1:])
			}
			continue
		}
		if rest[0] == ':' {
			return strings.TrimSpace(rest[1:])
		}
	}
	return ""
}

func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch {
	case len(s) == 8:
		return time.Parse("20060102", s)
	case len(s) == 15:
		return time.ParseInLocation("20060102T150405", s, time.Local)
	case len(s) == 16 && strings.HasSuffix(s, "Z"):
		return time.Parse(dateTimeUTC, s)
	}
	return time.Parse(time.RFC3339, s)
}

// Normalize re-serializes a calendar through go-ical, validating it and
// giving it consistent folding and CRLF line endings.
func Normalize(data []byte) ([]byte, error) {
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(payload string) (*ical.Calendar, error) {
	return ical.NewDecoder(strings.NewReader(normalizeLines(payload))).Decode()
}

// normalizeLines gives the decoder the CRLF endings RFC 5545 requires;
// hand-written payloads routinely arrive with bare LF.
func normalizeLines(payload string) string {
	payload = strings.ReplaceAll(payload, "\r\n", "\n")
	payload = strings.ReplaceAll(payload, "\n", "\r\n")
	if !strings.HasSuffix(payload, "\r\n") {
		payload += "\r\n"
	}
	return payload
}
