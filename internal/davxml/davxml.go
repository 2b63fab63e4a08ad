// Package davxml extracts the handful of WebDAV/CalDAV elements this library
// reads from multistatus replies. It is a fail-soft text scanner, not a
// conformant XML parser: real servers emit malformed namespace declarations
// and raw iCalendar inside calendar-data, and the scanner must accept
// everything a lenient client would.
package davxml

import "strings"

const (
	NSDAV    = "DAV:"
	NSCalDAV = "urn:ietf:params:xml:ns:caldav"
)

// PropPair is one DAV:response worth of identity: the resource href and its
// entity tag (already unquoted).
type PropPair struct {
	Href string
	ETag string
}

// Namespaces scans xmlns declarations and reports the prefix each of the two
// namespaces of interest is bound to in this document. A namespace bound
// without a prefix maps to the empty string. Namespaces that never appear are
// absent from the map.
func Namespaces(doc string) map[string]string {
	ns := make(map[string]string)
	rest := doc
	for len(ns) < 2 {
		i := strings.Index(rest, "xmlns")
		if i < 0 {
			break
		}
		rest = rest[i+len("xmlns"):]

		var prefix string
		tok := rest
		if strings.HasPrefix(tok, ":") {
			j := strings.Index(tok, "=")
			if j < 0 {
				continue
			}
			prefix = strings.TrimSpace(tok[1:j])
			tok = tok[j:]
		}
		tok = strings.TrimLeft(tok, " \t\r\n")
		if !strings.HasPrefix(tok, "=") {
			continue
		}
		tok = strings.TrimLeft(tok[1:], " \t\r\n")
		var uri string
		if len(tok) > 0 && (tok[0] == '"' || tok[0] == '\'') {
			quote := tok[0]
			if j := strings.IndexByte(tok[1:], quote); j >= 0 {
				uri = tok[1 : 1+j]
			} else {
				uri = tok[1:]
			}
		} else {
			// Unquoted value; take up to whitespace or tag end.
			uri = tok
			if j := strings.IndexAny(uri, " \t\r\n>/"); j >= 0 {
				uri = uri[:j]
			}
		}
		switch uri {
		case NSDAV:
			if _, seen := ns[NSDAV]; !seen {
				ns[NSDAV] = prefix
			}
		case NSCalDAV:
			if _, seen := ns[NSCalDAV]; !seen {
				ns[NSCalDAV] = prefix
			}
		}
	}
	return ns
}

// qualify returns the tag name as it appears in this document for the given
// namespace, falling back to the unqualified name when the namespace was
// never declared.
func qualify(doc, nsURI, name string) string {
	if nsURI == "" {
		return name
	}
	if prefix, ok := Namespaces(doc)[nsURI]; ok && prefix != "" {
		return prefix + ":" + name
	}
	return name
}

// Tag returns the text content of the first <name> element in the given
// namespace, or "" and false if the element does not occur. Only attribute-free
// elements are looked up this way (href, getetag, displayname); nested tags
// are not interpreted.
func Tag(doc, nsURI, name string) (string, bool) {
	return tagPlain(doc, qualify(doc, nsURI, name))
}

func tagPlain(doc, qname string) (string, bool) {
	openTag := "<" + qname + ">"
	closeTag := "</" + qname + ">"
	i := strings.Index(doc, openTag)
	if i < 0 {
		return "", false
	}
	rest := doc[i+len(openTag):]
	j := strings.Index(rest, closeTag)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

// ResponseList returns one {href, etag} pair per DAV:response element, in
// document order. Missing hrefs or etags are left empty rather than dropping
// the entry; the caller decides what a usable pair looks like.
func ResponseList(doc string) []PropPair {
	respTag := qualify(doc, NSDAV, "response")
	hrefTag := qualify(doc, NSDAV, "href")
	etagTag := qualify(doc, NSDAV, "getetag")

	var pairs []PropPair
	rest := doc
	open := "<" + respTag + ">"
	for {
		i := strings.Index(rest, open)
		if i < 0 {
			break
		}
		rest = rest[i+len(open):]
		element := rest
		if j := strings.Index(rest, "</"+respTag+">"); j >= 0 {
			element = rest[:j]
		}
		var pair PropPair
		pair.Href, _ = tagPlain(element, hrefTag)
		if raw, ok := tagPlain(element, etagTag); ok {
			pair.ETag = SanitizeETag(raw)
		}
		pairs = append(pairs, pair)
	}
	return pairs
}

// SanitizeETag strips the surrounding double quotes a server puts around an
// entity tag. The unquoted form is the canonical internal form; QuoteETag
// restores the wire form.
func SanitizeETag(s string) string {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return s
	}
	rest := s[start+1:]
	if end := strings.IndexByte(rest, '"'); end >= 0 {
		return rest[:end]
	}
	return rest
}

// QuoteETag renders an entity tag for an If-Match header.
func QuoteETag(s string) string {
	return `"` + s + `"`
}
