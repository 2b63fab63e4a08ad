package transport

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// pickDigestChallenge returns the first Digest challenge among the
// WWW-Authenticate values, preferring it over Basic: when the server offers
// both, the stronger scheme wins.
func pickDigestChallenge(values []string) string {
	for _, v := range values {
		for _, part := range splitChallenges(v) {
			if strings.HasPrefix(strings.ToLower(part), "digest ") {
				return part
			}
		}
	}
	return ""
}

// splitChallenges separates a WWW-Authenticate value that carries several
// comma-joined challenges. A comma only starts a new challenge when it is
// followed by the Basic or Digest scheme name; otherwise it separates
// parameters. Other schemes are not recognised as challenge starts.
func splitChallenges(v string) []string {
	var out []string
	start := 0
	depth := false // inside a quoted string
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '"':
			depth = !depth
		case ',':
			if depth {
				continue
			}
			rest := strings.TrimLeft(v[i+1:], " ")
			if strings.HasPrefix(strings.ToLower(rest), "basic ") ||
				strings.HasPrefix(strings.ToLower(rest), "digest ") ||
				strings.EqualFold(rest, "basic") {
				out = append(out, strings.TrimSpace(v[start:i]))
				start = i + 1
			}
		}
	}
	out = append(out, strings.TrimSpace(v[start:]))
	return out
}

// answerDigest computes an RFC 7616 MD5 Authorization value for the given
// challenge. Only the MD5 algorithm with optional qop=auth is implemented;
// that covers every DAV server surveyed.
func answerDigest(challenge, username, password, method, uri string) (string, error) {
	params := parseDigestParams(challenge)
	realm := params["realm"]
	nonce := params["nonce"]
	if nonce == "" {
		return "", errors.New("digest challenge without nonce")
	}
	if alg := params["algorithm"]; alg != "" && !strings.EqualFold(alg, "MD5") {
		return "", fmt.Errorf("unsupported digest algorithm %q", alg)
	}

	ha1 := md5hex(username + ":" + realm + ":" + password)
	ha2 := md5hex(method + ":" + uri)

	var response, cnonce string
	const nc = "00000001"
	qop := ""
	for _, q := range strings.Split(params["qop"], ",") {
		if strings.TrimSpace(q) == "auth" {
			qop = "auth"
			break
		}
	}
	if qop == "auth" {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		cnonce = hex.EncodeToString(buf)
		response = md5hex(ha1 + ":" + nonce + ":" + nc + ":" + cnonce + ":" + qop + ":" + ha2)
	} else {
		response = md5hex(ha1 + ":" + nonce + ":" + ha2)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Digest username=%q, realm=%q, nonce=%q, uri=%q, response=%q`,
		username, realm, nonce, uri, response)
	if opaque := params["opaque"]; opaque != "" {
		fmt.Fprintf(&b, `, opaque=%q`, opaque)
	}
	if qop == "auth" {
		fmt.Fprintf(&b, `, qop=auth, nc=%s, cnonce=%q`, nc, cnonce)
	}
	return b.String(), nil
}

func parseDigestParams(challenge string) map[string]string {
	params := make(map[string]string)
	rest := strings.TrimSpace(challenge[len("Digest "):])
	for rest != "" {
		eq := strings.Index(rest, "=")
		if eq < 0 {
			break
		}
		key := strings.ToLower(strings.TrimSpace(rest[:eq]))
		rest = strings.TrimLeft(rest[eq+1:], " ")
		var value string
		if strings.HasPrefix(rest, `"`) {
			rest = rest[1:]
			if end := strings.Index(rest, `"`); end >= 0 {
				value = rest[:end]
				rest = rest[end+1:]
			} else {
				value = rest
				rest = ""
			}
		} else if end := strings.Index(rest, ","); end >= 0 {
			value = strings.TrimSpace(rest[:end])
			rest = rest[end:]
		} else {
			value = strings.TrimSpace(rest)
			rest = ""
		}
		params[key] = value
		rest = strings.TrimLeft(rest, ", ")
	}
	return params
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func basicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}
