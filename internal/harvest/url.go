package harvest

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Query parameters that change what a server renders and therefore survive
// normalization. Everything else (session tokens, tracking noise, cache
// busters) is stripped so link variants collapse to one frontier entry.
var significantQueryParams = map[string]struct{}{
	"lang": {},
	"l":    {},
	"id":   {},
	"type": {},
}

// NormalizeURL standardizes a URL so that the dedup set sees one canonical
// form per resource. It lowercases scheme and host, removes default ports and
// fragments, strips the trailing slash, and drops insignificant query
// parameters.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	u.Fragment = ""

	if u.Path != "" && u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	q := u.Query()
	for key := range q {
		if _, ok := significantQueryParams[strings.ToLower(key)]; !ok {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ObjectKey derives a filesystem/bucket-safe blob key from a URL. The key is
// stable per URL so repeated crawls overwrite the prior blob.
func ObjectKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return sanitizeKeySegment(rawURL)
	}
	host := sanitizeKeySegment(u.Hostname())
	p := strings.Trim(u.EscapedPath(), "/")
	if p == "" {
		p = "root"
	}
	return path.Join(host, sanitizeKeySegment(p))
}

func sanitizeKeySegment(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
