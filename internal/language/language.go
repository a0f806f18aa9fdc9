// Package language tags records with an ISO language code. URL hints win over
// content statistics so that /en/ pages stay tagged "en" even when they quote
// German text.
package language

import (
	"net/url"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// MinDetectLen is the shortest cleaned text we trust for statistical
// detection; shorter inputs skew towards whatever stop words they contain.
const MinDetectLen = 40

var aliases = map[string]string{
	"us": "en",
	"gb": "en",
	"uk": "en",
}

// FromURL extracts a language hint from a URL: the lang query parameter or a
// two-letter first path segment. Returns "" when the URL carries no hint.
func FromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if lang := u.Query().Get("lang"); lang != "" {
		return normalize(lang)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) > 0 && len(segments[0]) == 2 {
		seg := strings.ToLower(segments[0])
		if seg == "en" || seg == "de" || aliases[seg] != "" {
			return normalize(seg)
		}
	}
	return ""
}

// Detect runs statistical detection over text. Returns "" when the text is
// too short or the detector is not confident.
func Detect(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < MinDetectLen {
		return ""
	}
	info := whatlanggo.Detect(trimmed)
	if !info.IsReliable() {
		return ""
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return ""
	}
	return code
}

// Resolve applies the full resolution chain: URL hint, then content
// statistics, then "unknown".
func Resolve(rawURL, text string) string {
	if lang := FromURL(rawURL); lang != "" {
		return lang
	}
	if lang := Detect(text); lang != "" {
		return lang
	}
	return "unknown"
}

func normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if mapped, ok := aliases[lang]; ok {
		return mapped
	}
	return lang
}
