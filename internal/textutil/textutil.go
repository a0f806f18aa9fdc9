// Package textutil holds the text cleanup helpers shared by the parsers and
// the storage pipeline.
package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	atPattern  = regexp.MustCompile(`(?i)\s*[\[(]\s*at\s*[\])]\s*`)
	dotPattern = regexp.MustCompile(`(?i)\s*[\[(]\s*dot\s*[\])]\s*`)
)

// Clean normalizes text to NFKC, trims every line, and drops empty and
// duplicate lines while preserving first-occurrence order.
func Clean(text string) string {
	text = norm.NFKC.String(text)
	seen := make(map[string]struct{})
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// DeobfuscateEmails rewrites common email obfuscation tokens, turning
// "info [at] thws [dot] de" into "info@thws.de".
func DeobfuscateEmails(text string) string {
	text = atPattern.ReplaceAllString(text, "@")
	return dotPattern.ReplaceAllString(text, ".")
}

// StripNUL removes NUL bytes; the document store rejects text containing them.
func StripNUL(text string) string {
	return strings.ReplaceAll(text, "\x00", "")
}
