// Package parse implements the three content parser strategies (HTML, PDF,
// iCal) behind the harvest.Parser interface. The controller picks a strategy
// via harvest.Classify and never inspects response bodies itself.
package parse

import (
	"net/url"
	"path"
	"strings"
)

// titleFromURL derives a human-usable title from the last path segment of a
// binary file URL, e.g. "modulhandbuch_bin.pdf" -> "modulhandbuch bin".
func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	if dot := strings.LastIndex(base, "."); dot > 0 {
		base = base[:dot]
	}
	base = strings.NewReplacer("_", " ", "-", " ", "%20", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}
