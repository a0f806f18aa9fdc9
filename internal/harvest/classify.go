package harvest

import "strings"

// Classify maps a fetched resource to a parser variant. The URL suffix takes
// precedence over the transport content type so that misleading headers cannot
// send a PDF through the HTML path.
func Classify(rawURL, contentType string) Kind {
	lowered := strings.ToLower(rawURL)
	if i := strings.IndexAny(lowered, "?#"); i >= 0 {
		lowered = lowered[:i]
	}
	switch {
	case strings.HasSuffix(lowered, ".pdf"):
		return KindPDF
	case strings.HasSuffix(lowered, ".ics"):
		return KindICal
	}

	ct := trimLower(contentType)
	switch {
	case strings.Contains(ct, "application/pdf"):
		return KindPDF
	case strings.Contains(ct, "text/calendar"), strings.Contains(ct, "application/ical"):
		return KindICal
	case strings.Contains(ct, "text/html"), strings.Contains(ct, "application/xhtml"):
		return KindHTML
	}
	return KindUnknown
}

func trimLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
