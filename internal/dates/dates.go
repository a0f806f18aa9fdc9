// Package dates extracts German-format timestamps from page text.
package dates

import (
	"regexp"
	"time"
)

// Matches "30.04.2025", "30.4.2025", "30.04.2025, 18:15". The leading group
// stands in for a lookbehind: Go regexp has none, so we require the match not
// to be preceded by another digit.
var germanDate = regexp.MustCompile(
	`(?:^|[^0-9])(\d{1,2})\.(\d{1,2})\.(\d{4})(?:[, ]\s*(\d{1,2}:\d{2}))?`,
)

// ExtractUpdated returns the first German-format date found in text as a UTC
// timestamp, or nil when there is no match. Time of day is included when the
// page provides one.
func ExtractUpdated(text string) *time.Time {
	m := germanDate.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	day, month, year, clock := m[1], m[2], m[3], m[4]

	var parsed time.Time
	var err error
	if clock != "" {
		parsed, err = time.ParseInLocation("2.1.2006 15:04", day+"."+month+"."+year+" "+clock, time.UTC)
	} else {
		parsed, err = time.ParseInLocation("2.1.2006", day+"."+month+"."+year, time.UTC)
	}
	if err != nil {
		return nil
	}
	return &parsed
}
