// Package harvest defines the core types shared across the crawl pipeline.
package harvest

import (
	"net/http"
	"time"
)

// Kind identifies which parser strategy produced a record.
type Kind string

// Record kinds routed through the pipeline.
const (
	KindHTML    Kind = "html"
	KindPDF     Kind = "pdf"
	KindICal    Kind = "ical"
	KindUnknown Kind = ""
)

// LanguageUnknown is stored when neither the URL nor the content yields a language.
const LanguageUnknown = "unknown"

// Target is a URL scheduled for fetching, plus discovery metadata.
type Target struct {
	URL          string
	Referrer     string
	DiscoveredAt time.Time
}

// FetchedResponse carries a raw HTTP response through dispatch and parsing.
// It is ephemeral; nothing retains it past the parse step.
type FetchedResponse struct {
	RequestURL string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// ContentType returns the media type of the response without parameters.
func (r FetchedResponse) ContentType() string {
	ct := r.Headers.Get("Content-Type")
	if i := indexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return trimLower(ct)
}

// URL returns the post-redirect URL, falling back to the request URL.
func (r FetchedResponse) URL() string {
	if r.FinalURL != "" {
		return r.FinalURL
	}
	return r.RequestURL
}

// PageRecord is the unit of persistence. Exactly one of Body / RawContent is
// meaningfully populated, determined by Kind. Records are immutable after the
// parser returns them; re-crawls overwrite the stored document in place.
type PageRecord struct {
	URL         string            `json:"url"`
	Kind        Kind              `json:"kind"`
	Title       string            `json:"title"`
	Body        string            `json:"body,omitempty"`
	RawContent  []byte            `json:"-"`
	FetchedAt   time.Time         `json:"fetched_at"`
	ContentDate *time.Time        `json:"content_date,omitempty"`
	HTTPStatus  int               `json:"http_status"`
	Language    string            `json:"language"`
	ParseError  string            `json:"parse_error,omitempty"`
	Metadata    map[string]string `json:"page_metadata,omitempty"`
}

// Empty reports whether the record carries neither content nor a parse error.
// Such records must never reach the store.
func (r *PageRecord) Empty() bool {
	return r.Body == "" && len(r.RawContent) == 0 && r.ParseError == ""
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
