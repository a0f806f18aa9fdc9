package parse

import (
	"github.com/askthws/harvester/internal/harvest"
	"github.com/askthws/harvester/internal/language"
)

// ICalParser stores calendar files verbatim. Event extraction is deferred to
// an offline stage, so crawl time only needs a filename title and a language
// tag.
type ICalParser struct {
	clock harvest.Clock
}

// NewICalParser builds an ICalParser.
func NewICalParser(clock harvest.Clock) *ICalParser {
	return &ICalParser{clock: clock}
}

// Parse implements harvest.Parser.
func (p *ICalParser) Parse(resp harvest.FetchedResponse) (harvest.ParseResult, error) {
	lang := language.FromURL(resp.URL())
	if lang == "" {
		lang = harvest.LanguageUnknown
	}
	record := &harvest.PageRecord{
		URL:        resp.URL(),
		Kind:       harvest.KindICal,
		Title:      titleFromURL(resp.URL()),
		RawContent: resp.Body,
		FetchedAt:  p.clock.Now(),
		HTTPStatus: resp.StatusCode,
		Language:   lang,
	}
	return harvest.ParseResult{Record: record}, nil
}
