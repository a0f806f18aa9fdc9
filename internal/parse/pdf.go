package parse

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/askthws/harvester/internal/harvest"
	"github.com/askthws/harvester/internal/language"
)

// PDFParser stores raw PDF bytes and probes the file only for a metadata
// title and, when the URL carries no language hint, enough text to detect the
// language. The probed text is discarded; prose extraction happens offline.
type PDFParser struct {
	clock harvest.Clock
}

// NewPDFParser builds a PDFParser.
func NewPDFParser(clock harvest.Clock) *PDFParser {
	return &PDFParser{clock: clock}
}

// Parse implements harvest.Parser. A corrupt file still yields a record with
// ParseError set: the raw bytes stay valuable even when metadata extraction
// failed, so we store and flag rather than drop.
func (p *PDFParser) Parse(resp harvest.FetchedResponse) (harvest.ParseResult, error) {
	record := &harvest.PageRecord{
		URL:        resp.URL(),
		Kind:       harvest.KindPDF,
		Title:      titleFromURL(resp.URL()),
		RawContent: resp.Body,
		FetchedAt:  p.clock.Now(),
		HTTPStatus: resp.StatusCode,
		Language:   language.FromURL(resp.URL()),
	}

	needText := record.Language == ""
	title, text, err := probePDF(resp.Body, needText)
	if err != nil {
		record.ParseError = err.Error()
		if record.Language == "" {
			record.Language = harvest.LanguageUnknown
		}
		return harvest.ParseResult{Record: record}, nil
	}

	if title != "" {
		record.Title = title
	}
	if record.Language == "" {
		record.Language = language.Detect(text)
	}
	if record.Language == "" {
		record.Language = harvest.LanguageUnknown
	}
	return harvest.ParseResult{Record: record}, nil
}

// probePDF opens the document to read the Info-dictionary title and,
// optionally, page text for language detection. The pdf package panics on
// some malformed inputs, so the recover here is load-bearing.
func probePDF(body []byte, withText bool) (title string, text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf probe panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", "", fmt.Errorf("open pdf: %w", err)
	}

	info := reader.Trailer().Key("Info")
	if !info.IsNull() {
		title = strings.TrimSpace(info.Key("Title").Text())
	}

	if withText {
		plain, textErr := reader.GetPlainText()
		if textErr == nil {
			var buf bytes.Buffer
			// Language detection saturates quickly; a few KB is plenty.
			if _, copyErr := io.CopyN(&buf, plain, 8192); copyErr != nil && copyErr != io.EOF {
				return title, "", nil
			}
			text = buf.String()
		}
	}
	return title, text, nil
}
