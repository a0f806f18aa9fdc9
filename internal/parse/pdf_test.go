package parse

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/askthws/harvester/internal/harvest"
)

func pdfResponse(url string, body []byte) harvest.FetchedResponse {
	return harvest.FetchedResponse{
		RequestURL: url,
		FinalURL:   url,
		StatusCode: 200,
		Headers:    http.Header{"Content-Type": []string{"application/pdf"}},
		Body:       body,
	}
}

func TestPDFParserStoresAndFlagsCorruptFile(t *testing.T) {
	p := NewPDFParser(fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)})
	body := []byte("definitely not a pdf")

	result, err := p.Parse(pdfResponse("https://www.thws.de/fileadmin/kaputt.pdf", body))
	require.NoError(t, err)
	require.NotNil(t, result.Record, "corrupt binaries are stored and flagged, not dropped")

	rec := result.Record
	require.Equal(t, harvest.KindPDF, rec.Kind)
	require.NotEmpty(t, rec.ParseError)
	require.Equal(t, body, rec.RawContent, "raw bytes must survive a failed probe")
	require.Equal(t, "kaputt", rec.Title, "filename-derived title when metadata is unavailable")
	require.Equal(t, harvest.LanguageUnknown, rec.Language)
	require.Empty(t, rec.Body)
}

func TestPDFParserLanguageFromURL(t *testing.T) {
	p := NewPDFParser(fixedClock{t: time.Now()})

	result, err := p.Parse(pdfResponse("https://www.thws.de/fileadmin/handbuch.pdf?lang=de", []byte("broken")))
	require.NoError(t, err)
	require.Equal(t, "de", result.Record.Language, "URL hint must survive even when the probe fails")
}

func TestPDFParserNeverEmitsLinks(t *testing.T) {
	p := NewPDFParser(fixedClock{t: time.Now()})
	result, err := p.Parse(pdfResponse("https://www.thws.de/a.pdf", []byte("x")))
	require.NoError(t, err)
	require.Empty(t, result.Links)
}

func TestTitleFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.thws.de/fileadmin/modul-handbuch_2025.pdf", "modul handbuch 2025"},
		{"https://www.thws.de/termine.ics", "termine"},
		{"https://www.thws.de/", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, titleFromURL(tt.in), tt.in)
	}
}
