package language

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const germanSample = "Die Hochschule für angewandte Wissenschaften bietet zahlreiche " +
	"Studiengänge an. Die Bewerbung erfolgt über das Online-Portal der Hochschule " +
	"und muss fristgerecht eingereicht werden."

func TestFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"path segment de", "https://www.thws.de/de/studium/", "de"},
		{"path segment en", "https://www.thws.de/en/studies/", "en"},
		{"query parameter", "https://www.thws.de/download.pdf?lang=de", "de"},
		{"alias us to en", "https://www.thws.de/page?lang=us", "en"},
		{"no hint", "https://www.thws.de/studium/", ""},
		{"non-language segment", "https://www.thws.de/it/services/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FromURL(tt.url))
		})
	}
}

func TestResolveURLHintWinsOverContent(t *testing.T) {
	// /en/ pages stay tagged "en" even when the body is German-heavy.
	require.Equal(t, "en", Resolve("https://www.thws.de/en/foo", germanSample))
}

func TestResolveFallsBackToContentDetection(t *testing.T) {
	require.Equal(t, "de", Resolve("https://www.thws.de/foo", germanSample))
}

func TestResolveUnknown(t *testing.T) {
	require.Equal(t, "unknown", Resolve("https://www.thws.de/foo", "kurz"))
}

func TestDetectSkipsShortText(t *testing.T) {
	require.Equal(t, "", Detect(strings.Repeat("a", MinDetectLen-1)))
}
