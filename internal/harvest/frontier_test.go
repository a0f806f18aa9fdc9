package harvest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestFrontier() *Frontier {
	return NewFrontier(
		[]string{"thws.de"},
		[]string{"/videos/", "/wp-content/uploads/", "/login/", "tx_fhwsvideo_frontend"},
	)
}

func TestFrontierAdmitOnce(t *testing.T) {
	f := newTestFrontier()

	url, decision := f.Admit("https://www.thws.de/studium/")
	require.Equal(t, Admitted, decision)
	require.Equal(t, "https://www.thws.de/studium", url)

	// Normalized variants of the same resource must not be scheduled twice.
	for _, variant := range []string{
		"https://www.thws.de/studium",
		"https://www.thws.de/studium/",
		"https://www.thws.de/studium?utm_source=x",
	} {
		_, decision := f.Admit(variant)
		require.Equal(t, RejectSeen, decision, variant)
	}
}

func TestFrontierRejectsOffsiteHosts(t *testing.T) {
	f := newTestFrontier()

	_, decision := f.Admit("https://www.example.com/page")
	require.Equal(t, RejectOffsite, decision)

	// Subdomains of an allowed domain are in scope.
	_, decision = f.Admit("https://fiw.thws.de/page")
	require.Equal(t, Admitted, decision)

	// Suffix matching must not leak across registrable domains.
	_, decision = f.Admit("https://notthws.de/page")
	require.Equal(t, RejectOffsite, decision)
}

func TestFrontierRejectsIgnoredPatterns(t *testing.T) {
	f := newTestFrontier()

	for _, url := range []string{
		"https://www.thws.de/videos/intro.mp4",
		"https://www.thws.de/wp-content/uploads/2024/poster.jpg",
		"https://www.thws.de/login/",
		"https://www.thws.de/index.php?type=tx_fhwsvideo_frontend",
	} {
		_, decision := f.Admit(url)
		require.Equal(t, RejectIgnored, decision, url)
	}
}

func TestFrontierRejectsInvalid(t *testing.T) {
	f := newTestFrontier()
	_, decision := f.Admit("::not-a-url")
	require.Equal(t, RejectInvalid, decision)
}
