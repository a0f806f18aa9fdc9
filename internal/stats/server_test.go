package stats

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestServer(t *testing.T) (*Reporter, *httptest.Server) {
	t.Helper()
	reporter := NewReporter("run-http", newStubClock())
	srv := httptest.NewServer(NewServer(reporter, zaptest.NewLogger(t)).Handler())
	t.Cleanup(srv.Close)
	return reporter, srv
}

func TestStatsEndpoint(t *testing.T) {
	reporter, srv := newTestServer(t)
	reporter.Bump(CounterHTML, "www.thws.de", 5)
	reporter.Bump(CounterIgnored, "www.thws.de", 2)

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var snap Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "run-http", snap.RunID)
	assert.Equal(t, int64(5), snap.Totals[CounterHTML])
	assert.Equal(t, int64(2), snap.Domains["www.thws.de"][CounterIgnored])
}

func TestLiveEndpoint(t *testing.T) {
	reporter, srv := newTestServer(t)
	reporter.Bump(CounterPDF, "fiw.thws.de", 1)
	reporter.Bump(CounterBytes, "fiw.thws.de", 1<<20)

	resp, err := http.Get(srv.URL + "/live")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	html := string(body)
	assert.Contains(t, html, "run-http")
	assert.Contains(t, html, "fiw.thws.de")
	assert.Contains(t, html, "1.00 MB")
}

func TestHealthEndpoint(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
