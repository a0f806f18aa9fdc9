// Package metrics exposes Prometheus counters for the crawl. The
// counters mirror the run statistics but survive scrapes and feed
// dashboards, while the stats reporter feeds the run-scoped endpoints.
package metrics

import (
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	documentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_documents_total",
			Help: "Total number of documents stored, labeled by site and kind.",
		},
		[]string{"site", "kind"},
	)

	bytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_bytes_total",
			Help: "Total number of response bytes fetched, labeled by site.",
		},
		[]string{"site"},
	)

	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_errors_total",
			Help: "Total number of failed fetches and parses, labeled by site.",
		},
		[]string{"site"},
	)

	droppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_dropped_total",
			Help: "Total number of responses dropped without storing, labeled by site and reason.",
		},
		[]string{"site", "reason"},
	)

	frontierDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "harvester_parse_queue_depth",
			Help: "Number of responses waiting for a parse worker.",
		},
	)
)

// SanitizeSite extracts the lowercased hostname from a URL.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveDocument records a stored document.
func ObserveDocument(site, kind string) {
	documentsTotal.WithLabelValues(SanitizeSite(site), kind).Inc()
}

// ObserveBytes records fetched response bytes.
func ObserveBytes(site string, n int) {
	if n > 0 {
		bytesTotal.WithLabelValues(SanitizeSite(site)).Add(float64(n))
	}
}

// ObserveError records a failed fetch or parse.
func ObserveError(site string) {
	errorsTotal.WithLabelValues(SanitizeSite(site)).Inc()
}

// ObserveDrop records a response dropped without storing.
func ObserveDrop(site, reason string) {
	droppedTotal.WithLabelValues(SanitizeSite(site), reason).Inc()
}

// SetParseQueueDepth reports the current parse queue backlog.
func SetParseQueueDepth(n int) {
	frontierDepth.Set(float64(n))
}
