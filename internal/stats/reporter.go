// Package stats tracks crawl counters per run, globally and per domain,
// and exposes them over HTTP and as a CSV export at shutdown.
package stats

import (
	"sync"
	"time"

	"github.com/askthws/harvester/internal/harvest"
)

// Counter names tracked by the reporter.
const (
	CounterHTML    = "html"
	CounterPDF     = "pdf"
	CounterICal    = "ical"
	CounterErrors  = "errors"
	CounterEmpty   = "empty"
	CounterIgnored = "ignored"
	CounterBytes   = "bytes"
)

// counterOrder fixes the column order for exports and the live view.
var counterOrder = []string{
	CounterHTML,
	CounterPDF,
	CounterICal,
	CounterErrors,
	CounterEmpty,
	CounterIgnored,
	CounterBytes,
}

// Reporter accumulates counters for a single crawl run. All methods are
// safe for concurrent use.
type Reporter struct {
	mu        sync.RWMutex
	runID     string
	startedAt time.Time
	clock     harvest.Clock
	totals    map[string]int64
	domains   map[string]map[string]int64
}

// NewReporter creates a Reporter for the given run ID.
func NewReporter(runID string, clock harvest.Clock) *Reporter {
	return &Reporter{
		runID:     runID,
		startedAt: clock.Now(),
		clock:     clock,
		totals:    make(map[string]int64),
		domains:   make(map[string]map[string]int64),
	}
}

// Bump increments a counter by n, both globally and for domain when
// domain is nonempty.
func (r *Reporter) Bump(counter, domain string, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.totals[counter] += n
	if domain == "" {
		return
	}
	d, ok := r.domains[domain]
	if !ok {
		d = make(map[string]int64)
		r.domains[domain] = d
	}
	d[counter] += n
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	RunID          string                      `json:"run_id"`
	StartedAt      time.Time                   `json:"started_at"`
	ElapsedSeconds float64                     `json:"elapsed_seconds"`
	Totals         map[string]int64            `json:"totals"`
	Domains        map[string]map[string]int64 `json:"domains"`
}

// Snapshot returns a deep copy of the current counters.
func (r *Reporter) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	totals := make(map[string]int64, len(r.totals))
	for k, v := range r.totals {
		totals[k] = v
	}
	domains := make(map[string]map[string]int64, len(r.domains))
	for domain, counters := range r.domains {
		d := make(map[string]int64, len(counters))
		for k, v := range counters {
			d[k] = v
		}
		domains[domain] = d
	}

	return Snapshot{
		RunID:          r.runID,
		StartedAt:      r.startedAt,
		ElapsedSeconds: r.clock.Now().Sub(r.startedAt).Seconds(),
		Totals:         totals,
		Domains:        domains,
	}
}
