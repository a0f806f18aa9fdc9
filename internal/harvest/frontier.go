package harvest

import (
	"net/url"
	"strings"
	"sync"
)

// Decision is the outcome of admitting a discovered URL into the frontier.
type Decision int

// Admission outcomes. Only RejectIgnored is surfaced to operators via the
// "ignored" counter; offsite and already-seen links are dropped quietly.
const (
	Admitted Decision = iota
	RejectInvalid
	RejectOffsite
	RejectIgnored
	RejectSeen
)

// Frontier tracks which normalized URLs have been scheduled and applies the
// domain allow-list and ignored-pattern rules. It guarantees at-most-once
// admission per normalized URL within a run and is safe for concurrent use.
type Frontier struct {
	allowedDomains  []string
	ignoredPatterns []string
	seen            sync.Map
}

// NewFrontier builds a Frontier from the configured allow-list (hostnames,
// matched including subdomains) and ignored URL-path substrings.
func NewFrontier(allowedDomains, ignoredPatterns []string) *Frontier {
	f := &Frontier{}
	for _, d := range allowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			f.allowedDomains = append(f.allowedDomains, d)
		}
	}
	for _, p := range ignoredPatterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			f.ignoredPatterns = append(f.ignoredPatterns, p)
		}
	}
	return f
}

// Admit normalizes rawURL and decides whether it should be fetched. On
// Admitted, the URL is atomically marked as seen and the normalized form is
// returned; every other decision is terminal for this URL.
func (f *Frontier) Admit(rawURL string) (string, Decision) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return "", RejectInvalid
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return "", RejectInvalid
	}
	if !f.hostAllowed(u.Hostname()) {
		return normalized, RejectOffsite
	}
	if f.matchesIgnored(normalized) {
		return normalized, RejectIgnored
	}
	if _, loaded := f.seen.LoadOrStore(normalized, struct{}{}); loaded {
		return normalized, RejectSeen
	}
	return normalized, Admitted
}

// Seen reports whether the normalized URL has already been admitted.
func (f *Frontier) Seen(normalized string) bool {
	_, ok := f.seen.Load(normalized)
	return ok
}

func (f *Frontier) hostAllowed(host string) bool {
	if len(f.allowedDomains) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, d := range f.allowedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func (f *Frontier) matchesIgnored(normalized string) bool {
	lowered := strings.ToLower(normalized)
	for _, p := range f.ignoredPatterns {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}
