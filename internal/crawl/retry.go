package crawl

import (
	"errors"
	"net"
	"sync"
)

// retryableStatuses are HTTP codes that indicate a transient server or
// gateway condition worth another attempt.
var retryableStatuses = map[int]struct{}{
	500: {},
	502: {},
	503: {},
	504: {},
	522: {},
	524: {},
	408: {},
}

// RetryableStatus reports whether an HTTP status code warrants a retry.
func RetryableStatus(code int) bool {
	_, ok := retryableStatuses[code]
	return ok
}

// RetryableError reports whether a transport error warrants a retry.
// Timeouts and DNS hiccups are transient; everything else fails the
// request for good.
func RetryableError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return !dnsErr.IsNotFound
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// attemptTracker counts fetch attempts per URL so retries stop at the
// configured bound and the errors counter is bumped exactly once.
type attemptTracker struct {
	mu     sync.Mutex
	counts map[string]int
}

func newAttemptTracker() *attemptTracker {
	return &attemptTracker{counts: make(map[string]int)}
}

// next records another attempt for url and returns the retry count so
// far (1 for the first retry).
func (t *attemptTracker) next(url string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[url]++
	return t.counts[url]
}

// forget drops the per-URL state once a request is finished for good.
func (t *attemptTracker) forget(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counts, url)
}
