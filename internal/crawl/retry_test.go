package crawl

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestRetryableStatus(t *testing.T) {
	for _, code := range []int{500, 502, 503, 504, 522, 524, 408} {
		assert.True(t, RetryableStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 410} {
		assert.False(t, RetryableStatus(code), "status %d", code)
	}
}

func TestRetryableError(t *testing.T) {
	assert.False(t, RetryableError(nil))
	assert.False(t, RetryableError(errors.New("parse failure")))
	assert.True(t, RetryableError(timeoutErr{}))
	assert.True(t, RetryableError(&net.DNSError{Err: "server misbehaving", IsTimeout: true}))
	assert.False(t, RetryableError(&net.DNSError{Err: "no such host", IsNotFound: true}))
	assert.True(t, RetryableError(&net.OpError{Op: "read", Err: errors.New("connection reset by peer")}))
}

func TestAttemptTracker(t *testing.T) {
	tr := newAttemptTracker()
	assert.Equal(t, 1, tr.next("https://www.thws.de/a"))
	assert.Equal(t, 2, tr.next("https://www.thws.de/a"))
	assert.Equal(t, 1, tr.next("https://www.thws.de/b"))

	tr.forget("https://www.thws.de/a")
	assert.Equal(t, 1, tr.next("https://www.thws.de/a"))
}
