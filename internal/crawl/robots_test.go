package crawl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const robotsBody = `User-agent: *
Disallow: /intern/
Disallow: /fileadmin/
`

func robotsTestServer(t *testing.T, fetches *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_, _ = w.Write([]byte(robotsBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRobotsEnforcerHonorsDisallow(t *testing.T) {
	var fetches atomic.Int64
	srv := robotsTestServer(t, &fetches)

	enforcer := NewRobotsEnforcer(true, "harvester-test/1.0", "", zaptest.NewLogger(t))
	ctx := context.Background()

	assert.True(t, enforcer.Allowed(ctx, srv.URL+"/studium"))
	assert.False(t, enforcer.Allowed(ctx, srv.URL+"/intern/protokolle"))
	assert.False(t, enforcer.Allowed(ctx, srv.URL+"/fileadmin/handbuch.pdf"))
}

func TestRobotsEnforcerBypassPrefix(t *testing.T) {
	var fetches atomic.Int64
	srv := robotsTestServer(t, &fetches)

	enforcer := NewRobotsEnforcer(true, "harvester-test/1.0", "/fileadmin/", zaptest.NewLogger(t))
	ctx := context.Background()

	assert.True(t, enforcer.Allowed(ctx, srv.URL+"/fileadmin/handbuch.pdf"),
		"the bypass prefix wins over the disallow rule")
	assert.False(t, enforcer.Allowed(ctx, srv.URL+"/intern/protokolle"))
}

func TestRobotsEnforcerCachesPerHost(t *testing.T) {
	var fetches atomic.Int64
	srv := robotsTestServer(t, &fetches)

	enforcer := NewRobotsEnforcer(true, "harvester-test/1.0", "", zaptest.NewLogger(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		enforcer.Allowed(ctx, srv.URL+"/studium")
	}
	require.Equal(t, int64(1), fetches.Load())
}

func TestRobotsEnforcerAllowsOnFetchFailure(t *testing.T) {
	enforcer := NewRobotsEnforcer(true, "harvester-test/1.0", "", zaptest.NewLogger(t))
	assert.True(t, enforcer.Allowed(context.Background(), "http://127.0.0.1:1/studium"))
}

func TestRobotsDisabled(t *testing.T) {
	enforcer := NewRobotsEnforcer(false, "harvester-test/1.0", "", nil)
	assert.True(t, enforcer.Allowed(context.Background(), "http://127.0.0.1:1/anything"))
}
