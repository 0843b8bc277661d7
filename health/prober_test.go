package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"gotest.tools/v3/assert"

	"github.com/gridnode/nodeclient/host"
	"github.com/gridnode/nodeclient/internal/pool"
	"github.com/gridnode/nodeclient/transport/nethttp"
)

func testHost(t *testing.T, s *httptest.Server) host.Host {
	t.Helper()
	u, err := url.Parse(s.URL)
	assert.NilError(t, err)
	port, err := strconv.Atoi(u.Port())
	assert.NilError(t, err)
	return host.New("http", u.Hostname(), port)
}

func TestProberRehabilitatesDeadConnection(t *testing.T) {
	var healthy bool
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer s.Close()
	h := testHost(t, s)

	fake := clockwork.NewFakeClock()
	p, err := pool.New([]host.Host{h}, pool.WithClock(fake))
	assert.NilError(t, err)

	conns := p.NextConnection()
	p.OnFailure(conns[0])
	alive, dead := p.Stats()
	assert.Equal(t, 0, alive)
	assert.Equal(t, 1, dead)

	tr := nethttp.New(time.Second)
	defer tr.Close()
	pr := New(p, tr, 10*time.Millisecond, WithClock(fake))

	healthy = true
	pr.probeOnce(context.Background())

	alive, dead = p.Stats()
	assert.Equal(t, 1, alive)
	assert.Equal(t, 0, dead)
}

func TestProberBacksOffAfterRepeatedFailure(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer s.Close()
	h := testHost(t, s)

	fake := clockwork.NewFakeClock()
	p, err := pool.New([]host.Host{h}, pool.WithClock(fake))
	assert.NilError(t, err)
	conns := p.NextConnection()
	p.OnFailure(conns[0])

	tr := nethttp.New(time.Second)
	defer tr.Close()
	pr := New(p, tr, 10*time.Millisecond, WithClock(fake))

	pr.probeOnce(context.Background())
	assert.Assert(t, !pr.due(h, fake.Now()), "host should be backed off after a failed probe")
}

func TestProberStartStop(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer s.Close()
	h := testHost(t, s)

	p, err := pool.New([]host.Host{h})
	assert.NilError(t, err)
	tr := nethttp.New(time.Second)
	defer tr.Close()

	pr := New(p, tr, 5*time.Millisecond)
	pr.Start(context.Background())
	pr.Stop()
}
