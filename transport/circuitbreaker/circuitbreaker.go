// Package circuitbreaker decorates a transport.Transport with a
// per-resource circuit breaker (github.com/sony/gobreaker/v2). It is
// deliberately a Transport-level concern: the dispatcher's own
// connection pool keeps its own binary healthy/dead state per host,
// and this layer sits underneath it, tripping independently per
// logical resource (method+path) rather than per host.
package circuitbreaker

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/gridnode/nodeclient/host"
	"github.com/gridnode/nodeclient/request"
	"github.com/gridnode/nodeclient/transport"
)

// Settings configures the circuit breaker created for each resource.
type Settings struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// Transport wraps a base transport.Transport, tripping a circuit per
// resource (method + path) after ConsecutiveFailures consecutive
// failures.
type Transport struct {
	base     transport.Transport
	settings Settings

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*http.Response]
}

// New wraps base with a circuit breaker keyed by resource.
func New(base transport.Transport, settings Settings) *Transport {
	return &Transport{
		base:     base,
		settings: settings,
		breakers: make(map[string]*gobreaker.CircuitBreaker[*http.Response]),
	}
}

func (t *Transport) Execute(ctx context.Context, h host.Host, req *request.Request) (*http.Response, error) {
	resource := string(req.Method) + "_" + req.URI.Path
	cb := t.circuitBreakerFor(resource)
	return cb.Execute(func() (*http.Response, error) {
		return t.base.Execute(ctx, h, req)
	})
}

func (t *Transport) Close() error {
	return t.base.Close()
}

func (t *Transport) circuitBreakerFor(resource string) *gobreaker.CircuitBreaker[*http.Response] {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cb, ok := t.breakers[resource]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        fmt.Sprintf("transport circuit breaker for resource %s", resource),
		MaxRequests: t.settings.MaxRequests,
		Interval:    t.settings.Interval,
		Timeout:     t.settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= t.settings.ConsecutiveFailures
		},
	})
	t.breakers[resource] = cb
	return cb
}
