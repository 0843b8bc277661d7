// Package nodeclient is a resilient HTTP request dispatcher for a
// clustered backend: given a logical request it selects a live node
// from a pool, issues the call, and retries against successive nodes
// on transport or gateway failure until the request succeeds, the pool
// is exhausted, or the caller's retry deadline elapses.
package nodeclient

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gridnode/nodeclient/health"
	"github.com/gridnode/nodeclient/host"
	"github.com/gridnode/nodeclient/internal/metrics"
	"github.com/gridnode/nodeclient/internal/pool"
	"github.com/gridnode/nodeclient/request"
	"github.com/gridnode/nodeclient/transport"
)

// Host, Pool, Connection, Params, Param, and Transport are re-exported
// from their leaf packages so callers configuring a Dispatcher can name
// them from this package. Concrete transports (transport/nethttp,
// transport/circuitbreaker) and the health prober still come from their
// own packages.
type (
	Host       = host.Host
	Pool       = pool.Pool
	Connection = pool.Connection
	Params     = request.Params
	Param      = request.Param
	Transport  = transport.Transport
)

// NewHost builds a Host, defaulting scheme to "http".
func NewHost(scheme, name string, port int) Host { return host.New(scheme, name, port) }

// NewPool builds a Pool over hosts, all initially alive. It is a
// constructor error to pass an empty or duplicate-containing host set.
func NewPool(hosts []Host) (*Pool, error) { return pool.New(hosts) }

// Dispatcher is the public surface over the retry algorithm in
// dispatch.go: it selects a connection, issues the request, and
// retries against the next connection on failure.
type Dispatcher struct {
	transport       Transport
	pool            *Pool
	maxRetryTimeout time.Duration

	logger  Logger
	tracer  Tracer
	metrics metrics.Recorder
	clock   clockwork.Clock
	prober  *health.Prober
}

// Option configures a Dispatcher at construction.
type Option func(*Dispatcher)

// WithLoggers sets the debug/error logger.
func WithLoggers(logger Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithTracer sets the curl-trace logger.
func WithTracer(tracer Tracer) Option {
	return func(d *Dispatcher) { d.tracer = tracer }
}

// WithMetrics sets the attempt/pool-size metrics recorder.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(d *Dispatcher) { d.metrics = recorder }
}

// WithClock injects a clock used for retry-deadline accounting, so
// tests can control elapsed time deterministically instead of sleeping.
func WithClock(clock clockwork.Clock) Option {
	return func(d *Dispatcher) { d.clock = clock }
}

// WithHealthProber attaches a background rehabilitation prober whose
// lifecycle is tied to this Dispatcher: Close stops it before releasing
// the pool and transport. The caller is still responsible for calling
// Start on it once the Dispatcher is constructed.
func WithHealthProber(prober *health.Prober) Option {
	return func(d *Dispatcher) { d.prober = prober }
}

// New builds a Dispatcher. maxRetryTimeout must be greater than 0;
// transport and pool must be non-nil.
func New(t Transport, p *Pool, maxRetryTimeout time.Duration, opts ...Option) (*Dispatcher, error) {
	if t == nil {
		return nil, &InvalidArgumentError{Message: "transport cannot be nil"}
	}
	if p == nil {
		return nil, &InvalidArgumentError{Message: "pool cannot be nil"}
	}
	if maxRetryTimeout <= 0 {
		return nil, &InvalidArgumentError{Message: "maxRetryTimeout must be greater than 0"}
	}
	logger, tracer := NewNopLoggers()
	d := &Dispatcher{
		transport:       t,
		pool:            p,
		maxRetryTimeout: maxRetryTimeout,
		logger:          logger,
		tracer:          tracer,
		metrics:         metrics.NewNop(),
		clock:           clockwork.NewRealClock(),
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// Close stops the health prober (if any), then releases the pool and
// the transport. Both releases are attempted even if the first fails;
// the first error is surfaced with the second chained as its cause.
func (d *Dispatcher) Close() error {
	if d.prober != nil {
		d.prober.Stop()
	}
	poolErr := d.pool.Close()
	transportErr := d.transport.Close()
	if poolErr != nil {
		return &CloseError{Err: poolErr, Cause: transportErr}
	}
	return transportErr
}
