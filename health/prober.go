// Package health runs an optional background rehabilitation prober
// against dead connections, supplementing the lazy rehabilitation
// check the dispatcher performs on selection: it periodically probes
// dead hosts on their own backoff schedule so they are found healthy
// again before a caller's own request would have selected them. It is
// off by default.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/gridnode/nodeclient/host"
	"github.com/gridnode/nodeclient/internal/pool"
	"github.com/gridnode/nodeclient/request"
	"github.com/gridnode/nodeclient/transport"
)

// Prober periodically calls the transport against dead connections so
// they can be rehabilitated before a caller ever selects them. Each
// host is probed on its own exponential schedule, independent of the
// pool's own dead_until bookkeeping, so a persistently unreachable
// host is not hammered every tick.
type Prober struct {
	pool      *pool.Pool
	transport transport.Transport
	interval  time.Duration
	method    string
	endpoint  string
	clock     clockwork.Clock

	mu       sync.Mutex
	schedule map[host.Host]*probeSchedule

	stop chan struct{}
	done chan struct{}
}

type probeSchedule struct {
	backOff backoff.BackOff
	nextAt  time.Time
}

// Option configures a Prober at construction.
type Option func(*Prober)

// WithProbe sets the method and endpoint probed on each dead
// connection. Defaults to "HEAD /".
func WithProbe(method, endpoint string) Option {
	return func(p *Prober) {
		p.method = method
		p.endpoint = endpoint
	}
}

// WithClock injects a clock for deterministic tests.
func WithClock(c clockwork.Clock) Option {
	return func(p *Prober) { p.clock = c }
}

// New builds a Prober over p, probing dead connections through t every
// interval once started.
func New(p *pool.Pool, t transport.Transport, interval time.Duration, opts ...Option) *Prober {
	pr := &Prober{
		pool:      p,
		transport: t,
		interval:  interval,
		method:    "HEAD",
		endpoint:  "/",
		clock:     clockwork.NewRealClock(),
		schedule:  make(map[host.Host]*probeSchedule),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, o := range opts {
		o(pr)
	}
	return pr
}

// Start runs the probe loop until ctx is done or Stop is called.
func (p *Prober) Start(ctx context.Context) {
	go p.run(ctx)
}

// Stop halts the probe loop and waits for it to exit.
func (p *Prober) Stop() {
	close(p.stop)
	<-p.done
}

func (p *Prober) run(ctx context.Context) {
	defer close(p.done)
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.Chan():
			p.probeOnce(ctx)
		}
	}
}

func (p *Prober) probeOnce(ctx context.Context) {
	candidates := p.pool.DeadConnections()
	now := p.clock.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range candidates {
		c := c
		if !p.due(c.Host, now) {
			continue
		}
		g.Go(func() error {
			p.probe(gctx, c)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Prober) probe(ctx context.Context, c pool.Connection) {
	req, err := request.Build(p.method, p.endpoint, nil, nil)
	if err != nil {
		return
	}
	resp, err := p.transport.Execute(ctx, c.Host, req)
	if err != nil {
		p.pool.OnFailure(c)
		p.recordFailure(c.Host)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 300 {
		p.pool.OnSuccess(c)
		p.recordSuccess(c.Host)
		return
	}
	p.pool.OnFailure(c)
	p.recordFailure(c.Host)
}

func (p *Prober) due(h host.Host, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.schedule[h]
	if !ok {
		return true
	}
	return !s.nextAt.After(now)
}

func (p *Prober) recordSuccess(h host.Host) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.schedule, h)
}

func (p *Prober) recordFailure(h host.Host) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.schedule[h]
	if !ok {
		s = &probeSchedule{backOff: newBackOff()}
		p.schedule[h] = s
	}
	s.nextAt = p.clock.Now().Add(s.backOff.NextBackOff())
}

func newBackOff() backoff.BackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     5 * time.Second,
		RandomizationFactor: 0.2,
		Multiplier:          2,
		MaxInterval:         5 * time.Minute,
	}
}
