// Package pool maintains per-host health and produces the iteration
// order the dispatcher walks on each request: round-robin across
// alive connections, plus any dead connection whose rehabilitation
// window has elapsed.
package pool

import (
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/jonboulle/clockwork"

	"github.com/gridnode/nodeclient/errs"
	"github.com/gridnode/nodeclient/host"
)

// State is a connection's binary health: alive or dead. There is no
// half-open state — that distinction belongs to a circuit breaker
// layered on the transport, not to this pool.
type State int

const (
	Alive State = iota
	Dead
)

func (s State) String() string {
	if s == Alive {
		return "alive"
	}
	return "dead"
}

// Connection is a read-only snapshot of one host's health at the
// moment it was selected. Callers pass it back unchanged to OnSuccess
// or OnFailure; the Pool resolves it to its authoritative entry by
// Host.
type Connection struct {
	Host        host.Host
	State       State
	DeadCount   int
	DeadUntil   time.Time
	LastFailure time.Time
}

// entry is the Pool's mutable, authoritative record for one host.
type entry struct {
	host        host.Host
	state       State
	deadCount   int
	deadUntil   time.Time
	lastFailure time.Time
}

func (e *entry) snapshot() Connection {
	return Connection{
		Host:        e.host,
		State:       e.state,
		DeadCount:   e.deadCount,
		DeadUntil:   e.deadUntil,
		LastFailure: e.lastFailure,
	}
}

// Pool owns the set of connections. It is safe for concurrent use;
// every mutation and every selection snapshot is taken under a single
// mutex.
type Pool struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	entries  []*entry
	rotation int
}

// Option configures a Pool at construction.
type Option func(*Pool)

// WithClock injects a clock, used by tests to control backoff and
// rehabilitation timing deterministically.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pool) { p.clock = c }
}

// New builds a Pool over hosts, all initially alive. It is a
// constructor error to pass an empty or duplicate-containing host set.
func New(hosts []host.Host, opts ...Option) (*Pool, error) {
	if len(hosts) == 0 {
		return nil, &errs.InvalidArgumentError{Message: "pool requires at least one host"}
	}
	seen := mapset.NewSet[host.Host]()
	entries := make([]*entry, 0, len(hosts))
	for _, h := range hosts {
		if seen.Contains(h) {
			return nil, &errs.InvalidArgumentError{Message: "duplicate host " + h.String()}
		}
		seen.Add(h)
		entries = append(entries, &entry{host: h, state: Alive})
	}
	p := &Pool{entries: entries, clock: clockwork.NewRealClock()}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// NextConnection returns every alive connection, in a rotated order so
// successive calls do not always favor the same host, followed by any
// dead connection whose backoff window has elapsed. It may be empty if
// every connection is currently dead and still within its window.
func (p *Pool) NextConnection() []Connection {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	alive := make([]Connection, 0, len(p.entries))
	rehab := make([]Connection, 0)
	for _, e := range p.entries {
		switch {
		case e.state == Alive:
			alive = append(alive, e.snapshot())
		case !e.deadUntil.After(now):
			rehab = append(rehab, e.snapshot())
		}
	}
	if len(alive) > 1 {
		cursor := p.rotation % len(alive)
		alive = append(alive[cursor:], alive[:cursor]...)
	}
	p.rotation++
	return append(alive, rehab...)
}

// LastResortConnection returns a connection to try when NextConnection
// is empty: the dead connection that has been overdue the longest,
// ties broken by the pool's configured order.
func (p *Pool) LastResortConnection() Connection {
	p.mu.Lock()
	defer p.mu.Unlock()

	candidates := make([]*entry, 0, len(p.entries))
	for _, e := range p.entries {
		if e.state == Dead {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return p.entries[0].snapshot()
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].deadUntil.Before(candidates[j].deadUntil)
	})
	return candidates[0].snapshot()
}

// OnSuccess marks c's host alive and clears its failure bookkeeping.
func (p *Pool) OnSuccess(c Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.find(c.Host)
	if e == nil {
		return
	}
	e.state = Alive
	e.deadCount = 0
	e.deadUntil = time.Time{}
}

// OnFailure marks c's host dead, increments its consecutive-failure
// count, and schedules its next rehabilitation window via backoff.
func (p *Pool) OnFailure(c Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.find(c.Host)
	if e == nil {
		return
	}
	now := p.clock.Now()
	e.state = Dead
	if e.deadCount < maxDeadCount {
		e.deadCount++
	}
	e.lastFailure = now
	e.deadUntil = now.Add(backoff(e.deadCount))
}

// Stats reports the current alive/dead connection counts, used by the
// metrics collector.
func (p *Pool) Stats() (alive, dead int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		if e.state == Alive {
			alive++
		} else {
			dead++
		}
	}
	return alive, dead
}

// DeadConnections returns a snapshot of every currently dead
// connection, regardless of whether its backoff window has elapsed.
// Used by the background rehabilitation prober to probe ahead of a
// caller ever selecting them.
func (p *Pool) DeadConnections() []Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Connection, 0)
	for _, e := range p.entries {
		if e.state == Dead {
			out = append(out, e.snapshot())
		}
	}
	return out
}

// Close releases pool resources. The pool itself holds none beyond its
// in-memory entries; Close exists to satisfy the dispatcher's
// close-pool-then-close-transport contract.
func (p *Pool) Close() error { return nil }

func (p *Pool) find(h host.Host) *entry {
	for _, e := range p.entries {
		if e.host == h {
			return e
		}
	}
	return nil
}

const maxDeadCount = 32

// backoff computes the rehabilitation delay after k consecutive
// failures: 60s * 2^(k-1), capped at 30 minutes. Monotonic in k.
func backoff(k int) time.Duration {
	if k < 1 {
		k = 1
	}
	const capShift = 10 // 60s * 2^9 already exceeds the 30m cap
	if k > capShift {
		k = capShift
	}
	d := 60 * time.Second * time.Duration(uint64(1)<<uint(k-1))
	if d > 30*time.Minute {
		d = 30 * time.Minute
	}
	return d
}
