package pool

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"gotest.tools/v3/assert"

	"github.com/gridnode/nodeclient/host"
)

func hosts(n int) []host.Host {
	out := make([]host.Host, n)
	for i := range out {
		out[i] = host.New("http", "node", 9200+i)
	}
	return out
}

func TestNewRejectsEmptyHosts(t *testing.T) {
	_, err := New(nil)
	assert.ErrorContains(t, err, "at least one host")
}

func TestNewRejectsDuplicateHosts(t *testing.T) {
	h := host.New("http", "node", 9200)
	_, err := New([]host.Host{h, h})
	assert.ErrorContains(t, err, "duplicate host")
}

func TestNextConnectionAllAliveInitially(t *testing.T) {
	p, err := New(hosts(3))
	assert.NilError(t, err)
	conns := p.NextConnection()
	assert.Equal(t, 3, len(conns))
	for _, c := range conns {
		assert.Equal(t, Alive, c.State)
	}
}

func TestNextConnectionRotates(t *testing.T) {
	hs := hosts(3)
	p, err := New(hs)
	assert.NilError(t, err)
	first := p.NextConnection()
	second := p.NextConnection()
	assert.Assert(t, first[0].Host != second[0].Host)
}

func TestOnFailureMarksDeadAndSchedulesRehab(t *testing.T) {
	fake := clockwork.NewFakeClock()
	p, err := New(hosts(2), WithClock(fake))
	assert.NilError(t, err)

	conns := p.NextConnection()
	p.OnFailure(conns[0])

	alive, dead := p.Stats()
	assert.Equal(t, 1, alive)
	assert.Equal(t, 1, dead)

	remaining := p.NextConnection()
	assert.Equal(t, 1, len(remaining))
	assert.Equal(t, conns[1].Host, remaining[0].Host)
}

func TestDeadConnectionRehabilitatesAfterBackoff(t *testing.T) {
	fake := clockwork.NewFakeClock()
	p, err := New(hosts(1), WithClock(fake))
	assert.NilError(t, err)

	conns := p.NextConnection()
	p.OnFailure(conns[0])
	assert.Equal(t, 0, len(p.NextConnection()))

	fake.Advance(61 * time.Second)
	rehab := p.NextConnection()
	assert.Equal(t, 1, len(rehab))
}

func TestOnSuccessClearsFailureState(t *testing.T) {
	fake := clockwork.NewFakeClock()
	p, err := New(hosts(1), WithClock(fake))
	assert.NilError(t, err)

	conns := p.NextConnection()
	p.OnFailure(conns[0])
	dead := p.NextConnection()
	assert.Equal(t, 0, len(dead))

	p.OnSuccess(conns[0])
	alive, deadCount := p.Stats()
	assert.Equal(t, 1, alive)
	assert.Equal(t, 0, deadCount)
}

func TestLastResortConnectionPicksOldestOverdue(t *testing.T) {
	fake := clockwork.NewFakeClock()
	p, err := New(hosts(2), WithClock(fake))
	assert.NilError(t, err)

	conns := p.NextConnection()
	p.OnFailure(conns[0])
	fake.Advance(time.Second)
	p.OnFailure(conns[1])

	last := p.LastResortConnection()
	assert.Equal(t, conns[0].Host, last.Host)
}

func TestBackoffMonotonicAndCapped(t *testing.T) {
	prev := backoff(1)
	for k := 2; k <= 12; k++ {
		next := backoff(k)
		assert.Assert(t, next >= prev)
		assert.Assert(t, next <= 30*time.Minute)
		prev = next
	}
}

func TestBackoffClampsLowK(t *testing.T) {
	assert.Equal(t, backoff(0), backoff(1))
}
