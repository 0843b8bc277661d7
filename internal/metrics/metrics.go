// Package metrics exposes pool health and attempt-outcome counters via
// github.com/prometheus/client_golang, wired at the same call sites the
// dispatcher already touches for pool and logging callbacks.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels an attempt's classification for the attempts counter.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeRetryableHTTP  Outcome = "retryable_http"
	OutcomeTerminalHTTP   Outcome = "terminal_http"
	OutcomeTransportError Outcome = "transport_error"
)

// Recorder is the sink the dispatcher reports attempt outcomes and
// pool sizes into. A nil
// check is never needed by callers: NewNop returns a working no-op
// implementation.
type Recorder interface {
	ObserveAttempt(outcome Outcome)
	SetPoolSize(alive, dead int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAttempt(Outcome)      {}
func (nopRecorder) SetPoolSize(alive, dead int) {}

// NewNop returns a Recorder that discards every observation, the
// default when a caller does not configure metrics.
func NewNop() Recorder { return nopRecorder{} }

// PrometheusRecorder is a Recorder backed by prometheus client_golang
// collectors, registered against the given registerer.
type PrometheusRecorder struct {
	attempts *prometheus.CounterVec
	alive    prometheus.Gauge
	dead     prometheus.Gauge
}

// NewPrometheus creates and registers a PrometheusRecorder's
// collectors against reg.
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusRecorder {
	r := &PrometheusRecorder{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_attempts_total",
			Help:      "Number of per-connection attempts by outcome.",
		}, []string{"outcome"}),
		alive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_alive_connections",
			Help:      "Number of connections currently considered alive.",
		}),
		dead: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_dead_connections",
			Help:      "Number of connections currently considered dead.",
		}),
	}
	reg.MustRegister(r.attempts, r.alive, r.dead)
	return r
}

func (r *PrometheusRecorder) ObserveAttempt(outcome Outcome) {
	r.attempts.WithLabelValues(string(outcome)).Inc()
}

func (r *PrometheusRecorder) SetPoolSize(alive, dead int) {
	r.alive.Set(float64(alive))
	r.dead.Set(float64(dead))
}
