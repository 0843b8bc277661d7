package nodeclient

import (
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gridnode/nodeclient/host"
)

// Logger is the boundary debug/error logger: one structured line per
// attempt outcome. It wraps zerolog.Logger rather than the standard
// library's log/slog, keeping every call site structured instead of
// building format strings.
type Logger struct {
	z zerolog.Logger
}

// NewLogger wraps an existing zerolog.Logger.
func NewLogger(z zerolog.Logger) Logger { return Logger{z: z} }

func (l Logger) attemptFailed(requestID, method string, h host.Host, uri string, err error) {
	l.z.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("host", h.String()).
		Str("uri", uri).
		Err(err).
		Msg("request failed")
}

func (l Logger) attemptSucceeded(requestID, method string, h host.Host, uri string, statusCode int) {
	l.z.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("host", h.String()).
		Str("uri", uri).
		Int("status", statusCode).
		Msg("request succeeded")
}

func (l Logger) attemptFailedResponse(requestID, method string, h host.Host, uri string, statusCode int) {
	l.z.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("host", h.String()).
		Str("uri", uri).
		Int("status", statusCode).
		Msg("request failed")
}

func (l Logger) noHealthyNodes(h host.Host) {
	l.z.Info().Str("host", h.String()).Msg("no healthy nodes available, trying " + h.String())
}

// Tracer is the curl-formatted trace-level logger. Rendering is
// skipped entirely unless the tracer is actually at or below trace
// level, since the rendering buffers bodies and is not free.
type Tracer struct {
	z zerolog.Logger
}

// NewTracer wraps an existing zerolog.Logger.
func NewTracer(z zerolog.Logger) Tracer { return Tracer{z: z} }

func (t Tracer) enabled() bool { return t.z.GetLevel() <= zerolog.TraceLevel }

func (t Tracer) trace(block string) {
	t.z.Trace().Msg(block)
}

func (t Tracer) renderingFailed(err error) {
	t.z.Trace().Err(err).Msg("error while reading request or response for trace purposes")
}

// NewNopLoggers returns a Logger and Tracer that discard everything,
// the construction default.
func NewNopLoggers() (Logger, Tracer) {
	z := zerolog.New(io.Discard)
	return NewLogger(z), NewTracer(z)
}

// newRequestID returns a correlation id (a random UUID). PerformRequest
// draws one per call and attaches it to the debug line of every attempt
// so a call's attempts can be correlated across retries. Trace blocks do
// not carry it.
func newRequestID() string { return uuid.NewString() }
