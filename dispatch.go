package nodeclient

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/gridnode/nodeclient/internal/metrics"
	"github.com/gridnode/nodeclient/internal/pool"
	"github.com/gridnode/nodeclient/internal/trace"
	"github.com/gridnode/nodeclient/request"
)

// PerformRequest builds the URI and transport request, asks the pool
// for an iteration order, and walks it applying the retry policy:
// every attempt either returns a response, or classifies the outcome,
// updates pool health, and chains the failure, until the pool is
// exhausted or the retry deadline elapses.
func (d *Dispatcher) PerformRequest(ctx context.Context, method, endpoint string, params Params, body []byte) (*http.Response, error) {
	req, err := request.Build(method, endpoint, params, body)
	if err != nil {
		return nil, err
	}

	connections := d.pool.NextConnection()
	if len(connections) == 0 {
		last := d.pool.LastResortConnection()
		d.logger.noHealthyNodes(last.Host)
		connections = []pool.Connection{last}
	}

	start := d.clock.Now()
	retryDeadline := softRetryDeadline(d.maxRetryTimeout)
	requestID := newRequestID()

	var causes []error
	for _, conn := range connections {
		if len(causes) > 0 {
			elapsed := d.clock.Since(start)
			if elapsed >= retryDeadline {
				return nil, &RetryTimeoutError{
					Timeout: retryDeadline,
					Err:     causes[len(causes)-1],
					Causes:  causes[:len(causes)-1],
				}
			}
		}

		resp, execErr := d.transport.Execute(ctx, conn.Host, req)
		req.Reset()

		if execErr != nil {
			d.logger.attemptFailed(requestID, string(req.Method), conn.Host, req.URI.RequestURI(), execErr)
			if d.tracer.enabled() {
				d.tracer.trace(trace.FormatRequest(conn.Host, string(req.Method), req.URI.RequestURI(), req.Body))
			}
			d.pool.OnFailure(conn)
			d.metrics.ObserveAttempt(metrics.OutcomeTransportError)
			d.reportPoolSize()
			causes = append(causes, &TransportError{Err: execErr})
			continue
		}

		outcome := classify(req.Method, resp.StatusCode)
		switch outcome {
		case outcomeSuccess:
			d.logger.attemptSucceeded(requestID, string(req.Method), conn.Host, req.URI.RequestURI(), resp.StatusCode)
			d.traceSuccess(conn, req, resp)
			d.pool.OnSuccess(conn)
			d.metrics.ObserveAttempt(metrics.OutcomeSuccess)
			d.reportPoolSize()
			return resp, nil

		case outcomeRetryableHTTP:
			httpErr := d.bufferHTTPError(resp)
			d.logger.attemptFailedResponse(requestID, string(req.Method), conn.Host, req.URI.RequestURI(), resp.StatusCode)
			d.traceResponse(resp.Status, resp.Header, httpErr.Body)
			d.pool.OnFailure(conn)
			d.metrics.ObserveAttempt(metrics.OutcomeRetryableHTTP)
			d.reportPoolSize()
			causes = append(causes, httpErr)
			continue

		default: // outcomeTerminalHTTP
			httpErr := d.bufferHTTPError(resp)
			d.logger.attemptFailedResponse(requestID, string(req.Method), conn.Host, req.URI.RequestURI(), resp.StatusCode)
			d.traceResponse(resp.Status, resp.Header, httpErr.Body)
			// the node answered; the request itself is the caller's
			// problem, so the node stays alive and we stop retrying.
			d.pool.OnSuccess(conn)
			d.metrics.ObserveAttempt(metrics.OutcomeTerminalHTTP)
			d.reportPoolSize()
			httpErr.Causes = causes
			return nil, httpErr
		}
	}

	// connections exhausted without returning; causes is non-empty by
	// construction (every non-returning iteration above appended to it).
	last := causes[len(causes)-1]
	prior := causes[:len(causes)-1]
	switch e := last.(type) {
	case *HTTPError:
		e.Causes = prior
		return nil, e
	case *TransportError:
		e.Causes = prior
		return nil, e
	default:
		// every cause appended above is either an *HTTPError or a
		// *TransportError; this would mean that invariant broke.
		panic("nodeclient: unexpected cause type in retry chain")
	}
}

func (d *Dispatcher) reportPoolSize() {
	alive, dead := d.pool.Stats()
	d.metrics.SetPoolSize(alive, dead)
}

// bufferHTTPError drains resp's body into memory and closes it,
// producing the HTTPError the dispatcher chains or raises. The
// original connection's body must not be left open across attempts.
func (d *Dispatcher) bufferHTTPError(resp *http.Response) *HTTPError {
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       data,
	}
}

// traceSuccess renders a successful response for trace logging without
// disturbing the body the caller is about to read: the body is only
// buffered (and replaced with an equivalent buffered copy) when tracing
// is actually enabled.
func (d *Dispatcher) traceSuccess(conn pool.Connection, req *request.Request, resp *http.Response) {
	if !d.tracer.enabled() {
		return
	}
	d.tracer.trace(trace.FormatRequest(conn.Host, string(req.Method), req.URI.RequestURI(), req.Body))
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		d.tracer.renderingFailed(err)
		return
	}
	d.tracer.trace(trace.FormatResponse(resp.Status, resp.Header, data))
}

func (d *Dispatcher) traceResponse(status string, header http.Header, body []byte) {
	if !d.tracer.enabled() {
		return
	}
	d.tracer.trace(trace.FormatResponse(status, header, body))
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRetryableHTTP
	outcomeTerminalHTTP
)

// classify maps a response's method and status code onto an outcome:
// success covers [200,300) and the HEAD-404 "exists" convention;
// 502/503/504 are retried as upstream health problems; everything
// else >= 300 is terminal.
func classify(method request.Method, statusCode int) outcome {
	if statusCode >= 200 && statusCode < 300 {
		return outcomeSuccess
	}
	if method == request.HEAD && statusCode == 404 {
		return outcomeSuccess
	}
	switch statusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return outcomeRetryableHTTP
	default:
		return outcomeTerminalHTTP
	}
}

// softRetryDeadline applies a soft margin so an in-flight attempt is
// not issued with near-zero budget only to time out right after. The
// deadline is round(timeout*98/100), rounded to the nearest nanosecond
// (the unit of time.Duration).
func softRetryDeadline(maxRetryTimeout time.Duration) time.Duration {
	return time.Duration(math.Round(float64(maxRetryTimeout) * 98.0 / 100.0))
}
