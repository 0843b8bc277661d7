// Package nethttp adapts the standard library's *http.Client into a
// transport.Transport, driving *http.Client directly rather than
// through a custom wire layer.
package nethttp

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gridnode/nodeclient/host"
	"github.com/gridnode/nodeclient/request"
)

// Transport is a transport.Transport backed by *http.Client.
type Transport struct {
	client *http.Client
}

// New builds a Transport with the given per-attempt timeout. The
// timeout bounds a single Execute call, distinct from the dispatcher's
// overall retry budget.
func New(timeout time.Duration) *Transport {
	return &Transport{client: &http.Client{Timeout: timeout}}
}

// Execute builds a fresh *http.Request for this attempt from req and
// issues it against h.
func (t *Transport) Execute(ctx context.Context, h host.Host, req *request.Request) (*http.Response, error) {
	url := h.String() + req.URI.RequestURI()
	var bodyReader *bytes.Reader
	if req.Body != nil {
		bodyReader = bytes.NewReader(req.Body)
	}
	var httpReq *http.Request
	var err error
	if bodyReader != nil {
		httpReq, err = http.NewRequestWithContext(ctx, string(req.Method), url, bodyReader)
	} else {
		httpReq, err = http.NewRequestWithContext(ctx, string(req.Method), url, nil)
	}
	if err != nil {
		return nil, err
	}
	return t.client.Do(httpReq)
}

// Close releases the underlying *http.Client's idle connections.
func (t *Transport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
