// Package transport defines the capability the dispatcher consumes to
// actually put a request on the wire. The underlying connection
// establishment, TLS, and socket I/O are external collaborators: the
// core only ever talks to this interface.
package transport

import (
	"context"
	"net/http"

	"github.com/gridnode/nodeclient/host"
	"github.com/gridnode/nodeclient/request"
)

// Transport executes one request against one host. A non-nil error
// return is always a transport-level failure (connect, TLS, socket
// I/O) — HTTP status codes are carried on the returned response, never
// translated into an error here. Execute must be safe to call
// concurrently for distinct requests.
type Transport interface {
	Execute(ctx context.Context, h host.Host, req *request.Request) (*http.Response, error)
	Close() error
}
