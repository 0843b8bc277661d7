// Package request builds transport-level requests from a method name,
// endpoint path, ordered query parameters, and an optional body. It
// does no I/O; its output is an immutable value the transport turns
// into a wire request on each attempt.
package request

import (
	"net/url"
	"strings"

	"github.com/gridnode/nodeclient/errs"
)

// Method is one of the five verbs this client understands.
type Method string

const (
	GET    Method = "GET"
	HEAD   Method = "HEAD"
	POST   Method = "POST"
	PUT    Method = "PUT"
	DELETE Method = "DELETE"
)

// ParseMethod upper-cases and validates a method string once at entry
// so the rest of the pipeline carries the typed variant instead of a
// raw string.
func ParseMethod(method string) (Method, error) {
	switch m := Method(strings.ToUpper(method)); m {
	case GET, HEAD, POST, PUT, DELETE:
		return m, nil
	default:
		return "", &errs.UnsupportedMethodError{Method: method}
	}
}

// Param is a single query parameter. A slice of Param (rather than a
// map) is used so callers control and preserve insertion order, which
// Go's map type cannot.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered list of query parameters.
type Params []Param

// Request is the immutable, transport-agnostic request value produced
// by Build.
type Request struct {
	Method Method
	URI    *url.URL
	Body   []byte
}

// Build validates method/body compatibility, constructs the URI from
// endpoint+params, and returns the resulting Request. No network I/O
// occurs here; errors are all local validation failures.
func Build(method, endpoint string, params Params, body []byte) (*Request, error) {
	m, err := ParseMethod(method)
	if err != nil {
		return nil, err
	}
	if m == HEAD && body != nil {
		return nil, &errs.UnsupportedOperationError{Message: "HEAD with body is not supported"}
	}
	uri, err := buildURI(endpoint, params)
	if err != nil {
		return nil, &errs.InvalidURIError{Endpoint: endpoint, Err: err}
	}
	return &Request{Method: m, URI: uri, Body: body}, nil
}

// buildURI appends params to endpoint's query string in insertion
// order, preserving any query string already present on endpoint.
func buildURI(endpoint string, params Params) (*url.URL, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return u, nil
	}
	var query strings.Builder
	query.WriteString(u.RawQuery)
	for _, p := range params {
		if query.Len() > 0 {
			query.WriteByte('&')
		}
		query.WriteString(url.QueryEscape(p.Key))
		query.WriteByte('=')
		query.WriteString(url.QueryEscape(p.Value))
	}
	u.RawQuery = query.String()
	return u, nil
}

// Reset returns the request to a state suitable for reissue against a
// different connection. Build produces an immutable value with a
// buffered body, so there is nothing mutable to undo here; Reset exists
// to keep the shape of the transport contract explicit (the wire
// request the transport constructs per attempt is rebuilt fresh from
// this value each time, rather than reused and rewound in place).
func (r *Request) Reset() {}
