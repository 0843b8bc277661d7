package nodeclient

import (
	"errors"

	"github.com/gridnode/nodeclient/errs"
)

// Public error types observable to callers, re-exported from the errs
// taxonomy package so callers can name them from this package.
type (
	InvalidArgumentError      = errs.InvalidArgumentError
	InvalidURIError           = errs.InvalidURIError
	UnsupportedMethodError    = errs.UnsupportedMethodError
	UnsupportedOperationError = errs.UnsupportedOperationError
	HTTPError                 = errs.HTTPError
	TransportError            = errs.TransportError
	RetryTimeoutError         = errs.RetryTimeoutError
	CloseError                = errs.CloseError
)

// IsHTTPError reports whether err (or anything it wraps) is an
// *HTTPError. PerformRequest returns one when a node answered with a
// terminal status, or when the pool was exhausted and the last attempt
// got a 502/503/504 response.
func IsHTTPError(err error) bool {
	var e *HTTPError
	return errors.As(err, &e)
}

// IsRetryTimeout reports whether err is a *RetryTimeoutError, meaning
// the retry budget elapsed before the pool was exhausted.
func IsRetryTimeout(err error) bool {
	var e *RetryTimeoutError
	return errors.As(err, &e)
}

// IsTransportError reports whether err (or anything it wraps) is a
// *TransportError. PerformRequest returns one when the pool was
// exhausted before the retry budget and the last attempt failed at the
// transport layer; earlier attempts may have failed differently. An
// HTTPError or RetryTimeoutError whose wrapped error is a transport
// failure also matches.
func IsTransportError(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}
