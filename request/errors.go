package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
)

// NetworkError classifies a failed request so callers can decide
// between retrying and surfacing the failure permanently.
type NetworkError struct {
	Permanent  bool
	StatusCode int
	Url        string
	Err        error
}

func (e *NetworkError) Error() string {
	kind := "retryable"
	if e.Permanent {
		kind = "permanent"
	}
	if e.Err != nil {
		return fmt.Sprintf(
			"%s network error for %s, more info => %v",
			kind,
			e.Url,
			e.Err,
		)
	}
	return fmt.Sprintf(
		"%s network error for %s, status code => %d",
		kind,
		e.Url,
		e.StatusCode,
	)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the error is worth another attempt:
// connection errors, timeouts, incomplete reads, 429 and 5xx responses.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return !netErr.Permanent
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var timeoutErr net.Error
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

// IsIncompleteRead reports whether the error looks like the connection
// dropped mid-body.
func IsIncompleteRead(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF)
}

func retryableStatus(statusCode int) bool {
	return statusCode == 429 || statusCode >= 500
}
