package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"permanent network error", &NetworkError{Permanent: true, StatusCode: 404}, false},
		{"rate limited", &NetworkError{StatusCode: 429}, true},
		{"server error", &NetworkError{StatusCode: 503}, true},
		{"incomplete read", io.ErrUnexpectedEOF, true},
		{"cancellation", context.Canceled, false},
		{"wrapped retryable", fmt.Errorf("wrapped: %w", &NetworkError{StatusCode: 500}), true},
	}
	for _, test := range tests {
		if got := IsRetryable(test.err); got != test.expected {
			t.Errorf("%s: IsRetryable = %v, expected %v", test.name, got, test.expected)
		}
	}
}

func TestIsIncompleteRead(t *testing.T) {
	if !IsIncompleteRead(io.ErrUnexpectedEOF) {
		t.Error("unexpected EOF should count as an incomplete read")
	}
	if !IsIncompleteRead(fmt.Errorf("read failed: %w", io.ErrUnexpectedEOF)) {
		t.Error("wrapped unexpected EOF should count as an incomplete read")
	}
	if IsIncompleteRead(errors.New("boom")) {
		t.Error("arbitrary errors are not incomplete reads")
	}
}

func TestRetryableStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected bool
	}{
		{429, true},
		{500, true},
		{502, true},
		{404, false},
		{403, false},
		{200, false},
	}
	for _, test := range tests {
		if got := retryableStatus(test.status); got != test.expected {
			t.Errorf("retryableStatus(%d) = %v, expected %v", test.status, got, test.expected)
		}
	}
}

func TestNetworkErrorUnwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := &NetworkError{Url: "https://kemono.su/x", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("NetworkError should unwrap to its inner error")
	}
}
