package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedBody reports an upstream body that could not be decoded.
	ErrMalformedBody = errors.New("malformed upstream body")
	// ErrBodyTooLarge reports an upstream body longer than the read limit.
	ErrBodyTooLarge = errors.New("upstream body exceeds size limit")
	errBuildRequest = errors.New("build request")
)

// StatusError is returned for a non-2xx upstream response.
type StatusError struct {
	Upstream   string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: GET %s returned status %d", e.Upstream, e.URL, e.StatusCode)
}

// StatusCode extracts the HTTP status from err, or 0 for transport failures.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Retryable classifies attempt failures: transport errors and non-2xx
// statuses are retried. An oversized body or an unbuildable request would
// fail the same way again, so they are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBodyTooLarge) || errors.Is(err, errBuildRequest) {
		return false
	}
	return true
}
