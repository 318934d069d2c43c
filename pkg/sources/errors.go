package sources

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel is the text the service embeds in a response body when it wants
// the client to back off.
const Sentinel = "Please try again later."

var (
	ErrRateLimited       = errors.New("rate limited by remote service")
	ErrMalformedManifest = errors.New("malformed manifest")
	ErrRejected          = errors.New("request rejected")
)

// ContainsSentinel reports whether body carries the rate-limit sentinel.
func ContainsSentinel(body []byte) bool {
	return strings.Contains(string(body), Sentinel)
}

// RateLimitError carries the verbatim body the service answered with.
type RateLimitError struct {
	Body string
}

func (e *RateLimitError) Error() string {
	return ErrRateLimited.Error()
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// StatusError is a non-2xx response without the rate-limit sentinel.
// 5xx responses are worth retrying; anything else is a rejection.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Is(target error) bool {
	return target == ErrRejected && !e.Retryable()
}

func (e *StatusError) Retryable() bool {
	return e.Code >= 500
}
