package ocrserver

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchFailed is matched by every request that could not be completed.
	ErrFetchFailed = errors.New("ocrserver: request failed")

	// ErrTimeout is matched by requests that exceeded their deadline.
	ErrTimeout = errors.New("ocrserver: request timed out")

	// ErrMalformedPayload is matched by responses that are not a region array
	// or that carry an explicit error.
	ErrMalformedPayload = errors.New("ocrserver: malformed payload")

	// ErrResponseTooLarge is matched by responses over the body size limit.
	ErrResponseTooLarge = errors.New("ocrserver: response too large")

	// ErrNotChapter is returned when a URL does not name a chapter.
	ErrNotChapter = errors.New("ocrserver: URL does not match /manga/<id>/chapter/<id>")
)

// Kind classifies a failed request.
type Kind int

const (
	// KindConnection means the server could not be reached.
	KindConnection Kind = iota
	// KindTimeout means the request exceeded its deadline.
	KindTimeout
	// KindStatus means the server answered with an unexpected status code.
	KindStatus
	// KindPayload means the response body could not be used.
	KindPayload
	// KindServer means the server reported an error in its response body.
	KindServer
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "status"
	case KindPayload:
		return "payload"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// FetchError describes a failed request to the OCR server.
type FetchError struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("ocrserver: %s error for %s: %v", e.Kind, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the package sentinels by kind.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrFetchFailed:
		return true
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrMalformedPayload:
		return e.Kind == KindPayload || e.Kind == KindServer
	default:
		return false
	}
}
