package fbads

import (
	"errors"
	"fmt"
)

// Sentinel kinds for platform failures. Callers match with errors.Is;
// raw transport errors never cross the package boundary.
var (
	ErrRateLimited         = errors.New("rate limited")
	ErrPlatformUnavailable = errors.New("platform unavailable")
	ErrNotFound            = errors.New("entity not found")
	ErrForbidden           = errors.New("permission denied")
	ErrConflict            = errors.New("conflicting entity state")
	ErrPartialData         = errors.New("partial data")
	ErrTokenExpired        = errors.New("access token expired")
)

// APIError is a classified Graph API error. Unwrap yields the sentinel
// kind so errors.Is(err, fbads.ErrRateLimited) works through wrapping.
type APIError struct {
	kind      error
	GraphCode int
	Subcode   int
	Message   string
	TraceID   string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("graph error %d: %v", e.GraphCode, e.kind)
	}
	return fmt.Sprintf("graph error %d: %s", e.GraphCode, e.Message)
}

// Unwrap returns the sentinel kind of the error.
func (e *APIError) Unwrap() error {
	return e.kind
}

// Kind returns a short machine name for logging.
func (e *APIError) Kind() string {
	switch e.kind {
	case ErrRateLimited:
		return "rate_limited"
	case ErrPlatformUnavailable:
		return "unavailable"
	case ErrNotFound:
		return "not_found"
	case ErrForbidden:
		return "forbidden"
	case ErrConflict:
		return "conflict"
	case ErrPartialData:
		return "partial"
	case ErrTokenExpired:
		return "token_expired"
	default:
		return "unknown"
	}
}

// graphError mirrors the error envelope returned by the Graph API.
type graphError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	Subcode   int    `json:"error_subcode"`
	FBTraceID string `json:"fbtrace_id"`
}

// classify maps Graph error codes to the sentinel taxonomy.
func classify(ge graphError, httpStatus int) *APIError {
	kind := ErrPlatformUnavailable
	switch ge.Code {
	case 4, 17, 32, 613:
		kind = ErrRateLimited
	case 10, 200, 273, 294:
		kind = ErrForbidden
	case 100:
		kind = ErrNotFound
	case 190:
		// Subcodes 460/463/467 are the expiry variants, but any code
		// 190 means the token is unusable.
		kind = ErrTokenExpired
	default:
		switch {
		case httpStatus == 429:
			kind = ErrRateLimited
		case httpStatus == 404:
			kind = ErrNotFound
		case httpStatus == 403:
			kind = ErrForbidden
		case httpStatus == 409:
			kind = ErrConflict
		case httpStatus >= 500:
			kind = ErrPlatformUnavailable
		}
	}
	return &APIError{
		kind:      kind,
		GraphCode: ge.Code,
		Subcode:   ge.Subcode,
		Message:   ge.Message,
		TraceID:   ge.FBTraceID,
	}
}

// Retryable reports whether a read call may be retried with backoff.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
