package domain

import "errors"

// Error taxonomy shared by the pipeline. Wrap with fmt.Errorf("...: %w", ErrX)
// and test with errors.Is.
var (
	// ErrNetwork is a transport failure or a 5xx from an upstream API.
	ErrNetwork = errors.New("network error")
	// ErrMalformedResponse is a payload with an unexpected shape.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrNotFound is a symbol unknown to the market-data provider.
	ErrNotFound = errors.New("symbol not found")
	// ErrInvalidRange is a start date after the end date or outside the allowed window.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrInsufficientData is a window with no bars to fit.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidRequest is a request missing required input.
	ErrInvalidRequest = errors.New("invalid request")
)

// IsRetryable reports whether err is worth retrying against an upstream.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// Code returns a stable snake_case identifier for err, used in metrics labels and session error replies.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "internal"
	}
}
