package upstream

import (
	"context"
	"errors"
	"fmt"

	"StockDash/internal/domain"
	xhttp "StockDash/pkg/http"

	"github.com/sony/gobreaker"
)

// Classify maps an HTTP client failure onto the domain error taxonomy.
// Caller cancellation is passed through untouched so superseded requests are not reported as outages.
func Classify(upstream string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, xhttp.ErrDecode) {
		return fmt.Errorf("%s: %w: %v", upstream, domain.ErrMalformedResponse, err)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: circuit open: %w", upstream, domain.ErrNetwork)
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) && !se.Temporary() {
		return fmt.Errorf("%s: rejected with status %d: %w", upstream, se.Code, domain.ErrMalformedResponse)
	}
	return fmt.Errorf("%s: %w: %v", upstream, domain.ErrNetwork, err)
}

// Result is the metrics label for an upstream outcome.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed"
	default:
		return "error"
	}
}
