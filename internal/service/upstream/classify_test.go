package upstream

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"StockDash/internal/domain"
	xhttp "StockDash/pkg/http"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"decode", fmt.Errorf("%w: eof", xhttp.ErrDecode), domain.ErrMalformedResponse},
		{"server error", &xhttp.StatusError{Code: 503}, domain.ErrNetwork},
		{"throttled", &xhttp.StatusError{Code: 429}, domain.ErrNetwork},
		{"client error", &xhttp.StatusError{Code: 400}, domain.ErrMalformedResponse},
		{"breaker", gobreaker.ErrOpenState, domain.ErrNetwork},
		{"transport", errors.New("dial tcp: connection refused"), domain.ErrNetwork},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, Classify("test", tc.in), tc.want)
		})
	}
}

func TestClassifyPassesCancellationThrough(t *testing.T) {
	err := Classify("test", fmt.Errorf("request failed: %w", context.Canceled))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrNetwork)
	assert.Equal(t, "canceled", Result(err))
}
