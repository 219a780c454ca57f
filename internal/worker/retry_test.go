package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxmon/fluxmon/internal/locator"
	"github.com/fluxmon/fluxmon/internal/pricing"
	"github.com/fluxmon/fluxmon/internal/scrape"
)

func TestBaseDelaySchedule(t *testing.T) {
	// 5, 10, 20, 40, 80, 160 seconds, then capped at 300.
	expected := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		80 * time.Second,
		160 * time.Second,
	}
	for attempt, want := range expected {
		assert.Equal(t, want, baseDelay(attempt), "attempt %d", attempt)
	}

	assert.Equal(t, 300*time.Second, baseDelay(6))
	assert.Equal(t, 300*time.Second, baseDelay(7))
	assert.Equal(t, 300*time.Second, baseDelay(40), "shift overflow must still cap")
}

func TestBaseDelayMonotonic(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 0; attempt < 10; attempt++ {
		d := baseDelay(attempt)
		assert.GreaterOrEqual(t, d, prev)
		prev = d
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := backoff(2)
		assert.GreaterOrEqual(t, d, 20*time.Second)
		assert.LessOrEqual(t, d, 23*time.Second)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"navigation timeout", &scrape.NavigationError{URL: "https://x.test", Timeout: true, Err: context.DeadlineExceeded}, true},
		{"navigation failure", &scrape.NavigationError{URL: "https://x.test", Err: errors.New("connection refused")}, true},
		{"extraction not found", locator.ErrExtractionNotFound, true},
		{"numeric parse error", &pricing.ParseError{Raw: "n/a"}, true},
		{"empty input", pricing.ErrEmptyInput, true},
		{"product not found", scrape.ErrProductNotFound, false},
		{"wrapped product not found", fmtWrap(scrape.ErrProductNotFound), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.retryable, Retryable(tc.err))
		})
	}
}

func fmtWrap(err error) error {
	return errors.Join(errors.New("job 7"), err)
}

func TestDecide_Success(t *testing.T) {
	v := Decide(nil, 3)
	assert.Equal(t, Succeed, v.Decision)
}

func TestDecide_RetryWithBackoff(t *testing.T) {
	v := Decide(locator.ErrExtractionNotFound, 0)
	require.Equal(t, Retry, v.Decision)
	assert.GreaterOrEqual(t, v.Delay, 5*time.Second)
	assert.LessOrEqual(t, v.Delay, 8*time.Second)
}

func TestDecide_ExhaustedAttemptsFails(t *testing.T) {
	// After five retryable failures the job becomes permanently failed and
	// no further redelivery is requested.
	v := Decide(locator.ErrExtractionNotFound, 5)
	assert.Equal(t, Fail, v.Decision)
	assert.Zero(t, v.Delay)
}

func TestDecide_ProductNotFoundFailsImmediately(t *testing.T) {
	v := Decide(scrape.ErrProductNotFound, 0)
	assert.Equal(t, Fail, v.Decision)
}
