package worker

import (
	"errors"
	"math/rand"
	"time"

	"github.com/fluxmon/fluxmon/internal/scrape"
)

// Decision is the retry controller's verdict on a finished attempt.
type Decision int

const (
	// Succeed acknowledges the job and removes it from delivery.
	Succeed Decision = iota

	// Retry schedules redelivery of the same job after Verdict.Delay.
	Retry

	// Fail is terminal: the job is acknowledged with no redelivery.
	Fail
)

const (
	maxAttempts      = 5
	baseDelaySeconds = 5
	delayCapSeconds  = 300
	maxJitter        = 3 * time.Second
)

// Verdict is the controller's output for one attempt.
type Verdict struct {
	Decision Decision
	Delay    time.Duration
}

// Retryable reports whether redelivery can plausibly fix the failure.
// Navigation timeouts, extraction misses, and parse errors are all transient
// noise from untrusted markup; only a missing product row is permanent.
func Retryable(err error) bool {
	return !errors.Is(err, scrape.ErrProductNotFound)
}

// Decide maps one attempt's outcome to the next job state. The attempt count
// is explicit input from the queue adapter; the controller holds no state of
// its own. A non-retryable failure fails immediately without any redelivery.
func Decide(err error, attempt int) Verdict {
	if err == nil {
		return Verdict{Decision: Succeed}
	}
	if !Retryable(err) {
		return Verdict{Decision: Fail}
	}
	if attempt >= maxAttempts {
		return Verdict{Decision: Fail}
	}
	return Verdict{Decision: Retry, Delay: backoff(attempt)}
}

// baseDelay is the deterministic backoff component: min(300, 5*2^attempt)
// seconds. It rises monotonically until the cap.
func baseDelay(attempt int) time.Duration {
	seconds := baseDelaySeconds << uint(attempt)
	if seconds > delayCapSeconds || seconds <= 0 {
		seconds = delayCapSeconds
	}
	return time.Duration(seconds) * time.Second
}

// backoff adds uniform jitter of up to 3s to spread redeliveries out.
func backoff(attempt int) time.Duration {
	return baseDelay(attempt) + time.Duration(rand.Int63n(int64(maxJitter)+1))
}
