package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/infrastructure/logger"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// RetryPolicy bounds how often a storage call is attempted. The delay before
// retry n (counting from zero) is BaseDelay*2^n, capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Sleep blocks between attempts. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Sleep:       time.Sleep,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.Sleep == nil {
		p.Sleep = time.Sleep
	}
	return p
}

func (p RetryPolicy) backoff() retry.Backoff {
	return retry.WithCappedDuration(p.MaxDelay, retry.NewExponential(p.BaseDelay))
}

// Delays returns the schedule of waits between attempts.
func (p RetryPolicy) Delays() []time.Duration {
	p = p.normalized()
	b := p.backoff()
	delays := make([]time.Duration, 0, p.MaxAttempts-1)
	for i := 1; i < p.MaxAttempts; i++ {
		d, _ := b.Next()
		delays = append(delays, d)
	}
	return delays
}

// permanent reports whether retrying err cannot help.
func permanent(err error) bool {
	return errors.Is(err, domain.ErrStorageFatal) ||
		errors.Is(err, domain.ErrObjectNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// run calls fn until it succeeds, fails permanently or the attempts are used
// up. Exhaustion is reported as domain.ErrTransientStorage.
func (p RetryPolicy) run(ctx context.Context, op string, fn func() error) error {
	p = p.normalized()
	b := p.backoff()

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay, _ := b.Next()
			logger.Warn.Printf("storage op=%s attempt=%d/%d retry_in=%s error=%v",
				op, attempt, p.MaxAttempts, delay, lastErr)
			p.Sleep(delay)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		if permanent(err) {
			return err
		}
		lastErr = err
	}
	return domain.Wrap(domain.ErrTransientStorage, op,
		fmt.Sprintf("gave up after %d attempts", p.MaxAttempts), lastErr)
}
