package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-project/custodia/internal/common"
)

// RetryPolicy retries an operation on transient storage errors only. Every
// other failure is final: validation errors, duplicates and hash mismatches
// do not get better with repetition.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration

	sleep func(time.Duration)
}

func NewRetryPolicy(attempts int, backoff time.Duration) *RetryPolicy {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryPolicy{Attempts: attempts, Backoff: backoff, sleep: time.Sleep}
}

// Do runs fn up to the attempt budget with linear backoff between tries.
func (p *RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var err error

	for attempt := 1; attempt <= p.Attempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, common.ErrTransientStorage) {
			return err
		}

		if attempt < p.Attempts {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			p.sleep(p.Backoff * time.Duration(attempt))
		}
	}

	return err
}
