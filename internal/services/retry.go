package services

import "time"

const DefaultMaxRetries = 3

// RetryPolicy decides how often a failing queue item is retried before it
// is dropped, and how long to wait between attempts.
type RetryPolicy struct {
	MaxRetries int
	// Backoff returns the delay before attempt retry+1. Nil retries on the next flush.
	Backoff func(retry int) time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: DefaultMaxRetries}
}

// ExponentialBackoff doubles base per retry, capped at limit.
func ExponentialBackoff(base, limit time.Duration) func(int) time.Duration {
	return func(retry int) time.Duration {
		if retry < 1 {
			retry = 1
		}
		d := base
		for i := 1; i < retry; i++ {
			d *= 2
			if d >= limit {
				return limit
			}
		}
		return d
	}
}

// nextAttempt returns when an item that has failed retry times becomes due.
func (p RetryPolicy) nextAttempt(retry int, now time.Time) *time.Time {
	if p.Backoff == nil {
		return nil
	}
	d := p.Backoff(retry)
	if d <= 0 {
		return nil
	}
	t := now.Add(d)
	return &t
}
