package worker

import "time"

// RetryPolicy controls how failed sync tasks are retried. Delays grow
// geometrically from InitialDelay and never exceed MaxDelay; once a task
// has burned MaxRetries attempts it moves to the dead-letter list.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns the wait before the given 1-based attempt. Zero-value
// fields fall back to a 1s initial delay doubling per attempt.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	initial := r.InitialDelay
	if initial <= 0 {
		initial = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	delay := float64(initial)
	for i := 1; i < attempt; i++ {
		delay *= factor
		if r.MaxDelay > 0 && delay >= float64(r.MaxDelay) {
			return r.MaxDelay
		}
	}
	return time.Duration(delay)
}
