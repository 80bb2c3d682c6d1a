package helpers

import (
	"time"
)

// Poll calls check once immediately, and then again at each interval, until it returns true or
// returns an error or the timeout elapses. It never blocks for longer than the timeout plus the
// duration of one call to check.
//
// The return values are whether the condition was satisfied, how long Poll waited in total, and
// the error returned by check if any.
func Poll(
	check func() (bool, error),
	timeout time.Duration,
	interval time.Duration,
) (bool, time.Duration, error) {
	start := time.Now()
	if ok, err := check(); ok || err != nil {
		return ok, time.Since(start), err
	}
	if timeout <= 0 {
		return false, time.Since(start), nil
	}
	if interval <= 0 {
		interval = timeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case <-deadline.C:
			return false, time.Since(start), nil
		case <-ticker.C:
			if ok, err := check(); ok || err != nil {
				return ok, time.Since(start), err
			}
		}
	}
}
