package session

import "time"

// retrySchedule is the reconnect delay ladder. Attempts beyond the
// ladder repeat the last rung forever; only teardown stops the loop.
var retrySchedule = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
}

// retryDelay returns the wait before reconnect attempt n (1-based).
func retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(retrySchedule) {
		return retrySchedule[len(retrySchedule)-1]
	}
	return retrySchedule[attempt-1]
}
