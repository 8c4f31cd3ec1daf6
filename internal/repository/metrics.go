package repository

import "time"

// QueryObserver receives a timing for every repository query.
type QueryObserver func(label string, duration time.Duration)

var queryObserver QueryObserver

// SetQueryObserver installs the hook receiving query timings. Install once
// at startup, before the repositories serve traffic.
func SetQueryObserver(fn QueryObserver) {
	queryObserver = fn
}

func observe(label string, start time.Time) {
	if queryObserver != nil {
		queryObserver(label, time.Since(start))
	}
}
