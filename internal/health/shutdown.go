package health

import "sync/atomic"

var notReady atomic.Bool

// SetReady flips the readiness gate. Graceful shutdown sets it to false so
// load balancers drain traffic before the listener stops accepting.
func SetReady(v bool) {
	notReady.Store(!v)
}

// IsReady reports the current readiness gate state.
func IsReady() bool {
	return !notReady.Load()
}
