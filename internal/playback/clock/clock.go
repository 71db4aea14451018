// Package clock abstracts wall time and deferred callbacks for playback.
//
// Controllers never read the wall clock or start goroutines themselves. They
// ask a Clock for the current time and for callbacks after a delay, and the
// Clock decides where those callbacks run. The event loop provides a Clock
// whose callbacks run on the loop goroutine; tests use clocktest.Clock and
// advance time by hand.
package clock

import "time"

// Timer is a pending deferred callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer; false means it already fired or was stopped.
	Stop() bool
}

// Clock provides the current time and deferred callbacks.
type Clock interface {
	Now() time.Time
	// AfterFunc runs fn once after d on the clock's execution sequence.
	AfterFunc(d time.Duration, fn func()) Timer
}
