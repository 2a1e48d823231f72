package domain

import "github.com/jonboulle/clockwork"

// clock stamps generated reports. Tests freeze it via SetClock so report
// output is byte-for-byte reproducible.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used for report timestamps. Pass nil to reset
// to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
