// Package gesture defines the classified input vocabulary of the playback
// controllers and a clock-driven classifier for raw press/release events.
package gesture

import "strings"

// Gesture is a classified navigation or pause intent.
type Gesture int

const (
	// None is the zero value and carries no intent.
	None Gesture = iota
	// TapLeft asks for the previous slide.
	TapLeft
	// TapRight asks for the next slide.
	TapRight
	// HoldStart pauses playback for the duration of a hold.
	HoldStart
	// HoldEnd releases a hold.
	HoldEnd
)

var names = map[Gesture]string{
	None:      "none",
	TapLeft:   "tap_left",
	TapRight:  "tap_right",
	HoldStart: "hold_start",
	HoldEnd:   "hold_end",
}

func (g Gesture) String() string {
	if name, ok := names[g]; ok {
		return name
	}
	return "unknown"
}

// Parse maps a wire name such as "tap_left" to its gesture.
func Parse(value string) (Gesture, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	for g, name := range names {
		if g != None && name == value {
			return g, true
		}
	}
	return None, false
}

// Zone maps a tap at x on a surface of the given width to a navigation
// gesture. Taps at or left of width*split go back; everything else goes
// forward. A surface without a positive width yields None.
func Zone(x, width, split float64) Gesture {
	if !(width > 0) {
		return None
	}
	if x > width*split {
		return TapRight
	}
	return TapLeft
}
