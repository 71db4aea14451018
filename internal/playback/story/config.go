package story

import "time"

const (
	// DefaultSlideDuration is the time a slide stays active without input.
	DefaultSlideDuration = 5 * time.Second
	// DefaultHoldThreshold separates a tap from a hold.
	DefaultHoldThreshold = 200 * time.Millisecond
	// DefaultTapZoneSplit is the fraction of the width mapped to "previous".
	DefaultTapZoneSplit = 0.25
	// DefaultSettleDelay is the pause between a full indicator and advancing.
	DefaultSettleDelay = 200 * time.Millisecond
	// DefaultIndicatorGap is the spacing between indicators, in host units.
	DefaultIndicatorGap = 4.0
)

// Colors carries presentation values through to the host unvalidated.
type Colors struct {
	IndicatorBackground string
	IndicatorProgress   string
	Gradient            []string
}

// Config is the session configuration. The zero value, once normalised, is
// the canonical behaviour: hold-to-pause, previous-user navigation and
// spotlight pausing all enabled, indicators always visible.
type Config struct {
	SlideDuration time.Duration
	HoldThreshold time.Duration
	TapZoneSplit  float64
	SettleDelay   time.Duration
	IndicatorGap  float64
	InitialUser   int
	Colors        Colors

	DisableHoldToPause        bool
	DisablePreviousUser       bool
	HideIndicators            bool
	HideIndicatorsWhilePaused bool
}

// DefaultConfig returns the canonical configuration with defaults filled in.
func DefaultConfig() Config {
	return Config{}.Normalized()
}

// LegacyProfile returns the reduced behaviour of the first stories screen:
// no previous-user navigation and indicators hidden while a hold is in
// progress.
func LegacyProfile() Config {
	cfg := DefaultConfig()
	cfg.DisablePreviousUser = true
	cfg.HideIndicatorsWhilePaused = true
	return cfg
}

// Normalized replaces out-of-range values with defaults. It never fails:
// playback must stay responsive whatever the host passes in.
func (c Config) Normalized() Config {
	if c.SlideDuration <= 0 {
		c.SlideDuration = DefaultSlideDuration
	}
	if c.HoldThreshold <= 0 {
		c.HoldThreshold = DefaultHoldThreshold
	}
	if c.TapZoneSplit <= 0 || c.TapZoneSplit >= 1 {
		c.TapZoneSplit = DefaultTapZoneSplit
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.IndicatorGap <= 0 {
		c.IndicatorGap = DefaultIndicatorGap
	}
	if c.InitialUser < 0 {
		c.InitialUser = 0
	}
	return c
}

// SlideDurationFor returns the effective duration of slide.
func (c Config) SlideDurationFor(slide Slide) time.Duration {
	if slide.Duration > 0 {
		return slide.Duration
	}
	if c.SlideDuration > 0 {
		return c.SlideDuration
	}
	return DefaultSlideDuration
}

// ClampIndex bounds index to [0, count-1]. It returns 0 for empty sequences.
func ClampIndex(index, count int) int {
	if count <= 0 || index < 0 {
		return 0
	}
	if index >= count {
		return count - 1
	}
	return index
}
