package button

import (
	"math"
	"time"
)

// Button debounces a single digital input.
//
// IsClicked must be called from one goroutine, and materially more often than
// the debounce window: bounces that are never sampled cannot rearm the window.
//
// Elapsed time is computed modulo 2^32 ms, so a counter wrap between two
// observations is harmless. A line left untouched for a whole counter period
// (about 49.7 days) may have its next click suppressed once.
type Button struct {
	hw     Hardware
	pin    int
	window uint32 // ms
	mode   Mode

	lastLevel  bool   // raw level seen by the previous poll
	lastChange uint32 // Millis() at the last raw transition
	changed    bool   // at least one raw transition observed
	settled    bool   // trusted level, ModeSettled only
	clicked    bool   // result of the previous poll
}

// Option configures a Button.
type Option func(*Button)

// WithDebounce sets the debounce window. It is truncated to whole
// milliseconds; zero disables filtering and negative values count as zero.
func WithDebounce(d time.Duration) Option {
	return func(b *Button) {
		ms := d / time.Millisecond
		switch {
		case ms < 0:
			ms = 0
		case ms > math.MaxUint32:
			ms = math.MaxUint32
		}
		b.window = uint32(ms)
	}
}

// WithMode selects the click detection mode. The default is ModeLeadingEdge.
func WithMode(m Mode) Option {
	return func(b *Button) {
		b.mode = m
	}
}

// New configures pin as an input and returns a Button watching it.
// The current level is read immediately so the first poll never reports a
// click for a button that was already held at startup. The pin is not
// validated here.
func New(hw Hardware, pin int, opts ...Option) *Button {
	b := &Button{
		hw:     hw,
		pin:    pin,
		window: uint32(DefaultDebounce / time.Millisecond),
	}
	for _, opt := range opts {
		opt(b)
	}

	hw.ConfigureInput(pin)
	b.lastLevel = hw.ReadDigital(pin)
	b.settled = b.lastLevel
	return b
}

// IsClicked samples the line and reports whether this sample completes a
// click. Edges that happen entirely between two calls are never reported.
func (b *Button) IsClicked() bool {
	level := b.hw.ReadDigital(b.pin)
	now := b.hw.Millis()

	if b.mode == ModeSettled {
		b.observe(level, now)
		b.clicked = b.settle(level, now)
		return b.clicked
	}

	b.clicked = now-b.lastChange >= b.window && level == High && b.lastLevel == Low
	b.observe(level, now)
	return b.clicked
}

// observe records the raw level, rearming the window on any change.
func (b *Button) observe(level bool, now uint32) {
	if level != b.lastLevel {
		b.lastChange = now
		b.changed = true
	}
	b.lastLevel = level
}

// settle promotes the raw level to the trusted level once it has held for a
// full window. Returns true on a trusted LOW to HIGH transition.
func (b *Button) settle(level bool, now uint32) bool {
	if level == b.settled || now-b.lastChange < b.window {
		return false
	}
	b.settled = level
	return level == High
}

// State reports whether the line is still inside the debounce window of the
// last observed raw transition.
func (b *Button) State() State {
	if b.changed && b.hw.Millis()-b.lastChange < b.window {
		return StateDebouncing
	}
	return StateQuiet
}

// Pin returns the pin this button watches.
func (b *Button) Pin() int {
	return b.pin
}

// Debounce returns the configured debounce window.
func (b *Button) Debounce() time.Duration {
	return time.Duration(b.window) * time.Millisecond
}

// Mode returns the click detection mode.
func (b *Button) Mode() Mode {
	return b.mode
}

// Level returns the raw level recorded by the last poll (or by New).
func (b *Button) Level() bool {
	return b.lastLevel
}
