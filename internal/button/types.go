// Package button turns the raw level of a mechanical push button into
// debounced, single-fire click events.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Hardware access and the millisecond clock are injected through Hardware.
package button

import "time"

// Hardware is the I/O capability a Button consumes.
// Implementations are assumed infallible: adapters that can fail must
// surface the failure on their own side (see internal/gpio).
type Hardware interface {
	// ConfigureInput sets the pin up as a digital input. Called once by New.
	ConfigureInput(pin int)

	// ReadDigital returns the instantaneous logic level of the pin (true = HIGH).
	ReadDigital(pin int) bool

	// Millis returns milliseconds since an arbitrary fixed epoch.
	// The counter may wrap at 2^32.
	Millis() uint32
}

// Logic levels.
const (
	High = true
	Low  = false
)

// DefaultDebounce is the debounce window used when WithDebounce is not given.
const DefaultDebounce = 50 * time.Millisecond

// Mode selects how a Button decides that a click happened.
type Mode int

const (
	// ModeLeadingEdge reports a click on the first LOW to HIGH edge seen after
	// the line has been quiet for a full window. Every raw edge rearms the
	// window, so bounces right after the edge are ignored.
	ModeLeadingEdge Mode = iota

	// ModeSettled reports a click once the line has read HIGH, unchanged, for a
	// full window after previously settling LOW.
	ModeSettled
)

func (m Mode) String() string {
	switch m {
	case ModeLeadingEdge:
		return "leading-edge"
	case ModeSettled:
		return "settled"
	}
	return "unknown"
}

// State is the debounce state of a line.
type State string

const (
	// StateQuiet means no raw change has been seen within the last window.
	StateQuiet State = "QUIET"
	// StateDebouncing means the raw level changed less than a window ago.
	StateDebouncing State = "DEBOUNCING"
)

// Click is a detected button press, stamped by the host loop.
type Click struct {
	Timestamp time.Time
	Pin       int
	Count     int // clicks on this pin since startup, including this one
}
