package gpio

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Clock is a wrapping millisecond counter anchored at its creation time.
type Clock struct {
	clk   clock.Clock
	epoch time.Time
}

// NewClock starts a millisecond counter on clk.
// Use clock.New() in production and clock.NewMock() in tests.
func NewClock(clk clock.Clock) *Clock {
	return &Clock{clk: clk, epoch: clk.Now()}
}

// Millis returns milliseconds since NewClock, modulo 2^32.
func (c *Clock) Millis() uint32 {
	return uint32(c.clk.Since(c.epoch).Milliseconds())
}
