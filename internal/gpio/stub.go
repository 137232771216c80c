//go:build !linux

package gpio

import (
	"errors"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

var errUnsupported = errors.New("gpio: character device not supported on this platform (requires Linux)")

// RealPins is not available on non-Linux platforms.
type RealPins struct {
	*Clock
}

// NewRealPins returns an error on non-Linux platforms.
func NewRealPins(chipName string, clk clock.Clock, log *zap.SugaredLogger) (*RealPins, error) {
	return nil, errUnsupported
}

// ConfigureInput is not implemented on non-Linux platforms.
func (r *RealPins) ConfigureInput(pin int) {}

// ReadDigital is not implemented on non-Linux platforms.
func (r *RealPins) ReadDigital(pin int) bool {
	return false
}

// Err always reports the platform as unsupported.
func (r *RealPins) Err(pin int) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealPins) Close() error {
	return nil
}
