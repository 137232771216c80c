// Package gpio provides digital input access with hardware abstraction.
// The real implementation uses the Linux GPIO character device, with a
// periph.io backend for hosts where the character device is unavailable.
// The fake implementation allows testing without hardware.
package gpio

import "fmt"

// Pins is a GPIO backend that can drive a button.Button.
type Pins interface {
	// ConfigureInput requests the pin as a digital input. Failures are not
	// returned here; check Err afterwards.
	ConfigureInput(pin int)

	// ReadDigital returns the raw level of the pin (true = HIGH).
	ReadDigital(pin int) bool

	// Millis returns milliseconds since the backend was opened, wrapping at 2^32.
	Millis() uint32

	// Err returns the error recorded when configuring pin, if any.
	Err(pin int) error

	// Close releases GPIO resources.
	Close() error
}

// Defaults (BCM numbering)
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 17
)

// Consumer is the label attached to requested lines.
const Consumer = "click-sensor"

// pinName returns the BCM name periph.io registers for pin.
func pinName(pin int) string {
	return fmt.Sprintf("GPIO%d", pin)
}
