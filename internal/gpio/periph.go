package gpio

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphPins reads GPIO through periph.io's host drivers (sysfs, /dev/mem).
// Pins are addressed by BCM number and looked up as "GPIO<n>".
type PeriphPins struct {
	*Clock

	pins map[int]pgpio.PinIO
	errs map[int]error
	log  *zap.SugaredLogger
}

// NewPeriphPins initializes the periph.io host drivers.
func NewPeriphPins(clk clock.Clock, log *zap.SugaredLogger) (*PeriphPins, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	return &PeriphPins{
		Clock: NewClock(clk),
		pins:  make(map[int]pgpio.PinIO),
		errs:  make(map[int]error),
		log:   log,
	}, nil
}

// ConfigureInput sets pin as input with pull-down and no edge detection.
func (p *PeriphPins) ConfigureInput(pin int) {
	io := gpioreg.ByName(pinName(pin))
	if io == nil {
		p.errs[pin] = fmt.Errorf("pin %s not found", pinName(pin))
		p.log.Errorw("gpio pin not found", "pin", pin)
		return
	}
	if err := io.In(pgpio.PullDown, pgpio.NoEdge); err != nil {
		p.errs[pin] = fmt.Errorf("configure pin %d: %w", pin, err)
		p.log.Errorw("gpio configure failed", "pin", pin, "error", err)
		return
	}
	delete(p.errs, pin)
	p.pins[pin] = io
}

// ReadDigital returns the raw level of pin, LOW for unconfigured pins.
func (p *PeriphPins) ReadDigital(pin int) bool {
	io, ok := p.pins[pin]
	if !ok {
		return false
	}
	return io.Read() == pgpio.High
}

// Err returns the error recorded while configuring pin.
func (p *PeriphPins) Err(pin int) error {
	return p.errs[pin]
}

// Close forgets configured pins. periph.io holds no per-pin handles.
func (p *PeriphPins) Close() error {
	p.pins = make(map[int]pgpio.PinIO)
	return nil
}
