//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/zap"
)

// RealPins reads GPIO from actual hardware using Linux GPIO character device.
type RealPins struct {
	*Clock

	chip    *gpiocdev.Chip
	lines   map[int]*gpiocdev.Line
	errs    map[int]error
	last    map[int]bool // last good level per pin
	failing map[int]bool // pin is in a run of read errors
	log     *zap.SugaredLogger
}

// NewRealPins opens the named GPIO chip (e.g. "gpiochip0").
func NewRealPins(chipName string, clk clock.Clock, log *zap.SugaredLogger) (*RealPins, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	return &RealPins{
		Clock:   NewClock(clk),
		chip:    chip,
		lines:   make(map[int]*gpiocdev.Line),
		errs:    make(map[int]error),
		last:    make(map[int]bool),
		failing: make(map[int]bool),
		log:     log,
	}, nil
}

// ConfigureInput requests pin as input with pull-down to match Pi boot
// defaults. A button wired to 3V3 then reads HIGH while pressed.
func (r *RealPins) ConfigureInput(pin int) {
	if l, ok := r.lines[pin]; ok {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			r.errs[pin] = fmt.Errorf("reconfigure pin %d: %w", pin, err)
			r.log.Errorw("gpio reconfigure failed", "pin", pin, "error", err)
		}
		return
	}

	l, err := r.chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		r.errs[pin] = fmt.Errorf("request pin %d: %w", pin, err)
		r.log.Errorw("gpio request failed", "pin", pin, "error", err)
		return
	}
	delete(r.errs, pin)
	r.lines[pin] = l
}

// ReadDigital returns the raw level of pin. On a read error the last good
// level is returned, so a failing line looks stable rather than bouncing.
func (r *RealPins) ReadDigital(pin int) bool {
	l, ok := r.lines[pin]
	if !ok {
		return r.last[pin]
	}

	v, err := l.Value()
	if err != nil {
		if !r.failing[pin] {
			r.log.Warnw("gpio read error", "pin", pin, "error", err)
			r.failing[pin] = true
		}
		return r.last[pin]
	}
	if r.failing[pin] {
		r.log.Infow("gpio read recovered", "pin", pin)
		r.failing[pin] = false
	}

	level := v != 0
	r.last[pin] = level
	return level
}

// Err returns the error recorded while configuring pin.
func (r *RealPins) Err(pin int) error {
	return r.errs[pin]
}

// Close releases GPIO resources.
// Reconfigures lines to input with pull-down (matching Pi boot defaults)
// before closing to ensure clean state for system shutdown/reboot.
func (r *RealPins) Close() error {
	var errs []error

	for pin, l := range r.lines {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
		delete(r.lines, pin)
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	return errors.Join(errs...)
}
