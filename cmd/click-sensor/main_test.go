package main

import (
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/sweeney/click-sensor/internal/button"
	"github.com/sweeney/click-sensor/internal/gpio"
	"github.com/sweeney/click-sensor/internal/mqtt"
	"github.com/sweeney/click-sensor/internal/status"
)

var (
	low  = button.Low
	high = button.High
)

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Only called from runLoop's goroutine.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// runRunLoop builds a button over the scripted samples and drives runLoop with
// one tick per remaining sample (New consumes the first one), then signal.
func runRunLoop(t *testing.T, samples []gpio.Sample, pub *mqtt.FakePublisher, tracker *status.Tracker, signal os.Signal, opts ...button.Option) *gpio.FakePins {
	t.Helper()
	pins := gpio.NewFakePins(samples)
	btn := button.New(pins, gpio.DefaultPin, opts...)

	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	now := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	log := zaptest.NewLogger(t).Sugar()

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(btn, pub, pub, tracker, now, tick, sig, log)
	}()

	for i := 1; i < len(samples); i++ {
		tick <- time.Time{}
	}
	sig <- signal

	if err := <-errCh; err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	return pins
}

func newTestTracker() *status.Tracker {
	return status.NewTracker(time.Now, status.Config{Pin: gpio.DefaultPin})
}

func TestRunLoopNoClicksWhenStable(t *testing.T) {
	samples := gpio.Track(0, 5, gpio.Step{Level: low, N: 40})
	pub := mqtt.NewFakePublisher()

	pins := runRunLoop(t, samples, pub, nil, syscall.SIGTERM)

	if len(pub.Clicks) != 0 {
		t.Errorf("expected 0 clicks, got %d", len(pub.Clicks))
	}
	if pins.Reads() != len(samples) {
		t.Errorf("expected %d reads, got %d", len(samples), pins.Reads())
	}

	if len(pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(pub.SystemEvents))
	}
	if pub.SystemEvents[0].Event != "SHUTDOWN" {
		t.Errorf("expected SHUTDOWN event, got %q", pub.SystemEvents[0].Event)
	}
}

func TestRunLoopSingleClick(t *testing.T) {
	// Low 0..70ms, HIGH from 80ms: rising edge well past the window.
	samples := gpio.Track(0, 10,
		gpio.Step{Level: low, N: 8},
		gpio.Step{Level: high, N: 4},
	)
	pub := mqtt.NewFakePublisher()

	runRunLoop(t, samples, pub, nil, syscall.SIGTERM)

	if len(pub.Clicks) != 1 {
		t.Fatalf("expected 1 click, got %d", len(pub.Clicks))
	}
	c := pub.Clicks[0]
	if c.Pin != gpio.DefaultPin {
		t.Errorf("Pin: got %d, want %d", c.Pin, gpio.DefaultPin)
	}
	if c.Count != 1 {
		t.Errorf("Count: got %d, want 1", c.Count)
	}
	if c.Timestamp.IsZero() {
		t.Error("expected click timestamp to be set")
	}
}

func TestRunLoopHeldAtStartup(t *testing.T) {
	samples := gpio.Track(0, 10, gpio.Step{Level: high, N: 20})
	pub := mqtt.NewFakePublisher()

	runRunLoop(t, samples, pub, nil, syscall.SIGTERM)

	if len(pub.Clicks) != 0 {
		t.Errorf("expected no click for a button held at startup, got %d", len(pub.Clicks))
	}
}

func TestRunLoopBounceBurstCountsOnce(t *testing.T) {
	samples := gpio.Track(0, 10,
		gpio.Step{Level: low, N: 8},  // 0..70
		gpio.Step{Level: high, N: 1}, // 80: click
		gpio.Step{Level: low, N: 1},
		gpio.Step{Level: high, N: 1},
		gpio.Step{Level: low, N: 1},
		gpio.Step{Level: high, N: 4}, // 120..150
	)
	pub := mqtt.NewFakePublisher()

	runRunLoop(t, samples, pub, nil, syscall.SIGTERM)

	if len(pub.Clicks) != 1 {
		t.Errorf("expected 1 click for a bounce burst, got %d", len(pub.Clicks))
	}
}

func TestRunLoopCountsSuccessivePresses(t *testing.T) {
	samples := gpio.Track(0, 10,
		gpio.Step{Level: low, N: 8},  // 0..70
		gpio.Step{Level: high, N: 9}, // 80..160: first click
		gpio.Step{Level: low, N: 8},  // 170..240
		gpio.Step{Level: high, N: 3}, // 250: second click
	)
	pub := mqtt.NewFakePublisher()
	tracker := newTestTracker()

	runRunLoop(t, samples, pub, tracker, syscall.SIGTERM)

	if len(pub.Clicks) != 2 {
		t.Fatalf("expected 2 clicks, got %d", len(pub.Clicks))
	}
	for i, c := range pub.Clicks {
		if c.Count != i+1 {
			t.Errorf("click %d: Count got %d, want %d", i, c.Count, i+1)
		}
	}
	if !pub.Clicks[1].Timestamp.After(pub.Clicks[0].Timestamp) {
		t.Error("expected click timestamps to increase")
	}

	snap := tracker.Snapshot()
	if snap.Clicks != 2 {
		t.Errorf("tracker Clicks: got %d, want 2", snap.Clicks)
	}
	if !snap.LastClick.Equal(pub.Clicks[1].Timestamp) {
		t.Errorf("tracker LastClick: got %v, want %v", snap.LastClick, pub.Clicks[1].Timestamp)
	}
}

func TestRunLoopSettledMode(t *testing.T) {
	// HIGH at 30ms, trusted once it has held for 50ms (at 80ms).
	samples := gpio.Track(0, 10,
		gpio.Step{Level: low, N: 3},
		gpio.Step{Level: high, N: 10},
	)
	pub := mqtt.NewFakePublisher()

	runRunLoop(t, samples, pub, nil, syscall.SIGTERM, button.WithMode(button.ModeSettled))

	if len(pub.Clicks) != 1 {
		t.Errorf("expected 1 click, got %d", len(pub.Clicks))
	}
}

func TestRunLoopPublishErrorDoesNotStopLoop(t *testing.T) {
	samples := gpio.Track(0, 10,
		gpio.Step{Level: low, N: 8},
		gpio.Step{Level: high, N: 4},
	)
	pub := mqtt.NewFakePublisher()
	pub.PublishError = errors.New("broker down")
	tracker := newTestTracker()

	pins := runRunLoop(t, samples, pub, tracker, syscall.SIGTERM)

	if pins.Reads() != len(samples) {
		t.Errorf("expected polling to continue after publish error: %d reads, want %d", pins.Reads(), len(samples))
	}
	if tracker.Snapshot().Clicks != 1 {
		t.Errorf("expected click counted despite publish error, got %d", tracker.Snapshot().Clicks)
	}
	if len(pub.SystemEvents) != 1 || pub.SystemEvents[0].Event != "SHUTDOWN" {
		t.Errorf("expected SHUTDOWN after publish errors, got %+v", pub.SystemEvents)
	}
}

func TestRunLoopShutdownReason(t *testing.T) {
	tests := []struct {
		sig  os.Signal
		want string
	}{
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGHUP, "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			pub := mqtt.NewFakePublisher()
			samples := gpio.Track(0, 5, gpio.Step{Level: low, N: 2})

			runRunLoop(t, samples, pub, newTestTracker(), tt.sig)

			if len(pub.SystemEvents) != 1 {
				t.Fatalf("expected 1 system event, got %d", len(pub.SystemEvents))
			}
			ev := pub.SystemEvents[0]
			if ev.Reason != tt.want {
				t.Errorf("Reason: got %q, want %q", ev.Reason, tt.want)
			}
			if !ev.Retained {
				t.Error("expected SHUTDOWN to be retained")
			}
			payload := string(pub.SystemPayloads[0])
			if !strings.Contains(payload, `"event":"SHUTDOWN"`) || !strings.Contains(payload, tt.want) {
				t.Errorf("unexpected payload: %s", payload)
			}
		})
	}
}

func TestRunLoopShutdownPublishError(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.PublishSystemError = errors.New("broker down")
	samples := gpio.Track(0, 5, gpio.Step{Level: low, N: 2})

	// runRunLoop fails the test if runLoop returns an error.
	runRunLoop(t, samples, pub, nil, syscall.SIGINT)
}

func TestRunLoopUpdatesTracker(t *testing.T) {
	samples := gpio.Track(0, 10,
		gpio.Step{Level: low, N: 8},
		gpio.Step{Level: high, N: 2}, // last poll at 90ms, 10ms after the edge
	)
	pub := mqtt.NewFakePublisher()
	pub.Connected = true
	tracker := newTestTracker()

	runRunLoop(t, samples, pub, tracker, syscall.SIGTERM)

	snap := tracker.Snapshot()
	if !snap.Level {
		t.Error("expected tracker Level=HIGH")
	}
	if snap.State != button.StateDebouncing {
		t.Errorf("State: got %q, want %q", snap.State, button.StateDebouncing)
	}
	if !snap.MQTTConnected {
		t.Error("expected tracker MQTTConnected=true")
	}
}

func TestSignalName(t *testing.T) {
	if got := signalName(syscall.SIGINT); got != "SIGINT" {
		t.Errorf("SIGINT: got %q", got)
	}
	if got := signalName(syscall.SIGTERM); got != "SIGTERM" {
		t.Errorf("SIGTERM: got %q", got)
	}
	if got := signalName(syscall.SIGUSR1); got != "UNKNOWN" {
		t.Errorf("SIGUSR1: got %q", got)
	}
}

func TestUndersampled(t *testing.T) {
	tests := []struct {
		poll, debounce time.Duration
		want           bool
	}{
		{5 * time.Millisecond, 50 * time.Millisecond, false},
		{25 * time.Millisecond, 50 * time.Millisecond, false},
		{26 * time.Millisecond, 50 * time.Millisecond, true},
		{100 * time.Millisecond, 50 * time.Millisecond, true},
		{5 * time.Millisecond, 0, false},
	}

	for _, tt := range tests {
		if got := undersampled(tt.poll, tt.debounce); got != tt.want {
			t.Errorf("undersampled(%v, %v) = %v, want %v", tt.poll, tt.debounce, got, tt.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Pin != 17 {
		t.Errorf("Pin: got %d, want 17", cfg.Pin)
	}
	if cfg.Debounce != 50*time.Millisecond {
		t.Errorf("Debounce: got %v, want 50ms", cfg.Debounce)
	}
	if cfg.Mode != button.ModeLeadingEdge {
		t.Errorf("Mode: got %v, want leading-edge", cfg.Mode)
	}
	if cfg.Chip != "gpiochip0" {
		t.Errorf("Chip: got %q, want gpiochip0", cfg.Chip)
	}
	if undersampled(cfg.Poll, cfg.Debounce) {
		t.Errorf("default poll %v is too coarse for debounce %v", cfg.Poll, cfg.Debounce)
	}
}
