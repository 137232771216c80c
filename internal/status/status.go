// Package status provides a thread-safe status tracker for the click-sensor daemon.
// It is written by the poll loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/click-sensor/internal/button"
)

// Config contains daemon configuration for display.
type Config struct {
	Pin        int
	PollMs     int64
	DebounceMs int64
	Mode       string
	Broker     string
	HTTPAddr   string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Level         bool         // raw level at the last poll
	State         button.State // debounce state at the last poll
	Clicks        int
	LastClick     time.Time // zero until the first click
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker that reads time from now (time.Now or a
// clock.Clock's Now). The start time is taken from now immediately.
func NewTracker(now func() time.Time, cfg Config) *Tracker {
	return &Tracker{
		now: now,
		snap: Snapshot{
			State:     button.StateQuiet,
			StartTime: now(),
			Config:    cfg,
		},
	}
}

// Update sets the raw level and debounce state.
// Called from runLoop on every tick.
func (t *Tracker) Update(level bool, state button.State) {
	t.mu.Lock()
	t.snap.Level = level
	t.snap.State = state
	t.mu.Unlock()
}

// RecordClick stores the click count and time.
func (t *Tracker) RecordClick(c button.Click) {
	t.mu.Lock()
	t.snap.Clicks = c.Count
	t.snap.LastClick = c.Timestamp
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// Now is read from the tracker's clock.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
