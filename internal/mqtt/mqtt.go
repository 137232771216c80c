// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/click-sensor/internal/button"
)

// Topic is the MQTT topic for click events.
const Topic = "home/button/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/button/system"

// EventClick is the event name carried by click payloads.
const EventClick = "CLICK"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a click event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(click button.Click) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, offline).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Click ClickPayload `json:"click"`
}

// ClickPayload contains the click event details.
type ClickPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Pin       int    `json:"pin"`
	Count     int    `json:"count"`
}

// FormatPayload creates the JSON payload for a click event.
func FormatPayload(click button.Click) ([]byte, error) {
	payload := Payload{
		Click: ClickPayload{
			Timestamp: click.Timestamp.UTC().Format(time.RFC3339),
			Event:     EventClick,
			Pin:       click.Pin,
			Count:     click.Count,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (last will, shutdown without tracker) that don't
// carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// WillPayload is the retained last-will message the broker publishes on
// TopicSystem if the connection drops without a clean disconnect.
// connectedAt is the time the will was registered.
func WillPayload(connectedAt time.Time) []byte {
	data, _ := FormatSystemPayload(SystemEvent{
		Timestamp: connectedAt,
		Event:     "OFFLINE",
		Reason:    "CONNECTION_LOST",
	})
	return data
}
