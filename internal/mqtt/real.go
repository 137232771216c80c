package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sweeney/click-sensor/internal/button"
)

const (
	// bufferCapacity bounds how many messages are held while the broker is unreachable.
	bufferCapacity = 100

	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// RealPublisher publishes to an actual MQTT broker.
// Messages published while disconnected are buffered and replayed, oldest
// first, when the connection comes back.
type RealPublisher struct {
	client paho.Client
	log    *zap.SugaredLogger

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher starts connecting to the given broker. It does not fail
// when the broker is unreachable: paho keeps retrying in the background and
// messages are buffered until the first connection succeeds.
func NewRealPublisher(broker, clientID string, log *zap.SugaredLogger) *RealPublisher {
	p := newPublisher(nil, log)

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(WillPayload(time.Now())), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnw("mqtt connection lost", "broker", broker, "error", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Warnw("mqtt connect timeout, retrying in background", "broker", broker)
	} else if err := token.Error(); err != nil {
		log.Warnw("mqtt connect failed, retrying in background", "broker", broker, "error", err)
	}

	return p
}

func newPublisher(client paho.Client, log *zap.SugaredLogger) *RealPublisher {
	return &RealPublisher{
		client: client,
		log:    log,
		buf:    newRingBuffer(bufferCapacity),
	}
}

// onConnect replays buffered messages. paho calls it on its own goroutine
// after every successful (re)connection.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	pending := p.buf.drainAll()
	p.mu.Unlock()

	if len(pending) > 0 {
		p.log.Infow("mqtt connected, replaying buffered messages", "count", len(pending))
	} else {
		p.log.Infow("mqtt connected")
	}
	for _, msg := range pending {
		if err := wait(c.Publish(msg.topic, msg.qos, msg.retained, msg.payload)); err != nil {
			p.log.Warnw("mqtt replay failed", "topic", msg.topic, "error", err)
		}
	}
}

// Publish sends a click event to the MQTT broker.
func (p *RealPublisher) Publish(click button.Click) error {
	payload, err := FormatPayload(click)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 1 (at-least-once), not retained
	if err := p.publish(bufferedMsg{topic: Topic, payload: payload, qos: 1}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	msg := bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}
	if err := p.publish(msg); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	// The check and the push share the lock with onConnect's drain: paho marks
	// the connection open before calling onConnect, so a message buffered
	// here is always seen by the next drain.
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		first := p.buf.push(msg)
		p.mu.Unlock()
		if first {
			p.log.Warnw("mqtt buffer full, dropping oldest", "capacity", bufferCapacity)
		}
		return nil
	}
	p.mu.Unlock()

	return wait(p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload))
}

// wait blocks on token for at most publishTimeout.
func wait(token paho.Token) error {
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timeout after %v", publishTimeout)
	}
	return token.Error()
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
