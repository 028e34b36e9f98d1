package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/blinky/internal/events"
)

// DefaultClientID identifies the daemon to the broker.
const DefaultClientID = "blinky"

// client is the subset of paho.Client the publisher uses.
type client interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	BufferSize int
	Logger     *slog.Logger
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed once it comes back.
type RealPublisher struct {
	client client
	topic  string
	logger *slog.Logger

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher for the given broker. The broker not
// being reachable yet is not an error: paho keeps retrying in the background
// and messages are buffered until it connects.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	if opts.Broker == "" {
		return nil, fmt.Errorf("no broker configured")
	}
	if opts.ClientID == "" {
		opts.ClientID = DefaultClientID
	}
	p := newPublisher(nil, opts.BufferSize, opts.Logger)

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: EventOffline})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.logger.Warn("MQTT connection lost", "error", err)
		})

	c := paho.NewClient(co)
	p.client = c

	token := c.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		p.logger.Warn("MQTT broker not reachable yet, buffering", "broker", opts.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func newPublisher(c client, bufferSize int, logger *slog.Logger) *RealPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RealPublisher{
		client: c,
		topic:  Topic,
		logger: logger,
		buf:    newRingBuffer(bufferSize, logger),
	}
}

// Publish sends an LED transition to the MQTT broker.
func (p *RealPublisher) Publish(event events.Transition) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	if err := p.send(bufferedMsg{topic: p.topic, payload: payload}); err != nil {
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

	// QoS 1 (at-least-once) for lifecycle events
	msg := bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}
	if err := p.send(msg); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client != nil && p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if p.client != nil {
		p.client.Disconnect(1000) // 1 second timeout
	}
	return nil
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.IsConnected() {
		p.buf.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.publish(msg)
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("timeout")
	}
	return token.Error()
}

// onConnect replays buffered messages in the order they were published.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	pending := p.buf.drainAll()
	p.mu.Unlock()

	p.logger.Info("MQTT connected", "replaying", len(pending))
	for _, msg := range pending {
		if err := p.publish(msg); err != nil {
			p.logger.Warn("MQTT replay failed", "topic", msg.topic, "error", err)
		}
	}
}
