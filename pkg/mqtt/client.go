// Package mqtt wraps the paho MQTT client and exposes inbound traffic as an event stream.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/denwilliams/go-mqtt-sensor/pkg/config"
	"github.com/denwilliams/go-mqtt-sensor/pkg/faults"
	"github.com/denwilliams/go-mqtt-sensor/pkg/metrics"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

var ErrNotConnected = errors.New("not connected to MQTT broker")

type Client struct {
	config       config.MQTTConfig
	clientID     string
	client       mqtt.Client
	newClient    func(*mqtt.ClientOptions) mqtt.Client
	filters      map[string]byte
	filtersMutex sync.RWMutex
	state        ConnectionState
	hasConnected bool
	stateMutex   sync.RWMutex
	logger       *log.Logger
	events       chan Event
	eventsMutex  sync.RWMutex
	eventsClosed bool
	stopChan     chan struct{}
	stopOnce     sync.Once
}

func NewClient(cfg config.MQTTConfig, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}

	bufferSize := cfg.EventBuffer
	if bufferSize < 1 {
		bufferSize = config.DefaultEventBuffer
	}

	clientID := cfg.ClientID
	if cfg.UniqueClientID {
		clientID = fmt.Sprintf("%s-%s", clientID, uuid.NewString()[:8])
	}

	return &Client{
		config:    cfg,
		clientID:  clientID,
		newClient: mqtt.NewClient,
		filters:   make(map[string]byte),
		state:     ConnectionStateClosed,
		logger:    logger,
		events:    make(chan Event, bufferSize),
		stopChan:  make(chan struct{}),
	}
}

func (c *Client) ClientID() string {
	return c.clientID
}

func (c *Client) Broker() string {
	return c.config.BrokerURL()
}

// Events returns the inbound event stream. It is closed by Disconnect.
func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) Connect() error {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()

	if c.state == ConnectionStateConnected {
		return nil
	}

	c.state = ConnectionStateConnecting
	c.logger.Printf("Connecting to MQTT broker: %s as %s", c.Broker(), c.clientID)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.Broker())
	opts.SetClientID(c.clientID)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(c.config.KeepAliveDuration())
	opts.SetConnectTimeout(c.config.ConnectTimeoutDuration())

	// Reconnection is left to the library; subscriptions are restored in onConnect
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)
	opts.SetOnConnectHandler(c.onConnect)

	opts.SetDefaultPublishHandler(c.onMessage)

	c.client = c.newClient(opts)

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		c.state = ConnectionStateClosed
		metrics.RecordMQTTConnectionError(c.Broker())
		return faults.New(faults.Transport, "connect", fmt.Errorf("failed to connect to MQTT broker: %w", token.Error()))
	}

	c.state = ConnectionStateConnected
	c.hasConnected = true
	c.logger.Println("Successfully connected to MQTT broker")

	metrics.SetMQTTConnectionState(c.Broker(), true)

	return nil
}

// Disconnect closes the broker connection and then the event stream.
// It is safe to call more than once.
func (c *Client) Disconnect() {
	c.stateMutex.Lock()
	if c.state == ConnectionStateClosed && c.client == nil {
		c.stateMutex.Unlock()
		c.closeEvents()
		return
	}

	c.logger.Println("Disconnecting from MQTT broker")

	c.closeEvents()

	if c.client != nil {
		c.client.Disconnect(250)
		c.client = nil
	}

	c.state = ConnectionStateClosed
	c.stateMutex.Unlock()

	metrics.SetMQTTConnectionState(c.Broker(), false)

	c.logger.Println("Disconnected from MQTT broker")
}

func (c *Client) closeEvents() {
	c.stopOnce.Do(func() { close(c.stopChan) })

	// emitters blocked on a full channel bail out on stopChan before this lock is granted
	c.eventsMutex.Lock()
	defer c.eventsMutex.Unlock()
	if !c.eventsClosed {
		c.eventsClosed = true
		close(c.events)
	}
}

func (c *Client) Subscribe(topic string, qos byte) error {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()

	if c.state != ConnectionStateConnected {
		return faults.New(faults.Transport, "subscribe", ErrNotConnected)
	}

	c.filtersMutex.Lock()
	c.filters[topic] = qos
	c.filtersMutex.Unlock()

	token := c.client.Subscribe(topic, qos, nil)
	token.Wait()

	if token.Error() != nil {
		c.filtersMutex.Lock()
		delete(c.filters, topic)
		c.filtersMutex.Unlock()
		return faults.New(faults.Transport, "subscribe", fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error()))
	}

	c.logger.Printf("Subscribed to topic: %s (QoS %d)", topic, qos)
	return nil
}

// Publish hands the payload to the client and waits until the delivery for
// the given QoS completes, ctx is done or the publish timeout elapses.
func (c *Client) Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error {
	c.stateMutex.RLock()
	state, client := c.state, c.client
	c.stateMutex.RUnlock()

	if state != ConnectionStateConnected || client == nil {
		metrics.RecordMQTTPublishError(topic)
		return faults.New(faults.Transport, "publish", ErrNotConnected)
	}

	startTime := time.Now()
	token := client.Publish(topic, qos, retained, payload)

	timer := time.NewTimer(c.config.PublishTimeoutDuration())
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-ctx.Done():
		metrics.RecordMQTTPublishError(topic)
		return faults.New(faults.Transport, "publish", ctx.Err())
	case <-timer.C:
		metrics.RecordMQTTPublishError(topic)
		return faults.New(faults.Transport, "publish", fmt.Errorf("timed out after %s publishing to %s", c.config.PublishTimeout, topic))
	}

	if err := token.Error(); err != nil {
		metrics.RecordMQTTPublishError(topic)
		return faults.New(faults.Transport, "publish", fmt.Errorf("failed to publish to topic %s: %w", topic, err))
	}

	metrics.RecordMQTTPublish(topic, time.Since(startTime).Seconds())
	c.logger.Printf("Published to topic: %s (%d bytes)", topic, len(payload))
	return nil
}

func (c *Client) IsConnected() bool {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.state == ConnectionStateConnected
}

func (c *Client) GetState() ConnectionState {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.state
}

func (c *Client) onConnect(client mqtt.Client) {
	select {
	case <-c.stopChan:
		return
	default:
	}

	// paho runs the lost and connect handlers on separate goroutines, so the
	// previous state cannot tell a reconnect from the first connect
	c.stateMutex.Lock()
	reconnected := c.hasConnected
	c.state = ConnectionStateConnected
	c.stateMutex.Unlock()

	metrics.SetMQTTConnectionState(c.Broker(), true)
	c.logger.Println("MQTT client connected")

	if reconnected {
		c.resubscribe(client)
	}

	c.emit(Event{Kind: EventConnected, Timestamp: time.Now()})
}

func (c *Client) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	c.logger.Println("Attempting to reconnect...")
}

func (c *Client) onConnectionLost(client mqtt.Client, err error) {
	select {
	case <-c.stopChan:
		return
	default:
	}

	// A late handler must not mark an already restored connection as down
	if !client.IsConnectionOpen() {
		c.stateMutex.Lock()
		c.state = ConnectionStateReconnecting
		c.stateMutex.Unlock()

		metrics.SetMQTTConnectionState(c.Broker(), false)
	}

	metrics.RecordMQTTConnectionError(c.Broker())
	c.logger.Printf("Connection lost: %v", err)

	c.emit(Event{
		Kind:      EventError,
		Err:       faults.New(faults.Transport, "connection lost", err),
		Timestamp: time.Now(),
	})
}

// resubscribe restores subscriptions after the library reconnects with a clean session.
func (c *Client) resubscribe(client mqtt.Client) {
	c.filtersMutex.RLock()
	filters := make(map[string]byte, len(c.filters))
	for topic, qos := range c.filters {
		filters[topic] = qos
	}
	c.filtersMutex.RUnlock()

	for topic, qos := range filters {
		token := client.Subscribe(topic, qos, nil)
		token.Wait()
		if err := token.Error(); err != nil {
			c.logger.Printf("Failed to resubscribe to topic %s: %v", topic, err)
			c.emit(Event{
				Kind:      EventError,
				Topic:     topic,
				Err:       faults.New(faults.Transport, "resubscribe", err),
				Timestamp: time.Now(),
			})
			continue
		}
		c.logger.Printf("Resubscribed to topic: %s", topic)
	}
}

func (c *Client) onMessage(client mqtt.Client, msg mqtt.Message) {
	if !c.subscribed(msg.Topic()) {
		c.logger.Printf("Ignoring message on unsubscribed topic %s", msg.Topic())
		return
	}

	metrics.RecordMQTTReceive(msg.Topic())

	c.emit(Event{
		Kind:      EventMessage,
		Topic:     msg.Topic(),
		Payload:   msg.Payload(),
		Timestamp: time.Now(),
	})
}

func (c *Client) subscribed(topic string) bool {
	c.filtersMutex.RLock()
	defer c.filtersMutex.RUnlock()

	for pattern := range c.filters {
		if TopicMatches(pattern, topic) {
			return true
		}
	}
	return false
}

// emit blocks while the stream is full, applying backpressure to the paho
// router, until the client is disconnected.
func (c *Client) emit(event Event) {
	c.eventsMutex.RLock()
	defer c.eventsMutex.RUnlock()

	if c.eventsClosed {
		metrics.RecordEventDropped()
		return
	}

	select {
	case c.events <- event:
	case <-c.stopChan:
		metrics.RecordEventDropped()
	}
}

// TopicMatches checks if a topic matches a pattern with MQTT wildcards
// Supports:
// + (single-level wildcard): matches exactly one level
// # (multi-level wildcard): matches zero or more levels (only at end)
func TopicMatches(pattern, topic string) bool {
	// Exact match
	if pattern == topic {
		return true
	}

	patternSegments := strings.Split(pattern, "/")
	topicSegments := strings.Split(topic, "/")

	return matchSegments(patternSegments, topicSegments)
}

func matchSegments(patternSegments, topicSegments []string) bool {
	patternLen := len(patternSegments)
	topicLen := len(topicSegments)

	// Handle multi-level wildcard (#) - must be last segment
	if patternSegments[patternLen-1] == "#" {
		if patternLen == 1 {
			return true
		}
		if topicLen < patternLen-1 {
			return false
		}
		for i := 0; i < patternLen-1; i++ {
			if patternSegments[i] != "+" && patternSegments[i] != topicSegments[i] {
				return false
			}
		}
		return true
	}

	// For patterns without #, lengths must match
	if patternLen != topicLen {
		return false
	}

	for i := 0; i < patternLen; i++ {
		if patternSegments[i] != "+" && patternSegments[i] != topicSegments[i] {
			return false
		}
	}

	return true
}
