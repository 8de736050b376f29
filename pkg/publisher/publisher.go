// Package publisher periodically reads the sensor and publishes the encoded reading.
package publisher

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/denwilliams/go-mqtt-sensor/pkg/codec"
	"github.com/denwilliams/go-mqtt-sensor/pkg/faults"
	"github.com/denwilliams/go-mqtt-sensor/pkg/metrics"
	"github.com/denwilliams/go-mqtt-sensor/pkg/sensor"
)

// Transport is the part of the MQTT client the publisher needs.
type Transport interface {
	Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error
}

type State int32

const (
	StateIdle State = iota
	StateAttempting
)

func (s State) String() string {
	if s == StateAttempting {
		return "attempting"
	}
	return "idle"
}

type Options struct {
	Topic    string
	QoS      byte
	Retain   bool
	Interval time.Duration
}

type Publisher struct {
	reader    sensor.Reader
	transport Transport
	opts      Options
	logger    *log.Logger

	state    atomic.Int32
	cycles   atomic.Uint64
	failures atomic.Uint64
}

func New(reader sensor.Reader, transport Transport, opts Options, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Default()
	}

	return &Publisher{
		reader:    reader,
		transport: transport,
		opts:      opts,
		logger:    logger,
	}
}

// Run publishes one reading per interval until ctx is cancelled. A failed
// cycle is logged and retried after the same interval; Run never gives up.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Printf("Publisher started: topic=%s qos=%d interval=%s", p.opts.Topic, p.opts.QoS, p.opts.Interval)

	for {
		select {
		case <-ctx.Done():
			p.logger.Println("Publisher stopped")
			return nil
		default:
		}

		if err := p.PublishOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Printf("Publish cycle failed, retrying in %s: %v", p.opts.Interval, err)
		}

		timer := time.NewTimer(p.opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Println("Publisher stopped")
			return nil
		case <-timer.C:
		}
	}
}

// PublishOnce runs a single read, encode and publish cycle.
func (p *Publisher) PublishOnce(ctx context.Context) error {
	p.state.Store(int32(StateAttempting))
	defer p.state.Store(int32(StateIdle))

	p.cycles.Add(1)

	err := p.publish(ctx)
	if err != nil {
		p.failures.Add(1)
		metrics.RecordPublishCycle(faults.KindOf(err).String())
		return err
	}

	metrics.RecordPublishCycle("success")
	return nil
}

func (p *Publisher) publish(ctx context.Context) error {
	reading, err := p.reader.Read()
	if err != nil {
		return asFault(faults.Sensor, "read sensor", err)
	}

	payload, err := codec.Encode(reading)
	if err != nil {
		return asFault(faults.Encoding, "encode reading", err)
	}

	if err := p.transport.Publish(ctx, p.opts.Topic, p.opts.QoS, p.opts.Retain, payload); err != nil {
		return asFault(faults.Transport, "publish reading", err)
	}

	return nil
}

// asFault tags err with kind unless a lower layer already classified it.
func asFault(kind faults.Kind, op string, err error) error {
	if faults.KindOf(err) != 0 {
		return fmt.Errorf("%s: %w", op, err)
	}
	return faults.New(kind, op, err)
}

func (p *Publisher) State() State {
	return State(p.state.Load())
}

func (p *Publisher) Cycles() uint64 {
	return p.cycles.Load()
}

func (p *Publisher) Failures() uint64 {
	return p.failures.Load()
}
