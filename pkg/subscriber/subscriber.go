// Package subscriber consumes the inbound MQTT event stream and reports decoded readings.
package subscriber

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/denwilliams/go-mqtt-sensor/pkg/codec"
	"github.com/denwilliams/go-mqtt-sensor/pkg/metrics"
	"github.com/denwilliams/go-mqtt-sensor/pkg/mqtt"
	"github.com/denwilliams/go-mqtt-sensor/pkg/sensor"
)

// Observer receives every successfully decoded reading.
type Observer func(topic string, reading sensor.Reading)

// PrintObserver writes one line per reading to w.
func PrintObserver(w io.Writer) Observer {
	return func(topic string, reading sensor.Reading) {
		fmt.Fprintf(w, "%s: %s\n", topic, reading)
	}
}

type Options struct {
	// StopOnDecodeError makes Run return on the first malformed payload
	// instead of logging it and moving on.
	StopOnDecodeError bool
}

type Received struct {
	Topic   string
	Reading sensor.Reading
}

type Subscriber struct {
	observer Observer
	opts     Options
	logger   *log.Logger

	mu       sync.RWMutex
	latest   *Received
	received uint64
	rejected uint64
}

func New(observer Observer, opts Options, logger *log.Logger) *Subscriber {
	if logger == nil {
		logger = log.Default()
	}

	return &Subscriber{
		observer: observer,
		opts:     opts,
		logger:   logger,
	}
}

// Run handles events until the stream is closed or ctx is cancelled. It only
// returns an error when StopOnDecodeError is set and a payload fails to decode.
func (s *Subscriber) Run(ctx context.Context, events <-chan mqtt.Event) error {
	for {
		select {
		case <-ctx.Done():
			s.logger.Println("Subscriber stopped")
			return nil
		case event, ok := <-events:
			if !ok {
				s.logger.Println("Event stream closed")
				return nil
			}
			if err := s.handle(event); err != nil {
				return err
			}
		}
	}
}

func (s *Subscriber) handle(event mqtt.Event) error {
	switch event.Kind {
	case mqtt.EventMessage:
		return s.handleMessage(event)
	case mqtt.EventConnected:
		s.logger.Println("Notification stream connected")
	case mqtt.EventError:
		s.logger.Printf("Notification error: %v", event.Err)
	}
	return nil
}

func (s *Subscriber) handleMessage(event mqtt.Event) error {
	reading, err := codec.Decode(event.Payload)
	if err != nil {
		metrics.RecordDecodeError(event.Topic)

		s.mu.Lock()
		s.rejected++
		s.mu.Unlock()

		if s.opts.StopOnDecodeError {
			return fmt.Errorf("malformed payload on topic %s: %w", event.Topic, err)
		}
		s.logger.Printf("Discarding malformed payload on topic %s: %v", event.Topic, err)
		return nil
	}

	metrics.SetLastReading(float64(reading.Temperature), reading.Humidity)

	s.mu.Lock()
	s.received++
	s.latest = &Received{Topic: event.Topic, Reading: reading}
	s.mu.Unlock()

	if s.observer != nil {
		s.observer(event.Topic, reading)
	}
	return nil
}

// Latest returns the most recently decoded reading, if any.
func (s *Subscriber) Latest() (Received, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Received{}, false
	}
	return *s.latest, true
}

func (s *Subscriber) Counts() (received, rejected uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.received, s.rejected
}
