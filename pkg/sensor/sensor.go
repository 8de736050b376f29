// Package sensor produces temperature and humidity readings.
package sensor

import (
	"errors"
	"fmt"
	"time"

	"github.com/denwilliams/go-mqtt-sensor/pkg/faults"
)

// Celsius is a temperature in degrees Celsius.
type Celsius float64

func (c Celsius) String() string {
	return fmt.Sprintf("%.1f°C", float64(c))
}

type Reading struct {
	Temperature Celsius
	Humidity    float64
	Timestamp   time.Time
}

func (r Reading) String() string {
	return fmt.Sprintf("temperature=%s humidity=%.1f%% timestamp=%s",
		r.Temperature, r.Humidity, r.Timestamp.Format(time.RFC3339Nano))
}

// Reader acquires a single reading. Implementations backed by hardware may fail
// with a faults.Sensor error.
type Reader interface {
	Read() (Reading, error)
}

const (
	DefaultTemperature Celsius = 20.0
	DefaultHumidity            = 45.0
)

// Simulated is a Reader returning fixed values stamped with the current time.
type Simulated struct {
	Temperature Celsius
	Humidity    float64
	now         func() time.Time
}

func NewSimulated(temperature Celsius, humidity float64) *Simulated {
	return &Simulated{
		Temperature: temperature,
		Humidity:    humidity,
		now:         time.Now,
	}
}

func (s *Simulated) Read() (Reading, error) {
	if s.now == nil {
		return Reading{}, faults.New(faults.Sensor, "read", errors.New("clock not configured"))
	}

	return Reading{
		Temperature: s.Temperature,
		Humidity:    s.Humidity,
		// Round(0) drops the monotonic reading so the value compares equal after a round trip
		Timestamp: s.now().UTC().Round(0),
	}, nil
}
