package sensor

import (
	"strings"
	"testing"
	"time"

	"github.com/denwilliams/go-mqtt-sensor/pkg/faults"
)

func TestSimulatedRead(t *testing.T) {
	fixed := time.Date(2024, 9, 28, 10, 30, 0, 123456789, time.FixedZone("CEST", 2*60*60))
	s := NewSimulated(DefaultTemperature, DefaultHumidity)
	s.now = func() time.Time { return fixed }

	reading, err := s.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if reading.Temperature != 20.0 {
		t.Errorf("Temperature = %v, want 20.0", reading.Temperature)
	}
	if reading.Humidity != 45.0 {
		t.Errorf("Humidity = %v, want 45.0", reading.Humidity)
	}
	if !reading.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", reading.Timestamp, fixed)
	}
	if reading.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp location = %v, want UTC", reading.Timestamp.Location())
	}
}

func TestSimulatedReadUsesCurrentTime(t *testing.T) {
	before := time.Now()
	reading, err := NewSimulated(18.5, 60).Read()
	after := time.Now()

	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if reading.Timestamp.Before(before.Truncate(time.Microsecond)) || reading.Timestamp.After(after) {
		t.Errorf("Timestamp %v not within [%v, %v]", reading.Timestamp, before, after)
	}
	if reading.Temperature != 18.5 || reading.Humidity != 60 {
		t.Errorf("unexpected values: %+v", reading)
	}
}

func TestSimulatedReadWithoutClock(t *testing.T) {
	s := &Simulated{Temperature: 20, Humidity: 45}

	reading, err := s.Read()
	if err == nil {
		t.Fatal("Read() should fail without a clock")
	}
	if !faults.IsKind(err, faults.Sensor) {
		t.Errorf("error kind = %v, want sensor", faults.KindOf(err))
	}
	if reading != (Reading{}) {
		t.Errorf("Read() returned partial reading %+v", reading)
	}
}

func TestReadingString(t *testing.T) {
	r := Reading{
		Temperature: 20,
		Humidity:    45,
		Timestamp:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	got := r.String()
	for _, want := range []string{"temperature=20.0°C", "humidity=45.0%", "2024-01-02T03:04:05Z"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}
