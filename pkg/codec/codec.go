// Package codec converts readings to and from their JSON wire payload.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/denwilliams/go-mqtt-sensor/pkg/faults"
	"github.com/denwilliams/go-mqtt-sensor/pkg/sensor"
)

type payload struct {
	Temperature sensor.Celsius `json:"temperature"`
	Humidity    float64        `json:"humidity"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Every field is required on the way in, so they are decoded as pointers/raw
// values to tell "missing" apart from zero.
type incoming struct {
	Temperature *sensor.Celsius `json:"temperature"`
	Humidity    *float64        `json:"humidity"`
	Timestamp   json.RawMessage `json:"timestamp"`
}

// epochTimestamp is the {secs_since_epoch, nanos_since_epoch} form emitted by
// older publishers on the workshop topic.
type epochTimestamp struct {
	Secs  *int64 `json:"secs_since_epoch"`
	Nanos *int64 `json:"nanos_since_epoch"`
}

var errMissingField = errors.New("missing field")

func Encode(r sensor.Reading) ([]byte, error) {
	data, err := json.Marshal(payload{
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Timestamp:   r.Timestamp,
	})
	if err != nil {
		return nil, faults.New(faults.Encoding, "encode reading", err)
	}
	return data, nil
}

// Decode parses a payload. On any failure it returns the zero Reading and a
// faults.Decoding error.
func Decode(data []byte) (sensor.Reading, error) {
	var in incoming
	if err := json.Unmarshal(data, &in); err != nil {
		return sensor.Reading{}, faults.New(faults.Decoding, "decode reading", err)
	}

	if in.Temperature == nil {
		return sensor.Reading{}, decodeError("temperature", errMissingField)
	}
	if in.Humidity == nil {
		return sensor.Reading{}, decodeError("humidity", errMissingField)
	}

	ts, err := decodeTimestamp(in.Timestamp)
	if err != nil {
		return sensor.Reading{}, decodeError("timestamp", err)
	}

	return sensor.Reading{
		Temperature: *in.Temperature,
		Humidity:    *in.Humidity,
		Timestamp:   ts,
	}, nil
}

func decodeTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, errMissingField
	}

	switch raw[0] {
	case '"':
		var ts time.Time
		if err := json.Unmarshal(raw, &ts); err != nil {
			return time.Time{}, err
		}
		return ts, nil
	case '{':
		var epoch epochTimestamp
		if err := json.Unmarshal(raw, &epoch); err != nil {
			return time.Time{}, err
		}
		if epoch.Secs == nil || epoch.Nanos == nil {
			return time.Time{}, errMissingField
		}
		if *epoch.Nanos < 0 || *epoch.Nanos >= int64(time.Second) {
			return time.Time{}, fmt.Errorf("nanos_since_epoch out of range: %d", *epoch.Nanos)
		}
		return time.Unix(*epoch.Secs, *epoch.Nanos).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp representation: %s", raw)
	}
}

func decodeError(field string, err error) error {
	return faults.New(faults.Decoding, "decode reading", fmt.Errorf("%s: %w", field, err))
}
