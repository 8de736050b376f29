package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPublishCycle(t *testing.T) {
	before := testutil.ToFloat64(PublishCycles.WithLabelValues("transport"))
	RecordPublishCycle("transport")
	RecordPublishCycle("transport")

	if got := testutil.ToFloat64(PublishCycles.WithLabelValues("transport")) - before; got != 2 {
		t.Errorf("transport cycles increased by %v, want 2", got)
	}
}

func TestSetMQTTConnectionState(t *testing.T) {
	SetMQTTConnectionState("tcp://broker:1883", true)
	if got := testutil.ToFloat64(MQTTConnectionState.WithLabelValues("tcp://broker:1883")); got != 1 {
		t.Errorf("connection state = %v, want 1", got)
	}

	SetMQTTConnectionState("tcp://broker:1883", false)
	if got := testutil.ToFloat64(MQTTConnectionState.WithLabelValues("tcp://broker:1883")); got != 0 {
		t.Errorf("connection state = %v, want 0", got)
	}
}

func TestSetLastReading(t *testing.T) {
	SetLastReading(20, 45)

	if got := testutil.ToFloat64(LastReceivedTemperature); got != 20 {
		t.Errorf("temperature gauge = %v, want 20", got)
	}
	if got := testutil.ToFloat64(LastReceivedHumidity); got != 45 {
		t.Errorf("humidity gauge = %v, want 45", got)
	}
}
