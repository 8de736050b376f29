package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Publisher metrics
	PublishCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensor_publish_cycles_total",
			Help: "Total number of publish cycles by outcome",
		},
		[]string{"outcome"}, // success, sensor, encoding, transport
	)

	MQTTMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensor_mqtt_messages_published_total",
			Help: "Total number of MQTT messages published",
		},
		[]string{"topic"},
	)

	MQTTPublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sensor_mqtt_publish_duration_seconds",
			Help:    "Time taken to publish MQTT messages",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"topic"},
	)

	MQTTPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensor_mqtt_publish_errors_total",
			Help: "Total number of MQTT publish errors",
		},
		[]string{"topic"},
	)

	// Subscriber metrics
	MQTTMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensor_mqtt_messages_received_total",
			Help: "Total number of MQTT messages received",
		},
		[]string{"topic"},
	)

	DecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensor_decode_errors_total",
			Help: "Total number of inbound payloads that failed to decode",
		},
		[]string{"topic"},
	)

	LastReceivedTemperature = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sensor_last_received_temperature_celsius",
			Help: "Temperature of the most recently received reading",
		},
	)

	LastReceivedHumidity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sensor_last_received_humidity_percent",
			Help: "Humidity of the most recently received reading",
		},
	)

	// Connection metrics
	MQTTConnectionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sensor_mqtt_connection_state",
			Help: "MQTT connection state (1=connected, 0=disconnected)",
		},
		[]string{"broker"},
	)

	MQTTConnectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensor_mqtt_connection_errors_total",
			Help: "Total number of connection level errors reported by the MQTT client",
		},
		[]string{"broker"},
	)

	MQTTEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sensor_mqtt_events_dropped_total",
			Help: "Events discarded because the client was shutting down",
		},
	)
)

// RecordPublishCycle records the outcome of one publisher cycle
func RecordPublishCycle(outcome string) {
	PublishCycles.WithLabelValues(outcome).Inc()
}

// RecordMQTTPublish records an MQTT publish event
func RecordMQTTPublish(topic string, duration float64) {
	MQTTMessagesPublished.WithLabelValues(topic).Inc()
	MQTTPublishDuration.WithLabelValues(topic).Observe(duration)
}

// RecordMQTTPublishError records an MQTT publish error
func RecordMQTTPublishError(topic string) {
	MQTTPublishErrors.WithLabelValues(topic).Inc()
}

// RecordMQTTReceive records an MQTT receive event
func RecordMQTTReceive(topic string) {
	MQTTMessagesReceived.WithLabelValues(topic).Inc()
}

// RecordDecodeError records a payload that could not be decoded
func RecordDecodeError(topic string) {
	DecodeErrors.WithLabelValues(topic).Inc()
}

// SetLastReading updates the gauges for the latest received reading
func SetLastReading(temperature, humidity float64) {
	LastReceivedTemperature.Set(temperature)
	LastReceivedHumidity.Set(humidity)
}

// SetMQTTConnectionState sets the MQTT connection state
func SetMQTTConnectionState(broker string, connected bool) {
	state := 0.0
	if connected {
		state = 1.0
	}
	MQTTConnectionState.WithLabelValues(broker).Set(state)
}

// RecordMQTTConnectionError records a connection level error
func RecordMQTTConnectionError(broker string) {
	MQTTConnectionErrors.WithLabelValues(broker).Inc()
}

// RecordEventDropped records an event that could not be delivered
func RecordEventDropped() {
	MQTTEventsDropped.Inc()
}
