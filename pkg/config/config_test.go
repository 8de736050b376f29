package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultMatchesWorkshopSettings(t *testing.T) {
	config := Default()

	if config.MQTT.BrokerURL() != "tcp://test.mosquitto.org:1883" {
		t.Errorf("BrokerURL() = %s", config.MQTT.BrokerURL())
	}
	if config.MQTT.ClientID != "linux-days-4188" {
		t.Errorf("ClientID = %s, want linux-days-4188", config.MQTT.ClientID)
	}
	if config.MQTT.Topic != "linuxdays/workshop" {
		t.Errorf("Topic = %s, want linuxdays/workshop", config.MQTT.Topic)
	}
	if config.MQTT.KeepAliveDuration() != 5*time.Second {
		t.Errorf("KeepAliveDuration() = %v, want 5s", config.MQTT.KeepAliveDuration())
	}
	if config.MQTT.SubscribeQoS != 0 || config.MQTT.PublishQoS != 1 || config.MQTT.Retain {
		t.Errorf("unexpected QoS settings: %+v", config.MQTT)
	}
	if config.Publisher.IntervalDuration() != 4*time.Second {
		t.Errorf("IntervalDuration() = %v, want 4s", config.Publisher.IntervalDuration())
	}
	if config.MQTT.EventBuffer != 10 {
		t.Errorf("EventBuffer = %d, want 10", config.MQTT.EventBuffer)
	}
	if config.Sensor.Temperature != 20.0 || config.Sensor.Humidity != 45.0 {
		t.Errorf("unexpected sensor defaults: %+v", config.Sensor)
	}
	if config.Web.Port != 0 {
		t.Errorf("web server should be disabled by default, port = %d", config.Web.Port)
	}
	if err := config.validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	config, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if config.MQTT.Host != DefaultHost {
		t.Errorf("Host = %s, want %s", config.MQTT.Host, DefaultHost)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("Load() error = %v, want config file not found", err)
	}
}

func TestLoadOverridesKeepOtherDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlData := `
mqtt:
  host: localhost
  publish_qos: 0
  unique_client_id: true
publisher:
  interval: 250ms
web:
  port: 9100
`
	if err := os.WriteFile(path, []byte(yamlData), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if config.MQTT.BrokerURL() != "tcp://localhost:1883" {
		t.Errorf("BrokerURL() = %s", config.MQTT.BrokerURL())
	}
	if config.MQTT.PublishQoS != 0 {
		t.Errorf("PublishQoS = %d, want 0", config.MQTT.PublishQoS)
	}
	if !config.MQTT.UniqueClientID {
		t.Error("UniqueClientID should be true")
	}
	if config.Publisher.IntervalDuration() != 250*time.Millisecond {
		t.Errorf("IntervalDuration() = %v, want 250ms", config.Publisher.IntervalDuration())
	}
	if config.MQTT.Topic != DefaultTopic {
		t.Errorf("Topic = %s, want default %s", config.MQTT.Topic, DefaultTopic)
	}
	if config.GetAddress() != "0.0.0.0:9100" {
		t.Errorf("GetAddress() = %s", config.GetAddress())
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad yaml", "mqtt: [", "failed to parse config file"},
		{"bad port", "mqtt:\n  port: 70000", "invalid MQTT port"},
		{"bad publish qos", "mqtt:\n  publish_qos: 3", "invalid publish QoS"},
		{"bad subscribe qos", "mqtt:\n  subscribe_qos: -1", "invalid subscribe QoS"},
		{"bad interval", "publisher:\n  interval: often", "invalid interval"},
		{"negative keep alive", "mqtt:\n  keep_alive: -5s", "keep_alive must be positive"},
		{"negative buffer", "mqtt:\n  event_buffer: -1", "invalid event buffer size"},
		{"nan temperature", "sensor:\n  temperature: .nan", "invalid sensor temperature"},
		{"bad web port", "web:\n  port: -1", "invalid web port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	config, err := Load(filepath.Join("..", "..", "config", "config.example.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	defaults := Default()
	if *config != *defaults {
		t.Errorf("example config differs from defaults:\n got  %+v\n want %+v", *config, *defaults)
	}
}
