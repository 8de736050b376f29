package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Sensor     SensorConfig     `yaml:"sensor"`
	Publisher  PublisherConfig  `yaml:"publisher"`
	Subscriber SubscriberConfig `yaml:"subscriber"`
	Web        WebConfig        `yaml:"web"`
}

type MQTTConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	ClientID       string `yaml:"client_id"`
	UniqueClientID bool   `yaml:"unique_client_id"`
	KeepAlive      string `yaml:"keep_alive"`
	ConnectTimeout string `yaml:"connect_timeout"`
	PublishTimeout string `yaml:"publish_timeout"`
	Topic          string `yaml:"topic"`
	SubscribeQoS   int    `yaml:"subscribe_qos"`
	PublishQoS     int    `yaml:"publish_qos"`
	Retain         bool   `yaml:"retain"`
	EventBuffer    int    `yaml:"event_buffer"`
}

type SensorConfig struct {
	Temperature float64 `yaml:"temperature"`
	Humidity    float64 `yaml:"humidity"`
}

type PublisherConfig struct {
	Interval string `yaml:"interval"`
}

type SubscriberConfig struct {
	StopOnDecodeError bool `yaml:"stop_on_decode_error"`
}

// WebConfig controls the status server. A zero port disables it.
type WebConfig struct {
	Port int    `yaml:"port"`
	Bind string `yaml:"bind"`
}

const (
	DefaultHost           = "test.mosquitto.org"
	DefaultPort           = 1883
	DefaultClientID       = "linux-days-4188"
	DefaultTopic          = "linuxdays/workshop"
	DefaultKeepAlive      = "5s"
	DefaultConnectTimeout = "30s"
	DefaultPublishTimeout = "10s"
	DefaultInterval       = "4s"
	DefaultEventBuffer    = 10
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	config := &Config{
		MQTT: MQTTConfig{
			SubscribeQoS: 0,
			PublishQoS:   1,
		},
		Sensor: SensorConfig{
			Temperature: 20.0,
			Humidity:    45.0,
		},
	}
	config.setDefaults()
	return config
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return Default(), nil
	}

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse reads YAML on top of the defaults, so omitted keys keep their default values.
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.setDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func (c *Config) setDefaults() {
	// MQTT defaults
	if c.MQTT.Host == "" {
		c.MQTT.Host = DefaultHost
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = DefaultPort
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = DefaultClientID
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = DefaultTopic
	}
	if c.MQTT.KeepAlive == "" {
		c.MQTT.KeepAlive = DefaultKeepAlive
	}
	if c.MQTT.ConnectTimeout == "" {
		c.MQTT.ConnectTimeout = DefaultConnectTimeout
	}
	if c.MQTT.PublishTimeout == "" {
		c.MQTT.PublishTimeout = DefaultPublishTimeout
	}
	if c.MQTT.EventBuffer == 0 {
		c.MQTT.EventBuffer = DefaultEventBuffer
	}

	// Publisher defaults
	if c.Publisher.Interval == "" {
		c.Publisher.Interval = DefaultInterval
	}

	// Web defaults
	if c.Web.Bind == "" {
		c.Web.Bind = "0.0.0.0"
	}
}

func (c *Config) validate() error {
	if c.MQTT.Port < 1 || c.MQTT.Port > 65535 {
		return fmt.Errorf("invalid MQTT port: %d", c.MQTT.Port)
	}
	if c.MQTT.SubscribeQoS < 0 || c.MQTT.SubscribeQoS > 2 {
		return fmt.Errorf("invalid subscribe QoS: %d", c.MQTT.SubscribeQoS)
	}
	if c.MQTT.PublishQoS < 0 || c.MQTT.PublishQoS > 2 {
		return fmt.Errorf("invalid publish QoS: %d", c.MQTT.PublishQoS)
	}
	if c.MQTT.EventBuffer < 1 {
		return fmt.Errorf("invalid event buffer size: %d", c.MQTT.EventBuffer)
	}

	durations := map[string]string{
		"keep_alive":      c.MQTT.KeepAlive,
		"connect_timeout": c.MQTT.ConnectTimeout,
		"publish_timeout": c.MQTT.PublishTimeout,
		"interval":        c.Publisher.Interval,
	}
	for name, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %s", name, value)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive: %s", name, value)
		}
	}

	if math.IsNaN(c.Sensor.Temperature) || math.IsInf(c.Sensor.Temperature, 0) {
		return fmt.Errorf("invalid sensor temperature: %v", c.Sensor.Temperature)
	}
	if math.IsNaN(c.Sensor.Humidity) || math.IsInf(c.Sensor.Humidity, 0) {
		return fmt.Errorf("invalid sensor humidity: %v", c.Sensor.Humidity)
	}

	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("invalid web port: %d", c.Web.Port)
	}

	return nil
}

func (c MQTTConfig) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

// Duration accessors assume the configuration has been validated.

func (c MQTTConfig) KeepAliveDuration() time.Duration {
	d, _ := time.ParseDuration(c.KeepAlive)
	return d
}

func (c MQTTConfig) ConnectTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnectTimeout)
	return d
}

func (c MQTTConfig) PublishTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.PublishTimeout)
	return d
}

func (c PublisherConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

func (c *Config) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Web.Bind, c.Web.Port)
}
