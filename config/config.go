package config

import (
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	mu sync.Mutex `yaml:"-"`

	Site         string `yaml:"site"`
	RobotID      string `yaml:"robot_id"`
	DatabasePath string `yaml:"database_path"`

	Robot     RobotConfig     `yaml:"robot"`
	Sim       SimConfig       `yaml:"sim"`
	Web       WebConfig       `yaml:"web"`
	Messaging MessagingConfig `yaml:"messaging"`
}

// RobotConfig defines the hardware bridge connection.
type RobotConfig struct {
	URL         string        `yaml:"url"          json:"url"`
	PollRate    time.Duration `yaml:"poll_rate"    json:"poll_rate"`
	AutoConnect bool          `yaml:"auto_connect" json:"auto_connect"`
}

// SimConfig tunes the simulated drive.
type SimConfig struct {
	LinearSpeed    float64       `yaml:"linear_speed"`
	RotateDuration time.Duration `yaml:"rotate_duration"`
	TelemetryTick  time.Duration `yaml:"telemetry_tick"`
}

// WebConfig defines the web server settings.
type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	SessionSecret string `yaml:"session_secret"`
}

// MessagingConfig defines the telemetry uplink backend.
type MessagingConfig struct {
	Backend        string        `yaml:"backend"` // "mqtt" or "kafka"
	MQTT           MQTTConfig    `yaml:"mqtt"`
	Kafka          KafkaConfig   `yaml:"kafka"`
	TelemetryTopic string        `yaml:"telemetry_topic"`
	EventTopic     string        `yaml:"event_topic"`
	CommandTopic   string        `yaml:"command_topic"`
	ReportInterval time.Duration `yaml:"report_interval"`
	NodeID         string        `yaml:"node_id"`
	Enabled        bool          `yaml:"enabled"`
}

// MQTTConfig defines MQTT broker settings.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

// KafkaConfig defines Kafka broker settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		Site:         "field-a",
		RobotID:      "rover-1",
		DatabasePath: "conepilot.db",
		Robot: RobotConfig{
			URL:      "http://localhost:5000",
			PollRate: 200 * time.Millisecond,
		},
		Sim: SimConfig{
			LinearSpeed:    0.5,
			RotateDuration: 800 * time.Millisecond,
			TelemetryTick:  100 * time.Millisecond,
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 8082,
		},
		Messaging: MessagingConfig{
			Backend:        "mqtt",
			TelemetryTopic: "conepilot/telemetry",
			EventTopic:     "conepilot/events",
			CommandTopic:   "conepilot/commands",
			ReportInterval: 5 * time.Second,
			MQTT: MQTTConfig{
				Broker: "localhost",
				Port:   1883,
			},
		},
	}
}

// Load reads a YAML config file. If the file doesn't exist, defaults are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to a YAML file.
func (c *Config) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// NodeID returns the configured node ID, or derives one from site.robot_id.
func (c *Config) NodeID() string {
	if c.Messaging.NodeID != "" {
		return c.Messaging.NodeID
	}
	return c.Site + "." + c.RobotID
}

// Lock acquires the config mutex for multi-step mutations.
func (c *Config) Lock() { c.mu.Lock() }

// Unlock releases the config mutex.
func (c *Config) Unlock() { c.mu.Unlock() }
