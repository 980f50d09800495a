package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Govee BLE controller.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	BLE       BLEConfig       `yaml:"ble"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Lights    []LightConfig   `yaml:"lights"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for link telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// BLEConfig contains Bluetooth adapter and per-link tuning.
type BLEConfig struct {
	// MaxConnections caps the number of simultaneously open BLE links.
	// Stock BlueZ adapters degrade past 5 or so.
	MaxConnections int `yaml:"max_connections"`

	// ConnectTimeout bounds a single connection attempt.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// WriteTimeout bounds a single characteristic write.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ReconnectAttempts is how many failed connection attempts a light
	// tolerates before it is marked unavailable.
	ReconnectAttempts int `yaml:"reconnect_attempts"`

	// ReconnectBaseDelay is the fixed portion of the between-attempt
	// backoff; a jitter scaled by the attempt count is added on top.
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`

	// PacketSendDelay is the pause after each write, giving the lamp
	// firmware time to apply the frame.
	PacketSendDelay time.Duration `yaml:"packet_send_delay"`

	// CommandLoopDelay is the pause between idle keep-alive ticks while
	// a connected light has nothing left to send.
	CommandLoopDelay time.Duration `yaml:"command_loop_delay"`

	// PingInterval is how many idle keep-alive ticks pass between
	// keep-alive packets.
	PingInterval int `yaml:"ping_interval"`

	// KeepAliveTicks caps how many idle ticks a light spends keeping its
	// connection warm before it disconnects and frees its scheduler slot.
	KeepAliveTicks int `yaml:"keep_alive_ticks"`
}

// SchedulerConfig contains update-scheduler settings.
type SchedulerConfig struct {
	// Parallel caps how many lights run their update cycle at once.
	Parallel int `yaml:"parallel"`
}

// NotifierConfig contains state-change notification throttling settings.
type NotifierConfig struct {
	MinDelay time.Duration `yaml:"min_delay"`
	MaxDelay time.Duration `yaml:"max_delay"`
	Penalty  time.Duration `yaml:"penalty"`
}

// LightConfig describes one Govee lamp in the inventory.
type LightConfig struct {
	// ID is the stable identifier used in MQTT topics and the state
	// journal. Defaults to the address with colons stripped.
	ID string `yaml:"id"`

	// Name is the human-readable label reported in state payloads.
	Name string `yaml:"name"`

	// Address is the lamp's BLE MAC, colon-separated hex.
	Address string `yaml:"address"`

	// Model is the Govee model number (e.g. "H6008"). Unknown models
	// fall back to conservative defaults.
	Model string `yaml:"model"`

	// Enabled excludes the lamp from control when false without
	// removing it from the inventory.
	Enabled *bool `yaml:"enabled"`

	// Notifier overrides the global notification throttling for this
	// lamp when present.
	Notifier *NotifierConfig `yaml:"notifier"`
}

// IsEnabled reports whether the lamp participates in control.
// Absent means enabled.
func (l *LightConfig) IsEnabled() bool {
	return l.Enabled == nil || *l.Enabled
}

// EffectiveID returns the configured ID, or the address with colons
// stripped and lowercased when no ID is set.
func (l *LightConfig) EffectiveID() string {
	if l.ID != "" {
		return l.ID
	}
	return strings.ToLower(strings.ReplaceAll(l.Address, ":", ""))
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GOVEEBLE_SECTION_KEY
// For example: GOVEEBLE_DATABASE_PATH, GOVEEBLE_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Govee BLE",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/goveeble.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "goveeble-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		BLE: BLEConfig{
			MaxConnections:     5,
			ConnectTimeout:     10 * time.Second,
			WriteTimeout:       5 * time.Second,
			ReconnectAttempts:  5,
			ReconnectBaseDelay: 700 * time.Millisecond,
			PacketSendDelay:    50 * time.Millisecond,
			CommandLoopDelay:   1 * time.Second,
			PingInterval:       5,
			KeepAliveTicks:     60,
		},
		Scheduler: SchedulerConfig{
			Parallel: 3,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GOVEEBLE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("GOVEEBLE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GOVEEBLE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GOVEEBLE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("GOVEEBLE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GOVEEBLE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("GOVEEBLE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("GOVEEBLE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// macPattern matches a colon-separated BLE MAC address.
func validAddress(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 6 {
		return false
	}
	for _, p := range parts {
		if len(p) != 2 {
			return false
		}
		if _, err := strconv.ParseUint(p, 16, 8); err != nil {
			return false
		}
	}
	return true
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// BLE validation
	if c.BLE.MaxConnections < 1 {
		errs = append(errs, "ble.max_connections must be at least 1")
	}
	if c.BLE.ReconnectAttempts < 1 {
		errs = append(errs, "ble.reconnect_attempts must be at least 1")
	}
	if c.BLE.PingInterval < 1 {
		errs = append(errs, "ble.ping_interval must be at least 1")
	}
	if c.BLE.KeepAliveTicks < 1 {
		errs = append(errs, "ble.keep_alive_ticks must be at least 1")
	}

	// Scheduler validation
	if c.Scheduler.Parallel < 1 {
		errs = append(errs, "scheduler.parallel must be at least 1")
	}
	if c.Scheduler.Parallel > c.BLE.MaxConnections {
		errs = append(errs, "scheduler.parallel cannot exceed ble.max_connections")
	}

	// Light inventory validation
	seen := make(map[string]struct{}, len(c.Lights))
	for i := range c.Lights {
		l := &c.Lights[i]
		if l.Address == "" {
			errs = append(errs, fmt.Sprintf("lights[%d].address is required", i))
			continue
		}
		if !validAddress(l.Address) {
			errs = append(errs, fmt.Sprintf("lights[%d].address %q is not a valid BLE MAC", i, l.Address))
		}
		id := l.EffectiveID()
		if _, dup := seen[id]; dup {
			errs = append(errs, fmt.Sprintf("lights[%d] duplicates id %q", i, id))
		}
		seen[id] = struct{}{}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// BusyTimeoutDuration returns the SQLite busy timeout as a Duration.
func (c *Config) BusyTimeoutDuration() time.Duration {
	return time.Duration(c.Database.BusyTimeout) * time.Second
}

// FlushIntervalDuration returns the InfluxDB flush interval as a Duration.
func (c *Config) FlushIntervalDuration() time.Duration {
	return time.Duration(c.InfluxDB.FlushInterval) * time.Second
}
