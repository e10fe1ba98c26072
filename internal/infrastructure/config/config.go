package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/msgpo/kalliope-app/internal/synapse"
)

// Config is the root configuration structure for kalliope-app.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Kalliope KalliopeConfig `yaml:"kalliope"`
	Geofence GeofenceConfig `yaml:"geofence"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// KalliopeConfig identifies the Kalliope server and how to reach it.
type KalliopeConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Mute     bool   `yaml:"mute"`

	// Timeout is the HTTP client timeout in seconds. 0 disables it.
	Timeout int `yaml:"timeout"`
}

// GeofenceConfig selects where geofences for geolocation synapses are armed.
type GeofenceConfig struct {
	Enabled bool `yaml:"enabled"`

	// Platform is "sqlite" (local registry) or "owntracks" (MQTT waypoints).
	Platform  string          `yaml:"platform"`
	OwnTracks OwnTracksConfig `yaml:"owntracks"`
}

// OwnTracksConfig addresses the OwnTracks device that receives waypoints.
type OwnTracksConfig struct {
	// TopicPrefix is the OwnTracks base topic. Default: "owntracks"
	TopicPrefix string `yaml:"topic_prefix"`
	User        string `yaml:"user"`
	Device      string `yaml:"device"`
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

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// History records every synapse run in the run_history table.
	History bool `yaml:"history"`
}

// InfluxDBConfig contains InfluxDB connection settings for run telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains relay HTTP server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Geofence platform names.
const (
	PlatformSQLite    = "sqlite"
	PlatformOwnTracks = "owntracks"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: KALLIOPE_SECTION_KEY, except for
// the server settings themselves (KALLIOPE_URL, KALLIOPE_USERNAME, ...).
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// FromEnv builds a configuration from defaults and environment variables
// only. It is used when no configuration file exists.
func FromEnv() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Kalliope: KalliopeConfig{
			URL:     "http://127.0.0.1:5000",
			Timeout: 30,
		},
		Geofence: GeofenceConfig{
			Platform: PlatformSQLite,
			OwnTracks: OwnTracksConfig{
				TopicPrefix: "owntracks",
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "kalliope-app",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/kalliope-app.db",
			WALMode:     true,
			BusyTimeout: 5,
			History:     true,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8088,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 60,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Kalliope server
	if v := os.Getenv("KALLIOPE_URL"); v != "" {
		cfg.Kalliope.URL = v
	}
	if v := os.Getenv("KALLIOPE_USERNAME"); v != "" {
		cfg.Kalliope.Username = v
	}
	if v := os.Getenv("KALLIOPE_PASSWORD"); v != "" {
		cfg.Kalliope.Password = v
	}
	if v := os.Getenv("KALLIOPE_MUTE"); v != "" {
		if mute, err := strconv.ParseBool(v); err == nil {
			cfg.Kalliope.Mute = mute
		}
	}

	// MQTT
	if v := os.Getenv("KALLIOPE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("KALLIOPE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("KALLIOPE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Database
	if v := os.Getenv("KALLIOPE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("KALLIOPE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Kalliope server
	if c.Kalliope.URL == "" {
		errs = append(errs, "kalliope.url is required (set KALLIOPE_URL environment variable)")
	} else if _, err := url.Parse(c.Settings().BaseURL()); err != nil {
		errs = append(errs, fmt.Sprintf("kalliope.url is invalid: %v", err))
	}
	if c.Kalliope.Timeout < 0 {
		errs = append(errs, "kalliope.timeout must not be negative")
	}

	// Geofence
	if c.Geofence.Enabled {
		switch c.Geofence.Platform {
		case PlatformSQLite:
			if c.Database.Path == "" {
				errs = append(errs, "database.path is required for the sqlite geofence platform")
			}
		case PlatformOwnTracks:
			if c.Geofence.OwnTracks.User == "" || c.Geofence.OwnTracks.Device == "" {
				errs = append(errs, "geofence.owntracks.user and geofence.owntracks.device are required")
			}
		default:
			errs = append(errs, fmt.Sprintf("geofence.platform must be %q or %q", PlatformSQLite, PlatformOwnTracks))
		}
	}

	// MQTT
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// InfluxDB
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// API
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Settings returns the Kalliope server settings used for every call.
func (c *Config) Settings() synapse.Settings {
	return synapse.Settings{
		URL:      c.Kalliope.URL,
		Username: c.Kalliope.Username,
		Password: c.Kalliope.Password,
		Mute:     c.Kalliope.Mute,
	}
}

// GetKalliopeTimeout returns the HTTP client timeout as a Duration.
func (c *Config) GetKalliopeTimeout() time.Duration {
	return time.Duration(c.Kalliope.Timeout) * time.Second
}

// ReadTimeout returns the read timeout as a Duration.
func (t APITimeoutConfig) ReadTimeout() time.Duration {
	return time.Duration(t.Read) * time.Second
}

// WriteTimeout returns the write timeout as a Duration.
func (t APITimeoutConfig) WriteTimeout() time.Duration {
	return time.Duration(t.Write) * time.Second
}

// IdleTimeout returns the keep-alive idle timeout as a Duration.
func (t APITimeoutConfig) IdleTimeout() time.Duration {
	return time.Duration(t.Idle) * time.Second
}
