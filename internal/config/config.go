package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/mqtt-stat/internal/domain/alarm"
)

// Config holds everything the agent needs to run.
type Config struct {
	// MQTT describes the broker connection.
	MQTT MQTTConfig `yaml:"mqtt"`
	// Topics lists the topics the agent listens and publishes on.
	Topics TopicsConfig `yaml:"topics"`
	// Alarm is the ramp played by the "find" command.
	Alarm AlarmConfig `yaml:"alarm"`
	// Audio locates the encrypted alarm sounds.
	Audio AudioConfig `yaml:"audio"`
	// Control configures the local control API.
	Control ControlConfig `yaml:"control"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// MQTTConfig contains broker connection settings.
type MQTTConfig struct {
	Host      string          `yaml:"host"`
	Port      int             `yaml:"port"`
	ClientID  string          `yaml:"client_id"`
	Username  string          `yaml:"username,omitempty"`
	Password  string          `yaml:"password,omitempty"`
	TLS       bool            `yaml:"tls"`
	KeepAlive time.Duration   `yaml:"keepalive"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig bounds the exponential reconnect backoff.
type ReconnectConfig struct {
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// TopicsConfig lists the agent topics.
type TopicsConfig struct {
	// Listen receives inbound commands.
	Listen string `yaml:"listen"`
	// Reply receives status replies.
	Reply string `yaml:"reply"`
	// Birth receives the retained online announcement.
	Birth string `yaml:"birth"`
	// LastKnownState receives the retained offline announcement (broker will).
	LastKnownState string `yaml:"last_known_state"`
}

// AlarmConfig is the ramp played on "find".
type AlarmConfig struct {
	Interval  time.Duration `yaml:"interval"`
	Increment float64       `yaml:"increment"`
	Start     float64       `yaml:"start"`
	Max       float64       `yaml:"max"`
	// Asset names the sound to play.
	Asset string `yaml:"asset"`
}

// AudioConfig locates the encrypted assets and the key to open them.
type AudioConfig struct {
	AssetsDir    string `yaml:"assets_dir"`
	IdentityFile string `yaml:"identity_file"`
}

// ControlConfig configures the local gRPC control API.
type ControlConfig struct {
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default settings file.
	DefaultConfigFilename = "mqtt-stat-settings.yaml"

	// DefaultPort is the plain MQTT port.
	DefaultPort = 1883

	// DefaultKeepAlive is the MQTT keepalive interval.
	DefaultKeepAlive = 60 * time.Second

	// DefaultInitialDelay is the first reconnect backoff.
	DefaultInitialDelay = time.Second

	// DefaultMaxDelay caps the reconnect backoff.
	DefaultMaxDelay = 60 * time.Second

	// DefaultControlAddress keeps the control API on loopback.
	DefaultControlAddress = "127.0.0.1:50515"

	// DefaultTimeout bounds control API calls.
	DefaultTimeout = 5 * time.Second

	// DefaultAsset is the alarm sound shipped with the agent.
	DefaultAsset = "alarm.wav"

	// DefaultAssetsDir holds the encrypted sounds.
	DefaultAssetsDir = "assets"

	// DefaultIdentityFile holds the age identity that decrypts the sounds.
	DefaultIdentityFile = "mqtt-stat.key"

	// DefaultFilePermissions is used for files the agent writes.
	DefaultFilePermissions = 0o600

	// defaultClientIDPrefix prefixes the hostname in the generated client id.
	defaultClientIDPrefix = "mqtt-stat-"
)

// Default topics.
const (
	DefaultListenTopic         = "mqtt-stat/status"
	DefaultReplyTopic          = "mqtt-stat/reply"
	DefaultBirthTopic          = "mqtt-stat/birth"
	DefaultLastKnownStateTopic = "mqtt-stat/lwt"
)

// Environment overrides, applied on top of the settings file.
const (
	EnvBrokerHost = "MQTT_STAT_BROKER_HOST"
	EnvBrokerPort = "MQTT_STAT_BROKER_PORT"
	EnvUsername   = "MQTT_STAT_USERNAME"
	EnvPassword   = "MQTT_STAT_PASSWORD"
	EnvLogLevel   = "MQTT_STAT_LOG_LEVEL"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBrokerHostRequired is returned when the broker host is missing.
	errBrokerHostRequired = errors.New("mqtt broker host must be provided")
	// errInvalidPort is returned for ports outside 1-65535.
	errInvalidPort = errors.New("mqtt broker port must be between 1 and 65535")
	// errInvalidBackoff is returned when the reconnect bounds are inverted.
	errInvalidBackoff = errors.New("reconnect initial_delay must not exceed max_delay")
	// errDuplicateTopic is returned when the listen topic is reused for output.
	errDuplicateTopic = errors.New("listen topic must differ from reply, birth and last_known_state topics")
)

// Load reads the settings file, applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the settings to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// The file may hold broker credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the settings.
//
//nolint:cyclop // A flat list of checks reads better than helpers here.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	setDefaults(cfg)

	if cfg.MQTT.Host == "" {
		return errBrokerHostRequired
	}

	if cfg.MQTT.Port < 1 || cfg.MQTT.Port > 65535 {
		return fmt.Errorf("%w: got %d", errInvalidPort, cfg.MQTT.Port)
	}

	if cfg.MQTT.Reconnect.InitialDelay > cfg.MQTT.Reconnect.MaxDelay {
		return errInvalidBackoff
	}

	t := cfg.Topics
	if t.Listen == t.Reply || t.Listen == t.Birth || t.Listen == t.LastKnownState {
		return errDuplicateTopic
	}

	if err := cfg.Ramp().Validate(); err != nil {
		return fmt.Errorf("alarm settings: %w", err)
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.Control.Address); err != nil {
		return fmt.Errorf("invalid control address: %w", err)
	}

	return nil
}

// Ramp returns the alarm ramp described by the settings.
func (c *Config) Ramp() alarm.Ramp {
	return alarm.Ramp{
		Interval:  c.Alarm.Interval,
		Increment: c.Alarm.Increment,
		Start:     c.Alarm.Start,
		Max:       c.Alarm.Max,
	}
}

// BrokerURL returns the paho broker URL.
func (c *MQTTConfig) BrokerURL() string {
	scheme := "tcp"
	if c.TLS {
		scheme = "ssl"
	}

	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)))
}

// setDefaults fills every zero-valued optional setting.
func setDefaults(cfg *Config) {
	m := &cfg.MQTT
	if m.Port == 0 {
		m.Port = DefaultPort
	}

	if m.ClientID == "" {
		m.ClientID = defaultClientID()
	}

	if m.KeepAlive <= 0 {
		m.KeepAlive = DefaultKeepAlive
	}

	if m.Reconnect.InitialDelay <= 0 {
		m.Reconnect.InitialDelay = DefaultInitialDelay
	}

	if m.Reconnect.MaxDelay <= 0 {
		m.Reconnect.MaxDelay = DefaultMaxDelay
	}

	setDefaultString(&cfg.Topics.Listen, DefaultListenTopic)
	setDefaultString(&cfg.Topics.Reply, DefaultReplyTopic)
	setDefaultString(&cfg.Topics.Birth, DefaultBirthTopic)
	setDefaultString(&cfg.Topics.LastKnownState, DefaultLastKnownStateTopic)

	// A zero ramp means "not configured"; partial ramps are validated as written.
	if cfg.Alarm.Interval == 0 && cfg.Alarm.Increment == 0 && cfg.Alarm.Start == 0 && cfg.Alarm.Max == 0 {
		def := alarm.DefaultRamp()
		cfg.Alarm.Interval, cfg.Alarm.Increment, cfg.Alarm.Start, cfg.Alarm.Max =
			def.Interval, def.Increment, def.Start, def.Max
	}

	if cfg.Alarm.Max == 0 {
		cfg.Alarm.Max = alarm.DefaultMax
	}

	setDefaultString(&cfg.Alarm.Asset, DefaultAsset)
	setDefaultString(&cfg.Audio.AssetsDir, DefaultAssetsDir)
	setDefaultString(&cfg.Audio.IdentityFile, DefaultIdentityFile)
	setDefaultString(&cfg.Control.Address, DefaultControlAddress)

	if cfg.Control.Timeout <= 0 {
		cfg.Control.Timeout = DefaultTimeout
	}
}

func setDefaultString(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

// applyEnvOverrides replaces file settings with MQTT_STAT_* variables when set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvBrokerHost); v != "" {
		cfg.MQTT.Host = v
	}

	if v := os.Getenv(EnvBrokerPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvBrokerPort, err)
		}

		cfg.MQTT.Port = port
	}

	if v := os.Getenv(EnvUsername); v != "" {
		cfg.MQTT.Username = v
	}

	if v := os.Getenv(EnvPassword); v != "" {
		cfg.MQTT.Password = v
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	return nil
}

// defaultClientID derives a stable client id from the hostname.
func defaultClientID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return strings.TrimSuffix(defaultClientIDPrefix, "-")
	}

	return defaultClientIDPrefix + hostname
}
