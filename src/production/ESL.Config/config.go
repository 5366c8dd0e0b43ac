package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const configFileEnv = "CONFIG_FILE"

// Supported storage drivers
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Supported publisher transports
const (
	TransportMQTT = "mqtt"
	TransportNATS = "nats"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database"`

	// Publisher configuration
	Publisher PublisherConfig `json:"publisher"`

	// MQTT configuration
	MQTT MQTTConfig `json:"mqtt"`

	// NATS configuration
	NATS NATSConfig `json:"nats"`

	// Label rendering configuration
	Render RenderConfig `json:"render"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// CORS configuration
	CORS CORSConfig `json:"cors"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig holds document store configuration
type DatabaseConfig struct {
	Driver           string        `json:"driver"` // mongo or memory
	URI              string        `json:"uri"`
	Name             string        `json:"name"`
	LabelsCollection string        `json:"labels_collection"`
	LogsCollection   string        `json:"logs_collection"`
	ConnectTimeout   time.Duration `json:"connect_timeout"`
}

// PublisherConfig selects the push transport and the per-store topic prefix
type PublisherConfig struct {
	Transport   string `json:"transport"` // mqtt or nats
	TopicPrefix string `json:"topic_prefix"`
}

// MQTTConfig holds MQTT-related configuration
type MQTTConfig struct {
	BrokerHost     string        `json:"broker_host"`
	BrokerPort     int           `json:"broker_port"`
	BrokerUser     string        `json:"broker_user"`
	BrokerPass     string        `json:"broker_pass"`
	UseTLS         bool          `json:"use_tls"`
	CACertPath     string        `json:"ca_cert_path"`
	ClientID       string        `json:"client_id"`
	QoS            int           `json:"qos"`
	Retain         bool          `json:"retain"`
	KeepAlive      time.Duration `json:"keep_alive"`
	PingTimeout    time.Duration `json:"ping_timeout"`
	PublishTimeout time.Duration `json:"publish_timeout"`
}

// NATSConfig holds NATS-related configuration
type NATSConfig struct {
	URL            string        `json:"url"`
	Name           string        `json:"name"`
	PublishTimeout time.Duration `json:"publish_timeout"`
}

// RenderConfig holds label rendering configuration
type RenderConfig struct {
	FontPath      string `json:"font_path"` // empty uses the embedded bold face
	HeaderCaption string `json:"header_caption"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level        string `json:"level"`
	Format       string `json:"format"` // json or text
	Output       string `json:"output"` // stdout or stderr
	EnableCaller bool   `json:"enable_caller"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

// Load loads configuration from environment variables with fallback defaults.
// A YAML file named by CONFIG_FILE may supply values for any key; the
// environment always wins over the file.
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	src, err := newSource(os.Getenv(configFileEnv))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server: ServerConfig{
			Port:         src.getEnv("PORT", "3000"),
			ReadTimeout:  src.getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: src.getDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  src.getDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			Driver:           strings.ToLower(src.getEnv("DATABASE_DRIVER", DriverMongo)),
			URI:              src.getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Name:             src.getEnv("DB_NAME", "esl"),
			LabelsCollection: src.getEnv("LABELS_COLLECTION", "labels"),
			LogsCollection:   src.getEnv("LOGS_COLLECTION", "logs"),
			ConnectTimeout:   src.getDuration("DB_CONNECT_TIMEOUT", 20*time.Second),
		},
		Publisher: PublisherConfig{
			Transport:   strings.ToLower(src.getEnv("PUBLISHER_TRANSPORT", TransportMQTT)),
			TopicPrefix: src.getEnv("MQTT_TOPIC_PREFIX", "velarc/store_01"),
		},
		MQTT: MQTTConfig{
			BrokerHost:     src.getEnv("BROKER_HOST", "broker.hivemq.com"),
			BrokerPort:     src.getInt("BROKER_PORT", 1883),
			BrokerUser:     src.getEnv("BROKER_USER", ""),
			BrokerPass:     src.getEnv("BROKER_PASS", ""),
			UseTLS:         src.getBool("BROKER_TLS", false),
			CACertPath:     src.getEnv("BROKER_CA_FILE", ""),
			ClientID:       src.getEnv("MQTT_CLIENT_ID", "esl-label-server"),
			QoS:            src.getInt("MQTT_QOS", 0),
			Retain:         src.getBool("MQTT_RETAIN", false),
			KeepAlive:      src.getDuration("MQTT_KEEP_ALIVE", 30*time.Second),
			PingTimeout:    src.getDuration("MQTT_PING_TIMEOUT", 10*time.Second),
			PublishTimeout: src.getDuration("MQTT_PUBLISH_TIMEOUT", 10*time.Second),
		},
		NATS: NATSConfig{
			URL:            src.getEnv("NATS_URL", "nats://localhost:4222"),
			Name:           src.getEnv("NATS_CLIENT_NAME", "esl-label-server"),
			PublishTimeout: src.getDuration("NATS_PUBLISH_TIMEOUT", 5*time.Second),
		},
		Render: RenderConfig{
			FontPath:      src.getEnv("FONT_PATH", ""),
			HeaderCaption: src.getEnv("LABEL_HEADER_CAPTION", "SMART STORE"),
		},
		Logging: LoggingConfig{
			Level:        src.getEnv("LOG_LEVEL", "info"),
			Format:       src.getEnv("LOG_FORMAT", "text"),
			Output:       src.getEnv("LOG_OUTPUT", "stdout"),
			EnableCaller: src.getBool("LOG_ENABLE_CALLER", false),
		},
		CORS: CORSConfig{
			AllowedOrigins:   src.getStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods:   src.getStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE"}),
			AllowedHeaders:   src.getStringSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
			ExposedHeaders:   src.getStringSlice("CORS_EXPOSED_HEADERS", []string{"Content-Length", "X-Request-Id"}),
			AllowCredentials: src.getBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           src.getInt("CORS_MAX_AGE", 43200), // 12 hours
		},
	}

	if len(src.errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(src.errs, "; "))
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMongo:
		if c.Database.URI == "" {
			return fmt.Errorf("MONGODB_URI is required for the mongo driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver)
	}

	switch c.Publisher.Transport {
	case TransportMQTT:
		if c.MQTT.BrokerHost == "" {
			return fmt.Errorf("BROKER_HOST is required for the mqtt transport")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return fmt.Errorf("MQTT_QOS must be 0, 1 or 2")
		}
	case TransportNATS:
		if c.NATS.URL == "" {
			return fmt.Errorf("NATS_URL is required for the nats transport")
		}
	default:
		return fmt.Errorf("unsupported PUBLISHER_TRANSPORT %q", c.Publisher.Transport)
	}

	if c.MQTT.PublishTimeout <= 0 {
		return fmt.Errorf("MQTT_PUBLISH_TIMEOUT must be positive")
	}
	if c.NATS.PublishTimeout <= 0 {
		return fmt.Errorf("NATS_PUBLISH_TIMEOUT must be positive")
	}

	if strings.Trim(c.Publisher.TopicPrefix, "/ ") == "" {
		return fmt.Errorf("MQTT_TOPIC_PREFIX must not be empty")
	}
	return nil
}

// GetMQTTBrokerURL returns the MQTT broker URL
func (c *Config) GetMQTTBrokerURL() string {
	scheme := "tcp"
	if c.MQTT.UseTLS {
		scheme = "tcps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.MQTT.BrokerHost, c.MQTT.BrokerPort)
}

// source resolves keys from the environment first and the optional config
// file second. Parse failures are collected instead of exiting the process.
type source struct {
	file map[string]string
	errs []string
}

func newSource(path string) (*source, error) {
	s := &source{file: map[string]string{}}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	for key, value := range raw {
		if value == nil {
			continue
		}
		s.file[strings.ToUpper(strings.TrimSpace(key))] = fmt.Sprint(value)
	}
	return s, nil
}

func (s *source) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return s.file[key]
}

func (s *source) getEnv(key, defaultValue string) string {
	if value := s.lookup(key); value != "" {
		return value
	}
	return defaultValue
}

func (s *source) getInt(key string, defaultValue int) int {
	value := s.lookup(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		s.errs = append(s.errs, fmt.Sprintf("invalid %s: %v", key, err))
		return defaultValue
	}
	return intValue
}

func (s *source) getBool(key string, defaultValue bool) bool {
	value := s.lookup(key)
	if value == "" {
		return defaultValue
	}
	if value == "1" || value == "true" || value == "TRUE" {
		return true
	}
	if value == "0" || value == "false" || value == "FALSE" {
		return false
	}
	s.errs = append(s.errs, fmt.Sprintf("invalid %s: %q (expected true/false or 1/0)", key, value))
	return defaultValue
}

func (s *source) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := s.lookup(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		s.errs = append(s.errs, fmt.Sprintf("invalid %s: %v", key, err))
		return defaultValue
	}
	return duration
}

func (s *source) getStringSlice(key string, defaultValue []string) []string {
	value := s.lookup(key)
	if value == "" {
		return defaultValue
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
