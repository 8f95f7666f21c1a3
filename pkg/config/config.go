package config

import (
	"errors"
	"fmt"
	"time"
)

// StorageDriver selects the room/message persistence backend
type StorageDriver string

const (
	// StorageMongo rooms and messages in MongoDB
	StorageMongo StorageDriver = "mongo"
	// StoragePostgres rooms and messages in PostgreSQL through gorm
	StoragePostgres StorageDriver = "postgres"
	// StorageMemory process local store, nothing survives a restart
	StorageMemory StorageDriver = "memory"
)

// DefaultJWTSecret only acceptable for local runs
const DefaultJWTSecret = "secure_secret_key"

// Chat definition chat_service YAML structure
type Chat struct {
	Port           string        `mapstructure:"port"`
	Storage        StorageDriver `mapstructure:"storage"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	ProfileTTL     time.Duration `mapstructure:"profile_ttl"`
	PprofAddr      string        `mapstructure:"pprof_addr"`

	Relay      RelayConfig    `mapstructure:"relay"`
	MongoSQL   DatabaseConfig `mapstructure:"mongo"`
	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	Redis      RedisConfig    `mapstructure:"redis"`
	Kafka      KafkaConfig    `mapstructure:"kafka"`
}

// RelayConfig tuning of the websocket relay
type RelayConfig struct {
	SendRate         float64       `mapstructure:"send_rate"`
	SendBurst        int           `mapstructure:"send_burst"`
	OutboundBuffer   int           `mapstructure:"outbound_buffer"`
	MaxContentLength int           `mapstructure:"max_content_length"`
	StoreTimeout     time.Duration `mapstructure:"store_timeout"`
	EventTimeout     time.Duration `mapstructure:"event_timeout"`
	PingInterval     time.Duration `mapstructure:"ping_interval"`
}

// RedisConfig definition redis setting
//
// Addr is used for a standalone server, otherwise the sentinels from env are used.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	RedisDB  int    `mapstructure:"redis_db"`
}

// KafkaConfig definition kafka setting, empty Brokers disables publishing
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// MongoURI build a mongodb connection string
func (d DatabaseConfig) MongoURI() string {
	if d.User == "" {
		return fmt.Sprintf("mongodb://%s:%d", d.Host, d.Port)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s:%d", d.User, d.Password, d.Host, d.Port)
}

// PostgresDSN build a postgres connection string
func (d DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.Database)
}

// ApplyDefaults fills zero values
func (c *Chat) ApplyDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.Storage == "" {
		c.Storage = StorageMongo
	}
	if c.JWTSecret == "" {
		c.JWTSecret = DefaultJWTSecret
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 24 * time.Hour
	}
	if c.ProfileTTL <= 0 {
		c.ProfileTTL = 10 * time.Minute
	}
	if c.Relay.SendRate <= 0 {
		c.Relay.SendRate = 5
	}
	if c.Relay.SendBurst <= 0 {
		c.Relay.SendBurst = 10
	}
	if c.Relay.OutboundBuffer <= 0 {
		c.Relay.OutboundBuffer = 64
	}
	if c.Relay.MaxContentLength <= 0 {
		c.Relay.MaxContentLength = 4096
	}
	if c.Relay.StoreTimeout <= 0 {
		c.Relay.StoreTimeout = 5 * time.Second
	}
	if c.Relay.EventTimeout <= 0 {
		c.Relay.EventTimeout = 2 * time.Second
	}
	if c.Relay.PingInterval <= 0 {
		c.Relay.PingInterval = 30 * time.Second
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "chat.message.created"
	}
}

// Validate check the settings that have no sensible default
func (c *Chat) Validate(production bool) error {
	var errs []error

	switch c.Storage {
	case StorageMongo:
		if c.MongoSQL.Host == "" || c.MongoSQL.Database == "" {
			errs = append(errs, errors.New("mongo.host and mongo.database are required"))
		}
	case StoragePostgres:
		if c.PostgreSQL.Database == "" {
			errs = append(errs, errors.New("pg.database is required"))
		}
	case StorageMemory:
		if production {
			errs = append(errs, errors.New("memory storage is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q", c.Storage))
	}

	if c.Storage != StorageMemory && c.PostgreSQL.Host == "" {
		errs = append(errs, errors.New("pg.host is required for the member store"))
	}
	if production && c.JWTSecret == DefaultJWTSecret {
		errs = append(errs, errors.New("jwt_secret must be set in production"))
	}
	if c.Relay.SendBurst < 1 {
		errs = append(errs, errors.New("relay.send_burst must be positive"))
	}

	return errors.Join(errs...)
}
