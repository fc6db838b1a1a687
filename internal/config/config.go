package config

import (
	"fmt"
	"os"
	"time"

	"github.com/cuongbtq/unoapi-commander/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Outgoing transports
const (
	TransportAMQP  = "amqp"
	TransportKafka = "kafka"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Commander CommanderConfig `yaml:"commander"`
	Outgoing  OutgoingConfig  `yaml:"outgoing"`
	Worker    WorkerConfig    `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration. An empty host
// disables template storage; only built-in templates are served.
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
	MigrationsPath  string        `yaml:"migrations_path"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host         string           `yaml:"host"`
	Port         int              `yaml:"port"`
	User         string           `yaml:"user"`
	Password     string           `yaml:"password"`
	VHost        string           `yaml:"vhost"`
	ExchangeType string           `yaml:"exchange_type"`
	Durable      bool             `yaml:"durable"`
	AutoDelete   bool             `yaml:"auto_delete"`
	BindingKey   string           `yaml:"binding_key"`
	Connection   ConnectionConfig `yaml:"connection"`
	Consumer     ConsumerConfig   `yaml:"consumer"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int  `yaml:"prefetch_count"`
	Exclusive     bool `yaml:"exclusive"`
}

// RedisConfig holds the config store connection
type RedisConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Password     string        `yaml:"password"`
	Database     int           `yaml:"database"`
	PoolSize     int           `yaml:"pool_size"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	KeyPrefix    string        `yaml:"key_prefix"`
	TTL          time.Duration `yaml:"ttl"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

// KafkaConfig holds the outgoing Kafka producer settings
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	RequiredAcks int           `yaml:"required_acks"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// CommanderConfig names the queues the commander reads and writes
type CommanderConfig struct {
	Queue           string `yaml:"queue"`
	BulkParserQueue string `yaml:"bulk_parser_queue"`
	BulkReportQueue string `yaml:"bulk_report_queue"`
	ReloadQueue     string `yaml:"reload_queue"`
}

// OutgoingConfig selects how acknowledgment messages leave the service
type OutgoingConfig struct {
	Transport string `yaml:"transport"` // amqp, kafka
	Queue     string `yaml:"queue"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
	NoColor      bool   `yaml:"no_color"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	JobTimeout      time.Duration `yaml:"job_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Load reads and parses the configuration file and fills in defaults
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyDefaults()
	return &config, nil
}

// ApplyDefaults fills queue names and transport settings left empty
func (c *Config) ApplyDefaults() {
	if c.Commander.Queue == "" {
		c.Commander.Queue = domain.QueueCommander
	}
	if c.Commander.BulkParserQueue == "" {
		c.Commander.BulkParserQueue = domain.QueueBulkParser
	}
	if c.Commander.BulkReportQueue == "" {
		c.Commander.BulkReportQueue = domain.QueueBulkReport
	}
	if c.Commander.ReloadQueue == "" {
		c.Commander.ReloadQueue = domain.QueueReload
	}
	if c.Outgoing.Transport == "" {
		c.Outgoing.Transport = TransportAMQP
	}
	if c.Outgoing.Queue == "" {
		c.Outgoing.Queue = domain.QueueOutgoing
	}
	if c.RabbitMQ.ExchangeType == "" {
		c.RabbitMQ.ExchangeType = "topic"
	}
	if c.RabbitMQ.BindingKey == "" {
		c.RabbitMQ.BindingKey = "#"
	}
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = 1
	}
	if c.Worker.ShutdownTimeout <= 0 {
		c.Worker.ShutdownTimeout = 30 * time.Second
	}
	if c.Database.MigrationsPath == "" {
		c.Database.MigrationsPath = "migrations"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
}

// ValidateAPIConfig checks the settings the api service depends on
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.validateRabbitMQ(); err != nil {
		return err
	}

	if err := c.validateRedis(); err != nil {
		return err
	}

	return c.validateDatabase()
}

// ValidateCommanderConfig checks the settings the commander service depends on
func (c *Config) ValidateCommanderConfig() error {
	if err := c.validateRabbitMQ(); err != nil {
		return err
	}

	if err := c.validateRedis(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	switch c.Outgoing.Transport {
	case TransportAMQP:
	case TransportKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required for the kafka transport")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required for the kafka transport")
		}
	default:
		return fmt.Errorf("unknown outgoing transport: %q", c.Outgoing.Transport)
	}

	if c.Worker.JobTimeout < 0 {
		return fmt.Errorf("worker job_timeout must not be negative")
	}

	return nil
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	return nil
}

func (c *Config) validateRedis() error {
	if c.Redis.Host == "" {
		return fmt.Errorf("redis host is required")
	}

	if c.Redis.Port < MinPort || c.Redis.Port > MaxPort {
		return fmt.Errorf("invalid redis port: %d (must be between %d and %d)", c.Redis.Port, MinPort, MaxPort)
	}

	return nil
}

// validateDatabase accepts an empty host; see DatabaseConfig
func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return nil
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}
