package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported store drivers
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host              string        `yaml:"host" json:"host"`
	Port              int           `yaml:"port" json:"port"`
	ReadTimeout       time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" json:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	AllowedOrigins    []string      `yaml:"allowed_origins" json:"allowed_origins"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
}

// DatabaseConfig represents store configuration
type DatabaseConfig struct {
	Driver                 string        `yaml:"driver" json:"driver"`
	URL                    string        `yaml:"url" json:"url"`
	Name                   string        `yaml:"name" json:"name"`
	Collection             string        `yaml:"collection" json:"collection"`
	MaxOpenConns           int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns           int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime        int           `yaml:"conn_max_lifetime" json:"conn_max_lifetime"` // seconds
	ConnectRetries         int           `yaml:"connect_retries" json:"connect_retries"`
	RetryDelay             time.Duration `yaml:"retry_delay" json:"retry_delay"`
	ServerSelectionTimeout time.Duration `yaml:"server_selection_timeout" json:"server_selection_timeout"`
}

// PaginationConfig bounds list queries
type PaginationConfig struct {
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
	MaxLimit     int `yaml:"max_limit" json:"max_limit"`
}

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server"`
	Database   DatabaseConfig   `yaml:"database" json:"database"`
	Pagination PaginationConfig `yaml:"pagination" json:"pagination"`
	Redis      struct {
		Address  string `yaml:"address" json:"address"`
		Password string `yaml:"password" json:"password"`
		DB       int    `yaml:"db" json:"db"`
	} `yaml:"redis" json:"redis"`
	RateLimit struct {
		Enabled bool   `yaml:"enabled" json:"enabled"`
		Rate    string `yaml:"rate" json:"rate"` // limiter format, e.g. "100-M"
	} `yaml:"rate_limit" json:"rate_limit"`
	Kafka struct {
		Brokers []string `yaml:"brokers" json:"brokers"`
		Topic   string   `yaml:"topic" json:"topic"`
		Enabled bool     `yaml:"enabled" json:"enabled"`
	} `yaml:"kafka" json:"kafka"`
	Tracing struct {
		Enabled     bool   `yaml:"enabled" json:"enabled"`
		Metrics     bool   `yaml:"metrics" json:"metrics"` // also export OpenTelemetry metrics to stdout
		ServiceName string `yaml:"service_name" json:"service_name"`
	} `yaml:"tracing" json:"tracing"`
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	config := &Config{}

	config.Server = ServerConfig{
		Host:              "0.0.0.0",
		Port:              3000,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   15 * time.Second,
		MaxBodyBytes:      1 << 20,
		AllowedOrigins:    []string{"*"},
	}

	config.Database = DatabaseConfig{
		Driver:                 DriverMongo,
		URL:                    "mongodb://localhost:27017",
		Name:                   "node-s3-workshop",
		Collection:             "cryptos",
		MaxOpenConns:           20,
		MaxIdleConns:           5,
		ConnMaxLifetime:        3600,
		ConnectRetries:         5,
		RetryDelay:             5 * time.Second,
		ServerSelectionTimeout: 5 * time.Second,
	}

	config.Pagination = PaginationConfig{DefaultLimit: 10, MaxLimit: 100}

	config.Redis.Address = ""
	config.Redis.DB = 0

	config.RateLimit.Enabled = true
	config.RateLimit.Rate = "100-M"

	config.Kafka.Brokers = []string{"localhost:9092"}
	config.Kafka.Topic = "crypto.changes"
	config.Kafka.Enabled = false

	config.Tracing.Enabled = false
	config.Tracing.ServiceName = "cryptoapi"

	config.LogLevel = "info"

	return config
}

// LoadConfig loads the application configuration from defaults, the
// environment and an optional config.yaml, in increasing precedence
func LoadConfig() (*Config, error) {
	config := Default()
	applyEnv(config)

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cryptoapi")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		applyViper(config, v)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMongo, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}
	if c.Database.ConnectRetries < 0 {
		return fmt.Errorf("database connect_retries must not be negative")
	}
	if c.Pagination.DefaultLimit < 1 || c.Pagination.MaxLimit < c.Pagination.DefaultLimit {
		return fmt.Errorf("invalid pagination limits: default %d, max %d", c.Pagination.DefaultLimit, c.Pagination.MaxLimit)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func applyEnv(config *Config) {
	if port, err := strconv.Atoi(os.Getenv("SERVER_PORT")); err == nil {
		config.Server.Port = port
	} else if port, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
		config.Server.Port = port
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.Server.AllowedOrigins = strings.Split(origins, ",")
	}

	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		config.Database.Driver = strings.ToLower(driver)
	}
	if url := os.Getenv("DB_URL"); url != "" {
		config.Database.URL = url
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		config.Database.Name = name
	}
	if retries, err := strconv.Atoi(os.Getenv("DB_CONNECT_RETRIES")); err == nil {
		config.Database.ConnectRetries = retries
	}
	if delay, err := time.ParseDuration(os.Getenv("DB_RETRY_DELAY")); err == nil {
		config.Database.RetryDelay = delay
	}

	if addr := os.Getenv("REDIS_ADDRESS"); addr != "" {
		config.Redis.Address = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		config.Redis.Password = password
	}
	if db, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		config.Redis.DB = db
	}

	if enabled := os.Getenv("RATE_LIMIT_ENABLED"); enabled != "" {
		config.RateLimit.Enabled = enabled == "true"
	}
	if rate := os.Getenv("RATE_LIMIT"); rate != "" {
		config.RateLimit.Rate = rate
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		config.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if topic := os.Getenv("KAFKA_TOPIC"); topic != "" {
		config.Kafka.Topic = topic
	}
	if enabled := os.Getenv("KAFKA_ENABLED"); enabled != "" {
		config.Kafka.Enabled = enabled == "true"
	}

	if enabled := os.Getenv("TRACING_ENABLED"); enabled != "" {
		config.Tracing.Enabled = enabled == "true"
	}
	if enabled := os.Getenv("OTEL_METRICS_ENABLED"); enabled != "" {
		config.Tracing.Metrics = enabled == "true"
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
}

func applyViper(config *Config, v *viper.Viper) {
	if v.IsSet("server.host") {
		config.Server.Host = v.GetString("server.host")
	}
	if v.IsSet("server.port") {
		config.Server.Port = v.GetInt("server.port")
	}
	if v.IsSet("server.read_timeout") {
		config.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	}
	if v.IsSet("server.write_timeout") {
		config.Server.WriteTimeout = v.GetDuration("server.write_timeout")
	}
	if v.IsSet("server.shutdown_timeout") {
		config.Server.ShutdownTimeout = v.GetDuration("server.shutdown_timeout")
	}
	if v.IsSet("server.max_body_bytes") {
		config.Server.MaxBodyBytes = v.GetInt64("server.max_body_bytes")
	}
	if v.IsSet("server.allowed_origins") {
		config.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}

	if v.IsSet("database.driver") {
		config.Database.Driver = strings.ToLower(v.GetString("database.driver"))
	}
	if v.IsSet("database.url") {
		config.Database.URL = v.GetString("database.url")
	}
	if v.IsSet("database.name") {
		config.Database.Name = v.GetString("database.name")
	}
	if v.IsSet("database.collection") {
		config.Database.Collection = v.GetString("database.collection")
	}
	if v.IsSet("database.max_open_conns") {
		config.Database.MaxOpenConns = v.GetInt("database.max_open_conns")
	}
	if v.IsSet("database.max_idle_conns") {
		config.Database.MaxIdleConns = v.GetInt("database.max_idle_conns")
	}
	if v.IsSet("database.connect_retries") {
		config.Database.ConnectRetries = v.GetInt("database.connect_retries")
	}
	if v.IsSet("database.retry_delay") {
		config.Database.RetryDelay = v.GetDuration("database.retry_delay")
	}
	if v.IsSet("database.server_selection_timeout") {
		config.Database.ServerSelectionTimeout = v.GetDuration("database.server_selection_timeout")
	}

	if v.IsSet("pagination.default_limit") {
		config.Pagination.DefaultLimit = v.GetInt("pagination.default_limit")
	}
	if v.IsSet("pagination.max_limit") {
		config.Pagination.MaxLimit = v.GetInt("pagination.max_limit")
	}

	if v.IsSet("redis.address") {
		config.Redis.Address = v.GetString("redis.address")
	}
	if v.IsSet("redis.password") {
		config.Redis.Password = v.GetString("redis.password")
	}
	if v.IsSet("redis.db") {
		config.Redis.DB = v.GetInt("redis.db")
	}

	if v.IsSet("rate_limit.enabled") {
		config.RateLimit.Enabled = v.GetBool("rate_limit.enabled")
	}
	if v.IsSet("rate_limit.rate") {
		config.RateLimit.Rate = v.GetString("rate_limit.rate")
	}

	if v.IsSet("kafka.brokers") {
		config.Kafka.Brokers = v.GetStringSlice("kafka.brokers")
	}
	if v.IsSet("kafka.topic") {
		config.Kafka.Topic = v.GetString("kafka.topic")
	}
	if v.IsSet("kafka.enabled") {
		config.Kafka.Enabled = v.GetBool("kafka.enabled")
	}

	if v.IsSet("tracing.enabled") {
		config.Tracing.Enabled = v.GetBool("tracing.enabled")
	}
	if v.IsSet("tracing.metrics") {
		config.Tracing.Metrics = v.GetBool("tracing.metrics")
	}
	if v.IsSet("tracing.service_name") {
		config.Tracing.ServiceName = v.GetString("tracing.service_name")
	}

	if v.IsSet("log_level") {
		config.LogLevel = v.GetString("log_level")
	}
}
