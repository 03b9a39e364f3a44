package config

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultStationsURL is the published train station list.
	DefaultStationsURL = "https://gist.githubusercontent.com/neysidev/bbd40032f0f4e167a1e6a8b3e99a490c/raw/train-stations.json"

	SourceHTTP     = "http"
	SourceS3       = "s3"
	SourceDynamoDB = "dynamodb"
)

type Config struct {
	Environment    string
	LogLevel       zerolog.Level
	HTTPTimeout    time.Duration
	ListenAddr     string
	StationsSource string
	StationsURL    string
	S3Bucket       string
	S3Key          string
	DynamoTable    string
	// AWSEndpoint points the AWS clients at a local emulator when set
	AWSEndpoint string
}

type Option func(*Config)

// WithEnvironment allows setting the environment
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithLogLevel allows setting the log level
func WithLogLevel(level string) Option {
	return func(c *Config) {
		parsedLevel, err := zerolog.ParseLevel(level)
		if err != nil {
			parsedLevel = zerolog.InfoLevel
		}
		c.LogLevel = parsedLevel
	}
}

// WithHTTPTimeout allows setting the HTTP timeout
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.HTTPTimeout = timeout
	}
}

// WithListenAddr sets the address the HTTP server binds to
func WithListenAddr(addr string) Option {
	return func(c *Config) {
		c.ListenAddr = addr
	}
}

// WithStationsSource selects where the station list is fetched from
func WithStationsSource(source string) Option {
	return func(c *Config) {
		switch source {
		case SourceHTTP, SourceS3, SourceDynamoDB:
			c.StationsSource = source
		default:
			log.Warn().Str("source", source).Msg("Unknown stations source, using http")
			c.StationsSource = SourceHTTP
		}
	}
}

// WithStationsURL overrides the station list URL
func WithStationsURL(url string) Option {
	return func(c *Config) {
		c.StationsURL = url
	}
}

// WithS3Object sets the bucket and key holding the station list
func WithS3Object(bucket, key string) Option {
	return func(c *Config) {
		c.S3Bucket = bucket
		c.S3Key = key
	}
}

// WithDynamoTable sets the table holding one item per station
func WithDynamoTable(table string) Option {
	return func(c *Config) {
		c.DynamoTable = table
	}
}

// WithAWSEndpoint overrides the AWS endpoint for local development
func WithAWSEndpoint(endpoint string) Option {
	return func(c *Config) {
		c.AWSEndpoint = endpoint
	}
}

// New creates a new configuration with default values
func New(opts ...Option) *Config {
	cfg := &Config{
		Environment:    "production",
		LogLevel:       zerolog.InfoLevel,
		HTTPTimeout:    10 * time.Second,
		ListenAddr:     ":8080",
		StationsSource: SourceHTTP,
		StationsURL:    DefaultStationsURL,
		S3Key:          "stations.json",
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// InitializeLogging sets up logging based on the configuration
func (c *Config) InitializeLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(c.LogLevel)

	// Setup console logger for development environments
	if c.IsLocal() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
		return
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// IsLocal reports whether the process runs on a developer machine
func (c *Config) IsLocal() bool {
	return c.Environment == "local" || c.Environment == "development"
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	return New(
		WithEnvironment(getEnvOrDefault("ENV", "production")),
		WithLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
		WithHTTPTimeout(getDurationEnvOrDefault("HTTP_TIMEOUT", 10*time.Second)),
		WithListenAddr(getEnvOrDefault("LISTEN_ADDR", ":8080")),
		WithStationsSource(getEnvOrDefault("STATIONS_SOURCE", SourceHTTP)),
		WithStationsURL(getEnvOrDefault("STATIONS_URL", DefaultStationsURL)),
		WithS3Object(os.Getenv("STATIONS_S3_BUCKET"), getEnvOrDefault("STATIONS_S3_KEY", "stations.json")),
		WithDynamoTable(os.Getenv("STATIONS_DYNAMO_TABLE")),
		WithAWSEndpoint(os.Getenv("AWS_ENDPOINT")),
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
