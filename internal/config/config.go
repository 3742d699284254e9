package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

const (
	defaultTolerance = "300s"
	maxJoinWorkers   = 64
)

// Config holds all batch settings, populated from environment variables (and
// an optional .env file). Command-line flags may override the paths and the
// tolerance before Validate is called.
type Config struct {
	EventsPath  string
	SystemsPath string
	OutputPath  string

	Tolerance   time.Duration
	JoinWorkers int

	HTTPAddr        string
	MetricsTextfile string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional Kafka publishing of merged records.
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	// A missing .env file is normal; real environment variables take precedence.
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	tolerance, err := ParseTolerance(sharedcfg.EnvOrDefault("JOIN_TOLERANCE", defaultTolerance))
	if err != nil {
		return nil, fmt.Errorf("invalid JOIN_TOLERANCE: %w", err)
	}

	workers, err := parseJoinWorkers()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		EventsPath:      os.Getenv("EVENTS_PATH"),
		SystemsPath:     os.Getenv("SYSTEMS_PATH"),
		OutputPath:      os.Getenv("OUTPUT_PATH"),
		Tolerance:       tolerance,
		JoinWorkers:     workers,
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:  os.Getenv("KAFKA_SINK_TOPIC"),
	}

	if cfg.KafkaSinkTopic != "" && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_SINK_TOPIC is set")
	}

	return cfg, nil
}

// Validate checks the settings that flags may still have filled in after Load.
func (c *Config) Validate() error {
	if c.EventsPath == "" {
		return errors.New("EVENTS_PATH is required")
	}
	if c.SystemsPath == "" {
		return errors.New("SYSTEMS_PATH is required")
	}
	if c.OutputPath == "" {
		return errors.New("OUTPUT_PATH is required")
	}
	if c.Tolerance <= 0 {
		return errors.New("JOIN_TOLERANCE must be positive")
	}
	return nil
}

// KafkaEnabled reports whether merged records are also published to Kafka.
func (c *Config) KafkaEnabled() bool { return c.KafkaSinkTopic != "" }

// ParseTolerance accepts a Go duration ("5m", "300s") or a bare number of
// seconds ("300"). The result must be positive.
func ParseTolerance(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		secs, convErr := strconv.Atoi(s)
		if convErr != nil {
			return 0, fmt.Errorf("parse tolerance %q: %w", s, err)
		}
		d = time.Duration(secs) * time.Second
	}
	if d <= 0 {
		return 0, fmt.Errorf("tolerance %q must be positive", s)
	}
	return d, nil
}

func parseJoinWorkers() (int, error) {
	s := os.Getenv("JOIN_WORKERS")
	if s == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxJoinWorkers {
		return 0, fmt.Errorf("invalid JOIN_WORKERS: must be between 1 and %d", maxJoinWorkers)
	}
	return n, nil
}
