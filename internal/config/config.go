// Package config loads the enricher's settings from the environment (and an
// optional .env file) and the processor pipeline from a YAML definition.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"catenrich/internal/enrich"
)

const DefaultPipelineFile = "pipeline.yaml"

type CategoriesConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type KafkaConfig struct {
	Broker          string
	Topic           string
	GroupID         string
	DeadLetterTopic string
}

type MinioConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	EnrichedBucket string
}

type LogConfig struct {
	Level  string
	Format string
}

type Config struct {
	Categories   CategoriesConfig
	Kafka        KafkaConfig
	Minio        MinioConfig
	PostgresDSN  string
	Log          LogConfig
	PipelineFile string
	Pipeline     []enrich.Definition
}

// env maps config keys to the environment variables that set them.
var env = map[string]string{
	"categories.url":         "CATEGORIES_URL",
	"categories.api_key":     "CATEGORIES_API_KEY",
	"categories.timeout":     "CATEGORIES_TIMEOUT",
	"kafka.broker":           "KAFKA_BROKER",
	"kafka.topic":            "KAFKA_TOPIC",
	"kafka.group_id":         "KAFKA_GROUP_ID",
	"kafka.deadletter_topic": "KAFKA_DEADLETTER_TOPIC",
	"minio.endpoint":         "MINIO_ENDPOINT",
	"minio.access_key":       "MINIO_ACCESS_KEY",
	"minio.secret_key":       "MINIO_SECRET_KEY",
	"minio.use_ssl":          "MINIO_USE_SSL",
	"minio.enriched_bucket":  "ENRICHED_BUCKET",
	"postgres.dsn":           "POSTGRES_DSN",
	"log.level":              "LOG_LEVEL",
	"log.format":             "LOG_FORMAT",
	"pipeline.file":          "PIPELINE_FILE",
}

// LoadEnv reads a .env file into the process environment if one exists.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, assuming environment variables are set directly.")
	}
}

// Load reads settings from the environment. The pipeline definition is not
// read; see LoadPipeline.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("categories.timeout", "30s")
	v.SetDefault("kafka.deadletter_topic", "documents.deadletter")
	v.SetDefault("minio.enriched_bucket", "enriched")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("pipeline.file", DefaultPipelineFile)
	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
	}

	timeout, err := time.ParseDuration(v.GetString("categories.timeout"))
	if err != nil {
		return nil, fmt.Errorf("CATEGORIES_TIMEOUT: %w", err)
	}

	return &Config{
		Categories: CategoriesConfig{
			URL:     v.GetString("categories.url"),
			APIKey:  v.GetString("categories.api_key"),
			Timeout: timeout,
		},
		Kafka: KafkaConfig{
			Broker:          v.GetString("kafka.broker"),
			Topic:           v.GetString("kafka.topic"),
			GroupID:         v.GetString("kafka.group_id"),
			DeadLetterTopic: v.GetString("kafka.deadletter_topic"),
		},
		Minio: MinioConfig{
			Endpoint:       v.GetString("minio.endpoint"),
			AccessKey:      v.GetString("minio.access_key"),
			SecretKey:      v.GetString("minio.secret_key"),
			UseSSL:         v.GetBool("minio.use_ssl"),
			EnrichedBucket: v.GetString("minio.enriched_bucket"),
		},
		PostgresDSN: v.GetString("postgres.dsn"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		PipelineFile: v.GetString("pipeline.file"),
	}, nil
}

// Validate checks what every command needs.
func (c *Config) Validate() error {
	if c.Categories.URL == "" {
		return errors.New("CATEGORIES_URL is required")
	}
	if c.Categories.Timeout < 0 {
		return errors.New("CATEGORIES_TIMEOUT must not be negative")
	}
	return nil
}

// ValidateService checks the settings of the streaming service.
func (c *Config) ValidateService() error {
	if err := c.Validate(); err != nil {
		return err
	}
	required := []struct{ name, value string }{
		{"KAFKA_BROKER", c.Kafka.Broker},
		{"KAFKA_TOPIC", c.Kafka.Topic},
		{"KAFKA_GROUP_ID", c.Kafka.GroupID},
		{"KAFKA_DEADLETTER_TOPIC", c.Kafka.DeadLetterTopic},
		{"MINIO_ENDPOINT", c.Minio.Endpoint},
		{"MINIO_ACCESS_KEY", c.Minio.AccessKey},
		{"MINIO_SECRET_KEY", c.Minio.SecretKey},
		{"ENRICHED_BUCKET", c.Minio.EnrichedBucket},
	}
	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	if len(c.Pipeline) == 0 {
		return fmt.Errorf("pipeline %s defines no processors", c.PipelineFile)
	}
	return nil
}
