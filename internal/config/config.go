package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `json:"server"`
	Render  RenderConfig  `json:"render"`
	Email   EmailConfig   `json:"email"`
	AWS     AWSConfig     `json:"aws"`
	Session SessionConfig `json:"session"`
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// RenderConfig represents certificate rendering configuration
type RenderConfig struct {
	DefaultEventLabel string `json:"default_event_label"`
	DateFormat        string `json:"date_format"`
	FontFamily        string `json:"font_family"`
}

// EmailConfig represents outbound email configuration. Provider selects the
// delivery backend: "smtp", "ses", or empty to disable email entirely.
type EmailConfig struct {
	Provider     string `json:"provider"`
	FromAddress  string `json:"from_address"`
	FromName     string `json:"from_name"`
	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUsername string `json:"smtp_username"`
	SMTPPassword string `json:"smtp_password"`
}

// AWSConfig represents AWS service configuration. Bucket and topic are each
// optional; leaving them empty disables archiving and announcements.
type AWSConfig struct {
	Region      string `json:"region"`
	AccessKey   string `json:"access_key"`
	SecretKey   string `json:"secret_key"`
	S3Bucket    string `json:"s3_bucket"`
	SNSTopicARN string `json:"sns_topic_arn"`
}

// SessionConfig represents session state configuration
type SessionConfig struct {
	BatchRetention time.Duration `json:"batch_retention"`
	BatchWorkers   int           `json:"batch_workers"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Render: RenderConfig{
			DefaultEventLabel: "the event",
			DateFormat:        "January 2, 2006",
			FontFamily:        "Helvetica",
		},
		Email: EmailConfig{
			FromName: "Event Portal",
			SMTPPort: 587,
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Session: SessionConfig{
			BatchRetention: 24 * time.Hour,
			BatchWorkers:   4,
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if event := os.Getenv("DEFAULT_EVENT_LABEL"); event != "" {
		config.Render.DefaultEventLabel = event
	}
	if provider := os.Getenv("EMAIL_PROVIDER"); provider != "" {
		config.Email.Provider = provider
	}
	if from := os.Getenv("EMAIL_FROM_ADDRESS"); from != "" {
		config.Email.FromAddress = from
	}
	if host := os.Getenv("SMTP_HOST"); host != "" {
		config.Email.SMTPHost = host
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Email.SMTPPort = p
		}
	}
	if user := os.Getenv("SMTP_USERNAME"); user != "" {
		config.Email.SMTPUsername = user
	}
	if pass := os.Getenv("SMTP_PASSWORD"); pass != "" {
		config.Email.SMTPPassword = pass
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.AWS.Region = region
	}
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		config.AWS.S3Bucket = bucket
	}
	if topic := os.Getenv("SNS_TOPIC_ARN"); topic != "" {
		config.AWS.SNSTopicARN = topic
	}
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
