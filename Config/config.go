package Config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database holds the relational store settings
type Database struct {
	Driver   string
	Path     string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// Log holds operational logging settings
type Log struct {
	Format            string
	Level             string
	File              string
	Console           bool
	RetentionDays     int
	RetentionSchedule string
}

// Slack holds the review notification channel
type Slack struct {
	BotToken  string
	ChannelID string
}

// SMTP holds the review notification mail relay
type SMTP struct {
	Server    string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	TLS       bool
}

type Config struct {
	Port           string
	JWTSecret      string
	RequestTimeout time.Duration
	Database       Database
	Log            Log
	Slack          Slack
	SMTP           SMTP
}

var defaults = map[string]any{
	"PORT":                   "8000",
	"DB_DRIVER":              "sqlite",
	"DB_PATH":                "taskmanager.db",
	"DB_HOST":                "127.0.0.1",
	"DB_PORT":                3306,
	"DB_NAME":                "taskmanager",
	"LOG_FORMAT":             "json",
	"LOG_LEVEL":              "info",
	"LOG_FILE":               "logs/requests.log",
	"LOG_CONSOLE":            true,
	"LOG_RETENTION_DAYS":     5,
	"LOG_RETENTION_SCHEDULE": "0 0 1 * * *",
	"SMTP_PORT":              587,
	"SMTP_TLS":               false,
	"REQUEST_TIMEOUT":        "15s",
}

// Load reads .env when present, then the process environment
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{
		Port:           v.GetString("PORT"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		Database: Database{
			Driver:   v.GetString("DB_DRIVER"),
			Path:     v.GetString("DB_PATH"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
		},
		Log: Log{
			Format:            v.GetString("LOG_FORMAT"),
			Level:             v.GetString("LOG_LEVEL"),
			File:              v.GetString("LOG_FILE"),
			Console:           v.GetBool("LOG_CONSOLE"),
			RetentionDays:     v.GetInt("LOG_RETENTION_DAYS"),
			RetentionSchedule: v.GetString("LOG_RETENTION_SCHEDULE"),
		},
		Slack: Slack{
			BotToken:  v.GetString("SLACK_BOT_TOKEN"),
			ChannelID: v.GetString("SLACK_CHANNEL_ID"),
		},
		SMTP: SMTP{
			Server:    v.GetString("SMTP_SERVER"),
			Port:      v.GetInt("SMTP_PORT"),
			Username:  v.GetString("SMTP_USERNAME"),
			Password:  v.GetString("SMTP_PASSWORD"),
			FromEmail: v.GetString("SMTP_FROM_EMAIL"),
			FromName:  v.GetString("SMTP_FROM_NAME"),
			TLS:       v.GetBool("SMTP_TLS"),
		},
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// SlackEnabled reports whether review notifications go to Slack
func (c *Config) SlackEnabled() bool {
	return c.Slack.BotToken != "" && c.Slack.ChannelID != ""
}

// SMTPEnabled reports whether review notifications go out by email
func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Server != "" && c.SMTP.FromEmail != ""
}
