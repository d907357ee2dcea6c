package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Telegram
	BotToken       string
	PollTimeoutSec int

	// Database
	SQLiteDBPath string

	// AMQP mirror events (optional; empty URL disables the mirror pipeline)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror target (optional)
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string

	// Worker
	MirrorBatchSize int
	MirrorInterval  time.Duration
}

func Load() *Config {
	return &Config{
		BotToken:       getEnv("BOT_TOKEN", ""),
		PollTimeoutSec: getEnvInt("POLL_TIMEOUT_SEC", 60),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/duitbot.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "duitbot"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "mirror_transactions"),

		SpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		SheetName:       getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		CredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		CredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),

		MirrorBatchSize: getEnvInt("MIRROR_BATCH_SIZE", 10),
		MirrorInterval:  getEnvDuration("MIRROR_INTERVAL", 30*time.Second),
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.BotToken) == "" {
		problems = append(problems, "BOT_TOKEN cannot be empty")
	}

	if c.PollTimeoutSec < 1 || c.PollTimeoutSec > 300 {
		problems = append(problems, fmt.Sprintf("invalid poll timeout %d: must be between 1 and 300 seconds", c.PollTimeoutSec))
	}

	if c.SQLiteDBPath == "" {
		problems = append(problems, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					problems = append(problems, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SpreadsheetID != "" {
		if c.SheetName == "" {
			problems = append(problems, "sheet name cannot be empty when a spreadsheet ID is provided")
		}
		if c.CredentialsFile != "" {
			if _, err := os.Stat(c.CredentialsFile); os.IsNotExist(err) {
				problems = append(problems, fmt.Sprintf("Google credentials file does not exist: %s", c.CredentialsFile))
			}
		}
	}

	if c.MirrorBatchSize < 1 || c.MirrorBatchSize > 1000 {
		problems = append(problems, fmt.Sprintf("invalid mirror batch size %d: must be between 1 and 1000", c.MirrorBatchSize))
	}
	if c.MirrorInterval < time.Second || c.MirrorInterval > 24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid mirror interval %v: must be between 1 second and 24 hours", c.MirrorInterval))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// MirrorEnabled reports whether the AMQP mirror pipeline is configured.
func (c *Config) MirrorEnabled() bool {
	return c.AMQPURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
