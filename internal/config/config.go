package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bankbot/internal/core"
	"bankbot/internal/log"
)

const DefaultGoCardlessBaseURL = "https://bankaccountdata.gocardless.com/api/v2"

type Config struct {
	// Accounts, in polling order
	Accounts []core.Account

	// GoCardless Bank Account Data
	GoCardlessSecretID   string
	GoCardlessSecretKey  string
	GoCardlessBaseURL    string
	GoCardlessDailyLimit int

	// Slack
	SlackAuthToken string
	SlackChannel   string

	// Scheduling
	PollInterval time.Duration
	PollSkew     time.Duration

	// Label regexes excluded from spent/earned totals
	IgnoreInSpentEarned []string

	// AMQP (optional)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Delivery journal (optional)
	JournalDBPath string

	// Google Sheets export (optional)
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Status server (optional)
	StatusAddr string

	// Logging
	LogLevel  string
	LogFormat string

	// accountErrors keeps BANKBOT_ACCOUNTS parse failures for Validate
	accountErrors []string
	// envErrors keeps unparsable numeric and duration variables for Validate
	envErrors []string
}

func Load() *Config {
	var envErrors []string
	cfg := &Config{
		GoCardlessSecretID:   getEnv("GOCARDLESS_SECRET_ID", ""),
		GoCardlessSecretKey:  getEnv("GOCARDLESS_SECRET_KEY", ""),
		GoCardlessBaseURL:    getEnv("GOCARDLESS_BASE_URL", DefaultGoCardlessBaseURL),
		GoCardlessDailyLimit: getEnvInt("GOCARDLESS_DAILY_LIMIT", 0, &envErrors),

		SlackAuthToken: getEnv("SLACK_AUTH_TOKEN", ""),
		SlackChannel:   getEnv("SLACK_CHANNEL", ""),

		PollInterval: getEnvDuration("POLL_INTERVAL", 4*time.Hour, &envErrors),
		PollSkew:     getEnvDuration("POLL_SKEW", 5*time.Minute, &envErrors),

		IgnoreInSpentEarned: splitList(getEnv("IGNORE_IN_SPENT_EARNED", ""), ";"),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "bankbot"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "summaries"),

		JournalDBPath: getEnv("JOURNAL_DB_PATH", ""),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Transactions"),

		StatusAddr: getEnv("STATUS_ADDR", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
	cfg.envErrors = envErrors
	cfg.SetAccounts(splitList(getEnv("BANKBOT_ACCOUNTS", ""), ","))

	return cfg
}

// SetAccounts replaces the account list with the parsed "name:id" entries.
// Malformed entries are reported by Validate.
func (c *Config) SetAccounts(entries []string) {
	c.Accounts = nil
	c.accountErrors = nil
	for _, e := range entries {
		a, err := core.ParseAccount(e)
		if err != nil {
			c.accountErrors = append(c.accountErrors, fmt.Sprintf("invalid account '%s': %v", e, err))
			continue
		}
		c.Accounts = append(c.Accounts, a)
	}
}

// SleepDuration is the time the poller waits between two cycles.
func (c *Config) SleepDuration() time.Duration {
	return c.PollInterval + c.PollSkew
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	errors = append(errors, c.envErrors...)

	// Validate accounts
	errors = append(errors, c.accountErrors...)
	if len(c.Accounts) == 0 && len(c.accountErrors) == 0 {
		errors = append(errors, "at least one account is required (BANKBOT_ACCOUNTS=name:id,...)")
	}
	seen := make(map[string]bool, len(c.Accounts))
	for _, a := range c.Accounts {
		if seen[a.ExternalID] {
			errors = append(errors, fmt.Sprintf("duplicate account id '%s'", a.ExternalID))
		}
		seen[a.ExternalID] = true
	}

	errors = append(errors, c.validateGoCardless()...)

	// Validate Slack
	if c.SlackChannel == "" {
		errors = append(errors, "Slack channel is required (SLACK_CHANNEL)")
	}

	// Validate scheduling
	if c.PollInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid poll interval %v: must be at least 1 minute", c.PollInterval))
	} else if c.PollInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid poll interval %v: must be at most 24 hours", c.PollInterval))
	}
	if c.PollSkew < 0 {
		errors = append(errors, fmt.Sprintf("invalid poll skew %v: must not be negative", c.PollSkew))
	} else if c.PollSkew > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid poll skew %v: must be at most 1 hour", c.PollSkew))
	}

	// Validate label patterns
	for _, p := range c.IgnoreInSpentEarned {
		if _, err := regexp.Compile(p); err != nil {
			errors = append(errors, fmt.Sprintf("invalid ignore pattern '%s': %v", p, err))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	// Validate Google Sheets export if enabled
	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required when GOOGLE_SPREADSHEET_ID is set")
	}

	// Validate logging
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateGoCardless checks only the settings the renew command needs.
func (c *Config) ValidateGoCardless() error {
	if errors := c.validateGoCardless(); len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateGoCardless() []string {
	var errors []string
	if c.GoCardlessSecretID == "" {
		errors = append(errors, "GoCardless secret id is required (GOCARDLESS_SECRET_ID)")
	}
	if c.GoCardlessSecretKey == "" {
		errors = append(errors, "GoCardless secret key is required (GOCARDLESS_SECRET_KEY)")
	}
	if parsedURL, err := url.Parse(c.GoCardlessBaseURL); err != nil || parsedURL.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid GoCardless base URL '%s'", c.GoCardlessBaseURL))
	}
	if c.GoCardlessDailyLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid GoCardless daily limit %d: must not be negative", c.GoCardlessDailyLimit))
	}
	return errors
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns defaultValue for an unset variable. An unparsable one
// also falls back to it and is added to problems.
func getEnvInt(key string, defaultValue int, problems *[]string) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("invalid %s '%s': not an integer", key, value))
		return defaultValue
	}
	return i
}

func getEnvDuration(key string, defaultValue time.Duration, problems *[]string) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("invalid %s '%s': %v", key, value, err))
		return defaultValue
	}
	return d
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
