package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Error reports a missing or invalid setting, detected before any I/O.
type Error struct {
	Key     string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s %s", e.Key, e.Message)
}

const (
	TransportSMTP     = "smtp"
	TransportSendGrid = "sendgrid"
)

type Config struct {
	Env      string // development, production
	LogLevel string

	// Report definition file
	ReportConfig string

	Database Database
	Email    Email
}

// Database holds the relational source settings. DSN, when set, is used
// verbatim instead of building one from the other fields.
type Database struct {
	Driver   string
	Server   string
	Name     string
	User     string
	Password string
	DSN      string
}

type Email struct {
	Transport   string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	FromAddress string
	SendGridKey string
}

// Load reads settings from the environment, after loading .env if present.
// Variables already set in the environment take precedence over .env.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from the given lookup function and validates it.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	getEnv := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}

	port, err := getEnvInt(lookup, "EMAIL_SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:          getEnv("ENV", "production"),
		LogLevel:     getEnv("LOG_LEVEL", ""),
		ReportConfig: getEnv("REPORT_CONFIG", "report.yml"),
		Database: Database{
			Driver:   getEnv("SQL_DRIVER", "sqlserver"),
			Server:   getEnv("SQL_SERVER", ""),
			Name:     getEnv("SQL_DATABASE", ""),
			User:     getEnv("SQL_USERNAME", ""),
			Password: getEnv("SQL_PASSWORD", ""),
			DSN:      getEnv("SQL_DSN", ""),
		},
		Email: Email{
			Transport:   strings.ToLower(getEnv("EMAIL_TRANSPORT", TransportSMTP)),
			SMTPHost:    getEnv("EMAIL_SMTP_SERVER", "smtp.gmail.com"),
			SMTPPort:    port,
			SMTPUser:    getEnv("EMAIL_SMTP_USER", ""),
			SMTPPass:    getEnv("EMAIL_SMTP_PASS", ""),
			FromAddress: getEnv("EMAIL_FROM", ""),
			SendGridKey: getEnv("SENDGRID_API_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings every command needs. Mail credentials are
// checked by the mailer at send time so preview commands run without them.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlserver", "pgx", "mysql", "sqlite":
	default:
		return &Error{Key: "SQL_DRIVER", Message: fmt.Sprintf("must be one of sqlserver, pgx, mysql, sqlite (got %q)", c.Database.Driver)}
	}

	if c.Database.DSN == "" {
		if c.Database.Server == "" && c.Database.Driver != "sqlite" {
			return &Error{Key: "SQL_SERVER", Message: "is required"}
		}
		if c.Database.Name == "" {
			return &Error{Key: "SQL_DATABASE", Message: "is required"}
		}
	}

	switch c.Email.Transport {
	case TransportSMTP, TransportSendGrid:
	default:
		return &Error{Key: "EMAIL_TRANSPORT", Message: fmt.Sprintf("must be smtp or sendgrid (got %q)", c.Email.Transport)}
	}

	if c.Email.SMTPPort <= 0 || c.Email.SMTPPort > 65535 {
		return &Error{Key: "EMAIL_SMTP_PORT", Message: "must be between 1 and 65535"}
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnvInt(lookup func(string) (string, bool), key string, fallback int) (int, error) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, &Error{Key: key, Message: fmt.Sprintf("must be an integer (got %q)", v)}
	}
	return i, nil
}
