package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dailyreport/internal/config"
)

// MissingCredentialsError is returned before any network I/O when the
// sender cannot be authenticated.
type MissingCredentialsError struct {
	Missing []string
}

func (e *MissingCredentialsError) Error() string {
	return "mailer: missing credentials: " + strings.Join(e.Missing, ", ")
}

// DeliveryError wraps a transport, authentication or submission failure.
type DeliveryError struct {
	Op  string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("mailer: %s: %v", e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// ErrNoRecipients is returned when a message has nobody to go to.
var ErrNoRecipients = errors.New("mailer: no recipients")

type Config struct {
	Transport string

	Host string
	Port int
	User string
	Pass string

	FromName    string
	FromAddress string

	SendGridKey  string
	SendGridHost string // empty uses the public API
}

// NewConfig builds mailer settings from the environment-derived email
// config and the report's display name.
func NewConfig(e config.Email, fromName string) *Config {
	return &Config{
		Transport:   e.Transport,
		Host:        e.SMTPHost,
		Port:        e.SMTPPort,
		User:        e.SMTPUser,
		Pass:        e.SMTPPass,
		FromName:    fromName,
		FromAddress: e.FromAddress,
		SendGridKey: e.SendGridKey,
	}
}

// Inline is an attachment referenced from the HTML body by content-ID.
type Inline struct {
	ContentID   string
	ContentType string
	Filename    string
	Data        []byte
}

type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
	Inline  *Inline
}

// Mailer composes and submits report emails. It never retries.
type Mailer struct {
	cfg    *Config
	logger *slog.Logger
	sendFn func(ctx context.Context, from string, msg Message) error
}

func New(cfg *Config, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mailer{cfg: cfg, logger: logger}
	if cfg.Transport == config.TransportSendGrid {
		m.sendFn = m.sendSendGrid
	} else {
		m.sendFn = m.sendSMTP
	}
	return m
}

// Check reports whether a message to the given recipients could be sent,
// without any network I/O.
func (m *Mailer) Check(to []string) error {
	if _, err := m.sender(); err != nil {
		return err
	}
	if len(to) == 0 {
		return ErrNoRecipients
	}
	return nil
}

// Send validates credentials and submits msg to every recipient in one
// transaction. Calling it twice sends twice.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if err := m.Check(msg.To); err != nil {
		return err
	}
	from, _ := m.sender()

	if err := m.sendFn(ctx, from, msg); err != nil {
		return err
	}
	m.logger.Info("email sent", "to", strings.Join(msg.To, ", "), "subject", msg.Subject)
	return nil
}

// sender resolves the envelope sender and checks the transport has what it
// needs to authenticate.
func (m *Mailer) sender() (string, error) {
	from := m.cfg.FromAddress
	var missing []string

	switch m.cfg.Transport {
	case config.TransportSendGrid:
		if m.cfg.SendGridKey == "" {
			missing = append(missing, "SENDGRID_API_KEY")
		}
	default:
		if m.cfg.User == "" {
			missing = append(missing, "EMAIL_SMTP_USER")
		}
		if m.cfg.Pass == "" {
			missing = append(missing, "EMAIL_SMTP_PASS")
		}
		if from == "" {
			from = m.cfg.User
		}
	}
	if from == "" {
		missing = append(missing, "EMAIL_FROM")
	}

	if len(missing) > 0 {
		return "", &MissingCredentialsError{Missing: missing}
	}
	return from, nil
}
