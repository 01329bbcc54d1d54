package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/smtp"
	"strconv"
)

// sendSMTP submits the message in a single session: STARTTLS, AUTH PLAIN,
// then one MAIL FROM with a RCPT TO per recipient. The connection is
// closed on every return path.
func (m *Mailer) sendSMTP(ctx context.Context, from string, msg Message) error {
	raw, err := m.formatMessage(from, msg)
	if err != nil {
		return &DeliveryError{Op: "compose", Err: err}
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	m.logger.Debug("connecting to mail server", "addr", addr)

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &DeliveryError{Op: "dial", Err: err}
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return &DeliveryError{Op: "greeting", Err: err}
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); !ok {
		return &DeliveryError{Op: "starttls", Err: errors.New("server does not offer STARTTLS")}
	}
	if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
		return &DeliveryError{Op: "starttls", Err: err}
	}

	if err := c.Auth(smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)); err != nil {
		return &DeliveryError{Op: "auth", Err: err}
	}

	if err := c.Mail(from); err != nil {
		return &DeliveryError{Op: "mail from", Err: err}
	}
	for _, rcpt := range msg.To {
		if err := c.Rcpt(rcpt); err != nil {
			return &DeliveryError{Op: "rcpt to " + rcpt, Err: err}
		}
	}

	w, err := c.Data()
	if err != nil {
		return &DeliveryError{Op: "data", Err: err}
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return &DeliveryError{Op: "data", Err: err}
	}
	if err := w.Close(); err != nil {
		return &DeliveryError{Op: "data", Err: err}
	}

	if err := c.Quit(); err != nil {
		return &DeliveryError{Op: "quit", Err: err}
	}
	return nil
}
