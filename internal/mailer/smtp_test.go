package mailer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/dailyreport/internal/config"
)

func smtpConfig() *Config {
	return &Config{
		Transport:   config.TransportSMTP,
		Host:        "127.0.0.1",
		Port:        587,
		User:        "bot@example.org",
		Pass:        "app-password",
		FromName:    "Partners Dental Report Bot",
		FromAddress: "reports@example.org",
	}
}

func testMessage() Message {
	return Message{
		To:      []string{"ops@example.org"},
		Subject: "Daily Traditional Bands Summary",
		Text:    "Location Total Summary:\nLocA  LocB\n   5     6",
		HTML:    `<table id="location_total_summary"><tr><td>5</td></tr></table>`,
	}
}

func captureSend(t *testing.T, m *Mailer) (*Message, *int) {
	t.Helper()
	var captured Message
	calls := 0
	m.sendFn = func(_ context.Context, _ string, msg Message) error {
		calls++
		captured = msg
		return nil
	}
	return &captured, &calls
}

type part struct {
	Header textproto.MIMEHeader
	Body   []byte
}

// readParts parses a multipart body and returns each part's header and
// decoded content.
func readParts(t *testing.T, body io.Reader, contentType string) []part {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("parse content type %q: %v", contentType, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		t.Fatalf("expected multipart content, got %q", mediaType)
	}

	var parts []part
	mr := multipart.NewReader(body, params["boundary"])
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		data, err := io.ReadAll(p)
		if err != nil {
			t.Fatalf("read part: %v", err)
		}
		parts = append(parts, part{Header: p.Header, Body: data})
	}
	return parts
}

func TestFormatMessageHeaders(t *testing.T) {
	m := New(smtpConfig(), nil)
	msg := testMessage()
	msg.To = []string{"a@example.org", "b@example.org"}
	msg.Subject = "Résumé des bandes"

	raw, err := m.formatMessage("reports@example.org", msg)
	if err != nil {
		t.Fatalf("formatMessage returned error: %v", err)
	}
	parsed, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		t.Fatalf("message does not parse: %v", err)
	}

	dec := new(mime.WordDecoder)
	subject, err := dec.DecodeHeader(parsed.Header.Get("Subject"))
	if err != nil {
		t.Fatalf("decode subject: %v", err)
	}

	cases := []struct {
		name string
		got  string
		want string
	}{
		{"from header", parsed.Header.Get("From"), `"Partners Dental Report Bot" <reports@example.org>`},
		{"to header", parsed.Header.Get("To"), "a@example.org, b@example.org"},
		{"subject header", subject, "Résumé des bandes"},
		{"mime header", parsed.Header.Get("MIME-Version"), "1.0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %q, want %q", tc.got, tc.want)
			}
		})
	}

	if id := parsed.Header.Get("Message-ID"); !strings.HasSuffix(id, "@example.org>") {
		t.Errorf("unexpected Message-ID %q", id)
	}
	if _, err := parsed.Header.Date(); err != nil {
		t.Errorf("Date header does not parse: %v", err)
	}
}

func TestFormatMessageAlternativeParts(t *testing.T) {
	m := New(smtpConfig(), nil)
	msg := testMessage()

	raw, err := m.formatMessage("reports@example.org", msg)
	if err != nil {
		t.Fatalf("formatMessage returned error: %v", err)
	}
	parsed, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		t.Fatalf("message does not parse: %v", err)
	}

	ct := parsed.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/alternative") {
		t.Fatalf("unexpected content type %q", ct)
	}

	mediaType, params, _ := mime.ParseMediaType(ct)
	if mediaType != "multipart/alternative" {
		t.Fatalf("media type = %q", mediaType)
	}
	mr := multipart.NewReader(parsed.Body, params["boundary"])

	want := []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	}
	for i, w := range want {
		p, err := mr.NextPart()
		if err != nil {
			t.Fatalf("part %d: %v", i, err)
		}
		if got := p.Header.Get("Content-Type"); got != w.contentType {
			t.Errorf("part %d content type = %q, want %q", i, got, w.contentType)
		}
		// multipart.Reader decodes quoted-printable transparently.
		body, _ := io.ReadAll(p)
		if got := strings.ReplaceAll(string(body), "\r\n", "\n"); got != w.body {
			t.Errorf("part %d body = %q, want %q", i, body, w.body)
		}
	}
	if _, err := mr.NextPart(); err != io.EOF {
		t.Errorf("expected exactly two parts, got err=%v", err)
	}
}

func TestFormatMessageInlineLogo(t *testing.T) {
	m := New(smtpConfig(), nil)
	msg := testMessage()
	msg.HTML = `<img src="cid:pds_logo">`
	msg.Inline = &Inline{
		ContentID:   "pds_logo",
		ContentType: "image/png",
		Filename:    "pds_logo.png",
		Data:        []byte(strings.Repeat("\x89PNG", 40)),
	}

	raw, err := m.formatMessage("reports@example.org", msg)
	if err != nil {
		t.Fatalf("formatMessage returned error: %v", err)
	}
	parsed, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		t.Fatalf("message does not parse: %v", err)
	}

	outer := readParts(t, parsed.Body, parsed.Header.Get("Content-Type"))
	if len(outer) != 2 {
		t.Fatalf("expected text and related parts, got %d", len(outer))
	}
	relatedType := outer[1].Header.Get("Content-Type")
	if !strings.HasPrefix(relatedType, "multipart/related") {
		t.Fatalf("second part should be multipart/related, got %q", relatedType)
	}

	related := readParts(t, bytes.NewReader(outer[1].Body), relatedType)
	if len(related) != 2 {
		t.Fatalf("expected html and image parts, got %d", len(related))
	}
	if got := related[0].Header.Get("Content-Type"); !strings.HasPrefix(got, "text/html") {
		t.Errorf("first related part = %q, want text/html", got)
	}

	img := related[1]
	if got := img.Header.Get("Content-ID"); got != "<pds_logo>" {
		t.Errorf("Content-ID = %q", got)
	}
	if got := img.Header.Get("Content-Disposition"); !strings.HasPrefix(got, "inline") {
		t.Errorf("Content-Disposition = %q", got)
	}
	for _, line := range strings.Split(strings.TrimSpace(string(img.Body)), "\r\n") {
		if len(line) > 76 {
			t.Errorf("base64 line longer than 76 characters: %d", len(line))
		}
	}
}

func TestSendMissingCredentials(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   []string
	}{
		{"missing password", func(c *Config) { c.Pass = "" }, []string{"EMAIL_SMTP_PASS"}},
		{"missing user and password", func(c *Config) {
			c.User = ""
			c.Pass = ""
			c.FromAddress = ""
		}, []string{"EMAIL_SMTP_USER", "EMAIL_SMTP_PASS", "EMAIL_FROM"}},
		{"missing sendgrid key", func(c *Config) {
			c.Transport = config.TransportSendGrid
		}, []string{"SENDGRID_API_KEY"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := smtpConfig()
			tc.mutate(cfg)
			m := New(cfg, nil)
			_, calls := captureSend(t, m)

			err := m.Send(context.Background(), testMessage())
			var missing *MissingCredentialsError
			if !errors.As(err, &missing) {
				t.Fatalf("expected MissingCredentialsError, got %v", err)
			}
			if strings.Join(missing.Missing, ",") != strings.Join(tc.want, ",") {
				t.Errorf("missing = %v, want %v", missing.Missing, tc.want)
			}
			if *calls != 0 {
				t.Errorf("transport called %d times before credentials were valid", *calls)
			}
		})
	}
}

func TestSendFromFallsBackToUser(t *testing.T) {
	cfg := smtpConfig()
	cfg.FromAddress = ""
	m := New(cfg, nil)

	var gotFrom string
	m.sendFn = func(_ context.Context, from string, _ Message) error {
		gotFrom = from
		return nil
	}
	if err := m.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if gotFrom != cfg.User {
		t.Errorf("from = %q, want %q", gotFrom, cfg.User)
	}
}

func TestSendNoRecipients(t *testing.T) {
	m := New(smtpConfig(), nil)
	_, calls := captureSend(t, m)

	msg := testMessage()
	msg.To = nil
	if err := m.Send(context.Background(), msg); !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
	if *calls != 0 {
		t.Error("transport should not be called without recipients")
	}
}

func TestCheck(t *testing.T) {
	if err := New(smtpConfig(), nil).Check([]string{"ops@example.org"}); err != nil {
		t.Fatalf("complete config should pass, got %v", err)
	}

	cfg := smtpConfig()
	cfg.User = ""
	var missing *MissingCredentialsError
	if err := New(cfg, nil).Check([]string{"ops@example.org"}); !errors.As(err, &missing) {
		t.Errorf("expected MissingCredentialsError, got %v", err)
	}

	if err := New(smtpConfig(), nil).Check(nil); !errors.Is(err, ErrNoRecipients) {
		t.Errorf("expected ErrNoRecipients, got %v", err)
	}
}

func TestSendDeliversOncePerCall(t *testing.T) {
	m := New(smtpConfig(), nil)
	captured, calls := captureSend(t, m)

	for i := 0; i < 2; i++ {
		if err := m.Send(context.Background(), testMessage()); err != nil {
			t.Fatalf("Send returned error: %v", err)
		}
	}
	if *calls != 2 {
		t.Errorf("expected 2 submissions, got %d", *calls)
	}
	if captured.Subject != "Daily Traditional Bands Summary" {
		t.Errorf("unexpected subject: %s", captured.Subject)
	}
}

// closedPort returns a local port with nothing listening on it.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func TestSendUnreachableHost(t *testing.T) {
	cfg := smtpConfig()
	cfg.Port = closedPort(t)
	m := New(cfg, nil)

	err := m.Send(context.Background(), testMessage())
	var delivery *DeliveryError
	if !errors.As(err, &delivery) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if delivery.Op != "dial" {
		t.Errorf("op = %q, want dial", delivery.Op)
	}
}

// fakeSMTP accepts one connection, greets, answers EHLO without STARTTLS
// and records every command until the client hangs up.
func fakeSMTP(t *testing.T) (port int, commands <-chan []string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	out := make(chan []string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			out <- nil
			return
		}
		defer conn.Close()
		conn.SetDeadline(time.Now().Add(5 * time.Second))

		var seen []string
		r := bufio.NewReader(conn)
		io.WriteString(conn, "220 localhost ESMTP ready\r\n")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				out <- seen
				return
			}
			cmd := strings.TrimSpace(line)
			seen = append(seen, cmd)
			switch {
			case strings.HasPrefix(cmd, "EHLO"):
				io.WriteString(conn, "250-localhost\r\n250 AUTH PLAIN\r\n")
			case strings.HasPrefix(cmd, "QUIT"):
				io.WriteString(conn, "221 bye\r\n")
			default:
				io.WriteString(conn, "502 not implemented\r\n")
			}
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port, out
}

func TestSendRequiresStartTLS(t *testing.T) {
	port, commands := fakeSMTP(t)
	cfg := smtpConfig()
	cfg.Port = port
	m := New(cfg, nil)

	err := m.Send(context.Background(), testMessage())
	var delivery *DeliveryError
	if !errors.As(err, &delivery) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if delivery.Op != "starttls" {
		t.Errorf("op = %q, want starttls", delivery.Op)
	}

	select {
	case seen := <-commands:
		for _, cmd := range seen {
			if strings.HasPrefix(cmd, "AUTH") || strings.HasPrefix(cmd, "MAIL") {
				t.Errorf("credentials or envelope sent over plaintext: %q", cmd)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("connection was not closed after the failed session")
	}
}
