package mailer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// formatMessage renders msg as an RFC 5322 message: a multipart/alternative
// body with a plain-text part and an HTML part. An inline image is wrapped
// with the HTML in multipart/related so only the HTML part carries it.
func (m *Mailer) formatMessage(from string, msg Message) ([]byte, error) {
	var body bytes.Buffer
	alt := multipart.NewWriter(&body)

	if err := writeQuotedPart(alt, "text/plain; charset=UTF-8", msg.Text); err != nil {
		return nil, fmt.Errorf("text part: %w", err)
	}

	if msg.Inline == nil {
		if err := writeQuotedPart(alt, "text/html; charset=UTF-8", msg.HTML); err != nil {
			return nil, fmt.Errorf("html part: %w", err)
		}
	} else if err := writeRelated(alt, msg.HTML, msg.Inline); err != nil {
		return nil, fmt.Errorf("related part: %w", err)
	}

	if err := alt.Close(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fromAddr := &mail.Address{Name: m.cfg.FromName, Address: from}
	buf.WriteString(fmt.Sprintf("From: %s\r\n", fromAddr.String()))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject)))
	buf.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	buf.WriteString(fmt.Sprintf("Message-ID: <%s@%s>\r\n", uuid.NewString(), domainOf(from)))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%s\r\n", alt.Boundary()))
	buf.WriteString("\r\n")
	buf.Write(body.Bytes())

	return buf.Bytes(), nil
}

func writeQuotedPart(w *multipart.Writer, contentType, content string) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType)
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := io.WriteString(qp, content); err != nil {
		return err
	}
	return qp.Close()
}

func writeRelated(alt *multipart.Writer, html string, img *Inline) error {
	var buf bytes.Buffer
	rel := multipart.NewWriter(&buf)

	if err := writeQuotedPart(rel, "text/html; charset=UTF-8", html); err != nil {
		return err
	}

	h := textproto.MIMEHeader{}
	h.Set("Content-Type", fmt.Sprintf("%s; name=%q", img.ContentType, img.Filename))
	h.Set("Content-Transfer-Encoding", "base64")
	h.Set("Content-ID", "<"+img.ContentID+">")
	h.Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", img.Filename))
	part, err := rel.CreatePart(h)
	if err != nil {
		return err
	}
	encoded := base64.StdEncoding.EncodeToString(img.Data)
	// Write in 76-character lines per RFC 2045
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		if _, err := part.Write([]byte(encoded[i:end] + "\r\n")); err != nil {
			return err
		}
	}
	if err := rel.Close(); err != nil {
		return err
	}

	outer := textproto.MIMEHeader{}
	outer.Set("Content-Type", fmt.Sprintf("multipart/related; boundary=%s", rel.Boundary()))
	relPart, err := alt.CreatePart(outer)
	if err != nil {
		return err
	}
	_, err = relPart.Write(buf.Bytes())
	return err
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}
