package mailer

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// sendSendGrid submits the message through the SendGrid v3 API as a single
// personalization addressed to every recipient.
func (m *Mailer) sendSendGrid(ctx context.Context, from string, msg Message) error {
	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(m.cfg.FromName, from))
	message.Subject = msg.Subject

	p := mail.NewPersonalization()
	for _, to := range msg.To {
		p.AddTos(mail.NewEmail("", to))
	}
	message.AddPersonalizations(p)

	message.AddContent(mail.NewContent("text/plain", msg.Text))
	message.AddContent(mail.NewContent("text/html", msg.HTML))
	if msg.Inline != nil {
		message.AddAttachment(buildAttachment(msg.Inline))
	}

	request := sendgrid.GetRequest(m.cfg.SendGridKey, "/v3/mail/send", m.cfg.SendGridHost)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(message)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return &DeliveryError{Op: "sendgrid", Err: err}
	}
	if response.StatusCode >= 300 {
		return &DeliveryError{Op: "sendgrid", Err: fmt.Errorf("status %d: %s", response.StatusCode, response.Body)}
	}
	return nil
}

func buildAttachment(img *Inline) *mail.Attachment {
	attachment := mail.NewAttachment()
	attachment.SetContent(base64.StdEncoding.EncodeToString(img.Data))
	attachment.SetType(img.ContentType)
	attachment.SetFilename(img.Filename)
	attachment.SetDisposition("inline")
	attachment.SetContentID(img.ContentID)
	return attachment
}
