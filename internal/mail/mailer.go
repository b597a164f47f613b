// internal/mail/mailer.go
package mail

import (
	"io"

	"github.com/sirupsen/logrus"
	gomail "gopkg.in/gomail.v2"

	"github.com/imagestore/image-store-backend/internal/config"
)

// Attachment is one file carried by an outgoing message.
type Attachment struct {
	Filename string
	Content  []byte
}

// Message is a single outbound email.
type Message struct {
	To          string
	Subject     string
	Body        string
	HTML        bool
	Attachments []Attachment
}

// Mailer sends messages fire-and-forget from the caller's perspective:
// delivery errors are logged by callers, never surfaced to HTTP clients.
type Mailer interface {
	Send(msg *Message) error
}

// SMTPMailer delivers through a configured SMTP relay. Constructed once at
// startup and reused for the life of the process.
type SMTPMailer struct {
	dialer *gomail.Dialer
	cfg    config.EmailConfig
}

func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	m := &SMTPMailer{cfg: cfg}
	if cfg.SMTPHost != "" {
		m.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	return m
}

func (m *SMTPMailer) Send(msg *Message) error {
	if m.dialer == nil {
		// SMTP not configured, just log
		logrus.WithFields(logrus.Fields{
			"to":      msg.To,
			"subject": msg.Subject,
		}).Info("Email delivery skipped: SMTP not configured")
		return nil
	}

	gm := gomail.NewMessage()
	gm.SetAddressHeader("From", m.cfg.FromEmail, m.cfg.FromName)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	if msg.HTML {
		gm.SetBody("text/html", msg.Body)
	} else {
		gm.SetBody("text/plain", msg.Body)
	}

	for _, att := range msg.Attachments {
		content := att.Content
		gm.Attach(att.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		}))
	}

	return m.dialer.DialAndSend(gm)
}
