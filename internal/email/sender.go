// Package email sends backup and export payloads over SMTP.
package email

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
)

// Sender handles sending emails via SMTP.
type Sender struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSender(host, port, username, password, from string) *Sender {
	return &Sender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// SendBackup mails an encrypted backup blob as an attachment-style text body.
func (s *Sender) SendBackup(to, content string) error {
	e := email.NewEmail()
	e.From = s.from
	e.To = []string{to}
	e.Subject = "Your encrypted finance backup"
	e.Text = []byte(fmt.Sprintf(
		"Backup created on %s.\n\n"+
			"Save the block below to a file to restore it later. It is encrypted;\n"+
			"you will need your backup password (or none, if you used the default).\n\n%s\n",
		time.Now().Format("2006-01-02 15:04:05"), content,
	))

	return s.send(e)
}

// SendExport mails the plain CSV projection.
func (s *Sender) SendExport(to, csv string) error {
	e := email.NewEmail()
	e.From = s.from
	e.To = []string{to}
	e.Subject = "Your finance data export (CSV)"
	e.Text = []byte(csv)

	return s.send(e)
}

func (s *Sender) send(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	if err := e.Send(addr, auth); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	slog.Info("Email sent", "to", e.To, "subject", e.Subject)
	return nil
}
