package infra

import (
	"fmt"
	"net/smtp"

	"payhub/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer wraps SMTP configuration for sending emails with PDF attachments.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// Configured reports whether an SMTP host is set.
func (m *Mailer) Configured() bool { return m != nil && m.host != "" }

// SendStatement mails a settlement statement with its PDF attached.
func (m *Mailer) SendStatement(to string, s *Statement, pdfPath string) error {
	e := email.NewEmail()
	e.From = m.user
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Certificate %s settled: %s", s.CertificateCode, s.Status)
	e.Text = []byte(fmt.Sprintf(
		"Certificate %s (No. %d) is fully paid.\nBilled: %s\nClosed: %s\nIdentified: %s\n",
		s.CertificateCode, s.CertificateNum,
		s.Billing.StringFixed(2), s.Closed.StringFixed(2), s.Identified.StringFixed(2),
	))

	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return e.Send(m.addr, auth)
}
