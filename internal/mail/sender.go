package mail

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
)

type MailSender interface {
	Send(to string, subject string, textBody string, htmlBody string) error
}

// ConsoleMailSender logs mail instead of sending it. The default outside
// production so signup works without an SMTP account.
type ConsoleMailSender struct{}

func (s *ConsoleMailSender) Send(to string, subject string, textBody string, htmlBody string) error {
	log.Printf("=== MOCK EMAIL ===\nTo: %s\nSubject: %s\nText Body: %s\nHTML Body: %s\n==================", to, subject, textBody, htmlBody)
	return nil
}

type SmtpConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

type SmtpMailSender struct {
	config SmtpConfig
}

func NewSmtpMailSender(config SmtpConfig) *SmtpMailSender {
	return &SmtpMailSender{config: config}
}

// Send delivers a single-part message: HTML when available, plain text
// otherwise.
func (s *SmtpMailSender) Send(to string, subject string, textBody string, htmlBody string) error {
	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	address := fmt.Sprintf("%s:%s", s.config.Host, s.config.Port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	body := htmlBody
	if body == "" {
		mime = "Content-Type: text/plain; charset=\"UTF-8\";\n\n"
		body = textBody
	}

	msg := []byte(fmt.Sprintf("To: %s\r\nFrom: %s\r\nSubject: %s\r\n%s\r\n%s",
		to, s.config.From, subject, mime, body))

	if err := smtp.SendMail(address, auth, s.config.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// NewSenderFromEnv picks the sender implementation from MAIL_PROVIDER.
func NewSenderFromEnv() MailSender {
	if os.Getenv("MAIL_PROVIDER") == "smtp" {
		return NewSmtpMailSender(SmtpConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     os.Getenv("SMTP_PORT"),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		})
	}
	return &ConsoleMailSender{}
}
