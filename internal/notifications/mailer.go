package notifications

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// Mailer sends certificate emails. Implementations must treat each Send as
// independent; the issuance service owns sequencing and failure accounting.
type Mailer interface {
	Send(ctx context.Context, email *Email) error
}

// SMTPConfig configures the plain SMTP mailer.
type SMTPConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	FromAddress string `json:"from_address"`
	FromName    string `json:"from_name"`
}

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	config SMTPConfig
	logger *zap.Logger
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(config SMTPConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		config: config,
		logger: logger,
	}
}

// Send sends one email via SMTP
func (m *SMTPMailer) Send(ctx context.Context, email *Email) error {
	if email.To == "" {
		return fmt.Errorf("no recipient specified")
	}

	msg := BuildMessage(m.config.FromName, m.config.FromAddress, email)

	auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	if err := smtp.SendMail(addr, auth, m.config.FromAddress, []string{email.To}, msg); err != nil {
		m.logger.Error("Failed to send email",
			zap.Error(err),
			zap.String("to", email.To))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("Email sent",
		zap.String("to", email.To),
		zap.String("subject", email.Subject))

	return nil
}

// BuildMessage assembles an RFC 2045 multipart message with base64-encoded
// attachments.
func BuildMessage(fromName, fromAddress string, email *Email) []byte {
	var buf bytes.Buffer
	boundary := "----=_Part_0_certscribe"

	buf.WriteString(fmt.Sprintf("From: %s <%s>\r\n", fromName, fromAddress))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", email.To))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")

	if len(email.Attachments) == 0 {
		buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
		buf.WriteString("\r\n")
		buf.WriteString(email.Body)
		return buf.Bytes()
	}

	buf.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=\"%s\"\r\n", boundary))
	buf.WriteString("\r\n")

	buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(email.Body)
	buf.WriteString("\r\n")

	for _, attachment := range email.Attachments {
		buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		buf.WriteString(fmt.Sprintf("Content-Type: %s; name=\"%s\"\r\n", attachment.ContentType, attachment.Name))
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		buf.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=\"%s\"\r\n", attachment.Name))
		buf.WriteString("\r\n")
		writeBase64Lines(&buf, attachment.Data)
	}

	buf.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return buf.Bytes()
}

// writeBase64Lines encodes data and wraps it at 76 characters per line.
func writeBase64Lines(buf *bytes.Buffer, data []byte) {
	const lineLen = 76

	encoded := base64.StdEncoding.EncodeToString(data)
	for i := 0; i < len(encoded); i += lineLen {
		end := i + lineLen
		if end > len(encoded) {
			end = len(encoded)
		}
		buf.WriteString(encoded[i:end])
		buf.WriteString("\r\n")
	}
}
