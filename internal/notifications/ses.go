package notifications

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// sesAPI is the slice of the SES v2 client the mailer uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer delivers mail through Amazon SES v2 using raw MIME messages so
// attachments are preserved.
type SESMailer struct {
	client      sesAPI
	fromAddress string
	fromName    string
	logger      *zap.Logger
}

// NewSESMailer creates a new SES mailer
func NewSESMailer(client *sesv2.Client, fromName, fromAddress string, logger *zap.Logger) *SESMailer {
	return &SESMailer{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
		logger:      logger,
	}
}

// Send sends one email via SES
func (m *SESMailer) Send(ctx context.Context, email *Email) error {
	if email.To == "" {
		return fmt.Errorf("no recipient specified")
	}

	msg := BuildMessage(m.fromName, m.fromAddress, email)

	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.fromAddress),
		Destination: &sestypes.Destination{
			ToAddresses: []string{email.To},
		},
		Content: &sestypes.EmailContent{
			Raw: &sestypes.RawMessage{Data: msg},
		},
	})
	if err != nil {
		m.logger.Error("Failed to send email via SES",
			zap.Error(err),
			zap.String("to", email.To))
		return fmt.Errorf("failed to send email via SES: %w", err)
	}

	m.logger.Info("Email sent via SES",
		zap.String("to", email.To),
		zap.String("subject", email.Subject))

	return nil
}
