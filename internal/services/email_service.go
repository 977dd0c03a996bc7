package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	pkglogger "github.com/davidmarsh/reelhaven/pkg/logger"
)

// AWSSESEmailService sends security codes and notification emails using AWS SES
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// SendSecurityCode delivers a one-time verification code
func (s *AWSSESEmailService) SendSecurityCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	minutes := int(time.Until(expiresAt).Minutes())

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1>Your verification code</h1>
        <p>Use this code to finish signing in:</p>
        <p style="font-size: 32px; letter-spacing: 8px; font-weight: bold;">%s</p>
        <p>The code expires in %d minutes. It can be used only once.</p>
        <p><strong>Didn't request this?</strong><br>
        Someone may be trying to access your account. Consider changing your password.</p>
        <p style="color: #666; font-size: 12px;">This is an automated message. Please do not reply.</p>
    </div>
</body>
</html>
`, code, minutes)

	textBody := fmt.Sprintf(`Your verification code

Use this code to finish signing in: %s

The code expires in %d minutes. It can be used only once.

Didn't request this?
Someone may be trying to access your account. Consider changing your password.

This is an automated message. Please do not reply.
`, code, minutes)

	return s.send(ctx, email, "Your verification code", htmlBody, textBody)
}

// SendNotification delivers a catalog notification email
func (s *AWSSESEmailService) SendNotification(ctx context.Context, email, subject, body string) error {
	return s.send(ctx, email, subject, "", body)
}

func (s *AWSSESEmailService) send(ctx context.Context, email, subject, htmlBody, textBody string) error {
	bodyContent := &types.Body{
		Text: &types.Content{Data: aws.String(textBody)},
	}
	if htmlBody != "" {
		bodyContent.Html = &types.Content{Data: aws.String(htmlBody)}
	}

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body:    bodyContent,
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send email via SES",
			slog.String("email", pkglogger.MaskEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		slog.String("email", pkglogger.MaskEmail(email)),
		slog.String("message_id", *result.MessageId))

	return nil
}
