package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/staffguard/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/go-playground/validator/v10"
)

// SESClient is the part of the SES API used to send notifications
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// AWSSESLockoutNotifier emails the account owner when their account is locked.
// Identities that are not email addresses are skipped.
type AWSSESLockoutNotifier struct {
	sesClient   SESClient
	fromAddress string
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewAWSSESLockoutNotifier creates a notifier using the default AWS credential chain
func NewAWSSESLockoutNotifier(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*AWSSESLockoutNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewLockoutNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, logger), nil
}

// NewLockoutNotifierWithClient creates a notifier around an existing SES client
func NewLockoutNotifierWithClient(client SESClient, fromAddress string, logger *slog.Logger) *AWSSESLockoutNotifier {
	return &AWSSESLockoutNotifier{
		sesClient:   client,
		fromAddress: fromAddress,
		validate:    validator.New(),
		logger:      logger,
	}
}

// NotifyAccountLocked sends the lockout notice
func (s *AWSSESLockoutNotifier) NotifyAccountLocked(ctx context.Context, identity string, lockedUntil time.Time) error {
	if err := s.validate.Var(identity, "required,email"); err != nil {
		s.logger.Debug("skipping lockout notification for non-email identity")
		return nil
	}

	until := lockedUntil.UTC().Format("15:04 MST on Jan 2, 2006")

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .warning { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Your account has been temporarily locked</h1>
        <p>We detected several failed sign-in attempts on your staff account.</p>
        <div class="warning">
            Sign-in is blocked until <strong>%s</strong>.
        </div>
        <p>If these attempts were not made by you, contact your administrator so your password can be reset.</p>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, until)

	textBody := fmt.Sprintf(`Your account has been temporarily locked

We detected several failed sign-in attempts on your staff account.
Sign-in is blocked until %s.

If these attempts were not made by you, contact your administrator so your password can be reset.

This is an automated message. Please do not reply to this email.
`, until)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{identity},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your account has been temporarily locked"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send lockout email: %w", err)
	}

	s.logger.Info("lockout email sent",
		slog.String("email", logger.SanitizedEmail(identity)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
