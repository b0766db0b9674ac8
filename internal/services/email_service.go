package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	pkglogger "github.com/gestaoconhecimento/gc-auth/pkg/logger"
)

// EmailSender delivers first-access verification codes
type EmailSender interface {
	SendVerificationCode(ctx context.Context, email, name, code string, expiresAt time.Time) error
}

// SESClient is the subset of the SES API used for delivery
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   SESClient
	fromAddress string
	senderName  string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(ctx context.Context, region, fromAddress, senderName string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewEmailServiceWithClient(ses.NewFromConfig(cfg), fromAddress, senderName, logger), nil
}

// NewEmailServiceWithClient creates an SES email service around an existing client
func NewEmailServiceWithClient(client SESClient, fromAddress, senderName string, logger *slog.Logger) *AWSSESEmailService {
	return &AWSSESEmailService{
		sesClient:   client,
		fromAddress: fromAddress,
		senderName:  senderName,
		logger:      logger,
	}
}

// SendVerificationCode mails the 6-digit first-access code
func (s *AWSSESEmailService) SendVerificationCode(ctx context.Context, email, name, code string, expiresAt time.Time) error {
	greeting := "Olá"
	if name != "" {
		greeting = "Olá, " + name
	}
	minutes := int(time.Until(expiresAt).Round(time.Minute).Minutes())

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .code { font-size: 32px; font-weight: bold; letter-spacing: 8px; text-align: center; padding: 20px; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Código de Verificação</h1>
        </div>
        <p>%s!</p>
        <p>Use o código abaixo para concluir seu primeiro acesso:</p>
        <div class="code">%s</div>
        <p>Este código expira em %d minutos.</p>
        <p>Se você não solicitou este código, ignore este email.</p>
        <div class="footer">
            <p>Mensagem automática. Não responda este email.</p>
        </div>
    </div>
</body>
</html>
`, greeting, code, minutes)

	textBody := fmt.Sprintf(`%s!

Use o código abaixo para concluir seu primeiro acesso:

%s

Este código expira em %d minutos.

Se você não solicitou este código, ignore este email.
`, greeting, code, minutes)

	input := &ses.SendEmailInput{
		Source: aws.String(fmt.Sprintf("%s <%s>", s.senderName, s.fromAddress)),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String("Código de Verificação - Primeiro Acesso"),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(htmlBody),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send verification code via SES",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("verification code sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// LogEmailService is used when no sender address is configured. It never
// logs the code itself.
type LogEmailService struct {
	logger *slog.Logger
}

// NewLogEmailService creates a new LogEmailService
func NewLogEmailService(logger *slog.Logger) *LogEmailService {
	return &LogEmailService{logger: logger}
}

// SendVerificationCode logs the delivery request
func (s *LogEmailService) SendVerificationCode(ctx context.Context, email, name, code string, expiresAt time.Time) error {
	s.logger.Warn("email delivery disabled, verification code not sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.Time("expires_at", expiresAt))
	return nil
}
