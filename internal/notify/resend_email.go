package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"github.com/bellgado/calendar/internal/model"
)

// ResendEmailProvider отправляет email через Resend
type ResendEmailProvider struct {
	client *resend.Client
	from   string
	logger *zap.Logger
}

func NewResendEmailProvider(apiKey, from string, logger *zap.Logger) *ResendEmailProvider {
	return &ResendEmailProvider{
		client: resend.NewClient(apiKey),
		from:   from,
		logger: logger,
	}
}

func (p *ResendEmailProvider) Name() string {
	return "resend"
}

func (p *ResendEmailProvider) Supports(channel model.NotificationChannel) bool {
	return channel == model.ChannelEmail
}

func (p *ResendEmailProvider) Send(ctx context.Context, msg Message) (SendResult, error) {
	if strings.TrimSpace(msg.Recipient) == "" {
		return SkippedResult("no email address for recipient"), nil
	}

	subject := msg.Subject
	if subject == "" {
		subject = fmt.Sprintf("Calendar update: %s", msg.Type)
	}

	params := &resend.SendEmailRequest{
		From:    p.from,
		To:      []string{msg.Recipient},
		Subject: subject,
		Text:    msg.Body,
	}

	sent, err := p.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		// ошибки API считаем временными, повтор решит проблемы сети и
		// rate limit, а невосстановимые упрутся в max_attempts
		return FailedRetryable("resend_error", err.Error()), nil
	}

	p.logger.Debug("Email sent via resend",
		zap.String("notification_id", msg.NotificationID.String()),
		zap.String("message_id", sent.Id),
	)

	return Sent(sent.Id), nil
}

func (p *ResendEmailProvider) Priority() int {
	return 100
}

func (p *ResendEmailProvider) Available() bool {
	return true
}
