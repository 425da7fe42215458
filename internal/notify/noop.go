package notify

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bellgado/calendar/internal/model"
)

// NoOpProvider провайдер-заглушка для разработки и тестовых стендов:
// логирует попытку и отвечает успехом с выдуманным message id
type NoOpProvider struct {
	logger *zap.Logger
}

func NewNoOpProvider(logger *zap.Logger) *NoOpProvider {
	return &NoOpProvider{logger: logger}
}

func (p *NoOpProvider) Name() string {
	return "noop"
}

func (p *NoOpProvider) Supports(channel model.NotificationChannel) bool {
	return channel.Deliverable()
}

func (p *NoOpProvider) Send(_ context.Context, msg Message) (SendResult, error) {
	if strings.TrimSpace(msg.Recipient) == "" {
		return SkippedResult("no recipient provided for channel " + string(msg.Channel)), nil
	}

	messageID := "noop-" + uuid.NewString()[:8]

	p.logger.Info("[noop] sending notification",
		zap.String("channel", string(msg.Channel)),
		zap.String("recipient", msg.Recipient),
		zap.String("notification_id", msg.NotificationID.String()),
		zap.String("type", string(msg.Type)),
		zap.String("template", msg.TemplateKey),
		zap.String("message_id", messageID),
	)

	return Sent(messageID), nil
}

// Priority минимальный: настоящие провайдеры всегда важнее заглушки
func (p *NoOpProvider) Priority() int {
	return math.MinInt
}

func (p *NoOpProvider) Available() bool {
	return true
}
