package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bellgado/calendar/internal/model"
)

// Dispatcher маршрутизирует сообщения провайдерам по каналу.
// Выбор провайдера: поддерживает канал, сейчас доступен, наивысший
// приоритет; при равном приоритете побеждает зарегистрированный раньше.
type Dispatcher struct {
	providers []Provider
	logger    *zap.Logger
}

// NewDispatcher создаёт диспетчер с фиксированным набором провайдеров.
// Набор строится один раз при старте процесса.
func NewDispatcher(providers []Provider, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		providers: providers,
		logger:    logger,
	}

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	logger.Info("Notification dispatcher initialized",
		zap.Int("providers", len(providers)),
		zap.Strings("names", names),
	)

	return d
}

// Dispatch отправляет сообщение через подходящего провайдера.
// Никогда не возвращает ошибку наружу: сбой провайдера (включая панику)
// превращается в повторяемый SendResult, чтобы не уронить цикл обработки.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) (result SendResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Provider panicked",
				zap.String("notification_id", msg.NotificationID.String()),
				zap.Any("panic", r),
			)
			result = FailedRetryable("provider_panic", fmt.Sprintf("provider panic: %v", r))
		}
	}()

	if !msg.Channel.Deliverable() {
		return SkippedResult(fmt.Sprintf("channel %s is not deliverable", msg.Channel))
	}

	provider := d.selectProvider(msg.Channel)
	if provider == nil {
		d.logger.Warn("No provider available for channel",
			zap.String("channel", string(msg.Channel)),
			zap.String("notification_id", msg.NotificationID.String()),
		)
		return SkippedResult(fmt.Sprintf("no provider available for channel %s", msg.Channel))
	}

	result, err := provider.Send(ctx, msg)
	if err != nil {
		d.logger.Error("Provider send failed",
			zap.String("provider", provider.Name()),
			zap.String("notification_id", msg.NotificationID.String()),
			zap.Error(err),
		)
		return FailedRetryable("provider_error", fmt.Sprintf("provider error: %v", err))
	}

	if result.Success() {
		d.logger.Info("Notification sent",
			zap.String("provider", provider.Name()),
			zap.String("notification_id", msg.NotificationID.String()),
			zap.String("provider_message_id", result.ProviderMessageID),
		)
	} else {
		d.logger.Warn("Notification not sent",
			zap.String("provider", provider.Name()),
			zap.String("notification_id", msg.NotificationID.String()),
			zap.String("status", string(result.Status)),
			zap.String("error_code", result.ErrorCode),
			zap.Bool("retryable", result.Retryable),
		)
	}

	return result
}

// HasProvider проверяет что для канала есть доступный провайдер
func (d *Dispatcher) HasProvider(channel model.NotificationChannel) bool {
	return d.selectProvider(channel) != nil
}

// Providers возвращает всех зарегистрированных провайдеров
func (d *Dispatcher) Providers() []Provider {
	return d.providers
}

func (d *Dispatcher) selectProvider(channel model.NotificationChannel) Provider {
	var best Provider
	for _, p := range d.providers {
		if !p.Supports(channel) || !p.Available() {
			continue
		}
		// строгое "больше" сохраняет порядок регистрации при равенстве
		if best == nil || p.Priority() > best.Priority() {
			best = p
		}
	}
	return best
}
