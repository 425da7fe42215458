package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bellgado/calendar/internal/model"
)

// SlotNotificationListener превращает переходы слотов в записи outbox.
// Подключается к SlotService при старте; работает fire-and-forget -
// ошибка постановки уведомления логируется и не доходит до вызывавшего
// операцию слота.
type SlotNotificationListener struct {
	notifications *NotificationService
	logger        *zap.Logger
}

func NewSlotNotificationListener(notifications *NotificationService, logger *zap.Logger) *SlotNotificationListener {
	return &SlotNotificationListener{
		notifications: notifications,
		logger:        logger,
	}
}

func (l *SlotNotificationListener) SlotChanged(ctx context.Context, slot *model.Slot, event *model.SlotEvent) {
	var typ model.NotificationType
	target := event.NewStudentID
	switch event.Type {
	case model.EventTypeBooked:
		typ = model.NotificationClassScheduled
	case model.EventTypeReplaced:
		typ = model.NotificationClassScheduled
	case model.EventTypeCancelled:
		typ = model.NotificationClassCancelled
		target = event.OldStudentID
	case model.EventTypeRescheduled:
		// уведомляем только по событию целевого слота, иначе ученик
		// получит два письма об одном переносе
		typ = model.NotificationClassRescheduled
	default:
		return
	}

	if target == nil {
		return
	}

	variables := map[string]string{
		"slot_id":  slot.ID.String(),
		"start_at": slot.StartAt.Format(time.RFC3339),
	}
	for k, v := range event.Meta {
		variables[k] = v
	}

	if _, err := l.notifications.CreateForEvent(ctx, *target, typ, variables); err != nil {
		l.logger.Error("Failed to enqueue notification for slot event",
			zap.String("slot_id", slot.ID.String()),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
	}
}
