package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bellgado/calendar/internal/model"
)

type slotEventStore interface {
	Append(ctx context.Context, event *model.SlotEvent) error
	ListBySlot(ctx context.Context, slotID uuid.UUID) ([]*model.SlotEvent, error)
}

// SlotEventService ведёт append-only журнал переходов слотов.
// Единственный владелец таблицы slot_events.
type SlotEventService struct {
	events slotEventStore
	logger *zap.Logger
	now    func() time.Time
}

func NewSlotEventService(events slotEventStore, logger *zap.Logger) *SlotEventService {
	return &SlotEventService{
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Record записывает событие без участников и метаданных
func (s *SlotEventService) Record(ctx context.Context, slotID uuid.UUID, typ model.EventType) (*model.SlotEvent, error) {
	return s.RecordWithStudents(ctx, slotID, typ, nil, nil, nil)
}

// RecordWithMeta записывает событие с метаданными
func (s *SlotEventService) RecordWithMeta(ctx context.Context, slotID uuid.UUID, typ model.EventType, meta map[string]string) (*model.SlotEvent, error) {
	return s.RecordWithStudents(ctx, slotID, typ, nil, nil, meta)
}

// RecordWithStudents записывает событие со старым/новым учеником и метаданными
func (s *SlotEventService) RecordWithStudents(
	ctx context.Context,
	slotID uuid.UUID,
	typ model.EventType,
	oldStudentID, newStudentID *uuid.UUID,
	meta map[string]string,
) (*model.SlotEvent, error) {
	event := &model.SlotEvent{
		ID:           uuid.New(),
		SlotID:       slotID,
		Type:         typ,
		At:           s.now(),
		OldStudentID: oldStudentID,
		NewStudentID: newStudentID,
		Meta:         meta,
	}

	if err := s.events.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("record slot event: %w", err)
	}

	return event, nil
}

// ListBySlot возвращает историю слота в порядке записи
func (s *SlotEventService) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]*model.SlotEvent, error) {
	return s.events.ListBySlot(ctx, slotID)
}
