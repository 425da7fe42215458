package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bellgado/calendar/internal/model"
)

type waitlistStore interface {
	Create(ctx context.Context, item *model.WaitlistItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.WaitlistItem, error)
	List(ctx context.Context, active *bool) ([]*model.WaitlistItem, error)
	Deactivate(ctx context.Context, id uuid.UUID) (int64, error)
	DeactivateByStudent(ctx context.Context, studentID uuid.UUID) (int64, error)
}

// AddWaitlistRequest заявка ученика на место в расписании
type AddWaitlistRequest struct {
	StudentID           uuid.UUID         `json:"student_id"`
	PreferredDays       []time.Weekday    `json:"preferred_days"`
	PreferredTimeRanges []model.TimeRange `json:"preferred_time_ranges"`
	Notes               string            `json:"notes"`
	Priority            int               `json:"priority"`
}

// WaitlistService лист ожидания: ученики без постоянного слота с их
// пожеланиями по дням и времени
type WaitlistService struct {
	waitlist waitlistStore
	students studentGetter
	logger   *zap.Logger
}

func NewWaitlistService(waitlist waitlistStore, students studentGetter, logger *zap.Logger) *WaitlistService {
	return &WaitlistService{
		waitlist: waitlist,
		students: students,
		logger:   logger,
	}
}

// Add ставит ученика в лист ожидания
func (s *WaitlistService) Add(ctx context.Context, req AddWaitlistRequest) (*model.WaitlistItem, error) {
	student, err := s.students.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, fmt.Errorf("%w: student %s", model.ErrNotFound, req.StudentID)
	}

	for _, r := range req.PreferredTimeRanges {
		from, err := parseClock(r.From)
		if err != nil {
			return nil, fmt.Errorf("%w: bad time range start %q", model.ErrValidation, r.From)
		}
		to, err := parseClock(r.To)
		if err != nil {
			return nil, fmt.Errorf("%w: bad time range end %q", model.ErrValidation, r.To)
		}
		if to <= from {
			return nil, fmt.Errorf("%w: time range end %s is not after start %s", model.ErrValidation, r.To, r.From)
		}
	}

	item := model.NewWaitlistItem(student.ID)
	item.PreferredDays = req.PreferredDays
	item.PreferredTimeRanges = req.PreferredTimeRanges
	item.Notes = req.Notes
	item.Priority = req.Priority

	if err := s.waitlist.Create(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info("Waitlist item added",
		zap.String("waitlist_id", item.ID.String()),
		zap.String("student_id", student.ID.String()),
		zap.Int("priority", item.Priority),
	)

	return item, nil
}

// List возвращает заявки, важные первыми. Фильтр по active опционален.
func (s *WaitlistService) List(ctx context.Context, active *bool) ([]*model.WaitlistItem, error) {
	return s.waitlist.List(ctx, active)
}

// Remove вручную снимает заявку
func (s *WaitlistService) Remove(ctx context.Context, id uuid.UUID) error {
	removed, err := s.waitlist.Deactivate(ctx, id)
	if err != nil {
		return err
	}
	if removed == 0 {
		return fmt.Errorf("%w: active waitlist item %s", model.ErrNotFound, id)
	}

	s.logger.Info("Waitlist item removed", zap.String("waitlist_id", id.String()))
	return nil
}

// RemoveActiveByStudent снимает все активные заявки ученика. Вызывается
// автоматически при бронировании слота за ним.
func (s *WaitlistService) RemoveActiveByStudent(ctx context.Context, studentID uuid.UUID) (int64, error) {
	removed, err := s.waitlist.DeactivateByStudent(ctx, studentID)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("Waitlist entries removed after booking",
			zap.String("student_id", studentID.String()),
			zap.Int64("count", removed),
		)
	}
	return removed, nil
}
