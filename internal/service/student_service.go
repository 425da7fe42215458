package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bellgado/calendar/internal/model"
)

type studentStore interface {
	Create(ctx context.Context, student *model.Student) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error)
	ListActive(ctx context.Context) ([]*model.Student, error)
	Update(ctx context.Context, student *model.Student) error
}

// CreateStudentRequest данные нового ученика
type CreateStudentRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Notes    string `json:"notes"`
}

// NotificationPrefs настройки уведомлений ученика
type NotificationPrefs struct {
	PreferredChannel model.NotificationChannel `json:"preferred_channel"`
	OptIn            bool                      `json:"opt_in"`
	PhoneE164        string                    `json:"phone_e164"`
	WhatsAppE164     string                    `json:"whatsapp_e164"`
}

// StudentService реестр учеников и их настроек уведомлений
type StudentService struct {
	students studentStore
	logger   *zap.Logger
	now      func() time.Time
}

func NewStudentService(students studentStore, logger *zap.Logger) *StudentService {
	return &StudentService{
		students: students,
		logger:   logger,
		now:      time.Now,
	}
}

// Create создаёт активного ученика без подписки на уведомления
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*model.Student, error) {
	if strings.TrimSpace(req.FullName) == "" {
		return nil, fmt.Errorf("%w: full name is required", model.ErrValidation)
	}

	student := &model.Student{
		ID:               uuid.New(),
		FullName:         req.FullName,
		Phone:            req.Phone,
		Email:            req.Email,
		Notes:            req.Notes,
		Active:           true,
		PreferredChannel: model.ChannelNone,
		Timezone:         "UTC",
		Locale:           "en",
	}

	if err := s.students.Create(ctx, student); err != nil {
		return nil, err
	}

	s.logger.Info("Student created",
		zap.String("student_id", student.ID.String()),
		zap.String("full_name", student.FullName),
	)

	return student, nil
}

// GetByID получает ученика по ID
func (s *StudentService) GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, fmt.Errorf("%w: student %s", model.ErrNotFound, id)
	}
	return student, nil
}

// ListActive возвращает всех активных учеников
func (s *StudentService) ListActive(ctx context.Context) ([]*model.Student, error) {
	return s.students.ListActive(ctx)
}

// SetNotificationPrefs обновляет канал, контакты и подписку ученика
func (s *StudentService) SetNotificationPrefs(ctx context.Context, id uuid.UUID, prefs NotificationPrefs) (*model.Student, error) {
	student, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	student.PreferredChannel = prefs.PreferredChannel
	student.PhoneE164 = prefs.PhoneE164
	student.WhatsAppE164 = prefs.WhatsAppE164
	student.SetNotificationOptIn(prefs.OptIn, s.now())

	if err := s.students.Update(ctx, student); err != nil {
		return nil, err
	}

	s.logger.Info("Student notification prefs updated",
		zap.String("student_id", id.String()),
		zap.String("channel", string(prefs.PreferredChannel)),
		zap.Bool("opt_in", prefs.OptIn),
	)

	return student, nil
}

// Deactivate отключает ученика: новые уведомления для него будут
// пропускаться как неподходящие
func (s *StudentService) Deactivate(ctx context.Context, id uuid.UUID) error {
	student, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	student.Active = false
	if err := s.students.Update(ctx, student); err != nil {
		return err
	}

	s.logger.Info("Student deactivated", zap.String("student_id", id.String()))
	return nil
}
