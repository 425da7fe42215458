package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bellgado/calendar/internal/model"
	"github.com/bellgado/calendar/internal/notify"
)

type notificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	Update(ctx context.Context, n *model.Notification) error
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]*model.Notification, error)
	CountByStatus(ctx context.Context) (map[model.NotificationStatus]int64, error)
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.Notification, error)
}

// NotificationSettings поведение outbox по умолчанию
type NotificationSettings struct {
	Enabled           bool
	ImmediateDispatch bool
	MaxAttempts       int
	DefaultExpiry     time.Duration
	DefaultPriority   int
}

// CreateNotificationRequest запрос на постановку уведомления в очередь
type CreateNotificationRequest struct {
	StudentID    uuid.UUID                 `json:"student_id"`
	Channel      model.NotificationChannel `json:"channel"` // пусто - предпочтительный канал ученика
	Type         model.NotificationType    `json:"type"`
	TemplateKey  string                    `json:"template_key"`
	Variables    map[string]string         `json:"variables"`
	Priority     *int                      `json:"priority"`
	ScheduledFor *time.Time                `json:"scheduled_for"`
	ExpiresAt    *time.Time                `json:"expires_at"`
}

// NotificationService управляет исходящей очередью уведомлений: создание
// с проверкой пригодности получателя, отправка через диспетчер, повторы.
type NotificationService struct {
	tx            txManager
	notifications notificationStore
	students      studentGetter
	dispatcher    *notify.Dispatcher
	settings      NotificationSettings
	logger        *zap.Logger
	now           func() time.Time
}

func NewNotificationService(
	tx txManager,
	notifications notificationStore,
	students studentGetter,
	dispatcher *notify.Dispatcher,
	settings NotificationSettings,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		tx:            tx,
		notifications: notifications,
		students:      students,
		dispatcher:    dispatcher,
		settings:      settings,
		logger:        logger,
		now:           time.Now,
	}
}

// Create ставит уведомление в очередь. Непригодный получатель даёт
// терминальный статус skipped с причиной - это не ошибка, запись
// сохраняется для аудита.
func (s *NotificationService) Create(ctx context.Context, req CreateNotificationRequest) (*model.Notification, error) {
	if !s.settings.Enabled {
		s.logger.Debug("Notifications disabled, skipping creation",
			zap.String("student_id", req.StudentID.String()))
		return nil, nil
	}

	student, err := s.getStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	channel := req.Channel
	if channel == "" {
		channel = student.PreferredChannel
	}

	now := s.now()
	n := model.NewNotification(student.ID, channel, req.Type, now)
	n.MaxAttempts = s.settings.MaxAttempts
	n.Priority = s.settings.DefaultPriority
	if req.TemplateKey != "" {
		n.TemplateKey = req.TemplateKey
	}
	if req.Variables != nil {
		n.Variables = req.Variables
	}
	if req.Priority != nil {
		n.Priority = *req.Priority
	}
	if req.ScheduledFor != nil {
		n.ScheduledFor = req.ScheduledFor
	}
	if req.ExpiresAt != nil {
		n.ExpiresAt = req.ExpiresAt
	} else {
		expires := now.Add(s.settings.DefaultExpiry)
		n.ExpiresAt = &expires
	}

	if eligible, reason := s.validateEligibility(student, channel); !eligible {
		n.MarkSkipped(reason)
		if err := s.notifications.Create(ctx, n); err != nil {
			return nil, err
		}
		s.logger.Info("Notification skipped",
			zap.String("notification_id", n.ID.String()),
			zap.String("student_id", student.ID.String()),
			zap.String("reason", reason),
		)
		return n, nil
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}

	s.logger.Info("Notification created",
		zap.String("notification_id", n.ID.String()),
		zap.String("student_id", student.ID.String()),
		zap.String("channel", string(channel)),
		zap.String("type", string(n.Type)),
	)

	if s.settings.ImmediateDispatch && !n.ScheduledForLater(s.now()) {
		s.dispatchNow(ctx, n, student)
	}

	return n, nil
}

// CreateForEvent ставит уведомление о бизнес-событии, используя
// предпочтительный канал ученика и шаблон по умолчанию. Вызывается
// слушателем переходов слотов.
func (s *NotificationService) CreateForEvent(ctx context.Context, studentID uuid.UUID, typ model.NotificationType, variables map[string]string) (*model.Notification, error) {
	return s.Create(ctx, CreateNotificationRequest{
		StudentID: studentID,
		Type:      typ,
		Variables: variables,
	})
}

// GetByID получает запись outbox по ID
func (s *NotificationService) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	n, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("%w: notification %s", model.ErrNotFound, id)
	}
	return n, nil
}

// ListByStudent возвращает историю уведомлений ученика, новые первыми
func (s *NotificationService) ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]*model.Notification, error) {
	return s.notifications.ListByStudent(ctx, studentID, limit)
}

// Statistics возвращает количество записей по каждому статусу
func (s *NotificationService) Statistics(ctx context.Context) (map[model.NotificationStatus]int64, error) {
	return s.notifications.CountByStatus(ctx)
}

// Process вручную проталкивает одну запись через полный цикл доставки
func (s *NotificationService) Process(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	n, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if n.Status.Terminal() {
		s.logger.Debug("Notification already terminal",
			zap.String("notification_id", id.String()),
			zap.String("status", string(n.Status)),
		)
		return n, nil
	}

	student, err := s.students.GetByID(ctx, n.StudentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		n.MarkSkipped("student not found")
		if err := s.notifications.Update(ctx, n); err != nil {
			return nil, err
		}
		return n, nil
	}

	s.dispatchNow(ctx, n, student)
	return n, nil
}

// MarkExpiredBatch массово помечает просроченные записи. Первый шаг
// каждого цикла фонового воркера.
func (s *NotificationService) MarkExpiredBatch(ctx context.Context) (int64, error) {
	marked, err := s.notifications.MarkExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if marked > 0 {
		s.logger.Info("Notifications expired", zap.Int64("count", marked))
	}
	return marked, nil
}

// ProcessDueBatch забирает пачку готовых pending-записей под блокировкой
// строк и прогоняет каждую через доставку. Сбой на одной записи не
// прерывает пачку. Возвращает число успешно отправленных.
func (s *NotificationService) ProcessDueBatch(ctx context.Context, batchSize int) (int, error) {
	sent := 0

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		due, err := s.notifications.ClaimDue(ctx, s.now(), batchSize)
		if err != nil {
			return err
		}

		for _, n := range due {
			if s.processClaimed(ctx, n) {
				sent++
			}
		}

		return nil
	})
	if err != nil {
		return sent, err
	}

	return sent, nil
}

// processClaimed обрабатывает одну захваченную запись; все исходы,
// включая внутренние ошибки, записываются на самой записи
func (s *NotificationService) processClaimed(ctx context.Context, n *model.Notification) bool {
	now := s.now()

	// состояние могло измениться между запросом и обработкой
	if n.Expired(now) {
		n.MarkExpired()
		s.persist(ctx, n)
		return false
	}
	if n.ScheduledForLater(now) {
		return false
	}

	student, err := s.students.GetByID(ctx, n.StudentID)
	if err != nil {
		s.logger.Error("Failed to load student for notification",
			zap.String("notification_id", n.ID.String()),
			zap.Error(err),
		)
		n.MarkFailed("processing_error", err.Error(), now)
		s.persist(ctx, n)
		return false
	}
	if student == nil {
		n.MarkSkipped("student not found")
		s.persist(ctx, n)
		return false
	}

	return s.dispatchNow(ctx, n, student)
}

// dispatchNow выполняет одну попытку доставки: повторная проверка
// пригодности, processing, вызов диспетчера, применение результата
func (s *NotificationService) dispatchNow(ctx context.Context, n *model.Notification, student *model.Student) bool {
	now := s.now()

	if n.Expired(now) {
		n.MarkExpired()
		s.persist(ctx, n)
		s.logger.Info("Notification expired", zap.String("notification_id", n.ID.String()))
		return false
	}

	if eligible, reason := s.validateEligibility(student, n.Channel); !eligible {
		n.MarkSkipped(reason)
		s.persist(ctx, n)
		s.logger.Info("Notification skipped",
			zap.String("notification_id", n.ID.String()),
			zap.String("reason", reason),
		)
		return false
	}

	n.MarkProcessing(now)
	if !s.persist(ctx, n) {
		return false
	}

	result := s.dispatcher.Dispatch(ctx, s.buildMessage(n, student))
	s.applyResult(n, result)
	s.persist(ctx, n)

	return result.Success()
}

func (s *NotificationService) applyResult(n *model.Notification, result notify.SendResult) {
	now := s.now()

	switch result.Status {
	case notify.SendStatusSent:
		n.MarkSent(result.ProviderMessageID, now)
	case notify.SendStatusDelivered:
		n.MarkSent(result.ProviderMessageID, now)
		n.Status = model.NotificationStatusDelivered
	case notify.SendStatusSkipped:
		n.MarkSkipped(result.ErrorMessage)
	case notify.SendStatusFailed:
		if result.Retryable && n.CanRetry() {
			n.MarkFailed(result.ErrorCode, result.ErrorMessage, now)
		} else {
			n.MarkFailedPermanent(result.ErrorCode, result.ErrorMessage)
		}
	}
}

// buildMessage собирает сообщение провайдера из записи и данных ученика
func (s *NotificationService) buildMessage(n *model.Notification, student *model.Student) notify.Message {
	variables := make(map[string]string, len(n.Variables)+2)
	for k, v := range n.Variables {
		variables[k] = v
	}
	if _, ok := variables["student_name"]; !ok {
		variables["student_name"] = student.FullName
	}
	if _, ok := variables["student_id"]; !ok {
		variables["student_id"] = student.ID.String()
	}

	return notify.Message{
		NotificationID: n.ID,
		StudentID:      n.StudentID,
		Channel:        n.Channel,
		Type:           n.Type,
		Recipient:      recipientForChannel(student, n.Channel),
		RecipientName:  student.FullName,
		TemplateKey:    n.TemplateKey,
		Variables:      variables,
		Subject:        n.RenderedSubject,
		Body:           n.RenderedBody,
		Locale:         student.Locale,
	}
}

// validateEligibility проверяет пригодность пары ученик/канал.
// Выполняется при создании и повторно перед каждой попыткой доставки.
func (s *NotificationService) validateEligibility(student *model.Student, channel model.NotificationChannel) (bool, string) {
	if !student.Active {
		return false, "student is inactive"
	}
	if !channel.Deliverable() {
		return false, fmt.Sprintf("channel %s is not deliverable", channel)
	}
	if !student.NotificationOptIn {
		return false, "student has not opted in for notifications"
	}
	if !student.CanReceiveOn(channel) {
		return false, fmt.Sprintf("student has no valid contact for channel %s", channel)
	}
	if !s.dispatcher.HasProvider(channel) {
		return false, fmt.Sprintf("no provider available for channel %s", channel)
	}
	return true, ""
}

func (s *NotificationService) persist(ctx context.Context, n *model.Notification) bool {
	if err := s.notifications.Update(ctx, n); err != nil {
		s.logger.Error("Failed to update notification",
			zap.String("notification_id", n.ID.String()),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (s *NotificationService) getStudent(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, fmt.Errorf("%w: student %s", model.ErrNotFound, id)
	}
	return student, nil
}

func recipientForChannel(student *model.Student, channel model.NotificationChannel) string {
	switch channel {
	case model.ChannelEmail:
		return student.Email
	case model.ChannelSMS:
		return student.PhoneE164
	case model.ChannelWhatsApp:
		return student.EffectiveWhatsAppNumber()
	default:
		return ""
	}
}
