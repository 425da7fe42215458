package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type NotificationChannel string

const (
	ChannelNone     NotificationChannel = "none"
	ChannelEmail    NotificationChannel = "email"
	ChannelSMS      NotificationChannel = "sms"
	ChannelWhatsApp NotificationChannel = "whatsapp"
)

// Deliverable проверяет что канал вообще доставляем
func (c NotificationChannel) Deliverable() bool {
	return c == ChannelEmail || c == ChannelSMS || c == ChannelWhatsApp
}

type NotificationType string

const (
	NotificationClassScheduled   NotificationType = "class_scheduled"
	NotificationClassCancelled   NotificationType = "class_cancelled"
	NotificationClassRescheduled NotificationType = "class_rescheduled"
	NotificationClassReminder    NotificationType = "class_reminder"
	NotificationCustom           NotificationType = "custom"
)

// DefaultTemplateKey возвращает ключ шаблона по умолчанию для типа
func (t NotificationType) DefaultTemplateKey() string {
	return string(t)
}

type NotificationStatus string

const (
	NotificationStatusPending    NotificationStatus = "pending"
	NotificationStatusProcessing NotificationStatus = "processing"
	NotificationStatusSent       NotificationStatus = "sent"
	NotificationStatusDelivered  NotificationStatus = "delivered"
	NotificationStatusFailed     NotificationStatus = "failed"
	NotificationStatusSkipped    NotificationStatus = "skipped"
	NotificationStatusExpired    NotificationStatus = "expired"
)

// Terminal проверяет что статус конечный и больше не меняется
func (s NotificationStatus) Terminal() bool {
	switch s {
	case NotificationStatusSent, NotificationStatusDelivered,
		NotificationStatusFailed, NotificationStatusSkipped, NotificationStatusExpired:
		return true
	}
	return false
}

// Retryable проверяет что из статуса возможен повтор
func (s NotificationStatus) Retryable() bool {
	return s == NotificationStatusPending || s == NotificationStatusProcessing
}

// Notification запись исходящей очереди уведомлений (outbox).
// Никогда не удаляется - очередь одновременно служит журналом доставки.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	StudentID uuid.UUID `json:"student_id"`

	Channel NotificationChannel `json:"channel"`
	Type    NotificationType    `json:"type"`

	TemplateKey string            `json:"template_key"`
	Variables   map[string]string `json:"variables"`

	RenderedSubject string `json:"rendered_subject"`
	RenderedBody    string `json:"rendered_body"`

	Status NotificationStatus `json:"status"`

	Attempts      int        `json:"attempts"`
	MaxAttempts   int        `json:"max_attempts"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
	NextAttemptAt *time.Time `json:"next_attempt_at"`

	ExternalMessageID string `json:"external_message_id"`
	ErrorCode         string `json:"error_code"`
	ErrorMessage      string `json:"error_message"`

	Priority     int        `json:"priority"`
	ScheduledFor *time.Time `json:"scheduled_for"`
	ExpiresAt    *time.Time `json:"expires_at"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	SentAt    *time.Time `json:"sent_at"`
}

// NewNotification создаёт запись в статусе pending, готовую к немедленной попытке
func NewNotification(studentID uuid.UUID, channel NotificationChannel, typ NotificationType, now time.Time) *Notification {
	next := now
	return &Notification{
		ID:            uuid.New(),
		StudentID:     studentID,
		Channel:       channel,
		Type:          typ,
		TemplateKey:   typ.DefaultTemplateKey(),
		Variables:     map[string]string{},
		Status:        NotificationStatusPending,
		MaxAttempts:   3,
		NextAttemptAt: &next,
	}
}

// CanRetry проверяет что остались попытки и статус допускает повтор
func (n *Notification) CanRetry() bool {
	return n.Status.Retryable() && n.Attempts < n.MaxAttempts
}

// MarkProcessing переводит запись в processing и увеличивает счётчик попыток
func (n *Notification) MarkProcessing(now time.Time) {
	n.Status = NotificationStatusProcessing
	n.Attempts++
	at := now
	n.LastAttemptAt = &at
}

// MarkSent фиксирует успешную отправку и очищает поля ошибки
func (n *Notification) MarkSent(externalMessageID string, now time.Time) {
	n.Status = NotificationStatusSent
	n.ExternalMessageID = externalMessageID
	at := now
	n.SentAt = &at
	n.ErrorCode = ""
	n.ErrorMessage = ""
}

// MarkFailed фиксирует ошибку. Если попытки остались - возвращает запись в
// pending с экспоненциальной задержкой 5^(attempts-1) минут (1, 5, 25, 125...).
// Задержка намеренно не ограничена сверху, как в исходной системе.
func (n *Notification) MarkFailed(errorCode, errorMessage string, now time.Time) {
	n.ErrorCode = errorCode
	n.ErrorMessage = errorMessage

	if n.CanRetry() {
		n.Status = NotificationStatusPending
		delay := time.Duration(math.Pow(5, float64(n.Attempts-1))) * time.Minute
		next := now.Add(delay)
		n.NextAttemptAt = &next
		return
	}
	n.Status = NotificationStatusFailed
}

// MarkFailedPermanent фиксирует невосстановимую ошибку, без повторов
func (n *Notification) MarkFailedPermanent(errorCode, errorMessage string) {
	n.Status = NotificationStatusFailed
	n.ErrorCode = errorCode
	n.ErrorMessage = errorMessage
}

// MarkSkipped фиксирует бизнес-отказ от доставки (opt-out, нет контакта и т.п.)
func (n *Notification) MarkSkipped(reason string) {
	n.Status = NotificationStatusSkipped
	n.ErrorMessage = reason
}

// MarkExpired помечает запись просроченной
func (n *Notification) MarkExpired() {
	n.Status = NotificationStatusExpired
}

// Expired проверяет что срок действия записи истёк
func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}

// ScheduledForLater проверяет что доставка отложена на будущее
func (n *Notification) ScheduledForLater(now time.Time) bool {
	return n.ScheduledFor != nil && now.Before(*n.ScheduledFor)
}
