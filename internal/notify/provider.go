package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/bellgado/calendar/internal/model"
)

// Message всё необходимое провайдеру для доставки одного уведомления
type Message struct {
	NotificationID uuid.UUID
	StudentID      uuid.UUID
	Channel        model.NotificationChannel
	Type           model.NotificationType

	// Recipient зависит от канала: email-адрес, номер E.164 или номер WhatsApp
	Recipient     string
	RecipientName string

	TemplateKey string
	Variables   map[string]string

	Subject string
	Body    string
	Locale  string
}

type SendStatus string

const (
	SendStatusSent      SendStatus = "sent"
	SendStatusDelivered SendStatus = "delivered"
	SendStatusSkipped   SendStatus = "skipped"
	SendStatusFailed    SendStatus = "failed"
)

// SendResult результат попытки отправки через провайдера
type SendResult struct {
	Status            SendStatus
	ProviderMessageID string
	ErrorCode         string
	ErrorMessage      string
	Retryable         bool
}

// Success проверяет что отправка состоялась
func (r SendResult) Success() bool {
	return r.Status == SendStatusSent || r.Status == SendStatusDelivered
}

func Sent(providerMessageID string) SendResult {
	return SendResult{Status: SendStatusSent, ProviderMessageID: providerMessageID}
}

func Delivered(providerMessageID string) SendResult {
	return SendResult{Status: SendStatusDelivered, ProviderMessageID: providerMessageID}
}

func SkippedResult(reason string) SendResult {
	return SendResult{Status: SendStatusSkipped, ErrorCode: "skipped", ErrorMessage: reason}
}

func FailedRetryable(errorCode, errorMessage string) SendResult {
	return SendResult{Status: SendStatusFailed, ErrorCode: errorCode, ErrorMessage: errorMessage, Retryable: true}
}

func FailedPermanent(errorCode, errorMessage string) SendResult {
	return SendResult{Status: SendStatusFailed, ErrorCode: errorCode, ErrorMessage: errorMessage}
}

// Provider контракт канального провайдера доставки (SMTP, Twilio,
// Meta Cloud API и т.п.). Ожидаемые ошибки доставки возвращаются внутри
// SendResult, error остаётся для неожиданных сбоев - диспетчер
// преобразует его в повторяемый отказ.
type Provider interface {
	// Name уникальное имя провайдера для логов и конфигурации
	Name() string

	// Supports проверяет что провайдер обслуживает канал
	Supports(channel model.NotificationChannel) bool

	// Send выполняет отправку. Провайдер отвечает за собственный таймаут.
	Send(ctx context.Context, msg Message) (SendResult, error)

	// Priority приоритет провайдера; при нескольких провайдерах одного
	// канала выбирается наибольший
	Priority() int

	// Available проверяет что провайдер сейчас готов отправлять
	Available() bool
}
