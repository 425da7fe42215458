package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Student представляет ученика и его настройки уведомлений
type Student struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Phone    string    `json:"phone"`
	Email    string    `json:"email"`
	Notes    string    `json:"notes"`
	Active   bool      `json:"active"`

	PreferredChannel    NotificationChannel `json:"preferred_channel"`
	NotificationOptIn   bool                `json:"notification_opt_in"`
	NotificationOptInAt *time.Time          `json:"notification_opt_in_at"`

	// Нормализованные контакты (E.164)
	PhoneE164    string `json:"phone_e164"`
	WhatsAppE164 string `json:"whatsapp_e164"`

	Timezone string `json:"timezone"`
	Locale   string `json:"locale"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanReceiveNotifications проверяет базовую готовность ученика получать уведомления
func (s *Student) CanReceiveNotifications() bool {
	return s.Active && s.NotificationOptIn && s.PreferredChannel.Deliverable()
}

// CanReceiveOn проверяет что у ученика есть валидный контакт для канала
func (s *Student) CanReceiveOn(channel NotificationChannel) bool {
	if !s.CanReceiveNotifications() {
		return false
	}
	switch channel {
	case ChannelEmail:
		return strings.TrimSpace(s.Email) != ""
	case ChannelSMS:
		return strings.TrimSpace(s.PhoneE164) != ""
	case ChannelWhatsApp:
		return s.EffectiveWhatsAppNumber() != ""
	default:
		return false
	}
}

// EffectiveWhatsAppNumber возвращает номер WhatsApp с фолбэком на телефон
func (s *Student) EffectiveWhatsAppNumber() string {
	if strings.TrimSpace(s.WhatsAppE164) != "" {
		return s.WhatsAppE164
	}
	return s.PhoneE164
}

// SetNotificationOptIn включает или выключает подписку, фиксируя момент первого согласия
func (s *Student) SetNotificationOptIn(optIn bool, now time.Time) {
	s.NotificationOptIn = optIn
	if optIn && s.NotificationOptInAt == nil {
		at := now
		s.NotificationOptInAt = &at
	}
}
