package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSlot(t *testing.T) {
	startAt := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	slot := NewSlot(startAt)

	assert.Equal(t, startAt, slot.StartAt)
	assert.Equal(t, startAt.Add(time.Hour), slot.EndAt)
	assert.Equal(t, SlotStatusFree, slot.Status)
	assert.Nil(t, slot.StudentID)
	assert.Nil(t, slot.BlockID)
}

func TestStudent_CanReceiveOn(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	base := func() *Student {
		s := &Student{
			FullName:         "Anna",
			Email:            "anna@example.com",
			PhoneE164:        "+79990001122",
			Active:           true,
			PreferredChannel: ChannelEmail,
		}
		s.SetNotificationOptIn(true, now)
		return s
	}

	t.Run("email ok", func(t *testing.T) {
		assert.True(t, base().CanReceiveOn(ChannelEmail))
	})

	t.Run("inactive student", func(t *testing.T) {
		s := base()
		s.Active = false
		assert.False(t, s.CanReceiveOn(ChannelEmail))
	})

	t.Run("opted out", func(t *testing.T) {
		s := base()
		s.SetNotificationOptIn(false, now)
		assert.False(t, s.CanReceiveOn(ChannelEmail))
	})

	t.Run("channel none undeliverable", func(t *testing.T) {
		s := base()
		s.PreferredChannel = ChannelNone
		assert.False(t, s.CanReceiveOn(ChannelEmail))
	})

	t.Run("missing email contact", func(t *testing.T) {
		s := base()
		s.Email = "  "
		assert.False(t, s.CanReceiveOn(ChannelEmail))
	})

	t.Run("whatsapp falls back to phone", func(t *testing.T) {
		s := base()
		s.PreferredChannel = ChannelWhatsApp
		s.WhatsAppE164 = ""
		assert.True(t, s.CanReceiveOn(ChannelWhatsApp))
		assert.Equal(t, "+79990001122", s.EffectiveWhatsAppNumber())
	})
}

func TestStudent_OptInTimestampKeepsFirstConsent(t *testing.T) {
	first := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	second := first.Add(48 * time.Hour)

	s := &Student{Active: true}
	s.SetNotificationOptIn(true, first)
	s.SetNotificationOptIn(false, second)
	s.SetNotificationOptIn(true, second)

	assert.True(t, s.NotificationOptIn)
	assert.Equal(t, first, *s.NotificationOptInAt)
}
