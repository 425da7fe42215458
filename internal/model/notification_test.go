package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotification(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	studentID := uuid.New()

	n := NewNotification(studentID, ChannelEmail, NotificationClassScheduled, now)

	assert.Equal(t, studentID, n.StudentID)
	assert.Equal(t, NotificationStatusPending, n.Status)
	assert.Equal(t, 0, n.Attempts)
	assert.Equal(t, 3, n.MaxAttempts)
	assert.Equal(t, "class_scheduled", n.TemplateKey)
	require.NotNil(t, n.NextAttemptAt)
	assert.Equal(t, now, *n.NextAttemptAt)
}

func TestNotification_RetryBackoff(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	n := NewNotification(uuid.New(), ChannelEmail, NotificationClassScheduled, now)
	n.MaxAttempts = 5

	expected := []time.Duration{
		1 * time.Minute,
		5 * time.Minute,
		25 * time.Minute,
		125 * time.Minute,
	}

	var prev time.Duration
	for i, want := range expected {
		n.MarkProcessing(now)
		n.MarkFailed("provider_error", "timeout", now)

		require.Equal(t, NotificationStatusPending, n.Status, "attempt %d", i+1)
		require.NotNil(t, n.NextAttemptAt)
		delay := n.NextAttemptAt.Sub(now)
		assert.Equal(t, want, delay, "attempt %d", i+1)
		assert.GreaterOrEqual(t, delay, prev, "backoff must not decrease")
		prev = delay
	}
}

func TestNotification_FailedAfterMaxAttempts(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	n := NewNotification(uuid.New(), ChannelSMS, NotificationClassCancelled, now)

	for i := 0; i < n.MaxAttempts; i++ {
		require.True(t, n.CanRetry())
		n.MarkProcessing(now)
		n.MarkFailed("provider_error", "unreachable", now)
	}

	assert.Equal(t, NotificationStatusFailed, n.Status)
	assert.False(t, n.CanRetry())
	assert.Equal(t, 3, n.Attempts)
	assert.Equal(t, "provider_error", n.ErrorCode)
}

func TestNotification_MarkSentClearsErrors(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	n := NewNotification(uuid.New(), ChannelEmail, NotificationClassScheduled, now)

	n.MarkProcessing(now)
	n.MarkFailed("provider_error", "timeout", now)
	n.MarkProcessing(now)
	n.MarkSent("msg-123", now)

	assert.Equal(t, NotificationStatusSent, n.Status)
	assert.Equal(t, "msg-123", n.ExternalMessageID)
	assert.Empty(t, n.ErrorCode)
	assert.Empty(t, n.ErrorMessage)
	require.NotNil(t, n.SentAt)
	assert.Equal(t, now, *n.SentAt)
}

func TestNotification_MarkFailedPermanent(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	n := NewNotification(uuid.New(), ChannelEmail, NotificationClassScheduled, now)

	n.MarkProcessing(now)
	n.MarkFailedPermanent("invalid_recipient", "bad address")

	assert.Equal(t, NotificationStatusFailed, n.Status)
	assert.Equal(t, 1, n.Attempts)
}

func TestNotification_Expired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	n := NewNotification(uuid.New(), ChannelEmail, NotificationClassScheduled, now)

	assert.False(t, n.Expired(now), "no expiry set")

	expires := now.Add(24 * time.Hour)
	n.ExpiresAt = &expires

	assert.False(t, n.Expired(now))
	assert.False(t, n.Expired(expires))
	assert.True(t, n.Expired(expires.Add(time.Second)))
}

func TestNotification_ScheduledForLater(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	n := NewNotification(uuid.New(), ChannelEmail, NotificationClassReminder, now)

	assert.False(t, n.ScheduledForLater(now))

	future := now.Add(2 * time.Hour)
	n.ScheduledFor = &future

	assert.True(t, n.ScheduledForLater(now))
	assert.False(t, n.ScheduledForLater(future.Add(time.Minute)))
}

func TestNotificationStatus_Terminal(t *testing.T) {
	terminal := []NotificationStatus{
		NotificationStatusSent,
		NotificationStatusDelivered,
		NotificationStatusFailed,
		NotificationStatusSkipped,
		NotificationStatusExpired,
	}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), string(s))
		assert.False(t, s.Retryable(), string(s))
	}

	assert.False(t, NotificationStatusPending.Terminal())
	assert.True(t, NotificationStatusPending.Retryable())
	assert.False(t, NotificationStatusProcessing.Terminal())
	assert.True(t, NotificationStatusProcessing.Retryable())
}
