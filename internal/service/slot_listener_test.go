package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bellgado/calendar/internal/model"
)

// Полная связка: машина состояний слотов публикует переходы, слушатель
// ставит уведомления в outbox.
func TestSlotNotificationListener_EndToEnd(t *testing.T) {
	f := newSlotFixture(t)
	nf := newNotificationFixture(t, defaultSettings())
	nf.students = f.students
	nf.svc.students = f.students
	ctx := context.Background()

	listener := NewSlotNotificationListener(nf.svc, zap.NewNop())
	f.svc.AddListener(listener)

	studentID := uuid.New()
	student := &model.Student{
		ID:               studentID,
		FullName:         "Anna",
		Email:            "anna@example.com",
		Active:           true,
		PreferredChannel: model.ChannelEmail,
	}
	student.SetNotificationOptIn(true, f.now)
	require.NoError(t, f.students.Create(ctx, student))

	slot, err := f.svc.Create(ctx, f.now.Add(24*time.Hour).Truncate(time.Hour))
	require.NoError(t, err)

	// Создание слота без ученика уведомлений не порождает
	queued, err := nf.svc.ListByStudent(ctx, studentID, 10)
	require.NoError(t, err)
	assert.Empty(t, queued)

	_, err = f.svc.Book(ctx, slot.ID, studentID, nil)
	require.NoError(t, err)

	queued, err = nf.svc.ListByStudent(ctx, studentID, 10)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, model.NotificationClassScheduled, queued[0].Type)
	assert.Equal(t, slot.ID.String(), queued[0].Variables["slot_id"])

	_, err = f.svc.Cancel(ctx, slot.ID, CancelActorTeacher, "illness")
	require.NoError(t, err)

	queued, err = nf.svc.ListByStudent(ctx, studentID, 10)
	require.NoError(t, err)
	require.Len(t, queued, 2)

	var cancelledNote *model.Notification
	for _, n := range queued {
		if n.Type == model.NotificationClassCancelled {
			cancelledNote = n
		}
	}
	require.NotNil(t, cancelledNote, "cancellation must notify the previous student")
	assert.Equal(t, "teacher", cancelledNote.Variables["cancelled_by"])
	assert.Equal(t, "illness", cancelledNote.Variables["reason"])
}

// Перенос даёт ровно одно уведомление: только событие целевого слота
// несёт нового ученика.
func TestSlotNotificationListener_RescheduleSingleNotification(t *testing.T) {
	f := newSlotFixture(t)
	nf := newNotificationFixture(t, defaultSettings())
	nf.svc.students = f.students
	ctx := context.Background()

	listener := NewSlotNotificationListener(nf.svc, zap.NewNop())
	f.svc.AddListener(listener)

	studentID := uuid.New()
	student := &model.Student{
		ID:               studentID,
		FullName:         "Anna",
		Email:            "anna@example.com",
		Active:           true,
		PreferredChannel: model.ChannelEmail,
	}
	student.SetNotificationOptIn(true, f.now)
	require.NoError(t, f.students.Create(ctx, student))

	origin, err := f.svc.Create(ctx, f.now.Add(24*time.Hour).Truncate(time.Hour))
	require.NoError(t, err)
	target, err := f.svc.Create(ctx, f.now.Add(48*time.Hour).Truncate(time.Hour))
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, origin.ID, studentID, nil)
	require.NoError(t, err)

	before, err := nf.svc.ListByStudent(ctx, studentID, 10)
	require.NoError(t, err)

	_, err = f.svc.Reschedule(ctx, origin.ID, target.ID, "")
	require.NoError(t, err)

	after, err := nf.svc.ListByStudent(ctx, studentID, 10)
	require.NoError(t, err)
	require.Len(t, after, len(before)+1, "reschedule produces exactly one notification")

	var rescheduled *model.Notification
	for _, n := range after {
		if n.Type == model.NotificationClassRescheduled {
			rescheduled = n
		}
	}
	require.NotNil(t, rescheduled)
	assert.Equal(t, target.ID.String(), rescheduled.Variables["slot_id"], "notification points at the new slot")
	assert.Equal(t, origin.ID.String(), rescheduled.Variables["origin_slot_id"])
}
