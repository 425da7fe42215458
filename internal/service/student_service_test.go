package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bellgado/calendar/internal/model"
)

func newStudentService() (*StudentService, *fakeStudentStore) {
	store := newFakeStudentStore()
	svc := NewStudentService(store, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestStudentService_Create(t *testing.T) {
	svc, _ := newStudentService()

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		FullName: "Anna Petrova",
		Email:    "anna@example.com",
	})
	require.NoError(t, err)

	assert.True(t, student.Active)
	assert.Equal(t, model.ChannelNone, student.PreferredChannel)
	assert.False(t, student.NotificationOptIn, "opt-in requires explicit consent")
	assert.Equal(t, "UTC", student.Timezone)

	_, err = svc.Create(context.Background(), CreateStudentRequest{FullName: "   "})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestStudentService_SetNotificationPrefs(t *testing.T) {
	svc, _ := newStudentService()

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		FullName: "Anna",
		Email:    "anna@example.com",
	})
	require.NoError(t, err)

	updated, err := svc.SetNotificationPrefs(context.Background(), student.ID, NotificationPrefs{
		PreferredChannel: model.ChannelEmail,
		OptIn:            true,
	})
	require.NoError(t, err)

	assert.True(t, updated.CanReceiveOn(model.ChannelEmail))
	require.NotNil(t, updated.NotificationOptInAt)
}

func TestStudentService_Deactivate(t *testing.T) {
	svc, _ := newStudentService()

	student, err := svc.Create(context.Background(), CreateStudentRequest{FullName: "Anna"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), student.ID))

	stored, err := svc.GetByID(context.Background(), student.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	active, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
}
