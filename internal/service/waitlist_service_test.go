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

type fakeWaitlistStore struct {
	items map[uuid.UUID]model.WaitlistItem
}

func newFakeWaitlistStore() *fakeWaitlistStore {
	return &fakeWaitlistStore{items: make(map[uuid.UUID]model.WaitlistItem)}
}

func (s *fakeWaitlistStore) Create(_ context.Context, item *model.WaitlistItem) error {
	item.CreatedAt = time.Now()
	s.items[item.ID] = *item
	return nil
}

func (s *fakeWaitlistStore) GetByID(_ context.Context, id uuid.UUID) (*model.WaitlistItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	copied := item
	return &copied, nil
}

func (s *fakeWaitlistStore) List(_ context.Context, active *bool) ([]*model.WaitlistItem, error) {
	var result []*model.WaitlistItem
	for _, item := range s.items {
		if active != nil && item.Active != *active {
			continue
		}
		copied := item
		result = append(result, &copied)
	}
	return result, nil
}

func (s *fakeWaitlistStore) Deactivate(_ context.Context, id uuid.UUID) (int64, error) {
	item, ok := s.items[id]
	if !ok || !item.Active {
		return 0, nil
	}
	item.Active = false
	s.items[id] = item
	return 1, nil
}

func (s *fakeWaitlistStore) DeactivateByStudent(_ context.Context, studentID uuid.UUID) (int64, error) {
	var removed int64
	for id, item := range s.items {
		if item.StudentID == studentID && item.Active {
			item.Active = false
			s.items[id] = item
			removed++
		}
	}
	return removed, nil
}

func newWaitlistService(t *testing.T) (*WaitlistService, *fakeWaitlistStore, *fakeStudentStore) {
	t.Helper()
	store := newFakeWaitlistStore()
	students := newFakeStudentStore()
	return NewWaitlistService(store, students, zap.NewNop()), store, students
}

func TestWaitlistService_Add(t *testing.T) {
	svc, _, students := newWaitlistService(t)
	ctx := context.Background()

	student := &model.Student{ID: uuid.New(), FullName: "Anna", Active: true}
	require.NoError(t, students.Create(ctx, student))

	item, err := svc.Add(ctx, AddWaitlistRequest{
		StudentID:     student.ID,
		PreferredDays: []time.Weekday{time.Tuesday, time.Thursday},
		PreferredTimeRanges: []model.TimeRange{
			{From: "10:00", To: "13:00"},
		},
		Priority: 5,
	})
	require.NoError(t, err)

	assert.True(t, item.Active)
	assert.Equal(t, 5, item.Priority)
	assert.Equal(t, []time.Weekday{time.Tuesday, time.Thursday}, item.PreferredDays)
}

func TestWaitlistService_AddValidation(t *testing.T) {
	svc, _, students := newWaitlistService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, AddWaitlistRequest{StudentID: uuid.New()})
	assert.ErrorIs(t, err, model.ErrNotFound, "unknown student")

	student := &model.Student{ID: uuid.New(), FullName: "Anna", Active: true}
	require.NoError(t, students.Create(ctx, student))

	_, err = svc.Add(ctx, AddWaitlistRequest{
		StudentID:           student.ID,
		PreferredTimeRanges: []model.TimeRange{{From: "25:00", To: "13:00"}},
	})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.Add(ctx, AddWaitlistRequest{
		StudentID:           student.ID,
		PreferredTimeRanges: []model.TimeRange{{From: "13:00", To: "10:00"}},
	})
	assert.ErrorIs(t, err, model.ErrValidation, "range end must be after start")
}

func TestWaitlistService_Remove(t *testing.T) {
	svc, _, students := newWaitlistService(t)
	ctx := context.Background()

	student := &model.Student{ID: uuid.New(), FullName: "Anna", Active: true}
	require.NoError(t, students.Create(ctx, student))

	item, err := svc.Add(ctx, AddWaitlistRequest{StudentID: student.ID})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, item.ID))

	// повторное снятие и неизвестный ID дают NotFound
	assert.ErrorIs(t, svc.Remove(ctx, item.ID), model.ErrNotFound)
	assert.ErrorIs(t, svc.Remove(ctx, uuid.New()), model.ErrNotFound)

	activeOnly := true
	active, err := svc.List(ctx, &activeOnly)
	require.NoError(t, err)
	assert.Empty(t, active)

	// мягкое удаление: запись остаётся
	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// Бронирование слота автоматически снимает активные заявки ученика,
// заявки других учеников не затрагиваются.
func TestWaitlistService_BookingRemovesStudentEntries(t *testing.T) {
	f := newSlotFixture(t)
	ctx := context.Background()
	studentID := f.addStudent(t)
	otherID := f.addStudent(t)

	waitlistStore := newFakeWaitlistStore()
	waitlistSvc := NewWaitlistService(waitlistStore, f.students, zap.NewNop())
	f.svc.SetWaitlist(waitlistSvc)

	booked, err := waitlistSvc.Add(ctx, AddWaitlistRequest{StudentID: studentID, Priority: 1})
	require.NoError(t, err)
	waiting, err := waitlistSvc.Add(ctx, AddWaitlistRequest{StudentID: otherID})
	require.NoError(t, err)

	slot, err := f.svc.Create(ctx, f.now.Add(24*time.Hour).Truncate(time.Hour))
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, slot.ID, studentID, nil)
	require.NoError(t, err)

	stored, err := waitlistStore.GetByID(ctx, booked.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active, "booked student leaves the waitlist")

	stored, err = waitlistStore.GetByID(ctx, waiting.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active, "other students stay on the waitlist")
}
