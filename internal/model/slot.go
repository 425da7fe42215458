package model

import (
	"time"

	"github.com/google/uuid"
)

// SlotDuration фиксированная длительность слота
const SlotDuration = 60 * time.Minute

type SlotStatus string

const (
	SlotStatusFree      SlotStatus = "free"
	SlotStatusBooked    SlotStatus = "booked"
	SlotStatusCancelled SlotStatus = "cancelled"
	SlotStatusBlocked   SlotStatus = "blocked"
)

// Slot представляет бронируемый часовой интервал в календаре
type Slot struct {
	ID        uuid.UUID  `json:"id"`
	StartAt   time.Time  `json:"start_at"`
	EndAt     time.Time  `json:"end_at"`
	Status    SlotStatus `json:"status"`
	StudentID *uuid.UUID `json:"student_id"` // указатель - может быть nil
	Notes     string     `json:"notes"`
	BlockID   *uuid.UUID `json:"block_id"` // группа блокировки, nil если слот не заблокирован
	Version   int        `json:"version"`  // счётчик оптимистичной блокировки
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewSlot создаёт свободный слот фиксированной длительности
func NewSlot(startAt time.Time) *Slot {
	return &Slot{
		ID:      uuid.New(),
		StartAt: startAt,
		EndAt:   startAt.Add(SlotDuration),
		Status:  SlotStatusFree,
	}
}
