package model

import (
	"time"

	"github.com/google/uuid"
)

// TimeRange желаемое окно занятий в формате "HH:MM"
type TimeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// WaitlistItem заявка ученика в листе ожидания. Снимается вручную или
// автоматически при бронировании слота за учеником; удаление мягкое,
// запись остаётся с active = false.
type WaitlistItem struct {
	ID        uuid.UUID `json:"id"`
	StudentID uuid.UUID `json:"student_id"`

	PreferredDays       []time.Weekday `json:"preferred_days"`
	PreferredTimeRanges []TimeRange    `json:"preferred_time_ranges"`

	Notes    string `json:"notes"`
	Priority int    `json:"priority"`
	Active   bool   `json:"active"`

	CreatedAt time.Time `json:"created_at"`
}

// NewWaitlistItem создаёт активную заявку
func NewWaitlistItem(studentID uuid.UUID) *WaitlistItem {
	return &WaitlistItem{
		ID:        uuid.New(),
		StudentID: studentID,
		Active:    true,
	}
}
