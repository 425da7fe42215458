package model

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeCreated      EventType = "created"
	EventTypeGenerated    EventType = "generated"
	EventTypeBooked       EventType = "booked"
	EventTypeCancelled    EventType = "cancelled"
	EventTypeFreed        EventType = "freed"
	EventTypeReplaced     EventType = "replaced"
	EventTypeRescheduled  EventType = "rescheduled"
	EventTypeBlocked      EventType = "blocked"
	EventTypeUnblocked    EventType = "unblocked"
	EventTypeNotesUpdated EventType = "notes_updated"
)

// SlotEvent запись аудита перехода слота. Только добавляется, никогда не
// изменяется и не удаляется.
type SlotEvent struct {
	ID           uuid.UUID         `json:"id"`
	SlotID       uuid.UUID         `json:"slot_id"`
	Type         EventType         `json:"type"`
	At           time.Time         `json:"at"`
	OldStudentID *uuid.UUID        `json:"old_student_id"`
	NewStudentID *uuid.UUID        `json:"new_student_id"`
	Meta         map[string]string `json:"meta"`
}
