package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bellgado/calendar/internal/model"
	"github.com/bellgado/calendar/internal/repository/base"
)

type SlotEventRepository struct {
	*base.Repository
}

func NewSlotEventRepository(pool *pgxpool.Pool) *SlotEventRepository {
	return &SlotEventRepository{Repository: base.NewRepository(pool)}
}

// Append добавляет событие в журнал. Журнал только пополняется:
// UPDATE и DELETE по таблице не выполняются никогда.
func (r *SlotEventRepository) Append(ctx context.Context, event *model.SlotEvent) error {
	meta, err := json.Marshal(event.Meta)
	if err != nil {
		return fmt.Errorf("marshal event meta: %w", err)
	}

	query := `
		INSERT INTO slot_events (id, slot_id, type, at, old_student_id, new_student_id, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.DB(ctx).Exec(
		ctx, query,
		event.ID,
		event.SlotID,
		event.Type,
		event.At,
		event.OldStudentID,
		event.NewStudentID,
		meta,
	)
	if err != nil {
		return fmt.Errorf("append slot event: %w", err)
	}

	return nil
}

// ListBySlot получает события слота в порядке их записи
func (r *SlotEventRepository) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]*model.SlotEvent, error) {
	query := `
		SELECT id, slot_id, type, at, old_student_id, new_student_id, meta
		FROM slot_events
		WHERE slot_id = $1
		ORDER BY at, id
	`

	rows, err := r.DB(ctx).Query(ctx, query, slotID)
	if err != nil {
		return nil, fmt.Errorf("list slot events: %w", err)
	}
	defer rows.Close()

	var events []*model.SlotEvent
	for rows.Next() {
		var event model.SlotEvent
		var meta []byte
		err := rows.Scan(
			&event.ID,
			&event.SlotID,
			&event.Type,
			&event.At,
			&event.OldStudentID,
			&event.NewStudentID,
			&meta,
		)
		if err != nil {
			return nil, fmt.Errorf("scan slot event: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &event.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal event meta: %w", err)
			}
		}
		events = append(events, &event)
	}

	return events, rows.Err()
}
