package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bellgado/calendar/internal/model"
	"github.com/bellgado/calendar/internal/repository/base"
)

const slotColumns = `id, start_at, end_at, status, student_id, notes, block_id, version, created_at, updated_at`

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт новый слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO slots (id, start_at, end_at, status, student_id, notes, block_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING version, created_at, updated_at
	`

	err := r.DB(ctx).QueryRow(
		ctx, query,
		slot.ID,
		slot.StartAt,
		slot.EndAt,
		slot.Status,
		slot.StudentID,
		slot.Notes,
		slot.BlockID,
	).Scan(&slot.Version, &slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	slot, err := scanSlot(r.DB(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// ExistsAtStart проверяет существование слота с таким временем начала
func (r *SlotRepository) ExistsAtStart(ctx context.Context, startAt time.Time) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM slots WHERE start_at = $1)`

	var exists bool
	err := r.DB(ctx).QueryRow(ctx, query, startAt).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slot exists: %w", err)
	}

	return exists, nil
}

// StartsBetween возвращает времена начала всех слотов в полуоткрытом интервале
func (r *SlotRepository) StartsBetween(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	query := `SELECT start_at FROM slots WHERE start_at >= $1 AND start_at < $2`

	rows, err := r.DB(ctx).Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("get slot starts: %w", err)
	}
	defer rows.Close()

	var starts []time.Time
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("scan slot start: %w", err)
		}
		starts = append(starts, at)
	}

	return starts, rows.Err()
}

// ListInRange получает слоты в заданном диапазоне времени с опциональным
// фильтром по статусам
func (r *SlotRepository) ListInRange(ctx context.Context, from, to time.Time, statuses []model.SlotStatus) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE start_at >= $1
		  AND start_at < $2
		  AND ($3::text[] IS NULL OR status = ANY($3))
		ORDER BY start_at
	`

	rows, err := r.DB(ctx).Query(ctx, query, from, to, statusesParam(statuses))
	if err != nil {
		return nil, fmt.Errorf("list slots in range: %w", err)
	}
	defer rows.Close()

	return scanSlots(rows)
}

// ListByStudent получает слоты ученика в заданном диапазоне времени
func (r *SlotRepository) ListByStudent(ctx context.Context, studentID uuid.UUID, from, to time.Time, statuses []model.SlotStatus) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE student_id = $1
		  AND start_at >= $2
		  AND start_at < $3
		  AND ($4::text[] IS NULL OR status = ANY($4))
		ORDER BY start_at
	`

	rows, err := r.DB(ctx).Query(ctx, query, studentID, from, to, statusesParam(statuses))
	if err != nil {
		return nil, fmt.Errorf("list slots by student: %w", err)
	}
	defer rows.Close()

	return scanSlots(rows)
}

// ListBlockable получает слоты диапазона кроме забронированных
func (r *SlotRepository) ListBlockable(ctx context.Context, from, to time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE start_at >= $1
		  AND start_at < $2
		  AND status <> 'booked'
		ORDER BY start_at
	`

	rows, err := r.DB(ctx).Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list blockable slots: %w", err)
	}
	defer rows.Close()

	return scanSlots(rows)
}

// ListByBlock получает слоты, помеченные данной группой блокировки
func (r *SlotRepository) ListByBlock(ctx context.Context, blockID uuid.UUID) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE block_id = $1
		ORDER BY start_at
	`

	rows, err := r.DB(ctx).Query(ctx, query, blockID)
	if err != nil {
		return nil, fmt.Errorf("list slots by block: %w", err)
	}
	defer rows.Close()

	return scanSlots(rows)
}

// Update сохраняет изменённый слот со сверкой версии. Проигравший
// конкурентный писатель получает model.ErrConflict.
func (r *SlotRepository) Update(ctx context.Context, slot *model.Slot) error {
	query := `
		UPDATE slots
		SET status = $1, student_id = $2, notes = $3, block_id = $4,
		    version = version + 1, updated_at = now()
		WHERE id = $5 AND version = $6
		RETURNING version, updated_at
	`

	err := r.DB(ctx).QueryRow(
		ctx, query,
		slot.Status,
		slot.StudentID,
		slot.Notes,
		slot.BlockID,
		slot.ID,
		slot.Version,
	).Scan(&slot.Version, &slot.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("update slot %s: %w", slot.ID, model.ErrConflict)
		}
		return fmt.Errorf("update slot: %w", err)
	}

	return nil
}

// Delete удаляет слот
func (r *SlotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.DB(ctx).Exec(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete slot %s: %w", id, model.ErrNotFound)
	}

	return nil
}

func statusesParam(statuses []model.SlotStatus) []string {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
		&slot.ID,
		&slot.StartAt,
		&slot.EndAt,
		&slot.Status,
		&slot.StudentID,
		&slot.Notes,
		&slot.BlockID,
		&slot.Version,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func scanSlots(rows pgx.Rows) ([]*model.Slot, error) {
	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}
