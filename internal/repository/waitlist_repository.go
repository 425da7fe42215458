package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bellgado/calendar/internal/model"
	"github.com/bellgado/calendar/internal/repository/base"
)

const waitlistColumns = `id, student_id, preferred_days, preferred_time_ranges,
	notes, priority, active, created_at`

type WaitlistRepository struct {
	*base.Repository
}

func NewWaitlistRepository(pool *pgxpool.Pool) *WaitlistRepository {
	return &WaitlistRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт заявку в листе ожидания
func (r *WaitlistRepository) Create(ctx context.Context, item *model.WaitlistItem) error {
	days, err := json.Marshal(item.PreferredDays)
	if err != nil {
		return fmt.Errorf("marshal preferred days: %w", err)
	}
	ranges, err := json.Marshal(item.PreferredTimeRanges)
	if err != nil {
		return fmt.Errorf("marshal preferred time ranges: %w", err)
	}

	query := `
		INSERT INTO waitlist_items (id, student_id, preferred_days, preferred_time_ranges,
			notes, priority, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err = r.DB(ctx).QueryRow(
		ctx, query,
		item.ID,
		item.StudentID,
		days,
		ranges,
		item.Notes,
		item.Priority,
		item.Active,
	).Scan(&item.CreatedAt)

	if err != nil {
		return fmt.Errorf("create waitlist item: %w", err)
	}

	return nil
}

// GetByID получает заявку по ID
func (r *WaitlistRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.WaitlistItem, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_items WHERE id = $1`

	item, err := scanWaitlistItem(r.DB(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get waitlist item by id: %w", err)
	}

	return item, nil
}

// List получает заявки, важные первыми. Фильтр по active опционален.
func (r *WaitlistRepository) List(ctx context.Context, active *bool) ([]*model.WaitlistItem, error) {
	query := `
		SELECT ` + waitlistColumns + `
		FROM waitlist_items
		WHERE ($1::boolean IS NULL OR active = $1)
		ORDER BY priority DESC, created_at ASC
	`

	rows, err := r.DB(ctx).Query(ctx, query, active)
	if err != nil {
		return nil, fmt.Errorf("list waitlist items: %w", err)
	}
	defer rows.Close()

	var items []*model.WaitlistItem
	for rows.Next() {
		item, err := scanWaitlistItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan waitlist item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Deactivate мягко снимает заявку
func (r *WaitlistRepository) Deactivate(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := r.DB(ctx).Exec(ctx,
		`UPDATE waitlist_items SET active = false WHERE id = $1 AND active`, id)
	if err != nil {
		return 0, fmt.Errorf("deactivate waitlist item: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeactivateByStudent мягко снимает все активные заявки ученика одним запросом
func (r *WaitlistRepository) DeactivateByStudent(ctx context.Context, studentID uuid.UUID) (int64, error) {
	result, err := r.DB(ctx).Exec(ctx,
		`UPDATE waitlist_items SET active = false WHERE student_id = $1 AND active`, studentID)
	if err != nil {
		return 0, fmt.Errorf("deactivate waitlist items by student: %w", err)
	}
	return result.RowsAffected(), nil
}

func scanWaitlistItem(row pgx.Row) (*model.WaitlistItem, error) {
	var item model.WaitlistItem
	var days, ranges []byte
	err := row.Scan(
		&item.ID,
		&item.StudentID,
		&days,
		&ranges,
		&item.Notes,
		&item.Priority,
		&item.Active,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(days) > 0 {
		if err := json.Unmarshal(days, &item.PreferredDays); err != nil {
			return nil, fmt.Errorf("unmarshal preferred days: %w", err)
		}
	}
	if len(ranges) > 0 {
		if err := json.Unmarshal(ranges, &item.PreferredTimeRanges); err != nil {
			return nil, fmt.Errorf("unmarshal preferred time ranges: %w", err)
		}
	}
	return &item, nil
}
