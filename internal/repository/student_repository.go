package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bellgado/calendar/internal/model"
	"github.com/bellgado/calendar/internal/repository/base"
)

const studentColumns = `id, full_name, phone, email, notes, active,
	preferred_channel, notification_opt_in, notification_opt_in_at,
	phone_e164, whatsapp_e164, timezone, locale, created_at, updated_at`

type StudentRepository struct {
	*base.Repository
}

func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт нового ученика
func (r *StudentRepository) Create(ctx context.Context, student *model.Student) error {
	query := `
		INSERT INTO students (id, full_name, phone, email, notes, active,
			preferred_channel, notification_opt_in, notification_opt_in_at,
			phone_e164, whatsapp_e164, timezone, locale)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`

	err := r.DB(ctx).QueryRow(
		ctx, query,
		student.ID,
		student.FullName,
		student.Phone,
		student.Email,
		student.Notes,
		student.Active,
		student.PreferredChannel,
		student.NotificationOptIn,
		student.NotificationOptInAt,
		student.PhoneE164,
		student.WhatsAppE164,
		student.Timezone,
		student.Locale,
	).Scan(&student.CreatedAt, &student.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	return nil
}

// GetByID получает ученика по ID
func (r *StudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	student, err := scanStudent(r.DB(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student by id: %w", err)
	}

	return student, nil
}

// ListActive получает всех активных учеников
func (r *StudentRepository) ListActive(ctx context.Context) ([]*model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE active ORDER BY full_name`

	rows, err := r.DB(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	defer rows.Close()

	var students []*model.Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, student)
	}

	return students, rows.Err()
}

// Update сохраняет изменённого ученика
func (r *StudentRepository) Update(ctx context.Context, student *model.Student) error {
	query := `
		UPDATE students
		SET full_name = $1, phone = $2, email = $3, notes = $4, active = $5,
		    preferred_channel = $6, notification_opt_in = $7, notification_opt_in_at = $8,
		    phone_e164 = $9, whatsapp_e164 = $10, timezone = $11, locale = $12,
		    updated_at = now()
		WHERE id = $13
		RETURNING updated_at
	`

	err := r.DB(ctx).QueryRow(
		ctx, query,
		student.FullName,
		student.Phone,
		student.Email,
		student.Notes,
		student.Active,
		student.PreferredChannel,
		student.NotificationOptIn,
		student.NotificationOptInAt,
		student.PhoneE164,
		student.WhatsAppE164,
		student.Timezone,
		student.Locale,
		student.ID,
	).Scan(&student.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("update student %s: %w", student.ID, model.ErrNotFound)
		}
		return fmt.Errorf("update student: %w", err)
	}

	return nil
}

func scanStudent(row pgx.Row) (*model.Student, error) {
	var student model.Student
	err := row.Scan(
		&student.ID,
		&student.FullName,
		&student.Phone,
		&student.Email,
		&student.Notes,
		&student.Active,
		&student.PreferredChannel,
		&student.NotificationOptIn,
		&student.NotificationOptInAt,
		&student.PhoneE164,
		&student.WhatsAppE164,
		&student.Timezone,
		&student.Locale,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &student, nil
}
