package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bellgado/calendar/internal/model"
	"github.com/bellgado/calendar/internal/repository/base"
)

const notificationColumns = `id, student_id, channel, type, template_key, variables,
	rendered_subject, rendered_body, status, attempts, max_attempts,
	last_attempt_at, next_attempt_at, external_message_id, error_code, error_message,
	priority, scheduled_for, expires_at, created_at, updated_at, sent_at`

type NotificationRepository struct {
	*base.Repository
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт запись в outbox
func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	variables, err := json.Marshal(n.Variables)
	if err != nil {
		return fmt.Errorf("marshal notification variables: %w", err)
	}

	query := `
		INSERT INTO notifications (id, student_id, channel, type, template_key, variables,
			rendered_subject, rendered_body, status, attempts, max_attempts,
			last_attempt_at, next_attempt_at, external_message_id, error_code, error_message,
			priority, scheduled_for, expires_at, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING created_at, updated_at
	`

	err = r.DB(ctx).QueryRow(
		ctx, query,
		n.ID, n.StudentID, n.Channel, n.Type, n.TemplateKey, variables,
		n.RenderedSubject, n.RenderedBody, n.Status, n.Attempts, n.MaxAttempts,
		n.LastAttemptAt, n.NextAttemptAt, n.ExternalMessageID, n.ErrorCode, n.ErrorMessage,
		n.Priority, n.ScheduledFor, n.ExpiresAt, n.SentAt,
	).Scan(&n.CreatedAt, &n.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	return nil
}

// GetByID получает запись по ID
func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := scanNotification(r.DB(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get notification by id: %w", err)
	}

	return n, nil
}

// Update сохраняет изменённую запись outbox
func (r *NotificationRepository) Update(ctx context.Context, n *model.Notification) error {
	variables, err := json.Marshal(n.Variables)
	if err != nil {
		return fmt.Errorf("marshal notification variables: %w", err)
	}

	query := `
		UPDATE notifications
		SET status = $1, attempts = $2, last_attempt_at = $3, next_attempt_at = $4,
		    external_message_id = $5, error_code = $6, error_message = $7,
		    rendered_subject = $8, rendered_body = $9, variables = $10,
		    scheduled_for = $11, expires_at = $12, sent_at = $13, updated_at = now()
		WHERE id = $14
		RETURNING updated_at
	`

	err = r.DB(ctx).QueryRow(
		ctx, query,
		n.Status, n.Attempts, n.LastAttemptAt, n.NextAttemptAt,
		n.ExternalMessageID, n.ErrorCode, n.ErrorMessage,
		n.RenderedSubject, n.RenderedBody, variables,
		n.ScheduledFor, n.ExpiresAt, n.SentAt,
		n.ID,
	).Scan(&n.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("update notification %s: %w", n.ID, model.ErrNotFound)
		}
		return fmt.Errorf("update notification: %w", err)
	}

	return nil
}

// ListByStudent получает записи ученика, новые первыми
func (r *NotificationRepository) ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]*model.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.DB(ctx).Query(ctx, query, studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications by student: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// CountByStatus считает записи по каждому статусу
func (r *NotificationRepository) CountByStatus(ctx context.Context) (map[model.NotificationStatus]int64, error) {
	query := `SELECT status, count(*) FROM notifications GROUP BY status`

	rows, err := r.DB(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count notifications by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.NotificationStatus]int64)
	for rows.Next() {
		var status model.NotificationStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan notification count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// MarkExpired массово помечает просроченные нетерминальные записи.
// Отдельная рассылка по ним не выполняется.
func (r *NotificationRepository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE notifications
		SET status = 'expired', updated_at = now()
		WHERE status IN ('pending', 'processing')
		  AND expires_at IS NOT NULL
		  AND expires_at <= $1
	`

	result, err := r.DB(ctx).Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("mark notifications expired: %w", err)
	}

	return result.RowsAffected(), nil
}

// ClaimDue выбирает пачку pending-записей, готовых к отправке.
// FOR UPDATE SKIP LOCKED позволяет нескольким воркерам опрашивать таблицу
// одновременно, не забирая одни и те же строки. Вызывать только внутри
// транзакции.
func (r *NotificationRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE status = 'pending'
		  AND (next_attempt_at IS NULL OR next_attempt_at <= $1)
		  AND (scheduled_for IS NULL OR scheduled_for <= $1)
		  AND (expires_at IS NULL OR expires_at > $1)
		ORDER BY priority DESC, next_attempt_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	rows, err := r.DB(ctx).Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due notifications: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

func scanNotification(row pgx.Row) (*model.Notification, error) {
	var n model.Notification
	var variables []byte
	err := row.Scan(
		&n.ID, &n.StudentID, &n.Channel, &n.Type, &n.TemplateKey, &variables,
		&n.RenderedSubject, &n.RenderedBody, &n.Status, &n.Attempts, &n.MaxAttempts,
		&n.LastAttemptAt, &n.NextAttemptAt, &n.ExternalMessageID, &n.ErrorCode, &n.ErrorMessage,
		&n.Priority, &n.ScheduledFor, &n.ExpiresAt, &n.CreatedAt, &n.UpdatedAt, &n.SentAt,
	)
	if err != nil {
		return nil, err
	}
	if len(variables) > 0 {
		if err := json.Unmarshal(variables, &n.Variables); err != nil {
			return nil, fmt.Errorf("unmarshal notification variables: %w", err)
		}
	}
	if n.Variables == nil {
		n.Variables = map[string]string{}
	}
	return &n, nil
}

func scanNotifications(rows pgx.Rows) ([]*model.Notification, error) {
	var notifications []*model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
