package repository

import (
	"context"
	"errors"

	"github.com/abriesk/psychobotV1/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository interface {
	Enqueue(ctx context.Context, n *domain.PendingNotification) error
	FetchBatch(ctx context.Context, maxAttempts, limit int) ([]domain.PendingNotification, error)
	MarkAttempt(ctx context.Context, id int64) error
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errText string) error
	CountStuck(ctx context.Context, maxAttempts int) (int64, error)
}

type PGNotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) NotificationRepository {
	return &PGNotificationRepository{db: db}
}

func (r *PGNotificationRepository) Enqueue(ctx context.Context, n *domain.PendingNotification) error {
	return r.db.QueryRow(ctx, `INSERT INTO pending_notifications (user_id, request_id, notification_type, message, proposed_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`, n.UserID, n.RequestID, n.Type, n.Message, n.ProposedTime).
		Scan(&n.ID, &n.CreatedAt)
}

// FetchBatch returns undelivered items that still have attempts left, oldest
// first. Items at or past maxAttempts are permanently stuck and never
// returned again.
func (r *PGNotificationRepository) FetchBatch(ctx context.Context, maxAttempts, limit int) ([]domain.PendingNotification, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, request_id, notification_type, message, proposed_time, created_at, sent_at, COALESCE(error, ''), attempts
		FROM pending_notifications
		WHERE sent_at IS NULL AND attempts < $1
		ORDER BY created_at
		LIMIT $2`, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.PendingNotification, 0)
	for rows.Next() {
		var n domain.PendingNotification
		if err := rows.Scan(&n.ID, &n.UserID, &n.RequestID, &n.Type, &n.Message, &n.ProposedTime, &n.CreatedAt, &n.SentAt, &n.Error, &n.Attempts); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

// MarkAttempt bumps the attempt counter before a send is tried, so a crash
// mid-send still counts against the retry budget.
func (r *PGNotificationRepository) MarkAttempt(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE pending_notifications SET attempts = attempts + 1 WHERE id=$1`, id)
	return err
}

func (r *PGNotificationRepository) MarkSent(ctx context.Context, id int64) error {
	res, err := r.db.Exec(ctx, `UPDATE pending_notifications SET sent_at=now(), error=NULL WHERE id=$1 AND sent_at IS NULL`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return errors.New("notification already sent or not found")
	}
	return nil
}

func (r *PGNotificationRepository) MarkFailed(ctx context.Context, id int64, errText string) error {
	_, err := r.db.Exec(ctx, `UPDATE pending_notifications SET error=$1 WHERE id=$2`, errText, id)
	return err
}

func (r *PGNotificationRepository) CountStuck(ctx context.Context, maxAttempts int) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM pending_notifications WHERE sent_at IS NULL AND attempts >= $1`, maxAttempts).Scan(&count)
	return count, err
}

var _ NotificationRepository = (*PGNotificationRepository)(nil)
