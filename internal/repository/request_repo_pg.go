package repository

import (
	"context"
	"errors"
	"time"

	"github.com/abriesk/psychobotV1/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RequestRepository interface {
	Create(ctx context.Context, req *domain.Request) error
	GetByID(ctx context.Context, id int64) (*domain.Request, error)
	GetByToken(ctx context.Context, token string) (*domain.Request, error)
	List(ctx context.Context, status *domain.RequestStatus, limit int) ([]domain.Request, error)
	Transition(ctx context.Context, id int64, to domain.RequestStatus, from ...domain.RequestStatus) (*domain.Request, error)
	ConfirmWithFinalTime(ctx context.Context, id int64, finalTime string, scheduledAt *time.Time, from ...domain.RequestStatus) (*domain.Request, error)
	Cancel(ctx context.Context, id int64) (*domain.Request, bool, error)
	BindSlot(ctx context.Context, id, slotID int64) error
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]domain.Request, error)
	ListDueReminders(ctx context.Context, within time.Duration, flag string) ([]domain.Request, error)
	MarkReminderSent(ctx context.Context, id int64, flag string) error
}

type PGRequestRepository struct {
	db *pgxpool.Pool
}

func NewRequestRepository(db *pgxpool.Pool) RequestRepository {
	return &PGRequestRepository{db: db}
}

const requestColumns = `id, token, user_id, type, onsite, timezone, desired_time, problem, preferred_comm, address_name,
	status, final_time, scheduled_at, slot_id, reminder_24h_sent, reminder_1h_sent, cancelled_at, created_at, updated_at`

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var req domain.Request
	err := row.Scan(&req.ID, &req.Token, &req.UserID, &req.Type, &req.Onsite, &req.Timezone, &req.DesiredTime,
		&req.Problem, &req.PreferredComm, &req.AddressName, &req.Status, &req.FinalTime, &req.ScheduledAt,
		&req.SlotID, &req.Reminder24Sent, &req.Reminder1Sent, &req.CancelledAt, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *PGRequestRepository) Create(ctx context.Context, req *domain.Request) error {
	req.Status = domain.RequestStatusPending
	return r.db.QueryRow(ctx, `INSERT INTO requests (token, user_id, type, onsite, timezone, desired_time, problem, preferred_comm, address_name, status, slot_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		req.Token, req.UserID, req.Type, req.Onsite, req.Timezone, req.DesiredTime, req.Problem, req.PreferredComm, req.AddressName, req.Status, req.SlotID).
		Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

func (r *PGRequestRepository) GetByID(ctx context.Context, id int64) (*domain.Request, error) {
	return scanRequest(r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id=$1`, id))
}

func (r *PGRequestRepository) GetByToken(ctx context.Context, token string) (*domain.Request, error) {
	return scanRequest(r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE token=$1`, token))
}

func (r *PGRequestRepository) List(ctx context.Context, status *domain.RequestStatus, limit int) ([]domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status=$1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		args = append(args, limit)
		if status != nil {
			query += ` LIMIT $2`
		} else {
			query += ` LIMIT $1`
		}
	}
	return r.queryRequests(ctx, query, args...)
}

// Transition moves a request to the target status iff its current status is in
// the allowed prior set, as a single conditional update. A zero-row result is
// reported as ErrRequestTerminal unless the request does not exist at all.
func (r *PGRequestRepository) Transition(ctx context.Context, id int64, to domain.RequestStatus, from ...domain.RequestStatus) (*domain.Request, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, `UPDATE requests SET status=$1, updated_at=now() WHERE id=$2 AND status = ANY($3)
		RETURNING `+requestColumns, to, id, statusList(from)))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, domain.ErrRequestNotFound) {
		return nil, err
	}
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, domain.ErrRequestTerminal
}

func (r *PGRequestRepository) ConfirmWithFinalTime(ctx context.Context, id int64, finalTime string, scheduledAt *time.Time, from ...domain.RequestStatus) (*domain.Request, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, `UPDATE requests SET status=$1, final_time=$2, scheduled_at=$3, updated_at=now()
		WHERE id=$4 AND status = ANY($5)
		RETURNING `+requestColumns, domain.RequestStatusConfirmed, finalTime, scheduledAt, id, statusList(from)))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, domain.ErrRequestNotFound) {
		return nil, err
	}
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, domain.ErrRequestTerminal
}

// Cancel is reentrant: canceling an already terminal request returns the
// current row without touching it. The bool reports whether this call
// performed the PENDING/NEGOTIATING -> CANCELED transition.
func (r *PGRequestRepository) Cancel(ctx context.Context, id int64) (*domain.Request, bool, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, `UPDATE requests SET status=$1, cancelled_at=now(), updated_at=now()
		WHERE id=$2 AND status = ANY($3)
		RETURNING `+requestColumns,
		domain.RequestStatusCanceled, id,
		statusList([]domain.RequestStatus{domain.RequestStatusPending, domain.RequestStatusNegotiating})))
	if err == nil {
		return req, true, nil
	}
	if !errors.Is(err, domain.ErrRequestNotFound) {
		return nil, false, err
	}
	req, err = r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return req, false, nil
}

func (r *PGRequestRepository) BindSlot(ctx context.Context, id, slotID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE requests SET slot_id=$1, updated_at=now() WHERE id=$2`, slotID, id)
	return err
}

func (r *PGRequestRepository) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]domain.Request, error) {
	return r.queryRequests(ctx, `SELECT `+requestColumns+` FROM requests WHERE status=$1 AND created_at < $2 ORDER BY created_at`,
		domain.RequestStatusPending, cutoff)
}

// ListDueReminders returns confirmed requests whose session starts within the
// given window and whose reminder flag (reminder_24h_sent or reminder_1h_sent)
// is still unset.
func (r *PGRequestRepository) ListDueReminders(ctx context.Context, within time.Duration, flag string) ([]domain.Request, error) {
	if flag != "reminder_24h_sent" && flag != "reminder_1h_sent" {
		return nil, errors.New("unknown reminder flag: " + flag)
	}
	return r.queryRequests(ctx, `SELECT `+requestColumns+` FROM requests
		WHERE status=$1 AND scheduled_at IS NOT NULL AND scheduled_at > now() AND scheduled_at <= $2 AND `+flag+` = false
		ORDER BY scheduled_at`,
		domain.RequestStatusConfirmed, time.Now().UTC().Add(within))
}

func (r *PGRequestRepository) MarkReminderSent(ctx context.Context, id int64, flag string) error {
	if flag != "reminder_24h_sent" && flag != "reminder_1h_sent" {
		return errors.New("unknown reminder flag: " + flag)
	}
	_, err := r.db.Exec(ctx, `UPDATE requests SET `+flag+` = true, updated_at=now() WHERE id=$1`, id)
	return err
}

func (r *PGRequestRepository) queryRequests(ctx context.Context, query string, args ...interface{}) ([]domain.Request, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]domain.Request, 0)
	for rows.Next() {
		var req domain.Request
		if err := rows.Scan(&req.ID, &req.Token, &req.UserID, &req.Type, &req.Onsite, &req.Timezone, &req.DesiredTime,
			&req.Problem, &req.PreferredComm, &req.AddressName, &req.Status, &req.FinalTime, &req.ScheduledAt,
			&req.SlotID, &req.Reminder24Sent, &req.Reminder1Sent, &req.CancelledAt, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func statusList(statuses []domain.RequestStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

var _ RequestRepository = (*PGRequestRepository)(nil)
