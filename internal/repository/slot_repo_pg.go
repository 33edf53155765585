package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abriesk/psychobotV1/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SlotRepository interface {
	Create(ctx context.Context, slot *domain.Slot) error
	GetByID(ctx context.Context, id int64) (*domain.Slot, error)
	ListAvailable(ctx context.Context, onlineOnly *bool, before time.Time, limit int) ([]domain.Slot, error)
	Hold(ctx context.Context, id int64) error
	Confirm(ctx context.Context, id int64, heldAfter time.Time) error
	Release(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	HasOverlap(ctx context.Context, start, end time.Time, isOnline bool) (bool, error)
	ReleaseExpiredHolds(ctx context.Context, heldBefore time.Time) (int64, error)
}

type PGSlotRepository struct {
	db *pgxpool.Pool
}

func NewSlotRepository(db *pgxpool.Pool) SlotRepository {
	return &PGSlotRepository{db: db}
}

const slotColumns = `id, start_time, end_time, is_online, status, held_at, created_at, updated_at`

func scanSlot(row pgx.Row) (*domain.Slot, error) {
	var s domain.Slot
	if err := row.Scan(&s.ID, &s.StartTime, &s.EndTime, &s.IsOnline, &s.Status, &s.HeldAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *PGSlotRepository) Create(ctx context.Context, slot *domain.Slot) error {
	slot.Status = domain.SlotStatusAvailable
	return r.db.QueryRow(ctx, `INSERT INTO slots (start_time, end_time, is_online, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`, slot.StartTime, slot.EndTime, slot.IsOnline, slot.Status).
		Scan(&slot.ID, &slot.CreatedAt, &slot.UpdatedAt)
}

func (r *PGSlotRepository) GetByID(ctx context.Context, id int64) (*domain.Slot, error) {
	return scanSlot(r.db.QueryRow(ctx, `SELECT `+slotColumns+` FROM slots WHERE id=$1`, id))
}

// ListAvailable returns future AVAILABLE slots, optionally filtered by
// channel and bounded by a start-time horizon (zero before means unbounded).
func (r *PGSlotRepository) ListAvailable(ctx context.Context, onlineOnly *bool, before time.Time, limit int) ([]domain.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE status=$1 AND start_time > now()`
	args := []interface{}{domain.SlotStatusAvailable}
	if onlineOnly != nil {
		args = append(args, *onlineOnly)
		query += fmt.Sprintf(` AND is_online=$%d`, len(args))
	}
	if !before.IsZero() {
		args = append(args, before)
		query += fmt.Sprintf(` AND start_time < $%d`, len(args))
	}
	query += ` ORDER BY start_time`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]domain.Slot, 0)
	for rows.Next() {
		var s domain.Slot
		if err := rows.Scan(&s.ID, &s.StartTime, &s.EndTime, &s.IsOnline, &s.Status, &s.HeldAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// Hold transitions AVAILABLE -> HELD in a single conditional update so that
// exactly one of any concurrent callers wins.
func (r *PGSlotRepository) Hold(ctx context.Context, id int64) error {
	res, err := r.db.Exec(ctx, `UPDATE slots SET status=$1, held_at=now(), updated_at=now() WHERE id=$2 AND status=$3`,
		domain.SlotStatusHeld, id, domain.SlotStatusAvailable)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrSlotUnavailable
	}
	return nil
}

// Confirm transitions HELD -> BOOKED iff the hold was acquired after
// heldAfter. A zero-row result is disambiguated with a follow-up read:
// not held at all vs. held too long ago.
func (r *PGSlotRepository) Confirm(ctx context.Context, id int64, heldAfter time.Time) error {
	res, err := r.db.Exec(ctx, `UPDATE slots SET status=$1, held_at=NULL, updated_at=now() WHERE id=$2 AND status=$3 AND held_at > $4`,
		domain.SlotStatusBooked, id, domain.SlotStatusHeld, heldAfter)
	if err != nil {
		return err
	}
	if res.RowsAffected() > 0 {
		return nil
	}

	slot, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if slot.Status == domain.SlotStatusHeld {
		return domain.ErrSlotHoldExpired
	}
	return domain.ErrSlotNotHeld
}

// Release transitions HELD or BOOKED back to AVAILABLE. Releasing an already
// AVAILABLE slot is a no-op, not an error.
func (r *PGSlotRepository) Release(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE slots SET status=$1, held_at=NULL, updated_at=now() WHERE id=$2 AND status IN ($3, $4)`,
		domain.SlotStatusAvailable, id, domain.SlotStatusHeld, domain.SlotStatusBooked)
	return err
}

// Delete removes a slot only while it is still AVAILABLE. A held or booked
// slot is reported as ErrSlotNotAvailable, not as a contention failure.
func (r *PGSlotRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.Exec(ctx, `DELETE FROM slots WHERE id=$1 AND status=$2`, id, domain.SlotStatusAvailable)
	if err != nil {
		return err
	}
	if res.RowsAffected() > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return domain.ErrSlotNotAvailable
}

func (r *PGSlotRepository) HasOverlap(ctx context.Context, start, end time.Time, isOnline bool) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM slots WHERE is_online=$1 AND start_time < $2 AND end_time > $3
	)`, isOnline, end, start).Scan(&exists)
	return exists, err
}

// ReleaseExpiredHolds reclaims slots whose hold outlived the TTL. The status
// check is part of the same update, so a slot that became BOOKED after the
// sweep started is left alone.
func (r *PGSlotRepository) ReleaseExpiredHolds(ctx context.Context, heldBefore time.Time) (int64, error) {
	res, err := r.db.Exec(ctx, `UPDATE slots SET status=$1, held_at=NULL, updated_at=now() WHERE status=$2 AND held_at <= $3`,
		domain.SlotStatusAvailable, domain.SlotStatusHeld, heldBefore)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

var _ SlotRepository = (*PGSlotRepository)(nil)
