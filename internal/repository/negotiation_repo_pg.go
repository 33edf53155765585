package repository

import (
	"context"
	"errors"

	"github.com/abriesk/psychobotV1/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NegotiationRepository interface {
	Append(ctx context.Context, entry *domain.NegotiationEntry) error
	ListByRequest(ctx context.Context, requestID int64) ([]domain.NegotiationEntry, error)
	LatestBySender(ctx context.Context, requestID int64, sender domain.SenderType) (*domain.NegotiationEntry, error)
}

type PGNegotiationRepository struct {
	db *pgxpool.Pool
}

func NewNegotiationRepository(db *pgxpool.Pool) NegotiationRepository {
	return &PGNegotiationRepository{db: db}
}

func (r *PGNegotiationRepository) Append(ctx context.Context, entry *domain.NegotiationEntry) error {
	return r.db.QueryRow(ctx, `INSERT INTO negotiations (request_id, sender, message)
		VALUES ($1, $2, $3)
		RETURNING id, timestamp`, entry.RequestID, entry.Sender, entry.Message).
		Scan(&entry.ID, &entry.Timestamp)
}

func (r *PGNegotiationRepository) ListByRequest(ctx context.Context, requestID int64) ([]domain.NegotiationEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, request_id, sender, message, timestamp FROM negotiations WHERE request_id=$1 ORDER BY timestamp`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.NegotiationEntry, 0)
	for rows.Next() {
		var e domain.NegotiationEntry
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Sender, &e.Message, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LatestBySender is on the accept hot path; it is served by the
// (request_id, sender, timestamp desc) index.
func (r *PGNegotiationRepository) LatestBySender(ctx context.Context, requestID int64, sender domain.SenderType) (*domain.NegotiationEntry, error) {
	row := r.db.QueryRow(ctx, `SELECT id, request_id, sender, message, timestamp FROM negotiations
		WHERE request_id=$1 AND sender=$2 ORDER BY timestamp DESC LIMIT 1`, requestID, sender)
	var e domain.NegotiationEntry
	if err := row.Scan(&e.ID, &e.RequestID, &e.Sender, &e.Message, &e.Timestamp); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoPendingProposal
		}
		return nil, err
	}
	return &e, nil
}

var _ NegotiationRepository = (*PGNegotiationRepository)(nil)
