package domain

import "time"

type SenderType string

const (
	SenderAdmin  SenderType = "ADMIN"
	SenderClient SenderType = "CLIENT"
)

// NegotiationEntry is one message in the propose/counter exchange for a
// request. Entries are append-only and ordered by Timestamp; the most recent
// ADMIN entry is the pending proposal.
type NegotiationEntry struct {
	ID        int64
	RequestID int64
	Sender    SenderType
	Message   string
	Timestamp time.Time
}
