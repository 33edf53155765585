package domain

import "time"

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "AVAILABLE"
	SlotStatusHeld      SlotStatus = "HELD"
	SlotStatusBooked    SlotStatus = "BOOKED"
)

// Slot is a bookable session interval. Times are stored in UTC.
type Slot struct {
	ID        int64
	StartTime time.Time
	EndTime   time.Time
	IsOnline  bool
	Status    SlotStatus
	HeldAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
