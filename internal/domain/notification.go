package domain

import "time"

type NotificationType string

const (
	NotificationProposal     NotificationType = "PROPOSAL"
	NotificationConfirmation NotificationType = "CONFIRMATION"
	NotificationRejection    NotificationType = "REJECTION"
	NotificationReminder     NotificationType = "REMINDER"
	NotificationCustom       NotificationType = "CUSTOM"
)

// PendingNotification is one outbox row bridging producers (web admin, booking
// service) and the delivery worker that owns the chat channel. SentAt is set
// at most once, by the worker; rows are never deleted.
type PendingNotification struct {
	ID           int64
	UserID       int64
	RequestID    *int64
	Type         NotificationType
	Message      string
	ProposedTime string
	CreatedAt    time.Time
	SentAt       *time.Time
	Error        string
	Attempts     int
}
