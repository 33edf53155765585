package outbox

import (
	"context"
	"errors"

	"github.com/abriesk/psychobotV1/internal/domain"
	"github.com/abriesk/psychobotV1/internal/repository"
)

type OutboxUseCase interface {
	Enqueue(ctx context.Context, input EnqueueInput) (*domain.PendingNotification, error)
	StuckCount(ctx context.Context) (int64, error)
}

// OutboxService is the producer-facing side of the notification bridge; any
// process may enqueue, only the dispatcher finalizes.
type OutboxService struct {
	notifications repository.NotificationRepository
	maxAttempts   int
}

type EnqueueInput struct {
	UserID       int64                   `json:"user_id"`
	RequestID    *int64                  `json:"request_id"`
	Type         domain.NotificationType `json:"type"`
	Message      string                  `json:"message"`
	ProposedTime string                  `json:"proposed_time"`
}

func NewOutboxService(notifications repository.NotificationRepository, maxAttempts int) *OutboxService {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &OutboxService{notifications: notifications, maxAttempts: maxAttempts}
}

func (s *OutboxService) Enqueue(ctx context.Context, input EnqueueInput) (*domain.PendingNotification, error) {
	if input.UserID == 0 {
		return nil, errors.New("user id is required")
	}
	if input.Message == "" {
		return nil, errors.New("message is required")
	}
	switch input.Type {
	case domain.NotificationProposal, domain.NotificationConfirmation, domain.NotificationRejection,
		domain.NotificationReminder, domain.NotificationCustom:
	case "":
		input.Type = domain.NotificationCustom
	default:
		return nil, errors.New("unknown notification type")
	}

	n := &domain.PendingNotification{
		UserID:       input.UserID,
		RequestID:    input.RequestID,
		Type:         input.Type,
		Message:      input.Message,
		ProposedTime: input.ProposedTime,
	}
	if err := s.notifications.Enqueue(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *OutboxService) StuckCount(ctx context.Context) (int64, error) {
	return s.notifications.CountStuck(ctx, s.maxAttempts)
}

var _ OutboxUseCase = (*OutboxService)(nil)
