package outbox

import (
	"context"

	"github.com/abriesk/psychobotV1/internal/chat"
	"github.com/abriesk/psychobotV1/internal/domain"
	"github.com/abriesk/psychobotV1/internal/repository"
	"go.uber.org/zap"
)

// LanguageCache is optional; a nil cache falls back to the user repository on
// every delivery.
type LanguageCache interface {
	GetUserLanguage(ctx context.Context, userID int64) (string, error)
	SetUserLanguage(ctx context.Context, userID int64, lang string) error
}

// Dispatcher drains the pending_notifications outbox and pushes each item to
// the chat channel. It is the only writer of the delivery-tracking fields
// (sent_at, error, attempts) and assumes a single active instance.
type Dispatcher struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	langCache     LanguageCache
	sender        chat.Sender
	maxAttempts   int
	batchSize     int
	defaultLang   string
	logger        *zap.Logger
}

func NewDispatcher(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	langCache LanguageCache,
	sender chat.Sender,
	maxAttempts, batchSize int,
	defaultLang string,
	logger *zap.Logger,
) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Dispatcher{
		notifications: notifications,
		users:         users,
		langCache:     langCache,
		sender:        sender,
		maxAttempts:   maxAttempts,
		batchSize:     batchSize,
		defaultLang:   defaultLang,
		logger:        logger,
	}
}

// DispatchBatch processes one fetch batch. Per-item failures are recorded on
// the item and never abort the loop; the returned count is successful sends.
func (d *Dispatcher) DispatchBatch(ctx context.Context) (int, error) {
	items, err := d.notifications.FetchBatch(ctx, d.maxAttempts, d.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, item := range items {
		// Count the attempt before sending so a crash mid-send still
		// burns retry budget on a poison message.
		if err := d.notifications.MarkAttempt(ctx, item.ID); err != nil {
			d.logger.Error("failed to mark delivery attempt", zap.Int64("notification_id", item.ID), zap.Error(err))
			continue
		}

		if err := d.deliver(ctx, item); err != nil {
			d.logger.Warn("notification delivery failed",
				zap.Int64("notification_id", item.ID),
				zap.Int64("user_id", item.UserID),
				zap.Int("attempt", item.Attempts+1),
				zap.Error(err))
			if markErr := d.notifications.MarkFailed(ctx, item.ID, err.Error()); markErr != nil {
				d.logger.Error("failed to record delivery error", zap.Int64("notification_id", item.ID), zap.Error(markErr))
			}
			continue
		}

		if err := d.notifications.MarkSent(ctx, item.ID); err != nil {
			d.logger.Error("failed to mark notification sent", zap.Int64("notification_id", item.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

func (d *Dispatcher) deliver(ctx context.Context, item domain.PendingNotification) error {
	lang := d.resolveLanguage(ctx, item.UserID)
	msg, err := render(item, lang)
	if err != nil {
		return err
	}
	return d.sender.Send(ctx, msg)
}

func (d *Dispatcher) resolveLanguage(ctx context.Context, userID int64) string {
	if d.langCache != nil {
		if lang, err := d.langCache.GetUserLanguage(ctx, userID); err == nil && lang != "" {
			return lang
		}
	}

	lang := d.defaultLang
	if d.users != nil {
		if user, err := d.users.GetByID(ctx, userID); err == nil && user != nil && user.Language != "" {
			lang = user.Language
		}
	}
	if d.langCache != nil && lang != "" {
		_ = d.langCache.SetUserLanguage(ctx, userID, lang)
	}
	return lang
}

// StuckCount exposes permanently failed items for the operator view.
func (d *Dispatcher) StuckCount(ctx context.Context) (int64, error) {
	return d.notifications.CountStuck(ctx, d.maxAttempts)
}
