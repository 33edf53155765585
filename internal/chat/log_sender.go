package chat

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes outbound messages to the log instead of a real channel.
// Used when no bot token is configured, e.g. in local development.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info("chat message (dry run)",
		zap.Int64("chat_id", msg.ChatID),
		zap.String("text", msg.Text),
		zap.Int("button_rows", len(msg.Buttons)))
	return nil
}

var _ Sender = (*LogSender)(nil)
