package chat

import "context"

// Button is one inline response control attached to a message, e.g. the
// accept/counter pair under a proposal.
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// Message is a channel-agnostic outbound chat message.
type Message struct {
	ChatID  int64
	Text    string
	Buttons [][]Button
}

// Sender delivers a message to the user-facing chat channel. Implementations
// must treat any failure as retryable; the delivery worker owns the retry
// budget.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
