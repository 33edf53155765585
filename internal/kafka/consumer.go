package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageHandler processes one booking event. Returning an error stops the
// consume loop; the message is redelivered after the group rebalances.
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// Consumer wraps a consumer-group reader over the booking events topic. The
// worker uses it to mirror booking lifecycle events into admin chats.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume reads messages until the context is canceled or the handler fails.
// Offsets are committed by ReadMessage, so a handler error re-processes at
// most the failing message.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
}
