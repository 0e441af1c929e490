package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const DefaultTopic = "vecnews-posts"

// BusNotifier publishes events to a watermill publisher.
type BusNotifier struct {
	publisher message.Publisher
	topic     string
}

func NewBusNotifier(publisher message.Publisher, topic string) *BusNotifier {
	return &BusNotifier{publisher: publisher, topic: topic}
}

func (b *BusNotifier) Notify(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", string(ev.Type))
	if err := b.publisher.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Decode reads an Event back out of a published message.
func Decode(msg *message.Message) (Event, error) {
	var ev Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return ev, nil
}

// LogSubscriber drains topic into the structured log until ctx is done.
func LogSubscriber(ctx context.Context, subscriber message.Subscriber, topic string) error {
	messages, err := subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			ev, err := Decode(msg)
			if err != nil {
				slog.Warn("dropping undecodable post event", "error", err, "uuid", msg.UUID)
			} else {
				slog.Info("post event", "type", ev.Type, "id", ev.PostID, "at", ev.At)
			}
			msg.Ack()
		}
	}()
	return nil
}
