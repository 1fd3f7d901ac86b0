package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	TopicPhaseChanged  = "battle.phase.changed"
	TopicTurnResolved  = "battle.turn.resolved"
	TopicUnitDestroyed = "battle.unit.destroyed"
	TopicBattleEnded   = "battle.ended"
	TopicBattleState   = "battle.state"
)

// Metadata keys carried through watermill's message metadata.
const (
	metaKeyBattleID = "battle_id"
	metaKeyTopic    = "topic"
)

// Message is one event on the bus.
type Message struct {
	Topic    string
	BattleID string
	Payload  []byte
	Metadata map[string]string
}

// Handler processes one delivered message. Errors are logged and the message
// is dropped; the in-memory channel would otherwise redeliver it forever.
type Handler func(ctx context.Context, msg Message) error

// Bus is an in-process publish/subscribe bus on top of watermill's GoChannel.
// GoChannel hands each published message to subscribers from its own
// goroutine, so two messages published back to back may be delivered in
// either order.
type Bus struct {
	pub    message.Publisher
	sub    message.Subscriber
	logger *slog.Logger
}

// NewBus creates a bus whose subscriber channels buffer up to bufferSize
// messages before publishers block.
func NewBus(bufferSize int64, logger *slog.Logger) *Bus {
	logger = logger.With("component", "event_bus")
	goChannel := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: bufferSize},
		newSlogAdapter(logger),
	)

	return &Bus{
		pub:    goChannel,
		sub:    goChannel,
		logger: logger,
	}
}

func toWatermill(msg Message) *message.Message {
	wmMsg := message.NewMessage(watermill.NewUUID(), msg.Payload)
	for k, v := range msg.Metadata {
		wmMsg.Metadata.Set(k, v)
	}
	wmMsg.Metadata.Set(metaKeyBattleID, msg.BattleID)
	wmMsg.Metadata.Set(metaKeyTopic, msg.Topic)
	return wmMsg
}

func fromWatermill(wmMsg *message.Message) Message {
	metadata := make(map[string]string)
	for k, v := range wmMsg.Metadata {
		if k != metaKeyBattleID && k != metaKeyTopic {
			metadata[k] = v
		}
	}

	return Message{
		Topic:    wmMsg.Metadata.Get(metaKeyTopic),
		BattleID: wmMsg.Metadata.Get(metaKeyBattleID),
		Payload:  wmMsg.Payload,
		Metadata: metadata,
	}
}

func (b *Bus) Publish(ctx context.Context, msg Message) error {
	if msg.Topic == "" {
		return fmt.Errorf("message topic is required")
	}
	wmMsg := toWatermill(msg)
	wmMsg.SetContext(ctx)
	return b.pub.Publish(msg.Topic, wmMsg)
}

// PublishJSON encodes payload as JSON and publishes it for one battle.
func (b *Bus) PublishJSON(ctx context.Context, topic, battleID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", topic, err)
	}
	return b.Publish(ctx, Message{Topic: topic, BattleID: battleID, Payload: data})
}

// Subscribe delivers every message on topic to handler until ctx is done.
// It returns once the subscription is active.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := b.sub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	go func() {
		for wmMsg := range messages {
			msg := fromWatermill(wmMsg)
			if err := handler(ctx, msg); err != nil {
				b.logger.Error("Failed to handle message",
					"operation", "subscribe",
					"topic", topic,
					"msg_id", wmMsg.UUID,
					"battle_id", msg.BattleID,
					"error", err)
			}
			wmMsg.Ack()
		}
		b.logger.Debug("Subscription loop ended", "operation", "subscribe", "topic", topic)
	}()

	return nil
}

func (b *Bus) Close() error {
	return b.sub.Close()
}
