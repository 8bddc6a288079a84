package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/torimichi/guide-match-system/internal/domain/models"
	wrap "github.com/torimichi/guide-match-system/pkg/logger/wrapper"
	"github.com/torimichi/guide-match-system/pkg/metrics"
	"github.com/torimichi/guide-match-system/pkg/rabbit"
)

// Exchange is the single topic exchange all match system events ride on.
const Exchange = "guide_match_topic"

// Routing keys.
const (
	KeyProfileChanged = "profile.changed"
	KeyChatMessage    = "chat.message"
	keyMatchStatusFmt = "match.status.%s"
)

type Producer struct {
	client *rabbit.RabbitMQ
}

func NewProducer(client *rabbit.RabbitMQ) *Producer {
	return &Producer{client: client}
}

// PublishProfileChanged fans a committed profile change out to every replica.
func (p *Producer) PublishProfileChanged(ctx context.Context, ev models.ProfileEvent) error {
	const op = "Producer.PublishProfileChanged"
	return p.publish(ctx, op, KeyProfileChanged, ev)
}

// PublishMatchStatus announces a lifecycle transition under
// match.status.{STATUS} so consumers can bind per status or to the wildcard.
func (p *Producer) PublishMatchStatus(ctx context.Context, msg models.MatchStatusMessage) error {
	const op = "Producer.PublishMatchStatus"
	key := fmt.Sprintf(keyMatchStatusFmt, msg.NewStatus)
	return p.publish(ctx, op, key, msg)
}

// PublishChatMessage carries a durable chat message to the other replicas.
func (p *Producer) PublishChatMessage(ctx context.Context, msg models.ChatMessageBroadcast) error {
	const op = "Producer.PublishChatMessage"
	return p.publish(ctx, op, KeyChatMessage, msg)
}

func (p *Producer) publish(ctx context.Context, op, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		ctx = wrap.WithAction(ctx, "marshal_event")
		return wrap.Error(ctx, fmt.Errorf("%s: failed to marshal message: %w", op, err))
	}

	// A broken channel usually heals within the reconnect window.
	err = retry(3, 200*time.Millisecond, func() error {
		return p.client.Channel.PublishWithContext(
			ctx,
			Exchange,
			key,
			false, // mandatory
			false, // immediate
			amqp091.Publishing{
				ContentType: "application/json",
				Body:        body,
				Timestamp:   time.Now(),
			},
		)
	})
	metrics.RecordRabbitMQPublish("guide-match", key, err)
	if err != nil {
		ctx = wrap.WithAction(ctx, "publish_message")
		return wrap.Error(ctx, fmt.Errorf("%s: failed to publish with context: %w", op, err))
	}
	return nil
}
