package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/pkg/logger"
	wrap "github.com/torimichi/guide-match-system/pkg/logger/wrapper"
	"github.com/torimichi/guide-match-system/pkg/metrics"
	"github.com/torimichi/guide-match-system/pkg/rabbit"
)

// EventSink is the in-process side of the broker feed: the directory
// projection, the chat service, and anything else that reacts to events.
type EventSink interface {
	ApplyProfileEvent(ctx context.Context, ev models.ProfileEvent)
	ApplyMatchStatus(ctx context.Context, msg models.MatchStatusMessage)
	ApplyChatMessage(ctx context.Context, msg models.ChatMessageBroadcast)
}

type Consumer struct {
	client *rabbit.RabbitMQ
	sink   EventSink
	l      logger.Logger

	// queueSuffix keeps queues replica-private so every instance sees every
	// event rather than competing for them.
	queueSuffix string
}

func NewConsumer(client *rabbit.RabbitMQ, sink EventSink, queueSuffix string, l logger.Logger) *Consumer {
	if queueSuffix == "" {
		queueSuffix = "main"
	}
	return &Consumer{client: client, sink: sink, queueSuffix: queueSuffix, l: l}
}

func (c *Consumer) declareAndBindQueue(ctx context.Context, queueName, bindingKey string) (amqp.Queue, error) {
	const op = "Consumer.declareAndBindQueue"

	q, err := c.client.Channel.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return q, wrap.Error(ctx, fmt.Errorf("%s: declare queue failed: %w", op, err))
	}

	if err := c.client.Channel.QueueBind(q.Name, bindingKey, Exchange, false, nil); err != nil {
		return q, wrap.Error(ctx, fmt.Errorf("%s: bind queue failed: %w", op, err))
	}

	return q, nil
}

// ConsumeProfileEvents feeds profile.changed deliveries into the directory.
func (c *Consumer) ConsumeProfileEvents(ctx context.Context) error {
	return c.consume(ctx, "profile_events."+c.queueSuffix, KeyProfileChanged, func(ctx context.Context, msg amqp.Delivery) error {
		var ev models.ProfileEvent
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			return err
		}
		c.sink.ApplyProfileEvent(ctx, ev)
		return nil
	})
}

// ConsumeMatchStatus feeds match.status.* deliveries into the chat layer so
// conversations close when their match leaves ACCEPTED.
func (c *Consumer) ConsumeMatchStatus(ctx context.Context) error {
	return c.consume(ctx, "match_status."+c.queueSuffix, "match.status.*", func(ctx context.Context, msg amqp.Delivery) error {
		var ev models.MatchStatusMessage
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			return err
		}
		c.sink.ApplyMatchStatus(ctx, ev)
		return nil
	})
}

// ConsumeChatMessages feeds chat.message deliveries into the conversation
// logs of this replica.
func (c *Consumer) ConsumeChatMessages(ctx context.Context) error {
	return c.consume(ctx, "chat_messages."+c.queueSuffix, KeyChatMessage, func(ctx context.Context, msg amqp.Delivery) error {
		var ev models.ChatMessageBroadcast
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			return err
		}
		c.sink.ApplyChatMessage(ctx, ev)
		return nil
	})
}

type deliveryHandler func(ctx context.Context, msg amqp.Delivery) error

func (c *Consumer) handleMessage(ctx context.Context, queue string, fn deliveryHandler, msg amqp.Delivery) {
	const op = "Consumer.handleMessage"

	err := fn(ctx, msg)
	metrics.RecordRabbitMQConsume("guide-match", queue, err)
	if err != nil {
		c.l.Error(ctx, "handler failed", err, "op", op, "queue", queue)
		if isRecoverableError(err) {
			_ = msg.Nack(false, true)
			return
		}
		_ = msg.Nack(false, false)
		return
	}

	if err := msg.Ack(false); err != nil {
		c.l.Warn(ctx, "ack failed", "op", op, "queue", queue, "error", err.Error())
	}
}

// consume runs the reconnecting consumer loop for one queue until ctx ends.
func (c *Consumer) consume(ctx context.Context, queueName, bindingKey string, fn deliveryHandler) error {
	const op = "Consumer.consume"

	for {
		if ctx.Err() != nil {
			c.l.Debug(ctx, "consumer stopped by context", "queue", queueName)
			return nil
		}

		if err := c.client.EnsureConnection(ctx); err != nil {
			c.l.Error(ctx, "ensure connection failed", err, "op", op)
			time.Sleep(2 * time.Second)
			continue
		}

		if err := c.client.Channel.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
			c.l.Error(ctx, "declare exchange failed", err, "op", op)
			time.Sleep(3 * time.Second)
			continue
		}

		q, err := c.declareAndBindQueue(ctx, queueName, bindingKey)
		if err != nil {
			c.l.Error(ctx, "declare queue failed", err, "op", op)
			time.Sleep(2 * time.Second)
			continue
		}

		msgs, err := c.client.Channel.Consume(q.Name, "", false, false, false, false, nil)
		if err != nil {
			c.l.Error(ctx, "consume failed", err, "op", op)
			time.Sleep(2 * time.Second)
			continue
		}

		c.l.Info(ctx, "start consuming", "queue", q.Name, "binding_key", bindingKey)

	consumeLoop:
		for {
			select {
			case <-ctx.Done():
				c.l.Info(ctx, "consumer shutting down", "queue", q.Name)
				return nil

			case msg, ok := <-msgs:
				if !ok {
					c.l.Warn(ctx, "message channel closed, reconnecting", "queue", q.Name)
					time.Sleep(2 * time.Second)
					break consumeLoop
				}
				go c.handleMessage(ctx, q.Name, fn, msg)
			}
		}
	}
}
