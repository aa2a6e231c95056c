package service

import (
	"context"
	"encoding/json"
	"time"

	"finagent-be/internal/dto"
	"finagent-be/internal/pkg/logger"
	"finagent-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// EventForwarder ships interaction events off-process. *nats.Publisher satisfies it.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

type consumerService struct {
	subscriber     message.Subscriber
	topicName      string
	interactionLog logger.ILogger
	forwarder      EventForwarder
	logger         logger.ILogger
}

// NewConsumerService appends every chat interaction to interactionLog and forwards it when
// forwarder is non-nil.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	interactionLog logger.ILogger,
	forwarder EventForwarder,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:     subscriber,
		topicName:      topicName,
		interactionLog: interactionLog,
		forwarder:      forwarder,
		logger:         log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ChatInteractionMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal interaction", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // a malformed payload will never parse
		return
	}

	cs.interactionLog.Info("CHAT_INTERACTION", "Chat turn completed", map[string]interface{}{
		"session_id":      payload.SessionId,
		"query":           payload.Query,
		"agent":           payload.Agent,
		"response_length": payload.ResponseLength,
		"fallback":        payload.Fallback,
		"occurred_at":     payload.OccurredAt.Format(time.RFC3339),
	})

	if cs.forwarder != nil {
		event := events.NewChatInteraction(
			payload.SessionId,
			payload.Query,
			payload.Agent,
			payload.ResponseLength,
			payload.Fallback,
			payload.OccurredAt,
		)
		// forwarding is best effort; the interaction is already logged
		if err := cs.forwarder.Publish(ctx, event); err != nil {
			cs.logger.Warn("CONSUMER", "Failed to forward interaction", map[string]interface{}{
				"session_id": payload.SessionId,
				"error":      err.Error(),
			})
		}
	}

	msg.Ack()
}
