package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/wayfinder/internal/config"
	"github.com/temcen/wayfinder/internal/validation"
	"github.com/temcen/wayfinder/pkg/models"
)

const (
	UserInteractionsTopic = "user-interactions"
	ConsumerGroup         = "recommendation-invalidators"
)

// InteractionEvent is the payload published for each recorded interaction.
type InteractionEvent struct {
	UserID          uuid.UUID              `json:"user_id"`
	ItemID          string                 `json:"item_id"`
	InteractionType models.InteractionType `json:"interaction_type"`
	Timestamp       time.Time              `json:"timestamp"`
}

// Invalidator drops per-user cached state.
type Invalidator interface {
	InvalidateUser(ctx context.Context, userID uuid.UUID)
}

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// InteractionConsumer invalidates cached profiles and recommendations when a
// user's interactions change.
type InteractionConsumer struct {
	reader      MessageReader
	invalidator Invalidator
	schemas     *validation.SchemaValidator
	logger      *logrus.Logger
}

func NewInteractionConsumer(cfg *config.Config, invalidator Invalidator, logger *logrus.Logger) *InteractionConsumer {
	topic := cfg.Kafka.Topics.UserInteractions
	if topic == "" {
		topic = UserInteractionsTopic
	}
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = ConsumerGroup
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	return NewInteractionConsumerWithReader(reader, invalidator, logger)
}

func NewInteractionConsumerWithReader(reader MessageReader, invalidator Invalidator, logger *logrus.Logger) *InteractionConsumer {
	return &InteractionConsumer{
		reader:      reader,
		invalidator: invalidator,
		logger:      logger,
	}
}

// WithSchemaValidator checks event payloads against the interaction-event
// schema before decoding.
func (c *InteractionConsumer) WithSchemaValidator(schemas *validation.SchemaValidator) *InteractionConsumer {
	c.schemas = schemas
	return c
}

// Run consumes until ctx is cancelled. Malformed events are logged and
// committed so they are not redelivered.
func (c *InteractionConsumer) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			c.logger.WithError(err).Error("Failed to read message from Kafka")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.HandleMessage(ctx, message); err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"topic":     message.Topic,
				"partition": message.Partition,
				"offset":    message.Offset,
			}).Warn("Discarding malformed interaction event")
		}

		if err := c.reader.CommitMessages(ctx, message); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.WithError(err).Error("Failed to commit Kafka message")
		}
	}
}

// HandleMessage decodes one event and invalidates the affected user.
func (c *InteractionConsumer) HandleMessage(ctx context.Context, message kafka.Message) error {
	if c.schemas != nil {
		if result := c.schemas.ValidateInteractionEvent(message.Value); !result.Valid {
			return fmt.Errorf("interaction event failed schema validation: %v", result.Errors)
		}
	}

	event, err := DecodeInteractionEvent(message.Value)
	if err != nil {
		return err
	}

	c.invalidator.InvalidateUser(ctx, event.UserID)

	c.logger.WithFields(logrus.Fields{
		"user_id":          event.UserID,
		"item_id":          event.ItemID,
		"interaction_type": event.InteractionType,
	}).Debug("Invalidated cached recommendations")

	return nil
}

func (c *InteractionConsumer) Close() error {
	return c.reader.Close()
}

func DecodeInteractionEvent(data []byte) (*InteractionEvent, error) {
	var event InteractionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal interaction event: %w", err)
	}
	if event.UserID == uuid.Nil {
		return nil, fmt.Errorf("interaction event missing user_id")
	}
	return &event, nil
}
