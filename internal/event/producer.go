package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dkoval/identity-service/internal/domain"
	pkgkafka "github.com/dkoval/identity-service/pkg/kafka"
)

// Kafka topic constants for user lifecycle events.
const (
	TopicUserRegistered = "identity.user.registered"
	TopicUserUpdated    = "identity.user.updated"
	TopicUserDeleted    = "identity.user.deleted"
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// Source identifier for events originating from this service.
const SourceIdentityService = "identity-service"

// UserData is the payload for user.registered and user.updated events.
// It deliberately carries no credential material.
type UserData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

// UserDeletedData is the payload for a user.deleted event.
type UserDeletedData struct {
	ID        string `json:"id"`
	DeletedBy string `json:"deleted_by"`
}

// Producer publishes user lifecycle events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the identity service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, user.ID, UserData{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsActive: user.IsActive,
	})
}

// PublishUserUpdated publishes a user.updated event.
func (p *Producer) PublishUserUpdated(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TopicUserUpdated, user.ID, UserData{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsActive: user.IsActive,
	})
}

// PublishUserDeleted publishes a user.deleted event.
func (p *Producer) PublishUserDeleted(ctx context.Context, userID, deletedBy string) error {
	return p.publish(ctx, TopicUserDeleted, userID, UserDeletedData{
		ID:        userID,
		DeletedBy: deletedBy,
	})
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, AggregateTypeUser, SourceIdentityService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)

	return nil
}
