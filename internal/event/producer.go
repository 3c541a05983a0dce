package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/MinCodeHub/todak-BE/internal/domain"
	pkgkafka "github.com/MinCodeHub/todak-BE/pkg/kafka"
	"github.com/MinCodeHub/todak-BE/pkg/logger"
)

// Kafka topics for account events.
var (
	TopicUserRegistered = pkgkafka.Topic("user", "registered")
	TopicUserUpdated    = pkgkafka.Topic("user", "updated")
	TopicSocialLinked   = pkgkafka.Topic("social", "linked")
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// SourceAccountsService identifies events originating from this service.
const SourceAccountsService = "accounts-service"

// Registration channels carried in UserRegisteredData.Method.
const (
	MethodPassword = "password"
	MethodGoogle   = "google"
)

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Method   string `json:"method"`
}

// UserUpdatedData is the payload for a user.updated event.
type UserUpdatedData struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Gender   string `json:"gender,omitempty"`
}

// SocialLinkedData is the payload for a social.linked event.
type SocialLinkedData struct {
	UserID    int64  `json:"user_id"`
	AccountID int64  `json:"account_id"`
	Provider  string `json:"provider"`
}

type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes account events to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the accounts service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User, method string) error {
	data := UserRegisteredData{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Method:   method,
	}
	return p.publish(ctx, TopicUserRegistered, user.ID, data, map[string]string{"method": method})
}

// PublishUserUpdated publishes a user.updated event.
func (p *Producer) PublishUserUpdated(ctx context.Context, user *domain.User) error {
	data := UserUpdatedData{
		ID:       user.ID,
		Email:    user.Email,
		Nickname: user.Nickname,
		Phone:    user.Phone,
		Gender:   user.Gender,
	}
	return p.publish(ctx, TopicUserUpdated, user.ID, data, nil)
}

// PublishSocialLinked publishes a social.linked event.
func (p *Producer) PublishSocialLinked(ctx context.Context, account *domain.SocialAccount) error {
	data := SocialLinkedData{
		UserID:    account.UserID,
		AccountID: account.ID,
		Provider:  account.Provider,
	}
	return p.publish(ctx, TopicSocialLinked, account.UserID, data, map[string]string{"provider": account.Provider})
}

func (p *Producer) publish(ctx context.Context, topic string, userID int64, data any, meta map[string]string) error {
	event, err := pkgkafka.NewEvent(topic, strconv.FormatInt(userID, 10), AggregateTypeUser, SourceAccountsService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	for k, v := range meta {
		event.WithMetadata(k, v)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published account event",
		slog.String("topic", topic),
		slog.Int64("user_id", userID),
	)
	return nil
}
