package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/ServiceDeskGo/internal/domain"
	pkgkafka "github.com/utafrali/ServiceDeskGo/pkg/kafka"
)

// Kafka topics for auth notification events. The notification service
// consumes these and sends the actual emails.
var (
	TopicWelcomeEmail      = pkgkafka.Topic("auth", "welcome")
	TopicPasswordReset     = pkgkafka.Topic("auth", "password_reset")
	TopicEmailVerification = pkgkafka.Topic("auth", "email_verification")
	TopicLoginCode         = pkgkafka.Topic("auth", "login_code")
	TopicNotification      = pkgkafka.Topic("auth", "notification")
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// Source identifier for events originating from the auth service.
const SourceAuthService = "auth-service"

// WelcomeEmailData is the payload for an auth.welcome event.
type WelcomeEmailData struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// PasswordResetData is the payload for an auth.password_reset event. Token is
// the raw reset token; it exists only in this message and the recipient's inbox.
type PasswordResetData struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// EmailVerificationData is the payload for an auth.email_verification event.
type EmailVerificationData struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// LoginCodeData is the payload for an auth.login_code event.
type LoginCodeData struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// NotificationData is the payload for a generic auth.notification event.
type NotificationData struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

// Producer publishes auth notification events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the auth service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// SendWelcomeEmail publishes an auth.welcome event for a newly registered user.
func (p *Producer) SendWelcomeEmail(ctx context.Context, user *domain.User) error {
	data := WelcomeEmailData{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}

	event, err := pkgkafka.NewEvent(TopicWelcomeEmail, user.ID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create auth.welcome event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicWelcomeEmail, event); err != nil {
		return fmt.Errorf("publish auth.welcome event: %w", err)
	}

	p.logger.DebugContext(ctx, "published auth.welcome event",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// SendPasswordResetEmail publishes an auth.password_reset event carrying the
// raw reset token.
func (p *Producer) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	data := PasswordResetData{
		Email: email,
		Token: token,
	}

	event, err := pkgkafka.NewEvent(TopicPasswordReset, email, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create auth.password_reset event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPasswordReset, event); err != nil {
		return fmt.Errorf("publish auth.password_reset event: %w", err)
	}

	p.logger.DebugContext(ctx, "published auth.password_reset event",
		slog.String("email", email),
	)

	return nil
}

// SendEmailVerification publishes an auth.email_verification event carrying
// the raw verification token.
func (p *Producer) SendEmailVerification(ctx context.Context, email, token string) error {
	data := EmailVerificationData{
		Email: email,
		Token: token,
	}

	event, err := pkgkafka.NewEvent(TopicEmailVerification, email, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create auth.email_verification event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicEmailVerification, event); err != nil {
		return fmt.Errorf("publish auth.email_verification event: %w", err)
	}

	p.logger.DebugContext(ctx, "published auth.email_verification event",
		slog.String("email", email),
	)

	return nil
}

// SendLoginCodeEmail publishes an auth.login_code event carrying the one-time code.
func (p *Producer) SendLoginCodeEmail(ctx context.Context, email, code string) error {
	data := LoginCodeData{
		Email: email,
		Code:  code,
	}

	event, err := pkgkafka.NewEvent(TopicLoginCode, email, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create auth.login_code event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicLoginCode, event); err != nil {
		return fmt.Errorf("publish auth.login_code event: %w", err)
	}

	p.logger.DebugContext(ctx, "published auth.login_code event",
		slog.String("email", email),
	)

	return nil
}

// SendNotification publishes a generic auth.notification event, used for
// confirmations like password-changed or email-verified.
func (p *Producer) SendNotification(ctx context.Context, data NotificationData) error {
	event, err := pkgkafka.NewEvent(TopicNotification, data.UserID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create auth.notification event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicNotification, event); err != nil {
		return fmt.Errorf("publish auth.notification event: %w", err)
	}

	p.logger.DebugContext(ctx, "published auth.notification event",
		slog.String("user_id", data.UserID),
		slog.String("kind", data.Kind),
	)

	return nil
}
