package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MinCodeHub/todak-BE/internal/domain"
	"github.com/MinCodeHub/todak-BE/internal/event"
	"github.com/MinCodeHub/todak-BE/internal/repository"
	"github.com/MinCodeHub/todak-BE/pkg/logger"
)

// IdentityVerifier exchanges a provider ID token for the identity it asserts.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (domain.VerifiedIdentity, error)
}

// SessionIssuer mints session token pairs.
type SessionIssuer interface {
	IssuePair(user *domain.User) (domain.TokenPair, error)
}

// SocialService signs users in with an identity provider.
type SocialService struct {
	verifier   IdentityVerifier
	socialRepo repository.SocialRepository
	issuer     SessionIssuer
	producer   EventPublisher
	logger     *slog.Logger
}

// NewSocialService creates a new social login service.
func NewSocialService(
	verifier IdentityVerifier,
	socialRepo repository.SocialRepository,
	issuer SessionIssuer,
	producer EventPublisher,
	logger *slog.Logger,
) *SocialService {
	return &SocialService{
		verifier:   verifier,
		socialRepo: socialRepo,
		issuer:     issuer,
		producer:   producer,
		logger:     logger,
	}
}

// SocialLoginResult is the outcome of a successful provider login.
type SocialLoginResult struct {
	User           *domain.User
	Tokens         domain.TokenPair
	AccountCreated bool
	LinkCreated    bool
}

// GoogleLogin verifies idToken with Google, finds or creates the matching
// local account and its Google link, and issues a fresh session pair.
// Verification errors are returned unwrapped.
func (s *SocialService) GoogleLogin(ctx context.Context, idToken string) (*SocialLoginResult, error) {
	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	res, err := s.socialRepo.Resolve(ctx, identity, domain.ProviderGoogle, idToken)
	if err != nil {
		return nil, fmt.Errorf("resolve google account: %w", err)
	}

	tokens, err := s.issuer.IssuePair(res.User)
	if err != nil {
		return nil, fmt.Errorf("issue session tokens: %w", err)
	}

	l := logger.WithContext(ctx, s.logger)
	if res.AccountCreated {
		if err := s.producer.PublishUserRegistered(ctx, res.User, event.MethodGoogle); err != nil {
			l.ErrorContext(ctx, "failed to publish user.registered event",
				slog.Int64("user_id", res.User.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if res.LinkCreated {
		if err := s.producer.PublishSocialLinked(ctx, res.Account); err != nil {
			l.ErrorContext(ctx, "failed to publish social.linked event",
				slog.Int64("user_id", res.User.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	l.InfoContext(ctx, "google login",
		slog.Int64("user_id", res.User.ID),
		logger.Email(res.User.Email),
		slog.Bool("account_created", res.AccountCreated),
		slog.Bool("link_created", res.LinkCreated),
	)

	return &SocialLoginResult{
		User:           res.User,
		Tokens:         tokens,
		AccountCreated: res.AccountCreated,
		LinkCreated:    res.LinkCreated,
	}, nil
}

// CheckApp reports whether a registration for provider is stored. A stored
// client id that differs from clientID is logged, not rejected.
func (s *SocialService) CheckApp(ctx context.Context, provider, clientID string) error {
	app, err := s.socialRepo.GetApp(ctx, provider)
	if err != nil {
		return fmt.Errorf("check %s social app: %w", provider, err)
	}
	if clientID != "" && app.ClientID != clientID {
		s.logger.WarnContext(ctx, "stored social app client id differs from configuration",
			slog.String("provider", provider),
			slog.Int64("app_id", app.ID),
		)
	}
	return nil
}

// SyncApp creates or refreshes the stored registration of app.Provider.
func (s *SocialService) SyncApp(ctx context.Context, app *domain.SocialApp) error {
	if err := s.socialRepo.UpsertApp(ctx, app); err != nil {
		return fmt.Errorf("sync %s social app: %w", app.Provider, err)
	}
	s.logger.InfoContext(ctx, "social app synced",
		slog.String("provider", app.Provider),
		slog.Int64("app_id", app.ID),
	)
	return nil
}
