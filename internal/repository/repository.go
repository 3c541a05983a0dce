package repository

import (
	"context"

	"github.com/MinCodeHub/todak-BE/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user and fills in its id and timestamps.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetLoginCandidate returns the oldest active user with the given
	// username that has a usable password.
	GetLoginCandidate(ctx context.Context, username string) (*domain.User, error)

	// UpdateProfile stores the additional-info fields of user.
	UpdateProfile(ctx context.Context, user *domain.User) error
}

// SocialRepository persists provider links and provider registrations.
type SocialRepository interface {
	// Resolve finds or creates the local user for identity and the link to
	// provider, atomically. providerToken is stored only when the link is new.
	Resolve(ctx context.Context, identity domain.VerifiedIdentity, provider, providerToken string) (*domain.Resolution, error)

	// GetApp returns the registration for provider.
	GetApp(ctx context.Context, provider string) (*domain.SocialApp, error)

	// UpsertApp creates or refreshes the registration for app.Provider.
	UpsertApp(ctx context.Context, app *domain.SocialApp) error
}

// AuthTokenRepository stores static API keys.
type AuthTokenRepository interface {
	// GetOrCreate returns the user's key, creating one on first use. The
	// boolean reports whether a key was created.
	GetOrCreate(ctx context.Context, userID int64) (*domain.AuthToken, bool, error)

	// GetByKey looks a key up.
	GetByKey(ctx context.Context, key string) (*domain.AuthToken, error)
}
