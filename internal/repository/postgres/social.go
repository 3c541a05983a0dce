package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MinCodeHub/todak-BE/internal/domain"
	"github.com/MinCodeHub/todak-BE/pkg/database"
	apperrors "github.com/MinCodeHub/todak-BE/pkg/errors"
)

const (
	queryInsertProviderUser = `
		INSERT INTO users (email, username, password_hash)
		VALUES ($1, $2, '')
		ON CONFLICT (email) DO NOTHING
		RETURNING ` + userColumns

	querySocialAccount = `
		SELECT id, user_id, provider, uid, created_at
		FROM social_accounts
		WHERE user_id = $1 AND provider = $2`

	queryInsertSocialAccount = `
		INSERT INTO social_accounts (user_id, provider, uid)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, provider) DO NOTHING
		RETURNING id, user_id, provider, uid, created_at`

	queryInsertSocialToken = `
		INSERT INTO social_tokens (app_id, account_id, token, expires_at)
		VALUES ($1, $2, $3, NULL)`

	querySocialApp = `
		SELECT id, provider, name, client_id, secret, created_at
		FROM social_apps
		WHERE provider = $1`

	queryUpsertSocialApp = `
		INSERT INTO social_apps (provider, name, client_id, secret)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider) DO UPDATE
		SET name = EXCLUDED.name, client_id = EXCLUDED.client_id, secret = EXCLUDED.secret
		RETURNING id, created_at`
)

// SocialRepository implements repository.SocialRepository using PostgreSQL.
type SocialRepository struct {
	db database.DBTX
}

// NewSocialRepository creates a new PostgreSQL-backed social repository.
func NewSocialRepository(db database.DBTX) *SocialRepository {
	return &SocialRepository{db: db}
}

// Resolve finds or creates the user owning identity.Email and its link to
// provider in one transaction. Concurrent first logins for the same email
// are settled by the unique constraints: the loser of each insert race reads
// the winner's row instead.
func (r *SocialRepository) Resolve(ctx context.Context, identity domain.VerifiedIdentity, provider, providerToken string) (res *domain.Resolution, err error) {
	ctx, end := database.TraceQuery(ctx, "ResolveSocialLogin", queryInsertSocialAccount)
	defer func() { end(err) }()

	res = &domain.Resolution{}
	err = database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		user, created, err := findOrCreateUser(ctx, tx, identity.Email)
		if err != nil {
			return err
		}
		res.User, res.AccountCreated = user, created

		account, err := scanSocialAccount(tx.QueryRow(ctx, querySocialAccount, user.ID, provider))
		if err == nil {
			res.Account = account
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("select social account: %w", err)
		}

		app, err := scanSocialApp(tx.QueryRow(ctx, querySocialApp, provider))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return missingApp(provider)
			}
			return fmt.Errorf("select social app: %w", err)
		}

		account, err = scanSocialAccount(tx.QueryRow(ctx, queryInsertSocialAccount, user.ID, provider, identity.Subject))
		switch {
		case err == nil:
			res.LinkCreated = true
		case errors.Is(err, pgx.ErrNoRows):
			// Linked by a concurrent login after our select.
			account, err = scanSocialAccount(tx.QueryRow(ctx, querySocialAccount, user.ID, provider))
			if err != nil {
				return fmt.Errorf("reselect social account: %w", err)
			}
		default:
			return fmt.Errorf("insert social account: %w", err)
		}
		res.Account = account

		if res.LinkCreated {
			if _, err := tx.Exec(ctx, queryInsertSocialToken, app.ID, account.ID, providerToken); err != nil {
				return fmt.Errorf("insert social token: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func findOrCreateUser(ctx context.Context, tx pgx.Tx, email string) (*domain.User, bool, error) {
	user, err := scanUser(tx.QueryRow(ctx, queryUserByEmail, email))
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("select user: %w", err)
	}

	user, err = scanUser(tx.QueryRow(ctx, queryInsertProviderUser, email, domain.UsernameFromEmail(email)))
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("insert user: %w", err)
	}

	// Created by a concurrent login after our select.
	user, err = scanUser(tx.QueryRow(ctx, queryUserByEmail, email))
	if err != nil {
		return nil, false, fmt.Errorf("reselect user: %w", err)
	}
	return user, false, nil
}

// GetApp returns the registration for provider.
func (r *SocialRepository) GetApp(ctx context.Context, provider string) (app *domain.SocialApp, err error) {
	ctx, end := database.TraceQuery(ctx, "GetSocialApp", querySocialApp)
	defer func() { end(err) }()

	app, err = scanSocialApp(r.db.QueryRow(ctx, querySocialApp, provider))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, missingApp(provider)
		}
		return nil, fmt.Errorf("select social app: %w", err)
	}
	return app, nil
}

// UpsertApp creates or refreshes the registration for app.Provider.
func (r *SocialRepository) UpsertApp(ctx context.Context, app *domain.SocialApp) (err error) {
	ctx, end := database.TraceQuery(ctx, "UpsertSocialApp", queryUpsertSocialApp)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, queryUpsertSocialApp, app.Provider, app.Name, app.ClientID, app.Secret).
		Scan(&app.ID, &app.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert social app: %w", err)
	}
	return nil
}

func missingApp(provider string) error {
	return apperrors.Misconfigured(fmt.Sprintf("social app for provider %q is not configured", provider))
}

func scanSocialAccount(row pgx.Row) (*domain.SocialAccount, error) {
	var a domain.SocialAccount
	if err := row.Scan(&a.ID, &a.UserID, &a.Provider, &a.UID, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanSocialApp(row pgx.Row) (*domain.SocialApp, error) {
	var a domain.SocialApp
	if err := row.Scan(&a.ID, &a.Provider, &a.Name, &a.ClientID, &a.Secret, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
