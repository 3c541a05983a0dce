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
	queryInsertAuthToken = `
		INSERT INTO auth_tokens (key, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING key, user_id, created_at`

	queryAuthTokenByUser = `SELECT key, user_id, created_at FROM auth_tokens WHERE user_id = $1`

	queryAuthTokenByKey = `
		SELECT t.key, t.user_id, t.created_at
		FROM auth_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.key = $1 AND u.is_active`
)

// AuthTokenRepository implements repository.AuthTokenRepository using PostgreSQL.
type AuthTokenRepository struct {
	db     database.DBTX
	newKey func() (string, error)
}

// NewAuthTokenRepository creates a new PostgreSQL-backed auth token repository.
func NewAuthTokenRepository(db database.DBTX) *AuthTokenRepository {
	return &AuthTokenRepository{db: db, newKey: domain.NewAuthTokenKey}
}

// GetOrCreate returns the key of userID, inserting a fresh one if the user
// has none yet.
func (r *AuthTokenRepository) GetOrCreate(ctx context.Context, userID int64) (tok *domain.AuthToken, created bool, err error) {
	ctx, end := database.TraceQuery(ctx, "GetOrCreateAuthToken", queryInsertAuthToken)
	defer func() { end(err) }()

	key, err := r.newKey()
	if err != nil {
		return nil, false, err
	}

	tok, err = scanAuthToken(r.db.QueryRow(ctx, queryInsertAuthToken, key, userID))
	if err == nil {
		return tok, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("insert auth token: %w", err)
	}

	tok, err = scanAuthToken(r.db.QueryRow(ctx, queryAuthTokenByUser, userID))
	if err != nil {
		return nil, false, fmt.Errorf("select auth token: %w", err)
	}
	return tok, false, nil
}

// GetByKey returns the token with key if it belongs to an active user.
func (r *AuthTokenRepository) GetByKey(ctx context.Context, key string) (tok *domain.AuthToken, err error) {
	ctx, end := database.TraceQuery(ctx, "GetAuthTokenByKey", queryAuthTokenByKey)
	defer func() { end(err) }()

	tok, err = scanAuthToken(r.db.QueryRow(ctx, queryAuthTokenByKey, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("select auth token: %w", err)
	}
	return tok, nil
}

func scanAuthToken(row pgx.Row) (*domain.AuthToken, error) {
	var t domain.AuthToken
	if err := row.Scan(&t.Key, &t.UserID, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
