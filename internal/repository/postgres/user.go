package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MinCodeHub/todak-BE/internal/domain"
	"github.com/MinCodeHub/todak-BE/pkg/database"
	apperrors "github.com/MinCodeHub/todak-BE/pkg/errors"
)

const userColumns = `id, email, username, password_hash, nickname, phone, birth_date, gender, is_active, created_at, updated_at`

const (
	queryInsertUser = `
		INSERT INTO users (email, username, password_hash, nickname, phone, birth_date, gender, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	queryUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	queryUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	queryLoginCandidate = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1 AND password_hash <> '' AND is_active
		ORDER BY id
		LIMIT 1`

	queryUpdateProfile = `
		UPDATE users
		SET nickname = $1, phone = $2, birth_date = $3, gender = $4, updated_at = $5
		WHERE id = $6`
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateUser", queryInsertUser)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, queryInsertUser,
		u.Email,
		u.Username,
		u.PasswordHash,
		u.Nickname,
		u.Phone,
		u.BirthDate,
		u.Gender,
		u.IsActive,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "users_email_key") {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (u *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, "GetUserByID", queryUserByID)
	defer func() { end(err) }()

	u, err = scanUser(r.db.QueryRow(ctx, queryUserByID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("user", strconv.FormatInt(id, 10))
	}
	return u, err
}

// GetLoginCandidate returns the user a username/password login is checked
// against. Usernames are not unique, so the oldest account wins.
func (r *UserRepository) GetLoginCandidate(ctx context.Context, username string) (u *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, "GetLoginCandidate", queryLoginCandidate)
	defer func() { end(err) }()

	u, err = scanUser(r.db.QueryRow(ctx, queryLoginCandidate, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	return u, err
}

// UpdateProfile writes the additional-info fields of u.
func (r *UserRepository) UpdateProfile(ctx context.Context, u *domain.User) (err error) {
	ctx, end := database.TraceQuery(ctx, "UpdateUserProfile", queryUpdateProfile)
	defer func() { end(err) }()

	u.UpdatedAt = time.Now().UTC()

	ct, err := r.db.Exec(ctx, queryUpdateProfile,
		u.Nickname,
		u.Phone,
		u.BirthDate,
		u.Gender,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", strconv.FormatInt(u.ID, 10))
	}

	return nil
}

// scanUser scans a single row selected with userColumns. pgx.ErrNoRows is
// returned unwrapped so callers can map it.
func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.Nickname,
		&u.Phone,
		&u.BirthDate,
		&u.Gender,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}
