package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/MinCodeHub/todak-BE/internal/auth"
	"github.com/MinCodeHub/todak-BE/internal/domain"
	"github.com/MinCodeHub/todak-BE/internal/event"
	"github.com/MinCodeHub/todak-BE/internal/repository"
	apperrors "github.com/MinCodeHub/todak-BE/pkg/errors"
	"github.com/MinCodeHub/todak-BE/pkg/logger"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// msgInvalidCredentials is returned for every failed password login, whatever
// the reason.
const msgInvalidCredentials = "Unable to log in with provided credentials."

// EventPublisher publishes account events. Callers log failures and carry on.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User, method string) error
	PublishUserUpdated(ctx context.Context, user *domain.User) error
	PublishSocialLinked(ctx context.Context, account *domain.SocialAccount) error
}

// AccountService implements local registration, password login and profile
// maintenance.
type AccountService struct {
	userRepo   repository.UserRepository
	tokenRepo  repository.AuthTokenRepository
	jwtManager *auth.JWTManager
	producer   EventPublisher
	logger     *slog.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(
	userRepo repository.UserRepository,
	tokenRepo repository.AuthTokenRepository,
	jwtManager *auth.JWTManager,
	producer EventPublisher,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtManager: jwtManager,
		producer:   producer,
		logger:     logger,
	}
}

// RegisterInput holds the basic information collected in registration step one.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// LoginResult is the outcome of a password login.
type LoginResult struct {
	Token *domain.AuthToken
	User  *domain.User
}

// RegisterStep1 creates an account with a password. The profile is filled in
// by RegisterStep2.
func (s *AccountService) RegisterStep1(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if input.Username == "" {
		return nil, apperrors.InvalidInput("username is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: string(hashedPassword),
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.producer.PublishUserRegistered(ctx, user, event.MethodPassword); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to publish user.registered event",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.log(ctx).InfoContext(ctx, "user registered",
		slog.Int64("user_id", user.ID),
		logger.Email(user.Email),
	)

	return user, nil
}

// RegisterStep2 stores the additional information of an account created by
// RegisterStep1.
func (s *AccountService) RegisterStep2(ctx context.Context, userID int64, upd domain.ProfileUpdate) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for registration: %w", err)
	}
	return s.saveProfile(ctx, user, upd)
}

// UpdateProfile changes the additional information of the authenticated user.
func (s *AccountService) UpdateProfile(ctx context.Context, userID int64, upd domain.ProfileUpdate) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for update: %w", err)
	}
	return s.saveProfile(ctx, user, upd)
}

func (s *AccountService) saveProfile(ctx context.Context, user *domain.User, upd domain.ProfileUpdate) (*domain.User, error) {
	if upd.Gender != nil && *upd.Gender != "" && !domain.IsValidGender(*upd.Gender) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("%q is not a valid gender", *upd.Gender))
	}

	user.Apply(upd)
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("update user profile: %w", err)
	}

	if err := s.producer.PublishUserUpdated(ctx, user); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to publish user.updated event",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.log(ctx).InfoContext(ctx, "user profile updated",
		slog.Int64("user_id", user.ID),
	)

	return user, nil
}

// Login checks username and password and returns the user's static API key,
// creating it on first login.
func (s *AccountService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, apperrors.InvalidInput(msgInvalidCredentials)
	}

	user, err := s.userRepo.GetLoginCandidate(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidInput(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("get login candidate: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.InvalidInput(msgInvalidCredentials)
	}

	token, created, err := s.tokenRepo.GetOrCreate(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("get auth token: %w", err)
	}

	s.log(ctx).InfoContext(ctx, "user logged in",
		slog.Int64("user_id", user.ID),
		logger.Email(user.Email),
		slog.Bool("token_created", created),
	)

	return &LoginResult{Token: token, User: user}, nil
}

// AuthenticateToken resolves a static API key to its active owner.
func (s *AccountService) AuthenticateToken(ctx context.Context, key string) (int64, error) {
	if !domain.IsAuthTokenKey(key) {
		return 0, apperrors.Unauthorized("malformed token")
	}
	tok, err := s.tokenRepo.GetByKey(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("look up auth token: %w", err)
	}
	return s.activeUserID(ctx, tok.UserID)
}

// AuthenticateAccessToken resolves a session access token to its active owner.
func (s *AccountService) AuthenticateAccessToken(ctx context.Context, token string) (int64, error) {
	claims, err := s.jwtManager.ValidateAccessToken(token)
	if err != nil {
		return 0, err
	}
	return s.activeUserID(ctx, claims.UserID)
}

// activeUserID is the check both credential kinds share: a deleted or
// deactivated user cannot authenticate, however the credential was looked up.
func (s *AccountService) activeUserID(ctx context.Context, userID int64) (int64, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, apperrors.Unauthorized("user not found")
		}
		return 0, fmt.Errorf("get user for authentication: %w", err)
	}
	if !user.IsActive {
		return 0, apperrors.Unauthorized("user inactive")
	}
	return user.ID, nil
}

func (s *AccountService) log(ctx context.Context) *slog.Logger {
	return logger.WithContext(ctx, s.logger)
}
