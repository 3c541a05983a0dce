package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/MinCodeHub/todak-BE/internal/service"
	apperrors "github.com/MinCodeHub/todak-BE/pkg/errors"
	"github.com/MinCodeHub/todak-BE/pkg/httputil"
	"github.com/MinCodeHub/todak-BE/pkg/validator"
)

// maxBodyBytes caps request bodies read by the handlers.
const maxBodyBytes = 1 << 20

// AuthHandler handles registration and password login.
type AuthHandler struct {
	service *service.AccountService
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AccountService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// RegisterStep1Request is the JSON request body of registration step one.
type RegisterStep1Request struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,min=1,max=150"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// RegisterStep2Request is the JSON request body of registration step two.
// UserID accepts a JSON number or a numeric string.
type RegisterStep2Request struct {
	UserID json.Number `json:"user_id"`
	ProfileRequest
}

// LoginRequest is the JSON request body for password login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// --- Response types ---

// RegisterStep1Response is returned once the account exists.
type RegisterStep1Response struct {
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
}

// LoginResponse carries the static API key of the user.
type LoginResponse struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

type legacyError struct {
	Error string `json:"error"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

// --- Handlers ---

// RegisterStep1 handles POST /api/accounts/register/step1
func (h *AuthHandler) RegisterStep1(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req RegisterStep1Request
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, err := h.service.RegisterStep1(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, RegisterStep1Response{
		UserID:  user.ID,
		Message: "Step 1 completed. Proceed to step 2.",
	})
}

// RegisterStep2 handles POST /api/accounts/register/step2
func (h *AuthHandler) RegisterStep2(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req RegisterStep2Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}

	if req.UserID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, legacyError{Error: "No user ID provided."})
		return
	}
	userID, err := req.UserID.Int64()
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, legacyError{Error: "User does not exist."})
		return
	}
	// Zero is never a valid id and counts as absent.
	if userID == 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, legacyError{Error: "No user ID provided."})
		return
	}

	if err := validator.Validate(req.ProfileRequest); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, err := h.service.RegisterStep2(r.Context(), userID, req.ProfileRequest.update())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			httputil.WriteJSON(w, http.StatusBadRequest, legacyError{Error: "User does not exist."})
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, newProfileResponse(user))
}

// Login handles POST /api/accounts/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	res, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:  res.Token.Key,
		UserID: res.User.ID,
		Email:  res.User.Email,
	})
}

// LoginInfo handles GET /api/accounts/login
func (h *AuthHandler) LoginInfo(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, detailResponse{Detail: "This endpoint only accepts POST requests."})
}
