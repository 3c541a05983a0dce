package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MinCodeHub/todak-BE/internal/domain"
	"github.com/MinCodeHub/todak-BE/internal/service"
	apperrors "github.com/MinCodeHub/todak-BE/pkg/errors"
	"github.com/MinCodeHub/todak-BE/pkg/httputil"
	"github.com/MinCodeHub/todak-BE/pkg/middleware"
	"github.com/MinCodeHub/todak-BE/pkg/validator"
)

// UserHandler handles HTTP requests for the authenticated user's profile.
type UserHandler struct {
	service *service.AccountService
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.AccountService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// ProfileRequest carries the additional-info fields. Absent fields are nil.
type ProfileRequest struct {
	Nickname  *string `json:"nickname" validate:"omitempty,max=50"`
	Phone     *string `json:"phone" validate:"omitempty,phone"`
	BirthDate *string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Gender    *string `json:"gender" validate:"omitempty,oneof=male female other"`
}

// update converts the request into a domain update. Only the fields present
// in the body change; PUT and PATCH differ in routing, not in effect. An empty
// birth_date clears the stored date. The request must already be validated.
func (p ProfileRequest) update() domain.ProfileUpdate {
	upd := domain.ProfileUpdate{
		Nickname: p.Nickname,
		Phone:    p.Phone,
		Gender:   p.Gender,
	}
	if p.BirthDate != nil {
		var birth *time.Time
		if t, err := time.Parse(domain.BirthDateLayout, *p.BirthDate); err == nil {
			birth = &t
		}
		upd.BirthDate = &birth
	}
	return upd
}

// ProfileResponse is the additional-info view of a user.
type ProfileResponse struct {
	Nickname  string  `json:"nickname"`
	Phone     string  `json:"phone"`
	BirthDate *string `json:"birth_date"`
	Gender    string  `json:"gender"`
}

func newProfileResponse(u *domain.User) ProfileResponse {
	resp := ProfileResponse{
		Nickname: u.Nickname,
		Phone:    u.Phone,
		Gender:   u.Gender,
	}
	if u.BirthDate != nil {
		s := u.BirthDate.Format(domain.BirthDateLayout)
		resp.BirthDate = &s
	}
	return resp
}

// UpdateProfile handles PUT and PATCH /api/accounts/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == 0 {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication credentials were not provided"), h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req ProfileRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, req.update())
	if err != nil {
		httputil.WriteError(w, r, fmt.Errorf("update profile: %w", err), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, newProfileResponse(user))
}
