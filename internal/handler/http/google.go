package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/MinCodeHub/todak-BE/internal/domain"
	"github.com/MinCodeHub/todak-BE/internal/google"
	"github.com/MinCodeHub/todak-BE/internal/service"
	apperrors "github.com/MinCodeHub/todak-BE/pkg/errors"
	"github.com/MinCodeHub/todak-BE/pkg/httputil"
	"github.com/MinCodeHub/todak-BE/pkg/logger"
)

// GoogleHandler handles Google sign-in.
type GoogleHandler struct {
	service *service.SocialService
	oauth   *oauth2.Config
	logger  *slog.Logger
}

// NewGoogleHandler creates a new Google sign-in HTTP handler.
func NewGoogleHandler(svc *service.SocialService, oauth *oauth2.Config, logger *slog.Logger) *GoogleHandler {
	return &GoogleHandler{service: svc, oauth: oauth, logger: logger}
}

// CallbackUser identifies the signed-in account.
type CallbackUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// CallbackResponse is the body of a successful callback.
type CallbackResponse struct {
	User    CallbackUser     `json:"user"`
	Message string           `json:"message"`
	Token   domain.TokenPair `json:"token"`
}

// Login handles GET /api/accounts/google/login
func (h *GoogleHandler) Login(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, google.LoginURL(h.oauth), http.StatusFound)
}

// Callback handles /api/accounts/google/callback. Only POST with a JSON body
// {"id_token": "..."} is accepted. Errors use the flat {"status","message"}
// body.
func (h *GoogleHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteStatus(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	idToken, ok := readIDToken(w, r)
	if !ok {
		httputil.WriteStatus(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	res, err := h.service.GoogleLogin(r.Context(), idToken)
	if err != nil {
		status, message := callbackError(err)
		l := logger.WithContext(r.Context(), h.logger)
		if status >= http.StatusInternalServerError {
			l.ErrorContext(r.Context(), "google callback failed",
				slog.Int("status", status),
				slog.String("error", err.Error()),
			)
		} else {
			l.InfoContext(r.Context(), "google callback rejected",
				slog.Int("status", status),
				slog.String("error", err.Error()),
			)
		}
		httputil.WriteStatus(w, status, message)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, CallbackResponse{
		User:    CallbackUser{ID: res.User.ID, Email: res.User.Email},
		Message: "Login successful",
		Token:   res.Tokens,
	})
}

// readIDToken parses the callback body. It reports false when the body is not
// a JSON object. A missing, null or non-string id_token yields "".
func readIDToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return "", false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return "", false
	}

	return idTokenValue(fields["id_token"]), true
}

// idTokenValue returns the token to verify. Strings are used as they are.
// Other empty values (null, false, 0, [] and {}) count as no token, and any
// other value is forwarded as its JSON text so the provider can reject it.
func idTokenValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
	case float64:
		if t == 0 {
			return ""
		}
	case []any:
		if len(t) == 0 {
			return ""
		}
	case map[string]any:
		if len(t) == 0 {
			return ""
		}
	}
	return string(raw)
}

// callbackError maps a login failure to the callback's status and message.
func callbackError(err error) (int, string) {
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, domain.ErrIDTokenMissing),
		errors.Is(err, domain.ErrInvalidIDToken),
		errors.Is(err, domain.ErrEmailNotInToken):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrMisconfigured) && errors.As(err, &appErr):
		return http.StatusInternalServerError, appErr.Message
	case errors.Is(err, apperrors.ErrUpstream):
		return http.StatusBadGateway, "identity provider unavailable"
	default:
		return http.StatusBadRequest, err.Error()
	}
}
