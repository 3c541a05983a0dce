package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/MinCodeHub/todak-BE/pkg/errors"
	"github.com/MinCodeHub/todak-BE/pkg/httputil"
	"github.com/MinCodeHub/todak-BE/pkg/logger"
)

type contextKeyType string

const claimsKey contextKeyType = "claims"

// Authorization schemes accepted by Auth. "Token" carries a static API key,
// "Bearer" carries a signed access token.
const (
	SchemeBearer = "Bearer"
	SchemeToken  = "Token"
)

// Claims identifies the caller behind a validated credential.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Scheme string `json:"-"`
}

// Credential is the parsed Authorization header.
type Credential struct {
	Scheme string
	Value  string
}

// TokenValidator resolves a credential to the caller's claims. Any error is
// reported to the client as 401.
type TokenValidator func(ctx context.Context, cred Credential) (*Claims, error)

// Auth validates the Authorization header and stores the caller's claims in
// the request context. The request-scoped logger is rebuilt so later log lines
// carry user_id.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred, ok := parseAuthorization(r.Header.Get("Authorization"))
			if !ok {
				msg := "invalid authorization header format"
				if r.Header.Get("Authorization") == "" {
					msg = "authentication credentials were not provided"
				}
				httputil.WriteError(w, r, apperrors.Unauthorized(msg), nil)
				return
			}

			claims, err := validate(r.Context(), cred)
			if err != nil {
				logger.FromContext(r.Context()).DebugContext(r.Context(), "credential rejected",
					slog.String("scheme", cred.Scheme),
					slog.String("error", err.Error()),
				)
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid or expired token"), nil)
				return
			}
			claims.Scheme = cred.Scheme

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = logger.WithUserID(ctx, claims.UserID)
			ctx = logger.NewContext(ctx, logger.FromContext(r.Context()).With(slog.Int64("user_id", claims.UserID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseAuthorization(header string) (Credential, bool) {
	scheme, value, ok := strings.Cut(strings.TrimSpace(header), " ")
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return Credential{}, false
	}
	switch {
	case strings.EqualFold(scheme, SchemeBearer):
		return Credential{Scheme: SchemeBearer, Value: value}, true
	case strings.EqualFold(scheme, SchemeToken):
		return Credential{Scheme: SchemeToken, Value: value}, true
	default:
		return Credential{}, false
	}
}

// ClaimsFromContext returns the claims stored by Auth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}

// UserIDFromContext returns the authenticated account id, or 0 when the
// request did not pass through Auth.
func UserIDFromContext(ctx context.Context) int64 {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.UserID
	}
	return 0
}
