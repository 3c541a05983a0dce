package http

import (
	"context"
	"mime"
	"net/http"

	"github.com/MinCodeHub/todak-BE/internal/service"
	"github.com/MinCodeHub/todak-BE/pkg/httputil"
	"github.com/MinCodeHub/todak-BE/pkg/middleware"
)

// ContentTypeJSON rejects request bodies declared as anything but JSON. A body
// without a Content-Type header is let through and parsed as JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "" {
			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || mediaType != "application/json" {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// credentialValidator bridges the Auth middleware to the account service:
// "Token" credentials are static API keys, "Bearer" credentials are session
// access tokens.
func credentialValidator(svc *service.AccountService) middleware.TokenValidator {
	return func(ctx context.Context, cred middleware.Credential) (*middleware.Claims, error) {
		var (
			userID int64
			err    error
		)
		switch cred.Scheme {
		case middleware.SchemeToken:
			userID, err = svc.AuthenticateToken(ctx, cred.Value)
		default:
			userID, err = svc.AuthenticateAccessToken(ctx, cred.Value)
		}
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: userID}, nil
	}
}
