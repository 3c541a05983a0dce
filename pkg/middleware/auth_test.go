package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MinCodeHub/todak-BE/pkg/logger"
)

func staticValidator(t *testing.T, want Credential, claims *Claims) TokenValidator {
	t.Helper()
	return func(_ context.Context, cred Credential) (*Claims, error) {
		if cred != want {
			return nil, errors.New("unknown credential")
		}
		return claims, nil
	}
}

func TestAuth_AcceptsBothSchemes(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   Credential
	}{
		{"bearer", "Bearer access.jwt.value", Credential{Scheme: SchemeBearer, Value: "access.jwt.value"}},
		{"bearer lowercase", "bearer access.jwt.value", Credential{Scheme: SchemeBearer, Value: "access.jwt.value"}},
		{"token", "Token 9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b", Credential{Scheme: SchemeToken, Value: "9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got *Claims
			h := Auth(staticValidator(t, tc.want, &Claims{UserID: 11}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = ClaimsFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodPatch, "/profile", nil)
			req.Header.Set("Authorization", tc.header)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			require.Equal(t, http.StatusNoContent, rr.Code)
			require.NotNil(t, got)
			assert.Equal(t, int64(11), got.UserID)
			assert.Equal(t, tc.want.Scheme, got.Scheme)
		})
	}
}

func TestAuth_RejectsBadHeaders(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing", "", "authentication credentials were not provided"},
		{"unknown scheme", "Basic dXNlcjpwYXNz", "invalid authorization header format"},
		{"no value", "Bearer ", "invalid authorization header format"},
		{"rejected by validator", "Token deadbeef", "invalid or expired token"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			h := Auth(staticValidator(t, Credential{Scheme: SchemeToken, Value: "good"}, &Claims{UserID: 1}))(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

			req := httptest.NewRequest(http.MethodPut, "/profile", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)

			var body struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
			assert.Equal(t, tc.message, body.Error.Message)
		})
	}
}

func TestAuth_EnrichesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := logger.NewWithWriter("test-svc", "info", &buf)

	h := RequestLogger(base)(Auth(staticValidator(t, Credential{Scheme: SchemeBearer, Value: "jwt"}, &Claims{UserID: 99}))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Info("inside")
			id, ok := logger.UserIDFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, int64(99), id)
		})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer jwt")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, float64(99), out["user_id"])
}

func TestUserIDFromContext_Unauthenticated(t *testing.T) {
	assert.Zero(t, UserIDFromContext(context.Background()))
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)
}
