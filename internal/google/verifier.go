// Package google talks to Google sign-in: it verifies ID tokens against the
// tokeninfo endpoint and builds the authorization redirect.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/MinCodeHub/todak-BE/internal/domain"
	apperrors "github.com/MinCodeHub/todak-BE/pkg/errors"
	"github.com/MinCodeHub/todak-BE/pkg/httpclient"
	"github.com/MinCodeHub/todak-BE/pkg/logger"
)

// DefaultTokenInfoURL is Google's ID token introspection endpoint.
const DefaultTokenInfoURL = "https://www.googleapis.com/oauth2/v3/tokeninfo"

const serviceName = "google tokeninfo"

// getter is the part of httpclient.CircuitBreakerClient the verifier needs.
type getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// tokenInfo is the subset of the tokeninfo response that is used.
type tokenInfo struct {
	Email string `json:"email"`
	Sub   string `json:"sub"`
}

// Verifier checks ID tokens with a single call to the tokeninfo endpoint.
// It never retries.
type Verifier struct {
	client   getter
	endpoint *url.URL
	logger   *slog.Logger
}

// NewVerifier creates a verifier calling endpoint through client.
func NewVerifier(client getter, endpoint string, logger *slog.Logger) (*Verifier, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse tokeninfo url: %w", err)
	}
	return &Verifier{client: client, endpoint: u, logger: logger}, nil
}

// Verify exchanges idToken for the identity it asserts.
//
// Errors:
//   - domain.ErrIDTokenMissing for an empty token, without calling Google
//   - domain.ErrInvalidIDToken for any non-200 answer
//   - domain.ErrEmailNotInToken for a 200 answer without an email
//   - a 502 AppError when Google cannot be reached or the breaker is open
func (v *Verifier) Verify(ctx context.Context, idToken string) (domain.VerifiedIdentity, error) {
	if idToken == "" {
		return domain.VerifiedIdentity{}, domain.ErrIDTokenMissing
	}

	resp, err := v.client.Get(ctx, v.requestURL(idToken))
	if err != nil {
		return domain.VerifiedIdentity{}, apperrors.BadGateway("identity provider unavailable", err)
	}

	if resp.StatusCode != http.StatusOK {
		rerr := httpclient.ParseResponseError(resp, serviceName)
		logger.WithContext(ctx, v.logger).InfoContext(ctx, "id token rejected",
			slog.Int("status", rerr.Status),
			slog.String("reason", rerr.Error()),
		)
		return domain.VerifiedIdentity{}, domain.ErrInvalidIDToken
	}
	defer func() { _ = resp.Body.Close() }()

	var info tokenInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return domain.VerifiedIdentity{}, apperrors.BadGateway("identity provider unavailable",
			fmt.Errorf("decode %s response: %w", serviceName, err))
	}
	if info.Email == "" {
		return domain.VerifiedIdentity{}, domain.ErrEmailNotInToken
	}

	logger.WithContext(ctx, v.logger).DebugContext(ctx, "id token verified", logger.Email(info.Email))
	return domain.VerifiedIdentity{Email: info.Email, Subject: info.Sub}, nil
}

func (v *Verifier) requestURL(idToken string) string {
	u := *v.endpoint
	q := u.Query()
	q.Set("id_token", idToken)
	u.RawQuery = q.Encode()
	return u.String()
}
