package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MinCodeHub/todak-BE/internal/auth"
	"github.com/MinCodeHub/todak-BE/internal/domain"
	"github.com/MinCodeHub/todak-BE/internal/google"
	"github.com/MinCodeHub/todak-BE/internal/service"
	apperrors "github.com/MinCodeHub/todak-BE/pkg/errors"
	"github.com/MinCodeHub/todak-BE/pkg/health"
	"github.com/MinCodeHub/todak-BE/pkg/httpclient"
	"github.com/MinCodeHub/todak-BE/pkg/middleware"
)

// --- Mock Repositories ---

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = 1
	}
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetLoginCandidate(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

type mockAuthTokenRepo struct {
	mock.Mock
}

func (m *mockAuthTokenRepo) GetOrCreate(ctx context.Context, userID int64) (*domain.AuthToken, bool, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*domain.AuthToken), args.Bool(1), args.Error(2)
}

func (m *mockAuthTokenRepo) GetByKey(ctx context.Context, key string) (*domain.AuthToken, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthToken), args.Error(1)
}

// memSocialRepo keeps users, links and provider tokens in memory with the
// same find-or-create semantics as the Postgres repository.
type memSocialRepo struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	accounts map[int64]*domain.SocialAccount
	tokens   []domain.SocialToken
	apps     map[string]*domain.SocialApp
	nextID   int64
}

func newMemSocialRepo() *memSocialRepo {
	return &memSocialRepo{
		users:    make(map[string]*domain.User),
		accounts: make(map[int64]*domain.SocialAccount),
		apps: map[string]*domain.SocialApp{
			domain.ProviderGoogle: {ID: 1, Provider: domain.ProviderGoogle, Name: "Google"},
		},
		nextID: 100,
	}
}

func (r *memSocialRepo) Resolve(_ context.Context, identity domain.VerifiedIdentity, provider, providerToken string) (*domain.Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := &domain.Resolution{}
	user, ok := r.users[identity.Email]
	if !ok {
		r.nextID++
		user = &domain.User{ID: r.nextID, Email: identity.Email, Username: domain.UsernameFromEmail(identity.Email), IsActive: true}
		res.AccountCreated = true
	}

	account, ok := r.accounts[user.ID]
	if !ok {
		app, ok := r.apps[provider]
		if !ok {
			return nil, apperrors.Misconfigured(`social app for provider "` + provider + `" is not configured`)
		}
		r.nextID++
		account = &domain.SocialAccount{ID: r.nextID, UserID: user.ID, Provider: provider, UID: identity.Subject}
		r.accounts[user.ID] = account
		r.tokens = append(r.tokens, domain.SocialToken{AppID: app.ID, AccountID: account.ID, Token: providerToken})
		res.LinkCreated = true
	}
	r.users[identity.Email] = user

	res.User = user
	res.Account = account
	return res, nil
}

func (r *memSocialRepo) GetApp(_ context.Context, provider string) (*domain.SocialApp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if app, ok := r.apps[provider]; ok {
		return app, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r *memSocialRepo) UpsertApp(_ context.Context, app *domain.SocialApp) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[app.Provider] = app
	return nil
}

func (r *memSocialRepo) counts() (users, accounts, tokens int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), len(r.accounts), len(r.tokens)
}

type nopPublisher struct{}

func (nopPublisher) PublishUserRegistered(context.Context, *domain.User, string) error { return nil }
func (nopPublisher) PublishUserUpdated(context.Context, *domain.User) error           { return nil }
func (nopPublisher) PublishSocialLinked(context.Context, *domain.SocialAccount) error { return nil }

// --- Fake tokeninfo endpoint ---

type tokenInfoReply struct {
	status int
	body   string
}

type fakeTokenInfo struct {
	mu      sync.Mutex
	calls   int
	replies map[string]tokenInfoReply
}

func (f *fakeTokenInfo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls++
	reply, ok := f.replies[r.URL.Query().Get("id_token")]
	f.mu.Unlock()

	if !ok {
		reply = tokenInfoReply{status: http.StatusBadRequest, body: `{"error":"invalid_token","error_description":"Invalid Value"}`}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.status)
	_, _ = io.WriteString(w, reply.body)
}

func (f *fakeTokenInfo) set(idToken string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[idToken] = tokenInfoReply{status: status, body: body}
}

func (f *fakeTokenInfo) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// --- Fixture ---

type fixture struct {
	users     *mockUserRepo
	tokens    *mockAuthTokenRepo
	social    *memSocialRepo
	jwt       *auth.JWTManager
	accounts  *service.AccountService
	tokenInfo *fakeTokenInfo
	google    *httptest.Server
	router    http.Handler
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := testLogger()

	fx := &fixture{
		users:     new(mockUserRepo),
		tokens:    new(mockAuthTokenRepo),
		social:    newMemSocialRepo(),
		jwt:       auth.NewJWTManager("handler-test-secret", "todak-test", 5*time.Minute, 24*time.Hour),
		tokenInfo: &fakeTokenInfo{replies: make(map[string]tokenInfoReply)},
	}
	fx.google = httptest.NewServer(fx.tokenInfo)
	t.Cleanup(fx.google.Close)

	client := httpclient.New(httpclient.Config{Timeout: 2 * time.Second, MaxConnsPerHost: 4})
	cb := httpclient.NewCircuitBreakerClient(client, httpclient.DefaultCircuitBreakerConfig(t.Name()), logger)
	verifier, err := google.NewVerifier(cb, fx.google.URL, logger)
	require.NoError(t, err)

	fx.accounts = service.NewAccountService(fx.users, fx.tokens, fx.jwt, nopPublisher{}, logger)
	socialSvc := service.NewSocialService(verifier, fx.social, fx.jwt, nopPublisher{}, logger)

	oauthCfg := google.LoginConfig{
		AuthURL:     "https://accounts.google.com/o/oauth2/v2/auth",
		ClientID:    "test-client",
		CallbackURI: "http://localhost:8000/api/accounts/google/callback",
		Scope:       "https://www.googleapis.com/auth/userinfo.email",
	}.OAuthConfig()

	fx.router = NewRouter(fx.accounts, socialSvc, health.NewHandler(), logger, RouterConfig{
		ServiceName: "accounts-test",
		CORS:        middleware.DefaultCORSConfig(),
		GoogleOAuth: oauthCfg,
	})
	return fx
}

func (fx *fixture) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}
