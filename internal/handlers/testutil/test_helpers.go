package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/exteriorcrm/internal/api"
	"github.com/charlesng35/exteriorcrm/internal/app"
	iauth "github.com/charlesng35/exteriorcrm/internal/auth"
	"github.com/charlesng35/exteriorcrm/internal/auth/providers"
	"github.com/charlesng35/exteriorcrm/internal/cache"
	sharedtestutil "github.com/charlesng35/exteriorcrm/internal/database/testutil"
	"github.com/charlesng35/exteriorcrm/internal/handlers"
	"github.com/charlesng35/exteriorcrm/internal/middleware"
	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/pkg/crypto"
	"github.com/charlesng35/exteriorcrm/pkg/response"
)

// DefaultPassword is the password given to every seeded account.
const DefaultPassword = "correct-horse-battery"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	JWT      *iauth.JWTService
	Sessions *iauth.SessionService
	Config   *app.Config
}

// Option adjusts the environment before the router is built.
type Option func(*envOptions)

type envOptions struct {
	configure   []func(*app.Config)
	rateStore   middleware.RateStore
	cachePinger handlers.Pinger
	sso         providers.Provider
}

// WithConfig mutates the test configuration.
func WithConfig(fn func(*app.Config)) Option {
	return func(o *envOptions) {
		o.configure = append(o.configure, fn)
	}
}

// WithRateStore enables rate limiting backed by store.
func WithRateStore(store middleware.RateStore) Option {
	return func(o *envOptions) {
		o.rateStore = store
	}
}

// WithCachePinger makes /health probe the given cache backend.
func WithCachePinger(p handlers.Pinger) Option {
	return func(o *envOptions) {
		o.cachePinger = p
	}
}

// WithSSOProvider enables OIDC sign-in against provider.
func WithSSOProvider(provider providers.Provider) Option {
	return func(o *envOptions) {
		o.sso = provider
	}
}

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
func NewEnv(t *testing.T, opts ...Option) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	options := envOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	cfg := &app.Config{
		Server: app.ServerConfig{
			Environment: app.EnvironmentDevelopment,
			RateLimit: app.RateLimitConfig{
				APIRequests:  100,
				AuthRequests: 20,
				Window:       time.Minute,
			},
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
			Session: app.SessionSettings{
				RefreshTTL:    24 * time.Hour,
				RefreshLength: 48,
			},
		},
		Email: app.EmailConfig{
			AppBaseURL: "https://app.example.com",
		},
		Invitations: app.InvitationConfig{
			Expiry:     7 * 24 * time.Hour,
			TokenBytes: 32,
		},
		Organizations: app.OrganizationConfig{
			TrialPeriod: 14 * 24 * time.Hour,
		},
	}
	for _, fn := range options.configure {
		fn(cfg)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	sessionSvc, err := iauth.NewSessionService(db, jwtSvc, cfg.Auth.SessionServiceConfig())
	require.NoError(t, err)

	var sso *iauth.SSOManager
	if options.sso != nil {
		states, err := iauth.NewStateStore(cache.NewDatabaseStore(db), 0, nil)
		require.NoError(t, err)
		sso, err = iauth.NewSSOManager(db, options.sso, states, sessionSvc)
		require.NoError(t, err)
	}

	router, err := api.NewRouter(api.Dependencies{
		DB:          db,
		Config:      cfg,
		JWT:         jwtSvc,
		Sessions:    sessionSvc,
		RateStore:   options.rateStore,
		CachePinger: options.cachePinger,
		SSO:         sso,
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		JWT:      jwtSvc,
		Sessions: sessionSvc,
		Config:   cfg,
	}
}

// CreateOrganization inserts an active organization with a random slug suffix.
func (e *Env) CreateOrganization(name string) *models.Organization {
	e.T.Helper()

	org := &models.Organization{
		Name:     name,
		Slug:     "org-" + uuid.NewString()[:8],
		Status:   models.OrganizationStatusActive,
		Settings: datatypes.JSONMap{},
	}
	require.NoError(e.T, e.DB.Create(org).Error)
	return org
}

// CreateAccount inserts an account without any membership.
func (e *Env) CreateAccount(email string) *models.Account {
	e.T.Helper()

	hashed, err := crypto.HashPassword(DefaultPassword)
	require.NoError(e.T, err)

	account := &models.Account{
		Email:        email,
		PasswordHash: hashed,
		FirstName:    "Test",
		LastName:     "Account",
	}
	require.NoError(e.T, e.DB.Create(account).Error)
	return account
}

// Member is a seeded account together with its membership.
type Member struct {
	Account *models.Account
	User    *models.User
}

// CreateMember inserts an account with an active membership in org and makes
// org the account's current organization.
func (e *Env) CreateMember(org *models.Organization, email string, role models.UserRole) Member {
	e.T.Helper()

	account := e.CreateAccount(email)
	return Member{Account: account, User: e.AddMembership(account, org, role)}
}

// AddMembership gives an existing account an active membership in org.
func (e *Env) AddMembership(account *models.Account, org *models.Organization, role models.UserRole) *models.User {
	e.T.Helper()

	user := &models.User{
		AccountID:      account.ID,
		OrganizationID: org.ID,
		Email:          account.Email,
		FirstName:      "Member",
		LastName:       string(role),
		Role:           role,
		Status:         models.UserStatusActive,
		IsAdmin:        role == models.RoleOwner,
		Permissions:    []string{},
	}
	user.RefreshDisplayName()
	require.NoError(e.T, e.DB.Create(user).Error)

	require.NoError(e.T, e.DB.Model(account).Update("current_organization_id", org.ID).Error)
	account.CurrentOrganizationID = &org.ID
	return user
}

// TokenPair mirrors the token payload returned by auth endpoints.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// AccountPayload captures the account fields returned from auth endpoints.
type AccountPayload struct {
	ID                    string  `json:"id"`
	Email                 string  `json:"email"`
	FirstName             string  `json:"first_name"`
	LastName              string  `json:"last_name"`
	CurrentOrganizationID *string `json:"current_organization_id"`
}

// LoginResult bundles the JSON response from POST /api/auth/login.
type LoginResult struct {
	Tokens  TokenPair      `json:"tokens"`
	Account AccountPayload `json:"account"`
}

// Login authenticates with the default password and returns the issued tokens.
func (e *Env) Login(email string) LoginResult {
	e.T.Helper()

	payload := map[string]string{
		"email":    email,
		"password": DefaultPassword,
	}

	w := e.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Tokens.AccessToken)
	require.NotEmpty(e.T, result.Tokens.RefreshToken)
	require.Greater(e.T, result.Tokens.ExpiresIn, 0)

	return result
}

// Token logs in as email and returns only the access token.
func (e *Env) Token(email string) string {
	e.T.Helper()
	return e.Login(email).Tokens.AccessToken
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// DecodeData checks for a successful envelope and decodes its data into T.
func DecodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	resp := DecodeResponse(t, w)
	require.True(t, resp.Success, w.Body.String())
	var out T
	DecodeInto(t, resp.Data, &out)
	return out
}

// RequireError asserts an error envelope with the given status and code.
func RequireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) APIResponse {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	if code != "" {
		require.Equal(t, code, resp.Error.Code)
	}
	return resp
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// ErrorFields returns details.fields from an error envelope.
func ErrorFields(t *testing.T, resp APIResponse) []string {
	t.Helper()
	require.NotNil(t, resp.Error)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok, "error details missing")
	raw, ok := details["fields"].([]any)
	require.True(t, ok, "details.fields missing")

	fields := make([]string, 0, len(raw))
	for _, field := range raw {
		fields = append(fields, field.(string))
	}
	return fields
}
