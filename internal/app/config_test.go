package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/exteriorcrm/internal/auth"
	"github.com/charlesng35/exteriorcrm/pkg/mail"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.True(t, cfg.Server.IsDevelopment())
	require.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORS.AllowedOrigins)
	require.Equal(t, 50, cfg.Server.RateLimit.APIRequests)
	require.Equal(t, 5, cfg.Server.RateLimit.AuthRequests)
	require.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.RLS)
	require.Equal(t, "crm_tenant", cfg.Database.RLSRole)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)
	require.Equal(t, 3306, cfg.Database.MySQL.Port)

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "redis.example.com:6380", cfg.Cache.Redis.Address)
	require.Equal(t, 2, cfg.Cache.Redis.DB)
	require.Equal(t, 3*time.Second, cfg.Cache.Redis.Timeout)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "exteriorcrm", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 1440*time.Hour, cfg.Auth.Session.RefreshTTL)
	require.Equal(t, 64, cfg.Auth.Session.RefreshLength)
	require.True(t, cfg.Auth.OIDC.Enabled)
	require.Equal(t, []string{"openid", "profile", "email"}, cfg.Auth.OIDC.Scopes)
	require.Equal(t, 10*time.Minute, cfg.Auth.OIDC.StateTTL)

	require.True(t, cfg.Email.Enabled)
	require.Equal(t, mail.ProviderResend, cfg.Email.Provider)
	require.Equal(t, "https://app.example.com", cfg.Email.AppBaseURL)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.True(t, cfg.Email.SMTP.UseTLS)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)
	require.Equal(t, "re_test", cfg.Email.Resend.APIKey)

	require.Equal(t, 72*time.Hour, cfg.Invitations.Expiry)
	require.Equal(t, 24, cfg.Invitations.TokenBytes)
	require.Equal(t, 720*time.Hour, cfg.Organizations.TrialPeriod)
	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, 30, cfg.Maintenance.AuditRetentionDays)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.False(t, cfg.Server.IsDevelopment())
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 100, cfg.Server.RateLimit.APIRequests)
	require.Equal(t, time.Minute, cfg.Server.RateLimit.Window)
	require.Equal(t, 7*24*time.Hour, cfg.Invitations.Expiry)
	require.Equal(t, 14*24*time.Hour, cfg.Organizations.TrialPeriod)
	require.Equal(t, 90, cfg.Maintenance.AuditRetentionDays)
}

func TestLoadConfigEnvironmentOverride(t *testing.T) {
	t.Setenv("EXTERIORCRM_SERVER_PORT", "7070")
	t.Setenv("EXTERIORCRM_AUTH_JWT_SECRET", "from-env")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "from-env", cfg.Auth.JWT.Secret)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := Config{
		Auth: AuthConfig{
			JWT: JWTSettings{
				Secret: "secret",
				Issuer: "issuer",
				TTL:    30 * time.Minute,
			},
			Session: SessionSettings{
				RefreshTTL:    10 * time.Hour,
				RefreshLength: 32,
			},
			OIDC: OIDCSettings{
				Enabled:     true,
				Issuer:      " https://id.example.com ",
				ClientID:    "crm",
				RedirectURL: "https://api.example.com/callback",
				Scopes:      []string{"openid", " ", "email"},
			},
		},
	}

	jwtCfg := cfg.Auth.JWTServiceConfig()
	require.Equal(t, auth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		AccessTokenTTL: 30 * time.Minute,
	}, jwtCfg)

	sessionCfg := cfg.Auth.SessionServiceConfig()
	require.Equal(t, auth.SessionConfig{
		RefreshTokenTTL: 10 * time.Hour,
		RefreshLength:   32,
	}, sessionCfg)

	oidcCfg, ok := cfg.Auth.OIDCProviderConfig()
	require.True(t, ok)
	require.Equal(t, "https://id.example.com", oidcCfg.Issuer)
	require.Equal(t, []string{"openid", "email"}, oidcCfg.Scopes)
}

func TestAuthConfigAdaptersFallback(t *testing.T) {
	var cfg AuthConfig

	jwtCfg := cfg.JWTServiceConfig()
	require.Equal(t, auth.DefaultAccessTokenTTL, jwtCfg.AccessTokenTTL)

	sessionCfg := cfg.SessionServiceConfig()
	require.Equal(t, auth.DefaultRefreshTokenTTL, sessionCfg.RefreshTokenTTL)
	require.Equal(t, 48, sessionCfg.RefreshLength)

	_, ok := cfg.OIDCProviderConfig()
	require.False(t, ok)
}

func TestEmailConfigAdapter(t *testing.T) {
	cfg := EmailConfig{
		Enabled:  true,
		Provider: mail.ProviderSMTP,
		From:     "no-reply@example.com",
		SMTP: SMTPConfig{
			Host:     "smtp.example.com",
			Port:     2525,
			Username: "user",
			Password: "pass",
			UseTLS:   true,
			Timeout:  10 * time.Second,
		},
		Resend: ResendConfig{APIKey: "re_key"},
	}

	settings := cfg.MailSettings()
	require.True(t, settings.Enabled)
	require.Equal(t, mail.ProviderSMTP, settings.Provider)
	require.Equal(t, "smtp.example.com", settings.SMTP.Host)
	require.Equal(t, 2525, settings.SMTP.Port)
	require.Equal(t, "user", settings.SMTP.Username)
	require.True(t, settings.SMTP.UseTLS)
	require.Equal(t, 10*time.Second, settings.SMTP.Timeout)
	require.Equal(t, "re_key", settings.Resend.APIKey)
	require.Equal(t, "no-reply@example.com", settings.Resend.From)
}

func TestCacheConfigAdapter(t *testing.T) {
	cfg := CacheConfig{Redis: RedisCacheConfig{Address: " localhost:6379 ", DB: 3, Timeout: time.Second}}

	redisCfg := cfg.RedisClientConfig()
	require.Equal(t, "localhost:6379", redisCfg.Address)
	require.Equal(t, 3, redisCfg.DB)
	require.Equal(t, time.Second, redisCfg.Timeout)
}
