package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/exteriorcrm/internal/api"
	"github.com/charlesng35/exteriorcrm/internal/app"
	"github.com/charlesng35/exteriorcrm/internal/app/maintenance"
	iauth "github.com/charlesng35/exteriorcrm/internal/auth"
	"github.com/charlesng35/exteriorcrm/internal/auth/providers"
	"github.com/charlesng35/exteriorcrm/internal/cache"
	"github.com/charlesng35/exteriorcrm/internal/database"
	"github.com/charlesng35/exteriorcrm/internal/middleware"
	"github.com/charlesng35/exteriorcrm/internal/services"
	"github.com/charlesng35/exteriorcrm/pkg/logger"
	"github.com/charlesng35/exteriorcrm/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Redis      *cache.RedisStore
	Cache      cache.Store
	SessionSvc *iauth.SessionService
	AuditSvc   *services.AuditService
	Cleaner    *maintenance.Cleaner
	RateStore  middleware.RateStore
	Router     *gin.Engine

	cancelRate context.CancelFunc
}

// bootstrapRuntime initialises databases, caches, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Database.RLS {
		if err := database.EnableRowLevelSecurity(stack.DB, cfg.Database.RLSRole); err != nil {
			return nil, fmt.Errorf("enable row level security: %w", err)
		}
		if err := stack.DB.Use(&database.Tenancy{Role: cfg.Database.RLSRole}); err != nil {
			return nil, fmt.Errorf("register tenancy plugin: %w", err)
		}
		log.Info("row level security enabled", zap.String("role", cfg.Database.RLSRole))
	}

	dbStore := cache.NewDatabaseStore(stack.DB)
	stack.Cache = dbStore

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(err))
			stack.Redis = nil
		} else {
			stack.Cache = stack.Redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	sessionCfg := cfg.Auth.SessionServiceConfig()
	sessionCfg.Cache = iauth.NewSessionCache(stack.Cache)

	stack.SessionSvc, err = iauth.NewSessionService(stack.DB, jwtSvc, sessionCfg)
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	stack.AuditSvc, err = services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	mailer, err := mail.New(cfg.Email.MailSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}

	sso, err := initialiseSSO(ctx, cfg, stack, log)
	if err != nil {
		return nil, err
	}

	if cfg.Maintenance.Enabled {
		invites, err := services.NewInviteService(stack.DB, mailer, stack.AuditSvc)
		if err != nil {
			return nil, fmt.Errorf("initialise invite service: %w", err)
		}
		estimates, err := services.NewEstimateService(stack.DB, stack.AuditSvc)
		if err != nil {
			return nil, fmt.Errorf("initialise estimate service: %w", err)
		}

		stack.Cleaner = maintenance.NewCleaner(maintenance.Dependencies{
			Sessions:    stack.SessionSvc,
			Invitations: invites,
			Estimates:   estimates,
			Audit:       stack.AuditSvc,
			Cache:       dbStore,
		}, maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays))
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	switch {
	case stack.Redis != nil:
		stack.RateStore = middleware.NewStoreRateStore(stack.Redis)
	case cfg.Cache.Redis.Enabled:
		// Redis is configured but unreachable.
		stack.RateStore = middleware.NewStoreRateStore(dbStore)
	default:
		rateCtx, cancel := context.WithCancel(context.Background())
		stack.cancelRate = cancel
		stack.RateStore = middleware.NewMemoryRateStore(rateCtx)
	}

	deps := api.Dependencies{
		DB:        stack.DB,
		Config:    cfg,
		JWT:       jwtSvc,
		Sessions:  stack.SessionSvc,
		RateStore: stack.RateStore,
		Cache:     stack.Cache,
		Mailer:    mailer,
		SSO:       sso,
		Audit:     stack.AuditSvc,
	}
	if stack.Redis != nil {
		deps.CachePinger = stack.Redis
	}

	stack.Router, err = api.NewRouter(deps)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// initialiseSSO discovers the OIDC provider when single sign-on is enabled.
// A nil manager disables the OIDC routes.
func initialiseSSO(ctx context.Context, cfg *app.Config, stack *runtimeStack, log *zap.Logger) (*iauth.SSOManager, error) {
	oidcCfg, ok := cfg.Auth.OIDCProviderConfig()
	if !ok {
		return nil, nil
	}

	provider, err := providers.NewOIDCProvider(ctx, oidcCfg, providers.OIDCOptions{})
	if err != nil {
		return nil, fmt.Errorf("initialise oidc provider: %w", err)
	}

	states, err := iauth.NewStateStore(stack.Cache, cfg.Auth.OIDC.StateTTL, nil)
	if err != nil {
		return nil, fmt.Errorf("initialise sso state store: %w", err)
	}

	manager, err := iauth.NewSSOManager(stack.DB, provider, states, stack.SessionSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise sso manager: %w", err)
	}

	log.Info("oidc sign-in enabled", zap.String("issuer", oidcCfg.Issuer))
	return manager, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		select {
		case <-s.Cleaner.Stop().Done():
		case <-time.After(shutdownTimeout):
			log.Warn("maintenance jobs still running at shutdown")
		}
		if _, err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
		s.Cleaner = nil
	}

	if s.cancelRate != nil {
		s.cancelRate()
		s.cancelRate = nil
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
		s.Redis = nil
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
		s.DB = nil
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
