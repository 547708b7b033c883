package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/exteriorcrm/internal/app"
	iauth "github.com/charlesng35/exteriorcrm/internal/auth"
	"github.com/charlesng35/exteriorcrm/internal/cache"
	"github.com/charlesng35/exteriorcrm/internal/handlers"
	"github.com/charlesng35/exteriorcrm/internal/middleware"
	"github.com/charlesng35/exteriorcrm/internal/permissions"
	"github.com/charlesng35/exteriorcrm/internal/services"
	"github.com/charlesng35/exteriorcrm/pkg/mail"
)

// Dependencies carries the shared infrastructure the router wires into
// services and handlers.
type Dependencies struct {
	DB       *gorm.DB
	Config   *app.Config
	JWT      *iauth.JWTService
	Sessions *iauth.SessionService
	// RateStore backs the rate limiter. Nil disables limiting.
	RateStore middleware.RateStore
	// Cache backs organization stats. Defaults to the database store.
	Cache cache.Store
	// CachePinger is checked by /health when a remote cache is in use.
	CachePinger handlers.Pinger
	Mailer      mail.Mailer
	SSO         *iauth.SSOManager
	Audit       *services.AuditService
}

func (d Dependencies) validate() error {
	if d.DB == nil {
		return fmt.Errorf("database handle must be provided")
	}
	if d.JWT == nil {
		return fmt.Errorf("jwt service must be provided")
	}
	if d.Sessions == nil {
		return fmt.Errorf("session service must be provided")
	}
	if d.Config == nil {
		return fmt.Errorf("config must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers the API routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config
	if deps.Cache == nil {
		deps.Cache = cache.NewDatabaseStore(deps.DB)
	}
	if deps.Audit == nil {
		audit, err := services.NewAuditService(deps.DB)
		if err != nil {
			return nil, err
		}
		deps.Audit = audit
	}

	svc, err := newServiceSet(deps)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins...))

	r.GET("/health", handlers.Health(deps.DB, deps.CachePinger))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	window := cfg.Server.RateLimit.Window
	apiLimit := middleware.RateLimit(deps.RateStore, "api", cfg.Server.RateLimit.APIRequests, window)
	authLimit := middleware.RateLimit(deps.RateStore, "auth", cfg.Server.RateLimit.AuthRequests, window)

	checker := permissions.NewChecker()
	requireAuth := middleware.Auth(deps.JWT, deps.Sessions)
	requireMembership := middleware.Membership(svc.memberships)

	// Public endpoints share the tighter auth limit.
	public := r.Group("/api/auth", authLimit)

	// Authenticated endpoints that work before the account joins an organization.
	account := r.Group("/api", apiLimit, requireAuth)

	// Tenant endpoints act on the caller's current organization.
	tenant := r.Group("/api", apiLimit, requireAuth, requireMembership)

	authHandler := handlers.NewAuthHandler(svc.accounts, deps.Sessions)
	appURL := cfg.Email.AppBaseURL
	registerAuthRoutes(public, account, authRouteDeps{
		Auth:         authHandler,
		SSO:          handlers.NewSSOHandler(deps.SSO, appURL),
		Registration: handlers.NewRegistrationHandler(svc.registration),
		Memberships:  handlers.NewMembershipHandler(svc.memberships),
	})

	registerInvitationRoutes(public, account, tenant, handlers.NewInviteHandler(svc.invites, cfg.Server.IsDevelopment()), checker)
	registerProfileRoutes(tenant, handlers.NewProfileHandler(svc.users))
	registerOrganizationRoutes(tenant, handlers.NewOrganizationHandler(svc.organizations), checker)
	registerUserRoutes(tenant, handlers.NewUserHandler(svc.users), checker)
	registerContactRoutes(tenant, handlers.NewContactHandler(svc.contacts), checker)
	registerLeadRoutes(tenant, handlers.NewLeadHandler(svc.leads), checker)
	registerJobRoutes(tenant, handlers.NewJobHandler(svc.jobs), checker)
	registerEstimateRoutes(tenant, handlers.NewEstimateHandler(svc.estimates), checker)
	registerAuditRoutes(tenant, handlers.NewAuditHandler(deps.Audit), checker)

	r.NoRoute(middleware.NotFoundHandler)
	r.NoMethod(middleware.MethodNotAllowedHandler)

	return r, nil
}

type serviceSet struct {
	accounts      *services.AccountService
	registration  *services.RegistrationService
	memberships   *services.MembershipService
	invites       *services.InviteService
	users         *services.UserService
	organizations *services.OrganizationService
	contacts      *services.ContactService
	leads         *services.LeadService
	jobs          *services.JobService
	estimates     *services.EstimateService
}

func newServiceSet(deps Dependencies) (*serviceSet, error) {
	var (
		set serviceSet
		err error
	)
	db, audit, cfg := deps.DB, deps.Audit, deps.Config

	if set.accounts, err = services.NewAccountService(db, deps.Sessions, audit); err != nil {
		return nil, err
	}
	if set.registration, err = services.NewRegistrationService(db, audit,
		services.WithTrialPeriod(cfg.Organizations.TrialPeriod),
	); err != nil {
		return nil, err
	}
	if set.memberships, err = services.NewMembershipService(db, deps.Sessions, audit); err != nil {
		return nil, err
	}
	if set.invites, err = services.NewInviteService(db, deps.Mailer, audit,
		services.WithInviteBaseURL(cfg.Email.AppBaseURL),
		services.WithInviteExpiry(cfg.Invitations.Expiry),
		services.WithInviteTokenSize(cfg.Invitations.TokenBytes),
	); err != nil {
		return nil, err
	}
	if set.users, err = services.NewUserService(db, deps.Sessions, audit); err != nil {
		return nil, err
	}
	if set.organizations, err = services.NewOrganizationService(db, deps.Cache, audit); err != nil {
		return nil, err
	}
	if set.contacts, err = services.NewContactService(db, audit); err != nil {
		return nil, err
	}
	if set.leads, err = services.NewLeadService(db, audit); err != nil {
		return nil, err
	}
	if set.jobs, err = services.NewJobService(db, audit); err != nil {
		return nil, err
	}
	if set.estimates, err = services.NewEstimateService(db, audit); err != nil {
		return nil, err
	}
	return &set, nil
}
