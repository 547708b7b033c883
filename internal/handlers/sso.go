package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/charlesng35/exteriorcrm/internal/auth"
	"github.com/charlesng35/exteriorcrm/internal/auth/providers"
	appErrors "github.com/charlesng35/exteriorcrm/pkg/errors"
	"github.com/charlesng35/exteriorcrm/pkg/logger"
	"github.com/charlesng35/exteriorcrm/pkg/response"
)

const (
	defaultSSORedirect      = "/dashboard"
	ssoRegistrationRedirect = "/complete-registration"
	ssoFailureRedirect      = "/login"
)

// SSOHandler manages the OpenID Connect login and callback flow.
type SSOHandler struct {
	manager *iauth.SSOManager
	appURL  string
}

// NewSSOHandler constructs an SSOHandler. appURL prefixes the relative
// redirect targets when the frontend is served from another origin.
func NewSSOHandler(manager *iauth.SSOManager, appURL string) *SSOHandler {
	return &SSOHandler{manager: manager, appURL: strings.TrimRight(strings.TrimSpace(appURL), "/")}
}

// GET /api/auth/oidc/login
func (h *SSOHandler) Login(c *gin.Context) {
	if !h.manager.Enabled() {
		response.Error(c, appErrors.ErrNotFound.WithMessage("Single sign-on is not configured"))
		return
	}

	redirectURL, err := h.manager.Begin(requestContext(c), sanitizeRedirect(c.Query("next"), defaultSSORedirect))
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	c.Redirect(http.StatusFound, redirectURL)
}

// GET /api/auth/callback
func (h *SSOHandler) Callback(c *gin.Context) {
	result, err := h.manager.Complete(requestContext(c), c.Query("state"), providers.CallbackRequest{
		Code:  c.Query("code"),
		Error: c.Query("error"),
	}, sessionMetadata(c))
	if err != nil {
		h.redirectWithError(c, err)
		return
	}

	target := sanitizeRedirect(c.Query("next"), sanitizeRedirect(result.ReturnURL, defaultSSORedirect))
	if !result.HasMembership {
		target = ssoRegistrationRedirect
	}

	c.Redirect(http.StatusSeeOther, h.absolute(appendTokens(target, result.Tokens)))
}

func (h *SSOHandler) redirectWithError(c *gin.Context, err error) {
	code := "sso_failed"
	switch {
	case errors.Is(err, iauth.ErrStateInvalid):
		code = "sso_state"
	case errors.Is(err, iauth.ErrSSOEmailUnverified), errors.Is(err, iauth.ErrSSOEmailRequired):
		code = "sso_email"
	}
	logger.WithModule("auth").Warn("oidc callback failed", zap.String("reason", code), zap.Error(err))

	target := url.URL{Path: ssoFailureRedirect, RawQuery: url.Values{"error": {code}}.Encode()}
	c.Redirect(http.StatusSeeOther, h.absolute(target.String()))
}

func (h *SSOHandler) absolute(path string) string {
	if h.appURL == "" {
		return path
	}
	return h.appURL + path
}

// sanitizeRedirect accepts only same-site relative paths.
func sanitizeRedirect(input, fallback string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return fallback
	}

	if strings.ContainsAny(trimmed, "\r\n\\") {
		return fallback
	}

	if strings.HasPrefix(trimmed, "/") && !strings.HasPrefix(trimmed, "//") {
		return trimmed
	}

	return fallback
}

// appendTokens places the token pair in the URL fragment so it never reaches server logs.
func appendTokens(redirect string, tokens iauth.TokenPair) string {
	parsed, err := url.Parse(redirect)
	if err != nil {
		parsed = &url.URL{Path: defaultSSORedirect}
	}

	fragment := url.Values{}
	fragment.Set("access_token", tokens.AccessToken)
	fragment.Set("refresh_token", tokens.RefreshToken)
	parsed.Fragment = ""
	parsed.RawFragment = ""
	return parsed.String() + "#" + fragment.Encode()
}
