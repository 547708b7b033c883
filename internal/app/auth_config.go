package app

import (
	"strings"

	"github.com/charlesng35/exteriorcrm/internal/auth"
	"github.com/charlesng35/exteriorcrm/internal/auth/providers"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// SessionServiceConfig converts AuthConfig into SessionService parameters.
func (c AuthConfig) SessionServiceConfig() auth.SessionConfig {
	ttl := c.Session.RefreshTTL
	if ttl <= 0 {
		ttl = auth.DefaultRefreshTokenTTL
	}

	length := c.Session.RefreshLength
	if length <= 0 {
		length = 48
	}

	return auth.SessionConfig{
		RefreshTokenTTL: ttl,
		RefreshLength:   length,
	}
}

// OIDCProviderConfig converts the OIDC settings for the provider package.
// ok is false when single sign-on is disabled.
func (c AuthConfig) OIDCProviderConfig() (cfg providers.OIDCConfig, ok bool) {
	if !c.OIDC.Enabled {
		return providers.OIDCConfig{}, false
	}
	scopes := make([]string, 0, len(c.OIDC.Scopes))
	for _, scope := range c.OIDC.Scopes {
		if scope = strings.TrimSpace(scope); scope != "" {
			scopes = append(scopes, scope)
		}
	}
	return providers.OIDCConfig{
		Issuer:       strings.TrimSpace(c.OIDC.Issuer),
		ClientID:     strings.TrimSpace(c.OIDC.ClientID),
		ClientSecret: c.OIDC.ClientSecret,
		RedirectURL:  strings.TrimSpace(c.OIDC.RedirectURL),
		Scopes:       scopes,
	}, true
}
