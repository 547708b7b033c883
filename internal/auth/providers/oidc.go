package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCConfig describes the relying party registration at the identity provider.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// OIDCOptions configures the behaviour of the OIDC provider implementation.
type OIDCOptions struct {
	HTTPClient *http.Client
	Timeout    time.Duration
}

// OIDCProvider signs accounts in through an OpenID Connect issuer using the
// authorization code flow with PKCE.
type OIDCProvider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	httpClient  *http.Client
	timeout     time.Duration
}

// NewOIDCProvider performs discovery against the issuer and returns a ready provider.
func NewOIDCProvider(ctx context.Context, cfg OIDCConfig, opts OIDCOptions) (*OIDCProvider, error) {
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("oidc provider: issuer is required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("oidc provider: client id is required")
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("oidc provider: client secret is required")
	}
	if strings.TrimSpace(cfg.RedirectURL) == "" {
		return nil, errors.New("oidc provider: redirect url is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	if opts.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, opts.HTTPClient)
	}
	discoveryCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	issuer, err := oidc.NewProvider(discoveryCtx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: discovery failed: %w", err)
	}

	return &OIDCProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     issuer.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		verifier:   issuer.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		httpClient: opts.HTTPClient,
		timeout:    opts.Timeout,
	}, nil
}

func (p *OIDCProvider) Begin(_ context.Context, req BeginAuthRequest) (*BeginAuthResponse, error) {
	if strings.TrimSpace(req.State) == "" {
		return nil, errors.New("oidc provider: state is required")
	}
	if strings.TrimSpace(req.Nonce) == "" {
		return nil, errors.New("oidc provider: nonce is required")
	}
	if strings.TrimSpace(req.PKCEChallenge) == "" {
		return nil, errors.New("oidc provider: pkce challenge is required")
	}

	authOpts := []oauth2.AuthCodeOption{
		oidc.Nonce(req.Nonce),
		oauth2.SetAuthURLParam("code_challenge", req.PKCEChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}
	if req.Prompt != "" {
		authOpts = append(authOpts, oauth2.SetAuthURLParam("prompt", req.Prompt))
	}

	return &BeginAuthResponse{
		RedirectURL: p.oauthConfig.AuthCodeURL(req.State, authOpts...),
		State:       req.State,
	}, nil
}

func (p *OIDCProvider) Callback(ctx context.Context, req CallbackRequest) (*Identity, error) {
	if req.Error != "" {
		return nil, fmt.Errorf("oidc provider: authorization error: %s", req.Error)
	}
	if req.Code == "" {
		return nil, errors.New("oidc provider: authorization code missing")
	}
	if strings.TrimSpace(req.PKCEVerifier) == "" {
		return nil, errors.New("oidc provider: pkce verifier is required")
	}

	if p.httpClient != nil {
		ctx = oidc.ClientContext(ctx, p.httpClient)
	}
	tokenCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	token, err := p.oauthConfig.Exchange(tokenCtx, req.Code, oauth2.VerifierOption(req.PKCEVerifier))
	if err != nil {
		return nil, fmt.Errorf("oidc provider: exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("oidc provider: id token missing")
	}

	idToken, err := p.verifier.Verify(tokenCtx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: verify id token: %w", err)
	}
	if req.ExpectedNonce != "" && idToken.Nonce != req.ExpectedNonce {
		return nil, errors.New("oidc provider: nonce mismatch")
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("oidc provider: decode claims: %w", err)
	}

	return &Identity{
		Provider:      "oidc",
		Subject:       idToken.Subject,
		Email:         strings.ToLower(strings.TrimSpace(stringValue(claims, "email"))),
		EmailVerified: boolValue(claims, "email_verified"),
		FirstName:     stringValue(claims, "given_name"),
		LastName:      stringValue(claims, "family_name"),
		DisplayName:   stringValue(claims, "name"),
		RawClaims:     claims,
	}, nil
}

func stringValue(claims map[string]any, key string) string {
	if v, ok := claims[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func boolValue(claims map[string]any, key string) bool {
	if v, ok := claims[key]; ok {
		switch val := v.(type) {
		case bool:
			return val
		case string:
			return strings.EqualFold(val, "true")
		}
	}
	return false
}
