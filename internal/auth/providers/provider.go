package providers

import "context"

// BeginAuthRequest captures the values required to start an external sign-in.
type BeginAuthRequest struct {
	State         string
	Nonce         string
	PKCEChallenge string
	Prompt        string
}

// BeginAuthResponse contains the redirect information required to continue the external auth flow.
type BeginAuthResponse struct {
	RedirectURL string
	State       string
}

// CallbackRequest carries the values returned to the redirect URL.
type CallbackRequest struct {
	Code          string
	Error         string
	PKCEVerifier  string
	ExpectedNonce string
}

// Identity represents the claims returned from an external authentication provider.
type Identity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	DisplayName   string
	RawClaims     map[string]any
}

// Provider defines the behaviour required for an interactive external authentication provider.
type Provider interface {
	Begin(ctx context.Context, req BeginAuthRequest) (*BeginAuthResponse, error)
	Callback(ctx context.Context, req CallbackRequest) (*Identity, error)
}
