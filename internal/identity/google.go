package identity

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

// GoogleIssuer is the issuer of Google ID tokens.
const GoogleIssuer = "https://accounts.google.com"

// GoogleClaims are the profile claims read from a verified ID token.
type GoogleClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	Picture       string `json:"picture"`
}

// VerifiedEmail is the token's e-mail when Google vouches for it, else "".
func (c *GoogleClaims) VerifiedEmail() string {
	if !c.EmailVerified {
		return ""
	}
	return c.Email
}

// GoogleVerifier checks a Google credential and returns its claims.
type GoogleVerifier interface {
	Verify(ctx context.Context, credential string) (*GoogleClaims, error)
}

// OIDCGoogleVerifier verifies signature, audience, issuer and expiry with go-oidc.
type OIDCGoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier discovers Google's signing keys. Key refreshes run under
// ctx, so it must outlive the verifier; each HTTP request is bounded by timeout.
func NewGoogleVerifier(ctx context.Context, clientID string, timeout time.Duration) (*OIDCGoogleVerifier, error) {
	ctx = oidc.ClientContext(ctx, &http.Client{Timeout: timeout})
	provider, err := oidc.NewProvider(ctx, GoogleIssuer)
	if err != nil {
		return nil, fmt.Errorf("google discovery: %w", err)
	}
	return &OIDCGoogleVerifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// NewGoogleVerifierWithKeys builds a verifier over a fixed key set.
func NewGoogleVerifierWithKeys(issuer, clientID string, keys oidc.KeySet, now func() time.Time) *OIDCGoogleVerifier {
	cfg := &oidc.Config{ClientID: clientID, Now: now}
	return &OIDCGoogleVerifier{verifier: oidc.NewVerifier(issuer, keys, cfg)}
}

func (g *OIDCGoogleVerifier) Verify(ctx context.Context, credential string) (*GoogleClaims, error) {
	tok, err := g.verifier.Verify(ctx, credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGoogleToken, err)
	}
	var c GoogleClaims
	if err := tok.Claims(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGoogleToken, err)
	}
	if c.Subject == "" {
		c.Subject = tok.Subject
	}
	return &c, nil
}
