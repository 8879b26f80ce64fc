package identity

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClientID = "client-123.apps.googleusercontent.com"

func signGoogleToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func baseClaims(now time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            GoogleIssuer,
		"aud":            testClientID,
		"sub":            "1098",
		"email":          "lia@gmail.com",
		"email_verified": true,
		"name":           "Lia",
		"picture":        "https://p/1.png",
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
}

func TestOIDCGoogleVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	now := time.Now()
	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	v := NewGoogleVerifierWithKeys(GoogleIssuer, testClientID, keys, func() time.Time { return now })
	ctx := context.Background()

	c, err := v.Verify(ctx, signGoogleToken(t, key, baseClaims(now)))
	require.NoError(t, err)
	assert.Equal(t, "1098", c.Subject)
	assert.Equal(t, "lia@gmail.com", c.Email)
	assert.Equal(t, "lia@gmail.com", c.VerifiedEmail())
	assert.Equal(t, "Lia", c.Name)

	wrongAud := baseClaims(now)
	wrongAud["aud"] = "someone-else"
	_, err = v.Verify(ctx, signGoogleToken(t, key, wrongAud))
	assert.ErrorIs(t, err, ErrInvalidGoogleToken)

	expired := baseClaims(now.Add(-3 * time.Hour))
	_, err = v.Verify(ctx, signGoogleToken(t, key, expired))
	assert.ErrorIs(t, err, ErrInvalidGoogleToken)

	_, err = v.Verify(ctx, signGoogleToken(t, other, baseClaims(now)))
	assert.ErrorIs(t, err, ErrInvalidGoogleToken)

	_, err = v.Verify(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidGoogleToken)
}
