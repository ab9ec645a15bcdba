// Package jwttest mints Swiftel session tokens for tests.
package jwttest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// Issuer signs tokens the way the backend does.
type Issuer struct {
	priv *rsa.PrivateKey
	ttl  time.Duration
	now  func() time.Time
}

// NewIssuer generates a throwaway RSA key.
func NewIssuer(t testing.TB) *Issuer {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return &Issuer{priv: priv, ttl: time.Hour, now: time.Now}
}

// WithTTL returns a copy of the issuer using ttl for new tokens. A negative
// ttl produces already-expired tokens.
func (i *Issuer) WithTTL(ttl time.Duration) *Issuer {
	cp := *i
	cp.ttl = ttl
	return &cp
}

// PublicKey exposes the verification key.
func (i *Issuer) PublicKey() *rsa.PublicKey {
	return &i.priv.PublicKey
}

// PublicKeyPEM encodes the verification key as a PKIX PEM block.
func (i *Issuer) PublicKeyPEM(t testing.TB) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&i.priv.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

// Mint returns a signed token for the given identity. role may be empty.
func (i *Issuer) Mint(t testing.TB, id int64, username, role string) string {
	t.Helper()
	now := i.now()
	claims := jwt.MapClaims{
		"id":       id,
		"username": username,
		"jti":      ulid.Make().String(),
		"iat":      now.Unix(),
		"exp":      now.Add(i.ttl).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	return i.Sign(t, claims)
}

// Sign signs arbitrary claims, for tokens missing required fields.
func (i *Issuer) Sign(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := tok.SignedString(i.priv)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// Encode builds an unsigned token with the given raw JSON payload; the
// result decodes only with signature checks disabled.
func Encode(payload string) string {
	enc := base64.RawURLEncoding
	header := enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	return header + "." + enc.EncodeToString([]byte(payload)) + ".c2ln"
}
