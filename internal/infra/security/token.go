package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when an internal token fails verification.
var ErrInvalidToken = errors.New("invalid internal token")

// IdentityClaims is the payload of a minted internal token.
//
// For an identity not yet known to the registry only ExtID, Name and
// Email are set. For a registered user ID, Status and optionally Title
// and Role are set instead of ExtID.
type IdentityClaims struct {
	ID     string `json:"id,omitempty"`
	ExtID  string `json:"ext_id,omitempty"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status,omitempty"`
	Title  string `json:"title,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies internal tokens with a fixed validity
// window. Minting is synchronous and CPU-only.
type TokenCodec struct {
	keyProvider KeyProvider
	kid         string
	validity    time.Duration
	now         func() time.Time
}

const defaultTokenValidity = time.Hour

// NewTokenCodec constructs a codec signing with the key registered under kid.
func NewTokenCodec(provider KeyProvider, kid string, validity time.Duration) (*TokenCodec, error) {
	if provider == nil {
		return nil, fmt.Errorf("key provider is required")
	}
	kid = strings.TrimSpace(kid)
	if kid == "" {
		return nil, fmt.Errorf("key id is required")
	}
	if validity <= 0 {
		validity = defaultTokenValidity
	}

	return &TokenCodec{
		keyProvider: provider,
		kid:         kid,
		validity:    validity,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the internal clock for deterministic tests.
func (c *TokenCodec) WithClock(clock func() time.Time) *TokenCodec {
	if clock != nil {
		c.now = clock
	}
	return c
}

// Validity returns the fixed validity window stamped on minted tokens.
func (c *TokenCodec) Validity() time.Duration {
	return c.validity
}

// Mint stamps iat/exp on the claims and signs them. The claims must carry
// a name and an email; minting is all-or-nothing.
func (c *TokenCodec) Mint(claims *IdentityClaims) (string, error) {
	if claims == nil {
		return "", fmt.Errorf("identity claims required")
	}
	if claims.Name == "" || claims.Email == "" {
		return "", fmt.Errorf("identity claims need name and email")
	}

	now := c.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.validity))

	signingKey, err := c.keyProvider.GetSigningKey()
	if err != nil {
		return "", fmt.Errorf("get signing key: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = c.kid

	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Parse verifies a token minted by this codec and returns its claims.
func (c *TokenCodec) Parse(raw string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			kid = c.kid
		}
		return c.keyProvider.GetVerificationKey(kid)
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// GenerateSecureToken returns a base64 URL-safe random string using the
// specified number of random bytes. It is used for session ids and CSRF
// tokens.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
