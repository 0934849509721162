package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims are the claims read from a third-party identity token.
type IdentityClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
}

// Identity is what a verified token says about its holder.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

var ErrInvalidIdentity = errors.New("identity token rejected")

// IdentityVerifier checks HS256 identity tokens signed with a shared secret.
type IdentityVerifier struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewIdentityVerifier(secret, issuer, audience string) *IdentityVerifier {
	return &IdentityVerifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
}

// Verify parses token and returns the identity it carries. Every failure,
// including an unverified email, wraps ErrInvalidIdentity.
func (v *IdentityVerifier) Verify(token string) (*Identity, error) {
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: no identity secret configured", ErrInvalidIdentity)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, &IdentityClaims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}

	claims, ok := parsed.Claims.(*IdentityClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidIdentity
	}
	email := strings.TrimSpace(strings.ToLower(claims.Email))
	if email == "" || !claims.EmailVerified {
		return nil, fmt.Errorf("%w: email missing or unverified", ErrInvalidIdentity)
	}
	return &Identity{Subject: claims.Subject, Email: email, Name: claims.Name}, nil
}

// SignIdentity issues a token Verify accepts. Used by tests and local tooling.
func SignIdentity(secret string, claims IdentityClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
