// Package auth verifies the bearer tokens issued by the identity service.
// The planning API only needs to know who is acting; it never issues tokens
// to end users.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/infrastructure/config"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrMissingSubject   = errors.New("missing subject in claims")
)

// Claims are the claims the planning API reads from a token
type Claims struct {
	jwt.RegisteredClaims
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// Actor is the identity recorded on batch activity: the email when present,
// then the username, then the subject.
func (c *Claims) Actor() string {
	switch {
	case c.Email != "":
		return c.Email
	case c.Username != "":
		return c.Username
	default:
		return c.Subject
	}
}

// HasRole reports whether the token carries role
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// JWTVerifier validates HS256 tokens signed with the shared secret
type JWTVerifier struct {
	secret []byte
	issuer string
}

// NewJWTVerifier creates a verifier from configuration
func NewJWTVerifier(cfg config.JWTConfig) *JWTVerifier {
	return &JWTVerifier{secret: []byte(cfg.Secret), issuer: cfg.Issuer}
}

// Validate parses tokenString and checks signature, expiry and issuer
func (v *JWTVerifier) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, ErrInvalidClaims
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}

// IssueInput describes a token to sign
type IssueInput struct {
	Subject  string
	Username string
	Email    string
	Roles    []string
	TTL      time.Duration
}

// Issue signs a token the verifier accepts. Used by the seed tooling and tests
// in place of the identity service.
func (v *JWTVerifier) Issue(in IssueInput) (string, error) {
	now := time.Now()
	ttl := in.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    v.issuer,
			Subject:   in.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: in.Username,
		Email:    in.Email,
		Roles:    in.Roles,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
