package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/straye-as/scorecard-api/internal/config"
	"github.com/straye-as/scorecard-api/internal/domain"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrMissingHandle = errors.New("token missing user handle")
	ErrNoSecret      = errors.New("jwt signing secret not configured")
)

// Claims are the bearer token claims. Handle falls back to preferred_username
// and then sub.
type Claims struct {
	Handle            string `json:"handle,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Name              string `json:"name,omitempty"`
	Email             string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTValidator validates HS256 bearer tokens
type JWTValidator struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

// NewJWTValidator creates a new JWT validator
func NewJWTValidator(cfg *config.AuthConfig) *JWTValidator {
	return &JWTValidator{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		leeway:   cfg.ClockSkewDuration(),
		now:      time.Now,
	}
}

// ValidateToken validates a token and returns the caller's context
func (v *JWTValidator) ValidateToken(tokenString string) (*UserContext, error) {
	if len(v.secret) == 0 {
		return nil, ErrNoSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	handle := firstNonEmpty(claims.Handle, claims.PreferredUsername, claims.Subject)
	id := domain.NewIdentity(handle)
	if id.IsZero() {
		return nil, ErrMissingHandle
	}

	return &UserContext{
		Handle:      id,
		DisplayName: firstNonEmpty(claims.Name, handle),
		Email:       claims.Email,
		Method:      AuthMethodJWT,
	}, nil
}

// IssueToken signs a token for handle valid for ttl. Used by tooling and tests.
func (v *JWTValidator) IssueToken(handle, name string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrNoSecret
	}
	now := v.now()
	claims := Claims{
		Handle: handle,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   handle,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
