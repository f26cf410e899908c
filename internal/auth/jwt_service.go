package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"kintai/internal/config"
	apperrors "kintai/internal/errors"
)

const bearerScheme = "bearer"

// Claims carries the identity bound into a token. Admin is a snapshot taken
// at issuance; a later promotion or demotion is not reflected until expiry.
type Claims struct {
	User  string `json:"user"`
	Admin bool   `json:"admin"`
	jwt.RegisteredClaims
}

// Token is the login response shape.
type Token struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenService issues and validates HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenService creates a token service from the process configuration.
func NewTokenService(cfg *config.Config) *TokenService {
	return NewTokenServiceWithClock(cfg, time.Now)
}

// NewTokenServiceWithClock is NewTokenService with an injectable clock.
func NewTokenServiceWithClock(cfg *config.Config, now func() time.Time) *TokenService {
	if now == nil {
		now = time.Now
	}
	return &TokenService{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
		now:    now,
		// Expiry is checked against s.now below rather than the package clock.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for identity valid from iat until iat+TTL. Claims carry
// whole seconds, so iat is now rounded up to the next second.
func (s *TokenService) Issue(identity string, isAdmin bool) (Token, error) {
	issuedAt := ceilSecond(s.now())
	expiresAt := issuedAt.Add(s.ttl)
	claims := &Claims{
		User:  identity,
		Admin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", apperrors.ErrSigningFailure, err)
	}
	return Token{Token: signed, TokenType: bearerScheme, ExpiresAt: expiresAt}, nil
}

// Verify checks an Authorization header value of the form "Bearer <token>".
// Every failure returns nil, false without saying why.
func (s *TokenService) Verify(header string) (*Claims, bool) {
	raw, ok := bearerToken(header)
	if !ok {
		return nil, false
	}

	claims := &Claims{}
	token, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	if claims.User == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, false
	}
	if s.now().After(claims.ExpiresAt.Time) {
		return nil, false
	}
	return claims, true
}

func ceilSecond(t time.Time) time.Time {
	whole := t.Truncate(time.Second)
	if whole.Equal(t) {
		return whole
	}
	return whole.Add(time.Second)
}

func bearerToken(header string) (string, bool) {
	scheme, raw, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, " \t") {
		return "", false
	}
	return raw, true
}
