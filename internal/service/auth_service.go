package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"kintai/internal/auth"
	apperrors "kintai/internal/errors"
	"kintai/internal/logging"
	"kintai/internal/metrics"
)

// AuthService handles authentication operations.
type AuthService interface {
	Login(ctx context.Context, id, password string) (auth.Token, error)
	// Authenticate resolves an Authorization header to claims. Every failure
	// is ErrAuthentication.
	Authenticate(ctx context.Context, header string) (*auth.Claims, error)
	Logout(ctx context.Context, claims *auth.Claims) error
}

type authService struct {
	credentials CredentialStore
	tokens      *auth.TokenService
	tokenStore  auth.TokenStoreInterface
	log         *zap.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(credentials CredentialStore, tokens *auth.TokenService, tokenStore auth.TokenStoreInterface, log *zap.Logger) AuthService {
	return &authService{
		credentials: credentials,
		tokens:      tokens,
		tokenStore:  tokenStore,
		log:         logging.OrNop(log),
	}
}

// Login verifies credentials and issues a session token.
func (s *authService) Login(ctx context.Context, id, password string) (auth.Token, error) {
	user, ok := s.credentials.VerifyCredentials(ctx, id, password)
	if !ok {
		metrics.ObserveAuth("login", metrics.OutcomeInvalid)
		return auth.Token{}, apperrors.ErrAuthentication
	}

	token, err := s.tokens.Issue(user.ID, user.IsAdmin)
	if err != nil {
		metrics.ObserveAuth("login", metrics.OutcomeError)
		return auth.Token{}, err
	}

	metrics.ObserveAuth("login", metrics.OutcomeOK)
	s.log.Info("user logged in", zap.String("user", user.ID), zap.Bool("admin", user.IsAdmin))
	return token, nil
}

func (s *authService) Authenticate(ctx context.Context, header string) (*auth.Claims, error) {
	claims, ok := s.tokens.Verify(header)
	if !ok {
		metrics.ObserveAuth("token", metrics.OutcomeInvalid)
		return nil, apperrors.ErrAuthentication
	}
	if claims.ID != "" && s.tokenStore.IsRevoked(ctx, claims.ID) {
		metrics.ObserveAuth("token", metrics.OutcomeForbidden)
		return nil, apperrors.ErrAuthentication
	}
	metrics.ObserveAuth("token", metrics.OutcomeOK)
	return claims, nil
}

// Logout revokes the token until it would have expired. Revocation is
// best-effort: a failed write is logged and the call still succeeds.
func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return apperrors.ErrAuthentication
	}
	// Tokens stay valid through their exp second.
	ttl := time.Until(claims.ExpiresAt.Time) + time.Second
	if err := s.tokenStore.Revoke(ctx, claims.ID, ttl); err != nil {
		s.log.Warn("token revocation failed", zap.String("user", claims.User), zap.Error(err))
		return nil
	}
	s.log.Info("user logged out", zap.String("user", claims.User))
	return nil
}
