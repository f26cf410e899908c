package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	apperrors "kintai/internal/errors"
	"kintai/internal/model"
	"kintai/internal/repository"
)

const (
	// DefaultBcryptCost matches bcrypt.DefaultCost.
	DefaultBcryptCost = 10
	maxUserIDLength   = 64
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes = 72
)

// CredentialStore manages users and their password hashes.
type CredentialStore interface {
	CreateUser(ctx context.Context, id, plaintext string, isAdmin bool, firstName, lastName *string) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	// VerifyCredentials fails closed; an unknown user and a wrong password
	// look the same to the caller.
	VerifyCredentials(ctx context.Context, id, plaintext string) (*model.User, bool)
	UpdatePassword(ctx context.Context, id, oldPlaintext, newPlaintext string) error
	ListUsers(ctx context.Context) ([]model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type credentialStore struct {
	repo repository.UserRepository
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewCredentialStore creates a bcrypt-backed credential store.
func NewCredentialStore(repo repository.UserRepository, cost int) CredentialStore {
	if cost < bcrypt.MinCost {
		cost = DefaultBcryptCost
	}
	return &credentialStore{repo: repo, cost: cost}
}

func (s *credentialStore) CreateUser(ctx context.Context, id, plaintext string, isAdmin bool, firstName, lastName *string) (*model.User, error) {
	if id == "" || utf8.RuneCountInString(id) > maxUserIDLength {
		return nil, fmt.Errorf("%w: id must be 1-%d characters", apperrors.ErrValidation, maxUserIDLength)
	}
	if err := validatePassword(plaintext); err != nil {
		return nil, err
	}

	hash, err := s.hash(plaintext)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           id,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		IsAdmin:      isAdmin,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *credentialStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *credentialStore) VerifyCredentials(ctx context.Context, id, plaintext string) (*model.User, bool) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		// Burn the same time as a real comparison.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(plaintext))
		return nil, false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(plaintext)); err != nil {
		return nil, false
	}
	return user, true
}

func (s *credentialStore) UpdatePassword(ctx context.Context, id, oldPlaintext, newPlaintext string) error {
	user, ok := s.VerifyCredentials(ctx, id, oldPlaintext)
	if !ok {
		return apperrors.ErrAuthentication
	}
	if err := validatePassword(newPlaintext); err != nil {
		return err
	}
	hash, err := s.hash(newPlaintext)
	if err != nil {
		return err
	}
	return s.repo.UpdatePasswordHash(ctx, id, user.PasswordHash, hash)
}

func (s *credentialStore) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.List(ctx)
}

func (s *credentialStore) DeleteUser(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *credentialStore) hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrHashFailure, err)
	}
	return string(hashed), nil
}

func (s *credentialStore) dummy() []byte {
	s.dummyOnce.Do(func() {
		// A fresh random secret so the dummy can never match real input.
		secret, err := GeneratePassword(24)
		if err != nil {
			secret = "kintai-dummy-credential"
		}
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	})
	return s.dummyHash
}

func validatePassword(plaintext string) error {
	switch {
	case plaintext == "":
		return fmt.Errorf("%w: password is required", apperrors.ErrValidation)
	case len(plaintext) > maxPasswordBytes:
		return fmt.Errorf("%w: password longer than %d bytes", apperrors.ErrValidation, maxPasswordBytes)
	}
	return nil
}

// ErrPasswordLength is returned by GeneratePassword for a non-positive length.
var ErrPasswordLength = errors.New("password length must be positive")

// GeneratePassword returns a random URL-safe secret of n characters.
func GeneratePassword(n int) (string, error) {
	if n <= 0 {
		return "", ErrPasswordLength
	}
	buf := make([]byte, base64.RawURLEncoding.DecodedLen(n)+1)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:n], nil
}
