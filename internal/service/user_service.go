package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	apperrors "kintai/internal/errors"
	"kintai/internal/logging"
	"kintai/internal/model"
	"kintai/internal/policy"
)

// GeneratedPasswordLength is the length of passwords created for new users
// when none is supplied.
const GeneratedPasswordLength = 16

// NewUser describes a user to create. An empty Password is generated.
type NewUser struct {
	ID        string
	Password  string
	IsAdmin   bool
	FirstName *string
	LastName  *string
}

// UserService exposes user administration gated by the policy.
type UserService interface {
	Me(ctx context.Context, actor policy.Actor) (*model.User, error)
	ListUsers(ctx context.Context, actor policy.Actor) ([]model.User, error)
	// CreateUser returns the generated password, or "" when one was supplied.
	CreateUser(ctx context.Context, actor policy.Actor, req NewUser) (*model.User, string, error)
	DeleteUser(ctx context.Context, actor policy.Actor, id string) error
	ChangePassword(ctx context.Context, actor policy.Actor, oldPassword, newPassword string) error
}

type userService struct {
	credentials CredentialStore
	log         *zap.Logger
}

// NewUserService builds a UserService on top of the credential store.
func NewUserService(credentials CredentialStore, log *zap.Logger) UserService {
	return &userService{credentials: credentials, log: logging.OrNop(log)}
}

func (s *userService) Me(ctx context.Context, actor policy.Actor) (*model.User, error) {
	user, err := s.credentials.GetUser(ctx, actor.ID)
	if errors.Is(err, apperrors.ErrNotFound) {
		// The token outlived its user.
		return nil, apperrors.ErrAuthentication
	}
	return user, err
}

func (s *userService) ListUsers(ctx context.Context, actor policy.Actor) ([]model.User, error) {
	if !policy.CanManageUsers(actor) {
		return nil, apperrors.ErrForbidden
	}
	return s.credentials.ListUsers(ctx)
}

func (s *userService) CreateUser(ctx context.Context, actor policy.Actor, req NewUser) (*model.User, string, error) {
	if !policy.CanManageUsers(actor) {
		return nil, "", apperrors.ErrForbidden
	}

	password, generated := req.Password, ""
	if password == "" {
		var err error
		if password, err = GeneratePassword(GeneratedPasswordLength); err != nil {
			return nil, "", err
		}
		generated = password
	}

	user, err := s.credentials.CreateUser(ctx, req.ID, password, req.IsAdmin, req.FirstName, req.LastName)
	if err != nil {
		return nil, "", err
	}
	s.log.Info("user created", zap.String("by", actor.ID), zap.String("user", user.ID), zap.Bool("admin", user.IsAdmin))
	return user, generated, nil
}

func (s *userService) DeleteUser(ctx context.Context, actor policy.Actor, id string) error {
	if !policy.CanManageUsers(actor) {
		return apperrors.ErrForbidden
	}
	target, err := s.credentials.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDeleteUser(actor, *target) {
		return apperrors.ErrForbidden
	}
	if err := s.credentials.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.log.Info("user deleted", zap.String("by", actor.ID), zap.String("user", id))
	return nil
}

func (s *userService) ChangePassword(ctx context.Context, actor policy.Actor, oldPassword, newPassword string) error {
	if err := s.credentials.UpdatePassword(ctx, actor.ID, oldPassword, newPassword); err != nil {
		return err
	}
	s.log.Info("password changed", zap.String("user", actor.ID))
	return nil
}
