package service

import (
	"context"
	"errors"

	"github.com/sigilauth/sigil/internal/auth/domain"
	"github.com/sigilauth/sigil/internal/auth/store"
	"github.com/sigilauth/sigil/pkg/cryptox"
)

type UserService struct {
	Users store.Users
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Users.GetUserByID(ctx, userID)
}

// UpdatePreferredName changes the display name shown in issued tokens.
// Already-issued tokens keep the old name until they are refreshed.
func (s *UserService) UpdatePreferredName(ctx context.Context, userID, preferredName string) error {
	return s.Users.UpdatePreferredName(ctx, userID, preferredName)
}

// ChangePassword verifies the current password before setting a new one.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	u, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if err := cryptox.VerifyPassword(currentPassword, u.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	newHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Users.UpdatePasswordHash(ctx, userID, newHash)
}
