package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sigilauth/sigil/internal/auth/domain"
	"github.com/sigilauth/sigil/internal/auth/store"
	"github.com/sigilauth/sigil/pkg/cryptox"
	"github.com/sigilauth/sigil/pkg/idx"
	"github.com/sigilauth/sigil/pkg/slogx"
)

var ErrBootstrapFailedToCreateAdmin = errors.New("failed to create admin user")

// BootstrapService seeds the very first user so a fresh deployment has
// something to log in with. It only ever acts on an empty user table.
type BootstrapService struct {
	Users store.Users
}

// IsBootstrapped reports whether at least one user exists.
func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Users.IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// SeedAdmin creates the initial admin user with the given credentials and
// scopes. It is a no-op when any user already exists, so it is safe to run
// on every startup.
func (s *BootstrapService) SeedAdmin(
	ctx context.Context,
	username, password, preferredName string,
	scopes []string,
) (string, error) {
	l := slogx.FromContext(ctx)

	bootstrapped, err := s.IsBootstrapped(ctx)
	if err != nil {
		return "", err
	}
	if bootstrapped {
		return "", nil
	}

	passHash, err := cryptox.HashPassword(password)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return "", ErrBootstrapFailedToCreateAdmin
	}

	adminUserID := idx.New().String()
	err = s.Users.CreateUser(ctx, domain.User{
		ID:            adminUserID,
		Username:      username,
		PreferredName: preferredName,
		PasswordHash:  passHash,
		Scopes:        scopes,
	})
	if err != nil {
		// A concurrent replica may have won the race; that still counts
		// as bootstrapped.
		if errors.Is(err, store.ErrAlreadyExists) {
			return "", nil
		}
		l.Error("failed to create admin user",
			slog.String("admin_user_id", adminUserID),
			slog.Any("error", err),
		)
		return "", ErrBootstrapFailedToCreateAdmin
	}

	l.Info("seeded initial admin user",
		slog.String("admin_user_id", adminUserID),
		slog.String("username", username),
	)
	return adminUserID, nil
}
