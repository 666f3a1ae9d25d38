package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sigilauth/sigil/internal/auth/store"
	"github.com/sigilauth/sigil/pkg/cryptox"
	"github.com/sigilauth/sigil/pkg/jwtx"
)

// InitSigningKeys builds the KeyManager for the configured storage mode.
//
// In "persistent" mode keys live encrypted in the database, so tokens stay
// verifiable across restarts and rotation honors the grace period. Any other
// value means ephemeral: keys are generated in memory at startup and every
// previously issued token dies with the old process.
func InitSigningKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*jwtx.KeyManager, error) {
	if cfg.MasterKeyPath != "" {
		cryptox.SetMasterKeyPath(cfg.MasterKeyPath)
		logger.Info("master key path configured", "path", cfg.MasterKeyPath)
	}

	if cfg.KeyStorageMode == "persistent" {
		km, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
			Store:       store.NewKeyStoreAdapter(db),
			Algorithm:   cfg.Algorithm,
			Issuer:      cfg.Issuer,
			Audience:    cfg.Audience,
			Leeway:      cfg.Leeway,
			RSABits:     cfg.RSABits,
			GracePeriod: cfg.KeyGracePeriod,
		})
		if err != nil {
			return nil, fmt.Errorf("persistent key manager: %w", err)
		}

		logger.Info("signing keys loaded from store",
			"algorithm", km.Algorithm(),
			"num_keys", km.NumSigners(),
			"issuer", cfg.Issuer,
			"grace_period", cfg.KeyGracePeriod,
		)
		return km, nil
	}

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		Issuer:    cfg.Issuer,
		Audience:  cfg.Audience,
		Leeway:    cfg.Leeway,
		RSABits:   cfg.RSABits,
	})
	if err != nil {
		return nil, fmt.Errorf("ephemeral key manager: %w", err)
	}

	logger.Info("generated ephemeral signing keys",
		"algorithm", km.Algorithm(),
		"num_keys", km.NumSigners(),
		"issuer", cfg.Issuer,
	)
	logger.Warn("tokens issued before this restart are no longer verifiable")

	return km, nil
}
