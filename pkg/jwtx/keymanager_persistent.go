package jwtx

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sigilauth/sigil/pkg/cryptox"
	"github.com/sigilauth/sigil/pkg/idx"
)

const defaultGracePeriod = 30 * 24 * time.Hour

// SigningKeyRecord is the storable form of a signing key. It mirrors the
// domain type so jwtx stays free of domain imports.
type SigningKeyRecord struct {
	ID                  string
	Kid                 string
	Algorithm           string
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	RetiredAt           *time.Time
	ExpiresAt           time.Time
}

// KeyStore is the slice of persistence the key manager needs.
type KeyStore interface {
	// ListAllSigningKeys returns every key, retired and expired included,
	// so verification covers the grace period.
	ListAllSigningKeys(ctx context.Context) ([]SigningKeyRecord, error)

	// ListActiveSigningKeys returns only keys eligible for signing.
	ListActiveSigningKeys(ctx context.Context) ([]SigningKeyRecord, error)

	// CreateSigningKey persists a key with its encrypted private material.
	CreateSigningKey(ctx context.Context, key SigningKeyRecord) error
}

// PersistentKeyManagerOptions configures a database-backed KeyManager.
type PersistentKeyManagerOptions struct {
	// Store holds the persisted signing keys.
	Store KeyStore

	// Algorithm applies to newly generated keys. Loaded keys keep the
	// algorithm they were stored with.
	Algorithm string

	// Issuer is matched against the iss claim of verified tokens.
	Issuer string

	// Audience values matched against aud. Empty disables the check.
	Audience []string

	// Leeway tolerates clock skew on exp/nbf.
	Leeway time.Duration

	// Clock supplies "now" to the verifier. Nil means time.Now.
	Clock Clock

	// RSABits sets the RS256 key size for new keys. Zero means 4096.
	RSABits int

	// GracePeriod is how long a retired key keeps verifying tokens.
	// Zero means 30 days.
	GracePeriod time.Duration
}

// NewPersistentKeyManager builds a KeyManager from keys stored in the
// database. Keys survive restarts and rotation leaves old tokens verifiable
// through the grace period.
//
// Every stored key, retired or not, lands in the KeySet for verification.
// Only active keys go into the signing list, newest first. An empty store
// gets an initial key generated and persisted on the spot.
func NewPersistentKeyManager(ctx context.Context, opts PersistentKeyManagerOptions) (*KeyManager, error) {
	if opts.Store == nil {
		return nil, errors.New("jwtx: Store is required for persistent key manager")
	}
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = defaultGracePeriod
	}

	allKeys, err := opts.Store.ListAllSigningKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("jwtx: load keys: %w", err)
	}

	keyset := NewKeySet()
	for _, rec := range allKeys {
		signer, err := decryptSigner(rec)
		if err != nil {
			return nil, err
		}
		if err := keyset.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("jwtx: register key %s: %w", rec.Kid, err)
		}
	}

	activeKeys, err := opts.Store.ListActiveSigningKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("jwtx: load active keys: %w", err)
	}

	// The newest key signs, so order matters here.
	sort.Slice(activeKeys, func(i, j int) bool {
		return activeKeys[i].CreatedAt.After(activeKeys[j].CreatedAt)
	})

	signers := make([]Signer, 0, len(activeKeys))
	for _, rec := range activeKeys {
		signer, err := decryptSigner(rec)
		if err != nil {
			return nil, err
		}
		signers = append(signers, signer)
	}

	// First boot against an empty table: mint and persist the initial key.
	if len(signers) == 0 {
		rec, signer, err := GenerateSigningKeyRecord(opts.Algorithm, opts.RSABits, opts.GracePeriod, time.Now())
		if err != nil {
			return nil, err
		}
		if err := opts.Store.CreateSigningKey(ctx, rec); err != nil {
			return nil, fmt.Errorf("jwtx: store initial key: %w", err)
		}
		if err := keyset.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("jwtx: register initial key: %w", err)
		}
		signers = append(signers, signer)
	}

	verifier, err := newVerifier(KeyManagerOptions{
		Algorithm: opts.Algorithm,
		Issuer:    opts.Issuer,
		Audience:  opts.Audience,
		Leeway:    opts.Leeway,
		Clock:     opts.Clock,
	}, keyset)
	if err != nil {
		return nil, err
	}

	return &KeyManager{
		Verifier:  verifier,
		KeySet:    keyset,
		algorithm: opts.Algorithm,
		signers:   signers,
	}, nil
}

// GenerateSigningKeyRecord mints a fresh key pair, encrypts the private half
// for storage, and returns the storable record alongside a ready signer.
// The caller persists the record and installs the signer.
func GenerateSigningKeyRecord(algorithm string, rsaBits int, gracePeriod time.Duration, now time.Time) (SigningKeyRecord, Signer, error) {
	kid, err := randomKeyID()
	if err != nil {
		return SigningKeyRecord{}, nil, err
	}

	pemData, err := generateKeyPEM(algorithm, rsaBits)
	if err != nil {
		return SigningKeyRecord{}, nil, fmt.Errorf("jwtx: generate key: %w", err)
	}

	signer, err := signerFromPEM(algorithm, kid, pemData)
	if err != nil {
		return SigningKeyRecord{}, nil, err
	}

	encrypted, err := cryptox.EncryptPrivateKey(pemData)
	if err != nil {
		return SigningKeyRecord{}, nil, fmt.Errorf("jwtx: encrypt key: %w", err)
	}

	return SigningKeyRecord{
		ID:                  idx.New().String(),
		Kid:                 kid,
		Algorithm:           algorithm,
		PrivateKeyEncrypted: encrypted,
		CreatedAt:           now,
		ExpiresAt:           now.Add(gracePeriod), // extended when retired
	}, signer, nil
}

func decryptSigner(rec SigningKeyRecord) (Signer, error) {
	pemData, err := cryptox.DecryptPrivateKey(rec.PrivateKeyEncrypted)
	if err != nil {
		return nil, fmt.Errorf("jwtx: decrypt key %s: %w", rec.Kid, err)
	}

	signer, err := signerFromPEM(rec.Algorithm, rec.Kid, pemData)
	if err != nil {
		return nil, fmt.Errorf("jwtx: signer for key %s: %w", rec.Kid, err)
	}
	return signer, nil
}

func signerFromPEM(algorithm, kid string, pemData []byte) (Signer, error) {
	switch algorithm {
	case AlgorithmRS256:
		return NewSignerRS256(kid, pemData)
	case AlgorithmES256:
		return NewSignerES256(kid, pemData)
	case AlgorithmEdDSA:
		return NewSignerEdDSA(kid, pemData)
	}
	return nil, fmt.Errorf("unsupported algorithm %q", algorithm)
}

func generateKeyPEM(algorithm string, rsaBits int) ([]byte, error) {
	switch algorithm {
	case AlgorithmRS256:
		if rsaBits == 0 {
			rsaBits = defaultRSABits
		}
		return cryptox.GenerateRSAKey(rsaBits)
	case AlgorithmES256:
		return cryptox.GenerateES256Key()
	case AlgorithmEdDSA:
		return cryptox.GenerateEd25519Key()
	}
	return nil, fmt.Errorf("unsupported algorithm %q", algorithm)
}
