package jwtx

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sigilauth/sigil/pkg/cryptox"
)

// Supported signing algorithms.
const (
	AlgorithmRS256 = "RS256"
	AlgorithmES256 = "ES256"
	AlgorithmEdDSA = "EdDSA"
)

const defaultRSABits = 4096

// KeyManager owns the signing keys of one service instance and the KeySet
// used to verify what they produced.
//
// The signer list is kept newest-first: new tokens always come off the most
// recently added key. Keys never leave the KeySet once added, so tokens
// minted before a rotation verify until they expire.
type KeyManager struct {
	Verifier  Verifier
	KeySet    *KeySet
	algorithm string

	mu      sync.RWMutex
	signers []Signer // newest first
}

// KeyManagerOptions configures key generation and token verification.
type KeyManagerOptions struct {
	// Algorithm is one of RS256, ES256, EdDSA.
	Algorithm string

	// Issuer is matched against the iss claim of verified tokens.
	Issuer string

	// Audience values matched against aud. Empty disables the check.
	Audience []string

	// Leeway tolerates clock skew on exp/nbf.
	Leeway time.Duration

	// Clock supplies "now" to the verifier. Nil means time.Now.
	Clock Clock

	// RSABits sets the RS256 key size. Zero means 4096, minimum 2048.
	RSABits int
}

// NewEphemeralKeyManager generates a single in-memory key and wires up the
// signer, verifier, and KeySet around it. Nothing touches disk, so every
// outstanding token dies with the process. Meant for development, tests,
// and deployments that accept forced re-login on restart.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}

	kid, err := randomKeyID()
	if err != nil {
		return nil, err
	}

	signer, err := generateSigner(opts.Algorithm, kid, opts.RSABits)
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate signer: %w", err)
	}

	keyset := NewKeySet()
	if err := keyset.AddSigner(signer); err != nil {
		return nil, fmt.Errorf("jwtx: register signer: %w", err)
	}

	verifier, err := newVerifier(opts, keyset)
	if err != nil {
		return nil, err
	}

	return &KeyManager{
		Verifier:  verifier,
		KeySet:    keyset,
		algorithm: opts.Algorithm,
		signers:   []Signer{signer},
	}, nil
}

func newVerifier(opts KeyManagerOptions, keyset *KeySet) (Verifier, error) {
	vopts := VerifyOptions{
		Issuer:   opts.Issuer,
		Audience: opts.Audience,
		Leeway:   opts.Leeway,
		Clock:    opts.Clock,
	}

	switch opts.Algorithm {
	case AlgorithmRS256:
		return NewVerifierRS256(keyset, vopts), nil
	case AlgorithmES256:
		return NewVerifierES256(keyset, vopts), nil
	case AlgorithmEdDSA:
		return NewVerifierEdDSA(keyset, vopts), nil
	}
	return nil, fmt.Errorf("jwtx: unsupported algorithm %q (supported: RS256, ES256, EdDSA)", opts.Algorithm)
}

func generateSigner(algorithm, kid string, rsaBits int) (Signer, error) {
	switch algorithm {
	case AlgorithmRS256:
		if rsaBits == 0 {
			rsaBits = defaultRSABits
		}
		pemBytes, err := cryptox.GenerateRSAKey(rsaBits)
		if err != nil {
			return nil, err
		}
		return NewSignerRS256(kid, pemBytes)

	case AlgorithmES256:
		pemBytes, err := cryptox.GenerateES256Key()
		if err != nil {
			return nil, err
		}
		return NewSignerES256(kid, pemBytes)

	case AlgorithmEdDSA:
		pemBytes, err := cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, err
		}
		return NewSignerEdDSA(kid, pemBytes)
	}
	return nil, fmt.Errorf("unsupported algorithm %q", algorithm)
}

// Algorithm returns the configured signing algorithm.
func (km *KeyManager) Algorithm() string { return km.algorithm }

// IsReady reports whether verification keys are loaded.
func (km *KeyManager) IsReady() bool { return km.KeySet.IsReady() }

// GetSigner returns the key new tokens are signed with, or nil when none
// is loaded.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if len(km.signers) == 0 {
		return nil
	}
	return km.signers[0]
}

// NumSigners returns how many keys are currently eligible to sign.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// GetSigners returns a snapshot of the active signing keys, newest first.
func (km *KeyManager) GetSigners() []Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	out := make([]Signer, len(km.signers))
	copy(out, km.signers)
	return out
}

// AddSigner installs a key as the new current signer and registers it for
// verification. Safe to call at runtime.
func (km *KeyManager) AddSigner(signer Signer) error {
	if signer == nil {
		return errors.New("signer cannot be nil")
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if err := km.KeySet.AddSigner(signer); err != nil {
		return fmt.Errorf("register signer: %w", err)
	}

	km.signers = append([]Signer{signer}, km.signers...)
	return nil
}

// Rotate generates a fresh key under the manager's algorithm and makes it
// the current signer. Previous keys keep verifying.
func (km *KeyManager) Rotate(rsaBits int) (Signer, error) {
	kid, err := randomKeyID()
	if err != nil {
		return nil, err
	}

	signer, err := generateSigner(km.algorithm, kid, rsaBits)
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate signer: %w", err)
	}

	if err := km.AddSigner(signer); err != nil {
		return nil, err
	}
	return signer, nil
}

// RetireSignerByKid pulls a key out of signing rotation. It stays in the
// KeySet so outstanding tokens still verify. The last remaining signer
// cannot be retired.
func (km *KeyManager) RetireSignerByKid(kid string) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if len(km.signers) <= 1 {
		return errors.New("cannot retire the last signing key")
	}

	kept := km.signers[:0:0]
	for _, s := range km.signers {
		if s.KID() != kid {
			kept = append(kept, s)
		}
	}

	if len(kept) == len(km.signers) {
		return fmt.Errorf("signer with kid %q not found", kid)
	}

	km.signers = kept
	return nil
}

// randomKeyID mints a kid of the form "sigil-{token}" from 128 bits of
// entropy.
func randomKeyID() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("jwtx: generate key ID: %w", err)
	}
	return "sigil-" + token, nil
}
