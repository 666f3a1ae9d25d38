package jwtx

import (
	"errors"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySet is the in-memory collection of verification keys, indexed by kid.
// It serves double duty: token verification looks keys up by kid, and the
// JWKS endpoint publishes the whole set. Safe for concurrent use.
type KeySet struct {
	mu   sync.RWMutex
	jwks JWKS
	keys map[string]any
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]any)}
}

// AddSigner registers the signer's public key.
func (k *KeySet) AddSigner(s Signer) error {
	return k.AddJWK(s.PublicJWK())
}

// AddJWK parses the JWK into a crypto public key and registers it.
func (k *KeySet) AddJWK(j JWK) error {
	pub, err := j.publicKey()
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[j.Kid] = pub
	k.jwks.Keys = append(k.jwks.Keys, j)
	return nil
}

// Get looks up the public key for a kid. Returns ErrNoKey when absent.
func (k *KeySet) Get(kid string) (any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	pub, ok := k.keys[kid]
	if !ok {
		return nil, ErrNoKey
	}
	return pub, nil
}

// PublicJWKS returns the current key set for HTTP serving.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.jwks
}

// IsReady reports whether at least one key is loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys) > 0
}

// ResetFromJWKS swaps the entire set for the keys in jwks. Consumers that
// poll a remote JWKS endpoint use this to pick up rotations. The swap is
// all-or-nothing: a single bad key leaves the existing set untouched.
func (k *KeySet) ResetFromJWKS(jwks JWKS) error {
	keys := make(map[string]any, len(jwks.Keys))
	for _, j := range jwks.Keys {
		pub, err := j.publicKey()
		if err != nil {
			return err
		}
		keys[j.Kid] = pub
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys = keys
	k.jwks = jwks
	return nil
}
