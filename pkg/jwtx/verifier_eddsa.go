package jwtx

import (
	"crypto/ed25519"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// EdDSAVerifier validates JWTs signed using EdDSA (Ed25519).
type EdDSAVerifier struct {
	keys *KeySet
	opts VerifyOptions
}

// NewVerifierEdDSA creates a verifier using a KeySet of Ed25519 public keys.
func NewVerifierEdDSA(keys *KeySet, opts VerifyOptions) *EdDSAVerifier {
	return &EdDSAVerifier{keys: keys, opts: opts}
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *EdDSAVerifier) Verify(tokenStr string) (Claims, error) {
	return parseVerified(tokenStr, jwt.SigningMethodEdDSA.Alg(), v.keyForKID, v.opts, false)
}

// VerifyIgnoreExpiry validates structure and signature but tolerates exp/nbf.
func (v *EdDSAVerifier) VerifyIgnoreExpiry(tokenStr string) (Claims, error) {
	return parseVerified(tokenStr, jwt.SigningMethodEdDSA.Alg(), v.keyForKID, v.opts, true)
}

func (v *EdDSAVerifier) keyForKID(t *jwt.Token) (any, error) {
	// Need the kid to know which key to use
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, ErrUnknownKID
	}

	// Try to find this key in our set
	pub, err := v.keys.Get(kid)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKID, kid)
	}

	// Make sure it's actually an Ed25519 key
	edPub, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, ErrAlgMismatch
	}
	return edPub, nil
}
