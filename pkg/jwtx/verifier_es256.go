package jwtx

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ES256Verifier validates JWTs signed using ES256 (ECDSA P-256).
type ES256Verifier struct {
	keys *KeySet
	opts VerifyOptions
}

// NewVerifierES256 creates a verifier using a KeySet of ECDSA P-256 public keys.
func NewVerifierES256(keys *KeySet, opts VerifyOptions) *ES256Verifier {
	return &ES256Verifier{keys: keys, opts: opts}
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *ES256Verifier) Verify(tokenStr string) (Claims, error) {
	return parseVerified(tokenStr, jwt.SigningMethodES256.Alg(), v.keyForKID, v.opts, false)
}

// VerifyIgnoreExpiry validates structure and signature but tolerates exp/nbf.
func (v *ES256Verifier) VerifyIgnoreExpiry(tokenStr string) (Claims, error) {
	return parseVerified(tokenStr, jwt.SigningMethodES256.Alg(), v.keyForKID, v.opts, true)
}

func (v *ES256Verifier) keyForKID(t *jwt.Token) (any, error) {
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

	// Make sure it's actually an ECDSA key
	ecPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, ErrAlgMismatch
	}
	return ecPub, nil
}
