package jwtx

import (
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// RS256Verifier validates JWTs signed using RS256.
type RS256Verifier struct {
	keys *KeySet
	opts VerifyOptions
}

// NewVerifierRS256 creates a verifier using a KeySet of RSA public keys.
func NewVerifierRS256(keys *KeySet, opts VerifyOptions) *RS256Verifier {
	return &RS256Verifier{keys: keys, opts: opts}
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *RS256Verifier) Verify(tokenStr string) (Claims, error) {
	return parseVerified(tokenStr, jwt.SigningMethodRS256.Alg(), v.keyForKID, v.opts, false)
}

// VerifyIgnoreExpiry validates structure and signature but tolerates exp/nbf.
func (v *RS256Verifier) VerifyIgnoreExpiry(tokenStr string) (Claims, error) {
	return parseVerified(tokenStr, jwt.SigningMethodRS256.Alg(), v.keyForKID, v.opts, true)
}

func (v *RS256Verifier) keyForKID(t *jwt.Token) (any, error) {
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

	// Make sure it's actually an RSA key (it should be, watch it not be)
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, ErrAlgMismatch
	}
	return rsaPub, nil
}
