package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)

	// VerifyIgnoreExpiry checks everything Verify does except exp/nbf.
	// Logout needs this: an expired refresh token is still a perfectly
	// well-formed request to end a session.
	VerifyIgnoreExpiry(token string) (Claims, error)
}

// VerifyOptions captures common expectations used by verifiers.
type VerifyOptions struct {
	// Issuer the token must have (claims.iss). Empty means "don't care".
	Issuer string

	// Audience values the token must contain (claims.aud). Empty means "don't care".
	Audience []string

	// Leeway allows small clock skew when validating exp/nbf/iat.
	// Because time sync is never perfect.
	Leeway time.Duration

	// Clock supplies "now" for expiry checks. Nil means time.Now.
	Clock Clock
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrKind         = errors.New("jwtx: wrong token kind")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// parseVerified runs the shared verification pipeline: structural decode,
// key lookup by kid, signature check, then registered claim validation.
// The underlying parser keeps that exact order, so a garbled token reports
// ErrMalformed and a forged-but-expired token reports ErrInvalidSig, never
// the other way around. keyForKID does the algorithm-specific public key
// lookup and type assertion.
func parseVerified(tokenStr, alg string, keyForKID jwt.Keyfunc, opts VerifyOptions, ignoreExpiry bool) (Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{alg}),
		jwt.WithLeeway(opts.Leeway),
	}
	if opts.Clock != nil {
		parserOpts = append(parserOpts, jwt.WithTimeFunc(opts.Clock))
	}
	if ignoreExpiry {
		parserOpts = append(parserOpts, jwt.WithoutClaimsValidation())
	}

	token, err := jwt.NewParser(parserOpts...).ParseWithClaims(tokenStr, &Claims{}, keyForKID)
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return Claims{}, ErrInvalidClaim
	}

	// Now check the claim requirements the parser doesn't know about
	if err := claims.ValidateIssuer(opts.Issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(opts.Audience); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}

// mapParseError folds golang-jwt's error taxonomy into ours, so callers can
// switch on our sentinels without importing the jwt package.
func mapParseError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownKID):
		return ErrUnknownKID
	case errors.Is(err, ErrAlgMismatch):
		return ErrAlgMismatch
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	default:
		// Unverifiable for any other reason is treated as a bad signature,
		// never as a claims problem.
		return ErrInvalidSig
	}
}
