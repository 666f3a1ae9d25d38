package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sigilauth/sigil/internal/auth/domain"
	"github.com/sigilauth/sigil/internal/auth/store"
	"github.com/sigilauth/sigil/pkg/cryptox"
	"github.com/sigilauth/sigil/pkg/idx"
	"github.com/sigilauth/sigil/pkg/jwtx"
	"github.com/sigilauth/sigil/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrTokenMalformed     = errors.New("token_malformed")
	ErrBadSignature       = errors.New("bad_signature")
	ErrTokenExpired       = errors.New("token_expired")
	ErrWrongKind          = errors.New("wrong_token_kind")
	ErrTokenRevoked       = errors.New("token_revoked")
	ErrStoreUnavailable   = errors.New("store_unavailable")
)

// DefaultStoreTimeout bounds revocation store round-trips so a stalled
// database degrades refresh/logout into StoreUnavailable instead of
// hanging the request.
const DefaultStoreTimeout = 3 * time.Second

// SessionService implements the credential lifecycle: password login,
// access-token authentication, refresh rotation with reuse detection,
// and logout.
//
// Issuance is stateless: Login and the happy half of Refresh never touch
// the store. The revocation store is only written when a refresh token is
// consumed (Refresh) or surrendered (Logout), and only read on the access
// path when CheckAccessRevocation is enabled.
type SessionService struct {
	KeyManager  *jwtx.KeyManager
	Users       store.Users
	Revocations store.Revocations

	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// StoreTimeout caps each revocation store call. Zero means
	// DefaultStoreTimeout.
	StoreTimeout time.Duration

	// Leeway mirrors the verifier's clock skew tolerance. Logout uses it
	// to decide whether an expired refresh token could still be accepted
	// and therefore still needs a revocation entry.
	Leeway time.Duration

	// CheckAccessRevocation makes Authenticate consult the revocation
	// store for access tokens too. Off by default: access tokens are
	// short lived and the hot path stays store-free.
	CheckAccessRevocation bool

	// Clock supplies "now" for issuance. Nil means time.Now.
	Clock jwtx.Clock
}

// Login verifies a username/password pair and issues a fresh token pair
// under a new session id. Unknown usernames and wrong passwords are
// indistinguishable to the caller.
func (s *SessionService) Login(ctx context.Context, username, password string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("login failed: unknown username", slog.String("username", username))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		l.Info("login failed: password mismatch", slog.String("user_id", u.ID))
		return nil, ErrInvalidCredentials
	}

	return s.issuePair(u.Principal(), idx.New().String())
}

// Authenticate validates a raw access token and returns its claims.
// It runs the full ordered pipeline: decode, signature, expiry, kind,
// then (optionally) revocation.
func (s *SessionService) Authenticate(ctx context.Context, rawToken string) (jwtx.Claims, error) {
	claims, err := s.KeyManager.Verifier.Verify(rawToken)
	if err != nil {
		return jwtx.Claims{}, mapVerifyError(err)
	}

	if err := claims.ValidateKind(jwtx.KindAccess); err != nil {
		return jwtx.Claims{}, ErrWrongKind
	}

	if s.CheckAccessRevocation {
		revoked, err := s.containsRevocation(ctx, claims.ID)
		if err != nil {
			return jwtx.Claims{}, ErrStoreUnavailable
		}
		if revoked {
			return jwtx.Claims{}, ErrTokenRevoked
		}
	}

	return claims, nil
}

// Refresh rotates a refresh token: the presented token's jti is revoked
// before any new tokens are returned, so a given refresh token can only
// ever be redeemed once. A second redemption, even a concurrent one,
// loses the store write and fails as revoked.
//
// The new pair keeps the session id of the old token. Scopes and profile
// fields are re-read from the user record so a refresh picks up grants
// and renames that happened since login.
func (s *SessionService) Refresh(ctx context.Context, rawRefresh string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.KeyManager.Verifier.Verify(rawRefresh)
	if err != nil {
		return nil, mapVerifyError(err)
	}

	if err := claims.ValidateKind(jwtx.KindRefresh); err != nil {
		return nil, ErrWrongKind
	}

	created, err := s.addRevocation(ctx, domain.RevocationEntry{
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		RevokedAt: s.now(),
	})
	if err != nil {
		l.Error("refresh revocation write failed", slog.Any("error", err))
		return nil, ErrStoreUnavailable
	}
	if !created {
		// Someone already consumed this token. Either an honest retry
		// or a stolen token being replayed; both get the same answer.
		l.Warn("refresh token reuse detected",
			slog.String("user_id", claims.Subject),
			slog.String("session_id", claims.SID),
		)
		return nil, ErrTokenRevoked
	}

	u, err := s.Users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	return s.issuePair(u.Principal(), claims.SID)
}

// Logout surrenders a refresh token. The token must decode and carry a
// valid signature of the refresh kind, but expiry is tolerated: logging
// out of an expired session is a successful no-op. Logout is idempotent.
func (s *SessionService) Logout(ctx context.Context, rawRefresh string) error {
	claims, err := s.KeyManager.Verifier.VerifyIgnoreExpiry(rawRefresh)
	if err != nil {
		return mapVerifyError(err)
	}

	if err := claims.ValidateKind(jwtx.KindRefresh); err != nil {
		return ErrWrongKind
	}

	// Expired beyond the verifier's leeway: it will never be accepted
	// again, so there is nothing to revoke. Inside the leeway window the
	// token still works and must be written.
	if err := claims.ValidateExpiryAt(s.now(), s.Leeway); err != nil {
		return nil
	}

	if _, err := s.addRevocation(ctx, domain.RevocationEntry{
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		RevokedAt: s.now(),
	}); err != nil {
		slogx.FromContext(ctx).Error("logout revocation write failed", slog.Any("error", err))
		return ErrStoreUnavailable
	}

	return nil
}

// IssuePairFor mints a token pair for an already-authenticated user under
// a fresh session id. Bootstrap and tests use this to skip the password
// check.
func (s *SessionService) IssuePairFor(u domain.User) (*domain.TokenPair, error) {
	return s.issuePair(u.Principal(), idx.New().String())
}

func (s *SessionService) issuePair(p domain.Principal, sid string) (*domain.TokenPair, error) {
	now := s.now()

	signer := s.KeyManager.GetSigner()
	if signer == nil {
		return nil, errors.New("no active signing key")
	}

	access := jwtx.NewAccessClaims(
		p.ID, sid,
		p.Scopes,
		s.AccessTTL,
		s.Issuer,
		s.Audience,
		p.Username,
		p.PreferredName,
		now,
	)
	accessToken, err := signer.Sign(access)
	if err != nil {
		return nil, err
	}

	refresh := jwtx.NewRefreshClaims(
		p.ID, sid,
		s.RefreshTTL,
		s.Issuer,
		s.Audience,
		now,
	)
	refreshToken, err := signer.Sign(refresh)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
	}, nil
}

func (s *SessionService) addRevocation(ctx context.Context, entry domain.RevocationEntry) (bool, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.Revocations.Add(ctx, entry)
}

func (s *SessionService) containsRevocation(ctx context.Context, tokenID string) (bool, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.Revocations.Contains(ctx, tokenID)
}

func (s *SessionService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *SessionService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// mapVerifyError collapses the verifier's taxonomy into the service-level
// sentinels. Unknown kid and algorithm confusion both read as a bad
// signature: the token was not signed by a key we trust.
func mapVerifyError(err error) error {
	switch {
	case errors.Is(err, jwtx.ErrMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwtx.ErrExpired), errors.Is(err, jwtx.ErrNotYetValid):
		return ErrTokenExpired
	case errors.Is(err, jwtx.ErrUnknownKID),
		errors.Is(err, jwtx.ErrAlgMismatch),
		errors.Is(err, jwtx.ErrInvalidSig),
		errors.Is(err, jwtx.ErrIssuer),
		errors.Is(err, jwtx.ErrAudience):
		return ErrBadSignature
	default:
		return ErrBadSignature
	}
}
