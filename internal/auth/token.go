package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenErrorKind classifies token verification failures.
type TokenErrorKind string

const (
	// TokenBadSignature covers tampered, malformed, or wrongly-signed tokens.
	TokenBadSignature TokenErrorKind = "bad-signature"
	// TokenExpired marks tokens past their expiry.
	TokenExpired TokenErrorKind = "expired"
	// TokenRevoked marks tokens whose jti is blacklisted.
	TokenRevoked TokenErrorKind = "revoked"
)

// TokenError reports why a token failed verification. The wrapped cause
// never contains token contents or the signing secret.
type TokenError struct {
	Kind TokenErrorKind
	Err  error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("auth: invalid token (%s)", e.Kind)
}

func (e *TokenError) Unwrap() error { return e.Err }

// Blacklist is the revocation store consulted on every verification.
type Blacklist interface {
	Add(ctx context.Context, jti string, expiresAt time.Time) error
	Contains(ctx context.Context, jti string) (bool, error)
	Sweep(ctx context.Context, now time.Time) (int64, error)
}

// TokenManagerConfig collects the dependencies of a TokenManager.
type TokenManagerConfig struct {
	Secret    string
	Algorithm string
	TTL       time.Duration
	Blacklist Blacklist
	// Now overrides the clock, nil means time.Now.
	Now func() time.Time
}

// TokenManager issues, verifies, and revokes signed session tokens. It
// owns no persisted state beyond what the blacklist keeps.
type TokenManager struct {
	secret    []byte
	method    jwt.SigningMethod
	ttl       time.Duration
	blacklist Blacklist
	now       func() time.Time
}

// NewTokenManager constructs a TokenManager.
func NewTokenManager(cfg TokenManagerConfig) (*TokenManager, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return nil, fmt.Errorf("auth: unknown signing algorithm %q", cfg.Algorithm)
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("auth: signing secret required")
	}
	if cfg.Blacklist == nil {
		return nil, fmt.Errorf("auth: blacklist required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &TokenManager{
		secret:    []byte(cfg.Secret),
		method:    method,
		ttl:       ttl,
		blacklist: cfg.Blacklist,
		now:       now,
	}, nil
}

// TTL returns the default token lifetime.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a signed token for the principal with a unique jti.
// A non-positive ttl falls back to the configured default.
func (m *TokenManager) Issue(principalID int64, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = m.ttl
	}
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(principalID, 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(m.method, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token and returns the principal id it carries.
// The checks run in a fixed order: signature, then expiry, then the
// blacklist. No claim, including the jti, is trusted before the
// signature has been verified.
func (m *TokenManager) Verify(ctx context.Context, raw string) (int64, error) {
	claims, err := m.parse(raw)
	if err != nil {
		return 0, err
	}
	revoked, err := m.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		return 0, fmt.Errorf("auth: blacklist lookup: %w", err)
	}
	if revoked {
		return 0, &TokenError{Kind: TokenRevoked}
	}
	principalID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, &TokenError{Kind: TokenBadSignature, Err: err}
	}
	return principalID, nil
}

// Revoke blacklists the token's jti until the token's own expiry. The
// token must carry a valid signature; otherwise anyone could revoke a
// victim's session by forging its jti. Revoking an already-expired
// token is a no-op.
func (m *TokenManager) Revoke(ctx context.Context, raw string) error {
	claims, err := m.parse(raw)
	if err != nil {
		var tokenErr *TokenError
		if errors.As(err, &tokenErr) && tokenErr.Kind == TokenExpired {
			return nil
		}
		return err
	}
	return m.blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time)
}

// parse verifies signature and registered claims, returning typed
// errors. Signature failures are reported before any claim failure.
func (m *TokenManager) parse(raw string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, m.keyFunc,
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, &TokenError{Kind: TokenExpired, Err: err}
	default:
		return nil, &TokenError{Kind: TokenBadSignature, Err: err}
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil, &TokenError{Kind: TokenBadSignature}
	}
	return claims, nil
}

func (m *TokenManager) keyFunc(token *jwt.Token) (any, error) {
	return m.secret, nil
}
