// AngelaMos | 2026
// token.go

package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/oklog/ulid/v2"

	"github.com/carterperez-dev/templates/bookshelf/internal/config"
	"github.com/carterperez-dev/templates/bookshelf/internal/core"
	"github.com/carterperez-dev/templates/bookshelf/internal/middleware"
)

// Claims is what a verified access token asserts.
type Claims struct {
	ID        string
	Subject   string
	Role      core.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec signs and verifies HS256 access tokens. It keeps no record of
// issued tokens.
type TokenCodec struct {
	key      jwk.Key
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

type TokenOption func(*TokenCodec)

// WithClock replaces time.Now for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

func NewTokenCodec(cfg config.TokenConfig, opts ...TokenOption) (*TokenCodec, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("token secret is empty")
	}

	key, err := jwk.Import([]byte(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("import signing key: %w", err)
	}

	if setErr := key.Set(jwk.AlgorithmKey, jwa.HS256()); setErr != nil {
		return nil, fmt.Errorf("set algorithm: %w", setErr)
	}

	c := &TokenCodec{
		key:      key,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// TTL is the lifetime used by the authentication service for every token.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token and returns it with the expiry exactly as encoded.
// Timestamps are whole seconds on the wire, so the issue time is truncated
// before the expiry is derived from it.
func (c *TokenCodec) Issue(
	subject string,
	role core.Role,
	ttl time.Duration,
) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, fmt.Errorf("issue token: empty subject: %w", core.ErrInvalidInput)
	}
	if !role.Valid() {
		return "", time.Time{}, fmt.Errorf("issue token: role %q: %w", role, core.ErrInvalidInput)
	}
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("issue token: non-positive ttl: %w", core.ErrInvalidInput)
	}

	now := c.now().Truncate(time.Second)
	expiresAt := now.Add(ttl).Truncate(time.Second)

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token id: %w", err)
	}

	token, err := jwt.NewBuilder().
		JwtID(id.String()).
		Issuer(c.issuer).
		Audience([]string{c.audience}).
		Subject(subject).
		IssuedAt(now).
		NotBefore(now).
		Expiration(expiresAt).
		Claim("role", role.String()).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), c.key))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return string(signed), expiresAt, nil
}

// Verify checks the signature first, then expiry, then the remaining
// registered claims. Any failure other than expiry is ErrTokenInvalid.
func (c *TokenCodec) Verify(
	_ context.Context,
	tokenString string,
) (*Claims, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), c.key),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	expiresAt, ok := token.Expiration()
	if !ok {
		return nil, fmt.Errorf(
			"verify token: missing expiration: %w",
			core.ErrTokenInvalid,
		)
	}

	now := c.now()
	if !now.Before(expiresAt) {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
	}

	if err := jwt.Validate(
		token,
		jwt.WithClock(jwt.ClockFunc(c.now)),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
	); err != nil {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	var roleStr string
	if err := token.Get("role", &roleStr); err != nil {
		return nil, fmt.Errorf(
			"verify token: missing role claim: %w",
			core.ErrTokenInvalid,
		)
	}

	role, err := core.ParseRole(roleStr)
	if err != nil {
		return nil, fmt.Errorf(
			"verify token: unknown role: %w",
			core.ErrTokenInvalid,
		)
	}

	claims := &Claims{
		Subject:   subject,
		Role:      role,
		ExpiresAt: expiresAt,
	}
	if id, ok := token.JwtID(); ok {
		claims.ID = id
	}
	if iat, ok := token.IssuedAt(); ok {
		claims.IssuedAt = iat
	}

	return claims, nil
}

// Authenticate adapts Verify to the authentication guard.
func (c *TokenCodec) Authenticate(
	ctx context.Context,
	tokenString string,
) (*middleware.Principal, error) {
	claims, err := c.Verify(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	return &middleware.Principal{
		UserID:    claims.Subject,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

var _ middleware.TokenVerifier = (*TokenCodec)(nil)
