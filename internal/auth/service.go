// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/carterperez-dev/templates/bookshelf/internal/core"
	"github.com/carterperez-dev/templates/bookshelf/internal/metrics"
	"github.com/carterperez-dev/templates/bookshelf/internal/ratelimit"
)

// Outcome labels shared by auth_attempts_total and the auth spans.
const (
	outcomeSuccess            = "success"
	outcomeInvalidInput       = "invalid_input"
	outcomeInvalidCredentials = "invalid_credentials"
	outcomeConflict           = "conflict"
	outcomeThrottled          = "throttled"
	outcomeError              = "error"
)

var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", core.ErrUnauthorized)
	ErrEmailExists        = fmt.Errorf("email already exists: %w", core.ErrConflict)
)

type UserInfo struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         core.Role
}

// CredentialStore must enforce email uniqueness atomically and report a
// collision as core.ErrDuplicateKey. Lookups are case-normalized.
type CredentialStore interface {
	Create(
		ctx context.Context,
		email, name, passwordHash string,
		role core.Role,
	) (*UserInfo, error)
	FindByEmail(ctx context.Context, email string) (*UserInfo, error)
}

// LoginThrottle is consulted before the credential lookup. Keys combine the
// email with the caller address.
type LoginThrottle interface {
	Allow(ctx context.Context, email, clientIP string) ratelimit.Decision
}

type SignUpInput struct {
	Name     string
	Email    string
	Password string
	Role     core.Role
}

type LoginInput struct {
	Email    string
	Password string
	ClientIP string
}

type TokenResult struct {
	Token     string
	UserID    string
	Role      core.Role
	ExpiresAt time.Time
}

type Service struct {
	store    CredentialStore
	hasher   *core.PasswordHasher
	tokens   *TokenCodec
	throttle LoginThrottle
}

// NewService wires the authentication flow. throttle may be nil.
func NewService(
	store CredentialStore,
	hasher *core.PasswordHasher,
	tokens *TokenCodec,
	throttle LoginThrottle,
) *Service {
	return &Service{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		throttle: throttle,
	}
}

func (s *Service) SignUp(
	ctx context.Context,
	in SignUpInput,
) (*TokenResult, error) {
	ctx, span := core.StartAuthSpan(ctx, "signup")
	result, outcome, err := s.signUp(ctx, in)
	s.observe(span, "signup", outcome, err)
	return result, err
}

func (s *Service) signUp(
	ctx context.Context,
	in SignUpInput,
) (*TokenResult, string, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, outcomeInvalidInput, fmt.Errorf(
			"sign up: name, email and password are required: %w",
			core.ErrInvalidInput,
		)
	}

	role := in.Role
	if role == "" {
		role = core.RoleUser
	}
	if !role.Valid() {
		return nil, outcomeInvalidInput, fmt.Errorf("sign up: role %q: %w", role, core.ErrInvalidInput)
	}

	start := time.Now()
	passwordHash, err := s.hasher.Hash(in.Password)
	metrics.PasswordHashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, outcomeError, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.Create(ctx, email, name, passwordHash, role)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, outcomeConflict, ErrEmailExists
		}
		return nil, outcomeError, fmt.Errorf("create user: %w", err)
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, outcomeError, err
	}

	return result, outcomeSuccess, nil
}

// Login fails with ErrInvalidCredentials for an unknown email and for a wrong
// password alike; both paths run one argon2 verification.
func (s *Service) Login(
	ctx context.Context,
	in LoginInput,
) (*TokenResult, error) {
	ctx, span := core.StartAuthSpan(ctx, "login")
	result, outcome, err := s.login(ctx, in)
	s.observe(span, "login", outcome, err)
	return result, err
}

func (s *Service) login(
	ctx context.Context,
	in LoginInput,
) (*TokenResult, string, error) {
	email, password := in.Email, in.Password

	if s.throttle != nil {
		if d := s.throttle.Allow(ctx, email, in.ClientIP); !d.Allowed {
			return nil, outcomeThrottled, core.RateLimitedError(d.RetryAfter)
		}
	}

	start := time.Now()
	defer func() {
		metrics.PasswordHashDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())
	}()

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // dummy verification only equalizes timing
			_, _ = s.hasher.VerifyTimingSafe(password, nil)
			return nil, outcomeInvalidCredentials, ErrInvalidCredentials
		}
		return nil, outcomeError, fmt.Errorf("get user: %w", err)
	}

	valid, err := s.hasher.VerifyTimingSafe(password, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, core.ErrCorruptCredential) {
			slog.Error("stored credential is corrupt", "user_id", user.ID)
		}
		return nil, outcomeError, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, outcomeInvalidCredentials, ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		slog.Info("password hash uses outdated parameters", "user_id", user.ID)
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, outcomeError, err
	}

	return result, outcomeSuccess, nil
}

func (s *Service) observe(span trace.Span, operation, outcome string, err error) {
	metrics.AuthAttemptsTotal.WithLabelValues(operation, outcome).Inc()
	core.EndAuthSpan(span, outcome, err)
}

// EnsureAdmin creates the configured administrator unless the email is
// already registered. This is the only caller that passes a role to SignUp.
func (s *Service) EnsureAdmin(
	ctx context.Context,
	name, email, password string,
) error {
	_, err := s.SignUp(ctx, SignUpInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     core.RoleAdmin,
	})
	if errors.Is(err, ErrEmailExists) {
		slog.Info("bootstrap admin already registered")
		return nil
	}
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	slog.Info("bootstrap admin created")
	return nil
}

func (s *Service) issue(user *UserInfo) (*TokenResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role, s.tokens.TTL())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &TokenResult{
		Token:     token,
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: expiresAt,
	}, nil
}
