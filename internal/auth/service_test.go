// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/bookshelf/internal/config"
	"github.com/carterperez-dev/templates/bookshelf/internal/core"
	"github.com/carterperez-dev/templates/bookshelf/internal/ratelimit"
)

type memoryStore struct {
	mu      sync.Mutex
	byEmail map[string]*UserInfo
	seq     int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byEmail: make(map[string]*UserInfo)}
}

func (s *memoryStore) Create(
	_ context.Context,
	email, name, passwordHash string,
	role core.Role,
) (*UserInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(email))
	if _, exists := s.byEmail[key]; exists {
		return nil, fmt.Errorf("create user: %w", core.ErrDuplicateKey)
	}

	s.seq++
	u := &UserInfo{
		ID:           fmt.Sprintf("00000000-0000-0000-0000-%012d", s.seq),
		Email:        key,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         role,
	}
	s.byEmail[key] = u
	return u, nil
}

func (s *memoryStore) FindByEmail(_ context.Context, email string) (*UserInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	copied := *u
	return &copied, nil
}

const testClientIP = "198.51.100.7"

func loginAs(email, password string) LoginInput {
	return LoginInput{Email: email, Password: password, ClientIP: testClientIP}
}

type stubThrottle struct {
	calls    atomic.Int32
	allowed  bool
	mu       sync.Mutex
	lastIP   string
	lastMail string
}

func (s *stubThrottle) Allow(_ context.Context, email, clientIP string) ratelimit.Decision {
	s.calls.Add(1)
	s.mu.Lock()
	s.lastMail, s.lastIP = email, clientIP
	s.mu.Unlock()
	if s.allowed {
		return ratelimit.Decision{Allowed: true, Limit: 10, Remaining: 9}
	}
	return ratelimit.Decision{Allowed: false, Limit: 10, RetryAfter: 30 * time.Second}
}

func testPasswordHasher() *core.PasswordHasher {
	return core.NewPasswordHasher(config.PasswordConfig{
		Time:      1,
		MemoryKiB: 1024,
		Threads:   1,
	})
}

func newTestService(t *testing.T, throttle LoginThrottle) (*Service, *memoryStore, *TokenCodec) {
	t.Helper()
	store := newMemoryStore()
	codec := newTestCodec(t, newTestClock())
	return NewService(store, testPasswordHasher(), codec, throttle), store, codec
}

func TestService_SignUpDefaultsToUserRole(t *testing.T) {
	svc, store, codec := newTestService(t, nil)
	ctx := context.Background()

	result, err := svc.SignUp(ctx, SignUpInput{
		Name:     "Sam",
		Email:    "Sam@Example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, core.RoleUser, result.Role)

	claims, err := codec.Verify(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.UserID, claims.Subject)
	assert.Equal(t, core.RoleUser, claims.Role)

	stored, err := store.FindByEmail(ctx, "sam@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$argon2id$"))
}

func TestService_SignUpRequiresFields(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	cases := []SignUpInput{
		{Email: "a@b.co", Password: "secret1"},
		{Name: "A", Password: "secret1"},
		{Name: "A", Email: "a@b.co"},
		{Name: "   ", Email: "a@b.co", Password: "secret1"},
	}
	for _, in := range cases {
		_, err := svc.SignUp(context.Background(), in)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	}

	_, err := svc.SignUp(context.Background(), SignUpInput{
		Name: "A", Email: "a@b.co", Password: "secret1", Role: core.Role("root"),
	})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestService_SignUpDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, SignUpInput{Name: "Sam", Email: "sam@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, SignUpInput{Name: "Other", Email: " SAM@example.com ", Password: "secret2"})
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Equal(t, http.StatusConflict, core.ToAppError(err).StatusCode)
}

func TestService_ConcurrentSignUpSingleWinner(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	const attempts = 8
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SignUp(ctx, SignUpInput{
				Name:     fmt.Sprintf("racer-%d", i),
				Email:    "race@example.com",
				Password: "secret1",
			})
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrEmailExists):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(attempts-1), conflicts.Load())
}

func TestService_LoginSuccess(t *testing.T) {
	svc, _, codec := newTestService(t, nil)
	ctx := context.Background()

	signed, err := svc.SignUp(ctx, SignUpInput{Name: "Sam", Email: "sam@example.com", Password: "secret1"})
	require.NoError(t, err)

	result, err := svc.Login(ctx, loginAs("SAM@example.com", "secret1"))
	require.NoError(t, err)
	assert.Equal(t, signed.UserID, result.UserID)

	claims, err := codec.Verify(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, signed.UserID, claims.Subject)
	assert.True(t, claims.ExpiresAt.Equal(result.ExpiresAt))
}

func TestService_LoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, SignUpInput{Name: "Sam", Email: "sam@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, loginAs("sam@example.com", "wrong"))
	_, unknownEmail := svc.Login(ctx, loginAs("nobody@example.com", "secret1"))

	require.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	require.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestService_LoginCorruptCredential(t *testing.T) {
	svc, store, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := store.Create(ctx, "broken@example.com", "Broken", "not-a-hash", core.RoleUser)
	require.NoError(t, err)

	_, err = svc.Login(ctx, loginAs("broken@example.com", "secret1"))
	assert.ErrorIs(t, err, core.ErrCorruptCredential)
	assert.Equal(t, http.StatusInternalServerError, core.ToAppError(err).StatusCode)
}

func TestService_LoginThrottledBeforeLookup(t *testing.T) {
	throttle := &stubThrottle{allowed: false}
	svc, _, _ := newTestService(t, throttle)

	_, err := svc.Login(context.Background(), loginAs("sam@example.com", "secret1"))
	require.Error(t, err)

	appErr := core.ToAppError(err)
	assert.Equal(t, http.StatusTooManyRequests, appErr.StatusCode)
	assert.Equal(t, 30*time.Second, appErr.RetryAfter)
	assert.Equal(t, int32(1), throttle.calls.Load())
	assert.Equal(t, "sam@example.com", throttle.lastMail)
	assert.Equal(t, testClientIP, throttle.lastIP)
}

func TestService_EnsureAdminIsIdempotent(t *testing.T) {
	svc, store, _ := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "Root", "admin@example.com", "change-me"))
	require.NoError(t, svc.EnsureAdmin(ctx, "Root", "admin@example.com", "different"))

	admin, err := store.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, core.RoleAdmin, admin.Role)

	_, err = svc.Login(ctx, loginAs("admin@example.com", "change-me"))
	assert.NoError(t, err)
}
