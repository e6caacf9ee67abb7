// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/carterperez-dev/templates/bookshelf/internal/core"
)

const (
	StageAuthentication = "authentication"
	StageRole           = "role"
)

type TokenVerifier interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

// AuthenticationGuard requires a valid bearer token and attaches the
// resulting Principal to the request context.
func AuthenticationGuard(verifier TokenVerifier) Guard {
	return Guard{
		Stage: StageAuthentication,
		Check: func(_ http.ResponseWriter, r *http.Request) (*http.Request, error) {
			token := ExtractToken(r)
			if token == "" {
				return nil, core.UnauthorizedError("missing authorization token")
			}

			principal, err := verifier.Authenticate(r.Context(), token)
			if err != nil {
				return nil, authError(err)
			}

			core.RecordPrincipal(r.Context(), principal.Role)
			return r.WithContext(WithPrincipal(r.Context(), principal)), nil
		},
	}
}

// RoleGuard admits principals whose role is in roles. Membership only: admin
// does not imply any other role.
func RoleGuard(roles ...core.Role) Guard {
	roleSet := make(map[core.Role]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return Guard{
		Stage: StageRole,
		Check: func(_ http.ResponseWriter, r *http.Request) (*http.Request, error) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				return nil, core.UnauthorizedError("authentication required")
			}

			if _, allowed := roleSet[principal.Role]; !allowed {
				return nil, core.ForbiddenError("insufficient permissions")
			}

			return r, nil
		},
	}
}

func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func authError(err error) error {
	if core.IsAppError(err) {
		return err
	}

	switch {
	case errors.Is(err, core.ErrTokenExpired):
		return core.TokenExpiredError()
	case errors.Is(err, core.ErrTokenInvalid):
		return core.TokenInvalidError()
	default:
		// Anything unexpected from a verifier still rejects as 401.
		return core.NewAppError(
			fmt.Errorf("authenticate: %w", err),
			"invalid token",
			http.StatusUnauthorized,
			"TOKEN_INVALID",
		)
	}
}
