// AngelaMos | 2026
// guard.go

package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/carterperez-dev/templates/bookshelf/internal/core"
	"github.com/carterperez-dev/templates/bookshelf/internal/metrics"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID    string
	Role      core.Role
	TokenID   string
	ExpiresAt time.Time
}

// Guard admits a request, possibly returning it with an enriched context, or
// rejects it with an error. Check may set response headers but never writes
// the body.
type Guard struct {
	Stage string
	Check func(w http.ResponseWriter, r *http.Request) (*http.Request, error)
}

// Chain runs guards strictly in order. The first rejection is written as JSON
// and no later guard, nor next, runs.
func Chain(guards ...Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, g := range guards {
				admitted, err := g.Check(w, r)
				if err != nil {
					reject(w, r, g.Stage, err)
					return
				}
				r = admitted
			}

			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, stage string, err error) {
	appErr := core.ToAppError(err)

	metrics.GuardRejectionsTotal.WithLabelValues(stage, appErr.Code).Inc()
	core.RecordGuardRejection(r.Context(), stage, appErr)

	core.JSONError(w, err)
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

func GetUserID(ctx context.Context) string {
	if p, ok := PrincipalFrom(ctx); ok {
		return p.UserID
	}
	return ""
}

func GetUserRole(ctx context.Context) core.Role {
	if p, ok := PrincipalFrom(ctx); ok {
		return p.Role
	}
	return ""
}

func IsAuthenticated(ctx context.Context) bool {
	return GetUserID(ctx) != ""
}
