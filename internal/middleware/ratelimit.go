// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"net/http"
	"strconv"

	"github.com/carterperez-dev/templates/bookshelf/internal/core"
	"github.com/carterperez-dev/templates/bookshelf/internal/ratelimit"
)

const StageRateLimit = "rate_limit"

type Admitter interface {
	Admit(key string) ratelimit.Decision
}

// RateLimitGuard rejects with 429 before any authentication work runs. The
// rejection carries Retry-After with the time left in the window.
func RateLimitGuard(
	limiter Admitter,
	keyFunc func(*http.Request) string,
) Guard {
	if keyFunc == nil {
		keyFunc = KeyByIP
	}

	return Guard{
		Stage: StageRateLimit,
		Check: func(w http.ResponseWriter, r *http.Request) (*http.Request, error) {
			d := limiter.Admit(keyFunc(r))
			setRateLimitHeaders(w.Header(), d)

			if !d.Allowed {
				return nil, core.RateLimitedError(d.RetryAfter)
			}

			return r, nil
		},
	}
}

// KeyByIP keys on ClientIP, which only believes forwarding headers from
// trusted proxies.
func KeyByIP(r *http.Request) string {
	return "ratelimit:ip:" + ClientIP(r)
}

func setRateLimitHeaders(h http.Header, d ratelimit.Decision) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.Itoa(core.RetryAfterSeconds(d.RetryAfter)))
}
