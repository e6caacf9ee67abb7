// AngelaMos | 2026
// clientip_test.go

package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolve(t *testing.T, trust *ProxyTrust, remote string, headers map[string]string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remote
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	var got string
	trust.RealIP(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = ClientIP(r)
	})).ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestClientIP_UntrustedPeerIgnoresHeaders(t *testing.T) {
	trust, err := NewProxyTrust(nil)
	require.NoError(t, err)

	got := resolve(t, trust, "203.0.113.9:4711", map[string]string{
		"X-Forwarded-For": "10.0.0.1",
		"X-Real-IP":       "198.51.100.2",
	})
	assert.Equal(t, "203.0.113.9", got)
}

func TestClientIP_TrustedProxy(t *testing.T) {
	trust, err := NewProxyTrust([]string{"10.0.0.0/8", "192.168.1.1"})
	require.NoError(t, err)

	got := resolve(t, trust, "10.1.2.3:80", map[string]string{
		"X-Forwarded-For": "6.6.6.6, 198.51.100.7, 192.168.1.1",
	})
	assert.Equal(t, "198.51.100.7", got, "rightmost untrusted hop")

	got = resolve(t, trust, "192.168.1.1:80", map[string]string{
		"X-Real-IP": "198.51.100.2",
	})
	assert.Equal(t, "198.51.100.2", got)

	got = resolve(t, trust, "10.1.2.3:80", map[string]string{
		"X-Forwarded-For": "garbage",
	})
	assert.Equal(t, "10.1.2.3", got)
}

func TestClientIP_WithoutRealIPUsesPeer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[::ffff:203.0.113.9]:4711"
	req.Header.Set("X-Forwarded-For", "10.0.0.1")

	assert.Equal(t, "203.0.113.9", ClientIP(req))
}

func TestNewProxyTrust_RejectsMalformed(t *testing.T) {
	_, err := NewProxyTrust([]string{"10.0.0.0/8", "proxy.internal"})
	assert.Error(t, err)
}

func TestRateLimit_RotatingForwardedForSharesWindow(t *testing.T) {
	trust, err := NewProxyTrust(nil)
	require.NoError(t, err)

	var handled atomic.Int32
	h := trust.RealIP(
		Chain(RateLimitGuard(newLimiter(3), KeyByIP))(okHandler(&handled)),
	)

	admitted := 0
	for i := range 50 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.9:4711"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.1.0.%d", i))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			admitted++
		}
	}

	assert.Equal(t, 3, admitted)
	assert.Equal(t, int32(3), handled.Load())
}
