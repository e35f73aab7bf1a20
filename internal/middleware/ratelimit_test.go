package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-itinerary/backend/internal/middleware"
)

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/groups", nil)
	req.RemoteAddr = addr
	return req
}

// TestRateLimiter_BurstThenReject verifies that a client may spend its burst
// and is then refused with 429 and a Retry-After header.
func TestRateLimiter_BurstThenReject(t *testing.T) {
	rl := middleware.NewRateLimiter(0.5, 2)
	h := rl.Limit(trivialHandler)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, requestFrom("10.0.0.1:5000"))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
}

// TestRateLimiter_ClientsAreIndependent verifies that one client exhausting
// its budget does not affect another.
func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl := middleware.NewRateLimiter(1, 1)
	h := rl.Limit(trivialHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("10.0.0.1:1"))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("10.0.0.1:2"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("10.0.0.2:1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, rl.Len())
}
