package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterBlocksAfterRate(t *testing.T) {
	l, err := NewLimiter("2-M", nil)
	require.NoError(t, err)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := l.Middleware(func(*http.Request) string { return "1.2.3.4" }, nil, http.MethodPost)(ok)

	codes := []int{}
	for range 3 {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/transactions", nil))
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{200, 200, http.StatusTooManyRequests}, codes)
	assert.Equal(t, int64(1), l.GetMetrics().TotalHits)

	// GETs are not counted.
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLimiterSeparatesClients(t *testing.T) {
	l, err := NewLimiter("1-M", nil)
	require.NoError(t, err)
	h := l.Middleware(func(r *http.Request) string { return r.RemoteAddr }, nil)(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	for _, addr := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, addr)
	}
}

func TestNewLimiterRejectsBadRate(t *testing.T) {
	_, err := NewLimiter("lots", nil)
	assert.Error(t, err)
}
