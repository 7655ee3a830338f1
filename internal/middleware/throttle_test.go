// internal/middleware/throttle_test.go
package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go_saas_scaffold/internal/cache"
	"go_saas_scaffold/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newThrottleCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := cache.New(mr.Addr(), "", 0, logger)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func throttledRequest(user *model.User, company *model.Company) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/leads", nil)
	ctx := req.Context()
	if user != nil {
		ctx = context.WithValue(ctx, model.UserKey, user)
	}
	if company != nil {
		ctx = context.WithValue(ctx, model.CompanyKey, company)
	}
	return req.WithContext(ctx)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestThrottleMiddleware_LimitPerCompanyAndUser(t *testing.T) {
	c, mr := newThrottleCache(t)
	handler := ThrottleMiddleware(c, 3, time.Minute)(okHandler())

	user := &model.User{UserID: uuid.New()}
	company := &model.Company{CompanyID: uuid.New(), Slug: "acme", IsActive: true}

	// 上限までは通る
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, throttledRequest(user, company))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	// 上限超過は429
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, throttledRequest(user, company))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "THROTTLED")

	// ウィンドウ経過でカウンタはリセットされる
	mr.FastForward(2 * time.Minute)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, throttledRequest(user, company))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestThrottleMiddleware_CountersIsolatedPerCompany(t *testing.T) {
	c, _ := newThrottleCache(t)
	handler := ThrottleMiddleware(c, 2, time.Minute)(okHandler())

	// スーパーユーザーが会社を切り替えて操作するケース。
	// 同じユーザーでも会社ごとに別カウンタになる。
	user := &model.User{UserID: uuid.New(), IsSuperuser: true}
	acme := &model.Company{CompanyID: uuid.New(), Slug: "acme", IsActive: true}
	globex := &model.Company{CompanyID: uuid.New(), Slug: "globex", IsActive: true}

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, throttledRequest(user, acme))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, throttledRequest(user, acme))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// 別テナントはまだ上限に達していない
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, throttledRequest(user, globex))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestThrottleMiddleware_RemainingHeader(t *testing.T) {
	c, _ := newThrottleCache(t)
	handler := ThrottleMiddleware(c, 5, time.Minute)(okHandler())

	user := &model.User{UserID: uuid.New()}
	company := &model.Company{CompanyID: uuid.New(), Slug: "acme", IsActive: true}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, throttledRequest(user, company))
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestThrottleMiddleware_NilCachePassesThrough(t *testing.T) {
	handler := ThrottleMiddleware(nil, 1, time.Minute)(okHandler())

	user := &model.User{UserID: uuid.New()}
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, throttledRequest(user, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestThrottleMiddleware_UnauthenticatedKeyedByIP(t *testing.T) {
	c, _ := newThrottleCache(t)
	handler := ThrottleMiddleware(c, 1, time.Minute)(okHandler())

	// ユーザー無しはIPで数える
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, throttledRequest(nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, throttledRequest(nil, nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
