package middleware

import (
	"net/http"
	"strconv"
	"time"

	"go_saas_scaffold/internal/cache"
	"go_saas_scaffold/internal/model"
	"go_saas_scaffold/internal/webutil"
)

// ThrottleMiddleware は会社（テナント）とユーザーの組ごとの固定ウィンドウの
// レートリミットです。カウンタのキーは "throttle:<company_id>:<user_id>" で、
// 同じユーザーでも会社を切り替えれば別カウンタになります（テナント単位の
// 公平性を守るため）。未認証・テナント未解決の場合はクライアントIPで数えます。
//
// キャッシュが無い（Redis未接続）場合とRedis障害時は素通りします。
// レートリミットで可用性は落とさない方針です。
func ThrottleMiddleware(c *cache.Cache, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			logger := GetLogger(r.Context())

			var companyID, ident string
			if company, err := GetCompanyFromContext(r.Context()); err == nil {
				companyID = company.CompanyID.String()
			}
			if user, err := GetUserFromContext(r.Context()); err == nil {
				ident = user.UserID.String()
			} else {
				ident = "ip:" + webutil.GetClientIP(r)
			}
			key := cache.Key("throttle", companyID, ident)

			count, err := c.Incr(r.Context(), key, window)
			if err != nil {
				logger.Warn("Throttle counter unavailable, passing request through", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(limit) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(limit) {
				logger.Warn("Request throttled", "key", key, "count", count, "limit", limit)
				w.Header().Set("Retry-After", strconv.Itoa(int(window/time.Second)))
				resp := model.APIErrorResponse{Error: model.ErrorDetail{
					Code:    "THROTTLED",
					Message: "リクエストが多すぎます。しばらく待ってから再試行してください。",
				}}
				webutil.RespondWithJSON(w, http.StatusTooManyRequests, resp, logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
