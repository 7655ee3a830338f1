// internal/config/constants.go
package config

import "time"

// アプリケーション情報
const (
	AppName    = "saas-scaffold"
	AppVersion = "0.3.0"
)

// デフォルト設定値
const (
	DefaultServerPort     = ":8080"
	DefaultLogLevel       = "info"
	DefaultPageSize       = 25
	MaxPageSize           = 100
	DefaultAccessTokenTTL = 24 * time.Hour
	DefaultCompanyListTTL = 5 * time.Minute

	DefaultThrottleRequests = 100
	DefaultThrottleWindow   = time.Minute
)

// TenantHeader はテナント（会社）スラッグを運ぶHTTPヘッダー名です。
const TenantHeader = "X-Company-ID"
