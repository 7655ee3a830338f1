package middleware

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"go_saas_scaffold/internal/config"
	"go_saas_scaffold/internal/model"
	"go_saas_scaffold/internal/webutil"

	"github.com/google/uuid"
)

// CompanyResolver はスラッグから有効な会社を解決します。
// 実装は service 層（CompanyService）が担います。
type CompanyResolver interface {
	ResolveSlug(ctx context.Context, slug string) (*model.Company, error)
	ResolveID(ctx context.Context, companyID uuid.UUID) (*model.Company, error)
}

// slugPattern は許可するスラッグ形式です。大文字・記号・空白は受け付けません。
// パストラバーサルやスクリプト片のような値はここで落ちます。
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// CompanyMiddleware は X-Company-ID ヘッダーのスラッグからテナントを解決し、
// コンテキストに格納します。認証ミドルウェアの後段で使う前提です。
//
// 解決ルール:
//   - ヘッダーが無い場合、一般ユーザーは自分の所属会社に固定される
//   - 一般ユーザーが他社のスラッグを指定した場合は 403
//   - スーパーユーザーは任意の有効な会社に切り替えられる
//   - 不正な形式・存在しない・無効な会社は「テナント無し」として扱う
//     （テナント必須のハンドラは RequireCompany で 403 を返す）
func CompanyMiddleware(resolver CompanyResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := GetLogger(r.Context())
			ctx := r.Context()

			user, _ := GetUserFromContext(ctx)

			slug := strings.TrimSpace(r.Header.Get(config.TenantHeader))

			var company *model.Company
			if slug != "" {
				if !slugPattern.MatchString(slug) {
					logger.Warn("Tenant header rejected: invalid slug format", "slug", slug)
				} else {
					resolved, err := resolver.ResolveSlug(ctx, slug)
					switch {
					case err == nil:
						company = resolved
					case errors.Is(err, model.ErrNotFound):
						logger.Warn("Tenant header rejected: company not found or inactive", "slug", slug)
					default:
						logger.Error("Error resolving company from header", "slug", slug, "error", err)
						webutil.HandleError(w, logger, err)
						return
					}
				}
			}

			if user != nil && !user.IsSuperuser {
				if company != nil && (user.CompanyID == nil || *user.CompanyID != company.CompanyID) {
					// 一般ユーザーによる他テナントの指定は拒否
					logger.Warn("Tenant access denied: user pinned to another company",
						"user_id", user.UserID.String(), "requested_slug", slug)
					appErr := model.NewAppError("COMPANY_FORBIDDEN", "指定されたテナントへのアクセス権がありません。", "", model.ErrForbidden)
					webutil.HandleError(w, logger, appErr)
					return
				}
				if company == nil && user.CompanyID != nil && slug == "" {
					// ヘッダー無しなら所属会社に固定
					own, err := resolver.ResolveID(ctx, *user.CompanyID)
					if err == nil {
						company = own
					}
				}
			}

			if company != nil {
				ctx = context.WithValue(ctx, model.CompanyKey, company)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCompany はテナント必須のエンドポイントを保護します。
func RequireCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := GetLogger(r.Context())
		if _, err := GetCompanyFromContext(r.Context()); err != nil {
			logger.Warn("Request rejected: no tenant in context", "path", r.URL.Path)
			webutil.HandleError(w, logger, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetCompanyFromContext は現在のテナントをコンテキストから取得します。
func GetCompanyFromContext(ctx context.Context) (*model.Company, error) {
	company, ok := ctx.Value(model.CompanyKey).(*model.Company)
	if !ok || company == nil {
		return nil, model.NewAppError("COMPANY_REQUIRED", "テナントが指定されていません。", "", model.ErrCompanyNotFound)
	}
	return company, nil
}
