// internal/handlers/company_handler.go
package handlers

import (
	"log/slog"
	"net/http"

	"go_saas_scaffold/internal/middleware"
	"go_saas_scaffold/internal/model"
	"go_saas_scaffold/internal/service"
	"go_saas_scaffold/internal/webutil"
)

type CompanyHandler struct {
	service service.CompanyService
	logger  *slog.Logger
}

func NewCompanyHandler(s service.CompanyService, logger *slog.Logger) *CompanyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompanyHandler{
		service: s,
		logger:  logger,
	}
}

// ListCompanies は有効な会社の一覧を返します（認証済みなら誰でも参照可）。
// テナント切替UIのための軽量な一覧で、短時間キャッシュされます。
func (h *CompanyHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "ListCompanies"))

	companies, err := h.service.ListActive(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	if companies == nil {
		companies = []model.CompanyResponse{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, companies, logger)
}

// CreateCompany は新しいテナントを登録します。スーパーユーザー専用です。
func (h *CompanyHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "CreateCompany"))

	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	if !user.IsSuperuser {
		logger.Warn("Company creation denied: not a superuser", slog.String("user_id", user.UserID.String()))
		appErr := model.NewAppError("FORBIDDEN", "この操作を行う権限がありません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}

	var req model.CreateCompanyRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_REQUEST_BODY", "リクエストボディの形式が正しくありません。", "", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	if appErr := webutil.ValidateStruct(req); appErr != nil {
		logger.Warn("Validation failed", slog.String("field", appErr.Detail.Field))
		webutil.HandleError(w, logger, appErr)
		return
	}

	company, err := h.service.Create(r.Context(), &req, requestMeta(r))
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Company created successfully", slog.String("company_id", company.CompanyID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, model.NewCompanyResponse(company), logger)
}
