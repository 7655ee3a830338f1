// internal/handlers/lead_handler.go
package handlers

import (
	"log/slog"
	"net/http"

	"go_saas_scaffold/internal/middleware"
	"go_saas_scaffold/internal/model"
	"go_saas_scaffold/internal/service"
	"go_saas_scaffold/internal/webutil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type LeadHandler struct {
	service service.LeadService
	logger  *slog.Logger
}

func NewLeadHandler(s service.LeadService, logger *slog.Logger) *LeadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeadHandler{
		service: s,
		logger:  logger,
	}
}

func requestMeta(r *http.Request) service.RequestMeta {
	return service.RequestMeta{
		IPAddress: webutil.GetClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// ListLeads は検索・フィルタ・並び替え・ページネーション付きの一覧を
// {count, next, previous, results} エンベロープで返します。
func (h *LeadHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "ListLeads"))

	company, err := middleware.GetCompanyFromContext(r.Context())
	if err != nil {
		logger.Warn("Tenant missing in context", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	logger = logger.With(slog.String("company_id", company.CompanyID.String()))

	params := webutil.ParseListParams(r)
	if status := r.URL.Query().Get("status"); status != "" {
		params.Filters = map[string]string{"status": status}
	}

	leads, total, err := h.service.List(r.Context(), company.CompanyID, params)
	if err != nil {
		logger.Error("Error listing leads in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	if leads == nil {
		leads = []*model.Lead{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, webutil.NewListResponse(r, total, params, leads), logger)
}

// GetLead はID指定の1件取得です。他テナントのIDは 404 になります。
func (h *LeadHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetLead"))

	company, err := middleware.GetCompanyFromContext(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	leadID, err := uuid.Parse(chi.URLParam(r, "lead_id"))
	if err != nil {
		logger.Warn("Invalid lead_id format in URL", slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_URL_PARAM", "リードIDの形式が正しくありません。", "lead_id", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	lead, err := h.service.Get(r.Context(), company.CompanyID, leadID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, lead, logger)
}

// CreateLead は新しいリードを作成するためのハンドラ
func (h *LeadHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "CreateLead"))

	company, err := middleware.GetCompanyFromContext(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	logger = logger.With(slog.String("company_id", company.CompanyID.String()))

	var req model.CreateLeadRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_REQUEST_BODY", "リクエストボディの形式が正しくありません。", "", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	if appErr := webutil.ValidateStruct(req); appErr != nil {
		logger.Warn("Validation failed", slog.String("field", appErr.Detail.Field), slog.String("message", appErr.Detail.Message))
		webutil.HandleError(w, logger, appErr)
		return
	}

	lead, err := h.service.Create(r.Context(), company.CompanyID, &req, requestMeta(r))
	if err != nil {
		logger.Error("Error creating lead in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Lead created successfully", slog.String("lead_id", lead.LeadID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, lead, logger)
}

// UpdateLead はPATCHセマンティクスの部分更新です。
func (h *LeadHandler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "UpdateLead"))

	company, err := middleware.GetCompanyFromContext(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	leadID, err := uuid.Parse(chi.URLParam(r, "lead_id"))
	if err != nil {
		logger.Warn("Invalid lead_id format in URL", slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_URL_PARAM", "リードIDの形式が正しくありません。", "lead_id", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	var req model.UpdateLeadRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_REQUEST_BODY", "リクエストボディの形式が正しくありません。", "", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	if appErr := webutil.ValidateStruct(req); appErr != nil {
		logger.Warn("Validation failed", slog.String("field", appErr.Detail.Field), slog.String("message", appErr.Detail.Message))
		webutil.HandleError(w, logger, appErr)
		return
	}

	lead, err := h.service.Update(r.Context(), company.CompanyID, leadID, &req, requestMeta(r))
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Lead updated successfully", slog.String("lead_id", lead.LeadID.String()))
	webutil.RespondWithJSON(w, http.StatusOK, lead, logger)
}

// DeleteLead は成功時 204 No Content を返します。
func (h *LeadHandler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "DeleteLead"))

	company, err := middleware.GetCompanyFromContext(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	leadID, err := uuid.Parse(chi.URLParam(r, "lead_id"))
	if err != nil {
		logger.Warn("Invalid lead_id format in URL", slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_URL_PARAM", "リードIDの形式が正しくありません。", "lead_id", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	if err := h.service.Delete(r.Context(), company.CompanyID, leadID, requestMeta(r)); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Lead deleted successfully", slog.String("lead_id", leadID.String()))
	w.WriteHeader(http.StatusNoContent)
}
