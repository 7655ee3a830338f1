package service

import (
	"context"
	"errors"
	"regexp"

	"go_saas_scaffold/internal/cache"
	"go_saas_scaffold/internal/config"
	"go_saas_scaffold/internal/middleware"
	"go_saas_scaffold/internal/model"
	"go_saas_scaffold/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const companyListCacheKey = "companies_list"

var companySlugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type CompanyService interface {
	ListActive(ctx context.Context) ([]model.CompanyResponse, error)
	Create(ctx context.Context, req *model.CreateCompanyRequest, meta RequestMeta) (*model.Company, error)
	// ResolveSlug / ResolveID は middleware.CompanyResolver の実装です
	ResolveSlug(ctx context.Context, slug string) (*model.Company, error)
	ResolveID(ctx context.Context, companyID uuid.UUID) (*model.Company, error)
}

type companyService struct {
	db          *gorm.DB
	companyRepo repository.CompanyRepository
	cache       *cache.Cache
	audit       AuditRecorder
	cfg         *config.Config
}

func NewCompanyService(db *gorm.DB, companyRepo repository.CompanyRepository, c *cache.Cache, audit AuditRecorder, cfg *config.Config) CompanyService {
	return &companyService{
		db:          db,
		companyRepo: companyRepo,
		cache:       c,
		audit:       audit,
		cfg:         cfg,
	}
}

// ListActive は有効な会社の一覧を返します。一覧は全テナント共通なので
// グローバルキーで短時間キャッシュします。
func (s *companyService) ListActive(ctx context.Context) ([]model.CompanyResponse, error) {
	logger := middleware.GetLogger(ctx)

	fetch := func() (any, error) {
		companies, err := s.companyRepo.ListActive(ctx, s.db)
		if err != nil {
			return nil, err
		}
		responses := make([]model.CompanyResponse, 0, len(companies))
		for _, c := range companies {
			responses = append(responses, model.NewCompanyResponse(c))
		}
		return responses, nil
	}

	var responses []model.CompanyResponse
	if s.cache != nil {
		key := cache.Key(companyListCacheKey, "")
		if err := s.cache.GetOrSetJSON(ctx, key, s.cfg.Cache.CompanyListTTL, &responses, fetch); err != nil {
			logger.Error("Failed to list companies", "error", err)
			return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "会社一覧の取得に失敗しました。", "", err)
		}
		return responses, nil
	}

	result, err := fetch()
	if err != nil {
		logger.Error("Failed to list companies", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "会社一覧の取得に失敗しました。", "", err)
	}
	return result.([]model.CompanyResponse), nil
}

// Create は新しい会社（テナント）を登録します。スーパーユーザー専用で、
// 呼び出し権限のチェックはハンドラ層が行います。
func (s *companyService) Create(ctx context.Context, req *model.CreateCompanyRequest, meta RequestMeta) (*model.Company, error) {
	logger := middleware.GetLogger(ctx)

	if !companySlugPattern.MatchString(req.Slug) {
		return nil, model.NewAppError("INVALID_SLUG", "スラッグは英小文字・数字・ハイフンのみ使用できます。", "slug", model.ErrInvalidInput)
	}

	company := &model.Company{
		CompanyID: uuid.New(),
		Name:      req.Name,
		Slug:      req.Slug,
		IsActive:  true,
		LegalName: req.LegalName,
		Email:     req.Email,
		Phone:     req.Phone,
		City:      req.City,
		State:     req.State,
		DPOName:   req.DPOName,
		DPOEmail:  req.DPOEmail,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.companyRepo.Create(ctx, tx, company)
	})
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			logger.Warn("Company slug already exists", "slug", req.Slug)
			return nil, model.NewAppError("DUPLICATE_SLUG", "このスラッグは既に使用されています。", "slug", model.ErrConflict)
		}
		logger.Error("Failed to create company", "error", err, "slug", req.Slug)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "会社の作成に失敗しました。", "", err)
	}

	// 一覧キャッシュを無効化（次のListActiveで再構築される）
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, cache.Key(companyListCacheKey, "")); err != nil {
			logger.Warn("Failed to invalidate company list cache", "error", err)
		}
	}

	var userID *uuid.UUID
	if user, err := middleware.GetUserFromContext(ctx); err == nil {
		userID = &user.UserID
	}
	s.audit.Record(ctx, AuditEntry{
		CompanyID: &company.CompanyID,
		UserID:    userID,
		Action:    model.AuditActionCreate,
		ModelName: "companies.Company",
		ObjectID:  company.CompanyID.String(),
		NewValue:  company.Slug,
		Meta:      meta,
	})

	logger.Info("Company created", "company_id", company.CompanyID, "slug", company.Slug)
	return company, nil
}

func (s *companyService) ResolveSlug(ctx context.Context, slug string) (*model.Company, error) {
	return s.companyRepo.FindActiveBySlug(ctx, s.db, slug)
}

// ResolveID はユーザーの所属会社へのピン留めに使います。無効化された会社は
// 解決しません。
func (s *companyService) ResolveID(ctx context.Context, companyID uuid.UUID) (*model.Company, error) {
	company, err := s.companyRepo.FindByID(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}
	if !company.IsActive {
		return nil, model.ErrNotFound
	}
	return company, nil
}
