//go:generate mockery --name CompanyRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"

	"go_saas_scaffold/internal/middleware"
	"go_saas_scaffold/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type CompanyRepository interface {
	Create(ctx context.Context, db *gorm.DB, company *model.Company) error
	FindByID(ctx context.Context, db *gorm.DB, companyID uuid.UUID) (*model.Company, error)
	FindActiveBySlug(ctx context.Context, db *gorm.DB, slug string) (*model.Company, error)
	ListActive(ctx context.Context, db *gorm.DB) ([]*model.Company, error)
	Update(ctx context.Context, db *gorm.DB, companyID uuid.UUID, updates map[string]interface{}) error
}

type gormCompanyRepository struct{}

func NewGormCompanyRepository() CompanyRepository {
	return &gormCompanyRepository{}
}

func (r *gormCompanyRepository) Create(ctx context.Context, db *gorm.DB, company *model.Company) error {
	logger := middleware.GetLogger(ctx)

	result := db.WithContext(ctx).Create(company)
	if result.Error != nil {
		var pgErr *pgconn.PgError
		if errors.As(result.Error, &pgErr) && pgErr.Code == "23505" {
			logger.Warn("Duplicate key error on create company",
				"error", result.Error,
				"slug", company.Slug,
			)
			return model.ErrConflict
		}
		logger.Error("Error creating company in DB",
			"error", result.Error,
			"slug", company.Slug,
		)
		return fmt.Errorf("gormCompanyRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormCompanyRepository) FindByID(ctx context.Context, db *gorm.DB, companyID uuid.UUID) (*model.Company, error) {
	logger := middleware.GetLogger(ctx)
	var company model.Company

	result := db.WithContext(ctx).Where("company_id = ?", companyID).First(&company)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding company by ID in DB",
			"error", result.Error,
			"company_id", companyID.String(),
		)
		return nil, fmt.Errorf("gormCompanyRepository.FindByID: %w", result.Error)
	}
	return &company, nil
}

// FindActiveBySlug は有効な会社のみを対象にスラッグで検索します。
// 無効化された会社はテナント解決の対象外です。
func (r *gormCompanyRepository) FindActiveBySlug(ctx context.Context, db *gorm.DB, slug string) (*model.Company, error) {
	logger := middleware.GetLogger(ctx)
	var company model.Company

	result := db.WithContext(ctx).Where("slug = ? AND is_active = ?", slug, true).First(&company)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			logger.Debug("Active company not found by slug", "slug", slug)
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding company by slug in DB",
			"error", result.Error,
			"slug", slug,
		)
		return nil, fmt.Errorf("gormCompanyRepository.FindActiveBySlug: %w", result.Error)
	}
	return &company, nil
}

func (r *gormCompanyRepository) ListActive(ctx context.Context, db *gorm.DB) ([]*model.Company, error) {
	logger := middleware.GetLogger(ctx)
	var companies []*model.Company

	result := db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&companies)
	if result.Error != nil {
		logger.Error("Error listing active companies in DB", "error", result.Error)
		return nil, fmt.Errorf("gormCompanyRepository.ListActive: %w", result.Error)
	}
	return companies, nil
}

func (r *gormCompanyRepository) Update(ctx context.Context, db *gorm.DB, companyID uuid.UUID, updates map[string]interface{}) error {
	logger := middleware.GetLogger(ctx)
	if len(updates) == 0 {
		return nil
	}
	result := db.WithContext(ctx).Model(&model.Company{}).Where("company_id = ?", companyID).Updates(updates)
	if result.Error != nil {
		logger.Error("Error updating company in DB",
			"error", result.Error,
			"company_id", companyID.String(),
		)
		return fmt.Errorf("gormCompanyRepository.Update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}
