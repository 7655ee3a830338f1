//go:generate mockery --name LeadRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go_saas_scaffold/internal/middleware"
	"go_saas_scaffold/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// leadOrderings はordering パラメータの許可リストです。
// ここに無いキーは黙って既定の並び順に落とします。
var leadOrderings = map[string]string{
	"name":       "name",
	"email":      "email",
	"status":     "status",
	"created_at": "created_at",
}

const leadDefaultOrdering = "created_at DESC"

type LeadRepository interface {
	Create(ctx context.Context, tx *gorm.DB, lead *model.Lead) error
	FindByID(ctx context.Context, db *gorm.DB, companyID, leadID uuid.UUID) (*model.Lead, error)
	List(ctx context.Context, db *gorm.DB, companyID uuid.UUID, params model.ListParams) ([]*model.Lead, int64, error)
	Update(ctx context.Context, tx *gorm.DB, companyID, leadID uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, companyID, leadID uuid.UUID) error
}

type gormLeadRepository struct{}

func NewGormLeadRepository() LeadRepository {
	return &gormLeadRepository{}
}

func (r *gormLeadRepository) Create(ctx context.Context, tx *gorm.DB, lead *model.Lead) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(lead)
	if result.Error != nil {
		logger.Error("Error creating lead in DB",
			"error", result.Error,
			"company_id", lead.CompanyID.String(),
		)
		return fmt.Errorf("gormLeadRepository.Create: %w", result.Error)
	}
	return nil
}

// FindByID は必ず company_id で絞り込みます。他テナントのIDを指定しても
// ErrNotFound になります（IDOR対策、存在の有無も漏らさない）。
func (r *gormLeadRepository) FindByID(ctx context.Context, db *gorm.DB, companyID, leadID uuid.UUID) (*model.Lead, error) {
	logger := middleware.GetLogger(ctx)
	var lead model.Lead
	result := db.WithContext(ctx).Where("company_id = ? AND lead_id = ?", companyID, leadID).First(&lead)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding lead by ID in DB",
			"error", result.Error,
			"company_id", companyID.String(),
			"lead_id", leadID.String(),
		)
		return nil, fmt.Errorf("gormLeadRepository.FindByID: %w", result.Error)
	}
	return &lead, nil
}

// List は検索・フィルタ・並び替え・ページネーションを適用した一覧と総件数を返します。
func (r *gormLeadRepository) List(ctx context.Context, db *gorm.DB, companyID uuid.UUID, params model.ListParams) ([]*model.Lead, int64, error) {
	logger := middleware.GetLogger(ctx)

	query := db.WithContext(ctx).Model(&model.Lead{}).Where("company_id = ?", companyID)

	if status := params.Filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}

	if params.Search != "" {
		// LOWER + LIKE はPostgres/SQLite双方で動く
		pattern := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(client_company) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if result := query.Count(&total); result.Error != nil {
		logger.Error("Error counting leads in DB",
			"error", result.Error,
			"company_id", companyID.String(),
		)
		return nil, 0, fmt.Errorf("gormLeadRepository.List(count): %w", result.Error)
	}

	order := leadDefaultOrdering
	if params.Ordering != "" {
		key := params.Ordering
		desc := strings.HasPrefix(key, "-")
		if desc {
			key = key[1:]
		}
		if column, ok := leadOrderings[key]; ok {
			if desc {
				order = column + " DESC"
			} else {
				order = column + " ASC"
			}
		}
	}

	var leads []*model.Lead
	result := query.Order(order).Offset(params.Offset()).Limit(params.PageSize).Find(&leads)
	if result.Error != nil {
		logger.Error("Error listing leads in DB",
			"error", result.Error,
			"company_id", companyID.String(),
		)
		return nil, 0, fmt.Errorf("gormLeadRepository.List: %w", result.Error)
	}
	return leads, total, nil
}

func (r *gormLeadRepository) Update(ctx context.Context, tx *gorm.DB, companyID, leadID uuid.UUID, updates map[string]interface{}) error {
	logger := middleware.GetLogger(ctx)
	if len(updates) == 0 {
		return nil
	}
	result := tx.WithContext(ctx).Model(&model.Lead{}).
		Where("company_id = ? AND lead_id = ?", companyID, leadID).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Error updating lead in DB",
			"error", result.Error,
			"company_id", companyID.String(),
			"lead_id", leadID.String(),
		)
		return fmt.Errorf("gormLeadRepository.Update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Delete はソフトデリートです (gorm.DeletedAt)。
func (r *gormLeadRepository) Delete(ctx context.Context, tx *gorm.DB, companyID, leadID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Where("company_id = ? AND lead_id = ?", companyID, leadID).Delete(&model.Lead{})
	if result.Error != nil {
		logger.Error("Error deleting lead in DB",
			"error", result.Error,
			"company_id", companyID.String(),
			"lead_id", leadID.String(),
		)
		return fmt.Errorf("gormLeadRepository.Delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}
