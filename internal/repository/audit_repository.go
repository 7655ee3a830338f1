//go:generate mockery --name AuditRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"fmt"

	"go_saas_scaffold/internal/middleware"
	"go_saas_scaffold/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditRepository interface {
	Create(ctx context.Context, db *gorm.DB, entry *model.AuditLog) error
	ListByCompany(ctx context.Context, db *gorm.DB, companyID uuid.UUID, params model.ListParams) ([]*model.AuditLog, int64, error)
}

type gormAuditRepository struct{}

func NewGormAuditRepository() AuditRepository {
	return &gormAuditRepository{}
}

func (r *gormAuditRepository) Create(ctx context.Context, db *gorm.DB, entry *model.AuditLog) error {
	logger := middleware.GetLogger(ctx)
	result := db.WithContext(ctx).Create(entry)
	if result.Error != nil {
		logger.Error("Error creating audit log in DB",
			"error", result.Error,
			"model_name", entry.ModelName,
			"object_id", entry.ObjectID,
		)
		return fmt.Errorf("gormAuditRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormAuditRepository) ListByCompany(ctx context.Context, db *gorm.DB, companyID uuid.UUID, params model.ListParams) ([]*model.AuditLog, int64, error) {
	logger := middleware.GetLogger(ctx)

	query := db.WithContext(ctx).Model(&model.AuditLog{}).Where("company_id = ?", companyID)

	var total int64
	if result := query.Count(&total); result.Error != nil {
		logger.Error("Error counting audit logs in DB", "error", result.Error)
		return nil, 0, fmt.Errorf("gormAuditRepository.ListByCompany(count): %w", result.Error)
	}

	var entries []*model.AuditLog
	result := query.Order("created_at DESC").Offset(params.Offset()).Limit(params.PageSize).Find(&entries)
	if result.Error != nil {
		logger.Error("Error listing audit logs in DB", "error", result.Error)
		return nil, 0, fmt.Errorf("gormAuditRepository.ListByCompany: %w", result.Error)
	}
	return entries, total, nil
}
