//go:generate mockery --name LeadService --output ./mocks --outpkg mocks --case=underscore
package service

import (
	"context"
	"errors"

	"go_saas_scaffold/internal/middleware"
	"go_saas_scaffold/internal/model"
	"go_saas_scaffold/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LeadService interface {
	List(ctx context.Context, companyID uuid.UUID, params model.ListParams) ([]*model.Lead, int64, error)
	Get(ctx context.Context, companyID, leadID uuid.UUID) (*model.Lead, error)
	Create(ctx context.Context, companyID uuid.UUID, req *model.CreateLeadRequest, meta RequestMeta) (*model.Lead, error)
	Update(ctx context.Context, companyID, leadID uuid.UUID, req *model.UpdateLeadRequest, meta RequestMeta) (*model.Lead, error)
	Delete(ctx context.Context, companyID, leadID uuid.UUID, meta RequestMeta) error
}

type leadService struct {
	db       *gorm.DB
	leadRepo repository.LeadRepository
	audit    AuditRecorder
}

func NewLeadService(db *gorm.DB, leadRepo repository.LeadRepository, audit AuditRecorder) LeadService {
	return &leadService{db: db, leadRepo: leadRepo, audit: audit}
}

func (s *leadService) List(ctx context.Context, companyID uuid.UUID, params model.ListParams) ([]*model.Lead, int64, error) {
	logger := middleware.GetLogger(ctx)
	leads, total, err := s.leadRepo.List(ctx, s.db, companyID, params)
	if err != nil {
		logger.Error("Failed to list leads", "error", err, "company_id", companyID)
		return nil, 0, model.NewAppError("INTERNAL_SERVER_ERROR", "リードの一覧取得に失敗しました。", "", err)
	}
	return leads, total, nil
}

func (s *leadService) Get(ctx context.Context, companyID, leadID uuid.UUID) (*model.Lead, error) {
	logger := middleware.GetLogger(ctx)
	lead, err := s.leadRepo.FindByID(ctx, s.db, companyID, leadID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("LEAD_NOT_FOUND", "リードが見つかりません。", "", model.ErrNotFound)
		}
		logger.Error("Failed to get lead", "error", err, "lead_id", leadID)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "リードの取得に失敗しました。", "", err)
	}
	return lead, nil
}

func (s *leadService) Create(ctx context.Context, companyID uuid.UUID, req *model.CreateLeadRequest, meta RequestMeta) (*model.Lead, error) {
	logger := middleware.GetLogger(ctx)

	status := req.Status
	if status == "" {
		status = model.LeadStatusNew
	}
	lead := &model.Lead{
		LeadID:        uuid.New(),
		CompanyID:     companyID,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		ClientCompany: req.ClientCompany,
		Status:        status,
		Notes:         req.Notes,
		Source:        req.Source,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.leadRepo.Create(ctx, tx, lead)
	})
	if err != nil {
		logger.Error("Failed to create lead", "error", err, "company_id", companyID)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "リードの作成に失敗しました。", "", err)
	}

	var userID *uuid.UUID
	if user, uerr := middleware.GetUserFromContext(ctx); uerr == nil {
		userID = &user.UserID
	}
	s.audit.Record(ctx, AuditEntry{
		CompanyID:   &companyID,
		UserID:      userID,
		Action:      model.AuditActionCreate,
		ModelName:   "leads.Lead",
		ObjectID:    lead.LeadID.String(),
		FieldName:   "email",
		NewValue:    lead.Email,
		DataSubject: lead.Email,
		Meta:        meta,
	})

	logger.Info("Lead created", "lead_id", lead.LeadID, "company_id", companyID)
	return lead, nil
}

// Update はPATCHセマンティクスです。指定されたフィールドだけを更新し、
// 個人データを含むフィールドの変更は1件ずつ監査ログに残します。
func (s *leadService) Update(ctx context.Context, companyID, leadID uuid.UUID, req *model.UpdateLeadRequest, meta RequestMeta) (*model.Lead, error) {
	logger := middleware.GetLogger(ctx)

	before, err := s.Get(ctx, companyID, leadID)
	if err != nil {
		return nil, err
	}

	type fieldChange struct {
		field    string
		old, new string
	}
	updates := map[string]interface{}{}
	var changes []fieldChange

	apply := func(field string, oldVal string, newVal *string) {
		if newVal != nil && *newVal != oldVal {
			updates[field] = *newVal
			changes = append(changes, fieldChange{field: field, old: oldVal, new: *newVal})
		}
	}
	apply("name", before.Name, req.Name)
	apply("email", before.Email, req.Email)
	apply("phone", before.Phone, req.Phone)
	apply("client_company", before.ClientCompany, req.ClientCompany)
	apply("status", before.Status, req.Status)
	apply("notes", before.Notes, req.Notes)
	apply("source", before.Source, req.Source)

	if len(updates) == 0 {
		return before, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.leadRepo.Update(ctx, tx, companyID, leadID, updates)
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("LEAD_NOT_FOUND", "リードが見つかりません。", "", model.ErrNotFound)
		}
		logger.Error("Failed to update lead", "error", err, "lead_id", leadID)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "リードの更新に失敗しました。", "", err)
	}

	var userID *uuid.UUID
	if user, uerr := middleware.GetUserFromContext(ctx); uerr == nil {
		userID = &user.UserID
	}
	for _, ch := range changes {
		s.audit.Record(ctx, AuditEntry{
			CompanyID:   &companyID,
			UserID:      userID,
			Action:      model.AuditActionUpdate,
			ModelName:   "leads.Lead",
			ObjectID:    leadID.String(),
			FieldName:   ch.field,
			OldValue:    ch.old,
			NewValue:    ch.new,
			DataSubject: before.Email,
			Meta:        meta,
		})
	}

	return s.Get(ctx, companyID, leadID)
}

// Delete はソフトデリートです。他テナントのIDを指定しても NotFound になります。
func (s *leadService) Delete(ctx context.Context, companyID, leadID uuid.UUID, meta RequestMeta) error {
	logger := middleware.GetLogger(ctx)

	before, err := s.Get(ctx, companyID, leadID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.leadRepo.Delete(ctx, tx, companyID, leadID)
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.NewAppError("LEAD_NOT_FOUND", "リードが見つかりません。", "", model.ErrNotFound)
		}
		logger.Error("Failed to delete lead", "error", err, "lead_id", leadID)
		return model.NewAppError("INTERNAL_SERVER_ERROR", "リードの削除に失敗しました。", "", err)
	}

	var userID *uuid.UUID
	if user, uerr := middleware.GetUserFromContext(ctx); uerr == nil {
		userID = &user.UserID
	}
	s.audit.Record(ctx, AuditEntry{
		CompanyID:   &companyID,
		UserID:      userID,
		Action:      model.AuditActionDelete,
		ModelName:   "leads.Lead",
		ObjectID:    leadID.String(),
		DataSubject: before.Email,
		Meta:        meta,
	})

	logger.Info("Lead deleted", "lead_id", leadID, "company_id", companyID)
	return nil
}
