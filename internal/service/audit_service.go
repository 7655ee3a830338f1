package service

import (
	"context"
	"fmt"

	"go_saas_scaffold/internal/middleware"
	"go_saas_scaffold/internal/model"
	"go_saas_scaffold/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestMeta は監査ログに残すリクエスト情報です。ハンドラ層で抽出します。
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuditEntry は1件の監査イベントです。
type AuditEntry struct {
	CompanyID *uuid.UUID
	UserID    *uuid.UUID
	Action    string
	ModelName string
	ObjectID  string
	FieldName string
	OldValue  any
	NewValue  any
	// 個人データの場合のデータ主体 (通常はメールアドレス)
	DataSubject string
	Meta        RequestMeta
}

// AuditRecorder は監査イベントを記録します。
// 監査の失敗は呼び出し元の処理を失敗させません（ログに残すのみ）。
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type auditService struct {
	db        *gorm.DB
	auditRepo repository.AuditRepository
}

func NewAuditService(db *gorm.DB, auditRepo repository.AuditRepository) AuditRecorder {
	return &auditService{db: db, auditRepo: auditRepo}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) {
	logger := middleware.GetLogger(ctx)

	isPersonal := entry.FieldName != "" && model.IsPersonalDataField(entry.FieldName)
	dataSubject := ""
	if isPersonal {
		dataSubject = entry.DataSubject
	}

	log := &model.AuditLog{
		AuditID:        uuid.New(),
		CompanyID:      entry.CompanyID,
		UserID:         entry.UserID,
		Action:         entry.Action,
		ModelName:      entry.ModelName,
		ObjectID:       entry.ObjectID,
		FieldName:      entry.FieldName,
		OldValue:       serializeValue(entry.OldValue),
		NewValue:       serializeValue(entry.NewValue),
		IPAddress:      entry.Meta.IPAddress,
		UserAgent:      truncate(entry.Meta.UserAgent, 500),
		IsPersonalData: isPersonal,
		DataSubject:    dataSubject,
	}

	if err := s.auditRepo.Create(ctx, s.db, log); err != nil {
		// 監査の失敗でアプリケーションを止めない
		logger.Warn("Failed to write audit log",
			"error", err,
			"action", entry.Action,
			"model_name", entry.ModelName,
			"object_id", entry.ObjectID,
		)
	}
}

func serializeValue(v any) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
