package model

import (
	"time"

	"github.com/google/uuid"
)

// 監査アクション
const (
	AuditActionCreate = "create"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
	AuditActionView   = "view"
)

// AuditLog は個人データの変更を記録する監査ログです。
// 誰が・いつ・何を・どの値からどの値へ変更したかを残します。
type AuditLog struct {
	AuditID   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"audit_id"`
	CompanyID *uuid.UUID `gorm:"type:uuid;index:idx_audit_company_created" json:"company_id,omitempty"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`

	Action    string `gorm:"type:varchar(20);not null" json:"action"`
	ModelName string `gorm:"not null;index:idx_audit_object" json:"model_name"`
	ObjectID  string `gorm:"not null;index:idx_audit_object" json:"object_id"`
	FieldName string `json:"field_name,omitempty"`
	OldValue  string `json:"old_value,omitempty"`
	NewValue  string `json:"new_value,omitempty"`

	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	// 個人データの変更かどうか（データ主体の識別子つき）
	IsPersonalData bool   `gorm:"index" json:"is_personal_data"`
	DataSubject    string `json:"data_subject,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_audit_company_created" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// personalDataFields は個人データとして扱うフィールド名です。
var personalDataFields = map[string]bool{
	"email":      true,
	"phone":      true,
	"name":       true,
	"first_name": true,
	"last_name":  true,
	"address":    true,
	"birth_date": true,
}

// IsPersonalDataField はフィールドが個人データかどうかを判定します。
func IsPersonalDataField(field string) bool {
	return personalDataFields[field]
}
