package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lead のステータス
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusConverted = "converted"
	LeadStatusLost      = "lost"
)

// Lead はテナントスコープのリソースの実例です。
// 必ず CompanyID で絞り込んでアクセスします（他テナントのデータは存在しない扱い）。
type Lead struct {
	LeadID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"lead_id"`
	CompanyID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_leads_company_status;index:idx_leads_company_created" json:"company_id"`
	Name          string         `gorm:"not null" json:"name"`
	Email         string         `gorm:"not null" json:"email"`
	Phone         string         `json:"phone,omitempty"`
	ClientCompany string         `json:"client_company,omitempty"`
	Status        string         `gorm:"type:varchar(20);default:new;index:idx_leads_company_status" json:"status"`
	Notes         string         `json:"notes,omitempty"`
	Source        string         `json:"source,omitempty"`
	CreatedAt     time.Time      `gorm:"index:idx_leads_company_created" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"` // ソフトデリート
}

func (Lead) TableName() string {
	return "leads"
}

// CreateLeadRequest はリード作成APIのリクエストボディ (DTO)
type CreateLeadRequest struct {
	Name          string `json:"name" validate:"required,min=1,max=255"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"omitempty,max=20"`
	ClientCompany string `json:"client_company" validate:"omitempty,max=255"`
	Status        string `json:"status" validate:"omitempty,oneof=new contacted qualified converted lost"`
	Notes         string `json:"notes"`
	Source        string `json:"source" validate:"omitempty,max=100"`
}

// UpdateLeadRequest はリード更新 (PATCH) のリクエストボディ
type UpdateLeadRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Phone         *string `json:"phone" validate:"omitempty,max=20"`
	ClientCompany *string `json:"client_company" validate:"omitempty,max=255"`
	Status        *string `json:"status" validate:"omitempty,oneof=new contacted qualified converted lost"`
	Notes         *string `json:"notes"`
	Source        *string `json:"source" validate:"omitempty,max=100"`
}
