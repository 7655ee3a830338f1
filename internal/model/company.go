package model

import (
	"time"

	"github.com/google/uuid"
)

// Company はマルチテナントの分離単位（テナント）です。
// 全てのリクエストは X-Company-ID ヘッダーのスラッグで所属テナントを指定します。
type Company struct {
	CompanyID uuid.UUID `gorm:"type:uuid;primaryKey" json:"company_id"`
	Name      string    `gorm:"not null" json:"name"`
	Slug      string    `gorm:"unique;not null;index" json:"slug"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`

	// 会社情報（任意項目）
	LegalName string `json:"legal_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `gorm:"type:varchar(2)" json:"state,omitempty"`

	// DPO（データ保護責任者）
	DPOName  string `json:"dpo_name,omitempty"`
	DPOEmail string `json:"dpo_email,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Users []User `gorm:"foreignKey:CompanyID" json:"-"`
}

func (Company) TableName() string {
	return "companies"
}

type ContextKey string

const (
	UserKey    ContextKey = "currentUser"
	CompanyKey ContextKey = "currentCompany"
)

// CreateCompanyRequest は会社作成APIのリクエストボディ (DTO)
type CreateCompanyRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=255"`
	Slug      string `json:"slug" validate:"required,min=1,max=64"`
	LegalName string `json:"legal_name" validate:"omitempty,max=255"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"omitempty,max=20"`
	City      string `json:"city" validate:"omitempty,max=100"`
	State     string `json:"state" validate:"omitempty,len=2"`
	DPOName   string `json:"dpo_name" validate:"omitempty,max=255"`
	DPOEmail  string `json:"dpo_email" validate:"omitempty,email"`
}

// CompanyResponse はクライアントに返す会社情報（公開分のみ）
type CompanyResponse struct {
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsActive  bool      `json:"is_active"`
}

func NewCompanyResponse(c *Company) CompanyResponse {
	return CompanyResponse{
		CompanyID: c.CompanyID,
		Name:      c.Name,
		Slug:      c.Slug,
		IsActive:  c.IsActive,
	}
}
