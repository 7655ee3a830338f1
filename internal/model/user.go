package model

import (
	"time"

	"github.com/google/uuid"
)

// User はログイン可能なユーザーです。メールアドレスが認証キーになります。
// CompanyID が nil のユーザーはどのテナントにも所属しません（スーパーユーザー用）。
type User struct {
	UserID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	Email        string     `gorm:"unique;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	IsSuperuser  bool       `gorm:"default:false" json:"is_superuser"`
	CompanyID    *uuid.UUID `gorm:"type:uuid;index" json:"company_id,omitempty"`

	// 許可された操作キーの一覧 (例: "leads.delete")
	Permissions []string `gorm:"serializer:json" json:"permissions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// HasPermission は許可キーの有無を確認します。スーパーユーザーは常に true。
func (u *User) HasPermission(key string) bool {
	if u.IsSuperuser {
		return true
	}
	for _, p := range u.Permissions {
		if p == key {
			return true
		}
	}
	return false
}

// RegisterRequest は新規登録APIのリクエストボディ (DTO)
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	FirstName   string `json:"first_name" validate:"required,min=1,max=150"`
	LastName    string `json:"last_name" validate:"required,min=1,max=150"`
	CompanySlug string `json:"company_slug" validate:"omitempty,max=64"`
}

// LoginRequest はログインAPIのリクエストボディ
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse はログイン成功時のレスポンス
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// UpdateProfileRequest はプロフィール更新 (PATCH) のリクエストボディ。
// 未指定フィールドを区別するためポインタで受けます。
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=150"`
}

// UserResponse はクライアントに返すユーザー情報
type UserResponse struct {
	UserID      uuid.UUID  `json:"user_id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	IsSuperuser bool       `json:"is_superuser"`
	CompanyID   *uuid.UUID `json:"company_id,omitempty"`
	Permissions []string   `json:"permissions"`
	CreatedAt   time.Time  `json:"created_at"`
}

func NewUserResponse(u *User) UserResponse {
	perms := u.Permissions
	if perms == nil {
		perms = []string{}
	}
	return UserResponse{
		UserID:      u.UserID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsSuperuser: u.IsSuperuser,
		CompanyID:   u.CompanyID,
		Permissions: perms,
		CreatedAt:   u.CreatedAt,
	}
}
