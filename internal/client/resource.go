package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go_saas_scaffold/internal/webutil"

	"github.com/go-playground/validator/v10"
)

// FieldKind は入力フィールドの種別です。
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldEmail    FieldKind = "email"
	FieldNumber   FieldKind = "number"
	FieldSelect   FieldKind = "select"
	FieldTextarea FieldKind = "textarea"
	FieldDate     FieldKind = "date"
)

// FieldConfig は1入力フィールドの宣言です。Validation は validator/v10 の
// タグ構文（"required,email" など）で書きます。
type FieldConfig struct {
	Name       string
	Label      string
	Kind       FieldKind
	Required   bool
	Validation string
	// Kind == FieldSelect のときの選択肢
	Options []SelectOption
}

type SelectOption struct {
	Value string
	Label string
}

// ColumnConfig は一覧テーブルの1列です。Render を指定すると
// セルの表示を行データから任意に組み立てられます。
type ColumnConfig struct {
	Name   string
	Label  string
	Render func(row map[string]any) string
}

// PermissionKeys はCRUD各動詞に要求される権限キーです。
// 空のキーの動詞は AllowUnlistedActions が true でない限り拒否されます。
type PermissionKeys struct {
	Create string
	View   string
	Update string
	Delete string
}

// ResourceConfig は1エンティティ種別の宣言的な記述子です。
// ビルド時に一度書かれ、実行時には不変として扱います。
type ResourceConfig struct {
	Name       string
	PluralName string
	// Endpoint は末尾スラッシュ無しのAPIパスです（例: "/api/v1/leads"）
	Endpoint    string
	Fields      []FieldConfig
	Columns     []ColumnConfig
	Permissions PermissionKeys
	// AllowUnlistedActions を立てると権限キー未設定の動詞を許可します。
	// 既定は拒否です。
	AllowUnlistedActions bool
	SearchFields         []string
	OrderingFields       []string
	DefaultOrdering      string
	PageSize             int
}

// CurrentUser は権限判定に使う最小限のユーザー像です。
type CurrentUser struct {
	IsSuperuser bool
	Permissions []string
}

func (u *CurrentUser) hasPermission(key string) bool {
	if u == nil {
		return false
	}
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

// ResourceEngine は ResourceConfig に基づいて一覧状態とCRUD操作・権限判定を
// まとめたものです。行は map[string]any として汎用に扱います。
type ResourceEngine struct {
	config ResourceConfig
	client *APIClient
	user   *CurrentUser
	Table  *TableState[map[string]any]
}

func NewResourceEngine(cfg ResourceConfig, c *APIClient, user *CurrentUser) *ResourceEngine {
	pageSize := cfg.PageSize
	if pageSize < 1 {
		pageSize = 25
	}
	table := NewTableState[map[string]any](c, cfg.Endpoint, pageSize,
		WithSearchable[map[string]any](len(cfg.SearchFields) > 0),
		WithOrdering[map[string]any](cfg.DefaultOrdering),
	)
	return &ResourceEngine{
		config: cfg,
		client: c,
		user:   user,
		Table:  table,
	}
}

func (e *ResourceEngine) Config() ResourceConfig {
	return e.config
}

func (e *ResourceEngine) detailPath(id string) string {
	return strings.TrimRight(e.config.Endpoint, "/") + "/" + id + "/"
}

// Create はPOSTで作成し、成功時に一覧を取り直します。失敗してもリトライしません。
func (e *ResourceEngine) Create(ctx context.Context, values map[string]any) (map[string]any, error) {
	if !e.CanCreate() {
		return nil, &APIError{StatusCode: 403, Code: "FORBIDDEN", Message: "この操作を行う権限がありません。"}
	}
	if err := e.Validate(values); err != nil {
		return nil, err
	}
	var created map[string]any
	if err := e.client.Post(ctx, e.config.Endpoint, values, &created); err != nil {
		return nil, err
	}
	if err := e.Table.Fetch(ctx); err != nil {
		return created, err
	}
	return created, nil
}

// Update はPATCHセマンティクスの部分更新です。成功時に一覧を取り直します。
// 含まれているフィールドだけを送信前に検証します（未指定のフィールドは
// 必須であっても検証しない）。
func (e *ResourceEngine) Update(ctx context.Context, id string, values map[string]any) (map[string]any, error) {
	if !e.CanUpdate() {
		return nil, &APIError{StatusCode: 403, Code: "FORBIDDEN", Message: "この操作を行う権限がありません。"}
	}
	if err := e.ValidatePartial(values); err != nil {
		return nil, err
	}
	var updated map[string]any
	if err := e.client.Patch(ctx, e.detailPath(id), values, &updated); err != nil {
		return nil, err
	}
	if err := e.Table.Fetch(ctx); err != nil {
		return updated, err
	}
	return updated, nil
}

// Remove はDELETEし、成功時に一覧を取り直します。
func (e *ResourceEngine) Remove(ctx context.Context, id string) error {
	if !e.CanDelete() {
		return &APIError{StatusCode: 403, Code: "FORBIDDEN", Message: "この操作を行う権限がありません。"}
	}
	if err := e.client.Delete(ctx, e.detailPath(id)); err != nil {
		return err
	}
	return e.Table.Fetch(ctx)
}

// Get は1件取得です。
func (e *ResourceEngine) Get(ctx context.Context, id string) (map[string]any, error) {
	if !e.CanView() {
		return nil, &APIError{StatusCode: 403, Code: "FORBIDDEN", Message: "この操作を行う権限がありません。"}
	}
	var item map[string]any
	if err := e.client.Get(ctx, e.detailPath(id), nil, &item); err != nil {
		return nil, err
	}
	return item, nil
}

// can は権限キーの有無と AllowUnlistedActions を踏まえて判定します。
// キー未設定の動詞は既定で拒否です。スーパーユーザーは常に許可されます。
func (e *ResourceEngine) can(key string) bool {
	if e.user != nil && e.user.IsSuperuser {
		return true
	}
	if key == "" {
		return e.config.AllowUnlistedActions
	}
	return e.user.hasPermission(key)
}

func (e *ResourceEngine) CanCreate() bool { return e.can(e.config.Permissions.Create) }
func (e *ResourceEngine) CanView() bool   { return e.can(e.config.Permissions.View) }
func (e *ResourceEngine) CanUpdate() bool { return e.can(e.config.Permissions.Update) }
func (e *ResourceEngine) CanDelete() bool { return e.can(e.config.Permissions.Delete) }

// ルートヘルパー。リソース名から慣習的な画面パスを組み立てるだけの便宜です。
func (e *ResourceEngine) ListRoute() string   { return "/" + e.config.PluralName }
func (e *ResourceEngine) CreateRoute() string { return "/" + e.config.PluralName + "/new" }
func (e *ResourceEngine) DetailRoute(id string) string {
	return "/" + e.config.PluralName + "/" + id
}
func (e *ResourceEngine) EditRoute(id string) string {
	return "/" + e.config.PluralName + "/" + id + "/edit"
}

// FieldError はフィールド単位のバリデーション違反です。
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate は送信前にフィールド宣言のルールを適用し、最初に違反した
// フィールドのエラーを返します。作成時用で、必須フィールドの欠落も違反です。
func (e *ResourceEngine) Validate(values map[string]any) error {
	return e.validateFields(values, false)
}

// ValidatePartial は部分更新（PATCH）用の検証です。含まれていない
// フィールドは必須チェックを含めてスキップし、含まれているフィールドに
// だけルールを適用します。
func (e *ResourceEngine) ValidatePartial(values map[string]any) error {
	return e.validateFields(values, true)
}

func (e *ResourceEngine) validateFields(values map[string]any, partial bool) error {
	for _, field := range e.config.Fields {
		value, present := values[field.Name]

		if !present {
			if field.Required && !partial {
				return &FieldError{Field: field.Name, Message: field.Label + "は必須です。"}
			}
			continue
		}
		// 必須フィールドを空値で上書きすることはできない
		if field.Required && (value == nil || value == "") {
			return &FieldError{Field: field.Name, Message: field.Label + "は必須です。"}
		}
		if field.Validation == "" {
			continue
		}

		if err := webutil.Validator.Var(value, field.Validation); err != nil {
			var validationErrors validator.ValidationErrors
			message := field.Label + "の形式が正しくありません。"
			if ok := errors.As(err, &validationErrors); ok && len(validationErrors) > 0 {
				message = field.Label + "は" + validationErrors[0].Tag() + "の制約を満たしていません。"
			}
			return &FieldError{Field: field.Name, Message: message}
		}
	}
	return nil
}
