// internal/service/lead_service_test.go
package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"go_saas_scaffold/internal/model"
	"go_saas_scaffold/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// テストごとに独立したインメモリDB（コネクションプール間では共有する）
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Company{}, &model.User{}, &model.Lead{}, &model.AuditLog{}))
	return db
}

func newTestLeadService(t *testing.T) (LeadService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	auditSvc := NewAuditService(db, repository.NewGormAuditRepository())
	return NewLeadService(db, repository.NewGormLeadRepository(), auditSvc), db
}

func seedLead(t *testing.T, db *gorm.DB, companyID uuid.UUID, name, email, clientCompany, status string) *model.Lead {
	t.Helper()
	lead := &model.Lead{
		LeadID:        uuid.New(),
		CompanyID:     companyID,
		Name:          name,
		Email:         email,
		ClientCompany: clientCompany,
		Status:        status,
	}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

func TestLeadService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestLeadService(t)
	companyID := uuid.New()

	created, err := svc.Create(ctx, companyID, &model.CreateLeadRequest{
		Name:  "山田 太郎",
		Email: "yamada@example.com",
	}, RequestMeta{IPAddress: "10.0.0.1", UserAgent: "test-agent"})
	require.NoError(t, err)
	assert.Equal(t, companyID, created.CompanyID)
	// ステータス未指定は new になる
	assert.Equal(t, model.LeadStatusNew, created.Status)

	got, err := svc.Get(ctx, companyID, created.LeadID)
	require.NoError(t, err)
	assert.Equal(t, "yamada@example.com", got.Email)

	// 作成は監査ログに個人データとして残る
	var logs []model.AuditLog
	require.NoError(t, db.Where("model_name = ?", "leads.Lead").Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditActionCreate, logs[0].Action)
	assert.True(t, logs[0].IsPersonalData)
	assert.Equal(t, "yamada@example.com", logs[0].DataSubject)
	assert.Equal(t, "10.0.0.1", logs[0].IPAddress)
}

func TestLeadService_CrossTenantAccessIsNotFound(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestLeadService(t)

	companyA := uuid.New()
	companyB := uuid.New()
	lead := seedLead(t, db, companyA, "A社のリード", "a@example.com", "", model.LeadStatusNew)

	// 他テナントのIDを指定しても存在の有無を漏らさず 404 相当
	_, err := svc.Get(ctx, companyB, lead.LeadID)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = svc.Update(ctx, companyB, lead.LeadID, &model.UpdateLeadRequest{}, RequestMeta{})
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = svc.Delete(ctx, companyB, lead.LeadID, RequestMeta{})
	assert.ErrorIs(t, err, model.ErrNotFound)

	// 正しいテナントからは見える
	got, err := svc.Get(ctx, companyA, lead.LeadID)
	require.NoError(t, err)
	assert.Equal(t, lead.LeadID, got.LeadID)
}

func TestLeadService_List(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestLeadService(t)
	companyID := uuid.New()
	otherCompany := uuid.New()

	seedLead(t, db, companyID, "Alice", "alice@example.com", "Acme", model.LeadStatusNew)
	seedLead(t, db, companyID, "Bob", "bob@example.com", "Globex", model.LeadStatusContacted)
	seedLead(t, db, companyID, "Carol", "carol@example.com", "Acme", model.LeadStatusNew)
	seedLead(t, db, otherCompany, "Mallory", "mallory@example.com", "Evil", model.LeadStatusNew)

	t.Run("正常系: 他テナントの行は含まれない", func(t *testing.T) {
		leads, total, err := svc.List(ctx, companyID, model.ListParams{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		for _, lead := range leads {
			assert.Equal(t, companyID, lead.CompanyID)
		}
	})

	t.Run("正常系: 名前・メール・顧客企業を横断して検索", func(t *testing.T) {
		_, total, err := svc.List(ctx, companyID, model.ListParams{Page: 1, PageSize: 10, Search: "acme"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)

		_, total, err = svc.List(ctx, companyID, model.ListParams{Page: 1, PageSize: 10, Search: "bob@"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("正常系: ステータスで絞り込み", func(t *testing.T) {
		_, total, err := svc.List(ctx, companyID, model.ListParams{
			Page: 1, PageSize: 10,
			Filters: map[string]string{"status": model.LeadStatusContacted},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("正常系: 許可リスト内の並び替え", func(t *testing.T) {
		leads, _, err := svc.List(ctx, companyID, model.ListParams{Page: 1, PageSize: 10, Ordering: "name"})
		require.NoError(t, err)
		require.Len(t, leads, 3)
		assert.Equal(t, "Alice", leads[0].Name)

		leads, _, err = svc.List(ctx, companyID, model.ListParams{Page: 1, PageSize: 10, Ordering: "-name"})
		require.NoError(t, err)
		assert.Equal(t, "Carol", leads[0].Name)
	})

	t.Run("正常系: 許可リスト外の並び替えキーは既定の並び順に落ちる", func(t *testing.T) {
		_, _, err := svc.List(ctx, companyID, model.ListParams{Page: 1, PageSize: 10, Ordering: "password_hash"})
		require.NoError(t, err)
	})

	t.Run("正常系: ページネーション", func(t *testing.T) {
		leads, total, err := svc.List(ctx, companyID, model.ListParams{Page: 2, PageSize: 2, Ordering: "name"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, leads, 1)
		assert.Equal(t, "Carol", leads[0].Name)
	})
}

func TestLeadService_UpdateRecordsFieldAudits(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestLeadService(t)
	companyID := uuid.New()
	lead := seedLead(t, db, companyID, "Before", "before@example.com", "", model.LeadStatusNew)

	newName := "After"
	newStatus := model.LeadStatusQualified
	updated, err := svc.Update(ctx, companyID, lead.LeadID, &model.UpdateLeadRequest{
		Name:   &newName,
		Status: &newStatus,
	}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Name)
	assert.Equal(t, model.LeadStatusQualified, updated.Status)
	// 指定しなかったフィールドは変わらない
	assert.Equal(t, "before@example.com", updated.Email)

	// 変更フィールドごとに監査ログが1件ずつ残る
	var logs []model.AuditLog
	require.NoError(t, db.Where("action = ?", model.AuditActionUpdate).Order("field_name").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, "name", logs[0].FieldName)
	assert.Equal(t, "Before", logs[0].OldValue)
	assert.Equal(t, "After", logs[0].NewValue)
	// name は個人データ扱い
	assert.True(t, logs[0].IsPersonalData)
	assert.Equal(t, "status", logs[1].FieldName)
	assert.False(t, logs[1].IsPersonalData)
}

func TestLeadService_UpdateNoChangesIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestLeadService(t)
	companyID := uuid.New()
	lead := seedLead(t, db, companyID, "Same", "same@example.com", "", model.LeadStatusNew)

	sameName := "Same"
	updated, err := svc.Update(ctx, companyID, lead.LeadID, &model.UpdateLeadRequest{Name: &sameName}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Same", updated.Name)

	var count int64
	require.NoError(t, db.Model(&model.AuditLog{}).Where("action = ?", model.AuditActionUpdate).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestLeadService_DeleteIsSoft(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestLeadService(t)
	companyID := uuid.New()
	lead := seedLead(t, db, companyID, "ToDelete", "delete@example.com", "", model.LeadStatusNew)

	require.NoError(t, svc.Delete(ctx, companyID, lead.LeadID, RequestMeta{}))

	// 通常のクエリからは見えない
	_, err := svc.Get(ctx, companyID, lead.LeadID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// ソフトデリートなので行自体は残っている
	var raw model.Lead
	require.NoError(t, db.Unscoped().Where("lead_id = ?", lead.LeadID).First(&raw).Error)
	assert.True(t, raw.DeletedAt.Valid)

	// 削除の監査ログが残る
	var logs []model.AuditLog
	require.NoError(t, db.Where("action = ?", model.AuditActionDelete).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, lead.LeadID.String(), logs[0].ObjectID)
}
