package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAPIClient_InjectsHeaders(t *testing.T) {
	var gotAuth, gotCompany string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCompany = r.Header.Get("X-Company-ID")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	session := NewMemorySessionStore()
	require.NoError(t, session.SetToken("test-token"))
	require.NoError(t, session.SetCompanySlug("acme"))

	c := NewAPIClient(srv.URL, session, testLogger())
	err := c.Get(context.Background(), "/api/v1/leads", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "acme", gotCompany)
}

func TestAPIClient_NoHeadersWhenSessionEmpty(t *testing.T) {
	var gotAuth, gotCompany string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCompany = r.Header.Get("X-Company-ID")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, NewMemorySessionStore(), testLogger())
	require.NoError(t, c.Get(context.Background(), "/", nil, nil))

	assert.Empty(t, gotAuth)
	assert.Empty(t, gotCompany)
}

func TestAPIClient_401ClearsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "token expired"}`))
	}))
	defer srv.Close()

	session := NewMemorySessionStore()
	require.NoError(t, session.SetToken("stale-token"))
	require.NoError(t, session.SetCompanySlug("acme"))

	c := NewAPIClient(srv.URL, session, testLogger())
	err := c.Get(context.Background(), "/api/v1/auth/me", nil, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthenticated))
	// 401受信でローカルセッションは破棄される
	assert.Empty(t, session.Token())
	assert.Empty(t, session.CompanySlug())
}

func TestExtractErrorDetail(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantCode    string
		wantMessage string
		wantField   string
	}{
		{
			name:        "正常系: DRF形式 {detail}",
			body:        `{"detail": "Acesso negado"}`,
			wantMessage: "Acesso negado",
		},
		{
			name:        "正常系: 本サーバー形式 {error:{code,message,field}}",
			body:        `{"error": {"code": "VALIDATION_ERROR", "message": "メールアドレスが不正です。", "field": "email"}}`,
			wantCode:    "VALIDATION_ERROR",
			wantMessage: "メールアドレスが不正です。",
			wantField:   "email",
		},
		{
			name:        "正常系: 汎用形式 {message}",
			body:        `{"message": "something broke"}`,
			wantMessage: "something broke",
		},
		{
			name: "異常系: JSONでないボディは空",
			body: `<html>502 Bad Gateway</html>`,
		},
		{
			name: "異常系: 空ボディ",
			body: ``,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, message, field := extractErrorDetail([]byte(tt.body))
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMessage, message)
			assert.Equal(t, tt.wantField, field)
		})
	}
}

func TestNormalizeListBody(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantTotal int64
		wantItems int
	}{
		{
			name:      "正常系: ページングエンベロープ",
			body:      `{"count": 42, "next": "/api/v1/leads?page=2", "previous": null, "results": [{"a":1},{"a":2}]}`,
			wantTotal: 42,
			wantItems: 2,
		},
		{
			name:      "正常系: 素の配列は長さが件数になる",
			body:      `[{"a":1},{"a":2},{"a":3}]`,
			wantTotal: 3,
			wantItems: 3,
		},
		{
			name:      "正常系: 単一オブジェクトは1件の結果として扱う",
			body:      `{"lead_id": "x", "name": "foo"}`,
			wantTotal: 1,
			wantItems: 1,
		},
		{
			name:      "正常系: 空配列",
			body:      `[]`,
			wantTotal: 0,
			wantItems: 0,
		},
		{
			name:      "正常系: results空のエンベロープ",
			body:      `{"count": 0, "results": []}`,
			wantTotal: 0,
			wantItems: 0,
		},
		{
			name:      "正常系: 空ボディは0件",
			body:      ``,
			wantTotal: 0,
			wantItems: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := NormalizeListBody([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, list.Total)
			assert.Len(t, list.Items, tt.wantItems)
		})
	}

	t.Run("異常系: 配列でもオブジェクトでもない形式", func(t *testing.T) {
		_, err := NormalizeListBody([]byte(`"just a string"`))
		assert.Error(t, err)
	})
}

func TestNormalizeListBody_ArrayMatchesEnvelope(t *testing.T) {
	// 素の配列3件はcount=3のエンベロープと同じページ計算になる
	fromArray, err := NormalizeListBody([]byte(`[{"a":1},{"a":2},{"a":3}]`))
	require.NoError(t, err)
	fromEnvelope, err := NormalizeListBody([]byte(`{"count": 3, "results": [{"a":1},{"a":2},{"a":3}]}`))
	require.NoError(t, err)

	assert.Equal(t, fromEnvelope.Total, fromArray.Total)
	assert.Equal(t, len(fromEnvelope.Items), len(fromArray.Items))

	p := NewPaginationState(25)
	p.SetTotalItems(fromArray.Total)
	info := p.Info()
	require.NotNil(t, info)
	assert.Equal(t, 1, info.TotalPages)
}

func TestAPIClient_APIErrorStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "DUPLICATE_SLUG", "message": "このスラッグは既に使用されています。", "field": "slug"},
		})
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, NewMemorySessionStore(), testLogger())
	err := c.Post(context.Background(), "/api/v1/companies", map[string]string{"slug": "dup"}, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "DUPLICATE_SLUG", apiErr.Code)
	assert.Equal(t, "slug", apiErr.Field)
	assert.Equal(t, "このスラッグは既に使用されています。", apiErr.Message)
}
