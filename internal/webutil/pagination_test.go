package webutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go_saas_scaffold/internal/config"
	"go_saas_scaffold/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	config.Cfg.App.DefaultPageSize = 25
	config.Cfg.App.MaxPageSize = 100
}

func TestParseListParams(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantPage int
		wantSize int
	}{
		{
			name:     "正常系: 指定なしは既定値",
			query:    "",
			wantPage: 1,
			wantSize: 25,
		},
		{
			name:     "正常系: 指定どおり",
			query:    "page=3&page_size=50",
			wantPage: 3,
			wantSize: 50,
		},
		{
			name:     "正常系: 上限を超えるpage_sizeは上限に丸める",
			query:    "page_size=9999",
			wantPage: 1,
			wantSize: 100,
		},
		{
			name:     "正常系: 不正な値は既定値に矯正",
			query:    "page=abc&page_size=-1",
			wantPage: 1,
			wantSize: 25,
		},
		{
			name:     "正常系: page=0は1に矯正",
			query:    "page=0",
			wantPage: 1,
			wantSize: 25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/leads?"+tt.query, nil)
			params := ParseListParams(req)
			assert.Equal(t, tt.wantPage, params.Page)
			assert.Equal(t, tt.wantSize, params.PageSize)
		})
	}

	t.Run("正常系: searchとorderingはそのまま通す", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/leads?search=foo&ordering=-created_at", nil)
		params := ParseListParams(req)
		assert.Equal(t, "foo", params.Search)
		assert.Equal(t, "-created_at", params.Ordering)
	})
}

func TestNewListResponse(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		count        int64
		page         int
		pageSize     int
		wantNext     bool
		wantPrevious bool
	}{
		{
			name:     "正常系: 1ページ目でまだ続きがある",
			url:      "/leads?page=1&page_size=25",
			count:    60,
			page:     1,
			pageSize: 25,
			wantNext: true,
		},
		{
			name:         "正常系: 中間ページは前後ともある",
			url:          "/leads?page=2&page_size=25",
			count:        60,
			page:         2,
			pageSize:     25,
			wantNext:     true,
			wantPrevious: true,
		},
		{
			name:         "正常系: 最終ページはnextがない",
			url:          "/leads?page=3&page_size=25",
			count:        60,
			page:         3,
			pageSize:     25,
			wantPrevious: true,
		},
		{
			name:     "正常系: 0件は前後ともない",
			url:      "/leads",
			count:    0,
			page:     1,
			pageSize: 25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			params := model.ListParams{Page: tt.page, PageSize: tt.pageSize}
			resp := NewListResponse(req, tt.count, params, []string{})

			assert.Equal(t, tt.count, resp.Count)
			if tt.wantNext {
				assert.NotNil(t, resp.Next)
			} else {
				assert.Nil(t, resp.Next)
			}
			if tt.wantPrevious {
				assert.NotNil(t, resp.Previous)
			} else {
				assert.Nil(t, resp.Previous)
			}
		})
	}

	t.Run("正常系: next/previousは検索クエリを保持する", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/leads?page=2&page_size=25&search=foo&status=new", nil)
		params := model.ListParams{Page: 2, PageSize: 25}
		resp := NewListResponse(req, 100, params, []string{})

		require.NotNil(t, resp.Next)
		assert.Contains(t, *resp.Next, "search=foo")
		assert.Contains(t, *resp.Next, "status=new")
		assert.Contains(t, *resp.Next, "page=3")

		require.NotNil(t, resp.Previous)
		assert.Contains(t, *resp.Previous, "page=1")
	})
}
