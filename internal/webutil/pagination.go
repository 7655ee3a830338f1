package webutil

import (
	"net/http"
	"strconv"

	"go_saas_scaffold/internal/config"
	"go_saas_scaffold/internal/model"
)

// ParseListParams は一覧APIの共通クエリパラメータを解釈します。
// page/page_size は不正値・範囲外を黙って既定値に矯正します。
func ParseListParams(r *http.Request) model.ListParams {
	q := r.URL.Query()

	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(q.Get("page_size"))
	if err != nil || pageSize < 1 {
		pageSize = config.Cfg.App.DefaultPageSize
	}
	if pageSize > config.Cfg.App.MaxPageSize {
		pageSize = config.Cfg.App.MaxPageSize
	}

	return model.ListParams{
		Page:     page,
		PageSize: pageSize,
		Search:   q.Get("search"),
		Ordering: q.Get("ordering"),
	}
}

// NewListResponse は {count, next, previous, results} エンベロープを組み立てます。
// next/previous は現在のクエリ文字列を保ったままページ番号だけ差し替えた相対URLです。
func NewListResponse(r *http.Request, count int64, params model.ListParams, results any) model.ListResponse {
	totalPages := int((count + int64(params.PageSize) - 1) / int64(params.PageSize))

	pageURL := func(page int) *string {
		u := *r.URL
		q := u.Query()
		q.Set("page", strconv.Itoa(page))
		q.Set("page_size", strconv.Itoa(params.PageSize))
		u.RawQuery = q.Encode()
		s := u.String()
		return &s
	}

	var next, previous *string
	if params.Page < totalPages {
		next = pageURL(params.Page + 1)
	}
	if params.Page > 1 && count > 0 {
		prev := params.Page - 1
		if prev > totalPages {
			prev = totalPages
		}
		previous = pageURL(prev)
	}

	return model.ListResponse{
		Count:    count,
		Next:     next,
		Previous: previous,
		Results:  results,
	}
}
