package model

// ListResponse はページネーション付き一覧APIの共通エンベロープです。
// {count, next, previous, results} の形で返します。
type ListResponse struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// ListParams は一覧APIの共通クエリパラメータです。
type ListParams struct {
	Page     int
	PageSize int
	Search   string
	Ordering string
	// リソース固有の静的フィルタ (例: status=new)
	Filters map[string]string
}

// Offset は現在ページの先頭行オフセットを返します。
func (p ListParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}
