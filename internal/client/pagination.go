package client

// PaginationState は一覧ページのページ位置を管理します。
// totalItems はサーバーが返す件数が正です。
type PaginationState struct {
	page       int
	pageSize   int
	totalItems int64
}

// PaginationInfo は表示用に導出されるページ情報です。
type PaginationInfo struct {
	CurrentPage int
	TotalPages  int
	PageSize    int
	TotalItems  int64
	// StartIndex/EndIndex は現在ページの1始まりの件数範囲です（"26-50 / 120件" 表示用）
	StartIndex int64
	EndIndex   int64
}

func NewPaginationState(pageSize int) *PaginationState {
	if pageSize < 1 {
		pageSize = 1
	}
	return &PaginationState{page: 1, pageSize: pageSize}
}

// SetPage は下限1にクランプします。上限側のクランプは CurrentPage の導出に
// 委ねます（totalItems 確定前の古いページ番号を許容し、確定後に静かに補正する）。
func (p *PaginationState) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	p.page = n
}

// SetPageSize はページサイズを差し替え、必ず1ページ目に戻します。
// 範囲外のページ番号がサイズ変更をまたいで残るのを防ぎます。
func (p *PaginationState) SetPageSize(n int) {
	if n < 1 {
		n = 1
	}
	p.pageSize = n
	p.page = 1
}

func (p *PaginationState) SetTotalItems(n int64) {
	if n < 0 {
		n = 0
	}
	p.totalItems = n
}

func (p *PaginationState) PageSize() int {
	return p.pageSize
}

// RequestedPage はユーザーが要求したままのページ番号です（クエリ組み立て用）。
func (p *PaginationState) RequestedPage() int {
	return p.page
}

func (p *PaginationState) TotalItems() int64 {
	return p.totalItems
}

// CurrentPage は要求ページを総ページ数でクランプした実効ページです。
func (p *PaginationState) CurrentPage() int {
	totalPages := p.totalPages()
	if p.page > totalPages {
		return totalPages
	}
	return p.page
}

func (p *PaginationState) totalPages() int {
	pages := int((p.totalItems + int64(p.pageSize) - 1) / int64(p.pageSize))
	if pages < 1 {
		pages = 1
	}
	return pages
}

// Info は表示用のページ情報を返します。totalItems == 0 の場合は nil を返し、
// 呼び出し側にページネーションUIを出さないことを伝えます。
func (p *PaginationState) Info() *PaginationInfo {
	if p.totalItems == 0 {
		return nil
	}
	current := p.CurrentPage()
	start := int64(current-1)*int64(p.pageSize) + 1
	end := int64(current) * int64(p.pageSize)
	if end > p.totalItems {
		end = p.totalItems
	}
	return &PaginationInfo{
		CurrentPage: current,
		TotalPages:  p.totalPages(),
		PageSize:    p.pageSize,
		TotalItems:  p.totalItems,
		StartIndex:  start,
		EndIndex:    end,
	}
}
