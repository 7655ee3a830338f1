package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// RowKeyFunc は行を選択用に一意に識別するキーを返します。
type RowKeyFunc[T any] func(row T) string

// TableState は1つの一覧エンドポイントに対する取得ライフサイクル
// （検索・並び替え・ページング・行選択）を管理します。
// rows は取得成功のたびに丸ごと差し替えられます（差分マージはしない）。
type TableState[T any] struct {
	mu sync.Mutex

	client   *APIClient
	endpoint string
	rowKey   RowKeyFunc[T]

	pagination    *PaginationState
	staticFilters map[string]string
	search        string
	searchable    bool
	ordering      string

	rows     []T
	loading  bool
	errMsg   string
	selected map[string]T

	// 取得ごとに採番し、古いレスポンスを破棄するための番号
	seq atomic.Uint64
}

type TableOption[T any] func(*TableState[T])

// WithRowKey は行キー関数を差し替えます。既定はJSON上の "id" フィールドです。
func WithRowKey[T any](fn RowKeyFunc[T]) TableOption[T] {
	return func(t *TableState[T]) {
		t.rowKey = fn
	}
}

// WithSearchable は検索パラメータを送るかどうかを制御します。
// 検索可能フィールドを持たないリソースでは search を送りません。
func WithSearchable[T any](searchable bool) TableOption[T] {
	return func(t *TableState[T]) {
		t.searchable = searchable
	}
}

func WithStaticFilters[T any](filters map[string]string) TableOption[T] {
	return func(t *TableState[T]) {
		t.staticFilters = filters
	}
}

func WithOrdering[T any](ordering string) TableOption[T] {
	return func(t *TableState[T]) {
		t.ordering = ordering
	}
}

func NewTableState[T any](c *APIClient, endpoint string, pageSize int, opts ...TableOption[T]) *TableState[T] {
	t := &TableState[T]{
		client:     c,
		endpoint:   endpoint,
		rowKey:     defaultRowKey[T],
		pagination: NewPaginationState(pageSize),
		searchable: true,
		selected:   map[string]T{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// defaultRowKey は行をJSONにして "id" 系フィールドをキーとして取り出します。
func defaultRowKey[T any](row T) string {
	raw, err := json.Marshal(row)
	if err != nil {
		return ""
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return string(raw)
	}
	for _, name := range []string{"id", "lead_id", "company_id", "user_id"} {
		if v, ok := fields[name]; ok {
			return string(v)
		}
	}
	return string(raw)
}

// Fetch は現在の検索・並び替え・ページ状態で一覧を取得します。
// より新しい Fetch が既に発行されている場合、このレスポンスは破棄されます。
func (t *TableState[T]) Fetch(ctx context.Context) error {
	t.mu.Lock()
	query := t.buildQuery()
	t.loading = true
	t.mu.Unlock()

	mySeq := t.seq.Add(1)

	list, err := t.client.GetList(ctx, t.endpoint, query)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seq.Load() != mySeq {
		// 後続のリクエストに追い越された。状態には触らない。
		return nil
	}
	t.loading = false

	if err != nil {
		t.rows = nil
		t.pagination.SetTotalItems(0)
		t.errMsg = errorMessage(err)
		return err
	}

	rows := make([]T, 0, len(list.Items))
	for _, item := range list.Items {
		var row T
		if err := json.Unmarshal(item, &row); err != nil {
			t.rows = nil
			t.pagination.SetTotalItems(0)
			t.errMsg = "unexpected response shape"
			return err
		}
		rows = append(rows, row)
	}

	t.rows = rows
	t.pagination.SetTotalItems(list.Total)
	t.errMsg = ""
	t.pruneSelectionLocked()
	return nil
}

func (t *TableState[T]) buildQuery() url.Values {
	query := url.Values{}
	for k, v := range t.staticFilters {
		if v != "" {
			query.Set(k, v)
		}
	}
	query.Set("page", strconv.Itoa(t.pagination.RequestedPage()))
	query.Set("page_size", strconv.Itoa(t.pagination.PageSize()))
	if t.searchable && t.search != "" {
		query.Set("search", t.search)
	}
	if t.ordering != "" {
		query.Set("ordering", t.ordering)
	}
	return query
}

func errorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, ErrUnauthenticated) {
		return "認証が切れました。再度ログインしてください。"
	}
	return err.Error()
}

// Rows は現在の行のコピーを返します。
func (t *TableState[T]) Rows() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	rows := make([]T, len(t.rows))
	copy(rows, t.rows)
	return rows
}

func (t *TableState[T]) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

func (t *TableState[T]) Error() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errMsg
}

func (t *TableState[T]) TotalItems() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pagination.TotalItems()
}

// PaginationInfo は表示用のページ情報です。0件なら nil です。
func (t *TableState[T]) PaginationInfo() *PaginationInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pagination.Info()
}

func (t *TableState[T]) SetPage(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pagination.SetPage(n)
}

func (t *TableState[T]) SetPageSize(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pagination.SetPageSize(n)
}

// SetSearch は検索語を差し替え、1ページ目に戻します。
// 絞り込み後の結果セットの末尾を越えた空ページを見せないためです。
func (t *TableState[T]) SetSearch(term string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.search == term {
		return
	}
	t.search = term
	t.pagination.SetPage(1)
}

func (t *TableState[T]) Search() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.search
}

// SetOrdering は並び替えキーを差し替えます（"-" プレフィックスで降順）。
func (t *TableState[T]) SetOrdering(ordering string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ordering == ordering {
		return
	}
	t.ordering = ordering
	t.pagination.SetPage(1)
}

// SetFilter は静的フィルタを1つ差し替え、1ページ目に戻します。
func (t *TableState[T]) SetFilter(key, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.staticFilters == nil {
		t.staticFilters = map[string]string{}
	}
	if t.staticFilters[key] == value {
		return
	}
	if value == "" {
		delete(t.staticFilters, key)
	} else {
		t.staticFilters[key] = value
	}
	t.pagination.SetPage(1)
}

// SelectRow は行キーで選択に追加/削除します。同一キーの重複追加はされません。
func (t *TableState[T]) SelectRow(row T, selected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := t.rowKey(row)
	if key == "" {
		return
	}
	if selected {
		t.selected[key] = row
	} else {
		delete(t.selected, key)
	}
}

// SelectAll は現在ロード中のページ全行を選択、または全解除します。
// 選択はロード済みの行にのみ及びます（ページをまたいで持ち越さない）。
func (t *TableState[T]) SelectAll(selected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selected = map[string]T{}
	if !selected {
		return
	}
	for _, row := range t.rows {
		if key := t.rowKey(row); key != "" {
			t.selected[key] = row
		}
	}
}

func (t *TableState[T]) ClearSelection() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selected = map[string]T{}
}

// SelectedRows は選択中の行を返します。順序は保証しません。
func (t *TableState[T]) SelectedRows() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	rows := make([]T, 0, len(t.selected))
	for _, row := range t.selected {
		rows = append(rows, row)
	}
	return rows
}

func (t *TableState[T]) IsSelected(row T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.selected[t.rowKey(row)]
	return ok
}

// pruneSelectionLocked は選択をロード済みの行に限定します。
func (t *TableState[T]) pruneSelectionLocked() {
	if len(t.selected) == 0 {
		return
	}
	loaded := make(map[string]struct{}, len(t.rows))
	for _, row := range t.rows {
		loaded[t.rowKey(row)] = struct{}{}
	}
	for key := range t.selected {
		if _, ok := loaded[key]; !ok {
			delete(t.selected, key)
		}
	}
}

// Debouncer は連続した入力（検索のタイピング等）を1回の実行にまとめます。
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger は delay 経過後に fn を実行します。経過前に再度呼ばれると
// 前の実行予約は取り消されます。
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop は未実行の予約を取り消します。
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
