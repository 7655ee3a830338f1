package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRow struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestTable(t *testing.T, handler http.HandlerFunc) (*TableState[testRow], *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewAPIClient(srv.URL, NewMemorySessionStore(), testLogger())
	table := NewTableState[testRow](c, "/api/v1/items", 25)
	return table, srv
}

func envelopeHandler(rows []testRow, count int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"count": count, "results": rows})
	}
}

func TestTableState_FetchSuccess(t *testing.T) {
	rows := []testRow{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}
	table, _ := newTestTable(t, envelopeHandler(rows, 42))

	require.NoError(t, table.Fetch(context.Background()))

	assert.Equal(t, rows, table.Rows())
	assert.Equal(t, int64(42), table.TotalItems())
	assert.False(t, table.Loading())
	assert.Empty(t, table.Error())

	info := table.PaginationInfo()
	require.NotNil(t, info)
	assert.Equal(t, 2, info.TotalPages)
}

func TestTableState_FetchError403(t *testing.T) {
	table, _ := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail": "Acesso negado"}`))
	})

	// 先にデータが入っている状態から失敗させる
	table.mu.Lock()
	table.rows = []testRow{{ID: "old"}}
	table.pagination.SetTotalItems(10)
	table.mu.Unlock()

	err := table.Fetch(context.Background())
	require.Error(t, err)

	// 失敗時は行と件数をクリアし、ボディから抽出したメッセージを保持する
	assert.Empty(t, table.Rows())
	assert.Equal(t, int64(0), table.TotalItems())
	assert.Equal(t, "Acesso negado", table.Error())
	assert.False(t, table.Loading())
}

func TestTableState_SearchResetsPage(t *testing.T) {
	var gotPage, gotSearch string
	table, _ := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		gotPage = r.URL.Query().Get("page")
		gotSearch = r.URL.Query().Get("search")
		json.NewEncoder(w).Encode(map[string]any{"count": 0, "results": []testRow{}})
	})

	table.SetPage(3)
	table.SetSearch("foo")
	require.NoError(t, table.Fetch(context.Background()))

	// 検索語の変更で次のフェッチは1ページ目から
	assert.Equal(t, "1", gotPage)
	assert.Equal(t, "foo", gotSearch)
}

func TestTableState_FilterAndPageSizeResetPage(t *testing.T) {
	table, _ := newTestTable(t, envelopeHandler(nil, 0))

	table.SetPage(5)
	table.SetFilter("status", "new")
	assert.Equal(t, 1, table.pagination.RequestedPage())

	table.SetPage(5)
	table.SetPageSize(50)
	assert.Equal(t, 1, table.pagination.RequestedPage())
}

func TestTableState_SearchNotSentWhenUnsearchable(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		json.NewEncoder(w).Encode([]testRow{})
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, NewMemorySessionStore(), testLogger())
	table := NewTableState[testRow](c, "/api/v1/items", 25, WithSearchable[testRow](false))
	table.SetSearch("foo")
	require.NoError(t, table.Fetch(context.Background()))

	assert.NotContains(t, query, "search=")
}

func TestTableState_Selection(t *testing.T) {
	table, _ := newTestTable(t, envelopeHandler(nil, 0))
	r1 := testRow{ID: "1", Name: "a"}
	r2 := testRow{ID: "2", Name: "b"}

	// 同一キーの重複追加はサイズを変えない（冪等）
	table.SelectRow(r1, true)
	table.SelectRow(r1, true)
	assert.Len(t, table.SelectedRows(), 1)

	// 追加して外すと選択から消える
	table.SelectRow(r2, true)
	assert.Len(t, table.SelectedRows(), 2)
	table.SelectRow(r1, false)
	assert.Len(t, table.SelectedRows(), 1)
	assert.False(t, table.IsSelected(r1))
	assert.True(t, table.IsSelected(r2))

	table.ClearSelection()
	assert.Empty(t, table.SelectedRows())
}

func TestTableState_SelectAll(t *testing.T) {
	rows := []testRow{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	table, _ := newTestTable(t, envelopeHandler(rows, 3))
	require.NoError(t, table.Fetch(context.Background()))

	table.SelectAll(true)
	assert.Len(t, table.SelectedRows(), 3)

	table.SelectAll(false)
	assert.Empty(t, table.SelectedRows())
}

func TestTableState_SelectionPrunedToLoadedRows(t *testing.T) {
	var page2 bool
	var mu sync.Mutex
	table, _ := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		second := page2
		mu.Unlock()
		rows := []testRow{{ID: "1"}, {ID: "2"}}
		if second {
			rows = []testRow{{ID: "3"}, {ID: "4"}}
		}
		json.NewEncoder(w).Encode(map[string]any{"count": 4, "results": rows})
	})

	require.NoError(t, table.Fetch(context.Background()))
	table.SelectRow(testRow{ID: "1"}, true)
	table.SelectRow(testRow{ID: "2"}, true)
	require.Len(t, table.SelectedRows(), 2)

	// ページ遷移で選択はロード済みの行だけに刈り込まれる
	mu.Lock()
	page2 = true
	mu.Unlock()
	table.SetPage(2)
	require.NoError(t, table.Fetch(context.Background()))
	assert.Empty(t, table.SelectedRows())
}

func TestTableState_StaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	var reqCount int
	var mu sync.Mutex
	table, _ := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		reqCount++
		n := reqCount
		mu.Unlock()
		if n == 1 {
			// 1本目のリクエストは2本目の完了まで待たせる
			<-release
			json.NewEncoder(w).Encode(map[string]any{"count": 1, "results": []testRow{{ID: "stale"}}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"count": 1, "results": []testRow{{ID: "fresh"}}})
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = table.Fetch(context.Background())
	}()

	// 1本目がサーバーに到達してから2本目を発行する
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return reqCount == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, table.Fetch(context.Background()))
	rows := table.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "fresh", rows[0].ID)

	// 遅れて返ってきた1本目は破棄され、新しい結果を上書きしない
	close(release)
	wg.Wait()
	rows = table.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "fresh", rows[0].ID)
}

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	var mu sync.Mutex
	var calls int
	d := NewDebouncer(30 * time.Millisecond)

	for i := 0; i < 5; i++ {
		d.Trigger(func() {
			mu.Lock()
			calls++
			mu.Unlock()
		})
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, time.Second, 10*time.Millisecond)

	// 追加のタイピングがなければそれ以上は発火しない
	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}

func TestDebouncer_Stop(t *testing.T) {
	var mu sync.Mutex
	var calls int
	d := NewDebouncer(20 * time.Millisecond)
	d.Trigger(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	d.Stop()

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 0, calls)
	mu.Unlock()
}

func TestDefaultRowKey(t *testing.T) {
	key := defaultRowKey(testRow{ID: "abc", Name: "x"})
	assert.Equal(t, `"abc"`, key)

	// id系フィールドが無い行はJSON全体がキーになる（衝突しないことが重要）
	type noID struct {
		Value string `json:"value"`
	}
	k1 := defaultRowKey(noID{Value: "a"})
	k2 := defaultRowKey(noID{Value: "b"})
	assert.NotEqual(t, k1, k2)
}

func TestTableState_StaticFiltersSent(t *testing.T) {
	var gotStatus string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStatus = r.URL.Query().Get("status")
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, NewMemorySessionStore(), testLogger())
	table := NewTableState[testRow](c, "/api/v1/items", 25,
		WithStaticFilters[testRow](map[string]string{"status": "new"}))
	require.NoError(t, table.Fetch(context.Background()))

	assert.Equal(t, "new", gotStatus)
}
