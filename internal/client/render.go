package client

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"
)

// ConfirmFunc は破壊的操作の前にユーザーへ確認を取ります。
// false を返すと操作は発行されません。
type ConfirmFunc func(prompt string) bool

// RenderList は ResourceConfig の列定義に従って一覧を表形式で書き出します。
// 列の Render が指定されていればそれを、無ければ行データの同名フィールドを
// そのまま表示します。
func RenderList(w io.Writer, engine *ResourceEngine) error {
	cfg := engine.Config()

	if msg := engine.Table.Error(); msg != "" {
		fmt.Fprintf(w, "エラー: %s\n", msg)
		return nil
	}

	rows := engine.Table.Rows()
	if len(rows) == 0 {
		fmt.Fprintf(w, "%sはありません。\n", cfg.Name)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	headers := make([]string, 0, len(cfg.Columns))
	for _, col := range cfg.Columns {
		headers = append(headers, col.Label)
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, row := range rows {
		cells := make([]string, 0, len(cfg.Columns))
		for _, col := range cfg.Columns {
			cells = append(cells, renderCell(col, row))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if info := engine.Table.PaginationInfo(); info != nil {
		fmt.Fprintf(w, "\n%d-%d / %d件 (ページ %d/%d)\n",
			info.StartIndex, info.EndIndex, info.TotalItems, info.CurrentPage, info.TotalPages)
	}
	return nil
}

func renderCell(col ColumnConfig, row map[string]any) string {
	if col.Render != nil {
		return col.Render(row)
	}
	value, ok := row[col.Name]
	if !ok || value == nil {
		return "-"
	}
	return fmt.Sprintf("%v", value)
}

// RenderDetail はフィールド宣言の順に1件の詳細を書き出します。
func RenderDetail(w io.Writer, engine *ResourceEngine, item map[string]any) error {
	cfg := engine.Config()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, field := range cfg.Fields {
		value, ok := item[field.Name]
		if !ok || value == nil {
			value = "-"
		}
		fmt.Fprintf(tw, "%s:\t%v\n", field.Label, value)
	}
	return tw.Flush()
}

// BulkDeleteResult は一括削除の集計結果です。
type BulkDeleteResult struct {
	Requested int
	Deleted   int
	Failed    int
	Errors    []error
}

// BulkDelete は選択中の行を並行に削除します。確認フックが false を返すと
// 何もしません。全件成功したときだけ選択を解除します（部分失敗時は
// 失敗分をユーザーが再試行できるよう選択を残す）。
func BulkDelete(ctx context.Context, engine *ResourceEngine, confirm ConfirmFunc) (BulkDeleteResult, error) {
	selected := engine.Table.SelectedRows()
	result := BulkDeleteResult{Requested: len(selected)}
	if len(selected) == 0 {
		return result, nil
	}
	if !engine.CanDelete() {
		return result, &APIError{StatusCode: 403, Code: "FORBIDDEN", Message: "この操作を行う権限がありません。"}
	}

	prompt := fmt.Sprintf("%d件の%sを削除します。よろしいですか?", len(selected), engine.Config().Name)
	if confirm != nil && !confirm(prompt) {
		return result, nil
	}

	ids := make([]string, 0, len(selected))
	rowsByID := make(map[string]map[string]any, len(selected))
	for _, row := range selected {
		if id := rowID(row); id != "" {
			ids = append(ids, id)
			rowsByID[id] = row
		}
	}

	type deleteFailure struct {
		id  string
		err error
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	failCh := make(chan deleteFailure, len(ids))
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := engine.client.Delete(gctx, engine.detailPath(id)); err != nil {
				failCh <- deleteFailure{id: id, err: err}
			}
			return nil
		})
	}
	_ = g.Wait()
	close(failCh)

	failedIDs := make([]string, 0, len(ids))
	for f := range failCh {
		result.Errors = append(result.Errors, fmt.Errorf("deleting %s: %w", f.id, f.err))
		failedIDs = append(failedIDs, f.id)
	}
	result.Failed = len(failedIDs)
	result.Deleted = len(ids) - result.Failed

	engine.Table.ClearSelection()
	if err := engine.Table.Fetch(ctx); err != nil {
		result.Errors = append(result.Errors, err)
	}
	// 失敗した行は取り直し後に選択へ戻す。Fetch は選択をロード済みの行に
	// 刈り込むため、先に戻すと刈り込みで消えてしまう。
	for _, id := range failedIDs {
		engine.Table.SelectRow(rowsByID[id], true)
	}
	return result, nil
}

// rowID は行データから識別子フィールドを取り出します。
func rowID(row map[string]any) string {
	for _, name := range []string{"id", "lead_id", "company_id", "user_id"} {
		if v, ok := row[name]; ok {
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}
