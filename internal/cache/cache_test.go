package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := New(mr.Addr(), "", 0, logger)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestKey(t *testing.T) {
	assert.Equal(t, "companies_list", Key("companies_list", ""))
	assert.Equal(t, "leads:co-1", Key("leads", "co-1"))
	assert.Equal(t, "leads:co-1:page:2", Key("leads", "co-1", "page", "2"))
}

func TestCache_GetOrSetJSON(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	type payload struct {
		Name string `json:"name"`
	}

	fetchCalls := 0
	fetch := func() (any, error) {
		fetchCalls++
		return payload{Name: "from-db"}, nil
	}

	// 1回目はミスして fetch が呼ばれる
	var got payload
	require.NoError(t, c.GetOrSetJSON(ctx, "k", time.Minute, &got, fetch))
	assert.Equal(t, "from-db", got.Name)
	assert.Equal(t, 1, fetchCalls)

	// 2回目はキャッシュヒットで fetch は呼ばれない
	var got2 payload
	require.NoError(t, c.GetOrSetJSON(ctx, "k", time.Minute, &got2, fetch))
	assert.Equal(t, "from-db", got2.Name)
	assert.Equal(t, 1, fetchCalls)

	// TTL経過後は再取得される
	mr.FastForward(2 * time.Minute)
	var got3 payload
	require.NoError(t, c.GetOrSetJSON(ctx, "k", time.Minute, &got3, fetch))
	assert.Equal(t, 2, fetchCalls)
}

func TestCache_GetOrSetJSON_FetchError(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	wantErr := errors.New("db down")
	var got map[string]any
	err := c.GetOrSetJSON(ctx, "k", time.Minute, &got, func() (any, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestCache_GetOrSetJSON_CorruptedEntryRefetched(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	// 壊れたJSONを仕込む
	require.NoError(t, mr.Set("k", "{not-json"))

	fetchCalls := 0
	var got map[string]string
	require.NoError(t, c.GetOrSetJSON(ctx, "k", time.Minute, &got, func() (any, error) {
		fetchCalls++
		return map[string]string{"a": "b"}, nil
	}))
	assert.Equal(t, 1, fetchCalls)
	assert.Equal(t, "b", got["a"])
}

func TestCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, mr.Set("a", "1"))
	require.NoError(t, mr.Set("b", "2"))

	require.NoError(t, c.Invalidate(ctx, "a", "b"))
	assert.False(t, mr.Exists("a"))
	assert.False(t, mr.Exists("b"))

	// 空のキーリストは何もしない
	require.NoError(t, c.Invalidate(ctx))
}

func TestCache_InvalidateCompany(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, mr.Set("leads:co-1", "x"))
	require.NoError(t, mr.Set("leads:co-1:page:2", "x"))
	require.NoError(t, mr.Set("leads:co-2", "x"))
	require.NoError(t, mr.Set("companies_list", "x"))

	deleted, err := c.InvalidateCompany(ctx, "co-1", "leads")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	// 他テナント・グローバルキーは残る
	assert.False(t, mr.Exists("leads:co-1"))
	assert.False(t, mr.Exists("leads:co-1:page:2"))
	assert.True(t, mr.Exists("leads:co-2"))
	assert.True(t, mr.Exists("companies_list"))
}
