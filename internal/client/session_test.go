package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore(t *testing.T) {
	s := NewMemorySessionStore()
	assert.Empty(t, s.Token())
	assert.Empty(t, s.CompanySlug())

	require.NoError(t, s.SetToken("tok"))
	require.NoError(t, s.SetCompanySlug("acme"))
	assert.Equal(t, "tok", s.Token())
	assert.Equal(t, "acme", s.CompanySlug())

	require.NoError(t, s.Clear())
	assert.Empty(t, s.Token())
	assert.Empty(t, s.CompanySlug())
}

func TestFileSessionStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := NewFileSessionStore(path)

	// 未作成のファイルは空セッション
	assert.Empty(t, s.Token())

	require.NoError(t, s.SetToken("tok"))
	require.NoError(t, s.SetCompanySlug("acme"))

	// 別インスタンスでも読める（永続化の確認）
	s2 := NewFileSessionStore(path)
	assert.Equal(t, "tok", s2.Token())
	assert.Equal(t, "acme", s2.CompanySlug())

	// トークンを含むので所有者のみアクセス可
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.Clear())
	assert.Empty(t, s2.Token())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// 既に無いファイルのClearはエラーにならない
	require.NoError(t, s.Clear())
}

func TestFileSessionStore_CorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	s := NewFileSessionStore(path)
	assert.Empty(t, s.Token())

	// 上書きすれば普通に使える
	require.NoError(t, s.SetToken("tok"))
	assert.Equal(t, "tok", s.Token())
}
