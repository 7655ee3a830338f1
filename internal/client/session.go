// Package client はサーバーAPIを消費する側の共通基盤です。
// セッション管理・テナントヘッダー注入・ページネーション・テーブル状態・
// 宣言的CRUDエンジンを提供します。
package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SessionStore はアクセストークンと選択中テナントの読み書きを抽象化します。
// グローバル変数ではなく依存として注入することで、テスト可能にしています。
type SessionStore interface {
	Token() string
	SetToken(token string) error
	CompanySlug() string
	SetCompanySlug(slug string) error
	// Clear はトークンとテナント選択の両方を破棄します（401受信時など）。
	Clear() error
}

// MemorySessionStore はテスト・短命プロセス用のインメモリ実装です。
type MemorySessionStore struct {
	mu    sync.RWMutex
	token string
	slug  string
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

func (s *MemorySessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *MemorySessionStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemorySessionStore) CompanySlug() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slug
}

func (s *MemorySessionStore) SetCompanySlug(slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slug = slug
	return nil
}

func (s *MemorySessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.slug = ""
	return nil
}

type sessionFile struct {
	Token       string `json:"token,omitempty"`
	CompanySlug string `json:"company_slug,omitempty"`
}

// FileSessionStore はセッションをJSONファイルに永続化します。
// CLIの実行をまたいでログイン状態とテナント選択を保持するための実装です。
type FileSessionStore struct {
	mu   sync.Mutex
	path string
}

func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

// DefaultSessionPath はユーザーの設定ディレクトリ配下のセッションファイルパスを返します。
func DefaultSessionPath(appName string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	return filepath.Join(dir, appName, "session.json"), nil
}

func (s *FileSessionStore) load() sessionFile {
	var data sessionFile
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return data
	}
	// 壊れたファイルは空セッションとして扱う
	_ = json.Unmarshal(raw, &data)
	return data
}

func (s *FileSessionStore) save(data sessionFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	// トークンを含むので所有者のみ読み書き可
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

func (s *FileSessionStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load().Token
}

func (s *FileSessionStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.load()
	data.Token = token
	return s.save(data)
}

func (s *FileSessionStore) CompanySlug() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load().CompanySlug
}

func (s *FileSessionStore) SetCompanySlug(slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.load()
	data.CompanySlug = slug
	return s.save(data)
}

func (s *FileSessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}
