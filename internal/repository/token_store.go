package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// tokenKey は永続ストア上でベアラートークンを保持する唯一のキー。
const tokenKey = "token"

// TokenStore はベアラートークンを保持する。
// Clearはメモリ上の値を先に破棄するため、直後に同じプロセス内の読み手がトークンを観測することはない。
// Setは永続化に成功してからメモリ上の値を更新するため、保存に失敗したトークンが使われることはない。
type TokenStore struct {
	storage LocalStorage
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
}

// NewTokenStore はTokenStoreを生成する。
func NewTokenStore(storage LocalStorage, logger *slog.Logger) *TokenStore {
	return &TokenStore{storage: storage, logger: logger}
}

// Load は永続ストアからトークンを読み込む。起動時に1回呼ぶ。
func (s *TokenStore) Load(ctx context.Context) (string, error) {
	token, _, err := s.storage.Get(ctx, tokenKey)
	if err != nil {
		return "", fmt.Errorf("failed to load token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return token, nil
}

// Token は現在のトークンを返す。未設定の場合は空文字を返す。
func (s *TokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Set はトークンを保存する。永続化に失敗した場合は現在のトークンを変更しない。
func (s *TokenStore) Set(ctx context.Context, token string) error {
	if err := s.storage.Set(ctx, tokenKey, token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Clear はトークンを破棄する。
// 永続ストアからの削除に失敗してもメモリ上の値は破棄済みのため、エラーはログのみとする。
func (s *TokenStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	if err := s.storage.Remove(ctx, tokenKey); err != nil {
		s.logger.Error("トークンの永続ストアからの削除に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
