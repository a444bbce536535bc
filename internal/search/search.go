// Package search は画面をまたいで共有する検索文字列を保持する。
package search

import (
	"strings"
	"sync"
)

// Store は検索文字列を1つだけ保持する。
type Store struct {
	mu    sync.RWMutex
	query string
}

// NewStore は空の検索文字列でStoreを生成する。
func NewStore() *Store {
	return &Store{}
}

// Query は現在の検索文字列を返す。
func (s *Store) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Set は前後の空白を除いた検索文字列を保存し、保存した値を返す。
func (s *Store) Set(q string) string {
	q = strings.TrimSpace(q)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = q
	return q
}

// Clear は検索文字列を空にする。
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = ""
}
