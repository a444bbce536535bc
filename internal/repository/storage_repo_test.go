package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hitoshi/investdesk/internal/database"
	"github.com/hitoshi/investdesk/internal/logger"
)

// MemoryStorage・SQLiteStorageがLocalStorageインターフェースを満たすことを検証
func TestStorage_ImplementsInterface(t *testing.T) {
	var _ LocalStorage = (*MemoryStorage)(nil)
	var _ LocalStorage = (*SQLiteStorage)(nil)
}

func newSQLiteStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	if err := database.RunMigrations(path); err != nil {
		t.Fatalf("マイグレーションに失敗: %v", err)
	}
	db, err := database.Open(path)
	if err != nil {
		t.Fatalf("Open に失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStorage(db)
}

func testLocalStorage(t *testing.T, s LocalStorage) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "token"); err != nil || ok {
		t.Fatalf("未設定キー: ok=%v err=%v, want ok=false", ok, err)
	}

	if err := s.Set(ctx, "token", "abc"); err != nil {
		t.Fatalf("Set に失敗: %v", err)
	}
	if err := s.Set(ctx, "token", "def"); err != nil {
		t.Fatalf("上書きの Set に失敗: %v", err)
	}

	v, ok, err := s.Get(ctx, "token")
	if err != nil || !ok || v != "def" {
		t.Fatalf("Get = (%q, %v, %v), want (def, true, nil)", v, ok, err)
	}

	if err := s.Remove(ctx, "token"); err != nil {
		t.Fatalf("Remove に失敗: %v", err)
	}
	if err := s.Remove(ctx, "token"); err != nil {
		t.Fatalf("存在しないキーの Remove はエラーにならないべき: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "token"); ok {
		t.Error("Remove 後にキーが残っている")
	}
}

func TestMemoryStorage_RoundTrip(t *testing.T) {
	testLocalStorage(t, NewMemoryStorage())
}

func TestSQLiteStorage_RoundTrip(t *testing.T) {
	testLocalStorage(t, newSQLiteStorage(t))
}

func TestTokenStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	storage := newSQLiteStorage(t)

	first := NewTokenStore(storage, logger.Discard())
	if err := first.Set(ctx, "jwt-token"); err != nil {
		t.Fatalf("Set に失敗: %v", err)
	}

	second := NewTokenStore(storage, logger.Discard())
	token, err := second.Load(ctx)
	if err != nil {
		t.Fatalf("Load に失敗: %v", err)
	}
	if token != "jwt-token" || second.Token() != "jwt-token" {
		t.Errorf("Load = %q, Token() = %q, want jwt-token", token, second.Token())
	}
}

func TestTokenStore_ClearIsImmediate(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	s := NewTokenStore(storage, logger.Discard())

	if err := s.Set(ctx, "tok"); err != nil {
		t.Fatalf("Set に失敗: %v", err)
	}
	s.Clear(ctx)

	if s.Token() != "" {
		t.Errorf("Clear 直後の Token() = %q, want empty", s.Token())
	}
	if _, ok, _ := storage.Get(ctx, "token"); ok {
		t.Error("永続ストアにトークンが残っている")
	}
}

// failingStorage はSetが常に失敗するLocalStorage。
type failingStorage struct {
	*MemoryStorage
	setFn func(ctx context.Context, key, value string) error
}

func (f *failingStorage) Set(ctx context.Context, key, value string) error {
	if f.setFn != nil {
		return f.setFn(ctx, key, value)
	}
	return f.MemoryStorage.Set(ctx, key, value)
}

var _ LocalStorage = (*failingStorage)(nil)

func TestTokenStore_SetFailureKeepsPreviousToken(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{MemoryStorage: NewMemoryStorage()}
	s := NewTokenStore(storage, logger.Discard())

	if err := s.Set(ctx, "tok-A"); err != nil {
		t.Fatalf("Set に失敗: %v", err)
	}

	storage.setFn = func(context.Context, string, string) error { return errors.New("disk full") }
	if err := s.Set(ctx, "tok-B"); err == nil {
		t.Fatal("永続化の失敗がエラーとして返されていません")
	}

	if s.Token() != "tok-A" {
		t.Errorf("Token() = %q, want tok-A", s.Token())
	}
	if v, _, _ := storage.Get(ctx, "token"); v != "tok-A" {
		t.Errorf("永続ストアの値 = %q, want tok-A", v)
	}
}
