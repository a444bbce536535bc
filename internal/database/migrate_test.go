package database

import (
	"path/filepath"
	"testing"
)

func TestRunMigrations_CreatesLocalStorageTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	if err := RunMigrations(path); err != nil {
		t.Fatalf("RunMigrations に失敗: %v", err)
	}

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open に失敗: %v", err)
	}
	defer db.Close()

	var count int
	err = db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'local_storage'`).Scan(&count)
	if err != nil {
		t.Fatalf("テーブル確認クエリに失敗: %v", err)
	}
	if count != 1 {
		t.Errorf("local_storage テーブル数 = %d, want 1", count)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	if err := RunMigrations(path); err != nil {
		t.Fatalf("1回目の RunMigrations に失敗: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("2回目の RunMigrations はエラーなしで返るべき: %v", err)
	}
}
