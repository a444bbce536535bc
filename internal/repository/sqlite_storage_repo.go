package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteStorage はSQLiteのlocal_storageテーブルを使うLocalStorage。
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage はSQLiteStorageを生成する。
func NewSQLiteStorage(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

// Get は指定キーの値を取得する。
func (s *SQLiteStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM local_storage WHERE key = ?`,
		key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get local storage value: %w", err)
	}

	return value, true, nil
}

// Set は指定キーに値を保存する。
func (s *SQLiteStorage) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO local_storage (key, value, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set local storage value: %w", err)
	}
	return nil
}

// Remove は指定キーを削除する。
func (s *SQLiteStorage) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM local_storage WHERE key = ?`,
		key,
	)
	if err != nil {
		return fmt.Errorf("failed to remove local storage value: %w", err)
	}
	return nil
}
