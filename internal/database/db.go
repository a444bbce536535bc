package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open はクライアント状態を保存するSQLiteデータベースを開く。
// pathはデータベースファイルのパスを指定する。
// sql.Openは接続を試行しないため、実際の接続確認にはdb.Ping()を使用すること。
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLiteは書き込みが直列化されるため接続を1本に絞る
	db.SetMaxOpenConns(1)

	return db, nil
}
