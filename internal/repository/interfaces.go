// Package repository はクライアント状態の永続化を提供する。
// ブラウザのlocalStorageに相当するキー/値ストアと、その上に載るトークンストアを含む。
package repository

import "context"

// LocalStorage はキー/値形式の永続ストアのインターフェース。
type LocalStorage interface {
	// Get は指定キーの値を取得する。存在しない場合はokにfalseを返す。
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set は指定キーに値を保存する。既存の値は上書きする。
	Set(ctx context.Context, key, value string) error
	// Remove は指定キーを削除する。存在しない場合もエラーにしない。
	Remove(ctx context.Context, key string) error
}
