// Package middleware はデスクサーバーのHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"sync"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userIDContextKey はリクエストコンテキストにログイン中ユーザーのIDを格納するためのキー。
	userIDContextKey = contextKey("user_id")
	// requestInfoContextKey はロギングミドルウェアが下流から値を受け取るためのキー。
	requestInfoContextKey = contextKey("request_info")
)

// requestInfo は内側のミドルウェアで判明した値を外側のロギングへ渡す。
type requestInfo struct {
	mu     sync.Mutex
	userID string
}

func (i *requestInfo) set(userID string) {
	i.mu.Lock()
	i.userID = userID
	i.mu.Unlock()
}

func (i *requestInfo) get() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.userID
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// ガードミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if info, ok := ctx.Value(requestInfoContextKey).(*requestInfo); ok {
		info.set(userID)
	}
	return context.WithValue(ctx, userIDContextKey, userID)
}
