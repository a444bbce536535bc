// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// APIError はバックエンドAPI呼び出しの失敗を表す統一エラー。
// Messageにはサーバーが返したメッセージをそのまま保持する（なければフォールバック文言）。
type APIError struct {
	Status   int             // HTTPステータス（通信エラー時は0）
	Code     string          // エラーコード
	Message  string          // ユーザー向けメッセージ
	Category string          // カテゴリ: auth, validation, maintenance, network, system
	Action   string          // ユーザー向け対処方法
	Data     json.RawMessage // サーバーのエラーペイロード
	Err      error           // 通信エラー等の原因
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %d %s", e.Code, e.Status, e.Message)
}

// Unwrap は原因となったエラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// ユーザー向け定型メッセージ
const (
	MessageSessionExpired = "Session expired. Please log in again."
	MessageGenericFailure = "Something went wrong. Please try again."
	MessageNetworkFailure = "Unable to reach the server. Check your connection and try again."
	MessageForgotPassword = "If an account exists for this email, a password reset link has been sent."
)

// 定義済みエラーコード
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeSuspended    = "ACCOUNT_SUSPENDED"
	ErrCodeMaintenance  = "MAINTENANCE"
	ErrCodeNetwork      = "NETWORK_ERROR"
	ErrCodeRequest      = "REQUEST_FAILED"
	ErrCodeDecode       = "DECODE_FAILED"
	ErrCodeValidation   = "VALIDATION_FAILED"
	ErrCodeNotSignedIn  = "NOT_SIGNED_IN"
)

// NewNetworkError は通信エラーを生成する。
func NewNetworkError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeNetwork,
		Message:  MessageNetworkFailure,
		Category: "network",
		Action:   "ネットワーク接続を確認してから再度お試しください。",
		Err:      err,
	}
}

// NewDecodeError はレスポンスのデコード失敗エラーを生成する。
func NewDecodeError(status int, err error) *APIError {
	return &APIError{
		Status:   status,
		Code:     ErrCodeDecode,
		Message:  MessageGenericFailure,
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
		Err:      err,
	}
}

// NewNotSignedInError はセッションが存在しない状態で認証必須の操作を行った場合のエラーを生成する。
func NewNotSignedInError() *APIError {
	return &APIError{
		Status:   401,
		Code:     ErrCodeNotSignedIn,
		Message:  "You need to log in to continue.",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// ValidationError はネットワーク呼び出し前に検出された入力エラーを表す。
// フィールド名からエラーメッセージへの対応を保持し、画面上ではフィールド横に表示する。
type ValidationError struct {
	Fields map[string]string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, e.Fields[name])
	}
	return fmt.Sprintf("[%s] %s", ErrCodeValidation, strings.Join(parts, "; "))
}

// NewValidationError は単一フィールドの入力エラーを生成する。
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}
