package apiclient

import (
	"net/http"
	"strings"

	"github.com/hitoshi/investdesk/internal/model"
)

// Outcome は失敗レスポンスに対する横断的な処理方針の分類。
type Outcome int

const (
	// OutcomeGeneric は汎用エラー（トースト表示のみ）。通信エラーを含む。
	OutcomeGeneric Outcome = iota
	// OutcomeUnauthorized は認証失敗（401）。セッションを破棄する。
	OutcomeUnauthorized
	// OutcomeSuspended はアカウント停止（403 かつメッセージに "suspended" を含む）。
	OutcomeSuspended
	// OutcomeMaintenance はメンテナンス中（503）。トーストを出さずに遷移する。
	OutcomeMaintenance
)

// suspendedMarker はアカウント停止を示すメッセージ中の目印（大文字小文字を区別しない）。
const suspendedMarker = "suspended"

// String はログ出力用の名前を返す。
func (o Outcome) String() string {
	switch o {
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeSuspended:
		return "suspended"
	case OutcomeMaintenance:
		return "maintenance"
	default:
		return "generic"
	}
}

// ClassifyResponse はHTTPステータスコードとサーバーのメッセージから処理方針を決定する。
// 403でもメッセージに停止の目印がなければ汎用エラーとして扱う。
func ClassifyResponse(statusCode int, message string) Outcome {
	switch {
	case statusCode == http.StatusUnauthorized:
		return OutcomeUnauthorized
	case statusCode == http.StatusForbidden && strings.Contains(strings.ToLower(message), suspendedMarker):
		return OutcomeSuspended
	case statusCode == http.StatusServiceUnavailable:
		return OutcomeMaintenance
	default:
		return OutcomeGeneric
	}
}

// newResponseError は失敗レスポンスからAPIErrorを生成する。
// メッセージはサーバーの値をそのまま使い、なければ汎用文言にフォールバックする。
func newResponseError(statusCode int, message string, body []byte) *model.APIError {
	if message == "" {
		message = model.MessageGenericFailure
	}
	apiErr := &model.APIError{
		Status:  statusCode,
		Message: message,
	}
	if len(body) > 0 {
		apiErr.Data = append([]byte(nil), body...)
	}

	switch ClassifyResponse(statusCode, message) {
	case OutcomeUnauthorized:
		apiErr.Code = model.ErrCodeUnauthorized
		apiErr.Category = "auth"
		apiErr.Action = "再度ログインしてください。"
	case OutcomeSuspended:
		apiErr.Code = model.ErrCodeSuspended
		apiErr.Category = "auth"
		apiErr.Action = "サポートに連絡してください。"
	case OutcomeMaintenance:
		apiErr.Code = model.ErrCodeMaintenance
		apiErr.Category = "maintenance"
		apiErr.Action = "メンテナンス終了までお待ちください。"
	default:
		apiErr.Code = model.ErrCodeRequest
		apiErr.Category = "system"
		if statusCode >= 400 && statusCode < 500 {
			apiErr.Category = "validation"
			apiErr.Action = "入力内容を確認してください。"
		} else {
			apiErr.Action = "しばらく待ってから再度お試しください。"
		}
	}
	return apiErr
}
