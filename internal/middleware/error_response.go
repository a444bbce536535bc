package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/investdesk/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 入力エラーの場合はFieldsにフィールドごとのメッセージを含む。
type ErrorResponseBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Category string            `json:"category"`
	Action   string            `json:"action"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteError はストアやサービスが返したエラーを対応するレスポンスに変換する。
//   - *model.ValidationError: 422とフィールドごとのメッセージ
//   - *model.APIError: バックエンドのステータス（通信エラーは502）
//   - それ以外: 500
func WriteError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(ErrorResponseBody{
			Code:     model.ErrCodeValidation,
			Message:  "Please correct the highlighted fields.",
			Category: "validation",
			Action:   "入力内容を確認してください。",
			Fields:   ve.Fields,
		})
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
		WriteErrorResponse(w, status, apiErr)
		return
	}

	WriteInternalServerError(w)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  model.MessageGenericFailure,
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
