// Package handler はデスクサーバーのHTTPハンドラーを提供する。
// 各ハンドラーはクライアント状態ストアを薄くJSONで公開し、状態そのものは持たない。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/investdesk/internal/middleware"
	"github.com/hitoshi/investdesk/internal/model"
)

// maxBodyBytes はリクエストボディの上限。
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディをvへデコードする。
// 不正なJSONは入力エラーとして扱い、422で返せるようにする。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return model.NewValidationError("body", "Request body must be valid JSON")
	}
	return nil
}

// handleServiceError はストアやサービスから返されたエラーをレスポンスに変換する。
// APIエラー・入力エラー以外はログに記録する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	var ve *model.ValidationError
	if !errors.As(err, &apiErr) && !errors.As(err, &ve) {
		slog.ErrorContext(r.Context(), "internal server error",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	middleware.WriteError(w, err)
}

func isTruthy(v string) bool {
	switch v {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
