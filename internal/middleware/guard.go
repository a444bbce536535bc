package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hitoshi/investdesk/internal/auth"
	"github.com/hitoshi/investdesk/internal/guard"
	"github.com/hitoshi/investdesk/internal/model"
)

// SessionReader はガードが参照する認証ストアの部分集合。
type SessionReader interface {
	State() auth.State
	User() (model.User, bool)
}

// NewGuardMiddleware はログイン必須のルートを認証状態で保護するミドルウェアを返す。
//   - セッション解決中: 202と {"status":"loading"}、Retry-After: 1
//   - 未ログイン: 画面遷移（Accept: text/html）は307でランディングへ、それ以外は401
//   - ログイン済み: ユーザーIDをコンテキストに注入して次へ渡す
func NewGuardMiddleware(sessions SessionReader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := guard.Decide(sessions.State(), r.URL.RequestURI())

			switch decision.Kind {
			case guard.Wait:
				w.Header().Set("Retry-After", "1")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusAccepted)
				json.NewEncoder(w).Encode(map[string]string{"status": "loading"})
				return

			case guard.Redirect:
				if wantsHTML(r) {
					http.Redirect(w, r, decision.Location(), http.StatusTemporaryRedirect)
					return
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewNotSignedInError())
				return
			}

			user, ok := sessions.User()
			if !ok {
				// 判定と取得の間にログアウトした
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewNotSignedInError())
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), user.ID)))
		})
	}
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
