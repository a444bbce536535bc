// Package navigation はクライアントの現在ルートと画面遷移を管理する。
// 描画層を持たないため、遷移は現在ルートの更新と購読者への通知として表現する。
package navigation

import (
	"log/slog"
	"strings"
	"sync"
)

// ルート定義
const (
	RouteLanding        = "/"
	RouteLogin          = "/login"
	RouteRegister       = "/register"
	RouteForgotPassword = "/forgot-password"
	RouteResetPassword  = "/reset-password"
	RouteMaintenance    = "/maintenance"
	RouteDashboard      = "/dashboard"
)

// authEntryRoutes は未ログインで表示される認証導線のルート。
// これらのルート上では401によるセッション切れ通知を出さない。
var authEntryRoutes = map[string]bool{
	RouteLanding:        true,
	RouteLogin:          true,
	RouteRegister:       true,
	RouteForgotPassword: true,
	RouteResetPassword:  true,
}

// Navigator はAPIクライアント等が画面遷移を要求するためのインターフェース。
type Navigator interface {
	Current() string
	Navigate(to string)
}

// MaxHistory は保持する遷移履歴の上限。古いものから捨てる。
const MaxHistory = 50

// Router はNavigatorの実装。
type Router struct {
	logger *slog.Logger

	mu      sync.Mutex
	current string
	history []string
}

// NewRouter は初期ルートを指定してRouterを生成する。空の場合は "/" から開始する。
func NewRouter(initial string, logger *slog.Logger) *Router {
	if initial == "" {
		initial = RouteLanding
	}
	return &Router{
		logger:  logger,
		current: Path(initial),
	}
}

// Current は現在のルートを返す。
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Navigate は指定ルートへ遷移する。同一ルートへの遷移は何もしない。
func (r *Router) Navigate(to string) {
	r.mu.Lock()
	from := r.current
	if to == from {
		r.mu.Unlock()
		return
	}
	r.current = to
	r.history = append(r.history, from)
	if n := len(r.history); n > MaxHistory {
		r.history = append(r.history[:0], r.history[n-MaxHistory:]...)
	}
	r.mu.Unlock()

	r.logger.Debug("画面遷移", slog.String("from", from), slog.String("to", to))
}

// History は遷移前のルートを古い順に返す。
func (r *Router) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.history))
	copy(out, r.history)
	return out
}

// IsAuthEntry はルートが認証導線（ランディング、ログイン、登録、パスワード再設定）かを返す。
// クエリ文字列は無視する。
func IsAuthEntry(route string) bool {
	return authEntryRoutes[Path(route)]
}

// Path はルートからクエリ文字列とフラグメントを取り除く。
func Path(route string) string {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	if route == "" {
		return RouteLanding
	}
	return route
}
