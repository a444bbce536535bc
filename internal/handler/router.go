package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/investdesk/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	CSRF              middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter

	// 運用
	Metrics http.Handler
	Health  func(ctx context.Context) error // nilの場合は常に正常

	// クライアント状態
	Auth          AuthStore
	Dashboard     DashboardCache
	Notifications NotificationStore
	Currency      CurrencyStore
	Search        SearchStore
	Toasts        ToastStore
	Navigator     Navigator
	Realtime      RealtimeStatus

	// 入出金・投資
	Wallet      WalletService
	Investments InvestmentService
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → CSRF → (保護ルートのみ) Guard → RateLimit
//
// /health、/metrics、/auth/*、セッション・トースト・画面遷移はガードの外に配置する。
// トーストと画面遷移はログアウト直後のランディング画面でも参照する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	sessionHandler := NewSessionHandler(deps.Auth)
	accountHandler := NewAccountHandler(deps.Dashboard, deps.Notifications, deps.Currency, deps.Realtime)
	uiHandler := NewUIHandler(deps.Toasts, deps.Search, deps.Navigator)
	moneyHandler := NewMoneyHandler(deps.Wallet, deps.Investments, deps.Search)

	// --- 運用エンドポイント（CSRF対象外） ---
	r.Get("/health", healthHandler(deps.Health))
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		// --- ログイン不要のルート ---
		r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF).ServeHTTP)
		r.Get("/api/session", sessionHandler.Current)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", sessionHandler.Login)
			r.Post("/register", sessionHandler.Register)
			r.Post("/forgot-password", sessionHandler.ForgotPassword)
			r.Post("/logout", sessionHandler.Logout)
		})

		r.Get("/api/toasts", uiHandler.Toasts)
		r.Delete("/api/toasts/{id}", uiHandler.DismissToast)
		r.Get("/api/route", uiHandler.Route)
		r.Put("/api/route", uiHandler.Navigate)

		// --- ログイン必須のルート ---
		// ミドルウェアスタック: Guard → RateLimit
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewGuardMiddleware(deps.Auth))
			r.Use(deps.RateLimiter.Middleware())

			r.Get("/api/dashboard", accountHandler.Dashboard)
			r.Get("/api/dashboard/summary", accountHandler.DashboardSummary)

			r.Route("/api/notifications", func(r chi.Router) {
				r.Get("/", accountHandler.Notifications)
				r.Post("/refresh", accountHandler.RefreshNotifications)
				r.Post("/read-all", accountHandler.MarkAllNotificationsRead)
				r.Post("/{id}/read", accountHandler.MarkNotificationRead)
			})

			r.Route("/api/currency", func(r chi.Router) {
				r.Get("/", accountHandler.Currency)
				r.Put("/", accountHandler.SetCurrency)
				r.Post("/toggle", accountHandler.ToggleCurrency)
				r.Get("/format", accountHandler.FormatAmount)
			})

			r.Route("/api/search", func(r chi.Router) {
				r.Get("/", uiHandler.Search)
				r.Put("/", uiHandler.SetSearch)
				r.Delete("/", uiHandler.ClearSearch)
			})

			r.Get("/api/realtime", accountHandler.Realtime)

			r.Route("/api/wallet", func(r chi.Router) {
				r.Post("/deposit", moneyHandler.Deposit)
				r.Post("/withdraw", moneyHandler.Withdraw)
				r.Post("/crypto/deposit", moneyHandler.CryptoDeposit)
				r.Post("/crypto/deposit/{id}/proof", moneyHandler.SubmitCryptoProof)
				r.Post("/crypto/withdraw", moneyHandler.CryptoWithdraw)
			})

			r.Get("/api/transactions", moneyHandler.Transactions)
			r.Get("/api/products", moneyHandler.Products)

			r.Route("/api/investments", func(r chi.Router) {
				r.Get("/", moneyHandler.Investments)
				r.Post("/", moneyHandler.Invest)
				r.Post("/{id}/withdraw", moneyHandler.WithdrawInvestment)
			})
		})
	})

	return r
}

// healthHandler は死活監視用のハンドラーを返す。
// GET /health
func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				slog.WarnContext(r.Context(), "health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
