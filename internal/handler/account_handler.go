package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/investdesk/internal/model"
	"github.com/hitoshi/investdesk/internal/realtime"
)

// DashboardCache はダッシュボードキャッシュのインターフェース。
type DashboardCache interface {
	Get(ctx context.Context, forceRefresh bool) (model.DashboardSnapshot, error)
	Summary(ctx context.Context, forceRefresh bool) (model.DashboardSummary, error)
}

// NotificationStore は通知ストアのインターフェース。
type NotificationStore interface {
	Snapshot() []model.Notification
	UnreadCount() int
	Refresh(ctx context.Context) error
	MarkAsRead(ctx context.Context, id string) bool
	MarkAllAsRead(ctx context.Context) int
}

// CurrencyStore は表示通貨ストアのインターフェース。
type CurrencyStore interface {
	Current() model.Currency
	Set(c model.Currency) error
	Toggle() model.Currency
	FormatAmount(amount model.Amount) string
}

// RealtimeStatus はリアルタイムチャネルの接続状態を返す。
type RealtimeStatus interface {
	Status() realtime.Status
}

// AccountHandler はダッシュボード・通知・表示通貨のHTTPハンドラー。
type AccountHandler struct {
	dashboard     DashboardCache
	notifications NotificationStore
	currency      CurrencyStore
	realtime      RealtimeStatus
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(dashboard DashboardCache, notifications NotificationStore, currency CurrencyStore, rt RealtimeStatus) *AccountHandler {
	return &AccountHandler{
		dashboard:     dashboard,
		notifications: notifications,
		currency:      currency,
		realtime:      rt,
	}
}

// summaryResponse はダッシュボード要約と表示通貨での整形済み金額。
type summaryResponse struct {
	Summary  model.DashboardSummary `json:"summary"`
	Currency model.Currency         `json:"currency"`
	Display  map[string]string      `json:"display"`
}

type notificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
	UnreadCount   int                  `json:"unreadCount"`
}

// Dashboard はダッシュボードのペイロードを返す。?refresh=1でキャッシュを無視する。
// GET /api/dashboard
func (h *AccountHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.dashboard.Get(r.Context(), isTruthy(r.URL.Query().Get("refresh")))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// DashboardSummary はダッシュボードの要約を表示通貨で整形して返す。
// GET /api/dashboard/summary
func (h *AccountHandler) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.Summary(r.Context(), isTruthy(r.URL.Query().Get("refresh")))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Summary:  summary,
		Currency: h.currency.Current(),
		Display: map[string]string{
			"balance":       h.currency.FormatAmount(summary.Balance),
			"totalInvested": h.currency.FormatAmount(summary.TotalInvested),
			"totalEarnings": h.currency.FormatAmount(summary.TotalEarnings),
		},
	})
}

// Notifications は保持している通知一覧と未読数を返す。
// GET /api/notifications
func (h *AccountHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	h.writeNotifications(w)
}

// RefreshNotifications は通知一覧をバックエンドから取り直す。
// POST /api/notifications/refresh
func (h *AccountHandler) RefreshNotifications(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.Refresh(r.Context()); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.writeNotifications(w)
}

// MarkNotificationRead は通知を既読にする。ローカルの変更は即時に反映される。
// POST /api/notifications/{id}/read
func (h *AccountHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	changed := h.notifications.MarkAsRead(r.Context(), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]any{
		"changed":     changed,
		"unreadCount": h.notifications.UnreadCount(),
	})
}

// MarkAllNotificationsRead は未読の通知をすべて既読にする。
// POST /api/notifications/read-all
func (h *AccountHandler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	marked := h.notifications.MarkAllAsRead(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"marked":      marked,
		"unreadCount": h.notifications.UnreadCount(),
	})
}

// Currency は表示通貨を返す。
// GET /api/currency
func (h *AccountHandler) Currency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]model.Currency{"currency": h.currency.Current()})
}

// SetCurrency は表示通貨を変更する。
// PUT /api/currency
func (h *AccountHandler) SetCurrency(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Currency model.Currency `json:"currency"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := h.currency.Set(req.Currency); err != nil {
		handleServiceError(w, r, model.NewValidationError("currency", "Currency must be NGN or USD"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.Currency{"currency": h.currency.Current()})
}

// ToggleCurrency は表示通貨をNGNとUSDで切り替える。
// POST /api/currency/toggle
func (h *AccountHandler) ToggleCurrency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]model.Currency{"currency": h.currency.Toggle()})
}

// FormatAmount は金額を表示通貨で整形する。
// GET /api/currency/format?amount=1234.5
func (h *AccountHandler) FormatAmount(w http.ResponseWriter, r *http.Request) {
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		handleServiceError(w, r, model.NewValidationError("amount", "Enter a numeric amount"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"currency":  string(h.currency.Current()),
		"formatted": h.currency.FormatAmount(model.SingleAmount(amount)),
	})
}

// Realtime はリアルタイムチャネルの接続状態を返す。
// GET /api/realtime
func (h *AccountHandler) Realtime(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.realtime.Status())
}

func (h *AccountHandler) writeNotifications(w http.ResponseWriter) {
	list := h.notifications.Snapshot()
	if list == nil {
		list = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notificationsResponse{
		Notifications: list,
		UnreadCount:   h.notifications.UnreadCount(),
	})
}
