package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/investdesk/internal/model"
)

// ToastStore はトーストストアのインターフェース。
type ToastStore interface {
	List() []model.Toast
	Dismiss(id string) bool
}

// SearchStore は検索クエリストアのインターフェース。
type SearchStore interface {
	Query() string
	Set(q string) string
	Clear()
}

// Navigator は現在の画面遷移先を保持するルーターのインターフェース。
type Navigator interface {
	Current() string
	Navigate(to string)
}

// UIHandler はトースト・検索クエリ・画面遷移の状態を公開するHTTPハンドラー。
type UIHandler struct {
	toasts    ToastStore
	search    SearchStore
	navigator Navigator
}

// NewUIHandler はUIHandlerを生成する。
func NewUIHandler(toasts ToastStore, search SearchStore, navigator Navigator) *UIHandler {
	return &UIHandler{toasts: toasts, search: search, navigator: navigator}
}

// Toasts は表示中のトーストを古い順に返す。
// GET /api/toasts
func (h *UIHandler) Toasts(w http.ResponseWriter, r *http.Request) {
	list := h.toasts.List()
	if list == nil {
		list = []model.Toast{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.Toast{"toasts": list})
}

// DismissToast はトーストを手動で閉じる。
// DELETE /api/toasts/{id}
func (h *UIHandler) DismissToast(w http.ResponseWriter, r *http.Request) {
	if !h.toasts.Dismiss(chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "toast not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search は現在の検索クエリを返す。
// GET /api/search
func (h *UIHandler) Search(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"query": h.search.Query()})
}

// SetSearch は検索クエリを設定する。
// PUT /api/search
func (h *UIHandler) SetSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"query": h.search.Set(req.Query)})
}

// ClearSearch は検索クエリを消去する。
// DELETE /api/search
func (h *UIHandler) ClearSearch(w http.ResponseWriter, r *http.Request) {
	h.search.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// Route は現在の画面を返す。セッション失効時の強制遷移もここに反映される。
// GET /api/route
func (h *UIHandler) Route(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"route": h.navigator.Current()})
}

// Navigate は画面を遷移する。
// PUT /api/route
func (h *UIHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To string `json:"to"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if req.To == "" || req.To[0] != '/' {
		handleServiceError(w, r, model.NewValidationError("to", "Route must start with /"))
		return
	}
	h.navigator.Navigate(req.To)
	writeJSON(w, http.StatusOK, map[string]string{"route": h.navigator.Current()})
}
