package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/investdesk/internal/auth"
	"github.com/hitoshi/investdesk/internal/model"
)

// AuthStore はセッションハンドラーが必要とする認証ストアのインターフェース。
type AuthStore interface {
	State() auth.State
	User() (model.User, bool)
	Session() *model.Session
	Login(ctx context.Context, email, password string) (*model.Session, error)
	Register(ctx context.Context, profile model.RegisterProfile) (*model.Session, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	Logout()
}

// sessionResponse は認証状態のレスポンス。トークンは返さない。
type sessionResponse struct {
	State string      `json:"state"`
	User  *model.User `json:"user,omitempty"`
}

// SessionHandler はログイン・登録・ログアウトのHTTPハンドラー。
type SessionHandler struct {
	store AuthStore
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(store AuthStore) *SessionHandler {
	return &SessionHandler{store: store}
}

// Current は現在の認証状態を返す。
// GET /api/session
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse{State: h.store.State().String()}
	if session := h.store.Session(); session != nil {
		resp.User = &session.User
	}
	writeJSON(w, http.StatusOK, resp)
}

// Login はメールアドレスとパスワードでログインする。
// POST /auth/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		handleServiceError(w, r, err)
		return
	}

	session, err := h.store.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{State: auth.StateAuthenticated.String(), User: &session.User})
}

// Register は新規登録してそのままログインする。
// POST /auth/register
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var profile model.RegisterProfile
	if err := decodeJSON(w, r, &profile); err != nil {
		handleServiceError(w, r, err)
		return
	}

	session, err := h.store.Register(r.Context(), profile)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{State: auth.StateAuthenticated.String(), User: &session.User})
}

// ForgotPassword はパスワード再設定メールを依頼する。
// アカウントの有無にかかわらず同じメッセージを返す。
// POST /auth/forgot-password
func (h *SessionHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	message, err := h.store.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

// Logout はセッションを破棄する。未ログインでも成功する。
// POST /auth/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.store.Logout()
	w.WriteHeader(http.StatusNoContent)
}
