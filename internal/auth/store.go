// Package auth はログインユーザーのセッションとトークンのライフサイクルを管理する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/investdesk/internal/clock"
	"github.com/hitoshi/investdesk/internal/model"
	"github.com/hitoshi/investdesk/internal/validation"
	"github.com/hitoshi/investdesk/internal/wire"
)

// APIエンドポイント
const (
	PathLogin          = "/auth/login"
	PathRegister       = "/auth/register"
	PathForgotPassword = "/auth/forgot-password"
	PathProfile        = "/user/profile"
)

// API は認証ストアが使うバックエンドAPIのインターフェース。
type API interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Post(ctx context.Context, path string, body any) ([]byte, error)
}

// TokenStore はベアラートークンの保持先のインターフェース。
type TokenStore interface {
	Token() string
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context)
}

// Listener は状態変化の購読者。unauthenticated/loadingの場合userはゼロ値。
type Listener func(state State, user model.User)

// Store はセッションを唯一所有する認証ストア。
// セッションが存在するならトークンも保存されており、トークン破棄と同じ呼び出しの中でセッションも破棄する。
type Store struct {
	api       API
	tokens    TokenStore
	validator *validation.Validator
	clock     clock.Clock
	logger    *slog.Logger

	mu         sync.Mutex
	state      State
	session    *model.Session
	generation uint64
	nextID     int
	listeners  map[int]Listener
}

// NewStore はunauthenticated状態のStoreを生成する。
func NewStore(api API, tokens TokenStore, clk clock.Clock, logger *slog.Logger) *Store {
	return &Store{
		api:       api,
		tokens:    tokens,
		validator: validation.New(),
		clock:     clk,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
}

// State は現在の状態を返す。
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session は現在のセッションのコピーを返す。未ログインの場合はnilを返す。
func (s *Store) Session() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	copied := *s.session
	return &copied
}

// User は現在のユーザーを返す。未ログインの場合はokにfalseを返す。
func (s *Store) User() (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return model.User{}, false
	}
	return s.session.User, true
}

// Subscribe は状態変化の購読者を登録し、登録解除関数を返す。
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Login は認証情報を送信し、成功時にトークンとセッションを保存する。
// 失敗時はサーバーのエラーをそのまま返し、状態は変えない。
func (s *Store) Login(ctx context.Context, email, password string) (*model.Session, error) {
	creds := model.Credentials{Email: email, Password: password}
	if err := s.validator.Struct(creds); err != nil {
		return nil, err
	}

	body, err := s.api.Post(ctx, PathLogin, creds)
	if err != nil {
		return nil, err
	}
	return s.establishFromResponse(ctx, body)
}

// Register は新規登録を行い、成功時にトークンとセッションを保存する。紹介コードは任意。
func (s *Store) Register(ctx context.Context, profile model.RegisterProfile) (*model.Session, error) {
	if err := s.validator.Struct(profile); err != nil {
		return nil, err
	}

	body, err := s.api.Post(ctx, PathRegister, profile)
	if err != nil {
		return nil, err
	}
	return s.establishFromResponse(ctx, body)
}

// ForgotPassword はパスワード再設定メールを要求する。
// アカウントの存在を漏らさないため、送信結果に関わらず常に同じ案内文を返す。
// メールアドレスの形式が不正な場合のみ入力エラーを返す。
func (s *Store) ForgotPassword(ctx context.Context, email string) (string, error) {
	if err := s.validator.Var("email", email, "required,email"); err != nil {
		return "", err
	}

	if _, err := s.api.Post(ctx, PathForgotPassword, map[string]string{"email": email}); err != nil {
		s.logger.Warn("パスワード再設定の要求に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	return model.MessageForgotPassword, nil
}

// Logout はトークンとセッションを同期的に破棄する。ネットワークを使わないためオフラインでも成功する。
func (s *Store) Logout() {
	s.tokens.Clear(context.Background())
	s.clear("logout")
}

// Invalidate はトークンが既に破棄された後にセッションを破棄する。
// APIクライアントが401/アカウント停止を受けた際に同期的に呼ぶ。
func (s *Store) Invalidate() {
	s.clear("invalidated")
}

// Restore は起動時に保存済みトークンからセッションを復元する。
// 解決中はloadingとなり、失敗した場合はトークンを破棄してunauthenticatedに戻る。
// 有効期限切れのJWTはネットワークを使わずに破棄する。
func (s *Store) Restore(ctx context.Context) State {
	token := s.tokens.Token()
	if token == "" {
		return s.State()
	}

	if tokenExpired(token, s.clock) {
		s.logger.Info("保存済みトークンの有効期限が切れています")
		s.tokens.Clear(ctx)
		s.clear("token_expired")
		return StateUnauthenticated
	}

	// 1. loadingへ遷移
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.state = StateLoading
	fns := s.listenersLocked()
	s.mu.Unlock()
	notify(fns, StateLoading, model.User{})

	// 2. 現在のユーザーを解決
	body, err := s.api.Get(ctx, PathProfile)
	var user model.User
	if err == nil {
		user = wire.Profile(body)
		if user.ID == "" {
			err = model.NewDecodeError(200, errors.New("profile response has no user id"))
		}
	}

	// 3. 解決中にログアウト等で状態が変わっていれば結果を捨てる
	s.mu.Lock()
	stale := s.generation != gen
	s.mu.Unlock()
	if stale {
		return s.State()
	}

	if err != nil {
		s.logger.Warn("セッションの復元に失敗しました", slog.String("error", err.Error()))
		s.tokens.Clear(ctx)
		s.clear("restore_failed")
		return StateUnauthenticated
	}

	now := s.clock.Now()
	s.establish(&model.Session{User: user, Token: token, StartedAt: now, RestoredAt: now})
	s.logger.Info("セッションを復元しました", slog.String("user_id", user.ID))
	return StateAuthenticated
}

// ExpireIfStale はセッション中のトークンの有効期限が切れていればトークンとセッションを破棄する。
// 破棄した場合はtrueを返す。
func (s *Store) ExpireIfStale(ctx context.Context) bool {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return false
	}
	token := s.session.Token
	s.mu.Unlock()

	if !tokenExpired(token, s.clock) {
		return false
	}
	s.logger.Info("セッション中のトークンの有効期限が切れました")
	s.tokens.Clear(ctx)
	s.clear("token_expired")
	return true
}

// RefreshProfile はプロフィールを再取得してユーザー情報を置き換える。
func (s *Store) RefreshProfile(ctx context.Context) (model.User, error) {
	if s.State() != StateAuthenticated {
		return model.User{}, model.NewNotSignedInError()
	}

	body, err := s.api.Get(ctx, PathProfile)
	if err != nil {
		return model.User{}, err
	}
	user := wire.Profile(body)
	if user.ID == "" {
		return model.User{}, model.NewDecodeError(200, errors.New("profile response has no user id"))
	}

	s.mu.Lock()
	if s.session == nil || s.session.User.ID != user.ID {
		s.mu.Unlock()
		return model.User{}, model.NewNotSignedInError()
	}
	s.session.User = user
	fns := s.listenersLocked()
	s.mu.Unlock()

	notify(fns, StateAuthenticated, user)
	return user, nil
}

// SetUser は他機能からの楽観的な部分更新をセッションに適用する。
// サーバーへの再検証は行わない。未ログインの場合はfalseを返す。
func (s *Store) SetUser(patch model.UserPatch) bool {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return false
	}
	patch.Apply(&s.session.User)
	user := s.session.User
	fns := s.listenersLocked()
	s.mu.Unlock()

	notify(fns, StateAuthenticated, user)
	return true
}

// establishFromResponse はログイン・登録のレスポンスからセッションを確立する。
func (s *Store) establishFromResponse(ctx context.Context, body []byte) (*model.Session, error) {
	token, user, ok := wire.AuthResponse(body)
	if !ok {
		return nil, model.NewDecodeError(200, errors.New("auth response has no token"))
	}

	if err := s.tokens.Set(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	session := &model.Session{User: user, Token: token, StartedAt: s.clock.Now()}
	s.establish(session)
	s.logger.Info("ログインしました", slog.String("user_id", user.ID))

	copied := *session
	return &copied, nil
}

func (s *Store) establish(session *model.Session) {
	s.mu.Lock()
	s.generation++
	s.session = session
	s.state = StateAuthenticated
	user := session.User
	fns := s.listenersLocked()
	s.mu.Unlock()

	notify(fns, StateAuthenticated, user)
}

// clear はセッションを破棄してunauthenticatedへ遷移する。既に未ログインなら何もしない。
func (s *Store) clear(reason string) {
	s.mu.Lock()
	if s.state == StateUnauthenticated && s.session == nil {
		s.mu.Unlock()
		return
	}
	s.generation++
	s.session = nil
	s.state = StateUnauthenticated
	fns := s.listenersLocked()
	s.mu.Unlock()

	s.logger.Info("セッションを破棄しました", slog.String("reason", reason))
	notify(fns, StateUnauthenticated, model.User{})
}

// listenersLocked は登録順のリスナー一覧を返す。s.muを保持して呼ぶ。
func (s *Store) listenersLocked() []Listener {
	fns := make([]Listener, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

func notify(fns []Listener, state State, user model.User) {
	for _, fn := range fns {
		fn(state, user)
	}
}

// tokenExpired はJWTのexpクレームが過去かを返す。
// 署名は検証しない（検証はサーバーの責務）。JWTでないトークンは期限切れとみなさない。
func tokenExpired(token string, clk clock.Clock) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(clk.Now())
}
