// Package realtime はログインユーザー専用のリアルタイムチャネルを管理する。
//
// セッションが存在する間だけ1本のWebSocket接続を保持し、接続直後にユーザーのルームへ参加する。
// 受信した通知イベントは通知ストアへ転送するだけで、業務ロジックは持たない。
// 接続状態は none → connecting(user) → connected(user) の状態機械で表し、
// ユーザーが変わった場合は古い接続を閉じ終えてから新しい接続を開く。
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/hitoshi/investdesk/internal/auth"
	"github.com/hitoshi/investdesk/internal/metrics"
	"github.com/hitoshi/investdesk/internal/model"
)

// イベント名
const (
	EventJoin         = "join"
	EventNotification = "notification"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultInitialBackoff   = 500 * time.Millisecond
	defaultMaxBackoff       = 30 * time.Second
	closeWriteTimeout       = time.Second
)

// Envelope はチャネル上でやり取りするメッセージ。
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Phase は接続状態。
type Phase int

const (
	PhaseNone Phase = iota
	PhaseConnecting
	PhaseConnected
)

// String は状態名を返す。
func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	default:
		return "none"
	}
}

// Status は現在の接続状態と対象ユーザー。
type Status struct {
	Phase  Phase  `json:"phase"`
	UserID string `json:"userId,omitempty"`
}

// MarshalJSON は状態名で出力する。
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// Sink は受信した通知の転送先。
type Sink interface {
	Push(raw []byte) bool
}

// TokenSource は接続時に付与するベアラートークンの取得元。
type TokenSource interface {
	Token() string
}

// Options はManagerの設定。
type Options struct {
	URL              string
	HandshakeTimeout time.Duration
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
}

// Manager はリアルタイムチャネルのライフサイクルを管理する。
type Manager struct {
	url            string
	dialer         *websocket.Dialer
	initialBackoff time.Duration
	maxBackoff     time.Duration
	tokens         TokenSource
	sink           Sink
	metrics        metrics.Recorder
	logger         *slog.Logger

	// lifecycle は接続の開閉を直列化する
	lifecycle sync.Mutex

	mu     sync.Mutex
	phase  Phase
	userID string
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager はManagerを生成する。
func NewManager(opts Options, tokens TokenSource, sink Sink, rec metrics.Recorder, logger *slog.Logger) *Manager {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	return &Manager{
		url: opts.URL,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		initialBackoff: opts.InitialBackoff,
		maxBackoff:     opts.MaxBackoff,
		tokens:         tokens,
		sink:           sink,
		metrics:        rec,
		logger:         logger,
	}
}

// Status は現在の接続状態を返す。
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{Phase: m.phase, UserID: m.userID}
}

// HandleSessionChange は認証状態の変化に追従して接続を開閉する。
// 同じユーザーのまま再通知された場合は何もしない。
func (m *Manager) HandleSessionChange(state auth.State, user model.User) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if state != auth.StateAuthenticated || user.ID == "" {
		m.stop()
		return
	}

	m.mu.Lock()
	if m.phase != PhaseNone && m.userID == user.ID {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	// 別ユーザーへのイベント混入を防ぐため、古い接続を閉じ終えてから開く
	m.stop()
	m.open(user.ID)
}

// Close は接続を閉じ、接続ループの終了を待つ。
func (m *Manager) Close() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.stop()
}

func (m *Manager) stop() {
	// キャンセルをロック内で行い、以降にattachされる接続がないようにする
	m.mu.Lock()
	cancel, done, conn := m.cancel, m.done, m.conn
	m.cancel, m.done, m.conn = nil, nil, nil
	m.phase = PhaseNone
	userID := m.userID
	m.userID = ""
	if cancel != nil {
		cancel()
	}
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	if conn != nil {
		closeConn(conn)
	}
	<-done
	m.logger.Info("リアルタイムチャネルを切断しました", slog.String("user_id", userID))
}

func (m *Manager) open(userID string) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	m.phase = PhaseConnecting
	m.userID = userID
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	go m.run(ctx, userID, done)
}

// run は接続が切れるたびに指数バックオフで再接続する。セッション終了（ctxのキャンセル）で抜ける。
func (m *Manager) run(ctx context.Context, userID string, done chan struct{}) {
	defer close(done)

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = m.initialBackoff
	eb.MaxInterval = m.maxBackoff
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(eb, ctx)

	for {
		m.setPhase(ctx, PhaseConnecting)

		conn, err := m.connect(ctx, userID)
		if err == nil {
			b.Reset()
			if m.attach(ctx, conn) {
				m.metrics.RecordRealtimeConnect()
				m.logger.Info("リアルタイムチャネルに接続しました", slog.String("user_id", userID))
				err = m.readLoop(ctx, conn)
			}
		}

		if ctx.Err() != nil {
			return
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return
		}
		m.logger.Warn("リアルタイムチャネルが切断されました。再接続します",
			slog.String("user_id", userID),
			slog.Duration("retry_in", wait),
			slog.Any("error", err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// connect は接続してユーザーのルームへ参加する。
func (m *Manager) connect(ctx context.Context, userID string) (*websocket.Conn, error) {
	header := http.Header{}
	if m.tokens != nil {
		if token := m.tokens.Token(); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	conn, _, err := m.dialer.DialContext(ctx, m.url, header)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	data, err := json.Marshal(userID)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("encode join: %w", err)
	}
	if err := conn.WriteJSON(Envelope{Event: EventJoin, Data: data}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send join: %w", err)
	}
	return conn, nil
}

// attach は接続を記録してconnectedへ遷移する。既にセッションが終わっていれば接続を閉じてfalseを返す。
func (m *Manager) attach(ctx context.Context, conn *websocket.Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() != nil {
		conn.Close()
		return false
	}
	m.conn = conn
	m.phase = PhaseConnected
	return true
}

func (m *Manager) setPhase(ctx context.Context, phase Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	m.phase = phase
	m.conn = nil
}

// readLoop は接続が切れるまで受信を続け、通知イベントを転送する。
func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("closed by server")
			}
			return err
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			m.logger.Warn("不正なメッセージを受信しました", slog.String("error", err.Error()))
			continue
		}
		if env.Event != EventNotification {
			m.logger.Debug("未対応のイベントを無視しました", slog.String("event", env.Event))
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.sink.Push(env.Data)
	}
}

func closeConn(conn *websocket.Conn) {
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeWriteTimeout),
	)
	conn.Close()
}
