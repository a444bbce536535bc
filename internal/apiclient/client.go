// Package apiclient はバックエンドAPIへの全リクエストが通過するHTTPクライアントを提供する。
//
// リクエスト時のベアラートークン付与と、失敗レスポンスに対する横断的な処理
// （セッション破棄、アカウント停止時の遅延リダイレクト、メンテナンス遷移、エラートースト）を一元化する。
// 処理後もエラーは握りつぶさず、常に*model.APIErrorとして呼び出し元へ返す。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/hitoshi/investdesk/internal/clock"
	"github.com/hitoshi/investdesk/internal/metrics"
	"github.com/hitoshi/investdesk/internal/model"
	"github.com/hitoshi/investdesk/internal/navigation"
	"github.com/hitoshi/investdesk/internal/toast"
	"github.com/hitoshi/investdesk/internal/wire"
)

// LoginPath はログインエンドポイント。このリクエストには保存済みトークンを付与しない。
const LoginPath = "/auth/login"

// DefaultSuspensionRedirectDelay はアカウント停止時にトーストを読ませるための遷移遅延の既定値。
const DefaultSuspensionRedirectDelay = 2 * time.Second

// maxResponseSize はレスポンスボディの読み取り上限（10MB）。
const maxResponseSize = 10 << 20

// TokenStore はベアラートークンの保持先のインターフェース。
type TokenStore interface {
	Token() string
	Clear(ctx context.Context)
}

// Options はClientの設定。
type Options struct {
	BaseURL                 string
	Timeout                 time.Duration // 0はトランスポートの既定に従う
	RateLimit               float64       // req/sec。0以下は無制限
	RateBurst               int
	SuspensionRedirectDelay time.Duration
}

// Deps はClientが依存するコンポーネント。
type Deps struct {
	Tokens    TokenStore
	Toasts    toast.Emitter
	Navigator navigation.Navigator
	Clock     clock.Clock
	Metrics   metrics.Recorder
	Logger    *slog.Logger
}

// Client はバックエンドAPIのクライアント。
type Client struct {
	httpClient      *http.Client
	baseURL         string
	limiter         *rate.Limiter
	suspensionDelay time.Duration

	tokens  TokenStore
	toasts  toast.Emitter
	nav     navigation.Navigator
	clock   clock.Clock
	metrics metrics.Recorder
	logger  *slog.Logger

	mu              sync.Mutex
	invalidators    []func()
	pendingRedirect clock.Timer
}

// New はClientを生成する。
func New(opts Options, deps Deps) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	delay := opts.SuspensionRedirectDelay
	if delay <= 0 {
		delay = DefaultSuspensionRedirectDelay
	}

	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	rec := deps.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}

	return &Client{
		httpClient:      &http.Client{Timeout: opts.Timeout, Jar: jar},
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		limiter:         limiter,
		suspensionDelay: delay,
		tokens:          deps.Tokens,
		toasts:          deps.Toasts,
		nav:             deps.Navigator,
		clock:           clk,
		metrics:         rec,
		logger:          deps.Logger,
	}, nil
}

// OnSessionInvalidated はトークン破棄時に同期的に呼ばれる関数を登録する。
// 認証ストアがセッションをトークンと同時に破棄するために使う。
func (c *Client) OnSessionInvalidated(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidators = append(c.invalidators, fn)
}

// Get はGETリクエストを送信し、レスポンスボディを返す。
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post はJSONボディ付きのPOSTリクエストを送信する。
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Put はJSONボディ付きのPUTリクエストを送信する。
func (c *Client) Put(ctx context.Context, path string, body any) ([]byte, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Do はリクエストを送信し、2xxの場合はレスポンスボディを返す。
// 失敗時は横断的な処理を実行したうえで*model.APIErrorを返す。
func (c *Client) Do(ctx context.Context, method, path string, body any) ([]byte, error) {
	// 1. 送信レート制限
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, model.NewNetworkError(err)
	}

	// 2. リクエスト作成
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	// 3. 送信
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordAPILatency(time.Since(start))
	if err != nil {
		c.metrics.RecordAPIResponse(method, 0)
		apiErr := model.NewNetworkError(err)
		// 呼び出し元のキャンセルはユーザーに通知しない
		if ctx.Err() == nil {
			c.logger.Warn("APIへの接続に失敗しました",
				slog.String("method", method),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			if !isQuiet(ctx) {
				c.notifyError(apiErr.Message)
			}
		}
		return nil, apiErr
	}
	defer resp.Body.Close()
	c.metrics.RecordAPIResponse(method, resp.StatusCode)

	// 4. レスポンスボディ読み取り
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, model.NewNetworkError(fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	// 5. 失敗レスポンスの横断処理
	apiErr := newResponseError(resp.StatusCode, wire.ErrorMessage(respBody), respBody)
	c.handleFailure(ctx, path, apiErr)
	return nil, apiErr
}

// newRequest はHTTPリクエストを組み立てる。ログイン以外のリクエストにはトークンを付与する。
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if !IsLoginRequest(path) {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// handleFailure は失敗レスポンスの分類に応じた副作用を実行する。
func (c *Client) handleFailure(ctx context.Context, path string, apiErr *model.APIError) {
	outcome := ClassifyResponse(apiErr.Status, apiErr.Message)
	c.logger.Info("APIがエラーを返しました",
		slog.String("path", path),
		slog.Int("http_status", apiErr.Status),
		slog.String("outcome", outcome.String()),
	)

	switch outcome {
	case OutcomeUnauthorized:
		c.invalidateSession(ctx)
		// 認証導線上やログイン自体の失敗では通知も遷移もしない（リダイレクトループ防止）
		if navigation.IsAuthEntry(c.nav.Current()) || IsLoginRequest(path) {
			return
		}
		c.notifyError(model.MessageSessionExpired)
		c.nav.Navigate(navigation.RouteLanding)

	case OutcomeSuspended:
		c.invalidateSession(ctx)
		c.notifyError(apiErr.Message)
		c.scheduleLandingRedirect()

	case OutcomeMaintenance:
		if navigation.Path(c.nav.Current()) != navigation.RouteMaintenance {
			c.nav.Navigate(navigation.RouteMaintenance)
		}

	default:
		if !isQuiet(ctx) {
			c.notifyError(apiErr.Message)
		}
	}
}

// invalidateSession はトークンを破棄し、登録済みの関数で同じ呼び出しの中でセッションも破棄する。
func (c *Client) invalidateSession(ctx context.Context) {
	c.tokens.Clear(ctx)

	c.mu.Lock()
	fns := make([]func(), len(c.invalidators))
	copy(fns, c.invalidators)
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// scheduleLandingRedirect は遅延後にランディングへ遷移する。保留中の遷移があれば置き換える。
func (c *Client) scheduleLandingRedirect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pendingRedirect != nil {
		c.pendingRedirect.Stop()
	}
	c.pendingRedirect = c.clock.AfterFunc(c.suspensionDelay, func() {
		c.nav.Navigate(navigation.RouteLanding)
	})
}

func (c *Client) notifyError(message string) {
	c.toasts.Notify(message, model.ToastError)
}

// IsLoginRequest はパスがログインエンドポイントかを返す。クエリ文字列は無視する。
func IsLoginRequest(path string) bool {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return strings.HasSuffix(strings.TrimRight(path, "/"), LoginPath)
}

// AsAPIError はエラーチェーンから*model.APIErrorを取り出す。
func AsAPIError(err error) (*model.APIError, bool) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
