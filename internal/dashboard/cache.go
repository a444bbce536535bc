// Package dashboard はダッシュボードのレスポンスを短時間キャッシュする。
//
// キャッシュは1スロットのみで、複数画面が同じダッシュボードを参照する際の重複取得を防ぐ。
// 強制再取得が重なった場合は後から書き込んだ結果が残る。
package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/investdesk/internal/auth"
	"github.com/hitoshi/investdesk/internal/clock"
	"github.com/hitoshi/investdesk/internal/metrics"
	"github.com/hitoshi/investdesk/internal/model"
	"github.com/hitoshi/investdesk/internal/wire"
)

// PathDashboard はダッシュボードのエンドポイント。
const PathDashboard = "/user/dashboard"

// DefaultTTL はキャッシュの有効期間の既定値。
const DefaultTTL = 30 * time.Second

// API はダッシュボード取得に使うバックエンドAPIのインターフェース。
type API interface {
	Get(ctx context.Context, path string) ([]byte, error)
}

// Cache はダッシュボードの1スロットキャッシュ。
type Cache struct {
	api     API
	clock   clock.Clock
	ttl     time.Duration
	metrics metrics.Recorder
	logger  *slog.Logger

	mu       sync.Mutex
	snapshot *model.DashboardSnapshot
	userID   string
	// generation は破棄のたびに進め、破棄前に開始した取得結果の書き戻しを防ぐ
	generation uint64
}

// NewCache はCacheを生成する。ttlが0以下の場合はDefaultTTLを使う。
func NewCache(api API, clk clock.Clock, ttl time.Duration, rec metrics.Recorder, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{api: api, clock: clk, ttl: ttl, metrics: rec, logger: logger}
}

// Get はダッシュボードを返す。
// forceRefreshがfalseで取得から有効期間内であればネットワークを使わずにキャッシュを返す。
// それ以外は取得してキャッシュを上書きする。
func (c *Cache) Get(ctx context.Context, forceRefresh bool) (model.DashboardSnapshot, error) {
	if !forceRefresh {
		c.mu.Lock()
		snap := c.snapshot
		fresh := snap != nil && c.clock.Now().Sub(snap.CapturedAt) < c.ttl
		c.mu.Unlock()
		if fresh {
			c.metrics.RecordDashboardCache(true)
			return *snap, nil
		}
	}
	c.metrics.RecordDashboardCache(false)

	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	body, err := c.api.Get(ctx, PathDashboard)
	if err != nil {
		return model.DashboardSnapshot{}, err
	}

	payload := json.RawMessage(wire.Unwrap(body).Raw)
	if len(payload) == 0 {
		payload = body
	}
	snap := &model.DashboardSnapshot{
		Payload:    payload,
		CapturedAt: c.clock.Now(),
	}

	c.mu.Lock()
	if c.generation == gen {
		c.snapshot = snap
	}
	c.mu.Unlock()

	return *snap, nil
}

// Summary はダッシュボードから残高などの集計値を取り出す。
func (c *Cache) Summary(ctx context.Context, forceRefresh bool) (model.DashboardSummary, error) {
	snap, err := c.Get(ctx, forceRefresh)
	if err != nil {
		return model.DashboardSummary{}, err
	}
	return wire.DashboardSummary(snap.Payload), nil
}

// Invalidate はキャッシュを破棄する。入出金後やセッション変更時に呼ぶ。
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// HandleSessionChange はセッションが変わった際に別ユーザーのキャッシュを再利用しないよう破棄する。
// 同じユーザーのままの通知（プロフィール更新等）ではキャッシュを残す。
func (c *Cache) HandleSessionChange(state auth.State, user model.User) {
	userID := ""
	if state == auth.StateAuthenticated {
		userID = user.ID
	}

	c.mu.Lock()
	if state == auth.StateAuthenticated && c.userID == userID {
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	c.userID = userID
	c.mu.Unlock()

	c.logger.Debug("ダッシュボードのキャッシュを破棄しました", slog.String("state", state.String()))
}

// resetLocked はキャッシュを破棄し、取得中の結果を無効にする。c.muを保持して呼ぶ。
func (c *Cache) resetLocked() {
	c.snapshot = nil
	c.generation++
}
