package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hitoshi/investdesk/internal/apiclient"
	"github.com/hitoshi/investdesk/internal/auth"
	"github.com/hitoshi/investdesk/internal/clock"
	"github.com/hitoshi/investdesk/internal/config"
	"github.com/hitoshi/investdesk/internal/currency"
	"github.com/hitoshi/investdesk/internal/dashboard"
	"github.com/hitoshi/investdesk/internal/database"
	"github.com/hitoshi/investdesk/internal/investment"
	"github.com/hitoshi/investdesk/internal/metrics"
	"github.com/hitoshi/investdesk/internal/model"
	"github.com/hitoshi/investdesk/internal/navigation"
	"github.com/hitoshi/investdesk/internal/notification"
	"github.com/hitoshi/investdesk/internal/realtime"
	"github.com/hitoshi/investdesk/internal/repository"
	"github.com/hitoshi/investdesk/internal/search"
	"github.com/hitoshi/investdesk/internal/security"
	"github.com/hitoshi/investdesk/internal/toast"
	"github.com/hitoshi/investdesk/internal/wallet"
)

// DeskOptions はDeskの組み立てに使う任意の依存。
type DeskOptions struct {
	Metrics metrics.Recorder
	Clock   clock.Clock
	// OnPush はリアルタイムチャネルで通知を取り込んだ後に呼ばれる。
	OnPush func(n model.Notification)
}

// Desk はクライアント状態の全ストアを組み立てて保持する。
// 認証ストアの状態変化を通知・ダッシュボード・リアルタイムチャネルへ配線する。
type Desk struct {
	DB            *sql.DB // メモリストレージの場合はnil
	Tokens        *repository.TokenStore
	Toasts        *toast.Store
	Navigator     *navigation.Router
	API           *apiclient.Client
	Auth          *auth.Store
	Notifications *notification.Store
	Dashboard     *dashboard.Cache
	Realtime      *realtime.Manager
	Currency      *currency.Store
	Search        *search.Store
	Wallet        *wallet.Service
	Investments   *investment.Service

	logger      *slog.Logger
	unsubscribe []func()
}

// NewDesk は設定からDeskを組み立てる。保存済みトークンの読み込みまで行い、
// セッションの復元は呼び出し元がRestoreで行う。
func NewDesk(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts DeskOptions) (*Desk, error) {
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	d := &Desk{logger: logger}

	// 1. トークンの永続ストア
	storage, err := d.openStorage(cfg)
	if err != nil {
		return nil, err
	}
	d.Tokens = repository.NewTokenStore(storage, logger)
	if _, err := d.Tokens.Load(ctx); err != nil {
		d.Close()
		return nil, err
	}

	// 2. 画面状態
	bus := toast.NewBus()
	d.Toasts = toast.NewStore(bus, clk, cfg.ToastDuration, rec)
	d.Navigator = navigation.NewRouter(navigation.RouteLanding, logger)
	d.Currency = currency.NewStore(cfg.DefaultCurrency)
	d.Search = search.NewStore()

	// 3. APIクライアント
	d.API, err = apiclient.New(apiclient.Options{
		BaseURL:                 cfg.BaseURL(),
		Timeout:                 cfg.HTTPTimeout,
		RateLimit:               cfg.APIRateLimit,
		RateBurst:               cfg.APIRateBurst,
		SuspensionRedirectDelay: cfg.SuspensionRedirectDelay,
	}, apiclient.Deps{
		Tokens:    d.Tokens,
		Toasts:    bus,
		Navigator: d.Navigator,
		Clock:     clk,
		Metrics:   rec,
		Logger:    logger,
	})
	if err != nil {
		d.Close()
		return nil, err
	}

	// 4. セッションに紐づくストア
	d.Auth = auth.NewStore(d.API, d.Tokens, clk, logger)
	d.API.OnSessionInvalidated(d.Auth.Invalidate)

	d.Notifications = notification.NewStore(d.API, security.NewTextSanitizer(), rec, logger, cfg.MarkAllMaxConcurrent)
	d.Dashboard = dashboard.NewCache(d.API, clk, cfg.DashboardTTL, rec, logger)

	var sink realtime.Sink = d.Notifications
	if opts.OnPush != nil {
		sink = pushObserver{store: d.Notifications, onPush: opts.OnPush}
	}
	d.Realtime = realtime.NewManager(realtime.Options{URL: cfg.ChannelURL()}, d.Tokens, sink, rec, logger)

	d.Wallet = wallet.NewService(d.API, d.Dashboard, logger)
	d.Investments = investment.NewService(d.API, d.Dashboard, d.Auth, logger)

	// 5. 認証状態の配線
	d.unsubscribe = append(d.unsubscribe,
		d.Auth.Subscribe(func(state auth.State, user model.User) {
			d.Notifications.HandleSessionChange(context.WithoutCancel(ctx), state, user)
		}),
		d.Auth.Subscribe(d.Dashboard.HandleSessionChange),
		d.Auth.Subscribe(d.Realtime.HandleSessionChange),
	)

	return d, nil
}

// Restore は保存済みトークンからセッションを復元する。
func (d *Desk) Restore(ctx context.Context) auth.State {
	return d.Auth.Restore(ctx)
}

// Close はバックグラウンド処理を停止してリソースを解放する。
func (d *Desk) Close() {
	for _, unsubscribe := range d.unsubscribe {
		unsubscribe()
	}
	d.unsubscribe = nil

	if d.Realtime != nil {
		d.Realtime.Close()
	}
	if d.Notifications != nil {
		d.Notifications.Wait()
	}
	if d.Toasts != nil {
		d.Toasts.Close()
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.logger.Warn("failed to close database", slog.String("error", err.Error()))
		}
		d.DB = nil
	}
}

func (d *Desk) openStorage(cfg *config.Config) (repository.LocalStorage, error) {
	if cfg.UsesMemoryStorage() {
		return repository.NewMemoryStorage(), nil
	}

	if err := database.RunMigrations(cfg.StateDBPath); err != nil {
		return nil, fmt.Errorf("failed to prepare state database: %w", err)
	}
	db, err := database.Open(cfg.StateDBPath)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to state database: %w", err)
	}
	d.DB = db
	return repository.NewSQLiteStorage(db), nil
}

// pushObserver は通知ストアへの取り込みが成功した通知を呼び出し元へも渡す。
type pushObserver struct {
	store  *notification.Store
	onPush func(n model.Notification)
}

func (p pushObserver) Push(raw []byte) bool {
	if !p.store.Push(raw) {
		return false
	}
	if latest := p.store.Snapshot(); len(latest) > 0 {
		p.onPush(latest[0])
	}
	return true
}
