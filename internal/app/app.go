// Package app はコマンドの解析と依存関係の組み立てを行うアプリケーションのエントリーポイント。
package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"github.com/hitoshi/investdesk/internal/auth"
	"github.com/hitoshi/investdesk/internal/config"
	"github.com/hitoshi/investdesk/internal/database"
	"github.com/hitoshi/investdesk/internal/handler"
	"github.com/hitoshi/investdesk/internal/logger"
	"github.com/hitoshi/investdesk/internal/metrics"
	"github.com/hitoshi/investdesk/internal/middleware"
	"github.com/hitoshi/investdesk/internal/model"
	"github.com/hitoshi/investdesk/internal/worker"
)

// ErrNotSignedIn はログインが必要なコマンドを未ログインで実行した場合のエラー。
var ErrNotSignedIn = errors.New("not logged in: run `investdesk login <email>` first")

// Streams はコマンドの入出力先。ログはErrへ出力する。
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	log := logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, log, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(ctx context.Context, streams Streams, args []string) error {
	cmd := ParseCommand(args)
	var rest []string
	if len(args) > 0 && Command(args[0]) == cmd {
		rest = args[1:]
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8787"
		}
		return runHealthcheck(ctx, port)
	}

	cfg, log, err := Init(streams.Err)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	log.Debug("starting application",
		slog.String("command", string(cmd)),
		slog.String("api_base_url", cfg.BaseURL()),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg, log)
	case CommandLogin:
		return runLogin(ctx, cfg, log, streams, rest)
	case CommandLogout:
		return runLogout(ctx, cfg, log, streams)
	case CommandDashboard:
		return runDashboard(ctx, cfg, log, streams)
	case CommandNotifications:
		return runNotifications(ctx, cfg, log, streams)
	case CommandWatch:
		return runWatch(ctx, cfg, log, streams)
	default:
		return runServe(ctx, cfg, log)
	}
}

// runServe はデスクサーバーを起動する。
// 保存済みトークンからセッションを復元し、ストアをHTTPで公開する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	desk, err := NewDesk(ctx, cfg, log, DeskOptions{Metrics: collector})
	if err != nil {
		return err
	}
	defer desk.Close()

	// セッションの復元はサーバー起動と並行して行い、その間ガードは待機を返す
	go func() {
		state := desk.Restore(ctx)
		log.Info("session restore finished", slog.String("state", state.String()))
	}()

	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(cfg.RateLimitGeneral))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRF:              middleware.CSRFConfig{CookieSecure: strings.HasPrefix(cfg.CORSAllowedOrigin, "https://")},
		RateLimiter:       rateLimiter,
		Metrics:           metrics.Handler(reg),
		Health: func(ctx context.Context) error {
			if desk.DB == nil {
				return nil
			}
			return desk.DB.PingContext(ctx)
		},
		Auth:          desk.Auth,
		Dashboard:     desk.Dashboard,
		Notifications: desk.Notifications,
		Currency:      desk.Currency,
		Search:        desk.Search,
		Toasts:        desk.Toasts,
		Navigator:     desk.Navigator,
		Realtime:      desk.Realtime,
		Wallet:        desk.Wallet,
		Investments:   desk.Investments,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// チャネル切断中の通知ポーリングとトークン期限の監視
	scheduler := worker.NewScheduler(log, 0,
		worker.NewNotificationPollJob(desk.Auth, desk.Realtime, desk.Notifications),
		worker.NewSessionExpiryJob(desk.Auth),
	)
	go scheduler.Start(ctx, cfg.WorkerInterval)

	errCh := make(chan error, 1)
	go func() {
		log.Info("desk server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down desk server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("desk server stopped gracefully")
	return nil
}

// runLogin はログインしてトークンを保存する。
// パスワードが引数にない場合は端末から読み取る（端末でなければ1行読む）。
func runLogin(ctx context.Context, cfg *config.Config, log *slog.Logger, streams Streams, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: investdesk login <email> [password]")
	}
	email := args[0]

	password := ""
	if len(args) > 1 {
		password = args[1]
	} else {
		var err error
		if password, err = readPassword(streams); err != nil {
			return err
		}
	}

	desk, err := NewDesk(ctx, cfg, log, DeskOptions{})
	if err != nil {
		return err
	}
	defer desk.Close()

	session, err := desk.Auth.Login(ctx, email, password)
	if err != nil {
		return describeError(err)
	}

	fmt.Fprintf(streams.Out, "Logged in as %s <%s>\n", session.User.Name, session.User.Email)
	return nil
}

// runLogout は保存済みトークンを破棄する。
func runLogout(ctx context.Context, cfg *config.Config, log *slog.Logger, streams Streams) error {
	desk, err := NewDesk(ctx, cfg, log, DeskOptions{})
	if err != nil {
		return err
	}
	defer desk.Close()

	desk.Auth.Logout()
	fmt.Fprintln(streams.Out, "Logged out")
	return nil
}

// runDashboard はダッシュボードの要約を表示通貨で表示する。
func runDashboard(ctx context.Context, cfg *config.Config, log *slog.Logger, streams Streams) error {
	desk, err := openSignedIn(ctx, cfg, log, DeskOptions{})
	if err != nil {
		return err
	}
	defer desk.Close()

	summary, err := desk.Dashboard.Summary(ctx, true)
	if err != nil {
		return describeError(err)
	}

	user, _ := desk.Auth.User()
	fmt.Fprintf(streams.Out, "%s (%s)\n", user.Name, desk.Currency.Current())
	fmt.Fprintf(streams.Out, "  Balance:             %s\n", desk.Currency.FormatAmount(summary.Balance))
	fmt.Fprintf(streams.Out, "  Total invested:      %s\n", desk.Currency.FormatAmount(summary.TotalInvested))
	fmt.Fprintf(streams.Out, "  Total earnings:      %s\n", desk.Currency.FormatAmount(summary.TotalEarnings))
	fmt.Fprintf(streams.Out, "  Active investments:  %d\n", summary.ActiveInvestments)
	fmt.Fprintf(streams.Out, "  Pending withdrawals: %d\n", summary.PendingWithdrawals)
	return nil
}

// runNotifications は通知一覧と未読数をJSONで表示する。
func runNotifications(ctx context.Context, cfg *config.Config, log *slog.Logger, streams Streams) error {
	desk, err := openSignedIn(ctx, cfg, log, DeskOptions{})
	if err != nil {
		return err
	}
	defer desk.Close()

	// セッション復元で開始した初回取得の完了を待つ
	desk.Notifications.Wait()

	enc := json.NewEncoder(streams.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		UnreadCount   int                  `json:"unreadCount"`
		Notifications []model.Notification `json:"notifications"`
	}{
		UnreadCount:   desk.Notifications.UnreadCount(),
		Notifications: desk.Notifications.Snapshot(),
	})
}

// runWatch はリアルタイムチャネルで届いた通知を1行ずつ表示する。
// SIGINTまたはSIGTERMシグナルを受信すると終了する。
func runWatch(ctx context.Context, cfg *config.Config, log *slog.Logger, streams Streams) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printer := func(n model.Notification) {
		fmt.Fprintf(streams.Out, "%s  %-12s %s: %s\n", n.Time.Format(time.RFC3339), n.Type, n.Title, n.Message)
	}

	desk, err := openSignedIn(ctx, cfg, log, DeskOptions{OnPush: printer})
	if err != nil {
		return err
	}
	defer desk.Close()

	fmt.Fprintf(streams.Out, "Watching notifications (%d unread). Press Ctrl+C to stop.\n", desk.Notifications.UnreadCount())

	unsubscribe := desk.Auth.Subscribe(func(state auth.State, _ model.User) {
		if state == auth.StateUnauthenticated {
			stop()
		}
	})
	defer unsubscribe()

	<-ctx.Done()
	if desk.Auth.State() != auth.StateAuthenticated {
		return ErrNotSignedIn
	}
	return nil
}

// runMigrate は状態データベースのマイグレーションを実行する。
func runMigrate(cfg *config.Config, log *slog.Logger) error {
	if cfg.UsesMemoryStorage() {
		log.Info("memory storage selected; nothing to migrate")
		return nil
	}

	log.Info("running database migrations", slog.String("path", cfg.StateDBPath))
	if err := database.RunMigrations(cfg.StateDBPath); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(ctx context.Context, port string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://localhost:%s/health", port), nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// openSignedIn はDeskを組み立ててセッションを復元する。未ログインの場合はErrNotSignedInを返す。
func openSignedIn(ctx context.Context, cfg *config.Config, log *slog.Logger, opts DeskOptions) (*Desk, error) {
	desk, err := NewDesk(ctx, cfg, log, opts)
	if err != nil {
		return nil, err
	}
	if desk.Restore(ctx) != auth.StateAuthenticated {
		desk.Close()
		return nil, ErrNotSignedIn
	}
	return desk, nil
}

// readPassword はパスワードを読み取る。端末の場合はエコーを無効にする。
func readPassword(streams Streams) (string, error) {
	if f, ok := streams.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(streams.Out, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(streams.Out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(streams.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// describeError は入力エラーをフィールドごとの1行に整形する。
func describeError(err error) error {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return fmt.Errorf("invalid input: %w", err)
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return errors.New(apiErr.Message)
	}
	return err
}
