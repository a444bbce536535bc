// Package config はアプリケーション設定を環境変数から読み込む。
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/investdesk/internal/model"
)

// MemoryStoragePath はSTATE_DB_PATHにこの値を指定すると揮発性ストレージを使う。
const MemoryStoragePath = "memory"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// API
	APIBaseURL   string // 空の場合はOriginURLからの相対として解決する
	OriginURL    string
	HTTPTimeout  time.Duration // 0はトランスポートの既定に従う
	APIRateLimit float64       // 送信リクエストのレート（req/sec）
	APIRateBurst int

	// Realtime
	RealtimeURL  string
	RealtimePath string

	// Storage
	StateDBPath string

	// Client state
	DashboardTTL            time.Duration
	ToastDuration           time.Duration
	SuspensionRedirectDelay time.Duration
	MarkAllMaxConcurrent    int
	DefaultCurrency         model.Currency

	// Desk server
	ServerPort        string
	CORSAllowedOrigin string
	RateLimitGeneral  int // req/min/user
	WorkerInterval    time.Duration

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 値の形式が不正な場合はエラーを返す。必須の環境変数はない。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.APIBaseURL = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if cfg.APIBaseURL != "" {
		if err := validateHTTPURL(cfg.APIBaseURL); err != nil {
			return nil, fmt.Errorf("API_BASE_URL is invalid: %w", err)
		}
	}

	cfg.OriginURL = strings.TrimRight(getEnvString("ORIGIN_URL", "http://localhost:5000"), "/")
	if err := validateHTTPURL(cfg.OriginURL); err != nil {
		return nil, fmt.Errorf("ORIGIN_URL is invalid: %w", err)
	}

	currency, err := model.ParseCurrency(strings.ToUpper(getEnvString("DEFAULT_CURRENCY", string(model.CurrencyNGN))))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_CURRENCY is invalid: %w", err)
	}
	cfg.DefaultCurrency = currency

	// Optional fields with defaults
	cfg.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", 0)
	cfg.APIRateLimit = getEnvFloat("API_RATE_LIMIT", 10)
	cfg.APIRateBurst = getEnvInt("API_RATE_BURST", 20)
	cfg.RealtimeURL = os.Getenv("REALTIME_URL")
	cfg.RealtimePath = getEnvString("REALTIME_PATH", "/ws")
	cfg.StateDBPath = getEnvString("STATE_DB_PATH", "investdesk.db")
	cfg.DashboardTTL = getEnvDuration("DASHBOARD_TTL", 30*time.Second)
	cfg.ToastDuration = getEnvDuration("TOAST_DURATION", 4*time.Second)
	cfg.SuspensionRedirectDelay = getEnvDuration("SUSPENSION_REDIRECT_DELAY", 2*time.Second)
	cfg.MarkAllMaxConcurrent = getEnvInt("MARK_ALL_MAX_CONCURRENT", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8787")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.WorkerInterval = getEnvDuration("WORKER_INTERVAL", time.Minute)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

// BaseURL はAPIリクエストの解決に使うベースURLを返す。
// API_BASE_URLが未設定の場合は配信元（OriginURL）を使う。
func (c *Config) BaseURL() string {
	if c.APIBaseURL != "" {
		return c.APIBaseURL
	}
	return c.OriginURL
}

// ChannelURL はリアルタイムチャネルの接続先を返す。
// REALTIME_URLが未設定の場合はベースURLのホストへws(s)スキームとREALTIME_PATHで接続する。
func (c *Config) ChannelURL() string {
	if c.RealtimeURL != "" {
		return c.RealtimeURL
	}

	u, err := url.Parse(c.BaseURL())
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = c.RealtimePath
	u.RawQuery = ""
	return u.String()
}

// UsesMemoryStorage は揮発性ストレージが指定されているかを返す。
func (c *Config) UsesMemoryStorage() bool {
	return c.StateDBPath == MemoryStoragePath
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https: %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("host is empty: %q", raw)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
