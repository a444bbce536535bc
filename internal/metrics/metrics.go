// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はメトリクス収集のインターフェース。
// APIクライアントや各ストアから利用する。
type Recorder interface {
	RecordAPIResponse(method string, statusCode int)
	RecordAPILatency(duration time.Duration)
	RecordDashboardCache(hit bool)
	RecordNotificationsIngested(source string, count int)
	RecordRealtimeConnect()
	RecordToast(kind string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	apiResponses          *prometheus.CounterVec
	apiLatency            prometheus.Histogram
	dashboardCache        *prometheus.CounterVec
	notificationsIngested *prometheus.CounterVec
	realtimeConnects      prometheus.Counter
	toasts                *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		apiResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "investdesk_api_responses_total",
			Help: "バックエンドAPIのステータスコード別レスポンス数（通信エラーは0）",
		}, []string{"method", "status_code"}),
		apiLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "investdesk_api_latency_seconds",
			Help:    "バックエンドAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		dashboardCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "investdesk_dashboard_cache_total",
			Help: "ダッシュボードキャッシュの参照結果（hit/miss）",
		}, []string{"result"}),
		notificationsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "investdesk_notifications_ingested_total",
			Help: "取り込んだ通知の件数（refresh/push別）",
		}, []string{"source"}),
		realtimeConnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "investdesk_realtime_connects_total",
			Help: "リアルタイムチャネルの接続（再接続を含む）回数",
		}),
		toasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "investdesk_toasts_total",
			Help: "種別ごとのトースト発行数",
		}, []string{"type"}),
	}

	reg.MustRegister(
		c.apiResponses,
		c.apiLatency,
		c.dashboardCache,
		c.notificationsIngested,
		c.realtimeConnects,
		c.toasts,
	)

	return c
}

// RecordAPIResponse はAPIレスポンスのステータスコードを記録する。
func (c *Collector) RecordAPIResponse(method string, statusCode int) {
	c.apiResponses.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
}

// RecordAPILatency はAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordAPILatency(duration time.Duration) {
	c.apiLatency.Observe(duration.Seconds())
}

// RecordDashboardCache はダッシュボードキャッシュのヒット/ミスを記録する。
func (c *Collector) RecordDashboardCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.dashboardCache.WithLabelValues(result).Inc()
}

// RecordNotificationsIngested は取り込んだ通知件数を記録する。
func (c *Collector) RecordNotificationsIngested(source string, count int) {
	c.notificationsIngested.WithLabelValues(source).Add(float64(count))
}

// RecordRealtimeConnect はリアルタイムチャネルの接続成功を記録する。
func (c *Collector) RecordRealtimeConnect() {
	c.realtimeConnects.Inc()
}

// RecordToast はトーストの発行を記録する。
func (c *Collector) RecordToast(kind string) {
	c.toasts.WithLabelValues(kind).Inc()
}

// Nop は何も記録しないRecorder。メトリクス不要なCLIサブコマンドやテストで使う。
type Nop struct{}

func (Nop) RecordAPIResponse(string, int)           {}
func (Nop) RecordAPILatency(time.Duration)          {}
func (Nop) RecordDashboardCache(bool)               {}
func (Nop) RecordNotificationsIngested(string, int) {}
func (Nop) RecordRealtimeConnect()                  {}
func (Nop) RecordToast(string)                      {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
