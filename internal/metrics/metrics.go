// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とHTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordPostCreated()
	RecordSlugRetry()
	RecordSlugExhausted()
	RecordLikeToggled(liked bool)
	RecordCommentAdded()
	RecordUpload(backend string, size int)
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	postsCreated   prometheus.Counter
	slugRetries    prometheus.Counter
	slugExhausted  prometheus.Counter
	likesToggled   *prometheus.CounterVec
	commentsAdded  prometheus.Counter
	uploadBytes    *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogman_posts_created_total",
			Help: "作成された投稿の合計数",
		}),
		slugRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogman_slug_retries_total",
			Help: "挿入時のスラッグ競合による再試行の合計数",
		}),
		slugExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogman_slug_exhausted_total",
			Help: "一意なスラッグを生成できなかった回数",
		}),
		likesToggled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blogman_likes_toggled_total",
			Help: "いいねの切り替え回数（action=like|unlike）",
		}, []string{"action"}),
		commentsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogman_comments_added_total",
			Help: "追加されたコメントの合計数",
		}),
		uploadBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blogman_upload_bytes_total",
			Help: "保存先別のアップロード済みバイト数",
		}, []string{"backend"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blogman_http_requests_total",
			Help: "メソッド・ルート・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blogman_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.postsCreated,
		c.slugRetries,
		c.slugExhausted,
		c.likesToggled,
		c.commentsAdded,
		c.uploadBytes,
		c.httpRequests,
		c.requestLatency,
	)

	return c
}

// RecordPostCreated は投稿の作成を記録する。
func (c *Collector) RecordPostCreated() {
	c.postsCreated.Inc()
}

// RecordSlugRetry はスラッグ競合による再試行を記録する。
func (c *Collector) RecordSlugRetry() {
	c.slugRetries.Inc()
}

// RecordSlugExhausted はスラッグ生成の試行上限到達を記録する。
func (c *Collector) RecordSlugExhausted() {
	c.slugExhausted.Inc()
}

// RecordLikeToggled はいいねの切り替えを記録する。
func (c *Collector) RecordLikeToggled(liked bool) {
	action := "unlike"
	if liked {
		action = "like"
	}
	c.likesToggled.WithLabelValues(action).Inc()
}

// RecordCommentAdded はコメントの追加を記録する。
func (c *Collector) RecordCommentAdded() {
	c.commentsAdded.Inc()
}

// RecordUpload はアップロードされたファイルのサイズを記録する。
func (c *Collector) RecordUpload(backend string, size int) {
	c.uploadBytes.WithLabelValues(backend).Add(float64(size))
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
// routeにはパスパラメータを含まないルートパターンを渡すこと。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.requestLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。メトリクスが不要なテストや構成で使う。
type Nop struct{}

func (Nop) RecordPostCreated()                                   {}
func (Nop) RecordSlugRetry()                                     {}
func (Nop) RecordSlugExhausted()                                 {}
func (Nop) RecordLikeToggled(bool)                               {}
func (Nop) RecordCommentAdded()                                  {}
func (Nop) RecordUpload(string, int)                             {}
func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
