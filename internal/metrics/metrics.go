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
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
	RecordLogin(result string)
	RecordPrediction(modelName string, outcome string)
	RecordRateLimited(limitType string)
	RecordLoanCreated()
	RecordLoanReturned()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
	logins          *prometheus.CounterVec
	predictions     *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	loansCreated    prometheus.Counter
	loansReturned   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "libgate_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "libgate_request_duration_seconds",
			Help:    "HTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "libgate_logins_total",
			Help: "ログイン試行の結果別合計数",
		}, []string{"result"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "libgate_predictions_total",
			Help: "モデル別・結果別の予測リクエスト合計数",
		}, []string{"model", "outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "libgate_rate_limited_total",
			Help: "レート制限で拒否されたリクエストの種別別合計数",
		}, []string{"limit_type"}),
		loansCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "libgate_loans_created_total",
			Help: "作成された貸出の合計数",
		}),
		loansReturned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "libgate_loans_returned_total",
			Help: "返却された貸出の合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestDuration,
		c.logins,
		c.predictions,
		c.rateLimited,
		c.loansCreated,
		c.loansReturned,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// RecordLogin はログイン試行の結果を記録する。resultは"success"または"failure"。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordPrediction は予測リクエストの結果を記録する。
// outcomeは"success"、"invalid_features"、"timeout"、"unavailable"のいずれか。
func (c *Collector) RecordPrediction(modelName string, outcome string) {
	c.predictions.WithLabelValues(modelName, outcome).Inc()
}

// RecordRateLimited はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimited(limitType string) {
	c.rateLimited.WithLabelValues(limitType).Inc()
}

// RecordLoanCreated は貸出の作成を記録する。
func (c *Collector) RecordLoanCreated() {
	c.loansCreated.Inc()
}

// RecordLoanReturned は貸出の返却を記録する。
func (c *Collector) RecordLoanReturned() {
	c.loansReturned.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
