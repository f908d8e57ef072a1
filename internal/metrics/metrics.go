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
// 抽出パイプラインとハンドラー層から利用する。
type MetricsCollector interface {
	RecordExtractSuccess()
	RecordExtractFailure(stage string)
	RecordStageLatency(stage string, duration time.Duration)
	RecordUpstreamStatus(stage string, statusCode int)
	RecordReceiptCreated()
	RecordSignIn()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	extractSuccess  prometheus.Counter
	extractFail     *prometheus.CounterVec
	stageLatency    *prometheus.HistogramVec
	upstreamStatus  *prometheus.CounterVec
	receiptsCreated prometheus.Counter
	signIns         prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		extractSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "receiptly_extract_success_total",
			Help: "抽出パイプライン成功の合計数",
		}),
		extractFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "receiptly_extract_fail_total",
			Help: "ステージ別の抽出パイプライン失敗数",
		}, []string{"stage"}),
		stageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "receiptly_stage_latency_seconds",
			Help:    "抽出ステージのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "receiptly_upstream_status_total",
			Help: "抽出サービスのHTTPステータスコード別レスポンス数",
		}, []string{"stage", "status_code"}),
		receiptsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "receiptly_receipts_created_total",
			Help: "作成されたレシートの合計数",
		}),
		signIns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "receiptly_sign_ins_total",
			Help: "サインイン成功の合計数",
		}),
	}

	reg.MustRegister(
		c.extractSuccess,
		c.extractFail,
		c.stageLatency,
		c.upstreamStatus,
		c.receiptsCreated,
		c.signIns,
	)

	return c
}

// RecordExtractSuccess は抽出パイプラインの成功を記録する。
func (c *Collector) RecordExtractSuccess() {
	c.extractSuccess.Inc()
}

// RecordExtractFailure はステージ名付きで抽出パイプラインの失敗を記録する。
func (c *Collector) RecordExtractFailure(stage string) {
	c.extractFail.WithLabelValues(stage).Inc()
}

// RecordStageLatency は抽出ステージのレイテンシを記録する。
func (c *Collector) RecordStageLatency(stage string, duration time.Duration) {
	c.stageLatency.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordUpstreamStatus は抽出サービスのHTTPステータスコードを記録する。
func (c *Collector) RecordUpstreamStatus(stage string, statusCode int) {
	c.upstreamStatus.WithLabelValues(stage, strconv.Itoa(statusCode)).Inc()
}

// RecordReceiptCreated はレシート作成を記録する。
func (c *Collector) RecordReceiptCreated() {
	c.receiptsCreated.Inc()
}

// RecordSignIn はサインイン成功を記録する。
func (c *Collector) RecordSignIn() {
	c.signIns.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
