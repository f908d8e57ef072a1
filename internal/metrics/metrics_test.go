package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordExtractSuccess_IncrementsCounter は抽出成功カウンタが増加することを検証する。
func TestRecordExtractSuccess_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordExtractSuccess()
	c.RecordExtractSuccess()

	val := counterValue(t, reg, "receiptly_extract_success_total")
	if val != 2 {
		t.Errorf("extract_success_total = %v, want 2", val)
	}
}

// TestRecordExtractFailure_IncrementsCounterWithStage はステージラベル付きで失敗カウンタが増加することを検証する。
func TestRecordExtractFailure_IncrementsCounterWithStage(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordExtractFailure("parse")
	c.RecordExtractFailure("parse")
	c.RecordExtractFailure("extract")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "receiptly_extract_fail_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case "parse":
					if val != 2 {
						t.Errorf("extract_fail_total{stage=parse} = %v, want 2", val)
					}
				case "extract":
					if val != 1 {
						t.Errorf("extract_fail_total{stage=extract} = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected label value: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("receiptly_extract_fail_total metric not found")
	}
}

// TestRecordStageLatency_ObservesHistogram はステージレイテンシのヒストグラムに値が記録されることを検証する。
func TestRecordStageLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordStageLatency("parse", 100*time.Millisecond)
	c.RecordStageLatency("parse", 2*time.Second)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "receiptly_stage_latency_seconds" {
			found = true
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 2 {
				t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
			}
			// 合計は0.1 + 2.0 = 2.1秒
			if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
				t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
			}
		}
	}
	if !found {
		t.Error("receiptly_stage_latency_seconds metric not found")
	}
}

// TestRecordReceiptCreated_IncrementsCounter はレシート作成カウンタが増加することを検証する。
func TestRecordReceiptCreated_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordReceiptCreated()
	c.RecordReceiptCreated()
	c.RecordReceiptCreated()

	val := counterValue(t, reg, "receiptly_receipts_created_total")
	if val != 3 {
		t.Errorf("receipts_created_total = %v, want 3", val)
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	// いくつかのメトリクスを記録
	c.RecordExtractSuccess()
	c.RecordExtractFailure("parse")
	c.RecordUpstreamStatus("parse", 200)
	c.RecordStageLatency("extract", 500*time.Millisecond)
	c.RecordReceiptCreated()
	c.RecordSignIn()

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	// Prometheus形式のメトリクスが含まれていることを確認
	expectedMetrics := []string{
		"receiptly_extract_success_total",
		"receiptly_extract_fail_total",
		"receiptly_upstream_status_total",
		"receiptly_stage_latency_seconds",
		"receiptly_receipts_created_total",
		"receiptly_sign_ins_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorがMetricsCollectorインターフェースを実装することを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ MetricsCollector = NewCollector(reg)
}

// counterValue はレジストリから指定カウンタの値を取得するヘルパー。
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range metrics {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}

	t.Fatalf("%s metric not found", name)
	return 0
}
