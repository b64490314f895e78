package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily は指定名のメトリクスファミリーを返す。見つからない場合はテストを失敗させる。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func TestRecordPostCreated_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPostCreated()
	c.RecordPostCreated()

	mf := findMetricFamily(t, reg, "blogman_posts_created_total")
	if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("posts_created_total = %v, want 2", got)
	}
}

func TestRecordSlugRetryAndExhausted_IncrementCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	for i := 0; i < 3; i++ {
		c.RecordSlugRetry()
	}
	c.RecordSlugExhausted()

	if got := findMetricFamily(t, reg, "blogman_slug_retries_total").GetMetric()[0].GetCounter().GetValue(); got != 3 {
		t.Errorf("slug_retries_total = %v, want 3", got)
	}
	if got := findMetricFamily(t, reg, "blogman_slug_exhausted_total").GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Errorf("slug_exhausted_total = %v, want 1", got)
	}
}

func TestRecordLikeToggled_LabelsAction(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLikeToggled(true)
	c.RecordLikeToggled(true)
	c.RecordLikeToggled(false)

	mf := findMetricFamily(t, reg, "blogman_likes_toggled_total")
	values := make(map[string]float64)
	for _, m := range mf.GetMetric() {
		values[labelValue(m, "action")] = m.GetCounter().GetValue()
	}
	if values["like"] != 2 {
		t.Errorf("like = %v, want 2", values["like"])
	}
	if values["unlike"] != 1 {
		t.Errorf("unlike = %v, want 1", values["unlike"])
	}
}

func TestRecordUpload_AddsBytesPerBackend(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpload("local", 100)
	c.RecordUpload("local", 50)
	c.RecordUpload("s3", 10)

	mf := findMetricFamily(t, reg, "blogman_upload_bytes_total")
	values := make(map[string]float64)
	for _, m := range mf.GetMetric() {
		values[labelValue(m, "backend")] = m.GetCounter().GetValue()
	}
	if values["local"] != 150 || values["s3"] != 10 {
		t.Errorf("upload bytes = %v, want local=150 s3=10", values)
	}
}

func TestRecordHTTPRequest_CountsAndObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest(http.MethodGet, "/api/posts/{slug}", 200, 20*time.Millisecond)
	c.RecordHTTPRequest(http.MethodGet, "/api/posts/{slug}", 404, 5*time.Millisecond)

	requests := findMetricFamily(t, reg, "blogman_http_requests_total")
	if len(requests.GetMetric()) != 2 {
		t.Fatalf("expected 2 label combinations, got %d", len(requests.GetMetric()))
	}
	for _, m := range requests.GetMetric() {
		if labelValue(m, "route") != "/api/posts/{slug}" {
			t.Errorf("route label = %q", labelValue(m, "route"))
		}
	}

	latency := findMetricFamily(t, reg, "blogman_http_request_duration_seconds")
	if got := latency.GetMetric()[0].GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("sample count = %d, want 2", got)
	}
}

func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordCommentAdded()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "blogman_comments_added_total 1") {
		t.Errorf("response should contain blogman_comments_added_total, got:\n%s", body)
	}
}

// 独立したレジストリに登録すれば複数のCollectorを生成してもパニックしない
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()

	c1 := NewCollector(reg1)
	NewCollector(reg2)

	c1.RecordPostCreated()

	families, err := reg2.Gather()
	if err != nil {
		t.Fatalf("failed to gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "blogman_posts_created_total" && mf.GetMetric()[0].GetCounter().GetValue() != 0 {
			t.Error("reg2 should not observe reg1 increments")
		}
	}
}
