package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goAttend "github.com/MrEthical07/goAttend"
)

type fakeSource struct {
	snapshot goAttend.MetricsSnapshot
	dropped  uint64
	live     int
}

func (f fakeSource) MetricsSnapshot() goAttend.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }
func (f fakeSource) Len() int                                  { return f.live }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := New(fakeSource{snapshot: goAttend.NewMetrics(goAttend.MetricsConfig{}).Snapshot(), live: 3})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderCountersHistogramAndGauges(t *testing.T) {
	exp := New(fakeSource{
		snapshot: goAttend.MetricsSnapshot{
			Counters: map[goAttend.MetricID]uint64{
				goAttend.MetricRecoverySuccess:    7,
				goAttend.MetricGuardRedirectLogin: 2,
			},
			Histograms: map[goAttend.MetricID][]uint64{
				goAttend.MetricRecoveryLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
		live:    5,
	})

	out := exp.Render()
	for _, want := range []string{
		"goattend_recovery_success_total 7",
		"goattend_guard_redirect_login_total 2",
		"goattend_forced_logout_total 0",
		"# TYPE goattend_recovery_latency_seconds histogram",
		`goattend_recovery_latency_seconds_bucket{le="0.025"} 1`,
		`goattend_recovery_latency_seconds_bucket{le="+Inf"} 36`,
		"goattend_recovery_latency_seconds_count 36",
		"goattend_audit_dropped_total 2",
		"# TYPE goattend_live_sessions gauge",
		"goattend_live_sessions 5",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderSkipsHistogramWhenLatencyDisabled(t *testing.T) {
	m := goAttend.NewMetrics(goAttend.MetricsConfig{Enabled: true})
	m.Inc(goAttend.MetricLogin)

	out := New(fakeSource{snapshot: m.Snapshot()}).Render()
	if !strings.Contains(out, "goattend_login_total 1") {
		t.Fatalf("expected login counter, got:\n%s", out)
	}
	if strings.Contains(out, "goattend_recovery_latency_seconds") {
		t.Fatalf("histogram rendered without latency enabled:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := New(fakeSource{
		snapshot: goAttend.MetricsSnapshot{
			Counters: map[goAttend.MetricID]uint64{goAttend.MetricLogin: 1},
		},
	})

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
