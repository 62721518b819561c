package goAttend

import (
	"testing"
	"time"

	"github.com/MrEthical07/goAttend/apiclient"
	"github.com/MrEthical07/goAttend/tokenstore"
)

func BenchmarkMetricsIncParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricGuardRender)
		}
	})
}

func BenchmarkMetricsIncDisabledParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricGuardRender)
		}
	})
}

func BenchmarkMetricsObserveLatencyParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	d := 180 * time.Millisecond
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricRecoveryLatency, d)
		}
	})
}

// guard decisions are the hot path: one State read and one counter per request
var guardHotMetricIDs = [...]MetricID{
	MetricGuardRender,
	MetricGuardLoading,
	MetricGuardRedirectLogin,
	MetricGuardRedirectDefault,
}

func BenchmarkGuardPathStateAndCounter(b *testing.B) {
	tokens, err := tokenstore.New(tokenstore.NewMemoryBackend(), "bench", discardLogger())
	if err != nil {
		b.Fatalf("token store: %v", err)
	}
	api, err := apiclient.New("http://127.0.0.1:1/api")
	if err != nil {
		b.Fatalf("client: %v", err)
	}
	cfg := DefaultConfig()
	s := newSession("bench", tokens, api, &cfg, discardLogger(), NewMetrics(MetricsConfig{Enabled: true}), nil)
	s.mu.Lock()
	s.user = managerUser()
	s.phase = PhaseAuthenticated
	s.mu.Unlock()
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			_ = s.State()
			s.metrics.Inc(guardHotMetricIDs[idx])
			idx = (idx + 1) % len(guardHotMetricIDs)
		}
	})
}
