package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetricsRecorderObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	rec.Observe(context.Background(), "init_project", true, 25*time.Millisecond)
	rec.Observe(context.Background(), "init_project", false, 5*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Second)

	if got := testutil.CollectAndCount(rec.results); got != 2 {
		t.Fatalf("expected 2 result series, got %d", got)
	}
	success := testutil.ToFloat64(rec.results.WithLabelValues("init_project", "success"))
	if success != 1 {
		t.Fatalf("expected 1 success, got %v", success)
	}
}

func TestPrometheusMetricsRecorderDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}
