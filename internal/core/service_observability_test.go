package core

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"supportcore/pkg/domain"
)

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus) bool {
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			return true
		}
	}
	return false
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type captureLogger struct{ calls []string }

func (c *captureLogger) Debug(msg string, _ ...any) { c.calls = append(c.calls, "d:"+msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.calls = append(c.calls, "i:"+msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.calls = append(c.calls, "w:"+msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.calls = append(c.calls, "e:"+msg) }

func TestServiceObservabilityHooks(t *testing.T) {
	ctx := context.Background()
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := NewJSONTracer(&bytes.Buffer{})
	log := &captureLogger{}
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	svc := NewInMemoryService(NewDefaultRulesEngine(),
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithLogger(log),
		WithClock(ClockFunc(func() time.Time { return fixed })),
	)

	project, _, err := svc.InitProject(ctx, actor, domain.Project{Name: "Observed"})
	if err != nil {
		t.Fatalf("init project: %v", err)
	}
	if !audit.has("init_project", AuditStatusSuccess) {
		t.Fatal("expected init_project success audit entry")
	}
	entry := audit.entries[0]
	if entry.EntityID != project.ID || entry.Actor != actor {
		t.Fatalf("audit entry must carry entity and actor: %+v", entry)
	}
	if !entry.Timestamp.Equal(fixed) {
		t.Fatalf("audit timestamp must come from the clock, got %v", entry.Timestamp)
	}
	if !metrics.has("init_project", true) {
		t.Fatal("expected success metric for init_project")
	}

	if _, _, err := svc.UpdateProject(ctx, actor, "missing", func(*domain.Project) error { return nil }); err == nil {
		t.Fatal("expected update of missing project to fail")
	}
	if !audit.has("update_project", AuditStatusError) {
		t.Fatal("expected update_project error audit entry")
	}
	if !metrics.has("update_project", false) {
		t.Fatal("expected error metric for update_project")
	}

	spans := tracer.Entries()
	if len(spans) < 2 {
		t.Fatalf("expected spans for both operations, got %d", len(spans))
	}
	var sawDebug bool
	for _, call := range log.calls {
		if strings.HasPrefix(call, "d:") {
			sawDebug = true
		}
	}
	if !sawDebug {
		t.Fatal("expected debug log for committed operation")
	}
}

func TestBlockedOperationAuditsBlockedStatus(t *testing.T) {
	ctx := context.Background()
	audit := &captureAuditRecorder{}
	svc := NewInMemoryService(NewDefaultRulesEngine(), WithAuditRecorder(audit))

	item, _, err := svc.CreateEvolutionItem(ctx, actor, domain.EvolutionItem{Value: "solid", Reliability: 0.95})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, _, err := svc.UpdateEvolutionItem(ctx, actor, item.ID, func(i *domain.EvolutionItem) error {
		i.Reliability = 0.1
		return nil
	}); err == nil {
		t.Fatal("expected blocked update")
	}
	if !audit.has("update_evolution_item", AuditStatusBlocked) {
		t.Fatal("expected blocked audit entry")
	}
}

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "init_project", true, 10*time.Millisecond)
	rec.Observe(context.Background(), "init_project", false, 5*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Second)

	snap := rec.Snapshot()
	if snap.Results["init_project"]["success"] != 1 || snap.Results["init_project"]["error"] != 1 {
		t.Fatalf("unexpected results: %+v", snap.Results)
	}
	if snap.DurationsMS["init_project"] < 14 {
		t.Fatalf("expected aggregated duration, got %v", snap.DurationsMS)
	}
}

func TestNoopImplementations(t *testing.T) {
	var logger noopLogger
	logger.Debug("noop")
	logger.Info("noop")
	logger.Warn("noop")
	logger.Error("noop")

	var audit noopAuditRecorder
	audit.Record(context.Background(), AuditEntry{})

	var metrics noopMetricsRecorder
	metrics.Observe(context.Background(), "noop", true, 0)

	tracer := noopTracer{}
	ctx, span := tracer.Start(context.Background(), "op")
	if ctx == nil {
		t.Fatal("expected context from tracer")
	}
	span.End(nil)
}
