package reports

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"supportcore/internal/analytics"
	blobcore "supportcore/internal/blob/core"
	"supportcore/internal/blob/memory"
	"supportcore/internal/core"
	persistmem "supportcore/internal/infra/persistence/memory"
	"supportcore/pkg/domain"
)

type captureAudit struct {
	mu      sync.Mutex
	entries []core.AuditEntry
}

func (c *captureAudit) Record(_ context.Context, entry core.AuditEntry) {
	c.mu.Lock()
	c.entries = append(c.entries, entry)
	c.mu.Unlock()
}

func (c *captureAudit) snapshot() []core.AuditEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.AuditEntry(nil), c.entries...)
}

func seedStore(t *testing.T) *persistmem.Store {
	t.Helper()
	store := persistmem.NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		for _, stage := range []string{"POC", "Signed", "Delivered"} {
			if err := tx.AddDictionaryTerm(domain.DictStage, stage); err != nil {
				return err
			}
		}
		actual := 120.0
		if _, err := tx.CreateProject(domain.Project{
			Name: "gateway rollout", BusinessUnit: "Payments", Stage: "Signed",
			EstimatedValue: 100, ActualValue: &actual, ProductLines: []string{"gateway", "billing"},
		}); err != nil {
			return err
		}
		if _, err := tx.CreateProject(domain.Project{
			Name: "fleet tracking", BusinessUnit: "Logistics", Stage: "POC",
			EstimatedValue: 40, ProductLines: []string{"telemetry"},
		}); err != nil {
			return err
		}
		_, err := tx.CreateEvolutionItem(domain.EvolutionItem{Value: "staged rollouts reduce risk"})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func waitDone(t *testing.T, w *Worker, id string) Record {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		record, ok := w.Get(id)
		if !ok {
			t.Fatalf("record %s disappeared", id)
		}
		if record.Status == StatusSucceeded || record.Status == StatusFailed {
			return record
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("export %s did not finish", id)
	return Record{}
}

func TestExportWritesArtifacts(t *testing.T) {
	ctx := context.Background()
	blobs := memory.New()
	audit := &captureAudit{}
	w := NewWorker(seedStore(t), blobs, WithAuditRecorder(audit))
	w.Start()
	defer func() { _ = w.Stop(context.Background()) }()

	record, err := w.Enqueue(ctx, Input{Kind: KindFunnel, RequestedBy: "analyst@test"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if record.Status != StatusQueued || len(record.Formats) != 2 {
		t.Fatalf("unexpected queued record: %+v", record)
	}

	done := waitDone(t, w, record.ID)
	if done.Status != StatusSucceeded || len(done.Artifacts) != 2 {
		t.Fatalf("unexpected result: %+v", done)
	}

	_, rc, err := blobs.Get(ctx, "reports/funnel/"+record.ID+".json")
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	defer func() { _ = rc.Close() }()
	body, _ := io.ReadAll(rc)
	var funnel []struct {
		Stage string `json:"stage"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal(body, &funnel); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	if len(funnel) != 3 || funnel[0].Stage != "POC" || funnel[0].Count != 2 || funnel[1].Count != 1 {
		t.Fatalf("unexpected funnel payload: %+v", funnel)
	}

	entries := audit.snapshot()
	if len(entries) < 2 {
		t.Fatalf("expected queue and completion audit entries, got %d", len(entries))
	}
	last := entries[len(entries)-1]
	if last.Entity != domain.EntityReport || last.Status != core.AuditStatusSuccess || last.Actor != "analyst@test" {
		t.Fatalf("unexpected audit entry: %+v", last)
	}
}

func TestExportCSVRendering(t *testing.T) {
	ctx := context.Background()
	blobs := memory.New()
	w := NewWorker(seedStore(t), blobs)
	w.Start()
	defer func() { _ = w.Stop(context.Background()) }()

	record, err := w.Enqueue(ctx, Input{Kind: KindAttribution, Formats: []Format{FormatCSV, FormatCSV}})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(record.Formats) != 1 {
		t.Fatalf("duplicate formats must collapse: %+v", record.Formats)
	}
	done := waitDone(t, w, record.ID)
	if done.Status != StatusSucceeded {
		t.Fatalf("export failed: %s", done.Error)
	}

	info, rc, err := blobs.Get(ctx, done.Artifacts[0].Key)
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	defer func() { _ = rc.Close() }()
	if info.ContentType != "text/csv" {
		t.Fatalf("unexpected content type %q", info.ContentType)
	}
	body, _ := io.ReadAll(rc)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if lines[0] != "product_line,revenue,projects" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	// gateway and billing split the 120 actual evenly; telemetry takes all 40.
	if len(lines) != 4 || !strings.HasPrefix(lines[1], "billing,60") {
		t.Fatalf("unexpected rows: %v", lines)
	}
}

func TestEnqueueValidation(t *testing.T) {
	w := NewWorker(seedStore(t), memory.New())
	if _, err := w.Enqueue(context.Background(), Input{}); err == nil {
		t.Fatal("missing kind must be rejected")
	}
	if _, err := w.Enqueue(context.Background(), Input{Kind: "ledger"}); err == nil {
		t.Fatal("unknown kind must be rejected")
	}
	if _, err := w.Enqueue(context.Background(), Input{Kind: KindOverview, Formats: []Format{"xml"}}); err == nil {
		t.Fatal("unknown format must be rejected")
	}
}

func TestExportAppliesFilter(t *testing.T) {
	ctx := context.Background()
	blobs := memory.New()
	w := NewWorker(seedStore(t), blobs)
	w.Start()
	defer func() { _ = w.Stop(context.Background()) }()

	record, err := w.Enqueue(ctx, Input{
		Kind:    KindOverview,
		Formats: []Format{FormatJSON},
		Filter:  analytics.Filter{BusinessUnit: "Payments"},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	done := waitDone(t, w, record.ID)
	if done.Status != StatusSucceeded {
		t.Fatalf("export failed: %s", done.Error)
	}
	_, rc, err := blobs.Get(ctx, done.Artifacts[0].Key)
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	defer func() { _ = rc.Close() }()
	var overview struct {
		ProjectCount int     `json:"project_count"`
		ActualValue  float64 `json:"actual_value"`
	}
	if err := json.NewDecoder(rc).Decode(&overview); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if overview.ProjectCount != 1 || overview.ActualValue != 120 {
		t.Fatalf("filter not applied: %+v", overview)
	}
}

type failingBlobStore struct {
	blobcore.Store
	err error
}

func (f failingBlobStore) Put(context.Context, string, io.Reader, blobcore.PutOptions) (blobcore.Info, error) {
	return blobcore.Info{}, f.err
}

func TestFailedStoreMarksRecordFailed(t *testing.T) {
	ctx := context.Background()
	audit := &captureAudit{}
	blobs := failingBlobStore{Store: memory.New(), err: errBucketDown}
	w := NewWorker(seedStore(t), blobs, WithAuditRecorder(audit))
	w.Start()
	defer func() { _ = w.Stop(context.Background()) }()

	record, err := w.Enqueue(ctx, Input{Kind: KindFunnel, Formats: []Format{FormatJSON}})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	done := waitDone(t, w, record.ID)
	if done.Status != StatusFailed || !strings.Contains(done.Error, "bucket down") {
		t.Fatalf("expected failed record, got %+v", done)
	}
	entries := audit.snapshot()
	last := entries[len(entries)-1]
	if last.Status != core.AuditStatusError {
		t.Fatalf("expected error audit entry, got %+v", last)
	}
}

var errBucketDown = errors.New("bucket down")
