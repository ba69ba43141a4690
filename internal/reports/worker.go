package reports

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"

	"supportcore/internal/analytics"
	blobcore "supportcore/internal/blob/core"
	"supportcore/internal/core"
	"supportcore/pkg/domain"
)

// Status describes the lifecycle stage of an export job.
type Status string

// Export job statuses.
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Artifact captures one stored export artifact.
type Artifact struct {
	Key         string    `json:"key"`
	Format      Format    `json:"format"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	ETag        string    `json:"etag,omitempty"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record tracks an export request and the resulting artifacts.
type Record struct {
	ID          string           `json:"id"`
	Kind        Kind             `json:"kind"`
	Formats     []Format         `json:"formats"`
	Filter      analytics.Filter `json:"filter"`
	Status      Status           `json:"status"`
	Error       string           `json:"error,omitempty"`
	Artifacts   []Artifact       `json:"artifacts,omitempty"`
	RequestedBy string           `json:"requested_by"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

func (r Record) copy() Record {
	dup := r
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]Artifact(nil), r.Artifacts...)
	}
	return dup
}

// Input is an enqueue request for the worker.
type Input struct {
	Kind        Kind
	Formats     []Format
	Filter      analytics.Filter
	RequestedBy string
}

// Worker renders report exports asynchronously and stores the artifacts.
type Worker struct {
	source domain.PersistentStore
	blobs  blobcore.Store
	audit  core.AuditRecorder
	logger core.Logger

	queue chan string
	mu    sync.RWMutex
	jobs  map[string]*Record

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WorkerOption customizes worker construction.
type WorkerOption func(*Worker)

// WithAuditRecorder attaches an audit sink for export lifecycle events.
func WithAuditRecorder(recorder core.AuditRecorder) WorkerOption {
	return func(w *Worker) {
		if recorder != nil {
			w.audit = recorder
		}
	}
}

// WithLogger attaches a logger for export processing.
func WithLogger(logger core.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorker constructs an export worker reading from source and writing
// artifacts to blobs.
func NewWorker(source domain.PersistentStore, blobs blobcore.Store, opts ...WorkerOption) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		source: source,
		blobs:  blobs,
		queue:  make(chan string, 32),
		jobs:   make(map[string]*Record),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins processing queued exports.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop halts processing and waits for the in-flight job, if any.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case id := <-w.queue:
			w.process(id)
		}
	}
}

// Enqueue validates and schedules an export, returning the queued record.
func (w *Worker) Enqueue(ctx context.Context, input Input) (Record, error) {
	if input.Kind == "" {
		return Record{}, domain.ValidationError{Field: "kind", Reason: "is required"}
	}
	if _, err := buildDataset(input.Kind, nil, nil, nil); err != nil {
		return Record{}, err
	}
	formats := input.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	uniq := make([]Format, 0, len(formats))
	seen := make(map[Format]struct{}, len(formats))
	for _, format := range formats {
		if format != FormatJSON && format != FormatCSV {
			return Record{}, fmt.Errorf("unsupported export format %q", format)
		}
		if _, dup := seen[format]; dup {
			continue
		}
		uniq = append(uniq, format)
		seen[format] = struct{}{}
	}

	now := time.Now().UTC()
	record := Record{
		ID:          newID(),
		Kind:        input.Kind,
		Formats:     uniq,
		Filter:      input.Filter,
		Status:      StatusQueued,
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[record.ID] = &record
	snapshot := record.copy()
	w.mu.Unlock()

	w.recordAudit(ctx, snapshot, core.AuditStatusSuccess, "")

	select {
	case w.queue <- record.ID:
	default:
		w.fail(record.ID, "export queue full")
		return Record{}, fmt.Errorf("export queue full")
	}
	return snapshot, nil
}

// Get returns a snapshot of the export record.
func (w *Worker) Get(id string) (Record, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return Record{}, false
	}
	return record.copy(), true
}

// List returns snapshots of all export records, newest first.
func (w *Worker) List() []Record {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Record, 0, len(w.jobs))
	for _, record := range w.jobs {
		out = append(out, record.copy())
	}
	sortRecords(out)
	return out
}

func (w *Worker) process(id string) {
	record, ok := w.Get(id)
	if !ok {
		return
	}
	w.setStatus(id, StatusRunning, "")

	var projects []domain.Project
	var items []domain.EvolutionItem
	var ledger domain.StageLedger
	err := w.source.View(w.ctx, func(view domain.TransactionView) error {
		projects = analytics.FilterProjects(view.ListProjects(), record.Filter)
		items = analytics.FilterItems(view.ListEvolutionItems(), record.Filter)
		ledger = view.Dictionaries().Stages
		return nil
	})
	if err != nil {
		w.fail(id, fmt.Sprintf("read state: %v", err))
		return
	}

	data, err := buildDataset(record.Kind, projects, items, ledger)
	if err != nil {
		w.fail(id, err.Error())
		return
	}

	artifacts := make([]Artifact, 0, len(record.Formats))
	for _, format := range record.Formats {
		payload, err := data.encode(format)
		if err != nil {
			w.fail(id, err.Error())
			return
		}
		key := fmt.Sprintf("reports/%s/%s.%s", record.Kind, id, format)
		info, err := w.blobs.Put(w.ctx, key, bytes.NewReader(payload), blobcore.PutOptions{
			ContentType: format.contentType(),
			Metadata:    map[string]string{"kind": string(record.Kind), "requested_by": record.RequestedBy},
		})
		if err != nil {
			w.fail(id, fmt.Sprintf("store artifact: %v", err))
			return
		}
		artifacts = append(artifacts, Artifact{
			Key:         info.Key,
			Format:      format,
			ContentType: info.ContentType,
			SizeBytes:   info.Size,
			ETag:        info.ETag,
			URL:         info.URL,
			CreatedAt:   info.LastModified,
		})
	}
	w.complete(id, artifacts)
}

func (w *Worker) setStatus(id string, status Status, message string) {
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = time.Now().UTC()
	}
	w.mu.Unlock()
}

func (w *Worker) complete(id string, artifacts []Artifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	record, ok := w.jobs[id]
	if ok {
		record.Status = StatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	snapshot := Record{}
	if ok {
		snapshot = record.copy()
	}
	w.mu.Unlock()
	if ok {
		w.recordAudit(w.ctx, snapshot, core.AuditStatusSuccess, "")
		if w.logger != nil {
			w.logger.Info("report export succeeded", "id", id, "kind", snapshot.Kind, "artifacts", len(artifacts))
		}
	}
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	record, ok := w.jobs[id]
	if ok {
		record.Status = StatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	snapshot := Record{}
	if ok {
		snapshot = record.copy()
	}
	w.mu.Unlock()
	if ok {
		w.recordAudit(w.ctx, snapshot, core.AuditStatusError, reason)
		if w.logger != nil {
			w.logger.Error("report export failed", "id", id, "kind", snapshot.Kind, "reason", reason)
		}
	}
}

func (w *Worker) recordAudit(ctx context.Context, record Record, status core.AuditStatus, message string) {
	if w.audit == nil {
		return
	}
	w.audit.Record(ctx, core.AuditEntry{
		Operation: "export_report",
		Entity:    domain.EntityReport,
		Action:    domain.ActionCreate,
		EntityID:  record.ID,
		Actor:     record.RequestedBy,
		Status:    status,
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}
