// Package core wires the support pipeline's transactional service layer:
// project intake, timeline progress, knowledge evolution, and the
// dictionaries that configure them.
package core

import (
	"context"
	"errors"
	"time"

	"supportcore/internal/infra/persistence/memory"
	"supportcore/pkg/domain"
)

// Service exposes higher-level transactional operations for the support
// domain. Every mutation runs inside a store transaction and is instrumented
// with audit, metrics, and tracing hooks.
type Service struct {
	store   domain.PersistentStore
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	clock   Clock
}

// ServiceOption customizes service construction.
type ServiceOption func(*Service)

// WithLogger overrides the default no-op logger.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditRecorder overrides the default no-op audit recorder.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithMetricsRecorder overrides the default no-op metrics recorder.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer overrides the default no-op tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock overrides the service clock, used for audit timestamps.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine.
func NewInMemoryService(engine *domain.RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

type operationMetadata struct {
	entity domain.EntityType
	action domain.Action
}

var operations = map[string]operationMetadata{
	"init_project":           {entity: domain.EntityProject, action: domain.ActionCreate},
	"update_project":         {entity: domain.EntityProject, action: domain.ActionUpdate},
	"set_project_stage":      {entity: domain.EntityProject, action: domain.ActionUpdate},
	"record_progress":        {entity: domain.EntityTimelineEntry, action: domain.ActionCreate},
	"remove_progress":        {entity: domain.EntityTimelineEntry, action: domain.ActionDelete},
	"create_evolution_item":  {entity: domain.EntityEvolutionItem, action: domain.ActionCreate},
	"update_evolution_item":  {entity: domain.EntityEvolutionItem, action: domain.ActionUpdate},
	"set_evolution_lane":     {entity: domain.EntityEvolutionItem, action: domain.ActionUpdate},
	"attach_analysis":        {entity: domain.EntityEvolutionItem, action: domain.ActionUpdate},
	"apply_evolution_batch":  {entity: domain.EntityEvolutionItem, action: domain.ActionUpdate},
	"rank_evolution_items":   {entity: domain.EntityEvolutionItem, action: domain.ActionUpdate},
	"add_dictionary_term":    {entity: domain.EntityDictionary, action: domain.ActionUpdate},
	"remove_dictionary_term": {entity: domain.EntityDictionary, action: domain.ActionUpdate},
}

// run executes fn in a store transaction with tracing, metrics, audit, and
// warning propagation around it. entityID is read after fn completes so
// closures can report generated ids.
func (s *Service) run(ctx context.Context, operation, actor string, entityID *string, fn func(domain.Transaction) error) (domain.Result, error) {
	ctx, span := s.tracer.Start(ctx, operation)
	start := time.Now()
	res, err := s.store.RunInTransaction(ctx, fn)
	duration := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, duration)

	id := ""
	if entityID != nil {
		id = *entityID
	}
	switch {
	case err == nil:
		s.logger.Debug("operation committed", "operation", operation, "actor", actor, "entity_id", id)
		s.recordAudit(ctx, operation, actor, id, AuditStatusSuccess, duration, nil)
	case isBlocked(err):
		s.logger.Warn("operation blocked by rules", "operation", operation, "actor", actor, "entity_id", id)
		s.recordAudit(ctx, operation, actor, id, AuditStatusBlocked, duration, err)
	default:
		s.logger.Error("operation failed", "operation", operation, "actor", actor, "error", err)
		s.recordAudit(ctx, operation, actor, id, AuditStatusError, duration, err)
	}
	for _, v := range res.Violations {
		switch v.Severity {
		case domain.SeverityWarn:
			s.logger.Warn(v.Message, "rule", v.Rule, "entity_id", v.EntityID)
		case domain.SeverityLog:
			s.logger.Info(v.Message, "rule", v.Rule, "entity_id", v.EntityID)
		}
	}
	return res, err
}

func isBlocked(err error) bool {
	var rve domain.RuleViolationError
	return errors.As(err, &rve)
}

func (s *Service) recordAudit(ctx context.Context, operation, actor, entityID string, status AuditStatus, duration time.Duration, err error) {
	meta, ok := operations[operation]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: operation,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Actor:     actor,
		Status:    status,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

// Projects returns all committed projects, newest first.
func (s *Service) Projects() []domain.Project {
	return s.store.ListProjects()
}

// GetProject returns a committed project by id.
func (s *Service) GetProject(id string) (domain.Project, bool) {
	return s.store.GetProject(id)
}

// EvolutionItems returns the committed item collection in display order.
func (s *Service) EvolutionItems() []domain.EvolutionItem {
	return s.store.ListEvolutionItems()
}

// GetEvolutionItem returns a committed evolution item by id.
func (s *Service) GetEvolutionItem(id string) (domain.EvolutionItem, bool) {
	return s.store.GetEvolutionItem(id)
}

// Dictionaries returns the committed configuration sequences.
func (s *Service) Dictionaries() domain.Dictionaries {
	return s.store.Dictionaries()
}
