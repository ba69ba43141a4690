// Package memory implements the in-memory transactional store backing the
// support pipeline. Durable backends reuse this store and persist snapshots.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"supportcore/pkg/domain"
)

type memoryState struct {
	projects  map[string]domain.Project
	evolution []domain.EvolutionItem
	dicts     domain.Dictionaries
}

func newMemoryState() memoryState {
	return memoryState{
		projects: make(map[string]domain.Project),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.projects {
		cloned.projects[k] = cloneProject(v)
	}
	cloned.evolution = make([]domain.EvolutionItem, 0, len(s.evolution))
	for _, item := range s.evolution {
		cloned.evolution = append(cloned.evolution, cloneItem(item))
	}
	cloned.dicts = s.dicts.Clone()
	return cloned
}

func cloneProject(p domain.Project) domain.Project {
	cp := p
	cp.ProductLines = append([]string(nil), p.ProductLines...)
	if p.ActualValue != nil {
		v := *p.ActualValue
		cp.ActualValue = &v
	}
	cp.Timeline = make([]domain.TimelineEntry, 0, len(p.Timeline))
	for _, e := range p.Timeline {
		cp.Timeline = append(cp.Timeline, cloneEntry(e))
	}
	return cp
}

func cloneEntry(e domain.TimelineEntry) domain.TimelineEntry {
	cp := e
	cp.ProductLines = append([]string(nil), e.ProductLines...)
	if e.EstimatedDelivery != nil {
		t := *e.EstimatedDelivery
		cp.EstimatedDelivery = &t
	}
	return cp
}

func cloneItem(i domain.EvolutionItem) domain.EvolutionItem {
	cp := i
	cp.ProductLines = append([]string(nil), i.ProductLines...)
	return cp
}

// Store provides an in-memory transactional store for the support domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *domain.RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []domain.Change
	now     time.Time
}

type view struct {
	state *memoryState
}

func newView(state *memoryState) view {
	return view{state: state}
}

// ListProjects returns all projects within the snapshot, newest first.
func (v view) ListProjects() []domain.Project {
	out := make([]domain.Project, 0, len(v.state.projects))
	for _, p := range v.state.projects {
		out = append(out, cloneProject(p))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListEvolutionItems returns the item collection in its persisted order.
func (v view) ListEvolutionItems() []domain.EvolutionItem {
	out := make([]domain.EvolutionItem, 0, len(v.state.evolution))
	for _, item := range v.state.evolution {
		out = append(out, cloneItem(item))
	}
	return out
}

// Dictionaries returns the snapshot's configuration sequences.
func (v view) Dictionaries() domain.Dictionaries {
	return v.state.dicts.Clone()
}

// FindProject retrieves a project by ID from the snapshot.
func (v view) FindProject(id string) (domain.Project, bool) {
	p, ok := v.state.projects[id]
	if !ok {
		return domain.Project{}, false
	}
	return cloneProject(p), true
}

// FindEvolutionItem retrieves an evolution item by ID from the snapshot.
func (v view) FindEvolutionItem(id string) (domain.EvolutionItem, bool) {
	for _, item := range v.state.evolution {
		if item.ID == id {
			return cloneItem(item), true
		}
	}
	return domain.EvolutionItem{}, false
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		snapshot := newView(&tx.state)
		res, err := s.engine.Evaluate(ctx, snapshot, tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newView(&snapshot))
}

func (tx *transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot exposes the transactional state as a read-only view.
func (tx *transaction) Snapshot() domain.TransactionView {
	return newView(&tx.state)
}

// CreateProject stores a new project within the transaction.
func (tx *transaction) CreateProject(p domain.Project) (domain.Project, error) {
	if p.Name == "" {
		return domain.Project{}, domain.ValidationError{Field: "name", Reason: "is required"}
	}
	if p.EstimatedValue < 0 {
		return domain.Project{}, domain.ValidationError{Field: "estimated_value", Reason: "must not be negative"}
	}
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.projects[p.ID]; exists {
		return domain.Project{}, fmt.Errorf("project %q already exists", p.ID)
	}
	if p.Status == "" {
		p.Status = domain.StatusActive
	}
	if p.Date.IsZero() {
		p.Date = tx.now
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.projects[p.ID] = cloneProject(p)
	tx.recordChange(domain.Change{Entity: domain.EntityProject, Action: domain.ActionCreate, After: cloneProject(p)})
	return cloneProject(p), nil
}

// UpdateProject mutates a project using the provided mutator function.
func (tx *transaction) UpdateProject(id string, mutator func(*domain.Project) error) (domain.Project, error) {
	current, ok := tx.state.projects[id]
	if !ok {
		return domain.Project{}, domain.NotFoundError{Entity: domain.EntityProject, ID: id}
	}
	before := cloneProject(current)
	if err := mutator(&current); err != nil {
		return domain.Project{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.projects[id] = cloneProject(current)
	tx.recordChange(domain.Change{Entity: domain.EntityProject, Action: domain.ActionUpdate, Before: before, After: cloneProject(current)})
	return cloneProject(current), nil
}

// AddTimelineEntry validates the entry and applies its side effects to the
// owning project: the entry joins the timeline sorted newest first, the
// project's stage becomes the entry's stage assertion, and the entry's
// product lines are unioned into the project's tag set.
func (tx *transaction) AddTimelineEntry(projectID string, entry domain.TimelineEntry) (domain.Project, domain.TimelineEntry, error) {
	if entry.Stage == "" {
		return domain.Project{}, domain.TimelineEntry{}, domain.ValidationError{Field: "stage", Reason: "is required"}
	}
	if entry.StartTime.IsZero() {
		return domain.Project{}, domain.TimelineEntry{}, domain.ValidationError{Field: "start_time", Reason: "is required"}
	}
	if entry.Hours < 0 {
		return domain.Project{}, domain.TimelineEntry{}, domain.ValidationError{Field: "hours", Reason: "must not be negative"}
	}
	current, ok := tx.state.projects[projectID]
	if !ok {
		return domain.Project{}, domain.TimelineEntry{}, domain.NotFoundError{Entity: domain.EntityProject, ID: projectID}
	}
	if entry.ID == "" {
		entry.ID = tx.store.newID()
	}
	for _, existing := range current.Timeline {
		if existing.ID == entry.ID {
			return domain.Project{}, domain.TimelineEntry{}, fmt.Errorf("timeline entry %q already exists", entry.ID)
		}
	}
	before := cloneProject(current)

	current.Timeline = append([]domain.TimelineEntry{cloneEntry(entry)}, current.Timeline...)
	sort.SliceStable(current.Timeline, func(i, j int) bool {
		return current.Timeline[i].StartTime.After(current.Timeline[j].StartTime)
	})
	current.Stage = entry.Stage
	current.ProductLines = unionStrings(current.ProductLines, entry.ProductLines)
	current.UpdatedAt = tx.now

	tx.state.projects[projectID] = cloneProject(current)
	tx.recordChange(domain.Change{Entity: domain.EntityTimelineEntry, Action: domain.ActionCreate, After: cloneEntry(entry)})
	tx.recordChange(domain.Change{Entity: domain.EntityProject, Action: domain.ActionUpdate, Before: before, After: cloneProject(current)})
	return cloneProject(current), cloneEntry(entry), nil
}

// DeleteTimelineEntry removes the entry from the project's timeline. The
// project keeps the stage and tags the entry contributed.
func (tx *transaction) DeleteTimelineEntry(projectID, entryID string) (domain.Project, error) {
	current, ok := tx.state.projects[projectID]
	if !ok {
		return domain.Project{}, domain.NotFoundError{Entity: domain.EntityProject, ID: projectID}
	}
	idx := -1
	for i, e := range current.Timeline {
		if e.ID == entryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Project{}, domain.NotFoundError{Entity: domain.EntityTimelineEntry, ID: entryID}
	}
	before := cloneProject(current)
	removed := cloneEntry(current.Timeline[idx])
	current.Timeline = append(current.Timeline[:idx], current.Timeline[idx+1:]...)
	current.UpdatedAt = tx.now
	tx.state.projects[projectID] = cloneProject(current)
	tx.recordChange(domain.Change{Entity: domain.EntityTimelineEntry, Action: domain.ActionDelete, Before: removed})
	tx.recordChange(domain.Change{Entity: domain.EntityProject, Action: domain.ActionUpdate, Before: before, After: cloneProject(current)})
	return cloneProject(current), nil
}

// CreateEvolutionItem appends a new item to the collection.
func (tx *transaction) CreateEvolutionItem(item domain.EvolutionItem) (domain.EvolutionItem, error) {
	if item.Value == "" {
		return domain.EvolutionItem{}, domain.ValidationError{Field: "value", Reason: "is required"}
	}
	if item.ID == "" {
		item.ID = tx.store.newID()
	}
	for _, existing := range tx.state.evolution {
		if existing.ID == item.ID {
			return domain.EvolutionItem{}, fmt.Errorf("evolution item %q already exists", item.ID)
		}
	}
	if item.Lane == "" {
		item.Lane = domain.LaneNascent
	}
	if domain.LaneIndex(item.Lane) < 0 {
		return domain.EvolutionItem{}, domain.ValidationError{Field: "lane", Reason: "is not a known lane"}
	}
	if item.Reliability < 0 || item.Reliability > 1 {
		return domain.EvolutionItem{}, domain.ValidationError{Field: "reliability", Reason: "must be within [0, 1]"}
	}
	if item.MergeCount < 1 {
		item.MergeCount = 1
	}
	if item.Date.IsZero() {
		item.Date = tx.now
	}
	item.CreatedAt = tx.now
	item.UpdatedAt = tx.now
	tx.state.evolution = append(tx.state.evolution, cloneItem(item))
	tx.recordChange(domain.Change{Entity: domain.EntityEvolutionItem, Action: domain.ActionCreate, After: cloneItem(item)})
	return cloneItem(item), nil
}

// UpdateEvolutionItem mutates an item in place, preserving its position.
func (tx *transaction) UpdateEvolutionItem(id string, mutator func(*domain.EvolutionItem) error) (domain.EvolutionItem, error) {
	idx := -1
	for i, item := range tx.state.evolution {
		if item.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.EvolutionItem{}, domain.NotFoundError{Entity: domain.EntityEvolutionItem, ID: id}
	}
	current := cloneItem(tx.state.evolution[idx])
	before := cloneItem(current)
	if err := mutator(&current); err != nil {
		return domain.EvolutionItem{}, err
	}
	if domain.LaneIndex(current.Lane) < 0 {
		return domain.EvolutionItem{}, domain.ValidationError{Field: "lane", Reason: "is not a known lane"}
	}
	if current.Reliability < 0 || current.Reliability > 1 {
		return domain.EvolutionItem{}, domain.ValidationError{Field: "reliability", Reason: "must be within [0, 1]"}
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.evolution[idx] = cloneItem(current)
	tx.recordChange(domain.Change{Entity: domain.EntityEvolutionItem, Action: domain.ActionUpdate, Before: before, After: cloneItem(current)})
	return cloneItem(current), nil
}

// ReorderEvolutionItems stably partitions the collection: ranked ids first in
// the given order, everything else behind in its prior relative order. Ids
// that match no item are skipped.
func (tx *transaction) ReorderEvolutionItems(rankedIDs []string) error {
	byID := make(map[string]int, len(tx.state.evolution))
	for i, item := range tx.state.evolution {
		byID[item.ID] = i
	}
	ranked := make([]domain.EvolutionItem, 0, len(rankedIDs))
	taken := make(map[string]bool, len(rankedIDs))
	for _, id := range rankedIDs {
		idx, ok := byID[id]
		if !ok || taken[id] {
			continue
		}
		ranked = append(ranked, tx.state.evolution[idx])
		taken[id] = true
	}
	rest := make([]domain.EvolutionItem, 0, len(tx.state.evolution)-len(ranked))
	for _, item := range tx.state.evolution {
		if !taken[item.ID] {
			rest = append(rest, item)
		}
	}
	tx.state.evolution = append(ranked, rest...)
	return nil
}

// AddDictionaryTerm appends a term to the addressed sequence. Terms are
// unique within a sequence.
func (tx *transaction) AddDictionaryTerm(kind domain.DictionaryKind, term string) error {
	if term == "" {
		return domain.ValidationError{Field: "term", Reason: "is required"}
	}
	seq, err := tx.dictionarySeq(kind)
	if err != nil {
		return err
	}
	for _, existing := range *seq {
		if existing == term {
			return fmt.Errorf("%s term %q already defined", kind, term)
		}
	}
	*seq = append(*seq, term)
	tx.recordChange(domain.Change{Entity: domain.EntityDictionary, Action: domain.ActionUpdate, After: tx.state.dicts.Clone()})
	return nil
}

// RemoveDictionaryTerm removes a term from the addressed sequence. Entities
// still referencing the term become dangling and are tolerated downstream.
func (tx *transaction) RemoveDictionaryTerm(kind domain.DictionaryKind, term string) error {
	seq, err := tx.dictionarySeq(kind)
	if err != nil {
		return err
	}
	for i, existing := range *seq {
		if existing == term {
			*seq = append((*seq)[:i], (*seq)[i+1:]...)
			tx.recordChange(domain.Change{Entity: domain.EntityDictionary, Action: domain.ActionUpdate, After: tx.state.dicts.Clone()})
			return nil
		}
	}
	return fmt.Errorf("%s term %q not found", kind, term)
}

func (tx *transaction) dictionarySeq(kind domain.DictionaryKind) (*[]string, error) {
	switch kind {
	case domain.DictBusinessUnit:
		return &tx.state.dicts.BusinessUnits, nil
	case domain.DictStage:
		return (*[]string)(&tx.state.dicts.Stages), nil
	case domain.DictProductLine:
		return &tx.state.dicts.ProductLines, nil
	default:
		return nil, fmt.Errorf("unknown dictionary kind %q", kind)
	}
}

// FindProject retrieves a project from the transactional state.
func (tx *transaction) FindProject(id string) (domain.Project, bool) {
	p, ok := tx.state.projects[id]
	if !ok {
		return domain.Project{}, false
	}
	return cloneProject(p), true
}

// FindEvolutionItem retrieves an evolution item from the transactional state.
func (tx *transaction) FindEvolutionItem(id string) (domain.EvolutionItem, bool) {
	for _, item := range tx.state.evolution {
		if item.ID == id {
			return cloneItem(item), true
		}
	}
	return domain.EvolutionItem{}, false
}

// GetProject returns a project from the committed state.
func (s *Store) GetProject(id string) (domain.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.projects[id]
	if !ok {
		return domain.Project{}, false
	}
	return cloneProject(p), true
}

// ListProjects returns all committed projects, newest first.
func (s *Store) ListProjects() []domain.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newView(&s.state).ListProjects()
}

// GetEvolutionItem returns an evolution item from the committed state.
func (s *Store) GetEvolutionItem(id string) (domain.EvolutionItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.state.evolution {
		if item.ID == id {
			return cloneItem(item), true
		}
	}
	return domain.EvolutionItem{}, false
}

// ListEvolutionItems returns the committed item collection in order.
func (s *Store) ListEvolutionItems() []domain.EvolutionItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newView(&s.state).ListEvolutionItems()
}

// Dictionaries returns the committed configuration sequences.
func (s *Store) Dictionaries() domain.Dictionaries {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.dicts.Clone()
}

func unionStrings(base, extra []string) []string {
	out := append([]string(nil), base...)
	seen := make(map[string]bool, len(base))
	for _, s := range base {
		seen[s] = true
	}
	for _, s := range extra {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
