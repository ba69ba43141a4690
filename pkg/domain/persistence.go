package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. All preconditions are validated before
// any field mutates, so a returned error means the transactional state is
// untouched by that operation.
type Transaction interface {
	Snapshot() TransactionView
	CreateProject(Project) (Project, error)
	UpdateProject(id string, mutator func(*Project) error) (Project, error)
	// AddTimelineEntry validates the entry, inserts it into the project's
	// ordered timeline, overwrites the project's current stage with the
	// entry's stage assertion, and unions the entry's product lines into the
	// project's tag set. Creation of a derived evolution item is the
	// caller's responsibility within the same transaction.
	AddTimelineEntry(projectID string, entry TimelineEntry) (Project, TimelineEntry, error)
	// DeleteTimelineEntry removes the entry only; the project's stage and
	// tag set remain as the entry left them.
	DeleteTimelineEntry(projectID, entryID string) (Project, error)
	CreateEvolutionItem(EvolutionItem) (EvolutionItem, error)
	UpdateEvolutionItem(id string, mutator func(*EvolutionItem) error) (EvolutionItem, error)
	// ReorderEvolutionItems stably partitions the item collection so ranked
	// ids come first in the given order; unranked items keep their prior
	// relative order and unknown ids are ignored.
	ReorderEvolutionItems(rankedIDs []string) error
	AddDictionaryTerm(kind DictionaryKind, term string) error
	RemoveDictionaryTerm(kind DictionaryKind, term string) error
	FindProject(id string) (Project, bool)
	FindEvolutionItem(id string) (EvolutionItem, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// derived computations.
type TransactionView interface {
	ListProjects() []Project
	ListEvolutionItems() []EvolutionItem
	Dictionaries() Dictionaries
	FindProject(id string) (Project, bool)
	FindEvolutionItem(id string) (EvolutionItem, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetProject(id string) (Project, bool)
	ListProjects() []Project
	GetEvolutionItem(id string) (EvolutionItem, bool)
	ListEvolutionItems() []EvolutionItem
	Dictionaries() Dictionaries
}
