// Package domain defines the core entities, dictionary types, and rule
// evaluation primitives used by supportcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityProject identifies a support project record.
	EntityProject EntityType = "project"
	// EntityTimelineEntry identifies a timeline entry owned by a project.
	EntityTimelineEntry EntityType = "timeline_entry"
	// EntityEvolutionItem identifies a distilled evolution item record.
	EntityEvolutionItem EntityType = "evolution_item"
	// EntityDictionary identifies a dictionary mutation.
	EntityDictionary EntityType = "dictionary"
	// EntityReport identifies an exported report artifact.
	EntityReport EntityType = "report"
)

// ProjectStatus enumerates the coarse lifecycle states of a support project.
type ProjectStatus string

// Canonical project statuses.
const (
	StatusActive    ProjectStatus = "active"
	StatusCompleted ProjectStatus = "completed"
	StatusBlocked   ProjectStatus = "blocked"
)

// Lane represents the adoption-maturity state of an evolution item. Lanes are
// ordered: nascent precedes validating precedes adopted.
type Lane string

// Evolution item lanes in adoption order.
const (
	LaneNascent    Lane = "nascent"
	LaneValidating Lane = "validating"
	LaneAdopted    Lane = "adopted"
)

// lanes in adoption order; index defines maturity for regression detection.
var laneOrder = []Lane{LaneNascent, LaneValidating, LaneAdopted}

// LaneIndex returns the position of the lane in adoption order, or -1 when the
// lane is unknown.
func LaneIndex(lane Lane) int {
	for i, l := range laneOrder {
		if l == lane {
			return i
		}
	}
	return -1
}

// SourceKind identifies where an evolution item was distilled from.
type SourceKind string

// Evolution item source kinds.
const (
	// SourceProject marks an item extracted from a project timeline entry.
	SourceProject SourceKind = "project"
	// SourceCommunication marks an item observed in day-to-day communication.
	SourceCommunication SourceKind = "communication"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project represents a unit of support work performed for one business unit.
// Its current stage references the stage ledger by name; the reference may
// dangle after ledger edits and downstream computations must treat that as
// "unmatched", never as an error.
type Project struct {
	Base
	Name           string          `json:"name"`
	BusinessUnit   string          `json:"business_unit"`
	Stage          string          `json:"stage"`
	Status         ProjectStatus   `json:"status"`
	ValueImpact    string          `json:"value_impact,omitempty"`
	EstimatedValue float64         `json:"estimated_value"`
	ActualValue    *float64        `json:"actual_value,omitempty"`
	Initiator      string          `json:"initiator"`
	ProductLines   []string        `json:"product_lines"`
	Date           time.Time       `json:"date"`
	Timeline       []TimelineEntry `json:"timeline"`
}

// AttributionValue returns the quantity used for per-tag value attribution:
// the actual value once recorded, the estimate before that. Recording an
// actual value therefore changes historical rollups retroactively.
func (p Project) AttributionValue() float64 {
	if p.ActualValue != nil {
		return *p.ActualValue
	}
	return p.EstimatedValue
}

// TimelineEntry is one dated progress record within a project's history.
// Entries are kept in descending start-time order, ties broken by insertion
// recency.
type TimelineEntry struct {
	ID                string     `json:"id"`
	StartTime         time.Time  `json:"start_time"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	Stage             string     `json:"stage"`
	Requirement       string     `json:"requirement"`
	IterationValue    string     `json:"iteration_value"`
	Hours             float64    `json:"hours"`
	ProductLines      []string   `json:"product_lines"`
}

// EvolutionItem is a distilled, potentially mergeable candidate for a
// generalized product capability.
type EvolutionItem struct {
	Base
	Source       SourceKind `json:"source"`
	ProjectID    string     `json:"project_id,omitempty"`
	SourceName   string     `json:"source_name,omitempty"`
	BusinessUnit string     `json:"business_unit"`
	ProductLines []string   `json:"product_lines"`
	Value        string     `json:"value"`
	Date         time.Time  `json:"date"`
	Lane         Lane       `json:"lane"`
	Reliability  float64    `json:"reliability"`
	MergeCount   int        `json:"merge_count"`
	Analysis     string     `json:"analysis,omitempty"`
}
