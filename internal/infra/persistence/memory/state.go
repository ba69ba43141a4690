package memory

import (
	"supportcore/pkg/domain"
)

// Snapshot is the serializable image of the full store state. Durable
// backends marshal it into their bucket tables.
type Snapshot struct {
	Projects       map[string]domain.Project `json:"projects"`
	EvolutionItems []domain.EvolutionItem    `json:"evolution_items"`
	Dictionaries   domain.Dictionaries       `json:"dictionaries"`
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Projects:       make(map[string]domain.Project, len(state.projects)),
		EvolutionItems: make([]domain.EvolutionItem, 0, len(state.evolution)),
		Dictionaries:   state.dicts.Clone(),
	}
	for k, v := range state.projects {
		s.Projects[k] = cloneProject(v)
	}
	for _, item := range state.evolution {
		s.EvolutionItems = append(s.EvolutionItems, cloneItem(item))
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Projects {
		state.projects[k] = cloneProject(v)
	}
	state.evolution = make([]domain.EvolutionItem, 0, len(s.EvolutionItems))
	for _, item := range s.EvolutionItems {
		state.evolution = append(state.evolution, cloneItem(item))
	}
	state.dicts = s.Dictionaries.Clone()
	return state
}

// migrateSnapshot normalizes snapshots written by older revisions: nil
// collections become empty, unknown lanes fall back to nascent, reliability
// is clamped to [0, 1], and merge counts start at one. Dangling stage,
// business unit, and product line references are kept as-is.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Projects == nil {
		snapshot.Projects = map[string]domain.Project{}
	}
	for id, p := range snapshot.Projects {
		if p.Status == "" {
			p.Status = domain.StatusActive
		}
		snapshot.Projects[id] = p
	}
	items := make([]domain.EvolutionItem, 0, len(snapshot.EvolutionItems))
	for _, item := range snapshot.EvolutionItems {
		if item.Value == "" {
			continue
		}
		if domain.LaneIndex(item.Lane) < 0 {
			item.Lane = domain.LaneNascent
		}
		if item.Reliability < 0 {
			item.Reliability = 0
		}
		if item.Reliability > 1 {
			item.Reliability = 1
		}
		if item.MergeCount < 1 {
			item.MergeCount = 1
		}
		items = append(items, item)
	}
	snapshot.EvolutionItems = items
	return snapshot
}

// ExportState returns a deep copy of the committed state for persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the committed state with the snapshot contents.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}
