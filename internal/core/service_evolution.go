package core

import (
	"context"
	"fmt"

	"supportcore/pkg/domain"
)

// MergeKind selects how a merge decision lands in the collection.
type MergeKind string

// Merge decision kinds.
const (
	MergeCreate MergeKind = "create"
	MergeUpdate MergeKind = "update"
)

// MergeDecision is one verdict from a merge review: either a brand new item
// or a reinforcement of an existing one.
type MergeDecision struct {
	Kind     MergeKind
	TargetID string               // update target
	Item     domain.EvolutionItem // create payload
	Value    string               // optional refreshed statement on update
	Analysis string               // optional refreshed analysis on update
}

// CreateEvolutionItem stores a manually authored item. Source defaults to
// communication capture and reliability to the seed value.
func (s *Service) CreateEvolutionItem(ctx context.Context, actor string, item domain.EvolutionItem) (domain.EvolutionItem, domain.Result, error) {
	var created domain.EvolutionItem
	res, err := s.run(ctx, "create_evolution_item", actor, &created.ID, func(tx domain.Transaction) error {
		if item.Source == "" {
			item.Source = domain.SourceCommunication
		}
		if item.Reliability == 0 {
			item.Reliability = seedReliability
		}
		var err error
		created, err = tx.CreateEvolutionItem(item)
		return err
	})
	return created, res, err
}

// UpdateEvolutionItem mutates an item using the provided mutator.
func (s *Service) UpdateEvolutionItem(ctx context.Context, actor, id string, mutator func(*domain.EvolutionItem) error) (domain.EvolutionItem, domain.Result, error) {
	var updated domain.EvolutionItem
	res, err := s.run(ctx, "update_evolution_item", actor, &id, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateEvolutionItem(id, mutator)
		return err
	})
	return updated, res, err
}

// SetEvolutionLane moves an item between maturity lanes. Regressions are
// committed with a warning from the lane regression rule.
func (s *Service) SetEvolutionLane(ctx context.Context, actor, id string, lane domain.Lane) (domain.EvolutionItem, domain.Result, error) {
	var updated domain.EvolutionItem
	res, err := s.run(ctx, "set_evolution_lane", actor, &id, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateEvolutionItem(id, func(item *domain.EvolutionItem) error {
			item.Lane = lane
			return nil
		})
		return err
	})
	return updated, res, err
}

// AttachAnalysis overwrites an item's analysis text.
func (s *Service) AttachAnalysis(ctx context.Context, actor, id, analysis string) (domain.EvolutionItem, domain.Result, error) {
	var updated domain.EvolutionItem
	res, err := s.run(ctx, "attach_analysis", actor, &id, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateEvolutionItem(id, func(item *domain.EvolutionItem) error {
			item.Analysis = analysis
			return nil
		})
		return err
	})
	return updated, res, err
}

// ApplyEvolutionBatch applies a set of merge decisions atomically. Creates
// land in the nascent lane with seed reliability and a merge count of one.
// Updates raise reliability by one step, capped at the maximum, and bump the
// merge count; duplicate decisions against the same target each apply. A
// decision that names a missing target fails the whole batch.
func (s *Service) ApplyEvolutionBatch(ctx context.Context, actor string, decisions []MergeDecision) ([]domain.EvolutionItem, domain.Result, error) {
	var applied []domain.EvolutionItem
	res, err := s.run(ctx, "apply_evolution_batch", actor, nil, func(tx domain.Transaction) error {
		applied = applied[:0]
		for _, decision := range decisions {
			switch decision.Kind {
			case MergeCreate:
				item := decision.Item
				item.Lane = domain.LaneNascent
				item.Reliability = seedReliability
				item.MergeCount = 1
				created, err := tx.CreateEvolutionItem(item)
				if err != nil {
					return err
				}
				applied = append(applied, created)
			case MergeUpdate:
				updated, err := tx.UpdateEvolutionItem(decision.TargetID, func(item *domain.EvolutionItem) error {
					item.Reliability = item.Reliability + mergeReliabilityStep
					if item.Reliability > maxReliability {
						item.Reliability = maxReliability
					}
					item.MergeCount++
					if decision.Value != "" {
						item.Value = decision.Value
					}
					if decision.Analysis != "" {
						item.Analysis = decision.Analysis
					}
					return nil
				})
				if err != nil {
					return err
				}
				applied = append(applied, updated)
			default:
				return fmt.Errorf("unknown merge decision kind %q", decision.Kind)
			}
		}
		return nil
	})
	if err != nil {
		return nil, res, err
	}
	return applied, res, err
}

// RankEvolutionItems reorders the collection so ranked ids come first in the
// given order. Unranked items keep their prior relative order; unknown ids
// are ignored. The committed order is returned.
func (s *Service) RankEvolutionItems(ctx context.Context, actor string, rankedIDs []string) ([]domain.EvolutionItem, domain.Result, error) {
	res, err := s.run(ctx, "rank_evolution_items", actor, nil, func(tx domain.Transaction) error {
		return tx.ReorderEvolutionItems(rankedIDs)
	})
	if err != nil {
		return nil, res, err
	}
	return s.store.ListEvolutionItems(), res, nil
}
