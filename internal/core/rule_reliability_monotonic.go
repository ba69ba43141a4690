package core

import (
	"context"
	"fmt"

	"supportcore/pkg/domain"
)

// ReliabilityMonotonicRule blocks updates that lower an evolution item's
// reliability. Merges and manual edits may only hold or raise it.
func NewReliabilityMonotonicRule() domain.Rule {
	return reliabilityMonotonicRule{}
}

type reliabilityMonotonicRule struct{}

func (reliabilityMonotonicRule) Name() string { return "reliability_monotonic" }

func (reliabilityMonotonicRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityEvolutionItem || change.Action != domain.ActionUpdate {
			continue
		}
		before, ok := decodeChange[domain.EvolutionItem](change.Before)
		if !ok {
			continue
		}
		after, ok := decodeChange[domain.EvolutionItem](change.After)
		if !ok {
			continue
		}
		if after.Reliability < before.Reliability {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "reliability_monotonic",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("evolution item %s reliability cannot drop from %.2f to %.2f", after.ID, before.Reliability, after.Reliability),
				Entity:   domain.EntityEvolutionItem,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}
