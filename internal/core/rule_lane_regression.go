package core

import (
	"context"
	"fmt"

	"supportcore/pkg/domain"
)

// LaneRegressionRule flags evolution items moved backwards through the
// maturity lanes. Regressions commit, but operators are warned since they
// usually indicate a mistaken drag rather than a deliberate demotion.
func NewLaneRegressionRule() domain.Rule {
	return laneRegressionRule{}
}

type laneRegressionRule struct{}

func (laneRegressionRule) Name() string { return "lane_regression" }

func (laneRegressionRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
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
		beforeIdx := domain.LaneIndex(before.Lane)
		afterIdx := domain.LaneIndex(after.Lane)
		if beforeIdx < 0 || afterIdx < 0 {
			continue
		}
		if afterIdx < beforeIdx {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "lane_regression",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("evolution item %s moved back from %s to %s", after.ID, before.Lane, after.Lane),
				Entity:   domain.EntityEvolutionItem,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}
