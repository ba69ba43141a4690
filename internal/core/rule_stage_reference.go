package core

import (
	"context"
	"fmt"

	"supportcore/pkg/domain"
)

// StageReferenceRule surfaces projects whose stage no longer appears in the
// stage dictionary. Dangling references are tolerated everywhere downstream,
// so this only leaves a log-severity note in the transaction result.
func NewStageReferenceRule() domain.Rule {
	return stageReferenceRule{}
}

type stageReferenceRule struct{}

func (stageReferenceRule) Name() string { return "stage_reference" }

func (stageReferenceRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	ledger := view.Dictionaries().Stages
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityProject || change.Action == domain.ActionDelete {
			continue
		}
		after, ok := decodeChange[domain.Project](change.After)
		if !ok {
			continue
		}
		if after.Stage == "" || ledger.Contains(after.Stage) {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "stage_reference",
			Severity: domain.SeverityLog,
			Message:  fmt.Sprintf("project %s references stage %q outside the stage dictionary", after.ID, after.Stage),
			Entity:   domain.EntityProject,
			EntityID: after.ID,
		})
	}
	return res, nil
}
