package analytics

import "supportcore/pkg/domain"

// FunnelStage is one bucket of the cumulative stage funnel.
type FunnelStage struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

// Funnel counts, for every ledger stage, the projects that have reached that
// stage or any later one. A project whose stage is not on the ledger is
// excluded from every bucket. Counts are monotonically non-increasing along
// the ledger.
func Funnel(projects []domain.Project, ledger domain.StageLedger) []FunnelStage {
	out := make([]FunnelStage, 0, len(ledger))
	for i, stage := range ledger {
		count := 0
		for _, p := range projects {
			if idx := ledger.IndexOf(p.Stage); idx >= i {
				count++
			}
		}
		out = append(out, FunnelStage{Stage: stage, Count: count})
	}
	return out
}

// Visible drops zero-count buckets for display. The underlying funnel keeps
// them so downstream math stays positional.
func Visible(funnel []FunnelStage) []FunnelStage {
	out := make([]FunnelStage, 0, len(funnel))
	for _, stage := range funnel {
		if stage.Count > 0 {
			out = append(out, stage)
		}
	}
	return out
}
