package analytics

import (
	"sort"

	"supportcore/pkg/domain"
)

// Attribution splits each project's value evenly across its product lines
// and sums the shares per line. Projects without product lines contribute
// nothing, so the returned totals always sum to the attributable value of the
// input set.
func Attribution(projects []domain.Project) map[string]float64 {
	out := make(map[string]float64)
	for _, p := range projects {
		if len(p.ProductLines) == 0 {
			continue
		}
		share := p.AttributionValue() / float64(len(p.ProductLines))
		for _, line := range p.ProductLines {
			out[line] += share
		}
	}
	return out
}

// ProductLineRollup is one row of the per-line contribution table.
type ProductLineRollup struct {
	Name     string  `json:"name"`
	Revenue  float64 `json:"revenue"`
	Projects int     `json:"projects"`
}

// ProductLines builds the contribution table: attributed revenue and project
// count per line, sorted by revenue descending with name as tiebreak.
func ProductLines(projects []domain.Project) []ProductLineRollup {
	revenue := Attribution(projects)
	counts := make(map[string]int)
	for _, p := range projects {
		for _, line := range p.ProductLines {
			counts[line]++
		}
	}
	out := make([]ProductLineRollup, 0, len(revenue))
	for name, rev := range revenue {
		out = append(out, ProductLineRollup{Name: name, Revenue: rev, Projects: counts[name]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Name < out[j].Name
	})
	return out
}
