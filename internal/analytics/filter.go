// Package analytics derives value attribution, funnel, and overview rollups
// from committed projects and evolution items. Every function is pure; the
// caller chooses which set (filtered or full) feeds each rollup.
package analytics

import (
	"time"

	"supportcore/pkg/domain"
)

// Filter narrows a project or item set. Zero values leave the corresponding
// dimension unconstrained; product lines match when any selected line
// intersects the entity's tags.
type Filter struct {
	From         time.Time
	To           time.Time
	BusinessUnit string
	Stage        string
	ProductLines []string
}

func (f Filter) matchDate(d time.Time) bool {
	if !f.From.IsZero() && d.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && d.After(f.To) {
		return false
	}
	return true
}

func (f Filter) matchLines(lines []string) bool {
	if len(f.ProductLines) == 0 {
		return true
	}
	selected := make(map[string]bool, len(f.ProductLines))
	for _, line := range f.ProductLines {
		selected[line] = true
	}
	for _, line := range lines {
		if selected[line] {
			return true
		}
	}
	return false
}

// FilterProjects returns the projects matching the filter.
func FilterProjects(projects []domain.Project, f Filter) []domain.Project {
	out := make([]domain.Project, 0, len(projects))
	for _, p := range projects {
		if !f.matchDate(p.Date) {
			continue
		}
		if f.BusinessUnit != "" && p.BusinessUnit != f.BusinessUnit {
			continue
		}
		if f.Stage != "" && p.Stage != f.Stage {
			continue
		}
		if !f.matchLines(p.ProductLines) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FilterItems returns the evolution items matching the filter. The stage
// dimension does not apply to items.
func FilterItems(items []domain.EvolutionItem, f Filter) []domain.EvolutionItem {
	out := make([]domain.EvolutionItem, 0, len(items))
	for _, item := range items {
		if !f.matchDate(item.Date) {
			continue
		}
		if f.BusinessUnit != "" && item.BusinessUnit != f.BusinessUnit {
			continue
		}
		if !f.matchLines(item.ProductLines) {
			continue
		}
		out = append(out, item)
	}
	return out
}
