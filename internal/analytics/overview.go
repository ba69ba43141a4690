package analytics

import (
	"math"
	"sort"

	"supportcore/pkg/domain"
)

// BusinessUnitRollup aggregates project count and estimated value per unit.
type BusinessUnitRollup struct {
	Name     string  `json:"name"`
	Projects int     `json:"projects"`
	Value    float64 `json:"value"`
}

// Overview is the aggregate dashboard summary for a project and item set.
type Overview struct {
	ProjectCount   int                          `json:"project_count"`
	EstimatedValue float64                      `json:"estimated_value"`
	ActualValue    float64                      `json:"actual_value"`
	Hours          float64                      `json:"hours"`
	ConversionRate float64                      `json:"conversion_rate"`
	BusinessUnits  []BusinessUnitRollup         `json:"business_units"`
	StatusCounts   map[domain.ProjectStatus]int `json:"status_counts"`
	StageCounts    map[string]int               `json:"stage_counts"`
	ProductLines   []ProductLineRollup          `json:"product_lines"`
}

// BuildOverview computes the summary rollups over the given sets. Stage
// counts include a zero bucket for every ledger stage plus buckets for any
// dangling stages the projects still reference.
func BuildOverview(projects []domain.Project, items []domain.EvolutionItem, ledger domain.StageLedger) Overview {
	o := Overview{
		ProjectCount: len(projects),
		StatusCounts: map[domain.ProjectStatus]int{
			domain.StatusActive:    0,
			domain.StatusCompleted: 0,
			domain.StatusBlocked:   0,
		},
		StageCounts:  make(map[string]int, len(ledger)),
		ProductLines: ProductLines(projects),
	}
	for _, stage := range ledger {
		o.StageCounts[stage] = 0
	}

	buProjects := make(map[string]int)
	buValue := make(map[string]float64)
	for _, p := range projects {
		buProjects[p.BusinessUnit]++
		buValue[p.BusinessUnit] += p.EstimatedValue
		o.StatusCounts[p.Status]++
		o.StageCounts[p.Stage]++
		o.EstimatedValue += p.EstimatedValue
		if p.ActualValue != nil {
			o.ActualValue += *p.ActualValue
		}
		o.Hours += AggregateHours(p.Timeline)
	}

	o.BusinessUnits = make([]BusinessUnitRollup, 0, len(buProjects))
	for name, count := range buProjects {
		o.BusinessUnits = append(o.BusinessUnits, BusinessUnitRollup{Name: name, Projects: count, Value: buValue[name]})
	}
	sort.Slice(o.BusinessUnits, func(i, j int) bool {
		if o.BusinessUnits[i].Value != o.BusinessUnits[j].Value {
			return o.BusinessUnits[i].Value > o.BusinessUnits[j].Value
		}
		return o.BusinessUnits[i].Name < o.BusinessUnits[j].Name
	})

	o.ConversionRate = ConversionRate(len(projects), len(items))
	return o
}

// ConversionRate is the number of evolution items produced per hundred
// projects. Zero projects yield zero, never a division error.
func ConversionRate(projectCount, itemCount int) float64 {
	if projectCount == 0 {
		return 0
	}
	return float64(itemCount) / float64(projectCount) * 100
}

// AggregateHours sums timeline hours, treating NaN entries as zero.
func AggregateHours(timeline []domain.TimelineEntry) float64 {
	total := 0.0
	for _, entry := range timeline {
		if math.IsNaN(entry.Hours) {
			continue
		}
		total += entry.Hours
	}
	return total
}
