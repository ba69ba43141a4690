package analytics

import (
	"math"
	"testing"
	"time"

	"supportcore/pkg/domain"
)

func TestBuildOverviewSummary(t *testing.T) {
	projects := []domain.Project{
		{
			Base: domain.Base{ID: "p1"}, BusinessUnit: "Payments", Status: domain.StatusActive,
			Stage: "POC", EstimatedValue: 100, ActualValue: fval(120),
			ProductLines: []string{"billing"},
			Timeline: []domain.TimelineEntry{
				{ID: "e1", Hours: 4},
				{ID: "e2", Hours: math.NaN()},
				{ID: "e3", Hours: 2.5},
			},
		},
		{
			Base: domain.Base{ID: "p2"}, BusinessUnit: "Logistics", Status: domain.StatusCompleted,
			Stage: "off-ledger", EstimatedValue: 40,
		},
	}
	items := []domain.EvolutionItem{
		{Base: domain.Base{ID: "i1"}, Value: "insight"},
	}

	o := BuildOverview(projects, items, ledger)
	if o.ProjectCount != 2 {
		t.Fatalf("expected 2 projects, got %d", o.ProjectCount)
	}
	if o.EstimatedValue != 140 || o.ActualValue != 120 {
		t.Fatalf("unexpected value totals: %+v", o)
	}
	if o.Hours != 6.5 {
		t.Fatalf("NaN hours must be skipped, got %v", o.Hours)
	}
	if o.ConversionRate != 50 {
		t.Fatalf("expected 50%% conversion, got %v", o.ConversionRate)
	}
	if o.StatusCounts[domain.StatusActive] != 1 || o.StatusCounts[domain.StatusCompleted] != 1 || o.StatusCounts[domain.StatusBlocked] != 0 {
		t.Fatalf("unexpected status counts: %+v", o.StatusCounts)
	}
	if o.StageCounts["POC"] != 1 || o.StageCounts["Delivered"] != 0 {
		t.Fatalf("ledger stages must always have buckets: %+v", o.StageCounts)
	}
	if o.StageCounts["off-ledger"] != 1 {
		t.Fatalf("dangling stage must keep its own bucket: %+v", o.StageCounts)
	}
	if len(o.BusinessUnits) != 2 || o.BusinessUnits[0].Name != "Payments" {
		t.Fatalf("expected value-descending unit rollup, got %+v", o.BusinessUnits)
	}
}

func TestConversionRateZeroProjects(t *testing.T) {
	if got := ConversionRate(0, 10); got != 0 {
		t.Fatalf("zero projects must yield zero rate, got %v", got)
	}
	if got := ConversionRate(4, 1); got != 25 {
		t.Fatalf("expected 25, got %v", got)
	}
}

func TestFilterProjects(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	projects := []domain.Project{
		{Base: domain.Base{ID: "p1"}, BusinessUnit: "Payments", Stage: "POC", Date: base, ProductLines: []string{"a"}},
		{Base: domain.Base{ID: "p2"}, BusinessUnit: "Logistics", Stage: "POC", Date: base.AddDate(0, 2, 0), ProductLines: []string{"b"}},
		{Base: domain.Base{ID: "p3"}, BusinessUnit: "Payments", Stage: "Signed", Date: base.AddDate(0, 4, 0), ProductLines: []string{"a", "b"}},
	}

	got := FilterProjects(projects, Filter{BusinessUnit: "Payments"})
	if len(got) != 2 {
		t.Fatalf("expected 2 payments projects, got %d", len(got))
	}
	got = FilterProjects(projects, Filter{Stage: "POC"})
	if len(got) != 2 {
		t.Fatalf("expected 2 POC projects, got %d", len(got))
	}
	got = FilterProjects(projects, Filter{ProductLines: []string{"b"}})
	if len(got) != 2 {
		t.Fatalf("expected 2 projects tagged b, got %d", len(got))
	}
	got = FilterProjects(projects, Filter{From: base.AddDate(0, 1, 0), To: base.AddDate(0, 3, 0)})
	if len(got) != 1 || got[0].ID != "p2" {
		t.Fatalf("expected only p2 in window, got %+v", got)
	}
	got = FilterProjects(projects, Filter{})
	if len(got) != 3 {
		t.Fatalf("empty filter must match everything, got %d", len(got))
	}
}

func TestFilterItemsIgnoresStage(t *testing.T) {
	items := []domain.EvolutionItem{
		{Base: domain.Base{ID: "i1"}, BusinessUnit: "Payments", ProductLines: []string{"a"}},
		{Base: domain.Base{ID: "i2"}, BusinessUnit: "Logistics", ProductLines: []string{"b"}},
	}
	got := FilterItems(items, Filter{Stage: "POC", BusinessUnit: "Payments"})
	if len(got) != 1 || got[0].ID != "i1" {
		t.Fatalf("stage must not constrain items, got %+v", got)
	}
}

func TestRefilteringIdempotent(t *testing.T) {
	projects := []domain.Project{
		{Base: domain.Base{ID: "p1"}, BusinessUnit: "Payments", ProductLines: []string{"a"}},
		{Base: domain.Base{ID: "p2"}, BusinessUnit: "Logistics"},
	}
	f := Filter{BusinessUnit: "Payments"}
	once := FilterProjects(projects, f)
	twice := FilterProjects(once, f)
	if len(once) != len(twice) {
		t.Fatalf("refiltering must be idempotent: %d vs %d", len(once), len(twice))
	}
}
