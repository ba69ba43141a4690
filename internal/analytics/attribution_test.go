package analytics

import (
	"math"
	"testing"

	"supportcore/pkg/domain"
)

func fval(v float64) *float64 { return &v }

func TestAttributionEqualSplit(t *testing.T) {
	projects := []domain.Project{
		{Base: domain.Base{ID: "p1"}, EstimatedValue: 90, ProductLines: []string{"a", "b", "c"}},
		{Base: domain.Base{ID: "p2"}, EstimatedValue: 40, ActualValue: fval(100), ProductLines: []string{"a"}},
	}
	got := Attribution(projects)
	if math.Abs(got["a"]-130) > 1e-9 {
		t.Fatalf("expected a=130, got %v", got["a"])
	}
	if math.Abs(got["b"]-30) > 1e-9 || math.Abs(got["c"]-30) > 1e-9 {
		t.Fatalf("expected b=c=30, got %v / %v", got["b"], got["c"])
	}
}

func TestAttributionActualPreferredOverEstimate(t *testing.T) {
	projects := []domain.Project{
		{Base: domain.Base{ID: "p1"}, EstimatedValue: 50, ActualValue: fval(0), ProductLines: []string{"x"}},
	}
	got := Attribution(projects)
	if got["x"] != 0 {
		t.Fatalf("a recorded actual of zero must win over the estimate, got %v", got["x"])
	}
}

func TestAttributionConservation(t *testing.T) {
	projects := []domain.Project{
		{Base: domain.Base{ID: "p1"}, EstimatedValue: 17, ProductLines: []string{"a", "b", "c"}},
		{Base: domain.Base{ID: "p2"}, EstimatedValue: 23, ActualValue: fval(31), ProductLines: []string{"b", "d"}},
		{Base: domain.Base{ID: "p3"}, EstimatedValue: 11, ProductLines: []string{"e"}},
		{Base: domain.Base{ID: "p4"}, EstimatedValue: 99}, // no lines, contributes nothing
	}
	got := Attribution(projects)
	var total float64
	for _, v := range got {
		total += v
	}
	want := 17.0 + 31.0 + 11.0
	if math.Abs(total-want) > 1e-9 {
		t.Fatalf("attributed total %v must equal attributable value %v", total, want)
	}
	if _, ok := got[""]; ok {
		t.Fatal("no empty-line bucket expected")
	}
}

func TestProductLinesSortedByRevenue(t *testing.T) {
	projects := []domain.Project{
		{Base: domain.Base{ID: "p1"}, EstimatedValue: 10, ProductLines: []string{"low"}},
		{Base: domain.Base{ID: "p2"}, EstimatedValue: 200, ProductLines: []string{"high"}},
		{Base: domain.Base{ID: "p3"}, EstimatedValue: 50, ProductLines: []string{"mid"}},
		{Base: domain.Base{ID: "p4"}, EstimatedValue: 30, ProductLines: []string{"mid"}},
	}
	rows := ProductLines(projects)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Name != "high" || rows[1].Name != "mid" || rows[2].Name != "low" {
		t.Fatalf("expected revenue-descending order, got %+v", rows)
	}
	if rows[1].Projects != 2 {
		t.Fatalf("expected 2 projects on mid, got %d", rows[1].Projects)
	}
}

func TestAttributionEmptySet(t *testing.T) {
	if got := Attribution(nil); len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
	if rows := ProductLines(nil); len(rows) != 0 {
		t.Fatalf("expected no rows, got %v", rows)
	}
}
