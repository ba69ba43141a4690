package analytics

import (
	"testing"

	"supportcore/pkg/domain"
)

var ledger = domain.StageLedger{"Initial Contact", "POC", "Selection", "Signed", "Delivered"}

func stageProject(id, stage string) domain.Project {
	return domain.Project{Base: domain.Base{ID: id}, Name: id, Stage: stage}
}

func TestFunnelCumulativeCounts(t *testing.T) {
	projects := []domain.Project{
		stageProject("p1", "Initial Contact"),
		stageProject("p2", "POC"),
		stageProject("p3", "POC"),
		stageProject("p4", "Signed"),
		stageProject("p5", "Delivered"),
	}
	funnel := Funnel(projects, ledger)
	want := []int{5, 4, 2, 2, 1}
	for i, stage := range funnel {
		if stage.Count != want[i] {
			t.Fatalf("stage %s: want %d, got %d", stage.Stage, want[i], stage.Count)
		}
	}
}

func TestFunnelMonotonicNonIncreasing(t *testing.T) {
	projects := []domain.Project{
		stageProject("p1", "POC"),
		stageProject("p2", "Selection"),
		stageProject("p3", "Delivered"),
		stageProject("p4", "off-ledger"),
	}
	funnel := Funnel(projects, ledger)
	for i := 1; i < len(funnel); i++ {
		if funnel[i].Count > funnel[i-1].Count {
			t.Fatalf("funnel must be non-increasing: %+v", funnel)
		}
	}
}

func TestFunnelExcludesDanglingStages(t *testing.T) {
	projects := []domain.Project{
		stageProject("p1", "ghost stage"),
		stageProject("p2", "POC"),
	}
	funnel := Funnel(projects, ledger)
	if funnel[0].Count != 1 {
		t.Fatalf("dangling stage must not enter any bucket, got %+v", funnel)
	}
}

func TestVisibleDropsZeroBuckets(t *testing.T) {
	projects := []domain.Project{stageProject("p1", "Selection")}
	funnel := Funnel(projects, ledger)
	if len(funnel) != len(ledger) {
		t.Fatalf("raw funnel keeps all buckets, got %d", len(funnel))
	}
	visible := Visible(funnel)
	if len(visible) != 3 {
		t.Fatalf("expected 3 visible buckets, got %+v", visible)
	}
	for _, stage := range visible {
		if stage.Count == 0 {
			t.Fatalf("visible funnel must not contain zero buckets: %+v", visible)
		}
	}
}

func TestFunnelEmptyLedger(t *testing.T) {
	if funnel := Funnel([]domain.Project{stageProject("p1", "POC")}, nil); len(funnel) != 0 {
		t.Fatalf("empty ledger yields empty funnel, got %+v", funnel)
	}
}
