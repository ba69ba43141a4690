package memory

import (
	"context"
	"testing"
	"time"

	"supportcore/pkg/domain"
)

func TestSnapshotRoundTrip(t *testing.T) {
	store := NewStore(nil)
	created := mustCreateProject(t, store, domain.Project{Name: "Round trip", BusinessUnit: "Core"})
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, _, err := tx.AddTimelineEntry(created.ID, domain.TimelineEntry{
			StartTime: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
			Stage:     "POC",
			Hours:     3,
		}); err != nil {
			return err
		}
		if _, err := tx.CreateEvolutionItem(domain.EvolutionItem{Base: domain.Base{ID: "i1"}, Value: "pattern", Reliability: 0.85}); err != nil {
			return err
		}
		return tx.AddDictionaryTerm(domain.DictStage, "POC")
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	restored := NewStore(nil)
	restored.ImportState(store.ExportState())

	project, ok := restored.GetProject(created.ID)
	if !ok || len(project.Timeline) != 1 || project.Stage != "POC" {
		t.Fatalf("project did not survive round trip: %+v", project)
	}
	items := restored.ListEvolutionItems()
	if len(items) != 1 || items[0].ID != "i1" || items[0].Reliability != 0.85 {
		t.Fatalf("items did not survive round trip: %+v", items)
	}
	if !restored.Dictionaries().Stages.Contains("POC") {
		t.Fatal("dictionaries did not survive round trip")
	}
}

func TestImportStatePreservesItemOrder(t *testing.T) {
	snapshot := Snapshot{
		EvolutionItems: []domain.EvolutionItem{
			{Base: domain.Base{ID: "b"}, Value: "second", Lane: domain.LaneNascent, Reliability: 0.5, MergeCount: 1},
			{Base: domain.Base{ID: "a"}, Value: "first", Lane: domain.LaneAdopted, Reliability: 0.9, MergeCount: 3},
		},
	}
	store := NewStore(nil)
	store.ImportState(snapshot)
	items := store.ListEvolutionItems()
	if len(items) != 2 || items[0].ID != "b" || items[1].ID != "a" {
		t.Fatalf("item order must be preserved, got %+v", items)
	}
}

func TestMigrateSnapshotNormalizes(t *testing.T) {
	snapshot := migrateSnapshot(Snapshot{
		Projects: map[string]domain.Project{
			"p1": {Base: domain.Base{ID: "p1"}, Name: "No status"},
		},
		EvolutionItems: []domain.EvolutionItem{
			{Base: domain.Base{ID: "keep"}, Value: "v", Lane: "mystery", Reliability: 1.4, MergeCount: 0},
			{Base: domain.Base{ID: "drop"}, Value: ""},
			{Base: domain.Base{ID: "clamp"}, Value: "w", Lane: domain.LaneValidating, Reliability: -0.2, MergeCount: 2},
		},
	})

	if snapshot.Projects["p1"].Status != domain.StatusActive {
		t.Fatal("missing status must default to active")
	}
	if len(snapshot.EvolutionItems) != 2 {
		t.Fatalf("valueless items must be dropped, got %d items", len(snapshot.EvolutionItems))
	}
	keep := snapshot.EvolutionItems[0]
	if keep.Lane != domain.LaneNascent || keep.Reliability != 1 || keep.MergeCount != 1 {
		t.Fatalf("normalization failed: %+v", keep)
	}
	if snapshot.EvolutionItems[1].Reliability != 0 {
		t.Fatalf("negative reliability must clamp to zero, got %v", snapshot.EvolutionItems[1].Reliability)
	}
}

func TestImportStateNilCollections(t *testing.T) {
	store := NewStore(nil)
	store.ImportState(Snapshot{})
	if got := store.ListProjects(); len(got) != 0 {
		t.Fatalf("expected empty store, got %d projects", len(got))
	}
	if got := store.ListEvolutionItems(); len(got) != 0 {
		t.Fatalf("expected empty store, got %d items", len(got))
	}
}
