package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"supportcore/internal/infra/persistence/memory"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seeds.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	return path
}

func TestLoadSeeds(t *testing.T) {
	path := writeSeedFile(t, `
business_units:
  - Payments
stages:
  - POC
  - Signed
product_lines:
  - gateway
`)
	seeds, err := LoadSeeds(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(seeds.Stages) != 2 || seeds.Stages[0] != "POC" {
		t.Fatalf("unexpected stages: %v", seeds.Stages)
	}
	if len(seeds.BusinessUnits) != 1 || len(seeds.ProductLines) != 1 {
		t.Fatalf("unexpected seeds: %+v", seeds)
	}
}

func TestLoadSeedsRejectsUnknownKeys(t *testing.T) {
	path := writeSeedFile(t, "stages:\n  - POC\nstgaes:\n  - typo\n")
	if _, err := LoadSeeds(path); err == nil {
		t.Fatal("unknown keys must be rejected")
	}
}

func TestSeedsFromEnv(t *testing.T) {
	t.Setenv("SUPPORTCORE_SEED_PATH", "")
	seeds, err := SeedsFromEnv()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if len(seeds.Stages) == 0 {
		t.Fatal("default seeds must carry a stage ledger")
	}

	path := writeSeedFile(t, "stages:\n  - Discovery\n")
	t.Setenv("SUPPORTCORE_SEED_PATH", path)
	seeds, err = SeedsFromEnv()
	if err != nil {
		t.Fatalf("from file: %v", err)
	}
	if len(seeds.Stages) != 1 || seeds.Stages[0] != "Discovery" {
		t.Fatalf("unexpected stages: %v", seeds.Stages)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	seeds := Seeds{
		BusinessUnits: []string{"Payments"},
		Stages:        []string{"POC", "Signed"},
		ProductLines:  []string{"gateway"},
	}
	if err := seeds.Apply(ctx, store); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := seeds.Apply(ctx, store); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	dicts := store.Dictionaries()
	if len(dicts.Stages) != 2 || len(dicts.BusinessUnits) != 1 || len(dicts.ProductLines) != 1 {
		t.Fatalf("duplicate terms must not accumulate: %+v", dicts)
	}
}

func TestApplyKeepsExistingTerms(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	if err := (Seeds{Stages: []string{"Legacy"}}).Apply(ctx, store); err != nil {
		t.Fatalf("seed legacy: %v", err)
	}
	if err := (Seeds{Stages: []string{"POC"}}).Apply(ctx, store); err != nil {
		t.Fatalf("seed poc: %v", err)
	}
	stages := store.Dictionaries().Stages
	if len(stages) != 2 || stages[0] != "Legacy" {
		t.Fatalf("existing terms must survive: %v", stages)
	}
}
