// Package config loads the dictionary seed file that bootstraps a fresh
// deployment with its business units, stage ledger and product lines.
package config

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"supportcore/pkg/domain"
)

// Seeds is the parsed dictionary seed file.
type Seeds struct {
	BusinessUnits []string `yaml:"business_units"`
	Stages        []string `yaml:"stages"`
	ProductLines  []string `yaml:"product_lines"`
}

// DefaultSeeds returns the built-in dictionaries used when no seed file is
// configured.
func DefaultSeeds() Seeds {
	return Seeds{
		BusinessUnits: []string{"Payments", "Logistics", "Retail"},
		Stages:        []string{"Initial Contact", "POC", "Selection", "Signed", "Delivered"},
		ProductLines:  []string{"gateway", "billing", "telemetry"},
	}
}

// LoadSeeds parses a YAML seed file. Unknown keys are rejected so typos in
// deployment manifests surface immediately.
func LoadSeeds(path string) (Seeds, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Seeds{}, err
	}
	var seeds Seeds
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&seeds); err != nil {
		return Seeds{}, fmt.Errorf("parse seeds %s: %w", path, err)
	}
	return seeds, nil
}

// SeedsFromEnv loads the file named by SUPPORTCORE_SEED_PATH, falling back to
// the defaults when the variable is unset.
func SeedsFromEnv() (Seeds, error) {
	path := os.Getenv("SUPPORTCORE_SEED_PATH")
	if path == "" {
		return DefaultSeeds(), nil
	}
	return LoadSeeds(path)
}

// Apply inserts every seed term the store does not already know. Existing
// terms are left untouched, so applying seeds is idempotent.
func (s Seeds) Apply(ctx context.Context, store domain.PersistentStore) error {
	current := store.Dictionaries()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		for _, term := range missing(current.BusinessUnits, s.BusinessUnits) {
			if err := tx.AddDictionaryTerm(domain.DictBusinessUnit, term); err != nil {
				return err
			}
		}
		for _, term := range missing(current.Stages, s.Stages) {
			if err := tx.AddDictionaryTerm(domain.DictStage, term); err != nil {
				return err
			}
		}
		for _, term := range missing(current.ProductLines, s.ProductLines) {
			if err := tx.AddDictionaryTerm(domain.DictProductLine, term); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

func missing(have, want []string) []string {
	known := make(map[string]struct{}, len(have))
	for _, term := range have {
		known[term] = struct{}{}
	}
	var out []string
	for _, term := range want {
		if _, ok := known[term]; !ok {
			out = append(out, term)
		}
	}
	return out
}
