package core

import (
	"context"

	"supportcore/pkg/domain"
)

// AddDictionaryTerm appends a term to one of the configuration sequences.
func (s *Service) AddDictionaryTerm(ctx context.Context, actor string, kind domain.DictionaryKind, term string) (domain.Result, error) {
	return s.run(ctx, "add_dictionary_term", actor, &term, func(tx domain.Transaction) error {
		return tx.AddDictionaryTerm(kind, term)
	})
}

// RemoveDictionaryTerm removes a term. Entities referencing the removed term
// keep their reference; rollups exclude what they cannot resolve.
func (s *Service) RemoveDictionaryTerm(ctx context.Context, actor string, kind domain.DictionaryKind, term string) (domain.Result, error) {
	return s.run(ctx, "remove_dictionary_term", actor, &term, func(tx domain.Transaction) error {
		return tx.RemoveDictionaryTerm(kind, term)
	})
}
