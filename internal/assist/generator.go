// Package assist provides text generation around evolution items: analysis
// drafts, description cleanup, and value ranking. Generation is delegated to
// a Generator so tests and offline deployments can swap the backend.
package assist

import (
	"context"
	"errors"
	"sync"

	"supportcore/pkg/domain"
)

// Generator produces text for the assistant features.
type Generator interface {
	// Generate returns a completion for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrBusy is returned when a generation for the same subject is already in
// flight.
var ErrBusy = errors.New("assist: generation already in flight")

// Assistant coordinates generation requests and guards against duplicate
// concurrent work on the same subject.
type Assistant struct {
	gen Generator

	mu       sync.Mutex
	inFlight map[string]bool
}

// New constructs an assistant around the generator.
func New(gen Generator) *Assistant {
	return &Assistant{
		gen:      gen,
		inFlight: make(map[string]bool),
	}
}

func (a *Assistant) acquire(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight[key] {
		return false
	}
	a.inFlight[key] = true
	return true
}

func (a *Assistant) release(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.inFlight, key)
}

// Analyze drafts an analysis for the item. At most one analysis per item id
// runs at a time; concurrent calls for the same item get ErrBusy.
func (a *Assistant) Analyze(ctx context.Context, item domain.EvolutionItem) (string, error) {
	key := "analyze:" + item.ID
	if !a.acquire(key) {
		return "", ErrBusy
	}
	defer a.release(key)
	return a.gen.Generate(ctx, analysisPrompt(item))
}

// Optimize rewrites a value description for clarity.
func (a *Assistant) Optimize(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", domain.ValidationError{Field: "text", Reason: "is required"}
	}
	const key = "optimize"
	if !a.acquire(key) {
		return "", ErrBusy
	}
	defer a.release(key)
	return a.gen.Generate(ctx, optimizePrompt(text))
}

// Rank asks the generator to order the items by value and returns the ranked
// ids, restricted to ids present in the input. Ids the generator invents are
// dropped; items it omits simply keep their prior position downstream.
func (a *Assistant) Rank(ctx context.Context, items []domain.EvolutionItem) ([]string, error) {
	if len(items) == 0 {
		return nil, nil
	}
	const key = "rank"
	if !a.acquire(key) {
		return nil, ErrBusy
	}
	defer a.release(key)

	raw, err := a.gen.Generate(ctx, rankPrompt(items))
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(items))
	for _, item := range items {
		known[item.ID] = true
	}
	ranked := parseRankedIDs(raw)
	out := make([]string, 0, len(ranked))
	seen := make(map[string]bool, len(ranked))
	for _, id := range ranked {
		if known[id] && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	return out, nil
}
