package core

import "supportcore/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewReliabilityMonotonicRule())
	engine.Register(NewLaneRegressionRule())
	engine.Register(NewStageReferenceRule())
	return engine
}

func decodeChange[T any](payload any) (T, bool) {
	value, ok := payload.(T)
	return value, ok
}
