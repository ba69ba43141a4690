package core

import (
	"context"

	"supportcore/pkg/domain"
)

// Reliability assigned to evolution items produced by timeline capture and
// merge creation, and the step applied on every merge into an existing item.
const (
	seedReliability      = 0.85
	mergeReliabilityStep = 0.05
	maxReliability       = 1.0
)

// ProgressRecord reports the outcome of a timeline capture: the updated
// project, the stored entry, and the evolution item the entry spawned, if
// any.
type ProgressRecord struct {
	Project domain.Project
	Entry   domain.TimelineEntry
	Spawned *domain.EvolutionItem
}

// InitProject registers a new support project. An empty stage defaults to
// the first stage in the dictionary so new projects enter the funnel at the
// top.
func (s *Service) InitProject(ctx context.Context, actor string, project domain.Project) (domain.Project, domain.Result, error) {
	var created domain.Project
	res, err := s.run(ctx, "init_project", actor, &created.ID, func(tx domain.Transaction) error {
		if project.Stage == "" {
			if stages := tx.Snapshot().Dictionaries().Stages; len(stages) > 0 {
				project.Stage = stages[0]
			}
		}
		var err error
		created, err = tx.CreateProject(project)
		return err
	})
	return created, res, err
}

// UpdateProject mutates a project using the provided mutator.
func (s *Service) UpdateProject(ctx context.Context, actor, id string, mutator func(*domain.Project) error) (domain.Project, domain.Result, error) {
	var updated domain.Project
	res, err := s.run(ctx, "update_project", actor, &id, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateProject(id, mutator)
		return err
	})
	return updated, res, err
}

// SetProjectStage moves a project to the given stage without recording a
// timeline entry.
func (s *Service) SetProjectStage(ctx context.Context, actor, id, stage string) (domain.Project, domain.Result, error) {
	var updated domain.Project
	res, err := s.run(ctx, "set_project_stage", actor, &id, func(tx domain.Transaction) error {
		if stage == "" {
			return domain.ValidationError{Field: "stage", Reason: "is required"}
		}
		var err error
		updated, err = tx.UpdateProject(id, func(p *domain.Project) error {
			p.Stage = stage
			return nil
		})
		return err
	})
	return updated, res, err
}

// RecordProgress appends a timeline entry to a project and, when the entry
// carries an iteration value, spawns a nascent evolution item in the same
// transaction. The spawned item inherits the entry's product lines, falling
// back to the project's tag set when the entry has none.
func (s *Service) RecordProgress(ctx context.Context, actor, projectID string, entry domain.TimelineEntry) (ProgressRecord, domain.Result, error) {
	var record ProgressRecord
	res, err := s.run(ctx, "record_progress", actor, &record.Entry.ID, func(tx domain.Transaction) error {
		project, stored, err := tx.AddTimelineEntry(projectID, entry)
		if err != nil {
			return err
		}
		record.Project = project
		record.Entry = stored
		if stored.IterationValue == "" {
			return nil
		}
		lines := stored.ProductLines
		if len(lines) == 0 {
			lines = project.ProductLines
		}
		spawned, err := tx.CreateEvolutionItem(domain.EvolutionItem{
			Source:       domain.SourceProject,
			ProjectID:    project.ID,
			SourceName:   project.Name,
			BusinessUnit: project.BusinessUnit,
			ProductLines: lines,
			Value:        stored.IterationValue,
			Date:         stored.StartTime,
			Lane:         domain.LaneNascent,
			Reliability:  seedReliability,
			MergeCount:   1,
		})
		if err != nil {
			return err
		}
		record.Spawned = &spawned
		return nil
	})
	if err != nil {
		return ProgressRecord{}, res, err
	}
	return record, res, err
}

// RemoveProgress deletes a timeline entry. Stage moves and tag unions the
// entry caused stay in place, and any evolution item it spawned lives on.
func (s *Service) RemoveProgress(ctx context.Context, actor, projectID, entryID string) (domain.Project, domain.Result, error) {
	var updated domain.Project
	res, err := s.run(ctx, "remove_progress", actor, &entryID, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.DeleteTimelineEntry(projectID, entryID)
		return err
	})
	return updated, res, err
}
