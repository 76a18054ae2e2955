// Package pipeline is the automatic signal-processing core: a read-only
// state context, a pure action planner, a guarded action applier, and the
// orchestrator that wires them to the extraction processors.
package pipeline

import (
	"context"

	"github.com/jobsignal/internal/store"
	"github.com/jobsignal/pkg/models"
)

// StateContext is the read model built once per signal before planning.
// It never mutates anything.
type StateContext struct {
	Signal        *models.Signal
	Application   *models.InterviewApplication
	Rounds        []*models.InterviewRound
	PendingRounds []*models.InterviewRound
	LatestRound   *models.InterviewRound
}

// Matched is the orchestrator's hard gate: unmatched signals plan nothing.
func (c *StateContext) Matched() bool {
	return c != nil && c.Application != nil
}

// BuildContext resolves the signal's application and round state. A signal
// with no application reference yields a context with a nil Application,
// not an error.
func BuildContext(ctx context.Context, s store.Store, signal *models.Signal) (*StateContext, error) {
	sc := &StateContext{Signal: signal}
	if !signal.Matched() {
		return sc, nil
	}

	app, err := s.GetApplication(ctx, *signal.ApplicationID)
	if err != nil {
		return nil, err
	}
	sc.Application = app

	rounds, err := s.ListRounds(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	sc.Rounds = rounds
	for _, r := range rounds {
		if r.Pending() {
			sc.PendingRounds = append(sc.PendingRounds, r)
		}
		if sc.LatestRound == nil || r.Position > sc.LatestRound.Position {
			sc.LatestRound = r
		}
	}
	return sc, nil
}
