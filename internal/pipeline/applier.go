package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jobsignal/internal/notify"
	"github.com/jobsignal/internal/statemachine"
	"github.com/jobsignal/internal/store"
	"github.com/jobsignal/pkg/models"
)

// applyOrder is the fixed total order state directives execute in,
// regardless of the order they were planned. Status-oriented actions come
// first and therefore win conflicts with stage-sync actions.
var applyOrder = []ActionKind{
	MarkLatestRoundFailed,
	SyncApplicationFromRoundResult,
	SetApplicationStatus,
	SetPipelineStage,
	SyncPipelineFromRoundStage,
}

// Applier executes planned state directives against a freshly loaded
// application. Every step is guarded: an action whose precondition fails is
// skipped silently, never raised.
type Applier struct {
	store    store.Store
	reporter notify.Reporter
	now      func() time.Time
}

func NewApplier(s store.Store, reporter notify.Reporter) *Applier {
	return &Applier{store: s, reporter: reporter, now: time.Now}
}

// Apply runs the state directives in canonical order and returns the names
// of the actions that actually did something. A panic anywhere is reported
// and yields an empty list.
func (a *Applier) Apply(ctx context.Context, app *models.InterviewApplication, actions []PlannedAction) (applied []string) {
	defer func() {
		if r := recover(); r != nil {
			a.reporter.ReportError(fmt.Errorf("action applier panic: %v", r), map[string]string{
				"application_id": app.ID,
			})
			applied = nil
		}
	}()

	requested := make(map[ActionKind]PlannedAction)
	for _, action := range actions {
		if action.Processor() {
			continue
		}
		if _, ok := requested[action.Kind]; !ok {
			requested[action.Kind] = action
		}
	}
	if len(requested) == 0 {
		return nil
	}

	rounds, err := a.store.ListRounds(ctx, app.ID)
	if err != nil {
		a.reporter.ReportError(err, map[string]string{"application_id": app.ID})
		return nil
	}

	dirty := false
	for _, kind := range applyOrder {
		action, ok := requested[kind]
		if !ok {
			continue
		}
		var did bool
		switch kind {
		case MarkLatestRoundFailed:
			did = a.markLatestRoundFailed(ctx, rounds)
		case SyncApplicationFromRoundResult:
			did = a.syncApplicationFromRoundResult(app, rounds)
		case SetApplicationStatus:
			did = fireStatus(app, action.Status)
		case SetPipelineStage:
			did = fireStage(app, action.Stage)
		case SyncPipelineFromRoundStage:
			did = a.syncPipelineFromRoundStage(app, rounds)
		}
		if did {
			applied = append(applied, string(kind))
			if kind != MarkLatestRoundFailed {
				dirty = true
			}
		}
	}

	if dirty {
		if err := a.store.UpdateApplication(ctx, app); err != nil {
			a.reporter.ReportError(err, map[string]string{"application_id": app.ID})
			return nil
		}
		log.Debug().
			Str("application_id", app.ID).
			Str("status", string(app.Status)).
			Str("stage", string(app.PipelineStage)).
			Strs("applied", applied).
			Msg("applied state actions")
	}
	return applied
}

// mostRelevantRound prefers a still-pending round over the chronologically
// latest one; with no pending rounds it falls back to the highest position.
func mostRelevantRound(rounds []*models.InterviewRound) *models.InterviewRound {
	var best *models.InterviewRound
	for _, r := range rounds {
		if !r.Pending() {
			continue
		}
		if best == nil || r.Position > best.Position {
			best = r
		}
	}
	if best != nil {
		return best
	}
	for _, r := range rounds {
		if best == nil || r.Position > best.Position {
			best = r
		}
	}
	return best
}

func (a *Applier) markLatestRoundFailed(ctx context.Context, rounds []*models.InterviewRound) bool {
	round := mostRelevantRound(rounds)
	if round == nil || !round.Pending() {
		return false
	}
	round.Result = models.RoundFailed
	completed := a.now()
	round.CompletedAt = &completed
	if err := a.store.UpdateRound(ctx, round); err != nil {
		a.reporter.ReportError(err, map[string]string{"round_id": round.ID})
		return false
	}
	return true
}

func (a *Applier) syncApplicationFromRoundResult(app *models.InterviewApplication, rounds []*models.InterviewRound) bool {
	round := mostRelevantRound(rounds)
	if round == nil {
		return false
	}
	switch round.Result {
	case models.RoundFailed:
		did := fireStatus(app, models.StatusRejected)
		return fireStage(app, models.StageClosed) || did
	case models.RoundPassed, models.RoundWaitlisted:
		return fireStage(app, models.StageInterviewing)
	}
	return false
}

func (a *Applier) syncPipelineFromRoundStage(app *models.InterviewApplication, rounds []*models.InterviewRound) bool {
	var latest *models.InterviewRound
	for _, r := range rounds {
		if latest == nil || r.Position > latest.Position {
			latest = r
		}
	}
	if latest == nil {
		return false
	}
	target := models.StageInterviewing
	if latest.Stage == models.RoundStageScreening {
		target = models.StageScreening
	}
	return fireStage(app, target)
}

func fireStatus(app *models.InterviewApplication, status models.ApplicationStatus) bool {
	ev, ok := statemachine.StatusEventFor(status)
	if !ok {
		return false
	}
	return statemachine.FireStatus(app, ev)
}

func fireStage(app *models.InterviewApplication, stage models.PipelineStage) bool {
	ev, ok := statemachine.StageEventFor(stage)
	if !ok {
		return false
	}
	return statemachine.FireStage(app, ev)
}
