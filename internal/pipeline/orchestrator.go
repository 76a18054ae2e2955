package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jobsignal/internal/extraction"
	"github.com/jobsignal/internal/notify"
	"github.com/jobsignal/internal/store"
	"github.com/jobsignal/pkg/models"
)

// Processor is the slice of an extraction processor the orchestrator needs.
type Processor interface {
	Process(ctx context.Context, signal *models.Signal) extraction.ProcessorResult
}

// Result is the composite outcome of one orchestrated invocation.
type Result struct {
	Success          bool                                  `json:"success"`
	Skipped          bool                                  `json:"skipped"`
	SkipReason       string                                `json:"skip_reason,omitempty"`
	Plan             []PlannedAction                       `json:"plan,omitempty"`
	ProcessorResults map[string]extraction.ProcessorResult `json:"processor_results,omitempty"`
	Applied          []string                              `json:"applied,omitempty"`
	Err              string                                `json:"error,omitempty"`
}

// Orchestrator is the pipeline's single entry point. It gates on match
// status, plans, runs processors, then applies state directives against a
// freshly reloaded application. It never panics out to the caller.
type Orchestrator struct {
	store      store.Store
	applier    *Applier
	reporter   notify.Reporter
	processors map[ActionKind]Processor
}

func NewOrchestrator(s store.Store, applier *Applier, reporter notify.Reporter, round, feedback, status Processor) *Orchestrator {
	return &Orchestrator{
		store:    s,
		applier:  applier,
		reporter: reporter,
		processors: map[ActionKind]Processor{
			RunInterviewRoundProcessor: round,
			RunRoundFeedbackProcessor:  feedback,
			RunStatusProcessor:         status,
		},
	}
}

// Process runs the full pipeline for one signal.
func (o *Orchestrator) Process(ctx context.Context, signal *models.Signal) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("pipeline panic: %v", r)
			o.reporter.ReportError(err, map[string]string{"signal_id": signal.ID})
			result = Result{Err: err.Error()}
		}
	}()

	if !signal.Matched() {
		return Result{Skipped: true, SkipReason: "signal not matched to an application"}
	}

	sc, err := BuildContext(ctx, o.store, signal)
	if err != nil {
		o.reporter.ReportError(err, map[string]string{"signal_id": signal.ID})
		return Result{Err: err.Error()}
	}

	plan := Plan(sc)
	result = Result{
		Success:          true,
		Plan:             plan,
		ProcessorResults: make(map[string]extraction.ProcessorResult),
	}

	// Processor directives run once each, however often they were planned.
	seen := make(map[ActionKind]bool)
	var stateActions []PlannedAction
	for _, action := range plan {
		if !action.Processor() {
			stateActions = append(stateActions, action)
			continue
		}
		if seen[action.Kind] {
			continue
		}
		seen[action.Kind] = true

		proc, ok := o.processors[action.Kind]
		if !ok || proc == nil {
			continue
		}
		procResult := proc.Process(ctx, signal)
		result.ProcessorResults[string(action.Kind)] = procResult
		if procResult.Err != "" {
			result.Success = false
			result.Err = procResult.Err
			log.Warn().
				Str("signal_id", signal.ID).
				Str("processor", string(action.Kind)).
				Str("error", procResult.Err).
				Msg("processor failed")
		}
	}

	if len(stateActions) > 0 {
		// Reload: a processor may have just mutated the application.
		app, err := o.store.GetApplication(ctx, *signal.ApplicationID)
		if err != nil {
			o.reporter.ReportError(err, map[string]string{"signal_id": signal.ID})
			result.Success = false
			result.Err = err.Error()
			return result
		}
		result.Applied = o.applier.Apply(ctx, app, stateActions)
	}
	return result
}
