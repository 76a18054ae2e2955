package pipeline

import (
	"github.com/jobsignal/pkg/models"
)

// ActionKind names a planned action. Kinds are either processor directives
// (run an extraction processor) or state directives (mutate the application
// through the guarded state machines).
type ActionKind string

const (
	RunInterviewRoundProcessor ActionKind = "run_interview_round_processor"
	RunRoundFeedbackProcessor  ActionKind = "run_round_feedback_processor"
	RunStatusProcessor         ActionKind = "run_status_processor"

	MarkLatestRoundFailed          ActionKind = "mark_latest_round_failed"
	SyncApplicationFromRoundResult ActionKind = "sync_application_from_round_result"
	SetApplicationStatus           ActionKind = "set_application_status"
	SetPipelineStage               ActionKind = "set_pipeline_stage"
	SyncPipelineFromRoundStage     ActionKind = "sync_pipeline_from_round_stage"
)

// PlannedAction is a transient directive produced by Plan and consumed once
// by the orchestrator and applier. Status and Stage carry the parameter for
// the two parameterized kinds and are zero otherwise.
type PlannedAction struct {
	Kind   ActionKind
	Status models.ApplicationStatus
	Stage  models.PipelineStage
}

// Processor reports whether the action is a processor directive.
func (a PlannedAction) Processor() bool {
	switch a.Kind {
	case RunInterviewRoundProcessor, RunRoundFeedbackProcessor, RunStatusProcessor:
		return true
	}
	return false
}

// Plan maps a signal's classification to its ordered action list. It is a
// pure function over the context: no side effects, no store access. Whether
// an action is legal is the applier's problem, not the planner's.
func Plan(c *StateContext) []PlannedAction {
	if !c.Matched() {
		return nil
	}

	switch c.Signal.Classification {
	case models.ClassRejection:
		return []PlannedAction{
			{Kind: RunStatusProcessor},
			{Kind: MarkLatestRoundFailed},
		}
	case models.ClassOffer:
		return []PlannedAction{
			{Kind: RunStatusProcessor},
		}
	case models.ClassRoundFeedback:
		return []PlannedAction{
			{Kind: RunRoundFeedbackProcessor},
			{Kind: SyncApplicationFromRoundResult},
		}
	case models.ClassScheduling, models.ClassInterviewInvite, models.ClassInterviewReminder:
		return []PlannedAction{
			{Kind: RunInterviewRoundProcessor},
			{Kind: SyncPipelineFromRoundStage},
		}
	case models.ClassApplicationConfirmation:
		return []PlannedAction{
			{Kind: SetPipelineStage, Stage: models.StageApplied},
		}
	case models.ClassWithdrawal, models.ClassGhosted, models.ClassOnHold, models.ClassOther:
		return nil
	}
	return nil
}
