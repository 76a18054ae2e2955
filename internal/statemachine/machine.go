// Package statemachine holds the two guarded finite-state machines of an
// interview application: lifecycle status and pipeline stage. Both are backed
// by static transition tables; callers go through named events via CanFire
// and Fire, never by assigning the enum fields directly. An illegal event is
// a no-op (Fire returns false), not an error.
package statemachine

import (
	"github.com/jobsignal/pkg/models"
)

// StatusEvent is a named transition on the application status machine.
type StatusEvent string

const (
	EventReject     StatusEvent = "reject"
	EventAccept     StatusEvent = "accept"
	EventArchive    StatusEvent = "archive"
	EventHold       StatusEvent = "hold"
	EventWithdraw   StatusEvent = "withdraw"
	EventReactivate StatusEvent = "reactivate"
)

// StageEvent is a named transition on the pipeline stage machine.
type StageEvent string

const (
	EventMoveToApplied      StageEvent = "move_to_applied"
	EventMoveToScreening    StageEvent = "move_to_screening"
	EventMoveToInterviewing StageEvent = "move_to_interviewing"
	EventMoveToOffer        StageEvent = "move_to_offer"
	EventMoveToClosed       StageEvent = "move_to_closed"
)

type statusTransition struct {
	from []models.ApplicationStatus // nil means "from any status"
	to   models.ApplicationStatus
}

type stageTransition struct {
	from []models.PipelineStage
	to   models.PipelineStage
}

var statusTable = map[StatusEvent]statusTransition{
	EventReject:     {from: []models.ApplicationStatus{models.StatusActive}, to: models.StatusRejected},
	EventAccept:     {from: []models.ApplicationStatus{models.StatusActive}, to: models.StatusAccepted},
	EventArchive:    {from: []models.ApplicationStatus{models.StatusActive}, to: models.StatusArchived},
	EventHold:       {from: []models.ApplicationStatus{models.StatusActive}, to: models.StatusOnHold},
	EventWithdraw:   {from: []models.ApplicationStatus{models.StatusActive}, to: models.StatusWithdrawn},
	EventReactivate: {from: nil, to: models.StatusActive},
}

var stageTable = map[StageEvent]stageTransition{
	// The direct move-to-applied event is legal from every non-closed stage.
	EventMoveToApplied:      {from: []models.PipelineStage{models.StageApplied, models.StageScreening, models.StageInterviewing, models.StageOffer}, to: models.StageApplied},
	EventMoveToScreening:    {from: []models.PipelineStage{models.StageApplied}, to: models.StageScreening},
	EventMoveToInterviewing: {from: []models.PipelineStage{models.StageApplied, models.StageScreening}, to: models.StageInterviewing},
	EventMoveToOffer:        {from: []models.PipelineStage{models.StageApplied, models.StageScreening, models.StageInterviewing}, to: models.StageOffer},
	EventMoveToClosed:       {from: []models.PipelineStage{models.StageApplied, models.StageScreening, models.StageInterviewing, models.StageOffer}, to: models.StageClosed},
}

// CanFireStatus reports whether the status event is legal for the
// application's current status.
func CanFireStatus(app *models.InterviewApplication, ev StatusEvent) bool {
	t, ok := statusTable[ev]
	if !ok || app == nil {
		return false
	}
	if t.from == nil {
		return true
	}
	for _, s := range t.from {
		if app.Status == s {
			return true
		}
	}
	return false
}

// FireStatus applies the status event when legal. Returns true when the
// transition happened, false for the guarded no-op.
func FireStatus(app *models.InterviewApplication, ev StatusEvent) bool {
	if !CanFireStatus(app, ev) {
		return false
	}
	app.Status = statusTable[ev].to
	return true
}

// CanFireStage reports whether the stage event is legal for the
// application's current pipeline stage.
func CanFireStage(app *models.InterviewApplication, ev StageEvent) bool {
	t, ok := stageTable[ev]
	if !ok || app == nil {
		return false
	}
	for _, s := range t.from {
		if app.PipelineStage == s {
			return true
		}
	}
	return false
}

// FireStage applies the stage event when legal.
func FireStage(app *models.InterviewApplication, ev StageEvent) bool {
	if !CanFireStage(app, ev) {
		return false
	}
	app.PipelineStage = stageTable[ev].to
	return true
}

// StageEventFor maps a target pipeline stage to the event that reaches it.
func StageEventFor(stage models.PipelineStage) (StageEvent, bool) {
	switch stage {
	case models.StageApplied:
		return EventMoveToApplied, true
	case models.StageScreening:
		return EventMoveToScreening, true
	case models.StageInterviewing:
		return EventMoveToInterviewing, true
	case models.StageOffer:
		return EventMoveToOffer, true
	case models.StageClosed:
		return EventMoveToClosed, true
	}
	return "", false
}

// StatusEventFor maps a target status to the event that reaches it.
func StatusEventFor(status models.ApplicationStatus) (StatusEvent, bool) {
	switch status {
	case models.StatusRejected:
		return EventReject, true
	case models.StatusAccepted:
		return EventAccept, true
	case models.StatusArchived:
		return EventArchive, true
	case models.StatusOnHold:
		return EventHold, true
	case models.StatusWithdrawn:
		return EventWithdraw, true
	case models.StatusActive:
		return EventReactivate, true
	}
	return "", false
}
