package statemachine

import (
	"testing"

	"github.com/jobsignal/pkg/models"
)

func newApp(status models.ApplicationStatus, stage models.PipelineStage) *models.InterviewApplication {
	return &models.InterviewApplication{ID: "app-1", Status: status, PipelineStage: stage}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name       string
		from       models.ApplicationStatus
		event      StatusEvent
		wantFired  bool
		wantStatus models.ApplicationStatus
	}{
		{"reject from active", models.StatusActive, EventReject, true, models.StatusRejected},
		{"reject from rejected is a no-op", models.StatusRejected, EventReject, false, models.StatusRejected},
		{"reject from withdrawn is a no-op", models.StatusWithdrawn, EventReject, false, models.StatusWithdrawn},
		{"accept from active", models.StatusActive, EventAccept, true, models.StatusAccepted},
		{"archive from active", models.StatusActive, EventArchive, true, models.StatusArchived},
		{"archive from on_hold is a no-op", models.StatusOnHold, EventArchive, false, models.StatusOnHold},
		{"withdraw from active", models.StatusActive, EventWithdraw, true, models.StatusWithdrawn},
		{"reactivate from rejected", models.StatusRejected, EventReactivate, true, models.StatusActive},
		{"reactivate from archived", models.StatusArchived, EventReactivate, true, models.StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(tt.from, models.StageApplied)
			fired := FireStatus(app, tt.event)
			if fired != tt.wantFired {
				t.Fatalf("FireStatus(%s) fired=%v, want %v", tt.event, fired, tt.wantFired)
			}
			if app.Status != tt.wantStatus {
				t.Fatalf("status after %s = %s, want %s", tt.event, app.Status, tt.wantStatus)
			}
		})
	}
}

func TestStageTransitions(t *testing.T) {
	tests := []struct {
		name      string
		from      models.PipelineStage
		event     StageEvent
		wantFired bool
		wantStage models.PipelineStage
	}{
		{"applied to screening", models.StageApplied, EventMoveToScreening, true, models.StageScreening},
		{"screening to interviewing", models.StageScreening, EventMoveToInterviewing, true, models.StageInterviewing},
		{"applied straight to interviewing", models.StageApplied, EventMoveToInterviewing, true, models.StageInterviewing},
		{"interviewing to offer", models.StageInterviewing, EventMoveToOffer, true, models.StageOffer},
		{"offer to closed", models.StageOffer, EventMoveToClosed, true, models.StageClosed},
		{"closed is terminal for offer", models.StageClosed, EventMoveToOffer, false, models.StageClosed},
		{"closed is terminal for applied", models.StageClosed, EventMoveToApplied, false, models.StageClosed},
		{"no backwards move to screening", models.StageInterviewing, EventMoveToScreening, false, models.StageInterviewing},
		{"direct move to applied from offer", models.StageOffer, EventMoveToApplied, true, models.StageApplied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(models.StatusActive, tt.from)
			fired := FireStage(app, tt.event)
			if fired != tt.wantFired {
				t.Fatalf("FireStage(%s) fired=%v, want %v", tt.event, fired, tt.wantFired)
			}
			if app.PipelineStage != tt.wantStage {
				t.Fatalf("stage after %s = %s, want %s", tt.event, app.PipelineStage, tt.wantStage)
			}
		})
	}
}

func TestRepeatedRejectHasNoSideEffects(t *testing.T) {
	app := newApp(models.StatusActive, models.StageInterviewing)
	if !FireStatus(app, EventReject) {
		t.Fatal("first reject should fire")
	}
	for i := 0; i < 3; i++ {
		if FireStatus(app, EventReject) {
			t.Fatal("repeated reject must be a silent no-op")
		}
	}
	if app.Status != models.StatusRejected {
		t.Fatalf("status = %s, want rejected", app.Status)
	}
}

func TestEventForMappings(t *testing.T) {
	for _, stage := range []models.PipelineStage{models.StageApplied, models.StageScreening, models.StageInterviewing, models.StageOffer, models.StageClosed} {
		if _, ok := StageEventFor(stage); !ok {
			t.Fatalf("no event mapped for stage %s", stage)
		}
	}
	if _, ok := StageEventFor(models.PipelineStage("bogus")); ok {
		t.Fatal("unknown stage should not map to an event")
	}
	if ev, ok := StatusEventFor(models.StatusRejected); !ok || ev != EventReject {
		t.Fatalf("StatusEventFor(rejected) = %s, %v", ev, ok)
	}
}
