package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobsignal/internal/aiconnectors"
	"github.com/jobsignal/internal/extraction"
	"github.com/jobsignal/internal/notify"
	"github.com/jobsignal/internal/store"
	"github.com/jobsignal/pkg/models"
)

type scriptedExtractor struct {
	response string
	calls    int
}

func (s *scriptedExtractor) Name() string    { return "openai" }
func (s *scriptedExtractor) Available() bool { return true }

func (s *scriptedExtractor) Run(ctx context.Context, prompt string, cfg aiconnectors.ModelConfig) aiconnectors.RunResult {
	s.calls++
	return aiconnectors.RunResult{Content: s.response, Model: "test-model"}
}

// newOrchestrator wires a full pipeline over the in-memory store with one
// scripted provider behind every processor.
func newOrchestrator(mem *store.InMemoryStore, provider *scriptedExtractor) *Orchestrator {
	registry := aiconnectors.NewRegistry(nil)
	registry.Register("openai", provider)
	chain := extraction.NewChainRunner(registry, extraction.NewStoreAuditLogger(mem))
	reporter := &notify.CollectingReporter{}
	providers := []string{"openai"}

	return NewOrchestrator(
		mem,
		NewApplier(mem, reporter),
		reporter,
		extraction.NewRoundProcessor(mem, chain, reporter, providers, 0.6),
		extraction.NewFeedbackProcessor(mem, chain, reporter, providers, 0.5),
		extraction.NewStatusProcessor(mem, chain, reporter, providers, 0.6),
	)
}

func signalFor(app *models.InterviewApplication, class models.Classification, id string) *models.Signal {
	appID := app.ID
	return &models.Signal{
		ID:             id,
		UserID:         app.UserID,
		Classification: class,
		ApplicationID:  &appID,
		Subject:        "subject",
		Body:           "body",
		Sender:         "recruiting@example.com",
		ReceivedAt:     time.Now(),
	}
}

func TestOrchestratorSchedulingCreatesScreeningRound(t *testing.T) {
	mem := store.NewInMemoryStore()
	app := seedApp(t, mem, models.StatusActive, models.StageApplied)
	scheduled := time.Now().Add(48 * time.Hour).Truncate(time.Second).UTC()
	provider := &scriptedExtractor{response: fmt.Sprintf(
		`{"scheduled_at": %q, "stage": "screening", "video_link": "https://zoom.us/j/1", "confidence": 0.9}`,
		scheduled.Format(time.RFC3339))}

	orch := newOrchestrator(mem, provider)
	res := orch.Process(context.Background(), signalFor(app, models.ClassScheduling, "sig-a"))

	require.True(t, res.Success, "error: %s", res.Err)
	proc := res.ProcessorResults[string(RunInterviewRoundProcessor)]
	require.True(t, proc.Success)
	assert.Equal(t, extraction.ActionCreated, proc.Action)
	assert.Equal(t, models.RoundStageScreening, proc.Round.Stage)
	assert.Equal(t, models.RoundPending, proc.Round.Result)
	assert.True(t, proc.Round.ScheduledAt.Equal(scheduled))

	assert.Contains(t, res.Applied, string(SyncPipelineFromRoundStage))
	updated, _ := mem.GetApplication(context.Background(), app.ID)
	assert.Equal(t, models.StageScreening, updated.PipelineStage)
}

func TestOrchestratorFailedFeedbackClosesApplication(t *testing.T) {
	mem := store.NewInMemoryStore()
	app := seedApp(t, mem, models.StatusActive, models.StageScreening)
	addRound(t, mem, app.ID, 1, models.RoundStageScreening, models.RoundPending)

	provider := &scriptedExtractor{response: `{"result": "failed", "summary": "Not moving forward.", "confidence": 0.8}`}
	orch := newOrchestrator(mem, provider)

	res := orch.Process(context.Background(), signalFor(app, models.ClassRoundFeedback, "sig-c"))

	require.True(t, res.Success, "error: %s", res.Err)
	updated, _ := mem.GetApplication(context.Background(), app.ID)
	assert.Equal(t, models.StatusRejected, updated.Status)
	assert.Equal(t, models.StageClosed, updated.PipelineStage)

	rounds, _ := mem.ListRounds(context.Background(), app.ID)
	require.Len(t, rounds, 1)
	assert.Equal(t, models.RoundFailed, rounds[0].Result)
}

func TestOrchestratorRejectionScenarioIsIdempotent(t *testing.T) {
	mem := store.NewInMemoryStore()
	app := seedApp(t, mem, models.StatusActive, models.StageInterviewing)
	addRound(t, mem, app.ID, 1, models.RoundStageTechnical, models.RoundPending)

	provider := &scriptedExtractor{response: `{"status_change_type": "rejection", "rejection_reason": "other candidates", "confidence": 0.8}`}
	orch := newOrchestrator(mem, provider)
	signal := signalFor(app, models.ClassRejection, "sig-d")

	res := orch.Process(context.Background(), signal)
	require.True(t, res.Success, "error: %s", res.Err)

	updated, _ := mem.GetApplication(context.Background(), app.ID)
	assert.Equal(t, models.StatusRejected, updated.Status)
	rounds, _ := mem.ListRounds(context.Background(), app.ID)
	assert.Equal(t, models.RoundFailed, rounds[0].Result)

	feedback, err := mem.GetCompanyFeedbackByType(context.Background(), app.ID, models.FeedbackRejection)
	require.NoError(t, err)

	// Reprocessing the identical signal changes nothing further.
	res = orch.Process(context.Background(), signal)
	require.True(t, res.Success)
	proc := res.ProcessorResults[string(RunStatusProcessor)]
	assert.Equal(t, extraction.ActionMatchedExisting, proc.Action)
	assert.Equal(t, feedback.ID, proc.CompanyFeedback.ID)

	again, _ := mem.GetApplication(context.Background(), app.ID)
	assert.Equal(t, models.StatusRejected, again.Status)
}

func TestOrchestratorSkipsUnmatchedSignal(t *testing.T) {
	mem := store.NewInMemoryStore()
	provider := &scriptedExtractor{response: `{}`}
	orch := newOrchestrator(mem, provider)

	res := orch.Process(context.Background(), &models.Signal{
		ID:             "sig-f",
		Classification: models.ClassRejection,
		Subject:        "s",
		Body:           "b",
	})

	assert.True(t, res.Skipped)
	assert.Empty(t, res.ProcessorResults)
	assert.Empty(t, res.Applied)
	assert.Equal(t, 0, provider.calls, "no processor runs for unmatched signals")
}

func TestOrchestratorConfirmationSetsAppliedStage(t *testing.T) {
	mem := store.NewInMemoryStore()
	app := seedApp(t, mem, models.StatusActive, models.StageScreening)
	provider := &scriptedExtractor{response: `{}`}
	orch := newOrchestrator(mem, provider)

	res := orch.Process(context.Background(), signalFor(app, models.ClassApplicationConfirmation, "sig-conf"))

	require.True(t, res.Success)
	assert.Equal(t, 0, provider.calls)
	assert.Equal(t, []string{string(SetPipelineStage)}, res.Applied)
	updated, _ := mem.GetApplication(context.Background(), app.ID)
	assert.Equal(t, models.StageApplied, updated.PipelineStage)
}

func TestOrchestratorSurfacesProcessorFailure(t *testing.T) {
	mem := store.NewInMemoryStore()
	app := seedApp(t, mem, models.StatusActive, models.StageApplied)
	provider := &scriptedExtractor{response: "no json at all"}
	orch := newOrchestrator(mem, provider)

	res := orch.Process(context.Background(), signalFor(app, models.ClassScheduling, "sig-err"))

	assert.False(t, res.Success)
	assert.Equal(t, "no provider produced an acceptable result", res.Err)
	assert.Equal(t, 0, mem.CountRounds(app.ID))
}
