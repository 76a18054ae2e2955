package extraction

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/jobsignal/internal/aiconnectors"
	"github.com/jobsignal/internal/notify"
	"github.com/jobsignal/internal/store"
	"github.com/jobsignal/pkg/models"
)

type fakeExtractor struct {
	name      string
	available bool
	result    aiconnectors.RunResult
	calls     int
}

func (f *fakeExtractor) Name() string    { return f.name }
func (f *fakeExtractor) Available() bool { return f.available }

func (f *fakeExtractor) Run(ctx context.Context, prompt string, cfg aiconnectors.ModelConfig) aiconnectors.RunResult {
	f.calls++
	return f.result
}

// newTestChain builds a runner over fake extractors with an uncapped rate
// limit so tests never sleep.
func newTestChain(audit AuditLogger, fakes ...*fakeExtractor) *ChainRunner {
	registry := aiconnectors.NewRegistry(nil)
	for _, f := range fakes {
		registry.Register(f.name, f)
	}
	cr := NewChainRunner(registry, audit)
	cr.limit = rate.Inf
	return cr
}

func goodResponse(body string) aiconnectors.RunResult {
	return aiconnectors.RunResult{Content: body, Model: "test-model", PromptTokens: 10, CompletionTokens: 5}
}

func seedApplication(t *testing.T, s *store.InMemoryStore) *models.InterviewApplication {
	t.Helper()
	app := &models.InterviewApplication{
		UserID:        "user-1",
		CompanyID:     "company-1",
		JobRoleID:     "role-1",
		Status:        models.StatusActive,
		PipelineStage: models.StageApplied,
		AppliedAt:     time.Now().Add(-7 * 24 * time.Hour),
	}
	if err := s.CreateApplication(context.Background(), app); err != nil {
		t.Fatalf("seed application: %v", err)
	}
	return app
}

func matchedSignal(app *models.InterviewApplication, class models.Classification, subject, body string) *models.Signal {
	appID := app.ID
	return &models.Signal{
		ID:             "signal-" + string(class) + "-" + subject,
		UserID:         app.UserID,
		Classification: class,
		ApplicationID:  &appID,
		Subject:        subject,
		Body:           body,
		Sender:         "recruiting@example.com",
		ReceivedAt:     time.Now(),
	}
}

func seedRound(t *testing.T, s *store.InMemoryStore, appID string, mutate func(*models.InterviewRound)) *models.InterviewRound {
	t.Helper()
	round := &models.InterviewRound{
		ApplicationID: appID,
		Stage:         models.RoundStageOther,
		Result:        models.RoundPending,
		Position:      1,
	}
	if mutate != nil {
		mutate(round)
	}
	if err := s.CreateRound(context.Background(), round); err != nil {
		t.Fatalf("seed round: %v", err)
	}
	return round
}

var testReporter notify.Reporter = &notify.CollectingReporter{}
