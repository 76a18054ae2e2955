package extraction

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobsignal/internal/store"
	"github.com/jobsignal/pkg/models"
)

func roundChainResponse(scheduledAt time.Time, extra string) string {
	body := fmt.Sprintf(`{"scheduled_at": %q, "stage": "technical", "interviewer_name": "Priya Sharma", "interviewer_role": "Staff Engineer", "duration_minutes": 60, "video_link": "https://zoom.us/j/123", "confirmation_source": "calendly", "confidence": 0.9`, scheduledAt.Format(time.RFC3339))
	if extra != "" {
		body += ", " + extra
	}
	return body + "}"
}

func newRoundProcessor(mem *store.InMemoryStore, response string) *RoundProcessor {
	provider := &fakeExtractor{name: "openai", available: true, result: goodResponse(response)}
	chain := newTestChain(NewStoreAuditLogger(mem), provider)
	return NewRoundProcessor(mem, chain, testReporter, []string{"openai"}, 0.6)
}

func TestRoundProcessorCreatesRound(t *testing.T) {
	mem := store.NewInMemoryStore()
	app := seedApplication(t, mem)
	scheduled := time.Now().Add(48 * time.Hour).Truncate(time.Second).UTC()
	proc := newRoundProcessor(mem, roundChainResponse(scheduled, `"location": "12 Main St", "meeting_id": "987"`))

	signal := matchedSignal(app, models.ClassInterviewInvite, "Interview confirmed", "See you Thursday.")
	res := proc.Process(context.Background(), signal)

	require.True(t, res.Success, "error: %s skip: %s", res.Err, res.SkipReason)
	assert.Equal(t, ActionCreated, res.Action)
	require.NotNil(t, res.Round)
	assert.Equal(t, models.RoundStageTechnical, res.Round.Stage)
	assert.Equal(t, 1, res.Round.Position)
	require.NotNil(t, res.Round.ScheduledAt)
	assert.True(t, res.Round.ScheduledAt.Equal(scheduled))
	require.NotNil(t, res.Round.SourceSignalID)
	assert.Equal(t, signal.ID, *res.Round.SourceSignalID)
	require.NotNil(t, res.Round.Notes)
	assert.Contains(t, *res.Round.Notes, "Location: 12 Main St")
	assert.Contains(t, *res.Round.Notes, "Meeting ID: 987")
	assert.NotEmpty(t, res.ProviderLogID)
}

func TestRoundProcessorMatchesByTimeWindow(t *testing.T) {
	mem := store.NewInMemoryStore()
	app := seedApplication(t, mem)
	original := time.Now().Add(48 * time.Hour).Truncate(time.Second).UTC()
	existing := seedRound(t, mem, app.ID, func(r *models.InterviewRound) {
		r.ScheduledAt = &original
		r.Stage = models.RoundStageTechnical
		oldLink := "https://zoom.us/j/old"
		r.VideoLink = &oldLink
	})

	// Same interview, nudged 30 minutes, fresh join link.
	nudged := original.Add(30 * time.Minute)
	proc := newRoundProcessor(mem, roundChainResponse(nudged, ""))
	signal := matchedSignal(app, models.ClassScheduling, "Updated invite", "New link inside.")

	res := proc.Process(context.Background(), signal)

	require.True(t, res.Success)
	assert.Equal(t, ActionUpdated, res.Action)
	assert.Equal(t, existing.ID, res.Round.ID)
	assert.Equal(t, 1, mem.CountRounds(app.ID), "no duplicate round")
	assert.Equal(t, "https://zoom.us/j/123", *res.Round.VideoLink, "join link is always overwritten")
	assert.True(t, res.Round.ScheduledAt.Equal(original), "existing scheduled time is kept")
}

func TestRoundProcessorConfirmsUnscheduledRound(t *testing.T) {
	mem := store.NewInMemoryStore()
	app := seedApplication(t, mem)
	tentative := seedRound(t, mem, app.ID, nil) // no scheduled_at yet

	scheduled := time.Now().Add(24 * time.Hour).Truncate(time.Second).UTC()
	proc := newRoundProcessor(mem, roundChainResponse(scheduled, ""))
	signal := matchedSignal(app, models.ClassScheduling, "Time confirmed", "Booked.")

	res := proc.Process(context.Background(), signal)

	require.True(t, res.Success)
	assert.Equal(t, ActionUpdated, res.Action)
	assert.Equal(t, tentative.ID, res.Round.ID)
	require.NotNil(t, res.Round.ScheduledAt)
	assert.True(t, res.Round.ScheduledAt.Equal(scheduled))
	assert.Equal(t, 1, mem.CountRounds(app.ID))
}

func TestRoundProcessorSkipsBareSchedulingLink(t *testing.T) {
	mem := store.NewInMemoryStore()
	app := seedApplication(t, mem)
	proc := newRoundProcessor(mem, `{"scheduled_at": "", "scheduling_link": "https://calendly.com/pick-a-slot", "confidence": 0.9}`)
	signal := matchedSignal(app, models.ClassScheduling, "Pick a time", "Choose a slot that works.")

	res := proc.Process(context.Background(), signal)

	assert.True(t, res.Skipped)
	assert.Equal(t, ReasonInsufficient, res.SkipReason)
	assert.Equal(t, 0, mem.CountRounds(app.ID))
}

func TestRoundProcessorIdempotent(t *testing.T) {
	mem := store.NewInMemoryStore()
	app := seedApplication(t, mem)
	scheduled := time.Now().Add(48 * time.Hour).Truncate(time.Second).UTC()
	proc := newRoundProcessor(mem, roundChainResponse(scheduled, ""))
	signal := matchedSignal(app, models.ClassInterviewInvite, "Interview confirmed", "See you soon.")

	first := proc.Process(context.Background(), signal)
	require.True(t, first.Success)
	require.Equal(t, ActionCreated, first.Action)

	second := proc.Process(context.Background(), signal)
	require.True(t, second.Success)
	assert.Equal(t, ActionMatchedExisting, second.Action)
	assert.Equal(t, first.Round.ID, second.Round.ID)
	assert.Equal(t, 1, mem.CountRounds(app.ID))
}

func TestRoundProcessorSkipsUnmatchedAndForeignSignals(t *testing.T) {
	mem := store.NewInMemoryStore()
	app := seedApplication(t, mem)
	proc := newRoundProcessor(mem, `{}`)

	unmatched := matchedSignal(app, models.ClassScheduling, "s", "b")
	unmatched.ApplicationID = nil
	res := proc.Process(context.Background(), unmatched)
	assert.True(t, res.Skipped)
	assert.Equal(t, ReasonUnmatched, res.SkipReason)

	wrongClass := matchedSignal(app, models.ClassRejection, "s", "b")
	res = proc.Process(context.Background(), wrongClass)
	assert.True(t, res.Skipped)
	assert.Equal(t, ReasonWrongClass, res.SkipReason)

	empty := matchedSignal(app, models.ClassScheduling, "", "")
	res = proc.Process(context.Background(), empty)
	assert.True(t, res.Skipped)
	assert.Equal(t, ReasonNoContent, res.SkipReason)
}

func TestRoundProcessorFailsOnChainExhaustion(t *testing.T) {
	mem := store.NewInMemoryStore()
	app := seedApplication(t, mem)
	broken := &fakeExtractor{name: "openai", available: true, result: goodResponse("no json here")}
	chain := newTestChain(NopAuditLogger{}, broken)
	proc := NewRoundProcessor(mem, chain, testReporter, []string{"openai"}, 0.6)

	res := proc.Process(context.Background(), matchedSignal(app, models.ClassScheduling, "s", "b"))

	assert.False(t, res.Success)
	assert.False(t, res.Skipped)
	assert.Equal(t, "no provider produced an acceptable result", res.Err)
}
