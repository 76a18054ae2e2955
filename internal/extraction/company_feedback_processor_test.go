package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobsignal/internal/store"
	"github.com/jobsignal/pkg/models"
)

func TestCompanyFeedbackFromExtractedData(t *testing.T) {
	mem := store.NewInMemoryStore()
	app := seedApplication(t, mem)
	proc := NewCompanyFeedbackProcessor(mem)

	signal := matchedSignal(app, models.ClassRejection, "No", "We regret.")
	signal.ExtractedData = map[string]string{"feedback_text": "Strong on systems, light on frontend."}

	res := proc.Process(context.Background(), signal)

	require.True(t, res.Success)
	assert.Equal(t, ActionCreated, res.Action)
	assert.Equal(t, models.FeedbackRejection, res.CompanyFeedback.FeedbackType)
	assert.Equal(t, "Strong on systems, light on frontend.", *res.CompanyFeedback.FeedbackText)
}

func TestCompanyFeedbackFallsBackToKeyInsights(t *testing.T) {
	mem := store.NewInMemoryStore()
	app := seedApplication(t, mem)
	proc := NewCompanyFeedbackProcessor(mem)

	signal := matchedSignal(app, models.ClassOther, "FYI", "Some notes.")
	signal.ExtractedData = map[string]string{"key_insights": "Hiring freeze until Q1."}

	res := proc.Process(context.Background(), signal)

	require.True(t, res.Success)
	assert.Equal(t, models.FeedbackGeneral, res.CompanyFeedback.FeedbackType)
	assert.Equal(t, "Hiring freeze until Q1.", *res.CompanyFeedback.FeedbackText)
}

func TestCompanyFeedbackSkipsWithoutText(t *testing.T) {
	mem := store.NewInMemoryStore()
	app := seedApplication(t, mem)
	proc := NewCompanyFeedbackProcessor(mem)

	res := proc.Process(context.Background(), matchedSignal(app, models.ClassRejection, "No", "We regret."))

	assert.True(t, res.Skipped)
	assert.Equal(t, ReasonNoFeedbackText, res.SkipReason)
}

func TestCompanyFeedbackTypedDedupe(t *testing.T) {
	mem := store.NewInMemoryStore()
	app := seedApplication(t, mem)
	proc := NewCompanyFeedbackProcessor(mem)

	first := matchedSignal(app, models.ClassRejection, "No 1", "We regret.")
	first.ExtractedData = map[string]string{"feedback_text": "Not enough leadership experience."}
	res := proc.Process(context.Background(), first)
	require.True(t, res.Success)

	second := matchedSignal(app, models.ClassRejection, "No 2", "Still no.")
	second.ExtractedData = map[string]string{"feedback_text": "Duplicate rejection note."}
	res = proc.Process(context.Background(), second)
	assert.True(t, res.Skipped)
	assert.Equal(t, ReasonFeedbackExists, res.SkipReason)

	// General notes co-exist with the rejection record.
	note := matchedSignal(app, models.ClassOther, "Note", "Extra context.")
	note.ExtractedData = map[string]string{"feedback_text": "Recruiter suggested reapplying next year."}
	res = proc.Process(context.Background(), note)
	require.True(t, res.Success)
	assert.Equal(t, models.FeedbackGeneral, res.CompanyFeedback.FeedbackType)
}

func TestCompanyFeedbackIdempotent(t *testing.T) {
	mem := store.NewInMemoryStore()
	app := seedApplication(t, mem)
	proc := NewCompanyFeedbackProcessor(mem)

	signal := matchedSignal(app, models.ClassOffer, "Offer", "Congrats.")
	signal.ExtractedData = map[string]string{"feedback_text": "Team was impressed across the board."}

	first := proc.Process(context.Background(), signal)
	require.True(t, first.Success)

	second := proc.Process(context.Background(), signal)
	require.True(t, second.Success)
	assert.Equal(t, ActionMatchedExisting, second.Action)
	assert.Equal(t, first.CompanyFeedback.ID, second.CompanyFeedback.ID)
}
