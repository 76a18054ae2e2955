package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jobsignal/internal/notify"
	"github.com/jobsignal/internal/store"
	"github.com/jobsignal/pkg/models"
)

// FeedbackProcessor attaches round-feedback emails to the interview round
// they talk about, recording the outcome and any substantive feedback.
type FeedbackProcessor struct {
	store     store.Store
	chain     *ChainRunner
	prompts   *PromptBuilder
	reporter  notify.Reporter
	providers []string
	threshold float64
	now       func() time.Time
}

func NewFeedbackProcessor(s store.Store, chain *ChainRunner, reporter notify.Reporter, providers []string, threshold float64) *FeedbackProcessor {
	return &FeedbackProcessor{
		store:     s,
		chain:     chain,
		prompts:   NewPromptBuilder(),
		reporter:  reporter,
		providers: providers,
		threshold: threshold,
		now:       time.Now,
	}
}

func (p *FeedbackProcessor) Process(ctx context.Context, signal *models.Signal) ProcessorResult {
	if !signal.Matched() {
		return skipResult(ReasonUnmatched)
	}
	if signal.Classification != models.ClassRoundFeedback {
		return skipResult(ReasonWrongClass)
	}
	if !hasContent(signal) {
		return skipResult(ReasonNoContent)
	}

	existing, err := p.store.GetInterviewFeedbackBySourceSignal(ctx, signal.ID)
	if err != nil && err != store.ErrNotFound {
		return failResult(err.Error())
	}
	if existing != nil {
		return ProcessorResult{Success: true, Action: ActionMatchedExisting, Feedback: existing}
	}

	res := p.chain.Run(ctx, ChainRequest{
		OperationType: OpRoundFeedback,
		SignalID:      signal.ID,
		Providers:     p.providers,
		Prompt:        p.prompts.BuildFeedbackPrompt(signal),
		Accept:        MinConfidence(p.threshold),
	})
	if !res.Success {
		return failResult(res.Err)
	}

	var extracted FeedbackExtraction
	if err := decodeInto(res.Data, &extracted); err != nil {
		return failResult(fmt.Sprintf("decode feedback extraction: %v", err))
	}

	app, err := p.store.GetApplication(ctx, *signal.ApplicationID)
	if err != nil {
		return failResult(err.Error())
	}
	rounds, err := p.store.ListRounds(ctx, app.ID)
	if err != nil {
		p.reporter.ReportError(err, map[string]string{
			"signal_id":      signal.ID,
			"application_id": app.ID,
			"operation":      OpRoundFeedback,
		})
		return failResult(err.Error())
	}

	// A retried delivery may have created the round already; the feedback
	// record is written last, so its absence alone does not mean a clean run.
	round, err := p.store.GetRoundBySourceSignal(ctx, signal.ID)
	if err != nil && err != store.ErrNotFound {
		return failResult(err.Error())
	}
	var roundAction Action
	if round == nil {
		round, roundAction = p.resolveRound(ctx, signal, app, rounds, &extracted)
		if round == nil {
			return failResult("could not resolve a round for feedback")
		}
	}

	if result := parseRoundResult(extracted.Result); result != "" && round.Pending() {
		round.Result = result
		completed := p.now()
		round.CompletedAt = &completed
		if err := p.store.UpdateRound(ctx, round); err != nil {
			return failResult(err.Error())
		}
		if roundAction == "" {
			roundAction = ActionUpdated
		}
	}
	if roundAction == "" {
		roundAction = ActionMatchedExisting
	}

	prior, err := p.store.GetInterviewFeedbackByRound(ctx, round.ID)
	if err != nil && err != store.ErrNotFound {
		return failResult(err.Error())
	}
	if prior != nil {
		return ProcessorResult{
			Skipped:       true,
			SkipReason:    ReasonRoundHasFeedback,
			Round:         round,
			ProviderLogID: res.LogID,
		}
	}

	feedback := &models.InterviewFeedback{
		RoundID:        round.ID,
		Strengths:      strPtr(extracted.Strengths),
		Improvements:   strPtr(extracted.Improvements),
		AISummary:      strPtr(extracted.Summary),
		NextAction:     strPtr(extracted.NextSteps),
		SourceSignalID: &signal.ID,
	}
	if err := p.store.CreateInterviewFeedback(ctx, feedback); err != nil {
		return failResult(err.Error())
	}
	log.Debug().
		Str("round_id", round.ID).
		Str("signal_id", signal.ID).
		Str("result", extracted.Result).
		Msg("recorded round feedback")
	return ProcessorResult{
		Success:       true,
		Action:        roundAction,
		Round:         round,
		Feedback:      feedback,
		ProviderLogID: res.LogID,
	}
}

// resolveRound picks the round the feedback refers to. Pending rounds are
// tried by interviewer name, then by stage keywords, then by recency. When
// nothing pending matches, a post-rejection email with no distinguishing
// hints attaches to the latest round; anything else synthesizes a new round.
// The returned action is non-empty only when the resolver created a round.
func (p *FeedbackProcessor) resolveRound(ctx context.Context, signal *models.Signal, app *models.InterviewApplication, rounds []*models.InterviewRound, extracted *FeedbackExtraction) (*models.InterviewRound, Action) {
	pending := pendingRounds(rounds)

	if extracted.InterviewerMentioned != "" {
		for _, r := range pending {
			if nameMatches(extracted.InterviewerMentioned, deref(r.InterviewerName)) {
				return r, ""
			}
		}
	}

	if stage, ok := inferStageFromText(extracted.StageMentioned); ok {
		for _, r := range pending {
			if r.Stage == stage {
				return r, ""
			}
		}
	}

	if r := mostRecentlyScheduled(pending); r != nil {
		return r, ""
	}

	noHints := extracted.InterviewerMentioned == "" &&
		extracted.StageMentioned == "" &&
		extracted.DateMentioned == ""
	if app.Status == models.StatusRejected && noHints {
		if r := latestRound(rounds); r != nil {
			log.Debug().
				Str("round_id", r.ID).
				Str("signal_id", signal.ID).
				Msg("post-rejection feedback attached to latest round")
			return r, ""
		}
	}

	stage := models.RoundStageOther
	if inferred, ok := inferStageFromText(extracted.StageMentioned); ok {
		stage = inferred
	}
	result := parseRoundResult(extracted.Result)
	if result == "" {
		result = models.RoundPending
	}
	round := &models.InterviewRound{
		ApplicationID:  app.ID,
		Stage:          stage,
		Result:         result,
		Position:       maxPosition(rounds) + 1,
		SourceSignalID: &signal.ID,
	}
	if result != models.RoundPending {
		completed := p.now()
		round.CompletedAt = &completed
	}
	if err := p.store.CreateRound(ctx, round); err != nil {
		p.reporter.ReportError(err, map[string]string{
			"signal_id":      signal.ID,
			"application_id": app.ID,
			"operation":      OpRoundFeedback,
		})
		return nil, ""
	}
	log.Debug().
		Str("round_id", round.ID).
		Str("signal_id", signal.ID).
		Msg("synthesized round for unmatched feedback")
	return round, ActionCreated
}

func parseRoundResult(raw string) models.RoundResult {
	switch models.RoundResult(raw) {
	case models.RoundPassed, models.RoundFailed, models.RoundWaitlisted:
		return models.RoundResult(raw)
	}
	return ""
}
