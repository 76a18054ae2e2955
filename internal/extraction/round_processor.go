package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jobsignal/internal/notify"
	"github.com/jobsignal/internal/store"
	"github.com/jobsignal/pkg/models"
)

// roundMatchWindow bounds how far an extracted time may drift from a stored
// round's scheduled time and still refer to the same interview.
const roundMatchWindow = time.Hour

// RoundProcessor turns scheduling emails into interview rounds: confirming a
// tentative round, updating a rescheduled one, or creating the next round.
type RoundProcessor struct {
	store     store.Store
	chain     *ChainRunner
	prompts   *PromptBuilder
	reporter  notify.Reporter
	providers []string
	threshold float64
}

func NewRoundProcessor(s store.Store, chain *ChainRunner, reporter notify.Reporter, providers []string, threshold float64) *RoundProcessor {
	return &RoundProcessor{
		store:     s,
		chain:     chain,
		prompts:   NewPromptBuilder(),
		reporter:  reporter,
		providers: providers,
		threshold: threshold,
	}
}

func (p *RoundProcessor) handles(c models.Classification) bool {
	switch c {
	case models.ClassScheduling, models.ClassInterviewInvite, models.ClassInterviewReminder:
		return true
	}
	return false
}

func (p *RoundProcessor) Process(ctx context.Context, signal *models.Signal) ProcessorResult {
	if !signal.Matched() {
		return skipResult(ReasonUnmatched)
	}
	if !p.handles(signal.Classification) {
		return skipResult(ReasonWrongClass)
	}
	if !hasContent(signal) {
		return skipResult(ReasonNoContent)
	}

	existing, err := p.store.GetRoundBySourceSignal(ctx, signal.ID)
	if err != nil && err != store.ErrNotFound {
		return failResult(err.Error())
	}
	if existing != nil {
		return ProcessorResult{Success: true, Action: ActionMatchedExisting, Round: existing}
	}

	res := p.chain.Run(ctx, ChainRequest{
		OperationType: OpInterviewRound,
		SignalID:      signal.ID,
		Providers:     p.providers,
		Prompt:        p.prompts.BuildRoundPrompt(signal),
		Accept:        MinConfidence(p.threshold),
	})
	if !res.Success {
		return failResult(res.Err)
	}

	var extracted RoundExtraction
	if err := decodeInto(res.Data, &extracted); err != nil {
		return failResult(fmt.Sprintf("decode round extraction: %v", err))
	}

	scheduledAt := parseScheduledAt(extracted.ScheduledAt)
	if scheduledAt == nil && extracted.VideoLink == "" {
		// A booking link with no confirmed slot creates nothing.
		return ProcessorResult{Skipped: true, SkipReason: ReasonInsufficient, ProviderLogID: res.LogID}
	}

	rounds, err := p.store.ListRounds(ctx, *signal.ApplicationID)
	if err != nil {
		p.reporter.ReportError(err, map[string]string{
			"signal_id":      signal.ID,
			"application_id": *signal.ApplicationID,
			"operation":      OpInterviewRound,
		})
		return failResult(err.Error())
	}

	if scheduledAt != nil {
		if match := p.findByWindow(rounds, *scheduledAt); match != nil {
			p.mergeInto(match, &extracted, scheduledAt)
			if err := p.store.UpdateRound(ctx, match); err != nil {
				return failResult(err.Error())
			}
			log.Debug().
				Str("round_id", match.ID).
				Str("signal_id", signal.ID).
				Msg("updated round matched by scheduled-time window")
			return ProcessorResult{Success: true, Action: ActionUpdated, Round: match, ProviderLogID: res.LogID}
		}
	}

	if tentative := firstUnscheduledPending(rounds); tentative != nil {
		p.mergeInto(tentative, &extracted, scheduledAt)
		if err := p.store.UpdateRound(ctx, tentative); err != nil {
			return failResult(err.Error())
		}
		log.Debug().
			Str("round_id", tentative.ID).
			Str("signal_id", signal.ID).
			Msg("confirmed previously unscheduled round")
		return ProcessorResult{Success: true, Action: ActionUpdated, Round: tentative, ProviderLogID: res.LogID}
	}

	round := &models.InterviewRound{
		ApplicationID:      *signal.ApplicationID,
		Stage:              parseRoundStage(extracted.Stage),
		StageName:          strPtr(extracted.StageName),
		ScheduledAt:        scheduledAt,
		DurationMinutes:    intPtr(extracted.DurationMinutes),
		InterviewerName:    strPtr(extracted.InterviewerName),
		InterviewerRole:    strPtr(extracted.InterviewerRole),
		VideoLink:          strPtr(extracted.VideoLink),
		ConfirmationSource: strPtr(extracted.ConfirmationSource),
		Result:             models.RoundPending,
		Position:           maxPosition(rounds) + 1,
		Notes:              strPtr(buildLogisticsNotes(&extracted)),
		SourceSignalID:     &signal.ID,
	}
	if err := p.store.CreateRound(ctx, round); err != nil {
		return failResult(err.Error())
	}
	log.Debug().
		Str("round_id", round.ID).
		Str("signal_id", signal.ID).
		Int("position", round.Position).
		Msg("created interview round")
	return ProcessorResult{Success: true, Action: ActionCreated, Round: round, ProviderLogID: res.LogID}
}

func (p *RoundProcessor) findByWindow(rounds []*models.InterviewRound, at time.Time) *models.InterviewRound {
	for _, r := range rounds {
		if r.ScheduledAt == nil {
			continue
		}
		diff := r.ScheduledAt.Sub(at)
		if diff < 0 {
			diff = -diff
		}
		if diff <= roundMatchWindow {
			return r
		}
	}
	return nil
}

func firstUnscheduledPending(rounds []*models.InterviewRound) *models.InterviewRound {
	for _, r := range rounds {
		if r.Pending() && r.ScheduledAt == nil {
			return r
		}
	}
	return nil
}

// mergeInto updates a matched round with freshly extracted details. Blank
// fields are filled in; the join link and confirmation source are always
// overwritten since the newest email wins on logistics.
func (p *RoundProcessor) mergeInto(round *models.InterviewRound, extracted *RoundExtraction, scheduledAt *time.Time) {
	if round.ScheduledAt == nil && scheduledAt != nil {
		round.ScheduledAt = scheduledAt
	}
	if round.InterviewerName == nil && extracted.InterviewerName != "" {
		round.InterviewerName = &extracted.InterviewerName
	}
	if round.InterviewerRole == nil && extracted.InterviewerRole != "" {
		round.InterviewerRole = &extracted.InterviewerRole
	}
	if round.DurationMinutes == nil && extracted.DurationMinutes > 0 {
		round.DurationMinutes = &extracted.DurationMinutes
	}
	if round.StageName == nil && extracted.StageName != "" {
		round.StageName = &extracted.StageName
	}
	if extracted.VideoLink != "" {
		round.VideoLink = &extracted.VideoLink
	}
	if extracted.ConfirmationSource != "" {
		round.ConfirmationSource = &extracted.ConfirmationSource
	}
}

// buildLogisticsNotes assembles a human-readable notes block from whatever
// logistics details the email carried.
func buildLogisticsNotes(e *RoundExtraction) string {
	var lines []string
	if e.Location != "" {
		lines = append(lines, "Location: "+e.Location)
	}
	if e.Phone != "" {
		lines = append(lines, "Phone: "+e.Phone)
	}
	if e.MeetingID != "" {
		lines = append(lines, "Meeting ID: "+e.MeetingID)
	}
	if e.Passcode != "" {
		lines = append(lines, "Passcode: "+e.Passcode)
	}
	return strings.Join(lines, "\n")
}
