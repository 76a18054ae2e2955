package extraction

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jobsignal/internal/store"
	"github.com/jobsignal/pkg/models"
)

// CompanyFeedbackProcessor is the one processor that never calls a provider:
// it lifts feedback text the generic first-pass extraction already put on the
// signal into a company-feedback record.
type CompanyFeedbackProcessor struct {
	store store.Store
}

func NewCompanyFeedbackProcessor(s store.Store) *CompanyFeedbackProcessor {
	return &CompanyFeedbackProcessor{store: s}
}

func (p *CompanyFeedbackProcessor) Process(ctx context.Context, signal *models.Signal) ProcessorResult {
	if !signal.Matched() {
		return skipResult(ReasonUnmatched)
	}

	text := strings.TrimSpace(signal.ExtractedData["feedback_text"])
	if text == "" {
		text = strings.TrimSpace(signal.ExtractedData["key_insights"])
	}
	if text == "" {
		return skipResult(ReasonNoFeedbackText)
	}

	existing, err := p.store.GetCompanyFeedbackBySourceSignal(ctx, signal.ID)
	if err != nil && err != store.ErrNotFound {
		return failResult(err.Error())
	}
	if existing != nil {
		return ProcessorResult{Success: true, Action: ActionMatchedExisting, CompanyFeedback: existing}
	}

	ft := feedbackTypeFor(signal.Classification)
	if ft != models.FeedbackGeneral {
		prior, err := p.store.GetCompanyFeedbackByType(ctx, *signal.ApplicationID, ft)
		if err != nil && err != store.ErrNotFound {
			return failResult(err.Error())
		}
		if prior != nil {
			return ProcessorResult{Skipped: true, SkipReason: ReasonFeedbackExists, CompanyFeedback: prior}
		}
	}

	feedback := &models.CompanyFeedback{
		ApplicationID:  *signal.ApplicationID,
		FeedbackType:   ft,
		FeedbackText:   &text,
		ReceivedAt:     signal.ReceivedAt,
		SourceSignalID: &signal.ID,
	}
	if err := p.store.CreateCompanyFeedback(ctx, feedback); err != nil {
		return failResult(err.Error())
	}
	log.Debug().
		Str("application_id", *signal.ApplicationID).
		Str("signal_id", signal.ID).
		Str("feedback_type", string(ft)).
		Msg("captured company feedback from extracted data")
	return ProcessorResult{Success: true, Action: ActionCreated, CompanyFeedback: feedback}
}

func feedbackTypeFor(c models.Classification) models.CompanyFeedbackType {
	switch c {
	case models.ClassRejection:
		return models.FeedbackRejection
	case models.ClassOffer:
		return models.FeedbackOffer
	default:
		return models.FeedbackGeneral
	}
}
