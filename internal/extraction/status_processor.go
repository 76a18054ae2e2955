package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jobsignal/internal/notify"
	"github.com/jobsignal/internal/statemachine"
	"github.com/jobsignal/internal/store"
	"github.com/jobsignal/pkg/models"
)

// StatusProcessor reacts to rejection, offer, withdrawal, ghosted, and
// on-hold emails: it drives the application state machines and records a
// company-feedback entry describing what the company said.
type StatusProcessor struct {
	store     store.Store
	chain     *ChainRunner
	prompts   *PromptBuilder
	reporter  notify.Reporter
	providers []string
	threshold float64
}

func NewStatusProcessor(s store.Store, chain *ChainRunner, reporter notify.Reporter, providers []string, threshold float64) *StatusProcessor {
	return &StatusProcessor{
		store:     s,
		chain:     chain,
		prompts:   NewPromptBuilder(),
		reporter:  reporter,
		providers: providers,
		threshold: threshold,
	}
}

func (p *StatusProcessor) handles(c models.Classification) bool {
	switch c {
	case models.ClassRejection, models.ClassOffer, models.ClassWithdrawal, models.ClassGhosted, models.ClassOnHold:
		return true
	}
	return false
}

func (p *StatusProcessor) Process(ctx context.Context, signal *models.Signal) ProcessorResult {
	if !signal.Matched() {
		return skipResult(ReasonUnmatched)
	}
	if !p.handles(signal.Classification) {
		return skipResult(ReasonWrongClass)
	}
	if !hasContent(signal) {
		return skipResult(ReasonNoContent)
	}

	existing, err := p.store.GetCompanyFeedbackBySourceSignal(ctx, signal.ID)
	if err != nil && err != store.ErrNotFound {
		return failResult(err.Error())
	}
	if existing != nil {
		return ProcessorResult{Success: true, Action: ActionMatchedExisting, CompanyFeedback: existing}
	}

	res := p.chain.Run(ctx, ChainRequest{
		OperationType: OpApplicationStatus,
		SignalID:      signal.ID,
		Providers:     p.providers,
		Prompt:        p.prompts.BuildStatusPrompt(signal),
		Accept:        MinConfidence(p.threshold),
	})
	if !res.Success {
		return failResult(res.Err)
	}

	var extracted StatusExtraction
	if err := decodeInto(res.Data, &extracted); err != nil {
		return failResult(fmt.Sprintf("decode status extraction: %v", err))
	}

	app, err := p.store.GetApplication(ctx, *signal.ApplicationID)
	if err != nil {
		return failResult(err.Error())
	}

	switch extracted.StatusChangeType {
	case "rejection":
		return p.applyRejection(ctx, signal, app, &extracted, res.LogID)
	case "offer":
		return p.applyOffer(ctx, signal, app, &extracted, res.LogID)
	case "withdrawal":
		return p.applyWithdrawal(ctx, signal, app, &extracted, res.LogID)
	case "ghosted", "on_hold":
		return p.applyNote(ctx, signal, app, &extracted, res.LogID)
	default:
		return ProcessorResult{Skipped: true, SkipReason: ReasonNoStatusChange, ProviderLogID: res.LogID}
	}
}

func (p *StatusProcessor) applyRejection(ctx context.Context, signal *models.Signal, app *models.InterviewApplication, extracted *StatusExtraction, logID string) ProcessorResult {
	fired := statemachine.FireStatus(app, statemachine.EventReject)
	fired = statemachine.FireStage(app, statemachine.EventMoveToClosed) || fired
	if fired {
		if err := p.store.UpdateApplication(ctx, app); err != nil {
			return failResult(err.Error())
		}
		log.Info().
			Str("application_id", app.ID).
			Str("signal_id", signal.ID).
			Msg("application rejected")
	}

	reason := rejectionReason(extracted)
	var nextSteps *string
	if extracted.DoorOpen {
		nextSteps = strPtr("Company indicated the door is open; consider keeping in touch.")
	}
	return p.createFeedback(ctx, signal, app, models.FeedbackRejection, &models.CompanyFeedback{
		ApplicationID:   app.ID,
		FeedbackType:    models.FeedbackRejection,
		FeedbackText:    strPtr(extracted.FeedbackText),
		RejectionReason: strPtr(reason),
		NextSteps:       nextSteps,
		SourceSignalID:  &signal.ID,
	}, logID)
}

func (p *StatusProcessor) applyOffer(ctx context.Context, signal *models.Signal, app *models.InterviewApplication, extracted *StatusExtraction, logID string) ProcessorResult {
	if statemachine.FireStage(app, statemachine.EventMoveToOffer) {
		if err := p.store.UpdateApplication(ctx, app); err != nil {
			return failResult(err.Error())
		}
		log.Info().
			Str("application_id", app.ID).
			Str("signal_id", signal.ID).
			Msg("application moved to offer")
	}

	return p.createFeedback(ctx, signal, app, models.FeedbackOffer, &models.CompanyFeedback{
		ApplicationID:  app.ID,
		FeedbackType:   models.FeedbackOffer,
		FeedbackText:   strPtr(offerText(extracted)),
		NextSteps:      strPtr(offerNextSteps(extracted)),
		SourceSignalID: &signal.ID,
	}, logID)
}

func (p *StatusProcessor) applyWithdrawal(ctx context.Context, signal *models.Signal, app *models.InterviewApplication, extracted *StatusExtraction, logID string) ProcessorResult {
	if statemachine.FireStatus(app, statemachine.EventArchive) {
		if err := p.store.UpdateApplication(ctx, app); err != nil {
			return failResult(err.Error())
		}
		log.Info().
			Str("application_id", app.ID).
			Str("signal_id", signal.ID).
			Msg("application archived after withdrawal")
	}
	return p.applyNote(ctx, signal, app, extracted, logID)
}

// applyNote records a general feedback note without touching either state
// machine. Used for ghosted, on-hold, and the withdrawal trail.
func (p *StatusProcessor) applyNote(ctx context.Context, signal *models.Signal, app *models.InterviewApplication, extracted *StatusExtraction, logID string) ProcessorResult {
	text := extracted.FeedbackText
	if text == "" {
		text = "Status update: " + extracted.StatusChangeType
	}
	return p.createFeedback(ctx, signal, app, models.FeedbackGeneral, &models.CompanyFeedback{
		ApplicationID:  app.ID,
		FeedbackType:   models.FeedbackGeneral,
		FeedbackText:   strPtr(text),
		NextSteps:      strPtr(extracted.NextSteps),
		SourceSignalID: &signal.ID,
	}, logID)
}

// createFeedback creates the record unless a same-typed one already exists
// for the application. General notes are exempt from the dedupe.
func (p *StatusProcessor) createFeedback(ctx context.Context, signal *models.Signal, app *models.InterviewApplication, ft models.CompanyFeedbackType, feedback *models.CompanyFeedback, logID string) ProcessorResult {
	if ft != models.FeedbackGeneral {
		prior, err := p.store.GetCompanyFeedbackByType(ctx, app.ID, ft)
		if err != nil && err != store.ErrNotFound {
			return failResult(err.Error())
		}
		if prior != nil {
			return ProcessorResult{
				Skipped:         true,
				SkipReason:      ReasonFeedbackExists,
				CompanyFeedback: prior,
				ProviderLogID:   logID,
			}
		}
	}

	feedback.ReceivedAt = signal.ReceivedAt
	if err := p.store.CreateCompanyFeedback(ctx, feedback); err != nil {
		p.reporter.ReportError(err, map[string]string{
			"signal_id":      signal.ID,
			"application_id": app.ID,
			"operation":      OpApplicationStatus,
		})
		return failResult(err.Error())
	}
	return ProcessorResult{
		Success:         true,
		Action:          ActionCreated,
		CompanyFeedback: feedback,
		ProviderLogID:   logID,
	}
}

func rejectionReason(extracted *StatusExtraction) string {
	var parts []string
	if extracted.RejectionReason != "" {
		parts = append(parts, extracted.RejectionReason)
	}
	if extracted.StageRejectedAt != "" {
		parts = append(parts, "ended at "+extracted.StageRejectedAt)
	}
	if extracted.IsGeneric {
		parts = append(parts, "generic rejection")
	}
	return strings.Join(parts, "; ")
}

func offerText(extracted *StatusExtraction) string {
	var parts []string
	if extracted.OfferRole != "" {
		parts = append(parts, "Offer for "+extracted.OfferRole)
	}
	if extracted.OfferDepartment != "" {
		parts = append(parts, "team: "+extracted.OfferDepartment)
	}
	if extracted.FeedbackText != "" {
		parts = append(parts, extracted.FeedbackText)
	}
	return strings.Join(parts, "; ")
}

func offerNextSteps(extracted *StatusExtraction) string {
	var parts []string
	if extracted.ResponseDeadline != "" {
		parts = append(parts, "respond by "+extracted.ResponseDeadline)
	}
	if extracted.StartDate != "" {
		parts = append(parts, "proposed start "+extracted.StartDate)
	}
	if extracted.NextSteps != "" {
		parts = append(parts, extracted.NextSteps)
	}
	return strings.Join(parts, "; ")
}
