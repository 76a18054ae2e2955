package extraction

import (
	"encoding/json"

	"github.com/jobsignal/pkg/models"
)

// Action describes what a processor did to its record.
type Action string

const (
	ActionCreated         Action = "created"
	ActionUpdated         Action = "updated"
	ActionMatchedExisting Action = "matched_existing"
)

// ProcessorResult is the uniform result shape all four processors return.
// Exactly one of the three outcome kinds holds: Skipped (preconditions not
// met, with a reason), Err (an attempted operation failed), or Success.
type ProcessorResult struct {
	Success         bool                      `json:"success"`
	Skipped         bool                      `json:"skipped"`
	SkipReason      string                    `json:"skip_reason,omitempty"`
	Action          Action                    `json:"action,omitempty"`
	Round           *models.InterviewRound    `json:"round,omitempty"`
	Feedback        *models.InterviewFeedback `json:"feedback,omitempty"`
	CompanyFeedback *models.CompanyFeedback   `json:"company_feedback,omitempty"`
	Err             string                    `json:"error,omitempty"`
	ProviderLogID   string                    `json:"provider_log_id,omitempty"`
}

func skipResult(reason string) ProcessorResult {
	return ProcessorResult{Skipped: true, SkipReason: reason}
}

func failResult(err string) ProcessorResult {
	return ProcessorResult{Err: err}
}

// RoundExtraction is the typed result of the interview-round prompt.
type RoundExtraction struct {
	ScheduledAt        string   `json:"scheduled_at"`
	DurationMinutes    int      `json:"duration_minutes"`
	Stage              string   `json:"stage"`
	StageName          string   `json:"stage_name"`
	InterviewerName    string   `json:"interviewer_name"`
	InterviewerRole    string   `json:"interviewer_role"`
	VideoLink          string   `json:"video_link"`
	SchedulingLink     string   `json:"scheduling_link"`
	ConfirmationSource string   `json:"confirmation_source"`
	Location           string   `json:"location"`
	Phone              string   `json:"phone"`
	MeetingID          string   `json:"meeting_id"`
	Passcode           string   `json:"passcode"`
	Confidence         *float64 `json:"confidence"`
}

// FeedbackExtraction is the typed result of the round-feedback prompt.
type FeedbackExtraction struct {
	Result               string   `json:"result"`
	Sentiment            string   `json:"sentiment"`
	InterviewerMentioned string   `json:"interviewer_mentioned"`
	StageMentioned       string   `json:"stage_mentioned"`
	DateMentioned        string   `json:"date_mentioned"`
	Summary              string   `json:"summary"`
	Strengths            string   `json:"strengths"`
	Improvements         string   `json:"improvements"`
	HasDetailedFeedback  bool     `json:"has_detailed_feedback"`
	NextSteps            string   `json:"next_steps"`
	Confidence           *float64 `json:"confidence"`
}

// StatusExtraction is the typed result of the application-status prompt.
type StatusExtraction struct {
	StatusChangeType string   `json:"status_change_type"`
	RejectionReason  string   `json:"rejection_reason"`
	StageRejectedAt  string   `json:"stage_rejected_at"`
	IsGeneric        bool     `json:"is_generic"`
	DoorOpen         bool     `json:"door_open"`
	OfferRole        string   `json:"offer_role"`
	OfferDepartment  string   `json:"offer_department"`
	StartDate        string   `json:"start_date"`
	ResponseDeadline string   `json:"response_deadline"`
	NextSteps        string   `json:"next_steps"`
	FeedbackText     string   `json:"feedback_text"`
	Confidence       *float64 `json:"confidence"`
}

// decodeInto round-trips a parsed generic map into a typed extraction struct.
func decodeInto(parsed map[string]interface{}, target interface{}) error {
	raw, err := json.Marshal(parsed)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}
