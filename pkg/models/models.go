package models

import (
	"time"
)

// Classification is the closed set of email signal categories produced by the
// upstream classifier. The planner matches over this set exhaustively, so a
// new classification is a compile-time change, not a runtime string lookup.
type Classification string

const (
	ClassScheduling              Classification = "scheduling"
	ClassInterviewInvite         Classification = "interview_invite"
	ClassInterviewReminder       Classification = "interview_reminder"
	ClassRoundFeedback           Classification = "round_feedback"
	ClassRejection               Classification = "rejection"
	ClassOffer                   Classification = "offer"
	ClassWithdrawal              Classification = "withdrawal"
	ClassGhosted                 Classification = "ghosted"
	ClassOnHold                  Classification = "on_hold"
	ClassApplicationConfirmation Classification = "application_confirmation"
	ClassOther                   Classification = "other"
)

// Signal is the read-model of an inbound email after ingestion and the
// generic first-pass extraction. The pipeline treats it as read-only except
// for the extracted-data map, which the first pass populates.
type Signal struct {
	ID             string            `json:"id" db:"id"`
	UserID         string            `json:"user_id" db:"user_id"`
	Classification Classification    `json:"classification" db:"classification"`
	ApplicationID  *string           `json:"application_id,omitempty" db:"application_id"`
	Subject        string            `json:"subject" db:"subject"`
	Body           string            `json:"body" db:"body"`
	Sender         string            `json:"sender" db:"sender"`
	ThreadID       string            `json:"thread_id" db:"thread_id"`
	ExtractedData  map[string]string `json:"extracted_data,omitempty" db:"extracted_data"`
	ReceivedAt     time.Time         `json:"received_at" db:"received_at"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
}

// Matched reports whether the signal has been linked to an application.
// Unmatched signals cannot drive state.
func (s *Signal) Matched() bool {
	return s != nil && s.ApplicationID != nil && *s.ApplicationID != ""
}

// ApplicationStatus is the lifecycle dimension of an application.
type ApplicationStatus string

const (
	StatusActive    ApplicationStatus = "active"
	StatusRejected  ApplicationStatus = "rejected"
	StatusAccepted  ApplicationStatus = "accepted"
	StatusArchived  ApplicationStatus = "archived"
	StatusOnHold    ApplicationStatus = "on_hold"
	StatusWithdrawn ApplicationStatus = "withdrawn"
)

// PipelineStage is the pipeline dimension of an application.
type PipelineStage string

const (
	StageApplied      PipelineStage = "applied"
	StageScreening    PipelineStage = "screening"
	StageInterviewing PipelineStage = "interviewing"
	StageOffer        PipelineStage = "offer"
	StageClosed       PipelineStage = "closed"
)

// InterviewApplication tracks one candidate application. Status and
// PipelineStage are only ever mutated through the statemachine package's
// named events, never by direct assignment from business code.
type InterviewApplication struct {
	ID            string            `json:"id" db:"id"`
	UserID        string            `json:"user_id" db:"user_id"`
	CompanyID     string            `json:"company_id" db:"company_id"`
	JobRoleID     string            `json:"job_role_id" db:"job_role_id"`
	Status        ApplicationStatus `json:"status" db:"status"`
	PipelineStage PipelineStage     `json:"pipeline_stage" db:"pipeline_stage"`
	AppliedAt     time.Time         `json:"applied_at" db:"applied_at"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
}

// RoundStage categorizes an interview round.
type RoundStage string

const (
	RoundStageScreening     RoundStage = "screening"
	RoundStageTechnical     RoundStage = "technical"
	RoundStageHiringManager RoundStage = "hiring_manager"
	RoundStageCultureFit    RoundStage = "culture_fit"
	RoundStageOther         RoundStage = "other"
)

// RoundResult is the outcome of an interview round.
type RoundResult string

const (
	RoundPending    RoundResult = "pending"
	RoundPassed     RoundResult = "passed"
	RoundFailed     RoundResult = "failed"
	RoundWaitlisted RoundResult = "waitlisted"
)

// InterviewRound is one scheduled (or inferred) interview in an application.
// SourceSignalID is the idempotency key: at most one round references a given
// signal as its creator, so reprocessing the same email never duplicates it.
type InterviewRound struct {
	ID                 string      `json:"id" db:"id"`
	ApplicationID      string      `json:"application_id" db:"application_id"`
	Stage              RoundStage  `json:"stage" db:"stage"`
	StageName          *string     `json:"stage_name,omitempty" db:"stage_name"`
	ScheduledAt        *time.Time  `json:"scheduled_at,omitempty" db:"scheduled_at"`
	DurationMinutes    *int        `json:"duration_minutes,omitempty" db:"duration_minutes"`
	InterviewerName    *string     `json:"interviewer_name,omitempty" db:"interviewer_name"`
	InterviewerRole    *string     `json:"interviewer_role,omitempty" db:"interviewer_role"`
	VideoLink          *string     `json:"video_link,omitempty" db:"video_link"`
	ConfirmationSource *string     `json:"confirmation_source,omitempty" db:"confirmation_source"`
	Result             RoundResult `json:"result" db:"result"`
	CompletedAt        *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	Position           int         `json:"position" db:"position"`
	Notes              *string     `json:"notes,omitempty" db:"notes"`
	SourceSignalID     *string     `json:"source_signal_id,omitempty" db:"source_signal_id"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at" db:"updated_at"`
}

// Pending reports whether the round is still awaiting a result.
func (r *InterviewRound) Pending() bool {
	return r != nil && r.Result == RoundPending
}

// InterviewFeedback holds at most one feedback record per round.
type InterviewFeedback struct {
	ID             string    `json:"id" db:"id"`
	RoundID        string    `json:"round_id" db:"round_id"`
	Strengths      *string   `json:"strengths,omitempty" db:"strengths"`
	Improvements   *string   `json:"improvements,omitempty" db:"improvements"`
	AISummary      *string   `json:"ai_summary,omitempty" db:"ai_summary"`
	NextAction     *string   `json:"next_action,omitempty" db:"next_action"`
	SourceSignalID *string   `json:"source_signal_id,omitempty" db:"source_signal_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// CompanyFeedbackType classifies a company-level feedback record.
type CompanyFeedbackType string

const (
	FeedbackRejection CompanyFeedbackType = "rejection"
	FeedbackOffer     CompanyFeedbackType = "offer"
	FeedbackGeneral   CompanyFeedbackType = "general"
)

// CompanyFeedback captures feedback the company gave about the application.
// Rejection and offer types are deduplicated per application; general notes
// may co-exist with them.
type CompanyFeedback struct {
	ID              string              `json:"id" db:"id"`
	ApplicationID   string              `json:"application_id" db:"application_id"`
	FeedbackType    CompanyFeedbackType `json:"feedback_type" db:"feedback_type"`
	FeedbackText    *string             `json:"feedback_text,omitempty" db:"feedback_text"`
	RejectionReason *string             `json:"rejection_reason,omitempty" db:"rejection_reason"`
	NextSteps       *string             `json:"next_steps,omitempty" db:"next_steps"`
	ReceivedAt      time.Time           `json:"received_at" db:"received_at"`
	SourceSignalID  *string             `json:"source_signal_id,omitempty" db:"source_signal_id"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
}

// Company is a hiring company, deduplicated by normalized name.
type Company struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	NormalizedName string    `json:"normalized_name" db:"normalized_name"`
	Website        *string   `json:"website,omitempty" db:"website"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// JobRole is a role at a company a user applies to.
type JobRole struct {
	ID        string    `json:"id" db:"id"`
	CompanyID string    `json:"company_id" db:"company_id"`
	Title     string    `json:"title" db:"title"`
	Location  *string   `json:"location,omitempty" db:"location"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// User is the owner of signals and applications. Authentication is handled
// by an external layer; only the identity is needed here.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Outcomes recorded per extraction attempt.
const (
	ExtractionOutcomeSuccess       = "success"
	ExtractionOutcomeError         = "error"
	ExtractionOutcomeRateLimited   = "rate_limited"
	ExtractionOutcomeMalformed     = "malformed"
	ExtractionOutcomeLowConfidence = "low_confidence"
)

// ExtractionLog is one audited provider attempt (success, rejection, or
// error) made by the extraction chain.
type ExtractionLog struct {
	ID            string    `json:"id" db:"id"`
	OperationType string    `json:"operation_type" db:"operation_type"`
	SignalID      string    `json:"signal_id" db:"signal_id"`
	Provider      string    `json:"provider" db:"provider"`
	Model         string    `json:"model" db:"model"`
	Confidence    *float64  `json:"confidence,omitempty" db:"confidence"`
	LatencyMS     int64     `json:"latency_ms" db:"latency_ms"`
	PromptTokens  int       `json:"prompt_tokens" db:"prompt_tokens"`
	OutputTokens  int       `json:"output_tokens" db:"output_tokens"`
	Fields        []string  `json:"fields,omitempty" db:"fields"`
	Outcome       string    `json:"outcome" db:"outcome"`
	Error         *string   `json:"error,omitempty" db:"error"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
