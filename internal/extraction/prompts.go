package extraction

import (
	"fmt"
	"strings"

	"github.com/jobsignal/pkg/models"
)

// PromptBuilder assembles the extraction prompts. All prompts end with the
// same instruction block so providers return raw JSON the chain can parse.
type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

const jsonInstruction = `Respond with a single JSON object and nothing else.
Do not wrap the JSON in markdown fences or add commentary.
Include a "confidence" field between 0.0 and 1.0 reflecting how certain you
are of the extracted values overall.`

const roundPromptHeader = `You are extracting interview scheduling details from a job-application email.
Extract the following fields from the email below:

- scheduled_at: the confirmed interview time in RFC3339 format, or "" when no
  specific slot is confirmed. A link asking the candidate to pick a slot is
  NOT a confirmed time.
- duration_minutes: expected duration as an integer, 0 when unstated.
- stage: one of "screening", "technical", "hiring_manager", "culture_fit",
  "other".
- stage_name: the company's own name for the stage, when the email uses one.
- interviewer_name: full name of the interviewer, "" when unknown.
- interviewer_role: interviewer's job title, "" when unknown.
- video_link: a direct join link (Zoom, Meet, Teams), "" when absent.
- scheduling_link: a booking link (Calendly and similar), "" when absent.
- confirmation_source: the tool the confirmation came from, e.g. "calendly",
  "greenhouse", "email", "" when unclear.
- location: physical address for onsite interviews, "" otherwise.
- phone: dial-in number, "" when absent.
- meeting_id: meeting identifier, "" when absent.
- passcode: meeting passcode, "" when absent.`

const feedbackPromptHeader = `You are extracting interview feedback from a job-application email.
Extract the following fields from the email below:

- result: one of "passed", "failed", "waitlisted", "unclear". Only use a
  terminal value when the email states the outcome explicitly.
- sentiment: one of "positive", "negative", "neutral", "mixed".
- interviewer_mentioned: name of the interviewer the feedback refers to,
  "" when none is named.
- stage_mentioned: the interview stage the feedback refers to, in the
  email's own words, "" when none is named.
- date_mentioned: the interview date the feedback refers to, "" when absent.
- summary: one or two sentences summarizing the feedback.
- strengths: what went well, "" when not covered.
- improvements: what to improve, "" when not covered.
- has_detailed_feedback: true when the email contains substantive feedback
  beyond a bare outcome.
- next_steps: any next step the email announces, "" when absent.`

const statusPromptHeader = `You are extracting an application status change from a job-application email.
Extract the following fields from the email below:

- status_change_type: one of "rejection", "offer", "withdrawal", "ghosted",
  "on_hold", "no_change".
- rejection_reason: the stated reason for a rejection, "" otherwise.
- stage_rejected_at: the stage the process ended at, "" when unclear.
- is_generic: true for boilerplate rejections with no specifics.
- door_open: true when the email invites the candidate to stay in touch or
  apply again.
- offer_role: the offered role title, "" unless this is an offer.
- offer_department: the offering team or department, "" when unstated.
- start_date: proposed start date, "" when unstated.
- response_deadline: deadline to respond to an offer, "" when unstated.
- next_steps: any next step the email announces, "" when absent.
- feedback_text: any substantive feedback about the candidate's performance,
  "" when absent.`

func appendEmail(b *strings.Builder, signal *models.Signal) {
	b.WriteString("\n\nEmail:\n")
	fmt.Fprintf(b, "From: %s\n", signal.Sender)
	fmt.Fprintf(b, "Subject: %s\n\n", signal.Subject)
	b.WriteString(signal.Body)
}

func (pb *PromptBuilder) BuildRoundPrompt(signal *models.Signal) string {
	var b strings.Builder
	b.WriteString(roundPromptHeader)
	b.WriteString("\n\n")
	b.WriteString(jsonInstruction)
	appendEmail(&b, signal)
	return b.String()
}

func (pb *PromptBuilder) BuildFeedbackPrompt(signal *models.Signal) string {
	var b strings.Builder
	b.WriteString(feedbackPromptHeader)
	b.WriteString("\n\n")
	b.WriteString(jsonInstruction)
	appendEmail(&b, signal)
	return b.String()
}

func (pb *PromptBuilder) BuildStatusPrompt(signal *models.Signal) string {
	var b strings.Builder
	b.WriteString(statusPromptHeader)
	b.WriteString("\n\n")
	b.WriteString(jsonInstruction)
	appendEmail(&b, signal)
	return b.String()
}
