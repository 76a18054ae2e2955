package extraction

import (
	"strings"
	"time"

	"github.com/jobsignal/pkg/models"
)

// Operation type labels recorded in extraction logs.
const (
	OpInterviewRound    = "interview_round"
	OpRoundFeedback     = "round_feedback"
	OpApplicationStatus = "application_status"
)

// Skip reasons shared across processors.
const (
	ReasonUnmatched        = "signal not matched to an application"
	ReasonWrongClass       = "classification not handled by this processor"
	ReasonNoContent        = "no content to extract from"
	ReasonInsufficient     = "insufficient scheduling signal"
	ReasonNoStatusChange   = "no actionable status change"
	ReasonNoFeedbackText   = "no extracted feedback text"
	ReasonFeedbackExists   = "feedback already recorded for this application"
	ReasonRoundHasFeedback = "round already has feedback"
)

func hasContent(signal *models.Signal) bool {
	return strings.TrimSpace(signal.Subject) != "" || strings.TrimSpace(signal.Body) != ""
}

var scheduleLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseScheduledAt is forgiving about the exact timestamp shape providers
// return, but never guesses: unparseable input means no time.
func parseScheduledAt(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range scheduleLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func parseRoundStage(raw string) models.RoundStage {
	switch models.RoundStage(strings.ToLower(strings.TrimSpace(raw))) {
	case models.RoundStageScreening:
		return models.RoundStageScreening
	case models.RoundStageTechnical:
		return models.RoundStageTechnical
	case models.RoundStageHiringManager:
		return models.RoundStageHiringManager
	case models.RoundStageCultureFit:
		return models.RoundStageCultureFit
	default:
		return models.RoundStageOther
	}
}

// inferStageFromText maps free-form stage mentions onto round stages using
// keyword buckets.
func inferStageFromText(raw string) (models.RoundStage, bool) {
	text := strings.ToLower(raw)
	if text == "" {
		return "", false
	}
	switch {
	case containsAny(text, "screening", "screen", "phone", "intro"):
		return models.RoundStageScreening, true
	case containsAny(text, "technical", "coding", "system design", "system-design"):
		return models.RoundStageTechnical, true
	case containsAny(text, "manager", "lead"):
		return models.RoundStageHiringManager, true
	case containsAny(text, "culture", "behavioral", "behavioural", "values"):
		return models.RoundStageCultureFit, true
	}
	return "", false
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// nameMatches is a tolerant interviewer-name comparison: case-insensitive,
// and satisfied when every token of the shorter name appears in the longer
// one, so "Priya" matches "Priya Sharma" and vice versa.
func nameMatches(mentioned, stored string) bool {
	a := strings.Fields(strings.ToLower(strings.TrimSpace(mentioned)))
	b := strings.Fields(strings.ToLower(strings.TrimSpace(stored)))
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	shorter, longer := a, b
	if len(b) < len(a) {
		shorter, longer = b, a
	}
	for _, tok := range shorter {
		found := false
		for _, other := range longer {
			if tok == other {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func maxPosition(rounds []*models.InterviewRound) int {
	max := 0
	for _, r := range rounds {
		if r.Position > max {
			max = r.Position
		}
	}
	return max
}

// latestRound is the round at the highest ordinal position.
func latestRound(rounds []*models.InterviewRound) *models.InterviewRound {
	var latest *models.InterviewRound
	for _, r := range rounds {
		if latest == nil || r.Position > latest.Position {
			latest = r
		}
	}
	return latest
}

func pendingRounds(rounds []*models.InterviewRound) []*models.InterviewRound {
	var out []*models.InterviewRound
	for _, r := range rounds {
		if r.Pending() {
			out = append(out, r)
		}
	}
	return out
}

// mostRecentlyScheduled picks the pending round with the latest scheduled
// time; rounds without a scheduled time lose to any scheduled one.
func mostRecentlyScheduled(rounds []*models.InterviewRound) *models.InterviewRound {
	var best *models.InterviewRound
	for _, r := range rounds {
		if best == nil {
			best = r
			continue
		}
		switch {
		case r.ScheduledAt == nil:
		case best.ScheduledAt == nil:
			best = r
		case r.ScheduledAt.After(*best.ScheduledAt):
			best = r
		}
	}
	return best
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intPtr(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
