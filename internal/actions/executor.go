// Package actions is the user-triggered path: explicit, user-chosen actions
// on a signal, deliberately kept outside the automatic pipeline because they
// create new records the user must have asked for.
package actions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jobsignal/internal/store"
	"github.com/jobsignal/pkg/models"
)

// ActionStartApplication creates a new application from a signal's extracted
// company and job data. The only supported action today.
const ActionStartApplication = "start_application"

// Result is the outcome of an executed user action.
type Result struct {
	Success       bool   `json:"success"`
	ApplicationID string `json:"application_id,omitempty"`
	RedirectTo    string `json:"redirect_to,omitempty"`
	Err           string `json:"error,omitempty"`
}

// Executor dispatches explicit user actions by identifier.
type Executor struct {
	store store.Store
}

func NewExecutor(s store.Store) *Executor {
	return &Executor{store: s}
}

// Execute runs the named action. Params override the signal's extracted
// data; unknown action identifiers are an error, not a skip, since the user
// explicitly asked for something that does not exist.
func (e *Executor) Execute(ctx context.Context, signal *models.Signal, user *models.User, actionID string, params map[string]string) Result {
	switch actionID {
	case ActionStartApplication:
		return e.startApplication(ctx, signal, user, params)
	default:
		return Result{Err: fmt.Sprintf("unsupported action: %s", actionID)}
	}
}

func (e *Executor) startApplication(ctx context.Context, signal *models.Signal, user *models.User, params map[string]string) Result {
	companyName := pick(params, signal, "company_name")
	jobTitle := pick(params, signal, "job_title")
	if companyName == "" {
		return Result{Err: "no company name on signal or in params"}
	}
	if jobTitle == "" {
		jobTitle = "Unknown role"
	}

	company, err := e.resolveCompany(ctx, companyName)
	if err != nil {
		return Result{Err: err.Error()}
	}
	role, err := e.resolveJobRole(ctx, company.ID, jobTitle)
	if err != nil {
		return Result{Err: err.Error()}
	}

	app := &models.InterviewApplication{
		UserID:        user.ID,
		CompanyID:     company.ID,
		JobRoleID:     role.ID,
		Status:        models.StatusActive,
		PipelineStage: models.StageApplied,
		AppliedAt:     time.Now(),
	}
	if err := e.store.CreateApplication(ctx, app); err != nil {
		return Result{Err: err.Error()}
	}
	if err := e.store.LinkSignalToApplication(ctx, signal.ID, app.ID); err != nil {
		return Result{Err: err.Error()}
	}

	log.Info().
		Str("application_id", app.ID).
		Str("signal_id", signal.ID).
		Str("company", company.Name).
		Msg("started application from signal")
	return Result{
		Success:       true,
		ApplicationID: app.ID,
		RedirectTo:    "/applications/" + app.ID,
	}
}

func (e *Executor) resolveCompany(ctx context.Context, name string) (*models.Company, error) {
	normalized := NormalizeCompanyName(name)
	company, err := e.store.GetCompanyByNormalizedName(ctx, normalized)
	if err == nil {
		return company, nil
	}
	if err != store.ErrNotFound {
		return nil, err
	}
	company = &models.Company{Name: strings.TrimSpace(name), NormalizedName: normalized}
	if err := e.store.CreateCompany(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}

func (e *Executor) resolveJobRole(ctx context.Context, companyID, title string) (*models.JobRole, error) {
	title = strings.TrimSpace(title)
	role, err := e.store.GetJobRoleByTitle(ctx, companyID, title)
	if err == nil {
		return role, nil
	}
	if err != store.ErrNotFound {
		return nil, err
	}
	role = &models.JobRole{CompanyID: companyID, Title: title}
	if err := e.store.CreateJobRole(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

var legalSuffixes = []string{
	"inc", "inc.", "llc", "ltd", "ltd.", "limited", "corp", "corp.",
	"corporation", "co", "co.", "gmbh", "plc", "sas", "sarl", "bv", "ab",
}

// NormalizeCompanyName lowercases the name and strips trailing legal
// suffixes so "Acme Corp." and "acme" resolve to the same company.
func NormalizeCompanyName(name string) string {
	cleaned := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), ",", " ")
	fields := strings.Fields(cleaned)
	for len(fields) > 1 {
		last := fields[len(fields)-1]
		stripped := false
		for _, suffix := range legalSuffixes {
			if last == suffix {
				fields = fields[:len(fields)-1]
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	return strings.Join(fields, " ")
}

func pick(params map[string]string, signal *models.Signal, key string) string {
	if v := strings.TrimSpace(params[key]); v != "" {
		return v
	}
	return strings.TrimSpace(signal.ExtractedData[key])
}
