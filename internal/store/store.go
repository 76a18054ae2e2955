// Package store holds the typed record stores the pipeline reads and writes.
// Every record created from a signal carries its source-signal reference, and
// the query-by-source-signal methods here are what make reprocessing safe.
package store

import (
	"context"
	"errors"

	"github.com/jobsignal/pkg/models"
)

var ErrNotFound = errors.New("not found")

// Store is the persistence boundary of the pipeline. The in-memory
// implementation backs tests; the Postgres one backs production.
type Store interface {
	CreateSignal(ctx context.Context, s *models.Signal) error
	GetSignal(ctx context.Context, id string) (*models.Signal, error)
	LinkSignalToApplication(ctx context.Context, signalID, applicationID string) error

	CreateApplication(ctx context.Context, app *models.InterviewApplication) error
	GetApplication(ctx context.Context, id string) (*models.InterviewApplication, error)
	UpdateApplication(ctx context.Context, app *models.InterviewApplication) error

	CreateRound(ctx context.Context, r *models.InterviewRound) error
	UpdateRound(ctx context.Context, r *models.InterviewRound) error
	ListRounds(ctx context.Context, applicationID string) ([]*models.InterviewRound, error)
	GetRoundBySourceSignal(ctx context.Context, signalID string) (*models.InterviewRound, error)

	CreateInterviewFeedback(ctx context.Context, f *models.InterviewFeedback) error
	GetInterviewFeedbackByRound(ctx context.Context, roundID string) (*models.InterviewFeedback, error)
	GetInterviewFeedbackBySourceSignal(ctx context.Context, signalID string) (*models.InterviewFeedback, error)

	CreateCompanyFeedback(ctx context.Context, f *models.CompanyFeedback) error
	GetCompanyFeedbackBySourceSignal(ctx context.Context, signalID string) (*models.CompanyFeedback, error)
	GetCompanyFeedbackByType(ctx context.Context, applicationID string, ft models.CompanyFeedbackType) (*models.CompanyFeedback, error)

	CreateCompany(ctx context.Context, c *models.Company) error
	GetCompanyByNormalizedName(ctx context.Context, normalized string) (*models.Company, error)
	CreateJobRole(ctx context.Context, jr *models.JobRole) error
	GetJobRoleByTitle(ctx context.Context, companyID, title string) (*models.JobRole, error)

	CreateExtractionLog(ctx context.Context, l *models.ExtractionLog) error
}
