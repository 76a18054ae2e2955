package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jobsignal/pkg/models"
)

// PostgresStore implements Store on database/sql. Schema lives in
// schema.sql at the repository root.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) CreateSignal(ctx context.Context, sig *models.Signal) error {
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	var extracted []byte
	var err error
	if sig.ExtractedData != nil {
		extracted, err = json.Marshal(sig.ExtractedData)
		if err != nil {
			return err
		}
	}
	return s.db.QueryRowContext(ctx, `
        INSERT INTO signals (id, user_id, classification, application_id, subject, body, sender, thread_id, extracted_data, received_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING created_at
    `, sig.ID, sig.UserID, string(sig.Classification), sig.ApplicationID, sig.Subject, sig.Body, sig.Sender, sig.ThreadID, extracted, sig.ReceivedAt).Scan(&sig.CreatedAt)
}

func (s *PostgresStore) GetSignal(ctx context.Context, id string) (*models.Signal, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, user_id, classification, application_id, subject, body, sender, thread_id, extracted_data, received_at, created_at
        FROM signals WHERE id=$1
    `, id)

	var sig models.Signal
	var classification string
	var appID sql.NullString
	var extracted []byte
	if err := row.Scan(&sig.ID, &sig.UserID, &classification, &appID, &sig.Subject, &sig.Body, &sig.Sender, &sig.ThreadID, &extracted, &sig.ReceivedAt, &sig.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	sig.Classification = models.Classification(classification)
	if appID.Valid {
		sig.ApplicationID = &appID.String
	}
	if len(extracted) > 0 {
		if err := json.Unmarshal(extracted, &sig.ExtractedData); err != nil {
			return nil, err
		}
	}
	return &sig, nil
}

func (s *PostgresStore) LinkSignalToApplication(ctx context.Context, signalID, applicationID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE signals SET application_id=$1 WHERE id=$2`, applicationID, signalID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateApplication(ctx context.Context, app *models.InterviewApplication) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	return s.db.QueryRowContext(ctx, `
        INSERT INTO interview_applications (id, user_id, company_id, job_role_id, status, pipeline_stage, applied_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at, updated_at
    `, app.ID, app.UserID, app.CompanyID, app.JobRoleID, string(app.Status), string(app.PipelineStage), app.AppliedAt).Scan(&app.CreatedAt, &app.UpdatedAt)
}

func (s *PostgresStore) GetApplication(ctx context.Context, id string) (*models.InterviewApplication, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, user_id, company_id, job_role_id, status, pipeline_stage, applied_at, created_at, updated_at
        FROM interview_applications WHERE id=$1
    `, id)

	var app models.InterviewApplication
	var status, stage string
	if err := row.Scan(&app.ID, &app.UserID, &app.CompanyID, &app.JobRoleID, &status, &stage, &app.AppliedAt, &app.CreatedAt, &app.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	app.Status = models.ApplicationStatus(status)
	app.PipelineStage = models.PipelineStage(stage)
	return &app, nil
}

func (s *PostgresStore) UpdateApplication(ctx context.Context, app *models.InterviewApplication) error {
	res := s.db.QueryRowContext(ctx, `
        UPDATE interview_applications
        SET status=$1, pipeline_stage=$2, updated_at=now()
        WHERE id=$3
        RETURNING updated_at
    `, string(app.Status), string(app.PipelineStage), app.ID)
	if err := res.Scan(&app.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

const roundColumns = `id, application_id, stage, stage_name, scheduled_at, duration_minutes, interviewer_name, interviewer_role, video_link, confirmation_source, result, completed_at, position, notes, source_signal_id, created_at, updated_at`

func (s *PostgresStore) CreateRound(ctx context.Context, r *models.InterviewRound) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return s.db.QueryRowContext(ctx, `
        INSERT INTO interview_rounds (id, application_id, stage, stage_name, scheduled_at, duration_minutes, interviewer_name, interviewer_role, video_link, confirmation_source, result, completed_at, position, notes, source_signal_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING created_at, updated_at
    `, r.ID, r.ApplicationID, string(r.Stage), r.StageName, r.ScheduledAt, r.DurationMinutes, r.InterviewerName, r.InterviewerRole, r.VideoLink, r.ConfirmationSource, string(r.Result), r.CompletedAt, r.Position, r.Notes, r.SourceSignalID).Scan(&r.CreatedAt, &r.UpdatedAt)
}

func (s *PostgresStore) UpdateRound(ctx context.Context, r *models.InterviewRound) error {
	res := s.db.QueryRowContext(ctx, `
        UPDATE interview_rounds
        SET stage=$1, stage_name=$2, scheduled_at=$3, duration_minutes=$4, interviewer_name=$5, interviewer_role=$6,
            video_link=$7, confirmation_source=$8, result=$9, completed_at=$10, position=$11, notes=$12, updated_at=now()
        WHERE id=$13
        RETURNING updated_at
    `, string(r.Stage), r.StageName, r.ScheduledAt, r.DurationMinutes, r.InterviewerName, r.InterviewerRole,
		r.VideoLink, r.ConfirmationSource, string(r.Result), r.CompletedAt, r.Position, r.Notes, r.ID)
	if err := res.Scan(&r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *PostgresStore) ListRounds(ctx context.Context, applicationID string) ([]*models.InterviewRound, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+roundColumns+` FROM interview_rounds WHERE application_id=$1 ORDER BY position ASC
    `, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*models.InterviewRound, 0)
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetRoundBySourceSignal(ctx context.Context, signalID string) (*models.InterviewRound, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT `+roundColumns+` FROM interview_rounds WHERE source_signal_id=$1 LIMIT 1
    `, signalID)
	return scanRound(row)
}

func scanRound(scanner interface{ Scan(dest ...any) error }) (*models.InterviewRound, error) {
	var r models.InterviewRound
	var stage, result string
	if err := scanner.Scan(&r.ID, &r.ApplicationID, &stage, &r.StageName, &r.ScheduledAt, &r.DurationMinutes,
		&r.InterviewerName, &r.InterviewerRole, &r.VideoLink, &r.ConfirmationSource, &result, &r.CompletedAt,
		&r.Position, &r.Notes, &r.SourceSignalID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.Stage = models.RoundStage(stage)
	r.Result = models.RoundResult(result)
	return &r, nil
}

func (s *PostgresStore) CreateInterviewFeedback(ctx context.Context, f *models.InterviewFeedback) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return s.db.QueryRowContext(ctx, `
        INSERT INTO interview_feedback (id, round_id, strengths, improvements, ai_summary, next_action, source_signal_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at
    `, f.ID, f.RoundID, f.Strengths, f.Improvements, f.AISummary, f.NextAction, f.SourceSignalID).Scan(&f.CreatedAt)
}

func (s *PostgresStore) GetInterviewFeedbackByRound(ctx context.Context, roundID string) (*models.InterviewFeedback, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, round_id, strengths, improvements, ai_summary, next_action, source_signal_id, created_at
        FROM interview_feedback WHERE round_id=$1 LIMIT 1
    `, roundID)
	return scanInterviewFeedback(row)
}

func (s *PostgresStore) GetInterviewFeedbackBySourceSignal(ctx context.Context, signalID string) (*models.InterviewFeedback, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, round_id, strengths, improvements, ai_summary, next_action, source_signal_id, created_at
        FROM interview_feedback WHERE source_signal_id=$1 LIMIT 1
    `, signalID)
	return scanInterviewFeedback(row)
}

func scanInterviewFeedback(scanner interface{ Scan(dest ...any) error }) (*models.InterviewFeedback, error) {
	var f models.InterviewFeedback
	if err := scanner.Scan(&f.ID, &f.RoundID, &f.Strengths, &f.Improvements, &f.AISummary, &f.NextAction, &f.SourceSignalID, &f.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (s *PostgresStore) CreateCompanyFeedback(ctx context.Context, f *models.CompanyFeedback) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return s.db.QueryRowContext(ctx, `
        INSERT INTO company_feedback (id, application_id, feedback_type, feedback_text, rejection_reason, next_steps, received_at, source_signal_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at
    `, f.ID, f.ApplicationID, string(f.FeedbackType), f.FeedbackText, f.RejectionReason, f.NextSteps, f.ReceivedAt, f.SourceSignalID).Scan(&f.CreatedAt)
}

func (s *PostgresStore) GetCompanyFeedbackBySourceSignal(ctx context.Context, signalID string) (*models.CompanyFeedback, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, application_id, feedback_type, feedback_text, rejection_reason, next_steps, received_at, source_signal_id, created_at
        FROM company_feedback WHERE source_signal_id=$1 LIMIT 1
    `, signalID)
	return scanCompanyFeedback(row)
}

func (s *PostgresStore) GetCompanyFeedbackByType(ctx context.Context, applicationID string, ft models.CompanyFeedbackType) (*models.CompanyFeedback, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, application_id, feedback_type, feedback_text, rejection_reason, next_steps, received_at, source_signal_id, created_at
        FROM company_feedback WHERE application_id=$1 AND feedback_type=$2 LIMIT 1
    `, applicationID, string(ft))
	return scanCompanyFeedback(row)
}

func scanCompanyFeedback(scanner interface{ Scan(dest ...any) error }) (*models.CompanyFeedback, error) {
	var f models.CompanyFeedback
	var ft string
	if err := scanner.Scan(&f.ID, &f.ApplicationID, &ft, &f.FeedbackText, &f.RejectionReason, &f.NextSteps, &f.ReceivedAt, &f.SourceSignalID, &f.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	f.FeedbackType = models.CompanyFeedbackType(ft)
	return &f, nil
}

func (s *PostgresStore) CreateCompany(ctx context.Context, c *models.Company) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return s.db.QueryRowContext(ctx, `
        INSERT INTO companies (id, name, normalized_name, website)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at
    `, c.ID, c.Name, c.NormalizedName, c.Website).Scan(&c.CreatedAt)
}

func (s *PostgresStore) GetCompanyByNormalizedName(ctx context.Context, normalized string) (*models.Company, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, name, normalized_name, website, created_at FROM companies WHERE normalized_name=$1 LIMIT 1
    `, normalized)
	var c models.Company
	if err := row.Scan(&c.ID, &c.Name, &c.NormalizedName, &c.Website, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) CreateJobRole(ctx context.Context, jr *models.JobRole) error {
	if jr.ID == "" {
		jr.ID = uuid.NewString()
	}
	return s.db.QueryRowContext(ctx, `
        INSERT INTO job_roles (id, company_id, title, location)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at
    `, jr.ID, jr.CompanyID, jr.Title, jr.Location).Scan(&jr.CreatedAt)
}

func (s *PostgresStore) GetJobRoleByTitle(ctx context.Context, companyID, title string) (*models.JobRole, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, company_id, title, location, created_at FROM job_roles WHERE company_id=$1 AND lower(title)=lower($2) LIMIT 1
    `, companyID, title)
	var jr models.JobRole
	if err := row.Scan(&jr.ID, &jr.CompanyID, &jr.Title, &jr.Location, &jr.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &jr, nil
}

func (s *PostgresStore) CreateExtractionLog(ctx context.Context, l *models.ExtractionLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO extraction_logs (id, operation_type, signal_id, provider, model, confidence, latency_ms, prompt_tokens, output_tokens, fields, outcome, error, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    `, l.ID, l.OperationType, l.SignalID, l.Provider, l.Model, l.Confidence, l.LatencyMS, l.PromptTokens, l.OutputTokens, pq.Array(ensureSliceNotNil(l.Fields)), l.Outcome, l.Error, l.CreatedAt)
	return err
}

func ensureSliceNotNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
