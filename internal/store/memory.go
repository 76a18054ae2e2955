package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jobsignal/pkg/models"
)

// InMemoryStore is a threadsafe in-memory store for tests.
type InMemoryStore struct {
	mu             sync.RWMutex
	signals        map[string]*models.Signal
	applications   map[string]*models.InterviewApplication
	rounds         map[string]*models.InterviewRound
	interviewFB    map[string]*models.InterviewFeedback
	companyFB      map[string]*models.CompanyFeedback
	companies      map[string]*models.Company
	jobRoles       map[string]*models.JobRole
	extractionLogs []*models.ExtractionLog
	now            func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		signals:      make(map[string]*models.Signal),
		applications: make(map[string]*models.InterviewApplication),
		rounds:       make(map[string]*models.InterviewRound),
		interviewFB:  make(map[string]*models.InterviewFeedback),
		companyFB:    make(map[string]*models.CompanyFeedback),
		companies:    make(map[string]*models.Company),
		jobRoles:     make(map[string]*models.JobRole),
		now:          time.Now,
	}
}

func (s *InMemoryStore) CreateSignal(ctx context.Context, sig *models.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	sig.CreatedAt = s.now()
	s.signals[sig.ID] = cloneSignal(sig)
	return nil
}

func (s *InMemoryStore) GetSignal(ctx context.Context, id string) (*models.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.signals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSignal(v), nil
}

func (s *InMemoryStore) LinkSignalToApplication(ctx context.Context, signalID, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.signals[signalID]
	if !ok {
		return ErrNotFound
	}
	appID := applicationID
	v.ApplicationID = &appID
	return nil
}

func (s *InMemoryStore) CreateApplication(ctx context.Context, app *models.InterviewApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	app.CreatedAt = s.now()
	app.UpdatedAt = app.CreatedAt
	s.applications[app.ID] = cloneApplication(app)
	return nil
}

func (s *InMemoryStore) GetApplication(ctx context.Context, id string) (*models.InterviewApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.applications[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneApplication(v), nil
}

func (s *InMemoryStore) UpdateApplication(ctx context.Context, app *models.InterviewApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.applications[app.ID]
	if !ok {
		return ErrNotFound
	}
	app.CreatedAt = old.CreatedAt
	app.UpdatedAt = s.now()
	s.applications[app.ID] = cloneApplication(app)
	return nil
}

func (s *InMemoryStore) CreateRound(ctx context.Context, r *models.InterviewRound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = s.now()
	r.UpdatedAt = r.CreatedAt
	s.rounds[r.ID] = cloneRound(r)
	return nil
}

func (s *InMemoryStore) UpdateRound(ctx context.Context, r *models.InterviewRound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.rounds[r.ID]
	if !ok {
		return ErrNotFound
	}
	r.CreatedAt = old.CreatedAt
	r.UpdatedAt = s.now()
	s.rounds[r.ID] = cloneRound(r)
	return nil
}

func (s *InMemoryStore) ListRounds(ctx context.Context, applicationID string) ([]*models.InterviewRound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.InterviewRound, 0)
	for _, r := range s.rounds {
		if r.ApplicationID == applicationID {
			out = append(out, cloneRound(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *InMemoryStore) GetRoundBySourceSignal(ctx context.Context, signalID string) (*models.InterviewRound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rounds {
		if r.SourceSignalID != nil && *r.SourceSignalID == signalID {
			return cloneRound(r), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) CreateInterviewFeedback(ctx context.Context, f *models.InterviewFeedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.CreatedAt = s.now()
	s.interviewFB[f.ID] = cloneInterviewFeedback(f)
	return nil
}

func (s *InMemoryStore) GetInterviewFeedbackByRound(ctx context.Context, roundID string) (*models.InterviewFeedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.interviewFB {
		if f.RoundID == roundID {
			return cloneInterviewFeedback(f), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) GetInterviewFeedbackBySourceSignal(ctx context.Context, signalID string) (*models.InterviewFeedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.interviewFB {
		if f.SourceSignalID != nil && *f.SourceSignalID == signalID {
			return cloneInterviewFeedback(f), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) CreateCompanyFeedback(ctx context.Context, f *models.CompanyFeedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.CreatedAt = s.now()
	s.companyFB[f.ID] = cloneCompanyFeedback(f)
	return nil
}

func (s *InMemoryStore) GetCompanyFeedbackBySourceSignal(ctx context.Context, signalID string) (*models.CompanyFeedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.companyFB {
		if f.SourceSignalID != nil && *f.SourceSignalID == signalID {
			return cloneCompanyFeedback(f), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) GetCompanyFeedbackByType(ctx context.Context, applicationID string, ft models.CompanyFeedbackType) (*models.CompanyFeedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.companyFB {
		if f.ApplicationID == applicationID && f.FeedbackType == ft {
			return cloneCompanyFeedback(f), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) CreateCompany(ctx context.Context, c *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = s.now()
	s.companies[c.ID] = cloneCompany(c)
	return nil
}

func (s *InMemoryStore) GetCompanyByNormalizedName(ctx context.Context, normalized string) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.companies {
		if c.NormalizedName == normalized {
			return cloneCompany(c), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) CreateJobRole(ctx context.Context, jr *models.JobRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if jr.ID == "" {
		jr.ID = uuid.NewString()
	}
	jr.CreatedAt = s.now()
	s.jobRoles[jr.ID] = cloneJobRole(jr)
	return nil
}

func (s *InMemoryStore) GetJobRoleByTitle(ctx context.Context, companyID, title string) (*models.JobRole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, jr := range s.jobRoles {
		if jr.CompanyID == companyID && jr.Title == title {
			return cloneJobRole(jr), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) CreateExtractionLog(ctx context.Context, l *models.ExtractionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = s.now()
	cp := *l
	cp.Fields = append([]string(nil), l.Fields...)
	s.extractionLogs = append(s.extractionLogs, &cp)
	return nil
}

// ExtractionLogs returns a snapshot of the logged attempts, for tests.
func (s *InMemoryStore) ExtractionLogs() []*models.ExtractionLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ExtractionLog, 0, len(s.extractionLogs))
	for _, l := range s.extractionLogs {
		cp := *l
		out = append(out, &cp)
	}
	return out
}

// CountRounds returns the number of rounds stored for an application, for tests.
func (s *InMemoryStore) CountRounds(applicationID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.rounds {
		if r.ApplicationID == applicationID {
			n++
		}
	}
	return n
}

func cloneSignal(v *models.Signal) *models.Signal {
	if v == nil {
		return nil
	}
	cp := *v
	if v.ApplicationID != nil {
		id := *v.ApplicationID
		cp.ApplicationID = &id
	}
	if v.ExtractedData != nil {
		cp.ExtractedData = make(map[string]string, len(v.ExtractedData))
		for k, val := range v.ExtractedData {
			cp.ExtractedData[k] = val
		}
	}
	return &cp
}

func cloneApplication(v *models.InterviewApplication) *models.InterviewApplication {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneRound(v *models.InterviewRound) *models.InterviewRound {
	if v == nil {
		return nil
	}
	cp := *v
	cp.StageName = cloneStr(v.StageName)
	cp.ScheduledAt = cloneTime(v.ScheduledAt)
	cp.DurationMinutes = cloneInt(v.DurationMinutes)
	cp.InterviewerName = cloneStr(v.InterviewerName)
	cp.InterviewerRole = cloneStr(v.InterviewerRole)
	cp.VideoLink = cloneStr(v.VideoLink)
	cp.ConfirmationSource = cloneStr(v.ConfirmationSource)
	cp.CompletedAt = cloneTime(v.CompletedAt)
	cp.Notes = cloneStr(v.Notes)
	cp.SourceSignalID = cloneStr(v.SourceSignalID)
	return &cp
}

func cloneInterviewFeedback(v *models.InterviewFeedback) *models.InterviewFeedback {
	if v == nil {
		return nil
	}
	cp := *v
	cp.Strengths = cloneStr(v.Strengths)
	cp.Improvements = cloneStr(v.Improvements)
	cp.AISummary = cloneStr(v.AISummary)
	cp.NextAction = cloneStr(v.NextAction)
	cp.SourceSignalID = cloneStr(v.SourceSignalID)
	return &cp
}

func cloneCompanyFeedback(v *models.CompanyFeedback) *models.CompanyFeedback {
	if v == nil {
		return nil
	}
	cp := *v
	cp.FeedbackText = cloneStr(v.FeedbackText)
	cp.RejectionReason = cloneStr(v.RejectionReason)
	cp.NextSteps = cloneStr(v.NextSteps)
	cp.SourceSignalID = cloneStr(v.SourceSignalID)
	return &cp
}

func cloneCompany(v *models.Company) *models.Company {
	if v == nil {
		return nil
	}
	cp := *v
	cp.Website = cloneStr(v.Website)
	return &cp
}

func cloneJobRole(v *models.JobRole) *models.JobRole {
	if v == nil {
		return nil
	}
	cp := *v
	cp.Location = cloneStr(v.Location)
	return &cp
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
