package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
	"golang.org/x/sync/errgroup"
)

// CampaignRepository defines the interface for campaign and campaign enrollment storage
type CampaignRepository interface {
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	GetMany(ctx context.Context, ids []string) (map[string]*model.Campaign, error)
	List(ctx context.Context, status string, limit, offset int) ([]*model.Campaign, error)
	UpdateSteps(ctx context.Context, id string, steps []model.CampaignStep) error
	SetStatus(ctx context.Context, id string, status model.CampaignStatus) error
	Enroll(ctx context.Context, ce *model.CampaignEnrollment) error
	GetEnrollment(ctx context.Context, id string) (*model.CampaignEnrollment, error)
	ListEnrollments(ctx context.Context, campaignID, status string, limit, offset int) ([]*model.CampaignEnrollment, error)
	DueEnrollments(ctx context.Context, now time.Time, limit int) ([]*model.CampaignEnrollment, error)
	SaveEnrollment(ctx context.Context, ce *model.CampaignEnrollment) error
	StopForCandidate(ctx context.Context, candidateID, reason string) ([]string, error)
}

// Dispatcher delivers a rendered outreach message
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *model.OutboundMessage) error
}

// CandidateLookup resolves candidates by ID
type CandidateLookup interface {
	GetByID(ctx context.Context, id string) (*model.Candidate, error)
}

// JobLookup resolves jobs by ID
type JobLookup interface {
	GetByID(ctx context.Context, id string) (*model.Job, error)
}

// Campaign engine defaults
const (
	DefaultCampaignBatchSize   = 100
	DefaultCampaignConcurrency = 8
)

// CampaignService manages outreach campaigns and runs the step engine
type CampaignService struct {
	repo        CampaignRepository
	candidates  CandidateLookup
	jobs        JobLookup
	dispatcher  Dispatcher
	auditor     Auditor
	logger      *slog.Logger
	batchSize   int
	concurrency int
	now         func() time.Time

	// one tick at a time, whether from the runner or a manual run
	tickMu sync.Mutex
}

// CampaignServiceConfig holds configuration for the campaign service
type CampaignServiceConfig struct {
	Repo        CampaignRepository
	Candidates  CandidateLookup
	Jobs        JobLookup
	Dispatcher  Dispatcher
	Auditor     Auditor
	Logger      *slog.Logger
	BatchSize   int
	Concurrency int
}

// NewCampaignService creates a new campaign service
func NewCampaignService(cfg CampaignServiceConfig) *CampaignService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultCampaignBatchSize
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultCampaignConcurrency
	}
	return &CampaignService{
		repo:        cfg.Repo,
		candidates:  cfg.Candidates,
		jobs:        cfg.Jobs,
		dispatcher:  cfg.Dispatcher,
		auditor:     auditorOrNoop(cfg.Auditor),
		logger:      logger,
		batchSize:   batch,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// ============================================================================
// Campaigns
// ============================================================================

// Create creates a draft campaign
func (s *CampaignService) Create(ctx context.Context, actorID string, req *model.CreateCampaignRequest) (*model.Campaign, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}
	if req.JobID != nil {
		job, err := s.jobs.GetByID(ctx, *req.JobID)
		if err != nil {
			return nil, err
		}
		if job == nil {
			return nil, ErrJobNotFound
		}
	}

	c := &model.Campaign{
		Name:    strings.TrimSpace(req.Name),
		Channel: model.CampaignChannel(req.Channel),
		Status:  model.CampaignStatusDraft,
		JobID:   req.JobID,
		Steps:   req.Steps,
		OwnerID: actorID,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditCreate, "campaign", c.ID, nil)
	return c, nil
}

// Get retrieves a campaign
func (s *CampaignService) Get(ctx context.Context, id string) (*model.Campaign, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCampaignNotFound
	}
	return c, nil
}

// List lists campaigns
func (s *CampaignService) List(ctx context.Context, status string, limit, offset int) ([]*model.Campaign, error) {
	return s.repo.List(ctx, status, model.ClampLimit(limit), offset)
}

// UpdateSteps replaces the steps of a campaign that is not running
func (s *CampaignService) UpdateSteps(ctx context.Context, actorID, id string, req *model.UpdateStepsRequest) (*model.Campaign, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch c.Status {
	case model.CampaignStatusActive:
		return nil, ErrCampaignLocked
	case model.CampaignStatusCompleted:
		return nil, ErrCampaignClosed
	}
	if errs := model.ValidateSteps(c.Channel, req.Steps); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}
	if err := s.repo.UpdateSteps(ctx, id, req.Steps); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditUpdate, "campaign", id, map[string]any{"steps": len(req.Steps)})
	c.Steps = req.Steps
	return c, nil
}

// ChangeStatus activates, pauses or completes a campaign
func (s *CampaignService) ChangeStatus(ctx context.Context, actorID, id string, req *model.ChangeStatusRequest) (*model.Campaign, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	to := model.CampaignStatus(req.Status)
	if !model.CampaignTransitions.Allows(c.Status, to) {
		return nil, transitionError("campaign", c.Status, to)
	}
	if err := s.repo.SetStatus(ctx, id, to); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditStatus, "campaign", id, map[string]any{"from": c.Status, "to": to})
	c.Status = to
	return c, nil
}

// Enroll adds candidates to a campaign. Each starts at step 1, due after its delay.
// Enrolling a candidate twice is a conflict; the whole request stops at the first one.
func (s *CampaignService) Enroll(ctx context.Context, actorID, campaignID string, req *model.EnrollCandidatesRequest) ([]*model.CampaignEnrollment, error) {
	if len(req.CandidateIDs) == 0 {
		return nil, model.NewValidationError([]model.FieldError{{Field: "candidate_ids", Message: "at least one candidate is required"}})
	}
	c, err := s.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status == model.CampaignStatusCompleted {
		return nil, ErrCampaignClosed
	}

	out := make([]*model.CampaignEnrollment, 0, len(req.CandidateIDs))
	for _, candidateID := range req.CandidateIDs {
		candidate, err := s.candidates.GetByID(ctx, candidateID)
		if err != nil {
			return out, err
		}
		if candidate == nil || candidate.Anonymized {
			return out, ErrCandidateNotFound
		}
		if !candidate.Contactable() {
			return out, ErrCandidateDoNotContact
		}

		next := s.now().UTC().Add(stepDelay(c.Steps[0]))
		ce := &model.CampaignEnrollment{
			CampaignID:  campaignID,
			CandidateID: candidateID,
			CurrentStep: 1,
			NextRunAt:   &next,
			Status:      model.CampaignEnrollmentActive,
		}
		if err := s.repo.Enroll(ctx, ce); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				return out, ErrAlreadyInCampaign
			}
			return out, err
		}
		out = append(out, ce)
	}

	s.auditor.Record(ctx, actorID, model.AuditCreate, "campaign_enrollment", campaignID, map[string]any{"enrolled": len(out)})
	return out, nil
}

// ListEnrollments lists the enrollments of a campaign
func (s *CampaignService) ListEnrollments(ctx context.Context, campaignID, status string, limit, offset int) ([]*model.CampaignEnrollment, error) {
	if _, err := s.Get(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.repo.ListEnrollments(ctx, campaignID, status, model.ClampLimit(limit), offset)
}

// StopEnrollment stops one enrollment
func (s *CampaignService) StopEnrollment(ctx context.Context, actorID, enrollmentID string) (*model.CampaignEnrollment, error) {
	ce, err := s.repo.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if ce == nil {
		return nil, ErrCampaignEnrollment
	}
	if ce.Status != model.CampaignEnrollmentActive {
		return ce, nil
	}
	reason := "stopped by " + actorID
	s.finish(ce, model.CampaignEnrollmentStopped, &reason)
	if err := s.repo.SaveEnrollment(ctx, ce); err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, actorID, model.AuditStatus, "campaign_enrollment", enrollmentID, map[string]any{"to": ce.Status})
	return ce, nil
}

// ============================================================================
// Engine
// ============================================================================

// RunDue processes one batch of due enrollments with bounded concurrency.
// Failures are recorded per enrollment and never retried.
func (s *CampaignService) RunDue(ctx context.Context) (*model.RunReport, error) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	now := s.now().UTC()
	due, err := s.repo.DueEnrollments(ctx, now, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("load due enrollments: %w", err)
	}
	report := &model.RunReport{}
	if len(due) == 0 {
		return report, nil
	}

	ids := make([]string, 0, len(due))
	seen := make(map[string]bool)
	for _, ce := range due {
		if !seen[ce.CampaignID] {
			seen[ce.CampaignID] = true
			ids = append(ids, ce.CampaignID)
		}
	}
	campaigns, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load campaigns: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, ce := range due {
		g.Go(func() error {
			outcome, err := s.step(gctx, campaigns[ce.CampaignID], ce, now)
			if err != nil {
				// storage errors abort the tick
				return err
			}
			mu.Lock()
			report.Processed++
			switch outcome {
			case stepSent:
				report.Sent++
			case stepCompleted:
				report.Sent++
				report.Completed++
			case stepStopped:
				report.Stopped++
			case stepFailed:
				report.Failed++
			case stepSkipped:
				report.Skipped++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	s.logger.Info("campaign tick",
		"processed", report.Processed,
		"sent", report.Sent,
		"completed", report.Completed,
		"stopped", report.Stopped,
		"failed", report.Failed,
		"skipped", report.Skipped,
	)
	return report, nil
}

// RunNow runs one tick on behalf of an admin
func (s *CampaignService) RunNow(ctx context.Context, actorID string) (*model.RunReport, error) {
	report, err := s.RunDue(ctx)
	if err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, actorID, model.AuditUpdate, "campaign_engine", "", map[string]any{
		"processed": report.Processed,
		"sent":      report.Sent,
	})
	return report, nil
}

type stepOutcome int

const (
	stepSkipped stepOutcome = iota
	stepSent
	stepCompleted
	stepStopped
	stepFailed
)

// step sends the current step of one enrollment and advances it
func (s *CampaignService) step(ctx context.Context, c *model.Campaign, ce *model.CampaignEnrollment, now time.Time) (stepOutcome, error) {
	if c == nil {
		reason := "campaign no longer exists"
		s.finish(ce, model.CampaignEnrollmentStopped, &reason)
		return stepStopped, s.repo.SaveEnrollment(ctx, ce)
	}
	switch c.Status {
	case model.CampaignStatusCompleted:
		reason := "campaign completed"
		s.finish(ce, model.CampaignEnrollmentStopped, &reason)
		return stepStopped, s.repo.SaveEnrollment(ctx, ce)
	case model.CampaignStatusActive:
	default:
		return stepSkipped, nil
	}

	candidate, err := s.candidates.GetByID(ctx, ce.CandidateID)
	if err != nil {
		return stepSkipped, err
	}
	if candidate == nil || !candidate.Contactable() {
		reason := "candidate is not contactable"
		s.finish(ce, model.CampaignEnrollmentStopped, &reason)
		return stepStopped, s.repo.SaveEnrollment(ctx, ce)
	}

	if ce.CurrentStep < 1 || ce.CurrentStep > len(c.Steps) {
		s.finish(ce, model.CampaignEnrollmentCompleted, nil)
		return stepCompleted, s.repo.SaveEnrollment(ctx, ce)
	}
	current := c.Steps[ce.CurrentStep-1]

	msg, err := s.render(ctx, c, current, candidate)
	if err == nil {
		msg.EnrollmentID = ce.ID
		err = s.dispatcher.Dispatch(ctx, msg)
	}
	if err != nil {
		reason := err.Error()
		s.logger.Warn("campaign step failed",
			"enrollment_id", ce.ID,
			"campaign_id", c.ID,
			"step", ce.CurrentStep,
			"error", err,
		)
		s.finish(ce, model.CampaignEnrollmentFailed, &reason)
		return stepFailed, s.repo.SaveEnrollment(ctx, ce)
	}

	if ce.CurrentStep == len(c.Steps) {
		s.finish(ce, model.CampaignEnrollmentCompleted, nil)
		return stepCompleted, s.repo.SaveEnrollment(ctx, ce)
	}

	next := now.Add(stepDelay(c.Steps[ce.CurrentStep]))
	ce.CurrentStep++
	ce.NextRunAt = &next
	ce.LastError = nil
	return stepSent, s.repo.SaveEnrollment(ctx, ce)
}

func (s *CampaignService) finish(ce *model.CampaignEnrollment, status model.CampaignEnrollmentStatus, reason *string) {
	ce.Status = status
	ce.NextRunAt = nil
	ce.LastError = reason
}

// render executes the step templates against the candidate
func (s *CampaignService) render(ctx context.Context, c *model.Campaign, step model.CampaignStep, candidate *model.Candidate) (*model.OutboundMessage, error) {
	data := model.TemplateData{
		FirstName: candidate.FirstName,
		LastName:  candidate.LastName,
		Email:     candidate.Email,
	}
	if c.JobID != nil && s.jobs != nil {
		job, err := s.jobs.GetByID(ctx, *c.JobID)
		if err != nil {
			return nil, err
		}
		if job != nil {
			data.JobTitle = job.Title
		}
	}

	body, err := renderTemplate("body", step.Body, data)
	if err != nil {
		return nil, err
	}
	subject, err := renderTemplate("subject", step.Subject, data)
	if err != nil {
		return nil, err
	}

	to := candidate.Email
	if c.Channel == model.ChannelSMS {
		if candidate.Phone == nil || *candidate.Phone == "" {
			return nil, errors.New("candidate has no phone number")
		}
		to = *candidate.Phone
	}

	return &model.OutboundMessage{
		CampaignID:  c.ID,
		CandidateID: candidate.ID,
		Channel:     c.Channel,
		To:          to,
		Subject:     subject,
		Body:        body,
		Step:        step.Position,
	}, nil
}

func renderTemplate(name, text string, data model.TemplateData) (string, error) {
	if text == "" {
		return "", nil
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func stepDelay(step model.CampaignStep) time.Duration {
	return time.Duration(step.DelayHours) * time.Hour
}
