package service

import (
	"context"
	"strings"

	"github.com/forgo/staffhub/internal/model"
	"github.com/forgo/staffhub/pkg/htmltext"
)

// JobRepository defines the interface for job storage
type JobRepository interface {
	Create(ctx context.Context, job *model.Job) error
	GetByID(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, status, accountID string, limit, offset int) ([]*model.Job, error)
	Update(ctx context.Context, job *model.Job) error
	SetStatus(ctx context.Context, id string, status model.JobStatus) error
	Archive(ctx context.Context, id string) error
}

// AccountLookup resolves accounts for services that reference them
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*model.Account, error)
}

// JobService handles requisition business logic
type JobService struct {
	repo     JobRepository
	accounts AccountLookup
	auditor  Auditor
}

// JobServiceConfig holds configuration for the job service
type JobServiceConfig struct {
	Repo     JobRepository
	Accounts AccountLookup
	Auditor  Auditor
}

// NewJobService creates a new job service
func NewJobService(cfg JobServiceConfig) *JobService {
	return &JobService{
		repo:     cfg.Repo,
		accounts: cfg.Accounts,
		auditor:  auditorOrNoop(cfg.Auditor),
	}
}

// Create creates a draft job under an active account. HTML descriptions are stored as plain text.
func (s *JobService) Create(ctx context.Context, actorID string, req *model.CreateJobRequest) (*model.Job, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	account, err := s.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if account.Archived {
		return nil, ErrAccountArchived
	}

	openings := req.Openings
	if openings == 0 {
		openings = 1
	}

	job := &model.Job{
		AccountID:      req.AccountID,
		Title:          strings.TrimSpace(req.Title),
		Description:    htmltext.MustText(req.Description),
		Location:       req.Location,
		Remote:         req.Remote,
		EmploymentType: model.EmploymentType(req.EmploymentType),
		Status:         model.JobStatusDraft,
		Openings:       openings,
		BillRate:       req.BillRate,
		PayRate:        req.PayRate,
		Skills:         model.NormalizeSkills(req.Skills),
		OwnerID:        actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditCreate, "job", job.ID, map[string]any{"account_id": job.AccountID})
	return job, nil
}

// Get returns a job by ID
func (s *JobService) Get(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// List returns jobs filtered by status and account
func (s *JobService) List(ctx context.Context, status, accountID string, limit, offset int) ([]*model.Job, error) {
	return s.repo.List(ctx, status, accountID, model.ClampLimit(limit), offset)
}

// Update applies a partial update. Rates are re-checked against the merged values.
func (s *JobService) Update(ctx context.Context, actorID, id string, req *model.UpdateJobRequest) (*model.Job, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Archived {
		return nil, ErrJobArchived
	}

	if req.Title != nil {
		job.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		job.Description = htmltext.MustText(*req.Description)
	}
	if req.Location != nil {
		job.Location = req.Location
	}
	if req.Remote != nil {
		job.Remote = *req.Remote
	}
	if req.EmploymentType != nil {
		job.EmploymentType = model.EmploymentType(*req.EmploymentType)
	}
	if req.Openings != nil {
		job.Openings = *req.Openings
	}
	if req.BillRate != nil {
		job.BillRate = req.BillRate
	}
	if req.PayRate != nil {
		job.PayRate = req.PayRate
	}
	if req.Skills != nil {
		job.Skills = model.NormalizeSkills(req.Skills)
	}
	if req.OwnerID != nil {
		job.OwnerID = *req.OwnerID
	}
	if job.BillRate != nil && job.PayRate != nil && *job.PayRate > *job.BillRate {
		return nil, model.NewValidationError([]model.FieldError{{Field: "pay_rate", Message: "pay_rate cannot exceed bill_rate"}})
	}

	if err := s.repo.Update(ctx, job); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditUpdate, "job", id, nil)
	return job, nil
}

// ChangeStatus moves a job through its lifecycle
func (s *JobService) ChangeStatus(ctx context.Context, actorID, id string, req *model.ChangeStatusRequest) (*model.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Archived {
		return nil, ErrJobArchived
	}

	to := model.JobStatus(req.Status)
	if !model.JobTransitions.Allows(job.Status, to) {
		return nil, transitionError("job", job.Status, to)
	}
	if err := s.repo.SetStatus(ctx, id, to); err != nil {
		return nil, err
	}

	details := map[string]any{"from": job.Status, "to": to}
	if req.Reason != nil {
		details["reason"] = *req.Reason
	}
	s.auditor.Record(ctx, actorID, model.AuditStatus, "job", id, details)

	job.Status = to
	return job, nil
}

// Archive soft-deletes a job
func (s *JobService) Archive(ctx context.Context, actorID, id string) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Archived {
		return nil
	}
	if err := s.repo.Archive(ctx, id); err != nil {
		return err
	}
	s.auditor.Record(ctx, actorID, model.AuditArchive, "job", id, nil)
	return nil
}
