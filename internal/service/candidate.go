package service

import (
	"context"
	"errors"
	"strings"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
	"github.com/forgo/staffhub/pkg/htmltext"
)

// CandidateRepository defines the interface for candidate storage
type CandidateRepository interface {
	Create(ctx context.Context, c *model.Candidate) error
	GetByID(ctx context.Context, id string) (*model.Candidate, error)
	GetByEmail(ctx context.Context, email string) (*model.Candidate, error)
	ExistingEmails(ctx context.Context, emails []string) (map[string]bool, error)
	List(ctx context.Context, filter model.CandidateFilter) ([]*model.Candidate, error)
	Update(ctx context.Context, c *model.Candidate) error
	SetStatus(ctx context.Context, id string, status model.CandidateStatus) error
	SetClassification(ctx context.Context, id string, cl *model.Classification) error
	Archive(ctx context.Context, id string) error
}

// Classifier labels a resume with a category, seniority and skills
type Classifier interface {
	Classify(ctx context.Context, resumeText string) (*model.Classification, error)
}

// CandidateService handles candidate business logic
type CandidateService struct {
	repo       CandidateRepository
	classifier Classifier
	auditor    Auditor
}

// CandidateServiceConfig holds configuration for the candidate service
type CandidateServiceConfig struct {
	Repo       CandidateRepository
	Classifier Classifier // optional
	Auditor    Auditor
}

// NewCandidateService creates a new candidate service
func NewCandidateService(cfg CandidateServiceConfig) *CandidateService {
	return &CandidateService{
		repo:       cfg.Repo,
		classifier: cfg.Classifier,
		auditor:    auditorOrNoop(cfg.Auditor),
	}
}

// Create adds a candidate owned by the caller
func (s *CandidateService) Create(ctx context.Context, actorID string, req *model.CreateCandidateRequest) (*model.Candidate, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	c := candidateFromRequest(req)
	c.OwnerID = actorID
	if err := s.insert(ctx, c); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditCreate, "candidate", c.ID, nil)
	return c, nil
}

// insert enforces email uniqueness among non-anonymized candidates
func (s *CandidateService) insert(ctx context.Context, c *model.Candidate) error {
	existing, err := s.repo.GetByEmail(ctx, c.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrCandidateEmailTaken
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return ErrCandidateEmailTaken
		}
		return err
	}
	return nil
}

func candidateFromRequest(req *model.CreateCandidateRequest) *model.Candidate {
	status := model.CandidateStatus(req.Status)
	if status == "" {
		status = model.CandidateStatusNew
	}
	c := &model.Candidate{
		FirstName:         strings.TrimSpace(req.FirstName),
		LastName:          strings.TrimSpace(req.LastName),
		Email:             model.NormalizeEmail(req.Email),
		Phone:             req.Phone,
		Location:          req.Location,
		Skills:            model.NormalizeSkills(req.Skills),
		YearsExperience:   req.YearsExperience,
		Status:            status,
		Source:            req.Source,
		WorkAuthorization: req.WorkAuthorization,
	}
	if req.ResumeText != nil {
		text := htmltext.MustText(*req.ResumeText)
		c.ResumeText = &text
	}
	return c
}

// Get returns a candidate by ID. Anonymized candidates are not found.
func (s *CandidateService) Get(ctx context.Context, id string) (*model.Candidate, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil || c.Anonymized {
		return nil, ErrCandidateNotFound
	}
	return c, nil
}

// List returns candidates matching the filter
func (s *CandidateService) List(ctx context.Context, filter model.CandidateFilter) ([]*model.Candidate, error) {
	filter.Limit = model.ClampLimit(filter.Limit)
	filter.Skill = strings.ToLower(strings.TrimSpace(filter.Skill))
	return s.repo.List(ctx, filter)
}

// Bench returns candidates between placements, optionally filtered by skill
func (s *CandidateService) Bench(ctx context.Context, skill string, limit, offset int) ([]*model.Candidate, error) {
	return s.List(ctx, model.CandidateFilter{
		Status: string(model.CandidateStatusBench),
		Skill:  skill,
		Limit:  limit,
		Offset: offset,
	})
}

// Update applies a partial update
func (s *CandidateService) Update(ctx context.Context, actorID, id string, req *model.UpdateCandidateRequest) (*model.Candidate, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := model.NormalizeEmail(*req.Email)
		if email != c.Email {
			existing, err := s.repo.GetByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != c.ID {
				return nil, ErrCandidateEmailTaken
			}
			c.Email = email
		}
	}
	if req.FirstName != nil {
		c.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		c.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		c.Phone = req.Phone
	}
	if req.Location != nil {
		c.Location = req.Location
	}
	if req.Skills != nil {
		c.Skills = model.NormalizeSkills(req.Skills)
	}
	if req.YearsExperience != nil {
		c.YearsExperience = *req.YearsExperience
	}
	if req.Status != nil {
		c.Status = model.CandidateStatus(*req.Status)
	}
	if req.Source != nil {
		c.Source = req.Source
	}
	if req.WorkAuthorization != nil {
		c.WorkAuthorization = req.WorkAuthorization
	}
	if req.ResumeText != nil {
		text := htmltext.MustText(*req.ResumeText)
		c.ResumeText = &text
	}
	if req.Flagged != nil {
		c.Flagged = *req.Flagged
		if !c.Flagged {
			c.FlagReasons = nil
		}
	}

	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrCandidateEmailTaken
		}
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditUpdate, "candidate", id, nil)
	return c, nil
}

// Archive soft-deletes a candidate
func (s *CandidateService) Archive(ctx context.Context, actorID, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.Archived {
		return nil
	}
	if err := s.repo.Archive(ctx, id); err != nil {
		return err
	}
	s.auditor.Record(ctx, actorID, model.AuditArchive, "candidate", id, nil)
	return nil
}

// Classify runs the resume through the classifier and stores the result
func (s *CandidateService) Classify(ctx context.Context, actorID, id string) (*model.Candidate, error) {
	if s.classifier == nil {
		return nil, ErrClassifierDisabled
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.ResumeText == nil || strings.TrimSpace(*c.ResumeText) == "" {
		return nil, ErrResumeRequired
	}

	cl, err := s.classifier.Classify(ctx, *c.ResumeText)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetClassification(ctx, id, cl); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditUpdate, "candidate", id, map[string]any{
		"category":  cl.Category,
		"seniority": cl.Seniority,
	})

	c.Category = &cl.Category
	c.Seniority = &cl.Seniority
	c.Skills = model.NormalizeSkills(append(c.Skills, cl.Skills...))
	return c, nil
}
