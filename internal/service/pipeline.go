package service

import (
	"context"
	"errors"
	"time"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
)

// SubmissionRepository defines the interface for submission storage
type SubmissionRepository interface {
	Create(ctx context.Context, sub *model.Submission) error
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	GetByJobAndCandidate(ctx context.Context, jobID, candidateID string) (*model.Submission, error)
	List(ctx context.Context, jobID, candidateID, status string, limit, offset int) ([]*model.Submission, error)
	SetStatus(ctx context.Context, id string, status model.SubmissionStatus) error
}

// OfferRepository defines the interface for offer storage
type OfferRepository interface {
	Create(ctx context.Context, offer *model.Offer) error
	GetByID(ctx context.Context, id string) (*model.Offer, error)
	ListBySubmission(ctx context.Context, submissionID string) ([]*model.Offer, error)
	CountOutstanding(ctx context.Context, submissionID string) (int, error)
	SetStatus(ctx context.Context, id string, status model.OfferStatus) error
	CloseOffer(ctx context.Context, offer *model.Offer, status model.OfferStatus) error
}

// PlacementRepository defines the interface for placement storage
type PlacementRepository interface {
	AcceptOffer(ctx context.Context, offer *model.Offer, p *model.Placement) error
	GetByID(ctx context.Context, id string) (*model.Placement, error)
	List(ctx context.Context, status, candidateID string, limit, offset int) ([]*model.Placement, error)
	End(ctx context.Context, p *model.Placement, status model.PlacementStatus, endDate time.Time) error
}

// PipelineService moves candidates from submission through offer to placement
type PipelineService struct {
	submissions SubmissionRepository
	offers      OfferRepository
	placements  PlacementRepository
	jobs        JobRepository
	candidates  CandidateRepository
	auditor     Auditor
	now         func() time.Time
}

// PipelineServiceConfig holds configuration for the pipeline service
type PipelineServiceConfig struct {
	Submissions SubmissionRepository
	Offers      OfferRepository
	Placements  PlacementRepository
	Jobs        JobRepository
	Candidates  CandidateRepository
	Auditor     Auditor
}

// NewPipelineService creates a new pipeline service
func NewPipelineService(cfg PipelineServiceConfig) *PipelineService {
	return &PipelineService{
		submissions: cfg.Submissions,
		offers:      cfg.Offers,
		placements:  cfg.Placements,
		jobs:        cfg.Jobs,
		candidates:  cfg.Candidates,
		auditor:     auditorOrNoop(cfg.Auditor),
		now:         time.Now,
	}
}

// ============================================================================
// Submissions
// ============================================================================

// Submit puts a candidate forward for an open job
func (s *PipelineService) Submit(ctx context.Context, actorID string, req *model.CreateSubmissionRequest) (*model.Submission, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	job, err := s.jobs.GetByID(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.Archived {
		return nil, ErrJobNotFound
	}
	if job.Status != model.JobStatusOpen {
		return nil, ErrJobNotOpen
	}

	candidate, err := s.candidates.GetByID(ctx, req.CandidateID)
	if err != nil {
		return nil, err
	}
	if candidate == nil || candidate.Anonymized || candidate.Archived {
		return nil, ErrCandidateNotFound
	}
	if candidate.Status == model.CandidateStatusDoNotContact {
		return nil, ErrCandidateDoNotContact
	}

	existing, err := s.submissions.GetByJobAndCandidate(ctx, req.JobID, req.CandidateID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateSubmission
	}

	sub := &model.Submission{
		JobID:       req.JobID,
		CandidateID: req.CandidateID,
		SubmittedBy: actorID,
		Status:      model.SubmissionStatusSubmitted,
		Notes:       req.Notes,
	}
	if err := s.submissions.Create(ctx, sub); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrDuplicateSubmission
		}
		return nil, err
	}

	if candidate.Status == model.CandidateStatusNew {
		if err := s.candidates.SetStatus(ctx, candidate.ID, model.CandidateStatusActive); err != nil {
			return nil, err
		}
	}

	s.auditor.Record(ctx, actorID, model.AuditCreate, "submission", sub.ID, map[string]any{
		"job_id":       sub.JobID,
		"candidate_id": sub.CandidateID,
	})
	return sub, nil
}

// GetSubmission returns a submission by ID
func (s *PipelineService) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrSubmissionNotFound
	}
	return sub, nil
}

// ListSubmissions returns submissions filtered by job, candidate and status
func (s *PipelineService) ListSubmissions(ctx context.Context, jobID, candidateID, status string, limit, offset int) ([]*model.Submission, error) {
	return s.submissions.List(ctx, jobID, candidateID, status, model.ClampLimit(limit), offset)
}

// MoveSubmission changes a submission's status. offered and placed are only
// reached through offers.
func (s *PipelineService) MoveSubmission(ctx context.Context, actorID, id string, req *model.ChangeStatusRequest) (*model.Submission, error) {
	sub, err := s.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}

	to := model.SubmissionStatus(req.Status)
	if to == model.SubmissionStatusOffered || to == model.SubmissionStatusPlaced ||
		(sub.Status == model.SubmissionStatusOffered && to == model.SubmissionStatusInterview) ||
		!model.SubmissionTransitions.Allows(sub.Status, to) {
		return nil, transitionError("submission", sub.Status, to)
	}

	if sub.Status == model.SubmissionStatusOffered {
		outstanding, err := s.offers.CountOutstanding(ctx, id)
		if err != nil {
			return nil, err
		}
		if outstanding > 0 {
			return nil, ErrOfferOutstanding
		}
	}

	if err := s.submissions.SetStatus(ctx, id, to); err != nil {
		return nil, err
	}

	details := map[string]any{"from": sub.Status, "to": to}
	if req.Reason != nil {
		details["reason"] = *req.Reason
	}
	s.auditor.Record(ctx, actorID, model.AuditStatus, "submission", id, details)

	sub.Status = to
	return sub, nil
}

// ============================================================================
// Offers
// ============================================================================

// CreateOffer drafts an offer for a submission at the interview stage
func (s *PipelineService) CreateOffer(ctx context.Context, actorID string, req *model.CreateOfferRequest) (*model.Offer, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	sub, err := s.GetSubmission(ctx, req.SubmissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != model.SubmissionStatusInterview {
		return nil, ErrSubmissionNotInterview
	}

	outstanding, err := s.offers.CountOutstanding(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	if outstanding > 0 {
		return nil, ErrOfferOutstanding
	}

	start, _ := model.ParseDate(req.StartDate)
	offer := &model.Offer{
		SubmissionID: sub.ID,
		BillRate:     req.BillRate,
		PayRate:      req.PayRate,
		StartDate:    start,
		Status:       model.OfferStatusDraft,
		CreatedBy:    actorID,
	}
	if req.EndDate != nil {
		end, _ := model.ParseDate(*req.EndDate)
		offer.EndDate = &end
	}

	if err := s.offers.Create(ctx, offer); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditCreate, "offer", offer.ID, map[string]any{"submission_id": sub.ID})
	return offer, nil
}

// GetOffer returns an offer by ID
func (s *PipelineService) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	offer, err := s.offers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, ErrOfferNotFound
	}
	return offer, nil
}

// ListOffers returns the offers on a submission
func (s *PipelineService) ListOffers(ctx context.Context, submissionID string) ([]*model.Offer, error) {
	if _, err := s.GetSubmission(ctx, submissionID); err != nil {
		return nil, err
	}
	return s.offers.ListBySubmission(ctx, submissionID)
}

// ChangeOfferStatus moves an offer. Accepting creates the placement; declining
// or rescinding returns the submission to interview.
func (s *PipelineService) ChangeOfferStatus(ctx context.Context, actorID, id string, req *model.ChangeStatusRequest) (*model.Offer, *model.Placement, error) {
	offer, err := s.GetOffer(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	to := model.OfferStatus(req.Status)
	if !model.OfferTransitions.Allows(offer.Status, to) {
		return nil, nil, transitionError("offer", offer.Status, to)
	}

	var placement *model.Placement
	switch to {
	case model.OfferStatusAccepted:
		placement, err = s.accept(ctx, offer)
	case model.OfferStatusDeclined, model.OfferStatusRescinded:
		err = s.offers.CloseOffer(ctx, offer, to)
	default:
		err = s.offers.SetStatus(ctx, id, to)
	}
	if err != nil {
		return nil, nil, err
	}

	details := map[string]any{"from": offer.Status, "to": to}
	if placement != nil {
		details["placement_id"] = placement.ID
	}
	s.auditor.Record(ctx, actorID, model.AuditStatus, "offer", id, details)

	offer.Status = to
	return offer, placement, nil
}

func (s *PipelineService) accept(ctx context.Context, offer *model.Offer) (*model.Placement, error) {
	sub, err := s.GetSubmission(ctx, offer.SubmissionID)
	if err != nil {
		return nil, err
	}
	job, err := s.jobs.GetByID(ctx, sub.JobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.Archived {
		return nil, ErrJobNotFound
	}
	if job.Status != model.JobStatusOpen || job.Openings < 1 {
		return nil, ErrJobNotOpen
	}

	margin, pct := model.ComputeMargin(offer.BillRate, offer.PayRate)
	p := &model.Placement{
		CandidateID:  sub.CandidateID,
		JobID:        sub.JobID,
		SubmissionID: sub.ID,
		OfferID:      offer.ID,
		StartDate:    offer.StartDate,
		EndDate:      offer.EndDate,
		BillRate:     offer.BillRate,
		PayRate:      offer.PayRate,
		Margin:       margin,
		MarginPct:    pct,
		Status:       model.PlacementStatusActive,
	}
	if err := s.placements.AcceptOffer(ctx, offer, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ============================================================================
// Placements
// ============================================================================

// GetPlacement returns a placement by ID
func (s *PipelineService) GetPlacement(ctx context.Context, id string) (*model.Placement, error) {
	p, err := s.placements.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPlacementNotFound
	}
	return p, nil
}

// ListPlacements returns placements filtered by status and candidate
func (s *PipelineService) ListPlacements(ctx context.Context, status, candidateID string, limit, offset int) ([]*model.Placement, error) {
	return s.placements.List(ctx, status, candidateID, model.ClampLimit(limit), offset)
}

// EndPlacement completes or terminates a placement and benches the candidate
func (s *PipelineService) EndPlacement(ctx context.Context, actorID, id string, req *model.EndPlacementRequest) (*model.Placement, error) {
	p, err := s.GetPlacement(ctx, id)
	if err != nil {
		return nil, err
	}

	to := model.PlacementStatus(req.Status)
	if !model.PlacementTransitions.Allows(p.Status, to) {
		return nil, transitionError("placement", p.Status, to)
	}

	endDate := s.now().UTC().Truncate(24 * time.Hour)
	if req.EndDate != nil {
		parsed, err := model.ParseDate(*req.EndDate)
		if err != nil {
			return nil, model.NewValidationError([]model.FieldError{{Field: "end_date", Message: "end_date must be YYYY-MM-DD"}})
		}
		endDate = parsed
	}
	if endDate.Before(p.StartDate) {
		return nil, model.NewValidationError([]model.FieldError{{Field: "end_date", Message: "end_date cannot be before start_date"}})
	}

	if err := s.placements.End(ctx, p, to, endDate); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditStatus, "placement", id, map[string]any{"from": p.Status, "to": to})
	p.Status = to
	p.EndDate = &endDate
	return p, nil
}
