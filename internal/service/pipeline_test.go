package service

import (
	"context"
	"testing"
	"time"

	"github.com/forgo/staffhub/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockSubmissionRepo struct {
	subs map[string]*model.Submission
}

func (m *mockSubmissionRepo) Create(ctx context.Context, sub *model.Submission) error {
	sub.ID = "submission:" + sub.JobID + "-" + sub.CandidateID
	m.subs[sub.ID] = sub
	return nil
}

func (m *mockSubmissionRepo) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	if s, ok := m.subs[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *mockSubmissionRepo) GetByJobAndCandidate(ctx context.Context, jobID, candidateID string) (*model.Submission, error) {
	for _, s := range m.subs {
		if s.JobID == jobID && s.CandidateID == candidateID {
			return s, nil
		}
	}
	return nil, nil
}

func (m *mockSubmissionRepo) List(ctx context.Context, jobID, candidateID, status string, limit, offset int) ([]*model.Submission, error) {
	return nil, nil
}

func (m *mockSubmissionRepo) SetStatus(ctx context.Context, id string, status model.SubmissionStatus) error {
	m.subs[id].Status = status
	return nil
}

type mockOfferRepo struct {
	offers      map[string]*model.Offer
	outstanding int
	created     *model.Offer
	closed      model.OfferStatus
}

func (m *mockOfferRepo) Create(ctx context.Context, offer *model.Offer) error {
	offer.ID = "offer:1"
	m.created = offer
	return nil
}

func (m *mockOfferRepo) GetByID(ctx context.Context, id string) (*model.Offer, error) {
	if o, ok := m.offers[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (m *mockOfferRepo) ListBySubmission(ctx context.Context, submissionID string) ([]*model.Offer, error) {
	return nil, nil
}

func (m *mockOfferRepo) CountOutstanding(ctx context.Context, submissionID string) (int, error) {
	return m.outstanding, nil
}

func (m *mockOfferRepo) SetStatus(ctx context.Context, id string, status model.OfferStatus) error {
	m.offers[id].Status = status
	return nil
}

func (m *mockOfferRepo) CloseOffer(ctx context.Context, offer *model.Offer, status model.OfferStatus) error {
	m.closed = status
	return nil
}

type mockPlacementRepo struct {
	accepted  *model.Placement
	ended     model.PlacementStatus
	endDate   time.Time
	placement *model.Placement
}

func (m *mockPlacementRepo) AcceptOffer(ctx context.Context, offer *model.Offer, p *model.Placement) error {
	p.ID = "placement:1"
	m.accepted = p
	return nil
}

func (m *mockPlacementRepo) GetByID(ctx context.Context, id string) (*model.Placement, error) {
	if m.placement != nil && m.placement.ID == id {
		cp := *m.placement
		return &cp, nil
	}
	return nil, nil
}

func (m *mockPlacementRepo) List(ctx context.Context, status, candidateID string, limit, offset int) ([]*model.Placement, error) {
	return nil, nil
}

func (m *mockPlacementRepo) End(ctx context.Context, p *model.Placement, status model.PlacementStatus, endDate time.Time) error {
	m.ended = status
	m.endDate = endDate
	return nil
}

// ============================================================================
// Helper Functions
// ============================================================================

type pipelineFixture struct {
	svc        *PipelineService
	subs       *mockSubmissionRepo
	offers     *mockOfferRepo
	placements *mockPlacementRepo
	jobs       *mockJobRepo
	candidates *mockCandidateRepo
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		subs:       &mockSubmissionRepo{subs: make(map[string]*model.Submission)},
		offers:     &mockOfferRepo{offers: make(map[string]*model.Offer)},
		placements: &mockPlacementRepo{},
		jobs:       newMockJobRepo(&model.Job{ID: "job:1", Status: model.JobStatusOpen, Openings: 2}),
		candidates: newMockCandidateRepo(&model.Candidate{ID: "candidate:1", Email: "a@b.co", Status: model.CandidateStatusNew}),
	}
	f.svc = NewPipelineService(PipelineServiceConfig{
		Submissions: f.subs,
		Offers:      f.offers,
		Placements:  f.placements,
		Jobs:        f.jobs,
		Candidates:  f.candidates,
	})
	return f
}

// ============================================================================
// Submissions
// ============================================================================

func TestPipeline_Submit(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture()
	req := &model.CreateSubmissionRequest{JobID: "job:1", CandidateID: "candidate:1"}

	sub, err := f.svc.Submit(context.Background(), "user:rec", req)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStatusSubmitted, sub.Status)
	assert.Equal(t, model.CandidateStatusActive, f.candidates.statuses["candidate:1"])

	_, err = f.svc.Submit(context.Background(), "user:rec", req)
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
}

func TestPipeline_Submit_Refusals(t *testing.T) {
	t.Parallel()

	t.Run("job not open", func(t *testing.T) {
		f := newPipelineFixture()
		f.jobs.jobs["job:1"].Status = model.JobStatusOnHold
		_, err := f.svc.Submit(context.Background(), "user:rec", &model.CreateSubmissionRequest{JobID: "job:1", CandidateID: "candidate:1"})
		assert.ErrorIs(t, err, ErrJobNotOpen)
	})

	t.Run("do not contact", func(t *testing.T) {
		f := newPipelineFixture()
		f.candidates.candidates["candidate:1"].Status = model.CandidateStatusDoNotContact
		_, err := f.svc.Submit(context.Background(), "user:rec", &model.CreateSubmissionRequest{JobID: "job:1", CandidateID: "candidate:1"})
		assert.ErrorIs(t, err, ErrCandidateDoNotContact)
	})

	t.Run("unknown candidate", func(t *testing.T) {
		f := newPipelineFixture()
		_, err := f.svc.Submit(context.Background(), "user:rec", &model.CreateSubmissionRequest{JobID: "job:1", CandidateID: "candidate:x"})
		assert.ErrorIs(t, err, ErrCandidateNotFound)
	})
}

func TestPipeline_MoveSubmission(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture()
	f.subs.subs["submission:1"] = &model.Submission{ID: "submission:1", Status: model.SubmissionStatusSubmitted}

	_, err := f.svc.MoveSubmission(context.Background(), "user:rec", "submission:1", &model.ChangeStatusRequest{Status: "interview"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	for _, status := range []string{"client_review", "interview"} {
		_, err = f.svc.MoveSubmission(context.Background(), "user:rec", "submission:1", &model.ChangeStatusRequest{Status: status})
		require.NoError(t, err)
	}

	_, err = f.svc.MoveSubmission(context.Background(), "user:rec", "submission:1", &model.ChangeStatusRequest{Status: "offered"})
	assert.ErrorIs(t, err, ErrInvalidTransition, "offered is only reachable through an offer")
}

func TestPipeline_WithdrawWithOutstandingOffer(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture()
	f.subs.subs["submission:1"] = &model.Submission{ID: "submission:1", Status: model.SubmissionStatusOffered}
	f.offers.outstanding = 1

	_, err := f.svc.MoveSubmission(context.Background(), "user:rec", "submission:1", &model.ChangeStatusRequest{Status: "withdrawn"})
	assert.ErrorIs(t, err, ErrOfferOutstanding)
}

// ============================================================================
// Offers and placements
// ============================================================================

func TestPipeline_CreateOffer(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture()
	f.subs.subs["submission:1"] = &model.Submission{ID: "submission:1", Status: model.SubmissionStatusClientReview}
	req := &model.CreateOfferRequest{SubmissionID: "submission:1", BillRate: 100, PayRate: 70, StartDate: "2026-11-02"}

	_, err := f.svc.CreateOffer(context.Background(), "user:rec", req)
	assert.ErrorIs(t, err, ErrSubmissionNotInterview)

	f.subs.subs["submission:1"].Status = model.SubmissionStatusInterview
	offer, err := f.svc.CreateOffer(context.Background(), "user:rec", req)
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusDraft, offer.Status)
	assert.Equal(t, time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC), offer.StartDate)

	f.offers.outstanding = 1
	_, err = f.svc.CreateOffer(context.Background(), "user:rec", req)
	assert.ErrorIs(t, err, ErrOfferOutstanding)
}

func TestPipeline_AcceptOffer_CreatesPlacement(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture()
	f.subs.subs["submission:1"] = &model.Submission{ID: "submission:1", JobID: "job:1", CandidateID: "candidate:1", Status: model.SubmissionStatusOffered}
	f.offers.offers["offer:1"] = &model.Offer{ID: "offer:1", SubmissionID: "submission:1", BillRate: 120, PayRate: 90, Status: model.OfferStatusExtended}

	offer, placement, err := f.svc.ChangeOfferStatus(context.Background(), "user:rec", "offer:1", &model.ChangeStatusRequest{Status: "accepted"})
	require.NoError(t, err)

	assert.Equal(t, model.OfferStatusAccepted, offer.Status)
	require.NotNil(t, placement)
	assert.Equal(t, 30.0, placement.Margin)
	assert.Equal(t, 25.0, placement.MarginPct)
	assert.Equal(t, "candidate:1", placement.CandidateID)
	assert.Equal(t, model.PlacementStatusActive, placement.Status)
	assert.Same(t, placement, f.placements.accepted)
}

func TestPipeline_AcceptOffer_JobNoLongerOpen(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture()
	f.jobs.jobs["job:1"].Status = model.JobStatusFilled
	f.subs.subs["submission:1"] = &model.Submission{ID: "submission:1", JobID: "job:1", CandidateID: "candidate:1", Status: model.SubmissionStatusOffered}
	f.offers.offers["offer:1"] = &model.Offer{ID: "offer:1", SubmissionID: "submission:1", BillRate: 120, PayRate: 90, Status: model.OfferStatusExtended}

	_, _, err := f.svc.ChangeOfferStatus(context.Background(), "user:rec", "offer:1", &model.ChangeStatusRequest{Status: "accepted"})
	assert.ErrorIs(t, err, ErrJobNotOpen)
	assert.Nil(t, f.placements.accepted)
}

func TestPipeline_OfferTransitions(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture()
	f.offers.offers["offer:1"] = &model.Offer{ID: "offer:1", Status: model.OfferStatusDraft}

	_, _, err := f.svc.ChangeOfferStatus(context.Background(), "user:rec", "offer:1", &model.ChangeStatusRequest{Status: "accepted"})
	assert.ErrorIs(t, err, ErrInvalidTransition, "draft offers must be extended first")

	_, _, err = f.svc.ChangeOfferStatus(context.Background(), "user:rec", "offer:1", &model.ChangeStatusRequest{Status: "extended"})
	require.NoError(t, err)

	_, _, err = f.svc.ChangeOfferStatus(context.Background(), "user:rec", "offer:1", &model.ChangeStatusRequest{Status: "declined"})
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusDeclined, f.offers.closed)
}

func TestPipeline_EndPlacement(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture()
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	f.placements.placement = &model.Placement{ID: "placement:1", CandidateID: "candidate:1", StartDate: start, Status: model.PlacementStatusActive}

	_, err := f.svc.EndPlacement(context.Background(), "user:rec", "placement:1", &model.EndPlacementRequest{Status: "completed", EndDate: strPtr("2025-12-31")})
	var problem *model.ProblemDetails
	require.ErrorAs(t, err, &problem)

	p, err := f.svc.EndPlacement(context.Background(), "user:rec", "placement:1", &model.EndPlacementRequest{Status: "terminated", EndDate: strPtr("2026-03-31")})
	require.NoError(t, err)
	assert.Equal(t, model.PlacementStatusTerminated, p.Status)
	assert.Equal(t, model.PlacementStatusTerminated, f.placements.ended)
	assert.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), f.placements.endDate)

	_, err = f.svc.EndPlacement(context.Background(), "user:rec", "placement:1", &model.EndPlacementRequest{Status: "active"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
