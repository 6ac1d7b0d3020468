package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/forgo/staffhub/internal/model"
	"github.com/forgo/staffhub/internal/service"
)

// ============================================================================
// Mock PipelineManager
// ============================================================================

type mockPipelineService struct {
	submitFunc            func(ctx context.Context, actorID string, req *model.CreateSubmissionRequest) (*model.Submission, error)
	listSubmissionsFunc   func(ctx context.Context, jobID, candidateID, status string, limit, offset int) ([]*model.Submission, error)
	moveSubmissionFunc    func(ctx context.Context, actorID, id string, req *model.ChangeStatusRequest) (*model.Submission, error)
	changeOfferStatusFunc func(ctx context.Context, actorID, id string, req *model.ChangeStatusRequest) (*model.Offer, *model.Placement, error)
	endPlacementFunc      func(ctx context.Context, actorID, id string, req *model.EndPlacementRequest) (*model.Placement, error)
}

func (m *mockPipelineService) Submit(ctx context.Context, actorID string, req *model.CreateSubmissionRequest) (*model.Submission, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, actorID, req)
	}
	return nil, nil
}

func (m *mockPipelineService) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	return nil, service.ErrSubmissionNotFound
}

func (m *mockPipelineService) ListSubmissions(ctx context.Context, jobID, candidateID, status string, limit, offset int) ([]*model.Submission, error) {
	if m.listSubmissionsFunc != nil {
		return m.listSubmissionsFunc(ctx, jobID, candidateID, status, limit, offset)
	}
	return nil, nil
}

func (m *mockPipelineService) MoveSubmission(ctx context.Context, actorID, id string, req *model.ChangeStatusRequest) (*model.Submission, error) {
	if m.moveSubmissionFunc != nil {
		return m.moveSubmissionFunc(ctx, actorID, id, req)
	}
	return nil, nil
}

func (m *mockPipelineService) CreateOffer(ctx context.Context, actorID string, req *model.CreateOfferRequest) (*model.Offer, error) {
	return nil, nil
}

func (m *mockPipelineService) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	return nil, service.ErrOfferNotFound
}

func (m *mockPipelineService) ListOffers(ctx context.Context, submissionID string) ([]*model.Offer, error) {
	return nil, nil
}

func (m *mockPipelineService) ChangeOfferStatus(ctx context.Context, actorID, id string, req *model.ChangeStatusRequest) (*model.Offer, *model.Placement, error) {
	if m.changeOfferStatusFunc != nil {
		return m.changeOfferStatusFunc(ctx, actorID, id, req)
	}
	return nil, nil, nil
}

func (m *mockPipelineService) GetPlacement(ctx context.Context, id string) (*model.Placement, error) {
	return nil, service.ErrPlacementNotFound
}

func (m *mockPipelineService) ListPlacements(ctx context.Context, status, candidateID string, limit, offset int) ([]*model.Placement, error) {
	return nil, nil
}

func (m *mockPipelineService) EndPlacement(ctx context.Context, actorID, id string, req *model.EndPlacementRequest) (*model.Placement, error) {
	if m.endPlacementFunc != nil {
		return m.endPlacementFunc(ctx, actorID, id, req)
	}
	return nil, nil
}

// ============================================================================
// Tests
// ============================================================================

func TestSubmit_DuplicateReturnsConflict(t *testing.T) {
	t.Parallel()

	h := NewPipelineHandler(&mockPipelineService{
		submitFunc: func(ctx context.Context, actorID string, req *model.CreateSubmissionRequest) (*model.Submission, error) {
			return nil, service.ErrDuplicateSubmission
		},
	})

	rr := httptest.NewRecorder()
	h.Submit(rr, withUserContext(makeJSONRequest(http.MethodPost, "/v1/submissions", model.CreateSubmissionRequest{
		JobID:       "job:1",
		CandidateID: "candidate:1",
	}), "user:rec"))

	if rr.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rr.Code)
	}
}

func TestSubmit_Created(t *testing.T) {
	t.Parallel()

	h := NewPipelineHandler(&mockPipelineService{
		submitFunc: func(ctx context.Context, actorID string, req *model.CreateSubmissionRequest) (*model.Submission, error) {
			return &model.Submission{
				ID:          "submission:1",
				JobID:       req.JobID,
				CandidateID: req.CandidateID,
				SubmittedBy: actorID,
				Status:      model.SubmissionStatusSubmitted,
			}, nil
		},
	})

	rr := httptest.NewRecorder()
	h.Submit(rr, withUserContext(makeJSONRequest(http.MethodPost, "/v1/submissions", model.CreateSubmissionRequest{
		JobID:       "job:1",
		CandidateID: "candidate:1",
	}), "user:rec"))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	var sub model.Submission
	parseData(t, rr.Body.Bytes(), &sub)
	if sub.SubmittedBy != "user:rec" || sub.Status != model.SubmissionStatusSubmitted {
		t.Errorf("unexpected submission %+v", sub)
	}
}

func TestMoveSubmission_InvalidTransition(t *testing.T) {
	t.Parallel()

	h := NewPipelineHandler(&mockPipelineService{
		moveSubmissionFunc: func(ctx context.Context, actorID, id string, req *model.ChangeStatusRequest) (*model.Submission, error) {
			return nil, &service.TransitionError{Entity: "submission", From: "rejected", To: req.Status}
		},
	})

	req := withUserContext(makeJSONRequest(http.MethodPost, "/v1/submissions/submission:1/status", model.ChangeStatusRequest{Status: "interview"}), "user:rec")
	req.SetPathValue("submissionId", "submission:1")
	rr := httptest.NewRecorder()
	h.MoveSubmission(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	p := parseErrorResponse(t, rr.Body.Bytes())
	if p.Code != model.ErrCodeInvalidTransition || p.From != "rejected" || p.To != "interview" {
		t.Errorf("unexpected problem %+v", p)
	}
}

func TestChangeOfferStatus_AcceptIncludesPlacement(t *testing.T) {
	t.Parallel()

	h := NewPipelineHandler(&mockPipelineService{
		changeOfferStatusFunc: func(ctx context.Context, actorID, id string, req *model.ChangeStatusRequest) (*model.Offer, *model.Placement, error) {
			return &model.Offer{ID: id, SubmissionID: "submission:1", Status: model.OfferStatusAccepted},
				&model.Placement{ID: "placement:1", OfferID: id, Status: model.PlacementStatusActive}, nil
		},
	})

	req := withUserContext(makeJSONRequest(http.MethodPost, "/v1/offers/offer:1/status", model.ChangeStatusRequest{Status: "accepted"}), "user:sales")
	req.SetPathValue("offerId", "offer:1")
	rr := httptest.NewRecorder()
	h.ChangeOfferStatus(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var decision OfferDecision
	parseData(t, rr.Body.Bytes(), &decision)
	if decision.Placement == nil || decision.Placement.ID != "placement:1" {
		t.Errorf("expected placement in response, got %+v", decision)
	}
}

func TestChangeOfferStatus_DeclineOmitsPlacement(t *testing.T) {
	t.Parallel()

	h := NewPipelineHandler(&mockPipelineService{
		changeOfferStatusFunc: func(ctx context.Context, actorID, id string, req *model.ChangeStatusRequest) (*model.Offer, *model.Placement, error) {
			return &model.Offer{ID: id, Status: model.OfferStatusDeclined}, nil, nil
		},
	})

	req := withUserContext(makeJSONRequest(http.MethodPost, "/v1/offers/offer:1/status", model.ChangeStatusRequest{Status: "declined"}), "user:sales")
	req.SetPathValue("offerId", "offer:1")
	rr := httptest.NewRecorder()
	h.ChangeOfferStatus(rr, req)

	var decision OfferDecision
	parseData(t, rr.Body.Bytes(), &decision)
	if decision.Placement != nil {
		t.Error("declined offer should not carry a placement")
	}
}

func TestListSubmissions_ForwardsFilters(t *testing.T) {
	t.Parallel()

	var job, cand, status string
	h := NewPipelineHandler(&mockPipelineService{
		listSubmissionsFunc: func(ctx context.Context, jobID, candidateID, st string, limit, offset int) ([]*model.Submission, error) {
			job, cand, status = jobID, candidateID, st
			return nil, nil
		},
	})

	rr := httptest.NewRecorder()
	h.ListSubmissions(rr, httptest.NewRequest(http.MethodGet, "/v1/submissions?job_id=job:1&candidate_id=candidate:2&status=interview", nil))

	if job != "job:1" || cand != "candidate:2" || status != "interview" {
		t.Errorf("filters not forwarded: %q %q %q", job, cand, status)
	}
}

func TestGetPlacement_NotFound(t *testing.T) {
	t.Parallel()

	h := NewPipelineHandler(&mockPipelineService{})
	req := httptest.NewRequest(http.MethodGet, "/v1/placements/placement:9", nil)
	req.SetPathValue("placementId", "placement:9")
	rr := httptest.NewRecorder()
	h.GetPlacement(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}
