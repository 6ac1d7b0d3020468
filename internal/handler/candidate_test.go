package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/forgo/staffhub/internal/model"
	"github.com/forgo/staffhub/internal/service"
)

// ============================================================================
// Mock CandidateManager
// ============================================================================

type mockCandidateService struct {
	createFunc   func(ctx context.Context, actorID string, req *model.CreateCandidateRequest) (*model.Candidate, error)
	getFunc      func(ctx context.Context, id string) (*model.Candidate, error)
	listFunc     func(ctx context.Context, filter model.CandidateFilter) ([]*model.Candidate, error)
	benchFunc    func(ctx context.Context, skill string, limit, offset int) ([]*model.Candidate, error)
	updateFunc   func(ctx context.Context, actorID, id string, req *model.UpdateCandidateRequest) (*model.Candidate, error)
	archiveFunc  func(ctx context.Context, actorID, id string) error
	classifyFunc func(ctx context.Context, actorID, id string) (*model.Candidate, error)
}

func (m *mockCandidateService) Create(ctx context.Context, actorID string, req *model.CreateCandidateRequest) (*model.Candidate, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, actorID, req)
	}
	return nil, nil
}

func (m *mockCandidateService) Get(ctx context.Context, id string) (*model.Candidate, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockCandidateService) List(ctx context.Context, filter model.CandidateFilter) ([]*model.Candidate, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return nil, nil
}

func (m *mockCandidateService) Bench(ctx context.Context, skill string, limit, offset int) ([]*model.Candidate, error) {
	if m.benchFunc != nil {
		return m.benchFunc(ctx, skill, limit, offset)
	}
	return nil, nil
}

func (m *mockCandidateService) Update(ctx context.Context, actorID, id string, req *model.UpdateCandidateRequest) (*model.Candidate, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, actorID, id, req)
	}
	return nil, nil
}

func (m *mockCandidateService) Archive(ctx context.Context, actorID, id string) error {
	if m.archiveFunc != nil {
		return m.archiveFunc(ctx, actorID, id)
	}
	return nil
}

func (m *mockCandidateService) Classify(ctx context.Context, actorID, id string) (*model.Candidate, error) {
	if m.classifyFunc != nil {
		return m.classifyFunc(ctx, actorID, id)
	}
	return nil, nil
}

func newTestCandidate(id string) *model.Candidate {
	return &model.Candidate{
		ID:        id,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Skills:    []string{"go", "postgres"},
		Status:    model.CandidateStatusNew,
	}
}

// ============================================================================
// Tests
// ============================================================================

func TestCandidateCreate_ReturnsCreatedWithLinks(t *testing.T) {
	t.Parallel()

	var actor string
	h := NewCandidateHandler(&mockCandidateService{
		createFunc: func(ctx context.Context, actorID string, req *model.CreateCandidateRequest) (*model.Candidate, error) {
			actor = actorID
			return newTestCandidate("candidate:1"), nil
		},
	})

	req := makeJSONRequest(http.MethodPost, "/v1/candidates", model.CreateCandidateRequest{
		FirstName: "Ada",
		Email:     "ada@example.com",
	})
	rr := httptest.NewRecorder()
	h.Create(rr, withUserContext(req, "user:rec"))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if actor != "user:rec" {
		t.Errorf("expected actor user:rec, got %q", actor)
	}

	var candidate model.Candidate
	parseData(t, rr.Body.Bytes(), &candidate)
	if candidate.ID != "candidate:1" {
		t.Errorf("unexpected id %q", candidate.ID)
	}

	var envelope DataResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatal(err)
	}
	if envelope.Links["submissions"] != "/v1/submissions?candidate_id=candidate:1" {
		t.Errorf("unexpected links %v", envelope.Links)
	}
}

func TestCandidateCreate_EmailTaken_ReturnsConflict(t *testing.T) {
	t.Parallel()

	h := NewCandidateHandler(&mockCandidateService{
		createFunc: func(ctx context.Context, actorID string, req *model.CreateCandidateRequest) (*model.Candidate, error) {
			return nil, service.ErrCandidateEmailTaken
		},
	})

	rr := httptest.NewRecorder()
	h.Create(rr, withUserContext(makeJSONRequest(http.MethodPost, "/v1/candidates", model.CreateCandidateRequest{Email: "ada@example.com"}), "user:rec"))

	if rr.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rr.Code)
	}
}

func TestCandidateList_ParsesFilter(t *testing.T) {
	t.Parallel()

	var got model.CandidateFilter
	h := NewCandidateHandler(&mockCandidateService{
		listFunc: func(ctx context.Context, filter model.CandidateFilter) ([]*model.Candidate, error) {
			got = filter
			return []*model.Candidate{newTestCandidate("candidate:1")}, nil
		},
	})

	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/v1/candidates?status=bench&skill=go&flagged=true&limit=10&offset=20", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got.Status != "bench" || got.Skill != "go" || got.Limit != 10 || got.Offset != 20 {
		t.Errorf("unexpected filter %+v", got)
	}
	if got.Flagged == nil || !*got.Flagged {
		t.Error("expected flagged=true in filter")
	}
}

func TestCandidateList_BadFlagged_ReturnsBadRequest(t *testing.T) {
	t.Parallel()

	h := NewCandidateHandler(&mockCandidateService{})
	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/v1/candidates?flagged=maybe", nil))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestCandidateBench_PassesSkill(t *testing.T) {
	t.Parallel()

	var skill string
	h := NewCandidateHandler(&mockCandidateService{
		benchFunc: func(ctx context.Context, s string, limit, offset int) ([]*model.Candidate, error) {
			skill = s
			return nil, nil
		},
	})

	rr := httptest.NewRecorder()
	h.Bench(rr, httptest.NewRequest(http.MethodGet, "/v1/bench?skill=kubernetes", nil))

	if rr.Code != http.StatusOK || skill != "kubernetes" {
		t.Errorf("got %d with skill %q", rr.Code, skill)
	}
}

func TestCandidateGet_NotFound(t *testing.T) {
	t.Parallel()

	h := NewCandidateHandler(&mockCandidateService{
		getFunc: func(ctx context.Context, id string) (*model.Candidate, error) {
			return nil, service.ErrCandidateNotFound
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/candidates/candidate:404", nil)
	req.SetPathValue("candidateId", "candidate:404")
	rr := httptest.NewRecorder()
	h.Get(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
	if p := parseErrorResponse(t, rr.Body.Bytes()); p.Detail != "candidate not found" {
		t.Errorf("unexpected detail %q", p.Detail)
	}
}

func TestCandidateClassify_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"no resume", service.ErrResumeRequired, http.StatusUnprocessableEntity},
		{"disabled", service.ErrClassifierDisabled, http.StatusServiceUnavailable},
		{"upstream failure", fmt.Errorf("%w: 500", service.ErrClassifierFailed), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewCandidateHandler(&mockCandidateService{
				classifyFunc: func(ctx context.Context, actorID, id string) (*model.Candidate, error) {
					return nil, tt.err
				},
			})

			req := withUserContext(httptest.NewRequest(http.MethodPost, "/v1/candidates/candidate:1/classify", nil), "user:rec")
			req.SetPathValue("candidateId", "candidate:1")
			rr := httptest.NewRecorder()
			h.Classify(rr, req)

			if rr.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rr.Code)
			}
		})
	}
}

func TestCandidateArchive_ReturnsNoContent(t *testing.T) {
	t.Parallel()

	var archived string
	h := NewCandidateHandler(&mockCandidateService{
		archiveFunc: func(ctx context.Context, actorID, id string) error {
			archived = id
			return nil
		},
	})

	req := withUserContext(httptest.NewRequest(http.MethodDelete, "/v1/candidates/candidate:7", nil), "user:rec")
	req.SetPathValue("candidateId", "candidate:7")
	rr := httptest.NewRecorder()
	h.Archive(rr, req)

	if rr.Code != http.StatusNoContent || archived != "candidate:7" {
		t.Errorf("got %d archiving %q", rr.Code, archived)
	}
}
