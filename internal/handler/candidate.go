package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/forgo/staffhub/internal/model"
)

// CandidateManager is the subset of the candidate service used by CandidateHandler
type CandidateManager interface {
	Create(ctx context.Context, actorID string, req *model.CreateCandidateRequest) (*model.Candidate, error)
	Get(ctx context.Context, id string) (*model.Candidate, error)
	List(ctx context.Context, filter model.CandidateFilter) ([]*model.Candidate, error)
	Bench(ctx context.Context, skill string, limit, offset int) ([]*model.Candidate, error)
	Update(ctx context.Context, actorID, id string, req *model.UpdateCandidateRequest) (*model.Candidate, error)
	Archive(ctx context.Context, actorID, id string) error
	Classify(ctx context.Context, actorID, id string) (*model.Candidate, error)
}

// CandidateHandler handles candidate and bench endpoints
type CandidateHandler struct {
	candidates CandidateManager
}

// NewCandidateHandler creates a new candidate handler
func NewCandidateHandler(candidates CandidateManager) *CandidateHandler {
	return &CandidateHandler{candidates: candidates}
}

func candidateLinks(id string) map[string]string {
	return map[string]string{
		"self":        "/v1/candidates/" + id,
		"submissions": "/v1/submissions?candidate_id=" + id,
		"placements":  "/v1/placements?candidate_id=" + id,
	}
}

// Create handles POST /v1/candidates
func (h *CandidateHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateCandidateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	candidate, err := h.candidates.Create(r.Context(), actorID, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusCreated, candidate, candidateLinks(candidate.ID))
}

// Get handles GET /v1/candidates/{candidateId}
func (h *CandidateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "candidateId", "candidate")
	if !ok {
		return
	}

	candidate, err := h.candidates.Get(r.Context(), id)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, candidate, candidateLinks(candidate.ID))
}

// List handles GET /v1/candidates
func (h *CandidateHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perr := ParsePage(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	q := r.URL.Query()
	filter := model.CandidateFilter{
		Status:  q.Get("status"),
		Skill:   q.Get("skill"),
		OwnerID: q.Get("owner_id"),
		Limit:   page.Limit,
		Offset:  page.Offset,
	}
	if v := q.Get("flagged"); v != "" {
		flagged, err := strconv.ParseBool(v)
		if err != nil {
			WriteError(w, model.NewBadRequestError("flagged must be true or false"))
			return
		}
		filter.Flagged = &flagged
	}

	candidates, err := h.candidates.List(r.Context(), filter)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, candidates, page.Info(len(candidates)), nil)
}

// Bench handles GET /v1/bench
func (h *CandidateHandler) Bench(w http.ResponseWriter, r *http.Request) {
	page, perr := ParsePage(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	candidates, err := h.candidates.Bench(r.Context(), r.URL.Query().Get("skill"), page.Limit, page.Offset)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, candidates, page.Info(len(candidates)), nil)
}

// Update handles PATCH /v1/candidates/{candidateId}
func (h *CandidateHandler) Update(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "candidateId", "candidate")
	if !ok {
		return
	}

	var req model.UpdateCandidateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	candidate, err := h.candidates.Update(r.Context(), actorID, id, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, candidate, candidateLinks(candidate.ID))
}

// Archive handles DELETE /v1/candidates/{candidateId}
func (h *CandidateHandler) Archive(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "candidateId", "candidate")
	if !ok {
		return
	}

	if err := h.candidates.Archive(r.Context(), actorID, id); err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteNoContent(w)
}

// Classify handles POST /v1/candidates/{candidateId}/classify
func (h *CandidateHandler) Classify(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "candidateId", "candidate")
	if !ok {
		return
	}

	candidate, err := h.candidates.Classify(r.Context(), actorID, id)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "classify candidate"))
		return
	}

	WriteData(w, http.StatusOK, candidate, candidateLinks(candidate.ID))
}
