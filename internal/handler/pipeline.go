package handler

import (
	"context"
	"net/http"

	"github.com/forgo/staffhub/internal/model"
)

// PipelineManager is the subset of the pipeline service used by PipelineHandler
type PipelineManager interface {
	Submit(ctx context.Context, actorID string, req *model.CreateSubmissionRequest) (*model.Submission, error)
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	ListSubmissions(ctx context.Context, jobID, candidateID, status string, limit, offset int) ([]*model.Submission, error)
	MoveSubmission(ctx context.Context, actorID, id string, req *model.ChangeStatusRequest) (*model.Submission, error)
	CreateOffer(ctx context.Context, actorID string, req *model.CreateOfferRequest) (*model.Offer, error)
	GetOffer(ctx context.Context, id string) (*model.Offer, error)
	ListOffers(ctx context.Context, submissionID string) ([]*model.Offer, error)
	ChangeOfferStatus(ctx context.Context, actorID, id string, req *model.ChangeStatusRequest) (*model.Offer, *model.Placement, error)
	GetPlacement(ctx context.Context, id string) (*model.Placement, error)
	ListPlacements(ctx context.Context, status, candidateID string, limit, offset int) ([]*model.Placement, error)
	EndPlacement(ctx context.Context, actorID, id string, req *model.EndPlacementRequest) (*model.Placement, error)
}

// PipelineHandler handles submissions, offers and placements
type PipelineHandler struct {
	pipeline PipelineManager
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(pipeline PipelineManager) *PipelineHandler {
	return &PipelineHandler{pipeline: pipeline}
}

// OfferDecision is returned when an offer changes status. Placement is set
// only when the offer was accepted.
type OfferDecision struct {
	Offer     *model.Offer     `json:"offer"`
	Placement *model.Placement `json:"placement,omitempty"`
}

func submissionLinks(s *model.Submission) map[string]string {
	return map[string]string{
		"self":      "/v1/submissions/" + s.ID,
		"job":       "/v1/jobs/" + s.JobID,
		"candidate": "/v1/candidates/" + s.CandidateID,
		"offers":    "/v1/submissions/" + s.ID + "/offers",
	}
}

// Submit handles POST /v1/submissions
func (h *PipelineHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateSubmissionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sub, err := h.pipeline.Submit(r.Context(), actorID, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusCreated, sub, submissionLinks(sub))
}

// GetSubmission handles GET /v1/submissions/{submissionId}
func (h *PipelineHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "submissionId", "submission")
	if !ok {
		return
	}

	sub, err := h.pipeline.GetSubmission(r.Context(), id)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, sub, submissionLinks(sub))
}

// ListSubmissions handles GET /v1/submissions
func (h *PipelineHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	page, perr := ParsePage(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	q := r.URL.Query()
	subs, err := h.pipeline.ListSubmissions(r.Context(), q.Get("job_id"), q.Get("candidate_id"), q.Get("status"), page.Limit, page.Offset)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, subs, page.Info(len(subs)), nil)
}

// MoveSubmission handles POST /v1/submissions/{submissionId}/status
func (h *PipelineHandler) MoveSubmission(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "submissionId", "submission")
	if !ok {
		return
	}

	var req model.ChangeStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sub, err := h.pipeline.MoveSubmission(r.Context(), actorID, id, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, sub, submissionLinks(sub))
}

// CreateOffer handles POST /v1/offers
func (h *PipelineHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateOfferRequest
	if !decodeBody(w, r, &req) {
		return
	}

	offer, err := h.pipeline.CreateOffer(r.Context(), actorID, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusCreated, offer, map[string]string{
		"self":       "/v1/offers/" + offer.ID,
		"submission": "/v1/submissions/" + offer.SubmissionID,
	})
}

// GetOffer handles GET /v1/offers/{offerId}
func (h *PipelineHandler) GetOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "offerId", "offer")
	if !ok {
		return
	}

	offer, err := h.pipeline.GetOffer(r.Context(), id)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, offer, nil)
}

// ListOffers handles GET /v1/submissions/{submissionId}/offers
func (h *PipelineHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "submissionId", "submission")
	if !ok {
		return
	}

	offers, err := h.pipeline.ListOffers(r.Context(), id)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, offers, nil, nil)
}

// ChangeOfferStatus handles POST /v1/offers/{offerId}/status. Accepting an
// offer creates the placement in the same call.
func (h *PipelineHandler) ChangeOfferStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "offerId", "offer")
	if !ok {
		return
	}

	var req model.ChangeStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	offer, placement, err := h.pipeline.ChangeOfferStatus(r.Context(), actorID, id, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	var links map[string]string
	if placement != nil {
		links = map[string]string{"placement": "/v1/placements/" + placement.ID}
	}
	WriteData(w, http.StatusOK, OfferDecision{Offer: offer, Placement: placement}, links)
}

// GetPlacement handles GET /v1/placements/{placementId}
func (h *PipelineHandler) GetPlacement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "placementId", "placement")
	if !ok {
		return
	}

	placement, err := h.pipeline.GetPlacement(r.Context(), id)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, placement, map[string]string{
		"self":      "/v1/placements/" + placement.ID,
		"candidate": "/v1/candidates/" + placement.CandidateID,
		"job":       "/v1/jobs/" + placement.JobID,
	})
}

// ListPlacements handles GET /v1/placements
func (h *PipelineHandler) ListPlacements(w http.ResponseWriter, r *http.Request) {
	page, perr := ParsePage(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	q := r.URL.Query()
	placements, err := h.pipeline.ListPlacements(r.Context(), q.Get("status"), q.Get("candidate_id"), page.Limit, page.Offset)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, placements, page.Info(len(placements)), nil)
}

// EndPlacement handles POST /v1/placements/{placementId}/end
func (h *PipelineHandler) EndPlacement(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "placementId", "placement")
	if !ok {
		return
	}

	var req model.EndPlacementRequest
	if !decodeBody(w, r, &req) {
		return
	}

	placement, err := h.pipeline.EndPlacement(r.Context(), actorID, id, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, placement, nil)
}
