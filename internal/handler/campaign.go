package handler

import (
	"context"
	"net/http"

	"github.com/forgo/staffhub/internal/model"
)

// CampaignManager is the subset of the campaign service used by CampaignHandler
type CampaignManager interface {
	Create(ctx context.Context, actorID string, req *model.CreateCampaignRequest) (*model.Campaign, error)
	Get(ctx context.Context, id string) (*model.Campaign, error)
	List(ctx context.Context, status string, limit, offset int) ([]*model.Campaign, error)
	UpdateSteps(ctx context.Context, actorID, id string, req *model.UpdateStepsRequest) (*model.Campaign, error)
	ChangeStatus(ctx context.Context, actorID, id string, req *model.ChangeStatusRequest) (*model.Campaign, error)
	Enroll(ctx context.Context, actorID, campaignID string, req *model.EnrollCandidatesRequest) ([]*model.CampaignEnrollment, error)
	ListEnrollments(ctx context.Context, campaignID, status string, limit, offset int) ([]*model.CampaignEnrollment, error)
	StopEnrollment(ctx context.Context, actorID, enrollmentID string) (*model.CampaignEnrollment, error)
	RunNow(ctx context.Context, actorID string) (*model.RunReport, error)
}

// CampaignHandler handles outreach campaign endpoints
type CampaignHandler struct {
	campaigns CampaignManager
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaigns CampaignManager) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns}
}

func campaignLinks(id string) map[string]string {
	return map[string]string{
		"self":        "/v1/campaigns/" + id,
		"enrollments": "/v1/campaigns/" + id + "/enrollments",
	}
}

// Create handles POST /v1/campaigns
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateCampaignRequest
	if !decodeBody(w, r, &req) {
		return
	}

	campaign, err := h.campaigns.Create(r.Context(), actorID, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusCreated, campaign, campaignLinks(campaign.ID))
}

// Get handles GET /v1/campaigns/{campaignId}
func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "campaignId", "campaign")
	if !ok {
		return
	}

	campaign, err := h.campaigns.Get(r.Context(), id)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, campaign, campaignLinks(campaign.ID))
}

// List handles GET /v1/campaigns
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perr := ParsePage(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	campaigns, err := h.campaigns.List(r.Context(), r.URL.Query().Get("status"), page.Limit, page.Offset)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, campaigns, page.Info(len(campaigns)), nil)
}

// UpdateSteps handles PUT /v1/campaigns/{campaignId}/steps
func (h *CampaignHandler) UpdateSteps(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "campaignId", "campaign")
	if !ok {
		return
	}

	var req model.UpdateStepsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	campaign, err := h.campaigns.UpdateSteps(r.Context(), actorID, id, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, campaign, campaignLinks(campaign.ID))
}

// ChangeStatus handles POST /v1/campaigns/{campaignId}/status
func (h *CampaignHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "campaignId", "campaign")
	if !ok {
		return
	}

	var req model.ChangeStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	campaign, err := h.campaigns.ChangeStatus(r.Context(), actorID, id, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, campaign, campaignLinks(campaign.ID))
}

// Enroll handles POST /v1/campaigns/{campaignId}/enrollments
func (h *CampaignHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "campaignId", "campaign")
	if !ok {
		return
	}

	var req model.EnrollCandidatesRequest
	if !decodeBody(w, r, &req) {
		return
	}

	enrollments, err := h.campaigns.Enroll(r.Context(), actorID, id, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusCreated, enrollments, nil, campaignLinks(id))
}

// ListEnrollments handles GET /v1/campaigns/{campaignId}/enrollments
func (h *CampaignHandler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "campaignId", "campaign")
	if !ok {
		return
	}
	page, perr := ParsePage(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	enrollments, err := h.campaigns.ListEnrollments(r.Context(), id, r.URL.Query().Get("status"), page.Limit, page.Offset)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, enrollments, page.Info(len(enrollments)), nil)
}

// StopEnrollment handles POST /v1/campaign-enrollments/{enrollmentId}/stop
func (h *CampaignHandler) StopEnrollment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "enrollmentId", "enrollment")
	if !ok {
		return
	}

	enrollment, err := h.campaigns.StopEnrollment(r.Context(), actorID, id)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, enrollment, nil)
}

// Run handles POST /v1/admin/campaigns/run, processing every due step now
func (h *CampaignHandler) Run(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	report, err := h.campaigns.RunNow(r.Context(), actorID)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "campaign run"))
		return
	}

	WriteData(w, http.StatusOK, report, nil)
}
