package handler

import (
	"context"
	"net/http"

	"github.com/forgo/staffhub/internal/model"
)

// GDPRManager is the subset of the GDPR service used by GDPRHandler
type GDPRManager interface {
	Discover(ctx context.Context, actorID string, req *model.GDPRSubjectRequest) (*model.GDPRRequest, model.DiscoveryResult, error)
	Export(ctx context.Context, actorID string, req *model.GDPRSubjectRequest) (*model.GDPRExport, error)
	Anonymize(ctx context.Context, actorID string, req *model.GDPRSubjectRequest) (*model.GDPRRequest, error)
	GetRequest(ctx context.Context, id string) (*model.GDPRRequest, error)
	ListRequests(ctx context.Context, limit, offset int) ([]*model.GDPRRequest, error)
}

// GDPRHandler handles data-subject requests. All routes are admin only.
type GDPRHandler struct {
	gdpr GDPRManager
}

// NewGDPRHandler creates a new GDPR handler
func NewGDPRHandler(gdpr GDPRManager) *GDPRHandler {
	return &GDPRHandler{gdpr: gdpr}
}

// DiscoveryResponse lists where a subject's personal data lives
type DiscoveryResponse struct {
	Request *model.GDPRRequest    `json:"request"`
	Found   model.DiscoveryResult `json:"found"`
	Total   int                   `json:"total"`
}

// Discover handles POST /v1/gdpr/discover
func (h *GDPRHandler) Discover(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.GDPRSubjectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	request, found, err := h.gdpr.Discover(r.Context(), actorID, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, DiscoveryResponse{Request: request, Found: found, Total: found.Total()}, nil)
}

// Export handles POST /v1/gdpr/export
func (h *GDPRHandler) Export(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.GDPRSubjectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	export, err := h.gdpr.Export(r.Context(), actorID, &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "gdpr export"))
		return
	}

	WriteData(w, http.StatusOK, export, map[string]string{
		"request": "/v1/gdpr/requests/" + export.RequestID,
	})
}

// Anonymize handles POST /v1/gdpr/anonymize
func (h *GDPRHandler) Anonymize(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.GDPRSubjectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	request, err := h.gdpr.Anonymize(r.Context(), actorID, &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "gdpr anonymize"))
		return
	}

	WriteData(w, http.StatusOK, request, map[string]string{
		"self": "/v1/gdpr/requests/" + request.ID,
	})
}

// GetRequest handles GET /v1/gdpr/requests/{requestId}
func (h *GDPRHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "requestId", "request")
	if !ok {
		return
	}

	request, err := h.gdpr.GetRequest(r.Context(), id)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, request, nil)
}

// ListRequests handles GET /v1/gdpr/requests
func (h *GDPRHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	page, perr := ParsePage(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	requests, err := h.gdpr.ListRequests(r.Context(), page.Limit, page.Offset)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, requests, page.Info(len(requests)), nil)
}
