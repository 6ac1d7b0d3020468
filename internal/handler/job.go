package handler

import (
	"context"
	"net/http"

	"github.com/forgo/staffhub/internal/model"
)

// JobManager is the subset of the job service used by JobHandler
type JobManager interface {
	Create(ctx context.Context, actorID string, req *model.CreateJobRequest) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, status, accountID string, limit, offset int) ([]*model.Job, error)
	Update(ctx context.Context, actorID, id string, req *model.UpdateJobRequest) (*model.Job, error)
	ChangeStatus(ctx context.Context, actorID, id string, req *model.ChangeStatusRequest) (*model.Job, error)
	Archive(ctx context.Context, actorID, id string) error
}

// JobHandler handles job requisition endpoints
type JobHandler struct {
	jobs JobManager
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs JobManager) *JobHandler {
	return &JobHandler{jobs: jobs}
}

func jobLinks(job *model.Job) map[string]string {
	return map[string]string{
		"self":        "/v1/jobs/" + job.ID,
		"account":     "/v1/accounts/" + job.AccountID,
		"submissions": "/v1/submissions?job_id=" + job.ID,
	}
}

// Create handles POST /v1/jobs
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateJobRequest
	if !decodeBody(w, r, &req) {
		return
	}

	job, err := h.jobs.Create(r.Context(), actorID, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusCreated, job, jobLinks(job))
}

// Get handles GET /v1/jobs/{jobId}
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "jobId", "job")
	if !ok {
		return
	}

	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, job, jobLinks(job))
}

// List handles GET /v1/jobs
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perr := ParsePage(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	q := r.URL.Query()
	jobs, err := h.jobs.List(r.Context(), q.Get("status"), q.Get("account_id"), page.Limit, page.Offset)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, jobs, page.Info(len(jobs)), nil)
}

// Update handles PATCH /v1/jobs/{jobId}
func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "jobId", "job")
	if !ok {
		return
	}

	var req model.UpdateJobRequest
	if !decodeBody(w, r, &req) {
		return
	}

	job, err := h.jobs.Update(r.Context(), actorID, id, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, job, jobLinks(job))
}

// ChangeStatus handles POST /v1/jobs/{jobId}/status
func (h *JobHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "jobId", "job")
	if !ok {
		return
	}

	var req model.ChangeStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	job, err := h.jobs.ChangeStatus(r.Context(), actorID, id, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, job, jobLinks(job))
}

// Archive handles DELETE /v1/jobs/{jobId}
func (h *JobHandler) Archive(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "jobId", "job")
	if !ok {
		return
	}

	if err := h.jobs.Archive(r.Context(), actorID, id); err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteNoContent(w)
}
