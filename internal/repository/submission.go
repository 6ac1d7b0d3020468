package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
)

// SubmissionRepository handles candidate submissions to jobs
type SubmissionRepository struct {
	db database.Database
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db database.Database) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create creates a submission. (job_id, candidate_id) is uniquely indexed.
func (r *SubmissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	fields := newFieldSet().
		set("job_id", sub.JobID).
		set("candidate_id", sub.CandidateID).
		set("submitted_by", sub.SubmittedBy).
		set("status", sub.Status).
		opt("notes", sub.Notes).
		expr("created_on", "time::now()").
		expr("updated_on", "time::now()")

	result, err := r.db.Query(ctx, "CREATE submission CONTENT "+fields.object(), fields.vars)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return fmt.Errorf("%w: candidate already submitted to job", database.ErrDuplicate)
		}
		return err
	}
	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	sub.ID = created.ID
	sub.CreatedOn = created.CreatedOn
	sub.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByID retrieves a submission by ID
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	return r.getOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
}

// GetByJobAndCandidate finds the submission of a candidate to a job
func (r *SubmissionRepository) GetByJobAndCandidate(ctx context.Context, jobID, candidateID string) (*model.Submission, error) {
	query := `SELECT * FROM submission WHERE job_id = $job_id AND candidate_id = $candidate_id LIMIT 1`
	return r.getOne(ctx, query, map[string]interface{}{"job_id": jobID, "candidate_id": candidateID})
}

func (r *SubmissionRepository) getOne(ctx context.Context, query string, vars map[string]interface{}) (*model.Submission, error) {
	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	sub, err := decodeRecord[model.Submission](result)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return sub, err
}

// List returns submissions filtered by job, candidate and status
func (r *SubmissionRepository) List(ctx context.Context, jobID, candidateID, status string, limit, offset int) ([]*model.Submission, error) {
	query := `SELECT * FROM submission WHERE true`
	vars := map[string]interface{}{}
	if jobID != "" {
		query += ` AND job_id = $job_id`
		vars["job_id"] = jobID
	}
	if candidateID != "" {
		query += ` AND candidate_id = $candidate_id`
		vars["candidate_id"] = candidateID
	}
	if status != "" {
		query += ` AND status = $status`
		vars["status"] = status
	}
	query += ` ORDER BY updated_on DESC LIMIT $limit START $offset`

	result, err := r.db.Query(ctx, query, pageVars(vars, limit, offset))
	if err != nil {
		return nil, err
	}
	return decodeRows[model.Submission](result, 0)
}

// SetStatus changes a submission's status
func (r *SubmissionRepository) SetStatus(ctx context.Context, id string, status model.SubmissionStatus) error {
	query := `UPDATE type::record($id) SET status = $status, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": id, "status": status})
}
