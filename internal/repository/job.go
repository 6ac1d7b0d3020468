package repository

import (
	"context"
	"errors"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
)

// JobRepository handles job requisition data access
type JobRepository struct {
	db database.Database
}

// NewJobRepository creates a new job repository
func NewJobRepository(db database.Database) *JobRepository {
	return &JobRepository{db: db}
}

// Create creates a new job
func (r *JobRepository) Create(ctx context.Context, job *model.Job) error {
	fields := jobFields(job).
		set("account_id", job.AccountID).
		set("status", job.Status).
		set("archived", false).
		expr("created_on", "time::now()").
		expr("updated_on", "time::now()")

	result, err := r.db.Query(ctx, "CREATE job CONTENT "+fields.object(), fields.vars)
	if err != nil {
		return err
	}
	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	job.ID = created.ID
	job.CreatedOn = created.CreatedOn
	job.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByID retrieves a job by ID
func (r *JobRepository) GetByID(ctx context.Context, id string) (*model.Job, error) {
	result, err := r.db.QueryOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	job, err := decodeRecord[model.Job](result)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return job, err
}

// List returns non-archived jobs, newest first
func (r *JobRepository) List(ctx context.Context, status, accountID string, limit, offset int) ([]*model.Job, error) {
	query := `SELECT * FROM job WHERE archived = false`
	vars := map[string]interface{}{}
	if status != "" {
		query += ` AND status = $status`
		vars["status"] = status
	}
	if accountID != "" {
		query += ` AND account_id = $account_id`
		vars["account_id"] = accountID
	}
	query += ` ORDER BY created_on DESC LIMIT $limit START $offset`

	result, err := r.db.Query(ctx, query, pageVars(vars, limit, offset))
	if err != nil {
		return nil, err
	}
	return decodeRows[model.Job](result, 0)
}

// Update writes every mutable field of job
func (r *JobRepository) Update(ctx context.Context, job *model.Job) error {
	fields := jobFields(job).expr("updated_on", "time::now()")
	fields.vars["id"] = job.ID
	return r.db.Execute(ctx, "UPDATE type::record($id) SET "+fields.assignments(), fields.vars)
}

// SetStatus changes the job status
func (r *JobRepository) SetStatus(ctx context.Context, id string, status model.JobStatus) error {
	query := `UPDATE type::record($id) SET status = $status, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": id, "status": status})
}

// Archive soft-deletes a job
func (r *JobRepository) Archive(ctx context.Context, id string) error {
	query := `UPDATE type::record($id) SET archived = true, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": id})
}

func jobFields(job *model.Job) *fieldSet {
	skills := job.Skills
	if skills == nil {
		skills = []string{}
	}
	return newFieldSet().
		set("title", job.Title).
		set("description", job.Description).
		set("location", ptrToNone(job.Location)).
		set("remote", job.Remote).
		set("employment_type", job.EmploymentType).
		set("openings", job.Openings).
		set("bill_rate", floatToNone(job.BillRate)).
		set("pay_rate", floatToNone(job.PayRate)).
		set("skills", skills).
		set("owner_id", job.OwnerID)
}

func floatToNone(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
