package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
)

// CampaignRepository handles outreach campaigns and their enrollments
type CampaignRepository struct {
	db database.Database
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db database.Database) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// Create creates a campaign
func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	fields := newFieldSet().
		set("name", c.Name).
		set("channel", c.Channel).
		set("status", c.Status).
		set("job_id", ptrToNone(c.JobID)).
		set("steps", c.Steps).
		set("owner_id", c.OwnerID).
		expr("created_on", "time::now()").
		expr("updated_on", "time::now()")

	result, err := r.db.Query(ctx, "CREATE campaign CONTENT "+fields.object(), fields.vars)
	if err != nil {
		return err
	}
	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	c.ID = created.ID
	c.CreatedOn = created.CreatedOn
	c.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByID retrieves a campaign by ID
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	result, err := r.db.QueryOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	c, err := decodeRecord[model.Campaign](result)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return c, err
}

// GetMany loads campaigns by ID in one query
func (r *CampaignRepository) GetMany(ctx context.Context, ids []string) (map[string]*model.Campaign, error) {
	out := make(map[string]*model.Campaign, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	result, err := r.db.Query(ctx, `SELECT * FROM campaign WHERE <string>id IN $ids`, map[string]interface{}{"ids": ids})
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[model.Campaign](result, 0)
	if err != nil {
		return nil, err
	}
	for _, c := range rows {
		out[c.ID] = c
	}
	return out, nil
}

// List returns campaigns, optionally filtered by status
func (r *CampaignRepository) List(ctx context.Context, status string, limit, offset int) ([]*model.Campaign, error) {
	query := `SELECT * FROM campaign`
	vars := map[string]interface{}{}
	if status != "" {
		query += ` WHERE status = $status`
		vars["status"] = status
	}
	query += ` ORDER BY created_on DESC LIMIT $limit START $offset`

	result, err := r.db.Query(ctx, query, pageVars(vars, limit, offset))
	if err != nil {
		return nil, err
	}
	return decodeRows[model.Campaign](result, 0)
}

// UpdateSteps replaces the steps of a campaign
func (r *CampaignRepository) UpdateSteps(ctx context.Context, id string, steps []model.CampaignStep) error {
	query := `UPDATE type::record($id) SET steps = $steps, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": id, "steps": steps})
}

// SetStatus changes a campaign's status
func (r *CampaignRepository) SetStatus(ctx context.Context, id string, status model.CampaignStatus) error {
	query := `UPDATE type::record($id) SET status = $status, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": id, "status": status})
}

// ============================================================================
// Enrollments
// ============================================================================

// Enroll adds a candidate to a campaign. (campaign_id, candidate_id) is uniquely
// indexed, so a second enrollment fails with database.ErrDuplicate.
func (r *CampaignRepository) Enroll(ctx context.Context, ce *model.CampaignEnrollment) error {
	fields := newFieldSet().
		set("campaign_id", ce.CampaignID).
		set("candidate_id", ce.CandidateID).
		set("current_step", ce.CurrentStep).
		set("status", ce.Status).
		optDatetime("next_run_at", ce.NextRunAt).
		expr("created_on", "time::now()").
		expr("updated_on", "time::now()")

	result, err := r.db.Query(ctx, "CREATE campaign_enrollment CONTENT "+fields.object(), fields.vars)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return fmt.Errorf("%w: candidate already in campaign", database.ErrDuplicate)
		}
		return err
	}
	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	ce.ID = created.ID
	ce.CreatedOn = created.CreatedOn
	ce.UpdatedOn = created.UpdatedOn
	return nil
}

// GetEnrollment retrieves a campaign enrollment by ID
func (r *CampaignRepository) GetEnrollment(ctx context.Context, id string) (*model.CampaignEnrollment, error) {
	result, err := r.db.QueryOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	ce, err := decodeRecord[model.CampaignEnrollment](result)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return ce, err
}

// ListEnrollments returns the enrollments of a campaign
func (r *CampaignRepository) ListEnrollments(ctx context.Context, campaignID, status string, limit, offset int) ([]*model.CampaignEnrollment, error) {
	query := `SELECT * FROM campaign_enrollment WHERE campaign_id = $campaign_id`
	vars := map[string]interface{}{"campaign_id": campaignID}
	if status != "" {
		query += ` AND status = $status`
		vars["status"] = status
	}
	query += ` ORDER BY created_on ASC LIMIT $limit START $offset`

	result, err := r.db.Query(ctx, query, pageVars(vars, limit, offset))
	if err != nil {
		return nil, err
	}
	return decodeRows[model.CampaignEnrollment](result, 0)
}

// DueEnrollments returns up to limit active enrollments whose next run is at or
// before now. Enrollments of draft or paused campaigns wait in place and are
// left out, so they cannot fill the batch ahead of sendable ones.
func (r *CampaignRepository) DueEnrollments(ctx context.Context, now time.Time, limit int) ([]*model.CampaignEnrollment, error) {
	query := `
		SELECT * FROM campaign_enrollment
		WHERE status = 'active' AND next_run_at != NONE AND next_run_at <= <datetime>$now
			AND campaign_id NOTINSIDE (SELECT VALUE <string>id FROM campaign WHERE status IN $held_statuses)
		ORDER BY next_run_at ASC
		LIMIT $limit
	`
	vars := map[string]interface{}{
		"now":           timeVar(now),
		"limit":         limit,
		"held_statuses": []model.CampaignStatus{model.CampaignStatusDraft, model.CampaignStatusPaused},
	}
	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return decodeRows[model.CampaignEnrollment](result, 0)
}

// SaveEnrollment writes the engine-owned fields of an enrollment
func (r *CampaignRepository) SaveEnrollment(ctx context.Context, ce *model.CampaignEnrollment) error {
	fields := newFieldSet().
		set("current_step", ce.CurrentStep).
		set("status", ce.Status).
		set("last_error", ptrToNone(ce.LastError)).
		expr("updated_on", "time::now()")
	if ce.NextRunAt != nil {
		fields.datetime("next_run_at", *ce.NextRunAt)
	} else {
		fields.expr("next_run_at", "NONE")
	}
	fields.vars["id"] = ce.ID

	return r.db.Execute(ctx, "UPDATE type::record($id) SET "+fields.assignments(), fields.vars)
}

// StopForCandidate stops every active enrollment of a candidate and returns their IDs
func (r *CampaignRepository) StopForCandidate(ctx context.Context, candidateID, reason string) ([]string, error) {
	query := `
		UPDATE campaign_enrollment
		SET status = 'stopped', next_run_at = NONE, last_error = $reason, updated_on = time::now()
		WHERE candidate_id = $candidate_id AND status = 'active'
		RETURN id
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"candidate_id": candidateID, "reason": reason})
	if err != nil {
		return nil, err
	}
	return extractIDs(result, 0), nil
}
