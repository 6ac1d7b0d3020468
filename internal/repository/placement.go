package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
	"github.com/google/uuid"
)

// PlacementRepository handles placements and the offer acceptance write
type PlacementRepository struct {
	db database.Database
}

// NewPlacementRepository creates a new placement repository
func NewPlacementRepository(db database.Database) *PlacementRepository {
	return &PlacementRepository{db: db}
}

// AcceptOffer writes every effect of an accepted offer in one transaction:
// the placement, the offer and submission statuses, the candidate status, and
// the job's openings (the job becomes filled when the last opening is taken).
func (r *PlacementRepository) AcceptOffer(ctx context.Context, offer *model.Offer, p *model.Placement) error {
	key := strings.ReplaceAll(uuid.NewString(), "-", "")

	fields := newFieldSet().
		set("candidate_id", p.CandidateID).
		set("job_id", p.JobID).
		set("submission_id", p.SubmissionID).
		set("offer_id", p.OfferID).
		datetime("start_date", p.StartDate).
		optDatetime("end_date", p.EndDate).
		set("bill_rate", p.BillRate).
		set("pay_rate", p.PayRate).
		set("margin", p.Margin).
		set("margin_pct", p.MarginPct).
		set("status", p.Status).
		expr("created_on", "time::now()").
		expr("updated_on", "time::now()")
	createVars := fields.vars
	createVars["key"] = key

	err := database.NewAtomicBatch().
		Add(`CREATE type::thing('placement', $key) CONTENT `+fields.object(), createVars).
		Add(`UPDATE type::record($id) SET status = 'accepted', updated_on = time::now()`,
			map[string]interface{}{"id": offer.ID}).
		Add(`UPDATE type::record($id) SET status = 'placed', updated_on = time::now()`,
			map[string]interface{}{"id": p.SubmissionID}).
		Add(`UPDATE type::record($id) SET status = 'placed', updated_on = time::now()`,
			map[string]interface{}{"id": p.CandidateID}).
		Add(`UPDATE type::record($id) SET
				status = IF openings <= 1 THEN 'filled' ELSE status END,
				openings = math::max([openings - 1, 0]),
				updated_on = time::now()`,
			map[string]interface{}{"id": p.JobID}).
		Execute(ctx, r.db)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	p.ID = "placement:" + key
	p.CreatedOn = now
	p.UpdatedOn = now
	return nil
}

// GetByID retrieves a placement by ID
func (r *PlacementRepository) GetByID(ctx context.Context, id string) (*model.Placement, error) {
	result, err := r.db.QueryOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	p, err := decodeRecord[model.Placement](result)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// List returns placements filtered by status and candidate
func (r *PlacementRepository) List(ctx context.Context, status, candidateID string, limit, offset int) ([]*model.Placement, error) {
	query := `SELECT * FROM placement WHERE true`
	vars := map[string]interface{}{}
	if status != "" {
		query += ` AND status = $status`
		vars["status"] = status
	}
	if candidateID != "" {
		query += ` AND candidate_id = $candidate_id`
		vars["candidate_id"] = candidateID
	}
	query += ` ORDER BY start_date DESC LIMIT $limit START $offset`

	result, err := r.db.Query(ctx, query, pageVars(vars, limit, offset))
	if err != nil {
		return nil, err
	}
	return decodeRows[model.Placement](result, 0)
}

// End closes a placement and puts the candidate back on the bench
func (r *PlacementRepository) End(ctx context.Context, p *model.Placement, status model.PlacementStatus, endDate time.Time) error {
	return database.NewAtomicBatch().
		Add(`UPDATE type::record($id) SET status = $status, end_date = <datetime>$end_date, updated_on = time::now()`,
			map[string]interface{}{"id": p.ID, "status": status, "end_date": timeVar(endDate)}).
		Add(`UPDATE type::record($id) SET status = $status, updated_on = time::now()`,
			map[string]interface{}{"id": p.CandidateID, "status": model.CandidateStatusBench}).
		Execute(ctx, r.db)
}
