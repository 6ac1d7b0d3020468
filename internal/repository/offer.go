package repository

import (
	"context"
	"errors"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
)

// OfferRepository handles offer data access
type OfferRepository struct {
	db database.Database
}

// NewOfferRepository creates a new offer repository
func NewOfferRepository(db database.Database) *OfferRepository {
	return &OfferRepository{db: db}
}

// Create creates an offer and moves its submission to offered in one transaction
func (r *OfferRepository) Create(ctx context.Context, offer *model.Offer) error {
	fields := newFieldSet().
		set("submission_id", offer.SubmissionID).
		set("bill_rate", offer.BillRate).
		set("pay_rate", offer.PayRate).
		datetime("start_date", offer.StartDate).
		optDatetime("end_date", offer.EndDate).
		set("status", offer.Status).
		set("created_by", offer.CreatedBy).
		expr("created_on", "time::now()").
		expr("updated_on", "time::now()")

	tb := database.NewTxBuilder()
	tb.Add(`UPDATE type::record($submission_id) SET status = $status, updated_on = time::now()`,
		map[string]interface{}{"submission_id": offer.SubmissionID, "status": model.SubmissionStatusOffered})
	tb.Add("CREATE offer CONTENT "+fields.object(), fields.vars)

	result, err := database.ExecuteTransaction(ctx, r.db, tb)
	if err != nil {
		return err
	}
	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	offer.ID = created.ID
	offer.CreatedOn = created.CreatedOn
	offer.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByID retrieves an offer by ID
func (r *OfferRepository) GetByID(ctx context.Context, id string) (*model.Offer, error) {
	result, err := r.db.QueryOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	offer, err := decodeRecord[model.Offer](result)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return offer, err
}

// ListBySubmission returns the offers made on a submission, newest first
func (r *OfferRepository) ListBySubmission(ctx context.Context, submissionID string) ([]*model.Offer, error) {
	query := `SELECT * FROM offer WHERE submission_id = $submission_id ORDER BY created_on DESC`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"submission_id": submissionID})
	if err != nil {
		return nil, err
	}
	return decodeRows[model.Offer](result, 0)
}

// CountOutstanding counts draft or extended offers on a submission
func (r *OfferRepository) CountOutstanding(ctx context.Context, submissionID string) (int, error) {
	query := `SELECT count() AS count FROM offer WHERE submission_id = $submission_id AND status IN ['draft', 'extended'] GROUP ALL`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"submission_id": submissionID})
	if err != nil {
		return 0, err
	}
	return extractCount(result), nil
}

// SetStatus changes an offer's status
func (r *OfferRepository) SetStatus(ctx context.Context, id string, status model.OfferStatus) error {
	query := `UPDATE type::record($id) SET status = $status, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": id, "status": status})
}

// CloseOffer sets a declined or rescinded status and returns the submission to interview
func (r *OfferRepository) CloseOffer(ctx context.Context, offer *model.Offer, status model.OfferStatus) error {
	return database.NewAtomicBatch().
		Add(`UPDATE type::record($id) SET status = $status, updated_on = time::now()`,
			map[string]interface{}{"id": offer.ID, "status": status}).
		Add(`UPDATE type::record($id) SET status = $status, updated_on = time::now()`,
			map[string]interface{}{"id": offer.SubmissionID, "status": model.SubmissionStatusInterview}).
		Execute(ctx, r.db)
}
