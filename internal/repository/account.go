package repository

import (
	"context"
	"errors"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
)

// AccountRepository handles client accounts and their deals
type AccountRepository struct {
	db database.Database
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db database.Database) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	fields := newFieldSet().
		set("name", account.Name).
		opt("industry", account.Industry).
		opt("website", account.Website).
		set("status", account.Status).
		set("owner_id", account.OwnerID).
		opt("notes", account.Notes).
		set("archived", false).
		expr("created_on", "time::now()").
		expr("updated_on", "time::now()")
	if account.Contact != nil {
		fields.set("contact", account.Contact)
	}

	result, err := r.db.Query(ctx, "CREATE account CONTENT "+fields.object(), fields.vars)
	if err != nil {
		return err
	}
	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	account.ID = created.ID
	account.CreatedOn = created.CreatedOn
	account.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	result, err := r.db.QueryOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	account, err := decodeRecord[model.Account](result)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return account, err
}

// List returns non-archived accounts, optionally filtered by status
func (r *AccountRepository) List(ctx context.Context, status string, limit, offset int) ([]*model.Account, error) {
	query := `SELECT * FROM account WHERE archived = false`
	vars := map[string]interface{}{}
	if status != "" {
		query += ` AND status = $status`
		vars["status"] = status
	}
	query += ` ORDER BY name ASC LIMIT $limit START $offset`

	result, err := r.db.Query(ctx, query, pageVars(vars, limit, offset))
	if err != nil {
		return nil, err
	}
	return decodeRows[model.Account](result, 0)
}

// Update applies a partial update and returns the stored account
func (r *AccountRepository) Update(ctx context.Context, id string, req *model.UpdateAccountRequest) (*model.Account, error) {
	fields := newFieldSet().
		opt("name", req.Name).
		opt("industry", req.Industry).
		opt("website", req.Website).
		opt("status", req.Status).
		opt("owner_id", req.OwnerID).
		opt("notes", req.Notes).
		expr("updated_on", "time::now()")
	if req.Contact != nil {
		fields.set("contact", req.Contact)
	}
	fields.vars["id"] = id

	result, err := r.db.Query(ctx, "UPDATE type::record($id) SET "+fields.assignments()+" RETURN AFTER", fields.vars)
	if err != nil {
		return nil, err
	}
	rows := statementRows(result, 0)
	if len(rows) == 0 {
		return nil, nil
	}
	return decodeRecord[model.Account](rows[0])
}

// SetStatus updates only the account status
func (r *AccountRepository) SetStatus(ctx context.Context, id string, status model.AccountStatus) error {
	query := `UPDATE type::record($id) SET status = $status, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": id, "status": status})
}

// Archive soft-deletes an account
func (r *AccountRepository) Archive(ctx context.Context, id string) error {
	query := `UPDATE type::record($id) SET archived = true, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": id})
}

// CreateDeal creates a new deal
func (r *AccountRepository) CreateDeal(ctx context.Context, deal *model.Deal) error {
	fields := newFieldSet().
		set("account_id", deal.AccountID).
		set("title", deal.Title).
		set("value", deal.Value).
		set("stage", deal.Stage).
		set("owner_id", deal.OwnerID).
		expr("created_on", "time::now()").
		expr("updated_on", "time::now()")

	result, err := r.db.Query(ctx, "CREATE deal CONTENT "+fields.object(), fields.vars)
	if err != nil {
		return err
	}
	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	deal.ID = created.ID
	deal.CreatedOn = created.CreatedOn
	deal.UpdatedOn = created.UpdatedOn
	return nil
}

// GetDeal retrieves a deal by ID
func (r *AccountRepository) GetDeal(ctx context.Context, id string) (*model.Deal, error) {
	result, err := r.db.QueryOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	deal, err := decodeRecord[model.Deal](result)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return deal, err
}

// ListDeals returns the deals of an account, newest first
func (r *AccountRepository) ListDeals(ctx context.Context, accountID string) ([]*model.Deal, error) {
	query := `SELECT * FROM deal WHERE account_id = $account_id ORDER BY created_on DESC`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"account_id": accountID})
	if err != nil {
		return nil, err
	}
	return decodeRows[model.Deal](result, 0)
}

// SetDealStage moves a deal. closed_on is stamped for terminal stages.
func (r *AccountRepository) SetDealStage(ctx context.Context, id string, stage model.DealStage, closed bool) error {
	query := `UPDATE type::record($id) SET stage = $stage, updated_on = time::now()`
	if closed {
		query += `, closed_on = time::now()`
	}
	return r.db.Execute(ctx, query, map[string]interface{}{"id": id, "stage": stage})
}
