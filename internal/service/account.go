package service

import (
	"context"

	"github.com/forgo/staffhub/internal/model"
)

// AccountRepository defines the interface for account and deal storage
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id string) (*model.Account, error)
	List(ctx context.Context, status string, limit, offset int) ([]*model.Account, error)
	Update(ctx context.Context, id string, req *model.UpdateAccountRequest) (*model.Account, error)
	SetStatus(ctx context.Context, id string, status model.AccountStatus) error
	Archive(ctx context.Context, id string) error
	CreateDeal(ctx context.Context, deal *model.Deal) error
	GetDeal(ctx context.Context, id string) (*model.Deal, error)
	ListDeals(ctx context.Context, accountID string) ([]*model.Deal, error)
	SetDealStage(ctx context.Context, id string, stage model.DealStage, closed bool) error
}

// AccountService handles CRM business logic
type AccountService struct {
	repo    AccountRepository
	auditor Auditor
}

// AccountServiceConfig holds configuration for the account service
type AccountServiceConfig struct {
	Repo    AccountRepository
	Auditor Auditor
}

// NewAccountService creates a new account service
func NewAccountService(cfg AccountServiceConfig) *AccountService {
	return &AccountService{
		repo:    cfg.Repo,
		auditor: auditorOrNoop(cfg.Auditor),
	}
}

// Create creates an account owned by the caller
func (s *AccountService) Create(ctx context.Context, actorID string, req *model.CreateAccountRequest) (*model.Account, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	status := model.AccountStatus(req.Status)
	if status == "" {
		status = model.AccountStatusProspect
	}
	if req.Contact != nil {
		req.Contact.Email = model.NormalizeEmail(req.Contact.Email)
	}

	account := &model.Account{
		Name:     req.Name,
		Industry: req.Industry,
		Website:  req.Website,
		Status:   status,
		OwnerID:  actorID,
		Contact:  req.Contact,
		Notes:    req.Notes,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditCreate, "account", account.ID, nil)
	return account, nil
}

// Get returns an account, archived or not
func (s *AccountService) Get(ctx context.Context, id string) (*model.Account, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// GetActive returns an account that can take new jobs or deals
func (s *AccountService) GetActive(ctx context.Context, id string) (*model.Account, error) {
	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.Archived {
		return nil, ErrAccountArchived
	}
	return account, nil
}

// List returns accounts filtered by status
func (s *AccountService) List(ctx context.Context, status string, limit, offset int) ([]*model.Account, error) {
	return s.repo.List(ctx, status, model.ClampLimit(limit), offset)
}

// Update applies a partial update
func (s *AccountService) Update(ctx context.Context, actorID, id string, req *model.UpdateAccountRequest) (*model.Account, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}
	if _, err := s.GetActive(ctx, id); err != nil {
		return nil, err
	}
	if req.Contact != nil {
		req.Contact.Email = model.NormalizeEmail(req.Contact.Email)
	}

	account, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	s.auditor.Record(ctx, actorID, model.AuditUpdate, "account", id, nil)
	return account, nil
}

// Archive soft-deletes an account
func (s *AccountService) Archive(ctx context.Context, actorID, id string) error {
	account, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if account.Archived {
		return nil
	}
	if err := s.repo.Archive(ctx, id); err != nil {
		return err
	}
	s.auditor.Record(ctx, actorID, model.AuditArchive, "account", id, nil)
	return nil
}

// CreateDeal opens a deal against an active account
func (s *AccountService) CreateDeal(ctx context.Context, actorID, accountID string, req *model.CreateDealRequest) (*model.Deal, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}
	if _, err := s.GetActive(ctx, accountID); err != nil {
		return nil, err
	}

	deal := &model.Deal{
		AccountID: accountID,
		Title:     req.Title,
		Value:     req.Value,
		Stage:     model.DealStageProspecting,
		OwnerID:   actorID,
	}
	if err := s.repo.CreateDeal(ctx, deal); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditCreate, "deal", deal.ID, map[string]any{"account_id": accountID})
	return deal, nil
}

// ListDeals returns the deals of an account
func (s *AccountService) ListDeals(ctx context.Context, accountID string) ([]*model.Deal, error) {
	if _, err := s.Get(ctx, accountID); err != nil {
		return nil, err
	}
	return s.repo.ListDeals(ctx, accountID)
}

// MoveDeal changes a deal's stage. Winning a deal activates a prospect account.
func (s *AccountService) MoveDeal(ctx context.Context, actorID, dealID string, req *model.MoveDealRequest) (*model.Deal, error) {
	deal, err := s.repo.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, ErrDealNotFound
	}

	to := model.DealStage(req.Stage)
	if !model.DealTransitions.Allows(deal.Stage, to) {
		return nil, transitionError("deal", deal.Stage, to)
	}

	closed := model.DealTransitions.IsTerminal(to)
	if err := s.repo.SetDealStage(ctx, dealID, to, closed); err != nil {
		return nil, err
	}

	if to == model.DealStageWon {
		account, err := s.repo.GetByID(ctx, deal.AccountID)
		if err != nil {
			return nil, err
		}
		if account != nil && account.Status == model.AccountStatusProspect {
			if err := s.repo.SetStatus(ctx, account.ID, model.AccountStatusActive); err != nil {
				return nil, err
			}
		}
	}

	s.auditor.Record(ctx, actorID, model.AuditStatus, "deal", dealID, map[string]any{"from": deal.Stage, "to": to})
	deal.Stage = to
	return deal, nil
}
