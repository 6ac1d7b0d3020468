package handler

import (
	"context"
	"net/http"

	"github.com/forgo/staffhub/internal/model"
)

// AccountManager is the subset of the account service used by AccountHandler
type AccountManager interface {
	Create(ctx context.Context, actorID string, req *model.CreateAccountRequest) (*model.Account, error)
	Get(ctx context.Context, id string) (*model.Account, error)
	List(ctx context.Context, status string, limit, offset int) ([]*model.Account, error)
	Update(ctx context.Context, actorID, id string, req *model.UpdateAccountRequest) (*model.Account, error)
	Archive(ctx context.Context, actorID, id string) error
	CreateDeal(ctx context.Context, actorID, accountID string, req *model.CreateDealRequest) (*model.Deal, error)
	ListDeals(ctx context.Context, accountID string) ([]*model.Deal, error)
	MoveDeal(ctx context.Context, actorID, dealID string, req *model.MoveDealRequest) (*model.Deal, error)
}

// AccountHandler handles client account and deal endpoints
type AccountHandler struct {
	accounts AccountManager
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts AccountManager) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

func accountLinks(id string) map[string]string {
	return map[string]string{
		"self":  "/v1/accounts/" + id,
		"deals": "/v1/accounts/" + id + "/deals",
		"jobs":  "/v1/jobs?account_id=" + id,
	}
}

// Create handles POST /v1/accounts
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}

	account, err := h.accounts.Create(r.Context(), actorID, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusCreated, account, accountLinks(account.ID))
}

// Get handles GET /v1/accounts/{accountId}
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "accountId", "account")
	if !ok {
		return
	}

	account, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, account, accountLinks(account.ID))
}

// List handles GET /v1/accounts
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perr := ParsePage(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	accounts, err := h.accounts.List(r.Context(), r.URL.Query().Get("status"), page.Limit, page.Offset)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, accounts, page.Info(len(accounts)), nil)
}

// Update handles PATCH /v1/accounts/{accountId}
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "accountId", "account")
	if !ok {
		return
	}

	var req model.UpdateAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}

	account, err := h.accounts.Update(r.Context(), actorID, id, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, account, accountLinks(account.ID))
}

// Archive handles DELETE /v1/accounts/{accountId}
func (h *AccountHandler) Archive(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "accountId", "account")
	if !ok {
		return
	}

	if err := h.accounts.Archive(r.Context(), actorID, id); err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteNoContent(w)
}

// CreateDeal handles POST /v1/accounts/{accountId}/deals
func (h *AccountHandler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	accountID, ok := pathID(w, r, "accountId", "account")
	if !ok {
		return
	}

	var req model.CreateDealRequest
	if !decodeBody(w, r, &req) {
		return
	}

	deal, err := h.accounts.CreateDeal(r.Context(), actorID, accountID, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusCreated, deal, map[string]string{
		"account": "/v1/accounts/" + accountID,
	})
}

// ListDeals handles GET /v1/accounts/{accountId}/deals
func (h *AccountHandler) ListDeals(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountId", "account")
	if !ok {
		return
	}

	deals, err := h.accounts.ListDeals(r.Context(), accountID)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, deals, nil, map[string]string{
		"account": "/v1/accounts/" + accountID,
	})
}

// MoveDeal handles PATCH /v1/deals/{dealId}/stage
func (h *AccountHandler) MoveDeal(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	dealID, ok := pathID(w, r, "dealId", "deal")
	if !ok {
		return
	}

	var req model.MoveDealRequest
	if !decodeBody(w, r, &req) {
		return
	}

	deal, err := h.accounts.MoveDeal(r.Context(), actorID, dealID, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, deal, nil)
}
