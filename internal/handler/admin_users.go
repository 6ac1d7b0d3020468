package handler

import (
	"context"
	"net/http"

	"github.com/forgo/staffhub/internal/model"
)

// UserAdmin is the subset of the auth service used for staff account management
type UserAdmin interface {
	CreateStaffUser(ctx context.Context, actorID string, req *model.CreateStaffUserRequest) (*model.User, error)
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
	ListUsers(ctx context.Context, role string, limit, offset int) ([]*model.User, error)
	ChangeRole(ctx context.Context, actorID, userID string, role model.UserRole) (*model.User, error)
}

// AdminUsersHandler handles admin user management endpoints
type AdminUsersHandler struct {
	users UserAdmin
}

// NewAdminUsersHandler creates a new admin users handler
func NewAdminUsersHandler(users UserAdmin) *AdminUsersHandler {
	return &AdminUsersHandler{users: users}
}

// ChangeRoleRequest is the body of PATCH /v1/admin/users/{userId}/role
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// CreateUser handles POST /v1/admin/users
func (h *AdminUsersHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateStaffUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.users.CreateStaffUser(r.Context(), actorID, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusCreated, user, map[string]string{
		"self": "/v1/admin/users/" + user.ID,
	})
}

// ListUsers handles GET /v1/admin/users
func (h *AdminUsersHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, perr := ParsePage(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	users, err := h.users.ListUsers(r.Context(), r.URL.Query().Get("role"), page.Limit, page.Offset)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, users, page.Info(len(users)), nil)
}

// GetUser handles GET /v1/admin/users/{userId}
func (h *AdminUsersHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId", "user")
	if !ok {
		return
	}

	user, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, user, nil)
}

// UpdateRole handles PATCH /v1/admin/users/{userId}/role
func (h *AdminUsersHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId", "user")
	if !ok {
		return
	}

	var req ChangeRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.users.ChangeRole(r.Context(), actorID, userID, model.UserRole(req.Role))
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, user, nil)
}
