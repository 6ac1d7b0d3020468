package handler

import (
	"context"
	"net/http"

	"github.com/forgo/staffhub/internal/model"
)

// Migrator is the subset of the migration service used by AdminOpsHandler
type Migrator interface {
	Status(ctx context.Context) ([]model.MigrationState, error)
	Up(ctx context.Context, actorID string) (*model.MigrationRun, error)
}

// AuditReader lists audit entries
type AuditReader interface {
	List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditEntry, error)
}

// AdminOpsHandler handles schema migrations and the audit log
type AdminOpsHandler struct {
	migrations Migrator
	audit      AuditReader
}

// AdminOpsHandlerConfig holds configuration for the admin ops handler
type AdminOpsHandlerConfig struct {
	Migrations Migrator
	Audit      AuditReader
}

// NewAdminOpsHandler creates a new admin ops handler
func NewAdminOpsHandler(cfg AdminOpsHandlerConfig) *AdminOpsHandler {
	return &AdminOpsHandler{
		migrations: cfg.Migrations,
		audit:      cfg.Audit,
	}
}

// MigrationStatus handles GET /v1/admin/migrations
func (h *AdminOpsHandler) MigrationStatus(w http.ResponseWriter, r *http.Request) {
	states, err := h.migrations.Status(r.Context())
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "migration status"))
		return
	}

	WriteCollection(w, http.StatusOK, states, nil, map[string]string{
		"run": "/v1/admin/migrations/run",
	})
}

// RunMigrations handles POST /v1/admin/migrations/run
func (h *AdminOpsHandler) RunMigrations(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	run, err := h.migrations.Up(r.Context(), actorID)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "migrations"))
		return
	}

	WriteData(w, http.StatusOK, run, nil)
}

// ListAudit handles GET /v1/admin/audit
func (h *AdminOpsHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	page, perr := ParsePage(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	q := r.URL.Query()
	entries, err := h.audit.List(r.Context(), model.AuditFilter{
		Entity:    q.Get("entity"),
		EntityID:  q.Get("entity_id"),
		ActorID:   q.Get("actor_id"),
		Partition: q.Get("partition"),
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, entries, page.Info(len(entries)), nil)
}
