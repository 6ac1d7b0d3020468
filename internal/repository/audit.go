package repository

import (
	"context"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
)

// AuditRepository stores audit entries. Entries are partitioned by month
// through the indexed partition field.
type AuditRepository struct {
	db database.Database
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db database.Database) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an audit entry
func (r *AuditRepository) Create(ctx context.Context, entry *model.AuditEntry) error {
	fields := newFieldSet().
		set("actor_id", entry.ActorID).
		set("action", entry.Action).
		set("entity", entry.Entity).
		set("entity_id", entry.EntityID).
		set("partition", entry.Partition).
		datetime("occurred_on", entry.OccurredOn)
	if len(entry.Details) > 0 {
		fields.set("details", entry.Details)
	}

	result, err := r.db.Query(ctx, "CREATE audit_log CONTENT "+fields.object(), fields.vars)
	if err != nil {
		return err
	}
	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}
	entry.ID = created.ID
	return nil
}

// List returns entries matching the filter, newest first
func (r *AuditRepository) List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditEntry, error) {
	query := `SELECT * FROM audit_log WHERE true`
	vars := map[string]interface{}{}
	if filter.Partition != "" {
		query += ` AND partition = $partition`
		vars["partition"] = filter.Partition
	}
	if filter.Entity != "" {
		query += ` AND entity = $entity`
		vars["entity"] = filter.Entity
	}
	if filter.EntityID != "" {
		query += ` AND entity_id = $entity_id`
		vars["entity_id"] = filter.EntityID
	}
	if filter.ActorID != "" {
		query += ` AND actor_id = $actor_id`
		vars["actor_id"] = filter.ActorID
	}
	query += ` ORDER BY occurred_on DESC LIMIT $limit START $offset`

	result, err := r.db.Query(ctx, query, pageVars(vars, filter.Limit, filter.Offset))
	if err != nil {
		return nil, err
	}
	return decodeRows[model.AuditEntry](result, 0)
}
