package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
)

// GDPRRepository finds, exports and redacts personal data, and stores gdpr requests
type GDPRRepository struct {
	db database.Database
}

// NewGDPRRepository creates a new gdpr repository
func NewGDPRRepository(db database.Database) *GDPRRepository {
	return &GDPRRepository{db: db}
}

// discoverQueries select the ids of records that belong to the subject
var discoverQueries = map[string]string{
	model.GDPRTableCandidate:          `SELECT id FROM candidate WHERE email = $email`,
	model.GDPRTableUser:               `SELECT id FROM user WHERE email = $email`,
	model.GDPRTableAccount:            `SELECT id FROM account WHERE contact.email = $email`,
	model.GDPRTableCampaignEnrollment: `SELECT id FROM campaign_enrollment WHERE candidate_id IN $candidate_ids`,
	model.GDPRTableSubmission:         `SELECT id FROM submission WHERE candidate_id IN $candidate_ids`,
	model.GDPRTableEnrollment:         `SELECT id FROM enrollment WHERE user_id IN $user_ids`,
	model.GDPRTableAuditLog:           `SELECT id FROM audit_log WHERE actor_id IN $user_ids OR entity_id IN $candidate_ids`,
}

// anonymizeQueries redact personal fields of the given records
var anonymizeQueries = map[string]string{
	model.GDPRTableCandidate: `
		UPDATE candidate SET
			first_name = $anon_name,
			last_name = $anon_name,
			email = string::concat('anon-', rand::uuid(), '@', $anon_domain),
			phone = NONE,
			location = NONE,
			resume_text = NONE,
			work_authorization = NONE,
			flag_reasons = [],
			anonymized = true,
			status = 'do_not_contact',
			updated_on = time::now()
		WHERE <string>id IN $ids
		RETURN id`,
	model.GDPRTableUser: `
		UPDATE user SET
			firstname = $anon_name,
			lastname = $anon_name,
			email = string::concat('anon-', rand::uuid(), '@', $anon_domain),
			phone = NONE,
			hash = NONE,
			anonymized = true,
			updated_on = time::now()
		WHERE <string>id IN $ids
		RETURN id`,
	model.GDPRTableAccount: `
		UPDATE account SET
			contact.name = $anon_name,
			contact.email = NONE,
			contact.phone = NONE,
			contact.title = NONE,
			updated_on = time::now()
		WHERE <string>id IN $ids
		RETURN id`,
	model.GDPRTableCampaignEnrollment: `
		UPDATE campaign_enrollment SET
			status = 'stopped',
			next_run_at = NONE,
			last_error = 'subject anonymized',
			updated_on = time::now()
		WHERE <string>id IN $ids AND status = 'active'
		RETURN id`,
	model.GDPRTableSubmission: `
		UPDATE submission SET notes = NONE, updated_on = time::now()
		WHERE <string>id IN $ids
		RETURN id`,
	model.GDPRTableAuditLog: `
		UPDATE audit_log SET details = NONE
		WHERE <string>id IN $ids
		RETURN id`,
}

// Discover returns the ids of records in table that belong to the subject
func (r *GDPRRepository) Discover(ctx context.Context, table string, subject model.GDPRSubject) ([]string, error) {
	query, ok := discoverQueries[table]
	if !ok {
		return nil, fmt.Errorf("no discovery query for table %q", table)
	}
	vars := map[string]interface{}{
		"email":         subject.Email,
		"candidate_ids": nonNilStrings(subject.CandidateIDs),
		"user_ids":      nonNilStrings(subject.UserIDs),
	}
	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return extractIDs(result, 0), nil
}

// Export returns the full records of table with the given ids. Password hashes are never exported.
func (r *GDPRRepository) Export(ctx context.Context, table string, ids []string) ([]map[string]any, error) {
	if len(ids) == 0 {
		return []map[string]any{}, nil
	}
	if _, ok := discoverQueries[table]; !ok {
		return nil, fmt.Errorf("no export for table %q", table)
	}
	query := `SELECT * OMIT hash FROM type::table($table) WHERE <string>id IN $ids`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"table": table, "ids": ids})
	if err != nil {
		return nil, err
	}

	rows := statementRows(result, 0)
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if record, ok := normalizeValue(row).(map[string]interface{}); ok {
			out = append(out, record)
		}
	}
	return out, nil
}

// Anonymize redacts the given records of table and returns how many were changed.
// Tables without personal fields of their own are left alone.
func (r *GDPRRepository) Anonymize(ctx context.Context, table string, ids []string) (int, error) {
	query, ok := anonymizeQueries[table]
	if !ok || len(ids) == 0 {
		return 0, nil
	}
	vars := map[string]interface{}{
		"ids":         ids,
		"anon_name":   model.AnonymizedName,
		"anon_domain": model.AnonymizedDomain,
	}
	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return 0, err
	}
	return len(statementRows(result, 0)), nil
}

// ============================================================================
// Requests
// ============================================================================

// CreateRequest stores a new gdpr request
func (r *GDPRRepository) CreateRequest(ctx context.Context, req *model.GDPRRequest) error {
	fields := newFieldSet().
		set("type", req.Type).
		set("subject_email", req.SubjectEmail).
		set("requested_by", req.RequestedBy).
		set("status", req.Status).
		set("results", []model.GDPRTableResult{}).
		expr("created_on", "time::now()")

	result, err := r.db.Query(ctx, "CREATE gdpr_request CONTENT "+fields.object(), fields.vars)
	if err != nil {
		return err
	}
	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}
	req.ID = created.ID
	req.CreatedOn = created.CreatedOn
	return nil
}

// UpdateRequest writes the status, results and completion time of a request
func (r *GDPRRepository) UpdateRequest(ctx context.Context, req *model.GDPRRequest) error {
	fields := newFieldSet().
		set("status", req.Status).
		set("results", req.Results).
		optDatetime("completed_on", req.CompletedOn)
	fields.vars["id"] = req.ID

	return r.db.Execute(ctx, "UPDATE type::record($id) SET "+fields.assignments(), fields.vars)
}

// GetRequest retrieves a gdpr request by ID
func (r *GDPRRepository) GetRequest(ctx context.Context, id string) (*model.GDPRRequest, error) {
	result, err := r.db.QueryOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	req, err := decodeRecord[model.GDPRRequest](result)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return req, err
}

// ListRequests returns gdpr requests, newest first
func (r *GDPRRepository) ListRequests(ctx context.Context, limit, offset int) ([]*model.GDPRRequest, error) {
	query := `SELECT * FROM gdpr_request ORDER BY created_on DESC LIMIT $limit START $offset`
	result, err := r.db.Query(ctx, query, pageVars(map[string]interface{}{}, limit, offset))
	if err != nil {
		return nil, err
	}
	return decodeRows[model.GDPRRequest](result, 0)
}
