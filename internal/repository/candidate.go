package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
)

// CandidateRepository handles candidate data access
type CandidateRepository struct {
	db database.Database
}

// NewCandidateRepository creates a new candidate repository
func NewCandidateRepository(db database.Database) *CandidateRepository {
	return &CandidateRepository{db: db}
}

// Create creates a new candidate. The candidate_email index is unique.
func (r *CandidateRepository) Create(ctx context.Context, c *model.Candidate) error {
	fields := candidateFields(c).
		set("email", c.Email).
		set("owner_id", c.OwnerID).
		set("flagged", c.Flagged).
		set("flag_reasons", nonNilStrings(c.FlagReasons)).
		set("import_batch_id", ptrToNone(c.ImportBatchID)).
		set("anonymized", false).
		set("archived", false).
		expr("created_on", "time::now()").
		expr("updated_on", "time::now()")

	result, err := r.db.Query(ctx, "CREATE candidate CONTENT "+fields.object(), fields.vars)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return fmt.Errorf("%w: candidate email already exists", database.ErrDuplicate)
		}
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

// GetByID retrieves a candidate by ID
func (r *CandidateRepository) GetByID(ctx context.Context, id string) (*model.Candidate, error) {
	return r.getOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
}

// GetByEmail retrieves the non-anonymized candidate with the given email
func (r *CandidateRepository) GetByEmail(ctx context.Context, email string) (*model.Candidate, error) {
	query := `SELECT * FROM candidate WHERE email = $email AND anonymized = false LIMIT 1`
	return r.getOne(ctx, query, map[string]interface{}{"email": email})
}

func (r *CandidateRepository) getOne(ctx context.Context, query string, vars map[string]interface{}) (*model.Candidate, error) {
	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	c, err := decodeRecord[model.Candidate](result)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return c, err
}

// ExistingEmails returns the subset of emails already held by candidates
func (r *CandidateRepository) ExistingEmails(ctx context.Context, emails []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(emails) == 0 {
		return found, nil
	}

	query := `SELECT email FROM candidate WHERE email IN $emails AND anonymized = false`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"emails": emails})
	if err != nil {
		return nil, err
	}
	for _, row := range statementRows(result, 0) {
		if data, ok := row.(map[string]interface{}); ok {
			found[getString(data, "email")] = true
		}
	}
	return found, nil
}

// List returns candidates matching the filter, newest first
func (r *CandidateRepository) List(ctx context.Context, filter model.CandidateFilter) ([]*model.Candidate, error) {
	query := `SELECT * FROM candidate WHERE archived = false AND anonymized = false`
	vars := map[string]interface{}{}
	if filter.Status != "" {
		query += ` AND status = $status`
		vars["status"] = filter.Status
	}
	if filter.Skill != "" {
		query += ` AND skills CONTAINS $skill`
		vars["skill"] = filter.Skill
	}
	if filter.OwnerID != "" {
		query += ` AND owner_id = $owner_id`
		vars["owner_id"] = filter.OwnerID
	}
	if filter.Flagged != nil {
		query += ` AND flagged = $flagged`
		vars["flagged"] = *filter.Flagged
	}
	query += ` ORDER BY updated_on DESC LIMIT $limit START $offset`

	result, err := r.db.Query(ctx, query, pageVars(vars, filter.Limit, filter.Offset))
	if err != nil {
		return nil, err
	}
	return decodeRows[model.Candidate](result, 0)
}

// Update writes every mutable field of the candidate
func (r *CandidateRepository) Update(ctx context.Context, c *model.Candidate) error {
	fields := candidateFields(c).
		set("email", c.Email).
		set("owner_id", c.OwnerID).
		set("flagged", c.Flagged).
		set("flag_reasons", nonNilStrings(c.FlagReasons)).
		expr("updated_on", "time::now()")
	fields.vars["id"] = c.ID

	err := r.db.Execute(ctx, "UPDATE type::record($id) SET "+fields.assignments(), fields.vars)
	if errors.Is(err, database.ErrDuplicate) {
		return fmt.Errorf("%w: candidate email already exists", database.ErrDuplicate)
	}
	return err
}

// SetStatus changes a candidate's status
func (r *CandidateRepository) SetStatus(ctx context.Context, id string, status model.CandidateStatus) error {
	query := `UPDATE type::record($id) SET status = $status, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": id, "status": status})
}

// SetClassification stores classifier output and merges skills
func (r *CandidateRepository) SetClassification(ctx context.Context, id string, cl *model.Classification) error {
	query := `
		UPDATE type::record($id) SET
			category = $category,
			seniority = $seniority,
			skills = array::union(skills ?? [], $skills),
			updated_on = time::now()
	`
	return r.db.Execute(ctx, query, map[string]interface{}{
		"id":        id,
		"category":  cl.Category,
		"seniority": cl.Seniority,
		"skills":    nonNilStrings(cl.Skills),
	})
}

// Archive soft-deletes a candidate
func (r *CandidateRepository) Archive(ctx context.Context, id string) error {
	query := `UPDATE type::record($id) SET archived = true, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": id})
}

func candidateFields(c *model.Candidate) *fieldSet {
	return newFieldSet().
		set("first_name", c.FirstName).
		set("last_name", c.LastName).
		set("phone", ptrToNone(c.Phone)).
		set("location", ptrToNone(c.Location)).
		set("skills", nonNilStrings(c.Skills)).
		set("years_experience", c.YearsExperience).
		set("status", c.Status).
		set("source", ptrToNone(c.Source)).
		set("work_authorization", ptrToNone(c.WorkAuthorization)).
		set("resume_text", ptrToNone(c.ResumeText))
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
