package repository

import (
	"context"
	"errors"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
)

// CourseRepository handles courses, their modules and sprints
type CourseRepository struct {
	db database.Database
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db database.Database) *CourseRepository {
	return &CourseRepository{db: db}
}

// Create creates a new course
func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	fields := newFieldSet().
		set("title", course.Title).
		opt("description", course.Description).
		set("status", course.Status).
		set("created_by", course.CreatedBy).
		expr("created_on", "time::now()").
		expr("updated_on", "time::now()")

	result, err := r.db.Query(ctx, "CREATE course CONTENT "+fields.object(), fields.vars)
	if err != nil {
		return err
	}
	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	course.ID = created.ID
	course.CreatedOn = created.CreatedOn
	course.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByID retrieves a course with its modules ordered by position
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*model.Course, error) {
	query := `
		SELECT * FROM type::record($id);
		SELECT * FROM course_module WHERE course_id = $id ORDER BY position ASC;
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}

	rows := statementRows(result, 0)
	if len(rows) == 0 {
		return nil, nil
	}
	course, err := decodeRecord[model.Course](rows[0])
	if err != nil {
		return nil, err
	}

	modules, err := decodeRows[model.CourseModule](result, 1)
	if err != nil {
		return nil, err
	}
	course.Modules = make([]model.CourseModule, len(modules))
	for i, m := range modules {
		course.Modules[i] = *m
	}
	return course, nil
}

// List returns courses, optionally filtered by status
func (r *CourseRepository) List(ctx context.Context, status string, limit, offset int) ([]*model.Course, error) {
	query := `SELECT * FROM course WHERE true`
	vars := map[string]interface{}{}
	if status != "" {
		query += ` AND status = $status`
		vars["status"] = status
	}
	query += ` ORDER BY title ASC LIMIT $limit START $offset`

	result, err := r.db.Query(ctx, query, pageVars(vars, limit, offset))
	if err != nil {
		return nil, err
	}
	return decodeRows[model.Course](result, 0)
}

// SetStatus changes a course's status
func (r *CourseRepository) SetStatus(ctx context.Context, id string, status model.CourseStatus) error {
	query := `UPDATE type::record($id) SET status = $status, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": id, "status": status})
}

// AddModule appends a module at the next position
func (r *CourseRepository) AddModule(ctx context.Context, module *model.CourseModule) error {
	fields := newFieldSet().
		set("course_id", module.CourseID).
		expr("position", "$next").
		set("title", module.Title).
		opt("content", module.Content)

	query := `
		LET $next = count((SELECT id FROM course_module WHERE course_id = $course_id)) + 1;
		CREATE course_module CONTENT ` + fields.object() + `;
	`

	result, err := r.db.Query(ctx, query, fields.vars)
	if err != nil {
		return err
	}
	rows := lastStatementRows(result)
	if len(rows) == 0 {
		return errors.New("no result returned")
	}
	created, err := decodeRecord[model.CourseModule](rows[0])
	if err != nil {
		return err
	}
	*module = *created
	return nil
}

// GetModule retrieves a module by ID
func (r *CourseRepository) GetModule(ctx context.Context, id string) (*model.CourseModule, error) {
	result, err := r.db.QueryOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	module, err := decodeRecord[model.CourseModule](result)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return module, err
}

// CreateSprint creates a cohort of a course
func (r *CourseRepository) CreateSprint(ctx context.Context, sprint *model.Sprint) error {
	fields := newFieldSet().
		set("course_id", sprint.CourseID).
		set("name", sprint.Name).
		datetime("starts_on", sprint.StartsOn).
		datetime("ends_on", sprint.EndsOn).
		set("capacity", sprint.Capacity).
		set("enrolled", 0).
		expr("created_on", "time::now()")

	result, err := r.db.Query(ctx, "CREATE sprint CONTENT "+fields.object(), fields.vars)
	if err != nil {
		return err
	}
	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}
	sprint.ID = created.ID
	sprint.CreatedOn = created.CreatedOn
	return nil
}

// GetSprint retrieves a sprint by ID
func (r *CourseRepository) GetSprint(ctx context.Context, id string) (*model.Sprint, error) {
	result, err := r.db.QueryOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	sprint, err := decodeRecord[model.Sprint](result)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return sprint, err
}

// ListSprints returns the sprints of a course by start date
func (r *CourseRepository) ListSprints(ctx context.Context, courseID string) ([]*model.Sprint, error) {
	query := `SELECT * FROM sprint WHERE course_id = $course_id ORDER BY starts_on ASC`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"course_id": courseID})
	if err != nil {
		return nil, err
	}
	return decodeRows[model.Sprint](result, 0)
}
