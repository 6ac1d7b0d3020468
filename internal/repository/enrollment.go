package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
)

const sprintFullMarker = "sprint capacity reached"

// EnrollmentRepository handles course enrollments
type EnrollmentRepository struct {
	db database.Database
}

// NewEnrollmentRepository creates a new enrollment repository
func NewEnrollmentRepository(db database.Database) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create enrolls a user. With a sprint, the seat is taken in the same
// transaction and the write fails with database.ErrConflict if the sprint is full.
func (r *EnrollmentRepository) Create(ctx context.Context, e *model.Enrollment) error {
	fields := newFieldSet().
		set("user_id", e.UserID).
		set("course_id", e.CourseID).
		set("sprint_id", ptrToNone(e.SprintID)).
		set("completed_modules", []string{}).
		set("status", e.Status).
		set("progress", 0).
		expr("created_on", "time::now()").
		expr("updated_on", "time::now()")

	tb := database.NewTxBuilder()
	if e.SprintID != nil {
		tb.Add(`LET $seat = (UPDATE type::record($sprint_id) SET enrolled += 1 WHERE enrolled < capacity)`,
			map[string]interface{}{"sprint_id": *e.SprintID})
		tb.AddRaw(`IF array::len($seat) = 0 { THROW "` + sprintFullMarker + `" }`)
	}
	tb.Add("CREATE enrollment CONTENT "+fields.object(), fields.vars)

	result, err := database.ExecuteTransaction(ctx, r.db, tb)
	if err != nil {
		if strings.Contains(err.Error(), sprintFullMarker) {
			return fmt.Errorf("%w: %s", database.ErrConflict, sprintFullMarker)
		}
		return err
	}
	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	e.ID = created.ID
	e.CompletedModules = []string{}
	e.CreatedOn = created.CreatedOn
	e.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByID retrieves an enrollment by ID
func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*model.Enrollment, error) {
	return r.getOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
}

// GetByUserAndCourse finds a user's non-dropped enrollment in a course
func (r *EnrollmentRepository) GetByUserAndCourse(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
	query := `SELECT * FROM enrollment WHERE user_id = $user_id AND course_id = $course_id AND status != 'dropped' LIMIT 1`
	return r.getOne(ctx, query, map[string]interface{}{"user_id": userID, "course_id": courseID})
}

func (r *EnrollmentRepository) getOne(ctx context.Context, query string, vars map[string]interface{}) (*model.Enrollment, error) {
	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	e, err := decodeRecord[model.Enrollment](result)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return e, err
}

// ListByUser returns a user's enrollments, newest first
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]*model.Enrollment, error) {
	query := `SELECT * FROM enrollment WHERE user_id = $user_id ORDER BY created_on DESC`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"user_id": userID})
	if err != nil {
		return nil, err
	}
	return decodeRows[model.Enrollment](result, 0)
}

// ListByCourse returns the enrollments of a course
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string, limit, offset int) ([]*model.Enrollment, error) {
	query := `SELECT * FROM enrollment WHERE course_id = $course_id ORDER BY created_on ASC LIMIT $limit START $offset`
	vars := pageVars(map[string]interface{}{"course_id": courseID}, limit, offset)
	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return decodeRows[model.Enrollment](result, 0)
}

// SaveProgress stores completed modules, progress and completion state
func (r *EnrollmentRepository) SaveProgress(ctx context.Context, e *model.Enrollment) error {
	fields := newFieldSet().
		set("completed_modules", nonNilStrings(e.CompletedModules)).
		set("progress", e.Progress).
		set("status", e.Status).
		expr("updated_on", "time::now()")
	if e.CompletedOn != nil {
		fields.datetime("completed_on", *e.CompletedOn)
	}
	fields.vars["id"] = e.ID
	return r.db.Execute(ctx, "UPDATE type::record($id) SET "+fields.assignments(), fields.vars)
}

// Drop marks an enrollment dropped and frees its sprint seat
func (r *EnrollmentRepository) Drop(ctx context.Context, e *model.Enrollment) error {
	batch := database.NewAtomicBatch().
		Add(`UPDATE type::record($id) SET status = 'dropped', updated_on = time::now()`,
			map[string]interface{}{"id": e.ID})
	if e.SprintID != nil {
		batch.Add(`UPDATE type::record($id) SET enrolled = math::max([enrolled - 1, 0])`,
			map[string]interface{}{"id": *e.SprintID})
	}
	return batch.Execute(ctx, r.db)
}
