package repository

import (
	"context"
	"errors"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
)

// QuizRepository handles module quizzes and attempts
type QuizRepository struct {
	db database.Database
}

// NewQuizRepository creates a new quiz repository
func NewQuizRepository(db database.Database) *QuizRepository {
	return &QuizRepository{db: db}
}

// Upsert creates or replaces the quiz of a module and links it from the module
func (r *QuizRepository) Upsert(ctx context.Context, quiz *model.Quiz) error {
	existing, err := r.GetByModule(ctx, quiz.ModuleID)
	if err != nil {
		return err
	}

	fields := newFieldSet().
		set("module_id", quiz.ModuleID).
		set("course_id", quiz.CourseID).
		set("passing_score", quiz.PassingScore).
		set("max_attempts", quiz.MaxAttempts).
		set("questions", quiz.Questions).
		expr("updated_on", "time::now()")

	if existing != nil {
		fields.vars["id"] = existing.ID
		if err := r.db.Execute(ctx, "UPDATE type::record($id) SET "+fields.assignments(), fields.vars); err != nil {
			return err
		}
		quiz.ID = existing.ID
		quiz.CreatedOn = existing.CreatedOn
		return nil
	}

	fields.expr("created_on", "time::now()")
	result, err := r.db.Query(ctx, `
		LET $created = (CREATE quiz CONTENT `+fields.object()+`);
		UPDATE type::record($module_id) SET quiz_id = <string>$created[0].id;
		RETURN $created;
	`, fields.vars)
	if err != nil {
		return err
	}
	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}
	quiz.ID = created.ID
	quiz.CreatedOn = created.CreatedOn
	quiz.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByID retrieves a quiz by ID
func (r *QuizRepository) GetByID(ctx context.Context, id string) (*model.Quiz, error) {
	return r.getOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
}

// GetByModule retrieves the quiz attached to a module
func (r *QuizRepository) GetByModule(ctx context.Context, moduleID string) (*model.Quiz, error) {
	return r.getOne(ctx, `SELECT * FROM quiz WHERE module_id = $module_id LIMIT 1`, map[string]interface{}{"module_id": moduleID})
}

func (r *QuizRepository) getOne(ctx context.Context, query string, vars map[string]interface{}) (*model.Quiz, error) {
	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	quiz, err := decodeRecord[model.Quiz](result)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return quiz, err
}

// CountAttempts counts a learner's attempts on a quiz within one enrollment
func (r *QuizRepository) CountAttempts(ctx context.Context, quizID, enrollmentID string) (int, error) {
	query := `SELECT count() AS count FROM quiz_attempt WHERE quiz_id = $quiz_id AND enrollment_id = $enrollment_id GROUP ALL`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"quiz_id": quizID, "enrollment_id": enrollmentID})
	if err != nil {
		return 0, err
	}
	return extractCount(result), nil
}

// CreateAttempt stores a graded attempt
func (r *QuizRepository) CreateAttempt(ctx context.Context, a *model.QuizAttempt) error {
	answers := a.Answers
	if answers == nil {
		answers = map[string][]string{}
	}
	fields := newFieldSet().
		set("quiz_id", a.QuizID).
		set("enrollment_id", a.EnrollmentID).
		set("user_id", a.UserID).
		set("answers", answers).
		set("earned", a.Earned).
		set("total", a.Total).
		set("score", a.Score).
		set("passed", a.Passed).
		set("attempt_no", a.AttemptNo).
		expr("created_on", "time::now()")

	result, err := r.db.Query(ctx, "CREATE quiz_attempt CONTENT "+fields.object(), fields.vars)
	if err != nil {
		return err
	}
	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}
	a.ID = created.ID
	a.CreatedOn = created.CreatedOn
	return nil
}

// ListAttempts returns the attempts of an enrollment on a quiz, oldest first
func (r *QuizRepository) ListAttempts(ctx context.Context, quizID, enrollmentID string) ([]*model.QuizAttempt, error) {
	query := `SELECT * FROM quiz_attempt WHERE quiz_id = $quiz_id AND enrollment_id = $enrollment_id ORDER BY attempt_no ASC`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"quiz_id": quizID, "enrollment_id": enrollmentID})
	if err != nil {
		return nil, err
	}
	return decodeRows[model.QuizAttempt](result, 0)
}
