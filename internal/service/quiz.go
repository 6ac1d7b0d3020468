package service

import (
	"context"
	"math"

	"github.com/forgo/staffhub/internal/model"
)

// QuizRepository defines the interface for quiz and attempt storage
type QuizRepository interface {
	Upsert(ctx context.Context, quiz *model.Quiz) error
	GetByID(ctx context.Context, id string) (*model.Quiz, error)
	GetByModule(ctx context.Context, moduleID string) (*model.Quiz, error)
	CountAttempts(ctx context.Context, quizID, enrollmentID string) (int, error)
	CreateAttempt(ctx context.Context, a *model.QuizAttempt) error
	ListAttempts(ctx context.Context, quizID, enrollmentID string) ([]*model.QuizAttempt, error)
}

// QuizService authors quizzes and grades attempts
type QuizService struct {
	quizzes QuizRepository
	academy *AcademyService
	auditor Auditor
}

// QuizServiceConfig holds configuration for the quiz service
type QuizServiceConfig struct {
	Quizzes QuizRepository
	Academy *AcademyService
	Auditor Auditor
}

// NewQuizService creates a new quiz service
func NewQuizService(cfg QuizServiceConfig) *QuizService {
	return &QuizService{
		quizzes: cfg.Quizzes,
		academy: cfg.Academy,
		auditor: auditorOrNoop(cfg.Auditor),
	}
}

// Upsert creates or replaces the quiz of a module
func (s *QuizService) Upsert(ctx context.Context, actorID, moduleID string, req *model.UpsertQuizRequest) (*model.Quiz, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	module, err := s.academy.courses.GetModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if module == nil {
		return nil, ErrModuleNotFound
	}
	course, err := s.academy.GetCourse(ctx, module.CourseID)
	if err != nil {
		return nil, err
	}
	if course.Status == model.CourseStatusArchived {
		return nil, ErrCourseNotEditable
	}

	quiz := &model.Quiz{
		ModuleID:     moduleID,
		CourseID:     module.CourseID,
		PassingScore: req.PassingScore,
		MaxAttempts:  req.MaxAttempts,
		Questions:    req.Questions,
	}
	if err := s.quizzes.Upsert(ctx, quiz); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditUpdate, "quiz", quiz.ID, map[string]any{"module_id": moduleID})
	return quiz, nil
}

// Get returns a quiz. Only staff see the correct answers.
func (s *QuizService) Get(ctx context.Context, role model.UserRole, id string) (*model.Quiz, error) {
	quiz, err := s.quizzes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, ErrQuizNotFound
	}
	if !role.IsStaff() {
		return quiz.Redacted(), nil
	}
	return quiz, nil
}

// GetForModule returns the quiz attached to a module
func (s *QuizService) GetForModule(ctx context.Context, role model.UserRole, moduleID string) (*model.Quiz, error) {
	quiz, err := s.quizzes.GetByModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, ErrQuizNotFound
	}
	if !role.IsStaff() {
		return quiz.Redacted(), nil
	}
	return quiz, nil
}

// SubmitAttempt grades an attempt on the quiz of an unlocked module. A passing
// attempt completes the module.
func (s *QuizService) SubmitAttempt(ctx context.Context, userID, enrollmentID, moduleID string, req *model.SubmitAttemptRequest) (*model.QuizAttempt, error) {
	e, course, module, err := s.academy.loadLearnerModule(ctx, userID, enrollmentID, moduleID)
	if err != nil {
		return nil, err
	}
	if e.HasCompleted(moduleID) {
		return nil, ErrModuleAlreadyPassed
	}

	quiz, err := s.quizzes.GetByModule(ctx, module.ID)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, ErrQuizNotFound
	}

	previous, err := s.quizzes.CountAttempts(ctx, quiz.ID, enrollmentID)
	if err != nil {
		return nil, err
	}
	if quiz.MaxAttempts > 0 && previous >= quiz.MaxAttempts {
		return nil, ErrMaxAttemptsReached
	}

	earned, total, score, passed := GradeQuiz(quiz, req.Answers)
	attempt := &model.QuizAttempt{
		QuizID:       quiz.ID,
		EnrollmentID: enrollmentID,
		UserID:       userID,
		Answers:      req.Answers,
		Earned:       earned,
		Total:        total,
		Score:        score,
		Passed:       passed,
		AttemptNo:    previous + 1,
	}
	if err := s.quizzes.CreateAttempt(ctx, attempt); err != nil {
		return nil, err
	}

	if passed {
		if err := s.academy.markComplete(ctx, e, course, moduleID); err != nil {
			return nil, err
		}
	}
	return attempt, nil
}

// ListAttempts returns the caller's attempts on a module's quiz
func (s *QuizService) ListAttempts(ctx context.Context, userID string, role model.UserRole, enrollmentID, moduleID string) ([]*model.QuizAttempt, error) {
	if _, err := s.academy.GetEnrollment(ctx, userID, role, enrollmentID); err != nil {
		return nil, err
	}
	quiz, err := s.quizzes.GetByModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, ErrQuizNotFound
	}
	return s.quizzes.ListAttempts(ctx, quiz.ID, enrollmentID)
}

// GradeQuiz scores answers keyed by question ID. single and true_false
// questions need the one correct option; multiple needs the exact set,
// ignoring order and duplicates. Unanswered questions earn nothing.
func GradeQuiz(quiz *model.Quiz, answers map[string][]string) (earned, total, score int, passed bool) {
	for _, q := range quiz.Questions {
		total += q.Points
		if answerCorrect(q, answers[q.ID]) {
			earned += q.Points
		}
	}
	if total > 0 {
		score = int(math.Round(float64(earned) * 100 / float64(total)))
	}
	return earned, total, score, score >= quiz.PassingScore
}

func answerCorrect(q model.QuizQuestion, given []string) bool {
	if len(given) == 0 || len(q.Correct) == 0 {
		return false
	}

	switch q.Kind {
	case model.QuestionKindSingle, model.QuestionKindTrueFalse:
		chosen := uniqueSet(given)
		if len(chosen) != 1 {
			return false
		}
		return chosen[q.Correct[0]]
	case model.QuestionKindMultiple:
		want := uniqueSet(q.Correct)
		got := uniqueSet(given)
		if len(want) != len(got) {
			return false
		}
		for id := range want {
			if !got[id] {
				return false
			}
		}
		return true
	}
	return false
}

func uniqueSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
