package model

import (
	"strconv"
	"time"
)

// CourseStatus is the publication status of a course
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusArchived  CourseStatus = "archived"
)

// CourseTransitions is the course status machine
var CourseTransitions = Transitions[CourseStatus]{
	CourseStatusDraft:     {CourseStatusPublished, CourseStatusArchived},
	CourseStatusPublished: {CourseStatusArchived},
}

// Academy constraints
const (
	MaxCourseTitleLength = 200
	MaxModulesPerCourse  = 100
	MaxSprintCapacity    = 1000
)

// Course represents a training-academy course
type Course struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	Status      CourseStatus   `json:"status"`
	Modules     []CourseModule `json:"modules,omitempty"`
	CreatedBy   string         `json:"created_by"`
	CreatedOn   time.Time      `json:"created_on"`
	UpdatedOn   time.Time      `json:"updated_on"`
}

// CourseModule is one ordered unit of a course
type CourseModule struct {
	ID       string  `json:"id"`
	CourseID string  `json:"course_id"`
	Position int     `json:"position"`
	Title    string  `json:"title"`
	Content  *string `json:"content,omitempty"`
	QuizID   *string `json:"quiz_id,omitempty"`
}

// HasQuiz reports whether the module is gated by a quiz
func (m *CourseModule) HasQuiz() bool {
	return m.QuizID != nil && *m.QuizID != ""
}

// CreateCourseRequest creates a draft course
type CreateCourseRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// Validate validates the create course request
func (r *CreateCourseRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Title == "" {
		errors = append(errors, FieldError{Field: "title", Message: "title is required"})
	} else if len(r.Title) > MaxCourseTitleLength {
		errors = append(errors, FieldError{Field: "title", Message: "title must be 200 characters or less"})
	}
	return errors
}

// AddModuleRequest appends a module to a course
type AddModuleRequest struct {
	Title   string  `json:"title"`
	Content *string `json:"content,omitempty"`
}

// Validate validates the add module request
func (r *AddModuleRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Title == "" {
		errors = append(errors, FieldError{Field: "title", Message: "title is required"})
	} else if len(r.Title) > MaxCourseTitleLength {
		errors = append(errors, FieldError{Field: "title", Message: "title must be 200 characters or less"})
	}
	return errors
}

// Sprint is a dated cohort of a course
type Sprint struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Name      string    `json:"name"`
	StartsOn  time.Time `json:"starts_on"`
	EndsOn    time.Time `json:"ends_on"`
	Capacity  int       `json:"capacity"`
	Enrolled  int       `json:"enrolled"`
	CreatedOn time.Time `json:"created_on"`
}

// IsFull reports whether the cohort has reached capacity
func (s *Sprint) IsFull() bool {
	return s.Capacity > 0 && s.Enrolled >= s.Capacity
}

// CreateSprintRequest schedules a cohort
type CreateSprintRequest struct {
	Name     string `json:"name"`
	StartsOn string `json:"starts_on"`
	EndsOn   string `json:"ends_on"`
	Capacity int    `json:"capacity"`
}

// Validate validates the create sprint request
func (r *CreateSprintRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Name == "" {
		errors = append(errors, FieldError{Field: "name", Message: "name is required"})
	}
	start, startErr := ParseDate(r.StartsOn)
	if startErr != nil {
		errors = append(errors, FieldError{Field: "starts_on", Message: "starts_on must be YYYY-MM-DD"})
	}
	end, endErr := ParseDate(r.EndsOn)
	if endErr != nil {
		errors = append(errors, FieldError{Field: "ends_on", Message: "ends_on must be YYYY-MM-DD"})
	}
	if startErr == nil && endErr == nil && !start.Before(end) {
		errors = append(errors, FieldError{Field: "ends_on", Message: "ends_on must be after starts_on"})
	}
	if r.Capacity < 1 || r.Capacity > MaxSprintCapacity {
		errors = append(errors, FieldError{Field: "capacity", Message: "capacity must be between 1 and 1000"})
	}
	return errors
}

// EnrollmentStatus tracks a learner in a course
type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusDropped   EnrollmentStatus = "dropped"
)

// Enrollment is a learner's progress through a course
type Enrollment struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	CourseID         string           `json:"course_id"`
	SprintID         *string          `json:"sprint_id,omitempty"`
	CompletedModules []string         `json:"completed_modules"`
	Status           EnrollmentStatus `json:"status"`
	Progress         int              `json:"progress"`
	CompletedOn      *time.Time       `json:"completed_on,omitempty"`
	CreatedOn        time.Time        `json:"created_on"`
	UpdatedOn        time.Time        `json:"updated_on"`
}

// HasCompleted reports whether the module id is in the completed set
func (e *Enrollment) HasCompleted(moduleID string) bool {
	for _, id := range e.CompletedModules {
		if id == moduleID {
			return true
		}
	}
	return false
}

// EnrollRequest enrolls the caller in a course, optionally in a sprint
type EnrollRequest struct {
	SprintID *string `json:"sprint_id,omitempty"`
}

// ModuleProgress describes a module from the learner's point of view
type ModuleProgress struct {
	ModuleID  string `json:"module_id"`
	Position  int    `json:"position"`
	Title     string `json:"title"`
	Unlocked  bool   `json:"unlocked"`
	Completed bool   `json:"completed"`
	HasQuiz   bool   `json:"has_quiz"`
}

// QuestionKind is the answer shape of a quiz question
type QuestionKind string

const (
	QuestionKindSingle    QuestionKind = "single"
	QuestionKindMultiple  QuestionKind = "multiple"
	QuestionKindTrueFalse QuestionKind = "true_false"
)

// IsValid returns true for known question kinds
func (k QuestionKind) IsValid() bool {
	return k == QuestionKindSingle || k == QuestionKindMultiple || k == QuestionKindTrueFalse
}

// Quiz constraints
const (
	MaxQuestionsPerQuiz = 100
	MaxOptionsPerQuiz   = 10
	MaxPromptLength     = 2000
)

// QuizOption is one selectable answer
type QuizOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuizQuestion is one graded question. Correct is never sent to learners.
type QuizQuestion struct {
	ID      string       `json:"id"`
	Kind    QuestionKind `json:"kind"`
	Prompt  string       `json:"prompt"`
	Options []QuizOption `json:"options"`
	Correct []string     `json:"correct,omitempty"`
	Points  int          `json:"points"`
}

// Quiz gates completion of a course module
type Quiz struct {
	ID           string         `json:"id"`
	ModuleID     string         `json:"module_id"`
	CourseID     string         `json:"course_id"`
	PassingScore int            `json:"passing_score"`
	MaxAttempts  int            `json:"max_attempts"`
	Questions    []QuizQuestion `json:"questions"`
	CreatedOn    time.Time      `json:"created_on"`
	UpdatedOn    time.Time      `json:"updated_on"`
}

// Redacted returns a copy of the quiz without answer keys
func (q *Quiz) Redacted() *Quiz {
	out := *q
	out.Questions = make([]QuizQuestion, len(q.Questions))
	for i, question := range q.Questions {
		question.Correct = nil
		out.Questions[i] = question
	}
	return &out
}

// UpsertQuizRequest creates or replaces the quiz on a module
type UpsertQuizRequest struct {
	PassingScore int            `json:"passing_score"`
	MaxAttempts  int            `json:"max_attempts"`
	Questions    []QuizQuestion `json:"questions"`
}

// Validate validates the quiz definition
func (r *UpsertQuizRequest) Validate() []FieldError {
	var errors []FieldError
	if r.PassingScore < 1 || r.PassingScore > 100 {
		errors = append(errors, FieldError{Field: "passing_score", Message: "passing_score must be between 1 and 100"})
	}
	if r.MaxAttempts < 0 {
		errors = append(errors, FieldError{Field: "max_attempts", Message: "max_attempts cannot be negative"})
	}
	if len(r.Questions) == 0 {
		errors = append(errors, FieldError{Field: "questions", Message: "at least one question is required"})
	} else if len(r.Questions) > MaxQuestionsPerQuiz {
		errors = append(errors, FieldError{Field: "questions", Message: "too many questions"})
	}
	seenQuestions := make(map[string]bool, len(r.Questions))
	for i, q := range r.Questions {
		field := "questions[" + strconv.Itoa(i) + "]"
		if q.ID == "" || seenQuestions[q.ID] {
			errors = append(errors, FieldError{Field: field + ".id", Message: "question id must be present and unique"})
		}
		seenQuestions[q.ID] = true
		if !q.Kind.IsValid() {
			errors = append(errors, FieldError{Field: field + ".kind", Message: "kind must be single, multiple, or true_false"})
		}
		if q.Prompt == "" || len(q.Prompt) > MaxPromptLength {
			errors = append(errors, FieldError{Field: field + ".prompt", Message: "prompt must be 1-2000 characters"})
		}
		if q.Points < 1 {
			errors = append(errors, FieldError{Field: field + ".points", Message: "points must be at least 1"})
		}
		errors = append(errors, validateOptions(field, q)...)
	}
	return errors
}

func validateOptions(field string, q QuizQuestion) []FieldError {
	var errors []FieldError
	if len(q.Options) < 2 || len(q.Options) > MaxOptionsPerQuiz {
		return append(errors, FieldError{Field: field + ".options", Message: "between 2 and 10 options are required"})
	}
	if q.Kind == QuestionKindTrueFalse && len(q.Options) != 2 {
		errors = append(errors, FieldError{Field: field + ".options", Message: "true_false questions have exactly 2 options"})
	}
	optionIDs := make(map[string]bool, len(q.Options))
	for _, opt := range q.Options {
		optionIDs[opt.ID] = true
	}
	if len(q.Correct) == 0 {
		return append(errors, FieldError{Field: field + ".correct", Message: "correct answer is required"})
	}
	if q.Kind != QuestionKindMultiple && len(q.Correct) != 1 {
		errors = append(errors, FieldError{Field: field + ".correct", Message: "exactly one correct answer is required"})
	}
	for _, id := range q.Correct {
		if !optionIDs[id] {
			errors = append(errors, FieldError{Field: field + ".correct", Message: "correct answer must reference an option"})
			break
		}
	}
	return errors
}

// SubmitAttemptRequest carries a learner's answers keyed by question id
type SubmitAttemptRequest struct {
	Answers map[string][]string `json:"answers"`
}

// QuizAttempt is one graded submission of a quiz
type QuizAttempt struct {
	ID           string              `json:"id"`
	QuizID       string              `json:"quiz_id"`
	EnrollmentID string              `json:"enrollment_id"`
	UserID       string              `json:"user_id"`
	Answers      map[string][]string `json:"answers"`
	Earned       int                 `json:"earned"`
	Total        int                 `json:"total"`
	Score        int                 `json:"score"`
	Passed       bool                `json:"passed"`
	AttemptNo    int                 `json:"attempt_no"`
	CreatedOn    time.Time           `json:"created_on"`
}
