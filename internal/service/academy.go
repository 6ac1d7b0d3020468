package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
)

// CourseRepository defines the interface for course, module and sprint storage
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id string) (*model.Course, error)
	List(ctx context.Context, status string, limit, offset int) ([]*model.Course, error)
	SetStatus(ctx context.Context, id string, status model.CourseStatus) error
	AddModule(ctx context.Context, module *model.CourseModule) error
	GetModule(ctx context.Context, id string) (*model.CourseModule, error)
	CreateSprint(ctx context.Context, sprint *model.Sprint) error
	GetSprint(ctx context.Context, id string) (*model.Sprint, error)
	ListSprints(ctx context.Context, courseID string) ([]*model.Sprint, error)
}

// EnrollmentRepository defines the interface for enrollment storage
type EnrollmentRepository interface {
	Create(ctx context.Context, e *model.Enrollment) error
	GetByID(ctx context.Context, id string) (*model.Enrollment, error)
	GetByUserAndCourse(ctx context.Context, userID, courseID string) (*model.Enrollment, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Enrollment, error)
	ListByCourse(ctx context.Context, courseID string, limit, offset int) ([]*model.Enrollment, error)
	SaveProgress(ctx context.Context, e *model.Enrollment) error
	Drop(ctx context.Context, e *model.Enrollment) error
}

// AcademyService manages courses, sprints, enrollments and module progress
type AcademyService struct {
	courses     CourseRepository
	enrollments EnrollmentRepository
	auditor     Auditor
	now         func() time.Time
}

// AcademyServiceConfig holds configuration for the academy service
type AcademyServiceConfig struct {
	Courses     CourseRepository
	Enrollments EnrollmentRepository
	Auditor     Auditor
}

// NewAcademyService creates a new academy service
func NewAcademyService(cfg AcademyServiceConfig) *AcademyService {
	return &AcademyService{
		courses:     cfg.Courses,
		enrollments: cfg.Enrollments,
		auditor:     auditorOrNoop(cfg.Auditor),
		now:         time.Now,
	}
}

// ============================================================================
// Courses
// ============================================================================

// CreateCourse creates a draft course
func (s *AcademyService) CreateCourse(ctx context.Context, actorID string, req *model.CreateCourseRequest) (*model.Course, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	course := &model.Course{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      model.CourseStatusDraft,
		CreatedBy:   actorID,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditCreate, "course", course.ID, nil)
	return course, nil
}

// GetCourse returns a course with its modules
func (s *AcademyService) GetCourse(ctx context.Context, id string) (*model.Course, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

// ListCourses lists courses. Learners only ever see published courses.
func (s *AcademyService) ListCourses(ctx context.Context, role model.UserRole, status string, limit, offset int) ([]*model.Course, error) {
	if !role.IsStaff() {
		status = string(model.CourseStatusPublished)
	}
	return s.courses.List(ctx, status, model.ClampLimit(limit), offset)
}

// ChangeCourseStatus publishes or archives a course. Publishing needs at least one module.
func (s *AcademyService) ChangeCourseStatus(ctx context.Context, actorID, id string, req *model.ChangeStatusRequest) (*model.Course, error) {
	course, err := s.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}

	to := model.CourseStatus(req.Status)
	if !model.CourseTransitions.Allows(course.Status, to) {
		return nil, transitionError("course", course.Status, to)
	}
	if to == model.CourseStatusPublished && len(course.Modules) == 0 {
		return nil, ErrCourseHasNoModules
	}
	if err := s.courses.SetStatus(ctx, id, to); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditStatus, "course", id, map[string]any{"from": course.Status, "to": to})
	course.Status = to
	return course, nil
}

// AddModule appends a module to a draft course
func (s *AcademyService) AddModule(ctx context.Context, actorID, courseID string, req *model.AddModuleRequest) (*model.CourseModule, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	course, err := s.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Status != model.CourseStatusDraft {
		return nil, ErrCourseNotEditable
	}
	if len(course.Modules) >= model.MaxModulesPerCourse {
		return nil, ErrTooManyCourseModules
	}

	module := &model.CourseModule{
		CourseID: courseID,
		Title:    strings.TrimSpace(req.Title),
		Content:  req.Content,
	}
	if err := s.courses.AddModule(ctx, module); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditCreate, "course_module", module.ID, map[string]any{"course_id": courseID})
	return module, nil
}

// ============================================================================
// Sprints
// ============================================================================

// CreateSprint schedules a cohort for a course that is not archived
func (s *AcademyService) CreateSprint(ctx context.Context, actorID, courseID string, req *model.CreateSprintRequest) (*model.Sprint, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	course, err := s.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Status == model.CourseStatusArchived {
		return nil, ErrCourseNotEditable
	}

	start, _ := model.ParseDate(req.StartsOn)
	end, _ := model.ParseDate(req.EndsOn)
	sprint := &model.Sprint{
		CourseID: courseID,
		Name:     strings.TrimSpace(req.Name),
		StartsOn: start,
		EndsOn:   end,
		Capacity: req.Capacity,
	}
	if err := s.courses.CreateSprint(ctx, sprint); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditCreate, "sprint", sprint.ID, map[string]any{"course_id": courseID})
	return sprint, nil
}

// ListSprints returns the sprints of a course
func (s *AcademyService) ListSprints(ctx context.Context, courseID string) ([]*model.Sprint, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return s.courses.ListSprints(ctx, courseID)
}

// ============================================================================
// Enrollments
// ============================================================================

// Enroll enrolls the user in a published course, optionally in a sprint with free seats
func (s *AcademyService) Enroll(ctx context.Context, userID, courseID string, req *model.EnrollRequest) (*model.Enrollment, error) {
	course, err := s.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Status != model.CourseStatusPublished {
		return nil, ErrCourseNotPublished
	}

	existing, err := s.enrollments.GetByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyEnrolled
	}

	if req != nil && req.SprintID != nil {
		sprint, err := s.courses.GetSprint(ctx, *req.SprintID)
		if err != nil {
			return nil, err
		}
		if sprint == nil || sprint.CourseID != courseID {
			return nil, ErrSprintNotFound
		}
		if !s.now().UTC().Before(sprint.EndsOn) {
			return nil, ErrSprintEnded
		}
		if sprint.IsFull() {
			return nil, ErrSprintFull
		}
	}

	e := &model.Enrollment{
		UserID:   userID,
		CourseID: courseID,
		Status:   model.EnrollmentStatusActive,
	}
	if req != nil {
		e.SprintID = req.SprintID
	}
	if err := s.enrollments.Create(ctx, e); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrSprintFull
		}
		return nil, err
	}

	s.auditor.Record(ctx, userID, model.AuditCreate, "enrollment", e.ID, map[string]any{"course_id": courseID})
	return e, nil
}

// GetEnrollment returns an enrollment owned by userID. Staff may read any enrollment.
func (s *AcademyService) GetEnrollment(ctx context.Context, userID string, role model.UserRole, id string) (*model.Enrollment, error) {
	e, err := s.enrollments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil || (e.UserID != userID && !role.IsStaff()) {
		return nil, ErrEnrollmentNotFound
	}
	return e, nil
}

// ListMyEnrollments returns the caller's enrollments
func (s *AcademyService) ListMyEnrollments(ctx context.Context, userID string) ([]*model.Enrollment, error) {
	return s.enrollments.ListByUser(ctx, userID)
}

// ListCourseEnrollments returns the roster of a course
func (s *AcademyService) ListCourseEnrollments(ctx context.Context, courseID string, limit, offset int) ([]*model.Enrollment, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return s.enrollments.ListByCourse(ctx, courseID, model.ClampLimit(limit), offset)
}

// Progress lists every module of the enrollment's course with its lock state
func (s *AcademyService) Progress(ctx context.Context, userID string, role model.UserRole, enrollmentID string) ([]model.ModuleProgress, error) {
	e, err := s.GetEnrollment(ctx, userID, role, enrollmentID)
	if err != nil {
		return nil, err
	}
	course, err := s.GetCourse(ctx, e.CourseID)
	if err != nil {
		return nil, err
	}
	return moduleProgress(course.Modules, e), nil
}

// CompleteModule marks a quiz-less module complete once it is unlocked
func (s *AcademyService) CompleteModule(ctx context.Context, userID, enrollmentID, moduleID string) (*model.Enrollment, error) {
	e, course, module, err := s.loadLearnerModule(ctx, userID, enrollmentID, moduleID)
	if err != nil {
		return nil, err
	}
	if module.HasQuiz() {
		return nil, ErrModuleRequiresQuiz
	}
	if e.HasCompleted(moduleID) {
		return e, nil
	}
	if err := s.markComplete(ctx, e, course, moduleID); err != nil {
		return nil, err
	}
	return e, nil
}

// Drop withdraws from a course and frees the sprint seat
func (s *AcademyService) Drop(ctx context.Context, userID string, role model.UserRole, enrollmentID string) error {
	e, err := s.GetEnrollment(ctx, userID, role, enrollmentID)
	if err != nil {
		return err
	}
	if e.Status != model.EnrollmentStatusActive {
		return ErrEnrollmentNotActive
	}
	if err := s.enrollments.Drop(ctx, e); err != nil {
		return err
	}
	s.auditor.Record(ctx, userID, model.AuditStatus, "enrollment", enrollmentID, map[string]any{"to": model.EnrollmentStatusDropped})
	return nil
}

// loadLearnerModule resolves an active enrollment of userID and an unlocked module of its course
func (s *AcademyService) loadLearnerModule(ctx context.Context, userID, enrollmentID, moduleID string) (*model.Enrollment, *model.Course, *model.CourseModule, error) {
	e, err := s.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, nil, nil, err
	}
	if e == nil || e.UserID != userID {
		return nil, nil, nil, ErrEnrollmentNotFound
	}
	if e.Status != model.EnrollmentStatusActive {
		return nil, nil, nil, ErrEnrollmentNotActive
	}

	course, err := s.GetCourse(ctx, e.CourseID)
	if err != nil {
		return nil, nil, nil, err
	}

	var module *model.CourseModule
	for i := range course.Modules {
		if course.Modules[i].ID == moduleID {
			module = &course.Modules[i]
			break
		}
	}
	if module == nil {
		return nil, nil, nil, ErrModuleNotFound
	}
	if !moduleUnlocked(course.Modules, e, module.Position) {
		return nil, nil, nil, ErrModuleLocked
	}
	return e, course, module, nil
}

// markComplete records a completed module and completes the enrollment after the last one
func (s *AcademyService) markComplete(ctx context.Context, e *model.Enrollment, course *model.Course, moduleID string) error {
	e.CompletedModules = append(e.CompletedModules, moduleID)
	e.Progress = progressPercent(course.Modules, e)
	if e.Progress == 100 {
		now := s.now().UTC()
		e.Status = model.EnrollmentStatusCompleted
		e.CompletedOn = &now
	}
	if err := s.enrollments.SaveProgress(ctx, e); err != nil {
		return err
	}
	s.auditor.Record(ctx, e.UserID, model.AuditUpdate, "enrollment", e.ID, map[string]any{
		"module_id": moduleID,
		"progress":  e.Progress,
	})
	return nil
}

// moduleUnlocked reports whether every module before position is completed
func moduleUnlocked(modules []model.CourseModule, e *model.Enrollment, position int) bool {
	for _, m := range modules {
		if m.Position < position && !e.HasCompleted(m.ID) {
			return false
		}
	}
	return true
}

func progressPercent(modules []model.CourseModule, e *model.Enrollment) int {
	if len(modules) == 0 {
		return 0
	}
	done := 0
	for _, m := range modules {
		if e.HasCompleted(m.ID) {
			done++
		}
	}
	return done * 100 / len(modules)
}

func moduleProgress(modules []model.CourseModule, e *model.Enrollment) []model.ModuleProgress {
	sorted := make([]model.CourseModule, len(modules))
	copy(sorted, modules)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	out := make([]model.ModuleProgress, len(sorted))
	for i, m := range sorted {
		out[i] = model.ModuleProgress{
			ModuleID:  m.ID,
			Position:  m.Position,
			Title:     m.Title,
			Unlocked:  moduleUnlocked(sorted, e, m.Position),
			Completed: e.HasCompleted(m.ID),
			HasQuiz:   m.HasQuiz(),
		}
	}
	return out
}
