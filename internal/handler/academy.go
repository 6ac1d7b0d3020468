package handler

import (
	"context"
	"net/http"

	"github.com/forgo/staffhub/internal/middleware"
	"github.com/forgo/staffhub/internal/model"
)

// AcademyManager is the subset of the academy service used by AcademyHandler
type AcademyManager interface {
	CreateCourse(ctx context.Context, actorID string, req *model.CreateCourseRequest) (*model.Course, error)
	GetCourse(ctx context.Context, id string) (*model.Course, error)
	ListCourses(ctx context.Context, role model.UserRole, status string, limit, offset int) ([]*model.Course, error)
	ChangeCourseStatus(ctx context.Context, actorID, id string, req *model.ChangeStatusRequest) (*model.Course, error)
	AddModule(ctx context.Context, actorID, courseID string, req *model.AddModuleRequest) (*model.CourseModule, error)
	CreateSprint(ctx context.Context, actorID, courseID string, req *model.CreateSprintRequest) (*model.Sprint, error)
	ListSprints(ctx context.Context, courseID string) ([]*model.Sprint, error)
	Enroll(ctx context.Context, userID, courseID string, req *model.EnrollRequest) (*model.Enrollment, error)
	GetEnrollment(ctx context.Context, userID string, role model.UserRole, id string) (*model.Enrollment, error)
	ListMyEnrollments(ctx context.Context, userID string) ([]*model.Enrollment, error)
	ListCourseEnrollments(ctx context.Context, courseID string, limit, offset int) ([]*model.Enrollment, error)
	Progress(ctx context.Context, userID string, role model.UserRole, enrollmentID string) ([]model.ModuleProgress, error)
	CompleteModule(ctx context.Context, userID, enrollmentID, moduleID string) (*model.Enrollment, error)
	Drop(ctx context.Context, userID string, role model.UserRole, enrollmentID string) error
}

// AcademyHandler handles courses, sprints and learner enrollments
type AcademyHandler struct {
	academy AcademyManager
}

// NewAcademyHandler creates a new academy handler
func NewAcademyHandler(academy AcademyManager) *AcademyHandler {
	return &AcademyHandler{academy: academy}
}

func courseLinks(id string) map[string]string {
	return map[string]string{
		"self":    "/v1/courses/" + id,
		"sprints": "/v1/courses/" + id + "/sprints",
		"enroll":  "/v1/courses/" + id + "/enroll",
	}
}

func enrollmentLinks(id string) map[string]string {
	return map[string]string{
		"self":     "/v1/enrollments/" + id,
		"progress": "/v1/enrollments/" + id + "/progress",
	}
}

// CreateCourse handles POST /v1/courses
func (h *AcademyHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateCourseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	course, err := h.academy.CreateCourse(r.Context(), actorID, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusCreated, course, courseLinks(course.ID))
}

// GetCourse handles GET /v1/courses/{courseId}
func (h *AcademyHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "courseId", "course")
	if !ok {
		return
	}

	course, err := h.academy.GetCourse(r.Context(), id)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	// Learners only see courses that are open
	if !middleware.GetUserRole(r.Context()).IsStaff() && course.Status != model.CourseStatusPublished {
		WriteError(w, model.NewNotFoundError("course"))
		return
	}

	WriteData(w, http.StatusOK, course, courseLinks(course.ID))
}

// ListCourses handles GET /v1/courses
func (h *AcademyHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	page, perr := ParsePage(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	role := middleware.GetUserRole(r.Context())
	courses, err := h.academy.ListCourses(r.Context(), role, r.URL.Query().Get("status"), page.Limit, page.Offset)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, courses, page.Info(len(courses)), nil)
}

// ChangeCourseStatus handles POST /v1/courses/{courseId}/status
func (h *AcademyHandler) ChangeCourseStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "courseId", "course")
	if !ok {
		return
	}

	var req model.ChangeStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	course, err := h.academy.ChangeCourseStatus(r.Context(), actorID, id, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, course, courseLinks(course.ID))
}

// AddModule handles POST /v1/courses/{courseId}/modules
func (h *AcademyHandler) AddModule(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	courseID, ok := pathID(w, r, "courseId", "course")
	if !ok {
		return
	}

	var req model.AddModuleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	module, err := h.academy.AddModule(r.Context(), actorID, courseID, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusCreated, module, map[string]string{
		"course": "/v1/courses/" + courseID,
		"quiz":   "/v1/modules/" + module.ID + "/quiz",
	})
}

// CreateSprint handles POST /v1/courses/{courseId}/sprints
func (h *AcademyHandler) CreateSprint(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	courseID, ok := pathID(w, r, "courseId", "course")
	if !ok {
		return
	}

	var req model.CreateSprintRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sprint, err := h.academy.CreateSprint(r.Context(), actorID, courseID, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusCreated, sprint, map[string]string{
		"course": "/v1/courses/" + courseID,
	})
}

// ListSprints handles GET /v1/courses/{courseId}/sprints
func (h *AcademyHandler) ListSprints(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "courseId", "course")
	if !ok {
		return
	}

	sprints, err := h.academy.ListSprints(r.Context(), courseID)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, sprints, nil, nil)
}

// Enroll handles POST /v1/courses/{courseId}/enroll
func (h *AcademyHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	courseID, ok := pathID(w, r, "courseId", "course")
	if !ok {
		return
	}

	var req model.EnrollRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	enrollment, err := h.academy.Enroll(r.Context(), userID, courseID, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusCreated, enrollment, enrollmentLinks(enrollment.ID))
}

// ListCourseEnrollments handles GET /v1/courses/{courseId}/enrollments
func (h *AcademyHandler) ListCourseEnrollments(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "courseId", "course")
	if !ok {
		return
	}
	page, perr := ParsePage(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	enrollments, err := h.academy.ListCourseEnrollments(r.Context(), courseID, page.Limit, page.Offset)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, enrollments, page.Info(len(enrollments)), nil)
}

// ListMyEnrollments handles GET /v1/enrollments
func (h *AcademyHandler) ListMyEnrollments(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	enrollments, err := h.academy.ListMyEnrollments(r.Context(), userID)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, enrollments, nil, nil)
}

// GetEnrollment handles GET /v1/enrollments/{enrollmentId}
func (h *AcademyHandler) GetEnrollment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "enrollmentId", "enrollment")
	if !ok {
		return
	}

	enrollment, err := h.academy.GetEnrollment(r.Context(), userID, middleware.GetUserRole(r.Context()), id)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, enrollment, enrollmentLinks(enrollment.ID))
}

// Progress handles GET /v1/enrollments/{enrollmentId}/progress
func (h *AcademyHandler) Progress(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "enrollmentId", "enrollment")
	if !ok {
		return
	}

	progress, err := h.academy.Progress(r.Context(), userID, middleware.GetUserRole(r.Context()), id)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, progress, nil, enrollmentLinks(id))
}

// CompleteModule handles POST /v1/enrollments/{enrollmentId}/modules/{moduleId}/complete
func (h *AcademyHandler) CompleteModule(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	enrollmentID, ok := pathID(w, r, "enrollmentId", "enrollment")
	if !ok {
		return
	}
	moduleID, ok := pathID(w, r, "moduleId", "module")
	if !ok {
		return
	}

	enrollment, err := h.academy.CompleteModule(r.Context(), userID, enrollmentID, moduleID)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, enrollment, enrollmentLinks(enrollment.ID))
}

// Drop handles DELETE /v1/enrollments/{enrollmentId}
func (h *AcademyHandler) Drop(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "enrollmentId", "enrollment")
	if !ok {
		return
	}

	if err := h.academy.Drop(r.Context(), userID, middleware.GetUserRole(r.Context()), id); err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteNoContent(w)
}
