package handler

import (
	"context"
	"net/http"

	"github.com/forgo/staffhub/internal/middleware"
	"github.com/forgo/staffhub/internal/model"
)

// QuizManager is the subset of the quiz service used by QuizHandler
type QuizManager interface {
	Upsert(ctx context.Context, actorID, moduleID string, req *model.UpsertQuizRequest) (*model.Quiz, error)
	Get(ctx context.Context, role model.UserRole, id string) (*model.Quiz, error)
	GetForModule(ctx context.Context, role model.UserRole, moduleID string) (*model.Quiz, error)
	SubmitAttempt(ctx context.Context, userID, enrollmentID, moduleID string, req *model.SubmitAttemptRequest) (*model.QuizAttempt, error)
	ListAttempts(ctx context.Context, userID string, role model.UserRole, enrollmentID, moduleID string) ([]*model.QuizAttempt, error)
}

// QuizHandler handles module quizzes and graded attempts
type QuizHandler struct {
	quizzes QuizManager
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(quizzes QuizManager) *QuizHandler {
	return &QuizHandler{quizzes: quizzes}
}

// Upsert handles PUT /v1/modules/{moduleId}/quiz
func (h *QuizHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	moduleID, ok := pathID(w, r, "moduleId", "module")
	if !ok {
		return
	}

	var req model.UpsertQuizRequest
	if !decodeBody(w, r, &req) {
		return
	}

	quiz, err := h.quizzes.Upsert(r.Context(), actorID, moduleID, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, quiz, map[string]string{
		"self": "/v1/quizzes/" + quiz.ID,
	})
}

// GetForModule handles GET /v1/modules/{moduleId}/quiz
func (h *QuizHandler) GetForModule(w http.ResponseWriter, r *http.Request) {
	moduleID, ok := pathID(w, r, "moduleId", "module")
	if !ok {
		return
	}

	quiz, err := h.quizzes.GetForModule(r.Context(), middleware.GetUserRole(r.Context()), moduleID)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, quiz, nil)
}

// Get handles GET /v1/quizzes/{quizId}
func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "quizId", "quiz")
	if !ok {
		return
	}

	quiz, err := h.quizzes.Get(r.Context(), middleware.GetUserRole(r.Context()), id)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, quiz, nil)
}

// SubmitAttempt handles POST /v1/enrollments/{enrollmentId}/modules/{moduleId}/attempts
func (h *QuizHandler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
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

	var req model.SubmitAttemptRequest
	if !decodeBody(w, r, &req) {
		return
	}

	attempt, err := h.quizzes.SubmitAttempt(r.Context(), userID, enrollmentID, moduleID, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusCreated, attempt, enrollmentLinks(enrollmentID))
}

// ListAttempts handles GET /v1/enrollments/{enrollmentId}/modules/{moduleId}/attempts
func (h *QuizHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
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

	attempts, err := h.quizzes.ListAttempts(r.Context(), userID, middleware.GetUserRole(r.Context()), enrollmentID, moduleID)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, attempts, nil, nil)
}
