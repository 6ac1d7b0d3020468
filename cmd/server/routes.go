package main

import (
	"log/slog"
	"net/http"

	"github.com/forgo/staffhub/internal/handler"
	"github.com/forgo/staffhub/internal/middleware"
	"github.com/forgo/staffhub/internal/model"
)

type handlers struct {
	health     *handler.HealthHandler
	auth       *handler.AuthHandler
	adminUsers *handler.AdminUsersHandler
	accounts   *handler.AccountHandler
	jobs       *handler.JobHandler
	candidates *handler.CandidateHandler
	pipeline   *handler.PipelineHandler
	academy    *handler.AcademyHandler
	quizzes    *handler.QuizHandler
	campaigns  *handler.CampaignHandler
	gdpr       *handler.GDPRHandler
	imports    *handler.ImportHandler
	adminOps   *handler.AdminOpsHandler
}

// globalMiddleware is the chain in front of the mux. OptionalAuth resolves the
// caller before rate limiting and idempotency so both are keyed per user;
// anonymous requests fall back to the client address. A nil limiter disables
// rate limiting.
func globalMiddleware(logger *slog.Logger, tokens middleware.AuthService, origins []string, limiter *middleware.RateLimiter, idempotency *middleware.IdempotencyStore) []middleware.Middleware {
	chain := []middleware.Middleware{
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.CORS(origins),
		middleware.OptionalAuth(tokens),
	}
	if limiter != nil {
		chain = append(chain, middleware.RateLimit(limiter))
	}
	return append(chain,
		middleware.Idempotency(idempotency),
		middleware.Compress,
	)
}

// registerRoutes wires every endpoint. Admin passes every role check, so
// role lists only name the non-admin roles allowed through.
func registerRoutes(mux *http.ServeMux, h handlers, auth middleware.Middleware) {
	// authed requires a valid access token; with roles it also checks the caller's role
	authed := func(fn http.HandlerFunc, roles ...model.UserRole) http.Handler {
		var next http.Handler = fn
		if len(roles) > 0 {
			next = middleware.RequireRole(roles...)(next)
		}
		return auth(next)
	}
	staff := func(fn http.HandlerFunc) http.Handler {
		return auth(middleware.RequireStaff()(fn))
	}

	const (
		admin     = model.UserRoleAdmin
		recruiter = model.UserRoleRecruiter
		sales     = model.UserRoleSales
		trainer   = model.UserRoleTrainer
	)

	// Health check endpoints
	mux.HandleFunc("GET /health", h.health.Live)
	mux.HandleFunc("GET /ready", h.health.Ready)

	// Auth endpoints (public)
	mux.HandleFunc("POST /v1/auth/register", h.auth.Register)
	mux.HandleFunc("POST /v1/auth/login", h.auth.Login)
	mux.HandleFunc("POST /v1/auth/refresh", h.auth.Refresh)

	// Auth endpoints (protected)
	mux.Handle("POST /v1/auth/logout", authed(h.auth.Logout))
	mux.Handle("GET /v1/auth/me", authed(h.auth.Me))

	// Staff account management
	mux.Handle("POST /v1/admin/users", authed(h.adminUsers.CreateUser, admin))
	mux.Handle("GET /v1/admin/users", authed(h.adminUsers.ListUsers, admin))
	mux.Handle("GET /v1/admin/users/{userId}", authed(h.adminUsers.GetUser, admin))
	mux.Handle("PATCH /v1/admin/users/{userId}/role", authed(h.adminUsers.UpdateRole, admin))

	// Accounts and deals (CRM)
	mux.Handle("POST /v1/accounts", authed(h.accounts.Create, sales))
	mux.Handle("GET /v1/accounts", staff(h.accounts.List))
	mux.Handle("GET /v1/accounts/{accountId}", staff(h.accounts.Get))
	mux.Handle("PATCH /v1/accounts/{accountId}", authed(h.accounts.Update, sales))
	mux.Handle("DELETE /v1/accounts/{accountId}", authed(h.accounts.Archive, sales))
	mux.Handle("POST /v1/accounts/{accountId}/deals", authed(h.accounts.CreateDeal, sales))
	mux.Handle("GET /v1/accounts/{accountId}/deals", staff(h.accounts.ListDeals))
	mux.Handle("PATCH /v1/deals/{dealId}/stage", authed(h.accounts.MoveDeal, sales))

	// Job requisitions
	mux.Handle("POST /v1/jobs", authed(h.jobs.Create, recruiter, sales))
	mux.Handle("GET /v1/jobs", staff(h.jobs.List))
	mux.Handle("GET /v1/jobs/{jobId}", staff(h.jobs.Get))
	mux.Handle("PATCH /v1/jobs/{jobId}", authed(h.jobs.Update, recruiter, sales))
	mux.Handle("DELETE /v1/jobs/{jobId}", authed(h.jobs.Archive, recruiter, sales))
	mux.Handle("POST /v1/jobs/{jobId}/status", authed(h.jobs.ChangeStatus, recruiter, sales))

	// Candidates and bench
	mux.Handle("POST /v1/candidates", authed(h.candidates.Create, recruiter))
	mux.Handle("GET /v1/candidates", staff(h.candidates.List))
	mux.Handle("GET /v1/candidates/{candidateId}", staff(h.candidates.Get))
	mux.Handle("PATCH /v1/candidates/{candidateId}", authed(h.candidates.Update, recruiter))
	mux.Handle("DELETE /v1/candidates/{candidateId}", authed(h.candidates.Archive, recruiter))
	mux.Handle("POST /v1/candidates/{candidateId}/classify", authed(h.candidates.Classify, recruiter))
	mux.Handle("GET /v1/bench", authed(h.candidates.Bench, recruiter, sales))

	// Submissions
	mux.Handle("POST /v1/submissions", authed(h.pipeline.Submit, recruiter))
	mux.Handle("GET /v1/submissions", staff(h.pipeline.ListSubmissions))
	mux.Handle("GET /v1/submissions/{submissionId}", staff(h.pipeline.GetSubmission))
	mux.Handle("POST /v1/submissions/{submissionId}/status", authed(h.pipeline.MoveSubmission, recruiter, sales))
	mux.Handle("GET /v1/submissions/{submissionId}/offers", staff(h.pipeline.ListOffers))

	// Offers
	mux.Handle("POST /v1/offers", authed(h.pipeline.CreateOffer, recruiter, sales))
	mux.Handle("GET /v1/offers/{offerId}", staff(h.pipeline.GetOffer))
	mux.Handle("POST /v1/offers/{offerId}/status", authed(h.pipeline.ChangeOfferStatus, recruiter, sales))

	// Placements
	mux.Handle("GET /v1/placements", staff(h.pipeline.ListPlacements))
	mux.Handle("GET /v1/placements/{placementId}", staff(h.pipeline.GetPlacement))
	mux.Handle("POST /v1/placements/{placementId}/end", authed(h.pipeline.EndPlacement, recruiter, sales))

	// Academy courses (any signed-in user can browse; learners only see published)
	mux.Handle("POST /v1/courses", authed(h.academy.CreateCourse, trainer))
	mux.Handle("GET /v1/courses", authed(h.academy.ListCourses))
	mux.Handle("GET /v1/courses/{courseId}", authed(h.academy.GetCourse))
	mux.Handle("POST /v1/courses/{courseId}/status", authed(h.academy.ChangeCourseStatus, trainer))
	mux.Handle("POST /v1/courses/{courseId}/modules", authed(h.academy.AddModule, trainer))
	mux.Handle("POST /v1/courses/{courseId}/sprints", authed(h.academy.CreateSprint, trainer))
	mux.Handle("GET /v1/courses/{courseId}/sprints", authed(h.academy.ListSprints))
	mux.Handle("POST /v1/courses/{courseId}/enroll", authed(h.academy.Enroll))
	mux.Handle("GET /v1/courses/{courseId}/enrollments", authed(h.academy.ListCourseEnrollments, trainer))

	// Enrollments (ownership is checked by the service)
	mux.Handle("GET /v1/enrollments", authed(h.academy.ListMyEnrollments))
	mux.Handle("GET /v1/enrollments/{enrollmentId}", authed(h.academy.GetEnrollment))
	mux.Handle("DELETE /v1/enrollments/{enrollmentId}", authed(h.academy.Drop))
	mux.Handle("GET /v1/enrollments/{enrollmentId}/progress", authed(h.academy.Progress))
	mux.Handle("POST /v1/enrollments/{enrollmentId}/modules/{moduleId}/complete", authed(h.academy.CompleteModule))
	mux.Handle("POST /v1/enrollments/{enrollmentId}/modules/{moduleId}/attempts", authed(h.quizzes.SubmitAttempt))
	mux.Handle("GET /v1/enrollments/{enrollmentId}/modules/{moduleId}/attempts", authed(h.quizzes.ListAttempts))

	// Quizzes (served redacted to learners)
	mux.Handle("PUT /v1/modules/{moduleId}/quiz", authed(h.quizzes.Upsert, trainer))
	mux.Handle("GET /v1/modules/{moduleId}/quiz", authed(h.quizzes.GetForModule))
	mux.Handle("GET /v1/quizzes/{quizId}", authed(h.quizzes.Get))

	// Outreach campaigns
	mux.Handle("POST /v1/campaigns", authed(h.campaigns.Create, recruiter, sales))
	mux.Handle("GET /v1/campaigns", authed(h.campaigns.List, recruiter, sales))
	mux.Handle("GET /v1/campaigns/{campaignId}", authed(h.campaigns.Get, recruiter, sales))
	mux.Handle("PUT /v1/campaigns/{campaignId}/steps", authed(h.campaigns.UpdateSteps, recruiter, sales))
	mux.Handle("POST /v1/campaigns/{campaignId}/status", authed(h.campaigns.ChangeStatus, recruiter, sales))
	mux.Handle("POST /v1/campaigns/{campaignId}/enrollments", authed(h.campaigns.Enroll, recruiter, sales))
	mux.Handle("GET /v1/campaigns/{campaignId}/enrollments", authed(h.campaigns.ListEnrollments, recruiter, sales))
	mux.Handle("POST /v1/campaign-enrollments/{enrollmentId}/stop", authed(h.campaigns.StopEnrollment, recruiter, sales))
	mux.Handle("POST /v1/admin/campaigns/run", authed(h.campaigns.Run, admin))

	// Bulk import
	mux.Handle("POST /v1/imports/{entity}", authed(h.imports.Import, recruiter, sales))

	// GDPR data-subject requests - requires admin role
	mux.Handle("POST /v1/gdpr/discover", authed(h.gdpr.Discover, admin))
	mux.Handle("POST /v1/gdpr/export", authed(h.gdpr.Export, admin))
	mux.Handle("POST /v1/gdpr/anonymize", authed(h.gdpr.Anonymize, admin))
	mux.Handle("GET /v1/gdpr/requests", authed(h.gdpr.ListRequests, admin))
	mux.Handle("GET /v1/gdpr/requests/{requestId}", authed(h.gdpr.GetRequest, admin))

	// Schema migrations and audit log - requires admin role
	mux.Handle("GET /v1/admin/migrations", authed(h.adminOps.MigrationStatus, admin))
	mux.Handle("POST /v1/admin/migrations/run", authed(h.adminOps.RunMigrations, admin))
	mux.Handle("GET /v1/admin/audit", authed(h.adminOps.ListAudit, admin))
}
