// Package handler provides HTTP request handlers for the StaffHub API.
//
// The handler package contains all HTTP endpoint implementations organized by domain.
// Each handler struct depends on a small interface naming the service methods it
// calls (AccountManager, PipelineManager, ...), which the concrete services satisfy
// and tests replace with function-field mocks.
//
// # Handler Pattern
//
// All handlers follow a consistent pattern:
//
//   - Constructor function (NewXxxHandler) accepts the service interface
//   - Methods handle specific HTTP endpoints registered with Go 1.22 mux patterns
//   - Response helpers from response.go standardize output format
//   - Errors are mapped to RFC 9457 Problem Details by MapServiceError
//
// # Response Format
//
//   - WriteData: Single resource with optional HATEOAS links
//   - WriteCollection: List of resources with limit/offset pagination
//   - WriteJSON: Raw JSON response
//   - WriteError: RFC 9457 Problem Details error response
//
// # Authorization
//
// Role checks happen in the router via middleware.RequireRole. Handlers read the
// caller's id and role from the request context for ownership rules, such as a
// learner only seeing their own enrollments.
//
// # Example Usage
//
//	jobs := NewJobHandler(jobService)
//	mux.Handle("POST /v1/jobs", staff(http.HandlerFunc(jobs.Create)))
//	mux.Handle("GET /v1/jobs/{jobId}", staff(http.HandlerFunc(jobs.Get)))
package handler
