package model

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorCode represents API error codes
type ErrorCode int

const (
	// Authentication errors (1xxx)
	ErrCodeUnauthorized ErrorCode = 1001
	ErrCodeTokenExpired ErrorCode = 1002
	ErrCodeTokenInvalid ErrorCode = 1003
	ErrCodeLoginFailed  ErrorCode = 1004

	// Authorization errors (2xxx)
	ErrCodeForbidden      ErrorCode = 2001
	ErrCodeRoleRequired   ErrorCode = 2002
	ErrCodeNotRecordOwner ErrorCode = 2003

	// Resource errors (3xxx)
	ErrCodeNotFound          ErrorCode = 3001
	ErrCodeAlreadyExists     ErrorCode = 3002
	ErrCodeConflict          ErrorCode = 3003
	ErrCodeInvalidTransition ErrorCode = 3004

	// Validation errors (4xxx)
	ErrCodeValidation    ErrorCode = 4001
	ErrCodeInvalidInput  ErrorCode = 4002
	ErrCodeLimitExceeded ErrorCode = 4003
	ErrCodeTooLarge      ErrorCode = 4004

	// Internal errors (5xxx)
	ErrCodeInternal    ErrorCode = 5001
	ErrCodeDatabase    ErrorCode = 5002
	ErrCodeExternalAPI ErrorCode = 5003
)

const problemTypeBase = "https://api.staffhub.dev/errors/"

// ProblemDetails represents RFC 9457 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
	// Extension fields
	Code    ErrorCode `json:"code,omitempty"`
	From    string    `json:"from,omitempty"`
	To      string    `json:"to,omitempty"`
	Limit   *int      `json:"limit,omitempty"`
	Current *int      `json:"current,omitempty"`
}

// FieldError represents a validation error on a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface
func (p *ProblemDetails) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

// WriteJSON writes the problem details as JSON response
func (p *ProblemDetails) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func problem(slug, title string, status int, detail string, code ErrorCode) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + slug,
		Title:  title,
		Status: status,
		Detail: detail,
		Code:   code,
	}
}

func NewUnauthorizedError(detail string) *ProblemDetails {
	return problem("unauthorized", "Unauthorized", http.StatusUnauthorized, detail, ErrCodeUnauthorized)
}

func NewForbiddenError(detail string) *ProblemDetails {
	return problem("forbidden", "Forbidden", http.StatusForbidden, detail, ErrCodeForbidden)
}

// NewRoleRequiredError is returned when the caller's role is not in the allowed set
func NewRoleRequiredError(roles ...UserRole) *ProblemDetails {
	detail := "insufficient role"
	if len(roles) > 0 {
		detail = fmt.Sprintf("requires one of roles: %v", roles)
	}
	return problem("forbidden", "Forbidden", http.StatusForbidden, detail, ErrCodeRoleRequired)
}

func NewNotFoundError(resource string) *ProblemDetails {
	return problem("not-found", "Not Found", http.StatusNotFound, fmt.Sprintf("%s not found", resource), ErrCodeNotFound)
}

func NewValidationError(errors []FieldError) *ProblemDetails {
	detail := "One or more fields failed validation"
	if len(errors) > 0 {
		detail = fmt.Sprintf("%s: %s", errors[0].Field, errors[0].Message)
		if len(errors) > 1 {
			detail = fmt.Sprintf("%s (and %d more errors)", detail, len(errors)-1)
		}
	}
	pd := problem("validation", "Validation Error", http.StatusUnprocessableEntity, detail, ErrCodeValidation)
	pd.Errors = errors
	return pd
}

// NewInvalidTransitionError reports a refused status change on a lifecycle entity
func NewInvalidTransitionError(entity, from, to string) *ProblemDetails {
	pd := problem("invalid-transition", "Invalid Status Transition", http.StatusConflict,
		fmt.Sprintf("%s cannot move from %s to %s", entity, from, to), ErrCodeInvalidTransition)
	pd.From = from
	pd.To = to
	return pd
}

func NewLimitExceededError(resource string, limit, current int) *ProblemDetails {
	pd := problem("limit-exceeded", "Limit Exceeded", http.StatusUnprocessableEntity,
		fmt.Sprintf("Maximum of %d %s reached", limit, resource), ErrCodeLimitExceeded)
	pd.Limit = &limit
	pd.Current = &current
	return pd
}

func NewConflictError(detail string) *ProblemDetails {
	return problem("conflict", "Conflict", http.StatusConflict, detail, ErrCodeConflict)
}

func NewInternalError(detail string) *ProblemDetails {
	if detail == "" {
		detail = "An unexpected error occurred"
	}
	return problem("internal", "Internal Server Error", http.StatusInternalServerError, detail, ErrCodeInternal)
}

func NewBadRequestError(detail string) *ProblemDetails {
	return problem("bad-request", "Bad Request", http.StatusBadRequest, detail, ErrCodeInvalidInput)
}

func NewPayloadTooLargeError(maxRows int) *ProblemDetails {
	return problem("too-large", "Payload Too Large", http.StatusRequestEntityTooLarge,
		fmt.Sprintf("import is limited to %d rows", maxRows), ErrCodeTooLarge)
}

func NewBodyTooLargeError(limit int64) *ProblemDetails {
	return problem("too-large", "Payload Too Large", http.StatusRequestEntityTooLarge,
		fmt.Sprintf("request body is limited to %d bytes", limit), ErrCodeTooLarge)
}

func NewUnsupportedMediaTypeError(contentType string) *ProblemDetails {
	return problem("unsupported-media-type", "Unsupported Media Type", http.StatusUnsupportedMediaType,
		fmt.Sprintf("content type %q is not supported", contentType), ErrCodeInvalidInput)
}

func NewExternalServiceError(detail string) *ProblemDetails {
	return problem("external-service", "External Service Error", http.StatusBadGateway, detail, ErrCodeExternalAPI)
}

func NewRateLimitError(retryAfter int) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + "rate-limited",
		Title:  "Too Many Requests",
		Status: http.StatusTooManyRequests,
		Detail: fmt.Sprintf("Rate limit exceeded. Retry after %d seconds", retryAfter),
	}
}
