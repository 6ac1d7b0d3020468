package model

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestProblemDetails_Error_IncludesStatusTitleDetail(t *testing.T) {
	t.Parallel()

	pd := NewNotFoundError("candidate")
	msg := pd.Error()

	for _, want := range []string{"404", "Not Found", "candidate not found"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q should contain %q", msg, want)
		}
	}
}

func TestProblemDetails_WriteJSON(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	NewConflictError("candidate already submitted to this job").WriteJSON(rr)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("expected Content-Type application/problem+json, got %q", ct)
	}

	var result ProblemDetails
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if result.Code != ErrCodeConflict {
		t.Errorf("expected code %d, got %d", ErrCodeConflict, result.Code)
	}
	if !strings.HasPrefix(result.Type, problemTypeBase) {
		t.Errorf("type %q should be under %s", result.Type, problemTypeBase)
	}
}

func TestConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		pd     *ProblemDetails
		status int
		title  string
		code   ErrorCode
		detail string
	}{
		{"unauthorized", NewUnauthorizedError("token expired"), http.StatusUnauthorized, "Unauthorized", ErrCodeUnauthorized, "token expired"},
		{"forbidden", NewForbiddenError("not your enrollment"), http.StatusForbidden, "Forbidden", ErrCodeForbidden, "not your enrollment"},
		{"role required", NewRoleRequiredError(UserRoleRecruiter, UserRoleSales), http.StatusForbidden, "Forbidden", ErrCodeRoleRequired, "requires one of roles: [recruiter sales]"},
		{"role required no roles", NewRoleRequiredError(), http.StatusForbidden, "Forbidden", ErrCodeRoleRequired, "insufficient role"},
		{"not found", NewNotFoundError("job"), http.StatusNotFound, "Not Found", ErrCodeNotFound, "job not found"},
		{"conflict", NewConflictError("email taken"), http.StatusConflict, "Conflict", ErrCodeConflict, "email taken"},
		{"internal", NewInternalError("db down"), http.StatusInternalServerError, "Internal Server Error", ErrCodeInternal, "db down"},
		{"internal default", NewInternalError(""), http.StatusInternalServerError, "Internal Server Error", ErrCodeInternal, "An unexpected error occurred"},
		{"bad request", NewBadRequestError("invalid JSON"), http.StatusBadRequest, "Bad Request", ErrCodeInvalidInput, "invalid JSON"},
		{"too large", NewPayloadTooLargeError(5000), http.StatusRequestEntityTooLarge, "Payload Too Large", ErrCodeTooLarge, "import is limited to 5000 rows"},
		{"media type", NewUnsupportedMediaTypeError("text/plain"), http.StatusUnsupportedMediaType, "Unsupported Media Type", ErrCodeInvalidInput, `content type "text/plain" is not supported`},
		{"external", NewExternalServiceError("classifier unavailable"), http.StatusBadGateway, "External Service Error", ErrCodeExternalAPI, "classifier unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.pd.Status != tt.status {
				t.Errorf("status = %d, want %d", tt.pd.Status, tt.status)
			}
			if tt.pd.Title != tt.title {
				t.Errorf("title = %q, want %q", tt.pd.Title, tt.title)
			}
			if tt.pd.Code != tt.code {
				t.Errorf("code = %d, want %d", tt.pd.Code, tt.code)
			}
			if tt.pd.Detail != tt.detail {
				t.Errorf("detail = %q, want %q", tt.pd.Detail, tt.detail)
			}
		})
	}
}

func TestNewValidationError_Summaries(t *testing.T) {
	t.Parallel()

	single := NewValidationError([]FieldError{{Field: "email", Message: "invalid format"}})
	if single.Status != http.StatusUnprocessableEntity || single.Code != ErrCodeValidation {
		t.Errorf("unexpected status/code %d/%d", single.Status, single.Code)
	}
	if single.Detail != "email: invalid format" {
		t.Errorf("detail = %q", single.Detail)
	}

	multi := NewValidationError([]FieldError{
		{Field: "email", Message: "required"},
		{Field: "first_name", Message: "required"},
		{Field: "years_experience", Message: "must be non-negative"},
	})
	if len(multi.Errors) != 3 {
		t.Errorf("expected 3 errors, got %d", len(multi.Errors))
	}
	if !strings.Contains(multi.Detail, "2 more errors") {
		t.Errorf("detail should count the remaining errors, got %q", multi.Detail)
	}

	empty := NewValidationError(nil)
	if empty.Detail != "One or more fields failed validation" {
		t.Errorf("expected default detail, got %q", empty.Detail)
	}
}

func TestNewInvalidTransitionError_CarriesStates(t *testing.T) {
	t.Parallel()

	pd := NewInvalidTransitionError("submission", "placed", "interview")

	if pd.Status != http.StatusConflict || pd.Code != ErrCodeInvalidTransition {
		t.Errorf("unexpected status/code %d/%d", pd.Status, pd.Code)
	}
	if pd.From != "placed" || pd.To != "interview" {
		t.Errorf("from/to = %q/%q", pd.From, pd.To)
	}
	if pd.Detail != "submission cannot move from placed to interview" {
		t.Errorf("detail = %q", pd.Detail)
	}
}

func TestNewLimitExceededError_CarriesCounts(t *testing.T) {
	t.Parallel()

	pd := NewLimitExceededError("quiz attempts", 3, 3)

	if pd.Status != http.StatusUnprocessableEntity || pd.Code != ErrCodeLimitExceeded {
		t.Errorf("unexpected status/code %d/%d", pd.Status, pd.Code)
	}
	if pd.Limit == nil || *pd.Limit != 3 || pd.Current == nil || *pd.Current != 3 {
		t.Errorf("limit/current = %v/%v", pd.Limit, pd.Current)
	}
	if !strings.Contains(pd.Detail, "quiz attempts") {
		t.Errorf("detail should name the resource, got %q", pd.Detail)
	}
}

func TestNewRateLimitError(t *testing.T) {
	t.Parallel()

	pd := NewRateLimitError(60)
	if pd.Status != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", pd.Status)
	}
	if !strings.Contains(pd.Detail, "60") {
		t.Errorf("detail should contain retry seconds, got %q", pd.Detail)
	}
}

func TestErrorCodes_UniqueAndInRange(t *testing.T) {
	t.Parallel()

	ranges := map[int][]ErrorCode{
		1: {ErrCodeUnauthorized, ErrCodeTokenExpired, ErrCodeTokenInvalid, ErrCodeLoginFailed},
		2: {ErrCodeForbidden, ErrCodeRoleRequired, ErrCodeNotRecordOwner},
		3: {ErrCodeNotFound, ErrCodeAlreadyExists, ErrCodeConflict, ErrCodeInvalidTransition},
		4: {ErrCodeValidation, ErrCodeInvalidInput, ErrCodeLimitExceeded, ErrCodeTooLarge},
		5: {ErrCodeInternal, ErrCodeDatabase, ErrCodeExternalAPI},
	}

	seen := make(map[ErrorCode]bool)
	for thousand, codes := range ranges {
		for _, code := range codes {
			if seen[code] {
				t.Errorf("duplicate error code %d", code)
			}
			seen[code] = true
			if int(code)/1000 != thousand {
				t.Errorf("code %d should be in the %dxxx range", code, thousand)
			}
		}
	}
}

func TestProblemDetails_JSON_OmitsEmptyExtensions(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(&ProblemDetails{Type: "t", Title: "T", Status: 400})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	for _, field := range []string{"detail", "instance", "errors", "code", "from", "to", "limit", "current"} {
		if strings.Contains(string(data), `"`+field+`"`) {
			t.Errorf("empty %s should be omitted: %s", field, data)
		}
	}
}
