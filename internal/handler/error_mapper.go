package handler

import (
	"errors"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
	"github.com/forgo/staffhub/internal/service"
)

// MapServiceError converts a service error to a ProblemDetails response.
// This centralizes error handling logic for all handlers, ensuring consistent
// HTTP status codes and error messages across the API.
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	// Services return problems directly for field validation
	var pd *model.ProblemDetails
	if errors.As(err, &pd) {
		return pd
	}

	var te *service.TransitionError
	if errors.As(err, &te) {
		return model.NewInvalidTransitionError(te.Entity, te.From, te.To)
	}

	switch {
	// ===== Authentication Errors → 401 =====
	case errors.Is(err, service.ErrInvalidCredentials):
		p := model.NewUnauthorizedError(err.Error())
		p.Code = model.ErrCodeLoginFailed
		return p
	case errors.Is(err, service.ErrInvalidRefreshToken),
		errors.Is(err, service.ErrRefreshTokenExpired),
		errors.Is(err, service.ErrRefreshTokenRevoked):
		return model.NewUnauthorizedError(err.Error())

	// ===== Authorization Errors → 403 =====
	case errors.Is(err, service.ErrForbidden):
		p := model.NewForbiddenError(err.Error())
		p.Code = model.ErrCodeNotRecordOwner
		return p

	// ===== Not Found Errors → 404 =====
	case errors.Is(err, service.ErrUserNotFound):
		return model.NewNotFoundError("user")
	case errors.Is(err, service.ErrAccountNotFound):
		return model.NewNotFoundError("account")
	case errors.Is(err, service.ErrDealNotFound):
		return model.NewNotFoundError("deal")
	case errors.Is(err, service.ErrJobNotFound):
		return model.NewNotFoundError("job")
	case errors.Is(err, service.ErrCandidateNotFound):
		return model.NewNotFoundError("candidate")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return model.NewNotFoundError("submission")
	case errors.Is(err, service.ErrOfferNotFound):
		return model.NewNotFoundError("offer")
	case errors.Is(err, service.ErrPlacementNotFound):
		return model.NewNotFoundError("placement")
	case errors.Is(err, service.ErrCourseNotFound):
		return model.NewNotFoundError("course")
	case errors.Is(err, service.ErrModuleNotFound):
		return model.NewNotFoundError("module")
	case errors.Is(err, service.ErrSprintNotFound):
		return model.NewNotFoundError("sprint")
	case errors.Is(err, service.ErrEnrollmentNotFound):
		return model.NewNotFoundError("enrollment")
	case errors.Is(err, service.ErrQuizNotFound):
		return model.NewNotFoundError("quiz")
	case errors.Is(err, service.ErrCampaignNotFound):
		return model.NewNotFoundError("campaign")
	case errors.Is(err, service.ErrCampaignEnrollment):
		return model.NewNotFoundError("campaign enrollment")
	case errors.Is(err, service.ErrGDPRRequestNotFound):
		return model.NewNotFoundError("gdpr request")
	case errors.Is(err, database.ErrNotFound):
		return model.NewNotFoundError("record")

	// ===== Conflict Errors → 409 =====
	case errors.Is(err, service.ErrEmailAlreadyExists),
		errors.Is(err, service.ErrCandidateEmailTaken),
		errors.Is(err, service.ErrDuplicateSubmission),
		errors.Is(err, service.ErrAlreadyEnrolled),
		errors.Is(err, service.ErrAlreadyInCampaign),
		errors.Is(err, database.ErrDuplicate):
		p := model.NewConflictError(err.Error())
		p.Code = model.ErrCodeAlreadyExists
		return p
	case errors.Is(err, service.ErrOfferOutstanding),
		errors.Is(err, service.ErrMigrationDrift),
		errors.Is(err, database.ErrConflict):
		return model.NewConflictError(err.Error())

	// ===== Validation Errors → 422 =====
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrPasswordRequired),
		errors.Is(err, service.ErrPasswordTooShort),
		errors.Is(err, service.ErrPasswordTooLong):
		return model.NewValidationError([]model.FieldError{{Field: "credentials", Message: err.Error()}})
	case errors.Is(err, service.ErrInvalidRole):
		return model.NewValidationError([]model.FieldError{{Field: "role", Message: err.Error()}})
	case errors.Is(err, service.ErrResumeRequired):
		return model.NewValidationError([]model.FieldError{{Field: "resume_text", Message: err.Error()}})

	// State errors → 422
	case errors.Is(err, service.ErrAccountArchived),
		errors.Is(err, service.ErrJobNotOpen),
		errors.Is(err, service.ErrJobArchived),
		errors.Is(err, service.ErrCandidateDoNotContact),
		errors.Is(err, service.ErrSubmissionNotInterview),
		errors.Is(err, service.ErrCourseNotPublished),
		errors.Is(err, service.ErrCourseNotEditable),
		errors.Is(err, service.ErrCourseHasNoModules),
		errors.Is(err, service.ErrModuleLocked),
		errors.Is(err, service.ErrModuleRequiresQuiz),
		errors.Is(err, service.ErrModuleAlreadyPassed),
		errors.Is(err, service.ErrSprintEnded),
		errors.Is(err, service.ErrEnrollmentNotActive),
		errors.Is(err, service.ErrCampaignLocked),
		errors.Is(err, service.ErrCampaignClosed):
		return model.NewValidationError([]model.FieldError{{Field: "state", Message: err.Error()}})

	// Limit/capacity errors → 422
	case errors.Is(err, service.ErrSprintFull),
		errors.Is(err, service.ErrMaxAttemptsReached),
		errors.Is(err, service.ErrTooManyCourseModules):
		p := model.NewValidationError([]model.FieldError{{Field: "limit", Message: err.Error()}})
		p.Code = model.ErrCodeLimitExceeded
		return p

	// ===== Import Errors =====
	case errors.Is(err, service.ErrImportTooLarge):
		return &model.ProblemDetails{
			Type:   "https://api.staffhub.dev/errors/too-large",
			Title:  "Payload Too Large",
			Status: 413,
			Detail: err.Error(),
			Code:   model.ErrCodeTooLarge,
		}
	case errors.Is(err, service.ErrUnsupportedFormat):
		return model.NewUnsupportedMediaTypeError("")
	case errors.Is(err, service.ErrUnsupportedEntity),
		errors.Is(err, service.ErrInvalidPolicy),
		errors.Is(err, service.ErrMalformedInput),
		errors.Is(err, service.ErrEmptyImport):
		return model.NewBadRequestError(err.Error())

	// ===== Classifier Errors =====
	case errors.Is(err, service.ErrClassifierDisabled):
		return &model.ProblemDetails{
			Type:   "https://api.staffhub.dev/errors/unavailable",
			Title:  "Service Unavailable",
			Status: 503,
			Detail: err.Error(),
			Code:   model.ErrCodeExternalAPI,
		}
	case errors.Is(err, service.ErrClassifierFailed):
		return model.NewExternalServiceError(err.Error())

	// ===== Storage Errors → 500 =====
	case errors.Is(err, database.ErrConnection),
		errors.Is(err, database.ErrQuery),
		errors.Is(err, service.ErrMigrationInvalid),
		errors.Is(err, service.ErrGDPRAllTablesFailed):
		p := model.NewInternalError("")
		p.Code = model.ErrCodeDatabase
		return p

	// ===== Default → 500 =====
	default:
		return model.NewInternalError("")
	}
}

// MapServiceErrorWithContext converts a service error to a ProblemDetails response
// with additional context about the operation that failed.
func MapServiceErrorWithContext(err error, operation string) *model.ProblemDetails {
	pd := MapServiceError(err)
	if pd != nil && pd.Status == 500 {
		pd.Detail = operation + ": an unexpected error occurred"
	}
	return pd
}
