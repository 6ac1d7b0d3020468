package service

import (
	"errors"
	"fmt"
)

// Centralized service layer errors.
// Handlers map these onto problem responses in handler/error_mapper.go.

// ===== Authentication Errors =====
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 128 characters")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrInvalidRole        = errors.New("invalid role")
)

// ===== Token Errors =====
var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
)

// ===== Authorization Errors =====
var (
	ErrForbidden = errors.New("not authorized to perform this action")
)

// ===== CRM Errors =====
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountArchived = errors.New("account is archived")
	ErrDealNotFound    = errors.New("deal not found")
)

// ===== Requisition Errors =====
var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobNotOpen  = errors.New("job is not open")
	ErrJobArchived = errors.New("job is archived")
)

// ===== Candidate Errors =====
var (
	ErrCandidateNotFound     = errors.New("candidate not found")
	ErrCandidateEmailTaken   = errors.New("a candidate with this email already exists")
	ErrCandidateDoNotContact = errors.New("candidate is marked do not contact")
)

// ===== Pipeline Errors =====
var (
	ErrSubmissionNotFound     = errors.New("submission not found")
	ErrDuplicateSubmission    = errors.New("candidate already submitted to this job")
	ErrSubmissionNotInterview = errors.New("submission must be in interview to make an offer")
	ErrOfferNotFound          = errors.New("offer not found")
	ErrOfferOutstanding       = errors.New("submission already has an open offer")
	ErrPlacementNotFound      = errors.New("placement not found")
)

// ===== Academy Errors =====
var (
	ErrCourseNotFound       = errors.New("course not found")
	ErrCourseNotPublished   = errors.New("course is not open for enrollment")
	ErrCourseNotEditable    = errors.New("only draft courses can change modules")
	ErrCourseHasNoModules   = errors.New("course has no modules")
	ErrModuleNotFound       = errors.New("module not found")
	ErrModuleLocked         = errors.New("complete earlier modules first")
	ErrModuleRequiresQuiz   = errors.New("module completes by passing its quiz")
	ErrSprintNotFound       = errors.New("sprint not found")
	ErrSprintFull           = errors.New("sprint is at capacity")
	ErrSprintEnded          = errors.New("sprint has ended")
	ErrAlreadyEnrolled      = errors.New("already enrolled in this course")
	ErrEnrollmentNotFound   = errors.New("enrollment not found")
	ErrEnrollmentNotActive  = errors.New("enrollment is not active")
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrMaxAttemptsReached   = errors.New("maximum quiz attempts reached")
	ErrModuleAlreadyPassed  = errors.New("module already completed")
	ErrTooManyCourseModules = errors.New("course has the maximum number of modules")
)

// ===== Campaign Errors =====
var (
	ErrCampaignNotFound   = errors.New("campaign not found")
	ErrCampaignLocked     = errors.New("active campaigns cannot change steps")
	ErrCampaignClosed     = errors.New("campaign is completed")
	ErrAlreadyInCampaign  = errors.New("candidate already enrolled in this campaign")
	ErrCampaignEnrollment = errors.New("campaign enrollment not found")
)

// ===== GDPR Errors =====
var (
	ErrGDPRRequestNotFound = errors.New("gdpr request not found")
	ErrGDPRAllTablesFailed = errors.New("every table failed")
)

// ===== Import Errors =====
var (
	ErrUnsupportedEntity = errors.New("unsupported import entity")
	ErrUnsupportedFormat = errors.New("unsupported import format")
	ErrInvalidPolicy     = errors.New("policy must be skip, stop, or flag")
	ErrImportTooLarge    = errors.New("import exceeds the row limit")
	ErrMalformedInput    = errors.New("input could not be parsed")
	ErrEmptyImport       = errors.New("import contains no rows")
)

// ===== Migration Errors =====
var (
	ErrMigrationDrift   = errors.New("applied migration checksum does not match")
	ErrMigrationInvalid = errors.New("invalid migration file")
)

// ===== Classifier Errors =====
var (
	ErrResumeRequired     = errors.New("candidate has no resume text")
	ErrClassifierDisabled = errors.New("classifier is not configured")
	ErrClassifierFailed   = errors.New("classifier request failed")
)

// ErrInvalidTransition is matched by every TransitionError
var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError describes a refused lifecycle move
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

// Is makes errors.Is(err, ErrInvalidTransition) true
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func transitionError[S ~string](entity string, from, to S) error {
	return &TransitionError{Entity: entity, From: string(from), To: string(to)}
}
