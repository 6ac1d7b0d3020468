// Package service implements the business logic layer for the StaffHub API.
//
// Services hold validation, status machines, role checks and audit writes.
// They sit between HTTP handlers (and opsctl commands) and the repositories.
//
// # Service Pattern
//
//   - NewXxxService accepts a XxxServiceConfig with its dependencies
//   - Storage is declared here as small interfaces (CandidateRepository,
//     AccountRepository, ...) that the repository package satisfies
//   - Every mutating operation records an audit entry through Auditor
//   - Context is passed through for cancellation
//
// # Error Handling
//
// Services return sentinel errors from errors.go, sometimes wrapped with
// detail. The handler package maps each one to a problem response:
//
//	var (
//	    ErrCandidateNotFound   = errors.New("candidate not found")
//	    ErrDuplicateSubmission = errors.New("candidate already submitted to this job")
//	)
//
// Status changes that a machine refuses return *TransitionError, which
// carries the from and to states.
//
// # Example Usage
//
//	svc := NewPipelineService(PipelineServiceConfig{
//	    Submissions: submissionRepo,
//	    Offers:      offerRepo,
//	    Placements:  placementRepo,
//	    Jobs:        jobRepo,
//	    Candidates:  candidateRepo,
//	    Auditor:     auditService,
//	})
//	sub, err := svc.Submit(ctx, recruiterID, &model.CreateSubmissionRequest{
//	    JobID:       "job:abc123",
//	    CandidateID: "candidate:xyz789",
//	})
package service
