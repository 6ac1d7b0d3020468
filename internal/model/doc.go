// Package model defines domain entities and data structures for the StaffHub API.
//
// The model package contains the struct definitions for domain objects, request
// types with their Validate methods, status machines, and RFC 9457 error types.
// Models are used across all layers of the application.
//
// # Domain Entities
//
//   - User: staff or candidate login with a role
//   - Account, Deal: CRM records for client companies
//   - Job: a client requisition
//   - Candidate: a person in the recruiting pipeline
//   - Submission, Offer, Placement: the hiring pipeline
//   - Course, CourseModule, Sprint, Enrollment, Quiz: the training academy
//   - Campaign, CampaignEnrollment: automated outreach
//   - GDPRRequest, AuditEntry, Migration: operations records
//
// # Status Machines
//
// Lifecycle fields are typed strings with a Transitions table:
//
//	var JobTransitions = Transitions[JobStatus]{
//	    JobStatusDraft: {JobStatusOpen, JobStatusClosed},
//	    ...
//	}
//
// Services call Allows(from, to) before writing a status change.
//
// # Error Types
//
// RFC 9457 Problem Details errors are defined in errors.go.
package model
