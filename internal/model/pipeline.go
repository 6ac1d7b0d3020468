package model

import (
	"math"
	"time"
)

// SubmissionStatus tracks a candidate submitted to a job
type SubmissionStatus string

const (
	SubmissionStatusSubmitted    SubmissionStatus = "submitted"
	SubmissionStatusClientReview SubmissionStatus = "client_review"
	SubmissionStatusInterview    SubmissionStatus = "interview"
	SubmissionStatusOffered      SubmissionStatus = "offered"
	SubmissionStatusPlaced       SubmissionStatus = "placed"
	SubmissionStatusRejected     SubmissionStatus = "rejected"
	SubmissionStatusWithdrawn    SubmissionStatus = "withdrawn"
)

// SubmissionTransitions is the submission status machine.
// Offered and placed are driven by the offer lifecycle, not by direct status changes.
var SubmissionTransitions = Transitions[SubmissionStatus]{
	SubmissionStatusSubmitted:    {SubmissionStatusClientReview, SubmissionStatusRejected, SubmissionStatusWithdrawn},
	SubmissionStatusClientReview: {SubmissionStatusInterview, SubmissionStatusRejected, SubmissionStatusWithdrawn},
	SubmissionStatusInterview:    {SubmissionStatusOffered, SubmissionStatusRejected, SubmissionStatusWithdrawn},
	SubmissionStatusOffered:      {SubmissionStatusPlaced, SubmissionStatusInterview, SubmissionStatusRejected, SubmissionStatusWithdrawn},
}

// Submission represents a candidate put forward for a job
type Submission struct {
	ID          string           `json:"id"`
	JobID       string           `json:"job_id"`
	CandidateID string           `json:"candidate_id"`
	SubmittedBy string           `json:"submitted_by"`
	Status      SubmissionStatus `json:"status"`
	Notes       *string          `json:"notes,omitempty"`
	CreatedOn   time.Time        `json:"created_on"`
	UpdatedOn   time.Time        `json:"updated_on"`
}

// CreateSubmissionRequest submits a candidate to a job
type CreateSubmissionRequest struct {
	JobID       string  `json:"job_id"`
	CandidateID string  `json:"candidate_id"`
	Notes       *string `json:"notes,omitempty"`
}

// Validate validates the create submission request
func (r *CreateSubmissionRequest) Validate() []FieldError {
	var errors []FieldError
	if r.JobID == "" {
		errors = append(errors, FieldError{Field: "job_id", Message: "job_id is required"})
	}
	if r.CandidateID == "" {
		errors = append(errors, FieldError{Field: "candidate_id", Message: "candidate_id is required"})
	}
	if r.Notes != nil && len(*r.Notes) > MaxNotesLength {
		errors = append(errors, FieldError{Field: "notes", Message: "notes must be 5000 characters or less"})
	}
	return errors
}

// OfferStatus tracks an offer made on a submission
type OfferStatus string

const (
	OfferStatusDraft     OfferStatus = "draft"
	OfferStatusExtended  OfferStatus = "extended"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusDeclined  OfferStatus = "declined"
	OfferStatusRescinded OfferStatus = "rescinded"
)

// OfferTransitions is the offer status machine
var OfferTransitions = Transitions[OfferStatus]{
	OfferStatusDraft:    {OfferStatusExtended, OfferStatusRescinded},
	OfferStatusExtended: {OfferStatusAccepted, OfferStatusDeclined, OfferStatusRescinded},
}

// Offer represents compensation terms extended to a candidate
type Offer struct {
	ID           string      `json:"id"`
	SubmissionID string      `json:"submission_id"`
	BillRate     float64     `json:"bill_rate"`
	PayRate      float64     `json:"pay_rate"`
	StartDate    time.Time   `json:"start_date"`
	EndDate      *time.Time  `json:"end_date,omitempty"`
	Status       OfferStatus `json:"status"`
	CreatedBy    string      `json:"created_by"`
	CreatedOn    time.Time   `json:"created_on"`
	UpdatedOn    time.Time   `json:"updated_on"`
}

// CreateOfferRequest drafts an offer on a submission
type CreateOfferRequest struct {
	SubmissionID string  `json:"submission_id"`
	BillRate     float64 `json:"bill_rate"`
	PayRate      float64 `json:"pay_rate"`
	StartDate    string  `json:"start_date"`
	EndDate      *string `json:"end_date,omitempty"`
}

// Validate validates the create offer request
func (r *CreateOfferRequest) Validate() []FieldError {
	var errors []FieldError
	if r.SubmissionID == "" {
		errors = append(errors, FieldError{Field: "submission_id", Message: "submission_id is required"})
	}
	if r.BillRate <= 0 {
		errors = append(errors, FieldError{Field: "bill_rate", Message: "bill_rate must be positive"})
	}
	if r.PayRate <= 0 {
		errors = append(errors, FieldError{Field: "pay_rate", Message: "pay_rate must be positive"})
	} else if r.PayRate > r.BillRate && r.BillRate > 0 {
		errors = append(errors, FieldError{Field: "pay_rate", Message: "pay_rate cannot exceed bill_rate"})
	}
	start, err := ParseDate(r.StartDate)
	if err != nil {
		errors = append(errors, FieldError{Field: "start_date", Message: "start_date must be YYYY-MM-DD"})
	}
	if r.EndDate != nil {
		end, endErr := ParseDate(*r.EndDate)
		if endErr != nil {
			errors = append(errors, FieldError{Field: "end_date", Message: "end_date must be YYYY-MM-DD"})
		} else if err == nil && !end.After(start) {
			errors = append(errors, FieldError{Field: "end_date", Message: "end_date must be after start_date"})
		}
	}
	return errors
}

// PlacementStatus tracks an active engagement
type PlacementStatus string

const (
	PlacementStatusActive     PlacementStatus = "active"
	PlacementStatusCompleted  PlacementStatus = "completed"
	PlacementStatusTerminated PlacementStatus = "terminated"
)

// PlacementTransitions is the placement status machine
var PlacementTransitions = Transitions[PlacementStatus]{
	PlacementStatusActive: {PlacementStatusCompleted, PlacementStatusTerminated},
}

// Placement represents a candidate working on a job
type Placement struct {
	ID           string          `json:"id"`
	CandidateID  string          `json:"candidate_id"`
	JobID        string          `json:"job_id"`
	SubmissionID string          `json:"submission_id"`
	OfferID      string          `json:"offer_id"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      *time.Time      `json:"end_date,omitempty"`
	BillRate     float64         `json:"bill_rate"`
	PayRate      float64         `json:"pay_rate"`
	Margin       float64         `json:"margin"`
	MarginPct    float64         `json:"margin_pct"`
	Status       PlacementStatus `json:"status"`
	CreatedOn    time.Time       `json:"created_on"`
	UpdatedOn    time.Time       `json:"updated_on"`
}

// EndPlacementRequest completes or terminates a placement
type EndPlacementRequest struct {
	Status  string  `json:"status"`
	EndDate *string `json:"end_date,omitempty"`
}

// ComputeMargin returns the spread and its percentage of the bill rate, rounded to cents
func ComputeMargin(bill, pay float64) (margin, pct float64) {
	margin = math.Round((bill-pay)*100) / 100
	if bill <= 0 {
		return margin, 0
	}
	pct = math.Round((bill-pay)/bill*10000) / 100
	return margin, pct
}

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date in UTC
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
