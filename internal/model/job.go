package model

import "time"

// JobStatus is the lifecycle status of a requisition
type JobStatus string

const (
	JobStatusDraft  JobStatus = "draft"
	JobStatusOpen   JobStatus = "open"
	JobStatusOnHold JobStatus = "on_hold"
	JobStatusFilled JobStatus = "filled"
	JobStatusClosed JobStatus = "closed"
)

// JobTransitions is the requisition status machine. Closed is terminal.
var JobTransitions = Transitions[JobStatus]{
	JobStatusDraft:  {JobStatusOpen, JobStatusClosed},
	JobStatusOpen:   {JobStatusOnHold, JobStatusFilled, JobStatusClosed},
	JobStatusOnHold: {JobStatusOpen, JobStatusClosed},
	JobStatusFilled: {JobStatusOpen, JobStatusClosed},
}

// EmploymentType describes how a placement is engaged
type EmploymentType string

const (
	EmploymentFullTime       EmploymentType = "full_time"
	EmploymentContract       EmploymentType = "contract"
	EmploymentContractToHire EmploymentType = "contract_to_hire"
)

// IsValid returns true for known employment types
func (e EmploymentType) IsValid() bool {
	return e == EmploymentFullTime || e == EmploymentContract || e == EmploymentContractToHire
}

// Job constraints
const (
	MaxJobTitleLength       = 200
	MaxJobDescriptionLength = 20000
	MaxSkillsPerRecord      = 50
)

// Job represents a client requisition
type Job struct {
	ID             string         `json:"id"`
	AccountID      string         `json:"account_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Location       *string        `json:"location,omitempty"`
	Remote         bool           `json:"remote"`
	EmploymentType EmploymentType `json:"employment_type"`
	Status         JobStatus      `json:"status"`
	Openings       int            `json:"openings"`
	BillRate       *float64       `json:"bill_rate,omitempty"`
	PayRate        *float64       `json:"pay_rate,omitempty"`
	Skills         []string       `json:"skills,omitempty"`
	OwnerID        string         `json:"owner_id"`
	Archived       bool           `json:"archived"`
	CreatedOn      time.Time      `json:"created_on"`
	UpdatedOn      time.Time      `json:"updated_on"`
}

// CreateJobRequest represents a request to open a requisition
type CreateJobRequest struct {
	AccountID      string   `json:"account_id"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Location       *string  `json:"location,omitempty"`
	Remote         bool     `json:"remote,omitempty"`
	EmploymentType string   `json:"employment_type"`
	Openings       int      `json:"openings,omitempty"`
	BillRate       *float64 `json:"bill_rate,omitempty"`
	PayRate        *float64 `json:"pay_rate,omitempty"`
	Skills         []string `json:"skills,omitempty"`
}

// Validate validates the create job request
func (r *CreateJobRequest) Validate() []FieldError {
	var errors []FieldError
	if r.AccountID == "" {
		errors = append(errors, FieldError{Field: "account_id", Message: "account_id is required"})
	}
	if r.Title == "" {
		errors = append(errors, FieldError{Field: "title", Message: "title is required"})
	} else if len(r.Title) > MaxJobTitleLength {
		errors = append(errors, FieldError{Field: "title", Message: "title must be 200 characters or less"})
	}
	if len(r.Description) > MaxJobDescriptionLength {
		errors = append(errors, FieldError{Field: "description", Message: "description is too long"})
	}
	if !EmploymentType(r.EmploymentType).IsValid() {
		errors = append(errors, FieldError{Field: "employment_type", Message: "employment_type must be full_time, contract, or contract_to_hire"})
	}
	if r.Openings < 0 {
		errors = append(errors, FieldError{Field: "openings", Message: "openings must be at least 1"})
	}
	errors = append(errors, validateRates(r.BillRate, r.PayRate)...)
	if len(r.Skills) > MaxSkillsPerRecord {
		errors = append(errors, FieldError{Field: "skills", Message: "too many skills"})
	}
	return errors
}

// UpdateJobRequest represents a partial requisition update
type UpdateJobRequest struct {
	Title          *string  `json:"title,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Location       *string  `json:"location,omitempty"`
	Remote         *bool    `json:"remote,omitempty"`
	EmploymentType *string  `json:"employment_type,omitempty"`
	Openings       *int     `json:"openings,omitempty"`
	BillRate       *float64 `json:"bill_rate,omitempty"`
	PayRate        *float64 `json:"pay_rate,omitempty"`
	Skills         []string `json:"skills,omitempty"`
	OwnerID        *string  `json:"owner_id,omitempty"`
}

// Validate validates the update job request
func (r *UpdateJobRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Title != nil && (*r.Title == "" || len(*r.Title) > MaxJobTitleLength) {
		errors = append(errors, FieldError{Field: "title", Message: "title must be 1-200 characters"})
	}
	if r.Description != nil && len(*r.Description) > MaxJobDescriptionLength {
		errors = append(errors, FieldError{Field: "description", Message: "description is too long"})
	}
	if r.EmploymentType != nil && !EmploymentType(*r.EmploymentType).IsValid() {
		errors = append(errors, FieldError{Field: "employment_type", Message: "employment_type must be full_time, contract, or contract_to_hire"})
	}
	if r.Openings != nil && *r.Openings < 1 {
		errors = append(errors, FieldError{Field: "openings", Message: "openings must be at least 1"})
	}
	errors = append(errors, validateRates(r.BillRate, r.PayRate)...)
	if len(r.Skills) > MaxSkillsPerRecord {
		errors = append(errors, FieldError{Field: "skills", Message: "too many skills"})
	}
	return errors
}

// ChangeStatusRequest is shared by every lifecycle endpoint
type ChangeStatusRequest struct {
	Status string  `json:"status"`
	Reason *string `json:"reason,omitempty"`
}

func validateRates(bill, pay *float64) []FieldError {
	var errors []FieldError
	if bill != nil && *bill < 0 {
		errors = append(errors, FieldError{Field: "bill_rate", Message: "bill_rate cannot be negative"})
	}
	if pay != nil && *pay < 0 {
		errors = append(errors, FieldError{Field: "pay_rate", Message: "pay_rate cannot be negative"})
	}
	if bill != nil && pay != nil && *pay > *bill {
		errors = append(errors, FieldError{Field: "pay_rate", Message: "pay_rate cannot exceed bill_rate"})
	}
	return errors
}
