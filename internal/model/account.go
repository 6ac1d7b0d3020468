package model

import "time"

// AccountStatus is the CRM status of a client account
type AccountStatus string

const (
	AccountStatusProspect AccountStatus = "prospect"
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
)

// Account constraints
const (
	MaxAccountNameLength = 200
	MaxNotesLength       = 5000
)

// Contact is the primary client-side contact of an account
type Contact struct {
	Name  string  `json:"name,omitempty"`
	Email string  `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Title *string `json:"title,omitempty"`
}

// Account represents a client company
type Account struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Industry  *string       `json:"industry,omitempty"`
	Website   *string       `json:"website,omitempty"`
	Status    AccountStatus `json:"status"`
	OwnerID   string        `json:"owner_id"`
	Contact   *Contact      `json:"contact,omitempty"`
	Notes     *string       `json:"notes,omitempty"`
	Archived  bool          `json:"archived"`
	CreatedOn time.Time     `json:"created_on"`
	UpdatedOn time.Time     `json:"updated_on"`
}

// CreateAccountRequest represents a request to create an account
type CreateAccountRequest struct {
	Name     string   `json:"name"`
	Industry *string  `json:"industry,omitempty"`
	Website  *string  `json:"website,omitempty"`
	Status   string   `json:"status,omitempty"`
	Contact  *Contact `json:"contact,omitempty"`
	Notes    *string  `json:"notes,omitempty"`
}

// Validate validates the create account request
func (r *CreateAccountRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Name == "" {
		errors = append(errors, FieldError{Field: "name", Message: "name is required"})
	} else if len(r.Name) > MaxAccountNameLength {
		errors = append(errors, FieldError{Field: "name", Message: "name must be 200 characters or less"})
	}
	if r.Status != "" && !isAccountStatus(AccountStatus(r.Status)) {
		errors = append(errors, FieldError{Field: "status", Message: "status must be prospect, active, or inactive"})
	}
	if r.Contact != nil && r.Contact.Email != "" && !LooksLikeEmail(r.Contact.Email) {
		errors = append(errors, FieldError{Field: "contact.email", Message: "contact email is invalid"})
	}
	if r.Notes != nil && len(*r.Notes) > MaxNotesLength {
		errors = append(errors, FieldError{Field: "notes", Message: "notes must be 5000 characters or less"})
	}
	return errors
}

// UpdateAccountRequest represents a partial account update
type UpdateAccountRequest struct {
	Name     *string  `json:"name,omitempty"`
	Industry *string  `json:"industry,omitempty"`
	Website  *string  `json:"website,omitempty"`
	Status   *string  `json:"status,omitempty"`
	OwnerID  *string  `json:"owner_id,omitempty"`
	Contact  *Contact `json:"contact,omitempty"`
	Notes    *string  `json:"notes,omitempty"`
}

// Validate validates the update account request
func (r *UpdateAccountRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Name != nil && (*r.Name == "" || len(*r.Name) > MaxAccountNameLength) {
		errors = append(errors, FieldError{Field: "name", Message: "name must be 1-200 characters"})
	}
	if r.Status != nil && !isAccountStatus(AccountStatus(*r.Status)) {
		errors = append(errors, FieldError{Field: "status", Message: "status must be prospect, active, or inactive"})
	}
	if r.Contact != nil && r.Contact.Email != "" && !LooksLikeEmail(r.Contact.Email) {
		errors = append(errors, FieldError{Field: "contact.email", Message: "contact email is invalid"})
	}
	if r.Notes != nil && len(*r.Notes) > MaxNotesLength {
		errors = append(errors, FieldError{Field: "notes", Message: "notes must be 5000 characters or less"})
	}
	return errors
}

func isAccountStatus(s AccountStatus) bool {
	return s == AccountStatusProspect || s == AccountStatusActive || s == AccountStatusInactive
}

// DealStage is the sales stage of a deal
type DealStage string

const (
	DealStageProspecting DealStage = "prospecting"
	DealStageQualified   DealStage = "qualified"
	DealStageProposal    DealStage = "proposal"
	DealStageNegotiation DealStage = "negotiation"
	DealStageWon         DealStage = "won"
	DealStageLost        DealStage = "lost"
)

// DealTransitions is the deal stage machine
var DealTransitions = Transitions[DealStage]{
	DealStageProspecting: {DealStageQualified, DealStageLost},
	DealStageQualified:   {DealStageProposal, DealStageLost},
	DealStageProposal:    {DealStageNegotiation, DealStageLost},
	DealStageNegotiation: {DealStageWon, DealStageLost},
}

// Deal represents a sales opportunity with an account
type Deal struct {
	ID        string     `json:"id"`
	AccountID string     `json:"account_id"`
	Title     string     `json:"title"`
	Value     float64    `json:"value"`
	Stage     DealStage  `json:"stage"`
	OwnerID   string     `json:"owner_id"`
	ClosedOn  *time.Time `json:"closed_on,omitempty"`
	CreatedOn time.Time  `json:"created_on"`
	UpdatedOn time.Time  `json:"updated_on"`
}

// CreateDealRequest represents a request to open a deal
type CreateDealRequest struct {
	Title string  `json:"title"`
	Value float64 `json:"value"`
}

// Validate validates the create deal request
func (r *CreateDealRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Title == "" {
		errors = append(errors, FieldError{Field: "title", Message: "title is required"})
	} else if len(r.Title) > MaxAccountNameLength {
		errors = append(errors, FieldError{Field: "title", Message: "title must be 200 characters or less"})
	}
	if r.Value < 0 {
		errors = append(errors, FieldError{Field: "value", Message: "value cannot be negative"})
	}
	return errors
}

// MoveDealRequest moves a deal to another stage
type MoveDealRequest struct {
	Stage string `json:"stage"`
}
