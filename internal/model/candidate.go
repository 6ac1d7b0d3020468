package model

import "time"

// CandidateStatus is the recruiting status of a candidate
type CandidateStatus string

const (
	CandidateStatusNew          CandidateStatus = "new"
	CandidateStatusActive       CandidateStatus = "active"
	CandidateStatusBench        CandidateStatus = "bench"
	CandidateStatusPlaced       CandidateStatus = "placed"
	CandidateStatusDoNotContact CandidateStatus = "do_not_contact"
)

// IsValid returns true for known candidate statuses
func (s CandidateStatus) IsValid() bool {
	switch s {
	case CandidateStatusNew, CandidateStatusActive, CandidateStatusBench,
		CandidateStatusPlaced, CandidateStatusDoNotContact:
		return true
	}
	return false
}

// Candidate constraints
const (
	MaxNameLength       = 100
	MaxResumeLength     = 100000
	MaxYearsExperience  = 60
	MaxFlagReasonLength = 300
)

// Coerce replaces values no stored candidate may hold. Flagged import rows go
// through it so their invalid fields land as safe defaults: an unknown status
// becomes new and out-of-range experience becomes 0. Over-long text and skill
// lists are cut to their limits.
func (c *Candidate) Coerce() {
	if !c.Status.IsValid() {
		c.Status = CandidateStatusNew
	}
	if c.YearsExperience < 0 || c.YearsExperience > MaxYearsExperience {
		c.YearsExperience = 0
	}
	c.FirstName = TruncateUTF8(c.FirstName, MaxNameLength)
	c.LastName = TruncateUTF8(c.LastName, MaxNameLength)
	if len(c.Skills) > MaxSkillsPerRecord {
		c.Skills = c.Skills[:MaxSkillsPerRecord]
	}
	if c.ResumeText != nil && len(*c.ResumeText) > MaxResumeLength {
		text := TruncateUTF8(*c.ResumeText, MaxResumeLength)
		c.ResumeText = &text
	}
}

// Candidate represents a person in the recruiting pipeline
type Candidate struct {
	ID                string          `json:"id"`
	FirstName         string          `json:"first_name"`
	LastName          string          `json:"last_name"`
	Email             string          `json:"email"`
	Phone             *string         `json:"phone,omitempty"`
	Location          *string         `json:"location,omitempty"`
	Skills            []string        `json:"skills,omitempty"`
	YearsExperience   int             `json:"years_experience"`
	Status            CandidateStatus `json:"status"`
	Source            *string         `json:"source,omitempty"`
	WorkAuthorization *string         `json:"work_authorization,omitempty"`
	ResumeText        *string         `json:"resume_text,omitempty"`
	Category          *string         `json:"category,omitempty"`
	Seniority         *string         `json:"seniority,omitempty"`
	OwnerID           string          `json:"owner_id,omitempty"`
	Flagged           bool            `json:"flagged"`
	FlagReasons       []string        `json:"flag_reasons,omitempty"`
	ImportBatchID     *string         `json:"import_batch_id,omitempty"`
	Anonymized        bool            `json:"anonymized"`
	Archived          bool            `json:"archived"`
	CreatedOn         time.Time       `json:"created_on"`
	UpdatedOn         time.Time       `json:"updated_on"`
}

// FullName returns "First Last"
func (c *Candidate) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Contactable reports whether outreach to the candidate is permitted
func (c *Candidate) Contactable() bool {
	return !c.Anonymized && !c.Archived && c.Status != CandidateStatusDoNotContact
}

// CreateCandidateRequest represents a request to add a candidate
type CreateCandidateRequest struct {
	FirstName         string   `json:"first_name"`
	LastName          string   `json:"last_name"`
	Email             string   `json:"email"`
	Phone             *string  `json:"phone,omitempty"`
	Location          *string  `json:"location,omitempty"`
	Skills            []string `json:"skills,omitempty"`
	YearsExperience   int      `json:"years_experience,omitempty"`
	Status            string   `json:"status,omitempty"`
	Source            *string  `json:"source,omitempty"`
	WorkAuthorization *string  `json:"work_authorization,omitempty"`
	ResumeText        *string  `json:"resume_text,omitempty"`
}

// Validate validates the create candidate request
func (r *CreateCandidateRequest) Validate() []FieldError {
	var errors []FieldError
	if r.FirstName == "" {
		errors = append(errors, FieldError{Field: "first_name", Message: "first_name is required"})
	} else if len(r.FirstName) > MaxNameLength {
		errors = append(errors, FieldError{Field: "first_name", Message: "first_name must be 100 characters or less"})
	}
	if len(r.LastName) > MaxNameLength {
		errors = append(errors, FieldError{Field: "last_name", Message: "last_name must be 100 characters or less"})
	}
	if r.Email == "" {
		errors = append(errors, FieldError{Field: "email", Message: "email is required"})
	} else if !LooksLikeEmail(NormalizeEmail(r.Email)) {
		errors = append(errors, FieldError{Field: "email", Message: "email is invalid"})
	}
	if r.YearsExperience < 0 || r.YearsExperience > MaxYearsExperience {
		errors = append(errors, FieldError{Field: "years_experience", Message: "years_experience must be between 0 and 60"})
	}
	if r.Status != "" && !CandidateStatus(r.Status).IsValid() {
		errors = append(errors, FieldError{Field: "status", Message: "status is not a known candidate status"})
	}
	if len(r.Skills) > MaxSkillsPerRecord {
		errors = append(errors, FieldError{Field: "skills", Message: "too many skills"})
	}
	if r.ResumeText != nil && len(*r.ResumeText) > MaxResumeLength {
		errors = append(errors, FieldError{Field: "resume_text", Message: "resume_text is too long"})
	}
	return errors
}

// UpdateCandidateRequest represents a partial candidate update
type UpdateCandidateRequest struct {
	FirstName         *string  `json:"first_name,omitempty"`
	LastName          *string  `json:"last_name,omitempty"`
	Email             *string  `json:"email,omitempty"`
	Phone             *string  `json:"phone,omitempty"`
	Location          *string  `json:"location,omitempty"`
	Skills            []string `json:"skills,omitempty"`
	YearsExperience   *int     `json:"years_experience,omitempty"`
	Status            *string  `json:"status,omitempty"`
	Source            *string  `json:"source,omitempty"`
	WorkAuthorization *string  `json:"work_authorization,omitempty"`
	ResumeText        *string  `json:"resume_text,omitempty"`
	Flagged           *bool    `json:"flagged,omitempty"`
}

// Validate validates the update candidate request
func (r *UpdateCandidateRequest) Validate() []FieldError {
	var errors []FieldError
	if r.FirstName != nil && (*r.FirstName == "" || len(*r.FirstName) > MaxNameLength) {
		errors = append(errors, FieldError{Field: "first_name", Message: "first_name must be 1-100 characters"})
	}
	if r.LastName != nil && len(*r.LastName) > MaxNameLength {
		errors = append(errors, FieldError{Field: "last_name", Message: "last_name must be 100 characters or less"})
	}
	if r.Email != nil && !LooksLikeEmail(NormalizeEmail(*r.Email)) {
		errors = append(errors, FieldError{Field: "email", Message: "email is invalid"})
	}
	if r.YearsExperience != nil && (*r.YearsExperience < 0 || *r.YearsExperience > MaxYearsExperience) {
		errors = append(errors, FieldError{Field: "years_experience", Message: "years_experience must be between 0 and 60"})
	}
	if r.Status != nil && !CandidateStatus(*r.Status).IsValid() {
		errors = append(errors, FieldError{Field: "status", Message: "status is not a known candidate status"})
	}
	if len(r.Skills) > MaxSkillsPerRecord {
		errors = append(errors, FieldError{Field: "skills", Message: "too many skills"})
	}
	if r.ResumeText != nil && len(*r.ResumeText) > MaxResumeLength {
		errors = append(errors, FieldError{Field: "resume_text", Message: "resume_text is too long"})
	}
	return errors
}

// CandidateFilter narrows candidate listings
type CandidateFilter struct {
	Status  string
	Skill   string
	OwnerID string
	Flagged *bool
	Limit   int
	Offset  int
}

// Classification is the output of the resume classifier
type Classification struct {
	Category  string   `json:"category"`
	Seniority string   `json:"seniority"`
	Skills    []string `json:"skills,omitempty"`
}

// Classifier categories
const (
	CategorySoftwareEngineering = "software_engineering"
	CategoryData                = "data"
	CategoryDevOps              = "devops"
	CategoryQA                  = "qa"
	CategoryProjectManagement   = "project_management"
	CategorySales               = "sales"
	CategoryOther               = "other"
)

// Seniority levels
const (
	SeniorityJunior = "junior"
	SeniorityMid    = "mid"
	SenioritySenior = "senior"
)
