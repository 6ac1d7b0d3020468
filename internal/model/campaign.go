package model

import (
	"strconv"
	"text/template"
	"time"
)

// CampaignChannel is the delivery channel of outreach messages
type CampaignChannel string

const (
	ChannelEmail CampaignChannel = "email"
	ChannelSMS   CampaignChannel = "sms"
)

// CampaignStatus is the lifecycle status of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// CampaignTransitions is the campaign status machine
var CampaignTransitions = Transitions[CampaignStatus]{
	CampaignStatusDraft:  {CampaignStatusActive, CampaignStatusCompleted},
	CampaignStatusActive: {CampaignStatusPaused, CampaignStatusCompleted},
	CampaignStatusPaused: {CampaignStatusActive, CampaignStatusCompleted},
}

// Campaign constraints
const (
	MaxCampaignNameLength = 200
	MaxCampaignSteps      = 20
	MaxStepBodyLength     = 10000
	MaxStepDelayHours     = 24 * 90
)

// CampaignStep is one message in an outreach sequence
type CampaignStep struct {
	Position   int    `json:"position"`
	DelayHours int    `json:"delay_hours"`
	Subject    string `json:"subject,omitempty"`
	Body       string `json:"body"`
}

// Campaign is an automated outreach sequence
type Campaign struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Channel   CampaignChannel `json:"channel"`
	Status    CampaignStatus  `json:"status"`
	JobID     *string         `json:"job_id,omitempty"`
	Steps     []CampaignStep  `json:"steps"`
	OwnerID   string          `json:"owner_id"`
	CreatedOn time.Time       `json:"created_on"`
	UpdatedOn time.Time       `json:"updated_on"`
}

// CreateCampaignRequest creates a draft campaign
type CreateCampaignRequest struct {
	Name    string         `json:"name"`
	Channel string         `json:"channel"`
	JobID   *string        `json:"job_id,omitempty"`
	Steps   []CampaignStep `json:"steps"`
}

// Validate validates the create campaign request
func (r *CreateCampaignRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Name == "" {
		errors = append(errors, FieldError{Field: "name", Message: "name is required"})
	} else if len(r.Name) > MaxCampaignNameLength {
		errors = append(errors, FieldError{Field: "name", Message: "name must be 200 characters or less"})
	}
	if c := CampaignChannel(r.Channel); c != ChannelEmail && c != ChannelSMS {
		errors = append(errors, FieldError{Field: "channel", Message: "channel must be email or sms"})
	}
	return append(errors, ValidateSteps(CampaignChannel(r.Channel), r.Steps)...)
}

// UpdateStepsRequest replaces a campaign's steps
type UpdateStepsRequest struct {
	Steps []CampaignStep `json:"steps"`
}

// ValidateSteps checks step ordering, delays and that each body parses as a template
func ValidateSteps(channel CampaignChannel, steps []CampaignStep) []FieldError {
	var errors []FieldError
	if len(steps) == 0 {
		return append(errors, FieldError{Field: "steps", Message: "at least one step is required"})
	}
	if len(steps) > MaxCampaignSteps {
		return append(errors, FieldError{Field: "steps", Message: "too many steps"})
	}
	for i, step := range steps {
		field := "steps[" + strconv.Itoa(i) + "]"
		if step.Position != i+1 {
			errors = append(errors, FieldError{Field: field + ".position", Message: "positions must be consecutive starting at 1"})
		}
		if step.DelayHours < 0 || step.DelayHours > MaxStepDelayHours {
			errors = append(errors, FieldError{Field: field + ".delay_hours", Message: "delay_hours must be between 0 and 2160"})
		}
		if channel == ChannelEmail && step.Subject == "" {
			errors = append(errors, FieldError{Field: field + ".subject", Message: "subject is required for email steps"})
		}
		if step.Body == "" || len(step.Body) > MaxStepBodyLength {
			errors = append(errors, FieldError{Field: field + ".body", Message: "body must be 1-10000 characters"})
		} else if _, err := template.New("step").Parse(step.Body); err != nil {
			errors = append(errors, FieldError{Field: field + ".body", Message: "body is not a valid template"})
		}
	}
	return errors
}

// CampaignEnrollmentStatus tracks a candidate through a campaign
type CampaignEnrollmentStatus string

const (
	CampaignEnrollmentActive    CampaignEnrollmentStatus = "active"
	CampaignEnrollmentCompleted CampaignEnrollmentStatus = "completed"
	CampaignEnrollmentStopped   CampaignEnrollmentStatus = "stopped"
	CampaignEnrollmentFailed    CampaignEnrollmentStatus = "failed"
)

// CampaignEnrollment is a candidate's position in a campaign
type CampaignEnrollment struct {
	ID          string                   `json:"id"`
	CampaignID  string                   `json:"campaign_id"`
	CandidateID string                   `json:"candidate_id"`
	CurrentStep int                      `json:"current_step"`
	NextRunAt   *time.Time               `json:"next_run_at,omitempty"`
	Status      CampaignEnrollmentStatus `json:"status"`
	LastError   *string                  `json:"last_error,omitempty"`
	CreatedOn   time.Time                `json:"created_on"`
	UpdatedOn   time.Time                `json:"updated_on"`
}

// EnrollCandidatesRequest adds candidates to a campaign
type EnrollCandidatesRequest struct {
	CandidateIDs []string `json:"candidate_ids"`
}

// OutboundMessage is a rendered campaign step ready for delivery
type OutboundMessage struct {
	EnrollmentID string          `json:"enrollment_id"`
	CampaignID   string          `json:"campaign_id"`
	CandidateID  string          `json:"candidate_id"`
	Channel      CampaignChannel `json:"channel"`
	To           string          `json:"to"`
	Subject      string          `json:"subject,omitempty"`
	Body         string          `json:"body"`
	Step         int             `json:"step"`
}

// TemplateData is the value passed to step templates
type TemplateData struct {
	FirstName string
	LastName  string
	Email     string
	JobTitle  string
}

// RunReport summarizes one campaign engine tick
type RunReport struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Completed int `json:"completed"`
	Stopped   int `json:"stopped"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}
