package model

import "time"

// GDPRRequestType is the kind of data-subject request
type GDPRRequestType string

const (
	GDPRRequestExport    GDPRRequestType = "export"
	GDPRRequestAnonymize GDPRRequestType = "anonymize"
	GDPRRequestDiscover  GDPRRequestType = "discover"
)

// GDPRRequestStatus tracks a data-subject request
type GDPRRequestStatus string

const (
	GDPRStatusPending    GDPRRequestStatus = "pending"
	GDPRStatusProcessing GDPRRequestStatus = "processing"
	GDPRStatusCompleted  GDPRRequestStatus = "completed"
	GDPRStatusFailed     GDPRRequestStatus = "failed"
)

// GDPRTableResult is the outcome of a request against one table
type GDPRTableResult struct {
	Table    string   `json:"table"`
	Affected int      `json:"affected"`
	IDs      []string `json:"ids,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// GDPRRequest is an audited data-subject request
type GDPRRequest struct {
	ID           string            `json:"id"`
	Type         GDPRRequestType   `json:"type"`
	SubjectEmail string            `json:"subject_email"`
	RequestedBy  string            `json:"requested_by"`
	Status       GDPRRequestStatus `json:"status"`
	Results      []GDPRTableResult `json:"results,omitempty"`
	CreatedOn    time.Time         `json:"created_on"`
	CompletedOn  *time.Time        `json:"completed_on,omitempty"`
}

// GDPRSubjectRequest names the data subject by email
type GDPRSubjectRequest struct {
	Email string `json:"email"`
}

// Validate validates the subject request
func (r *GDPRSubjectRequest) Validate() []FieldError {
	if !LooksLikeEmail(NormalizeEmail(r.Email)) {
		return []FieldError{{Field: "email", Message: "a valid email is required"}}
	}
	return nil
}

// DiscoveryResult maps each personal-data table to the record ids that reference the subject
type DiscoveryResult map[string][]string

// Total returns the number of records found across tables
func (d DiscoveryResult) Total() int {
	n := 0
	for _, ids := range d {
		n += len(ids)
	}
	return n
}

// GDPRExport is the full personal-data document for a subject
type GDPRExport struct {
	RequestID    string                      `json:"request_id"`
	SubjectEmail string                      `json:"subject_email"`
	GeneratedOn  time.Time                   `json:"generated_on"`
	Records      map[string][]map[string]any `json:"records"`
}

// Anonymized values written over personal data
const (
	AnonymizedName   = "Anonymized"
	AnonymizedDomain = "redacted.invalid"
)

// Tables holding personal data, in discovery order
const (
	GDPRTableCandidate          = "candidate"
	GDPRTableUser               = "user"
	GDPRTableAccount            = "account"
	GDPRTableCampaignEnrollment = "campaign_enrollment"
	GDPRTableSubmission         = "submission"
	GDPRTableEnrollment         = "enrollment"
	GDPRTableAuditLog           = "audit_log"
)

// GDPRSubject identifies a data subject. CandidateIDs and UserIDs are filled
// by discovery and used to find records that only reference the subject by id.
type GDPRSubject struct {
	Email        string
	CandidateIDs []string
	UserIDs      []string
}
