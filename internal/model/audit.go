package model

import "time"

// Audit actions
const (
	AuditCreate  = "create"
	AuditUpdate  = "update"
	AuditArchive = "archive"
	AuditStatus  = "status"
	AuditImport  = "import"
	AuditGDPR    = "gdpr"
	AuditMigrate = "migrate"
	AuditLogin   = "login"
)

// AuditEntry is one record of a mutation
type AuditEntry struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	Entity     string         `json:"entity"`
	EntityID   string         `json:"entity_id,omitempty"`
	Partition  string         `json:"partition"`
	Details    map[string]any `json:"details,omitempty"`
	OccurredOn time.Time      `json:"occurred_on"`
}

// AuditPartition returns the monthly partition key (YYYY_MM, UTC) for t
func AuditPartition(t time.Time) string {
	return t.UTC().Format("2006_01")
}

// AuditFilter narrows audit listings
type AuditFilter struct {
	Entity    string
	EntityID  string
	ActorID   string
	Partition string
	Limit     int
	Offset    int
}
