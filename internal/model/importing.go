package model

// ImportEntity is a bulk-importable record type
type ImportEntity string

const (
	ImportCandidates ImportEntity = "candidates"
	ImportJobs       ImportEntity = "jobs"
	ImportAccounts   ImportEntity = "accounts"
)

// IsValid returns true for importable entities
func (e ImportEntity) IsValid() bool {
	return e == ImportCandidates || e == ImportJobs || e == ImportAccounts
}

// ImportPolicy decides what happens to rows that fail validation
type ImportPolicy string

const (
	PolicySkip ImportPolicy = "skip"
	PolicyStop ImportPolicy = "stop"
	PolicyFlag ImportPolicy = "flag"
)

// ParseImportPolicy returns the policy for s, defaulting to skip on empty
func ParseImportPolicy(s string) (ImportPolicy, bool) {
	switch ImportPolicy(s) {
	case "":
		return PolicySkip, true
	case PolicySkip, PolicyStop, PolicyFlag:
		return ImportPolicy(s), true
	}
	return "", false
}

// ImportRowError describes a problem with one input row (1-based, header excluded)
type ImportRowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ImportReport summarizes a bulk import
type ImportReport struct {
	BatchID    string           `json:"batch_id"`
	Entity     ImportEntity     `json:"entity"`
	Policy     ImportPolicy     `json:"policy"`
	DryRun     bool             `json:"dry_run"`
	Total      int              `json:"total"`
	Imported   int              `json:"imported"`
	Skipped    int              `json:"skipped"`
	Flagged    int              `json:"flagged"`
	Duplicates int              `json:"duplicates"`
	StoppedAt  *int             `json:"stopped_at,omitempty"`
	Errors     []ImportRowError `json:"errors"`
}

// ImportRecord is one input row keyed by normalized column name
type ImportRecord map[string]string
