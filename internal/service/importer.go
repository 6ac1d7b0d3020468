package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/forgo/staffhub/internal/model"
	"github.com/google/uuid"
)

// DefaultImportMaxRows caps an import when no limit is configured
const DefaultImportMaxRows = 5000

// Import formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// headerAliases map normalized column names onto field names
var headerAliases = map[string]string{
	"e_mail":        "email",
	"email_address": "email",
	"mail":          "email",
	"first":         "first_name",
	"firstname":     "first_name",
	"given_name":    "first_name",
	"last":          "last_name",
	"lastname":      "last_name",
	"surname":       "last_name",
	"family_name":   "last_name",
	"mobile":        "phone",
	"phone_number":  "phone",
	"telephone":     "phone",
	"city":          "location",
	"years":         "years_experience",
	"experience":    "years_experience",
	"yoe":           "years_experience",
	"skill":         "skills",
	"skillset":      "skills",
	"resume":        "resume_text",
	"cv":            "resume_text",
	"work_auth":     "work_authorization",
	"visa":          "work_authorization",
	"job_title":     "title",
	"position":      "title",
	"type":          "employment_type",
	"bill":          "bill_rate",
	"pay":           "pay_rate",
	"account":       "account_id",
	"company_id":    "account_id",
	"company":       "name",
	"company_name":  "name",
	"account_name":  "name",
	"url":           "website",
}

// ImportOptions describe one bulk import
type ImportOptions struct {
	Entity model.ImportEntity
	Format string
	Policy model.ImportPolicy
	DryRun bool
}

// ImportService bulk-loads candidates, jobs and accounts
type ImportService struct {
	candidates CandidateRepository
	jobs       *JobService
	accounts   *AccountService
	auditor    Auditor
	logger     *slog.Logger
	maxRows    int
}

// ImportServiceConfig holds configuration for the import service
type ImportServiceConfig struct {
	Candidates CandidateRepository
	Jobs       *JobService
	Accounts   *AccountService
	Auditor    Auditor
	Logger     *slog.Logger
	MaxRows    int
}

// NewImportService creates a new import service
func NewImportService(cfg ImportServiceConfig) *ImportService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultImportMaxRows
	}
	return &ImportService{
		candidates: cfg.Candidates,
		jobs:       cfg.Jobs,
		accounts:   cfg.Accounts,
		auditor:    auditorOrNoop(cfg.Auditor),
		logger:     logger,
		maxRows:    maxRows,
	}
}

// Import parses body and writes each valid row. The report is returned even
// when a storage error aborts the run part way.
func (s *ImportService) Import(ctx context.Context, actorID string, opts ImportOptions, body io.Reader) (*model.ImportReport, error) {
	if !opts.Entity.IsValid() {
		return nil, ErrUnsupportedEntity
	}
	policy, ok := model.ParseImportPolicy(string(opts.Policy))
	if !ok {
		return nil, ErrInvalidPolicy
	}

	records, err := s.parse(opts.Format, body)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyImport
	}

	report := &model.ImportReport{
		BatchID: uuid.NewString(),
		Entity:  opts.Entity,
		Policy:  policy,
		DryRun:  opts.DryRun,
		Total:   len(records),
		Errors:  []model.ImportRowError{},
	}
	run := &importRun{svc: s, actorID: actorID, report: report, policy: policy, dryRun: opts.DryRun}

	switch opts.Entity {
	case model.ImportCandidates:
		err = run.candidates(ctx, records)
	case model.ImportJobs:
		err = run.each(ctx, records, run.job)
	case model.ImportAccounts:
		err = run.each(ctx, records, run.account)
	}

	if !opts.DryRun {
		s.auditor.Record(ctx, actorID, model.AuditImport, string(opts.Entity), report.BatchID, map[string]any{
			"total":      report.Total,
			"imported":   report.Imported,
			"skipped":    report.Skipped,
			"flagged":    report.Flagged,
			"duplicates": report.Duplicates,
		})
	}
	s.logger.Info("import finished",
		"batch_id", report.BatchID,
		"entity", opts.Entity,
		"policy", policy,
		"dry_run", opts.DryRun,
		"total", report.Total,
		"imported", report.Imported,
		"skipped", report.Skipped,
	)
	return report, err
}

// ============================================================================
// Parsing
// ============================================================================

func (s *ImportService) parse(format string, body io.Reader) ([]model.ImportRecord, error) {
	switch format {
	case FormatCSV:
		return s.parseCSV(body)
	case FormatJSON:
		return s.parseJSON(body)
	}
	return nil, ErrUnsupportedFormat
}

func (s *ImportService) parseCSV(body io.Reader) ([]model.ImportRecord, error) {
	r := csv.NewReader(body)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyImport
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = NormalizeHeader(h)
	}

	var records []model.ImportRecord
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		if len(records) == s.maxRows {
			return nil, fmt.Errorf("%w: more than %d rows", ErrImportTooLarge, s.maxRows)
		}
		record := make(model.ImportRecord, len(columns))
		for i, col := range columns {
			if i < len(row) && col != "" {
				record[col] = strings.TrimSpace(row[i])
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *ImportService) parseJSON(body io.Reader) ([]model.ImportRecord, error) {
	var rows []map[string]any
	if err := json.NewDecoder(body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(rows) > s.maxRows {
		return nil, fmt.Errorf("%w: more than %d rows", ErrImportTooLarge, s.maxRows)
	}

	records := make([]model.ImportRecord, 0, len(rows))
	for _, row := range rows {
		record := make(model.ImportRecord, len(row))
		for key, val := range row {
			if col := NormalizeHeader(key); col != "" {
				record[col] = jsonString(val)
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// NormalizeHeader trims and lower-cases a column name, turns spaces and
// dashes into underscores and resolves aliases
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	if alias, ok := headerAliases[h]; ok {
		return alias
	}
	return h
}

func jsonString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, jsonString(item))
		}
		return strings.Join(parts, ";")
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// ============================================================================
// Rows
// ============================================================================

// importRun carries the state of one import
type importRun struct {
	svc     *ImportService
	actorID string
	report  *model.ImportReport
	policy  model.ImportPolicy
	dryRun  bool
}

// reject records an invalid row and reports whether the import must stop
func (r *importRun) reject(row int, errs []model.FieldError) bool {
	for _, fe := range errs {
		r.report.Errors = append(r.report.Errors, model.ImportRowError{Row: row, Field: fe.Field, Message: fe.Message})
	}
	if r.policy == model.PolicyStop {
		r.report.StoppedAt = &row
		return true
	}
	r.report.Skipped++
	return false
}

// each runs write for every record, applying the policy to validation errors.
// Flag behaves as skip for entities that cannot carry flags.
func (r *importRun) each(ctx context.Context, records []model.ImportRecord, write func(context.Context, model.ImportRecord) ([]model.FieldError, error)) error {
	for i, record := range records {
		row := i + 1
		errs, err := write(ctx, record)
		if err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
		if len(errs) > 0 {
			if r.reject(row, errs) {
				return nil
			}
			continue
		}
		r.report.Imported++
	}
	return nil
}

func (r *importRun) job(ctx context.Context, record model.ImportRecord) ([]model.FieldError, error) {
	req, errs := jobRequest(record)
	errs = append(errs, req.Validate()...)
	if len(errs) > 0 || r.dryRun {
		return errs, nil
	}
	_, err := r.svc.jobs.Create(ctx, r.actorID, req)
	switch {
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrAccountArchived):
		return []model.FieldError{{Field: "account_id", Message: err.Error()}}, nil
	case err != nil:
		return nil, err
	}
	return nil, nil
}

func (r *importRun) account(ctx context.Context, record model.ImportRecord) ([]model.FieldError, error) {
	req := accountRequest(record)
	if errs := req.Validate(); len(errs) > 0 || r.dryRun {
		return errs, nil
	}
	if _, err := r.svc.accounts.Create(ctx, r.actorID, req); err != nil {
		return nil, err
	}
	return nil, nil
}

// candidates imports candidate rows. Emails already stored or seen earlier in
// the file are duplicates. Under the flag policy an invalid row with a usable
// email is stored with flagged=true and the reasons.
func (r *importRun) candidates(ctx context.Context, records []model.ImportRecord) error {
	reqs := make([]*model.CreateCandidateRequest, len(records))
	parseErrs := make([][]model.FieldError, len(records))
	emails := make([]string, 0, len(records))
	for i, record := range records {
		reqs[i], parseErrs[i] = candidateRequest(record)
		if email := model.NormalizeEmail(reqs[i].Email); email != "" {
			emails = append(emails, email)
		}
	}

	existing, err := r.svc.candidates.ExistingEmails(ctx, emails)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(records))

	for i, req := range reqs {
		row := i + 1
		email := model.NormalizeEmail(req.Email)
		if email != "" && (existing[email] || seen[email]) {
			r.report.Duplicates++
			r.report.Errors = append(r.report.Errors, model.ImportRowError{Row: row, Field: "email", Message: "duplicate email"})
			continue
		}

		errs := append(parseErrs[i], req.Validate()...)
		flag := false
		if len(errs) > 0 {
			if r.policy != model.PolicyFlag || !model.LooksLikeEmail(email) {
				if r.reject(row, errs) {
					return nil
				}
				continue
			}
			flag = true
		}
		seen[email] = true

		c := candidateFromRequest(req)
		c.OwnerID = r.actorID
		c.ImportBatchID = &r.report.BatchID
		if flag {
			c.Coerce()
			c.Flagged = true
			for _, fe := range errs {
				c.FlagReasons = append(c.FlagReasons, fe.Field+": "+fe.Message)
				r.report.Errors = append(r.report.Errors, model.ImportRowError{Row: row, Field: fe.Field, Message: fe.Message})
			}
		}
		if !r.dryRun {
			if err := r.svc.candidates.Create(ctx, c); err != nil {
				return fmt.Errorf("row %d: %w", row, err)
			}
		}
		if flag {
			r.report.Flagged++
		}
		r.report.Imported++
	}
	return nil
}

// ============================================================================
// Record mapping
// ============================================================================

func candidateRequest(rec model.ImportRecord) (*model.CreateCandidateRequest, []model.FieldError) {
	var errs []model.FieldError
	req := &model.CreateCandidateRequest{
		FirstName:         rec["first_name"],
		LastName:          rec["last_name"],
		Email:             rec["email"],
		Phone:             optional(rec["phone"]),
		Location:          optional(rec["location"]),
		Skills:            splitList(rec["skills"]),
		Status:            rec["status"],
		Source:            optional(rec["source"]),
		WorkAuthorization: optional(rec["work_authorization"]),
		ResumeText:        optional(rec["resume_text"]),
	}
	if req.FirstName == "" && req.LastName == "" && rec["name"] != "" {
		req.FirstName, req.LastName, _ = strings.Cut(rec["name"], " ")
	}
	if v := rec["years_experience"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, model.FieldError{Field: "years_experience", Message: "years_experience must be a whole number"})
		}
		req.YearsExperience = n
	}
	return req, errs
}

func jobRequest(rec model.ImportRecord) (*model.CreateJobRequest, []model.FieldError) {
	var errs []model.FieldError
	req := &model.CreateJobRequest{
		AccountID:      rec["account_id"],
		Title:          rec["title"],
		Description:    rec["description"],
		Location:       optional(rec["location"]),
		EmploymentType: rec["employment_type"],
		Skills:         splitList(rec["skills"]),
	}
	if v := rec["remote"]; v != "" {
		remote, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, model.FieldError{Field: "remote", Message: "remote must be true or false"})
		}
		req.Remote = remote
	}
	if v := rec["openings"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, model.FieldError{Field: "openings", Message: "openings must be a whole number"})
		}
		req.Openings = n
	}
	for _, field := range []string{"bill_rate", "pay_rate"} {
		v := rec[field]
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimPrefix(v, "$"), 64)
		if err != nil {
			errs = append(errs, model.FieldError{Field: field, Message: field + " must be a number"})
			continue
		}
		if field == "bill_rate" {
			req.BillRate = &f
		} else {
			req.PayRate = &f
		}
	}
	return req, errs
}

func accountRequest(rec model.ImportRecord) *model.CreateAccountRequest {
	req := &model.CreateAccountRequest{
		Name:     rec["name"],
		Industry: optional(rec["industry"]),
		Website:  optional(rec["website"]),
		Status:   rec["status"],
		Notes:    optional(rec["notes"]),
	}
	if rec["contact_name"] != "" || rec["contact_email"] != "" {
		req.Contact = &model.Contact{
			Name:  rec["contact_name"],
			Email: rec["contact_email"],
			Phone: optional(rec["contact_phone"]),
			Title: optional(rec["contact_title"]),
		}
	}
	return req
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '|' || r == ',' })
}
