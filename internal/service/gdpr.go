package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/forgo/staffhub/internal/model"
	"golang.org/x/sync/errgroup"
)

// GDPRRepository defines the interface for personal-data discovery, export,
// redaction and request storage
type GDPRRepository interface {
	Discover(ctx context.Context, table string, subject model.GDPRSubject) ([]string, error)
	Export(ctx context.Context, table string, ids []string) ([]map[string]any, error)
	Anonymize(ctx context.Context, table string, ids []string) (int, error)
	CreateRequest(ctx context.Context, req *model.GDPRRequest) error
	UpdateRequest(ctx context.Context, req *model.GDPRRequest) error
	GetRequest(ctx context.Context, id string) (*model.GDPRRequest, error)
	ListRequests(ctx context.Context, limit, offset int) ([]*model.GDPRRequest, error)
}

// Tables matched directly by email. Every other table is found through the ids these return.
var gdprDirectTables = []string{
	model.GDPRTableCandidate,
	model.GDPRTableUser,
	model.GDPRTableAccount,
}

var gdprLinkedTables = []string{
	model.GDPRTableCampaignEnrollment,
	model.GDPRTableSubmission,
	model.GDPRTableEnrollment,
	model.GDPRTableAuditLog,
}

// GDPRService handles data-subject requests
type GDPRService struct {
	repo    GDPRRepository
	auditor Auditor
	logger  *slog.Logger
	now     func() time.Time
}

// GDPRServiceConfig holds configuration for the gdpr service
type GDPRServiceConfig struct {
	Repo    GDPRRepository
	Auditor Auditor
	Logger  *slog.Logger
}

// NewGDPRService creates a new gdpr service
func NewGDPRService(cfg GDPRServiceConfig) *GDPRService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GDPRService{
		repo:    cfg.Repo,
		auditor: auditorOrNoop(cfg.Auditor),
		logger:  logger,
		now:     time.Now,
	}
}

// Discover finds every record that belongs to the subject
func (s *GDPRService) Discover(ctx context.Context, actorID string, req *model.GDPRSubjectRequest) (*model.GDPRRequest, model.DiscoveryResult, error) {
	request, err := s.open(ctx, actorID, model.GDPRRequestDiscover, req)
	if err != nil {
		return nil, nil, err
	}

	found, failures := s.discover(ctx, request.SubjectEmail)
	request.Results = tableResults(found, failures, nil)
	if err := s.close(ctx, request); err != nil {
		return nil, nil, err
	}
	if request.Status == model.GDPRStatusFailed {
		return request, nil, fmt.Errorf("%w: %w", ErrGDPRAllTablesFailed, errors.Join(mapErrors(failures)...))
	}
	return request, found, nil
}

// Export returns every record that belongs to the subject as one document
func (s *GDPRService) Export(ctx context.Context, actorID string, req *model.GDPRSubjectRequest) (*model.GDPRExport, error) {
	request, err := s.open(ctx, actorID, model.GDPRRequestExport, req)
	if err != nil {
		return nil, err
	}

	found, failures := s.discover(ctx, request.SubjectEmail)
	export := &model.GDPRExport{
		RequestID:    request.ID,
		SubjectEmail: request.SubjectEmail,
		GeneratedOn:  s.now().UTC(),
		Records:      make(map[string][]map[string]any, len(found)),
	}

	var mu sync.Mutex
	var g errgroup.Group
	for table, ids := range found {
		g.Go(func() error {
			records, err := s.repo.Export(ctx, table, ids)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[table] = err
				return nil
			}
			export.Records[table] = records
			return nil
		})
	}
	_ = g.Wait()

	for table := range failures {
		delete(found, table)
	}
	request.Results = tableResults(found, failures, nil)
	if err := s.close(ctx, request); err != nil {
		return nil, err
	}
	if request.Status == model.GDPRStatusFailed {
		return nil, fmt.Errorf("%w: %w", ErrGDPRAllTablesFailed, errors.Join(mapErrors(failures)...))
	}
	return export, nil
}

// Anonymize redacts personal data table by table. Failures are recorded per
// table and the request only fails when every table failed.
func (s *GDPRService) Anonymize(ctx context.Context, actorID string, req *model.GDPRSubjectRequest) (*model.GDPRRequest, error) {
	request, err := s.open(ctx, actorID, model.GDPRRequestAnonymize, req)
	if err != nil {
		return nil, err
	}

	found, failures := s.discover(ctx, request.SubjectEmail)
	affected := make(map[string]int, len(found))
	for _, table := range append(append([]string{}, gdprLinkedTables...), gdprDirectTables...) {
		ids, ok := found[table]
		if !ok {
			continue
		}
		n, err := s.repo.Anonymize(ctx, table, ids)
		if err != nil {
			s.logger.Error("gdpr anonymize table failed",
				"request_id", request.ID,
				"table", table,
				"error", err,
			)
			failures[table] = err
			delete(found, table)
			continue
		}
		affected[table] = n
	}

	request.Results = tableResults(found, failures, affected)
	if err := s.close(ctx, request); err != nil {
		return nil, err
	}
	if request.Status == model.GDPRStatusFailed {
		return request, fmt.Errorf("%w: %w", ErrGDPRAllTablesFailed, errors.Join(mapErrors(failures)...))
	}
	return request, nil
}

// GetRequest retrieves a gdpr request
func (s *GDPRService) GetRequest(ctx context.Context, id string) (*model.GDPRRequest, error) {
	req, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrGDPRRequestNotFound
	}
	return req, nil
}

// ListRequests lists gdpr requests
func (s *GDPRService) ListRequests(ctx context.Context, limit, offset int) ([]*model.GDPRRequest, error) {
	return s.repo.ListRequests(ctx, model.ClampLimit(limit), offset)
}

// open validates the subject and stores a processing request
func (s *GDPRService) open(ctx context.Context, actorID string, kind model.GDPRRequestType, req *model.GDPRSubjectRequest) (*model.GDPRRequest, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}
	request := &model.GDPRRequest{
		Type:         kind,
		SubjectEmail: model.NormalizeEmail(req.Email),
		RequestedBy:  actorID,
		Status:       model.GDPRStatusPending,
	}
	if err := s.repo.CreateRequest(ctx, request); err != nil {
		return nil, err
	}
	request.Status = model.GDPRStatusProcessing
	if err := s.repo.UpdateRequest(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// close settles the request status from its results and stores it
func (s *GDPRService) close(ctx context.Context, request *model.GDPRRequest) error {
	failed := 0
	for _, r := range request.Results {
		if r.Error != "" {
			failed++
		}
	}
	request.Status = model.GDPRStatusCompleted
	if len(request.Results) > 0 && failed == len(request.Results) {
		request.Status = model.GDPRStatusFailed
	}
	completed := s.now().UTC()
	request.CompletedOn = &completed

	if err := s.repo.UpdateRequest(ctx, request); err != nil {
		return err
	}

	s.auditor.Record(ctx, request.RequestedBy, model.AuditGDPR, "gdpr_request", request.ID, map[string]any{
		"type":   request.Type,
		"status": request.Status,
		"failed": failed,
	})
	s.logger.Info("gdpr request finished",
		"request_id", request.ID,
		"type", request.Type,
		"status", request.Status,
		"tables_failed", failed,
	)
	return nil
}

// discover searches the email-matched tables concurrently, then the tables
// linked to the candidate and user ids they returned
func (s *GDPRService) discover(ctx context.Context, email string) (model.DiscoveryResult, map[string]error) {
	found := make(model.DiscoveryResult)
	failures := make(map[string]error)
	subject := model.GDPRSubject{Email: email}

	var mu sync.Mutex
	search := func(tables []string) {
		var g errgroup.Group
		for _, table := range tables {
			g.Go(func() error {
				ids, err := s.repo.Discover(ctx, table, subject)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					s.logger.Warn("gdpr discovery failed", "table", table, "error", err)
					failures[table] = err
					return nil
				}
				found[table] = ids
				return nil
			})
		}
		_ = g.Wait()
	}

	search(gdprDirectTables)
	subject.CandidateIDs = found[model.GDPRTableCandidate]
	subject.UserIDs = found[model.GDPRTableUser]
	search(gdprLinkedTables)

	return found, failures
}

func tableResults(found model.DiscoveryResult, failures map[string]error, affected map[string]int) []model.GDPRTableResult {
	results := make([]model.GDPRTableResult, 0, len(found)+len(failures))
	for _, table := range append(append([]string{}, gdprDirectTables...), gdprLinkedTables...) {
		if err, ok := failures[table]; ok {
			results = append(results, model.GDPRTableResult{Table: table, Error: err.Error()})
			continue
		}
		ids, ok := found[table]
		if !ok {
			continue
		}
		result := model.GDPRTableResult{Table: table, IDs: ids, Affected: len(ids)}
		if affected != nil {
			result.Affected = affected[table]
		}
		results = append(results, result)
	}
	return results
}

func mapErrors(failures map[string]error) []error {
	errs := make([]error, 0, len(failures))
	for table, err := range failures {
		errs = append(errs, fmt.Errorf("%s: %w", table, err))
	}
	return errs
}
