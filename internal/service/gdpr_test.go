package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/forgo/staffhub/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Mock Repository
// ============================================================================

type mockGDPRRepo struct {
	mu           sync.Mutex
	ids          map[string][]string
	discoverErr  map[string]error
	anonymizeErr map[string]error
	subjects     map[string]model.GDPRSubject
	anonymized   []string
	requests     map[string]*model.GDPRRequest
	statuses     []model.GDPRRequestStatus
}

func newMockGDPRRepo() *mockGDPRRepo {
	return &mockGDPRRepo{
		ids: map[string][]string{
			model.GDPRTableCandidate:          {"candidate:1"},
			model.GDPRTableUser:               {"user:1"},
			model.GDPRTableAccount:            {},
			model.GDPRTableCampaignEnrollment: {"campaign_enrollment:1"},
			model.GDPRTableSubmission:         {"submission:1", "submission:2"},
			model.GDPRTableEnrollment:         {"enrollment:1"},
			model.GDPRTableAuditLog:           {"audit_log:1"},
		},
		discoverErr:  make(map[string]error),
		anonymizeErr: make(map[string]error),
		subjects:     make(map[string]model.GDPRSubject),
		requests:     make(map[string]*model.GDPRRequest),
	}
}

func (m *mockGDPRRepo) Discover(ctx context.Context, table string, subject model.GDPRSubject) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects[table] = subject
	if err := m.discoverErr[table]; err != nil {
		return nil, err
	}
	return m.ids[table], nil
}

func (m *mockGDPRRepo) Export(ctx context.Context, table string, ids []string) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, map[string]any{"id": id})
	}
	return out, nil
}

func (m *mockGDPRRepo) Anonymize(ctx context.Context, table string, ids []string) (int, error) {
	if err := m.anonymizeErr[table]; err != nil {
		return 0, err
	}
	m.anonymized = append(m.anonymized, table)
	return len(ids), nil
}

func (m *mockGDPRRepo) CreateRequest(ctx context.Context, req *model.GDPRRequest) error {
	req.ID = "gdpr_request:1"
	m.requests[req.ID] = req
	return nil
}

func (m *mockGDPRRepo) UpdateRequest(ctx context.Context, req *model.GDPRRequest) error {
	m.statuses = append(m.statuses, req.Status)
	return nil
}

func (m *mockGDPRRepo) GetRequest(ctx context.Context, id string) (*model.GDPRRequest, error) {
	return m.requests[id], nil
}

func (m *mockGDPRRepo) ListRequests(ctx context.Context, limit, offset int) ([]*model.GDPRRequest, error) {
	return nil, nil
}

func resultFor(results []model.GDPRTableResult, table string) *model.GDPRTableResult {
	for i := range results {
		if results[i].Table == table {
			return &results[i]
		}
	}
	return nil
}

// ============================================================================
// Tests
// ============================================================================

func TestGDPRService_Discover_UsesLinkedIDs(t *testing.T) {
	t.Parallel()

	repo := newMockGDPRRepo()
	auditor := &mockAuditor{}
	svc := NewGDPRService(GDPRServiceConfig{Repo: repo, Auditor: auditor})

	request, found, err := svc.Discover(context.Background(), "user:admin", &model.GDPRSubjectRequest{Email: " Ann@Example.com "})
	require.NoError(t, err)

	assert.Equal(t, "ann@example.com", request.SubjectEmail)
	assert.Equal(t, model.GDPRStatusCompleted, request.Status)
	assert.Equal(t, 7, found.Total())
	assert.Equal(t, []string{"candidate:1"}, repo.subjects[model.GDPRTableSubmission].CandidateIDs)
	assert.Equal(t, []string{"user:1"}, repo.subjects[model.GDPRTableAuditLog].UserIDs)
	assert.Equal(t, []model.GDPRRequestStatus{model.GDPRStatusProcessing, model.GDPRStatusCompleted}, repo.statuses)
	require.Len(t, auditor.entries, 1)
	assert.Equal(t, model.AuditGDPR, auditor.entries[0].action)
}

func TestGDPRService_Discover_InvalidEmail(t *testing.T) {
	t.Parallel()

	svc := NewGDPRService(GDPRServiceConfig{Repo: newMockGDPRRepo()})
	_, _, err := svc.Discover(context.Background(), "user:admin", &model.GDPRSubjectRequest{Email: "nope"})

	var problem *model.ProblemDetails
	assert.True(t, errors.As(err, &problem))
}

func TestGDPRService_Export(t *testing.T) {
	t.Parallel()

	svc := NewGDPRService(GDPRServiceConfig{Repo: newMockGDPRRepo()})
	export, err := svc.Export(context.Background(), "user:admin", &model.GDPRSubjectRequest{Email: "ann@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "gdpr_request:1", export.RequestID)
	assert.Len(t, export.Records[model.GDPRTableSubmission], 2)
	assert.Equal(t, "candidate:1", export.Records[model.GDPRTableCandidate][0]["id"])
}

func TestGDPRService_Anonymize_BestEffort(t *testing.T) {
	t.Parallel()

	repo := newMockGDPRRepo()
	repo.anonymizeErr[model.GDPRTableSubmission] = errors.New("timeout")
	svc := NewGDPRService(GDPRServiceConfig{Repo: repo})

	request, err := svc.Anonymize(context.Background(), "user:admin", &model.GDPRSubjectRequest{Email: "ann@example.com"})
	require.NoError(t, err)

	assert.Equal(t, model.GDPRStatusCompleted, request.Status)
	assert.NotNil(t, request.CompletedOn)
	assert.Contains(t, repo.anonymized, model.GDPRTableCandidate)
	assert.Contains(t, repo.anonymized, model.GDPRTableCampaignEnrollment)

	failed := resultFor(request.Results, model.GDPRTableSubmission)
	require.NotNil(t, failed)
	assert.Equal(t, "timeout", failed.Error)

	candidate := resultFor(request.Results, model.GDPRTableCandidate)
	require.NotNil(t, candidate)
	assert.Equal(t, 1, candidate.Affected)
	assert.Empty(t, candidate.Error)
}

func TestGDPRService_Anonymize_FailsOnlyWhenEveryTableFails(t *testing.T) {
	t.Parallel()

	repo := newMockGDPRRepo()
	for table := range repo.ids {
		repo.discoverErr[table] = errors.New("connection refused")
	}
	svc := NewGDPRService(GDPRServiceConfig{Repo: repo})

	request, err := svc.Anonymize(context.Background(), "user:admin", &model.GDPRSubjectRequest{Email: "ann@example.com"})
	assert.ErrorIs(t, err, ErrGDPRAllTablesFailed)
	require.NotNil(t, request)
	assert.Equal(t, model.GDPRStatusFailed, request.Status)
	assert.Len(t, request.Results, 7)
	assert.Empty(t, repo.anonymized)
}

func TestGDPRService_GetRequest_NotFound(t *testing.T) {
	t.Parallel()

	svc := NewGDPRService(GDPRServiceConfig{Repo: newMockGDPRRepo()})
	_, err := svc.GetRequest(context.Background(), "gdpr_request:404")
	assert.ErrorIs(t, err, ErrGDPRRequestNotFound)
}
