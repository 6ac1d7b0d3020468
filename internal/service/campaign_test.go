package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockCampaignRepo struct {
	mu          sync.Mutex
	campaigns   map[string]*model.Campaign
	enrollments map[string]*model.CampaignEnrollment
	nextID      int
}

func newMockCampaignRepo(cs ...*model.Campaign) *mockCampaignRepo {
	m := &mockCampaignRepo{campaigns: make(map[string]*model.Campaign), enrollments: make(map[string]*model.CampaignEnrollment)}
	for _, c := range cs {
		m.campaigns[c.ID] = c
	}
	return m
}

func (m *mockCampaignRepo) Create(ctx context.Context, c *model.Campaign) error {
	c.ID = "campaign:" + c.Name
	m.campaigns[c.ID] = c
	return nil
}

func (m *mockCampaignRepo) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	if c, ok := m.campaigns[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *mockCampaignRepo) GetMany(ctx context.Context, ids []string) (map[string]*model.Campaign, error) {
	out := make(map[string]*model.Campaign)
	for _, id := range ids {
		if c, ok := m.campaigns[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (m *mockCampaignRepo) List(ctx context.Context, status string, limit, offset int) ([]*model.Campaign, error) {
	return nil, nil
}

func (m *mockCampaignRepo) UpdateSteps(ctx context.Context, id string, steps []model.CampaignStep) error {
	m.campaigns[id].Steps = steps
	return nil
}

func (m *mockCampaignRepo) SetStatus(ctx context.Context, id string, status model.CampaignStatus) error {
	m.campaigns[id].Status = status
	return nil
}

func (m *mockCampaignRepo) Enroll(ctx context.Context, ce *model.CampaignEnrollment) error {
	for _, existing := range m.enrollments {
		if existing.CampaignID == ce.CampaignID && existing.CandidateID == ce.CandidateID {
			return fmt.Errorf("%w: campaign_enrollment_unique", database.ErrDuplicate)
		}
	}
	m.nextID++
	ce.ID = fmt.Sprintf("campaign_enrollment:%d", m.nextID)
	m.enrollments[ce.ID] = ce
	return nil
}

func (m *mockCampaignRepo) GetEnrollment(ctx context.Context, id string) (*model.CampaignEnrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ce, ok := m.enrollments[id]; ok {
		cp := *ce
		return &cp, nil
	}
	return nil, nil
}

func (m *mockCampaignRepo) ListEnrollments(ctx context.Context, campaignID, status string, limit, offset int) ([]*model.CampaignEnrollment, error) {
	return nil, nil
}

func (m *mockCampaignRepo) DueEnrollments(ctx context.Context, now time.Time, limit int) ([]*model.CampaignEnrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.CampaignEnrollment
	for _, ce := range m.enrollments {
		if ce.Status == model.CampaignEnrollmentActive && ce.NextRunAt != nil && !ce.NextRunAt.After(now) {
			cp := *ce
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockCampaignRepo) SaveEnrollment(ctx context.Context, ce *model.CampaignEnrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ce
	m.enrollments[ce.ID] = &cp
	return nil
}

func (m *mockCampaignRepo) StopForCandidate(ctx context.Context, candidateID, reason string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, ce := range m.enrollments {
		if ce.CandidateID == candidateID && ce.Status == model.CampaignEnrollmentActive {
			ce.Status = model.CampaignEnrollmentStopped
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type mockDispatcher struct {
	mu   sync.Mutex
	sent []*model.OutboundMessage
	err  error
}

func (m *mockDispatcher) Dispatch(ctx context.Context, msg *model.OutboundMessage) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// ============================================================================
// Helper Functions
// ============================================================================

var campaignNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

type campaignFixture struct {
	svc        *CampaignService
	repo       *mockCampaignRepo
	dispatcher *mockDispatcher
}

func newCampaignFixture(t *testing.T, campaign *model.Campaign, candidates ...*model.Candidate) *campaignFixture {
	t.Helper()
	jobTitle := "Go Engineer"
	repo := newMockCampaignRepo(campaign)
	dispatcher := &mockDispatcher{}
	svc := NewCampaignService(CampaignServiceConfig{
		Repo:        repo,
		Candidates:  newMockCandidateRepo(candidates...),
		Jobs:        newMockJobRepo(&model.Job{ID: "job:1", Title: jobTitle, Status: model.JobStatusOpen}),
		Dispatcher:  dispatcher,
		Concurrency: 2,
	})
	svc.now = func() time.Time { return campaignNow }
	return &campaignFixture{svc: svc, repo: repo, dispatcher: dispatcher}
}

func activeCampaign() *model.Campaign {
	jobID := "job:1"
	return &model.Campaign{
		ID:      "campaign:fall",
		Name:    "fall",
		Channel: model.ChannelEmail,
		Status:  model.CampaignStatusActive,
		JobID:   &jobID,
		Steps: []model.CampaignStep{
			{Position: 1, DelayHours: 0, Subject: "Hi {{.FirstName}}", Body: "Interested in {{.JobTitle}}?"},
			{Position: 2, DelayHours: 48, Subject: "Following up", Body: "Still around, {{.FirstName}}?"},
		},
	}
}

func contactable(id, first string) *model.Candidate {
	return &model.Candidate{ID: id, FirstName: first, LastName: "Doe", Email: first + "@example.com", Status: model.CandidateStatusActive}
}

func dueEnrollment(repo *mockCampaignRepo, id, candidateID string, step int) {
	due := campaignNow.Add(-time.Minute)
	repo.enrollments[id] = &model.CampaignEnrollment{
		ID:          id,
		CampaignID:  "campaign:fall",
		CandidateID: candidateID,
		CurrentStep: step,
		NextRunAt:   &due,
		Status:      model.CampaignEnrollmentActive,
	}
}

// ============================================================================
// Authoring
// ============================================================================

func TestCampaignService_UpdateSteps_LockedWhileActive(t *testing.T) {
	t.Parallel()

	f := newCampaignFixture(t, activeCampaign())
	_, err := f.svc.UpdateSteps(context.Background(), "user:r", "campaign:fall", &model.UpdateStepsRequest{
		Steps: []model.CampaignStep{{Position: 1, Subject: "s", Body: "b"}},
	})
	assert.ErrorIs(t, err, ErrCampaignLocked)

	_, err = f.svc.ChangeStatus(context.Background(), "user:r", "campaign:fall", &model.ChangeStatusRequest{Status: "paused"})
	require.NoError(t, err)

	c, err := f.svc.UpdateSteps(context.Background(), "user:r", "campaign:fall", &model.UpdateStepsRequest{
		Steps: []model.CampaignStep{{Position: 1, Subject: "s", Body: "b"}},
	})
	require.NoError(t, err)
	assert.Len(t, c.Steps, 1)
}

func TestCampaignService_ChangeStatus_InvalidTransition(t *testing.T) {
	t.Parallel()

	c := activeCampaign()
	c.Status = model.CampaignStatusCompleted
	f := newCampaignFixture(t, c)

	_, err := f.svc.ChangeStatus(context.Background(), "user:r", "campaign:fall", &model.ChangeStatusRequest{Status: "active"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCampaignService_Enroll(t *testing.T) {
	t.Parallel()

	dnc := contactable("candidate:dnc", "dana")
	dnc.Status = model.CandidateStatusDoNotContact
	f := newCampaignFixture(t, activeCampaign(), contactable("candidate:1", "ann"), dnc)
	ctx := context.Background()

	enrolled, err := f.svc.Enroll(ctx, "user:r", "campaign:fall", &model.EnrollCandidatesRequest{CandidateIDs: []string{"candidate:1"}})
	require.NoError(t, err)
	require.Len(t, enrolled, 1)
	assert.Equal(t, 1, enrolled[0].CurrentStep)
	assert.Equal(t, campaignNow, *enrolled[0].NextRunAt)

	_, err = f.svc.Enroll(ctx, "user:r", "campaign:fall", &model.EnrollCandidatesRequest{CandidateIDs: []string{"candidate:1"}})
	assert.ErrorIs(t, err, ErrAlreadyInCampaign)

	_, err = f.svc.Enroll(ctx, "user:r", "campaign:fall", &model.EnrollCandidatesRequest{CandidateIDs: []string{"candidate:dnc"}})
	assert.ErrorIs(t, err, ErrCandidateDoNotContact)

	_, err = f.svc.Enroll(ctx, "user:r", "campaign:fall", &model.EnrollCandidatesRequest{})
	var problem *model.ProblemDetails
	assert.True(t, errors.As(err, &problem))
}

// ============================================================================
// Engine
// ============================================================================

func TestCampaignService_RunDue_AdvancesAndCompletes(t *testing.T) {
	t.Parallel()

	f := newCampaignFixture(t, activeCampaign(), contactable("candidate:1", "ann"), contactable("candidate:2", "bo"))
	dueEnrollment(f.repo, "campaign_enrollment:1", "candidate:1", 1)
	dueEnrollment(f.repo, "campaign_enrollment:2", "candidate:2", 2)

	report, err := f.svc.RunDue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Completed)
	assert.Len(t, f.dispatcher.sent, 2)

	first := f.repo.enrollments["campaign_enrollment:1"]
	assert.Equal(t, 2, first.CurrentStep)
	assert.Equal(t, model.CampaignEnrollmentActive, first.Status)
	require.NotNil(t, first.NextRunAt)
	assert.Equal(t, campaignNow.Add(48*time.Hour), *first.NextRunAt)

	second := f.repo.enrollments["campaign_enrollment:2"]
	assert.Equal(t, model.CampaignEnrollmentCompleted, second.Status)
	assert.Nil(t, second.NextRunAt)

	for _, msg := range f.dispatcher.sent {
		if msg.CandidateID == "candidate:1" {
			assert.Equal(t, "Hi ann", msg.Subject)
			assert.Equal(t, "Interested in Go Engineer?", msg.Body)
			assert.Equal(t, "ann@example.com", msg.To)
		}
	}
}

func TestCampaignService_RunDue_StopsUncontactable(t *testing.T) {
	t.Parallel()

	gone := contactable("candidate:1", "ann")
	gone.Anonymized = true
	f := newCampaignFixture(t, activeCampaign(), gone)
	dueEnrollment(f.repo, "campaign_enrollment:1", "candidate:1", 1)

	report, err := f.svc.RunDue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Stopped)
	assert.Empty(t, f.dispatcher.sent)
	assert.Equal(t, model.CampaignEnrollmentStopped, f.repo.enrollments["campaign_enrollment:1"].Status)
}

func TestCampaignService_RunDue_DispatchFailureIsTerminal(t *testing.T) {
	t.Parallel()

	f := newCampaignFixture(t, activeCampaign(), contactable("candidate:1", "ann"))
	f.dispatcher.err = errors.New("broker unavailable")
	dueEnrollment(f.repo, "campaign_enrollment:1", "candidate:1", 1)

	report, err := f.svc.RunDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	ce := f.repo.enrollments["campaign_enrollment:1"]
	assert.Equal(t, model.CampaignEnrollmentFailed, ce.Status)
	require.NotNil(t, ce.LastError)
	assert.Contains(t, *ce.LastError, "broker unavailable")

	report, err = f.svc.RunDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
}

func TestCampaignService_RunDue_RenderFailure(t *testing.T) {
	t.Parallel()

	c := activeCampaign()
	c.Steps[0].Body = "Hello {{.Nickname}}"
	f := newCampaignFixture(t, c, contactable("candidate:1", "ann"))
	dueEnrollment(f.repo, "campaign_enrollment:1", "candidate:1", 1)

	report, err := f.svc.RunDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, f.dispatcher.sent)
}

func TestCampaignService_RunDue_SkipsPausedCampaign(t *testing.T) {
	t.Parallel()

	c := activeCampaign()
	c.Status = model.CampaignStatusPaused
	f := newCampaignFixture(t, c, contactable("candidate:1", "ann"))
	dueEnrollment(f.repo, "campaign_enrollment:1", "candidate:1", 1)

	report, err := f.svc.RunDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, f.repo.enrollments["campaign_enrollment:1"].CurrentStep)
	assert.Equal(t, model.CampaignEnrollmentActive, f.repo.enrollments["campaign_enrollment:1"].Status)
}

func TestCampaignService_RunDue_SMSNeedsPhone(t *testing.T) {
	t.Parallel()

	c := activeCampaign()
	c.Channel = model.ChannelSMS
	withPhone := contactable("candidate:1", "ann")
	withPhone.Phone = strPtr("+15550100")
	f := newCampaignFixture(t, c, withPhone, contactable("candidate:2", "bo"))
	dueEnrollment(f.repo, "campaign_enrollment:1", "candidate:1", 1)
	dueEnrollment(f.repo, "campaign_enrollment:2", "candidate:2", 1)

	report, err := f.svc.RunDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, f.dispatcher.sent, 1)
	assert.Equal(t, "+15550100", f.dispatcher.sent[0].To)
}
