package service

import (
	"context"
	"testing"

	"github.com/forgo/staffhub/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockJobRepo struct {
	jobs      map[string]*model.Job
	statuses  map[string]model.JobStatus
	updateErr error
}

func newMockJobRepo(jobs ...*model.Job) *mockJobRepo {
	m := &mockJobRepo{jobs: make(map[string]*model.Job), statuses: make(map[string]model.JobStatus)}
	for _, j := range jobs {
		m.jobs[j.ID] = j
	}
	return m
}

func (m *mockJobRepo) Create(ctx context.Context, job *model.Job) error {
	job.ID = "job:" + job.Title
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	if j, ok := m.jobs[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, nil
}

func (m *mockJobRepo) List(ctx context.Context, status, accountID string, limit, offset int) ([]*model.Job, error) {
	var out []*model.Job
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (m *mockJobRepo) Update(ctx context.Context, job *model.Job) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobRepo) SetStatus(ctx context.Context, id string, status model.JobStatus) error {
	m.statuses[id] = status
	m.jobs[id].Status = status
	return nil
}

func (m *mockJobRepo) Archive(ctx context.Context, id string) error {
	m.jobs[id].Archived = true
	return nil
}

type mockAccountLookup map[string]*model.Account

func (m mockAccountLookup) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return m[id], nil
}

func floatPtr(f float64) *float64 { return &f }

// ============================================================================
// Tests
// ============================================================================

func TestJobService_Create(t *testing.T) {
	t.Parallel()

	accounts := mockAccountLookup{"account:a": {ID: "account:a"}}
	svc := NewJobService(JobServiceConfig{Repo: newMockJobRepo(), Accounts: accounts})

	job, err := svc.Create(context.Background(), "user:rec", &model.CreateJobRequest{
		AccountID:      "account:a",
		Title:          " Go Engineer ",
		Description:    "<p>Build <b>APIs</b></p><ul><li>Go</li></ul>",
		EmploymentType: "contract",
		Skills:         []string{"Go", "go", "SurrealDB"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Go Engineer", job.Title)
	assert.Equal(t, "Build APIs\n- Go", job.Description)
	assert.Equal(t, model.JobStatusDraft, job.Status)
	assert.Equal(t, 1, job.Openings)
	assert.Equal(t, []string{"go", "surrealdb"}, job.Skills)
}

func TestJobService_Create_AccountChecks(t *testing.T) {
	t.Parallel()

	accounts := mockAccountLookup{"account:old": {ID: "account:old", Archived: true}}
	svc := NewJobService(JobServiceConfig{Repo: newMockJobRepo(), Accounts: accounts})
	req := &model.CreateJobRequest{Title: "QA", EmploymentType: "full_time"}

	req.AccountID = "account:missing"
	_, err := svc.Create(context.Background(), "user:rec", req)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	req.AccountID = "account:old"
	_, err = svc.Create(context.Background(), "user:rec", req)
	assert.ErrorIs(t, err, ErrAccountArchived)
}

func TestJobService_Update_MergedRates(t *testing.T) {
	t.Parallel()

	repo := newMockJobRepo(&model.Job{ID: "job:1", BillRate: floatPtr(90), PayRate: floatPtr(60)})
	svc := NewJobService(JobServiceConfig{Repo: repo})

	_, err := svc.Update(context.Background(), "user:rec", "job:1", &model.UpdateJobRequest{PayRate: floatPtr(95)})
	var problem *model.ProblemDetails
	require.ErrorAs(t, err, &problem)
	assert.Equal(t, "pay_rate", problem.Errors[0].Field)

	job, err := svc.Update(context.Background(), "user:rec", "job:1", &model.UpdateJobRequest{PayRate: floatPtr(70)})
	require.NoError(t, err)
	assert.Equal(t, 70.0, *job.PayRate)
}

func TestJobService_ChangeStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from    model.JobStatus
		to      string
		allowed bool
	}{
		{model.JobStatusDraft, "open", true},
		{model.JobStatusDraft, "filled", false},
		{model.JobStatusOpen, "on_hold", true},
		{model.JobStatusFilled, "open", true},
		{model.JobStatusClosed, "open", false},
		{model.JobStatusOpen, "bogus", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+tt.to, func(t *testing.T) {
			repo := newMockJobRepo(&model.Job{ID: "job:1", Status: tt.from})
			svc := NewJobService(JobServiceConfig{Repo: repo})

			job, err := svc.ChangeStatus(context.Background(), "user:rec", "job:1", &model.ChangeStatusRequest{Status: tt.to})
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, model.JobStatus(tt.to), job.Status)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Empty(t, repo.statuses)
			}
		})
	}
}

func TestJobService_ArchivedJobIsReadOnly(t *testing.T) {
	t.Parallel()

	repo := newMockJobRepo(&model.Job{ID: "job:1", Status: model.JobStatusOpen, Archived: true})
	svc := NewJobService(JobServiceConfig{Repo: repo})

	_, err := svc.ChangeStatus(context.Background(), "user:rec", "job:1", &model.ChangeStatusRequest{Status: "closed"})
	assert.ErrorIs(t, err, ErrJobArchived)

	_, err = svc.Get(context.Background(), "job:nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}
