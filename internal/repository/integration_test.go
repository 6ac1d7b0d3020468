package repository_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
	"github.com/forgo/staffhub/internal/repository"
	"github.com/forgo/staffhub/internal/service"
	"github.com/forgo/staffhub/internal/testing/fixtures"
	"github.com/forgo/staffhub/internal/testing/testdb"
	"github.com/forgo/staffhub/migrations"
)

func TestUserRepository_DuplicateEmail(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)
	repo := repository.NewUserRepository(tdb.DB)

	existing := f.CreateUser(t)

	err := repo.Create(tdb.Ctx(t), &model.User{Email: existing.Email})
	assert.ErrorIs(t, err, database.ErrDuplicate)

	got, err := repo.GetByEmail(tdb.Ctx(t), existing.Email)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, existing.ID, got.ID)
	assert.Equal(t, model.UserRoleRecruiter, got.Role)
}

func TestCandidateRepository_ExistingEmails(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)
	repo := repository.NewCandidateRepository(tdb.DB)

	owner := f.CreateUser(t)
	a := f.CreateCandidate(t, owner)
	f.CreateCandidate(t, owner)

	found, err := repo.ExistingEmails(tdb.Ctx(t), []string{a.Email, "nobody@test.local"})
	require.NoError(t, err)
	assert.True(t, found[a.Email])
	assert.False(t, found["nobody@test.local"])

	flagged := true
	f.CreateCandidate(t, owner, func(c *model.Candidate) {
		c.Flagged = true
		c.FlagReasons = []string{"missing phone"}
	})
	list, err := repo.List(tdb.Ctx(t), model.CandidateFilter{Flagged: &flagged, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"missing phone"}, list[0].FlagReasons)
}

func TestSubmissionRepository_OnePerJobAndCandidate(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)
	repo := repository.NewSubmissionRepository(tdb.DB)

	recruiter := f.CreateUser(t)
	job := f.CreateJob(t, f.CreateAccount(t, recruiter), recruiter)
	cand := f.CreateCandidate(t, recruiter)

	sub := &model.Submission{
		JobID:       job.ID,
		CandidateID: cand.ID,
		SubmittedBy: recruiter.ID,
		Status:      model.SubmissionStatusSubmitted,
	}
	require.NoError(t, repo.Create(tdb.Ctx(t), sub))
	assert.NotEmpty(t, sub.ID)

	dup := *sub
	dup.ID = ""
	assert.ErrorIs(t, repo.Create(tdb.Ctx(t), &dup), database.ErrDuplicate)

	require.NoError(t, repo.SetStatus(tdb.Ctx(t), sub.ID, model.SubmissionStatusInterview))
	got, err := repo.GetByJobAndCandidate(tdb.Ctx(t), job.ID, cand.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.SubmissionStatusInterview, got.Status)
}

func TestMigrationRepository_RecordsApplied(t *testing.T) {
	tdb := testdb.New(t)
	repo := repository.NewMigrationRepository(tdb.DB)

	require.NoError(t, repo.EnsureTable(tdb.Ctx(t)))

	embedded, err := migrations.Load()
	require.NoError(t, err)
	require.NotEmpty(t, embedded)

	// testdb already ran the schema; every file is idempotent
	first := embedded[0]
	require.NoError(t, repo.Apply(tdb.Ctx(t), first))

	applied, err := repo.Applied(tdb.Ctx(t))
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, first.Version, applied[0].Version)
	assert.Equal(t, first.Checksum, applied[0].Checksum)
}

func TestTokenRepository_RevokeRefreshTokenOnce(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)
	repo := repository.NewTokenRepository(tdb.DB)

	user := f.CreateUser(t)
	token := &service.RefreshToken{
		UserID:    user.ID,
		TokenHash: "hash-" + user.ID,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, repo.CreateRefreshToken(tdb.Ctx(t), token))

	first, err := repo.RevokeRefreshToken(tdb.Ctx(t), token.TokenHash)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.RevokeRefreshToken(tdb.Ctx(t), token.TokenHash)
	require.NoError(t, err)
	assert.False(t, second)

	stored, err := repo.GetRefreshTokenByHash(tdb.Ctx(t), token.TokenHash)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Revoked)
}

// interviewing creates a job with the given openings and a candidate submitted to it in interview
func interviewing(t *testing.T, tdb *testdb.TestDB, f *fixtures.Factory, openings int) (*model.Job, *model.Candidate, *model.Submission) {
	t.Helper()
	recruiter := f.CreateUser(t)
	job := f.CreateJob(t, f.CreateAccount(t, recruiter), recruiter, func(j *model.Job) { j.Openings = openings })
	cand := f.CreateCandidate(t, recruiter)
	sub := &model.Submission{
		JobID:       job.ID,
		CandidateID: cand.ID,
		SubmittedBy: recruiter.ID,
		Status:      model.SubmissionStatusInterview,
	}
	require.NoError(t, repository.NewSubmissionRepository(tdb.DB).Create(tdb.Ctx(t), sub))
	return job, cand, sub
}

func extendOffer(t *testing.T, tdb *testdb.TestDB, sub *model.Submission) *model.Offer {
	t.Helper()
	offer := &model.Offer{
		SubmissionID: sub.ID,
		BillRate:     100,
		PayRate:      70,
		StartDate:    time.Now().UTC().Add(14 * 24 * time.Hour),
		Status:       model.OfferStatusExtended,
		CreatedBy:    sub.SubmittedBy,
	}
	require.NoError(t, repository.NewOfferRepository(tdb.DB).Create(tdb.Ctx(t), offer))
	return offer
}

func TestPlacementRepository_AcceptOffer(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)
	ctx := tdb.Ctx(t)

	jobs := repository.NewJobRepository(tdb.DB)
	candidates := repository.NewCandidateRepository(tdb.DB)
	submissions := repository.NewSubmissionRepository(tdb.DB)
	offers := repository.NewOfferRepository(tdb.DB)
	placements := repository.NewPlacementRepository(tdb.DB)

	accept := func(job *model.Job, cand *model.Candidate, sub *model.Submission) *model.Placement {
		offer := extendOffer(t, tdb, sub)
		p := &model.Placement{
			CandidateID:  cand.ID,
			JobID:        job.ID,
			SubmissionID: sub.ID,
			OfferID:      offer.ID,
			StartDate:    offer.StartDate,
			BillRate:     offer.BillRate,
			PayRate:      offer.PayRate,
			Margin:       30,
			MarginPct:    30,
			Status:       model.PlacementStatusActive,
		}
		require.NoError(t, placements.AcceptOffer(ctx, offer, p))

		got, err := offers.GetByID(ctx, offer.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OfferStatusAccepted, got.Status)
		return p
	}

	t.Run("last opening fills the job", func(t *testing.T) {
		job, cand, sub := interviewing(t, tdb, f, 1)
		p := accept(job, cand, sub)

		stored, err := placements.GetByID(ctx, p.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, sub.ID, stored.SubmissionID)

		gotJob, err := jobs.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, gotJob.Openings)
		assert.Equal(t, model.JobStatusFilled, gotJob.Status)

		gotSub, err := submissions.GetByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SubmissionStatusPlaced, gotSub.Status)

		gotCand, err := candidates.GetByID(ctx, cand.ID)
		require.NoError(t, err)
		assert.Equal(t, model.CandidateStatusPlaced, gotCand.Status)
	})

	t.Run("remaining openings keep the job open", func(t *testing.T) {
		job, cand, sub := interviewing(t, tdb, f, 3)
		accept(job, cand, sub)

		gotJob, err := jobs.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, gotJob.Openings)
		assert.Equal(t, model.JobStatusOpen, gotJob.Status)
	})
}

func TestOfferRepository_CloseOffer(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)
	ctx := tdb.Ctx(t)

	_, _, sub := interviewing(t, tdb, f, 1)
	offer := extendOffer(t, tdb, sub)

	submissions := repository.NewSubmissionRepository(tdb.DB)
	gotSub, err := submissions.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, model.SubmissionStatusOffered, gotSub.Status)

	offers := repository.NewOfferRepository(tdb.DB)
	require.NoError(t, offers.CloseOffer(ctx, offer, model.OfferStatusDeclined))

	gotOffer, err := offers.GetByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusDeclined, gotOffer.Status)

	gotSub, err = submissions.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStatusInterview, gotSub.Status)

	outstanding, err := offers.CountOutstanding(ctx, sub.ID)
	require.NoError(t, err)
	assert.Zero(t, outstanding)
}

func TestEnrollmentRepository_SprintCapacity(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)
	ctx := tdb.Ctx(t)

	trainer := f.CreateUser(t, fixtures.WithRole(model.UserRoleTrainer))
	courses := repository.NewCourseRepository(tdb.DB)
	course := &model.Course{Title: "Go for Backend Engineers", Status: model.CourseStatusPublished, CreatedBy: trainer.ID}
	require.NoError(t, courses.Create(ctx, course))

	start := time.Now().UTC().Add(7 * 24 * time.Hour)
	sprint := &model.Sprint{CourseID: course.ID, Name: "Autumn cohort", StartsOn: start, EndsOn: start.Add(28 * 24 * time.Hour), Capacity: 1}
	require.NoError(t, courses.CreateSprint(ctx, sprint))

	enrollments := repository.NewEnrollmentRepository(tdb.DB)
	enroll := func(user *model.User) error {
		return enrollments.Create(ctx, &model.Enrollment{
			UserID:   user.ID,
			CourseID: course.ID,
			SprintID: &sprint.ID,
			Status:   model.EnrollmentStatusActive,
		})
	}

	require.NoError(t, enroll(f.CreateUser(t, fixtures.WithRole(model.UserRoleCandidate))))

	err := enroll(f.CreateUser(t, fixtures.WithRole(model.UserRoleCandidate)))
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrConflict)

	got, err := courses.GetSprint(ctx, sprint.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Enrolled)

	list, err := enrollments.ListByCourse(ctx, course.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCampaignRepository_DueEnrollmentsSkipsHeldCampaigns(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)
	ctx := tdb.Ctx(t)
	repo := repository.NewCampaignRepository(tdb.DB)

	owner := f.CreateUser(t)
	newCampaign := func(status model.CampaignStatus) *model.Campaign {
		c := &model.Campaign{
			Name:    "Bench outreach " + string(status),
			Channel: model.ChannelEmail,
			Status:  status,
			Steps:   []model.CampaignStep{{Position: 1, Subject: "Hello", Body: "Hi {{.FirstName}}"}},
			OwnerID: owner.ID,
		}
		require.NoError(t, repo.Create(ctx, c))
		return c
	}
	paused := newCampaign(model.CampaignStatusPaused)
	active := newCampaign(model.CampaignStatusActive)

	now := time.Now().UTC()
	enroll := func(c *model.Campaign, dueAgo time.Duration) *model.CampaignEnrollment {
		next := now.Add(-dueAgo)
		ce := &model.CampaignEnrollment{
			CampaignID:  c.ID,
			CandidateID: f.CreateCandidate(t, owner).ID,
			CurrentStep: 1,
			NextRunAt:   &next,
			Status:      model.CampaignEnrollmentActive,
		}
		require.NoError(t, repo.Enroll(ctx, ce))
		return ce
	}
	// paused enrollments are older, so ordering alone would put them first
	enroll(paused, 3*time.Hour)
	enroll(paused, 2*time.Hour)
	want := enroll(active, time.Hour)
	enroll(active, -time.Hour)

	due, err := repo.DueEnrollments(ctx, now, 2)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, want.ID, due[0].ID)
}

func TestGDPRRepository_Anonymize(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)
	ctx := tdb.Ctx(t)
	repo := repository.NewGDPRRepository(tdb.DB)

	owner := f.CreateUser(t)
	phone := "+44 20 7946 0000"
	cand := f.CreateCandidate(t, owner, func(c *model.Candidate) { c.Phone = &phone })
	other := f.CreateCandidate(t, owner)

	ids, err := repo.Discover(ctx, model.GDPRTableCandidate, model.GDPRSubject{Email: cand.Email})
	require.NoError(t, err)
	require.Equal(t, []string{cand.ID}, ids)

	n, err := repo.Anonymize(ctx, model.GDPRTableCandidate, ids)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	candidates := repository.NewCandidateRepository(tdb.DB)
	got, err := candidates.GetByID(ctx, cand.ID)
	require.NoError(t, err)
	assert.True(t, got.Anonymized)
	assert.Equal(t, model.CandidateStatusDoNotContact, got.Status)
	assert.Nil(t, got.Phone)
	assert.True(t, strings.HasPrefix(got.Email, "anon-"))
	assert.True(t, strings.HasSuffix(got.Email, "@"+model.AnonymizedDomain))

	untouched, err := candidates.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, other.Email, untouched.Email)

	// the original address is free again
	again, err := repo.Discover(ctx, model.GDPRTableCandidate, model.GDPRSubject{Email: cand.Email})
	require.NoError(t, err)
	assert.Empty(t, again)
	f.CreateCandidate(t, owner, func(c *model.Candidate) { c.Email = cand.Email })
}
