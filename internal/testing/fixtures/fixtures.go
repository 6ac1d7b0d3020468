package fixtures

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
	"github.com/forgo/staffhub/internal/repository"
)

// DefaultPassword is the plain-text password of every fixture user
const DefaultPassword = "testpass123"

// Factory creates records through the real repositories
type Factory struct {
	users      *repository.UserRepository
	accounts   *repository.AccountRepository
	jobs       *repository.JobRepository
	candidates *repository.CandidateRepository
}

// New creates a factory bound to db
func New(db database.Database) *Factory {
	return &Factory{
		users:      repository.NewUserRepository(db),
		accounts:   repository.NewAccountRepository(db),
		jobs:       repository.NewJobRepository(db),
		candidates: repository.NewCandidateRepository(db),
	}
}

func randomID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// CreateUser creates a staff or candidate user. The default role is recruiter.
func (f *Factory) CreateUser(t *testing.T, opts ...func(*model.User)) *model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("fixtures: hash password: %v", err)
	}
	h := string(hash)

	u := &model.User{
		Email:         fmt.Sprintf("user_%s@test.local", randomID()),
		Hash:          &h,
		Role:          model.UserRoleRecruiter,
		EmailVerified: true,
	}
	for _, fn := range opts {
		fn(u)
	}

	if err := f.users.Create(testContext(t), u); err != nil {
		t.Fatalf("fixtures: create user: %v", err)
	}
	return u
}

// WithRole sets the user's role
func WithRole(role model.UserRole) func(*model.User) {
	return func(u *model.User) { u.Role = role }
}

// CreateAccount creates an active client account owned by owner
func (f *Factory) CreateAccount(t *testing.T, owner *model.User, opts ...func(*model.Account)) *model.Account {
	t.Helper()

	a := &model.Account{
		Name:    "Acme " + randomID(),
		Status:  model.AccountStatusActive,
		OwnerID: owner.ID,
	}
	for _, fn := range opts {
		fn(a)
	}

	if err := f.accounts.Create(testContext(t), a); err != nil {
		t.Fatalf("fixtures: create account: %v", err)
	}
	return a
}

// CreateJob opens a contract requisition against account
func (f *Factory) CreateJob(t *testing.T, account *model.Account, owner *model.User, opts ...func(*model.Job)) *model.Job {
	t.Helper()

	j := &model.Job{
		AccountID:      account.ID,
		Title:          "Backend Engineer",
		EmploymentType: model.EmploymentContract,
		Status:         model.JobStatusOpen,
		Openings:       1,
		Skills:         []string{"go", "postgres"},
		OwnerID:        owner.ID,
	}
	for _, fn := range opts {
		fn(j)
	}

	if err := f.jobs.Create(testContext(t), j); err != nil {
		t.Fatalf("fixtures: create job: %v", err)
	}
	return j
}

// CreateCandidate creates a new candidate with a unique email
func (f *Factory) CreateCandidate(t *testing.T, owner *model.User, opts ...func(*model.Candidate)) *model.Candidate {
	t.Helper()

	id := randomID()
	c := &model.Candidate{
		FirstName:       "Cand",
		LastName:        strings.ToUpper(id[:1]) + id[1:],
		Email:           fmt.Sprintf("cand_%s@test.local", id),
		Skills:          []string{"go"},
		YearsExperience: 4,
		Status:          model.CandidateStatusNew,
		OwnerID:         owner.ID,
	}
	for _, fn := range opts {
		fn(c)
	}

	if err := f.candidates.Create(testContext(t), c); err != nil {
		t.Fatalf("fixtures: create candidate: %v", err)
	}
	return c
}
