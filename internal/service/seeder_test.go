package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/forgo/staffhub/internal/model"
)

type mockSeedUsers struct {
	byEmail map[string]*model.User
	created []*model.User
}

func (m *mockSeedUsers) Create(ctx context.Context, user *model.User) error {
	user.ID = "user:" + strings.Split(user.Email, "@")[0]
	m.created = append(m.created, user)
	return nil
}

func (m *mockSeedUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.byEmail[email], nil
}

type mockSeedCandidates struct {
	createFunc func(ctx context.Context, c *model.Candidate) error
	created    []*model.Candidate
}

func (m *mockSeedCandidates) Create(ctx context.Context, c *model.Candidate) error {
	if m.createFunc != nil {
		if err := m.createFunc(ctx, c); err != nil {
			return err
		}
	}
	c.ID = "candidate:" + c.Email
	m.created = append(m.created, c)
	return nil
}

func TestSeederService_SeedStaff_SkipsExisting(t *testing.T) {
	users := &mockSeedUsers{byEmail: map[string]*model.User{
		"admin@example.test": {ID: "user:existing", Role: model.UserRoleAdmin},
	}}
	svc := NewSeederService(SeederServiceConfig{Users: users})

	result, err := svc.SeedStaff(context.Background(), "example.test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Created != 3 || result.Skipped != 1 {
		t.Fatalf("expected 3 created 1 skipped, got %d/%d", result.Created, result.Skipped)
	}

	roles := map[model.UserRole]bool{}
	for _, u := range users.created {
		roles[u.Role] = true
		if u.Hash == nil || bcrypt.CompareHashAndPassword([]byte(*u.Hash), []byte(SeedPassword)) != nil {
			t.Errorf("user %s does not accept the seed password", u.Email)
		}
	}
	for _, r := range []model.UserRole{model.UserRoleRecruiter, model.UserRoleSales, model.UserRoleTrainer} {
		if !roles[r] {
			t.Errorf("expected a %s user", r)
		}
	}
}

func TestSeederService_SeedCandidates(t *testing.T) {
	store := &mockSeedCandidates{}
	svc := NewSeederService(SeederServiceConfig{Candidates: store})

	result, err := svc.SeedCandidates(context.Background(), SeedCandidatesRequest{Count: 25, Prefix: "demo_", OwnerID: "user:r"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Created != 25 || len(result.IDs) != 25 {
		t.Fatalf("expected 25 candidates, got %d", result.Created)
	}

	emails := map[string]bool{}
	for _, c := range store.created {
		if !strings.HasPrefix(c.Email, "demo_") {
			t.Errorf("email %q missing prefix", c.Email)
		}
		if emails[c.Email] {
			t.Errorf("duplicate email %q", c.Email)
		}
		emails[c.Email] = true
		if c.OwnerID != "user:r" {
			t.Errorf("owner = %q", c.OwnerID)
		}
		if len(c.Skills) == 0 || len(c.Skills) > 3 {
			t.Errorf("expected 1-3 skills, got %v", c.Skills)
		}
		if c.Seniority == nil || c.Category == nil {
			t.Errorf("candidate %s missing classification", c.Email)
		}
	}
}

func TestSeederService_SeedCandidates_Errors(t *testing.T) {
	svc := NewSeederService(SeederServiceConfig{Candidates: &mockSeedCandidates{}})
	for _, n := range []int{0, -1, 1001} {
		if _, err := svc.SeedCandidates(context.Background(), SeedCandidatesRequest{Count: n}); err == nil {
			t.Errorf("count %d: expected error", n)
		}
	}

	failing := &mockSeedCandidates{createFunc: func(ctx context.Context, c *model.Candidate) error {
		return errors.New("db down")
	}}
	svc = NewSeederService(SeederServiceConfig{Candidates: failing})
	if _, err := svc.SeedCandidates(context.Background(), SeedCandidatesRequest{Count: 2}); err == nil {
		t.Fatal("expected store error")
	}
}
