package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	mrand "math/rand/v2"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/forgo/staffhub/internal/model"
)

// SeedPassword is the password of every seeded staff user
const SeedPassword = "testpass123"

// SeedUserStore is the user storage the seeder writes to
type SeedUserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// SeedCandidateStore is the candidate storage the seeder writes to
type SeedCandidateStore interface {
	Create(ctx context.Context, c *model.Candidate) error
}

// SeederService generates development data
type SeederService struct {
	users      SeedUserStore
	candidates SeedCandidateStore
	logger     *slog.Logger
}

// SeederServiceConfig holds configuration for the seeder
type SeederServiceConfig struct {
	Users      SeedUserStore
	Candidates SeedCandidateStore
	Logger     *slog.Logger
}

// NewSeederService creates a new seeder service
func NewSeederService(cfg SeederServiceConfig) *SeederService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SeederService{users: cfg.Users, candidates: cfg.Candidates, logger: logger}
}

// SeedCandidatesRequest configures candidate seeding
type SeedCandidatesRequest struct {
	Count   int    `json:"count"`
	Prefix  string `json:"prefix,omitempty"`
	OwnerID string `json:"owner_id,omitempty"`
}

// SeedResult contains the results of a seeding operation
type SeedResult struct {
	Created  int      `json:"created"`
	Skipped  int      `json:"skipped"`
	IDs      []string `json:"ids"`
	Duration int64    `json:"duration_ms"`
}

// Sample data for realistic generation
var (
	firstNames = []string{
		"Emma", "Liam", "Olivia", "Noah", "Ava", "Ethan", "Sophia", "Mason",
		"Isabella", "William", "Mia", "James", "Charlotte", "Benjamin", "Amelia",
		"Lucas", "Harper", "Henry", "Evelyn", "Alexander", "Priya", "Wei",
		"Fatima", "Mateo", "Aisha", "Kenji", "Zara", "Diego", "Leila", "Omar",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
		"Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez", "Wilson", "Anderson",
		"Patel", "Nguyen", "Kim", "Chen", "Okafor", "Singh", "Tanaka", "Haddad",
	}
	seedProfiles = []struct {
		category string
		skills   []string
	}{
		{model.CategorySoftwareEngineering, []string{"go", "java", "python", "typescript", "react", "kubernetes", "postgres"}},
		{model.CategoryData, []string{"sql", "python", "spark", "airflow", "dbt", "tableau"}},
		{model.CategoryDevOps, []string{"terraform", "aws", "kubernetes", "ansible", "linux", "ci/cd"}},
		{model.CategoryQA, []string{"selenium", "cypress", "test planning", "jmeter"}},
		{model.CategoryProjectManagement, []string{"scrum", "jira", "stakeholder management", "budgeting"}},
	}
	seedLocations = []string{"Austin, TX", "Chicago, IL", "Remote", "Toronto, ON", "Atlanta, GA", "Denver, CO"}
	seedSources   = []string{"referral", "job_board", "linkedin", "academy"}
)

// seedStaff are the fixed development logins, one per staff role
var seedStaff = []struct {
	local string
	role  model.UserRole
}{
	{"admin", model.UserRoleAdmin},
	{"recruiter", model.UserRoleRecruiter},
	{"sales", model.UserRoleSales},
	{"trainer", model.UserRoleTrainer},
}

// SeedStaff creates <role>@<domain> for each staff role. Existing emails are
// skipped so the call is repeatable.
func (s *SeederService) SeedStaff(ctx context.Context, domain string) (*SeedResult, error) {
	start := time.Now()
	if domain == "" {
		domain = "staffhub.dev"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	h := string(hash)

	result := &SeedResult{IDs: []string{}}
	for _, staff := range seedStaff {
		email := staff.local + "@" + domain
		existing, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", email, err)
		}
		if existing != nil {
			result.Skipped++
			continue
		}

		first := strings.ToUpper(staff.local[:1]) + staff.local[1:]
		u := &model.User{
			Email:         email,
			Hash:          &h,
			Firstname:     &first,
			Role:          staff.role,
			EmailVerified: true,
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, fmt.Errorf("create %s: %w", email, err)
		}
		result.Created++
		result.IDs = append(result.IDs, u.ID)
	}

	result.Duration = time.Since(start).Milliseconds()
	s.logger.Info("seeded staff", "created", result.Created, "skipped", result.Skipped)
	return result, nil
}

// SeedCandidates creates Count random candidates with emails
// <prefix><random>@test.local
func (s *SeederService) SeedCandidates(ctx context.Context, req SeedCandidatesRequest) (*SeedResult, error) {
	start := time.Now()

	if req.Count <= 0 || req.Count > 1000 {
		return nil, fmt.Errorf("count must be between 1 and 1000")
	}
	if req.Prefix == "" {
		req.Prefix = "seed_"
	}

	ids := make([]string, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		c := randomCandidate(req.Prefix)
		c.OwnerID = req.OwnerID
		if err := s.candidates.Create(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to create candidate %d: %w", i+1, err)
		}
		ids = append(ids, c.ID)
	}

	result := &SeedResult{
		Created:  len(ids),
		IDs:      ids,
		Duration: time.Since(start).Milliseconds(),
	}
	s.logger.Info("seeded candidates", "created", result.Created, "prefix", req.Prefix)
	return result, nil
}

func randomCandidate(prefix string) *model.Candidate {
	profile := seedProfiles[mrand.IntN(len(seedProfiles))]
	years := mrand.IntN(15)

	// Pick three distinct skills from the profile
	skills := append([]string(nil), profile.skills...)
	mrand.Shuffle(len(skills), func(i, j int) { skills[i], skills[j] = skills[j], skills[i] })
	skills = skills[:min(3, len(skills))]

	location := seedLocations[mrand.IntN(len(seedLocations))]
	source := seedSources[mrand.IntN(len(seedSources))]
	category := profile.category
	seniority := model.SeniorityMid
	switch {
	case years < 3:
		seniority = model.SeniorityJunior
	case years >= 8:
		seniority = model.SenioritySenior
	}

	status := model.CandidateStatusActive
	if mrand.IntN(4) == 0 {
		status = model.CandidateStatusBench
	}

	return &model.Candidate{
		FirstName:       firstNames[mrand.IntN(len(firstNames))],
		LastName:        lastNames[mrand.IntN(len(lastNames))],
		Email:           fmt.Sprintf("%s%s@test.local", prefix, randomID()),
		Location:        &location,
		Skills:          skills,
		YearsExperience: years,
		Status:          status,
		Source:          &source,
		Category:        &category,
		Seniority:       &seniority,
	}
}

func randomID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
