package service

import (
	"context"
	"strings"

	"github.com/forgo/staffhub/internal/model"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost = 12

	minPasswordLength = 8
	maxPasswordLength = 128
)

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, role string, limit, offset int) ([]*model.User, error)
	SetRole(ctx context.Context, userID string, role model.UserRole) error
	TouchLogin(ctx context.Context, userID string) error
}

// AuthService handles authentication and staff provisioning
type AuthService struct {
	userRepo     UserRepository
	tokenService *TokenService
	auditor      Auditor
}

// AuthServiceConfig holds configuration for the auth service
type AuthServiceConfig struct {
	UserRepo     UserRepository
	TokenService *TokenService
	Auditor      Auditor
}

// NewAuthService creates a new auth service
func NewAuthService(cfg AuthServiceConfig) *AuthService {
	return &AuthService{
		userRepo:     cfg.UserRepo,
		tokenService: cfg.TokenService,
		auditor:      auditorOrNoop(cfg.Auditor),
	}
}

// RegisterRequest represents a self-service registration
type RegisterRequest struct {
	Email     string
	Password  string
	Firstname string
	Lastname  string
}

// AuthResult is returned by register and login
type AuthResult struct {
	User      *model.User
	TokenPair *TokenPair
}

// Register creates a candidate account with email/password
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	user, err := s.createUser(ctx, req.Email, req.Password, req.Firstname, req.Lastname, model.UserRoleCandidate)
	if err != nil {
		return nil, err
	}

	tokenPair, err := s.tokenService.GenerateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, TokenPair: tokenPair}, nil
}

// CreateStaffUser provisions a user with any role. Admin only.
func (s *AuthService) CreateStaffUser(ctx context.Context, actorID string, req *model.CreateStaffUserRequest) (*model.User, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	user, err := s.createUser(ctx, req.Email, req.Password, req.Firstname, req.Lastname, model.UserRole(req.Role))
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditCreate, "user", user.ID, map[string]any{"role": user.Role})
	return user, nil
}

func (s *AuthService) createUser(ctx context.Context, email, password, first, last string, role model.UserRole) (*model.User, error) {
	email = model.NormalizeEmail(email)
	if !model.LooksLikeEmail(email) {
		return nil, ErrInvalidEmail
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyExists
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:     email,
		Hash:      &hash,
		Firstname: stringPtr(strings.TrimSpace(first)),
		Lastname:  stringPtr(strings.TrimSpace(last)),
		Role:      role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates a user with email/password
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil || user.Anonymized || user.Hash == nil || *user.Hash == "" {
		return nil, ErrInvalidCredentials
	}
	if !checkPassword(password, *user.Hash) {
		return nil, ErrInvalidCredentials
	}

	tokenPair, err := s.tokenService.GenerateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}
	_ = s.userRepo.TouchLogin(ctx, user.ID)

	return &AuthResult{User: user, TokenPair: tokenPair}, nil
}

// GetUserByID retrieves a user by ID
func (s *AuthService) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ListUsers returns users, optionally filtered by role
func (s *AuthService) ListUsers(ctx context.Context, role string, limit, offset int) ([]*model.User, error) {
	if role != "" && !model.UserRole(role).IsValid() {
		return nil, ErrInvalidRole
	}
	return s.userRepo.List(ctx, role, model.ClampLimit(limit), offset)
}

// ChangeRole updates a user's role and revokes their sessions so the new role takes effect
func (s *AuthService) ChangeRole(ctx context.Context, actorID, userID string, role model.UserRole) (*model.User, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.SetRole(ctx, userID, role); err != nil {
		return nil, err
	}
	if err := s.tokenService.RevokeAllUserTokens(ctx, userID); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditUpdate, "user", userID, map[string]any{"from": user.Role, "to": role})
	user.Role = role
	return user, nil
}

// RefreshTokens validates a refresh token and issues new tokens
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	stored, err := s.tokenService.LookupRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Anonymized {
		return nil, ErrUserNotFound
	}

	return s.tokenService.RefreshTokens(ctx, refreshToken, user)
}

// Logout revokes the user's refresh tokens
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.tokenService.RevokeAllUserTokens(ctx, userID)
}

// ValidateAccessToken validates an access token and returns the claims
func (s *AuthService) ValidateAccessToken(token string) (*model.TokenClaims, error) {
	claims, err := s.tokenService.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	return &model.TokenClaims{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   model.UserRole(claims.Role),
	}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
