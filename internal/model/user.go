package model

import "time"

// UserRole represents the role of a user in the system
type UserRole string

const (
	UserRoleAdmin     UserRole = "admin"     // Full access including GDPR, imports, migrations
	UserRoleRecruiter UserRole = "recruiter" // Jobs, candidates, submissions
	UserRoleSales     UserRole = "sales"     // Accounts, deals, bench sales
	UserRoleTrainer   UserRole = "trainer"   // Academy courses and quizzes
	UserRoleCandidate UserRole = "candidate" // Self-service academy access
)

// IsValid returns true if the role is one of the known roles
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleAdmin, UserRoleRecruiter, UserRoleSales, UserRoleTrainer, UserRoleCandidate:
		return true
	}
	return false
}

// IsStaff returns true for agency staff roles
func (r UserRole) IsStaff() bool {
	return r == UserRoleAdmin || r == UserRoleRecruiter || r == UserRoleSales || r == UserRoleTrainer
}

// User represents a user account
type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Hash          *string    `json:"-"` // Never expose password hash
	Firstname     *string    `json:"firstname,omitempty"`
	Lastname      *string    `json:"lastname,omitempty"`
	Phone         *string    `json:"phone,omitempty"`
	Role          UserRole   `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	Anonymized    bool       `json:"anonymized,omitempty"`
	CreatedOn     time.Time  `json:"created_on"`
	UpdatedOn     time.Time  `json:"updated_on"`
	LoginOn       *time.Time `json:"login_on,omitempty"`
}

// IsAdmin returns true if the user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// HasRole returns true if the user holds any of the given roles.
// Admins hold every role.
func (u *User) HasRole(roles ...UserRole) bool {
	return RoleAllowed(u.Role, roles...)
}

// RoleAllowed reports whether role satisfies one of the allowed roles
func RoleAllowed(role UserRole, allowed ...UserRole) bool {
	if role == UserRoleAdmin {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// CreateStaffUserRequest is used by admins to provision staff accounts
type CreateStaffUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
	Role      string `json:"role"`
}

// Validate validates the staff user request
func (r *CreateStaffUserRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Email == "" {
		errors = append(errors, FieldError{Field: "email", Message: "email is required"})
	}
	if r.Password == "" {
		errors = append(errors, FieldError{Field: "password", Message: "password is required"})
	}
	if !UserRole(r.Role).IsValid() {
		errors = append(errors, FieldError{Field: "role", Message: "role must be admin, recruiter, sales, trainer, or candidate"})
	}
	return errors
}

// TokenClaims represents extracted JWT claims
type TokenClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
}
