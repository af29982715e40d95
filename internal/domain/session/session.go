package session

import (
	"context"

	"github.com/go-faster/errors"
)

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the identity of the signed-in user.
type User struct {
	ID    string
	Name  string
	Email string
	Phone string
	Role  Role
}

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// State is the lifecycle state of a session.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Credentials holds the login input.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is what the authentication endpoint returns on success.
type LoginResult struct {
	AccessToken string
	User        User
}

// Registration holds the sign-up input.
type Registration struct {
	Name            string `validate:"required"`
	Email           string `validate:"required,email"`
	Phone           string `validate:"required"`
	Password        string `validate:"required,min=6"`
	PasswordConfirm string `validate:"required,eqfield=Password"`
}

// PasswordReset holds the password change input. The old password proves
// ownership; no session is needed.
type PasswordReset struct {
	Email              string `validate:"required,email"`
	OldPassword        string `validate:"required"`
	NewPassword        string `validate:"required,min=6"`
	NewPasswordConfirm string `validate:"required,eqfield=NewPassword"`
}

// Authenticator is the external authentication API.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)
	Register(ctx context.Context, reg Registration) error
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*User, error)
	ResetPassword(ctx context.Context, req PasswordReset) error
}

var (
	// ErrInvalidCredentials is returned by an Authenticator when the server
	// rejects the email/password pair.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidLoginResponse is returned when the login endpoint succeeds
	// without an access token or user id.
	ErrInvalidLoginResponse = errors.New("login response has no access token or user")
)
