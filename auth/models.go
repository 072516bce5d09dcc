package auth

import "time"

// User is the domain representation of a platform identity. Authority to act
// for a company comes from directory mandates, not from the user record, so
// there is no role column here.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// RegisterRequest contains user registration data supplied by callers.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest contains user login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session describes an authenticated caller as decoded from a token. The
// ActiveContext is either "personal" or the id of the company the user
// currently acts for.
type Session struct {
	UserID        string
	ActiveContext string
}

// ContextPersonal is the default acting context.
const ContextPersonal = "personal"
