// Package auth wraps the identity provider: sign-in/sign-out, the current
// user, and auth-state callbacks that fire on every transition including
// initial load.
package auth

import (
	"context"
	"fmt"
)

// User is the authenticated identity. ID is the owner id scoping every note
// query and write.
type User struct {
	ID    string `json:"userId"`
	Email string `json:"email"`
}

// AuthError is a credentials problem surfaced inline on the login form,
// never as a crash.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %s", e.Message)
}

// Callback receives the new user on every auth transition; nil means signed
// out.
type Callback func(*User)

// Identity is the provider capability the client depends on.
type Identity interface {
	// SignIn authenticates, fires callbacks, and returns the user, or an
	// *AuthError for rejected credentials.
	SignIn(ctx context.Context, email, password string) (*User, error)

	// SignOut clears the session and fires callbacks with nil.
	SignOut(ctx context.Context) error

	// CurrentUser returns the signed-in user, or nil.
	CurrentUser() *User

	// OnAuthStateChanged registers a callback and invokes it immediately
	// with the current state, covering the initial-load transition.
	OnAuthStateChanged(cb Callback)
}
