package login

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"

	"tableflip.dev/pinmap/pkg/auth"
)

// Login signs in against the identity provider and persists the session.
type Login struct {
	Identity auth.Identity
	Email    string
	Password string
}

func (l *Login) Do(ctx context.Context) error {
	if l.Identity == nil {
		return errors.New("can not sign in, no identity provider")
	}
	if l.Email == "" || l.Password == "" {
		return errors.New("email and password are required")
	}

	user, err := l.Identity.SignIn(ctx, l.Email, l.Password)
	if err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			return fmt.Errorf("sign in rejected: %s", authErr.Message)
		}
		return err
	}

	g := color.New(color.FgGreen)
	_, _ = g.Printf("signed in as %s\n", user.Email)
	return nil
}
