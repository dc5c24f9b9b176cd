package logout

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/pinmap/pkg/auth"
)

// Logout ends the persisted session.
type Logout struct {
	Identity auth.Identity
}

func (l *Logout) Do(ctx context.Context) error {
	if l.Identity == nil {
		return errors.New("can not sign out, no identity provider")
	}
	if l.Identity.CurrentUser() == nil {
		fmt.Println("not signed in")
		return nil
	}
	if err := l.Identity.SignOut(ctx); err != nil {
		return err
	}
	fmt.Println("signed out")
	return nil
}
