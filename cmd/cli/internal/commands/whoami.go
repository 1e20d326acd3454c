package commands

import (
	"context"
	"fmt"
	"strings"
)

// WhoamiCmd shows the current user as known by the backend.
type WhoamiCmd struct {
	Cached bool `help:"Show the locally stored user without contacting the backend" default:"false"`
}

func (w *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.connect(false)
	if err != nil {
		return err
	}
	defer a.session.Close()

	if !a.session.IsAuthenticated() {
		return fmt.Errorf("not logged in\n\nRun 'estatectl login <email>' to sign in")
	}

	user := a.session.CurrentUser()
	if !w.Cached {
		// Refresh also picks up a renewed token expiry when the backend
		// returns one.
		user, err = a.session.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch user: %w", err)
		}
	}

	fmt.Printf("Name:        %s\n", user.Name)
	fmt.Printf("Email:       %s\n", user.Email)
	fmt.Printf("Role:        %s\n", user.Role)
	if user.AvatarURL != "" {
		fmt.Printf("Avatar:      %s\n", user.AvatarURL)
	}
	fmt.Printf("Permissions: %s\n", strings.Join(user.Permissions, ", "))

	return nil
}
