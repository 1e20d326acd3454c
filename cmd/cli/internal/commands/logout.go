package commands

import (
	"context"
	"fmt"
)

// LogoutCmd invalidates the session server-side when possible and always
// clears local credentials.
type LogoutCmd struct{}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.connect(true)
	if err != nil {
		return err
	}
	defer a.session.Close()

	a.session.Logout(ctx)

	fmt.Println("Logged out.")
	return nil
}
