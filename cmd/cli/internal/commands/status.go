package commands

import (
	"context"
	"fmt"

	"github.com/estatehq/estatectl/internal/session"
)

// StatusCmd reports the session state and token expiry without contacting
// the backend.
type StatusCmd struct{}

func (s *StatusCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.connect(true)
	if err != nil {
		return err
	}
	defer a.session.Close()

	fmt.Printf("Server:  %s\n", globals.Server)
	fmt.Printf("Status:  %s\n", a.session.Status())

	if !a.session.IsAuthenticated() {
		return nil
	}

	user := a.session.CurrentUser()
	fmt.Printf("User:    %s <%s>\n", user.Name, user.Email)
	fmt.Printf("Role:    %s\n", user.Role)

	if !a.session.HasExpiry() {
		fmt.Println("Expiry:  never")
		return nil
	}

	fmt.Printf("Expiry:  in %s\n", session.FormatTimeLeft(a.session.TimeLeft()))
	if a.session.WillExpireSoon() {
		fmt.Println()
		fmt.Println("Warning: session expires soon. Log in again to renew it.")
	}

	return nil
}
