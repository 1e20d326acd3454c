package commands

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/estatehq/estatectl/internal/api"
	"github.com/estatehq/estatectl/internal/session"
)

// LoginCmd authenticates against the backend and stores the session locally.
type LoginCmd struct {
	Email    string `arg:"" help:"Staff account email"`
	Password string `help:"Account password" env:"ESTATECTL_PASSWORD"`
}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	if l.Password == "" {
		fmt.Print("Password: ")
		_, _ = fmt.Scanln(&l.Password)
	}

	// Validate before anything goes to the network. The trimmed email is
	// what gets submitted.
	email, err := validateCredentials(l.Email, l.Password)
	if err != nil {
		return err
	}

	a, err := globals.connect(true)
	if err != nil {
		return err
	}
	defer a.session.Close()

	if err := a.session.Login(ctx, email, l.Password); err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return fmt.Errorf("login failed: %s", apiErr.Message)
		}
		return fmt.Errorf("login failed: %w", err)
	}

	user := a.session.CurrentUser()
	fmt.Printf("Logged in as %s (%s).\n", user.Name, user.Role)

	if a.session.HasExpiry() {
		fmt.Printf("Session expires in %s.\n", session.FormatTimeLeft(a.session.TimeLeft()))
	}

	return nil
}

// validateCredentials returns the normalized email for submission.
func validateCredentials(email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("invalid email address %q", email)
	}
	if password == "" {
		return "", errors.New("password is required")
	}
	return email, nil
}
