package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/estatehq/estatectl/internal/api"
)

// ProfileCmd manages the logged-in user's profile.
type ProfileCmd struct {
	Update ProfileUpdateCmd `cmd:"" help:"Update name, password or avatar"`
	Avatar ProfileAvatarCmd `cmd:"" help:"Manage your avatar"`
}

// ProfileUpdateCmd updates profile fields. Password changes require the
// current password and a matching confirmation.
type ProfileUpdateCmd struct {
	Name            string `help:"New display name"`
	Password        string `help:"New password"`
	PasswordCurrent string `help:"Current password, required when changing the password" name:"current-password"`
	Avatar          string `help:"Path to a new avatar image" type:"existingfile"`
}

func (p *ProfileUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	if p.Name == "" && p.Password == "" && p.Avatar == "" {
		return errors.New("nothing to update: pass --name, --password or --avatar")
	}
	if p.Password != "" && p.PasswordCurrent == "" {
		return errors.New("changing the password requires --current-password")
	}

	a, err := globals.connect(false)
	if err != nil {
		return err
	}
	defer a.session.Close()

	user, err := a.session.UpdateProfile(ctx, api.ProfileUpdate{
		Name:                 p.Name,
		Password:             p.Password,
		PasswordCurrent:      p.PasswordCurrent,
		PasswordConfirmation: p.Password,
		AvatarPath:           p.Avatar,
	})
	if err != nil {
		if api.IsValidation(err) {
			printFieldErrors(err)
			return errors.New("profile update rejected")
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}

	fmt.Printf("Profile updated: %s <%s>\n", user.Name, user.Email)
	return nil
}

// ProfileAvatarCmd manages the avatar.
type ProfileAvatarCmd struct {
	Remove ProfileAvatarRemoveCmd `cmd:"" help:"Remove your avatar"`
}

type ProfileAvatarRemoveCmd struct{}

func (p *ProfileAvatarRemoveCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.connect(false)
	if err != nil {
		return err
	}
	defer a.session.Close()

	if _, err := a.session.RemoveAvatar(ctx); err != nil {
		return fmt.Errorf("failed to remove avatar: %w", err)
	}

	fmt.Println("Avatar removed.")
	return nil
}

func printFieldErrors(err error) {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return
	}

	fields := make([]string, 0, len(apiErr.FieldErrors))
	for field := range apiErr.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	w := tabwriter.NewWriter(os.Stderr, 0, 0, 2, ' ', 0)
	for _, field := range fields {
		fmt.Fprintf(w, "%s\t%s\n", field, apiErr.FieldErrors[field])
	}
	w.Flush()
}
