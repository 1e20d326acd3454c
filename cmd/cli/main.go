package main

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/estatehq/estatectl/cmd/cli/internal/commands"
	"github.com/estatehq/estatectl/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Login   commands.LoginCmd   `cmd:"" help:"Log in to the backend"`
		Logout  commands.LogoutCmd  `cmd:"" help:"Log out and clear stored credentials"`
		Whoami  commands.WhoamiCmd  `cmd:"" help:"Show the current user"`
		Status  commands.StatusCmd  `cmd:"" help:"Show session status and token expiry"`
		Profile commands.ProfileCmd `cmd:"" help:"Manage your profile"`

		Posts        commands.PostsCmd        `cmd:"" help:"Manage posts"`
		Pages        commands.PagesCmd        `cmd:"" help:"Manage pages"`
		Tags         commands.TagsCmd         `cmd:"" help:"Manage tags"`
		Employees    commands.EmployeesCmd    `cmd:"" help:"Manage employees"`
		Testimonials commands.TestimonialsCmd `cmd:"" help:"Manage testimonials"`
		Partners     commands.PartnersCmd     `cmd:"" help:"Manage partners"`
		Menus        commands.MenusCmd        `cmd:"" help:"Manage menus"`
		Admins       commands.AdminsCmd       `cmd:"" help:"Manage admin accounts"`
		Users        commands.UsersCmd        `cmd:"" help:"Manage users"`
		Settings     commands.SettingsCmd     `cmd:"" help:"Manage setting groups"`
		Browse       commands.BrowseCmd       `cmd:"" help:"Browse public content without logging in"`

		Server     string `help:"Backend API base URL" default:"http://estate.test/backend/public/api/v1" env:"ESTATECTL_SERVER"`
		SessionDir string `help:"Custom session storage directory" env:"ESTATECTL_SESSION_DIR"`
		Debug      bool   `help:"Enable debug mode."`
		Version    kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	logger.Setup(cli.Debug)

	err := cmd.Run(&commands.Globals{
		Debug:      cli.Debug,
		Version:    version,
		Server:     cli.Server,
		SessionDir: cli.SessionDir,
	})
	cmd.FatalIfErrorf(err)
}
