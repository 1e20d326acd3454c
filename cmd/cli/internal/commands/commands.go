package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/estatehq/estatectl/internal/api"
	"github.com/estatehq/estatectl/internal/credentials"
	"github.com/estatehq/estatectl/internal/session"
)

type Globals struct {
	Debug      bool
	Version    string
	Server     string
	SessionDir string
}

// app bundles the session manager with the raw API client the resource
// commands use directly.
type app struct {
	session *session.Manager
	client  *api.Client
}

// connect wires up the store, transport, client and session manager. onLogin
// marks the process as sitting on the login screen so forced-logout
// redirects are suppressed during the login command itself.
func (g *Globals) connect(onLogin bool) (*app, error) {
	store, err := credentials.NewStore(g.SessionDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	transport := &api.Transport{}
	client, err := api.NewClient(api.Config{ServerURL: g.Server, Debug: g.Debug}, transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	manager := session.NewManager(client, store, client.Origin(), &terminalRedirector{onLogin: onLogin})

	// Wired after construction: the transport needs the manager for the
	// current token and 401 handling, the manager needs the client to talk
	// to the backend.
	transport.Token = manager.Token
	transport.OnUnauthorized = manager.ServerRejected

	return &app{session: manager, client: client}, nil
}

// terminalRedirector maps the console's forced-logout redirect onto a
// terminal: there is no page to navigate, so it tells the user what to run
// next. Only the login command counts as "already on the login screen".
type terminalRedirector struct {
	onLogin bool
}

func (r *terminalRedirector) CurrentPath() string {
	if r.onLogin {
		return session.LoginPath
	}
	return "/"
}

func (r *terminalRedirector) Redirect(target string) {
	if strings.Contains(target, "reason=expired") {
		fmt.Fprintln(os.Stderr, "Your session has expired. Run 'estatectl login' to sign in again.")
		return
	}
	fmt.Fprintln(os.Stderr, "Your session is no longer valid. Run 'estatectl login' to sign in.")
}

// confirm asks a y/N question on stdout.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)

	var response string
	_, _ = fmt.Scanln(&response)
	return response == "y" || response == "Y"
}
