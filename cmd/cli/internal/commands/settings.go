package commands

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/estatehq/estatectl/internal/session"
)

// SettingsCmd manages grouped site settings.
type SettingsCmd struct {
	Get SettingsGetCmd `cmd:"" help:"Show a settings group"`
	Set SettingsSetCmd `cmd:"" help:"Replace a settings group from a YAML file"`
}

type SettingsGetCmd struct {
	Group string `arg:"" help:"Settings group name (e.g. general, seo, contacts)"`
}

func (s *SettingsGetCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.connect(false)
	if err != nil {
		return err
	}
	defer a.session.Close()

	if err := requirePermission(a, "settings", session.PermManageSettings); err != nil {
		return err
	}

	values, err := a.client.GetSettings(ctx, s.Group)
	if err != nil {
		return fmt.Errorf("failed to get settings group %q: %w", s.Group, err)
	}

	out, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to render settings: %w", err)
	}
	fmt.Print(string(out))

	return nil
}

type SettingsSetCmd struct {
	Group string `arg:"" help:"Settings group name"`
	File  string `arg:"" help:"YAML file with the group's values" type:"existingfile"`
}

func (s *SettingsSetCmd) Run(ctx context.Context, globals *Globals) error {
	data, err := os.ReadFile(s.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.File, err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("invalid YAML in %s: %w", s.File, err)
	}

	a, err := globals.connect(false)
	if err != nil {
		return err
	}
	defer a.session.Close()

	if err := requirePermission(a, "settings", session.PermManageSettings); err != nil {
		return err
	}

	if _, err := a.client.UpdateSettings(ctx, s.Group, values); err != nil {
		return applyError("settings", err)
	}

	fmt.Printf("Settings group %q updated.\n", s.Group)
	return nil
}
