package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/estatehq/estatectl/internal/api"
)

// BrowseCmd reads the backend's public, unauthenticated endpoints. Responses
// are cached on disk per the backend's Cache-Control headers, so repeated
// browsing is cheap.
type BrowseCmd struct {
	Resource string `arg:"" enum:"posts,pages,employees,testimonials,partners" help:"Public collection to browse"`
	NoCache  bool   `help:"Bypass the on-disk response cache"`
}

func (b *BrowseCmd) Run(ctx context.Context, globals *Globals) error {
	cacheDir := ""
	if !b.NoCache {
		cacheDir = browseCacheDir()
	}

	client, err := api.NewPublicClient(api.Config{ServerURL: globals.Server, Debug: globals.Debug}, cacheDir)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	items, err := client.List(ctx, b.Resource)
	if err != nil {
		return fmt.Errorf("failed to browse %s: %w", b.Resource, err)
	}

	if len(items) == 0 {
		fmt.Printf("No %s found.\n", b.Resource)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE")
	for _, item := range items {
		fmt.Fprintf(w, "%v\t%s\n", item["id"], itemTitle(item))
	}
	return w.Flush()
}

// browseCacheDir returns the on-disk cache location, or empty to fall back to
// an in-memory cache when no home directory is available.
func browseCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".estatectl", "cache")
}
