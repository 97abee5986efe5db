package preflight

import (
	"context"

	"crate/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check. The Discogs check needs a resolver
// and credentials; it is skipped when either is missing.
func RunAll(ctx context.Context, cfg *config.Config, resolver IdentityResolver) []Result {
	if cfg == nil {
		return nil
	}

	credentials := CheckCredentials(cfg)
	results := []Result{
		credentials,
		CheckDirectoryAccess("Backup directory", cfg.Backup.Dir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	if credentials.Passed && resolver != nil {
		results = append(results, CheckDiscogs(ctx, resolver, cfg.Discogs.Username))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
