package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"crate/internal/config"
	"crate/internal/discogs"
)

// IdentityResolver resolves the owner of the configured API token.
// *discogs.Client implements it.
type IdentityResolver interface {
	Identity(ctx context.Context) (*discogs.Identity, error)
}

// CheckCredentials verifies that a username and token are configured.
func CheckCredentials(cfg *config.Config) Result {
	const name = "Credentials"
	if err := cfg.RequireCredentials(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("user %s", cfg.Discogs.Username)}
}

// CheckDiscogs verifies that the API is reachable, the token is valid, and it
// belongs to username. It uses a 30-second timeout and a single attempt.
func CheckDiscogs(ctx context.Context, resolver IdentityResolver, username string) Result {
	const name = "Discogs API"

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	identity, err := resolver.Identity(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	if username != "" && !strings.EqualFold(identity.Username, username) {
		return Result{Name: name, Detail: fmt.Sprintf("token belongs to %s, not %s (private data of %s will be missing)", identity.Username, username, username)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("token valid for %s", identity.Username)}
}

// CheckDirectoryAccess verifies that the directory is readable and writable.
// A directory that does not exist yet passes when it can be created.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
		}
		parent := existingAncestor(path)
		if parent == "" {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent directory)", path)}
		}
		if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func existingAncestor(path string) string {
	for dir := filepath.Dir(filepath.Clean(path)); ; dir = filepath.Dir(dir) {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		if next := filepath.Dir(dir); next == dir {
			return ""
		}
	}
}

// summarizeError produces a human-readable summary for API check failures.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "identity check timed out (Discogs API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "identity check timed out (Discogs API unreachable)"
	}
	return err.Error()
}
