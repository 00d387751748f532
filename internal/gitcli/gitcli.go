// Package gitcli runs version-control operations by shelling out to
// the git command. Every operation takes a context; when the context
// expires the child process is killed rather than left behind.
package gitcli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CloneOptions tune how repositories are cloned.
type CloneOptions struct {
	Depth        int  // 0 = full history
	SingleBranch bool // clone only the default branch
	FilterBlobs  bool // partial clone, blobs fetched on demand
}

// Client is a git CLI wrapper configured once per run.
type Client struct {
	token string // HTTPS token, empty for SSH or anonymous access
	clone CloneOptions
	prune bool
}

// New returns a Client. token may be empty.
func New(token string, clone CloneOptions, prune bool) *Client {
	return &Client{token: token, clone: clone, prune: prune}
}

// Version probes that git is available and returns its version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "git", "--version").Output()
	if err != nil {
		return "", fmt.Errorf("git is not available: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Clone clones url into dest. The parent directory is created as
// needed. A partially-cloned dest is removed on failure so a later run
// sees a clean absent path instead of foreign content.
func (c *Client) Clone(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	args := []string{"clone"}
	if c.clone.Depth > 0 {
		args = append(args, "--depth", fmt.Sprint(c.clone.Depth))
	}
	if c.clone.SingleBranch {
		args = append(args, "--single-branch")
	}
	if c.clone.FilterBlobs {
		args = append(args, "--filter=blob:none")
	}
	args = append(args, url, dest)

	if err := c.runGit(ctx, url, args...); err != nil {
		_ = os.RemoveAll(dest)
		return fmt.Errorf("git clone failed: %w", err)
	}
	return nil
}

// FetchPrune fetches origin in repoPath, pruning deleted remote
// branches when the client was configured to.
func (c *Client) FetchPrune(ctx context.Context, repoPath string) error {
	args := []string{"-C", repoPath, "fetch", "origin"}
	if c.prune {
		args = append(args, "--prune")
	}
	if err := c.runGit(ctx, "", args...); err != nil {
		return fmt.Errorf("git fetch failed: %w", err)
	}
	return nil
}

// HasLocalChanges reports whether repoPath holds uncommitted changes or
// commits not pushed to its upstream. Used as the cleanup guard: such a
// working copy is never removed without an explicit override.
func (c *Client) HasLocalChanges(ctx context.Context, repoPath string) (bool, error) {
	out, err := exec.CommandContext(ctx, "git", "-C", repoPath, "status", "--porcelain").Output()
	if err != nil {
		return false, fmt.Errorf("git status failed: %w", err)
	}
	if len(strings.TrimSpace(string(out))) > 0 {
		return true, nil
	}

	// Commits ahead of upstream. A missing upstream (detached HEAD,
	// never-pushed branch) is treated as having local changes, erring
	// on the side of keeping data.
	out, err = exec.CommandContext(ctx, "git", "-C", repoPath, "rev-list", "--count", "@{upstream}..HEAD").Output()
	if err != nil {
		return true, nil
	}
	return strings.TrimSpace(string(out)) != "0", nil
}

// runGit executes git with auth wiring and returns stderr in the error.
func (c *Client) runGit(ctx context.Context, url string, args ...string) error {
	if c.token != "" && (url == "" || strings.HasPrefix(url, "http")) {
		// Pass the token through the environment and a one-shot
		// credential helper so it never appears in the command line or
		// the remote URL.
		args = append([]string{
			"-c", `credential.helper=!f() { echo "username=oauth2"; echo "password=$GLMIRROR_GIT_TOKEN"; }; f`,
		}, args...)
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	if c.token != "" {
		cmd.Env = append(cmd.Env, "GLMIRROR_GIT_TOKEN="+c.token)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// RemoteURL reads the origin remote URL from repoPath's git config
// without spawning a process; the scanner calls this once per local
// repository.
func RemoteURL(repoPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(repoPath, ".git", "config"))
	if err != nil {
		return "", fmt.Errorf("read git config: %w", err)
	}

	inOrigin := false
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") {
			inOrigin = line == `[remote "origin"]`
			continue
		}
		if !inOrigin {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "url"); ok {
			if v, ok := strings.CutPrefix(strings.TrimSpace(rest), "="); ok {
				return strings.TrimSpace(v), nil
			}
		}
	}
	return "", nil
}
