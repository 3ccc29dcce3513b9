package sync

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultCommitMessage is used when NewGitDestination gets an empty message.
const DefaultCommitMessage = "sync: update schedule export"

// GitDestination keeps the export as a file in a local clone and pushes
// every change.
type GitDestination struct {
	repo    string
	file    string
	branch  string
	message string
}

// NewGitDestination writes to file inside the existing clone at repo.
func NewGitDestination(repo, file, branch, message string) *GitDestination {
	if message == "" {
		message = DefaultCommitMessage
	}
	return &GitDestination{repo: repo, file: file, branch: branch, message: message}
}

func (d *GitDestination) Name() string {
	return "git:" + filepath.Join(d.repo, d.file)
}

// Write replaces the file and pushes a commit. An unchanged file makes no
// commit.
func (d *GitDestination) Write(ctx context.Context, data []byte) error {
	if _, err := d.git(ctx, "checkout", d.branch); err != nil {
		return fmt.Errorf("git checkout: %w", err)
	}
	// Fails harmlessly when the remote has no such branch yet.
	_, _ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	path := filepath.Join(d.repo, d.file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	if _, err := d.git(ctx, "add", "--", d.file); err != nil {
		return fmt.Errorf("git add: %w", err)
	}
	// diff --cached --quiet exits 1 when the staged file differs from HEAD.
	if _, err := d.git(ctx, "diff", "--cached", "--quiet", "--", d.file); err == nil {
		return nil
	}

	for _, step := range [][]string{
		{"commit", "-m", d.message, "--", d.file},
		{"push", "origin", d.branch},
	} {
		if _, err := d.git(ctx, step...); err != nil {
			return fmt.Errorf("git %s: %w", step[0], err)
		}
	}
	return nil
}

// git runs a subcommand in the clone. Its stderr, if any, becomes part of
// the error.
func (d *GitDestination) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
	}
	return string(out), err
}
