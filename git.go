package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"
)

// isGitURL checks if the input string looks like a Git repository URL
// rather than a local directory.
func isGitURL(input string) bool {
	if _, err := os.Stat(input); err == nil {
		return false // an existing local path always wins
	}
	return strings.HasSuffix(input, ".git") ||
		strings.HasPrefix(input, "git@") || // Common SSH format
		strings.HasPrefix(input, "ssh://")
}

// repoName derives the archive heading from a repository URL:
// "git@github.com:org/tool.git" becomes "tool".
func repoName(url string) string {
	url = strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	return path.Base(strings.ReplaceAll(url, ":", "/"))
}

// cloneGitRepo makes a shallow clone of the default branch into a temporary
// directory and returns its path. The caller removes it.
func cloneGitRepo(ctx context.Context, url string) (string, error) {
	tempDir, err := os.MkdirTemp("", "dirdoc-git-")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary directory: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Cloning Git repository '%s'...\n", url)
	logger.Debug("Cloning repository", zap.String("url", url), zap.String("dir", tempDir))

	_, err = git.PlainCloneContext(ctx, tempDir, false, &git.CloneOptions{
		URL:           url,
		Progress:      os.Stderr,
		Depth:         1,             // history is not archived
		ReferenceName: plumbing.HEAD, // Checkout default branch
		SingleBranch:  true,
	})
	if err != nil {
		_ = os.RemoveAll(tempDir)
		return "", fmt.Errorf("failed to clone repository '%s': %w", url, err)
	}
	return tempDir, nil
}
