// Package gitsync implements the two-endpoint content sync: cloning the
// upstream TypeScript repository and publishing the converted staging tree
// to the destination template repository.
package gitsync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/jsxforge/internal/logfields"
	"git.home.luguber.info/inful/jsxforge/internal/retry"
)

// Commit identity used for generated template commits.
const (
	commitAuthorName  = "jsxforge"
	commitAuthorEmail = "jsxforge@noreply.local"
)

// Client handles git operations against the upstream and template remotes.
type Client struct {
	workspaceDir string
	token        string // push credential; empty means anonymous
	policy       retry.Policy
	inRetry      bool // internal guard to avoid nested retry wrapping
}

// NewClient creates a git client with the specified workspace directory.
func NewClient(workspaceDir string) *Client {
	return &Client{workspaceDir: workspaceDir, policy: retry.DefaultPolicy()}
}

// WithToken attaches the push credential (fluent helper).
func (c *Client) WithToken(token string) *Client { c.token = token; return c }

// WithPolicy overrides the retry policy (fluent helper).
func (c *Client) WithPolicy(p retry.Policy) *Client { c.policy = p; return c }

// CloneUpstream clones the upstream repository into the workspace (with
// retry wrapper for transient failures) and returns its checkout path.
func (c *Client) CloneUpstream(ctx context.Context, url, branch string) (string, error) {
	if c.inRetry {
		return c.cloneOnce(ctx, url, branch)
	}
	return c.withRetry("clone", url, func() (string, error) { return c.cloneOnce(ctx, url, branch) })
}

func (c *Client) cloneOnce(ctx context.Context, url, branch string) (string, error) {
	repoPath := filepath.Join(c.workspaceDir, "upstream")
	slog.Debug("Cloning upstream", logfields.URL(url), slog.String("branch", branch), logfields.Path(repoPath))
	if err := os.RemoveAll(repoPath); err != nil {
		return "", fmt.Errorf("failed to remove existing directory: %w", err)
	}

	opts := &git.CloneOptions{URL: url}
	if branch != "" {
		opts.ReferenceName = plumbing.ReferenceName("refs/heads/" + branch)
		opts.SingleBranch = true
	}
	if auth := c.auth(); auth != nil {
		opts.Auth = auth
	}

	repo, err := git.PlainCloneContext(ctx, repoPath, false, opts)
	if err != nil {
		return "", classifyRemoteError("clone", url, err)
	}
	if ref, herr := repo.Head(); herr == nil {
		slog.Info("Upstream cloned", logfields.URL(url), slog.String("commit", ref.Hash().String()[:8]))
	} else {
		slog.Info("Upstream cloned", logfields.URL(url))
	}
	return repoPath, nil
}

// Publish commits the given tree to the destination repository and pushes
// it, replacing the remote branch content outright. The tree is expected to
// be a fully converted staging tree.
func (c *Client) Publish(ctx context.Context, treePath, url, branch, message string) error {
	if c.inRetry {
		return c.publishOnce(ctx, treePath, url, branch, message)
	}
	_, err := c.withRetry("publish", url, func() (string, error) {
		return "", c.publishOnce(ctx, treePath, url, branch, message)
	})
	return err
}

func (c *Client) publishOnce(ctx context.Context, treePath, url, branch, message string) error {
	repo, err := git.PlainInit(treePath, false)
	if err == git.ErrRepositoryAlreadyExists {
		repo, err = git.PlainOpen(treePath)
	}
	if err != nil {
		return fmt.Errorf("init publish repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("stage converted tree: %w", err)
	}

	commit, err := wt.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  commitAuthorName,
			Email: commitAuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("commit converted tree: %w", err)
	}

	remoteName := "template"
	if _, err := repo.Remote(remoteName); err != nil {
		if _, err := repo.CreateRemote(&gitcfg.RemoteConfig{Name: remoteName, URLs: []string{url}}); err != nil {
			return fmt.Errorf("create remote: %w", err)
		}
	}

	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("resolve head: %w", err)
	}
	refSpec := fmt.Sprintf("+%s:refs/heads/%s", head.Name(), branch)
	pushOpts := &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []gitcfg.RefSpec{gitcfg.RefSpec(refSpec)},
		Force:      true,
	}
	if auth := c.auth(); auth != nil {
		pushOpts.Auth = auth
	}

	if err := repo.PushContext(ctx, pushOpts); err != nil && err != git.NoErrAlreadyUpToDate {
		return classifyRemoteError("push", url, err)
	}

	slog.Info("Published converted tree",
		logfields.URL(url),
		slog.String("branch", branch),
		slog.String("commit", commit.String()[:8]))
	return nil
}

// auth returns token-based HTTP auth when a credential is configured.
func (c *Client) auth() transport.AuthMethod {
	if c.token == "" {
		return nil
	}
	return &http.BasicAuth{Username: "x-access-token", Password: c.token}
}

// withRetry wraps an operation with the client's retry policy, giving up
// immediately on permanent errors.
func (c *Client) withRetry(op, url string, fn func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			slog.Warn("Retrying git operation", slog.String("operation", op), logfields.URL(url), slog.Int("attempt", attempt))
			time.Sleep(c.policy.Delay(attempt))
		}
		c.inRetry = true
		path, err := fn()
		c.inRetry = false
		if err == nil {
			return path, nil
		}
		lastErr = err
		if isPermanentError(err) {
			slog.Error("Permanent git error", slog.String("operation", op), logfields.URL(url), logfields.Error(err))
			return "", err
		}
	}
	return "", fmt.Errorf("git %s failed after retries: %w", op, lastErr)
}
