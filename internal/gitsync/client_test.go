package gitsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/jsxforge/internal/retry"
)

// seedUpstream creates a local repository with a single commit so clone
// tests never touch the network.
func seedUpstream(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	for name, content := range files {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
		_, err = wt.Add(name)
		require.NoError(t, err)
	}
	_, err = wt.Commit("seed", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func fastPolicy() retry.Policy {
	return retry.Policy{Mode: retry.BackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 2}
}

func TestCloneUpstreamLocal(t *testing.T) {
	upstream := seedUpstream(t, map[string]string{
		"app/root.tsx":   "export default function Root() {}",
		"package.json":   "{}",
		"vite.config.ts": "export default {};",
	})

	client := NewClient(t.TempDir()).WithPolicy(fastPolicy())
	path, err := client.CloneUpstream(context.Background(), upstream, "")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(path, "app", "root.tsx"))
	assert.FileExists(t, filepath.Join(path, "package.json"))
	assert.DirExists(t, filepath.Join(path, ".git"))
}

func TestCloneUpstreamReplacesExistingCheckout(t *testing.T) {
	upstream := seedUpstream(t, map[string]string{"app/root.tsx": "x"})

	ws := t.TempDir()
	stale := filepath.Join(ws, "upstream", "leftover.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	client := NewClient(ws).WithPolicy(fastPolicy())
	path, err := client.CloneUpstream(context.Background(), upstream, "")
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(path, "leftover.txt"))
	assert.FileExists(t, filepath.Join(path, "app", "root.tsx"))
}

func TestCloneUpstreamMissingRepository(t *testing.T) {
	client := NewClient(t.TempDir()).WithPolicy(fastPolicy())
	_, err := client.CloneUpstream(context.Background(), filepath.Join(t.TempDir(), "nope"), "")
	require.Error(t, err)
}

func TestPublishToLocalBareRepository(t *testing.T) {
	dest := t.TempDir()
	_, err := git.PlainInit(dest, true)
	require.NoError(t, err)

	tree := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tree, "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tree, "app", "root.jsx"), []byte("export default function Root() {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tree, "package.json"), []byte("{}\n"), 0o644))

	client := NewClient(t.TempDir()).WithPolicy(fastPolicy())
	require.NoError(t, client.Publish(context.Background(), tree, dest, "main", "jsxforge: publish converted sources"))

	// The destination branch must exist with the published tree.
	destRepo, err := git.PlainOpen(dest)
	require.NoError(t, err)
	ref, err := destRepo.Reference(plumbing.ReferenceName("refs/heads/main"), true)
	require.NoError(t, err)
	commit, err := destRepo.CommitObject(ref.Hash())
	require.NoError(t, err)
	assert.Equal(t, "jsxforge: publish converted sources", commit.Message)
	assert.Equal(t, commitAuthorName, commit.Author.Name)

	fileTree, err := commit.Tree()
	require.NoError(t, err)
	_, err = fileTree.File("app/root.jsx")
	assert.NoError(t, err)
}

func TestPublishTwiceForcePushes(t *testing.T) {
	dest := t.TempDir()
	_, err := git.PlainInit(dest, true)
	require.NoError(t, err)

	tree := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tree, "a.txt"), []byte("one"), 0o644))

	client := NewClient(t.TempDir()).WithPolicy(fastPolicy())
	require.NoError(t, client.Publish(context.Background(), tree, dest, "main", "first"))

	require.NoError(t, os.WriteFile(filepath.Join(tree, "a.txt"), []byte("two"), 0o644))
	require.NoError(t, client.Publish(context.Background(), tree, dest, "main", "second"))

	destRepo, err := git.PlainOpen(dest)
	require.NoError(t, err)
	ref, err := destRepo.Reference(plumbing.ReferenceName("refs/heads/main"), true)
	require.NoError(t, err)
	commit, err := destRepo.CommitObject(ref.Hash())
	require.NoError(t, err)
	assert.Equal(t, "second", commit.Message)
}

func TestClassifyRemoteError(t *testing.T) {
	authErr := classifyRemoteError("clone", "https://example.com/r.git", errors.New("authentication required"))
	var auth *AuthError
	require.ErrorAs(t, authErr, &auth)
	assert.Equal(t, "clone", auth.Op)

	nfErr := classifyRemoteError("push", "https://example.com/r.git", errors.New("repository not found"))
	var nf *NotFoundError
	require.ErrorAs(t, nfErr, &nf)

	plain := errors.New("connection reset by peer")
	assert.Equal(t, plain, classifyRemoteError("clone", "u", plain))
	assert.NoError(t, classifyRemoteError("clone", "u", nil))
}

func TestIsPermanentError(t *testing.T) {
	assert.True(t, isPermanentError(&AuthError{Op: "clone", URL: "u", Err: errors.New("x")}))
	assert.True(t, isPermanentError(&NotFoundError{Op: "push", URL: "u", Err: errors.New("x")}))
	assert.True(t, isPermanentError(fmt.Errorf("wrapped: %w", &AuthError{Op: "clone", URL: "u", Err: errors.New("x")})))
	assert.False(t, isPermanentError(errors.New("timeout")))
}

func TestWithRetryGivesUpOnPermanentError(t *testing.T) {
	client := NewClient(t.TempDir()).WithPolicy(fastPolicy())
	calls := 0
	_, err := client.withRetry("clone", "u", func() (string, error) {
		calls++
		return "", &AuthError{Op: "clone", URL: "u", Err: errors.New("denied")}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRecoversFromTransientError(t *testing.T) {
	client := NewClient(t.TempDir()).WithPolicy(fastPolicy())
	calls := 0
	path, err := client.withRetry("clone", "u", func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "/tmp/done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/done", path)
	assert.Equal(t, 3, calls)
}
