package propose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/go-github/v60/github"
)

// Checkout submits proposals through a local clone of the target repo:
// branch, write the file, commit, push, then open the PR via the API.
// Useful for operators who keep a long-lived fork checkout and want the
// commit authored locally.
type Checkout struct {
	repoPath   string // local clone
	filePath   string // document path relative to the clone root
	token      string
	owner      string
	repo       string
	baseBranch string
	sourceURL  string
	author     string
	email      string

	newClient func(ctx context.Context, token string) *github.Client
}

// CheckoutOptions configures the checkout sink.
type CheckoutOptions struct {
	RepoPath    string
	FilePath    string
	Token       string
	Owner       string
	Repo        string
	BaseBranch  string
	SourceURL   string
	AuthorName  string
	AuthorEmail string
}

// NewCheckout creates the checkout-mode sink.
func NewCheckout(opts CheckoutOptions) *Checkout {
	author := opts.AuthorName
	if author == "" {
		author = "fireworks-ai-cost-agent"
	}
	email := opts.AuthorEmail
	if email == "" {
		email = "cost-agent@berri.ai"
	}
	return &Checkout{
		repoPath:   opts.RepoPath,
		filePath:   opts.FilePath,
		token:      opts.Token,
		owner:      opts.Owner,
		repo:       opts.Repo,
		baseBranch: opts.BaseBranch,
		sourceURL:  opts.SourceURL,
		author:     author,
		email:      email,
		newClient:  defaultClient,
	}
}

// Submit writes the document into the clone, commits it on a fresh
// branch cut from the base branch tip, pushes, and opens the PR. The
// clone is a long-lived resource shared by every run: the run branch is
// always created from the base branch, never from whatever the previous
// run left checked out, and the worktree is returned to the base branch
// afterwards so consecutive runs do not stack commits.
func (c *Checkout) Submit(ctx context.Context, newDocument []byte, summary Summary) (string, error) {
	repo, err := git.PlainOpen(c.repoPath)
	if err != nil {
		return "", fmt.Errorf("opening repo %s: %w", c.repoPath, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}

	baseHash, err := c.resolveBase(repo)
	if err != nil {
		return "", err
	}

	branch := fmt.Sprintf("add-fireworks-models-%s", time.Now().Format("20060102-150405"))

	branchRef := plumbing.NewBranchReferenceName(branch)
	if err := repo.Storer.SetReference(plumbing.NewHashReference(branchRef, baseHash)); err != nil {
		return "", fmt.Errorf("creating branch ref: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: branchRef, Force: true}); err != nil {
		return "", fmt.Errorf("checking out %s: %w", branch, err)
	}

	if err := os.WriteFile(filepath.Join(c.repoPath, c.filePath), newDocument, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", c.filePath, err)
	}
	if _, err := wt.Add(c.filePath); err != nil {
		return "", fmt.Errorf("staging %s: %w", c.filePath, err)
	}

	_, err = wt.Commit(summary.Title(), &git.CommitOptions{
		Author: &object.Signature{
			Name:  c.author,
			Email: c.email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}

	err = repo.Push(&git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec("+refs/heads/" + branch + ":refs/heads/" + branch)},
		Auth:       c.auth(),
	})
	if err != nil {
		return "", fmt.Errorf("pushing %s: %w", branch, err)
	}

	// Leave the clone on the base branch for the next run.
	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(c.baseBranch),
		Force:  true,
	}); err != nil {
		return "", fmt.Errorf("restoring %s: %w", c.baseBranch, err)
	}

	client := c.newClient(ctx, c.token)
	title := summary.Title()
	body := RenderBody(summary, c.sourceURL)
	pr, _, err := client.PullRequests.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: &title,
		Body:  &body,
		Head:  &branch,
		Base:  &c.baseBranch,
	})
	if err != nil {
		return "", fmt.Errorf("creating PR: %w", err)
	}

	slog.Info("PR created from checkout",
		"number", pr.GetNumber(),
		"url", pr.GetHTMLURL(),
		"branch", branch)

	return pr.GetHTMLURL(), nil
}

// resolveBase fetches origin and returns the commit to cut the run
// branch from, preferring origin's view of the base branch over the
// possibly stale local ref.
func (c *Checkout) resolveBase(repo *git.Repository) (plumbing.Hash, error) {
	err := repo.Fetch(&git.FetchOptions{RemoteName: "origin", Auth: c.auth()})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return plumbing.ZeroHash, fmt.Errorf("fetching origin: %w", err)
	}

	if ref, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", c.baseBranch), true); err == nil {
		return ref.Hash(), nil
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(c.baseBranch), true)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolving base branch %s: %w", c.baseBranch, err)
	}
	return ref.Hash(), nil
}

// auth returns token auth for origin, or nil when no token is set
// (local remotes, SSH-agent setups).
func (c *Checkout) auth() transport.AuthMethod {
	if c.token == "" {
		return nil
	}
	return &githttp.BasicAuth{
		Username: "x-access-token",
		Password: c.token,
	}
}
