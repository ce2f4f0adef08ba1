package propose

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"
)

// GitHub submits proposals entirely through the GitHub API: branch ref,
// Contents-API file update, then the pull request. No local clone is
// needed, which keeps the serve-mode container stateless.
type GitHub struct {
	token      string
	owner      string
	repo       string
	baseBranch string
	filePath   string
	sourceURL  string

	// newClient is swappable in tests.
	newClient func(ctx context.Context, token string) *github.Client
}

// GitHubOptions configures the API sink.
type GitHubOptions struct {
	Token      string
	Owner      string // e.g. "BerriAI"
	Repo       string // e.g. "litellm"
	BaseBranch string // e.g. "main"
	FilePath   string // e.g. "model_prices_and_context_window.json"
	SourceURL  string // scraped page, referenced in the PR body
}

// NewGitHub creates the API-mode sink.
func NewGitHub(opts GitHubOptions) *GitHub {
	return &GitHub{
		token:      opts.Token,
		owner:      opts.Owner,
		repo:       opts.Repo,
		baseBranch: opts.BaseBranch,
		filePath:   opts.FilePath,
		sourceURL:  opts.SourceURL,
		newClient:  defaultClient,
	}
}

func defaultClient(ctx context.Context, token string) *github.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(ctx, ts))
}

// Submit pushes the new document to a fresh branch and opens the PR.
func (g *GitHub) Submit(ctx context.Context, newDocument []byte, summary Summary) (string, error) {
	client := g.newClient(ctx, g.token)

	branch := fmt.Sprintf("add-fireworks-models-%s", time.Now().Format("20060102-150405"))

	baseRef, _, err := client.Git.GetRef(ctx, g.owner, g.repo, "heads/"+g.baseBranch)
	if err != nil {
		return "", fmt.Errorf("resolving base branch %s: %w", g.baseBranch, err)
	}

	_, _, err = client.Git.CreateRef(ctx, g.owner, g.repo, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: baseRef.Object.SHA},
	})
	if err != nil {
		return "", fmt.Errorf("creating branch %s: %w", branch, err)
	}

	current, _, _, err := client.Repositories.GetContents(ctx, g.owner, g.repo, g.filePath,
		&github.RepositoryContentGetOptions{Ref: branch})
	if err != nil {
		return "", fmt.Errorf("reading %s on %s: %w", g.filePath, branch, err)
	}

	commitMsg := summary.Title()
	_, _, err = client.Repositories.UpdateFile(ctx, g.owner, g.repo, g.filePath,
		&github.RepositoryContentFileOptions{
			Message: &commitMsg,
			Content: newDocument,
			SHA:     current.SHA,
			Branch:  &branch,
		})
	if err != nil {
		return "", fmt.Errorf("updating %s: %w", g.filePath, err)
	}

	title := summary.Title()
	body := RenderBody(summary, g.sourceURL)
	pr, _, err := client.PullRequests.Create(ctx, g.owner, g.repo, &github.NewPullRequest{
		Title: &title,
		Body:  &body,
		Head:  &branch,
		Base:  &g.baseBranch,
	})
	if err != nil {
		return "", fmt.Errorf("creating PR: %w", err)
	}

	slog.Info("PR created",
		"number", pr.GetNumber(),
		"url", pr.GetHTMLURL(),
		"additions", len(summary.Additions))

	return pr.GetHTMLURL(), nil
}
