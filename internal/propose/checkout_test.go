package propose

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/go-github/v60/github"

	"github.com/BerriAI/fireworks-ai-cost-agent/internal/diff"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/model"
)

const checkoutDocPath = "model_prices_and_context_window.json"

// initCheckoutRepos builds a local clone wired to a bare origin, with
// the pricing document committed on the default branch.
func initCheckoutRepos(t *testing.T) (workDir, bareDir, baseBranch string, baseHash plumbing.Hash) {
	t.Helper()

	bareDir = t.TempDir()
	if _, err := git.PlainInit(bareDir, true); err != nil {
		t.Fatalf("init bare origin: %v", err)
	}

	workDir = t.TempDir()
	repo, err := git.PlainInit(workDir, false)
	if err != nil {
		t.Fatalf("init clone: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workDir, checkoutDocPath), []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}
	if _, err := wt.Add(checkoutDocPath); err != nil {
		t.Fatalf("stage document: %v", err)
	}
	hash, err := wt.Commit("initial document", &git.CommitOptions{
		Author: &object.Signature{Name: "setup", Email: "setup@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{bareDir},
	}); err != nil {
		t.Fatalf("create remote: %v", err)
	}
	if err := repo.Push(&git.PushOptions{RemoteName: "origin"}); err != nil {
		t.Fatalf("push base branch: %v", err)
	}

	head, err := repo.Head()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	return workDir, bareDir, head.Name().Short(), hash
}

func checkoutSummary(id string) Summary {
	rec := model.Record{ID: id, ContextWindow: 131072, Pricing: model.UnifiedPricing(0.9)}
	return Summary{Additions: []diff.Addition{{
		CanonicalKey: id,
		CatalogKey:   rec.CatalogKey(),
		Record:       rec,
		Entry:        rec.LiteLLMEntry(),
	}}}
}

// runBranches returns the proposal branches present in the repo.
func runBranches(t *testing.T, repo *git.Repository) []*plumbing.Reference {
	t.Helper()
	iter, err := repo.Branches()
	if err != nil {
		t.Fatalf("branches: %v", err)
	}
	var out []*plumbing.Reference
	_ = iter.ForEach(func(ref *plumbing.Reference) error {
		if strings.HasPrefix(ref.Name().Short(), "add-fireworks-models-") {
			out = append(out, ref)
		}
		return nil
	})
	return out
}

// Consecutive submissions must each branch from the base branch tip and
// leave the clone back on the base branch, so a long-running agent never
// stacks one run's commit on top of the previous run's branch.
func TestCheckoutSubmitBranchesFromBase(t *testing.T) {
	workDir, bareDir, base, baseHash := initCheckoutRepos(t)
	srv, _ := fakeGitHub(t)

	sink := NewCheckout(CheckoutOptions{
		RepoPath:   workDir,
		FilePath:   checkoutDocPath,
		Owner:      "BerriAI",
		Repo:       "litellm",
		BaseBranch: base,
		SourceURL:  "https://fireworks.ai/models",
	})
	sink.newClient = func(context.Context, string) *github.Client {
		c := github.NewClient(nil)
		u, _ := url.Parse(srv.URL + "/")
		c.BaseURL = u
		return c
	}

	repo, err := git.PlainOpen(workDir)
	if err != nil {
		t.Fatalf("open clone: %v", err)
	}

	for run, doc := range []string{
		"{\n    \"first-model\": {}\n}\n",
		"{\n    \"second-model\": {}\n}\n",
	} {
		prURL, err := sink.Submit(context.Background(), []byte(doc), checkoutSummary("some-model"))
		if err != nil {
			t.Fatalf("run %d Submit: %v", run, err)
		}
		if prURL != "https://github.com/BerriAI/litellm/pull/42" {
			t.Errorf("run %d PR URL = %q", run, prURL)
		}

		head, err := repo.Head()
		if err != nil {
			t.Fatalf("run %d head: %v", run, err)
		}
		if head.Name().Short() != base {
			t.Fatalf("run %d left HEAD on %q, want %q", run, head.Name().Short(), base)
		}
		if head.Hash() != baseHash {
			t.Errorf("run %d moved the base branch", run)
		}

		// The restored worktree must hold the base document again.
		content, err := os.ReadFile(filepath.Join(workDir, checkoutDocPath))
		if err != nil {
			t.Fatalf("run %d read document: %v", run, err)
		}
		if string(content) != "{}\n" {
			t.Errorf("run %d worktree document = %q, want the base version", run, content)
		}

		// Every proposal branch carries exactly one commit on top of the
		// base branch, never a previous run's commit in between.
		branches := runBranches(t, repo)
		if len(branches) == 0 {
			t.Fatalf("run %d created no proposal branch", run)
		}
		for _, ref := range branches {
			commit, err := repo.CommitObject(ref.Hash())
			if err != nil {
				t.Fatalf("run %d commit %s: %v", run, ref.Name().Short(), err)
			}
			if commit.NumParents() != 1 {
				t.Fatalf("run %d branch %s has %d parents", run, ref.Name().Short(), commit.NumParents())
			}
			parent, err := commit.Parent(0)
			if err != nil {
				t.Fatalf("run %d parent: %v", run, err)
			}
			if parent.Hash != baseHash {
				t.Errorf("run %d branch %s cut from %s, want base %s",
					run, ref.Name().Short(), parent.Hash, baseHash)
			}
		}
	}

	// The proposal branch must have reached the origin.
	origin, err := git.PlainOpen(bareDir)
	if err != nil {
		t.Fatalf("open origin: %v", err)
	}
	pushed := runBranches(t, origin)
	if len(pushed) == 0 {
		t.Error("no proposal branch pushed to origin")
	}
}
