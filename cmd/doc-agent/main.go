package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/google/go-github/v66/github"

	"github.com/joeycmlam/jira-agent/internal/docagent"
)

type options struct {
	owner        string
	repo         string
	branch       string
	docPath      string
	lookbackDays int
	dryRun       bool
	apiBase      string
	stdout       io.Writer
}

func main() {
	opts := options{stdout: os.Stdout}
	flag.StringVar(&opts.owner, "owner", "", "repository owner (default from GITHUB_REPOSITORY)")
	flag.StringVar(&opts.repo, "repo", "", "repository name (default from GITHUB_REPOSITORY)")
	flag.StringVar(&opts.branch, "branch", "", "branch to inspect (default the repository's default branch)")
	flag.StringVar(&opts.docPath, "doc-path", docagent.DefaultDocPath, "path of the status document in the repository")
	flag.IntVar(&opts.lookbackDays, "lookback", docagent.DefaultLookbackDays, "how many days of history to summarize")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "print the report instead of committing it")
	flag.Parse()

	if err := run(context.Background(), opts); err != nil {
		log.Fatalf("[Doc Agent] %v", err)
	}
}

func run(ctx context.Context, opts options) error {
	owner, repo, err := resolveRepo(opts.owner, opts.repo, os.Getenv("GITHUB_REPOSITORY"))
	if err != nil {
		return err
	}

	token, err := resolveToken(ctx, owner, repo, tokenSources{
		token:      os.Getenv("GITHUB_TOKEN"),
		appID:      os.Getenv("GITHUB_APP_ID"),
		privateKey: os.Getenv("GITHUB_APP_PRIVATE_KEY"),
		apiBase:    opts.apiBase,
	})
	if err != nil {
		return err
	}

	client := github.NewClient(nil).WithAuthToken(token)
	if opts.apiBase != "" {
		base, err := url.Parse(opts.apiBase + "/")
		if err != nil {
			return fmt.Errorf("parse API base: %w", err)
		}
		client.BaseURL = base
	}

	reporter := docagent.NewReporter(client)
	docOpts := docagent.Options{
		Owner:        owner,
		Repo:         repo,
		Branch:       opts.branch,
		LookbackDays: opts.lookbackDays,
		DocPath:      opts.docPath,
	}

	status, err := reporter.Collect(ctx, docOpts)
	if err != nil {
		return fmt.Errorf("collect repository status: %w", err)
	}

	markdown := docagent.RenderMarkdown(status)
	if opts.dryRun {
		fmt.Fprint(opts.stdout, markdown)
		return nil
	}

	docURL, err := reporter.Publish(ctx, docOpts, status.Branch, markdown)
	if err != nil {
		return fmt.Errorf("publish status document: %w", err)
	}
	log.Printf("[Doc Agent] Published %s", docURL)
	return nil
}

// resolveRepo picks the owner and repo from flags, falling back to the
// Actions-style GITHUB_REPOSITORY owner/repo variable.
func resolveRepo(owner, repo, envRepo string) (string, string, error) {
	if owner != "" && repo != "" {
		return owner, repo, nil
	}
	if envRepo != "" {
		parts := strings.SplitN(envRepo, "/", 2)
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			return parts[0], parts[1], nil
		}
		return "", "", fmt.Errorf("malformed GITHUB_REPOSITORY %q, want owner/repo", envRepo)
	}
	return "", "", fmt.Errorf("repository not specified: pass -owner and -repo or set GITHUB_REPOSITORY")
}

type tokenSources struct {
	token      string
	appID      string
	privateKey string
	apiBase    string
}

// resolveToken prefers a plain GITHUB_TOKEN and falls back to minting an
// installation token from App credentials.
func resolveToken(ctx context.Context, owner, repo string, src tokenSources) (string, error) {
	if src.token != "" {
		return src.token, nil
	}
	if src.appID != "" && src.privateKey != "" {
		auth := &docagent.AppAuth{
			AppID:      src.appID,
			PrivateKey: src.privateKey,
			APIBase:    src.apiBase,
		}
		token, err := auth.InstallationToken(ctx, owner, repo)
		if err != nil {
			return "", fmt.Errorf("mint installation token: %w", err)
		}
		return token, nil
	}
	return "", fmt.Errorf("no credentials: set GITHUB_TOKEN or GITHUB_APP_ID and GITHUB_APP_PRIVATE_KEY")
}
