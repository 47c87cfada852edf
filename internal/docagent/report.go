// Package docagent inspects a GitHub repository's recent commit activity and
// maintains a generated status document in the repository itself.
package docagent

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
)

const (
	// DefaultDocPath is where the generated report lands in the repository
	DefaultDocPath = "DOCS/REPO_STATUS.md"

	// DefaultLookbackDays is the default activity window
	DefaultLookbackDays = 30

	// maxCommitDetails caps per-commit file lookups to bound API usage
	maxCommitDetails = 200
)

// Options configures a report run
type Options struct {
	Owner        string
	Repo         string
	Branch       string // empty means the repository's default branch
	LookbackDays int
	DocPath      string
}

// FileChange counts how often a file changed within the lookback window
type FileChange struct {
	Path  string
	Count int
}

// Status is the collected repository activity snapshot
type Status struct {
	Owner        string
	Repo         string
	Branch       string
	LastCommitAt time.Time
	DaysSince    int
	LookbackDays int
	CommitCount  int
	TopFiles     []FileChange
}

// Reporter collects activity and publishes the status document
type Reporter struct {
	client *github.Client

	// now and throttle are injectable for tests
	now      func() time.Time
	throttle time.Duration
}

// NewReporter creates a reporter backed by the given GitHub client
func NewReporter(client *github.Client) *Reporter {
	return &Reporter{
		client:   client,
		now:      time.Now,
		throttle: 100 * time.Millisecond,
	}
}

// Collect gathers commit activity for the repository. Branch defaults to the
// repository's default branch; per-commit detail failures are tolerated.
func (r *Reporter) Collect(ctx context.Context, opts Options) (*Status, error) {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = DefaultLookbackDays
	}

	branch := opts.Branch
	if branch == "" {
		repo, _, err := r.client.Repositories.Get(ctx, opts.Owner, opts.Repo)
		if err != nil {
			return nil, fmt.Errorf("resolve default branch: %w", err)
		}
		branch = repo.GetDefaultBranch()
		if branch == "" {
			return nil, fmt.Errorf("could not determine default branch for %s/%s", opts.Owner, opts.Repo)
		}
	}

	latest, err := r.latestCommit(ctx, opts.Owner, opts.Repo, branch)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, fmt.Errorf("no commits found on branch %s", branch)
	}

	now := r.now().UTC()
	lastAt := latest.GetCommit().GetAuthor().GetDate().Time.UTC()

	since := now.AddDate(0, 0, -opts.LookbackDays)
	commits, err := r.commitsSince(ctx, opts.Owner, opts.Repo, branch, since)
	if err != nil {
		return nil, err
	}

	return &Status{
		Owner:        opts.Owner,
		Repo:         opts.Repo,
		Branch:       branch,
		LastCommitAt: lastAt,
		DaysSince:    int(now.Sub(lastAt).Hours() / 24),
		LookbackDays: opts.LookbackDays,
		CommitCount:  len(commits),
		TopFiles:     r.topChangedFiles(ctx, opts.Owner, opts.Repo, commits),
	}, nil
}

func (r *Reporter) latestCommit(ctx context.Context, owner, repo, branch string) (*github.RepositoryCommit, error) {
	commits, _, err := r.client.Repositories.ListCommits(ctx, owner, repo, &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("list latest commit: %w", err)
	}
	if len(commits) == 0 {
		return nil, nil
	}
	return commits[0], nil
}

func (r *Reporter) commitsSince(ctx context.Context, owner, repo, branch string, since time.Time) ([]*github.RepositoryCommit, error) {
	var all []*github.RepositoryCommit
	opts := &github.CommitsListOptions{
		SHA:         branch,
		Since:       since,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		page, resp, err := r.client.Repositories.ListCommits(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("list commits since %s: %w", since.Format(time.RFC3339), err)
		}
		all = append(all, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// topChangedFiles counts file touches across the window's commits and
// returns the ten most changed. Occasional per-commit failures are skipped.
func (r *Reporter) topChangedFiles(ctx context.Context, owner, repo string, commits []*github.RepositoryCommit) []FileChange {
	counter := map[string]int{}

	details := commits
	if len(details) > maxCommitDetails {
		details = details[:maxCommitDetails]
	}

	for i, commit := range details {
		full, _, err := r.client.Repositories.GetCommit(ctx, owner, repo, commit.GetSHA(), nil)
		if err != nil {
			log.Printf("[DocAgent] Skipping commit %s: %v", commit.GetSHA(), err)
			continue
		}
		for _, file := range full.Files {
			if name := file.GetFilename(); name != "" {
				counter[name]++
			}
		}
		// Be gentle with the API between detail lookups.
		if r.throttle > 0 && i < len(details)-1 {
			time.Sleep(r.throttle)
		}
	}

	changes := make([]FileChange, 0, len(counter))
	for path, count := range counter {
		changes = append(changes, FileChange{Path: path, Count: count})
	}
	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Count != changes[j].Count {
			return changes[i].Count > changes[j].Count
		}
		return changes[i].Path < changes[j].Path
	})
	if len(changes) > 10 {
		changes = changes[:10]
	}
	return changes
}

// RenderMarkdown produces the status document content
func RenderMarkdown(st *Status) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Repository status: %s\n\n", st.Repo)
	fmt.Fprintf(&sb, "- Last commit: %s (UTC)\n", st.LastCommitAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "- Days since last change: %d\n", st.DaysSince)
	fmt.Fprintf(&sb, "- Commits in last %d days: %d\n\n", st.LookbackDays, st.CommitCount)
	fmt.Fprintf(&sb, "Top changed files (last %d days):\n", st.LookbackDays)
	if len(st.TopFiles) == 0 {
		sb.WriteString("- None\n")
	}
	for _, fc := range st.TopFiles {
		fmt.Fprintf(&sb, "- %s (%d changes)\n", fc.Path, fc.Count)
	}
	sb.WriteString("\n_This file is generated automatically by the doc agent._\n")
	return sb.String()
}

// Publish creates or updates the status document via the Contents API and
// returns the resulting file URL.
func (r *Reporter) Publish(ctx context.Context, opts Options, branch, content string) (string, error) {
	docPath := opts.DocPath
	if docPath == "" {
		docPath = DefaultDocPath
	}

	fileOpts := &github.RepositoryContentFileOptions{
		Message: github.String(fmt.Sprintf("docs: update repo status (%s)", r.now().UTC().Format("2006-01-02"))),
		Content: []byte(content),
		Branch:  github.String(branch),
	}

	existing, _, resp, err := r.client.Repositories.GetContents(ctx, opts.Owner, opts.Repo, docPath, &github.RepositoryContentGetOptions{Ref: branch})
	switch {
	case err == nil && existing != nil:
		fileOpts.SHA = github.String(existing.GetSHA())
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		// First run, the file will be created.
	case err != nil:
		return "", fmt.Errorf("check existing document: %w", err)
	}

	var result *github.RepositoryContentResponse
	if fileOpts.SHA != nil {
		result, _, err = r.client.Repositories.UpdateFile(ctx, opts.Owner, opts.Repo, docPath, fileOpts)
	} else {
		result, _, err = r.client.Repositories.CreateFile(ctx, opts.Owner, opts.Repo, docPath, fileOpts)
	}
	if err != nil {
		return "", fmt.Errorf("write %s: %w", docPath, err)
	}

	return result.GetContent().GetHTMLURL(), nil
}
