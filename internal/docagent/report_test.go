package docagent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-github/v66/github"
)

func testReporter(t *testing.T, mux *http.ServeMux) *Reporter {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	client.BaseURL = base

	r := NewReporter(client)
	r.throttle = 0
	r.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestCollect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"default_branch":"main"}`)
	})
	mux.HandleFunc("/repos/acme/widgets/commits", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("per_page") == "1" {
			fmt.Fprint(w, `[{"sha":"abc","commit":{"author":{"date":"2025-06-10T08:00:00Z"}}}]`)
			return
		}
		fmt.Fprint(w, `[{"sha":"abc"},{"sha":"def"}]`)
	})
	mux.HandleFunc("/repos/acme/widgets/commits/abc", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sha":"abc","files":[{"filename":"main.go"},{"filename":"README.md"}]}`)
	})
	mux.HandleFunc("/repos/acme/widgets/commits/def", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sha":"def","files":[{"filename":"main.go"}]}`)
	})

	reporter := testReporter(t, mux)
	status, err := reporter.Collect(context.Background(), Options{Owner: "acme", Repo: "widgets", LookbackDays: 30})
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	if status.Branch != "main" {
		t.Errorf("Branch = %s, want default branch main", status.Branch)
	}
	if status.DaysSince != 5 {
		t.Errorf("DaysSince = %d, want 5", status.DaysSince)
	}
	if status.CommitCount != 2 {
		t.Errorf("CommitCount = %d, want 2", status.CommitCount)
	}
	if len(status.TopFiles) != 2 || status.TopFiles[0].Path != "main.go" || status.TopFiles[0].Count != 2 {
		t.Errorf("TopFiles = %+v, want main.go first with 2 changes", status.TopFiles)
	}
}

func TestCollectToleratesCommitDetailFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/commits", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("per_page") == "1" {
			fmt.Fprint(w, `[{"sha":"abc","commit":{"author":{"date":"2025-06-14T08:00:00Z"}}}]`)
			return
		}
		fmt.Fprint(w, `[{"sha":"abc"},{"sha":"broken"}]`)
	})
	mux.HandleFunc("/repos/acme/widgets/commits/abc", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sha":"abc","files":[{"filename":"main.go"}]}`)
	})
	mux.HandleFunc("/repos/acme/widgets/commits/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	reporter := testReporter(t, mux)
	status, err := reporter.Collect(context.Background(), Options{Owner: "acme", Repo: "widgets", Branch: "main"})
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if len(status.TopFiles) != 1 || status.TopFiles[0].Path != "main.go" {
		t.Errorf("TopFiles = %+v, want the healthy commit counted", status.TopFiles)
	}
}

func TestRenderMarkdown(t *testing.T) {
	status := &Status{
		Repo:         "widgets",
		Branch:       "main",
		LastCommitAt: time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC),
		DaysSince:    5,
		LookbackDays: 30,
		CommitCount:  12,
		TopFiles: []FileChange{
			{Path: "main.go", Count: 7},
			{Path: "README.md", Count: 2},
		},
	}

	md := RenderMarkdown(status)
	for _, want := range []string{
		"# Repository status: widgets",
		"- Days since last change: 5",
		"- Commits in last 30 days: 12",
		"- main.go (7 changes)",
		"- README.md (2 changes)",
		"generated automatically",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestRenderMarkdownNoChanges(t *testing.T) {
	md := RenderMarkdown(&Status{Repo: "widgets", LookbackDays: 30})
	if !strings.Contains(md, "- None") {
		t.Errorf("markdown missing None placeholder:\n%s", md)
	}
}

func TestPublishCreatesWhenMissing(t *testing.T) {
	var created struct {
		Message string `json:"message"`
		Branch  string `json:"branch"`
		SHA     string `json:"sha"`
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/contents/DOCS/REPO_STATUS.md", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			if err := json.NewDecoder(r.Body).Decode(&created); err != nil {
				t.Errorf("decode put body: %v", err)
			}
			fmt.Fprint(w, `{"content":{"html_url":"https://github.com/acme/widgets/blob/main/DOCS/REPO_STATUS.md"}}`)
		}
	})

	reporter := testReporter(t, mux)
	url, err := reporter.Publish(context.Background(), Options{Owner: "acme", Repo: "widgets"}, "main", "# content\n")
	if err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if !strings.Contains(url, "REPO_STATUS.md") {
		t.Errorf("url = %s, want document URL", url)
	}
	if created.SHA != "" {
		t.Errorf("create payload carried SHA %q, want none for new file", created.SHA)
	}
	if created.Branch != "main" {
		t.Errorf("branch = %s, want main", created.Branch)
	}
}

func TestPublishUpdatesExisting(t *testing.T) {
	var updated struct {
		SHA string `json:"sha"`
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/contents/DOCS/REPO_STATUS.md", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fmt.Fprint(w, `{"type":"file","sha":"oldsha","path":"DOCS/REPO_STATUS.md"}`)
		case http.MethodPut:
			if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
				t.Errorf("decode put body: %v", err)
			}
			fmt.Fprint(w, `{"content":{"html_url":"https://github.com/acme/widgets/blob/main/DOCS/REPO_STATUS.md"}}`)
		}
	})

	reporter := testReporter(t, mux)
	if _, err := reporter.Publish(context.Background(), Options{Owner: "acme", Repo: "widgets"}, "main", "# content\n"); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if updated.SHA != "oldsha" {
		t.Errorf("update payload SHA = %q, want oldsha", updated.SHA)
	}
}
