package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/joeycmlam/jira-agent/internal/config"
	"github.com/joeycmlam/jira-agent/internal/jira"
)

func named(name string) *jira.NamedField { return &jira.NamedField{Name: name} }

func user(name string) *jira.UserField { return &jira.UserField{DisplayName: name} }

func rawText(text string) json.RawMessage { return json.RawMessage(strconv.Quote(text)) }

func fixtureIssues() []jira.Issue {
	return []jira.Issue{
		{
			Key: "PROJ-1",
			Fields: jira.IssueFields{
				Summary:     "Render the widget",
				IssueType:   named("Story"),
				Status:      named("Done"),
				Priority:    named("High"),
				Assignee:    user("Alice"),
				Reporter:    user("Bob"),
				Created:     "2025-05-01T09:00:00.000+0000",
				Updated:     "2025-06-10T09:00:00.000+0000",
				Description: rawText("This story is well specified. Acceptance criteria: the widget must render without errors."),
			},
		},
		{
			Key: "PROJ-2",
			Fields: jira.IssueFields{
				Summary:     "Widget crashes on load",
				IssueType:   named("Bug"),
				Status:      named("In Progress"),
				Priority:    named("Highest"),
				Assignee:    user("Alice"),
				Reporter:    user("Bob"),
				Created:     "2025-06-01T09:00:00.000+0000",
				Updated:     "2025-06-12T09:00:00.000+0000",
				Description: rawText("crashes"),
			},
		},
		{
			Key: "PROJ-3",
			Fields: jira.IssueFields{
				Summary:     "Slow rendering on large boards",
				IssueType:   named("Bug"),
				Status:      named("To Do"),
				Reporter:    user("Carol"),
				Created:     "2025-06-05T09:00:00.000+0000",
				Updated:     "2025-04-01T09:00:00.000+0000",
				DueDate:     "2025-06-01",
				Description: rawText("A fairly long report about slow board rendering that still lacks any verification section whatsoever."),
			},
		},
	}
}

func TestAnalyzeOverview(t *testing.T) {
	a := Analyze("PROJ", fixtureIssues(), time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))

	if a.TotalIssues != 3 {
		t.Errorf("TotalIssues = %d, want 3", a.TotalIssues)
	}
	ov := a.Overview
	if ov.Done != 1 || ov.InProgress != 1 || ov.ToDo != 1 {
		t.Errorf("Overview = %+v, want 1 done, 1 in progress, 1 to do", ov)
	}
	if ov.DonePercentage != 33.3 {
		t.Errorf("DonePercentage = %v, want 33.3", ov.DonePercentage)
	}
	var sawNone bool
	for _, nc := range ov.Priorities {
		if nc.Name == "None" && nc.Count == 1 {
			sawNone = true
		}
	}
	if !sawNone {
		t.Errorf("Priorities = %+v, want nil priority counted as None", ov.Priorities)
	}
}

func TestAnalyzeQuality(t *testing.T) {
	a := Analyze("PROJ", fixtureIssues(), time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))

	q := a.Quality
	if q.WellDefined != 1 {
		t.Errorf("WellDefined = %d, want 1", q.WellDefined)
	}
	if q.MissingDesc != 1 {
		t.Errorf("MissingDesc = %d, want 1", q.MissingDesc)
	}
	if q.MissingAcceptance != 2 {
		t.Errorf("MissingAcceptance = %d, want 2", q.MissingAcceptance)
	}
	if q.Score != 3.3 {
		t.Errorf("Score = %v, want 3.3", q.Score)
	}
	if len(q.NeedsImprovement) != 1 || q.NeedsImprovement[0] != "PROJ-2" {
		t.Errorf("NeedsImprovement = %v, want [PROJ-2]", q.NeedsImprovement)
	}
}

func TestAnalyzeRisks(t *testing.T) {
	a := Analyze("PROJ", fixtureIssues(), time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))

	r := a.Risks
	if r.BlockerCount != 1 || r.Blockers[0].Key != "PROJ-2" {
		t.Errorf("Blockers = %+v, want PROJ-2 flagged", r.Blockers)
	}
	if r.OverdueCount != 1 || r.Overdue[0].Key != "PROJ-3" {
		t.Errorf("Overdue = %+v, want PROJ-3 flagged", r.Overdue)
	}
	if r.StaleCount != 1 || r.Stale[0].Key != "PROJ-3" {
		t.Errorf("Stale = %+v, want PROJ-3 flagged", r.Stale)
	}
	if r.HighPriorityOpen != 0 {
		t.Errorf("HighPriorityOpen = %d, want 0 (the High ticket is done)", r.HighPriorityOpen)
	}
}

func TestAnalyzeTeamAndTrends(t *testing.T) {
	a := Analyze("PROJ", fixtureIssues(), time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))

	team := a.Team
	if team.Members != 1 || team.Unassigned != 1 {
		t.Errorf("Team = %+v, want 1 member and 1 unassigned", team)
	}
	if len(team.Workload) != 1 || team.Workload[0].Name != "Alice" || team.Workload[0].Total != 2 {
		t.Errorf("Workload = %+v, want Alice with 2 tickets", team.Workload)
	}
	if team.TopReporters[0].Name != "Bob" || team.TopReporters[0].Count != 2 {
		t.Errorf("TopReporters = %+v, want Bob first with 2", team.TopReporters)
	}

	trends := a.Trends
	if trends.BugCount != 2 || trends.StoryCount != 1 {
		t.Errorf("Trends = %+v, want 2 bugs and 1 story", trends)
	}
	if trends.BugRatio != 66.7 || trends.Health != "Critical" {
		t.Errorf("BugRatio = %v (%s), want 66.7 Critical", trends.BugRatio, trends.Health)
	}
	if len(trends.CreationByMonth) != 2 || trends.CreationByMonth[0].Name != "2025-05" {
		t.Errorf("CreationByMonth = %+v, want 2025-05 then 2025-06", trends.CreationByMonth)
	}
}

func TestRenderReport(t *testing.T) {
	a := Analyze("PROJ", fixtureIssues(), time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	report := RenderReport(a)

	for _, want := range []string{
		"# JIRA Project Analysis: PROJ",
		"Health score: 3.3/10",
		"Bug ratio: 66.7% (Critical)",
		"[PROJ-2] Widget crashes on load (status: In Progress)",
		"[PROJ-3] Slow rendering on large boards (due: 2025-06-01)",
		"Alice: 2 tickets (1 done, 1 in progress, 0 open)",
		"Review 1 overdue tickets",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestRenderReportHealthyProject(t *testing.T) {
	issues := []jira.Issue{{
		Key: "PROJ-1",
		Fields: jira.IssueFields{
			Summary:     "Tidy up",
			IssueType:   named("Story"),
			Status:      named("Done"),
			Description: rawText("Acceptance criteria: everything keeps working after the cleanup lands."),
		},
	}}
	report := RenderReport(Analyze("PROJ", issues, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)))
	if !strings.Contains(report, "good health") {
		t.Errorf("report missing healthy recommendation:\n%s", report)
	}
}

func TestAnalyzeProject(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/3/search", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("jql"); got != "project=PROJ ORDER BY created DESC" {
			t.Errorf("jql = %q, want ordered project query", got)
		}
		fields := r.URL.Query().Get("fields")
		if !strings.Contains(fields, "description") || !strings.Contains(fields, "duedate") {
			t.Errorf("fields = %q, want description and duedate requested", fields)
		}
		fmt.Fprint(w, `{"total": 1, "issues": [
			{"key": "PROJ-1", "fields": {"summary": "Fix it", "status": {"name": "Done"}, "issuetype": {"name": "Story"}}}
		]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg, err := config.FromMap(map[string]string{
		"JIRA_URL":       srv.URL,
		"JIRA_USER":      "me@example.com",
		"JIRA_API_TOKEN": "abcd1234secret",
	})
	if err != nil {
		t.Fatalf("build config: %v", err)
	}

	analyzer := New(jira.NewClient(cfg))
	report, err := analyzer.AnalyzeProject(context.Background(), "PROJ", 0)
	if err != nil {
		t.Fatalf("AnalyzeProject() error: %v", err)
	}
	if !strings.Contains(report, "# JIRA Project Analysis: PROJ") {
		t.Errorf("report missing header:\n%s", report)
	}
}

func TestAnalyzeProjectEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/3/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total": 0, "issues": []}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg, err := config.FromMap(map[string]string{
		"JIRA_URL":       srv.URL,
		"JIRA_USER":      "me@example.com",
		"JIRA_API_TOKEN": "abcd1234secret",
	})
	if err != nil {
		t.Fatalf("build config: %v", err)
	}

	analyzer := New(jira.NewClient(cfg))
	if _, err := analyzer.AnalyzeProject(context.Background(), "PROJ", 0); err == nil {
		t.Fatal("AnalyzeProject() error = nil, want no issues failure")
	}
}
