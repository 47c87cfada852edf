// Package analyst reads a JIRA project's issues and builds a health report:
// completion metrics, ticket distribution, quality checks, risks, team
// workload, and trends.
package analyst

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joeycmlam/jira-agent/internal/jira"
)

const (
	// DefaultMaxIssues bounds how many issues one analysis fetches
	DefaultMaxIssues = 1000

	// staleDays marks open tickets without recent updates as stale
	staleDays = 30

	// minDescriptionLen is the shortest description considered meaningful
	minDescriptionLen = 50
)

// analysisFields extends the compact search fields with what the quality and
// risk checks need.
var analysisFields = []string{
	"key", "summary", "status", "issuetype", "priority", "assignee", "reporter",
	"created", "updated", "description", "duedate",
}

// NameCount pairs a label with an occurrence count
type NameCount struct {
	Name  string
	Count int
}

// Overview holds the headline completion metrics
type Overview struct {
	Total          int
	Done           int
	DonePercentage float64
	InProgress     int
	ToDo           int
	Statuses       []NameCount
	Types          []NameCount
	Priorities     []NameCount
}

// Quality summarizes how well tickets are specified
type Quality struct {
	WellDefined       int
	MissingDesc       int
	MissingAcceptance int
	Score             float64
	NeedsImprovement  []string
}

// RiskItem is one flagged ticket
type RiskItem struct {
	Key     string
	Summary string
	Detail  string
}

// Risks collects blockers, overdue and stale tickets
type Risks struct {
	OverdueCount     int
	Overdue          []RiskItem
	BlockerCount     int
	Blockers         []RiskItem
	HighPriorityOpen int
	StaleCount       int
	Stale            []RiskItem
}

// MemberLoad is one assignee's ticket breakdown
type MemberLoad struct {
	Name       string
	Total      int
	Open       int
	InProgress int
	Done       int
}

// Team summarizes workload distribution
type Team struct {
	Members      int
	Unassigned   int
	Workload     []MemberLoad
	TopReporters []NameCount
}

// Trends tracks creation rate and bug ratio
type Trends struct {
	CreationByMonth []NameCount
	BugCount        int
	StoryCount      int
	BugRatio        float64
	Health          string
}

// Analysis is the full result for one project
type Analysis struct {
	ProjectKey  string
	Date        time.Time
	TotalIssues int
	Overview    Overview
	Quality     Quality
	Risks       Risks
	Team        Team
	Trends      Trends
}

// Analyzer fetches a project's issues and produces the report
type Analyzer struct {
	client *jira.Client

	// now is injectable for tests
	now func() time.Time
}

// New creates an analyzer backed by the given JIRA client
func New(client *jira.Client) *Analyzer {
	return &Analyzer{client: client, now: time.Now}
}

// AnalyzeProject fetches up to maxIssues issues of the project and renders
// the markdown health report. maxIssues <= 0 uses the default bound.
func (a *Analyzer) AnalyzeProject(ctx context.Context, projectKey string, maxIssues int) (string, error) {
	if maxIssues <= 0 {
		maxIssues = DefaultMaxIssues
	}

	jql := fmt.Sprintf("project=%s ORDER BY created DESC", projectKey)
	result, err := a.client.SearchIssuesWithFields(ctx, jql, maxIssues, analysisFields)
	if err != nil {
		return "", fmt.Errorf("fetch issues for %s: %w", projectKey, err)
	}
	if len(result.Issues) == 0 {
		return "", fmt.Errorf("no issues found in project %s", projectKey)
	}

	return RenderReport(Analyze(projectKey, result.Issues, a.now())), nil
}

// Analyze computes all metrics from the fetched issues. now anchors the
// overdue and staleness checks.
func Analyze(projectKey string, issues []jira.Issue, now time.Time) *Analysis {
	return &Analysis{
		ProjectKey:  projectKey,
		Date:        now,
		TotalIssues: len(issues),
		Overview:    analyzeOverview(issues),
		Quality:     analyzeQuality(issues),
		Risks:       analyzeRisks(issues, now),
		Team:        analyzeTeam(issues),
		Trends:      analyzeTrends(issues),
	}
}

func analyzeOverview(issues []jira.Issue) Overview {
	statuses := map[string]int{}
	types := map[string]int{}
	priorities := map[string]int{}
	done := 0
	inProgress := 0
	toDo := 0

	for _, issue := range issues {
		status := namedOr(issue.Fields.Status, "None")
		statuses[status]++
		types[namedOr(issue.Fields.IssueType, "None")]++
		priorities[namedOr(issue.Fields.Priority, "None")]++

		switch {
		case isDone(status):
			done++
		case strings.EqualFold(status, "In Progress"):
			inProgress++
		case strings.EqualFold(status, "To Do") || strings.EqualFold(status, "Open"):
			toDo++
		}
	}

	return Overview{
		Total:          len(issues),
		Done:           done,
		DonePercentage: percentage(done, len(issues)),
		InProgress:     inProgress,
		ToDo:           toDo,
		Statuses:       sortedCounts(statuses),
		Types:          sortedCounts(types),
		Priorities:     sortedCounts(priorities),
	}
}

func analyzeQuality(issues []jira.Issue) Quality {
	q := Quality{}
	for _, issue := range issues {
		desc := strings.TrimSpace(jira.ADFText(issue.Fields.Description))
		if len(desc) < minDescriptionLen {
			q.MissingDesc++
			if len(q.NeedsImprovement) < 5 {
				q.NeedsImprovement = append(q.NeedsImprovement, issue.Key)
			}
		}

		lower := strings.ToLower(desc)
		if strings.Contains(lower, "acceptance") || strings.Contains(lower, "criteria") {
			q.WellDefined++
		} else {
			q.MissingAcceptance++
		}
	}
	if len(issues) > 0 {
		q.Score = round1(float64(q.WellDefined) / float64(len(issues)) * 10)
	}
	return q
}

func analyzeRisks(issues []jira.Issue, now time.Time) Risks {
	r := Risks{}
	staleBefore := now.AddDate(0, 0, -staleDays)

	for _, issue := range issues {
		status := namedOr(issue.Fields.Status, "")
		if isDone(status) {
			continue
		}

		if due, err := time.Parse("2006-01-02", issue.Fields.DueDate); err == nil && due.Before(now) {
			r.OverdueCount++
			if len(r.Overdue) < 5 {
				r.Overdue = append(r.Overdue, RiskItem{Key: issue.Key, Summary: issue.Fields.Summary, Detail: issue.Fields.DueDate})
			}
		}

		priority := namedOr(issue.Fields.Priority, "")
		switch priority {
		case "Blocker", "Highest":
			r.BlockerCount++
			if len(r.Blockers) < 5 {
				r.Blockers = append(r.Blockers, RiskItem{Key: issue.Key, Summary: issue.Fields.Summary, Detail: status})
			}
		case "High", "Critical":
			if !strings.EqualFold(status, "In Progress") {
				r.HighPriorityOpen++
			}
		}

		if updated := datePrefix(issue.Fields.Updated); updated != "" {
			if ts, err := time.Parse("2006-01-02", updated); err == nil && ts.Before(staleBefore) {
				r.StaleCount++
				if len(r.Stale) < 5 {
					r.Stale = append(r.Stale, RiskItem{Key: issue.Key, Detail: updated})
				}
			}
		}
	}
	return r
}

func analyzeTeam(issues []jira.Issue) Team {
	workload := map[string]*MemberLoad{}
	reporters := map[string]int{}

	for _, issue := range issues {
		assignee := userOr(issue.Fields.Assignee, "Unassigned")
		reporters[userOr(issue.Fields.Reporter, "Unknown")]++

		load, ok := workload[assignee]
		if !ok {
			load = &MemberLoad{Name: assignee}
			workload[assignee] = load
		}
		load.Total++

		status := namedOr(issue.Fields.Status, "")
		switch {
		case isDone(status):
			load.Done++
		case strings.Contains(strings.ToLower(status), "progress"):
			load.InProgress++
		default:
			load.Open++
		}
	}

	team := Team{}
	for name, load := range workload {
		if name != "Unassigned" {
			team.Members++
			team.Workload = append(team.Workload, *load)
		} else {
			team.Unassigned = load.Total
		}
	}
	sort.Slice(team.Workload, func(i, j int) bool {
		if team.Workload[i].Total != team.Workload[j].Total {
			return team.Workload[i].Total > team.Workload[j].Total
		}
		return team.Workload[i].Name < team.Workload[j].Name
	})
	if len(team.Workload) > 10 {
		team.Workload = team.Workload[:10]
	}

	team.TopReporters = sortedCounts(reporters)
	if len(team.TopReporters) > 5 {
		team.TopReporters = team.TopReporters[:5]
	}
	return team
}

func analyzeTrends(issues []jira.Issue) Trends {
	byMonth := map[string]int{}
	t := Trends{}

	for _, issue := range issues {
		if month := monthPrefix(issue.Fields.Created); month != "" {
			byMonth[month]++
		}
		issueType := strings.ToLower(namedOr(issue.Fields.IssueType, ""))
		switch {
		case strings.Contains(issueType, "bug"):
			t.BugCount++
		case strings.Contains(issueType, "story"):
			t.StoryCount++
		}
	}

	t.BugRatio = percentage(t.BugCount, len(issues))
	switch {
	case t.BugRatio < 30:
		t.Health = "Good"
	case t.BugRatio < 50:
		t.Health = "Needs Attention"
	default:
		t.Health = "Critical"
	}

	for month, count := range byMonth {
		t.CreationByMonth = append(t.CreationByMonth, NameCount{Name: month, Count: count})
	}
	sort.Slice(t.CreationByMonth, func(i, j int) bool {
		return t.CreationByMonth[i].Name < t.CreationByMonth[j].Name
	})
	return t
}

// RenderReport produces the markdown analysis report
func RenderReport(a *Analysis) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# JIRA Project Analysis: %s\n\n", a.ProjectKey)
	fmt.Fprintf(&sb, "Analysis date: %s\n", a.Date.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Total tickets: %d\n\n", a.TotalIssues)

	fmt.Fprintf(&sb, "## Executive summary\n\n")
	fmt.Fprintf(&sb, "- Health score: %.1f/10\n", a.Quality.Score)
	fmt.Fprintf(&sb, "- Completed: %d (%.1f%%)\n", a.Overview.Done, a.Overview.DonePercentage)
	fmt.Fprintf(&sb, "- In progress: %d\n", a.Overview.InProgress)
	fmt.Fprintf(&sb, "- To do: %d\n", a.Overview.ToDo)
	fmt.Fprintf(&sb, "- Bug ratio: %.1f%% (%s)\n\n", a.Trends.BugRatio, a.Trends.Health)

	fmt.Fprintf(&sb, "## Ticket distribution\n\n### By status\n")
	for _, nc := range a.Overview.Statuses {
		fmt.Fprintf(&sb, "- %s: %d (%.1f%%)\n", nc.Name, nc.Count, percentage(nc.Count, a.TotalIssues))
	}
	sb.WriteString("\n### By type\n")
	for _, nc := range a.Overview.Types {
		fmt.Fprintf(&sb, "- %s: %d\n", nc.Name, nc.Count)
	}
	sb.WriteString("\n### By priority\n")
	for _, nc := range a.Overview.Priorities {
		fmt.Fprintf(&sb, "- %s: %d\n", nc.Name, nc.Count)
	}

	fmt.Fprintf(&sb, "\n## Risks\n\n")
	if a.Risks.BlockerCount > 0 {
		fmt.Fprintf(&sb, "- %d blocker/highest priority tickets:\n", a.Risks.BlockerCount)
		for _, item := range a.Risks.Blockers {
			fmt.Fprintf(&sb, "  - [%s] %s (status: %s)\n", item.Key, item.Summary, item.Detail)
		}
	} else {
		sb.WriteString("- No blockers found\n")
	}
	if a.Risks.OverdueCount > 0 {
		fmt.Fprintf(&sb, "- %d overdue tickets:\n", a.Risks.OverdueCount)
		for _, item := range a.Risks.Overdue {
			fmt.Fprintf(&sb, "  - [%s] %s (due: %s)\n", item.Key, item.Summary, item.Detail)
		}
	} else {
		sb.WriteString("- No overdue tickets\n")
	}
	if a.Risks.StaleCount > 0 {
		fmt.Fprintf(&sb, "- %d stale tickets (no update in %d+ days):\n", a.Risks.StaleCount, staleDays)
		for _, item := range a.Risks.Stale {
			fmt.Fprintf(&sb, "  - [%s] last updated %s\n", item.Key, item.Detail)
		}
	}

	fmt.Fprintf(&sb, "\n## Quality\n\n")
	fmt.Fprintf(&sb, "- Well-defined tickets: %d\n", a.Quality.WellDefined)
	fmt.Fprintf(&sb, "- Missing description: %d\n", a.Quality.MissingDesc)
	fmt.Fprintf(&sb, "- Missing acceptance criteria: %d\n", a.Quality.MissingAcceptance)
	if len(a.Quality.NeedsImprovement) > 0 {
		sb.WriteString("\nTickets needing improvement:\n")
		for _, key := range a.Quality.NeedsImprovement {
			fmt.Fprintf(&sb, "- %s: add a detailed description\n", key)
		}
	}

	fmt.Fprintf(&sb, "\n## Team\n\n")
	fmt.Fprintf(&sb, "- Team members: %d\n", a.Team.Members)
	fmt.Fprintf(&sb, "- Unassigned tickets: %d\n\n", a.Team.Unassigned)
	sb.WriteString("Top contributors:\n")
	for i, load := range a.Team.Workload {
		if i == 5 {
			break
		}
		fmt.Fprintf(&sb, "- %s: %d tickets (%d done, %d in progress, %d open)\n",
			load.Name, load.Total, load.Done, load.InProgress, load.Open)
	}
	sb.WriteString("\nTop reporters:\n")
	for _, nc := range a.Team.TopReporters {
		fmt.Fprintf(&sb, "- %s: %d tickets\n", nc.Name, nc.Count)
	}

	fmt.Fprintf(&sb, "\n## Trends\n\n")
	fmt.Fprintf(&sb, "- Bugs: %d\n- Stories: %d\n- Bug ratio: %.1f%%\n\n", a.Trends.BugCount, a.Trends.StoryCount, a.Trends.BugRatio)
	sb.WriteString("Ticket creation by month:\n")
	months := a.Trends.CreationByMonth
	if len(months) > 6 {
		months = months[len(months)-6:]
	}
	for _, nc := range months {
		fmt.Fprintf(&sb, "- %s: %d tickets created\n", nc.Name, nc.Count)
	}

	fmt.Fprintf(&sb, "\n## Recommendations\n\n")
	for _, rec := range recommendations(a) {
		fmt.Fprintf(&sb, "- %s\n", rec)
	}

	sb.WriteString("\n_Generated by the project analyst._\n")
	return sb.String()
}

func recommendations(a *Analysis) []string {
	var recs []string
	if a.Risks.BlockerCount > 0 {
		recs = append(recs, fmt.Sprintf("Address %d blocker tickets immediately", a.Risks.BlockerCount))
	}
	if a.Risks.OverdueCount > 0 {
		recs = append(recs, fmt.Sprintf("Review %d overdue tickets and update timelines", a.Risks.OverdueCount))
	}
	if a.Quality.MissingAcceptance > 10 {
		recs = append(recs, fmt.Sprintf("Add acceptance criteria to %d tickets", a.Quality.MissingAcceptance))
	}
	if a.Team.Unassigned > 5 {
		recs = append(recs, fmt.Sprintf("Assign %d unassigned tickets to team members", a.Team.Unassigned))
	}
	if a.Trends.BugRatio > 40 {
		recs = append(recs, "Investigate the high bug ratio and consider a technical debt sprint")
	}
	if a.Risks.StaleCount > 10 {
		recs = append(recs, fmt.Sprintf("Close or update %d stale tickets", a.Risks.StaleCount))
	}
	if len(recs) == 0 {
		recs = append(recs, "Project is in good health, maintain current practices")
	}
	return recs
}

func isDone(status string) bool {
	lower := strings.ToLower(status)
	return strings.Contains(lower, "done") || strings.Contains(lower, "closed")
}

func namedOr(field *jira.NamedField, fallback string) string {
	if field == nil || field.Name == "" {
		return fallback
	}
	return field.Name
}

func userOr(field *jira.UserField, fallback string) string {
	if field == nil || field.DisplayName == "" {
		return fallback
	}
	return field.DisplayName
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

// datePrefix trims a JIRA timestamp down to its date component.
func datePrefix(ts string) string {
	if len(ts) < 10 {
		return ""
	}
	return ts[:10]
}

func monthPrefix(ts string) string {
	if len(ts) < 7 {
		return ""
	}
	return ts[:7]
}

// sortedCounts orders map entries by count descending, then name.
func sortedCounts(counts map[string]int) []NameCount {
	out := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, NameCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
