package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"

	"github.com/joeycmlam/jira-agent/internal/analyst"
	"github.com/joeycmlam/jira-agent/internal/convert"
	"github.com/joeycmlam/jira-agent/internal/jira"
	"github.com/joeycmlam/jira-agent/internal/validate"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// toolHandler implements the JIRA tools exposed over MCP
type toolHandler struct {
	jira      *jira.Client
	converter *convert.Converter
	analyst   *analyst.Analyzer
}

func newToolHandler(client *jira.Client, converter *convert.Converter) *toolHandler {
	return &toolHandler{
		jira:      client,
		converter: converter,
		analyst:   analyst.New(client),
	}
}

// register wires every tool into the MCP server
func (h *toolHandler) register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "jira_get_issue",
		Description: "Get JIRA issue details including description, status, and attachments",
	}, h.handleGetIssue)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "jira_update_description",
		Description: "Update the description of a JIRA issue",
	}, h.handleUpdateDescription)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "jira_add_comment",
		Description: "Add a comment to a JIRA issue",
	}, h.handleAddComment)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "jira_upload_attachment",
		Description: "Upload a local file as an attachment to a JIRA issue",
	}, h.handleUploadAttachment)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "jira_download_attachments",
		Description: "Download all attachments of a JIRA issue to a local directory",
	}, h.handleDownloadAttachments)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "jira_search_issues",
		Description: "Search JIRA issues using a JQL query",
	}, h.handleSearchIssues)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "jira_read_attachment",
		Description: "Download a JIRA attachment and convert it to markdown for reading",
	}, h.handleReadAttachment)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "read_file",
		Description: "Read a local file and convert it to markdown (text, csv, json, html)",
	}, h.handleReadFile)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "jira_test_connection",
		Description: "Verify JIRA credentials and list the visible projects with their issue counts",
	}, h.handleTestConnection)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "jira_analyze_project",
		Description: "Analyze a JIRA project and produce a markdown health report (completion, quality, risks, team, trends)",
	}, h.handleAnalyzeProject)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "json_validate",
		Description: "Compare two JSON files and report structural and value differences against the baseline",
	}, h.handleValidateJSON)
	log.Printf("[JIRA MCP] Registered 11 tools")
}

// GetIssueParams defines the input for jira_get_issue
type GetIssueParams struct {
	IssueKey string `json:"issue_key" jsonschema:"JIRA issue key, e.g. PROJ-123"`
}

func (h *toolHandler) handleGetIssue(ctx context.Context, req *mcp.CallToolRequest, params GetIssueParams) (*mcp.CallToolResult, any, error) {
	if params.IssueKey == "" {
		return nil, nil, fmt.Errorf("issue_key parameter is required")
	}

	issue, err := h.jira.GetIssue(ctx, params.IssueKey)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(jira.FormatIssue(issue))
}

// UpdateDescriptionParams defines the input for jira_update_description
type UpdateDescriptionParams struct {
	IssueKey    string `json:"issue_key" jsonschema:"JIRA issue key, e.g. PROJ-123"`
	Description string `json:"description" jsonschema:"New description text"`
}

func (h *toolHandler) handleUpdateDescription(ctx context.Context, req *mcp.CallToolRequest, params UpdateDescriptionParams) (*mcp.CallToolResult, any, error) {
	if params.IssueKey == "" {
		return nil, nil, fmt.Errorf("issue_key parameter is required")
	}
	if params.Description == "" {
		return nil, nil, fmt.Errorf("description parameter is required")
	}

	if err := h.jira.UpdateDescription(ctx, params.IssueKey, params.Description); err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]string{"status": "success", "issue_key": params.IssueKey})
}

// AddCommentParams defines the input for jira_add_comment
type AddCommentParams struct {
	IssueKey string `json:"issue_key" jsonschema:"JIRA issue key, e.g. PROJ-123"`
	Comment  string `json:"comment" jsonschema:"Comment text to add"`
}

func (h *toolHandler) handleAddComment(ctx context.Context, req *mcp.CallToolRequest, params AddCommentParams) (*mcp.CallToolResult, any, error) {
	if params.IssueKey == "" {
		return nil, nil, fmt.Errorf("issue_key parameter is required")
	}
	if params.Comment == "" {
		return nil, nil, fmt.Errorf("comment parameter is required")
	}

	comment, err := h.jira.AddComment(ctx, params.IssueKey, params.Comment)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]string{
		"status":     "success",
		"issue_key":  params.IssueKey,
		"comment_id": comment.ID,
	})
}

// UploadAttachmentParams defines the input for jira_upload_attachment
type UploadAttachmentParams struct {
	IssueKey string `json:"issue_key" jsonschema:"JIRA issue key, e.g. PROJ-123"`
	FilePath string `json:"file_path" jsonschema:"Path to the local file to upload"`
}

func (h *toolHandler) handleUploadAttachment(ctx context.Context, req *mcp.CallToolRequest, params UploadAttachmentParams) (*mcp.CallToolResult, any, error) {
	if params.IssueKey == "" {
		return nil, nil, fmt.Errorf("issue_key parameter is required")
	}
	if params.FilePath == "" {
		return nil, nil, fmt.Errorf("file_path parameter is required")
	}

	uploaded, err := h.jira.UploadAttachment(ctx, params.IssueKey, params.FilePath)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{
		"status":    "success",
		"issue_key": params.IssueKey,
		"uploaded":  uploaded,
	})
}

// DownloadAttachmentsParams defines the input for jira_download_attachments
type DownloadAttachmentsParams struct {
	IssueKey    string `json:"issue_key" jsonschema:"JIRA issue key, e.g. PROJ-123"`
	DownloadDir string `json:"download_dir,omitempty" jsonschema:"Directory to download into (default downloads/<issue key>)"`
}

func (h *toolHandler) handleDownloadAttachments(ctx context.Context, req *mcp.CallToolRequest, params DownloadAttachmentsParams) (*mcp.CallToolResult, any, error) {
	if params.IssueKey == "" {
		return nil, nil, fmt.Errorf("issue_key parameter is required")
	}

	dir := params.DownloadDir
	if dir == "" {
		dir = filepath.Join("downloads", params.IssueKey)
	}

	result, err := h.jira.DownloadAttachments(ctx, params.IssueKey, dir)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(result)
}

// SearchIssuesParams defines the input for jira_search_issues
type SearchIssuesParams struct {
	JQL        string `json:"jql" jsonschema:"JQL query, e.g. project=PROJ AND status='In Progress'"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of results (default 50)"`
}

func (h *toolHandler) handleSearchIssues(ctx context.Context, req *mcp.CallToolRequest, params SearchIssuesParams) (*mcp.CallToolResult, any, error) {
	if params.JQL == "" {
		return nil, nil, fmt.Errorf("jql parameter is required")
	}

	result, err := h.jira.SearchIssues(ctx, params.JQL, params.MaxResults)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{
		"total":  result.Total,
		"issues": jira.FormatSearchResult(result),
	})
}

// ReadAttachmentParams defines the input for jira_read_attachment
type ReadAttachmentParams struct {
	IssueKey string `json:"issue_key" jsonschema:"JIRA issue key, e.g. PROJ-123"`
	Filename string `json:"filename" jsonschema:"Name of the attachment to read"`
}

func (h *toolHandler) handleReadAttachment(ctx context.Context, req *mcp.CallToolRequest, params ReadAttachmentParams) (*mcp.CallToolResult, any, error) {
	if params.IssueKey == "" {
		return nil, nil, fmt.Errorf("issue_key parameter is required")
	}
	if params.Filename == "" {
		return nil, nil, fmt.Errorf("filename parameter is required")
	}
	if !h.converter.Supported(params.Filename) {
		return errorResult(fmt.Errorf("unsupported format for %s (supported: %v)", params.Filename, h.converter.SupportedExtensions()))
	}

	issue, err := h.jira.GetIssue(ctx, params.IssueKey)
	if err != nil {
		return errorResult(err)
	}

	var target *jira.Attachment
	for i := range issue.Fields.Attachment {
		if issue.Fields.Attachment[i].Filename == params.Filename {
			target = &issue.Fields.Attachment[i]
			break
		}
	}
	if target == nil {
		return errorResult(fmt.Errorf("attachment %s not found on %s", params.Filename, params.IssueKey))
	}

	var buf bytes.Buffer
	if err := h.jira.DownloadAttachment(ctx, *target, &buf); err != nil {
		return errorResult(err)
	}

	converted, err := h.converter.Convert(&buf, params.Filename)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(converted)
}

// ReadFileParams defines the input for read_file
type ReadFileParams struct {
	FilePath string `json:"file_path" jsonschema:"Path to the local file to read and convert to markdown"`
}

func (h *toolHandler) handleReadFile(ctx context.Context, req *mcp.CallToolRequest, params ReadFileParams) (*mcp.CallToolResult, any, error) {
	if params.FilePath == "" {
		return nil, nil, fmt.Errorf("file_path parameter is required")
	}

	converted, err := h.converter.ConvertFile(params.FilePath)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(converted)
}

// TestConnectionParams defines the input for jira_test_connection
type TestConnectionParams struct{}

func (h *toolHandler) handleTestConnection(ctx context.Context, req *mcp.CallToolRequest, params TestConnectionParams) (*mcp.CallToolResult, any, error) {
	projects, err := h.jira.ListProjects(ctx)
	if err != nil {
		return errorResult(fmt.Errorf("connection failed: %w", err))
	}

	summaries := make([]map[string]any, 0, len(projects))
	for _, project := range projects {
		entry := map[string]any{"key": project.Key, "name": project.Name}
		// Issue counts are advisory; a failing project must not fail the check.
		if result, err := h.jira.SearchIssues(ctx, fmt.Sprintf("project=%s", project.Key), 1); err == nil {
			entry["issues"] = result.Total
		}
		summaries = append(summaries, entry)
	}

	return jsonResult(map[string]any{
		"connected":     true,
		"project_count": len(projects),
		"projects":      summaries,
	})
}

// AnalyzeProjectParams defines the input for jira_analyze_project
type AnalyzeProjectParams struct {
	ProjectKey string `json:"project_key" jsonschema:"JIRA project key, e.g. PROJ"`
	MaxIssues  int    `json:"max_issues,omitempty" jsonschema:"Maximum issues to analyze (default 1000)"`
}

func (h *toolHandler) handleAnalyzeProject(ctx context.Context, req *mcp.CallToolRequest, params AnalyzeProjectParams) (*mcp.CallToolResult, any, error) {
	if params.ProjectKey == "" {
		return nil, nil, fmt.Errorf("project_key parameter is required")
	}

	report, err := h.analyst.AnalyzeProject(ctx, params.ProjectKey, params.MaxIssues)
	if err != nil {
		return errorResult(err)
	}
	return textResult(report)
}

// ValidateJSONParams defines the input for json_validate
type ValidateJSONParams struct {
	BaselineFile   string `json:"baseline_file" jsonschema:"Path to the baseline JSON file"`
	ComparisonFile string `json:"comparison_file" jsonschema:"Path to the JSON file to compare against the baseline"`
}

func (h *toolHandler) handleValidateJSON(ctx context.Context, req *mcp.CallToolRequest, params ValidateJSONParams) (*mcp.CallToolResult, any, error) {
	if params.BaselineFile == "" {
		return nil, nil, fmt.Errorf("baseline_file parameter is required")
	}
	if params.ComparisonFile == "" {
		return nil, nil, fmt.Errorf("comparison_file parameter is required")
	}

	result, err := validate.CompareFiles(params.BaselineFile, params.ComparisonFile)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(result)
}

// jsonResult wraps a value as pretty-printed JSON text content
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	blob, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshal result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(blob)}},
	}, nil, nil
}

// textResult wraps already-formatted text (markdown reports) as content
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult reports a tool-level failure without breaking the session
func errorResult(err error) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)}},
		IsError: true,
	}, nil, nil
}
