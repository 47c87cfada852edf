package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeycmlam/jira-agent/internal/config"
)

const contentTypeJSON = "application/json"

// Client is a JIRA Cloud REST v3 API client
type Client struct {
	baseURL    string
	user       string
	token      string
	maxResults int

	httpClient   *http.Client
	uploadClient *http.Client
}

// NewClient creates a JIRA client from validated configuration
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:      cfg.JiraURL,
		user:         cfg.JiraUser,
		token:        cfg.JiraAPIToken,
		maxResults:   cfg.MaxResults,
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
		uploadClient: &http.Client{Timeout: cfg.UploadTimeout},
	}
}

// NamedField is a JIRA field that carries a display name (status, type, priority)
type NamedField struct {
	Name string `json:"name"`
}

// UserField is a JIRA user reference
type UserField struct {
	DisplayName string `json:"displayName"`
}

// Attachment describes a file attached to an issue
type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	Content  string `json:"content"` // download URL
	Created  string `json:"created"`
}

// IssueFields holds the subset of issue fields this toolkit consumes
type IssueFields struct {
	Summary     string          `json:"summary"`
	IssueType   *NamedField     `json:"issuetype"`
	Status      *NamedField     `json:"status"`
	Priority    *NamedField     `json:"priority"`
	Assignee    *UserField      `json:"assignee"`
	Reporter    *UserField      `json:"reporter"`
	Created     string          `json:"created"`
	Updated     string          `json:"updated"`
	DueDate     string          `json:"duedate"`
	Description json.RawMessage `json:"description"`
	Attachment  []Attachment    `json:"attachment"`
}

// Issue is a JIRA issue
type Issue struct {
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// Comment is the response from adding a comment
type Comment struct {
	ID string `json:"id"`
}

// SearchResult is a page of JQL search results
type SearchResult struct {
	Total  int     `json:"total"`
	Issues []Issue `json:"issues"`
}

// Project is a JIRA project reference
type Project struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// GetIssue retrieves issue details
func (c *Client) GetIssue(ctx context.Context, issueKey string) (*Issue, error) {
	var issue Issue
	path := fmt.Sprintf("/rest/api/3/issue/%s", url.PathEscape(issueKey))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &issue, issueKey); err != nil {
		return nil, err
	}
	return &issue, nil
}

// UpdateDescription replaces the description of an issue. The API returns
// 204 No Content on success.
func (c *Client) UpdateDescription(ctx context.Context, issueKey, description string) error {
	payload := map[string]any{
		"fields": map[string]any{
			"description": ADFDocument(description),
		},
	}
	path := fmt.Sprintf("/rest/api/3/issue/%s", url.PathEscape(issueKey))
	return c.doJSON(ctx, http.MethodPut, path, nil, payload, nil, issueKey)
}

// AddComment adds a comment to an issue
func (c *Client) AddComment(ctx context.Context, issueKey, comment string) (*Comment, error) {
	payload := map[string]any{
		"body": ADFDocument(comment),
	}
	var created Comment
	path := fmt.Sprintf("/rest/api/3/issue/%s/comment", url.PathEscape(issueKey))
	if err := c.doJSON(ctx, http.MethodPost, path, nil, payload, &created, issueKey); err != nil {
		return nil, err
	}
	return &created, nil
}

// defaultSearchFields is the field list for compact search results.
var defaultSearchFields = []string{
	"key", "summary", "status", "issuetype", "priority", "assignee", "created", "updated",
}

// SearchIssues runs a JQL query with the default compact field list.
// maxResults <= 0 falls back to the configured default.
func (c *Client) SearchIssues(ctx context.Context, jql string, maxResults int) (*SearchResult, error) {
	return c.SearchIssuesWithFields(ctx, jql, maxResults, defaultSearchFields)
}

// SearchIssuesWithFields runs a JQL query requesting an explicit field list,
// for callers that need more than the compact summary fields.
func (c *Client) SearchIssuesWithFields(ctx context.Context, jql string, maxResults int, fields []string) (*SearchResult, error) {
	if maxResults <= 0 {
		maxResults = c.maxResults
	}
	query := url.Values{
		"jql":        {jql},
		"maxResults": {fmt.Sprintf("%d", maxResults)},
		"fields":     {strings.Join(fields, ",")},
	}
	var result SearchResult
	if err := c.doJSON(ctx, http.MethodGet, "/rest/api/3/search", query, nil, &result, jql); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListProjects lists the projects visible to the authenticated user.
// Used as a connection check.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.doJSON(ctx, http.MethodGet, "/rest/api/3/project", nil, nil, &projects, "projects"); err != nil {
		return nil, err
	}
	return projects, nil
}

// UploadAttachment attaches a local file to an issue
func (c *Client) UploadAttachment(ctx context.Context, issueKey, filePath string) ([]Attachment, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("file does not exist: %s", filePath)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is not a file: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("file is not readable: %s: %w", filePath, err)
	}

	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s/attachments", c.baseURL, url.PathEscape(issueKey))
	fileName := filepath.Base(filePath)

	var uploaded []Attachment
	err = retryWithBackoff(ctx, func() error {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			return fmt.Errorf("build multipart form: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return fmt.Errorf("write multipart form: %w", err)
		}
		if err := writer.Close(); err != nil {
			return fmt.Errorf("close multipart form: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.SetBasicAuth(c.user, c.token)
		req.Header.Set("Accept", contentTypeJSON)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		// Required by JIRA to bypass XSRF protection on multipart uploads.
		req.Header.Set("X-Atlassian-Token", "no-check")

		resp, err := c.uploadClient.Do(req)
		if err != nil {
			return fmt.Errorf("upload attachment: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return statusError(resp.StatusCode, issueKey)
		}

		uploaded = nil
		if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
			return fmt.Errorf("decode attachment response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return uploaded, nil
}

// DownloadedFile is the per-file outcome of a bulk attachment download
type DownloadedFile struct {
	Filename string `json:"filename"`
	Success  bool   `json:"success"`
	Path     string `json:"path,omitempty"`
	Error    string `json:"error,omitempty"`
}

// DownloadResult summarizes a bulk attachment download
type DownloadResult struct {
	Downloaded int              `json:"downloaded"`
	Total      int              `json:"total"`
	Directory  string           `json:"directory,omitempty"`
	Files      []DownloadedFile `json:"files,omitempty"`
	Message    string           `json:"message,omitempty"`
}

// DownloadAttachments downloads every attachment of an issue into dir.
// Individual download failures are reported per file, not fatal.
func (c *Client) DownloadAttachments(ctx context.Context, issueKey, dir string) (*DownloadResult, error) {
	issue, err := c.GetIssue(ctx, issueKey)
	if err != nil {
		return nil, err
	}

	attachments := issue.Fields.Attachment
	if len(attachments) == 0 {
		return &DownloadResult{Message: fmt.Sprintf("No attachments found for %s", issueKey)}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}

	result := &DownloadResult{Total: len(attachments), Directory: dir}
	for _, att := range attachments {
		file := c.downloadSingleAttachment(ctx, att, dir)
		if file.Success {
			result.Downloaded++
		}
		result.Files = append(result.Files, file)
	}
	return result, nil
}

func (c *Client) downloadSingleAttachment(ctx context.Context, att Attachment, dir string) DownloadedFile {
	file := DownloadedFile{Filename: att.Filename}
	if att.Content == "" {
		file.Error = "no download URL provided"
		return file
	}

	// Attachment filenames come from the remote issue; keep only the base
	// name so a crafted name cannot escape the download directory.
	path := filepath.Join(dir, filepath.Base(att.Filename))
	out, err := os.Create(path)
	if err != nil {
		file.Error = err.Error()
		return file
	}
	defer out.Close()

	if err := c.DownloadAttachment(ctx, att, out); err != nil {
		file.Error = err.Error()
		os.Remove(path)
		return file
	}

	file.Success = true
	file.Path = path
	return file
}

// DownloadAttachment streams a single attachment's content to w
func (c *Client) DownloadAttachment(ctx context.Context, att Attachment, w io.Writer) error {
	if att.Content == "" {
		return fmt.Errorf("attachment %s has no download URL", att.Filename)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, att.Content, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.user, c.token)

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", att.Filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, att.Filename)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", att.Filename, err)
	}
	return nil
}

// doJSON performs a JSON request against the JIRA API with retry on
// transient failures. out may be nil for responses without a body.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, payload, out any, contextLabel string) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	return retryWithBackoff(ctx, func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.SetBasicAuth(c.user, c.token)
		req.Header.Set("Accept", contentTypeJSON)
		if body != nil {
			req.Header.Set("Content-Type", contentTypeJSON)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return statusError(resp.StatusCode, contextLabel)
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}
