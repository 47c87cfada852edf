package jira

// AttachmentInfo is the attachment summary included in formatted issues
type AttachmentInfo struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	Created  string `json:"created"`
}

// IssueDetails is the agent-facing representation of a full issue
type IssueDetails struct {
	Key         string           `json:"key"`
	Summary     string           `json:"summary"`
	Type        string           `json:"type"`
	Status      string           `json:"status"`
	Priority    string           `json:"priority"`
	Assignee    string           `json:"assignee"`
	Reporter    string           `json:"reporter"`
	Created     string           `json:"created"`
	Updated     string           `json:"updated"`
	Description string           `json:"description"`
	Attachments []AttachmentInfo `json:"attachments"`
}

// IssueSummary is the compact representation used in search results
type IssueSummary struct {
	Key      string `json:"key"`
	Summary  string `json:"summary"`
	Status   string `json:"status"`
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Assignee string `json:"assignee"`
	Created  string `json:"created"`
	Updated  string `json:"updated"`
}

// FormatIssue flattens an issue into display-ready fields with plain-text
// description and named defaults for absent fields.
func FormatIssue(issue *Issue) *IssueDetails {
	details := &IssueDetails{
		Key:         issue.Key,
		Summary:     issue.Fields.Summary,
		Type:        fieldName(issue.Fields.IssueType),
		Status:      fieldName(issue.Fields.Status),
		Priority:    fieldName(issue.Fields.Priority),
		Assignee:    displayName(issue.Fields.Assignee, "Unassigned"),
		Reporter:    displayName(issue.Fields.Reporter, "N/A"),
		Created:     issue.Fields.Created,
		Updated:     issue.Fields.Updated,
		Description: ADFText(issue.Fields.Description),
		Attachments: []AttachmentInfo{},
	}
	for _, att := range issue.Fields.Attachment {
		details.Attachments = append(details.Attachments, AttachmentInfo{
			ID:       att.ID,
			Filename: att.Filename,
			Size:     att.Size,
			MimeType: att.MimeType,
			Created:  att.Created,
		})
	}
	return details
}

// FormatSearchResult flattens search hits into compact summaries
func FormatSearchResult(result *SearchResult) []IssueSummary {
	summaries := make([]IssueSummary, 0, len(result.Issues))
	for _, issue := range result.Issues {
		summaries = append(summaries, IssueSummary{
			Key:      issue.Key,
			Summary:  issue.Fields.Summary,
			Status:   fieldName(issue.Fields.Status),
			Type:     fieldName(issue.Fields.IssueType),
			Priority: fieldName(issue.Fields.Priority),
			Assignee: displayName(issue.Fields.Assignee, "Unassigned"),
			Created:  issue.Fields.Created,
			Updated:  issue.Fields.Updated,
		})
	}
	return summaries
}

func fieldName(field *NamedField) string {
	if field == nil || field.Name == "" {
		return "N/A"
	}
	return field.Name
}

func displayName(field *UserField, fallback string) string {
	if field == nil || field.DisplayName == "" {
		return fallback
	}
	return field.DisplayName
}
