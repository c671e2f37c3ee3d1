// Package domain provides the prompt template models shared by the file
// store, the service layer and the HTTP handlers.
//
// Import Path: prompthub.io/prompthub/internal/domain
package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// Example is one user-input / expected-output pair of a template.
// The JSON keys are the on-disk names used inside Template Documents.
type Example struct {
	UserInput      string `json:"User Input"`
	ExpectedOutput string `json:"Expected Output"`
}

// TemplateDocument is the per-template JSON file stored at
// {department}/{appCode}/{name-with-hyphens}.json.
type TemplateDocument struct {
	TemplateName           string    `json:"Template Name"`
	Department             string    `json:"Department"`
	AppCode                string    `json:"AppCode"`
	Version                string    `json:"Version"`
	MainPromptContent      string    `json:"Main Prompt Content"`
	AdditionalInstructions string    `json:"Additional Instructions"`
	Examples               []Example `json:"Examples"`
	CreatedAt              string    `json:"Created At"`
	UpdatedAt              string    `json:"Updated At"`
	CreatedBy              string    `json:"Created By"`
	UpdatedBy              string    `json:"Updated By"`
}

// EntryID is a Metadata Index id. Older index files carry numeric ids, so
// it decodes from either a JSON string or a JSON number.
type EntryID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *EntryID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = EntryID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = EntryID(n.String())
	return nil
}

// MetadataEntry is one element of the Metadata Index (metadata.json).
type MetadataEntry struct {
	ID         EntryID `json:"id"`
	Department string  `json:"Department"`
	AppCode    string  `json:"AppCode"`
	Name       string  `json:"name"`
	Link       string  `json:"link"`
	Version    string  `json:"version"`
	CreatedAt  string  `json:"createdAt"`
	CreatedBy  string  `json:"createdBy"`
	UpdatedAt  string  `json:"updatedAt"`
	UpdatedBy  string  `json:"updatedBy"`
}

// Template is the public shape returned by the API.
type Template struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Department   string    `json:"department"`
	AppCode      string    `json:"appCode"`
	Content      string    `json:"content"`
	Instructions string    `json:"instructions"`
	Examples     []Example `json:"examples"`
	Version      string    `json:"version"`
	CreatedAt    string    `json:"createdAt"`
	CreatedBy    string    `json:"createdBy"`
	UpdatedAt    string    `json:"updatedAt"`
	UpdatedBy    string    `json:"updatedBy"`
}

// TemplateSummary is the listing shape; Content is a placeholder.
type TemplateSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	AppCode    string `json:"appCode"`
	Content    string `json:"content"`
	Version    string `json:"version"`
	CreatedAt  string `json:"createdAt"`
	CreatedBy  string `json:"createdBy"`
	UpdatedAt  string `json:"updatedAt"`
	UpdatedBy  string `json:"updatedBy"`
}

// AppCodeRef pairs an app code with the department it lives under.
type AppCodeRef struct {
	Department string `json:"department"`
	AppCode    string `json:"appCode"`
}

// Structure is the department / app code tree discovered in the repository.
type Structure struct {
	Departments []string     `json:"departments"`
	AppCodes    []AppCodeRef `json:"appCodes"`
}

// Commit is a revision of the remote repository touching a path.
type Commit struct {
	Hash    string
	Message string
	Author  string
	Date    time.Time
}

// HistoryEntry is one version of a template document.
type HistoryEntry struct {
	CommitID        string `json:"commitId"`
	TemplateID      string `json:"templateId"`
	Version         string `json:"version"`
	Message         string `json:"message"`
	UserID          string `json:"userId"`
	UserDisplayName string `json:"userDisplayName"`
	Timestamp       string `json:"timestamp"`
}

// Activity is a recent change to the template catalogue.
type Activity struct {
	User         string `json:"user"`
	Action       string `json:"action"`
	TemplateName string `json:"templateName"`
	Timestamp    string `json:"timestamp"`
}

// DeleteResult reports the outcome of a delete request.
type DeleteResult struct {
	Status         string `json:"status"`
	DeletedID      string `json:"deletedId,omitempty"`
	PullRequestURL string `json:"pullRequestUrl,omitempty"`
	Message        string `json:"message"`
}

// Delete statuses.
const (
	DeleteStatusDeleted         = "deleted"
	DeleteStatusPendingApproval = "pending_approval"
)
