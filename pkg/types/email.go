package types

import "time"

// UIDRef identifies a message by its folder-scoped UID
type UIDRef struct {
	UID    uint32 `json:"uid"`
	Folder string `json:"folder"`
}

// MessageSummary represents the header-level view of an email (for search results)
type MessageSummary struct {
	UID       uint32    `json:"uid"`
	MessageID string    `json:"message_id"`
	Subject   string    `json:"subject"`
	From      string    `json:"from"`
	To        []string  `json:"to"`
	Date      time.Time `json:"date"`
	Folder    string    `json:"folder"`
	Flags     []string  `json:"flags"`
}

// MessageContent represents a downloaded and parsed email.
// Full-format fields and Summary are mutually exclusive; which one is filled
// depends on the configured content format.
type MessageContent struct {
	UID       uint32    `json:"uid"`
	Folder    string    `json:"folder"`
	MessageID string    `json:"message_id,omitempty"`
	From      string    `json:"from"`
	Subject   string    `json:"subject"`
	Date      time.Time `json:"date,omitempty"`
	Flags     []string  `json:"flags,omitempty"`

	// Full format
	To          []string          `json:"to,omitempty"`
	Cc          []string          `json:"cc,omitempty"`
	Bcc         []string          `json:"bcc,omitempty"`
	Text        string            `json:"text,omitempty"`
	HTML        string            `json:"html,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`

	// Summary format
	Summary string `json:"summary,omitempty"`

	// Error is set only on placeholder entries for messages that could not
	// be fetched or parsed.
	Error string `json:"error,omitempty"`
}

// Failed reports whether c is a placeholder for a message that could not be read
func (c *MessageContent) Failed() bool {
	return c.Error != ""
}

// Attachment describes an attachment without its content
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	ContentID   string `json:"content_id,omitempty"`
}

// SearchResult is the merged result of a multi-folder search
type SearchResult struct {
	Messages []MessageSummary `json:"messages"`
	Total    int              `json:"total"`
	Folders  []string         `json:"folders"`
}
