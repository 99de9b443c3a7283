package tools

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-imap-search/internal/config"
	"github.com/brandon/mcp-imap-search/internal/email"
)

// SearchEmailsTool searches the mailbox on the server
type SearchEmailsTool struct {
	config  *config.Config
	mailbox Mailbox
	logger  *logrus.Logger
}

// NewSearchEmailsTool creates a new search emails tool
func NewSearchEmailsTool(cfg *config.Config, mailbox Mailbox, logger *logrus.Logger) *SearchEmailsTool {
	return &SearchEmailsTool{
		config:  cfg,
		mailbox: mailbox,
		logger:  logger,
	}
}

// Name returns the tool name
func (t *SearchEmailsTool) Name() string {
	return "search_emails"
}

// Description returns the tool description
func (t *SearchEmailsTool) Description() string {
	return "Search emails by folder, date range and keywords (matched against subject and body). " +
		"Returns header summaries, newest first, with the UID and folder needed to fetch contents."
}

// InputSchema returns the JSON schema for tool inputs
func (t *SearchEmailsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"folders": arraySchema("string", "Optional: Folders to search (default: all folders)"),
			"since": map[string]interface{}{
				"type":        "string",
				"format":      "date",
				"description": "Optional: Only messages received on or after this date (YYYY-MM-DD)",
			},
			"before": map[string]interface{}{
				"type":        "string",
				"format":      "date",
				"description": "Optional: Only messages received before this date (YYYY-MM-DD)",
			},
			"keywords": arraySchema("string", "Optional: Keywords; a message matches if any keyword appears in its subject or body"),
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": fmt.Sprintf("Optional: Result limit (default: %d, max: %d)", t.config.SearchResultLimit, email.MaxSearchLimit),
				"minimum":     1,
				"maximum":     email.MaxSearchLimit,
			},
		},
	}
}

// Execute executes the tool
func (t *SearchEmailsTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	var opts email.SearchOptions
	var err error

	if opts.Folders, err = stringsParam(params, "folders"); err != nil {
		return nil, err
	}
	if opts.Keywords, err = stringsParam(params, "keywords"); err != nil {
		return nil, err
	}
	if opts.Since, err = dateParam(params, "since"); err != nil {
		return nil, err
	}
	if opts.Before, err = dateParam(params, "before"); err != nil {
		return nil, err
	}

	limit, set, err := intParam(params, "limit")
	if err != nil {
		return nil, err
	}
	if set {
		if limit < 1 {
			return nil, invalid("limit", "must be between 1 and %d", email.MaxSearchLimit)
		}
		opts.Limit = limit
	}

	result, err := t.mailbox.SearchEmails(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}

	return map[string]interface{}{
		"summary": fmt.Sprintf("Found %d emails in %d folders", result.Total, len(result.Folders)),
		"result":  result,
	}, nil
}
