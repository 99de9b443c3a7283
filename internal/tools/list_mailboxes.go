package tools

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ListMailboxesTool lists the folders available on the server
type ListMailboxesTool struct {
	mailbox Mailbox
	logger  *logrus.Logger
}

// NewListMailboxesTool creates a new list mailboxes tool
func NewListMailboxesTool(mailbox Mailbox, logger *logrus.Logger) *ListMailboxesTool {
	return &ListMailboxesTool{
		mailbox: mailbox,
		logger:  logger,
	}
}

// Name returns the tool name
func (t *ListMailboxesTool) Name() string {
	return "list_mailboxes"
}

// Description returns the tool description
func (t *ListMailboxesTool) Description() string {
	return "List all mailboxes/folders available on the IMAP server"
}

// InputSchema returns the JSON schema for tool inputs
func (t *ListMailboxesTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// Execute executes the tool
func (t *ListMailboxesTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	mailboxes, err := t.mailbox.ListMailboxes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list mailboxes: %w", err)
	}

	return map[string]interface{}{
		"summary":   fmt.Sprintf("Found %d mailboxes", len(mailboxes)),
		"mailboxes": mailboxes,
	}, nil
}
