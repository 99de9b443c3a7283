package tools

import (
	"context"

	"github.com/sirupsen/logrus"
)

// TestConnectionTool checks that the configured server is reachable
type TestConnectionTool struct {
	mailbox Mailbox
	logger  *logrus.Logger
}

// NewTestConnectionTool creates a new test connection tool
func NewTestConnectionTool(mailbox Mailbox, logger *logrus.Logger) *TestConnectionTool {
	return &TestConnectionTool{
		mailbox: mailbox,
		logger:  logger,
	}
}

// Name returns the tool name
func (t *TestConnectionTool) Name() string {
	return "test_connection"
}

// Description returns the tool description
func (t *TestConnectionTool) Description() string {
	return "Test whether the IMAP server is reachable and the credentials are accepted"
}

// InputSchema returns the JSON schema for tool inputs
func (t *TestConnectionTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// Execute executes the tool. A failed check is a result, not an error.
func (t *TestConnectionTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	if t.mailbox.TestConnection(ctx) {
		return map[string]interface{}{
			"status":  "success",
			"message": "IMAP connection test succeeded",
		}, nil
	}
	return map[string]interface{}{
		"status":  "failed",
		"message": "IMAP connection test failed",
	}, nil
}
