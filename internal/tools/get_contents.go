package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-imap-search/internal/email"
	"github.com/brandon/mcp-imap-search/pkg/types"
)

const (
	toolContentsByUIDs       = "get_email_contents_by_uids"
	toolContentsByMessageIDs = "get_email_contents_by_message_ids"
	toolContentsLegacy       = "get_email_contents"
)

// ContentsByUIDsTool downloads messages identified by UID and folder
type ContentsByUIDsTool struct {
	mailbox Mailbox
	logger  *logrus.Logger
}

// NewContentsByUIDsTool creates a new contents-by-UID tool
func NewContentsByUIDsTool(mailbox Mailbox, logger *logrus.Logger) *ContentsByUIDsTool {
	return &ContentsByUIDsTool{
		mailbox: mailbox,
		logger:  logger,
	}
}

// Name returns the tool name
func (t *ContentsByUIDsTool) Name() string {
	return toolContentsByUIDs
}

// Description returns the tool description
func (t *ContentsByUIDsTool) Description() string {
	return "Fetch the full contents of emails by UID and folder, as returned by search_emails. " +
		"Preferred over Message-ID lookup; messages that cannot be read are returned as placeholders."
}

// InputSchema returns the JSON schema for tool inputs
func (t *ContentsByUIDsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"uids": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"uid": map[string]interface{}{
							"type":        "integer",
							"description": "Message UID",
						},
						"folder": map[string]interface{}{
							"type":        "string",
							"description": "Folder holding the message",
						},
					},
					"required": []string{"uid", "folder"},
				},
				"description": "UID and folder pairs to fetch",
				"minItems":    1,
			},
		},
		"required": []string{"uids"},
	}
}

// Execute executes the tool
func (t *ContentsByUIDsTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	refs, err := uidRefsParam(params, "uids")
	if err != nil {
		return nil, err
	}

	contents, err := t.mailbox.GetContentsByUIDs(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to get email contents: %w", err)
	}

	return contentsResult(distinctRefs(refs), "UIDs", contents), nil
}

// ContentsByMessageIDsTool downloads messages by Message-ID header. Every
// folder may have to be searched, so it is slower than UID lookup.
type ContentsByMessageIDsTool struct {
	name    string
	mailbox Mailbox
	logger  *logrus.Logger
}

// NewContentsByMessageIDsTool creates a Message-ID lookup tool registered under name
func NewContentsByMessageIDsTool(name string, mailbox Mailbox, logger *logrus.Logger) *ContentsByMessageIDsTool {
	return &ContentsByMessageIDsTool{
		name:    name,
		mailbox: mailbox,
		logger:  logger,
	}
}

// Name returns the tool name
func (t *ContentsByMessageIDsTool) Name() string {
	return t.name
}

// Description returns the tool description
func (t *ContentsByMessageIDsTool) Description() string {
	desc := "Fetch the full contents of emails by Message-ID. Searches folders one by one, " +
		"so it is slower than " + toolContentsByUIDs + "; IDs that are not found are omitted."
	if t.name == toolContentsLegacy {
		desc += " Deprecated alias of " + toolContentsByMessageIDs + "."
	}
	return desc
}

// InputSchema returns the JSON schema for tool inputs
func (t *ContentsByMessageIDsTool) InputSchema() map[string]interface{} {
	ids := arraySchema("string", "Message-ID header values, with or without angle brackets")
	ids["minItems"] = 1
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"messageIds": ids,
		},
		"required": []string{"messageIds"},
	}
}

// Execute executes the tool
func (t *ContentsByMessageIDsTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	ids, err := stringsParam(params, "messageIds")
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, invalid("messageIds", "at least one Message-ID is required")
	}

	contents, err := t.mailbox.GetContentsByMessageIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get email contents: %w", err)
	}

	return contentsResult(distinctMessageIDs(ids), "Message-IDs", contents), nil
}

// distinctRefs counts the (uid, folder) pairs the mailbox answers for;
// repeated pairs share one entry
func distinctRefs(refs []types.UIDRef) int {
	seen := make(map[types.UIDRef]bool, len(refs))
	for _, ref := range refs {
		seen[ref] = true
	}
	return len(seen)
}

func distinctMessageIDs(ids []string) int {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[email.NormalizeMessageID(id)] = true
	}
	return len(seen)
}

func contentsResult(requested int, kind string, contents []types.MessageContent) map[string]interface{} {
	if contents == nil {
		contents = []types.MessageContent{}
	}
	found := 0
	for i := range contents {
		if !contents[i].Failed() {
			found++
		}
	}
	return map[string]interface{}{
		"summary":         fmt.Sprintf("Retrieved %d of %d requested %s", found, requested, kind),
		"requested_count": requested,
		"found_count":     found,
		"contents":        contents,
	}
}

func uidRefsParam(params map[string]interface{}, key string) ([]types.UIDRef, error) {
	raw, ok := params[key].([]interface{})
	if !ok || len(raw) == 0 {
		return nil, invalid(key, "must be a non-empty array of {uid, folder} objects")
	}

	refs := make([]types.UIDRef, 0, len(raw))
	for i, item := range raw {
		field := fmt.Sprintf("%s[%d]", key, i)
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, invalid(field, "must be an object with uid and folder")
		}

		uid, err := uidValue(obj["uid"])
		if err != nil {
			return nil, invalid(field+".uid", "%v", err)
		}
		folder, ok := obj["folder"].(string)
		if !ok || strings.TrimSpace(folder) == "" {
			return nil, invalid(field+".folder", "must be a non-empty string")
		}

		refs = append(refs, types.UIDRef{UID: uid, Folder: folder})
	}
	return refs, nil
}

func uidValue(raw interface{}) (uint32, error) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
		if err != nil {
			return 0, fmt.Errorf("must be a positive integer")
		}
		n = float64(parsed)
	default:
		return 0, fmt.Errorf("must be a positive integer")
	}
	if n < 1 || n > math.MaxUint32 || n != math.Trunc(n) {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return uint32(n), nil
}
