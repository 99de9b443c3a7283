package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-imap-search/internal/config"
	"github.com/brandon/mcp-imap-search/pkg/types"
)

// Manager runs the mailbox operations. Every call opens its own IMAP session
// and closes it before returning.
type Manager struct {
	config *config.Config
	parser *Parser
	logger *logrus.Logger
}

// NewManager creates a new email manager
func NewManager(cfg *config.Config, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		config: cfg,
		parser: NewParser(cfg.ContentFormat, cfg.SummaryLength),
		logger: logger,
	}
}

func (m *Manager) newClient() *IMAPClient {
	return NewIMAPClient(&m.config.Mailbox, m.logger)
}

func (m *Manager) release(c *IMAPClient) {
	if err := c.Close(); err != nil {
		m.logger.WithError(err).Debug("Failed to close IMAP session")
	}
}

// SearchEmails searches the given folders, or every folder when none are
// given, and returns the newest matches across all of them.
func (m *Manager) SearchEmails(ctx context.Context, opts SearchOptions) (*types.SearchResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Limit == 0 {
		opts.Limit = m.config.SearchResultLimit
	}

	c := m.newClient()
	defer m.release(c)

	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	folders := uniqueFolders(opts.Folders)
	if len(folders) == 0 {
		var err error
		if folders, err = c.ListFolders(ctx); err != nil {
			return nil, err
		}
	}

	criteria := BuildCriteria(opts)
	result := &types.SearchResult{
		Messages: []types.MessageSummary{},
		Folders:  []string{},
	}

	var found []types.MessageSummary
	for _, folder := range folders {
		summaries, err := c.searchFolder(ctx, folder, criteria, opts.Limit)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if c.lost() {
				return nil, c.connErr(fmt.Errorf("session closed while searching %q: %w", folder, err))
			}
			m.logger.WithError(err).WithField("folder", folder).Warn("Skipping folder")
			continue
		}
		result.Folders = append(result.Folders, folder)
		found = append(found, summaries...)
	}

	if merged := mergeSummaries(found, opts.Limit); len(merged) > 0 {
		result.Messages = merged
	}
	result.Total = len(result.Messages)

	m.logger.WithFields(logrus.Fields{
		"folders": len(result.Folders),
		"skipped": len(folders) - len(result.Folders),
		"matches": result.Total,
	}).Info("Search completed")

	return result, nil
}

// ListMailboxes returns every folder path on the server
func (m *Manager) ListMailboxes(ctx context.Context) ([]string, error) {
	c := m.newClient()
	defer m.release(c)

	folders, err := c.ListFolders(ctx)
	if err != nil {
		return nil, err
	}
	if folders == nil {
		folders = []string{}
	}
	return folders, nil
}

// TestConnection reports whether a session can be opened and at least one
// folder listed. It never returns an error.
func (m *Manager) TestConnection(ctx context.Context) bool {
	c := m.newClient()
	defer m.release(c)

	folders, err := c.ListFolders(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("Connection test failed")
		return false
	}
	if len(folders) == 0 {
		m.logger.Warn("Connection test found no folders")
		return false
	}
	return true
}

// GetContentsByUIDs downloads the referenced messages. The result holds one
// entry per distinct reference; messages that could not be read are reported
// as placeholders.
func (m *Manager) GetContentsByUIDs(ctx context.Context, refs []types.UIDRef) ([]types.MessageContent, error) {
	if len(refs) == 0 {
		return nil, &ValidationError{Field: "uids", Message: "at least one reference is required"}
	}
	for i, ref := range refs {
		if ref.UID == 0 {
			return nil, &ValidationError{Field: fmt.Sprintf("uids[%d].uid", i), Message: "must be a positive integer"}
		}
		if strings.TrimSpace(ref.Folder) == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("uids[%d].folder", i), Message: "must not be empty"}
		}
	}

	c := m.newClient()
	defer m.release(c)

	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	contents := make([]types.MessageContent, 0, len(refs))
	for _, batch := range groupByFolder(refs) {
		log := m.logger.WithFields(logrus.Fields{"folder": batch.folder, "count": len(batch.uids)})

		if _, err := c.OpenFolder(ctx, batch.folder); err != nil {
			if err := m.abortCause(ctx, c, err); err != nil {
				return nil, err
			}
			log.WithError(err).Warn("Failed to open folder")
			for _, uid := range batch.uids {
				contents = append(contents, *Placeholder(uid, batch.folder, err))
			}
			continue
		}

		fetched, err := c.FetchContents(ctx, batch.uids, m.parser)
		if err != nil {
			if err := m.abortCause(ctx, c, err); err != nil {
				return nil, err
			}
			log.WithError(err).Warn("Fetch failed")
		}
		contents = append(contents, fetched...)
	}

	m.logger.WithField("count", len(contents)).Info("Fetched message contents")
	return contents, nil
}

// GetContentsByMessageIDs locates each Message-ID by searching the folders in
// listing order and downloads the first message whose header equals it. IDs
// found nowhere are left out of the result.
func (m *Manager) GetContentsByMessageIDs(ctx context.Context, ids []string) ([]types.MessageContent, error) {
	if len(ids) == 0 {
		return nil, &ValidationError{Field: "message_ids", Message: "at least one Message-ID is required"}
	}
	var remaining []string
	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		id = NormalizeMessageID(id)
		if id == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("message_ids[%d]", i), Message: "must not be empty"}
		}
		if !seen[id] {
			seen[id] = true
			remaining = append(remaining, id)
		}
	}

	c := m.newClient()
	defer m.release(c)

	folders, err := c.ListFolders(ctx)
	if err != nil {
		return nil, err
	}

	contents := []types.MessageContent{}
	for _, folder := range folders {
		if len(remaining) == 0 {
			break
		}
		log := m.logger.WithField("folder", folder)

		if _, err := c.OpenFolder(ctx, folder); err != nil {
			if err := m.abortCause(ctx, c, err); err != nil {
				return nil, err
			}
			log.WithError(err).Debug("Skipping folder")
			continue
		}

		// HEADER search is a substring match, so every hit stays a candidate
		// until its Message-ID has been compared
		candidates := make(map[string][]uint32)
		queued := make(map[uint32]bool)
		var uids []uint32
		for _, id := range remaining {
			matches, err := c.SearchUIDs(ctx, messageIDCriteria(id))
			if err != nil {
				if err := m.abortCause(ctx, c, err); err != nil {
					return nil, err
				}
				log.WithError(err).WithField("message_id", id).Warn("Message-ID search failed")
				continue
			}
			if len(matches) == 0 {
				continue
			}
			if len(matches) > 1 {
				log.WithFields(logrus.Fields{
					"message_id": id,
					"matches":    len(matches),
				}).Debug("Message-ID matched several messages")
			}
			candidates[id] = matches
			for _, uid := range matches {
				if !queued[uid] {
					queued[uid] = true
					uids = append(uids, uid)
				}
			}
		}
		if len(uids) == 0 {
			continue
		}

		fetched, err := c.FetchContents(ctx, uids, m.parser)
		if err != nil {
			if err := m.abortCause(ctx, c, err); err != nil {
				return nil, err
			}
			log.WithError(err).Warn("Fetch failed")
		}

		byUID := make(map[uint32]types.MessageContent, len(fetched))
		for _, content := range fetched {
			byUID[content.UID] = content
		}

		resolved := make(map[string]bool)
		emitted := make(map[uint32]bool)
		for _, id := range remaining {
			uid, ok := pickCandidate(id, candidates[id], byUID)
			if !ok {
				continue
			}
			resolved[id] = true
			if !emitted[uid] {
				emitted[uid] = true
				contents = append(contents, byUID[uid])
			}
		}
		remaining = without(remaining, resolved)
	}

	if len(remaining) > 0 {
		m.logger.WithField("missing", remaining).Info("Some Message-IDs were not found")
	}
	return contents, nil
}

// abortCause returns a non-nil error when a failure ends the whole operation
// rather than a single folder or message
func (m *Manager) abortCause(ctx context.Context, c *IMAPClient, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if c.lost() {
		return c.connErr(fmt.Errorf("session closed: %w", err))
	}
	return nil
}

// NormalizeMessageID strips surrounding whitespace and angle brackets
func NormalizeMessageID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	return strings.TrimSpace(id)
}

// pickCandidate returns the first candidate whose Message-ID equals id. When
// none does, a candidate that could not be read stands in for it, since its
// header was never seen.
func pickCandidate(id string, uids []uint32, fetched map[uint32]types.MessageContent) (uint32, bool) {
	var fallback uint32
	for _, uid := range uids {
		content, ok := fetched[uid]
		if !ok {
			continue
		}
		if content.Failed() {
			if fallback == 0 {
				fallback = uid
			}
			continue
		}
		if NormalizeMessageID(content.MessageID) == id {
			return uid, true
		}
	}
	return fallback, fallback != 0
}

func uniqueFolders(folders []string) []string {
	seen := make(map[string]bool, len(folders))
	out := make([]string, 0, len(folders))
	for _, folder := range folders {
		if !seen[folder] {
			seen[folder] = true
			out = append(out, folder)
		}
	}
	return out
}

func without(ids []string, drop map[string]bool) []string {
	out := ids[:0]
	for _, id := range ids {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}
