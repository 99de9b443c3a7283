package email

import (
	"context"
	"io"

	"github.com/emersion/go-imap"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-imap-search/pkg/types"
)

// BODY.PEEK[] keeps \Seen untouched
var contentSection = &imap.BodySectionName{Peek: true}

var contentItems = []imap.FetchItem{
	imap.FetchUid, imap.FetchFlags, imap.FetchInternalDate, imap.FetchEnvelope, contentSection.FetchItem(),
}

// FetchContents downloads and parses uids from the open folder in one batch.
// The result holds exactly one entry per distinct requested UID: parsed
// messages in arrival order, followed by placeholders for UIDs the server
// never delivered. A non-nil error means the FETCH command itself failed;
// the returned slice is still complete.
func (c *IMAPClient) FetchContents(ctx context.Context, uids []uint32, parser *Parser) ([]types.MessageContent, error) {
	folder := c.selected
	uids = uniqueUIDs(uids)

	pending := make(map[uint32]bool, len(uids))
	for _, uid := range uids {
		pending[uid] = true
	}

	contents := make([]types.MessageContent, 0, len(uids))
	fetchErr := c.uidFetch(ctx, uids, contentItems, func(msg *imap.Message) {
		if !pending[msg.Uid] {
			// unsolicited or duplicate FETCH response
			return
		}
		delete(pending, msg.Uid)
		contents = append(contents, *c.parseMessage(msg, folder, parser))
	})

	cause := error(errMessageNotFound)
	if fetchErr != nil {
		cause = fetchErr
	}
	for _, uid := range uids {
		if pending[uid] {
			contents = append(contents, *Placeholder(uid, folder, cause))
		}
	}

	return contents, fetchErr
}

// parseMessage turns one FETCH response into MessageContent, substituting a
// placeholder when the body is missing or cannot be parsed
func (c *IMAPClient) parseMessage(msg *imap.Message, folder string, parser *Parser) *types.MessageContent {
	log := c.logger.WithFields(logrus.Fields{"folder": folder, "uid": msg.Uid})

	var raw []byte
	if literal := msg.GetBody(contentSection); literal != nil {
		var err error
		raw, err = io.ReadAll(literal)
		if err != nil {
			log.WithError(err).Warn("Failed to read message body")
			return Placeholder(msg.Uid, folder, &ParseError{Folder: folder, UID: msg.Uid, Err: err})
		}
	}

	content, err := parser.Parse(raw, msg.Uid, folder)
	if err != nil {
		log.WithError(err).Warn("Failed to parse message")
		return Placeholder(msg.Uid, folder, err)
	}

	content.Flags = append([]string{}, msg.Flags...)
	content.Date = msg.InternalDate
	if env := msg.Envelope; env != nil {
		if !env.Date.IsZero() {
			content.Date = env.Date
		}
		if content.MessageID == "" {
			content.MessageID = env.MessageId
		}
		if content.Subject == "" {
			content.Subject = env.Subject
		}
		if content.From == "" && len(env.From) > 0 {
			content.From = formatAddress(env.From[0])
		}
	}

	log.WithField("body_size", len(raw)).Debug("Parsed message")
	return content
}

func uniqueUIDs(uids []uint32) []uint32 {
	seen := make(map[uint32]bool, len(uids))
	out := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		if uid == 0 || seen[uid] {
			continue
		}
		seen[uid] = true
		out = append(out, uid)
	}
	return out
}
