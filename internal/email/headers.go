package email

import (
	"context"

	"github.com/emersion/go-imap"

	"github.com/brandon/mcp-imap-search/pkg/types"
)

var summaryItems = []imap.FetchItem{imap.FetchUid, imap.FetchFlags, imap.FetchInternalDate, imap.FetchEnvelope}

// FetchSummaries retrieves header-level metadata for uids in the open folder.
// No body bytes are transferred.
func (c *IMAPClient) FetchSummaries(ctx context.Context, uids []uint32) ([]types.MessageSummary, error) {
	folder := c.selected
	summaries := make([]types.MessageSummary, 0, len(uids))

	err := c.uidFetch(ctx, uids, summaryItems, func(msg *imap.Message) {
		summaries = append(summaries, summaryFromMessage(msg, folder))
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func summaryFromMessage(msg *imap.Message, folder string) types.MessageSummary {
	summary := types.MessageSummary{
		UID:    msg.Uid,
		Date:   msg.InternalDate,
		Folder: folder,
		To:     []string{},
		Flags:  []string{},
	}
	summary.Flags = append(summary.Flags, msg.Flags...)

	if env := msg.Envelope; env != nil {
		summary.MessageID = env.MessageId
		summary.Subject = env.Subject
		if !env.Date.IsZero() {
			summary.Date = env.Date
		}
		if len(env.From) > 0 {
			summary.From = formatAddress(env.From[0])
		}
		summary.To = append(summary.To, addressList(env.To)...)
	}

	return summary
}

// formatAddress renders "Name <local@domain>" or the bare address
func formatAddress(addr *imap.Address) string {
	if addr == nil {
		return ""
	}
	email := addr.Address()
	if addr.PersonalName == "" {
		return email
	}
	return addr.PersonalName + " <" + email + ">"
}

func addressList(addrs []*imap.Address) []string {
	list := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if s := formatAddress(addr); s != "" {
			list = append(list, s)
		}
	}
	return list
}
