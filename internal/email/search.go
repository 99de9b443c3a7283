package email

import (
	"context"
	"net/textproto"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-imap-search/pkg/types"
)

// MaxSearchLimit caps the number of summaries a single search may return
const MaxSearchLimit = 1000

// SearchOptions contains search parameters
type SearchOptions struct {
	Folders  []string
	Since    *time.Time
	Before   *time.Time
	Keywords []string
	Limit    int
}

// Validate checks the options before any connection is made
func (o *SearchOptions) Validate() error {
	if o.Limit < 0 || o.Limit > MaxSearchLimit {
		return &ValidationError{Field: "limit", Message: "must be between 1 and 1000"}
	}
	if o.Since != nil && o.Before != nil && !o.Before.After(*o.Since) {
		return &ValidationError{Field: "before", Message: "must be later than since"}
	}
	for _, folder := range o.Folders {
		if strings.TrimSpace(folder) == "" {
			return &ValidationError{Field: "folders", Message: "folder names must not be empty"}
		}
	}
	return nil
}

// BuildCriteria translates options into one IMAP SEARCH query.
//
// Dates use the protocol's day granularity on the internal date. Keywords
// are combined as ANY-of-N: every keyword yields (SUBJECT k OR BODY k) and the
// keyword clauses are folded into a right-nested OR tree, so a message matches
// when any single keyword matches its subject or body.
func BuildCriteria(opts SearchOptions) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()

	if opts.Since != nil {
		criteria.Since = dateOnly(*opts.Since)
	}
	if opts.Before != nil {
		criteria.Before = dateOnly(*opts.Before)
	}

	var clauses []*imap.SearchCriteria
	for _, keyword := range opts.Keywords {
		if keyword = strings.TrimSpace(keyword); keyword != "" {
			clauses = append(clauses, keywordClause(keyword))
		}
	}

	switch len(clauses) {
	case 0:
	case 1:
		criteria.Or = clauses[0].Or
	default:
		criteria.Or = [][2]*imap.SearchCriteria{{clauses[0], anyOf(clauses[1:])}}
	}

	return criteria
}

func keywordClause(keyword string) *imap.SearchCriteria {
	subject := imap.NewSearchCriteria()
	subject.Header = textproto.MIMEHeader{"Subject": {keyword}}

	body := imap.NewSearchCriteria()
	body.Body = []string{keyword}

	clause := imap.NewSearchCriteria()
	clause.Or = [][2]*imap.SearchCriteria{{subject, body}}
	return clause
}

func anyOf(clauses []*imap.SearchCriteria) *imap.SearchCriteria {
	if len(clauses) == 1 {
		return clauses[0]
	}
	node := imap.NewSearchCriteria()
	node.Or = [][2]*imap.SearchCriteria{{clauses[0], anyOf(clauses[1:])}}
	return node
}

// messageIDCriteria matches the Message-ID header, which servers compare as a substring
func messageIDCriteria(messageID string) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	criteria.Header = textproto.MIMEHeader{"Message-Id": {messageID}}
	return criteria
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// searchFolder runs the query in one folder and returns summaries for at
// most limit matches, the highest UIDs first in line, tagged with the folder.
func (c *IMAPClient) searchFolder(ctx context.Context, folder string, criteria *imap.SearchCriteria, limit int) ([]types.MessageSummary, error) {
	if _, err := c.OpenFolder(ctx, folder); err != nil {
		return nil, err
	}

	uids, err := c.SearchUIDs(ctx, criteria)
	if err != nil {
		return nil, err
	}

	uids = newestUIDs(uids, limit)
	c.logger.WithFields(logrus.Fields{
		"folder":  folder,
		"matches": len(uids),
	}).Debug("Searched folder")

	return c.FetchSummaries(ctx, uids)
}
