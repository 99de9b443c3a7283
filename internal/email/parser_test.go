package email

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mcp-imap-search/internal/config"
)

const multipartMessage = "From: \"Bob Builder\" <bob@example.org>\r\n" +
	"To: alice@example.org, \"Carol\" <carol@example.org>\r\n" +
	"Cc: dave@example.org\r\n" +
	"Subject: =?UTF-8?B?UmVwb3J0IMOcYmVyc2ljaHQ=?=\r\n" +
	"Message-ID: <report-1@example.org>\r\n" +
	"Date: Tue, 05 Mar 2024 10:00:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"outer\"\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: multipart/alternative; boundary=\"inner\"\r\n" +
	"\r\n" +
	"--inner\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"The numbers are attached.\r\n" +
	"\r\n" +
	"-- \r\n" +
	"Bob\r\n" +
	"--inner\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>The numbers are <b>attached</b>.</p>\r\n" +
	"--inner--\r\n" +
	"--outer\r\n" +
	"Content-Type: text/csv; name=\"numbers.csv\"\r\n" +
	"Content-Disposition: attachment; filename=\"numbers.csv\"\r\n" +
	"\r\n" +
	"a,b\r\n1,2\r\n" +
	"--outer--\r\n"

const htmlOnlyMessage = "From: news@example.org\r\n" +
	"Subject: Newsletter\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><body><h1>Hello</h1><p>This week in   review.</p></body></html>\r\n"

func TestParser_Full(t *testing.T) {
	p := NewParser(config.ContentFormatFull, 500)

	c, err := p.Parse([]byte(multipartMessage), 42, "INBOX")
	require.NoError(t, err)

	assert.Equal(t, uint32(42), c.UID)
	assert.Equal(t, "INBOX", c.Folder)
	assert.Equal(t, "<report-1@example.org>", c.MessageID)
	assert.Equal(t, "Report Übersicht", c.Subject)
	assert.Equal(t, "Bob Builder <bob@example.org>", c.From)
	assert.Equal(t, []string{"alice@example.org", "Carol <carol@example.org>"}, c.To)
	assert.Equal(t, []string{"dave@example.org"}, c.Cc)
	assert.Empty(t, c.Bcc)
	assert.Contains(t, c.Text, "The numbers are attached.")
	assert.Contains(t, c.HTML, "<b>attached</b>")
	assert.Equal(t, "<report-1@example.org>", c.Headers["message-id"])
	assert.Empty(t, c.Summary)
	assert.False(t, c.Failed())

	require.Len(t, c.Attachments, 1)
	assert.Equal(t, "numbers.csv", c.Attachments[0].Filename)
	assert.Equal(t, "text/csv", c.Attachments[0].ContentType)
	assert.Positive(t, c.Attachments[0].Size)
}

func TestParser_FromWithQuotedName(t *testing.T) {
	raw := "From: \"Doe, John\" <john@example.org>\r\n" +
		"Subject: hi\r\n" +
		"\r\n" +
		"body\r\n"

	c, err := NewParser(config.ContentFormatFull, 500).Parse([]byte(raw), 1, "INBOX")
	require.NoError(t, err)
	assert.Equal(t, "Doe, John <john@example.org>", c.From)
}

func TestParser_Summary(t *testing.T) {
	p := NewParser(config.ContentFormatSummary, 500)
	assert.Equal(t, config.ContentFormatSummary, p.Format())

	c, err := p.Parse([]byte(multipartMessage), 1, "INBOX")
	require.NoError(t, err)
	assert.Equal(t, "The numbers are attached.", c.Summary)
	assert.Equal(t, "Report Übersicht", c.Subject)
	assert.Empty(t, c.Text)
	assert.Empty(t, c.HTML)
	assert.Empty(t, c.Attachments)
}

func TestParser_SummaryFromHTML(t *testing.T) {
	p := NewParser(config.ContentFormatSummary, 500)

	c, err := p.Parse([]byte(htmlOnlyMessage), 1, "INBOX")
	require.NoError(t, err)
	assert.Contains(t, c.Summary, "Hello")
	assert.Contains(t, c.Summary, "This week in review.")
	assert.NotContains(t, c.Summary, "<p>")
}

func TestParser_Errors(t *testing.T) {
	p := NewParser("", 0)
	assert.Equal(t, config.ContentFormatFull, p.Format())

	for _, raw := range [][]byte{nil, {}, []byte(" \r\n ")} {
		_, err := p.Parse(raw, 9, "Sent")
		require.Error(t, err)

		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr))
		assert.Equal(t, uint32(9), parseErr.UID)
		assert.Equal(t, "Sent", parseErr.Folder)
		assert.ErrorIs(t, err, errEmptyMessage)
	}
}

func TestPlaceholder(t *testing.T) {
	c := Placeholder(7, "INBOX", errMessageNotFound)
	assert.Equal(t, uint32(7), c.UID)
	assert.Equal(t, "INBOX", c.Folder)
	assert.Equal(t, Unavailable, c.From)
	assert.Equal(t, Unavailable, c.Subject)
	assert.Equal(t, "[unavailable: message not found]", c.Summary)
	assert.True(t, c.Failed())

	assert.Equal(t, "unknown error", Placeholder(1, "INBOX", nil).Error)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "short text", Summarize("  short\n\n text  ", 100))
	assert.Equal(t, "abcde...", Summarize("abcdefghij", 5))
	assert.Equal(t, "Grüße...", Summarize("Grüße aus Köln", 5))
	assert.Equal(t, "", Summarize("", 10))
}

func TestStripSignature(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"dash delimiter", "Body\n-- \nName", "Body"},
		{"bare dashes", "Body\r\n--\r\nName", "Body"},
		{"mobile footer", "Body\nSent from my phone", "Body"},
		{"underscore rule", "Body\n__________\nDisclaimer", "Body"},
		{"quoted reply", "Thanks!\n\nOn Mon, 4 Mar 2024, Bob wrote:\n> hi", "Thanks!"},
		{"quote marker", "Yes.\n> earlier", "Yes."},
		{"forwarded original", "FYI\n-----Original Message-----\nFrom: x", "FYI"},
		{"no signature", "Line one\n--not a delimiter", "Line one\n--not a delimiter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, strings.TrimRight(StripSignature(tt.in), "\n"))
		})
	}
}
