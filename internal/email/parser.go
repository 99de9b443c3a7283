package email

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jaytaylor/html2text"
	"github.com/jhillyerd/enmime"

	"github.com/brandon/mcp-imap-search/internal/config"
	"github.com/brandon/mcp-imap-search/pkg/types"
)

// Unavailable marks the sender, subject and summary of placeholder entries
const Unavailable = "[unavailable]"

// Parser turns raw RFC 5322 bytes into MessageContent. The full
// representation is canonical; the summary format is derived from it.
type Parser struct {
	format        string
	summaryLength int
}

// NewParser creates a parser for the given content format
func NewParser(format string, summaryLength int) *Parser {
	if format == "" {
		format = config.ContentFormatFull
	}
	if summaryLength <= 0 {
		summaryLength = 500
	}
	return &Parser{format: format, summaryLength: summaryLength}
}

// Format returns the configured output shape
func (p *Parser) Format() string {
	return p.format
}

// Parse parses one message. uid and folder are carried through unchanged.
func (p *Parser) Parse(raw []byte, uid uint32, folder string) (*types.MessageContent, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &ParseError{Folder: folder, UID: uid, Err: errEmptyMessage}
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, &ParseError{Folder: folder, UID: uid, Err: err}
	}
	if len(env.GetHeaderKeys()) == 0 && env.Text == "" && env.HTML == "" {
		return nil, &ParseError{Folder: folder, UID: uid, Err: fmt.Errorf("no headers or body found")}
	}

	full := &types.MessageContent{
		UID:       uid,
		Folder:    folder,
		MessageID: env.GetHeader("Message-Id"),
		From:      firstAddress(headerAddresses(env, "From")),
		Subject:   env.GetHeader("Subject"),
		To:        headerAddresses(env, "To"),
		Cc:        headerAddresses(env, "Cc"),
		Bcc:       headerAddresses(env, "Bcc"),
		Text:      env.Text,
		HTML:      env.HTML,
		Headers:   flattenHeaders(env),
	}
	for _, part := range env.Attachments {
		full.Attachments = append(full.Attachments, types.Attachment{
			Filename:    part.FileName,
			ContentType: part.ContentType,
			Size:        len(part.Content),
			ContentID:   part.ContentID,
		})
	}

	if p.format == config.ContentFormatSummary {
		return p.SummaryView(full), nil
	}
	return full, nil
}

// SummaryView condenses a full MessageContent into the summary shape
func (p *Parser) SummaryView(full *types.MessageContent) *types.MessageContent {
	text := full.Text
	if strings.TrimSpace(text) == "" && full.HTML != "" {
		if converted, err := html2text.FromString(full.HTML, html2text.Options{OmitLinks: true}); err == nil {
			text = converted
		}
	}

	return &types.MessageContent{
		UID:       full.UID,
		Folder:    full.Folder,
		MessageID: full.MessageID,
		From:      full.From,
		Subject:   full.Subject,
		Date:      full.Date,
		Flags:     full.Flags,
		Summary:   Summarize(text, p.summaryLength),
	}
}

// Placeholder builds the entry reported in place of a message that could
// not be fetched or parsed
func Placeholder(uid uint32, folder string, cause error) *types.MessageContent {
	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}
	return &types.MessageContent{
		UID:     uid,
		Folder:  folder,
		From:    Unavailable,
		Subject: Unavailable,
		Summary: fmt.Sprintf("[unavailable: %s]", reason),
		Error:   reason,
	}
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	quoteHeader   = regexp.MustCompile(`(?i)^on .+ wrote:$`)
	signatureLine = []*regexp.Regexp{
		regexp.MustCompile(`^--\s*$`),
		regexp.MustCompile(`^_{5,}\s*$`),
		regexp.MustCompile(`(?i)^sent from my `),
		regexp.MustCompile(`(?i)^-{3,}\s*original message\s*-{3,}$`),
	}
)

// Summarize strips the signature block and quoted replies, collapses
// whitespace and bounds the result to max runes.
func Summarize(text string, max int) string {
	text = StripSignature(text)
	text = strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))

	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:max])) + "..."
}

// StripSignature cuts text at the first line that starts a signature block
// or a quoted reply
func StripSignature(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if quoteHeader.MatchString(trimmed) || strings.HasPrefix(trimmed, ">") {
			return strings.Join(lines[:i], "\n")
		}
		for _, re := range signatureLine {
			if re.MatchString(trimmed) {
				return strings.Join(lines[:i], "\n")
			}
		}
	}
	return text
}

func headerAddresses(env *enmime.Envelope, key string) []string {
	addrs, err := env.AddressList(key)
	if err != nil || len(addrs) == 0 {
		if raw := env.GetHeader(key); raw != "" {
			return []string{raw}
		}
		return nil
	}
	list := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if addr.Name == "" {
			list = append(list, addr.Address)
			continue
		}
		list = append(list, addr.Name+" <"+addr.Address+">")
	}
	return list
}

func firstAddress(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// flattenHeaders joins repeated header values with ", " under lower-cased keys
func flattenHeaders(env *enmime.Envelope) map[string]string {
	keys := env.GetHeaderKeys()
	headers := make(map[string]string, len(keys))
	for _, key := range keys {
		headers[strings.ToLower(key)] = strings.Join(env.GetHeaderValues(key), ", ")
	}
	return headers
}
