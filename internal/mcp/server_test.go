package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mcp-imap-search/internal/config"
	"github.com/brandon/mcp-imap-search/internal/email"
	"github.com/brandon/mcp-imap-search/pkg/types"
)

type stubMailbox struct {
	err error
}

func (s *stubMailbox) SearchEmails(context.Context, email.SearchOptions) (*types.SearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &types.SearchResult{Messages: []types.MessageSummary{}, Folders: []string{"INBOX"}}, nil
}

func (s *stubMailbox) ListMailboxes(context.Context) ([]string, error) {
	return []string{"INBOX"}, s.err
}

func (s *stubMailbox) TestConnection(context.Context) bool { return s.err == nil }

func (s *stubMailbox) GetContentsByUIDs(context.Context, []types.UIDRef) ([]types.MessageContent, error) {
	return nil, s.err
}

func (s *stubMailbox) GetContentsByMessageIDs(context.Context, []string) ([]types.MessageContent, error) {
	return nil, s.err
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// serve runs the server over the given request lines and returns one decoded
// response per output line
func serve(t *testing.T, mb *stubMailbox, lines ...string) []rpcResponse {
	t.Helper()
	logger, _ := test.NewNullLogger()
	s := NewServer(&config.Config{SearchResultLimit: 100}, mb, logger)

	var out bytes.Buffer
	require.NoError(t, s.Serve(context.Background(), strings.NewReader(strings.Join(lines, "\n")), &out))

	var responses []rpcResponse
	scanner := bufio.NewScanner(&out)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var resp rpcResponse
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		assert.Equal(t, "2.0", resp.JSONRPC)
		responses = append(responses, resp)
	}
	require.NoError(t, scanner.Err())
	return responses
}

func TestServe_Handshake(t *testing.T) {
	responses := serve(t, &stubMailbox{},
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":"two","method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"ping"}`,
	)
	require.Len(t, responses, 3, "notifications get no response")

	var init struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
	}
	require.NoError(t, json.Unmarshal(responses[0].Result, &init))
	assert.Equal(t, protocolVersion, init.ProtocolVersion)
	assert.Equal(t, "mcp-imap-search", init.ServerInfo.Name)

	assert.JSONEq(t, `"two"`, string(responses[1].ID))
	var list struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(responses[1].Result, &list))
	require.Len(t, list.Tools, 7)
	assert.Equal(t, "search_emails", list.Tools[0].Name)

	assert.JSONEq(t, `{}`, string(responses[2].Result))
}

func TestServe_ToolCall(t *testing.T) {
	responses := serve(t, &stubMailbox{},
		`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"list_mailboxes","arguments":{}}}`,
	)
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(responses[0].Result, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.JSONEq(t, `{"summary":"Found 1 mailboxes","mailboxes":["INBOX"]}`, result.Content[0].Text)
}

func TestServe_ErrorCodes(t *testing.T) {
	failing := &stubMailbox{err: &email.ConnectionError{Addr: "imap:993", User: "alice", Err: errors.New("refused")}}
	responses := serve(t, failing,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"search_emails","arguments":{"limit":0}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"send_email","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"search_emails"}}`,
		`{"jsonrpc":"2.0","id":4,"method":"resources/list"}`,
		`{not json`,
	)
	require.Len(t, responses, 5)

	codes := make([]int, len(responses))
	for i, resp := range responses {
		require.NotNil(t, resp.Error, "response %d", i)
		codes[i] = resp.Error.Code
	}
	assert.Equal(t, []int{codeInvalidParams, codeMethodNotFound, codeInternalError, codeMethodNotFound, codeParseError}, codes)

	assert.True(t, strings.HasPrefix(responses[2].Error.Message, "search_emails failed:"))
	assert.Contains(t, responses[2].Error.Message, "refused")
	assert.JSONEq(t, `null`, string(responses[4].ID))
}

func TestServe_ToolFailureKeepsServing(t *testing.T) {
	responses := serve(t, &stubMailbox{err: errors.New("boom")},
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"test_connection"}}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	)
	require.Len(t, responses, 2)
	require.Nil(t, responses[0].Error, "a failed connection test is a result")
	assert.Contains(t, string(responses[0].Result), `failed`)
	assert.Nil(t, responses[1].Error)
}
