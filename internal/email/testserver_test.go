package email

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net"
	"testing"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mcp-imap-search/internal/config"
)

// The memory backend ships with user "username" and one INBOX message:
// UID 6, Message-ID <0000000@localhost/>, sent in May 2016.
const (
	testUser     = "username"
	testPassword = "password"
	seededUID    = 6
)

type testMessage struct {
	folder  string
	id      string
	from    string
	subject string
	body    string
	date    time.Time
	flags   []string
	// noDate leaves out the Date header; date is still the internal date
	noDate bool
}

func (m testMessage) raw() string {
	from := m.from
	if from == "" {
		from = "Alice Example <alice@example.org>"
	}
	date := "Date: " + m.date.Format(time.RFC1123Z) + "\r\n"
	if m.noDate {
		date = ""
	}
	return "From: " + from + "\r\n" +
		"To: team@example.org\r\n" +
		"Subject: " + m.subject + "\r\n" +
		date +
		"Message-ID: <" + m.id + ">\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		m.body + "\r\n"
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s+" 12:00")
	if err != nil {
		panic(err)
	}
	return t
}

// startTestServer seeds an in-memory IMAP server and returns a config that
// points at it. Folders are created before messages are appended; the server
// is stopped when the test ends.
func startTestServer(t *testing.T, folders []string, messages []testMessage) *config.Config {
	t.Helper()

	be := memory.New()
	user, err := be.Login(nil, testUser, testPassword)
	require.NoError(t, err)

	for _, name := range folders {
		require.NoError(t, user.CreateMailbox(name))
	}
	for _, msg := range messages {
		mbox, err := user.GetMailbox(msg.folder)
		require.NoError(t, err, "folder %s", msg.folder)
		require.NoError(t, mbox.CreateMessage(msg.flags, msg.date, bytes.NewBufferString(msg.raw())))
	}

	s := server.New(be)
	s.AllowInsecureAuth = true
	s.ErrorLog = log.New(io.Discard, "", 0)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(ln) //nolint:errcheck
	t.Cleanup(func() { s.Close() })

	return testConfig(ln.Addr().(*net.TCPAddr).Port, testPassword)
}

func testConfig(port int, password string) *config.Config {
	return &config.Config{
		Mailbox: config.MailboxConfig{
			Host:           "127.0.0.1",
			Port:           port,
			Secure:         false,
			Username:       testUser,
			Password:       password,
			AuthMechanism:  config.AuthAuto,
			DialTimeout:    5 * time.Second,
			CommandTimeout: 10 * time.Second,
		},
		SearchResultLimit: 100,
		ContentFormat:     config.ContentFormatFull,
		SummaryLength:     500,
		LogLevel:          "debug",
		LogFormat:         "json",
	}
}

// closedPort returns a loopback port nothing listens on
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func nullLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger
}

func messageID(n int) string {
	return fmt.Sprintf("msg-%03d@example.org", n)
}
