package email

import (
	"context"
	"fmt"
	"net"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-sasl"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-imap-search/internal/config"
)

func init() {
	// Decode non-UTF-8 encoded words in envelopes (subjects, display names)
	imap.CharsetReader = charset.Reader
}

// IMAPClient wraps a single authenticated IMAP session. It serves exactly one
// top-level operation and must be closed on every exit path.
type IMAPClient struct {
	config    *config.MailboxConfig
	client    *client.Client
	logger    *logrus.Logger
	connected bool
	selected  string
	stopWatch func() bool
}

// NewIMAPClient creates a new IMAP client (does not connect immediately)
func NewIMAPClient(cfg *config.MailboxConfig, logger *logrus.Logger) *IMAPClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &IMAPClient{
		config: cfg,
		logger: logger,
	}
}

// Connect establishes an authenticated session. It is a no-op when the client
// is already connected. Cancelling ctx afterwards tears down the connection,
// aborting whatever command is in flight.
func (c *IMAPClient) Connect(ctx context.Context) error {
	if c.connected && c.client != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return c.connErr(err)
	}

	dialer := &net.Dialer{Timeout: c.config.DialTimeout}
	addr := c.config.Addr()

	var (
		cl  *client.Client
		err error
	)
	if c.config.Secure {
		cl, err = client.DialWithDialerTLS(dialer, addr, c.config.TLSConfig())
	} else {
		cl, err = client.DialWithDialer(dialer, addr)
	}
	if err != nil {
		return c.connErr(fmt.Errorf("failed to connect to IMAP server: %w", err))
	}

	cl.ErrorLog = c.logger.WithField("component", "imap")
	cl.Timeout = c.config.CommandTimeout
	c.client = cl
	c.stopWatch = context.AfterFunc(ctx, func() {
		cl.Terminate() //nolint:errcheck
	})

	if !c.config.Secure && c.config.StartTLS {
		if err := cl.StartTLS(c.config.TLSConfig()); err != nil {
			c.abort()
			return c.connErr(fmt.Errorf("failed to negotiate STARTTLS: %w", err))
		}
	}

	if err := c.authenticate(); err != nil {
		c.logger.WithError(err).WithField("user", c.config.Username).Error("Failed to login to IMAP server")
		c.abort()
		return c.connErr(fmt.Errorf("failed to login to IMAP server: %w", err))
	}

	c.connected = true
	c.logger.WithField("server", c.config.Addr()).Debug("Connected to IMAP server")
	return nil
}

// authenticate prefers SASL PLAIN when the server advertises it, LOGIN otherwise
func (c *IMAPClient) authenticate() error {
	mech := c.config.AuthMechanism
	if mech == config.AuthAuto || mech == config.AuthPlain {
		ok, err := c.client.SupportAuth(sasl.Plain)
		if err != nil {
			return err
		}
		if ok {
			return c.client.Authenticate(sasl.NewPlainClient("", c.config.Username, c.config.Password))
		}
		if mech == config.AuthPlain {
			return fmt.Errorf("server does not support AUTH=PLAIN")
		}
	}
	return c.client.Login(c.config.Username, c.config.Password)
}

func (c *IMAPClient) connErr(err error) error {
	return &ConnectionError{Addr: c.config.Addr(), User: c.config.Username, Err: err}
}

// abort drops the underlying connection without a LOGOUT exchange
func (c *IMAPClient) abort() {
	if c.stopWatch != nil {
		c.stopWatch()
		c.stopWatch = nil
	}
	if c.client != nil {
		c.client.Terminate() //nolint:errcheck
		c.client = nil
	}
	c.connected = false
	c.selected = ""
}

// Close logs out and releases the session. Safe to call when never connected.
func (c *IMAPClient) Close() error {
	if c.client == nil {
		return nil
	}
	if c.stopWatch != nil {
		c.stopWatch()
		c.stopWatch = nil
	}

	err := c.client.Logout()
	if err != nil {
		c.client.Terminate() //nolint:errcheck
	}
	c.client = nil
	c.connected = false
	c.selected = ""
	if err == client.ErrAlreadyLoggedOut {
		return nil
	}
	return err
}

// Connected reports whether the client holds an authenticated session
func (c *IMAPClient) Connected() bool {
	return c.connected && c.client != nil
}

// lost reports whether the session went away underneath an operation
func (c *IMAPClient) lost() bool {
	if c.client == nil {
		return true
	}
	select {
	case <-c.client.LoggedOut():
		return true
	default:
		return false
	}
}

// ListFolders returns every folder the server reports, flattened depth-first
func (c *IMAPClient) ListFolders(ctx context.Context) ([]string, error) {
	tree, err := c.FolderTree(ctx)
	if err != nil {
		return nil, err
	}
	return Flatten(tree), nil
}

// FolderTree lists all mailboxes and arranges them by hierarchy
func (c *IMAPClient) FolderTree(ctx context.Context) ([]*FolderNode, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.client.List("", "*", mailboxes)
	}()

	var infos []*imap.MailboxInfo
	for m := range mailboxes {
		infos = append(infos, m)
	}

	if err := <-done; err != nil {
		return nil, &ProtocolError{Op: "LIST", Err: contextOr(ctx, err)}
	}

	return BuildFolderTree(infos), nil
}

// OpenFolder selects a folder read-only. No flag is ever changed through it.
func (c *IMAPClient) OpenFolder(ctx context.Context, name string) (*imap.MailboxStatus, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	status, err := c.client.Select(name, true)
	if err != nil {
		c.selected = ""
		return nil, &FolderError{Folder: name, Op: "open", Err: contextOr(ctx, err)}
	}
	c.selected = name
	return status, nil
}

// SearchUIDs runs a UID SEARCH in the currently open folder
func (c *IMAPClient) SearchUIDs(ctx context.Context, criteria *imap.SearchCriteria) ([]uint32, error) {
	if c.selected == "" {
		return nil, fmt.Errorf("no folder open")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	uids, err := c.client.UidSearch(criteria)
	if err != nil {
		return nil, &FolderError{Folder: c.selected, Op: "search", Err: contextOr(ctx, err)}
	}
	return uids, nil
}

// uidFetch issues one UID FETCH and hands every delivered message to fn.
// It returns only after the server completed the command and the message
// channel has been drained.
func (c *IMAPClient) uidFetch(ctx context.Context, uids []uint32, items []imap.FetchItem, fn func(*imap.Message)) error {
	if c.selected == "" {
		return fmt.Errorf("no folder open")
	}
	if len(uids) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.client.UidFetch(seqSet, items, messages)
	}()

	for msg := range messages {
		fn(msg)
	}

	if err := <-done; err != nil {
		return &FolderError{Folder: c.selected, Op: "fetch", Err: contextOr(ctx, err)}
	}
	return nil
}

// contextOr prefers the context error when the failure was caused by cancellation
func contextOr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w (%v)", ctxErr, err)
	}
	return err
}
