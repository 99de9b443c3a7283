package email

import (
	"errors"
	"fmt"
)

// ConnectionError indicates the IMAP session could not be established
// (network, TLS or authentication failure). It aborts the whole operation.
type ConnectionError struct {
	Addr string
	User string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("imap connection to %s as %s failed: %v", e.Addr, e.User, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError indicates the server rejected a session-level command such as LIST.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("imap %s failed: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// FolderError indicates a single folder could not be opened or searched.
// Callers skip the folder and continue.
type FolderError struct {
	Folder string
	Op     string
	Err    error
}

func (e *FolderError) Error() string {
	return fmt.Sprintf("folder %q: %s failed: %v", e.Folder, e.Op, e.Err)
}

func (e *FolderError) Unwrap() error { return e.Err }

// ParseError indicates a single message could not be fetched or parsed.
// It is reported through a placeholder, never returned for the batch.
type ParseError struct {
	Folder string
	UID    uint32
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("message %d in %q: %v", e.UID, e.Folder, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError indicates malformed caller arguments. It is raised before
// any connection attempt.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsConnectionError reports whether err (or any error in its chain) is a ConnectionError.
func IsConnectionError(err error) bool {
	var target *ConnectionError
	return errors.As(err, &target)
}

// IsFolderError reports whether err (or any error in its chain) is a FolderError.
func IsFolderError(err error) bool {
	var target *FolderError
	return errors.As(err, &target)
}

// IsProtocolError reports whether err (or any error in its chain) is a ProtocolError.
func IsProtocolError(err error) bool {
	var target *ProtocolError
	return errors.As(err, &target)
}

// IsValidationError reports whether err (or any error in its chain) is a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

var errEmptyMessage = errors.New("empty message body")
var errMessageNotFound = errors.New("message not found")
