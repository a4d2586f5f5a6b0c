package singleinstance

// This file defines the API for single-instance ownership and command
// delegation: a second invocation forwards its command to the resident
// process instead of starting another overlay.

import (
	"context"
)

// Command names accepted over the wire.
const (
	CmdHighlight = "HIGHLIGHT"
	CmdGuide     = "GUIDE"
	CmdReply     = "REPLY"
	CmdStop      = "STOP"
)

// Server owns the TCP endpoint and answers delegated commands.
type Server interface {
	// Start begins listening on the first port of the configured range and
	// accepting client requests.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	// Request returns the parsed client request.
	Request() Request
	// RespondSuccess sends success with optional response text.
	RespondSuccess(text string) error
	// RespondError sends an error with human-readable message.
	RespondError(msg string) error
	// Close closes the underlying connection.
	Close() error
}

// Request is one delegated command: the verb plus its free-text argument
// (highlight target, guidance goal, or reply text; empty for STOP).
type Request struct {
	Command  string
	Argument string
}

// Client attempts to delegate a command to a resident server.
type Client interface {
	// Delegate scans the TCP range, performs the PING handshake, and
	// forwards the command. If no resident is found, returns
	// delegated=false, err=nil.
	Delegate(ctx context.Context, command, argument string) (delegated bool, text string, err error)
}

// NewServer returns TCP implementation.
func NewServer() Server { return newTcpServer() }

// NewClient returns TCP implementation.
func NewClient() Client { return newTcpClient() }
