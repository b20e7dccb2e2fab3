package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/adasa/adasa/internal/config"
	"github.com/adasa/adasa/internal/dispatcher"
	"github.com/adasa/adasa/internal/logcapture"
	"github.com/adasa/adasa/internal/registry"
)

// DialTimeout bounds how long a client waits for the daemon's Unix socket
// to accept a connection, e.g. right after the daemon was just started.
const DialTimeout = 2 * time.Second

// Client issues one request per call, dialing socketPath fresh each time;
// the daemon serves exactly one request per connection (see Server.handleConn),
// so there is no persistent session to manage.
type Client struct {
	socketPath string
}

// NewClient returns a Client that dials socketPath on every call.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// ReplyError is returned when the daemon replies Ok: false, carrying the
// structured (Kind, Message) pair from ErrorPayload.
type ReplyError struct {
	Kind    string
	Message string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// DialError wraps a failure to reach the daemon's socket at all, distinct
// from a ReplyError (which means the daemon answered but rejected the
// request). Callers use this to distinguish "daemon unreachable" from every
// other failure mode.
type DialError struct {
	SocketPath string
	Err        error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("connect to daemon at %s: %v", e.SocketPath, e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }

// call dials the socket, writes req, and decodes the reply's payload into
// out (which may be nil if the caller doesn't need the payload).
func (c *Client) call(req Request, out interface{}) error {
	conn, err := net.DialTimeout("unix", c.socketPath, DialTimeout)
	if err != nil {
		return &DialError{SocketPath: c.socketPath, Err: err}
	}
	defer conn.Close()

	if err := writeFrame(conn, req); err != nil {
		return err
	}

	var reply Reply
	if err := readFrame(conn, &reply); err != nil {
		return fmt.Errorf("read daemon reply: %w", err)
	}
	if !reply.Ok {
		if reply.Error != nil {
			return &ReplyError{Kind: reply.Error.Kind, Message: reply.Error.Message}
		}
		return fmt.Errorf("daemon returned an unspecified error")
	}
	if out == nil || len(reply.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(reply.Payload, out)
}

// Start asks the daemon to start cfg, returning the per-instance result.
func (c *Client) Start(cfg *config.ProcessConfig) (*dispatcher.StartResult, error) {
	var result dispatcher.StartResult
	if err := c.call(Request{Kind: KindStart, Config: cfg}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StartFromConfig asks the daemon to load and start every process defined
// in the file at path.
func (c *Client) StartFromConfig(path string) (*dispatcher.ReloadResult, error) {
	var result dispatcher.ReloadResult
	if err := c.call(Request{Kind: KindStartFromConfig, Path: path}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReloadConfig asks the daemon to additively reload the file at path.
func (c *Client) ReloadConfig(path string) (*dispatcher.ReloadResult, error) {
	var result dispatcher.ReloadResult
	if err := c.call(Request{Kind: KindReloadConfig, Path: path}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Stop asks the daemon to stop every entry selector matches.
func (c *Client) Stop(selector string, force bool) error {
	return c.call(Request{Kind: KindStop, Selector: selector, Force: force}, nil)
}

// Restart asks the daemon to restart every entry selector matches.
func (c *Client) Restart(selector string, rolling bool) error {
	return c.call(Request{Kind: KindRestart, Selector: selector, Rolling: rolling}, nil)
}

// Delete asks the daemon to stop and remove every entry selector matches.
func (c *Client) Delete(selector string) error {
	return c.call(Request{Kind: KindDelete, Selector: selector}, nil)
}

// List returns every non-deleted managed process.
func (c *Client) List() ([]*registry.ManagedProcess, error) {
	var entries []*registry.ManagedProcess
	if err := c.call(Request{Kind: KindList}, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Status returns the entries selector resolves to.
func (c *Client) Status(selector string) ([]*registry.ManagedProcess, error) {
	var entries []*registry.ManagedProcess
	if err := c.call(Request{Kind: KindStatus, Selector: selector}, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Logs returns up to lines recent captured log lines, optionally filtered
// to one process name and/or stderr only.
func (c *Client) Logs(selector string, lines int, stderrOnly bool) ([]logcapture.Line, error) {
	var out []logcapture.Line
	req := Request{Kind: KindLogs, Selector: selector, Lines: lines, StderrOnly: stderrOnly}
	if err := c.call(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DaemonStatusReply is the payload of a daemon_status call.
type DaemonStatusReply struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// DaemonStatus asks the daemon whether it is up and how many processes it
// currently manages.
func (c *Client) DaemonStatus() (*DaemonStatusReply, error) {
	var out DaemonStatusReply
	if err := c.call(Request{Kind: KindDaemonStatus}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DaemonShutdown asks the daemon to begin a graceful shutdown.
func (c *Client) DaemonShutdown() error {
	return c.call(Request{Kind: KindDaemonShutdown}, nil)
}
