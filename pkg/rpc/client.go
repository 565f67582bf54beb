package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/tinyland-inc/wingmate/pkg/transport/ipc"
)

// ErrDaemonNotRunning means the control socket does not exist.
var ErrDaemonNotRunning = errors.New("daemon is not running (no socket found)")

// Client talks to a running gateway over its control socket. Each call
// opens a fresh connection; the server tolerates both that and long-lived
// connections.
type Client struct {
	socketPath string
	timeout    time.Duration
}

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: 5 * time.Second}
}

// Available reports whether the control socket exists.
func (c *Client) Available() bool {
	_, err := os.Stat(c.socketPath)
	return err == nil
}

// Call sends one request and decodes the result into out (pass nil to
// discard). A structured error from the server comes back as a plain
// error.
func (c *Client) Call(method string, params map[string]any, out any) error {
	if !c.Available() {
		return ErrDaemonNotRunning
	}

	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(c.timeout)
	conn.SetDeadline(deadline)

	frame, err := encodeFrame(Request{
		ID:     uuid.NewString(),
		Method: method,
		Params: params,
	})
	if err != nil {
		return err
	}
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	var fb ipc.FrameBuffer
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			frames := fb.Feed(buf[:n])
			if len(frames) > 0 {
				return decodeResponse(frames[0], out)
			}
		}
		if err != nil {
			return fmt.Errorf("connection closed by daemon: %w", err)
		}
	}
}

func decodeResponse(frame []byte, out any) error {
	var resp struct {
		ID     string          `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  *string         `json:"error"`
	}
	if err := json.Unmarshal(frame, &resp); err != nil {
		return fmt.Errorf("invalid response from daemon: %w", err)
	}
	if resp.Error != nil {
		return errors.New(*resp.Error)
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Result, out)
}

// Ping reports whether the daemon is responsive.
func (c *Client) Ping() bool {
	var result struct {
		Pong bool `json:"pong"`
	}
	if err := c.Call("ping", nil, &result); err != nil {
		return false
	}
	return result.Pong
}

// Status returns the daemon's status report.
func (c *Client) Status() (StatusResult, error) {
	var st StatusResult
	err := c.Call("get_status", nil, &st)
	return st, err
}

// SendMessage asks the daemon to send text to a chat, bypassing the
// pipeline's gates.
func (c *Client) SendMessage(platform, chatID, text string) error {
	var result struct {
		Success bool `json:"success"`
	}
	err := c.Call("send_message", map[string]any{
		"platform": platform,
		"jid":      chatID,
		"text":     text,
	}, &result)
	if err != nil {
		return err
	}
	if !result.Success {
		return errors.New("daemon reported send failure")
	}
	return nil
}

// Pause suspends replying; a zero duration pauses until resume.
func (c *Client) Pause(d time.Duration) error {
	params := map[string]any{}
	if d > 0 {
		params["duration"] = d.Seconds()
	}
	return c.Call("pause", params, nil)
}

// Resume clears a pause.
func (c *Client) Resume() error {
	return c.Call("resume", nil, nil)
}

// ListActiveChats returns the daemon's most recently active chats.
func (c *Client) ListActiveChats(limit int) ([]ChatInfo, error) {
	var result struct {
		Chats []ChatInfo `json:"chats"`
	}
	err := c.Call("list_active_chats", map[string]any{"limit": limit}, &result)
	return result.Chats, err
}
