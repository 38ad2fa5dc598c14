// Package discord provides a client for Discord's local IPC socket,
// enabling Rich Presence updates via the SET_ACTIVITY command.
//
// The [Client] type manages connection lifecycle, command framing, and
// response matching. Platform-specific socket discovery is handled by
// conn_unix.go and conn_windows.go.
package discord

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/google/uuid"
)

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

// ErrNotConnected is returned when an operation requires an active connection.
var ErrNotConnected = errors.New("not connected")

// ErrHandshakeRejected is returned when Discord answers the handshake with an
// ERROR event or closes the socket instead of dispatching READY.
var ErrHandshakeRejected = errors.New("handshake rejected")

// ErrActivityRejected is returned when Discord answers a command with an
// ERROR event, e.g. for a malformed activity payload.
var ErrActivityRejected = errors.New("activity rejected")

// ErrClosedByPeer is returned when Discord sends a CLOSE frame. The client
// drops the connection; a later [Client.Connect] or [Client.Reconnect] is
// required.
var ErrClosedByPeer = errors.New("connection closed by discord")

// ///////////////////////////////////////////////
// Data Types
// ///////////////////////////////////////////////

// Assets holds image keys and tooltip text for an activity.
type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Party describes the size of the group the user is in.
type Party struct {
	ID   string `json:"id,omitempty"`
	Size [2]int `json:"size"`
}

// Activity represents a Discord Rich Presence activity.
type Activity struct {
	Details string  `json:"details,omitempty"`
	State   string  `json:"state,omitempty"`
	Party   *Party  `json:"party,omitempty"`
	Assets  *Assets `json:"assets,omitempty"`
}

// response is the subset of a command response frame the client inspects.
type response struct {
	Cmd   string          `json:"cmd"`
	Evt   string          `json:"evt"`
	Nonce string          `json:"nonce"`
	Data  json.RawMessage `json:"data"`
}

// errorData is the payload of an ERROR event.
type errorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Client manages a connection to Discord's IPC socket.
type Client struct {
	// appID is the Discord application (OAuth2 client) identifier.
	appID string
	// dial opens a raw IPC connection. Defaults to connectToDiscord.
	dial func() (net.Conn, error)

	// mu protects conn from concurrent access.
	mu sync.Mutex
	// conn is the active IPC socket connection, or nil when disconnected.
	conn net.Conn
}

// NewClient creates a new Discord IPC client for the given application ID.
func NewClient(appID string) *Client {
	return &Client{appID: appID, dial: connectToDiscord}
}

// Connect establishes a connection to Discord via IPC and sends the handshake.
// Any existing connection is closed first.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

// Reconnect drops the current connection, if any, and connects again.
func (c *Client) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

// connectLocked dials and handshakes. The caller must hold c.mu.
func (c *Client) connectLocked() error {
	c.dropLocked()

	conn, err := c.dial()
	if err != nil {
		return err
	}
	c.conn = conn

	if err := c.handshake(); err != nil {
		c.dropLocked()
		return err
	}
	return nil
}

// SetActivity sends a SET_ACTIVITY command to Discord and waits for the
// matching response.
func (c *Client) SetActivity(activity *Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.command("SET_ACTIVITY", map[string]any{
		"pid":      os.Getpid(),
		"activity": activity,
	})
}

// Close clears the activity and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	// Best-effort clear before closing. Only the write is attempted so a
	// wedged peer cannot hold Close open.
	_, _ = c.writeCommand("SET_ACTIVITY", map[string]any{
		"pid":      os.Getpid(),
		"activity": nil,
	})
	if c.conn == nil {
		// The write failed and already dropped the connection.
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	return err
}

// dropLocked closes and forgets the current connection. The caller must
// hold c.mu.
func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// handshake sends the initial handshake frame to Discord and validates the
// response. The caller must hold c.mu.
func (c *Client) handshake() error {
	payload, err := json.Marshal(map[string]any{
		"v":         1,
		"client_id": c.appID,
	})
	if err != nil {
		return fmt.Errorf("marshaling handshake: %w", err)
	}

	frame, err := EncodeFrame(OpHandshake, payload)
	if err != nil {
		return fmt.Errorf("encoding handshake: %w", err)
	}
	if _, err = c.conn.Write(frame); err != nil {
		return fmt.Errorf("writing handshake: %w", err)
	}

	opcode, respData, err := DecodeFrame(c.conn)
	if err != nil {
		return fmt.Errorf("reading handshake response: %w", err)
	}
	if opcode == OpClose {
		return fmt.Errorf("%w: %s", ErrHandshakeRejected, closeReason(respData))
	}
	if opcode != OpFrame {
		return fmt.Errorf("unexpected handshake response opcode %v", opcode)
	}

	var resp response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return fmt.Errorf("parsing handshake response: %w", err)
	}
	if resp.Evt == "ERROR" {
		return fmt.Errorf("%w: %s", ErrHandshakeRejected, errorMessage(resp.Data))
	}
	if resp.Evt != "READY" {
		return fmt.Errorf("%w: expected READY, got %q", ErrHandshakeRejected, resp.Evt)
	}
	return nil
}

// command writes a command frame and reads frames until the response carrying
// the same nonce arrives. PING frames are answered with PONG and unrelated
// dispatches are skipped. The caller must hold c.mu.
func (c *Client) command(cmd string, args map[string]any) error {
	nonce, err := c.writeCommand(cmd, args)
	if err != nil {
		return err
	}

	for {
		opcode, data, err := DecodeFrame(c.conn)
		if err != nil {
			c.dropLocked()
			return fmt.Errorf("reading %s response: %w", cmd, err)
		}

		switch opcode {
		case OpPing:
			frame, encErr := EncodeFrame(OpPong, data)
			if encErr != nil {
				return fmt.Errorf("encoding pong: %w", encErr)
			}
			if _, err := c.conn.Write(frame); err != nil {
				c.dropLocked()
				return fmt.Errorf("writing pong: %w", err)
			}
			continue
		case OpClose:
			c.dropLocked()
			return fmt.Errorf("%w: %s", ErrClosedByPeer, closeReason(data))
		case OpFrame:
		default:
			continue
		}

		var resp response
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("parsing %s response: %w", cmd, err)
		}
		if resp.Nonce != nonce {
			continue
		}
		if resp.Evt == "ERROR" {
			return fmt.Errorf("%w: %s", ErrActivityRejected, errorMessage(resp.Data))
		}
		return nil
	}
}

// writeCommand writes a command frame tagged with a fresh nonce and returns
// the nonce. The caller must hold c.mu.
func (c *Client) writeCommand(cmd string, args map[string]any) (string, error) {
	if c.conn == nil {
		return "", ErrNotConnected
	}

	nonce := uuid.NewString()

	payload, err := json.Marshal(map[string]any{
		"cmd":   cmd,
		"args":  args,
		"nonce": nonce,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling command: %w", err)
	}

	frame, err := EncodeFrame(OpFrame, payload)
	if err != nil {
		return "", fmt.Errorf("encoding command: %w", err)
	}
	if _, err = c.conn.Write(frame); err != nil {
		c.dropLocked()
		return "", fmt.Errorf("writing command: %w", err)
	}
	return nonce, nil
}

// errorMessage extracts the message of an ERROR event payload.
func errorMessage(raw json.RawMessage) string {
	var d errorData
	if err := json.Unmarshal(raw, &d); err != nil || d.Message == "" {
		return "unknown error"
	}
	if d.Code != 0 {
		return fmt.Sprintf("%s (code %d)", d.Message, d.Code)
	}
	return d.Message
}

// closeReason extracts the reason of a CLOSE frame payload.
func closeReason(raw []byte) string {
	return errorMessage(raw)
}
