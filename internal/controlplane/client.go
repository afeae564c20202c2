package controlplane

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wayvnc-go/wayvnc/internal/logger"
)

// WaitForever and WaitNone are the socket-wait timeout sentinels:
// -1 means wait forever, 0 means fail fast.
const (
	WaitForever = -1
	WaitNone    = 0
)

const socketPollInterval = 50 * time.Millisecond

// WaitForSocket polls path every 50ms until it exists and is a socket.
// timeout follows the WaitForever/WaitNone/positive-duration
// convention; a positive value is an absolute deadline from now.
func WaitForSocket(path string, timeout time.Duration) error {
	deadline := time.Time{}
	if timeout == WaitNone {
		return probeSocket(path)
	}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		if err := probeSocket(path); err == nil {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return fmt.Errorf("controlplane: timed out waiting for %s", path)
		}
		time.Sleep(socketPollInterval)
	}
}

func probeSocket(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("controlplane: %s exists and is not a socket", path)
	}
	return nil
}

// EventHandler receives events and the client's two synthetic lifecycle
// events: "wayvnc-shutdown" on
// ECONNRESET, "wayvnc-startup" once reconnected.
type EventHandler func(method string, params json.RawMessage)

// SyntheticShutdownEvent and SyntheticStartupEvent are the client's own
// lifecycle markers, never sent by the server.
const (
	SyntheticShutdownEvent = "wayvnc-shutdown"
	SyntheticStartupEvent  = "wayvnc-startup"
)

// Client is the control-plane client: request/response dialect matching
// the server, plus a reconnect loop for the long-lived event stream.
type Client struct {
	path string

	mu     sync.Mutex
	conn   net.Conn
	dec    *json.Decoder
	nextID int64

	pending map[string]chan Response

	stopping atomic.Bool
}

// Dial connects to path without waiting for it to appear.
func Dial(path string) (*Client, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("controlplane: dial %s: %w", path, err)
	}
	return &Client{
		path:    path,
		conn:    conn,
		dec:     json.NewDecoder(conn),
		pending: make(map[string]chan Response),
	}, nil
}

// Call issues a request and blocks for its response. Not safe to call
// concurrently with Run's event-reading loop over the same connection —
// a connection is either a request/response client or an event
// subscriber, not interleaved freely — so callers that need both issue
// `event-receive` and then only use Run/EventHandler.
func (c *Client) Call(method string, params any) (Response, error) {
	id := fmt.Sprintf("%d", atomic.AddInt64(&c.nextID, 1))

	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return Response{}, fmt.Errorf("controlplane: marshal params: %w", err)
		}
		raw = b
	}

	req := Request{Method: method, Params: raw, ID: id}
	b, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("controlplane: marshal request: %w", err)
	}

	c.mu.Lock()
	conn := c.conn
	dec := c.dec
	c.mu.Unlock()

	if _, err := conn.Write(b); err != nil {
		return Response{}, fmt.Errorf("controlplane: write request: %w", err)
	}

	for {
		var resp Response
		if err := dec.Decode(&resp); err != nil {
			return Response{}, fmt.Errorf("controlplane: read response: %w", err)
		}
		// Events interleave with responses on a subscribed connection;
		// skip any that arrive before our own response.
		if resp.ID == nil && resp.Code == 0 && resp.Data == nil {
			continue
		}
		if fmt.Sprintf("%v", resp.ID) != id {
			continue
		}
		return resp, nil
	}
}

// Register marks this connection as an event subscriber.
func (c *Client) Register() error {
	_, err := c.Call(MethodEventReceive, nil)
	return err
}

// Run drives the event-receive loop: decode every incoming event (a
// Request-shaped object with a Method and no ID) and hand it to handler.
// On ECONNRESET it implements the reconnect loop: emit a
// synthetic wayvnc-shutdown, retry connect+register every 500ms, then
// emit wayvnc-startup and resume. Stop cooperatively ends the loop after
// the current poll, never mid-parse.
func (c *Client) Run(handler EventHandler) error {
	for !c.stopping.Load() {
		if err := c.runOnce(handler); err != nil {
			if c.stopping.Load() {
				return nil
			}
			handler(SyntheticShutdownEvent, nil)
			if err := c.reconnect(); err != nil {
				return fmt.Errorf("controlplane: reconnect: %w", err)
			}
			handler(SyntheticStartupEvent, nil)
		}
	}
	return nil
}

func (c *Client) runOnce(handler EventHandler) error {
	c.mu.Lock()
	dec := c.dec
	c.mu.Unlock()

	for !c.stopping.Load() {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return err
			}
			return err
		}
		handler(req.Method, req.Params)
	}
	return nil
}

// reconnect retries Dial+Register every 500ms until it succeeds; Run then
// emits the synthetic wayvnc-startup event so its caller knows the stream
// resumed.
func (c *Client) reconnect() error {
	const retryInterval = 500 * time.Millisecond
	for {
		if c.stopping.Load() {
			return fmt.Errorf("controlplane: stopped during reconnect")
		}
		conn, err := net.Dial("unix", c.path)
		if err != nil {
			logger.Debugf("controlplane: reconnect failed, retrying: %v", err)
			time.Sleep(retryInterval)
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.dec = json.NewDecoder(conn)
		c.mu.Unlock()

		if err := c.Register(); err != nil {
			conn.Close()
			time.Sleep(retryInterval)
			continue
		}
		return nil
	}
}

// Stop clears the event-loop flag cooperatively: the loop finishes its current poll, it is not
// interrupted mid-parse.
func (c *Client) Stop() {
	c.stopping.Store(true)
}

// Close cancels pending writes and closes the connection.
func (c *Client) Close() error {
	c.Stop()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
