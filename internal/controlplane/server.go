package controlplane

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/wayvnc-go/wayvnc/internal/logger"
)

// Dispatcher handles one decoded request and returns either success data
// or an RPCError. Implemented by
// internal/publish's command-table glue, kept out of this package so
// controlplane has no dependency on the capture/publish graph.
type Dispatcher interface {
	Dispatch(client *Client, method string, params json.RawMessage) (data json.RawMessage, err *RPCError)
}

// sendPriority orders outbound writes: FIFO for normal
// responses/events, IMMEDIATE (index 0) for internal errors.
type sendPriority int

const (
	priorityFIFO sendPriority = iota
	priorityImmediate
)

// Client is one connected control socket peer.
type Client struct {
	conn   net.Conn
	server *Server

	mu               sync.Mutex
	outbox           [][]byte
	partial          []byte
	isEventSubscriber bool
	dropAfterSend    bool

	writable chan struct{}
}

// IsEventSubscriber reports whether this client issued `event-receive`.
func (c *Client) IsEventSubscriber() bool { return c.isEventSubscriber }

// send enqueues msg at the given priority and wakes the writer goroutine.
func (c *Client) send(msg []byte, prio sendPriority) {
	c.mu.Lock()
	if prio == priorityImmediate {
		c.outbox = append([][]byte{msg}, c.outbox...)
	} else {
		c.outbox = append(c.outbox, msg)
	}
	c.mu.Unlock()
	select {
	case c.writable <- struct{}{}:
	default:
	}
}

// SendEvent delivers an unsolicited event to this client if it is
// subscribed.
func (c *Client) SendEvent(method string, params any) {
	if !c.isEventSubscriber {
		return
	}
	raw, err := json.Marshal(params)
	if err != nil {
		logger.Errorf("controlplane: marshal event %s: %v", method, err)
		return
	}
	ev := Event{Method: method, Params: raw}
	b, err := json.Marshal(ev)
	if err != nil {
		logger.Errorf("controlplane: marshal event envelope %s: %v", method, err)
		return
	}
	c.send(b, priorityFIFO)
}

func (c *Client) sendResponse(resp Response) {
	b, err := json.Marshal(resp)
	if err != nil {
		logger.Errorf("controlplane: marshal response: %v", err)
		c.sendInternalError(fmt.Errorf("marshal response: %w", err))
		return
	}
	c.send(b, priorityFIFO)
}

// sendInternalError implements the send policy for internal
// errors: IMMEDIATE priority, and the client is closed once the buffer
// empties.
func (c *Client) sendInternalError(err error) {
	b, marshalErr := json.Marshal(Response{Code: CodeEIO, Data: newErrorData(err.Error())})
	if marshalErr != nil {
		logger.Errorf("controlplane: marshal internal error: %v", marshalErr)
		return
	}
	c.mu.Lock()
	c.dropAfterSend = true
	c.mu.Unlock()
	c.send(b, priorityImmediate)
}

// Server is the Unix-socket control-plane server.
type Server struct {
	path       string
	listener   net.Listener
	dispatcher Dispatcher

	mu      sync.Mutex
	clients map[*Client]struct{}

	wg     sync.WaitGroup
	quit   chan struct{}
}

// New binds a control-plane server at path, handling stale-socket
// recovery: if the path exists and is not a socket, refuse; if it is a
// socket, try to connect — success means another instance is live
// (refuse), failure means stale (unlink and retry bind).
func New(path string, dispatcher Dispatcher) (*Server, error) {
	if err := checkStaleSocket(path); err != nil {
		return nil, err
	}

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("controlplane: listen on %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		l.Close()
		return nil, fmt.Errorf("controlplane: chmod %s: %w", path, err)
	}

	return &Server{
		path:       path,
		listener:   l,
		dispatcher: dispatcher,
		clients:    make(map[*Client]struct{}),
		quit:       make(chan struct{}),
	}, nil
}

// checkStaleSocket distinguishes a live listener's socket from one left
// behind by a crashed process.
func checkStaleSocket(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("controlplane: stat %s: %w", path, err)
	}

	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("controlplane: %s exists and is not a socket; remove it manually", path)
	}

	conn, err := net.DialTimeout("unix", path, 200*time.Millisecond)
	if err == nil {
		conn.Close()
		return fmt.Errorf("controlplane: another instance is already listening on %s", path)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("controlplane: remove stale socket %s: %w", path, err)
	}
	return nil
}

// Serve runs the accept loop until Close is called. Each connected client
// gets its own read and write goroutine, since this protocol needs to push
// unsolicited events, not just reply request-by-request.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
				return fmt.Errorf("controlplane: accept: %w", err)
			}
		}

		client := &Client{conn: conn, server: s, writable: make(chan struct{}, 1)}
		s.mu.Lock()
		s.clients[client] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(2)
		go s.readLoop(client)
		go s.writeLoop(client)
	}
}

// readLoop stream-decodes concatenated JSON objects from the connection
// with a json.Decoder, which buffers as much input as one object needs.
// No per-request size limit is enforced; a decode error other than EOF or
// a reset connection is answered with an EIO internal error.
func (s *Server) readLoop(c *Client) {
	defer s.wg.Done()
	defer s.removeClient(c)

	dec := json.NewDecoder(io.LimitReader(c.conn, 1<<40))

	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) || isConnReset(err) {
				return
			}
			c.sendInternalError(fmt.Errorf("parse_error: %w", err))
			return
		}
		s.handleRequest(c, req)
	}
}

func isConnReset(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, syscall.ECONNRESET)
}

func isKnownMethod(method string) bool {
	for _, m := range AllMethods {
		if m == method {
			return true
		}
	}
	return false
}

func (s *Server) handleRequest(c *Client, req Request) {
	if req.Method == MethodEventReceive {
		c.mu.Lock()
		c.isEventSubscriber = true
		c.mu.Unlock()
		c.sendResponse(Response{Code: CodeOK, ID: req.ID})
		return
	}

	if !isKnownMethod(req.Method) {
		c.sendResponse(Response{
			Code: CodeENOENT,
			Data: newCommandsErrorData(fmt.Sprintf("unknown method %q", req.Method), AllMethods),
			ID:   req.ID,
		})
		return
	}

	data, rpcErr := s.dispatcher.Dispatch(c, req.Method, req.Params)
	if rpcErr != nil {
		c.sendResponse(Response{Code: rpcErr.Code, Data: newErrorData(rpcErr.Message), ID: req.ID})
		return
	}
	c.sendResponse(Response{Code: CodeOK, Data: data, ID: req.ID})
}

// writeLoop drains c's outbox, resuming partial writes across wake-ups,
// and closes the connection once dropAfterSend empties the buffer.
func (s *Server) writeLoop(c *Client) {
	defer s.wg.Done()
	w := bufio.NewWriter(c.conn)

	for {
		c.mu.Lock()
		if len(c.partial) == 0 && len(c.outbox) > 0 {
			c.partial = c.outbox[0]
			c.outbox = c.outbox[1:]
		}
		partial := c.partial
		shouldDrop := c.dropAfterSend && len(c.outbox) == 0 && len(partial) == 0
		c.mu.Unlock()

		if shouldDrop {
			c.conn.Close()
			return
		}

		if len(partial) == 0 {
			select {
			case <-c.writable:
				continue
			case <-s.quit:
				return
			}
		}

		n, err := w.Write(partial)
		if err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
		c.mu.Lock()
		c.partial = c.partial[n:]
		c.mu.Unlock()
	}
}

func (s *Server) removeClient(c *Client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.conn.Close()
}

// BroadcastEvent delivers an event to every subscribed client.
func (s *Server) BroadcastEvent(method string, params any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.SendEvent(method, params)
	}
}

// Close shuts the server down: stops accepting, closes every client, and
// removes the socket file.
func (s *Server) Close() error {
	close(s.quit)
	err := s.listener.Close()

	s.mu.Lock()
	for c := range s.clients {
		c.conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	os.Remove(s.path)
	return err
}
