package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// ErrClosed is returned for commands issued after the IPC connection closed.
var ErrClosed = errors.New("mpv IPC connection closed")

// message is any line received from mpv: a command response or an event.
type message struct {
	// Response fields
	RequestID int64  `json:"request_id"`
	Error     string `json:"error"`

	// Event fields
	Event           string          `json:"event"`
	Name            string          `json:"name"`
	Reason          string          `json:"reason"`
	FileError       string          `json:"file_error"`
	PlaylistEntryID int64           `json:"playlist_entry_id"`
	Data            json.RawMessage `json:"data"`
}

type command struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// ipc speaks mpv's JSON IPC protocol over one connection.
type ipc struct {
	conn    net.Conn
	writeMu sync.Mutex
	nextID  atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan message
	closed  bool

	onEvent func(message)
	onClose func(error)
}

func newIPC(conn net.Conn, onEvent func(message), onClose func(error)) *ipc {
	c := &ipc{
		conn:    conn,
		pending: make(map[int64]chan message),
		onEvent: onEvent,
		onClose: onClose,
	}
	go c.read()
	return c
}

// call sends a command and waits for its response.
func (c *ipc) call(ctx context.Context, args ...any) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	respCh := make(chan message, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[id] = respCh
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	data, err := json.Marshal(command{Command: args, RequestID: id})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal command")
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	_, err = c.conn.Write(data)
	c.writeMu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "failed to write command")
	}

	select {
	case resp, ok := <-respCh:
		if !ok {
			return nil, ErrClosed
		}
		if resp.Error != "" && resp.Error != "success" {
			return nil, errors.Newf("mpv error: %s", resp.Error)
		}
		return resp.Data, nil
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "mpv command %v", args[0])
	}
}

func (c *ipc) read() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		var msg message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		if msg.Event != "" {
			c.onEvent(msg)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[msg.RequestID]
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
	}

	err := scanner.Err()
	c.mu.Lock()
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
	c.onClose(err)
}

func (c *ipc) close() error {
	return c.conn.Close()
}
