package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// ErrNotConnected is returned when the daemon socket cannot be reached
var ErrNotConnected = errors.New("daemon not running")

const dialTimeout = 2 * time.Second

// Client talks to a running daemon over its socket
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex

	// Pushes read while waiting for a response
	pending []*PushMessage
}

// Dial connects to the daemon at socketPath
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w at %s: %v", ErrNotConnected, socketPath, err)
	}
	return &Client{conn: conn, reader: bufio.NewReader(conn)}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call sends cmd with data and decodes the response payload into out,
// which may be nil. Push messages arriving before the response are held for
// Subscribe.
func (c *Client) Call(cmd CommandType, data interface{}, out interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, err := NewRequest(cmd, data)
	if err != nil {
		return err
	}
	line, err := EncodeRequest(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	if _, err := c.conn.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to send %s: %w", cmd, err)
	}

	for {
		raw, err := c.reader.ReadBytes('\n')
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if msg, ok := DecodePush(raw); ok {
			c.pending = append(c.pending, msg)
			continue
		}

		resp, err := DecodeResponse(raw)
		if err != nil {
			return err
		}
		if !resp.Success {
			return errors.New(resp.Error)
		}
		if out != nil && len(resp.Data) > 0 {
			if err := json.Unmarshal(resp.Data, out); err != nil {
				return fmt.Errorf("failed to decode %s response: %w", cmd, err)
			}
		}
		return nil
	}
}

// Subscribe requests the event stream and calls fn for each push message
// until ctx is cancelled or the connection drops
func (c *Client) Subscribe(ctx context.Context, fn func(*PushMessage)) error {
	var sub SubscribeResponse
	if err := c.Call(CmdSubscribe, nil, &sub); err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, msg := range c.pending {
		fn(msg)
	}
	c.pending = nil

	for {
		raw, err := c.reader.ReadBytes('\n')
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("event stream closed: %w", err)
		}
		if msg, ok := DecodePush(raw); ok {
			fn(msg)
		}
	}
}
