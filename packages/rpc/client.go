package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
)

// ErrClosed is returned by calls made on, or pending when, the connection closes.
var ErrClosed = errors.New("rpc connection closed")

var _ backend.Service = (*Client)(nil)

// Client is a backend.Service that forwards every call to a Server. It is
// safe for concurrent use.
type Client struct {
	conn   *websocket.Conn
	nextID atomic.Uint64

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint64]chan *Response
	err     error
	done    chan struct{}
}

// Dial connects to a Server at url (ws:// or wss://).
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	c := &Client{
		conn:    conn,
		pending: make(map[uint64]chan *Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close closes the connection. Pending calls fail with ErrClosed.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		var resp Response
		if err := c.conn.ReadJSON(&resp); err != nil {
			c.fail(err)
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if ok {
			ch <- &resp
		}
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = fmt.Errorf("%w: %v", ErrClosed, err)
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Client) call(ctx context.Context, op string, params, out any) error {
	req := Request{ID: c.nextID.Add(1), Op: op}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encoding %s params: %w", op, err)
		}
		req.Params = raw
	}

	ch := make(chan *Response, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return err
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err := c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err == nil {
		err = c.conn.WriteJSON(&req)
	}
	c.writeMu.Unlock()
	if err != nil {
		c.forget(req.ID)
		return fmt.Errorf("sending %s: %w", op, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			c.mu.Lock()
			defer c.mu.Unlock()
			return c.err
		}
		if resp.Error != nil {
			return resp.Error
		}
		if out != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("decoding %s result: %w", op, err)
			}
		}
		return nil
	case <-ctx.Done():
		c.forget(req.ID)
		return ctx.Err()
	}
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

func (c *Client) GetRootDirectory(ctx context.Context) (string, error) {
	var root string
	err := c.call(ctx, OpGetRootDirectory, nil, &root)
	return root, err
}

func (c *Client) SetRootDirectory(ctx context.Context, path string) error {
	return c.call(ctx, OpSetRootDirectory, pathParams{Path: path}, nil)
}

func (c *Client) ListFiles(ctx context.Context) ([]backend.FileEntry, error) {
	var files []backend.FileEntry
	err := c.call(ctx, OpListFiles, nil, &files)
	return files, err
}

func (c *Client) ReadFile(ctx context.Context, path string) (string, error) {
	var content string
	err := c.call(ctx, OpReadFile, pathParams{Path: path}, &content)
	return content, err
}

func (c *Client) WriteFile(ctx context.Context, path, content string) error {
	return c.call(ctx, OpWriteFile, writeParams{Path: path, Content: content}, nil)
}

func (c *Client) ParseFile(ctx context.Context, path string) ([]backend.RequestDefinition, error) {
	var defs []backend.RequestDefinition
	err := c.call(ctx, OpParseFile, pathParams{Path: path}, &defs)
	return defs, err
}

func (c *Client) ListEnvironments(ctx context.Context, path string) ([]string, error) {
	var names []string
	err := c.call(ctx, OpListEnvironments, pathParams{Path: path}, &names)
	return names, err
}

func (c *Client) GetEnvironment(ctx context.Context) (string, error) {
	var name string
	err := c.call(ctx, OpGetEnvironment, nil, &name)
	return name, err
}

func (c *Client) SetEnvironment(ctx context.Context, name string) error {
	return c.call(ctx, OpSetEnvironment, nameParams{Name: name}, nil)
}

func (c *Client) SelectFile(ctx context.Context, path string) error {
	return c.call(ctx, OpSelectFile, pathParams{Path: path}, nil)
}

func (c *Client) RunRequest(ctx context.Context, path string, index int, environment string) (*backend.ExecutionResult, error) {
	var result backend.ExecutionResult
	if err := c.call(ctx, OpRunRequest, runParams{Path: path, Index: index, Environment: environment}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) RunAll(ctx context.Context, path, environment string) ([]*backend.ExecutionResult, error) {
	var results []*backend.ExecutionResult
	err := c.call(ctx, OpRunAll, runParams{Path: path, Environment: environment}, &results)
	return results, err
}
