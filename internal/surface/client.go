// Package surface holds the client side of the coordinator protocol: the
// websocket connection shared by the popup and page surfaces, and the page
// surface controller that keeps the injected tab strip consistent.
package surface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"nhooyr.io/websocket"

	"github.com/lotas/setuptabs/internal/applog"
	"github.com/lotas/setuptabs/internal/coordinator"
	"github.com/lotas/setuptabs/internal/types"
)

// Client is a surface's connection to the coordinator. Requests carry a
// correlation ID; the read loop routes replies back to the waiting caller
// and hands ID-less pushes to OnNotify.
type Client struct {
	conn *websocket.Conn

	// OnNotify receives coordinator rebroadcasts. Set before Register;
	// called from the read loop goroutine.
	OnNotify func(coordinator.Message)

	mu      sync.Mutex
	nextID  int
	pending map[string]chan coordinator.Response
	closed  bool
}

// Dial connects to a coordinator websocket and starts the read loop.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial coordinator: %w", err)
	}
	c := &Client{
		conn:    conn,
		pending: make(map[string]chan coordinator.Response),
	}
	go c.readLoop(ctx)
	return c, nil
}

// Close tears down the connection; in-flight calls fail.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
	c.conn.Close(websocket.StatusNormalClosure, "")
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			c.Close()
			return
		}

		// A reply carries an id; a push carries only a message.
		var probe struct {
			ID      string               `json:"id"`
			Message *coordinator.Message `json:"message"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			applog.Error("client.parse", err)
			continue
		}

		if probe.ID == "" && probe.Message != nil {
			if c.OnNotify != nil {
				c.OnNotify(*probe.Message)
			}
			continue
		}

		var resp coordinator.Response
		if err := json.Unmarshal(data, &resp); err != nil {
			applog.Error("client.parse", err)
			continue
		}
		c.mu.Lock()
		ch := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if ch != nil {
			ch <- resp
		}
	}
}

func (c *Client) call(ctx context.Context, msg coordinator.Message) (coordinator.Response, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return coordinator.Response{}, errors.New("client closed")
	}
	c.nextID++
	id := strconv.Itoa(c.nextID)
	ch := make(chan coordinator.Response, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	env := coordinator.Envelope{ID: id, Message: msg}
	data, err := json.Marshal(env)
	if err != nil {
		return coordinator.Response{}, err
	}
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return coordinator.Response{}, fmt.Errorf("send %s: %w", msg.What, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return coordinator.Response{}, errors.New("connection closed")
		}
		if resp.Error != "" {
			return resp, errors.New(resp.Error)
		}
		if !resp.Handled {
			return resp, fmt.Errorf("verb %q not handled", msg.What)
		}
		return resp, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return coordinator.Response{}, ctx.Err()
	}
}

// Register announces this surface's role to the coordinator.
func (c *Client) Register(ctx context.Context, role string) error {
	_, err := c.call(ctx, coordinator.Message{What: coordinator.WhatRegister, Role: role})
	return err
}

// Tabs fetches the persisted list. found=false means nothing persisted yet.
func (c *Client) Tabs(ctx context.Context) (types.TabList, bool, error) {
	resp, err := c.call(ctx, coordinator.Message{What: coordinator.WhatGet})
	if err != nil {
		return nil, false, err
	}
	return resp.Tabs, resp.Found, nil
}

// SetTabs replaces the persisted list wholesale.
func (c *Client) SetTabs(ctx context.Context, tabs types.TabList) error {
	_, err := c.call(ctx, coordinator.Message{What: coordinator.WhatSet, Tabs: tabs})
	return err
}

// Minify proxies the URL codec through the coordinator.
func (c *Client) Minify(ctx context.Context, url string) (string, error) {
	resp, err := c.call(ctx, coordinator.Message{What: coordinator.WhatMinify, URL: url})
	if err != nil {
		return "", err
	}
	if resp.Value == nil {
		return "", nil
	}
	return *resp.Value, nil
}

// Expand proxies the URL codec through the coordinator.
func (c *Client) Expand(ctx context.Context, url, baseURL string) (string, error) {
	resp, err := c.call(ctx, coordinator.Message{What: coordinator.WhatExpand, URL: url, BaseURL: baseURL})
	if err != nil {
		return "", err
	}
	if resp.Value == nil {
		return "", nil
	}
	return *resp.Value, nil
}

// ExtractOrgName proxies Org extraction through the coordinator.
func (c *Client) ExtractOrgName(ctx context.Context, url string) (string, error) {
	resp, err := c.call(ctx, coordinator.Message{What: coordinator.WhatExtractOrg, URL: url})
	if err != nil {
		return "", err
	}
	if resp.Value == nil {
		return "", nil
	}
	return *resp.Value, nil
}

// ContainsSalesforceID proxies record-ID detection through the coordinator.
func (c *Client) ContainsSalesforceID(ctx context.Context, url string) (bool, error) {
	resp, err := c.call(ctx, coordinator.Message{What: coordinator.WhatContainsSfID, URL: url})
	if err != nil {
		return false, err
	}
	return resp.Bool != nil && *resp.Bool, nil
}

// Import submits a raw import payload with the merge flags.
func (c *Client) Import(ctx context.Context, payload json.RawMessage, overwrite, preserveOtherOrg bool) (types.TabList, error) {
	resp, err := c.call(ctx, coordinator.Message{
		What:             coordinator.WhatImport,
		Imported:         payload,
		Overwrite:        overwrite,
		PreserveOtherOrg: &preserveOtherOrg,
	})
	if err != nil {
		return nil, err
	}
	return resp.Tabs, nil
}

// Export asks the coordinator to run its export side effect.
func (c *Client) Export(ctx context.Context, tabs types.TabList) error {
	_, err := c.call(ctx, coordinator.Message{What: coordinator.WhatExport, Tabs: tabs})
	return err
}

// Notify sends a fire-and-forget message, waiting only for the ack.
func (c *Client) Notify(ctx context.Context, msg coordinator.Message) error {
	_, err := c.call(ctx, msg)
	return err
}
