// Package rpcclient is the thin client side of the JSON-RPC wire protocol:
// dial the daemon's Unix socket, write one request, read one response,
// close. Used by the nicehist CLI so command logic never touches the
// database directly.
package rpcclient

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/runger/nicehist/internal/rpc"
	"github.com/runger/nicehist/internal/transport"
)

const (
	defaultDialTimeout = 500 * time.Millisecond
)

// Client issues one JSON-RPC request per Call.
type Client struct {
	socketPath string
}

// New constructs a Client for the given socket path.
func New(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Call sends method with params marshaled as the request params, decodes
// the result into result (if non-nil), and returns the server's *rpc.RPCError
// when the response carries one.
func (c *Client) Call(method string, params any, result any) error {
	t := transport.NewUnixTransport(c.socketPath)
	conn, err := t.Dial(defaultDialTimeout)
	if err != nil {
		return fmt.Errorf("connect to daemon at %s: %w (is the daemon running?)", c.socketPath, err)
	}
	defer conn.Close()

	var raw json.RawMessage
	if params != nil {
		raw, err = json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
	}

	req := rpc.Request{Method: method, Params: raw, ID: 1}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	var resp rpc.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}

	if result == nil || resp.Result == nil {
		return nil
	}
	data, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("re-marshal result: %w", err)
	}
	return json.Unmarshal(data, result)
}
