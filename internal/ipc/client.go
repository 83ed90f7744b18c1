package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"github.com/google/uuid"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Send delivers req and returns the raw reply.
func (c *Client) Send(req Request) (*Reply, error) {
	env, err := NewEnvelope(req, uuid.NewString())
	if err != nil {
		return nil, err
	}
	var reply Reply
	if err := c.client.Call(serviceName+".Dispatch", env, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// Call sends req and decodes a successful reply into T. A failed reply is
// returned as a classified error.
func Call[T any](c *Client, req Request) (*T, error) {
	reply, err := c.Send(req)
	if err != nil {
		return nil, err
	}
	if !reply.Success {
		if reply.Error == nil {
			return nil, fmt.Errorf("%s failed without error detail", req.Type())
		}
		return nil, reply.Error.Err()
	}
	var out T
	if len(reply.Payload) > 0 {
		if err := json.Unmarshal(reply.Payload, &out); err != nil {
			return nil, fmt.Errorf("decode %s reply: %w", req.Type(), err)
		}
	}
	return &out, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call(serviceName+".Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop asks the daemon process to exit.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call(serviceName+".Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification asks the daemon to send a test notification.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call(serviceName+".TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return &resp, err
	}
	return &resp, nil
}

// FetchVideos requests the first page for the active topic.
func (c *Client) FetchVideos(forceFresh bool) (*VideosResponse, error) {
	return Call[VideosResponse](c, FetchVideos{ForceFresh: forceFresh})
}

// FetchMoreVideos requests the continuation page for token.
func (c *Client) FetchMoreVideos(token string) (*VideosResponse, error) {
	return Call[VideosResponse](c, FetchMoreVideos{PageToken: token})
}

// GetState returns focus state, topics and today's stats.
func (c *Client) GetState() (*StateResponse, error) {
	return Call[StateResponse](c, GetState{})
}
