package backend

import (
	"context"
	"errors"
	"net/rpc"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrNotFound is returned by Get when the key is unset (the wire-level
// empty-string sentinel, translated at the client boundary).
var ErrNotFound = errors.New("backend: key not found")

// Client is a one-to-one RPC wrapper around a single backend: it opens a
// fresh net/rpc connection per call, so idempotent operations tolerate
// retry-on-reconnect. Transport errors are propagated verbatim except for
// the bounded dial retry below.
type Client struct {
	addr string
}

// NewClient builds a Client targeting addr. No connection is opened until
// the first call.
func NewClient(addr string) *Client {
	return &Client{addr: addr}
}

func newDialBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	return b
}

func (c *Client) dial(ctx context.Context) (*rpc.Client, error) {
	var conn *rpc.Client
	op := func() error {
		var err error
		conn, err = rpc.Dial("tcp", c.addr)
		return err
	}
	bo := backoff.WithContext(newDialBackoff(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Client) call(ctx context.Context, method string, args, reply any) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Call(ServiceName+"."+method, args, reply)
}

// Get returns the value at key, or ErrNotFound if unset.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	var reply ValueReply
	if err := c.call(ctx, "Get", &KeyArgs{Key: key}, &reply); err != nil {
		return "", err
	}
	if reply.Value == "" {
		return "", ErrNotFound
	}
	return reply.Value, nil
}

// Set stores value at key.
func (c *Client) Set(ctx context.Context, key, value string) error {
	var reply BoolReply
	return c.call(ctx, "Set", &KeyValueArgs{Key: key, Value: value}, &reply)
}

// Keys returns every key matching prefix/suffix.
func (c *Client) Keys(ctx context.Context, prefix, suffix string) ([]string, error) {
	var reply StringListReply
	if err := c.call(ctx, "Keys", &PatternArgs{Prefix: prefix, Suffix: suffix}, &reply); err != nil {
		return nil, err
	}
	return reply.List, nil
}

// ListGet returns the raw (non-merged) list stored at key on this backend.
func (c *Client) ListGet(ctx context.Context, key string) ([]string, error) {
	var reply StringListReply
	if err := c.call(ctx, "ListGet", &KeyArgs{Key: key}, &reply); err != nil {
		return nil, err
	}
	return reply.List, nil
}

// ListAppend appends value to the list at key.
func (c *Client) ListAppend(ctx context.Context, key, value string) error {
	var reply BoolReply
	return c.call(ctx, "ListAppend", &KeyValueArgs{Key: key, Value: value}, &reply)
}

// ListRemove removes every element equal to value from the list at key.
func (c *Client) ListRemove(ctx context.Context, key, value string) (int, error) {
	var reply ListRemoveReply
	if err := c.call(ctx, "ListRemove", &ListRemoveArgs{Key: key, Value: value}, &reply); err != nil {
		return 0, err
	}
	return int(reply.Removed), nil
}

// ListKeys returns every list key matching prefix/suffix.
func (c *Client) ListKeys(ctx context.Context, prefix, suffix string) ([]string, error) {
	var reply StringListReply
	if err := c.call(ctx, "ListKeys", &PatternArgs{Prefix: prefix, Suffix: suffix}, &reply); err != nil {
		return nil, err
	}
	return reply.List, nil
}

// Clock advances this backend's logical clock to at least atLeast and
// returns the new value.
func (c *Client) Clock(ctx context.Context, atLeast uint64) (uint64, error) {
	var reply ClockReply
	if err := c.call(ctx, "Clock", &ClockArgs{AtLeast: atLeast}, &reply); err != nil {
		return 0, err
	}
	return reply.Timestamp, nil
}
