// Package hw provides the hardware control interfaces for qcman.
// A board is driven through three services, each behind its own socket:
// the DAQ service (fast control and acquisition), the pull service (data
// client), and the I2C service (slow control). Each service accepts a
// small command set and a YAML configuration tree pushed on configure.
package hw

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"gopkg.in/yaml.v3"

	qcerrors "github.com/umdcms/qcmanager/internal/errors"
)

// Default connection settings.
const (
	DefaultDialTimeout    = 5 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultDialAttempts   = 5
)

// SocketClient is a client for one board service socket.
// The client carries a mutable configuration tree that is serialized and
// pushed to the service on Configure.
type SocketClient struct {
	name string
	addr string

	dialTimeout    time.Duration
	requestTimeout time.Duration
	dialAttempts   uint

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	config map[string]interface{}
}

// NewSocketClient creates a client for the named service at addr.
// The client is not connected until Connect is called.
func NewSocketClient(name, addr string) *SocketClient {
	return &SocketClient{
		name:           name,
		addr:           addr,
		dialTimeout:    DefaultDialTimeout,
		requestTimeout: DefaultRequestTimeout,
		dialAttempts:   DefaultDialAttempts,
		config:         make(map[string]interface{}),
	}
}

// Name returns the service name.
func (c *SocketClient) Name() string {
	return c.name
}

// Addr returns the service address.
func (c *SocketClient) Addr() string {
	return c.addr
}

// SetTimeouts overrides the dial and request timeouts.
func (c *SocketClient) SetTimeouts(dial, request time.Duration) {
	if dial > 0 {
		c.dialTimeout = dial
	}
	if request > 0 {
		c.requestTimeout = request
	}
}

// Connect establishes the connection, retrying with backoff.
// Board services come up asynchronously after power-on, so transient
// refusals are expected.
func (c *SocketClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	err := retry.Do(
		func() error {
			dialer := net.Dialer{Timeout: c.dialTimeout}
			conn, err := dialer.DialContext(ctx, "tcp", c.addr)
			if err != nil {
				return err
			}
			c.conn = conn
			c.reader = bufio.NewReader(conn)
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.dialAttempts),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return qcerrors.HardwareUnreachable(c.name, c.addr, err)
	}
	return nil
}

// Close closes the connection.
func (c *SocketClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}

// Connected returns true if the client holds an open connection.
func (c *SocketClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// SetConfig sets a value in the configuration tree.
// The key is a dot-separated path; intermediate maps are created as
// needed (e.g. SetConfig("daq.NEvents", "1000")).
func (c *SocketClient) SetConfig(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	parts := strings.Split(key, ".")
	node := c.config
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]interface{})
		if !ok {
			child = make(map[string]interface{})
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = value
}

// GetConfig reads a value from the configuration tree.
func (c *SocketClient) GetConfig(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	parts := strings.Split(key, ".")
	node := c.config
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]interface{})
		if !ok {
			return nil, false
		}
		node = child
	}
	v, ok := node[parts[len(parts)-1]]
	return v, ok
}

// Config returns a deep copy of the configuration tree.
func (c *SocketClient) Config() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyTree(c.config)
}

// ReplaceConfig replaces the whole configuration tree.
func (c *SocketClient) ReplaceConfig(config map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if config == nil {
		config = make(map[string]interface{})
	}
	c.config = config
}

func copyTree(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		if child, ok := v.(map[string]interface{}); ok {
			out[k] = copyTree(child)
			continue
		}
		out[k] = v
	}
	return out
}

// Configure pushes the configuration tree to the service.
func (c *SocketClient) Configure(ctx context.Context) error {
	c.mu.Lock()
	payload, err := yaml.Marshal(c.config)
	c.mu.Unlock()
	if err != nil {
		return qcerrors.Wrap(err, qcerrors.ErrHardware, "failed to marshal socket config")
	}
	_, err = c.request(ctx, "CONFIGURE", payload)
	return err
}

// Start starts the service.
func (c *SocketClient) Start(ctx context.Context) error {
	_, err := c.request(ctx, "START", nil)
	return err
}

// Stop stops the service.
func (c *SocketClient) Stop(ctx context.Context) error {
	_, err := c.request(ctx, "STOP", nil)
	return err
}

// Status queries the service status.
func (c *SocketClient) Status(ctx context.Context) (string, error) {
	return c.request(ctx, "STATUS", nil)
}

// IsComplete returns true if the service reports a finished run.
func (c *SocketClient) IsComplete(ctx context.Context) (bool, error) {
	status, err := c.Status(ctx)
	if err != nil {
		return false, err
	}
	return status == "DONE", nil
}

// request performs one command round trip.
// The wire format is a command line "<COMMAND> <payload-bytes>",
// followed by the payload, answered by a single reply line
// "OK[ detail]" or "ERR <message>".
func (c *SocketClient) request(ctx context.Context, command string, payload []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return "", qcerrors.New(qcerrors.ErrHardware,
			fmt.Sprintf("%s socket is not connected", c.name))
	}

	deadline := time.Now().Add(c.requestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return "", qcerrors.Wrap(err, qcerrors.ErrHardware, "failed to set socket deadline")
	}

	if _, err := fmt.Fprintf(c.conn, "%s %d\n", command, len(payload)); err != nil {
		return "", qcerrors.HardwareUnreachable(c.name, c.addr, err)
	}
	if len(payload) > 0 {
		if _, err := c.conn.Write(payload); err != nil {
			return "", qcerrors.HardwareUnreachable(c.name, c.addr, err)
		}
	}

	reply, err := c.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return "", qcerrors.HardwareUnreachable(c.name, c.addr, fmt.Errorf("connection closed"))
		}
		return "", qcerrors.HardwareUnreachable(c.name, c.addr, err)
	}
	reply = strings.TrimSpace(reply)

	if detail, found := strings.CutPrefix(reply, "OK"); found {
		return strings.TrimSpace(detail), nil
	}
	if msg, found := strings.CutPrefix(reply, "ERR"); found {
		return "", qcerrors.HardwareRejected(c.name, command, strings.TrimSpace(msg))
	}
	return "", qcerrors.HardwareRejected(c.name, command, reply)
}
