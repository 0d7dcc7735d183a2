package singleinstance

import (
	"bufio"
	"context"
	"log"
	"net"
	"strconv"
	"time"
)

const defaultDialTimeout = 300 * time.Millisecond

// Client finds a resident and delegates invocations to it.
type Client struct {
	Ports PortRange
	// Timeout bounds each dial and PING; the request itself is bounded by ctx.
	Timeout time.Duration
}

func NewClient(ports PortRange) *Client {
	return &Client{Ports: ports.normalize(), Timeout: defaultDialTimeout}
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultDialTimeout
}

// Detect scans the range and returns the first port whose listener answers PING.
func (c *Client) Detect(ctx context.Context) (int, bool) {
	ports := c.Ports.normalize()
	for port := ports.Start; port <= ports.End; port++ {
		if ctx.Err() != nil {
			return 0, false
		}
		if c.ping(ctx, port) {
			return port, true
		}
	}
	return 0, false
}

func (c *Client) dial(ctx context.Context, port int) (net.Conn, error) {
	d := net.Dialer{Timeout: c.timeout()}
	return d.DialContext(ctx, "tcp", net.JoinHostPort(residentHost, strconv.Itoa(port)))
}

func (c *Client) ping(ctx context.Context, port int) bool {
	conn, err := c.dial(ctx, port)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.timeout()))
	if err := writeLine(bufio.NewWriter(conn), linePing); err != nil {
		return false
	}
	resp, err := readLine(bufio.NewReader(conn))
	return err == nil && resp == linePong
}

// TryRunOnce delegates req to a resident. With no resident it returns
// delegated=false and a nil error so the caller can run standalone.
func (c *Client) TryRunOnce(ctx context.Context, req Request) (delegated bool, payload string, err error) {
	port, ok := c.Detect(ctx)
	if !ok {
		return false, "", nil
	}
	conn, err := c.dial(ctx, port)
	if err != nil {
		return false, "", nil
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	log.Printf("singleinstance: delegating to resident on port %d", port)
	if err := writeLine(bufio.NewWriter(conn), req.line()); err != nil {
		return true, "", err
	}
	payload, err = readResponse(bufio.NewReader(conn))
	if err != nil && ctx.Err() != nil {
		return true, "", ctx.Err()
	}
	return true, payload, err
}
