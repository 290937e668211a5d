// Package adb speaks the ADB server's smart-socket protocol over TCP.
// Every request opens a fresh connection: the server rebinds a connection
// to a device stream after host:transport, so connections are single use.
package adb

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
)

const DefaultAddr = "localhost:5037"

type Client struct {
	addr   string
	dialer net.Dialer
}

func NewClient(addr string) *Client {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Client{addr: addr}
}

func (c *Client) Addr() string { return c.addr }

// Devices lists the serials the ADB server currently sees in "device" state.
func (c *Client) Devices(ctx context.Context) ([]string, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.request("host:devices"); err != nil {
		return nil, err
	}
	payload, err := conn.readHexPayload()
	if err != nil {
		return nil, fmt.Errorf("read device list: %w", err)
	}

	var serials []string
	for _, line := range strings.Split(string(payload), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "device" {
			serials = append(serials, fields[0])
		}
	}
	return serials, nil
}

// Device returns a handle for one attached device. The serial is not
// validated here; the first command will fail if it is unknown.
func (c *Client) Device(serial string) *Device {
	return &Device{client: c, serial: serial}
}

func (c *Client) dial(ctx context.Context) (*conn, error) {
	raw, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("dial adb server at %s: %w", c.addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = raw.SetDeadline(deadline)
	}
	return &conn{Conn: raw}, nil
}

type conn struct {
	net.Conn
}

// request sends one hex-length-prefixed command and consumes the status.
func (c *conn) request(cmd string) error {
	if _, err := fmt.Fprintf(c, "%04x%s", len(cmd), cmd); err != nil {
		return fmt.Errorf("send %q: %w", cmd, err)
	}
	return c.readStatus(cmd)
}

func (c *conn) readStatus(cmd string) error {
	status := make([]byte, 4)
	if _, err := io.ReadFull(c, status); err != nil {
		return fmt.Errorf("read status for %q: %w", cmd, err)
	}
	switch string(status) {
	case "OKAY":
		return nil
	case "FAIL":
		msg, err := c.readHexPayload()
		if err != nil {
			return fmt.Errorf("adb rejected %q", cmd)
		}
		return fmt.Errorf("adb rejected %q: %s", cmd, msg)
	default:
		return fmt.Errorf("unexpected adb status %q for %q", status, cmd)
	}
}

func (c *conn) readHexPayload() ([]byte, error) {
	sizeHex := make([]byte, 4)
	if _, err := io.ReadFull(c, sizeHex); err != nil {
		return nil, err
	}
	size, err := strconv.ParseUint(string(sizeHex), 16, 32)
	if err != nil {
		return nil, fmt.Errorf("bad payload length %q: %w", sizeHex, err)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(c, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
