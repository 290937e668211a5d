package adb

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Device runs commands on one attached device, identified by serial.
type Device struct {
	client *Client
	serial string
}

func (d *Device) Serial() string { return d.serial }

// Shell runs a command through the device shell service and returns its
// combined output with trailing whitespace trimmed. The shell service runs
// under a pty, so binary output is mangled; use ExecOut for that.
func (d *Device) Shell(ctx context.Context, cmd string) (string, error) {
	out, err := d.run(ctx, "shell:"+cmd)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), " \t\r\n"), nil
}

// ExecOut runs a command through the exec service, which passes output
// through unmodified. Required for screencap and file reads.
func (d *Device) ExecOut(ctx context.Context, cmd string) ([]byte, error) {
	return d.run(ctx, "exec:"+cmd)
}

func (d *Device) run(ctx context.Context, service string) ([]byte, error) {
	conn, err := d.client.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.request("host:transport:" + d.serial); err != nil {
		return nil, fmt.Errorf("transport to %s: %w", d.serial, err)
	}
	if err := conn.request(service); err != nil {
		return nil, err
	}

	// Command output streams until the device closes the connection.
	out, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("read output of %q on %s: %w", service, d.serial, err)
	}
	return out, nil
}
