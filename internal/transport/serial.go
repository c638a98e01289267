package transport

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/tarm/serial"
)

// allow tests to inject a fake port
var openPort = func(cfg Config) (io.ReadWriteCloser, error) {
	return serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.Timeout,
	})
}

type serialConn struct {
	rwc io.ReadWriteCloser
	r   *bufio.Reader
}

// Open opens the serial port. Failures are fatal to activation; the caller
// decides whether the process stays up for diagnostics.
func Open(cfg Config) (Conn, error) {
	p, err := openPort(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrTransport, cfg.Port, err)
	}
	return newConn(p), nil
}

func newConn(rwc io.ReadWriteCloser) *serialConn {
	return &serialConn{rwc: rwc, r: bufio.NewReader(rwc)}
}

func (c *serialConn) Exchange(cmd string) (string, error) {
	if _, err := c.rwc.Write([]byte(cmd + "\r\n")); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", ErrTransport, cmd, err)
	}
	// tarm/serial reports an expired ReadTimeout as io.EOF from Read.
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("%w: read after %s: %v", ErrTransport, cmd, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *serialConn) Close() error {
	return c.rwc.Close()
}
