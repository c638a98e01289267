// Package transport owns the serial byte stream to the instrument. The link
// is half duplex with strict request/response pairing, so the whole surface
// is a single blocking Exchange.
package transport

import (
	"errors"
	"time"
)

// ErrTransport marks connection-level failures: port absent, write error,
// timeout or framing error on the response line.
var ErrTransport = errors.New("transport failure")

// Config is supplied by the collaborator at startup. Timeout bounds the
// blocking read of each response line.
type Config struct {
	Port    string
	Baud    int
	Timeout time.Duration
}

// Conn is the single capability for talking to the device. Exchange writes
// the command with the protocol terminator and blocks for one response line.
// Callers must not retry blindly: some commands (START/STOP) are not
// idempotent.
type Conn interface {
	Exchange(cmd string) (string, error)
	Close() error
}
