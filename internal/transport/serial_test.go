package transport

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

// fakePort is an in-memory stand-in for the serial port.
type fakePort struct {
	reads  *bytes.Buffer // bytes the device will answer with
	writes bytes.Buffer  // bytes we sent to the device

	writeErr error
	closed   bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.reads.Len() == 0 {
		// tarm/serial reports an expired ReadTimeout this way
		return 0, io.EOF
	}
	return p.reads.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.writes.Write(b)
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestExchangeAppendsTerminatorAndStripsResponse(t *testing.T) {
	p := &fakePort{reads: bytes.NewBufferString("23.50\r\n")}
	c := newConn(p)

	line, err := c.Exchange("IN_PV_00")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if line != "23.50" {
		t.Fatalf("expected stripped line, got %q", line)
	}
	if got := p.writes.String(); got != "IN_PV_00\r\n" {
		t.Fatalf("expected CRLF-terminated command, got %q", got)
	}
}

func TestExchangeLFOnlyResponse(t *testing.T) {
	p := &fakePort{reads: bytes.NewBufferString("0\n")}
	c := newConn(p)

	line, err := c.Exchange("STATUS")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if line != "0" {
		t.Fatalf("expected %q, got %q", "0", line)
	}
}

func TestExchangeTimeoutIsTransportError(t *testing.T) {
	p := &fakePort{reads: &bytes.Buffer{}}
	c := newConn(p)

	_, err := c.Exchange("STATUS")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestExchangeWriteFailureIsTransportError(t *testing.T) {
	p := &fakePort{reads: &bytes.Buffer{}, writeErr: errors.New("port gone")}
	c := newConn(p)

	_, err := c.Exchange("STATUS")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestOpenFailureIsTransportError(t *testing.T) {
	orig := openPort
	defer func() { openPort = orig }()
	openPort = func(cfg Config) (io.ReadWriteCloser, error) {
		return nil, errors.New("no such device")
	}

	_, err := Open(Config{Port: "/dev/ttyUSB9", Baud: 9600, Timeout: time.Second})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestClose(t *testing.T) {
	p := &fakePort{reads: &bytes.Buffer{}}
	c := newConn(p)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !p.closed {
		t.Fatal("expected underlying port closed")
	}
}
