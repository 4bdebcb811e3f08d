//go:build !tinygo

package transport

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tarm/serial"
)

// Config describes a serial endpoint.
type Config struct {
	Name        string        // device node, e.g. /dev/ttyGS0
	Baud        int           // ignored by gadget ttys, required by tarm/serial
	ReadTimeout time.Duration // bounds each background read
}

const (
	chunkSize = 64
	idleWait  = 10 * time.Millisecond  // pause after a read that returned nothing
	errorWait = 100 * time.Millisecond // pause after relaying a read error
)

type chunk struct {
	b   []byte
	err error
}

// Port adapts a blocking io.ReadWriteCloser to Service. One background
// goroutine reads into a small queue; another performs the single write in
// flight. A new frame is accepted only while the writer is idle.
type Port struct {
	rwc     io.ReadWriteCloser
	out     chan []byte
	in      chan chunk
	pending []byte
	werr    atomic.Value // *error from the last background write
	timeout bool         // a zero-byte io.EOF is a read timeout, not a hangup
	done    chan struct{}
	once    sync.Once
}

// OpenPort opens a serial device with tarm/serial.
func OpenPort(c Config) (*Port, error) {
	s, err := serial.OpenPort(&serial.Config{Name: c.Name, Baud: c.Baud, ReadTimeout: c.ReadTimeout})
	if err != nil {
		return nil, err
	}
	return newPort(s, c.ReadTimeout > 0), nil
}

// NewPort starts servicing rwc. Close stops it. A read returning io.EOF is
// relayed as an error: rwc has hung up.
func NewPort(rwc io.ReadWriteCloser) *Port {
	return newPort(rwc, false)
}

func newPort(rwc io.ReadWriteCloser, timeout bool) *Port {
	p := &Port{
		rwc:     rwc,
		out:     make(chan []byte),
		in:      make(chan chunk, 16),
		timeout: timeout,
		done:    make(chan struct{}),
	}
	p.werr.Store((*error)(nil))
	go p.readLoop()
	go p.writeLoop()
	return p
}

func (p *Port) readLoop() {
	for {
		buf := make([]byte, chunkSize)
		n, err := p.rwc.Read(buf)
		if n == 0 && err == io.EOF && p.timeout {
			// tarm/serial reports a read timeout as EOF
			err = nil
		}
		if n == 0 && err == nil {
			if !p.wait(idleWait) {
				return
			}
			continue
		}
		c := chunk{b: buf[:n], err: err}
		select {
		case p.in <- c:
		case <-p.done:
			return
		}
		if err != nil && !p.wait(errorWait) {
			return
		}
	}
}

// wait sleeps for d and reports false when the port was closed meanwhile.
func (p *Port) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.done:
		return false
	case <-t.C:
		return true
	}
}

func (p *Port) writeLoop() {
	for {
		select {
		case b := <-p.out:
			if _, err := p.rwc.Write(b); err != nil {
				p.werr.Store(&err)
			}
		case <-p.done:
			return
		}
	}
}

// Poll reports whether inbound bytes or errors are pending.
func (p *Port) Poll() bool {
	return len(p.pending) > 0 || len(p.in) > 0
}

// Read copies pending inbound bytes into b. It returns ErrWouldBlock when
// nothing is pending and relays errors from the background reader.
func (p *Port) Read(b []byte) (int, error) {
	select {
	case <-p.done:
		return 0, ErrClosed
	default:
	}
	if len(p.pending) == 0 {
		select {
		case c := <-p.in:
			if c.err != nil {
				return 0, c.err
			}
			p.pending = c.b
		default:
			return 0, ErrWouldBlock
		}
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

// Write hands b to the idle writer or refuses it with ErrWouldBlock.
// An error from the previous background write is returned instead, once.
func (p *Port) Write(b []byte) (int, error) {
	if v := p.werr.Swap((*error)(nil)).(*error); v != nil {
		return 0, *v
	}
	select {
	case <-p.done:
		return 0, ErrClosed
	default:
	}
	frame := append([]byte(nil), b...)
	select {
	case p.out <- frame:
		return len(b), nil
	default:
		return 0, ErrWouldBlock
	}
}

// Close stops the background goroutines and closes the underlying stream,
// which unblocks any read or write in progress.
func (p *Port) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		err = p.rwc.Close()
	})
	return err
}
