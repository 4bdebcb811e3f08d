/*
Package transport provides the non-blocking byte-stream endpoint that carries
telemetry to the host: a USB CDC-ACM virtual serial port.

Nothing in this package blocks the caller. A write that cannot be accepted at
once fails with ErrWouldBlock and the bytes are dropped; a read with nothing
pending fails the same way.
*/
package transport

import (
	"errors"
)

var (
	// ErrWouldBlock means the endpoint cannot complete the call now.
	ErrWouldBlock = errors.New("transport: would block")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("transport: closed")
)

// Service is a non-blocking byte-stream endpoint.
type Service interface {
	// Poll services the endpoint and reports whether inbound data or an
	// inbound error is pending.
	Poll() bool
	// Read copies pending inbound bytes into p.
	Read(p []byte) (int, error)
	// Write accepts all of p or none of it.
	Write(p []byte) (int, error)
}
