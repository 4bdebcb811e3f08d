/*
Package diag is the one-way diagnostic channel. Setup configures the logrus
logger used by the binaries; Hook mirrors log entries to a websocket listener
on a best-effort basis.
*/
package diag

import (
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Setup points the standard logger at out with the text formatter used by
// all commands.
func Setup(out io.Writer, debug bool) {
	log.SetOutput(out)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

const (
	DefaultQueue = 64
	redialAfter  = 2 * time.Second
	writeTimeout = 500 * time.Millisecond
)

// Hook forwards JSON encoded entries to a websocket endpoint. Fire never
// blocks: entries are dropped when the queue is full or the listener is
// unreachable. The connection is dialed lazily and redialed after failures.
type Hook struct {
	url    string
	levels []log.Level
	format log.Formatter
	dialer *websocket.Dialer

	queue chan []byte
	done  chan struct{}
	wg    sync.WaitGroup

	mu      sync.Mutex
	dropped uint64
}

// NewHook starts the sender goroutine for url. queue <= 0 selects DefaultQueue.
func NewHook(url string, queue int, levels ...log.Level) *Hook {
	if queue <= 0 {
		queue = DefaultQueue
	}
	if len(levels) == 0 {
		levels = log.AllLevels
	}
	h := &Hook{
		url:    url,
		levels: levels,
		format: &log.JSONFormatter{},
		dialer: &websocket.Dialer{HandshakeTimeout: time.Second},
		queue:  make(chan []byte, queue),
		done:   make(chan struct{}),
	}
	h.wg.Add(1)
	go h.run()
	return h
}

func (h *Hook) Levels() []log.Level {
	return h.levels
}

func (h *Hook) Fire(e *log.Entry) error {
	msg, err := h.format.Format(e)
	if err != nil {
		return err
	}
	select {
	case h.queue <- msg:
	default:
		h.drop()
	}
	return nil
}

// Dropped returns how many entries never reached the listener.
func (h *Hook) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Close stops the sender and closes the connection. Queued entries are
// discarded.
func (h *Hook) Close() {
	close(h.done)
	h.wg.Wait()
}

func (h *Hook) drop() {
	h.mu.Lock()
	h.dropped++
	h.mu.Unlock()
}

func (h *Hook) run() {
	defer h.wg.Done()
	var (
		c        *websocket.Conn
		lastDial time.Time
	)
	defer func() {
		if c != nil {
			c.Close()
		}
	}()

	for {
		select {
		case <-h.done:
			return
		case msg := <-h.queue:
			if c == nil {
				if !lastDial.IsZero() && time.Since(lastDial) < redialAfter {
					h.drop()
					continue
				}
				lastDial = time.Now()
				conn, _, err := h.dialer.Dial(h.url, nil)
				if err != nil {
					h.drop()
					continue
				}
				c = conn
			}
			c.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.drop()
				c.Close()
				c = nil
			}
		}
	}
}
