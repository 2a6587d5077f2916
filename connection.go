package fbp

import (
	"context"
	"fmt"
	"sync"
)

// sendResult classifies the outcome of a low-level channel send attempt.
type sendResult int

const (
	sendOK sendResult = iota
	sendClosed
	sendCanceled
)

// recvResult classifies the outcome of a low-level channel receive attempt.
type recvResult int

const (
	recvOK recvResult = iota
	recvClosed
	recvCanceled
)

// Connection is a bounded FIFO linking exactly one OutputPort to exactly one
// InputPort. It is backed by a native Go channel, which gives FIFO ordering
// and blocking send/receive for free; this type layers close-idempotency,
// a "closed" drain-to-EOS contract, and descriptive identity for deadlock
// reporting on top of that channel.
//
// A Connection has exactly one producer goroutine (the component owning its
// source OutputPort): Send is only ever called from that goroutine, and
// Close is only ever called after that goroutine has stopped calling Send.
// This single-producer invariant is what makes the mutex-guarded closed
// flag below race-free without needing to close the underlying channel.
type Connection struct {
	fromComponent, fromPort string
	toComponent, toPort     string

	capacity int
	ch       chan Packet

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	closedCh  chan struct{}
}

func newConnection(capacity int, fromComponent, fromPort, toComponent, toPort string) *Connection {
	if capacity < 1 {
		capacity = 1
	}
	return &Connection{
		fromComponent: fromComponent,
		fromPort:      fromPort,
		toComponent:   toComponent,
		toPort:        toPort,
		capacity:      capacity,
		ch:            make(chan Packet, capacity),
		closedCh:      make(chan struct{}),
	}
}

// Desc returns a human-readable identity for this connection, used in
// deadlock reports and log fields.
func (c *Connection) Desc() string {
	return fmt.Sprintf("%s.%s->%s.%s", c.fromComponent, c.fromPort, c.toComponent, c.toPort)
}

// Capacity returns the configured buffer capacity of the connection.
func (c *Connection) Capacity() int { return c.capacity }

// Depth returns the number of packets currently buffered. It is a snapshot
// used for metrics only; callers must not rely on it for synchronization.
func (c *Connection) Depth() int { return len(c.ch) }

// Close closes the connection. It is idempotent: only the first call has
// any effect. After Close returns, all subsequent Send calls fail with
// sendClosed; Receive continues to drain any packets already buffered,
// then reports recvClosed once the buffer is empty.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.closedCh)
	})
}

// send enqueues pkt, blocking until the channel has room, the connection is
// closed, or ctx is done. The caller (Port) is responsible for reporting
// the blocking window to the scheduler around this call.
func (c *Connection) send(ctx context.Context, pkt Packet) sendResult {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return sendClosed
	}

	select {
	case c.ch <- pkt:
		return sendOK
	default:
	}

	select {
	case c.ch <- pkt:
		return sendOK
	case <-c.closedCh:
		return sendClosed
	case <-ctx.Done():
		return sendCanceled
	}
}

// receive dequeues the next packet, blocking until one is available, the
// connection is closed and drained, or ctx is done. Buffered packets are
// always drained before recvClosed is ever reported, even if Close has
// already been called, which is what gives downstream receivers the "drain
// then EOS" contract of spec.md §4.2.
func (c *Connection) receive(ctx context.Context) (Packet, recvResult) {
	select {
	case pkt := <-c.ch:
		return pkt, recvOK
	default:
	}

	select {
	case pkt := <-c.ch:
		return pkt, recvOK
	case <-c.closedCh:
		select {
		case pkt := <-c.ch:
			return pkt, recvOK
		default:
			return Packet{}, recvClosed
		}
	case <-ctx.Done():
		return Packet{}, recvCanceled
	}
}
