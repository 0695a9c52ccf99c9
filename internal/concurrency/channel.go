// Package concurrency implements the VM's shared concurrency-primitive
// state objects: channels, mutexes, and wait groups. Each is a plain Go
// type wrapped in a values.Value of the matching Kind so the interpreter
// can carry them on the operand stack like any other shared heap object.
package concurrency

import (
	"errors"
	"sync"

	"github.com/wudi/corelang/internal/values"
)

// ErrClosedChannelSend is returned when a send targets a closed channel —
// the one channel operation that is a hard fault rather than a graceful
// false/end-of-stream result.
var ErrClosedChannelSend = errors.New("send on closed channel")

// Channel is a typed carrier with an optional fixed capacity. Zero
// capacity means rendezvous (an unbuffered Go channel already implements
// that handoff semantics); positive capacity provides a FIFO buffer.
type Channel struct {
	mu       sync.Mutex
	buf      []values.Value
	capacity int
	closed   bool

	sendWaiters chan struct{} // signaled whenever buffer space or a receiver frees up
	recvWaiters chan struct{} // signaled whenever a value becomes available
}

// NewChannel constructs a channel with the given capacity (0 = rendezvous).
func NewChannel(capacity int) *Channel {
	return &Channel{
		capacity:    capacity,
		sendWaiters: make(chan struct{}, 1),
		recvWaiters: make(chan struct{}, 1),
	}
}

func (c *Channel) notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Send blocks until the value is accepted (buffered, or handed directly to
// a waiting receiver for a zero-capacity channel) or the channel closes
// concurrently, in which case it returns ErrClosedChannelSend.
func (c *Channel) Send(v values.Value) error {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrClosedChannelSend
		}
		if c.capacity == 0 {
			// Rendezvous: when nothing is already buffered, deposit the
			// value, wake any receiver, and return only once it is taken
			// (or the channel is closed).
			if len(c.buf) == 0 {
				c.buf = append(c.buf, v)
				c.mu.Unlock()
				c.notify(c.recvWaiters)
				// Wait for the receiver to actually take it.
				for {
					c.mu.Lock()
					taken := len(c.buf) == 0
					closed := c.closed
					c.mu.Unlock()
					if taken || closed {
						return nil
					}
					<-c.sendWaiters
				}
			}
			c.mu.Unlock()
			<-c.sendWaiters
			continue
		}
		if len(c.buf) < c.capacity {
			c.buf = append(c.buf, v)
			c.mu.Unlock()
			c.notify(c.recvWaiters)
			return nil
		}
		c.mu.Unlock()
		<-c.sendWaiters
	}
}

// TrySend is the non-blocking variant: returns false instead of blocking
// when the channel has no room (or is closed).
func (c *Channel) TrySend(v values.Value) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	if c.capacity == 0 {
		return false // rendezvous requires a parked receiver; never ready non-blocking
	}
	if len(c.buf) >= c.capacity {
		return false
	}
	c.buf = append(c.buf, v)
	c.notify(c.recvWaiters)
	return true
}

// Receive blocks until a value is available or the channel is closed and
// drained, in which case it returns (null, false) for end-of-stream.
func (c *Channel) Receive() (values.Value, bool) {
	for {
		c.mu.Lock()
		if len(c.buf) > 0 {
			v := c.buf[0]
			c.buf = c.buf[1:]
			c.mu.Unlock()
			c.notify(c.sendWaiters)
			return v, true
		}
		if c.closed {
			c.mu.Unlock()
			return values.Null(), false
		}
		c.mu.Unlock()
		<-c.recvWaiters
	}
}

// TryReceive is the non-blocking variant.
func (c *Channel) TryReceive() (values.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buf) > 0 {
		v := c.buf[0]
		c.buf = c.buf[1:]
		c.notify(c.sendWaiters)
		return v, true
	}
	return values.Null(), false
}

// Close forbids further sends. Remaining buffered values still drain via
// Receive/TryReceive before end-of-stream is observed.
func (c *Channel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.notify(c.recvWaiters)
	c.notify(c.sendWaiters)
}

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ReadyToReceive reports whether a non-blocking receive would currently succeed or
// observe end-of-stream — used by select to decide readiness without
// consuming the value.
func (c *Channel) ReadyToReceive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf) > 0 || c.closed
}

// ReadyToSend reports whether a non-blocking send would currently succeed.
func (c *Channel) ReadyToSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	return c.capacity > 0 && len(c.buf) < c.capacity
}

// Buffered returns a snapshot of values currently sitting in the channel's
// buffer, so a GC root walker can trace values in flight between a sender
// and a receiver that hasn't taken them yet.
func (c *Channel) Buffered() []values.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]values.Value, len(c.buf))
	copy(out, c.buf)
	return out
}

func NewChannelValue(capacity int) values.Value {
	return values.Value{Kind: values.KindChannel, Data: NewChannel(capacity)}
}

func AsChannel(v values.Value) *Channel {
	ch, _ := v.Data.(*Channel)
	return ch
}
