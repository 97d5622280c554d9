// Package mailbox implements the command/telemetry mailbox contract: a
// non-blocking, at-most-one-per-tick request/reply endpoint that lets
// asynchronous operator commands interleave with a strictly periodic
// loop without ever blocking the period.
package mailbox

import "github.com/pkg/errors"

// Mailbox is the contract the control core consumes. HasPendingRequest
// and ReceiveOne must never suspend. After ReceiveOne returns a command, the
// consumer must call SendReply exactly once before the next
// ReceiveOne.
type Mailbox interface {
	// HasPendingRequest reports, without blocking, whether a command is
	// waiting to be received.
	HasPendingRequest() bool
	// ReceiveOne returns the pending command. It must only be called
	// when HasPendingRequest() was true.
	ReceiveOne() Command
	// SendReply completes the request started by the most recent
	// ReceiveOne.
	SendReply(Reply)
}

// Channel is the default in-process Mailbox implementation: a pair of
// buffered channels satisfying "any reliable request/reply ... pair"
// per the core's transport-agnostic contract. Capacity 1 on each
// direction is enough to hold exactly the one in-flight request the
// protocol ever allows.
type Channel struct {
	requests chan Command
	replies  chan Reply
}

// NewChannel constructs an in-process channel-backed Mailbox.
func NewChannel() *Channel {
	return &Channel{
		requests: make(chan Command, 1),
		replies:  make(chan Reply, 1),
	}
}

// HasPendingRequest is non-blocking: it peeks the request channel.
func (c *Channel) HasPendingRequest() bool {
	return len(c.requests) > 0
}

// ReceiveOne drains one pending command.
func (c *Channel) ReceiveOne() Command {
	return <-c.requests
}

// SendReply delivers the reply to whichever caller is waiting on Call.
func (c *Channel) SendReply(r Reply) {
	c.replies <- r
}

// Call is the client-side half of the channel mailbox: it submits a
// command and blocks until the corresponding reply arrives. It is not
// part of the core's hot-path contract; it exists so a process
// bootstrapping the loop (or a test) has something to drive the mailbox
// with.
func (c *Channel) Call(cmd Command) (Reply, error) {
	select {
	case c.requests <- cmd:
	default:
		return Reply{}, errors.New("mailbox: a request is already in flight")
	}
	return <-c.replies, nil
}
