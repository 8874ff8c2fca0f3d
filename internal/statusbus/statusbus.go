// Package statusbus carries progress and error events from the copy workers
// back to the orchestrator over a bounded multi-producer/single-consumer
// channel. A full bus blocks its senders, so a slow consumer throttles the
// workers instead of letting events pile up in memory.
package statusbus

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Kind tags an Event.
type Kind int

const (
	// SizeDiscovered announces the total length of a file about to be
	// copied so the consumer can grow its running total.
	SizeDiscovered Kind = iota

	// BytesCopied reports bytes moved since the previous event for the
	// same operation. Events for one operation may arrive out of offset
	// order; consumers must treat them as additive.
	BytesCopied

	// Failed reports an error for the operation. The consumer decides
	// whether it is fatal for the run.
	Failed
)

// Event is one message on the bus. Bytes is meaningful for SizeDiscovered
// and BytesCopied; Err for Failed.
type Event struct {
	Op    uuid.UUID
	Kind  Kind
	Bytes int64
	Err   error
}

// Bus is the receiving half. There is exactly one consumer: the
// orchestrator's drain loop.
type Bus struct {
	core *core
}

type core struct {
	ch   chan Event
	refs atomic.Int64
}

// Sender is the producing half. Senders are cheap to clone and each clone
// must be closed; closing the last one closes the underlying channel, which
// is what wakes a consumer blocked in Events.
type Sender struct {
	core   *core
	closed atomic.Bool
}

// New creates a bus with the given capacity and its first sender.
func New(capacity int) (*Bus, *Sender) {
	c := &core{ch: make(chan Event, capacity)}
	c.refs.Store(1)
	return &Bus{core: c}, &Sender{core: c}
}

// Events returns the receive channel. It is closed once every sender has
// been closed, ending a for-range drain loop.
func (b *Bus) Events() <-chan Event {
	return b.core.ch
}

// Clone returns a new independent sender sharing the same bus.
func (s *Sender) Clone() *Sender {
	s.core.refs.Add(1)
	return &Sender{core: s.core}
}

// Send publishes an event, blocking while the bus is full.
func (s *Sender) Send(ev Event) {
	s.core.ch <- ev
}

// SizeDiscovered publishes the total size of operation op.
func (s *Sender) SizeDiscovered(op uuid.UUID, n int64) {
	s.Send(Event{Op: op, Kind: SizeDiscovered, Bytes: n})
}

// BytesCopied publishes n freshly copied bytes for operation op.
func (s *Sender) BytesCopied(op uuid.UUID, n int64) {
	s.Send(Event{Op: op, Kind: BytesCopied, Bytes: n})
}

// Failed publishes err for operation op.
func (s *Sender) Failed(op uuid.UUID, err error) {
	s.Send(Event{Op: op, Kind: Failed, Err: err})
}

// Close releases this sender. The bus channel closes when the last sender
// is released. Closing twice is a no-op.
func (s *Sender) Close() {
	if s.closed.Swap(true) {
		return
	}
	if s.core.refs.Add(-1) == 0 {
		close(s.core.ch)
	}
}
