// Package pool runs submitted units of work on a fixed set of OS-thread
// backed goroutines. The submission queue is bounded, so Submit blocks when
// the workers fall behind and the producer (the tree walker) stops opening
// new files until they catch up.
package pool

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vexxhost/pcp/internal/statusbus"
)

// QueueFactor sizes the submission queue relative to the worker count.
const QueueFactor = 2

// Unit is one submitted piece of work, tagged with the operation id its
// status events correlate to.
type Unit struct {
	Op  uuid.UUID
	Run func() error
}

// Pool executes units on a fixed number of workers. A unit that returns an
// error (or panics) produces a Failed status event; it never takes the
// worker down with it.
type Pool struct {
	queue    chan Unit
	wg       sync.WaitGroup
	status   *statusbus.Sender
	aborting *atomic.Bool
	joined   atomic.Bool
}

// New starts workers goroutines reading from a queue of QueueFactor*workers
// slots. The pool takes its own clone of status and releases it on Join.
func New(workers int, status *statusbus.Sender, aborting *atomic.Bool) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		queue:    make(chan Unit, QueueFactor*workers),
		status:   status.Clone(),
		aborting: aborting,
	}

	log.WithFields(log.Fields{
		"workers":   workers,
		"queue_cap": cap(p.queue),
	}).Debug("starting worker pool")

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// Submit enqueues u, blocking while the queue is full. It reports false
// without enqueueing once the run is aborting.
func (p *Pool) Submit(u Unit) bool {
	if p.aborting.Load() {
		return false
	}
	p.queue <- u
	return true
}

// Join closes the queue and returns once every queued unit has run and all
// workers are idle. No Submit may follow Join.
func (p *Pool) Join() {
	if p.joined.Swap(true) {
		return
	}
	close(p.queue)
	p.wg.Wait()
	p.status.Close()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for u := range p.queue {
		p.runUnit(id, u)
	}
}

// runUnit executes one unit, converting an error return or a panic into a
// Failed event so the pool itself survives.
func (p *Pool) runUnit(id int, u Unit) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"worker_id": id,
				"op":        u.Op,
			}).Errorf("❌ worker unit panicked: %v", r)
			p.status.Failed(u.Op, fmt.Errorf("worker unit panicked: %v", r))
		}
	}()

	if err := u.Run(); err != nil {
		p.status.Failed(u.Op, err)
	}
}
