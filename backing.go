// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conflate

import "code.hybscloud.com/conflate/queue"

// BackingQueue is the caller-supplied FIFO of Entry references that a
// conflation queue threads ordering through. It holds at most one reference
// per in-flight key; a conflation queue never enqueues the same *E twice
// concurrently, since a second Enqueue for an already-queued key latches
// into the existing Entry instead of appending a new one.
//
// E is the concrete per-variant Entry type. Implementations need not be
// lock-free; [LfqSPSC], [LfqMPSC], [LfqSPMC], and [LfqMPMC] adapt
// [code.hybscloud.com/conflate/queue]'s lock-free queues, but a mutex-guarded
// slice or channel works equally well for low-throughput or test use.
type BackingQueue[E any] interface {
	// Enqueue appends entry. Returns ErrWouldBlock if the backing queue is
	// full. The conflation queues do not retry: any error from Enqueue,
	// ErrWouldBlock included, is returned wrapped in [ErrBackingQueueRefused]
	// and leaves the key latched without being queued.
	Enqueue(entry *E) error
	// Dequeue removes and returns the oldest entry. Returns ErrWouldBlock
	// if the backing queue is empty.
	Dequeue() (*E, error)
}

// BackingQueueFactory constructs a fresh, empty BackingQueue. Conflation
// queue constructors call it exactly once.
type BackingQueueFactory[E any] func() BackingQueue[E]

// lfqBackingQueue adapts a code.hybscloud.com/conflate/queue.Queue[*E],
// which stores T=*E by value, into the single-indirection BackingQueue[E]
// interface.
type lfqBackingQueue[E any] struct {
	q queue.Queue[*E]
}

func (b *lfqBackingQueue[E]) Enqueue(entry *E) error { return b.q.Enqueue(&entry) }

func (b *lfqBackingQueue[E]) Dequeue() (*E, error) { return b.q.Dequeue() }

// LfqSPSC adapts code.hybscloud.com/conflate/queue's single-producer
// single-consumer ring buffer into a BackingQueueFactory. Use when exactly
// one goroutine calls Appender.Enqueue and exactly one calls Poller.Poll.
func LfqSPSC[E any](capacity int) BackingQueueFactory[E] {
	return func() BackingQueue[E] { return &lfqBackingQueue[E]{q: queue.NewSPSC[*E](capacity)} }
}

// LfqMPSC adapts the multi-producer single-consumer queue. Use when many
// goroutines call Enqueue but only one calls Poll.
func LfqMPSC[E any](capacity int) BackingQueueFactory[E] {
	return func() BackingQueue[E] { return &lfqBackingQueue[E]{q: queue.NewMPSC[*E](capacity)} }
}

// LfqSPMC adapts the single-producer multi-consumer queue. Use when one
// goroutine calls Enqueue but many call Poll.
func LfqSPMC[E any](capacity int) BackingQueueFactory[E] {
	return func() BackingQueue[E] { return &lfqBackingQueue[E]{q: queue.NewSPMC[*E](capacity)} }
}

// LfqMPMC adapts the fully general multi-producer multi-consumer queue.
func LfqMPMC[E any](capacity int) BackingQueueFactory[E] {
	return func() BackingQueue[E] { return &lfqBackingQueue[E]{q: queue.NewMPMC[*E](capacity)} }
}
