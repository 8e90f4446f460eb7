// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conflate

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// mergeState tags a mergeMarker's lifecycle. Unlike evictMarker's used flag,
// this tag lives inside the marker object itself and is flipped in place by
// a second atomic store after the marker has already been swapped into the
// Entry's slot, so a concurrent reader can tell a half-published merge from
// a finished one.
type mergeState int32

const (
	mergeUnused mergeState = iota
	mergeUnconfirmed
	mergeConfirmed
)

// mergeMarker is swapped into a MergeEntry's slot by producers. Exclusivity
// is established the instant the pointer swap lands; the value itself only
// becomes safe to read once state observably reaches mergeConfirmed, which
// publishes with release-ordering over whatever wrote value. hasValue
// distinguishes a real payload (producer-confirmed merge, or a consumer
// exchange) from the zero-value placeholder a fresh Entry or a no-exchange
// Poll installs.
type mergeMarker[V any] struct {
	state    atomic.Int32
	hasValue bool
	value    V
}

func (m *mergeMarker[V]) loadState() mergeState { return mergeState(m.state.Load()) }
func (m *mergeMarker[V]) publish(s mergeState)  { m.state.Store(int32(s)) }

// Merger combines a superseded value with the superseding one, returning the
// value to latch in its place. It must be callable concurrently with itself
// for different keys. A panicking Merger's key resolves as though the merge
// had returned the older value, reported to listeners as Merged; the panic
// then propagates to the caller of Enqueue.
type Merger[K comparable, V any] func(key K, older, newer V) V

// MergeEntry is the per-key latch used by a MergeQueue.
type MergeEntry[K comparable, V any] struct {
	_    pad
	key  K
	slot atomic.Pointer[mergeMarker[V]]
	_    padShort
}

// Key returns the conflation key this Entry is latched to.
func (e *MergeEntry[K, V]) Key() K { return e.key }

func newMergeEntry[K comparable, V any](key K) *MergeEntry[K, V] {
	e := &MergeEntry[K, V]{key: key}
	m := &mergeMarker[V]{}
	m.state.Store(int32(mergeUnused))
	e.slot.Store(m)
	return e
}

// MergeQueue combines the superseded and superseding values for a key via a
// caller-supplied Merger instead of discarding the superseded one. Producers
// and consumers each do a short bounded spin waiting for a concurrent
// merge to publish; the producer side is not wait-free, matching the
// two-phase swap-then-publish protocol this variant requires.
type MergeQueue[K comparable, V any] struct {
	merger   Merger[K, V]
	bq       BackingQueue[MergeEntry[K, V]]
	keys     keyIndex[K, MergeEntry[K, V]]
	size     atomix.Int64
	appendLF func() AppenderListener[K, V]
	pollLF   func() PollerListener[K, V]
}

// MergeOption configures a queue built by NewMergeQueue.
type MergeOption[K comparable, V any] func(*mergeConfig[K, V])

type mergeConfig[K comparable, V any] struct {
	merger       Merger[K, V]
	backing      BackingQueueFactory[MergeEntry[K, V]]
	dynamicKeys  bool
	declaredKeys []K
	appendLF     func() AppenderListener[K, V]
	pollLF       func() PollerListener[K, V]
}

// WithMerger supplies the combining function. Required.
func WithMerger[K comparable, V any](m Merger[K, V]) MergeOption[K, V] {
	return func(c *mergeConfig[K, V]) { c.merger = m }
}

// WithMergeBackingQueueFactory supplies the FIFO of Entry references.
func WithMergeBackingQueueFactory[K comparable, V any](f BackingQueueFactory[MergeEntry[K, V]]) MergeOption[K, V] {
	return func(c *mergeConfig[K, V]) { c.backing = f }
}

// WithMergeDynamicKeys selects lazily-discovered keys (the default).
func WithMergeDynamicKeys[K comparable, V any]() MergeOption[K, V] {
	return func(c *mergeConfig[K, V]) { c.dynamicKeys = true; c.declaredKeys = nil }
}

// WithMergeDeclaredKeys selects a fixed, eagerly-allocated key set.
func WithMergeDeclaredKeys[K comparable, V any](keys ...K) MergeOption[K, V] {
	return func(c *mergeConfig[K, V]) { c.dynamicKeys = false; c.declaredKeys = keys }
}

// WithMergeAppenderListenerFactory installs a per-Appender listener factory.
func WithMergeAppenderListenerFactory[K comparable, V any](f func() AppenderListener[K, V]) MergeOption[K, V] {
	return func(c *mergeConfig[K, V]) { c.appendLF = f }
}

// WithMergePollerListenerFactory installs a per-Poller listener factory.
func WithMergePollerListenerFactory[K comparable, V any](f func() PollerListener[K, V]) MergeOption[K, V] {
	return func(c *mergeConfig[K, V]) { c.pollLF = f }
}

// NewMergeQueue builds a MergeQueue from options. WithMerger and
// WithMergeBackingQueueFactory are both required.
func NewMergeQueue[K comparable, V any](opts ...MergeOption[K, V]) (*MergeQueue[K, V], error) {
	cfg := mergeConfig[K, V]{dynamicKeys: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.merger == nil {
		return nil, ErrNilMerger
	}
	if cfg.backing == nil {
		return nil, ErrNilBackingQueueFactory
	}
	if cfg.appendLF == nil {
		cfg.appendLF = defaultAppenderListenerFactory[K, V]()
	}
	if cfg.pollLF == nil {
		cfg.pollLF = defaultPollerListenerFactory[K, V]()
	}
	q := &MergeQueue[K, V]{merger: cfg.merger, bq: cfg.backing(), appendLF: cfg.appendLF, pollLF: cfg.pollLF}
	if cfg.dynamicKeys {
		q.keys = newDynamicKeyIndex[K, MergeEntry[K, V]]()
	} else {
		ki, err := newDeclaredKeyIndex(cfg.declaredKeys, newMergeEntry[K, V])
		if err != nil {
			return nil, err
		}
		q.keys = ki
	}
	return q, nil
}

// NewMergeQueueSPSC builds a MergeQueue backed by LfqSPSC(capacity).
func NewMergeQueueSPSC[K comparable, V any](capacity int, merger Merger[K, V], opts ...MergeOption[K, V]) (*MergeQueue[K, V], error) {
	return NewMergeQueue(append([]MergeOption[K, V]{WithMerger(merger), WithMergeBackingQueueFactory(LfqSPSC[MergeEntry[K, V]](capacity))}, opts...)...)
}

// NewMergeQueueMPSC builds a MergeQueue backed by LfqMPSC(capacity).
func NewMergeQueueMPSC[K comparable, V any](capacity int, merger Merger[K, V], opts ...MergeOption[K, V]) (*MergeQueue[K, V], error) {
	return NewMergeQueue(append([]MergeOption[K, V]{WithMerger(merger), WithMergeBackingQueueFactory(LfqMPSC[MergeEntry[K, V]](capacity))}, opts...)...)
}

// NewMergeQueueSPMC builds a MergeQueue backed by LfqSPMC(capacity).
func NewMergeQueueSPMC[K comparable, V any](capacity int, merger Merger[K, V], opts ...MergeOption[K, V]) (*MergeQueue[K, V], error) {
	return NewMergeQueue(append([]MergeOption[K, V]{WithMerger(merger), WithMergeBackingQueueFactory(LfqSPMC[MergeEntry[K, V]](capacity))}, opts...)...)
}

// NewMergeQueueMPMC builds a MergeQueue backed by LfqMPMC(capacity).
func NewMergeQueueMPMC[K comparable, V any](capacity int, merger Merger[K, V], opts ...MergeOption[K, V]) (*MergeQueue[K, V], error) {
	return NewMergeQueue(append([]MergeOption[K, V]{WithMerger(merger), WithMergeBackingQueueFactory(LfqMPMC[MergeEntry[K, V]](capacity))}, opts...)...)
}

// Size returns the approximate number of keys currently in-flight.
func (q *MergeQueue[K, V]) Size() int64 { return q.size.LoadAcquire() }

// Appender returns a new Appender for this queue.
func (q *MergeQueue[K, V]) Appender() *MergeAppender[K, V] {
	return &MergeAppender[K, V]{q: q, listener: q.appendLF()}
}

// Poller returns a new Poller for this queue.
func (q *MergeQueue[K, V]) Poller() *MergePoller[K, V] {
	return &MergePoller[K, V]{q: q, listener: q.pollLF()}
}

// MergeAppender enqueues values into a MergeQueue, recycling the marker it
// gets back from each swap as the scratch object for its next call, same as
// EvictAppender.
type MergeAppender[K comparable, V any] struct {
	q        *MergeQueue[K, V]
	listener AppenderListener[K, V]
	scratch  *mergeMarker[V]
}

// Enqueue latches value under key, combining it with any value already
// latched via the queue's Merger. released is the value handed back to the
// caller, matching EvictAppender.Enqueue's shape: for Unconflated it is any
// exchange value installed by a prior Poll, for Merged it is the older value
// that was combined; releasedOK reports whether the displaced marker carried
// a real payload.
//
// If the Merger panics while combining, the slot is confirmed with the
// older value instead, so the consumer still observes a valid value for the
// key, and the outcome is still reported to the listener as Merged (the
// conflation did occur); the panic is then re-raised here.
func (a *MergeAppender[K, V]) Enqueue(key K, value V) (released V, releasedOK bool, outcome Conflation, err error) {
	e, err := a.q.keys.getOrCreate(key, newMergeEntry[K, V])
	if err != nil {
		return released, false, Unconflated, err
	}

	scratch := a.scratch
	if scratch == nil {
		scratch = &mergeMarker[V]{}
	}
	scratch.hasValue = true
	scratch.value = value
	scratch.publish(mergeUnconfirmed)
	prior := e.slot.Swap(scratch)
	a.scratch = prior

	sw := spin.Wait{}
	for prior.loadState() == mergeUnconfirmed {
		sw.Once()
	}

	if prior.loadState() == mergeUnused {
		scratch.publish(mergeConfirmed)
		if err := a.q.bq.Enqueue(e); err != nil {
			return released, false, Unconflated, &ErrBackingQueueRefused{Err: err}
		}
		a.q.size.AddAcqRel(1)
		a.listener.OnEnqueue(key, value, Unconflated)
		return prior.value, prior.hasValue, Unconflated, nil
	}

	// prior.state == mergeConfirmed: an older value is latched. Merge it
	// with the new one, then publish, recovering from a panicking Merger
	// by confirming the older value verbatim before re-raising.
	older := prior.value
	merged, panicked := a.mergeRecover(key, older, value)
	scratch.value = merged
	scratch.publish(mergeConfirmed)
	a.listener.OnEnqueue(key, merged, Merged)
	if panicked != nil {
		panic(panicked)
	}
	return older, true, Merged, nil
}

func (a *MergeAppender[K, V]) mergeRecover(key K, older, newer V) (merged V, panicVal any) {
	defer func() {
		if r := recover(); r != nil {
			merged = older
			panicVal = r
		}
	}()
	return a.q.merger(key, older, newer), nil
}

// MergePoller dequeues values from a MergeQueue, recycling the marker it
// gets back from each swap as the scratch object for its next call, same as
// EvictPoller.
type MergePoller[K comparable, V any] struct {
	q        *MergeQueue[K, V]
	listener PollerListener[K, V]
	scratch  *mergeMarker[V]
}

// Poll removes and returns the oldest latched (key, value) pair, leaving the
// Entry's slot UNUSED.
func (p *MergePoller[K, V]) Poll() (key K, value V, ok bool, err error) {
	var zero V
	return p.poll(zero, false)
}

// PollExchange removes and returns the oldest latched (key, value) pair and
// installs exchange into the Entry, so the next Appender.Enqueue for that
// key receives it back as its released value.
func (p *MergePoller[K, V]) PollExchange(exchange V) (key K, value V, ok bool, err error) {
	return p.poll(exchange, true)
}

func (p *MergePoller[K, V]) poll(exchange V, hasExchange bool) (key K, value V, ok bool, err error) {
	e, err := p.q.bq.Dequeue()
	if err != nil {
		if IsWouldBlock(err) {
			return key, value, false, nil
		}
		return key, value, false, err
	}

	scratch := p.scratch
	if scratch == nil {
		scratch = &mergeMarker[V]{}
	}
	scratch.hasValue = hasExchange
	scratch.value = exchange
	scratch.publish(mergeUnused)
	prior := e.slot.Swap(scratch)
	p.scratch = prior

	sw := spin.Wait{}
	for prior.loadState() == mergeUnconfirmed {
		sw.Once()
	}

	p.q.size.AddAcqRel(-1)
	key = e.key
	value = prior.value
	p.listener.OnPoll(key, value)
	return key, value, true, nil
}

// PollFunc removes the oldest latched (key, value) pair, leaving the Entry's
// slot UNUSED, and invokes fn with it. ok is false and fn is not called if
// the queue is currently empty.
func (p *MergePoller[K, V]) PollFunc(fn func(key K, value V)) (ok bool, err error) {
	key, value, ok, err := p.Poll()
	if !ok || err != nil {
		return ok, err
	}
	fn(key, value)
	return true, nil
}
