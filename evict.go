// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conflate

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

// evictMarker is the payload swapped atomically into an EvictEntry's slot.
// It is never written while installed in a slot; only the Appender or Poller
// that got it back from a swap rewrites it for reuse. used distinguishes a producer-installed value (USED)
// from a consumer exchange slot (UNUSED); hasValue distinguishes a real
// payload from the zero-value placeholder installed at Entry creation and
// by a no-exchange Poll.
type evictMarker[V any] struct {
	used     bool
	hasValue bool
	value    V
}

// EvictEntry is the per-key latch used by an EvictQueue. Unlike AtomicEntry,
// its slot is never nil: it starts and remains populated with an UNUSED
// marker whenever no value is latched, so a consumer's exchange payload has
// somewhere to live between polls.
type EvictEntry[K comparable, V any] struct {
	_    pad
	key  K
	slot atomic.Pointer[evictMarker[V]]
	_    padShort
}

// Key returns the conflation key this Entry is latched to.
func (e *EvictEntry[K, V]) Key() K { return e.key }

func newEvictEntry[K comparable, V any](key K) *EvictEntry[K, V] {
	e := &EvictEntry[K, V]{key: key}
	e.slot.Store(&evictMarker[V]{})
	return e
}

// EvictQueue is the latest-value-wins conflation queue with producer and
// consumer exchange: every Enqueue and Poll swaps a marker out of the
// Entry's slot and may return it, letting callers recycle buffers instead of
// allocating. Appenders and Pollers are per-goroutine: each keeps one
// reusable marker, so a steady-state Enqueue/Poll loop allocates nothing
// after warm-up.
type EvictQueue[K comparable, V any] struct {
	bq       BackingQueue[EvictEntry[K, V]]
	keys     keyIndex[K, EvictEntry[K, V]]
	size     atomix.Int64
	appendLF func() AppenderListener[K, V]
	pollLF   func() PollerListener[K, V]
}

// EvictOption configures a queue built by NewEvictQueue.
type EvictOption[K comparable, V any] func(*evictConfig[K, V])

type evictConfig[K comparable, V any] struct {
	backing      BackingQueueFactory[EvictEntry[K, V]]
	dynamicKeys  bool
	declaredKeys []K
	appendLF     func() AppenderListener[K, V]
	pollLF       func() PollerListener[K, V]
}

// WithEvictBackingQueueFactory supplies the FIFO of Entry references.
func WithEvictBackingQueueFactory[K comparable, V any](f BackingQueueFactory[EvictEntry[K, V]]) EvictOption[K, V] {
	return func(c *evictConfig[K, V]) { c.backing = f }
}

// WithEvictDynamicKeys selects lazily-discovered keys (the default).
func WithEvictDynamicKeys[K comparable, V any]() EvictOption[K, V] {
	return func(c *evictConfig[K, V]) { c.dynamicKeys = true; c.declaredKeys = nil }
}

// WithEvictDeclaredKeys selects a fixed, eagerly-allocated key set.
func WithEvictDeclaredKeys[K comparable, V any](keys ...K) EvictOption[K, V] {
	return func(c *evictConfig[K, V]) { c.dynamicKeys = false; c.declaredKeys = keys }
}

// WithEvictAppenderListenerFactory installs a per-Appender listener factory.
func WithEvictAppenderListenerFactory[K comparable, V any](f func() AppenderListener[K, V]) EvictOption[K, V] {
	return func(c *evictConfig[K, V]) { c.appendLF = f }
}

// WithEvictPollerListenerFactory installs a per-Poller listener factory.
func WithEvictPollerListenerFactory[K comparable, V any](f func() PollerListener[K, V]) EvictOption[K, V] {
	return func(c *evictConfig[K, V]) { c.pollLF = f }
}

// NewEvictQueue builds an EvictQueue from options. WithEvictBackingQueueFactory
// is required.
func NewEvictQueue[K comparable, V any](opts ...EvictOption[K, V]) (*EvictQueue[K, V], error) {
	cfg := evictConfig[K, V]{dynamicKeys: true}
	for _, opt := range opts {
		opt(&cfg)
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
	q := &EvictQueue[K, V]{bq: cfg.backing(), appendLF: cfg.appendLF, pollLF: cfg.pollLF}
	if cfg.dynamicKeys {
		q.keys = newDynamicKeyIndex[K, EvictEntry[K, V]]()
	} else {
		ki, err := newDeclaredKeyIndex(cfg.declaredKeys, newEvictEntry[K, V])
		if err != nil {
			return nil, err
		}
		q.keys = ki
	}
	return q, nil
}

// NewEvictQueueSPSC builds an EvictQueue backed by LfqSPSC(capacity).
func NewEvictQueueSPSC[K comparable, V any](capacity int, opts ...EvictOption[K, V]) (*EvictQueue[K, V], error) {
	return NewEvictQueue(append([]EvictOption[K, V]{WithEvictBackingQueueFactory(LfqSPSC[EvictEntry[K, V]](capacity))}, opts...)...)
}

// NewEvictQueueMPSC builds an EvictQueue backed by LfqMPSC(capacity).
func NewEvictQueueMPSC[K comparable, V any](capacity int, opts ...EvictOption[K, V]) (*EvictQueue[K, V], error) {
	return NewEvictQueue(append([]EvictOption[K, V]{WithEvictBackingQueueFactory(LfqMPSC[EvictEntry[K, V]](capacity))}, opts...)...)
}

// NewEvictQueueSPMC builds an EvictQueue backed by LfqSPMC(capacity).
func NewEvictQueueSPMC[K comparable, V any](capacity int, opts ...EvictOption[K, V]) (*EvictQueue[K, V], error) {
	return NewEvictQueue(append([]EvictOption[K, V]{WithEvictBackingQueueFactory(LfqSPMC[EvictEntry[K, V]](capacity))}, opts...)...)
}

// NewEvictQueueMPMC builds an EvictQueue backed by LfqMPMC(capacity).
func NewEvictQueueMPMC[K comparable, V any](capacity int, opts ...EvictOption[K, V]) (*EvictQueue[K, V], error) {
	return NewEvictQueue(append([]EvictOption[K, V]{WithEvictBackingQueueFactory(LfqMPMC[EvictEntry[K, V]](capacity))}, opts...)...)
}

// Size returns the approximate number of keys currently in-flight.
func (q *EvictQueue[K, V]) Size() int64 { return q.size.LoadAcquire() }

// Appender returns a new Appender holding one reusable marker. The marker is
// kept in an unsynchronised field, so an Appender must not be shared across
// goroutines, whatever the backing queue's producer side allows; give each
// producer goroutine its own Appender.
func (q *EvictQueue[K, V]) Appender() *EvictAppender[K, V] {
	return &EvictAppender[K, V]{q: q, listener: q.appendLF()}
}

// Poller returns a new Poller holding one reusable marker.
func (q *EvictQueue[K, V]) Poller() *EvictPoller[K, V] {
	return &EvictPoller[K, V]{q: q, listener: q.pollLF()}
}

// EvictAppender enqueues values into an EvictQueue, recycling the marker it
// gets back from each swap as the scratch object for its next call.
type EvictAppender[K comparable, V any] struct {
	q        *EvictQueue[K, V]
	listener AppenderListener[K, V]
	scratch  *evictMarker[V]
}

// Enqueue latches value under key. released is the value displaced by this
// call: for Unconflated it is any exchange value installed by a prior Poll
// (releasedOK reports whether one was present); for Evicted it is the prior
// producer value (always present).
func (a *EvictAppender[K, V]) Enqueue(key K, value V) (released V, releasedOK bool, outcome Conflation, err error) {
	e, err := a.q.keys.getOrCreate(key, newEvictEntry[K, V])
	if err != nil {
		return released, false, Unconflated, err
	}
	m := a.scratch
	if m == nil {
		m = &evictMarker[V]{}
	}
	m.used = true
	m.hasValue = true
	m.value = value
	prior := e.slot.Swap(m)
	a.scratch = prior
	if !prior.used {
		if err := a.q.bq.Enqueue(e); err != nil {
			return released, false, Unconflated, &ErrBackingQueueRefused{Err: err}
		}
		a.q.size.AddAcqRel(1)
		a.listener.OnEnqueue(key, value, Unconflated)
		return prior.value, prior.hasValue, Unconflated, nil
	}
	a.listener.OnEnqueue(key, value, Evicted)
	return prior.value, true, Evicted, nil
}

// EvictPoller dequeues values from an EvictQueue, optionally installing an
// exchange value for the next Appender.Enqueue to pick up.
type EvictPoller[K comparable, V any] struct {
	q        *EvictQueue[K, V]
	listener PollerListener[K, V]
	scratch  *evictMarker[V]
}

// Poll removes and returns the oldest latched (key, value) pair, leaving the
// Entry's exchange slot empty.
func (p *EvictPoller[K, V]) Poll() (key K, value V, ok bool, err error) {
	var zero V
	return p.poll(zero, false)
}

// PollExchange removes and returns the oldest latched (key, value) pair and
// installs exchange into the Entry, so the next Appender.Enqueue for that
// key receives it back as its released value.
func (p *EvictPoller[K, V]) PollExchange(exchange V) (key K, value V, ok bool, err error) {
	return p.poll(exchange, true)
}

func (p *EvictPoller[K, V]) poll(exchange V, hasExchange bool) (key K, value V, ok bool, err error) {
	e, err := p.q.bq.Dequeue()
	if err != nil {
		if IsWouldBlock(err) {
			return key, value, false, nil
		}
		return key, value, false, err
	}
	m := p.scratch
	if m == nil {
		m = &evictMarker[V]{}
	}
	m.used = false
	m.hasValue = hasExchange
	m.value = exchange
	prior := e.slot.Swap(m)
	p.scratch = prior
	p.q.size.AddAcqRel(-1)
	key = e.key
	value = prior.value
	p.listener.OnPoll(key, value)
	return key, value, true, nil
}

// PollFunc removes the oldest latched (key, value) pair, leaving the Entry's
// exchange slot empty, and invokes fn with it. ok is false and fn is not
// called if the queue is currently empty.
func (p *EvictPoller[K, V]) PollFunc(fn func(key K, value V)) (ok bool, err error) {
	key, value, ok, err := p.Poll()
	if !ok || err != nil {
		return ok, err
	}
	fn(key, value)
	return true, nil
}
