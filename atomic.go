// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conflate

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

// AtomicEntry is the per-key latch used by an AtomicQueue. Its value slot is
// nil when no value is latched (the key has drained) and non-nil once a
// producer has written to it. The whole state machine is a single pointer
// swap: there is no separate "state" tag to go out of sync with the value.
type AtomicEntry[K comparable, V any] struct {
	_     pad
	key   K
	value atomic.Pointer[V]
	_     padShort
}

// Key returns the conflation key this Entry is latched to.
func (e *AtomicEntry[K, V]) Key() K { return e.key }

func newAtomicEntry[K comparable, V any](key K) *AtomicEntry[K, V] {
	return &AtomicEntry[K, V]{key: key}
}

// AtomicQueue is the latest-value-wins conflation queue: a new value for a
// key that is already latched overwrites and discards the prior value, with
// a single CAS-free pointer swap per Enqueue and per Poll.
//
// Every Enqueue copies its value into a newly allocated *V, whatever type V
// is, and swaps that pointer into the Entry's slot.
type AtomicQueue[K comparable, V any] struct {
	bq       BackingQueue[AtomicEntry[K, V]]
	keys     keyIndex[K, AtomicEntry[K, V]]
	size     atomix.Int64
	appendLF func() AppenderListener[K, V]
	pollLF   func() PollerListener[K, V]
}

// AtomicOption configures a queue built by NewAtomicQueue.
type AtomicOption[K comparable, V any] func(*atomicConfig[K, V])

type atomicConfig[K comparable, V any] struct {
	backing      BackingQueueFactory[AtomicEntry[K, V]]
	dynamicKeys  bool
	declaredKeys []K
	appendLF     func() AppenderListener[K, V]
	pollLF       func() PollerListener[K, V]
}

// WithBackingQueueFactory supplies the FIFO of Entry references the queue
// uses to order keys. Required; omitting it is an error from NewAtomicQueue.
func WithBackingQueueFactory[K comparable, V any](f BackingQueueFactory[AtomicEntry[K, V]]) AtomicOption[K, V] {
	return func(c *atomicConfig[K, V]) { c.backing = f }
}

// WithDynamicKeys selects the default key mode: keys are discovered lazily
// and their Entries allocated on first Enqueue.
func WithDynamicKeys[K comparable, V any]() AtomicOption[K, V] {
	return func(c *atomicConfig[K, V]) { c.dynamicKeys = true; c.declaredKeys = nil }
}

// WithDeclaredKeys selects declared-key mode: every Entry in keys is
// allocated eagerly at construction, and Enqueue calls with any other key
// fail with ErrUnknownKey. Duplicate keys are rejected at construction.
func WithDeclaredKeys[K comparable, V any](keys ...K) AtomicOption[K, V] {
	return func(c *atomicConfig[K, V]) { c.dynamicKeys = false; c.declaredKeys = keys }
}

// WithAppenderListenerFactory installs a per-Appender AppenderListener
// factory. The factory is called once per Appender() call.
func WithAppenderListenerFactory[K comparable, V any](f func() AppenderListener[K, V]) AtomicOption[K, V] {
	return func(c *atomicConfig[K, V]) { c.appendLF = f }
}

// WithPollerListenerFactory installs a per-Poller PollerListener factory.
func WithPollerListenerFactory[K comparable, V any](f func() PollerListener[K, V]) AtomicOption[K, V] {
	return func(c *atomicConfig[K, V]) { c.pollLF = f }
}

// NewAtomicQueue builds an AtomicQueue from options. WithBackingQueueFactory
// is required; all other options have defaults (dynamic keys, no-op
// listeners).
func NewAtomicQueue[K comparable, V any](opts ...AtomicOption[K, V]) (*AtomicQueue[K, V], error) {
	cfg := atomicConfig[K, V]{dynamicKeys: true}
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
	q := &AtomicQueue[K, V]{
		bq:       cfg.backing(),
		appendLF: cfg.appendLF,
		pollLF:   cfg.pollLF,
	}
	if cfg.dynamicKeys {
		q.keys = newDynamicKeyIndex[K, AtomicEntry[K, V]]()
	} else {
		ki, err := newDeclaredKeyIndex(cfg.declaredKeys, newAtomicEntry[K, V])
		if err != nil {
			return nil, err
		}
		q.keys = ki
	}
	return q, nil
}

// NewAtomicQueueSPSC builds an AtomicQueue backed by LfqSPSC(capacity).
func NewAtomicQueueSPSC[K comparable, V any](capacity int, opts ...AtomicOption[K, V]) (*AtomicQueue[K, V], error) {
	return NewAtomicQueue(append([]AtomicOption[K, V]{WithBackingQueueFactory(LfqSPSC[AtomicEntry[K, V]](capacity))}, opts...)...)
}

// NewAtomicQueueMPSC builds an AtomicQueue backed by LfqMPSC(capacity).
func NewAtomicQueueMPSC[K comparable, V any](capacity int, opts ...AtomicOption[K, V]) (*AtomicQueue[K, V], error) {
	return NewAtomicQueue(append([]AtomicOption[K, V]{WithBackingQueueFactory(LfqMPSC[AtomicEntry[K, V]](capacity))}, opts...)...)
}

// NewAtomicQueueSPMC builds an AtomicQueue backed by LfqSPMC(capacity).
func NewAtomicQueueSPMC[K comparable, V any](capacity int, opts ...AtomicOption[K, V]) (*AtomicQueue[K, V], error) {
	return NewAtomicQueue(append([]AtomicOption[K, V]{WithBackingQueueFactory(LfqSPMC[AtomicEntry[K, V]](capacity))}, opts...)...)
}

// NewAtomicQueueMPMC builds an AtomicQueue backed by LfqMPMC(capacity).
func NewAtomicQueueMPMC[K comparable, V any](capacity int, opts ...AtomicOption[K, V]) (*AtomicQueue[K, V], error) {
	return NewAtomicQueue(append([]AtomicOption[K, V]{WithBackingQueueFactory(LfqMPMC[AtomicEntry[K, V]](capacity))}, opts...)...)
}

// Size returns the approximate number of keys currently latched with a
// value and present in the backing queue. It is exact for SPSC backings and
// approximate (may transiently lag) for concurrent producer/consumer
// backings, matching the backing queue's own accuracy guarantees.
func (q *AtomicQueue[K, V]) Size() int64 { return q.size.LoadAcquire() }

// Appender returns a stateless Appender safe to share across goroutines.
func (q *AtomicQueue[K, V]) Appender() *AtomicAppender[K, V] {
	return &AtomicAppender[K, V]{q: q, listener: q.appendLF()}
}

// Poller returns a stateless Poller safe to share across goroutines
// consistent with the backing queue's own consumer concurrency.
func (q *AtomicQueue[K, V]) Poller() *AtomicPoller[K, V] {
	return &AtomicPoller[K, V]{q: q, listener: q.pollLF()}
}

// AtomicAppender enqueues values into an AtomicQueue.
type AtomicAppender[K comparable, V any] struct {
	q        *AtomicQueue[K, V]
	listener AppenderListener[K, V]
}

// Enqueue latches value under key. If the key had no value latched, it is
// appended to the backing queue and Unconflated is reported. If the key
// already had a value latched, the prior value is discarded, Evicted is
// reported, and released is the discarded value.
func (a *AtomicAppender[K, V]) Enqueue(key K, value V) (released V, releasedOK bool, outcome Conflation, err error) {
	e, err := a.q.keys.getOrCreate(key, newAtomicEntry[K, V])
	if err != nil {
		return released, false, Unconflated, err
	}
	v := value
	prior := e.value.Swap(&v)
	if prior == nil {
		if err := a.q.bq.Enqueue(e); err != nil {
			return released, false, Unconflated, &ErrBackingQueueRefused{Err: err}
		}
		a.q.size.AddAcqRel(1)
		a.listener.OnEnqueue(key, value, Unconflated)
		return released, false, Unconflated, nil
	}
	a.listener.OnEnqueue(key, value, Evicted)
	return *prior, true, Evicted, nil
}

// AtomicPoller dequeues values from an AtomicQueue.
type AtomicPoller[K comparable, V any] struct {
	q        *AtomicQueue[K, V]
	listener PollerListener[K, V]
}

// Poll removes and returns the oldest latched (key, value) pair. ok is false
// with a nil error if the queue is currently empty.
func (p *AtomicPoller[K, V]) Poll() (key K, value V, ok bool, err error) {
	e, err := p.q.bq.Dequeue()
	if err != nil {
		if IsWouldBlock(err) {
			return key, value, false, nil
		}
		return key, value, false, err
	}
	old := e.value.Swap(nil)
	p.q.size.AddAcqRel(-1)
	key = e.key
	value = *old
	p.listener.OnPoll(key, value)
	return key, value, true, nil
}

// PollFunc removes the oldest latched (key, value) pair and invokes fn with
// it. ok is false with a nil error and fn is not called if the queue is
// currently empty.
func (p *AtomicPoller[K, V]) PollFunc(fn func(key K, value V)) (ok bool, err error) {
	key, value, ok, err := p.Poll()
	if !ok || err != nil {
		return ok, err
	}
	fn(key, value)
	return true, nil
}
