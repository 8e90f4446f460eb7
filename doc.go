// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package conflate provides conflation queues: bounded-growth queues in
// which a value carrying a conflation key supersedes or merges with any
// prior in-queue value sharing that key, preventing unbounded backlog when
// a consumer lags a producer.
//
// Three variants trade off features for cost:
//
//   - Atomic: latest-value-wins, single atomic pointer swap per operation, stateless
//     Appender/Poller that may be shared across threads.
//   - Evict: latest-value-wins plus a producer/consumer exchange value for
//     object reuse; per-thread Appender/Poller holding one reusable marker.
//   - Merge: combines the superseded and superseding values with a
//     caller-supplied merge function; per-thread Appender/Poller, lock-free
//     with a short bounded spin on both the producer and consumer side.
//
// # Quick Start
//
//	q, err := conflate.NewAtomicQueueMPMC[string, int](1024)
//	if err != nil {
//	    panic(err)
//	}
//
//	ap := q.Appender()
//	prev, ok, outcome, err := ap.Enqueue("acct-1", 10) // ok == false: first enqueue for this key
//	prev, ok, outcome, err = ap.Enqueue("acct-1", 20)  // prev == 10, ok == true, outcome == Evicted
//
//	po := q.Poller()
//	key, val, ok, err := po.Poll() // key == "acct-1", val == 20, ok == true
//
// # Choosing a backing queue
//
// A conflation queue does not manage its own storage; it latches values
// into per-key Entry objects ([AtomicEntry], [EvictEntry], [MergeEntry]) and
// threads a [BackingQueue] through them to
// decide which Entries are "in-flight" and in what order they drain. The
// [code.hybscloud.com/conflate/queue] package supplies that FIFO, in four
// producer/consumer shapes (SPSC/MPSC/SPMC/MPMC); [LfqSPSC], [LfqMPSC],
// [LfqSPMC], and [LfqMPMC] adapt each shape into a [BackingQueueFactory].
// Pick the shape matching how many goroutines will call an Appender's
// Enqueue and a Poller's Poll concurrently.
//
// # Key modes
//
// By default keys are tracked in a dynamic, lazily-populated map
// ([WithDynamicKeys], the default). For a known, fixed key set (an enum of
// channels, say), [WithDeclaredKeys] eagerly allocates one Entry per key at
// construction time, removing per-enqueue map contention from the hot path.
//
// # Listeners
//
// [WithAppenderListenerFactory] and [WithPollerListenerFactory] install
// observability hooks invoked strictly after queue state is coherent, so a
// panicking listener cannot corrupt queue invariants (it still propagates
// to the caller of Enqueue/Poll after state has already been committed).
package conflate
