// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package queue provides bounded lock-free FIFO queue implementations.
//
// It is the backing-queue layer for [code.hybscloud.com/conflate]: a
// conflation queue latches values into per-key Entry objects and uses one
// of these queues to track which Entries are currently "in-flight". Any
// queue here can also be used standalone wherever a bounded MP/MC FIFO of
// pointers is needed.
//
// The package offers multiple queue variants optimized for different
// producer/consumer patterns:
//
//   - SPSC: Single-Producer Single-Consumer
//   - MPSC: Multi-Producer Single-Consumer
//   - SPMC: Single-Producer Multi-Consumer
//   - MPMC: Multi-Producer Multi-Consumer
//
// # Quick Start
//
// Direct constructors (recommended for most cases):
//
//	q := queue.NewSPSC[Event](1024)
//	q := queue.NewMPMC[*Request](4096)
//
// Builder API auto-selects algorithm based on constraints:
//
//	q := queue.Build[Event](queue.New(1024).SingleProducer().SingleConsumer())  // → SPSC
//	q := queue.Build[Event](queue.New(1024).SingleConsumer())                   // → MPSC
//	q := queue.Build[Event](queue.New(1024).SingleProducer())                   // → SPMC
//	q := queue.Build[Event](queue.New(1024))                                    // → MPMC
//
// # Basic Usage
//
// All queues share the same interface for enqueueing and dequeueing:
//
//	q := queue.NewMPMC[int](1024)
//
//	value := 42
//	err := q.Enqueue(&value)
//	if queue.IsWouldBlock(err) {
//	    // Queue is full - handle backpressure
//	}
//
//	elem, err := q.Dequeue()
//	if queue.IsWouldBlock(err) {
//	    // Queue is empty - try again later
//	}
//
// # Entry references
//
// The conflation layer never enqueues values directly; it enqueues pointers
// to its own Entry objects, one per conflation key, which are allocated once
// and reused for the life of the queue:
//
//	type entry struct{ key string /* ... */ }
//	q := queue.NewMPMC[*entry](1024)
//	e := &entry{key: "acct-1"}
//	q.Enqueue(&e)
//	got, _ := q.Dequeue() // got == e, same pointer, no copy of payload
//
// # Algorithm Selection
//
// The builder selects algorithms based on constraints and Compact() hint:
//
// Default (FAA-based, 2n slots for capacity n):
//
//	SPSC: Lamport ring buffer (n slots, already optimal)
//	MPSC: FAA producers, sequential consumer
//	SPMC: Sequential producer, FAA consumers
//	MPMC: FAA-based SCQ algorithm
//
// With Compact() (CAS-based, n slots for capacity n):
//
//	SPSC: Same as default (already optimal)
//	MPSC: CAS producers, sequential consumer
//	SPMC: Sequential producer, CAS consumers
//	MPMC: Sequence-based algorithm
//
// FAA (Fetch-And-Add) scales better under high contention but requires
// 2n physical slots. Use Compact() when memory efficiency is critical.
//
// # Error Handling
//
// Queues return [ErrWouldBlock] when operations cannot proceed. This error
// is sourced from [code.hybscloud.com/iox] for ecosystem consistency.
//
//	queue.IsWouldBlock(err)  // true if queue full/empty
//	queue.IsSemantic(err)    // true if control flow signal
//	queue.IsNonFailure(err)  // true if nil or ErrWouldBlock
//
// # Capacity and Length
//
// Capacity rounds up to the next power of 2:
//
//	q := queue.NewMPMC[int](3)     // Actual capacity: 4
//	q := queue.NewMPMC[int](1000)  // Actual capacity: 1024
//
// Minimum capacity is 2. Panic if capacity < 2.
//
// Length is intentionally not provided because accurate counts in lock-free
// algorithms require expensive cross-core synchronization. The conflation
// layer tracks its own approximate size separately (see the Size method of
// each conflate queue type).
//
// # Thread Safety
//
// All queue operations are thread-safe within their access pattern constraints:
//
//   - SPSC: One producer goroutine, one consumer goroutine
//   - MPSC: Multiple producer goroutines, one consumer goroutine
//   - SPMC: One producer goroutine, multiple consumer goroutines
//   - MPMC: Multiple producer and consumer goroutines
//
// Violating these constraints causes undefined behavior including data
// corruption and races.
//
// # Graceful Shutdown
//
// The FAA-based multi-consumer queues (MPMC, SPMC) include a threshold
// mechanism to prevent livelock. This mechanism may cause Dequeue to return
// [ErrWouldBlock] even when items remain, waiting for producer activity to
// reset the threshold.
//
// For graceful shutdown scenarios where producers have finished but consumers
// need to drain remaining items, MPMC and MPSC implement the [Drainer]
// interface:
//
//	prodWg.Wait()
//	if d, ok := q.(queue.Drainer); ok {
//	    d.Drain()
//	}
//
// After Drain is called, MPMC's Dequeue skips threshold checks, allowing
// consumers to fully drain the queue. MPSC has no threshold, so Drain does
// not change how its Dequeue behaves. Drain is a hint — the caller must
// ensure no further Enqueue calls will be made.
//
// SPSC queues do not implement [Drainer] as they have no threshold mechanism.
// SPMC does not implement [Drainer] either: once its threshold is exhausted,
// its Dequeue returns [ErrWouldBlock] until the next Enqueue resets it.
//
// # Race Detection
//
// Go's race detector tracks explicit synchronization primitives (mutex,
// channels, WaitGroup) but cannot observe happens-before relationships
// established through atomic memory orderings alone. Lock-free queues use
// sequence numbers with acquire-release semantics to protect non-atomic
// data fields; these algorithms are correct, but the race detector may
// report false positives. Individual concurrent tests check [RaceEnabled]
// and skip themselves at runtime; the heavier many-goroutine stress tests
// are excluded outright via a //go:build !race file tag instead.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause instructions.
package queue
