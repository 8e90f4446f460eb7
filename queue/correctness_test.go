// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/conflate/queue"
	"code.hybscloud.com/iox"
)

// =============================================================================
// Test Helpers
// =============================================================================

// retryWithTimeout retries f until it returns true or timeout expires.
func retryWithTimeout(t *testing.T, timeout time.Duration, f func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	backoff := iox.Backoff{}
	for !f() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout after %v: %s", timeout, msg)
		}
		backoff.Wait()
	}
}

// linearizabilityTest launches numP producers and numC consumers, each
// producing/consuming itemsPerProd items, and checks no item is observed
// more than once. Values are encoded as producerID*100000 + sequence.
type linearizabilityTest struct {
	t            *testing.T
	numP, numC   int
	itemsPerProd int
	timeout      time.Duration
}

func (lt *linearizabilityTest) run(enqueue func(v int) error, dequeue func() (int, error)) {
	t := lt.t
	if queue.RaceEnabled {
		t.Skip("skip: linearizability test requires concurrent access")
	}

	var wg sync.WaitGroup
	expectedTotal := lt.numP * lt.itemsPerProd
	seen := make([]atomix.Int32, expectedTotal)
	var consumedCount atomix.Int64
	var timedOut atomix.Bool

	for p := range lt.numP {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			deadline := time.Now().Add(lt.timeout)
			backoff := iox.Backoff{}
			for i := range lt.itemsPerProd {
				v := id*100000 + i
				for enqueue(v) != nil {
					if time.Now().After(deadline) {
						timedOut.Store(true)
						return
					}
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(p)
	}

	var consumeCount atomix.Int64
	for range lt.numC {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deadline := time.Now().Add(lt.timeout)
			backoff := iox.Backoff{}
			for consumeCount.Load() < int64(expectedTotal) {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				v, err := dequeue()
				if err == nil {
					producerID := v / 100000
					seq := v % 100000
					if producerID < 0 || producerID >= lt.numP || seq < 0 || seq >= lt.itemsPerProd {
						t.Errorf("value out of range: %d", v)
						consumeCount.Add(1)
						continue
					}
					idx := producerID*lt.itemsPerProd + seq
					seen[idx].Add(1)
					consumeCount.Add(1)
					consumedCount.Add(1)
					backoff.Reset()
				} else {
					backoff.Wait()
				}
			}
		}()
	}

	wg.Wait()

	var missing, duplicates int
	for i := range expectedTotal {
		count := seen[i].Load()
		if count == 0 {
			missing++
		} else if count > 1 {
			duplicates++
		}
	}

	if duplicates > 0 {
		t.Errorf("linearizability violation: %d duplicates detected", duplicates)
	}
	if timedOut.Load() || missing > 0 {
		t.Logf("consumed %d/%d (missing=%d, threshold exhaustion expected)",
			consumedCount.Load(), expectedTotal, missing)
	}
}

// =============================================================================
// FIFO Ordering Tests
// =============================================================================

func TestSPSCFIFOOrdering(t *testing.T) {
	if queue.RaceEnabled {
		t.Skip("skip: SPSC uses cross-variable memory ordering not understood by race detector")
	}

	q := queue.NewSPSC[int](64)
	const n = 5000

	var wg sync.WaitGroup
	results := make([]int, n)
	var count atomix.Int64
	var timedOut atomix.Bool

	wg.Add(1)
	go func() {
		defer wg.Done()
		deadline := time.Now().Add(5 * time.Second)
		backoff := iox.Backoff{}
		idx := 0
		for idx < n {
			if time.Now().After(deadline) {
				timedOut.Store(true)
				return
			}
			v, err := q.Dequeue()
			if err == nil {
				results[idx] = v
				idx++
				count.Add(1)
				backoff.Reset()
			} else {
				backoff.Wait()
			}
		}
	}()

	for i := range n {
		v := i
		retryWithTimeout(t, 3*time.Second, func() bool {
			return q.Enqueue(&v) == nil
		}, "producer: enqueue item")
	}

	wg.Wait()

	if timedOut.Load() {
		t.Fatalf("consumer timeout: consumed %d/%d", count.Load(), n)
	}
	if count.Load() != n {
		t.Fatalf("consumed %d items, want %d", count.Load(), n)
	}
	for i := range n {
		if results[i] != i {
			t.Fatalf("FIFO violation at %d: got %d, want %d", i, results[i], i)
		}
	}
}

func TestMPSCFIFOOrderingPerProducer(t *testing.T) {
	if queue.RaceEnabled {
		t.Skip("skip: FIFO test requires precise timing")
	}

	q := queue.NewMPSC[int](1024)
	const (
		numProducers = 4
		itemsPerProd = 5000
	)

	var wg sync.WaitGroup
	for p := range numProducers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			deadline := time.Now().Add(5 * time.Second)
			backoff := iox.Backoff{}
			for i := range itemsPerProd {
				v := id*100000 + i
				for q.Enqueue(&v) != nil {
					if time.Now().After(deadline) {
						return
					}
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(p)
	}

	results := make([][]int, numProducers)
	for i := range results {
		results[i] = make([]int, 0, itemsPerProd)
	}
	var resultsMu sync.Mutex
	var timedOut atomix.Bool

	wg.Add(1)
	go func() {
		defer wg.Done()
		collected := 0
		deadline := time.Now().Add(5 * time.Second)
		backoff := iox.Backoff{}
		for collected < numProducers*itemsPerProd {
			if time.Now().After(deadline) {
				timedOut.Store(true)
				return
			}
			v, err := q.Dequeue()
			if err == nil {
				producerID := v / 100000
				seq := v % 100000
				resultsMu.Lock()
				results[producerID] = append(results[producerID], seq)
				resultsMu.Unlock()
				collected++
				backoff.Reset()
			} else {
				backoff.Wait()
			}
		}
	}()

	wg.Wait()
	if timedOut.Load() {
		collected := 0
		for _, seqs := range results {
			collected += len(seqs)
		}
		t.Fatalf("consumer timeout: collected %d/%d", collected, numProducers*itemsPerProd)
	}

	for p, seqs := range results {
		if len(seqs) != itemsPerProd {
			t.Errorf("Producer %d: got %d items, want %d", p, len(seqs), itemsPerProd)
			continue
		}
		for i := 1; i < len(seqs); i++ {
			if seqs[i] <= seqs[i-1] {
				t.Errorf("Producer %d: FIFO violation at index %d: %d <= %d", p, i, seqs[i], seqs[i-1])
				break
			}
		}
	}
}

func TestSPMCFIFOOrderingPerConsumer(t *testing.T) {
	if queue.RaceEnabled {
		t.Skip("skip: FIFO test requires precise timing")
	}

	q := queue.NewSPMC[int](2048)
	const (
		numConsumers = 2
		totalItems   = 2000
	)

	var wg sync.WaitGroup
	var consumed atomix.Int64
	seen := make([]atomix.Int32, totalItems)

	wg.Add(1)
	go func() {
		defer wg.Done()
		deadline := time.Now().Add(5 * time.Second)
		backoff := iox.Backoff{}
		for i := range totalItems {
			v := i
			for q.Enqueue(&v) != nil {
				if time.Now().After(deadline) {
					return
				}
				backoff.Wait()
			}
			backoff.Reset()
		}
	}()

	var timedOut atomix.Bool
	for range numConsumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deadline := time.Now().Add(5 * time.Second)
			backoff := iox.Backoff{}
			last := -1
			for consumed.Load() < totalItems {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				v, err := q.Dequeue()
				if err == nil {
					if v < 0 || v >= totalItems {
						t.Errorf("value out of range: %d", v)
						consumed.Add(1)
						continue
					}
					if v <= last {
						t.Errorf("FIFO violation within consumer: %d after %d", v, last)
					}
					last = v
					seen[v].Add(1)
					consumed.Add(1)
					backoff.Reset()
				} else {
					backoff.Wait()
				}
			}
		}()
	}

	wg.Wait()
	if timedOut.Load() {
		t.Fatalf("timeout: consumed %d/%d", consumed.Load(), totalItems)
	}

	var missing, duplicates int
	for i := range totalItems {
		count := seen[i].Load()
		if count == 0 {
			missing++
		} else if count > 1 {
			duplicates++
		}
	}
	if missing > 0 || duplicates > 0 {
		t.Errorf("missing=%d duplicates=%d", missing, duplicates)
	}
}

// =============================================================================
// Linearizability Tests
// =============================================================================

// TestLinearizability verifies atomic operation semantics across both the
// FAA-based default queues and the CAS-based Seq (Compact) queues.
func TestLinearizability(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T)
	}{
		{"MPMC", func(t *testing.T) {
			q := queue.NewMPMC[int](128)
			lt := &linearizabilityTest{t: t, numP: 2, numC: 2, itemsPerProd: 5000, timeout: 5 * time.Second}
			lt.run(func(v int) error { return q.Enqueue(&v) }, q.Dequeue)
		}},
		{"MPMCSeq", func(t *testing.T) {
			q := queue.NewMPMCSeq[int](128)
			lt := &linearizabilityTest{t: t, numP: 4, numC: 4, itemsPerProd: 5000, timeout: 5 * time.Second}
			lt.run(func(v int) error { return q.Enqueue(&v) }, q.Dequeue)
		}},
		{"MPSCSeq", func(t *testing.T) {
			q := queue.NewMPSCSeq[int](128)
			lt := &linearizabilityTest{t: t, numP: 4, numC: 1, itemsPerProd: 5000, timeout: 5 * time.Second}
			lt.run(func(v int) error { return q.Enqueue(&v) }, q.Dequeue)
		}},
		{"SPMCSeq", func(t *testing.T) {
			q := queue.NewSPMCSeq[int](128)
			lt := &linearizabilityTest{t: t, numP: 1, numC: 4, itemsPerProd: 5000, timeout: 5 * time.Second}
			lt.run(func(v int) error { return q.Enqueue(&v) }, q.Dequeue)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.run)
	}
}

// =============================================================================
// ABA Safety Tests
// =============================================================================

// TestABASafety verifies the Seq queues' per-slot sequence numbers prevent
// ABA reuse across repeated fill/drain cycles.
func TestABASafety(t *testing.T) {
	tests := []struct {
		name   string
		newQ   func() queue.Queue[int]
		cycles int
	}{
		{"MPMCSeq_FillDrain", func() queue.Queue[int] { return queue.NewMPMCSeq[int](8) }, 5000},
		{"MPSCSeq_FillDrain", func() queue.Queue[int] { return queue.NewMPSCSeq[int](8) }, 5000},
		{"SPMCSeq_FillDrain", func() queue.Queue[int] { return queue.NewSPMCSeq[int](8) }, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testABASafetyFillDrain(t, tt.newQ(), tt.cycles)
		})
	}
}

func testABASafetyFillDrain(t *testing.T, q queue.Queue[int], cycles int) {
	t.Helper()

	for cycle := range cycles {
		for i := range 4 {
			v := cycle*4 + i
			if err := q.Enqueue(&v); err != nil {
				t.Fatalf("Cycle %d, enqueue %d: %v", cycle, i, err)
			}
		}
		for i := range 4 {
			v, err := q.Dequeue()
			if err != nil {
				t.Fatalf("Cycle %d, dequeue %d: %v", cycle, i, err)
			}
			expected := cycle*4 + i
			if v != expected {
				t.Fatalf("Cycle %d, dequeue %d: got %d, want %d", cycle, i, v, expected)
			}
		}
	}
}

// TestABASafetyConcurrent tests ABA safety of the Seq queues under
// concurrent access: every produced value must be observed exactly once.
func TestABASafetyConcurrent(t *testing.T) {
	if queue.RaceEnabled {
		t.Skip("skip: concurrent ABA test")
	}

	tests := []struct {
		name       string
		newQ       func() queue.Queue[int]
		numP       int
		numC       int
		totalItems int
	}{
		{"MPMCSeq_4x4", func() queue.Queue[int] { return queue.NewMPMCSeq[int](8) }, 4, 4, 5000},
		{"SPMCSeq_1x4", func() queue.Queue[int] { return queue.NewSPMCSeq[int](8) }, 1, 4, 5000},
		{"MPSCSeq_4x1", func() queue.Queue[int] { return queue.NewMPSCSeq[int](8) }, 4, 1, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testABASafetyConcurrent(t, tt.newQ(), tt.numP, tt.numC, tt.totalItems)
		})
	}
}

func testABASafetyConcurrent(t *testing.T, q queue.Queue[int], numP, numC, totalItems int) {
	t.Helper()

	itemsPerProd := totalItems / numP
	var wg sync.WaitGroup
	var consumed atomix.Int64
	seenValues := make([]atomix.Int64, totalItems+1)

	for p := range numP {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			deadline := time.Now().Add(5 * time.Second)
			backoff := iox.Backoff{}
			for i := range itemsPerProd {
				v := id*itemsPerProd + i + 1
				for q.Enqueue(&v) != nil {
					if time.Now().After(deadline) {
						return
					}
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(p)
	}

	for range numC {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deadline := time.Now().Add(5 * time.Second)
			backoff := iox.Backoff{}
			for consumed.Load() < int64(totalItems) {
				if time.Now().After(deadline) {
					return
				}
				v, err := q.Dequeue()
				if err == nil {
					if v > 0 && v <= totalItems {
						seenValues[v].Add(1)
					}
					consumed.Add(1)
					backoff.Reset()
				} else {
					backoff.Wait()
				}
			}
		}()
	}

	wg.Wait()

	for i := 1; i <= totalItems; i++ {
		count := seenValues[i].Load()
		if count != 1 {
			t.Errorf("Value %d seen %d times (expected 1)", i, count)
		}
	}
}

// =============================================================================
// Threshold Exhaustion
// =============================================================================

// TestThresholdExhaustion verifies the FAA-based queues' livelock prevention
// mechanism surfaces ErrWouldBlock once the threshold budget is exhausted.
func TestThresholdExhaustion(t *testing.T) {
	const cap = 4
	// thresholdBudget = 3n - 1: maximum empty dequeues before ErrWouldBlock.
	const thresholdBudget = 3*cap - 1

	drainToEmpty := func(t *testing.T, q queue.Queue[int]) {
		t.Helper()
		for i := range cap {
			v := i
			if err := q.Enqueue(&v); err != nil {
				t.Fatalf("Initial enqueue(%d): %v", i, err)
			}
		}
		for range cap {
			if _, err := q.Dequeue(); err != nil {
				t.Fatalf("Initial dequeue: %v", err)
			}
		}

		var wouldBlockCount int
		for range thresholdBudget + 5 {
			if _, err := q.Dequeue(); err == queue.ErrWouldBlock {
				wouldBlockCount++
			}
		}
		if wouldBlockCount == 0 {
			t.Fatal("Expected ErrWouldBlock after exhausting threshold")
		}

		if _, err := q.Dequeue(); err != queue.ErrWouldBlock {
			t.Fatalf("Expected ErrWouldBlock when threshold exhausted, got %v", err)
		}
		t.Logf("Threshold exhausted after %d ErrWouldBlock returns", wouldBlockCount)
	}

	t.Run("MPMC", func(t *testing.T) { drainToEmpty(t, queue.NewMPMC[int](cap)) })
	t.Run("SPMC", func(t *testing.T) { drainToEmpty(t, queue.NewSPMC[int](cap)) })
}
