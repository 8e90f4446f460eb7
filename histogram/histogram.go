// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package histogram

// Histogram records non-negative 64-bit values and reports their
// distribution. Construct with New, NewDenseLong, or NewDenseInt depending
// on the CountStore back-end desired; all three share identical bucket
// math and percentile accuracy, differing only in memory/throughput
// tradeoffs documented on the package doc.
type Histogram struct {
	s      uint
	store  CountStore
	count  uint64
	min    uint64
	max    uint64
	hasMin bool
}

// New constructs a Histogram backed by the variable-width sparse CountStore,
// with digits significant decimal digits of precision (digits ∈ [1, 5]).
func New(digits int) (*Histogram, error) {
	s, err := significantBits(digits)
	if err != nil {
		return nil, err
	}
	return &Histogram{s: s, store: newSparseStore(s)}, nil
}

// NewDenseLong constructs a Histogram backed by a flat int64-per-cell
// CountStore.
func NewDenseLong(digits int) (*Histogram, error) {
	s, err := significantBits(digits)
	if err != nil {
		return nil, err
	}
	return &Histogram{s: s, store: newDenseLongStore(s)}, nil
}

// NewDenseInt constructs a Histogram backed by a flat int32-per-cell
// CountStore.
func NewDenseInt(digits int) (*Histogram, error) {
	s, err := significantBits(digits)
	if err != nil {
		return nil, err
	}
	return &Histogram{s: s, store: newDenseIntStore(s)}, nil
}

// PreAllocateUpTo materialises bucket storage whose maximum representable
// value is at least value, so recording values up to that bound afterward
// performs no allocation. For the sparse store this includes every byte and
// long tile of those buckets.
func (h *Histogram) PreAllocateUpTo(value uint64) {
	bucket, _ := bucketize(value, h.s)
	h.store.PreAllocateUpTo(bucket + 1)
}

// Recorder returns the single-writer handle used to record values.
func (h *Histogram) Recorder() *Recorder { return &Recorder{h: h} }

// Reporter returns a read-only handle used to query the recorded
// distribution. Must be externally synchronised against the Recorder.
func (h *Histogram) Reporter() *Reporter { return &Reporter{h: h} }

// Recorder is the single-writer handle for a Histogram.
type Recorder struct{ h *Histogram }

// Record increments the cell v falls into and updates count/min/max.
func (r *Recorder) Record(v uint64) {
	h := r.h
	bucket, position := bucketize(v, h.s)
	h.store.Increment(bucket, position)
	h.count++
	if !h.hasMin || v < h.min {
		h.min = v
		h.hasMin = true
	}
	if v > h.max {
		h.max = v
	}
}

// RecordInt64 is a convenience for signed call sites; it rejects negative
// values with ErrInvalidValue instead of wrapping them into a huge uint64.
func (r *Recorder) RecordInt64(v int64) error {
	if v < 0 {
		return ErrInvalidValue
	}
	r.Record(uint64(v))
	return nil
}

// Reset zeroes counts, min, max, and count, but keeps allocated storage.
func (r *Recorder) Reset() {
	h := r.h
	h.store.Reset()
	h.count, h.min, h.max, h.hasMin = 0, 0, 0, false
}

// Clear zeroes counts and releases allocated storage.
func (r *Recorder) Clear() {
	h := r.h
	h.store.Clear()
	h.count, h.min, h.max, h.hasMin = 0, 0, 0, false
}
