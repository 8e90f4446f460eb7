// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package histogram_test

import (
	"testing"

	"code.hybscloud.com/conflate/histogram"
)

func TestHistogramDenseBackendsAgreeWithSparse(t *testing.T) {
	values := []uint64{0, 1, 2, 7, 7, 7, 1000, 1 << 20, 1 << 40}

	sparse, err := histogram.New(3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dlong, err := histogram.NewDenseLong(3)
	if err != nil {
		t.Fatalf("NewDenseLong: %v", err)
	}
	dint, err := histogram.NewDenseInt(3)
	if err != nil {
		t.Fatalf("NewDenseInt: %v", err)
	}

	for _, h := range []*histogram.Histogram{sparse, dlong, dint} {
		rec := h.Recorder()
		for _, v := range values {
			rec.Record(v)
		}
	}

	for _, p := range []float64{0.0, 0.5, 0.9, 0.99, 1.0} {
		want := sparse.Reporter().ValueAtPercentile(p)
		if got := dlong.Reporter().ValueAtPercentile(p); got != want {
			t.Fatalf("dense-long ValueAtPercentile(%v): got %d, want %d", p, got, want)
		}
		if got := dint.Reporter().ValueAtPercentile(p); got != want {
			t.Fatalf("dense-int ValueAtPercentile(%v): got %d, want %d", p, got, want)
		}
	}
	if sparse.Reporter().Count() != uint64(len(values)) {
		t.Fatalf("Count: got %d, want %d", sparse.Reporter().Count(), len(values))
	}
}

func TestHistogramPreAllocateUpTo(t *testing.T) {
	h, err := histogram.NewDenseLong(3)
	if err != nil {
		t.Fatalf("NewDenseLong: %v", err)
	}
	h.PreAllocateUpTo(1_000_000)
	rec := h.Recorder()
	rec.Record(999_999)
	if got := h.Reporter().Count(); got != 1 {
		t.Fatalf("Count: got %d, want 1", got)
	}
}
