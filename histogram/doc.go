// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package histogram records non-negative 64-bit values into a bit-sliced
// variable-width bucket layout and reports counts, extremes, and
// percentiles, in the style of an HDR histogram. The hot recording path
// performs no allocation once PreAllocateUpTo (or a run of warm-up records)
// has materialised the buckets a workload actually touches.
//
// # Quick Start
//
//	h, err := histogram.New(3) // 3 significant decimal digits
//	if err != nil {
//	    panic(err)
//	}
//	rec := h.Recorder()
//	for _, v := range latenciesMicros {
//	    rec.Record(v)
//	}
//	rep := h.Reporter()
//	p99 := rep.ValueAtPercentile(0.99)
//
// # Count store back-ends
//
// [New] uses the variable-width [sparseStore] by default: a 1-bit presence
// indicator per cell, escalating to an 8-bit counter and then a 64-bit
// overflow counter only for cells that actually saturate, so memory scales
// with how skewed the recorded distribution is rather than with the number
// of possible cells. [NewDenseLong] and [NewDenseInt] trade that locality
// for a flat array of 64-bit or 32-bit counters per bucket, which is faster
// to record into and report from when the distribution is expected to be
// dense across most cells.
//
// # Concurrency
//
// A Histogram has single-writer discipline: [Recorder.Record] must not be
// called concurrently with itself. [Reporter] calls may run concurrently
// with each other but must be externally synchronised against the writer
// (e.g. call Reporter methods only while the writer is quiesced, or swap in
// a fresh Histogram and report from the retired one). Multiple independent
// Histograms may be recorded into concurrently with no coordination.
package histogram
