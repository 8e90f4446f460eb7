// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package histogram

import "math"

// Reporter is the read-only handle for a Histogram.
type Reporter struct{ h *Histogram }

// Count returns the total number of recorded values.
func (r *Reporter) Count() uint64 { return r.h.count }

// Min returns the smallest recorded value, or 0 if none were recorded.
func (r *Reporter) Min() uint64 { return r.h.min }

// Max returns the largest recorded value, or 0 if none were recorded.
func (r *Reporter) Max() uint64 { return r.h.max }

// ValueAtPercentile returns the value of the first cell, in ascending
// order, whose cumulative count reaches the p-th percentile of all recorded
// values. p is clamped to [0, 1] using the same nextAfter-then-clamp
// treatment HDR histograms use, so p=1.0 lands on the largest populated
// cell rather than falling off the end. Returns 0 if no values were
// recorded.
func (r *Reporter) ValueAtPercentile(p float64) uint64 {
	h := r.h
	if h.count == 0 {
		return 0
	}
	pPrime := clamp01(math.Nextafter(p, math.Inf(-1)))
	target := uint64(math.Ceil(pPrime * float64(h.count)))
	if target < 1 {
		target = 1
	}

	var running uint64
	n, length := numBuckets(h.s), bucketLength(h.s)
	for b := 0; b < n; b++ {
		for pos := uint64(0); pos < length; pos++ {
			c := h.store.Count(b, pos)
			if c == 0 {
				continue
			}
			running += c
			if running >= target {
				return valueAtCell(h.s, b, pos)
			}
		}
	}
	return 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
