// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package histogram

import (
	"math"
	"math/bits"
)

// significantBits computes s = 1 + ceil(log2(10^digits)) for digits in
// [1, 5], the precision parameter every bucket/cell formula is derived from.
func significantBits(digits int) (uint, error) {
	if digits < 1 || digits > 5 {
		return 0, ErrInvalidDigits
	}
	tenPowD := math.Pow(10, float64(digits))
	return uint(1 + int(math.Ceil(math.Log2(tenPowD)))), nil
}

// numBuckets returns the number of buckets for significant-bit parameter s:
// one bucket per possible bit-length above s, plus bucket 0.
func numBuckets(s uint) int { return 64 - int(s) + 1 }

// bucketLength returns the number of cells in every bucket (bucket 0 and
// bucket b>0 both have length 2^(s-1) under the variable-width layout).
func bucketLength(s uint) uint64 { return uint64(1) << (s - 1) }

// bucketize maps v to its (bucket, position) cell under significant-bit
// parameter s, per the variable-width scheme. bucket is clamped to the last
// valid bucket (and position to its last cell) for values whose bit-length
// would otherwise index past the histogram's largest representable bucket.
func bucketize(v uint64, s uint) (bucket int, position uint64) {
	bitLen := bits.Len64(v)
	bucket = bitLen - int(s) + 1
	if bucket < 0 {
		bucket = 0
	}
	shift := uint(0)
	if bucket > 0 {
		shift = uint(bucket - 1)
	}
	position = v >> shift
	if bucket > 0 {
		position -= bucketLength(s)
	}

	if max := numBuckets(s) - 1; bucket > max {
		bucket = max
		position = bucketLength(s) - 1
	}
	return bucket, position
}

// valueAtCell returns the value a cell (bucket, position) represents, the
// inverse of bucketize up to the cell's granularity.
func valueAtCell(s uint, bucket int, position uint64) uint64 {
	if bucket == 0 {
		return position
	}
	return ((1 + bucketLength(s) + position) << uint(bucket-1)) - 1
}
