// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package histogram

// CountStore is the pluggable per-cell counter back-end a Histogram
// delegates to. All three implementations share the same (bucket, position)
// address space defined by bucket.go; they differ only in how densely they
// materialise storage for it. CountStore has single-writer discipline: a
// Histogram never calls Increment concurrently with itself.
type CountStore interface {
	// Increment adds one to the cell at (bucket, position).
	Increment(bucket int, position uint64)
	// Count returns the current value of the cell at (bucket, position).
	Count(bucket int, position uint64) uint64
	// PreAllocateUpTo eagerly materialises storage for buckets [0, n).
	PreAllocateUpTo(n int)
	// Reset zeroes all counts but keeps allocated storage.
	Reset()
	// Clear zeroes all counts and releases allocated storage.
	Clear()
}

// denseLongStore holds one 64-bit counter per cell, allocated a full bucket
// at a time. It never saturates: a single bucket of 2^(s-1) int64 counters
// would need more increments than a 64-bit value can address to overflow.
type denseLongStore struct {
	s       uint
	buckets [][]int64
}

func newDenseLongStore(s uint) *denseLongStore {
	return &denseLongStore{s: s, buckets: make([][]int64, numBuckets(s))}
}

func (d *denseLongStore) bucketSlice(b int) []int64 {
	if d.buckets[b] == nil {
		d.buckets[b] = make([]int64, bucketLength(d.s))
	}
	return d.buckets[b]
}

func (d *denseLongStore) Increment(bucket int, position uint64) {
	d.bucketSlice(bucket)[position]++
}

func (d *denseLongStore) Count(bucket int, position uint64) uint64 {
	if d.buckets[bucket] == nil {
		return 0
	}
	return uint64(d.buckets[bucket][position])
}

func (d *denseLongStore) PreAllocateUpTo(n int) {
	for b := 0; b < n && b < len(d.buckets); b++ {
		d.bucketSlice(b)
	}
}

func (d *denseLongStore) Reset() {
	for _, bucket := range d.buckets {
		for i := range bucket {
			bucket[i] = 0
		}
	}
}

func (d *denseLongStore) Clear() {
	for b := range d.buckets {
		d.buckets[b] = nil
	}
}

// denseIntStore holds one 32-bit counter per cell. It trades dense-long's
// headroom for half the memory; a cell that individually receives more than
// 2^32-1 records wraps, the accepted cost of the narrower counter.
type denseIntStore struct {
	s       uint
	buckets [][]int32
}

func newDenseIntStore(s uint) *denseIntStore {
	return &denseIntStore{s: s, buckets: make([][]int32, numBuckets(s))}
}

func (d *denseIntStore) bucketSlice(b int) []int32 {
	if d.buckets[b] == nil {
		d.buckets[b] = make([]int32, bucketLength(d.s))
	}
	return d.buckets[b]
}

func (d *denseIntStore) Increment(bucket int, position uint64) {
	d.bucketSlice(bucket)[position]++
}

func (d *denseIntStore) Count(bucket int, position uint64) uint64 {
	if d.buckets[bucket] == nil {
		return 0
	}
	return uint64(uint32(d.buckets[bucket][position]))
}

func (d *denseIntStore) PreAllocateUpTo(n int) {
	for b := 0; b < n && b < len(d.buckets); b++ {
		d.bucketSlice(b)
	}
}

func (d *denseIntStore) Reset() {
	for _, bucket := range d.buckets {
		for i := range bucket {
			bucket[i] = 0
		}
	}
}

func (d *denseIntStore) Clear() {
	for b := range d.buckets {
		d.buckets[b] = nil
	}
}

const tileSize = 64

// byteTile and longTile are the on-demand 64-cell escalation tiers for
// sparseStore: a bucket's byte/long tiers only allocate the 64-cell tile
// that a saturating cell actually falls into.
type byteTile [tileSize]uint8
type longTile [tileSize]uint64

// sparseStore is the variable-width counter: a presence bit per cell,
// escalating to a byte counter and then a long counter only for cells that
// actually see more than one or 256 records respectively. Memory scales
// with how many distinct cells are populated, not with the cell space.
type sparseStore struct {
	s         uint
	presence  [][]uint64 // one bit per cell, packed 64 per word
	byteTiles [][]*byteTile
	longTiles [][]*longTile
}

func newSparseStore(s uint) *sparseStore {
	n := numBuckets(s)
	return &sparseStore{
		s:         s,
		presence:  make([][]uint64, n),
		byteTiles: make([][]*byteTile, n),
		longTiles: make([][]*longTile, n),
	}
}

func (sp *sparseStore) tilesPerBucket() int {
	return int((bucketLength(sp.s) + tileSize - 1) / tileSize)
}

func (sp *sparseStore) ensureBucket(b int) {
	n := sp.tilesPerBucket()
	wordsPerBucket := int((bucketLength(sp.s) + 63) / 64)
	if sp.presence[b] == nil {
		sp.presence[b] = make([]uint64, wordsPerBucket)
	}
	if sp.byteTiles[b] == nil {
		sp.byteTiles[b] = make([]*byteTile, n)
	}
	if sp.longTiles[b] == nil {
		sp.longTiles[b] = make([]*longTile, n)
	}
}

func (sp *sparseStore) Increment(bucket int, position uint64) {
	sp.ensureBucket(bucket)
	wordIdx, bit := position/64, uint(position%64)
	mask := uint64(1) << bit
	if sp.presence[bucket][wordIdx]&mask == 0 {
		sp.presence[bucket][wordIdx] |= mask
		return
	}

	tileIdx, within := int(position/tileSize), position%tileSize
	tile := sp.byteTiles[bucket][tileIdx]
	if tile == nil {
		tile = &byteTile{}
		sp.byteTiles[bucket][tileIdx] = tile
	}
	if tile[within] < 255 {
		tile[within]++
		return
	}

	ltile := sp.longTiles[bucket][tileIdx]
	if ltile == nil {
		ltile = &longTile{}
		sp.longTiles[bucket][tileIdx] = ltile
	}
	ltile[within]++
}

func (sp *sparseStore) Count(bucket int, position uint64) uint64 {
	if sp.presence[bucket] == nil {
		return 0
	}
	wordIdx, bit := position/64, uint(position%64)
	mask := uint64(1) << bit
	if sp.presence[bucket][wordIdx]&mask == 0 {
		return 0
	}

	tileIdx, within := int(position/tileSize), position%tileSize
	tile := sp.byteTiles[bucket][tileIdx]
	if tile == nil {
		return 1
	}
	b := tile[within]
	if b < 255 {
		return 1 + uint64(b)
	}
	var l uint64
	if ltile := sp.longTiles[bucket][tileIdx]; ltile != nil {
		l = ltile[within]
	}
	return 1 + 255 + l
}

func (sp *sparseStore) PreAllocateUpTo(n int) {
	for b := 0; b < n && b < len(sp.presence); b++ {
		sp.ensureBucket(b)
		for i := range sp.byteTiles[b] {
			if sp.byteTiles[b][i] == nil {
				sp.byteTiles[b][i] = &byteTile{}
			}
			if sp.longTiles[b][i] == nil {
				sp.longTiles[b][i] = &longTile{}
			}
		}
	}
}

func (sp *sparseStore) Reset() {
	for b := range sp.presence {
		for i := range sp.presence[b] {
			sp.presence[b][i] = 0
		}
		for _, t := range sp.byteTiles[b] {
			if t != nil {
				*t = byteTile{}
			}
		}
		for _, t := range sp.longTiles[b] {
			if t != nil {
				*t = longTile{}
			}
		}
	}
}

func (sp *sparseStore) Clear() {
	for b := range sp.presence {
		sp.presence[b] = nil
		sp.byteTiles[b] = nil
		sp.longTiles[b] = nil
	}
}
