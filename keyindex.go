// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conflate

import "sync"

// keyIndex resolves a conflation key to its persistent Entry, creating it on
// first sight (dynamic mode) or rejecting unknown keys (declared mode). E is
// the concrete per-variant Entry type (AtomicEntry[K,V], EvictEntry[K,V], or
// MergeEntry[K,V]); an Entry, once created, lives for the life of the queue.
type keyIndex[K comparable, E any] interface {
	getOrCreate(key K, create func(K) *E) (*E, error)
}

// dynamicKeyIndex lazily allocates one Entry per distinct key the first time
// it is seen. The read path takes a shared lock; this trades a small amount
// of contention for an unbounded key space, matching spec's default mode.
type dynamicKeyIndex[K comparable, E any] struct {
	mu sync.RWMutex
	m  map[K]*E
}

func newDynamicKeyIndex[K comparable, E any]() *dynamicKeyIndex[K, E] {
	return &dynamicKeyIndex[K, E]{m: make(map[K]*E)}
}

func (d *dynamicKeyIndex[K, E]) getOrCreate(key K, create func(K) *E) (*E, error) {
	d.mu.RLock()
	e, ok := d.m[key]
	d.mu.RUnlock()
	if ok {
		return e, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok = d.m[key]; ok {
		return e, nil
	}
	e = create(key)
	d.m[key] = e
	return e, nil
}

// declaredKeyIndex eagerly allocates one Entry per key in a fixed set at
// construction time. No lock is needed on the hot path since the map is
// never mutated after construction; unknown keys are rejected.
type declaredKeyIndex[K comparable, E any] struct {
	m map[K]*E
}

func newDeclaredKeyIndex[K comparable, E any](keys []K, create func(K) *E) (*declaredKeyIndex[K, E], error) {
	m := make(map[K]*E, len(keys))
	for _, k := range keys {
		if _, exists := m[k]; exists {
			return nil, ErrDuplicateDeclaredKey
		}
		m[k] = create(k)
	}
	return &declaredKeyIndex[K, E]{m: m}, nil
}

func (d *declaredKeyIndex[K, E]) getOrCreate(key K, _ func(K) *E) (*E, error) {
	e, ok := d.m[key]
	if !ok {
		return nil, ErrUnknownKey
	}
	return e, nil
}
