// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conflate

// Conflation describes the outcome of an Appender.Enqueue call: whether the
// key was previously unqueued, its prior value was discarded (evicted), or
// its prior value was combined with the new one (merged).
type Conflation int

const (
	// Unconflated means the key had no value latched in the queue; this
	// enqueue is the one that publishes the Entry into the backing queue.
	Unconflated Conflation = iota
	// Evicted means a previously-latched value for this key was replaced
	// and discarded by the new value.
	Evicted
	// Merged means a previously-latched value for this key was combined
	// with the new value via the caller-supplied Merger.
	Merged
)

// String returns the human-readable name of the outcome.
func (c Conflation) String() string {
	switch c {
	case Unconflated:
		return "UNCONFLATED"
	case Evicted:
		return "EVICTED"
	case Merged:
		return "MERGED"
	default:
		return "UNKNOWN"
	}
}
