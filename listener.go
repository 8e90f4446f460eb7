// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conflate

// AppenderListener observes producer-side events. OnEnqueue is invoked
// strictly after the Entry's value slot and (for Evict/Merge) the backing
// queue have reached a coherent state, so a panicking listener cannot
// corrupt queue invariants — it still propagates to the caller of
// Appender.Enqueue once the state transition is already committed.
type AppenderListener[K comparable, V any] interface {
	OnEnqueue(key K, value V, outcome Conflation)
}

// PollerListener observes consumer-side events. OnPoll is invoked after the
// Entry's value slot has already been cleared or re-armed with an exchange.
type PollerListener[K comparable, V any] interface {
	OnPoll(key K, value V)
}

// AppenderListenerFunc adapts a function to an AppenderListener.
type AppenderListenerFunc[K comparable, V any] func(key K, value V, outcome Conflation)

// OnEnqueue calls f.
func (f AppenderListenerFunc[K, V]) OnEnqueue(key K, value V, outcome Conflation) {
	f(key, value, outcome)
}

// PollerListenerFunc adapts a function to a PollerListener.
type PollerListenerFunc[K comparable, V any] func(key K, value V)

// OnPoll calls f.
func (f PollerListenerFunc[K, V]) OnPoll(key K, value V) { f(key, value) }

type noOpAppenderListener[K comparable, V any] struct{}

func (noOpAppenderListener[K, V]) OnEnqueue(K, V, Conflation) {}

type noOpPollerListener[K comparable, V any] struct{}

func (noOpPollerListener[K, V]) OnPoll(K, V) {}

// defaultAppenderListenerFactory returns a factory producing the shared
// no-op listener, used when no listener factory option was supplied.
func defaultAppenderListenerFactory[K comparable, V any]() func() AppenderListener[K, V] {
	l := AppenderListener[K, V](noOpAppenderListener[K, V]{})
	return func() AppenderListener[K, V] { return l }
}

func defaultPollerListenerFactory[K comparable, V any]() func() PollerListener[K, V] {
	l := PollerListener[K, V](noOpPollerListener[K, V]{})
	return func() PollerListener[K, V] { return l }
}
