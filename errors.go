// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conflate

import (
	"errors"

	"code.hybscloud.com/conflate/queue"
)

// ErrWouldBlock is returned by a BackingQueue when it cannot accept or
// yield an Entry right now. It is not a failure: callers should retry.
// This is an alias for [queue.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = queue.ErrWouldBlock

// IsWouldBlock reports whether err indicates an operation would block.
func IsWouldBlock(err error) bool { return queue.IsWouldBlock(err) }

// IsSemantic reports whether err is a control-flow signal, not a failure.
func IsSemantic(err error) bool { return queue.IsSemantic(err) }

// IsNonFailure reports whether err represents a non-failure condition.
func IsNonFailure(err error) bool { return queue.IsNonFailure(err) }

// Validation errors, returned synchronously without mutating queue state.
var (
	// ErrEmptyValue is returned when Appender.Enqueue is called with the
	// zero value of V and the queue cannot distinguish "zero" from "empty".
	// Only returned by APIs that document this restriction; the generic
	// Enqueue(key, value) path accepts any V, including its zero value.
	ErrEmptyValue = errors.New("conflate: value must be non-empty")

	// ErrNilMerger is returned by NewMergeQueue when no Merger is supplied.
	ErrNilMerger = errors.New("conflate: merge queue requires a Merger")

	// ErrNilBackingQueueFactory is returned by the constructors when no
	// BackingQueueFactory option was supplied.
	ErrNilBackingQueueFactory = errors.New("conflate: backing queue factory is required")

	// ErrDuplicateDeclaredKey is returned by the queue constructors when the
	// key list given to WithDeclaredKeys (or WithEvictDeclaredKeys /
	// WithMergeDeclaredKeys) contains the same key more than once.
	ErrDuplicateDeclaredKey = errors.New("conflate: duplicate key in declared key set")

	// ErrUnknownKey is returned by a declared/enum KeyIndex when Enqueue is
	// called with a key outside the declared set.
	ErrUnknownKey = errors.New("conflate: key is not in the declared key set")
)

// ErrBackingQueueRefused wraps a fatal failure from the backing queue's
// Enqueue, observed after the Entry's value slot was already latched. Per
// spec this is unrecoverable: the Entry is left logically queued without
// being physically present in the backing queue.
type ErrBackingQueueRefused struct {
	Err error
}

func (e *ErrBackingQueueRefused) Error() string {
	return "conflate: backing queue refused append: " + e.Err.Error()
}

func (e *ErrBackingQueueRefused) Unwrap() error { return e.Err }
