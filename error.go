// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import (
	"errors"
	"fmt"
)

// Compile-time diagnostics. [Compile] wraps these sentinels with
// position detail; match with errors.Is.
var (
	// ErrUnresolvedMember reports a suspension point with no matching
	// controller member, or an arity mismatch against the member's
	// declared parameters.
	ErrUnresolvedMember = errors.New("coro: unresolved suspension member")

	// ErrStateMismatch reports suspension points or terminal handlers
	// whose internal-state terms admit no common unifier.
	ErrStateMismatch = errors.New("coro: internal state type mismatch")

	// ErrRestrictedSuspend reports a suspension point inside a
	// [Restrict] scope.
	ErrRestrictedSuspend = errors.New("coro: suspension in restricted scope")

	// ErrNoResultHandler reports a computation that can produce a
	// non-unit value bound to a controller type without a result
	// handler.
	ErrNoResultHandler = errors.New("coro: controller type lacks result handler")

	// ErrStructural reports a suspension point in a position the
	// lowering cannot instrument (inside a Finally block, whose
	// unwind bookkeeping does not survive a foreign resumption).
	ErrStructural = errors.New("coro: suspension point cannot be instrumented")

	// ErrUnboundVar reports a reference or assignment to a name that
	// is never declared by a Let, a parameter, a suspension
	// destination, or a catch binding.
	ErrUnboundVar = errors.New("coro: reference to unbound variable")
)

// Canceled is the cancellation-flavored error. Cancellation reuses the
// ordinary exception path: [Continuation.Cancel] is
// [Continuation.ResumeError] with Canceled.
var Canceled = errors.New("coro: canceled")

// ValueError wraps a non-error value raised by a Throw statement.
type ValueError struct{ V Value }

func (e *ValueError) Error() string { return fmt.Sprintf("coro: thrown value: %v", e.V) }

// thrownError converts a thrown value into an error, passing errors
// through unchanged.
func thrownError(v Value) error {
	if err, ok := v.(error); ok {
		return err
	}
	return &ValueError{V: v}
}
