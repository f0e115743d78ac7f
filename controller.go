// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

// Controller supplies suspension-point implementations at run time.
// DispatchSuspend receives the member name a suspension point resolved
// to, the evaluated argument values, and a fresh one-shot
// [Continuation] for this machine. The controller decides when and on
// which goroutine the continuation fires: synchronously within this
// call, or later from an unrelated callback. DispatchSuspend itself
// must not block.
//
// Terminal handlers are optional structural interfaces, asserted at
// completion the way effect dispatchers are asserted in handler
// dispatch: a controller implements [ResultHandler] and
// [ExceptionHandler] as needed. The binding resolver guarantees at
// compile time that a value-producing computation is only bound to a
// controller type declaring a result handler.
type Controller interface {
	DispatchSuspend(member string, args []Value, k *Continuation)
}

// ResultHandler receives the value of a computation that completed
// normally, via fall-through or return.
type ResultHandler interface {
	HandleResult(v Value)
}

// ExceptionHandler receives the error of a computation that ended with
// an uncaught computation-body exception. A controller without one
// makes an uncaught error a fatal protocol violation.
type ExceptionHandler interface {
	HandleException(err error)
}
