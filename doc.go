// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package coro lowers computations with explicit suspension points into
// resumable state machines driven by one-shot continuations on
// [code.hybscloud.com/kont].
//
// A computation is an author-written block ([Computation]) whose
// suspension points are calls into an ambient controller. [Compile]
// turns it into a [Template]: a single dispatch routine keyed by an
// integer state tag, capturing only the locals that cross suspension
// boundaries. [Start] instantiates a [Machine], attaches a
// [Controller], and applies the resume protocol to state 0.
//
// # Architecture
//
//   - Compile time: suspension point classification → capture analysis
//     (backward liveness, stable slot assignment) → state machine
//     lowering (flat label/goto skeleton, handler-scope table) →
//     controller binding resolution (member lookup plus unification of
//     the single internal-state type across all points and handlers).
//   - Run time: dispatch executes synchronously on whatever goroutine
//     consumes a [Continuation]; the core imposes no scheduler.
//     Affine resumption via [code.hybscloud.com/kont] — each
//     continuation fires at most once, a second use panics.
//   - Deferral: [Trampoline] flattens synchronous resume chains on a
//     bounded lock-free SPSC queue from [code.hybscloud.com/lfq],
//     returning [code.hybscloud.com/iox.ErrWouldBlock] on backpressure.
//   - Blocking: [Join] waits for a machine resumed from another
//     goroutine using adaptive backoff (iox.Backoff).
//
// # Suspension Protocol
//
// At suspension point i the dispatch routine writes the live captures,
// sets state = i+1, invokes the bound controller member with the
// argument values and a freshly minted [Continuation], and returns —
// suspension is an ordinary procedure return, never a blocking wait.
// Resuming re-enters the dispatch at the point's single label; a point
// inside a loop owns one label across all iterations.
//
// The continuation contract is exactly-once: zero consumptions leave
// the machine suspended (a leak, not a crash); a second consumption is
// a protocol violation and panics. Interleaving between logically
// concurrent machines can therefore occur only at suspension points.
//
// # Controllers
//
// A [Controller] gives suspension points their meaning. Its
// compile-time counterpart [ControllerType] declares member signatures
// over a small type-term language; the resolver unifies the one
// internal-state variable ([StateVar]) across every member and
// terminal handler a computation uses, and rejects computations with
// no consistent binding. Terminal handlers are optional structural
// interfaces ([ResultHandler], [ExceptionHandler]); cancellation is
// [Continuation.Cancel], the ordinary exception path with [Canceled].
//
// # Example
//
//	tmpl, _ := coro.Compile(&coro.Computation{Body: []coro.Stmt{
//		coro.Let("x", coro.Lit(1)),
//		coro.SuspendInto("y", "await", coro.Ref("x")),
//		coro.Ret(coro.Ref("y")),
//	}}, ctrlType)
//	var st coro.Stepper
//	m := coro.Start(tmpl, &st)
//	st.Take().K.Resume(41)
//	// m is terminal; st.Result() == 41
package coro
