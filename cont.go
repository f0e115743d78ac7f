// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import (
	"fmt"

	"code.hybscloud.com/kont"
)

// Continuation is a one-shot capability to resume exactly one suspended
// machine exactly once. A fresh continuation is minted at every
// suspension; consuming it (Resume, ResumeError, Cancel, or Discard)
// invalidates it.
//
// Affine semantics are enforced by [kont.Affine]: a second consumption
// panics. TryResume and TryResumeError report false instead. Never
// consuming a continuation leaves the machine suspended forever — a
// leak, not a crash.
type Continuation struct {
	m    *Machine
	once *kont.Affine[struct{}, resumeData]
}

// newContinuation mints the one-shot resumption handle for m.
func newContinuation(m *Machine) *Continuation {
	return &Continuation{
		m: m,
		once: kont.Once(func(d resumeData) struct{} {
			m.dispatch(d)
			return struct{}{}
		}),
	}
}

// Machine returns the bound state machine instance.
func (k *Continuation) Machine() *Machine { return k.m }

// Resume re-enters the machine's dispatch routine with a successful
// value, synchronously on the calling goroutine.
// Panics if the continuation was already consumed.
func (k *Continuation) Resume(v Value) {
	if _, ok := k.once.TryResume(resumeData{v: v}); !ok {
		panic(fmt.Sprintf("coro: continuation resumed twice (machine %d)", k.m.serial))
	}
}

// ResumeError re-enters the machine's dispatch routine with a failure,
// which unwinds from the suspension point through enclosing Try scopes.
// Panics if the continuation was already consumed.
func (k *Continuation) ResumeError(err error) {
	if _, ok := k.once.TryResume(resumeData{err: err}); !ok {
		panic(fmt.Sprintf("coro: continuation resumed twice (machine %d)", k.m.serial))
	}
}

// TryResume attempts Resume, reporting false if already consumed.
func (k *Continuation) TryResume(v Value) bool {
	_, ok := k.once.TryResume(resumeData{v: v})
	return ok
}

// TryResumeError attempts ResumeError, reporting false if already
// consumed.
func (k *Continuation) TryResumeError(err error) bool {
	_, ok := k.once.TryResume(resumeData{err: err})
	return ok
}

// Cancel resumes with [Canceled]. Cancellation is the ordinary
// exception path; there is no separate mechanism.
func (k *Continuation) Cancel() { k.ResumeError(Canceled) }

// Discard marks the continuation as consumed without resuming.
// The machine stays suspended permanently.
func (k *Continuation) Discard() { k.once.Discard() }
