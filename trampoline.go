// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import "code.hybscloud.com/lfq"

// deferCapacity is the default bounded capacity for a trampoline's
// resumption queue. Deep synchronous resume chains rarely exceed it;
// Defer reports backpressure instead of growing unbounded.
const deferCapacity = 64

// deferred is one queued resumption.
type deferred struct {
	k     *Continuation
	v     Value
	err   error
	isErr bool
}

// Trampoline flattens synchronous resume chains. A controller that
// would otherwise call [Continuation.Resume] from inside
// DispatchSuspend — growing the dispatch stack by one frame per
// suspension — defers the resumption instead; Run drains the queue in
// a flat loop on the owning goroutine.
//
// Transport is a bounded lock-free SPSC queue: one producer (the
// goroutine running dispatch) and one consumer (the goroutine calling
// Run), which in the synchronous pattern are the same goroutine.
type Trampoline struct {
	q lfq.SPSC[deferred]
}

// NewTrampoline creates a trampoline with the given queue capacity
// (the default when capacity is zero or negative).
func NewTrampoline(capacity int) *Trampoline {
	if capacity <= 0 {
		capacity = deferCapacity
	}
	t := &Trampoline{}
	t.q.Init(capacity)
	return t
}

// Defer queues a successful resumption.
// Non-blocking: returns iox.ErrWouldBlock when the queue is full; the
// caller may Run to drain and retry.
func (t *Trampoline) Defer(k *Continuation, v Value) error {
	d := deferred{k: k, v: v}
	return t.q.Enqueue(&d)
}

// DeferError queues a failure resumption.
// Non-blocking: returns iox.ErrWouldBlock when the queue is full.
func (t *Trampoline) DeferError(k *Continuation, err error) error {
	d := deferred{k: k, err: err, isErr: true}
	return t.q.Enqueue(&d)
}

// Run drains the queue to quiescence, firing each deferred resumption
// in order. Resumptions may defer further resumptions; Run keeps
// draining until the queue is empty and returns the number fired.
func (t *Trampoline) Run() int {
	n := 0
	for {
		d, err := t.q.Dequeue()
		if err != nil {
			// iox.ErrWouldBlock: drained
			return n
		}
		if d.isErr {
			d.k.ResumeError(d.err)
		} else {
			d.k.Resume(d.v)
		}
		n++
	}
}
