// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import (
	"fmt"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// State tags. Entry is state 0; the resumption state after suspension
// point i is i+1; Terminal is reached on completion or unrecoverable
// failure and is never left.
const (
	StateEntry    = 0
	StateTerminal = -1
)

// resumeData is the single "resume data" argument of the dispatch
// routine: a successful value, a failure, or the start sentinel that
// applies the resume protocol to state 0.
type resumeData struct {
	v      Value
	err    error
	start  bool
	params []Value
}

// Machine is a state machine instance: the current state tag, the
// fixed-size record of captured slots, and the bound controller.
//
// The instance record is owned exclusively by whichever party holds
// the live [Continuation]; ownership transfers at each suspension
// boundary. State and slots must only be touched by the current owner;
// Done and Join use an atomic terminal flag and are safe from any
// goroutine.
type Machine struct {
	t      *Template
	ctrl   Controller
	serial Serial

	state   int
	slots   []Value
	outcome kont.Either[error, Value]
	done    atomix.Uint32
}

// Serial returns the machine's serial number.
func (m *Machine) Serial() Serial { return m.serial }

// State returns the current state tag. Owner-only, like the slot
// record.
func (m *Machine) State() int { return m.state }

// Done reports whether the machine has reached the terminal state.
// Safe from any goroutine.
func (m *Machine) Done() bool { return m.done.Load() != 0 }

// Outcome returns the terminal result — Right(value) on normal
// completion, Left(err) on an uncaught exception — and whether the
// machine is terminal yet.
func (m *Machine) Outcome() (kont.Either[error, Value], bool) {
	if m.done.Load() == 0 {
		return kont.Either[error, Value]{}, false
	}
	return m.outcome, true
}

// Join blocks until m reaches the terminal state, backing off
// adaptively (iox.Backoff) while resumptions arrive from other
// goroutines, then returns the terminal outcome. Does not spawn
// goroutines or create channels.
func Join(m *Machine) kont.Either[error, Value] {
	var bo iox.Backoff
	for m.done.Load() == 0 {
		bo.Wait()
	}
	return m.outcome
}

// pendKind tags the pending unwind action carried across a finally
// block.
type pendKind uint8

const (
	pendJump pendKind = iota // normal exit: continue at a label
	pendRet                  // early return: keep completing
	pendErr                  // exception: keep unwinding
)

type pendAction struct {
	kind pendKind
	to   label
	v    Value
	err  error
}

// frame is the per-dispatch execution context: ephemeral storage and
// the finally unwind stack. Both live and die within one dispatch —
// suspension inside a finally block is rejected at compile time, so no
// pending action ever crosses a boundary, and temporaries are cleared
// on every re-entry by construction.
type frame struct {
	m      *Machine
	temps  []Value
	pend   []pendAction
	thrown error
}

// dispatch is the single dispatch routine: re-enter the lowered
// skeleton at the label for the current state, run until suspension or
// a terminal transition. The whole body forms one protective region —
// any error routes first through enclosing Try scopes (the handler
// table is keyed by pc, so resumption labels re-enter their regions),
// then to the controller's exception handler.
func (m *Machine) dispatch(d resumeData) {
	if m.state == StateTerminal {
		panic(fmt.Sprintf("coro: dispatch on terminal machine %d", m.serial))
	}
	f := &frame{m: m, temps: make([]Value, m.t.tempCount)}
	var pc label
	switch {
	case d.start:
		for i, p := range m.t.params {
			f.store(m.t.storage[p], d.params[i])
		}
		pc = 0
	case d.err != nil:
		// fault at the suspension site itself, so the Try scopes
		// enclosing the point apply
		ent := m.t.entries[m.state]
		npc, ok := f.routeErr(ent.pc-1, d.err)
		if !ok {
			m.fail(d.err)
			return
		}
		pc = npc
	default:
		ent := m.t.entries[m.state]
		if ent.dst != "" {
			f.store(m.t.storage[ent.dst], d.v)
		}
		pc = ent.pc
	}
	f.run(pc)
}

// run executes the lowered program from pc until the dispatch yields.
func (f *frame) run(pc label) {
	m := f.m
	t := m.t
	for {
		switch ins := t.prog[pc].(type) {
		case evalInstr:
			v, err := f.eval(ins.x)
			if err != nil {
				npc, ok := f.routeErr(pc, err)
				if !ok {
					m.fail(err)
					return
				}
				pc = npc
				continue
			}
			if ins.dst != "" {
				f.store(t.storage[ins.dst], v)
			}
			pc++
		case branchInstr:
			v, err := f.eval(ins.cond)
			if err == nil {
				if _, ok := v.(bool); !ok {
					err = fmt.Errorf("coro: non-boolean condition %v", v)
				}
			}
			if err != nil {
				npc, ok := f.routeErr(pc, err)
				if !ok {
					m.fail(err)
					return
				}
				pc = npc
				continue
			}
			if v.(bool) {
				pc++
			} else {
				pc = ins.otherwise
			}
		case jumpInstr:
			pc = ins.to
		case suspendInstr:
			args := make([]Value, len(ins.args))
			var err error
			for i, a := range ins.args {
				if args[i], err = f.eval(a); err != nil {
					break
				}
			}
			if err != nil {
				npc, ok := f.routeErr(pc, err)
				if !ok {
					m.fail(err)
					return
				}
				pc = npc
				continue
			}
			// the suspend action: transition, hand off a fresh
			// continuation, ordinary return
			m.state = ins.point + 1
			m.ctrl.DispatchSuspend(ins.name, args, newContinuation(m))
			return
		case retInstr:
			var v Value
			var err error
			if ins.x != nil {
				if v, err = f.eval(ins.x); err != nil {
					npc, ok := f.routeErr(pc, err)
					if !ok {
						m.fail(err)
						return
					}
					pc = npc
					continue
				}
			}
			npc, unwinding := f.routeRet(pc, v)
			if !unwinding {
				m.complete(v)
				return
			}
			pc = npc
		case throwInstr:
			v, err := f.eval(ins.x)
			if err == nil {
				err = thrownError(v)
			}
			npc, ok := f.routeErr(pc, err)
			if !ok {
				m.fail(err)
				return
			}
			pc = npc
		case catchInstr:
			f.store(t.storage[ins.dst], f.thrown)
			f.thrown = nil
			pc++
		case pushFinInstr:
			f.pend = append(f.pend, pendAction{kind: pendJump, to: ins.to})
			pc = ins.fin
		case endFinInstr:
			p := f.pend[len(f.pend)-1]
			f.pend = f.pend[:len(f.pend)-1]
			switch p.kind {
			case pendJump:
				pc = p.to
			case pendRet:
				npc, unwinding := f.routeRet(pc, p.v)
				if !unwinding {
					m.complete(p.v)
					return
				}
				pc = npc
			case pendErr:
				npc, ok := f.routeErr(pc, p.err)
				if !ok {
					m.fail(p.err)
					return
				}
				pc = npc
			}
		}
	}
}

// routeErr finds the innermost protective region for an error at pc:
// its catch label, or its finally (with the rethrow pended). Reports
// false when no region applies and the error is terminal.
func (f *frame) routeErr(pc label, err error) (label, bool) {
	scopes := f.m.t.scopes
	for i := len(scopes) - 1; i >= 0; i-- {
		sc := &scopes[i]
		if sc.inBody(pc) {
			if sc.catchLabel != noLabel {
				f.thrown = err
				return sc.catchLabel, true
			}
			if sc.finLabel != noLabel {
				f.pend = append(f.pend, pendAction{kind: pendErr, err: err})
				return sc.finLabel, true
			}
		} else if sc.inCatch(pc) && sc.finLabel != noLabel {
			f.pend = append(f.pend, pendAction{kind: pendErr, err: err})
			return sc.finLabel, true
		}
	}
	return noLabel, false
}

// routeRet finds the innermost enclosing finally for a return at pc,
// pending the completion. Reports false when the return completes the
// computation directly.
func (f *frame) routeRet(pc label, v Value) (label, bool) {
	scopes := f.m.t.scopes
	for i := len(scopes) - 1; i >= 0; i-- {
		sc := &scopes[i]
		if (sc.inBody(pc) || sc.inCatch(pc)) && sc.finLabel != noLabel {
			f.pend = append(f.pend, pendAction{kind: pendRet, v: v})
			return sc.finLabel, true
		}
	}
	return noLabel, false
}

// eval evaluates an expression against machine storage.
func (f *frame) eval(x Expr) (Value, error) {
	switch e := x.(type) {
	case LitExpr:
		return e.V, nil
	case RefExpr:
		return f.load(f.m.t.storage[e.Name]), nil
	case CallExpr:
		args := make([]Value, len(e.Args))
		for i, a := range e.Args {
			v, err := f.eval(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return e.Fn(args)
	}
	return nil, nil
}

func (f *frame) store(ref storeRef, v Value) {
	switch ref.kind {
	case storeSlot:
		f.m.slots[ref.index] = v
	case storeTemp:
		f.temps[ref.index] = v
	}
}

func (f *frame) load(ref storeRef) Value {
	switch ref.kind {
	case storeSlot:
		return f.m.slots[ref.index]
	case storeTemp:
		return f.temps[ref.index]
	}
	return nil
}

// complete reaches the terminal state with a value and invokes the
// controller's result handler when it has one.
func (m *Machine) complete(v Value) {
	m.state = StateTerminal
	m.outcome = kont.Right[error, Value](v)
	m.done.Store(1)
	if rh, ok := m.ctrl.(ResultHandler); ok {
		rh.HandleResult(v)
	}
}

// fail reaches the terminal state with an uncaught error. A controller
// without an exception handler makes this a fatal protocol violation.
func (m *Machine) fail(err error) {
	m.state = StateTerminal
	m.outcome = kont.Left[error, Value](err)
	m.done.Store(1)
	if eh, ok := m.ctrl.(ExceptionHandler); ok {
		eh.HandleException(err)
		return
	}
	panic(fmt.Sprintf("coro: unhandled computation error (machine %d): %v", m.serial, err))
}
