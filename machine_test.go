// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro_test

import (
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/coro"
)

// TestZeroSuspensionSynchronous checks that a computation without
// suspension points completes synchronously inside Start, going
// straight from entry to terminal.
func TestZeroSuspensionSynchronous(t *testing.T) {
	c := &coro.Computation{Body: []coro.Stmt{
		coro.Ret(add(coro.Lit(2), coro.Lit(3))),
	}}
	tmpl := compile(t, c, testCtrlType(nil))
	if got := tmpl.States(); got != 1 {
		t.Fatalf("got %d states, want 1", got)
	}

	var st coro.Stepper
	m := coro.Start(tmpl, &st)
	if !m.Done() {
		t.Fatal("machine not terminal after Start")
	}
	if m.State() != coro.StateTerminal {
		t.Fatalf("state %d, want terminal", m.State())
	}
	if p := st.Take(); p != nil {
		t.Fatalf("unexpected parked suspension %q", p.Member)
	}
	if v, ok := st.Result(); !ok || v.(int) != 5 {
		t.Fatalf("got (%v, %v), want (5, true)", v, ok)
	}
}

// TestExceptionRoutesToHandler is the abort scenario: a throw between
// two calls reaches the exception handler and the trailing call never
// runs.
func TestExceptionRoutesToHandler(t *testing.T) {
	errE := errors.New("E")
	ranB := 0
	c := &coro.Computation{Body: []coro.Stmt{
		coro.Let("x", coro.Lit(1)),
		coro.Throw(coro.Lit(errE)),
		incr(&ranB),
	}}
	tmpl := compile(t, c, testCtrlType(nil))

	var st coro.Stepper
	m := coro.Start(tmpl, &st)
	if !m.Done() {
		t.Fatal("machine not terminal")
	}
	if err, ok := st.Err(); !ok || !errors.Is(err, errE) {
		t.Fatalf("recorded (%v, %v), want E", err, ok)
	}
	if ranB != 0 {
		t.Fatal("statement after throw executed")
	}
	out, ok := m.Outcome()
	if !ok {
		t.Fatal("no outcome on terminal machine")
	}
	if e, isErr := out.GetLeft(); !isErr || !errors.Is(e, errE) {
		t.Fatalf("outcome %v, want Left(E)", out)
	}
}

func TestTryCatch(t *testing.T) {
	errE := errors.New("boom")
	c := &coro.Computation{Body: []coro.Stmt{
		coro.TryStmt{
			Body:     []coro.Stmt{coro.Throw(coro.Lit(errE))},
			CatchVar: "e",
			Catch:    []coro.Stmt{coro.Ret(coro.Ref("e"))},
		},
	}}
	tmpl := compile(t, c, testCtrlType(nil))
	var st coro.Stepper
	coro.Start(tmpl, &st)
	if v, ok := st.Result(); !ok || v.(error) != errE {
		t.Fatalf("got (%v, %v), want caught error", v, ok)
	}
}

// TestResumeErrorCaughtByTry checks that a failure delivered through
// ResumeError unwinds from the suspension point itself, so the Try
// enclosing the point catches it even though the dispatch re-entered
// at a resumption label.
func TestResumeErrorCaughtByTry(t *testing.T) {
	c := &coro.Computation{Body: []coro.Stmt{
		coro.TryStmt{
			Body: []coro.Stmt{
				coro.SuspendInto("v", "await"),
				coro.Ret(coro.Ref("v")),
			},
			CatchVar: "e",
			Catch:    []coro.Stmt{coro.Ret(coro.Lit("caught"))},
		},
	}}
	tmpl := compile(t, c, testCtrlType(map[string]int{"await": 0}))
	var st coro.Stepper
	coro.Start(tmpl, &st)
	st.Take().K.ResumeError(errors.New("late failure"))
	if v, ok := st.Result(); !ok || v.(string) != "caught" {
		t.Fatalf("got (%v, %v), want (caught, true)", v, ok)
	}
}

// TestFinallyRunsOnceAcrossResumptions pins the chosen finally
// semantics: the block runs exactly once, on the structural exit of
// the protected region, never per resumption.
func TestFinallyRunsOnceAcrossResumptions(t *testing.T) {
	fin := 0
	c := &coro.Computation{Body: []coro.Stmt{
		coro.TryStmt{
			Body: []coro.Stmt{
				coro.SuspendCall("p"),
				coro.SuspendCall("q"),
			},
			Finally: []coro.Stmt{incr(&fin)},
		},
	}}
	tmpl := compile(t, c, testCtrlType(map[string]int{"p": 0, "q": 0}))

	var st coro.Stepper
	m := coro.Start(tmpl, &st)
	if fin != 0 {
		t.Fatalf("finally ran %d times while suspended, want 0", fin)
	}
	st.Take().K.Resume(nil)
	if fin != 0 {
		t.Fatalf("finally ran %d times mid-region, want 0", fin)
	}
	st.Take().K.Resume(nil)
	if fin != 1 {
		t.Fatalf("finally ran %d times, want exactly 1", fin)
	}
	if !m.Done() {
		t.Fatal("machine not terminal")
	}
}

func TestFinallyOnReturn(t *testing.T) {
	fin := 0
	c := &coro.Computation{Body: []coro.Stmt{
		coro.TryStmt{
			Body:    []coro.Stmt{coro.Ret(coro.Lit(7))},
			Finally: []coro.Stmt{incr(&fin)},
		},
		coro.Ret(coro.Lit(0)), // unreachable
	}}
	tmpl := compile(t, c, testCtrlType(nil))
	var st coro.Stepper
	coro.Start(tmpl, &st)
	if v, ok := st.Result(); !ok || v.(int) != 7 {
		t.Fatalf("got (%v, %v), want (7, true)", v, ok)
	}
	if fin != 1 {
		t.Fatalf("finally ran %d times, want 1", fin)
	}
}

func TestFinallyOnUncaught(t *testing.T) {
	errE := errors.New("boom")
	fin := 0
	c := &coro.Computation{Body: []coro.Stmt{
		coro.TryStmt{
			Body:    []coro.Stmt{coro.Throw(coro.Lit(errE))},
			Finally: []coro.Stmt{incr(&fin)},
		},
	}}
	tmpl := compile(t, c, testCtrlType(nil))
	var st coro.Stepper
	coro.Start(tmpl, &st)
	if err, ok := st.Err(); !ok || !errors.Is(err, errE) {
		t.Fatalf("got (%v, %v), want uncaught boom", err, ok)
	}
	if fin != 1 {
		t.Fatalf("finally ran %d times, want 1", fin)
	}
}

// TestNestedFinallyOrder checks inner-to-outer unwind order on an
// early return through two protected regions.
func TestNestedFinallyOrder(t *testing.T) {
	var order []string
	mark := func(s string) coro.Stmt {
		return coro.Do(coro.Call(func([]coro.Value) (coro.Value, error) {
			order = append(order, s)
			return nil, nil
		}))
	}
	c := &coro.Computation{Body: []coro.Stmt{
		coro.TryStmt{
			Body: []coro.Stmt{
				coro.TryStmt{
					Body:    []coro.Stmt{coro.Ret(coro.Lit(1))},
					Finally: []coro.Stmt{mark("inner")},
				},
			},
			Finally: []coro.Stmt{mark("outer")},
		},
	}}
	tmpl := compile(t, c, testCtrlType(nil))
	var st coro.Stepper
	coro.Start(tmpl, &st)
	if v, _ := st.Result(); v.(int) != 1 {
		t.Fatalf("got %v, want 1", v)
	}
	if len(order) != 2 || order[0] != "inner" || order[1] != "outer" {
		t.Fatalf("unwind order %v, want [inner outer]", order)
	}
}

func TestCancelIsExceptionPath(t *testing.T) {
	c := &coro.Computation{Body: []coro.Stmt{
		coro.SuspendCall("await"),
		coro.Ret(coro.Lit("done")),
	}}
	tmpl := compile(t, c, testCtrlType(map[string]int{"await": 0}))
	var st coro.Stepper
	coro.Start(tmpl, &st)
	st.Take().K.Cancel()
	if err, ok := st.Err(); !ok || !errors.Is(err, coro.Canceled) {
		t.Fatalf("got (%v, %v), want Canceled", err, ok)
	}
}

func TestNonBooleanConditionFaults(t *testing.T) {
	c := &coro.Computation{Body: []coro.Stmt{
		coro.If(coro.Lit(1), []coro.Stmt{coro.RetVoid()}, nil),
	}}
	tmpl := compile(t, c, testCtrlType(nil))
	var st coro.Stepper
	coro.Start(tmpl, &st)
	if _, ok := st.Err(); !ok {
		t.Fatal("non-boolean condition did not fault")
	}
}

// TestJoin waits for a machine resumed from another goroutine.
func TestJoin(t *testing.T) {
	c := &coro.Computation{Body: []coro.Stmt{
		coro.SuspendInto("v", "await"),
		coro.Ret(coro.Ref("v")),
	}}
	tmpl := compile(t, c, testCtrlType(map[string]int{"await": 0}))
	var st coro.Stepper
	m := coro.Start(tmpl, &st)
	p := st.Take()
	go func() {
		time.Sleep(time.Millisecond)
		p.K.Resume(42)
	}()
	out := coro.Join(m)
	if v, ok := out.GetRight(); !ok || v.(int) != 42 {
		t.Fatalf("joined %v, want Right(42)", out)
	}
}
