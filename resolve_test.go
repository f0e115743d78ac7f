// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/coro"
)

// futureCtrlType models a future controller parameterized over its
// element type: every member and handler mentions the internal-state
// variable inside a Promise constructor.
func futureCtrlType() *coro.ControllerType {
	promise := coro.Con("Promise", coro.StateVar)
	return &coro.ControllerType{
		Members: map[string]coro.MemberSig{
			"await": {
				Params: []coro.Type{coro.Con("Future", coro.StateVar)},
				Result: coro.StateVar,
				State:  promise,
			},
		},
		Result:    &coro.MemberSig{State: promise},
		Exception: &coro.MemberSig{State: promise},
	}
}

// TestResolveUnifiesState checks that a concrete call-site result term
// flows through unification and instantiates the internal state of
// every member.
func TestResolveUnifiesState(t *testing.T) {
	c := &coro.Computation{Body: []coro.Stmt{
		coro.SuspendStmt{Dst: "v", Point: "await", Args: []coro.Expr{coro.Lit(nil)},
			ResultType: coro.Con("Int")},
		coro.Ret(coro.Ref("v")),
	}}
	tmpl := compile(t, c, futureCtrlType())
	b := tmpl.Binding()
	if got := coro.TypeString(b.State); got != "Promise[Int]" {
		t.Fatalf("unified state %s, want Promise[Int]", got)
	}
	if got := coro.TypeString(b.Points[0].Member.Params[0]); got != "Future[Int]" {
		t.Fatalf("member param %s, want Future[Int]", got)
	}
}

// TestResolveStateDefaultsToUnit checks that a computation with no
// state constraints binds the unit internal state.
func TestResolveStateDefaultsToUnit(t *testing.T) {
	c := &coro.Computation{Body: []coro.Stmt{coro.SuspendCall("p")}}
	tmpl := compile(t, c, testCtrlType(map[string]int{"p": 0}))
	if got := coro.TypeString(tmpl.Binding().State); got != "Unit" {
		t.Fatalf("state %s, want Unit", got)
	}
}

func TestResolveStateMismatch(t *testing.T) {
	ct := &coro.ControllerType{
		Members: map[string]coro.MemberSig{
			"a": {State: coro.Con("Promise", coro.Con("Int"))},
			"b": {State: coro.Con("Promise", coro.Con("String"))},
		},
	}
	c := &coro.Computation{Body: []coro.Stmt{
		coro.SuspendCall("a"),
		coro.SuspendCall("b"),
	}}
	_, err := coro.Compile(c, ct)
	if !errors.Is(err, coro.ErrStateMismatch) {
		t.Fatalf("got %v, want ErrStateMismatch", err)
	}
}

func TestResolveHandlerStateMismatch(t *testing.T) {
	ct := &coro.ControllerType{
		Members: map[string]coro.MemberSig{
			"a": {State: coro.Con("Generator", coro.Con("Int"))},
		},
		Exception: &coro.MemberSig{State: coro.Con("Promise", coro.StateVar)},
	}
	c := &coro.Computation{Body: []coro.Stmt{coro.SuspendCall("a")}}
	_, err := coro.Compile(c, ct)
	if !errors.Is(err, coro.ErrStateMismatch) {
		t.Fatalf("got %v, want ErrStateMismatch", err)
	}
}

func TestResolveUnresolvedMember(t *testing.T) {
	c := &coro.Computation{Body: []coro.Stmt{coro.SuspendCall("missing")}}
	_, err := coro.Compile(c, testCtrlType(map[string]int{"present": 0}))
	if !errors.Is(err, coro.ErrUnresolvedMember) {
		t.Fatalf("got %v, want ErrUnresolvedMember", err)
	}
}

func TestResolveArityMismatch(t *testing.T) {
	c := &coro.Computation{Body: []coro.Stmt{
		coro.SuspendCall("p", coro.Lit(1), coro.Lit(2)),
	}}
	_, err := coro.Compile(c, testCtrlType(map[string]int{"p": 1}))
	if !errors.Is(err, coro.ErrUnresolvedMember) {
		t.Fatalf("got %v, want ErrUnresolvedMember", err)
	}
}

// TestResolveRestrictedScope checks that a suspension point inside a
// Restrict scope is rejected even when the member exists.
func TestResolveRestrictedScope(t *testing.T) {
	c := &coro.Computation{Body: []coro.Stmt{
		coro.SuspendCall("p"),
		coro.Restrict(coro.SuspendCall("p")),
	}}
	_, err := coro.Compile(c, testCtrlType(map[string]int{"p": 0}))
	if !errors.Is(err, coro.ErrRestrictedSuspend) {
		t.Fatalf("got %v, want ErrRestrictedSuspend", err)
	}
}

// TestResolveNoResultHandler checks that a value-producing computation
// cannot bind to a controller type without a result handler.
func TestResolveNoResultHandler(t *testing.T) {
	ct := &coro.ControllerType{
		Members: map[string]coro.MemberSig{"p": {}},
	}
	c := &coro.Computation{Body: []coro.Stmt{
		coro.SuspendCall("p"),
		coro.Ret(coro.Lit(1)),
	}}
	_, err := coro.Compile(c, ct)
	if !errors.Is(err, coro.ErrNoResultHandler) {
		t.Fatalf("got %v, want ErrNoResultHandler", err)
	}

	// unit-producing computations bind fine
	c2 := &coro.Computation{Body: []coro.Stmt{coro.SuspendCall("p")}}
	if _, err := coro.Compile(c2, ct); err != nil {
		t.Fatalf("unit computation rejected: %v", err)
	}
}

func TestResolveSiteResultConflict(t *testing.T) {
	c := &coro.Computation{Body: []coro.Stmt{
		coro.SuspendStmt{Dst: "v", Point: "await", Args: []coro.Expr{coro.Lit(nil)},
			ResultType: coro.Con("Int")},
		coro.SuspendStmt{Dst: "w", Point: "await", Args: []coro.Expr{coro.Lit(nil)},
			ResultType: coro.Con("String")},
	}}
	_, err := coro.Compile(c, futureCtrlType())
	if !errors.Is(err, coro.ErrStateMismatch) {
		t.Fatalf("got %v, want ErrStateMismatch", err)
	}
}
