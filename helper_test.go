// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro_test

import (
	"testing"

	"code.hybscloud.com/coro"
)

// testCtrlType builds a controller type whose members take the given
// arities, with both terminal handlers declared and no internal-state
// constraints. Most runtime tests only need member existence.
func testCtrlType(members map[string]int) *coro.ControllerType {
	ms := make(map[string]coro.MemberSig, len(members))
	for name, arity := range members {
		sig := coro.MemberSig{}
		if arity > 0 {
			sig.Params = make([]coro.Type, arity)
			for i := range sig.Params {
				sig.Params[i] = coro.Con("Any")
			}
		}
		ms[name] = sig
	}
	return &coro.ControllerType{
		Members:   ms,
		Result:    &coro.MemberSig{},
		Exception: &coro.MemberSig{},
	}
}

// compile is a test helper that fails fast on compile diagnostics.
func compile(tb testing.TB, c *coro.Computation, ct *coro.ControllerType) *coro.Template {
	tb.Helper()
	tmpl, err := coro.Compile(c, ct)
	if err != nil {
		tb.Fatalf("compile: %v", err)
	}
	return tmpl
}

// drive starts a computation under a Stepper and feeds the resume
// values in order, failing if the machine parks more or fewer times.
func drive(tb testing.TB, tmpl *coro.Template, resumes ...coro.Value) *coro.Stepper {
	tb.Helper()
	var st coro.Stepper
	coro.Start(tmpl, &st)
	for i, v := range resumes {
		p := st.Take()
		if p == nil {
			tb.Fatalf("machine terminal before resume %d", i)
		}
		p.K.Resume(v)
	}
	return &st
}

// binary integer operators as opaque calls

func intOp(f func(a, b int) int, x, y coro.Expr) coro.Expr {
	return coro.Call(func(args []coro.Value) (coro.Value, error) {
		return f(args[0].(int), args[1].(int)), nil
	}, x, y)
}

func add(x, y coro.Expr) coro.Expr { return intOp(func(a, b int) int { return a + b }, x, y) }
func sub(x, y coro.Expr) coro.Expr { return intOp(func(a, b int) int { return a - b }, x, y) }

func lt(x, y coro.Expr) coro.Expr {
	return coro.Call(func(args []coro.Value) (coro.Value, error) {
		return args[0].(int) < args[1].(int), nil
	}, x, y)
}

func gt(x, y coro.Expr) coro.Expr {
	return coro.Call(func(args []coro.Value) (coro.Value, error) {
		return args[0].(int) > args[1].(int), nil
	}, x, y)
}

// shared-state accessors for interleaving tests

func loadInt(p *int) coro.Expr {
	return coro.Call(func([]coro.Value) (coro.Value, error) { return *p, nil })
}

func storeInt(p *int, x coro.Expr) coro.Stmt {
	return coro.Do(coro.Call(func(args []coro.Value) (coro.Value, error) {
		*p = args[0].(int)
		return nil, nil
	}, x))
}

func incr(p *int) coro.Stmt {
	return coro.Do(coro.Call(func([]coro.Value) (coro.Value, error) {
		*p++
		return nil, nil
	}))
}
