// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import "fmt"

// label is a program counter into the lowered instruction stream.
type label = int

// noLabel marks an absent jump target in scope tables.
const noLabel label = -1

// instr is the marker interface for lowered instructions.
// The lowered program is a flat label/goto skeleton: structured control
// flow (sequencing, branching, loops) is translated exactly, and each
// suspension point becomes one suspendInstr whose following pc is the
// point's single resumption label.
type instr interface {
	ins() // unexported marker method
}

// evalInstr evaluates x and stores the value into dst ("" discards).
type evalInstr struct {
	dst string
	x   Expr
}

// jumpInstr transfers control to a label.
type jumpInstr struct{ to label }

// branchInstr falls through when cond holds and jumps to otherwise
// when it does not.
type branchInstr struct {
	cond      Expr
	otherwise label
}

// suspendInstr transitions to state point+1, invokes the bound
// controller member with the argument values and a fresh continuation,
// and returns from dispatch. The following pc is the resumption label.
type suspendInstr struct {
	point int
	name  string
	dst   string
	args  []Expr
}

// retInstr completes the computation, routing through enclosing
// finally blocks first. A nil x produces the unit value.
type retInstr struct{ x Expr }

// throwInstr raises the value of x as a computation-body exception.
type throwInstr struct{ x Expr }

// catchInstr binds the routed exception to dst at a catch label.
type catchInstr struct{ dst string }

// pushFinInstr records the normal-exit continuation of a protective
// region and enters its finally block.
type pushFinInstr struct {
	scope int
	to    label
	fin   label
}

// endFinInstr pops the pending unwind action at the end of a finally
// block: jump on normal exit, re-route on return or exception.
type endFinInstr struct{ scope int }

func (evalInstr) ins()    {}
func (jumpInstr) ins()    {}
func (branchInstr) ins()  {}
func (suspendInstr) ins() {}
func (retInstr) ins()     {}
func (throwInstr) ins()   {}
func (catchInstr) ins()   {}
func (pushFinInstr) ins() {}
func (endFinInstr) ins()  {}

// scopeInfo is one protective region in the handler-scope table.
// Ranges are half-open pc intervals; nested regions emit after their
// parent and therefore carry higher ids, so routing scans ids
// descending to find the innermost enclosing region. The table is
// keyed by pc: a resumption label inside the body range re-enters the
// region automatically.
type scopeInfo struct {
	bodyFrom, bodyTo   label
	catchFrom, catchTo label
	catchLabel         label
	catchVar           string
	finLabel           label
	afterLabel         label
}

// inBody reports whether pc lies in the protected body range.
func (sc *scopeInfo) inBody(pc label) bool { return pc >= sc.bodyFrom && pc < sc.bodyTo }

// inCatch reports whether pc lies in the catch body range.
func (sc *scopeInfo) inCatch(pc label) bool {
	return sc.catchLabel != noLabel && pc >= sc.catchFrom && pc < sc.catchTo
}

// entry is the re-entry descriptor for one state: the pc to continue
// from and the destination binding for the resume value.
type entryInfo struct {
	pc  label
	dst string
}

// lowerer translates a computation body into the flat program.
type lowerer struct {
	prog      []instr
	scopes    []scopeInfo
	entries   []entryInfo
	nextPoint int

	declared  map[string]bool
	declOrder []string
}

// lower produces the instruction program, handler-scope table, and
// per-state entry labels for a classified computation.
func lower(c *Computation, points []Point) (*lowerer, error) {
	lw := &lowerer{
		entries:  make([]entryInfo, len(points)+1),
		declared: make(map[string]bool),
	}
	for _, p := range c.Params {
		lw.declare(p)
	}
	if err := lw.block(c.Body); err != nil {
		return nil, err
	}
	// implicit unit fall-through
	lw.emit(retInstr{})
	return lw, nil
}

func (lw *lowerer) declare(name string) {
	if !lw.declared[name] {
		lw.declared[name] = true
		lw.declOrder = append(lw.declOrder, name)
	}
}

// checkReads validates that every reference in x is declared.
func (lw *lowerer) checkReads(x Expr) error {
	switch e := x.(type) {
	case RefExpr:
		if !lw.declared[e.Name] {
			return fmt.Errorf("%w: %q", ErrUnboundVar, e.Name)
		}
	case CallExpr:
		for _, a := range e.Args {
			if err := lw.checkReads(a); err != nil {
				return err
			}
		}
	}
	return nil
}

// emit appends one instruction and returns its pc.
func (lw *lowerer) emit(ins instr) label {
	lw.prog = append(lw.prog, ins)
	return len(lw.prog) - 1
}

func (lw *lowerer) here() label { return len(lw.prog) }

func (lw *lowerer) block(body []Stmt) error {
	for _, st := range body {
		if err := lw.stmt(st); err != nil {
			return err
		}
	}
	return nil
}

func (lw *lowerer) stmt(st Stmt) error {
	switch s := st.(type) {
	case LetStmt:
		if err := lw.checkReads(s.X); err != nil {
			return err
		}
		lw.declare(s.Name)
		lw.emit(evalInstr{dst: s.Name, x: s.X})
	case SetStmt:
		if err := lw.checkReads(s.X); err != nil {
			return err
		}
		if !lw.declared[s.Name] {
			return fmt.Errorf("%w: assignment to %q", ErrUnboundVar, s.Name)
		}
		lw.emit(evalInstr{dst: s.Name, x: s.X})
	case DoStmt:
		if err := lw.checkReads(s.X); err != nil {
			return err
		}
		lw.emit(evalInstr{x: s.X})
	case IfStmt:
		if err := lw.checkReads(s.Cond); err != nil {
			return err
		}
		b := lw.emit(branchInstr{cond: s.Cond, otherwise: noLabel})
		if err := lw.block(s.Then); err != nil {
			return err
		}
		if len(s.Else) == 0 {
			lw.prog[b] = branchInstr{cond: s.Cond, otherwise: lw.here()}
			return nil
		}
		j := lw.emit(jumpInstr{to: noLabel})
		lw.prog[b] = branchInstr{cond: s.Cond, otherwise: lw.here()}
		if err := lw.block(s.Else); err != nil {
			return err
		}
		lw.prog[j] = jumpInstr{to: lw.here()}
	case WhileStmt:
		if err := lw.checkReads(s.Cond); err != nil {
			return err
		}
		top := lw.here()
		b := lw.emit(branchInstr{cond: s.Cond, otherwise: noLabel})
		if err := lw.block(s.Body); err != nil {
			return err
		}
		lw.emit(jumpInstr{to: top})
		lw.prog[b] = branchInstr{cond: s.Cond, otherwise: lw.here()}
	case RetStmt:
		if s.X != nil {
			if err := lw.checkReads(s.X); err != nil {
				return err
			}
		}
		lw.emit(retInstr{x: s.X})
	case ThrowStmt:
		if err := lw.checkReads(s.X); err != nil {
			return err
		}
		lw.emit(throwInstr{x: s.X})
	case SuspendStmt:
		for _, a := range s.Args {
			if err := lw.checkReads(a); err != nil {
				return err
			}
		}
		if s.Dst != "" {
			lw.declare(s.Dst)
		}
		idx := lw.nextPoint
		lw.nextPoint++
		pc := lw.emit(suspendInstr{point: idx, name: s.Point, dst: s.Dst, args: s.Args})
		lw.entries[idx+1] = entryInfo{pc: pc + 1, dst: s.Dst}
	case TryStmt:
		return lw.tryStmt(s)
	case RestrictStmt:
		return lw.block(s.Body)
	}
	return nil
}

// tryStmt lowers a protective region. Emission order: body, body exit,
// catch, catch exit, finally, after. Exits route through the finally
// block via pushFin/endFin when one is present; the finally body lies
// outside both protected ranges so its own faults route outward.
func (lw *lowerer) tryStmt(s TryStmt) error {
	sid := len(lw.scopes)
	lw.scopes = append(lw.scopes, scopeInfo{catchLabel: noLabel, finLabel: noLabel})

	hasCatch := s.Catch != nil || s.CatchVar != ""
	hasFin := len(s.Finally) > 0

	bodyFrom := lw.here()
	if err := lw.block(s.Body); err != nil {
		return err
	}
	bodyTo := lw.here()

	var exits []label // pushFin/jump pcs patched to the after label
	if hasFin {
		exits = append(exits, lw.emit(pushFinInstr{scope: sid, to: noLabel, fin: noLabel}))
	} else {
		exits = append(exits, lw.emit(jumpInstr{to: noLabel}))
	}

	catchLabel, catchFrom, catchTo := noLabel, noLabel, noLabel
	if hasCatch {
		catchLabel = lw.here()
		lw.declare(s.CatchVar)
		lw.emit(catchInstr{dst: s.CatchVar})
		catchFrom = lw.here()
		if err := lw.block(s.Catch); err != nil {
			return err
		}
		catchTo = lw.here()
		if hasFin {
			exits = append(exits, lw.emit(pushFinInstr{scope: sid, to: noLabel, fin: noLabel}))
		} else {
			exits = append(exits, lw.emit(jumpInstr{to: noLabel}))
		}
	}

	finLabel := noLabel
	if hasFin {
		finLabel = lw.here()
		if err := lw.block(s.Finally); err != nil {
			return err
		}
		lw.emit(endFinInstr{scope: sid})
	}

	after := lw.here()
	for _, pc := range exits {
		switch e := lw.prog[pc].(type) {
		case pushFinInstr:
			lw.prog[pc] = pushFinInstr{scope: e.scope, to: after, fin: finLabel}
		case jumpInstr:
			lw.prog[pc] = jumpInstr{to: after}
		}
	}

	lw.scopes[sid] = scopeInfo{
		bodyFrom: bodyFrom, bodyTo: bodyTo,
		catchFrom: catchFrom, catchTo: catchTo,
		catchLabel: catchLabel, catchVar: s.CatchVar,
		finLabel: finLabel, afterLabel: after,
	}
	return nil
}

// returnsValue reports whether any return statement in body carries a
// value. Fall-through and bare returns produce the unit value and do
// not require a controller result handler.
func returnsValue(body []Stmt) bool {
	for _, st := range body {
		switch s := st.(type) {
		case RetStmt:
			if s.X != nil {
				return true
			}
		case IfStmt:
			if returnsValue(s.Then) || returnsValue(s.Else) {
				return true
			}
		case WhileStmt:
			if returnsValue(s.Body) {
				return true
			}
		case TryStmt:
			if returnsValue(s.Body) || returnsValue(s.Catch) || returnsValue(s.Finally) {
				return true
			}
		case RestrictStmt:
			if returnsValue(s.Body) {
				return true
			}
		}
	}
	return false
}
