// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

// Capture analysis: a variable is captured iff it is live at some
// resumption entry — written before the boundary and read at or after
// it. Captured variables share one stable slot across all states, so a
// value written before suspension k and read after suspension k+1
// survives intermediate suspensions unchanged. Everything else stays in
// per-dispatch ephemeral storage, which is cleared on every re-entry
// (dead-capture elimination made observable).
//
// The analysis is a backward dataflow fixpoint over the lowered
// skeleton, with conservative edges into enclosing catch and finally
// labels — the same shape as an instrumentation pass computing live
// locals at unwind points.

// storeKind selects the storage class of a binding.
type storeKind uint8

const (
	storeNone storeKind = iota // discarded writes
	storeSlot                  // instance record, survives suspension
	storeTemp                  // per-dispatch scratch, cleared on re-entry
)

// storeRef locates a binding in machine storage.
type storeRef struct {
	kind  storeKind
	index int
}

type nameSet = map[string]struct{}

// reads appends the names referenced by x.
func reads(x Expr, into nameSet) {
	switch e := x.(type) {
	case RefExpr:
		into[e.Name] = struct{}{}
	case CallExpr:
		for _, a := range e.Args {
			reads(a, into)
		}
	}
}

// useDef returns the names read and the name written by one instruction.
func useDef(ins instr) (use nameSet, def string) {
	use = nameSet{}
	switch i := ins.(type) {
	case evalInstr:
		reads(i.x, use)
		def = i.dst
	case branchInstr:
		reads(i.cond, use)
	case suspendInstr:
		for _, a := range i.args {
			reads(a, use)
		}
		def = i.dst
	case retInstr:
		if i.x != nil {
			reads(i.x, use)
		}
	case throwInstr:
		reads(i.x, use)
	case catchInstr:
		def = i.dst
	}
	return use, def
}

// handlerEdges appends the catch and finally labels of every scope
// enclosing pc. Conservative: any instruction in a protected range may
// fault into its handlers.
func handlerEdges(scopes []scopeInfo, pc label, into []label) []label {
	for i := len(scopes) - 1; i >= 0; i-- {
		sc := &scopes[i]
		if sc.inBody(pc) {
			if sc.catchLabel != noLabel {
				into = append(into, sc.catchLabel)
			}
			if sc.finLabel != noLabel {
				into = append(into, sc.finLabel)
			}
		} else if sc.inCatch(pc) {
			if sc.finLabel != noLabel {
				into = append(into, sc.finLabel)
			}
		}
	}
	return into
}

// successors computes the control-flow successors of pc.
func successors(lw *lowerer, pc label) []label {
	var succ []label
	switch i := lw.prog[pc].(type) {
	case evalInstr:
		succ = append(succ, pc+1)
		succ = handlerEdges(lw.scopes, pc, succ)
	case branchInstr:
		succ = append(succ, pc+1, i.otherwise)
		succ = handlerEdges(lw.scopes, pc, succ)
	case jumpInstr:
		succ = append(succ, i.to)
	case suspendInstr:
		succ = append(succ, pc+1)
		succ = handlerEdges(lw.scopes, pc, succ)
	case retInstr:
		// return routes through enclosing finally blocks
		for j := len(lw.scopes) - 1; j >= 0; j-- {
			sc := &lw.scopes[j]
			if (sc.inBody(pc) || sc.inCatch(pc)) && sc.finLabel != noLabel {
				succ = append(succ, sc.finLabel)
			}
		}
	case throwInstr:
		succ = handlerEdges(lw.scopes, pc, succ)
	case catchInstr:
		succ = append(succ, pc+1)
	case pushFinInstr:
		succ = append(succ, i.fin)
	case endFinInstr:
		succ = append(succ, lw.scopes[i.scope].afterLabel)
		succ = handlerEdges(lw.scopes, pc, succ)
	}
	out := succ[:0]
	for _, s := range succ {
		if s >= 0 && s < len(lw.prog) {
			out = append(out, s)
		}
	}
	return out
}

// liveness computes live-in sets for every pc by backward fixpoint.
func liveness(lw *lowerer) []nameSet {
	n := len(lw.prog)
	liveIn := make([]nameSet, n)
	for i := range liveIn {
		liveIn[i] = nameSet{}
	}
	for changed := true; changed; {
		changed = false
		for pc := n - 1; pc >= 0; pc-- {
			use, def := useDef(lw.prog[pc])
			out := nameSet{}
			for _, s := range successors(lw, pc) {
				for name := range liveIn[s] {
					out[name] = struct{}{}
				}
			}
			in := use
			for name := range out {
				if name != def {
					in[name] = struct{}{}
				}
			}
			if len(in) != len(liveIn[pc]) {
				liveIn[pc] = in
				changed = true
				continue
			}
			for name := range in {
				if _, ok := liveIn[pc][name]; !ok {
					liveIn[pc] = in
					changed = true
					break
				}
			}
		}
	}
	return liveIn
}

// assignStorage computes the capture set and binds every declared name
// to a slot or a temporary, in declaration order for stable layout.
// The capture set of state s excludes the resume destination itself:
// its value arrives with the resume data, not from before the boundary.
func assignStorage(lw *lowerer) (storage map[string]storeRef, slots, temps int) {
	liveIn := liveness(lw)
	captured := nameSet{}
	for s := 1; s < len(lw.entries); s++ {
		ent := lw.entries[s]
		for name := range liveIn[ent.pc] {
			if name != ent.dst {
				captured[name] = struct{}{}
			}
		}
	}
	storage = make(map[string]storeRef, len(lw.declOrder))
	for _, name := range lw.declOrder {
		if _, ok := captured[name]; ok {
			storage[name] = storeRef{kind: storeSlot, index: slots}
			slots++
		} else {
			storage[name] = storeRef{kind: storeTemp, index: temps}
			temps++
		}
	}
	return storage, slots, temps
}
