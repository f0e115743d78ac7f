// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import "fmt"

// Template is the compile product of one computation: the lowered
// instruction program, the handler-scope table, per-state entry labels,
// the storage layout, and the resolved controller binding. Templates
// are immutable and shared by all machines instantiated from them.
type Template struct {
	prog    []instr
	scopes  []scopeInfo
	entries []entryInfo

	storage   map[string]storeRef
	slotCount int
	tempCount int

	params       []string
	points       []Point
	binding      Binding
	returnsValue bool
}

// States returns the number of dispatch labels: suspension points + 1,
// independent of loop structure (a point inside a loop owns one label,
// re-entered on every iteration).
func (t *Template) States() int { return len(t.points) + 1 }

// Points returns the classified suspension points in syntactic order.
func (t *Template) Points() []Point { return t.points }

// SlotCount returns the size of the instance record: the number of
// locals and parameters live across some suspension boundary.
func (t *Template) SlotCount() int { return t.slotCount }

// Binding returns the resolved controller binding, including the
// unified internal-state type.
func (t *Template) Binding() Binding { return t.binding }

// Compile lowers a computation against a controller type:
// classification, capture analysis, state machine lowering, and
// controller binding resolution, in that order. The result is a
// reusable [Template]; all compile-time diagnostics of the error
// taxonomy surface here.
func Compile(c *Computation, ct *ControllerType) (*Template, error) {
	points, err := classify(c)
	if err != nil {
		return nil, err
	}
	lw, err := lower(c, points)
	if err != nil {
		return nil, err
	}
	producesValue := returnsValue(c.Body)
	binding, err := resolve(ct, points, producesValue)
	if err != nil {
		return nil, err
	}
	storage, slots, temps := assignStorage(lw)
	return &Template{
		prog:         lw.prog,
		scopes:       lw.scopes,
		entries:      lw.entries,
		storage:      storage,
		slotCount:    slots,
		tempCount:    temps,
		params:       c.Params,
		points:       points,
		binding:      binding,
		returnsValue: producesValue,
	}, nil
}

// Start is the builder invocation protocol: instantiate a machine from
// the template, attach the controller, and invoke the dispatch routine
// once with the start sentinel — exactly the resume protocol applied
// to state 0. A computation with zero suspension points runs to
// completion synchronously inside this call.
//
// Library builders wrap Start to return their public handle (a future,
// a sequence, ...); the core returns the machine itself.
func Start(t *Template, ctrl Controller, args ...Value) *Machine {
	if len(args) != len(t.params) {
		panic(fmt.Sprintf("coro: computation takes %d parameters, Start passed %d",
			len(t.params), len(args)))
	}
	m := &Machine{
		t:      t,
		ctrl:   ctrl,
		serial: nextSerial(),
		slots:  make([]Value, t.slotCount),
	}
	m.dispatch(resumeData{start: true, params: args})
	return m
}
