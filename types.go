// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import "fmt"

// Type is a term in the compile-time signature language used by the
// controller binding resolver. A term is either a concrete constructor
// ([Con]) or the single internal-state type variable ([StateVar]) that
// all suspension points and terminal handlers of one computation must
// agree on.
type Type interface {
	typ() // unexported marker method
}

// ConType is a concrete type constructor, e.g. Con("Future", Con("Int")).
type ConType struct {
	Name string
	Args []Type
}

// VarType is the internal-state type variable. There is exactly one per
// computation; use the [StateVar] singleton.
type VarType struct{}

func (ConType) typ() {}
func (VarType) typ() {}

// StateVar is the internal-state type variable shared by every
// suspension point and terminal handler of a computation.
var StateVar Type = VarType{}

// Con creates a concrete type constructor term.
func Con(name string, args ...Type) Type { return ConType{Name: name, Args: args} }

// UnitType is the unit type: the result of members that deliver no
// meaningful value, and the default internal state when no member
// constrains it.
var UnitType = Con("Unit")

// subst is the single-variable substitution produced by unification.
type subst struct {
	bound bool
	t     Type
}

// apply resolves the state variable in t under s.
func (s *subst) apply(t Type) Type {
	switch tt := t.(type) {
	case VarType:
		if s.bound {
			return s.t
		}
		return t
	case ConType:
		if len(tt.Args) == 0 {
			return tt
		}
		args := make([]Type, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = s.apply(a)
		}
		return ConType{Name: tt.Name, Args: args}
	}
	return t
}

// occurs reports whether t mentions the state variable.
func occurs(t Type) bool {
	switch tt := t.(type) {
	case VarType:
		return true
	case ConType:
		for _, a := range tt.Args {
			if occurs(a) {
				return true
			}
		}
	}
	return false
}

// unify unifies a and b under s, binding the state variable as needed.
// First-order unification restricted to the one variable; failure is an
// [ErrStateMismatch] diagnostic.
func unify(a, b Type, s *subst) error {
	a, b = s.apply(a), s.apply(b)
	if _, ok := a.(VarType); ok {
		return bindState(b, s)
	}
	if _, ok := b.(VarType); ok {
		return bindState(a, s)
	}
	ca, cb := a.(ConType), b.(ConType)
	if ca.Name != cb.Name || len(ca.Args) != len(cb.Args) {
		return fmt.Errorf("%w: %s vs %s", ErrStateMismatch, TypeString(a), TypeString(b))
	}
	for i := range ca.Args {
		if err := unify(ca.Args[i], cb.Args[i], s); err != nil {
			return err
		}
	}
	return nil
}

// bindState binds the state variable to t.
func bindState(t Type, s *subst) error {
	if _, ok := t.(VarType); ok {
		return nil
	}
	if occurs(t) {
		return fmt.Errorf("%w: state variable occurs in %s", ErrStateMismatch, TypeString(t))
	}
	s.bound, s.t = true, t
	return nil
}

// TypeString renders a term for diagnostics.
func TypeString(t Type) string {
	switch tt := t.(type) {
	case VarType:
		return "S"
	case ConType:
		if len(tt.Args) == 0 {
			return tt.Name
		}
		out := tt.Name + "["
		for i, a := range tt.Args {
			if i > 0 {
				out += ", "
			}
			out += TypeString(a)
		}
		return out + "]"
	}
	return "?"
}

// typeEqual reports structural equality of two terms.
func typeEqual(a, b Type) bool {
	_, aVar := a.(VarType)
	_, bVar := b.(VarType)
	if aVar || bVar {
		return aVar && bVar
	}
	ca, cb := a.(ConType), b.(ConType)
	if ca.Name != cb.Name || len(ca.Args) != len(cb.Args) {
		return false
	}
	for i := range ca.Args {
		if !typeEqual(ca.Args[i], cb.Args[i]) {
			return false
		}
	}
	return true
}
