// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import "fmt"

// MemberSig declares one controller member visible without
// qualification inside a bound computation. Params describe the
// declared parameters excluding the implicit trailing continuation;
// Result is the type the continuation is later resumed with; State is
// the member's internal-state term, typically mentioning [StateVar].
type MemberSig struct {
	Params []Type
	Result Type
	State  Type
}

// ControllerType is the compile-time description of a controller: the
// member set suspension points resolve against, plus the optional
// terminal handler signatures. It is the static counterpart of the
// runtime [Controller] value a builder attaches at [Start].
type ControllerType struct {
	Members   map[string]MemberSig
	Result    *MemberSig // handleResult; nil when absent
	Exception *MemberSig // handleException; nil when absent
}

// ResolvedPoint is one suspension point bound to its controller member.
type ResolvedPoint struct {
	Point  Point
	Member MemberSig
}

// Binding is the resolved outcome for one computation: every point
// bound to a member and the single concrete internal-state type all of
// them agree on. An unconstrained state defaults to [UnitType].
type Binding struct {
	State  Type
	Points []ResolvedPoint
}

// resolve binds every suspension point of a computation to a member of
// the controller type and unifies the shared internal-state term
// across all points and terminal handlers. It runs once per
// computation, before lowering is finalized.
//
// Failure modes: a point with no matching member or wrong arity
// ([ErrUnresolvedMember]); state terms with no common unifier
// ([ErrStateMismatch]); a point inside a restricted scope
// ([ErrRestrictedSuspend]); a value-producing computation bound to a
// controller type without a result handler ([ErrNoResultHandler]).
func resolve(ct *ControllerType, points []Point, producesValue bool) (Binding, error) {
	var s subst
	var state Type // running unifier of all contributed state terms
	b := Binding{Points: make([]ResolvedPoint, 0, len(points))}

	contribute := func(site string, term Type) error {
		if term == nil {
			return nil
		}
		if state == nil {
			state = term
			return nil
		}
		if err := unify(state, term, &s); err != nil {
			return fmt.Errorf("%s: %w", site, err)
		}
		return nil
	}

	for _, p := range points {
		if p.restricted {
			return Binding{}, fmt.Errorf("%w: point %d (%s)", ErrRestrictedSuspend, p.Index, p.Name)
		}
		m, ok := ct.Members[p.Name]
		if !ok {
			return Binding{}, fmt.Errorf("%w: %q", ErrUnresolvedMember, p.Name)
		}
		if len(m.Params) != p.Arity {
			return Binding{}, fmt.Errorf("%w: %q takes %d arguments, point %d passes %d",
				ErrUnresolvedMember, p.Name, len(m.Params), p.Index, p.Arity)
		}
		if err := contribute(fmt.Sprintf("point %d (%s)", p.Index, p.Name), m.State); err != nil {
			return Binding{}, err
		}
		// call-site contribution: declared result term against the
		// member's result term
		if p.ResultType != nil && m.Result != nil {
			if err := unify(p.ResultType, m.Result, &s); err != nil {
				return Binding{}, fmt.Errorf("point %d (%s): %w", p.Index, p.Name, err)
			}
		}
		b.Points = append(b.Points, ResolvedPoint{Point: p, Member: m})
	}

	if producesValue && ct.Result == nil {
		return Binding{}, ErrNoResultHandler
	}
	if ct.Result != nil {
		if err := contribute("handleResult", ct.Result.State); err != nil {
			return Binding{}, err
		}
	}
	if ct.Exception != nil {
		if err := contribute("handleException", ct.Exception.State); err != nil {
			return Binding{}, err
		}
	}

	if state != nil {
		b.State = s.apply(state)
		if occurs(b.State) {
			// the variable never met a concrete term
			if err := bindState(UnitType, &s); err != nil {
				return Binding{}, err
			}
			b.State = s.apply(b.State)
		}
	} else {
		b.State = UnitType
	}
	for i := range b.Points {
		b.Points[i].Member = applySig(&s, b.Points[i].Member)
	}
	return b, nil
}

// applySig resolves the state variable throughout a member signature.
func applySig(s *subst, m MemberSig) MemberSig {
	out := MemberSig{Result: applyOpt(s, m.Result), State: applyOpt(s, m.State)}
	if m.Params != nil {
		out.Params = make([]Type, len(m.Params))
		for i, p := range m.Params {
			out.Params[i] = applyOpt(s, p)
		}
	}
	return out
}

func applyOpt(s *subst, t Type) Type {
	if t == nil {
		return nil
	}
	return s.apply(t)
}
