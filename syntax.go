// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

// Value is the runtime representation of computation values.
// Expressions evaluate to Value; slots and temporaries store Value.
type Value = any

// Expr is the interface for expression nodes of a computation body.
// Expressions are pure with respect to suspension: a suspension point
// can never occur inside an expression, only as a statement. This keeps
// evaluation order instrumentable (see [SuspendInto]).
type Expr interface {
	expr() // unexported marker method
}

// LitExpr is a literal value.
type LitExpr struct{ V Value }

// RefExpr reads a local binding or parameter by name.
type RefExpr struct{ Name string }

// CallExpr applies an opaque Go function to argument values.
// Ordinary calls are transparent to state numbering: they can neither
// suspend nor observe the state machine.
type CallExpr struct {
	Fn   func(args []Value) (Value, error)
	Args []Expr
}

func (LitExpr) expr()  {}
func (RefExpr) expr()  {}
func (CallExpr) expr() {}

// Lit creates a literal expression.
func Lit(v Value) Expr { return LitExpr{V: v} }

// Ref creates a reference to the named local or parameter.
func Ref(name string) Expr { return RefExpr{Name: name} }

// Call creates an application of fn to args.
// A non-nil error returned by fn is a computation-body exception:
// it unwinds through enclosing Try scopes to the controller's
// exception handler.
func Call(fn func(args []Value) (Value, error), args ...Expr) Expr {
	return CallExpr{Fn: fn, Args: args}
}

// Stmt is the interface for statement nodes of a computation body.
type Stmt interface {
	stmt() // unexported marker method
}

// LetStmt declares a local binding and initializes it.
type LetStmt struct {
	Name string
	X    Expr
}

// SetStmt assigns to an existing local binding or parameter.
type SetStmt struct {
	Name string
	X    Expr
}

// IfStmt branches on a boolean condition.
type IfStmt struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// WhileStmt loops while the condition holds. A suspension point inside
// the body contributes exactly one resumption state, re-entered via the
// loop's back-edge on every iteration.
type WhileStmt struct {
	Cond Expr
	Body []Stmt
}

// RetStmt completes the computation. A nil X produces the unit value.
type RetStmt struct{ X Expr }

// DoStmt evaluates an expression for its effects, discarding the value.
type DoStmt struct{ X Expr }

// ThrowStmt raises a computation-body exception. If X evaluates to an
// error it is thrown as-is; any other value is wrapped.
type ThrowStmt struct{ X Expr }

// SuspendStmt is a suspension point: a call into the ambient controller
// member named Point, passing the argument values and a freshly minted
// one-shot [Continuation]. The value the continuation is later resumed
// with is bound to Dst (or discarded when Dst is empty).
//
// ResultType, when non-nil, is a call-site contribution to internal
// state unification: it is unified with the member's declared result
// term by the binding resolver.
type SuspendStmt struct {
	Dst        string
	Point      string
	Args       []Expr
	ResultType Type
}

// TryStmt is a protective region. Catch (with the error bound to
// CatchVar) handles exceptions thrown in Body; Finally, when present,
// runs exactly once on the transition that structurally exits the
// region — normal fall-through, early return, caught or escaping
// exception — and is never re-entered on resumption.
type TryStmt struct {
	Body     []Stmt
	CatchVar string
	Catch    []Stmt
	Finally  []Stmt
}

// RestrictStmt marks a scope in which suspension is forbidden.
// A suspension point inside it is rejected by the binding resolver
// with [ErrRestrictedSuspend].
type RestrictStmt struct{ Body []Stmt }

func (LetStmt) stmt()      {}
func (SetStmt) stmt()      {}
func (IfStmt) stmt()       {}
func (WhileStmt) stmt()    {}
func (RetStmt) stmt()      {}
func (DoStmt) stmt()       {}
func (ThrowStmt) stmt()    {}
func (SuspendStmt) stmt()  {}
func (TryStmt) stmt()      {}
func (RestrictStmt) stmt() {}

// Let declares name and initializes it with x.
func Let(name string, x Expr) Stmt { return LetStmt{Name: name, X: x} }

// Set assigns x to the existing binding name.
func Set(name string, x Expr) Stmt { return SetStmt{Name: name, X: x} }

// If branches on cond.
func If(cond Expr, then, els []Stmt) Stmt { return IfStmt{Cond: cond, Then: then, Else: els} }

// While loops over body while cond holds.
func While(cond Expr, body ...Stmt) Stmt { return WhileStmt{Cond: cond, Body: body} }

// Ret completes the computation with the value of x.
func Ret(x Expr) Stmt { return RetStmt{X: x} }

// RetVoid completes the computation with the unit value.
func RetVoid() Stmt { return RetStmt{} }

// Do evaluates x for its effects.
func Do(x Expr) Stmt { return DoStmt{X: x} }

// Throw raises the value of x as a computation-body exception.
func Throw(x Expr) Stmt { return ThrowStmt{X: x} }

// SuspendInto suspends at the controller member point and binds the
// resume value to dst.
func SuspendInto(dst, point string, args ...Expr) Stmt {
	return SuspendStmt{Dst: dst, Point: point, Args: args}
}

// SuspendCall suspends at the controller member point, discarding the
// resume value.
func SuspendCall(point string, args ...Expr) Stmt {
	return SuspendStmt{Point: point, Args: args}
}

// Restrict wraps body in a scope that forbids suspension.
func Restrict(body ...Stmt) Stmt { return RestrictStmt{Body: body} }

// Computation is the author-written block consumed by [Compile].
// Parameters are captured identically to locals: a parameter live
// across a suspension boundary is assigned a slot in the instance
// record.
type Computation struct {
	Params []string
	Body   []Stmt
}
