// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import "fmt"

// Point describes one classified suspension point.
// Index is the syntactic ordinal 0..n-1; the resumption state after
// point i is tagged i+1. A point inside a loop keeps a single index
// across all iterations: the loop's back-edge re-enters the same
// resumption label.
type Point struct {
	Index      int
	Name       string
	Arity      int
	ResultType Type

	// TryDepth is the number of enclosing Try scopes; the lowering
	// wraps the point's dispatch branch in the matching protective
	// regions.
	TryDepth int

	restricted bool
}

// classifier walks a computation body in syntactic order.
type classifier struct {
	points     []Point
	tryDepth   int
	restricted int
	inFinally  int
}

// classify scans the body and numbers its suspension points.
// A point inside a Finally block is a structural error: finally runs
// during unwinding, and the pending unwind action cannot be
// reconstructed when a foreign context resumes mid-unwind.
func classify(c *Computation) ([]Point, error) {
	cl := &classifier{}
	if err := cl.block(c.Body); err != nil {
		return nil, err
	}
	return cl.points, nil
}

func (cl *classifier) block(body []Stmt) error {
	for _, st := range body {
		if err := cl.stmt(st); err != nil {
			return err
		}
	}
	return nil
}

func (cl *classifier) stmt(st Stmt) error {
	switch s := st.(type) {
	case SuspendStmt:
		if cl.inFinally > 0 {
			return fmt.Errorf("%w: point %q inside finally", ErrStructural, s.Point)
		}
		cl.points = append(cl.points, Point{
			Index:      len(cl.points),
			Name:       s.Point,
			Arity:      len(s.Args),
			ResultType: s.ResultType,
			TryDepth:   cl.tryDepth,
			restricted: cl.restricted > 0,
		})
	case IfStmt:
		if err := cl.block(s.Then); err != nil {
			return err
		}
		return cl.block(s.Else)
	case WhileStmt:
		return cl.block(s.Body)
	case TryStmt:
		cl.tryDepth++
		err := cl.block(s.Body)
		if err == nil {
			err = cl.block(s.Catch)
		}
		cl.tryDepth--
		if err != nil {
			return err
		}
		cl.inFinally++
		err = cl.block(s.Finally)
		cl.inFinally--
		return err
	case RestrictStmt:
		cl.restricted++
		err := cl.block(s.Body)
		cl.restricted--
		return err
	}
	return nil
}
