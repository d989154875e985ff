// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compiler

import (
	pkgerrors "github.com/pkg/errors"

	"github.com/pathql/pathql/ir"
	"github.com/pathql/pathql/schema"
)

// errNoShapeMatched is the internal sentinel process_binop's two-phase
// dispatch uses: attemptBinOpShapes returns it (wrapped via pkg/errors,
// so the original cause survives in case a later shape legitimately
// fails for a different reason) when none of the nine shapes recognize
// the operands in their given order. For the comparison operators
// flipOp mirrors (=, !=, <, >, <=, >=), ProcessBinOp then retries once
// with the operands swapped and the operator mirrored; for any other
// operator, or if the retry also matches nothing, it falls back to a
// bare BinOp. This mirrors design notes §9's instruction to model the
// original's try/except retry as an explicit two-phase attempt, not as
// a Go panic/recover.
var errNoShapeMatched = pkgerrors.New("process_binop: no shape matched")

// ProcessBinOp is C9: it recognizes nine shapes of (left, op, right)
// over already-lowered GIR operands and rewrites matching ones into
// their normalized form (§4.7). Shapes that don't apply fall through to
// the next; if nothing matches forward and flipOp can mirror the
// operator (a comparison), the same attempts are retried with the
// operands swapped and the operator mirrored. Other operators are not
// retried. When nothing matches, the result is a bare, unrewritten BinOp.
func (ctx *Context) ProcessBinOp(left, right ir.Node, op schema.Op) (ir.Node, error) {
	if isAggregate(left) || isAggregate(right) {
		// Shape 1: either operand is already aggregated. process_binop
		// never folds across an aggregate boundary; ReorderAggregates
		// (C10) is what reconciles aggregate-ness afterwards.
		return &ir.BinOp{Left: left, Right: right, Op: op, Aggregates: true}, nil
	}

	node, err := ctx.attemptBinOpShapes(left, right, op)
	if err == nil {
		return node, nil
	}
	if pkgerrors.Cause(err) != errNoShapeMatched {
		return nil, err
	}

	if flipped, ok := flipOp(op); ok {
		node, err = ctx.attemptBinOpShapes(right, left, flipped)
		if err == nil {
			return node, nil
		}
		if pkgerrors.Cause(err) != errNoShapeMatched {
			return nil, err
		}
	}

	return &ir.BinOp{Left: left, Right: right, Op: op}, nil
}

// attemptBinOpShapes tries shapes 2-9 in order against (left, op,
// right), returning errNoShapeMatched (wrapped) if none apply.
func (ctx *Context) attemptBinOpShapes(left, right ir.Node, op schema.Op) (ir.Node, error) {
	if node, ok, err := ctx.tryJoin(left, right, op); ok || err != nil {
		return node, err
	}
	if node, ok, err := ctx.tryTypeCheck(left, right, op); ok || err != nil {
		return node, err
	}
	if node, ok, err := ctx.tryConstIDFilter(left, right, op); ok || err != nil {
		return node, err
	}
	if node, ok, err := ctx.trySearch(left, right, op); ok || err != nil {
		return node, err
	}
	if node, ok, err := ctx.tryAtomicVsConstant(left, right, op); ok || err != nil {
		return node, err
	}
	if node, ok, err := ctx.tryAtomicVsAtomic(left, right, op); ok || err != nil {
		return node, err
	}
	if node, ok, err := ctx.tryAssociateRight(left, right, op); ok || err != nil {
		return node, err
	}
	if node, ok, err := ctx.tryConstConst(left, right, op); ok || err != nil {
		return node, err
	}
	return nil, pkgerrors.WithStack(errNoShapeMatched)
}

func flipOp(op schema.Op) (schema.Op, bool) {
	switch op {
	case schema.OpGt:
		return schema.OpLt, true
	case schema.OpLt:
		return schema.OpGt, true
	case schema.OpGte:
		return schema.OpLte, true
	case schema.OpLte:
		return schema.OpGte, true
	case schema.OpEq, schema.OpNeq:
		return op, true
	}
	return op, false
}

// tryJoin is shape 2: `path = path` / `path != path` becomes an
// equality of the two sets' id meta-refs, with Joins/Backrefs recorded
// on both sides (§4.7.2).
func (ctx *Context) tryJoin(left, right ir.Node, op schema.Op) (ir.Node, bool, error) {
	if op != schema.OpEq && op != schema.OpNeq {
		return nil, false, nil
	}
	l, lok := left.(*ir.EntitySet)
	r, rok := right.(*ir.EntitySet)
	if !lok || !rok {
		return nil, false, nil
	}
	l.Joins = append(l.Joins, r)
	r.Backrefs = append(r.Backrefs, l)
	lref := &ir.MetaRef{Name: "id", Ref: l}
	rref := &ir.MetaRef{Name: "id", Ref: r}
	ir.RegisterMetaRef(l, lref)
	ir.RegisterMetaRef(r, rref)
	return &ir.BinOp{Left: lref, Right: rref, Op: op}, true, nil
}

// tryTypeCheck is shape 3: `path IS concept` / `path IS NOT concept`
// (§4.7.3). IS keeps the path only when it's a subclass of the named
// concept (folding to a constant false otherwise); IS NOT narrows the
// set's ConceptFilter to exclude the named concept's subtree, unless
// the set's own concept is exactly the excluded one.
func (ctx *Context) tryTypeCheck(left, right ir.Node, op schema.Op) (ir.Node, bool, error) {
	if op != schema.OpIs && op != schema.OpIsNot {
		return nil, false, nil
	}
	l, ok := left.(*ir.EntitySet)
	if !ok {
		return nil, false, nil
	}
	name, ok := constString(right)
	if !ok {
		return nil, false, nil
	}
	target, err := ctx.resolveConcept(name)
	if err != nil {
		return nil, false, err
	}
	if op == schema.OpIs {
		if ctx.Schema.IsSubclass(l.Concept, target) {
			return l, true, nil
		}
		return &ir.Constant{Value: false, Type: "bool"}, true, nil
	}
	if l.Concept.QualName() != target.QualName() {
		l.ConceptFilter = ctx.Schema.FilterChildren(l.Concept, func(c schema.Concept) bool {
			return c.QualName() != target.QualName()
		})
	}
	return l, true, nil
}

// tryConstIDFilter is shape 4: `path = const` / `path IN (consts)`
// where right is a bare constant (not already handled as a join or type
// check), lowered to an id meta-ref comparison (§4.7.4). `const IN path`
// is accepted too, read as set membership over path's id.
func (ctx *Context) tryConstIDFilter(left, right ir.Node, op schema.Op) (ir.Node, bool, error) {
	if op != schema.OpEq && op != schema.OpNeq && op != schema.OpIn && op != schema.OpNotIn {
		return nil, false, nil
	}
	if l, lok := left.(*ir.EntitySet); lok {
		if _, rIsConst := right.(*ir.Constant); rIsConst {
			ref := &ir.MetaRef{Name: "id", Ref: l}
			ir.RegisterMetaRef(l, ref)
			return &ir.AtomicRefExpr{Expr: &ir.BinOp{Left: ref, Right: right, Op: op}, Ref: l}, true, nil
		}
	}
	// `const IN path` / `const NOT IN path`: IN/NOT IN aren't directional
	// operators flipOp rescues, so the reversed operand order is handled
	// directly here rather than via ProcessBinOp's retry phase. Membership
	// of a single id in a path's result set is equality (or its negation).
	if op != schema.OpIn && op != schema.OpNotIn {
		return nil, false, nil
	}
	r, rok := right.(*ir.EntitySet)
	if !rok {
		return nil, false, nil
	}
	if _, lIsConst := left.(*ir.Constant); !lIsConst {
		return nil, false, nil
	}
	eqOp := schema.OpEq
	if op == schema.OpNotIn {
		eqOp = schema.OpNeq
	}
	ref := &ir.MetaRef{Name: "id", Ref: r}
	ir.RegisterMetaRef(r, ref)
	return &ir.AtomicRefExpr{Expr: &ir.BinOp{Left: ref, Right: left, Op: eqOp}, Ref: r}, true, nil
}

// trySearch is shape 5: `path SEARCH query`, requiring at least one
// searchable link on path's concept (§4.7.5), else SearchConfigurationError.
func (ctx *Context) trySearch(left, right ir.Node, op schema.Op) (ir.Node, bool, error) {
	if op != schema.OpSearch {
		return nil, false, nil
	}
	l, ok := left.(*ir.EntitySet)
	if !ok {
		return nil, false, nil
	}
	if len(ctx.Schema.GetSearchableLinks(l.Concept)) == 0 {
		return nil, true, ErrSearchConfiguration.New(l.Concept.QualName())
	}
	return &ir.AtomicRefExpr{Expr: &ir.BinOp{Left: l, Right: right, Op: op}, Ref: l}, true, nil
}

// tryAtomicVsConstant is shape 6: an atomic reference (simple or
// already-expression) compared against a constant is distributed onto
// the referenced set as an AtomicRefExpr, unless op is a boolean
// connective (AND/OR/NOT), which must not be inlined past the
// expression's original boundary (§4.7.6). When left is itself a
// Disjunction of simple atomic refs (still ambiguous, §4.3), the
// comparison distributes over every member.
func (ctx *Context) tryAtomicVsConstant(left, right ir.Node, op schema.Op) (ir.Node, bool, error) {
	if op == schema.OpAnd || op == schema.OpOr || op == schema.OpNot {
		return nil, false, nil
	}
	if _, ok := right.(*ir.Constant); !ok {
		return nil, false, nil
	}
	switch l := left.(type) {
	case *ir.AtomicRefSimple:
		return ctx.distributeOverRef(l, right, op)
	case *ir.AtomicRefExpr:
		return &ir.AtomicRefExpr{Expr: &ir.BinOp{Left: l, Right: right, Op: op}, Ref: l.Ref}, true, nil
	case *ir.MetaRef:
		if es, ok := l.Ref.(*ir.EntitySet); ok {
			return &ir.AtomicRefExpr{Expr: &ir.BinOp{Left: l, Right: right, Op: op}, Ref: es}, true, nil
		}
	case *ir.Disjunction:
		return ctx.distributeOverDisjunction(l, right, op)
	}
	return nil, false, nil
}

func (ctx *Context) distributeOverRef(ref *ir.AtomicRefSimple, right ir.Node, op schema.Op) (ir.Node, bool, error) {
	owner, ok := ref.Ref.(*ir.EntitySet)
	if !ok {
		// ref.Ref is itself a Disjunction of candidate owners (§4.3):
		// distribute the comparison across each candidate.
		d, ok := ref.Ref.(*ir.Disjunction)
		if !ok {
			return nil, false, nil
		}
		var members []ir.Node
		for _, c := range d.Children() {
			es, ok := c.(*ir.EntitySet)
			if !ok {
				continue
			}
			sub := &ir.AtomicRefSimple{Name: ref.Name, Ref: es}
			ir.RegisterAtomRef(es, sub)
			members = append(members, &ir.AtomicRefExpr{Expr: &ir.BinOp{Left: sub, Right: right, Op: op}, Ref: es})
		}
		return ir.NewDisjunction(members...), true, nil
	}
	return &ir.AtomicRefExpr{Expr: &ir.BinOp{Left: ref, Right: right, Op: op}, Ref: owner}, true, nil
}

func (ctx *Context) distributeOverDisjunction(d *ir.Disjunction, right ir.Node, op schema.Op) (ir.Node, bool, error) {
	var members []ir.Node
	for _, c := range d.Children() {
		node, ok, err := ctx.tryAtomicVsConstant(c, right, op)
		if err != nil {
			return nil, true, err
		}
		if ok {
			members = append(members, node)
		} else {
			members = append(members, &ir.BinOp{Left: c, Right: right, Op: op})
		}
	}
	return ir.NewDisjunction(members...), true, nil
}

// tryAtomicVsAtomic is shape 7: two atomic references sharing the same
// owning entity set fold into a single AtomicRefExpr over that owner
// (§4.7.7); the right side's ref is superseded by the shared owner.
func (ctx *Context) tryAtomicVsAtomic(left, right ir.Node, op schema.Op) (ir.Node, bool, error) {
	lowner, lok := refOwner(left)
	rowner, rok := refOwner(right)
	if !lok || !rok || lowner != rowner {
		return nil, false, nil
	}
	return &ir.AtomicRefExpr{Expr: &ir.BinOp{Left: left, Right: right, Op: op}, Ref: lowner}, true, nil
}

func refOwner(n ir.Node) (*ir.EntitySet, bool) {
	switch t := n.(type) {
	case *ir.AtomicRefSimple:
		es, ok := t.Ref.(*ir.EntitySet)
		return es, ok
	case *ir.AtomicRefExpr:
		return t.Ref, t.Ref != nil
	case *ir.MetaRef:
		es, ok := t.Ref.(*ir.EntitySet)
		return es, ok
	}
	return nil, false
}

// tryAssociateRight is shape 8: `x op (y op z)` where op is the same
// operator on both levels and one of y/z shares left's referenced
// owner, so the matching side folds into left and the other remains a
// bare BinOp against the folded result (§4.7.8's "associativity on the
// right").
func (ctx *Context) tryAssociateRight(left, right ir.Node, op schema.Op) (ir.Node, bool, error) {
	rb, ok := right.(*ir.BinOp)
	if !ok || rb.Op != op {
		return nil, false, nil
	}
	lowner, lok := refOwner(left)
	if !lok {
		return nil, false, nil
	}
	if owner, ok := refOwner(rb.Left); ok && owner == lowner {
		folded := &ir.AtomicRefExpr{Expr: &ir.BinOp{Left: left, Right: rb.Left, Op: op}, Ref: lowner}
		return &ir.BinOp{Left: folded, Right: rb.Right, Op: op}, true, nil
	}
	if owner, ok := refOwner(rb.Right); ok && owner == lowner {
		folded := &ir.AtomicRefExpr{Expr: &ir.BinOp{Left: left, Right: rb.Right, Op: op}, Ref: lowner}
		return &ir.BinOp{Left: rb.Left, Right: folded, Op: op}, true, nil
	}
	return nil, false, nil
}

// tryConstConst is shape 9: constant/constant folding, boolean
// short-circuit for AND/OR and arithmetic via the schema's TypeRules
// (§4.7.9).
func (ctx *Context) tryConstConst(left, right ir.Node, op schema.Op) (ir.Node, bool, error) {
	lc, lok := left.(*ir.Constant)
	rc, rok := right.(*ir.Constant)
	if !lok || !rok {
		return nil, false, nil
	}
	if op == schema.OpAnd || op == schema.OpOr {
		if lb, ok := lc.Value.(bool); ok {
			if (op == schema.OpAnd && !lb) || (op == schema.OpOr && lb) {
				return &ir.Constant{Value: lb, Type: "bool"}, true, nil
			}
			return rc, true, nil
		}
	}
	value, err := ctx.Schema.TypeRules().FoldConst(op, lc.Value, rc.Value, lc.Type, rc.Type)
	if err != nil {
		return nil, true, err
	}
	resultType, err := ctx.Schema.TypeRules().GetResult(op, []string{lc.Type, rc.Type})
	if err != nil {
		return nil, true, err
	}
	return &ir.Constant{Value: value, Type: resultType}, true, nil
}

func constString(n ir.Node) (string, bool) {
	c, ok := n.(*ir.Constant)
	if !ok {
		return "", false
	}
	s, ok := c.Value.(string)
	return s, ok
}
