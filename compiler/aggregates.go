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
	"github.com/pathql/pathql/ir"
	"github.com/pathql/pathql/schema"
)

// ReorderAggregates is C10: a post-order pass that propagates the
// Aggregates flag up through BinOp/UnaryOp/Sequence/Record/FunctionCall
// nodes built during lowering, puts AND's aggregate operand in canonical
// (left) position, and rejects mixing an aggregate expression with a
// per-row reference that isn't named by the enclosing GROUP BY (§4.8).
// A non-aggregate operand that carries no row reference at all (a bare
// constant, or a function of constants) is always a legal partner for
// an aggregate - only a per-row path reference needs to be justified by
// group membership.
func (ctx *Context) ReorderAggregates(n ir.Node) (ir.Node, error) {
	switch t := n.(type) {
	case nil:
		return nil, nil

	case *ir.BinOp:
		left, err := ctx.ReorderAggregates(t.Left)
		if err != nil {
			return nil, err
		}
		right, err := ctx.ReorderAggregates(t.Right)
		if err != nil {
			return nil, err
		}
		la, ra := isAggregate(left), isAggregate(right)
		if la != ra {
			mixed := right
			if ra {
				mixed = left
			}
			if ref, ok := rowReference(mixed); ok && !ctx.isGroupPrefix(ref) {
				return nil, ErrTree.New("aggregate mix", "non-aggregate row reference outside GROUP BY combined with an aggregate expression")
			}
		}
		if t.Op == schema.OpAnd && !la && ra {
			left, right = right, left
		}
		return &ir.BinOp{Left: left, Right: right, Op: t.Op, Aggregates: la || ra}, nil

	case *ir.UnaryOp:
		operand, err := ctx.ReorderAggregates(t.Operand)
		if err != nil {
			return nil, err
		}
		return &ir.UnaryOp{Operand: operand, Op: t.Op, Aggregates: isAggregate(operand)}, nil

	case *ir.NoneTest:
		operand, err := ctx.ReorderAggregates(t.Operand)
		if err != nil {
			return nil, err
		}
		return &ir.NoneTest{Operand: operand, Negated: t.Negated}, nil

	case *ir.TypeCast:
		operand, err := ctx.ReorderAggregates(t.Operand)
		if err != nil {
			return nil, err
		}
		return &ir.TypeCast{Operand: operand, Type: t.Type}, nil

	case *ir.Sequence:
		elems := make([]ir.Node, len(t.Elements))
		agg := false
		for i, e := range t.Elements {
			r, err := ctx.ReorderAggregates(e)
			if err != nil {
				return nil, err
			}
			elems[i] = r
			agg = agg || isAggregate(r)
		}
		return &ir.Sequence{Elements: elems, Aggregates: agg}, nil

	case *ir.Record:
		fields := make([]ir.RecordField, len(t.Fields))
		agg := false
		for i, f := range t.Fields {
			r, err := ctx.ReorderAggregates(f.Value)
			if err != nil {
				return nil, err
			}
			fields[i] = ir.RecordField{Name: f.Name, Value: r}
			agg = agg || isAggregate(r)
		}
		return &ir.Record{Concept: t.Concept, Fields: fields, Aggregates: agg}, nil

	case *ir.FunctionCall:
		args := make([]ir.Node, len(t.Args))
		agg := t.Aggregates
		for i, a := range t.Args {
			r, err := ctx.ReorderAggregates(a)
			if err != nil {
				return nil, err
			}
			args[i] = r
			agg = agg || isAggregate(r)
		}
		return &ir.FunctionCall{Name: t.Name, Args: args, Aggregates: agg}, nil

	case *ir.EntitySet:
		var err error
		if t.Filter != nil {
			if t.Filter, err = ctx.ReorderAggregates(t.Filter); err != nil {
				return nil, err
			}
		}
		return t, nil

	case *ir.AtomicRefExpr:
		inner, err := ctx.ReorderAggregates(t.Expr)
		if err != nil {
			return nil, err
		}
		return &ir.AtomicRefExpr{Expr: inner, Ref: t.Ref}, nil

	default:
		return n, nil
	}
}

// rowReference reports whether n is (or directly wraps) a per-row path
// reference, and if so, the owning entity set's index key.
func rowReference(n ir.Node) (string, bool) {
	switch t := n.(type) {
	case *ir.AtomicRefSimple:
		if es, ok := t.Ref.(*ir.EntitySet); ok {
			return ir.KeyFor(es.ID, es.Anchor), true
		}
	case *ir.AtomicRefExpr:
		if t.Ref != nil {
			return ir.KeyFor(t.Ref.ID, t.Ref.Anchor), true
		}
	case *ir.MetaRef:
		if es, ok := t.Ref.(*ir.EntitySet); ok {
			return ir.KeyFor(es.ID, es.Anchor), true
		}
	case *ir.EntitySet:
		return ir.KeyFor(t.ID, t.Anchor), true
	}
	return "", false
}

func (ctx *Context) isGroupPrefix(key string) bool {
	return ctx.groupPrefixes[key]
}
