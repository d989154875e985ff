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

// MergePaths is C8: a post-order rewrite that (a) dispatches weak
// boolean operators (OR, IN, NOT IN - schema.Op.Weak()) and AND over
// path-shaped operands to the path combination algebra (AddPaths /
// IntersectPaths, ir/combine.go), flattening and unifying as it goes,
// and (b) in generator context, inlines an AtomicRefExpr/LinkPropRefExpr
// onto its owner's Filter/PropFilter slot as an InlineFilter /
// InlinePropFilter, so the owning entity set carries its own predicate
// rather than the predicate living as a free-floating ref elsewhere in
// the tree (§4.6). Outside the generator (selector, grouper, sorter)
// atomic refs are left as AtomicRefExpr: a selector item is read out,
// not filtered.
func (ctx *Context) MergePaths(expr ir.Node) (ir.Node, error) {
	switch t := expr.(type) {
	case nil:
		return nil, nil

	case *ir.BinOp:
		left, err := ctx.MergePaths(t.Left)
		if err != nil {
			return nil, err
		}
		right, err := ctx.MergePaths(t.Right)
		if err != nil {
			return nil, err
		}
		if isPathShaped(left) && isPathShaped(right) {
			if t.Op.Weak() {
				return ir.AddPaths(left, right, true), nil
			}
			if t.Op == schema.OpAnd {
				return ir.IntersectPaths(left, right, true), nil
			}
		}
		return &ir.BinOp{Left: left, Right: right, Op: t.Op, Aggregates: t.Aggregates}, nil

	case *ir.AtomicRefExpr:
		innerExpr, err := ctx.MergePaths(t.Expr)
		if err != nil {
			return nil, err
		}
		if !ctx.InGenerator() {
			return &ir.AtomicRefExpr{Expr: innerExpr, Ref: t.Ref}, nil
		}
		t.Ref.Filter = andFilters(t.Ref.Filter, innerExpr)
		return &ir.InlineFilter{Owner: t.Ref}, nil

	case *ir.LinkPropRefExpr:
		innerExpr, err := ctx.MergePaths(t.Expr)
		if err != nil {
			return nil, err
		}
		if !ctx.InGenerator() {
			return &ir.LinkPropRefExpr{Expr: innerExpr, Ref: t.Ref}, nil
		}
		t.Ref.PropFilter = andFilters(t.Ref.PropFilter, innerExpr)
		return &ir.InlinePropFilter{Owner: t.Ref}, nil

	case *ir.EntitySet:
		var err error
		if t.Filter != nil {
			if t.Filter, err = ctx.MergePaths(t.Filter); err != nil {
				return nil, err
			}
		}
		if t.Conjunction != nil {
			if err := ctx.mergeCombinationInPlace(t.Conjunction); err != nil {
				return nil, err
			}
		}
		if t.Disjunction != nil {
			if err := ctx.mergeCombinationInPlace(t.Disjunction); err != nil {
				return nil, err
			}
		}
		return t, nil

	case *ir.EntityLink:
		var err error
		if t.PropFilter != nil {
			if t.PropFilter, err = ctx.MergePaths(t.PropFilter); err != nil {
				return nil, err
			}
		}
		return t, nil

	case *ir.Conjunction:
		if err := ctx.mergeCombinationInPlace(t); err != nil {
			return nil, err
		}
		return t, nil

	case *ir.Disjunction:
		if err := ctx.mergeCombinationInPlace(t); err != nil {
			return nil, err
		}
		return t, nil

	case *ir.UnaryOp:
		operand, err := ctx.MergePaths(t.Operand)
		if err != nil {
			return nil, err
		}
		return &ir.UnaryOp{Operand: operand, Op: t.Op, Aggregates: t.Aggregates}, nil

	case *ir.NoneTest:
		operand, err := ctx.MergePaths(t.Operand)
		if err != nil {
			return nil, err
		}
		return &ir.NoneTest{Operand: operand, Negated: t.Negated}, nil

	case *ir.TypeCast:
		operand, err := ctx.MergePaths(t.Operand)
		if err != nil {
			return nil, err
		}
		return &ir.TypeCast{Operand: operand, Type: t.Type}, nil

	case *ir.Sequence:
		elems := make([]ir.Node, len(t.Elements))
		for i, e := range t.Elements {
			merged, err := ctx.MergePaths(e)
			if err != nil {
				return nil, err
			}
			elems[i] = merged
		}
		return &ir.Sequence{Elements: elems, Aggregates: t.Aggregates}, nil

	case *ir.Record:
		fields := make([]ir.RecordField, len(t.Fields))
		for i, f := range t.Fields {
			merged, err := ctx.MergePaths(f.Value)
			if err != nil {
				return nil, err
			}
			fields[i] = ir.RecordField{Name: f.Name, Value: merged}
		}
		return &ir.Record{Concept: t.Concept, Fields: fields, Aggregates: t.Aggregates}, nil

	case *ir.FunctionCall:
		args := make([]ir.Node, len(t.Args))
		for i, a := range t.Args {
			merged, err := ctx.MergePaths(a)
			if err != nil {
				return nil, err
			}
			args[i] = merged
		}
		return &ir.FunctionCall{Name: t.Name, Args: args, Aggregates: t.Aggregates}, nil

	default:
		// Constant, MetaRef, AtomicRefSimple, LinkPropRefSimple,
		// InlineFilter, InlinePropFilter, GraphExpr: terminal or already
		// in final form as far as merge_paths is concerned.
		return expr, nil
	}
}

func (ctx *Context) mergeCombinationInPlace(pc ir.PathCombination) error {
	children := pc.Children()
	for i, c := range children {
		merged, err := ctx.MergePaths(c)
		if err != nil {
			return err
		}
		children[i] = merged
	}
	pc.SetChildren(children)
	return nil
}

func andFilters(existing, addition ir.Node) ir.Node {
	if existing == nil {
		return addition
	}
	return &ir.BinOp{Left: existing, Right: addition, Op: schema.OpAnd}
}

// isPathShaped reports whether n is a node the combination algebra
// (AddPaths/IntersectPaths) knows how to merge: an entity set, a link,
// or an existing combination of them.
func isPathShaped(n ir.Node) bool {
	switch n.(type) {
	case *ir.EntitySet, *ir.EntityLink, *ir.Conjunction, *ir.Disjunction:
		return true
	}
	return false
}
