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
	"github.com/pathql/pathql/ast"
	"github.com/pathql/pathql/ir"
	"github.com/pathql/pathql/schema"
)

// Transform lowers a surface GraphQuery into its normalized GraphExpr
// (§6's primary entry point), running the full C8-C11 pipeline: the
// generator is merged (C8), aggregates are reordered and validated
// (C10) and post-processed for the generator role rule (C11). Selector
// items are lowered, merged and checked for aggregates too, but never
// post-processed, since the role rule applies to the generator only
// (§3.3 invariant 4); grouper and sorter terms are only lowered.
func Transform(sch schema.Schema, query *ast.GraphQuery, moduleAliases map[string]string) (*ir.GraphExpr, error) {
	return NewContext(sch, moduleAliases).Transform(query)
}

func (ctx *Context) Transform(query *ast.GraphQuery) (*ir.GraphExpr, error) {
	if _, err := ctx.lowerExpr(query.Subject); err != nil {
		return nil, err
	}

	groupers := make([]ir.Node, len(query.Grouper))
	for i, g := range query.Grouper {
		lowered, err := ctx.lowerExpr(g.Expr)
		if err != nil {
			return nil, err
		}
		groupers[i] = lowered
		if key, ok := rowReference(lowered); ok {
			ctx.groupPrefixes[key] = true
		}
	}

	var generator ir.Node
	if query.Generator != nil {
		genCtx := ctx.withLocation(LocationGenerator)
		g, err := genCtx.lowerExpr(query.Generator)
		if err != nil {
			return nil, err
		}
		if g, err = genCtx.MergePaths(g); err != nil {
			return nil, err
		}
		if g, err = genCtx.ReorderAggregates(g); err != nil {
			return nil, err
		}
		genCtx.PostProcess(g)
		generator = g
	}

	selCtx := ctx.withLocation(LocationSelector)
	selector := make([]ir.Node, len(query.Selector))
	for i, s := range query.Selector {
		lowered, err := selCtx.lowerExpr(s)
		if err != nil {
			return nil, err
		}
		if lowered, err = selCtx.MergePaths(lowered); err != nil {
			return nil, err
		}
		if lowered, err = selCtx.ReorderAggregates(lowered); err != nil {
			return nil, err
		}
		selector[i] = lowered
	}

	sorter := make([]ir.SortTerm, len(query.Sorter))
	for i, s := range query.Sorter {
		lowered, err := selCtx.lowerExpr(s.Expr)
		if err != nil {
			return nil, err
		}
		sorter[i] = ir.SortTerm{Expr: lowered, Descending: s.Direction == ast.Desc}
	}

	return &ir.GraphExpr{Generator: generator, Selector: selector, Grouper: groupers, Sorter: sorter}, nil
}

// NormalizeRefs resolves every concept/link/atom name reachable from
// tree against sch (applying moduleAliases), rewriting ast.Path.Origin
// and ast.Record.Concept to their fully qualified names in place and
// returning tree for convenience. It is the surface-level counterpart
// to schema resolution, run before Transform so name resolution errors
// are reported against the original surface tree rather than a partly
// lowered GIR one.
func NormalizeRefs(tree ast.Node, sch schema.Schema, moduleAliases map[string]string) (ast.Node, error) {
	var err error
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		if n == nil || err != nil {
			return
		}
		switch t := n.(type) {
		case *ast.Path:
			if t.Source != nil {
				walk(t.Source)
				return
			}
			var named schema.Named
			named, err = sch.Get(t.Origin, schema.ConceptKind, moduleAliases)
			if err != nil {
				return
			}
			t.Origin = named.QualName()
		case *ast.BinOp:
			walk(t.Left)
			walk(t.Right)
		case *ast.UnaryOp:
			walk(t.Operand)
		case *ast.FunctionCall:
			for _, a := range t.Args {
				walk(a)
			}
		case *ast.TypeCast:
			walk(t.Operand)
		case *ast.NoneTest:
			walk(t.Operand)
		case *ast.Sequence:
			for _, e := range t.Elements {
				walk(e)
			}
		case *ast.Record:
			var named schema.Named
			named, err = sch.Get(t.Concept, schema.ConceptKind, moduleAliases)
			if err != nil {
				return
			}
			t.Concept = named.QualName()
			for _, f := range t.Fields {
				walk(f.Value)
			}
		case *ast.Subquery:
			walk(t.Query.Subject)
			walk(t.Query.Generator)
			for _, s := range t.Query.Selector {
				walk(s)
			}
			for _, g := range t.Query.Grouper {
				walk(g.Expr)
			}
			for _, s := range t.Query.Sorter {
				walk(s.Expr)
			}
		case *ast.GraphQuery:
			walk(t.Subject)
			walk(t.Generator)
			for _, s := range t.Selector {
				walk(s)
			}
			for _, g := range t.Grouper {
				walk(g.Expr)
			}
			for _, s := range t.Sorter {
				walk(s.Expr)
			}
		}
	}
	walk(tree)
	return tree, err
}

// GetNodeReferences returns the set of concepts and links named anywhere
// in tree, resolved against sch (§6). Link steps are only resolvable
// once their source concept is known, so this necessarily re-derives
// concept context the same way lowering does, but without building any
// GIR: it's a read-only surface-tree query used by callers (e.g. schema
// migration tooling) that need to know a query's dependency set without
// paying for a full Transform.
func GetNodeReferences(tree ast.Node, sch schema.Schema, moduleAliases map[string]string) ([]schema.Named, error) {
	seen := map[string]schema.Named{}
	var order []string
	var err error
	var walkPath func(p *ast.Path, origin schema.Concept)
	var walk func(ast.Node)

	record := func(n schema.Named) {
		if _, ok := seen[n.QualName()]; !ok {
			seen[n.QualName()] = n
			order = append(order, n.QualName())
		}
	}

	walkPath = func(p *ast.Path, origin schema.Concept) {
		concept := origin
		if p.Source != nil {
			walk(p.Source)
		} else {
			named, e := sch.Get(p.Origin, schema.ConceptKind, moduleAliases)
			if e != nil {
				err = e
				return
			}
			c, ok := named.(schema.Concept)
			if !ok {
				return
			}
			record(named)
			concept = c
		}
		for _, step := range p.Steps {
			if concept == nil || step.Label == "id" || step.Label == "__type__" {
				continue
			}
			_, link, e := sch.GetAttr(concept, step.Label)
			if e != nil {
				err = e
				return
			}
			if link == nil {
				continue
			}
			record(link)
			if step.Direction == ast.Inbound {
				concept = link.Source()
			} else {
				concept = link.Target()
			}
		}
	}

	walk = func(n ast.Node) {
		if n == nil || err != nil {
			return
		}
		switch t := n.(type) {
		case *ast.Path:
			walkPath(t, nil)
		case *ast.BinOp:
			walk(t.Left)
			walk(t.Right)
		case *ast.UnaryOp:
			walk(t.Operand)
		case *ast.FunctionCall:
			for _, a := range t.Args {
				walk(a)
			}
		case *ast.TypeCast:
			walk(t.Operand)
		case *ast.NoneTest:
			walk(t.Operand)
		case *ast.Sequence:
			for _, e := range t.Elements {
				walk(e)
			}
		case *ast.Record:
			named, e := sch.Get(t.Concept, schema.ConceptKind, moduleAliases)
			if e != nil {
				err = e
				return
			}
			record(named)
			for _, f := range t.Fields {
				walk(f.Value)
			}
		case *ast.Subquery:
			walk(t.Query.Subject)
			walk(t.Query.Generator)
			for _, s := range t.Query.Selector {
				walk(s)
			}
		case *ast.GraphQuery:
			walk(t.Subject)
			walk(t.Generator)
			for _, s := range t.Selector {
				walk(s)
			}
			for _, g := range t.Grouper {
				walk(g.Expr)
			}
			for _, s := range t.Sorter {
				walk(s.Expr)
			}
		}
	}
	walk(tree)
	if err != nil {
		return nil, err
	}
	out := make([]schema.Named, len(order))
	for i, k := range order {
		out[i] = seen[k]
	}
	return out, nil
}

// ExtractPaths runs prefix extraction (C4, ir.ExtractPrefixes) over an
// already-lowered expression and optionally resolves its atomic refs
// (C5, ir.ReplaceAtomRefs) in the same pass. When reverse is true, every
// discovered EntitySet is also indexed under the LinearPath obtained by
// walking its rlink chain backward to the origin with each step's
// direction flipped - the "reverse path extraction" feature supplemented
// from the original implementation (SPEC_FULL.md §5), useful for callers
// that need to answer "what points at this set" as readily as "what does
// this set point to". When recurseSubqueries is true, nested GraphExpr
// generators/selectors are walked into as well, crossing the boundary
// ir.ExtractPrefixes otherwise treats as opaque (§4.2).
func ExtractPaths(expr ir.Node, reverse, resolveArefs, recurseSubqueries bool) *ir.PathIndex {
	index := ir.NewPathIndex()
	ir.ExtractPrefixes(expr, index)

	if recurseSubqueries {
		ir.Inspect(expr, func(n ir.Node) bool {
			if ge, ok := n.(*ir.GraphExpr); ok {
				if ge.Generator != nil {
					ir.ExtractPrefixes(ge.Generator, index)
				}
				for _, s := range ge.Selector {
					ir.ExtractPrefixes(s, index)
				}
			}
			return true
		})
	}

	if reverse {
		for _, key := range index.Keys() {
			for _, n := range index.Get(key) {
				if es, ok := n.(*ir.EntitySet); ok {
					index.Update("reverse:"+reversePathKey(es), es)
				}
			}
		}
	}

	if resolveArefs {
		ir.ReplaceAtomRefs(expr, index)
	}
	return index
}

func reversePathKey(es *ir.EntitySet) string {
	type hop struct {
		dir    ir.Direction
		target string
		labels []string
	}
	var hops []hop
	for cur := es; cur.RLink != nil; cur = cur.RLink.SourceSet {
		link := cur.RLink
		dir := ir.Outbound
		if link.Filter.Direction == ir.Outbound {
			dir = ir.Inbound
		}
		hops = append(hops, hop{dir: dir, target: link.SourceSet.Concept.QualName(), labels: link.Filter.Labels})
	}
	lp := ir.NewLinearPath(es.Concept.QualName())
	for _, h := range hops {
		lp = lp.Add(h.dir, h.target, h.labels...)
	}
	return lp.Key()
}

// GetExprType computes the schema type name a lowered GIR expression
// evaluates to (§6), delegating operator result typing to the schema's
// TypeRules (the same collaborator process_binop's constant folding
// uses).
func GetExprType(expr ir.Node, sch schema.Schema) (string, error) {
	switch t := expr.(type) {
	case nil:
		return "", ErrTree.New("GetExprType", "nil expression")
	case *ir.Constant:
		return t.Type, nil
	case *ir.EntitySet:
		return t.Concept.QualName(), nil
	case *ir.AtomicRefSimple:
		es, ok := t.Ref.(*ir.EntitySet)
		if !ok {
			return "", ErrReference.New(t.Name)
		}
		atom, _, err := sch.GetAttr(es.Concept, t.Name)
		if err != nil {
			return "", err
		}
		return atom.Type, nil
	case *ir.AtomicRefExpr:
		return GetExprType(t.Expr, sch)
	case *ir.LinkPropRefSimple:
		for _, p := range t.Ref.LinkProto.Props() {
			if p.AtomName == t.Name {
				return p.Type, nil
			}
		}
		return "", ErrReference.New(t.Name)
	case *ir.LinkPropRefExpr:
		return GetExprType(t.Expr, sch)
	case *ir.MetaRef:
		if t.Name == "id" {
			return "uuid", nil
		}
		return "string", nil
	case *ir.BinOp:
		lt, err := GetExprType(t.Left, sch)
		if err != nil {
			return "", err
		}
		rt, err := GetExprType(t.Right, sch)
		if err != nil {
			return "", err
		}
		return sch.TypeRules().GetResult(t.Op, []string{lt, rt})
	case *ir.UnaryOp:
		ot, err := GetExprType(t.Operand, sch)
		if err != nil {
			return "", err
		}
		return sch.TypeRules().GetResult(t.Op, []string{ot})
	case *ir.TypeCast:
		return t.Type, nil
	case *ir.NoneTest:
		return "bool", nil
	case *ir.Record:
		return t.Concept.QualName(), nil
	case *ir.InlineFilter, *ir.InlinePropFilter:
		return "bool", nil
	default:
		return "", ErrTree.New("GetExprType", "no schema type for this expression shape")
	}
}
