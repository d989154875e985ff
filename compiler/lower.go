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
	"strings"

	"github.com/pathql/pathql/ast"
	"github.com/pathql/pathql/ir"
	"github.com/pathql/pathql/schema"
)

// lowerExpr lowers one surface node into its GIR equivalent, dispatching
// binary operators through ProcessBinOp (C9) as each is built bottom-up -
// children are always lowered before their parent, so process_binop
// always sees already-lowered GIR operands, never raw ast nodes.
func (ctx *Context) lowerExpr(n ast.Node) (ir.Node, error) {
	switch t := n.(type) {
	case nil:
		return nil, nil
	case *ast.Path:
		return ctx.lowerPath(t)
	case *ast.Constant:
		return &ir.Constant{Value: t.Value, Type: t.Type}, nil
	case *ast.BinOp:
		left, err := ctx.lowerExpr(t.Left)
		if err != nil {
			return nil, err
		}
		right, err := ctx.lowerExpr(t.Right)
		if err != nil {
			return nil, err
		}
		return ctx.ProcessBinOp(left, right, schema.Op(t.Op))
	case *ast.UnaryOp:
		operand, err := ctx.lowerExpr(t.Operand)
		if err != nil {
			return nil, err
		}
		return &ir.UnaryOp{Operand: operand, Op: schema.Op(t.Op), Aggregates: isAggregate(operand)}, nil
	case *ast.FunctionCall:
		args := make([]ir.Node, len(t.Args))
		for i, a := range t.Args {
			lowered, err := ctx.lowerExpr(a)
			if err != nil {
				return nil, err
			}
			args[i] = lowered
		}
		agg := strings.HasPrefix(t.Name, "agg::") || strings.HasPrefix(t.Name, "agg.")
		for _, a := range args {
			agg = agg || isAggregate(a)
		}
		return &ir.FunctionCall{Name: t.Name, Args: args, Aggregates: agg}, nil
	case *ast.TypeCast:
		operand, err := ctx.lowerExpr(t.Operand)
		if err != nil {
			return nil, err
		}
		return &ir.TypeCast{Operand: operand, Type: t.Type}, nil
	case *ast.NoneTest:
		operand, err := ctx.lowerExpr(t.Operand)
		if err != nil {
			return nil, err
		}
		return &ir.NoneTest{Operand: operand, Negated: t.Negated}, nil
	case *ast.Sequence:
		elems := make([]ir.Node, len(t.Elements))
		agg := false
		for i, e := range t.Elements {
			lowered, err := ctx.lowerExpr(e)
			if err != nil {
				return nil, err
			}
			elems[i] = lowered
			agg = agg || isAggregate(lowered)
		}
		return &ir.Sequence{Elements: elems, Aggregates: agg}, nil
	case *ast.Record:
		concept, err := ctx.resolveConcept(t.Concept)
		if err != nil {
			return nil, err
		}
		fields := make([]ir.RecordField, len(t.Fields))
		agg := false
		for i, f := range t.Fields {
			lowered, err := ctx.lowerExpr(f.Value)
			if err != nil {
				return nil, err
			}
			fields[i] = ir.RecordField{Name: f.Name, Value: lowered}
			agg = agg || isAggregate(lowered)
		}
		return &ir.Record{Concept: concept, Fields: fields, Aggregates: agg}, nil
	case *ast.Subquery:
		return ctx.Transform(t.Query)
	default:
		return nil, ErrTree.New("lowerExpr", "unrecognized surface node type")
	}
}

// lowerPath resolves a surface Path into its GIR shape: an *EntitySet
// chain for link hops, or a terminal AtomicRefSimple/MetaRef once a step
// names a scalar attribute or meta-attribute (id/__type__) rather than a
// link (C1, C4's path identity feeding directly off of schema lookups).
func (ctx *Context) lowerPath(p *ast.Path) (ir.Node, error) {
	var current *ir.EntitySet
	if p.Source != nil {
		src, err := ctx.lowerExpr(p.Source)
		if err != nil {
			return nil, err
		}
		es, ok := src.(*ir.EntitySet)
		if !ok {
			return nil, ErrTree.New("lowerPath", "path source does not resolve to an entity set")
		}
		current = es
	} else {
		var err error
		current, err = ctx.resolveOrigin(p.Origin)
		if err != nil {
			return nil, err
		}
	}

	for i, step := range p.Steps {
		if step.Label == "id" || step.Label == "__type__" {
			if i != len(p.Steps)-1 {
				return nil, ErrTree.New("lowerPath", "meta-attribute %q is not navigable further")
			}
			ref := &ir.MetaRef{Name: step.Label, Ref: current}
			ir.RegisterMetaRef(current, ref)
			return ctx.bindAnchor(p.Anchor, ref, nil)
		}

		atom, link, err := ctx.Schema.GetAttr(current.Concept, step.Label)
		if err != nil {
			return nil, ErrReference.New(step.Label)
		}
		if link == nil {
			if i != len(p.Steps)-1 {
				return nil, ErrTree.New("lowerPath", "scalar attribute is not navigable further")
			}
			ref := &ir.AtomicRefSimple{Name: atom.AtomName, Ref: current}
			ir.RegisterAtomRef(current, ref)
			return ctx.bindAnchor(p.Anchor, ref, nil)
		}
		current = ctx.lowerStep(current, step, link)
	}

	return ctx.bindAnchor(p.Anchor, current, current)
}

// bindAnchor, if anchor is non-empty, records set under anchor so later
// references by anchor resolve to the same node, then returns node. A
// non-empty anchor with a nil set (an attribute reference) is an ErrTree.
func (ctx *Context) bindAnchor(anchor string, node ir.Node, set *ir.EntitySet) (ir.Node, error) {
	if anchor == "" {
		return node, nil
	}
	if set == nil {
		return nil, ErrTree.New("bindAnchor", "AS binding on a non-navigable reference")
	}
	set.Anchor = anchor
	ctx.origins[anchor] = set
	return node, nil
}

// resolveOrigin returns the shared root *EntitySet for a bare concept or
// anchor name, creating it on first reference and reusing it afterwards
// (the mechanism behind invariant 1's identity sharing for the common
// top-level case, see Context.origins).
func (ctx *Context) resolveOrigin(name string) (*ir.EntitySet, error) {
	if es, ok := ctx.origins[name]; ok {
		return es, nil
	}
	named, err := ctx.Schema.Get(name, schema.ConceptKind, ctx.ModuleAliases)
	if err != nil {
		return nil, err
	}
	concept, ok := named.(schema.Concept)
	if !ok {
		return nil, ErrReference.New(name)
	}
	es := &ir.EntitySet{Concept: concept, ID: ir.NewLinearPath(concept.QualName())}
	ctx.origins[name] = es
	return es, nil
}

func (ctx *Context) resolveConcept(name string) (schema.Concept, error) {
	named, err := ctx.Schema.Get(name, schema.ConceptKind, ctx.ModuleAliases)
	if err != nil {
		return nil, err
	}
	concept, ok := named.(schema.Concept)
	if !ok {
		return nil, ErrReference.New(name)
	}
	return concept, nil
}

// lowerStep resolves one outbound/inbound link hop off source, reusing
// a previously built *EntityLink for the identical (source, label,
// direction, target) combination rather than constructing a parallel
// chain (§4.1's path identity extended to link-level sharing).
func (ctx *Context) lowerStep(source *ir.EntitySet, step ast.LinkStep, proto schema.LinkProto) *ir.EntitySet {
	dir := toIRDirection(step.Direction)
	key := linkCacheKey{source: source, label: step.Label, dir: dir, target: step.Target}
	if link, ok := ctx.links[key]; ok {
		return link.TargetSet
	}

	targetConcept := proto.Target()
	if dir == ir.Inbound {
		targetConcept = proto.Source()
	}
	if step.Target != "" {
		if narrower, err := ctx.resolveConcept(step.Target); err == nil {
			targetConcept = narrower
		}
	}

	newID := source.ID.Add(dir, targetConcept.QualName(), proto.QualName())
	target := &ir.EntitySet{Concept: targetConcept, ID: newID}
	link := &ir.EntityLink{
		SourceSet: source,
		TargetSet: target,
		LinkProto: proto,
		Filter:    ir.LinkFilter{Labels: []string{proto.QualName()}, Direction: dir},
	}
	target.RLink = link

	if source.Disjunction == nil {
		source.Disjunction = ir.NewDisjunction()
	}
	source.Disjunction.SetChildren(append(source.Disjunction.Children(), link))

	ctx.links[key] = link
	return target
}

// isAggregate reports whether n is already known to carry an aggregate
// value, consulting the flags set during lowering/ReorderAggregates
// (C10). It never descends; descent is ReorderAggregates's job.
func isAggregate(n ir.Node) bool {
	switch t := n.(type) {
	case *ir.FunctionCall:
		return t.Aggregates
	case *ir.BinOp:
		return t.Aggregates
	case *ir.UnaryOp:
		return t.Aggregates
	case *ir.Sequence:
		return t.Aggregates
	case *ir.Record:
		return t.Aggregates
	}
	return false
}
