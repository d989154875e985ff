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
	"testing"

	"github.com/pathql/pathql/ast"
	"github.com/pathql/pathql/ir"
	"github.com/pathql/pathql/schema"
)

func namePath(anchor string) *ast.Path {
	return &ast.Path{Origin: "test::User", Steps: []ast.LinkStep{{Label: "name"}}, Anchor: anchor}
}

// TestTransformSharesIdentityBetweenGeneratorAndSelector exercises the
// full C8-C11 pipeline over `SELECT User.name FILTER User.name = "alice"`
// and checks that the generator's filtered set and the selector's read
// are the same underlying node (invariant 1), that the predicate ends up
// inlined as an InlineFilter only on the generator side, and that the
// selector is a plain AtomicRefSimple.
func TestTransformSharesIdentityBetweenGeneratorAndSelector(t *testing.T) {
	store, _ := newUserSchema()
	query := &ast.GraphQuery{
		Subject: &ast.Path{Origin: "test::User"},
		Generator: &ast.BinOp{
			Left:  namePath(""),
			Right: &ast.Constant{Value: "alice", Type: "string"},
			Op:    string(schema.OpEq),
		},
		Selector: []ast.Node{namePath("")},
	}

	expr, err := Transform(store, query, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inline, ok := expr.Generator.(*ir.InlineFilter)
	if !ok {
		t.Fatalf("expected the generator's predicate to be inlined, got %T", expr.Generator)
	}
	genOwner := inline.Owner
	if genOwner == nil {
		t.Fatalf("expected InlineFilter.Owner to point at the generator's EntitySet")
	}

	if len(expr.Selector) != 1 {
		t.Fatalf("expected a single selector item, got %d", len(expr.Selector))
	}
	aref, ok := expr.Selector[0].(*ir.AtomicRefSimple)
	if !ok {
		t.Fatalf("expected the selector item to be a plain AtomicRefSimple, got %T", expr.Selector[0])
	}
	if aref.Ref != genOwner {
		t.Fatalf("expected the generator's owner and the selector's ref to be the identical node")
	}
}

func TestTransformSearchableGeneratorResolvesCleanly(t *testing.T) {
	store, _ := newUserSchema()
	query := &ast.GraphQuery{
		Subject: &ast.Path{Origin: "test::User"},
		Generator: &ast.BinOp{
			Left:  &ast.Path{Origin: "test::User"},
			Right: &ast.Constant{Value: "some text", Type: "string"},
			Op:    string(schema.OpSearch),
		},
	}

	if _, err := Transform(store, query, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransformRejectsUngroupedAggregateMix(t *testing.T) {
	store, _ := newUserSchema()
	query := &ast.GraphQuery{
		Subject: &ast.Path{Origin: "test::User"},
		Selector: []ast.Node{
			&ast.BinOp{
				Left:  &ast.FunctionCall{Name: "agg::count", Args: []ast.Node{&ast.Path{Origin: "test::User"}}},
				Right: namePath(""),
				Op:    string(schema.OpGt),
			},
		},
	}

	if _, err := Transform(store, query, nil); err == nil {
		t.Fatalf("expected mixing an aggregate with an ungrouped row reference to error")
	}
}

func TestTransformAllowsAggregateMixWhenGrouped(t *testing.T) {
	store, _ := newUserSchema()
	query := &ast.GraphQuery{
		Subject: &ast.Path{Origin: "test::User"},
		Grouper: []ast.Grouping{{Expr: namePath("")}},
		Selector: []ast.Node{
			&ast.BinOp{
				Left:  &ast.FunctionCall{Name: "agg::count", Args: []ast.Node{&ast.Path{Origin: "test::User"}}},
				Right: namePath(""),
				Op:    string(schema.OpGt),
			},
		},
	}

	if _, err := Transform(store, query, nil); err != nil {
		t.Fatalf("a row reference named by GROUP BY must be legal alongside an aggregate: %v", err)
	}
}

func TestNormalizeRefsAppliesModuleAlias(t *testing.T) {
	store, _ := newUserSchema()
	tree := &ast.Path{Origin: "u::User"}
	aliases := map[string]string{"u": "test"}

	normalized, err := NormalizeRefs(tree, store, aliases)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, ok := normalized.(*ast.Path)
	if !ok || p.Origin != "test::User" {
		t.Fatalf("expected Origin to be rewritten to the qualified name, got %+v", p)
	}
}

func TestGetNodeReferencesCollectsConceptsAndLinks(t *testing.T) {
	store, _ := newUserSchema()
	tree := &ast.Path{Origin: "test::User", Steps: []ast.LinkStep{{Label: "friends"}}}

	refs, err := GetNodeReferences(tree, store, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 references (User, friends), got %d: %+v", len(refs), refs)
	}
	if refs[0].QualName() != "test::User" {
		t.Fatalf("expected the concept to be recorded before the link it's walked through, got %+v", refs)
	}
}

func TestExtractPathsRecursesIntoSubqueriesAndBuildsReverseIndex(t *testing.T) {
	store, user := newUserSchema()
	ctx := NewContext(store, nil)
	root, err := ctx.resolveOrigin(user.QualName())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, linkProto, err := store.GetAttr(user, "friends")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	target := &ir.EntitySet{Concept: user, ID: root.ID.Add(ir.Outbound, user.QualName(), "test::friends")}
	link := &ir.EntityLink{SourceSet: root, TargetSet: target, LinkProto: linkProto,
		Filter: ir.LinkFilter{Labels: []string{"test::friends"}, Direction: ir.Outbound}}
	target.RLink = link
	root.Disjunction = ir.NewDisjunction(link)

	// A subquery nested inside a function call argument is, by default,
	// an opaque boundary to prefix extraction.
	subquery := &ir.GraphExpr{Generator: target}
	outer := &ir.FunctionCall{Name: "exists", Args: []ir.Node{subquery}}

	opaque := ExtractPaths(outer, false, false, false)
	if opaque.Len() != 0 {
		t.Fatalf("expected the nested subquery to stay opaque without recurseSubqueries, found %d keys", opaque.Len())
	}

	recursed := ExtractPaths(outer, true, false, true)
	if recursed.Len() == 0 {
		t.Fatalf("expected recurseSubqueries to descend into the nested GraphExpr's generator")
	}
	if len(recursed.Get("reverse:"+reversePathKey(target))) == 0 {
		t.Fatalf("expected a reverse-path entry for the target set")
	}
}

func TestGetExprTypeResolvesAtomAndOperatorTypes(t *testing.T) {
	store, user := newUserSchema()
	set := &ir.EntitySet{Concept: user, ID: ir.NewLinearPath(user.QualName())}
	ref := &ir.AtomicRefSimple{Name: "age", Ref: set}
	ir.RegisterAtomRef(set, ref)

	typ, err := GetExprType(ref, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != "int" {
		t.Fatalf("expected the 'age' atom to resolve to type int, got %q", typ)
	}

	bin := &ir.BinOp{Left: &ir.Constant{Value: int64(1), Type: "int"}, Right: &ir.Constant{Value: 2.5, Type: "float"}, Op: schema.OpPlus}
	typ, err = GetExprType(bin, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != "float" {
		t.Fatalf("expected int+float to promote to float, got %q", typ)
	}
}
