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

	"github.com/pathql/pathql/ir"
	"github.com/pathql/pathql/schema"
	"github.com/pathql/pathql/schema/memschema"
)

func newUserSchema() (*memschema.Store, *memschema.Concept) {
	store := memschema.New()
	user := memschema.NewConcept("test", "User").AddAtom("name", "string").AddAtom("age", "int")
	memschema.NewLink("test", "friends", user, user).MarkSearchable()
	store.Add(user)
	return store, user
}

func TestProcessBinOpJoinShape(t *testing.T) {
	_, user := newUserSchema()
	ctx := NewContext(memschema.New(), nil)
	a := &ir.EntitySet{Concept: user, ID: ir.NewLinearPath(user.QualName())}
	b := &ir.EntitySet{Concept: user, ID: ir.NewLinearPath(user.QualName()).Add(ir.Outbound, user.QualName(), "test::friends")}

	node, err := ctx.ProcessBinOp(a, b, schema.OpEq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bin, ok := node.(*ir.BinOp)
	if !ok {
		t.Fatalf("expected a BinOp of id meta-refs, got %T", node)
	}
	if _, ok := bin.Left.(*ir.MetaRef); !ok {
		t.Fatalf("expected left operand to be rewritten to an id MetaRef, got %T", bin.Left)
	}
	if len(a.Joins) != 1 || a.Joins[0] != b {
		t.Fatalf("expected the join to be recorded on a.Joins")
	}
	if len(b.Backrefs) != 1 || b.Backrefs[0] != a {
		t.Fatalf("expected the join to be recorded on b.Backrefs")
	}
}

func TestProcessBinOpTypeCheckIsNot(t *testing.T) {
	store, user := newUserSchema()
	admin := memschema.NewConcept("test", "Admin").AddBase(user)
	store.Add(admin)
	ctx := NewContext(store, nil)

	set := &ir.EntitySet{Concept: user, ID: ir.NewLinearPath(user.QualName())}
	name := &ir.Constant{Value: "test::Admin", Type: "string"}

	node, err := ctx.ProcessBinOp(set, name, schema.OpIsNot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	es, ok := node.(*ir.EntitySet)
	if !ok || es != set {
		t.Fatalf("expected IS NOT to narrow the original set in place, got %T", node)
	}
	for _, c := range es.ConceptFilter {
		if c.QualName() == admin.QualName() {
			t.Fatalf("expected Admin to be excluded from the concept filter")
		}
	}
}

func TestProcessBinOpConstIDFilter(t *testing.T) {
	_, user := newUserSchema()
	ctx := NewContext(memschema.New(), nil)
	set := &ir.EntitySet{Concept: user, ID: ir.NewLinearPath(user.QualName())}
	idConst := &ir.Constant{Value: "abc-123", Type: "uuid"}

	node, err := ctx.ProcessBinOp(set, idConst, schema.OpEq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	aref, ok := node.(*ir.AtomicRefExpr)
	if !ok || aref.Ref != set {
		t.Fatalf("expected an AtomicRefExpr anchored on the set, got %T", node)
	}
}

func TestProcessBinOpConstInPathRewritesToIDEquality(t *testing.T) {
	_, user := newUserSchema()
	ctx := NewContext(memschema.New(), nil)
	set := &ir.EntitySet{Concept: user, ID: ir.NewLinearPath(user.QualName())}
	idConst := &ir.Constant{Value: "abc-123", Type: "uuid"}

	node, err := ctx.ProcessBinOp(idConst, set, schema.OpIn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	aref, ok := node.(*ir.AtomicRefExpr)
	if !ok || aref.Ref != set {
		t.Fatalf("expected `const IN path` to rewrite to an AtomicRefExpr anchored on the set, got %T", node)
	}
	bin, ok := aref.Expr.(*ir.BinOp)
	if !ok {
		t.Fatalf("expected the AtomicRefExpr's Expr to be a BinOp, got %T", aref.Expr)
	}
	if bin.Op != schema.OpEq {
		t.Fatalf("expected `const IN path` to become `path = const`, got op %s", bin.Op)
	}
	if bin.Right != idConst {
		t.Fatalf("expected the constant to remain the right operand of the rewritten equality")
	}
	if _, ok := bin.Left.(*ir.MetaRef); !ok {
		t.Fatalf("expected the left operand to be the set's id MetaRef, got %T", bin.Left)
	}
}

func TestProcessBinOpConstNotInPathRewritesToIDInequality(t *testing.T) {
	_, user := newUserSchema()
	ctx := NewContext(memschema.New(), nil)
	set := &ir.EntitySet{Concept: user, ID: ir.NewLinearPath(user.QualName())}
	idConst := &ir.Constant{Value: "abc-123", Type: "uuid"}

	node, err := ctx.ProcessBinOp(idConst, set, schema.OpNotIn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	aref, ok := node.(*ir.AtomicRefExpr)
	if !ok || aref.Ref != set {
		t.Fatalf("expected `const NOT IN path` to rewrite to an AtomicRefExpr anchored on the set, got %T", node)
	}
	bin, ok := aref.Expr.(*ir.BinOp)
	if !ok || bin.Op != schema.OpNeq {
		t.Fatalf("expected `const NOT IN path` to become `path != const`, got %#v", aref.Expr)
	}
}

func TestProcessBinOpSearchRequiresSearchableLink(t *testing.T) {
	store := memschema.New()
	user := memschema.NewConcept("test", "User")
	store.Add(user) // no searchable links declared
	ctx := NewContext(store, nil)
	set := &ir.EntitySet{Concept: user, ID: ir.NewLinearPath(user.QualName())}
	query := &ir.Constant{Value: "hello", Type: "string"}

	_, err := ctx.ProcessBinOp(set, query, schema.OpSearch)
	if err == nil {
		t.Fatalf("expected ErrSearchConfiguration when no searchable links exist")
	}
}

func TestProcessBinOpAtomicVsConstant(t *testing.T) {
	_, user := newUserSchema()
	ctx := NewContext(memschema.New(), nil)
	set := &ir.EntitySet{Concept: user, ID: ir.NewLinearPath(user.QualName())}
	ref := &ir.AtomicRefSimple{Name: "name", Ref: set}
	ir.RegisterAtomRef(set, ref)
	constant := &ir.Constant{Value: "alice", Type: "string"}

	node, err := ctx.ProcessBinOp(ref, constant, schema.OpEq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	aref, ok := node.(*ir.AtomicRefExpr)
	if !ok || aref.Ref != set {
		t.Fatalf("expected atomic-vs-constant to produce an AtomicRefExpr on the owning set, got %T", node)
	}
}

func TestProcessBinOpFlipsDirectionalOperatorOnRetry(t *testing.T) {
	_, user := newUserSchema()
	ctx := NewContext(memschema.New(), nil)
	set := &ir.EntitySet{Concept: user, ID: ir.NewLinearPath(user.QualName())}
	ref := &ir.AtomicRefSimple{Name: "age", Ref: set}
	ir.RegisterAtomRef(set, ref)
	constant := &ir.Constant{Value: int64(30), Type: "int"}

	// constant GT ref has no direct shape, but flips to ref LT constant.
	node, err := ctx.ProcessBinOp(constant, ref, schema.OpGt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	aref, ok := node.(*ir.AtomicRefExpr)
	if !ok || aref.Ref != set {
		t.Fatalf("expected the flipped retry to still produce an AtomicRefExpr, got %T", node)
	}
	bin, ok := aref.Expr.(*ir.BinOp)
	if !ok || bin.Op != schema.OpLt {
		t.Fatalf("expected the flipped operator to be recorded as LT, got %+v", aref.Expr)
	}
}

func TestProcessBinOpConstConstFolding(t *testing.T) {
	ctx := NewContext(memschema.New(), nil)
	left := &ir.Constant{Value: int64(2), Type: "int"}
	right := &ir.Constant{Value: int64(3), Type: "int"}

	node, err := ctx.ProcessBinOp(left, right, schema.OpPlus)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, ok := node.(*ir.Constant)
	if !ok || c.Value != int64(5) {
		t.Fatalf("expected constant folding to produce 5, got %#v", node)
	}
}

func TestProcessBinOpAggregatePassthrough(t *testing.T) {
	ctx := NewContext(memschema.New(), nil)
	agg := &ir.FunctionCall{Name: "agg::count", Aggregates: true}
	constant := &ir.Constant{Value: int64(1), Type: "int"}

	node, err := ctx.ProcessBinOp(agg, constant, schema.OpGt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bin, ok := node.(*ir.BinOp)
	if !ok || !bin.Aggregates {
		t.Fatalf("expected an aggregated BinOp passthrough, got %#v", node)
	}
}
