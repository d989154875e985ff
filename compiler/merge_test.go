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

func TestMergePathsInlinesAtomicRefInGenerator(t *testing.T) {
	_, user := newUserSchema()
	ctx := NewContext(memschema.New(), nil).withLocation(LocationGenerator)
	set := &ir.EntitySet{Concept: user, ID: ir.NewLinearPath(user.QualName())}
	ref := &ir.AtomicRefSimple{Name: "name", Ref: set}
	ir.RegisterAtomRef(set, ref)
	aref := &ir.AtomicRefExpr{Expr: &ir.BinOp{Left: ref, Right: &ir.Constant{Value: "alice", Type: "string"}, Op: schema.OpEq}, Ref: set}

	merged, err := ctx.MergePaths(aref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inline, ok := merged.(*ir.InlineFilter)
	if !ok || inline.Owner != set {
		t.Fatalf("expected an InlineFilter owned by the set, got %#v", merged)
	}
	if set.Filter == nil {
		t.Fatalf("expected the owner's Filter slot to be populated")
	}
}

func TestMergePathsLeavesAtomicRefOutsideGenerator(t *testing.T) {
	_, user := newUserSchema()
	ctx := NewContext(memschema.New(), nil).withLocation(LocationSelector)
	set := &ir.EntitySet{Concept: user, ID: ir.NewLinearPath(user.QualName())}
	ref := &ir.AtomicRefSimple{Name: "name", Ref: set}
	aref := &ir.AtomicRefExpr{Expr: ref, Ref: set}

	merged, err := ctx.MergePaths(aref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := merged.(*ir.AtomicRefExpr); !ok {
		t.Fatalf("expected a selector-context ref to remain an AtomicRefExpr, got %#v", merged)
	}
	if set.Filter != nil {
		t.Fatalf("a selector-context ref must not be inlined onto the owner's Filter")
	}
}

func TestMergePathsCombinesWeakOperatorOverPaths(t *testing.T) {
	_, user := newUserSchema()
	ctx := NewContext(memschema.New(), nil).withLocation(LocationGenerator)
	id := ir.NewLinearPath(user.QualName())
	a := &ir.EntitySet{Concept: user, ID: id}
	b := &ir.EntitySet{Concept: user, ID: id}
	expr := &ir.BinOp{Left: a, Right: b, Op: schema.OpOr}

	merged, err := ctx.MergePaths(expr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := merged.(*ir.EntitySet); !ok {
		t.Fatalf("expected OR over identical paths to merge into a single EntitySet, got %T", merged)
	}
}

func TestMergePathsAndOverPathsIntersects(t *testing.T) {
	_, user := newUserSchema()
	ctx := NewContext(memschema.New(), nil).withLocation(LocationGenerator)
	id := ir.NewLinearPath(user.QualName())
	a := &ir.EntitySet{Concept: user, ID: id}
	b := &ir.EntitySet{Concept: user, ID: id}
	expr := &ir.BinOp{Left: a, Right: b, Op: schema.OpAnd}

	merged, err := ctx.MergePaths(expr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := merged.(*ir.EntitySet); !ok {
		t.Fatalf("expected AND over identical paths to merge into a single EntitySet, got %T", merged)
	}
}

func TestMergePathsLeavesNonPathBinOpAlone(t *testing.T) {
	ctx := NewContext(memschema.New(), nil).withLocation(LocationGenerator)
	expr := &ir.BinOp{Left: &ir.Constant{Value: int64(1), Type: "int"}, Right: &ir.Constant{Value: int64(2), Type: "int"}, Op: schema.OpPlus}

	merged, err := ctx.MergePaths(expr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bin, ok := merged.(*ir.BinOp)
	if !ok || bin.Op != schema.OpPlus {
		t.Fatalf("expected a constant BinOp to pass through unchanged in shape, got %#v", merged)
	}
}
